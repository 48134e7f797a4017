package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"symbolsearch/internal/fx"
	"symbolsearch/internal/httpx"
	"symbolsearch/internal/price"
	"symbolsearch/internal/source"
	"symbolsearch/internal/symbol"
)

// SourceName is the registry name of this source.
const SourceName = "coingecko"

// Config controls the coingecko source behavior.
type Config struct {
	Name string
	URL  string // base URL, default https://api.coingecko.com
	// VsCacheTTLSeconds caches the supported vs_currencies list for this
	// long. <= 0 disables the cache.
	VsCacheTTLSeconds int
}

// Provider serves crypto symbol search and market-chart price history.
// Currency preference is resolved against the supported vs_currencies list
// with a USD fallback; the effective currency is reported, never converted.
type Provider struct {
	cfg    Config
	client *httpx.Client

	// cached supported vs_currencies
	vsMu      sync.RWMutex
	vs        []string
	vsExpires time.Time

	// coalesce concurrent vs_currencies refreshes
	sf singleflight.Group
}

var _ source.Source = (*Provider)(nil)

func New(cfg Config, hc *httpx.Client) *Provider {
	if cfg.Name == "" {
		cfg.Name = SourceName
	}
	if cfg.URL == "" {
		cfg.URL = "https://api.coingecko.com"
	}
	cfg.URL = strings.TrimSuffix(cfg.URL, "/")
	if cfg.VsCacheTTLSeconds == 0 {
		cfg.VsCacheTTLSeconds = 3600
	}
	return &Provider{cfg: cfg, client: hc}
}

func (p *Provider) Name() string { return p.cfg.Name }

type coin struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

type searchResponse struct {
	Coins []coin `json:"coins"`
}

// Search looks up coins matching the query. Coingecko knows nothing about
// countries, so crypto symbols carry none and survive country filters.
func (p *Provider) Search(ctx context.Context, q source.Query) ([]source.Hit, error) {
	q = q.Normalized()
	if !q.WantsProduct(symbol.TypeCrypto) {
		return nil, nil
	}

	var body searchResponse
	if err := p.getJSON(ctx, "/api/v3/search", url.Values{"query": []string{q.Text}}, &body); err != nil {
		return nil, fmt.Errorf("coingecko search: %w", err)
	}
	if len(body.Coins) == 0 {
		return nil, nil
	}

	symbols := make([]symbol.Symbol, 0, len(body.Coins))
	for _, c := range body.Coins {
		symbols = append(symbols, symbol.New(symbol.Symbol{
			Name:    strings.ToUpper(c.Symbol),
			Type:    symbol.TypeCrypto,
			Query:   c.ID,
			Aliases: []string{c.ID, c.Name},
			Source:  SourceName,
		}))
	}
	return []source.Hit{{Label: "coingecko_crypto", Symbols: symbols}}, nil
}

type marketChart struct {
	Prices [][2]float64 `json:"prices"`
}

// PriceHistory fetches the full market chart of a coin id. The vs_currency is
// the preference resolved against the supported list.
func (p *Provider) PriceHistory(ctx context.Context, query, currency string) (price.History, error) {
	supported, err := p.supportedVs(ctx)
	if err != nil {
		// The supported list is an optimization; fall back to trusting the
		// preference when it cannot be fetched.
		supported = nil
	}
	effective, _ := fx.Resolve(currency, supported)

	q := url.Values{}
	q.Set("vs_currency", strings.ToLower(effective))
	q.Set("days", "max")

	var body marketChart
	path := "/api/v3/coins/" + url.PathEscape(strings.ToLower(query)) + "/market_chart"
	if err := p.getJSON(ctx, path, q, &body); err != nil {
		return price.History{}, fmt.Errorf("coingecko market chart %q: %w", query, err)
	}

	h := price.History{Currency: effective}
	for _, pr := range body.Prices {
		h.Points = append(h.Points, price.Point{
			When:  time.UnixMilli(int64(pr[0])).UTC(),
			Close: pr[1],
		})
	}
	h.Sort()
	return h, nil
}

// supportedVs returns the supported vs_currencies, cached and refresh-coalesced.
func (p *Provider) supportedVs(ctx context.Context) ([]string, error) {
	ttl := time.Duration(p.cfg.VsCacheTTLSeconds) * time.Second
	if ttl > 0 {
		p.vsMu.RLock()
		if len(p.vs) > 0 && time.Now().Before(p.vsExpires) {
			vs := p.vs
			p.vsMu.RUnlock()
			return vs, nil
		}
		p.vsMu.RUnlock()
	}

	v, err, _ := p.sf.Do("vs_currencies", func() (any, error) {
		var vs []string
		if err := p.getJSON(ctx, "/api/v3/simple/supported_vs_currencies", nil, &vs); err != nil {
			return nil, err
		}
		if ttl > 0 {
			p.vsMu.Lock()
			p.vs = vs
			p.vsExpires = time.Now().Add(ttl)
			p.vsMu.Unlock()
		}
		return vs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

func (p *Provider) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	u := p.cfg.URL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
		return fmt.Errorf("GET %s -> %d: %s", path, resp.StatusCode, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
