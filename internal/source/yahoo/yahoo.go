package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"symbolsearch/internal/httpx"
	"symbolsearch/internal/price"
	"symbolsearch/internal/source"
	"symbolsearch/internal/symbol"
)

// SourceName is the registry name of this source.
const SourceName = "yahoo"

// Config controls the yahoo source behavior.
type Config struct {
	Name     string
	URL      string // base URL, default https://query1.finance.yahoo.com
	Range    string // chart range, default "max"
	Interval string // chart interval, default "1d"
}

// Provider serves quote search and chart-API price history. Yahoo delivers
// prices in the instrument's listing currency; the preference is ignored and
// the effective currency read from the chart metadata.
type Provider struct {
	cfg    Config
	client *httpx.Client
}

var _ source.Source = (*Provider)(nil)

func New(cfg Config, hc *httpx.Client) *Provider {
	if cfg.Name == "" {
		cfg.Name = SourceName
	}
	if cfg.URL == "" {
		cfg.URL = "https://query1.finance.yahoo.com"
	}
	cfg.URL = strings.TrimSuffix(cfg.URL, "/")
	if cfg.Range == "" {
		cfg.Range = "max"
	}
	if cfg.Interval == "" {
		cfg.Interval = "1d"
	}
	return &Provider{cfg: cfg, client: hc}
}

func (p *Provider) Name() string { return p.cfg.Name }

// quoteTypeToProduct maps yahoo quote types onto symbol types. Unknown quote
// types pass through lower-cased.
var quoteTypeToProduct = map[string]string{
	"EQUITY":         symbol.TypeStock,
	"ETF":            symbol.TypeETF,
	"MUTUALFUND":     symbol.TypeFund,
	"INDEX":          symbol.TypeIndex,
	"CRYPTOCURRENCY": symbol.TypeCrypto,
	"CURRENCY":       symbol.TypeCurrencyCross,
}

type searchQuote struct {
	Symbol    string `json:"symbol"`
	ShortName string `json:"shortname"`
	LongName  string `json:"longname"`
	QuoteType string `json:"quoteType"`
	Exchange  string `json:"exchange"`
}

type searchResponse struct {
	Quotes []searchQuote `json:"quotes"`
}

// Search runs the quote search. Yahoo reports no country itself, but equities
// pick up the stock default country during normalization, so the country
// filter still applies; results without a country survive it unlabeled.
func (p *Provider) Search(ctx context.Context, q source.Query) ([]source.Hit, error) {
	q = q.Normalized()

	var body searchResponse
	if err := p.getJSON(ctx, "/v1/finance/search", url.Values{"q": []string{q.Text}}, &body); err != nil {
		return nil, fmt.Errorf("yahoo search: %w", err)
	}

	symbols := make([]symbol.Symbol, 0, len(body.Quotes))
	for _, sq := range body.Quotes {
		type_, ok := quoteTypeToProduct[sq.QuoteType]
		if !ok {
			type_ = strings.ToLower(sq.QuoteType)
		}
		if singular, valid := source.Singular(type_); valid && !q.WantsProduct(singular) {
			continue
		}
		symbols = append(symbols, symbol.New(symbol.Symbol{
			Name:    sq.Symbol,
			Type:    type_,
			Country: "", // yahoo does not report one
			Aliases: []string{sq.ShortName, sq.LongName},
			Source:  SourceName,
		}))
	}
	symbols = source.FilterCountries(symbols, q.Countries)
	if len(symbols) == 0 {
		return nil, nil
	}
	return []source.Hit{{Label: "yahoo_quotes", Symbols: symbols}}, nil
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency string `json:"currency"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// PriceHistory fetches the full daily chart for a ticker. Gaps (null closes)
// are dropped.
func (p *Provider) PriceHistory(ctx context.Context, query, currency string) (price.History, error) {
	q := url.Values{}
	q.Set("range", p.cfg.Range)
	q.Set("interval", p.cfg.Interval)

	var body chartResponse
	path := "/v8/finance/chart/" + url.PathEscape(query)
	if err := p.getJSON(ctx, path, q, &body); err != nil {
		return price.History{}, fmt.Errorf("yahoo chart %q: %w", query, err)
	}
	if e := body.Chart.Error; e != nil {
		return price.History{}, fmt.Errorf("yahoo chart %q: %s: %s", query, e.Code, e.Description)
	}
	if len(body.Chart.Result) == 0 || len(body.Chart.Result[0].Indicators.Quote) == 0 {
		return price.History{}, fmt.Errorf("yahoo chart %q: empty result", query)
	}

	res := body.Chart.Result[0]
	closes := res.Indicators.Quote[0].Close
	h := price.History{Currency: res.Meta.Currency}
	for i, ts := range res.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		h.Points = append(h.Points, price.Point{When: time.Unix(ts, 0).UTC(), Close: *closes[i]})
	}
	h.Sort()
	return h, nil
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
