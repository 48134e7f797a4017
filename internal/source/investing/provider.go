package investing

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"symbolsearch/internal/price"
	"symbolsearch/internal/source"
	"symbolsearch/internal/symbol"
)

// SourceName is the registry name of this source.
const SourceName = "investing"

// API is the part of the investing client the provider consumes.
type API interface {
	SearchTable(ctx context.Context, product, by, value string) ([]TableRow, error)
	SearchQuotes(ctx context.Context, text string, products, countries []string) ([]SearchObj, error)
	InstrumentHistory(ctx context.Context, id int64, currency string) (HistoryResponse, error)
}

// Config controls the investing provider behavior.
type Config struct {
	Name string
	// MaxConcurrency limits concurrent tabular search requests across the
	// product x match-field cross product. Defaults to 4 when <= 0.
	MaxConcurrency int
}

// Provider runs searches across the cross product of product types and match
// fields, normalizes every result shape into symbols, and serves price
// history by re-issuing stored quote lookups.
type Provider struct {
	cfg Config
	api API
}

var _ source.Source = (*Provider)(nil)

func New(cfg Config, api API) *Provider {
	if cfg.Name == "" {
		cfg.Name = SourceName
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	return &Provider{cfg: cfg, api: api}
}

func (p *Provider) Name() string { return p.cfg.Name }

// tableProducts are the product types the tabular search endpoints cover.
// Crypto is not among them; the coingecko source owns that.
func tableProducts(q source.Query) []string {
	var out []string
	for _, prod := range source.AllProducts() {
		if prod == symbol.TypeCrypto {
			continue
		}
		if q.WantsProduct(prod) {
			out = append(out, prod)
		}
	}
	return out
}

// Search runs the query against every (product, match field) combination plus
// the quote search. A failing combination only loses its own bucket; the
// request as a whole fails on context cancellation alone.
func (p *Provider) Search(ctx context.Context, q source.Query) ([]source.Hit, error) {
	q = q.Normalized()
	products := tableProducts(q)

	type comboKey struct{ product, by string }
	results := make(map[comboKey][]TableRow, len(products)*len(MatchFields))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.MaxConcurrency)
	for _, product := range products {
		plural, _ := source.Plural(product)
		for _, by := range MatchFields {
			product, plural, by := product, plural, by
			g.Go(func() error {
				rows, err := p.api.SearchTable(gctx, plural, by, q.Text)
				if err != nil {
					// Skip this bucket; other combinations still count.
					slog.Debug("investing table search failed", "product", product, "by", by, "error", err)
					return nil
				}
				if len(rows) > 0 {
					mu.Lock()
					results[comboKey{product, by}] = rows
					mu.Unlock()
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Assemble buckets in stable product x field order.
	var hits []source.Hit
	for _, product := range products {
		plural, _ := source.Plural(product)
		for _, by := range MatchFields {
			rows, ok := results[comboKey{product, by}]
			if !ok {
				continue
			}
			symbols := source.FilterCountries(RowsToSymbols(rows, product), q.Countries)
			if len(symbols) == 0 {
				continue
			}
			hits = append(hits, source.Hit{
				Label:   "investing_" + plural + "_by_" + by,
				Symbols: symbols,
			})
		}
	}

	hits = append(hits, p.searchQuotes(ctx, q)...)
	return hits, nil
}

// searchQuotes triages quote-search results into perfect and other matches.
// Errors drop the quote buckets without failing the search.
func (p *Provider) searchQuotes(ctx context.Context, q source.Query) []source.Hit {
	var plurals []string
	for _, prod := range q.Products {
		if plural, ok := source.Plural(prod); ok {
			plurals = append(plurals, plural)
		}
	}
	objs, err := p.api.SearchQuotes(ctx, q.Text, plurals, q.Countries)
	if err != nil {
		slog.Debug("investing quote search failed", "error", err)
		return nil
	}

	seen := make(map[int64]struct{}, len(objs))
	var perfect, other []SearchObj
	for _, o := range objs {
		if _, dup := seen[o.ID]; dup {
			continue
		}
		seen[o.ID] = struct{}{}
		if strings.ToLower(o.Symbol) == q.Text || strings.ToLower(o.Name) == q.Text {
			perfect = append(perfect, o)
		} else {
			other = append(other, o)
		}
	}

	var hits []source.Hit
	for _, bucket := range []struct {
		label string
		objs  []SearchObj
	}{
		{"investing_searchobj_perfect", perfect},
		{"investing_searchobj_other", other},
	} {
		symbols := source.FilterCountries(ObjsToSymbols(bucket.objs), q.Countries)
		if len(symbols) > 0 {
			hits = append(hits, source.Hit{Label: bucket.label, Symbols: symbols})
		}
	}
	return hits
}

// PriceHistory re-issues the original lookup. The query is the instrument id
// a quote search produced; plain text falls back to a fresh quote search
// taking the best match.
func (p *Provider) PriceHistory(ctx context.Context, query, currency string) (price.History, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(query), 10, 64)
	if err != nil {
		id, err = p.resolveID(ctx, query)
		if err != nil {
			return price.History{}, err
		}
	}

	res, err := p.api.InstrumentHistory(ctx, id, currency)
	if err != nil {
		return price.History{}, err
	}

	h := price.History{Currency: res.Currency}
	for _, bar := range res.History {
		when, err := time.Parse("2006-01-02", bar.Date)
		if err != nil {
			continue
		}
		h.Points = append(h.Points, price.Point{When: when.UTC(), Close: bar.Close})
	}
	h.Sort()
	return h, nil
}

// resolveID finds the instrument id for a plain-text query, preferring a
// perfect symbol/name match over the first result.
func (p *Provider) resolveID(ctx context.Context, query string) (int64, error) {
	objs, err := p.api.SearchQuotes(ctx, strings.ToLower(query), nil, nil)
	if err != nil {
		return 0, err
	}
	if len(objs) == 0 {
		return 0, &NotFoundError{Query: query}
	}
	lq := strings.ToLower(query)
	for _, o := range objs {
		if strings.ToLower(o.Symbol) == lq || strings.ToLower(o.Name) == lq {
			return o.ID, nil
		}
	}
	return objs[0].ID, nil
}

// NotFoundError reports a query no instrument matched.
type NotFoundError struct {
	Query string
}

func (e *NotFoundError) Error() string {
	return "investing: no instrument matching " + strconv.Quote(e.Query)
}
