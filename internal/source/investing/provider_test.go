package investing_test

import (
	"context"
	"errors"
	"testing"

	"symbolsearch/internal/source"
	"symbolsearch/internal/source/investing"
)

// fakeAPI serves canned per-combination rows and quote objects.
type fakeAPI struct {
	tables   map[string][]investing.TableRow // key: product|by
	tableErr map[string]error
	quotes   []investing.SearchObj
	quoteErr error
	history  investing.HistoryResponse
	histErr  error

	historyIDs []int64
}

func (f *fakeAPI) SearchTable(ctx context.Context, product, by, value string) ([]investing.TableRow, error) {
	key := product + "|" + by
	if err := f.tableErr[key]; err != nil {
		return nil, err
	}
	return f.tables[key], nil
}

func (f *fakeAPI) SearchQuotes(ctx context.Context, text string, products, countries []string) ([]investing.SearchObj, error) {
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	return f.quotes, nil
}

func (f *fakeAPI) InstrumentHistory(ctx context.Context, id int64, currency string) (investing.HistoryResponse, error) {
	f.historyIDs = append(f.historyIDs, id)
	if f.histErr != nil {
		return investing.HistoryResponse{}, f.histErr
	}
	return f.history, nil
}

func findHit(hits []source.Hit, label string) (source.Hit, bool) {
	for _, h := range hits {
		if h.Label == label {
			return h, true
		}
	}
	return source.Hit{}, false
}

func TestSearch_BucketsPerCombination(t *testing.T) {
	api := &fakeAPI{
		tables: map[string][]investing.TableRow{
			"etfs|symbol": {{Symbol: "AAA", Name: "Carbon Fund", Country: "united states"}},
			"etfs|name":   {{Symbol: "BBB", Name: "Carbon Fund II", Country: "united states"}},
		},
	}
	p := investing.New(investing.Config{}, api)

	hits, err := p.Search(context.Background(), source.Query{Text: "carbon", Products: []string{"etfs"}})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("want 2 buckets, got %+v", hits)
	}
	// full_name produced nothing, so name leads in stable order.
	if hits[0].Label != "investing_etfs_by_name" {
		t.Fatalf("unexpected bucket order: %+v", hits)
	}
	if _, ok := findHit(hits, "investing_etfs_by_name"); !ok {
		t.Fatalf("missing name bucket: %+v", hits)
	}
	if h, ok := findHit(hits, "investing_etfs_by_symbol"); !ok || h.Symbols[0].Name != "AAA" {
		t.Fatalf("missing symbol bucket: %+v", hits)
	}
}

func TestSearch_FailedCombinationOnlyLosesItsBucket(t *testing.T) {
	api := &fakeAPI{
		tables: map[string][]investing.TableRow{
			"stocks|symbol": {{Symbol: "AAPL", Name: "Apple", Country: "united states"}},
		},
		tableErr: map[string]error{
			"stocks|name": errors.New("upstream 500"),
		},
	}
	p := investing.New(investing.Config{}, api)

	hits, err := p.Search(context.Background(), source.Query{Text: "apple", Products: []string{"stocks"}})
	if err != nil {
		t.Fatalf("search must not fail on a single combination: %v", err)
	}
	if _, ok := findHit(hits, "investing_stocks_by_symbol"); !ok {
		t.Fatalf("surviving bucket missing: %+v", hits)
	}
	if _, ok := findHit(hits, "investing_stocks_by_name"); ok {
		t.Fatalf("failed bucket should be absent: %+v", hits)
	}
}

func TestSearch_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := investing.New(investing.Config{}, &fakeAPI{})
	if _, err := p.Search(ctx, source.Query{Text: "x"}); err == nil {
		t.Fatal("want error on canceled context")
	}
}

func TestSearch_QuoteTriageAndDedupe(t *testing.T) {
	api := &fakeAPI{
		quotes: []investing.SearchObj{
			{ID: 1, Symbol: "PINS", Name: "Pinterest Inc", PairType: "stocks", Country: "united states"},
			{ID: 1, Symbol: "PINS", Name: "Pinterest Inc", PairType: "stocks", Country: "united states"}, // dup
			{ID: 2, Symbol: "PINSY", Name: "Pins Holdings", PairType: "stocks", Country: "japan"},
		},
	}
	p := investing.New(investing.Config{}, api)

	hits, err := p.Search(context.Background(), source.Query{Text: "PINS"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	perfect, ok := findHit(hits, "investing_searchobj_perfect")
	if !ok || len(perfect.Symbols) != 1 || perfect.Symbols[0].Name != "PINS" {
		t.Fatalf("unexpected perfect bucket: %+v", hits)
	}
	other, ok := findHit(hits, "investing_searchobj_other")
	if !ok || len(other.Symbols) != 1 || other.Symbols[0].Name != "PINSY" {
		t.Fatalf("unexpected other bucket: %+v", hits)
	}
}

func TestSearch_PerfectMatchByName(t *testing.T) {
	api := &fakeAPI{
		quotes: []investing.SearchObj{
			{ID: 3, Symbol: "SFTBY", Name: "SoftBank", PairType: "stocks", Country: "japan"},
		},
	}
	p := investing.New(investing.Config{}, api)

	hits, err := p.Search(context.Background(), source.Query{Text: "softbank"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if _, ok := findHit(hits, "investing_searchobj_perfect"); !ok {
		t.Fatalf("case-insensitive name match should be perfect: %+v", hits)
	}
}

func TestSearch_QuoteErrorDropsQuoteBucketsOnly(t *testing.T) {
	api := &fakeAPI{
		tables: map[string][]investing.TableRow{
			"stocks|symbol": {{Symbol: "AAPL", Name: "Apple", Country: "united states"}},
		},
		quoteErr: errors.New("boom"),
	}
	p := investing.New(investing.Config{}, api)

	hits, err := p.Search(context.Background(), source.Query{Text: "aapl", Products: []string{"stocks"}})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].Label != "investing_stocks_by_symbol" {
		t.Fatalf("unexpected hits: %+v", hits)
	}
}

func TestSearch_CountryFilter(t *testing.T) {
	api := &fakeAPI{
		tables: map[string][]investing.TableRow{
			"stocks|symbol": {
				{Symbol: "SIE", Name: "Siemens", Country: "germany"},
				{Symbol: "SIEGY", Name: "Siemens ADR", Country: "united states"},
			},
		},
	}
	p := investing.New(investing.Config{}, api)

	hits, err := p.Search(context.Background(), source.Query{
		Text:      "siemens",
		Products:  []string{"stocks"},
		Countries: []string{"Germany"},
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	h, ok := findHit(hits, "investing_stocks_by_symbol")
	if !ok || len(h.Symbols) != 1 || h.Symbols[0].Name != "SIE" {
		t.Fatalf("country filter failed: %+v", hits)
	}
}

func TestPriceHistory_ByInstrumentID(t *testing.T) {
	api := &fakeAPI{
		history: investing.HistoryResponse{
			Currency: "USD",
			History: []investing.HistoryBar{
				{Date: "2020-01-03", Close: 19.2},
				{Date: "2020-01-02", Close: 18.94},
				{Date: "not-a-date", Close: 1},
			},
		},
	}
	p := investing.New(investing.Config{}, api)

	h, err := p.PriceHistory(context.Background(), "1036013", "USD")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(api.historyIDs) != 1 || api.historyIDs[0] != 1036013 {
		t.Fatalf("wrong instrument id: %v", api.historyIDs)
	}
	if h.Currency != "USD" || len(h.Points) != 2 {
		t.Fatalf("unexpected history: %+v", h)
	}
	if !h.Points[0].When.Before(h.Points[1].When) {
		t.Fatalf("history not sorted: %+v", h.Points)
	}
}

func TestPriceHistory_ResolvesTextViaQuoteSearch(t *testing.T) {
	api := &fakeAPI{
		quotes: []investing.SearchObj{
			{ID: 9, Symbol: "PINSY", Name: "Pins Holdings"},
			{ID: 1036013, Symbol: "PINS", Name: "Pinterest Inc"},
		},
		history: investing.HistoryResponse{Currency: "USD"},
	}
	p := investing.New(investing.Config{}, api)

	if _, err := p.PriceHistory(context.Background(), "PINS", "USD"); err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(api.historyIDs) != 1 || api.historyIDs[0] != 1036013 {
		t.Fatalf("perfect match should win: %v", api.historyIDs)
	}
}

func TestPriceHistory_NoMatch(t *testing.T) {
	p := investing.New(investing.Config{}, &fakeAPI{})
	_, err := p.PriceHistory(context.Background(), "nothing", "USD")
	var nf *investing.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("want NotFoundError, got %v", err)
	}
}
