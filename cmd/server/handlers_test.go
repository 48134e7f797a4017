package main

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"symbolsearch/internal/price"
	"symbolsearch/internal/search"
	"symbolsearch/internal/source"
	"symbolsearch/internal/store"
	"symbolsearch/internal/symbol"
)

type fakeSource struct {
	name string
	hits []source.Hit
	hist price.History
}

func (f fakeSource) Name() string { return f.name }

func (f fakeSource) Search(_ context.Context, q source.Query) ([]source.Hit, error) {
	return f.hits, nil
}

func (f fakeSource) PriceHistory(_ context.Context, query, currency string) (price.History, error) {
	if len(f.hist.Points) == 0 {
		return price.History{}, price.ErrNoData
	}
	return f.hist, nil
}

func newTestApp(t *testing.T, withStore bool) *app {
	t.Helper()
	src := fakeSource{
		name: "yahoo",
		hits: []source.Hit{{
			Label:   "yahoo_quotes",
			Symbols: []symbol.Symbol{symbol.New(symbol.Symbol{Name: "MSFT"})},
		}},
		hist: price.History{
			Currency: "USD",
			Points: []price.Point{
				{When: time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), Close: 100},
				{When: time.Date(2020, 1, 3, 0, 0, 0, 0, time.UTC), Close: 101},
			},
		},
	}
	a := &app{
		searcher: search.NewService(src),
		prices:   price.NewService(0, src),
	}
	if withStore {
		s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
		if err != nil {
			t.Fatalf("store.Open: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		a.snapshots = s
	}
	return a
}

func TestGetSearch(t *testing.T) {
	a := newTestApp(t, false)

	rr := httptest.NewRecorder()
	a.handleGetSearch(rr, httptest.NewRequest("GET", "/api/search?q=microsoft", nil))
	if rr.Code != 200 {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var res search.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Buckets) != 1 || res.Buckets[0].Label != "yahoo_quotes" {
		t.Fatalf("unexpected buckets: %+v", res.Buckets)
	}
}

func TestGetSearchMissingQuery(t *testing.T) {
	a := newTestApp(t, false)
	rr := httptest.NewRecorder()
	a.handleGetSearch(rr, httptest.NewRequest("GET", "/api/search", nil))
	if rr.Code != 400 {
		t.Fatalf("status=%d, want 400", rr.Code)
	}
}

func TestGetSearchBadProduct(t *testing.T) {
	a := newTestApp(t, false)
	rr := httptest.NewRecorder()
	a.handleGetSearch(rr, httptest.NewRequest("GET", "/api/search?q=x&products=widgets", nil))
	if rr.Code != 400 {
		t.Fatalf("status=%d, want 400", rr.Code)
	}
}

func TestPostSearch(t *testing.T) {
	a := newTestApp(t, false)
	body := strings.NewReader(`{"text":"microsoft","products":["stocks"]}`)
	rr := httptest.NewRecorder()
	a.handlePostSearch(rr, httptest.NewRequest("POST", "/api/search", body))
	if rr.Code != 200 {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestPostSearchBadJSON(t *testing.T) {
	a := newTestApp(t, false)
	rr := httptest.NewRecorder()
	a.handlePostSearch(rr, httptest.NewRequest("POST", "/api/search", strings.NewReader("{nope")))
	if rr.Code != 400 {
		t.Fatalf("status=%d, want 400", rr.Code)
	}
}

func TestHistoryPersistsSnapshot(t *testing.T) {
	a := newTestApp(t, true)

	rr := httptest.NewRecorder()
	a.handleHistory(rr, httptest.NewRequest("GET", "/api/price/history?query=MSFT&source=yahoo&currency=usd", nil))
	if rr.Code != 200 {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var res historyResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Currency != "USD" || len(res.Points) != 2 {
		t.Fatalf("unexpected response: %+v", res)
	}

	saved, err := a.snapshots.LoadHistory("yahoo", "MSFT", "USD")
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if len(saved.Points) != 2 {
		t.Fatalf("snapshot not persisted: %+v", saved)
	}
}

func TestLatest(t *testing.T) {
	a := newTestApp(t, false)
	rr := httptest.NewRecorder()
	a.handleLatest(rr, httptest.NewRequest("GET", "/api/price/latest?query=MSFT&source=yahoo", nil))
	if rr.Code != 200 {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var p price.PricePoint
	if err := json.Unmarshal(rr.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Price != 101 {
		t.Fatalf("got price %v, want 101", p.Price)
	}
}

func TestLatestUnknownSource(t *testing.T) {
	a := newTestApp(t, false)
	rr := httptest.NewRecorder()
	a.handleLatest(rr, httptest.NewRequest("GET", "/api/price/latest?query=MSFT&source=nope", nil))
	if rr.Code != 400 {
		t.Fatalf("status=%d, want 400", rr.Code)
	}
}

func TestLatestBadCurrency(t *testing.T) {
	a := newTestApp(t, false)
	rr := httptest.NewRecorder()
	a.handleLatest(rr, httptest.NewRequest("GET", "/api/price/latest?query=MSFT&source=yahoo&currency=dollars", nil))
	if rr.Code != 400 {
		t.Fatalf("status=%d, want 400", rr.Code)
	}

	rr = httptest.NewRecorder()
	a.handleLatest(rr, httptest.NewRequest("GET", "/api/price/latest?query=MSFT&source=yahoo&currency=eur", nil))
	if rr.Code != 200 {
		t.Fatalf("status=%d, want 200", rr.Code)
	}
}

func TestPointStrictMissingDate(t *testing.T) {
	a := newTestApp(t, false)

	rr := httptest.NewRecorder()
	a.handlePoint(rr, httptest.NewRequest("GET", "/api/price/point?query=MSFT&source=yahoo&date=2020-01-04&strict=1", nil))
	if rr.Code != 404 {
		t.Fatalf("status=%d, want 404", rr.Code)
	}

	// Non-strict falls back to the nearest point.
	rr = httptest.NewRecorder()
	a.handlePoint(rr, httptest.NewRequest("GET", "/api/price/point?query=MSFT&source=yahoo&date=2020-01-04", nil))
	if rr.Code != 200 {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var p price.PricePoint
	if err := json.Unmarshal(rr.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Price != 101 {
		t.Fatalf("got price %v, want 101", p.Price)
	}
}

func TestPointBadDate(t *testing.T) {
	a := newTestApp(t, false)
	rr := httptest.NewRecorder()
	a.handlePoint(rr, httptest.NewRequest("GET", "/api/price/point?query=MSFT&source=yahoo&date=nope", nil))
	if rr.Code != 400 {
		t.Fatalf("status=%d, want 400", rr.Code)
	}
}
