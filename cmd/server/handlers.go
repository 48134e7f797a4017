package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"symbolsearch/internal/fx"
	"symbolsearch/internal/price"
	"symbolsearch/internal/search"
	"symbolsearch/internal/source"
	"symbolsearch/internal/source/investing"
	"symbolsearch/internal/store"
)

type app struct {
	searcher  search.Searcher
	prices    *price.Service
	snapshots *store.Store
}

type historyResponse struct {
	Source   string        `json:"source"`
	Query    string        `json:"query"`
	Currency string        `json:"currency"`
	Points   []price.Point `json:"points"`
}

func (a *app) handleGetSearch(w http.ResponseWriter, r *http.Request) {
	q := source.Query{
		Text:      strings.TrimSpace(r.URL.Query().Get("q")),
		Countries: splitCSV(r.URL.Query().Get("countries")),
		Products:  splitCSV(r.URL.Query().Get("products")),
	}
	if q.Text == "" {
		http.Error(w, "missing q query param", http.StatusBadRequest)
		return
	}
	a.writeSearch(w, r, q)
}

type searchBody struct {
	Text      string   `json:"text"`
	Countries []string `json:"countries"`
	Products  []string `json:"products"`
}

func (a *app) handlePostSearch(w http.ResponseWriter, r *http.Request) {
	var b searchBody
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(b.Text) == "" {
		http.Error(w, "text cannot be empty", http.StatusBadRequest)
		return
	}
	a.writeSearch(w, r, source.Query{Text: b.Text, Countries: b.Countries, Products: b.Products})
}

func (a *app) writeSearch(w http.ResponseWriter, r *http.Request, q source.Query) {
	for _, p := range q.Products {
		if !source.IsValidProduct(p) {
			http.Error(w, "unknown product type: "+p, http.StatusBadRequest)
			return
		}
	}
	res, err := a.searcher.Search(r.Context(), q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, res)
}

func (a *app) handleHistory(w http.ResponseWriter, r *http.Request) {
	query, src, currency, ok := priceParams(w, r)
	if !ok {
		return
	}
	h, err := a.prices.History(r.Context(), query, src, currency)
	if err != nil {
		writePriceError(w, err)
		return
	}
	if a.snapshots != nil {
		if err := a.snapshots.SaveHistory(src, query, h); err != nil {
			slog.Warn("snapshot save failed", "source", src, "query", query, "error", err)
		}
	}
	writeJSON(w, historyResponse{Source: src, Query: query, Currency: h.Currency, Points: h.Points})
}

func (a *app) handleLatest(w http.ResponseWriter, r *http.Request) {
	query, src, currency, ok := priceParams(w, r)
	if !ok {
		return
	}
	p, err := a.prices.Latest(r.Context(), query, src, currency)
	if err != nil {
		writePriceError(w, err)
		return
	}
	writeJSON(w, p)
}

func (a *app) handlePoint(w http.ResponseWriter, r *http.Request) {
	query, src, currency, ok := priceParams(w, r)
	if !ok {
		return
	}
	date := r.URL.Query().Get("date")
	when, err := time.Parse("2006-01-02", date)
	if err != nil {
		http.Error(w, "invalid date, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	strict := r.URL.Query().Get("strict") == "1" || strings.EqualFold(r.URL.Query().Get("strict"), "true")

	var p price.PricePoint
	if strict {
		p, err = a.prices.PointStrict(r.Context(), query, src, currency, when)
	} else {
		p, err = a.prices.Point(r.Context(), query, src, currency, when)
	}
	if err != nil {
		writePriceError(w, err)
		return
	}
	writeJSON(w, p)
}

func priceParams(w http.ResponseWriter, r *http.Request) (query, src, currency string, ok bool) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return "", "", "", false
	}
	query = strings.TrimSpace(r.URL.Query().Get("query"))
	src = strings.TrimSpace(r.URL.Query().Get("source"))
	currency = strings.TrimSpace(r.URL.Query().Get("currency"))
	if query == "" || src == "" {
		http.Error(w, "missing query or source param", http.StatusBadRequest)
		return "", "", "", false
	}
	if currency != "" && !fx.IsCode(currency) {
		http.Error(w, "invalid currency code: "+currency, http.StatusBadRequest)
		return "", "", "", false
	}
	return query, src, currency, true
}

func writePriceError(w http.ResponseWriter, err error) {
	var nf *investing.NotFoundError
	switch {
	case errors.Is(err, price.ErrUnknownSource):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, price.ErrNotFound), errors.Is(err, price.ErrNoData), errors.As(err, &nf):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusBadGateway)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
