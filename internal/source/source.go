// Package source defines the contract every data source implements and the
// shared query/result shapes the search dispatcher works with.
package source

import (
	"context"
	"strings"

	"symbolsearch/internal/price"
	"symbolsearch/internal/symbol"
)

// Query is a normalized search request. Countries and Products are optional
// filters; nil means everything.
type Query struct {
	Text      string
	Countries []string
	Products  []string
}

// Normalized lower-cases the text and countries and keeps only valid product
// types (plural or singular spellings accepted). An empty product list after
// filtering means "all".
func (q Query) Normalized() Query {
	out := Query{Text: strings.ToLower(strings.TrimSpace(q.Text))}
	for _, c := range q.Countries {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			out.Countries = append(out.Countries, c)
		}
	}
	for _, p := range q.Products {
		if s, ok := Singular(p); ok {
			out.Products = append(out.Products, s)
		}
	}
	return out
}

// WantsProduct reports whether the query includes the (singular) product.
func (q Query) WantsProduct(singular string) bool {
	if len(q.Products) == 0 {
		return true
	}
	for _, p := range q.Products {
		if p == singular {
			return true
		}
	}
	return false
}

// Hit is one labeled bucket of normalized symbols, e.g.
// "investing_stocks_by_symbol" or "coingecko_crypto".
type Hit struct {
	Label   string          `json:"label"`
	Symbols []symbol.Symbol `json:"symbols"`
}

// Source is a provider integration: symbol search plus price history.
type Source interface {
	price.Historian
	Search(ctx context.Context, q Query) ([]Hit, error)
}

// FilterCountries keeps the symbols whose country is in countries. Symbols
// without a country survive the filter; they are not wrong, just unlabeled.
func FilterCountries(symbols []symbol.Symbol, countries []string) []symbol.Symbol {
	if len(countries) == 0 {
		return symbols
	}
	want := make(map[string]struct{}, len(countries))
	for _, c := range countries {
		want[strings.ToLower(c)] = struct{}{}
	}
	out := make([]symbol.Symbol, 0, len(symbols))
	for _, s := range symbols {
		if s.Country == "" {
			out = append(out, s)
			continue
		}
		if _, ok := want[strings.ToLower(s.Country)]; ok {
			out = append(out, s)
		}
	}
	return out
}
