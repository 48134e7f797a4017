package investing

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// MatchFields are the columns the tabular search can match a query against.
var MatchFields = []string{"full_name", "name", "symbol"}

// TableRow is one row of a tabular per-product search result. Which columns
// are populated varies by product; the normalizer sorts that out.
type TableRow struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	ISIN     string `json:"isin"`
	Country  string `json:"country"`
	Currency string `json:"currency"`
}

type tableResponse struct {
	Data []TableRow `json:"data"`
}

// SearchTable runs the tabular search for one product (plural spelling,
// e.g. "etfs") matching by one field against value.
func (c *InvestingAPIClient) SearchTable(ctx context.Context, product, by, value string) ([]TableRow, error) {
	q := url.Values{}
	q.Set("by", by)
	q.Set("value", value)

	var body tableResponse
	if err := c.getJSON(ctx, "/search/"+product, q, &body); err != nil {
		return nil, fmt.Errorf("search %s by %s: %w", product, by, err)
	}
	return body.Data, nil
}

// SearchObj is one result of the quote search. The full payload is what a
// symbol stores to re-issue the original lookup later.
type SearchObj struct {
	ID       int64  `json:"id_"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Country  string `json:"country"`
	PairType string `json:"pair_type"`
	Exchange string `json:"exchange"`
	Tag      string `json:"tag"`
}

// AsMap renders the search object as the raw payload stored on a symbol.
func (o SearchObj) AsMap() map[string]any {
	return map[string]any{
		"id_":       o.ID,
		"name":      o.Name,
		"symbol":    o.Symbol,
		"country":   o.Country,
		"pair_type": o.PairType,
		"exchange":  o.Exchange,
		"tag":       o.Tag,
	}
}

type quotesResponse struct {
	Quotes []SearchObj `json:"quotes"`
}

// SearchQuotes runs the quote search. Products (plural spellings) and
// countries are optional filters the API applies server-side.
func (c *InvestingAPIClient) SearchQuotes(ctx context.Context, text string, products, countries []string) ([]SearchObj, error) {
	q := url.Values{}
	q.Set("q", text)
	if len(products) > 0 {
		q.Set("products", strings.Join(products, ","))
	}
	if len(countries) > 0 {
		q.Set("countries", strings.Join(countries, ","))
	}

	var body quotesResponse
	if err := c.getJSON(ctx, "/search/quotes", q, &body); err != nil {
		return nil, fmt.Errorf("search quotes: %w", err)
	}
	return body.Quotes, nil
}
