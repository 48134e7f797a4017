package investing

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// HistoryBar is one daily close in an instrument history response.
type HistoryBar struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

// HistoryResponse is a full instrument history with the currency the prices
// are denominated in.
type HistoryResponse struct {
	Currency string       `json:"currency"`
	History  []HistoryBar `json:"history"`
}

// InstrumentHistory fetches the full daily history of an instrument by the id
// a quote search returned. The currency is a preference; the response carries
// the currency actually delivered.
func (c *InvestingAPIClient) InstrumentHistory(ctx context.Context, id int64, currency string) (HistoryResponse, error) {
	q := url.Values{}
	if currency != "" {
		q.Set("currency", currency)
	}

	var body HistoryResponse
	path := "/instruments/" + strconv.FormatInt(id, 10) + "/history"
	if err := c.getJSON(ctx, path, q, &body); err != nil {
		return HistoryResponse{}, fmt.Errorf("instrument %d history: %w", id, err)
	}
	return body, nil
}
