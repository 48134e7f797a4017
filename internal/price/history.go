package price

import (
	"errors"
	"sort"
	"time"
)

// ErrNoData is returned when a lookup runs against an empty history.
var ErrNoData = errors.New("price: no data")

// ErrNotFound is returned by strict lookups when the exact date is absent.
var ErrNotFound = errors.New("price: no point at requested time")

// ErrUnknownSource is returned when a lookup names a source that is not
// registered.
var ErrUnknownSource = errors.New("price: unknown source")

// Point is a single close price at a point in time.
type Point struct {
	When  time.Time `json:"when"`
	Close float64   `json:"close"`
}

// History is an ordered price series together with the currency it is
// effectively denominated in. The effective currency may differ from the
// preference a caller asked for; it is reported, never converted.
type History struct {
	Points   []Point `json:"points"`
	Currency string  `json:"currency"`
}

// PricePoint is the result of a point-in-time lookup.
type PricePoint struct {
	When     time.Time `json:"when"`
	Price    float64   `json:"price"`
	Currency string    `json:"currency"`
}

// Sort orders the points chronologically. Sources call this once after
// decoding so the lookup helpers can assume order.
func (h *History) Sort() {
	sort.Slice(h.Points, func(i, j int) bool {
		return h.Points[i].When.Before(h.Points[j].When)
	})
}

// Clone returns an independent copy so cached histories survive caller
// mutation.
func (h History) Clone() History {
	if h.Points != nil {
		h.Points = append([]Point{}, h.Points...)
	}
	return h
}

// Latest returns the last point of the series.
func (h History) Latest() (PricePoint, error) {
	if len(h.Points) == 0 {
		return PricePoint{}, ErrNoData
	}
	p := h.Points[len(h.Points)-1]
	return PricePoint{When: p.When, Price: p.Close, Currency: h.Currency}, nil
}

// At returns the price at the point in time closest to when.
func (h History) At(when time.Time) (PricePoint, error) {
	if len(h.Points) == 0 {
		return PricePoint{}, ErrNoData
	}
	// First point not before when; the nearest is that one or its predecessor.
	i := sort.Search(len(h.Points), func(i int) bool {
		return !h.Points[i].When.Before(when)
	})
	best := i
	if i == len(h.Points) {
		best = len(h.Points) - 1
	} else if i > 0 {
		after := h.Points[i].When.Sub(when)
		before := when.Sub(h.Points[i-1].When)
		if before <= after {
			best = i - 1
		}
	}
	p := h.Points[best]
	return PricePoint{When: p.When, Price: p.Close, Currency: h.Currency}, nil
}

// AtStrict returns the price on exactly the UTC date of when, or ErrNotFound.
func (h History) AtStrict(when time.Time) (PricePoint, error) {
	if len(h.Points) == 0 {
		return PricePoint{}, ErrNoData
	}
	y, m, d := when.UTC().Date()
	for _, p := range h.Points {
		py, pm, pd := p.When.UTC().Date()
		if py == y && pm == m && pd == d {
			return PricePoint{When: p.When, Price: p.Close, Currency: h.Currency}, nil
		}
	}
	return PricePoint{}, ErrNotFound
}
