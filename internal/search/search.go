// Package search runs one query across every registered source and merges
// the labeled result buckets.
package search

import (
	"context"
	"log/slog"

	"symbolsearch/internal/source"
	"symbolsearch/internal/symbol"
)

// Result is the combined outcome of a search: buckets in source order, each
// holding normalized symbols.
type Result struct {
	Buckets []source.Hit `json:"buckets"`
}

// Symbols flattens all buckets into one slice, bucket order preserved.
func (r Result) Symbols() []symbol.Symbol {
	var out []symbol.Symbol
	for _, b := range r.Buckets {
		out = append(out, b.Symbols...)
	}
	return out
}

// Bucket returns the bucket with the given label.
func (r Result) Bucket(label string) ([]symbol.Symbol, bool) {
	for _, b := range r.Buckets {
		if b.Label == label {
			return b.Symbols, true
		}
	}
	return nil, false
}

// Clone deep-copies the result so cached values stay pristine.
func (r Result) Clone() Result {
	out := Result{Buckets: make([]source.Hit, 0, len(r.Buckets))}
	for _, b := range r.Buckets {
		symbols := make([]symbol.Symbol, 0, len(b.Symbols))
		for _, s := range b.Symbols {
			symbols = append(symbols, s.Clone())
		}
		out.Buckets = append(out.Buckets, source.Hit{Label: b.Label, Symbols: symbols})
	}
	return out
}

// Service dispatches searches to all registered sources sequentially. A
// failing source loses its buckets and is logged; the search as a whole only
// fails on context cancellation.
type Service struct {
	sources []source.Source
}

func NewService(sources ...source.Source) *Service {
	return &Service{sources: sources}
}

// Search runs the normalized query against every source.
func (s *Service) Search(ctx context.Context, q source.Query) (Result, error) {
	q = q.Normalized()

	var res Result
	for _, src := range s.sources {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		hits, err := src.Search(ctx, q)
		if err != nil {
			slog.Warn("source search failed", "source", src.Name(), "error", err)
			continue
		}
		res.Buckets = append(res.Buckets, hits...)
	}
	return res, nil
}
