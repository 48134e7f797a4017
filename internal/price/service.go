package price

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"symbolsearch/internal/fx"
	"symbolsearch/internal/symbol"
)

// Historian delivers price history for a lookup key. Every source implements
// it; the currency argument is a preference the source may or may not honor.
type Historian interface {
	Name() string
	PriceHistory(ctx context.Context, query, currency string) (History, error)
}

type memoKey struct {
	query    string
	source   string
	currency string
}

type memoEntry struct {
	hist    History
	expires time.Time // zero means keep forever
}

// Service routes price lookups to the registered sources and memoizes full
// argument tuples. Cache hits hand out copies so the memoized history stays
// pristine. TTL <= 0 keeps entries forever, matching the original memoize
// behavior.
type Service struct {
	ttl time.Duration

	mu      sync.RWMutex
	sources map[string]Historian
	memo    map[memoKey]memoEntry

	sf singleflight.Group
}

// NewService builds a Service over the given sources. The first source is the
// default when a symbol carries no usable hint.
func NewService(ttl time.Duration, sources ...Historian) *Service {
	s := &Service{
		ttl:     ttl,
		sources: make(map[string]Historian, len(sources)),
		memo:    make(map[memoKey]memoEntry),
	}
	for _, src := range sources {
		s.sources[strings.ToLower(src.Name())] = src
	}
	return s
}

// History fetches the price history for query from the named source. The
// currency is a preference; the returned history carries the effective one.
func (s *Service) History(ctx context.Context, query, source, currency string) (History, error) {
	src, err := s.source(source)
	if err != nil {
		return History{}, err
	}
	key := memoKey{query: query, source: strings.ToLower(source), currency: fx.Normalize(currency)}

	s.mu.RLock()
	e, ok := s.memo[key]
	s.mu.RUnlock()
	if ok && (e.expires.IsZero() || time.Now().Before(e.expires)) {
		return e.hist.Clone(), nil
	}

	// Coalesce concurrent identical fetches.
	v, err, _ := s.sf.Do(fmt.Sprintf("%s|%s|%s", key.source, key.query, key.currency), func() (any, error) {
		h, err := src.PriceHistory(ctx, key.query, key.currency)
		if err != nil {
			return nil, err
		}
		h.Currency = fx.Normalize(h.Currency)
		h.Sort()
		entry := memoEntry{hist: h}
		if s.ttl > 0 {
			entry.expires = time.Now().Add(s.ttl)
		}
		s.mu.Lock()
		s.memo[key] = entry
		s.mu.Unlock()
		return h, nil
	})
	if err != nil {
		return History{}, err
	}
	return v.(History).Clone(), nil
}

// Point returns the price closest to when.
func (s *Service) Point(ctx context.Context, query, source, currency string, when time.Time) (PricePoint, error) {
	h, err := s.History(ctx, query, source, currency)
	if err != nil {
		return PricePoint{}, err
	}
	return h.At(when)
}

// PointStrict returns the price on exactly the given date or an error.
func (s *Service) PointStrict(ctx context.Context, query, source, currency string, when time.Time) (PricePoint, error) {
	h, err := s.History(ctx, query, source, currency)
	if err != nil {
		return PricePoint{}, err
	}
	return h.AtStrict(when)
}

// Latest returns the most recent price.
func (s *Service) Latest(ctx context.Context, query, source, currency string) (PricePoint, error) {
	h, err := s.History(ctx, query, source, currency)
	if err != nil {
		return PricePoint{}, err
	}
	return h.Latest()
}

// ForSymbol fetches history for a symbol, routing by its source hint and
// falling back by query type: crypto goes to coingecko, searchobj symbols
// back to investing, everything else to yahoo.
func (s *Service) ForSymbol(ctx context.Context, sym symbol.Symbol, currency string) (History, error) {
	return s.History(ctx, sym.QueryString(), s.SourceFor(sym), currency)
}

// SourceFor resolves the source a symbol's prices should come from.
func (s *Service) SourceFor(sym symbol.Symbol) string {
	if sym.Source != "" {
		if _, err := s.source(sym.Source); err == nil {
			return strings.ToLower(sym.Source)
		}
	}
	switch sym.QueryType() {
	case symbol.TypeCrypto:
		return "coingecko"
	case symbol.QueryTypeSearchObj:
		return "investing"
	default:
		return "yahoo"
	}
}

func (s *Service) source(name string) (Historian, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, ok := s.sources[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, name)
	}
	return src, nil
}
