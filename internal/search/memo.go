package search

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"symbolsearch/internal/source"
)

// Searcher is the part of Service that Memo wraps.
type Searcher interface {
	Search(ctx context.Context, q source.Query) (Result, error)
}

type memoKey struct {
	text      string
	countries string
	products  string
}

type memoEntry struct {
	result  Result
	expires time.Time
}

// Memo caches search results per full query. Identical queries within the
// TTL return a deep copy of the cached result without touching the sources.
// Errors are never cached. A TTL of zero or below caches forever.
type Memo struct {
	next Searcher
	ttl  time.Duration

	mu    sync.Mutex
	memo  map[memoKey]memoEntry
	sf    singleflight.Group
	clock func() time.Time
}

func NewMemo(next Searcher, ttl time.Duration) *Memo {
	return &Memo{
		next:  next,
		ttl:   ttl,
		memo:  make(map[memoKey]memoEntry),
		clock: time.Now,
	}
}

func keyOf(q source.Query) memoKey {
	countries := append([]string(nil), q.Countries...)
	products := append([]string(nil), q.Products...)
	sort.Strings(countries)
	sort.Strings(products)
	return memoKey{
		text:      q.Text,
		countries: strings.Join(countries, ","),
		products:  strings.Join(products, ","),
	}
}

func (m *Memo) Search(ctx context.Context, q source.Query) (Result, error) {
	q = q.Normalized()
	key := keyOf(q)

	m.mu.Lock()
	if e, ok := m.memo[key]; ok && (e.expires.IsZero() || m.clock().Before(e.expires)) {
		m.mu.Unlock()
		return e.result.Clone(), nil
	}
	m.mu.Unlock()

	v, err, _ := m.sf.Do(key.text+"|"+key.countries+"|"+key.products, func() (any, error) {
		res, err := m.next.Search(ctx, q)
		if err != nil {
			return Result{}, err
		}
		e := memoEntry{result: res}
		if m.ttl > 0 {
			e.expires = m.clock().Add(m.ttl)
		}
		m.mu.Lock()
		m.memo[key] = e
		m.mu.Unlock()
		return res, nil
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result).Clone(), nil
}

// Flush drops every cached result.
func (m *Memo) Flush() {
	m.mu.Lock()
	m.memo = make(map[memoKey]memoEntry)
	m.mu.Unlock()
}
