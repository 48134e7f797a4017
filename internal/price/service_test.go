package price

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"symbolsearch/internal/symbol"
)

type fakeSource struct {
	name  string
	calls atomic.Int64
	hist  History
	err   error
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) PriceHistory(ctx context.Context, query, currency string) (History, error) {
	f.calls.Add(1)
	if f.err != nil {
		return History{}, f.err
	}
	return f.hist.Clone(), nil
}

func TestHistory_MemoizesFullArguments(t *testing.T) {
	src := &fakeSource{name: "yahoo", hist: sample()}
	svc := NewService(0, src)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.History(ctx, "MSFT", "yahoo", "usd"); err != nil {
			t.Fatalf("history: %v", err)
		}
	}
	if got := src.calls.Load(); got != 1 {
		t.Fatalf("want 1 upstream call, got %d", got)
	}

	// A different currency preference is a different cache entry.
	if _, err := svc.History(ctx, "MSFT", "yahoo", "CHF"); err != nil {
		t.Fatalf("history: %v", err)
	}
	if got := src.calls.Load(); got != 2 {
		t.Fatalf("want 2 upstream calls, got %d", got)
	}
}

func TestHistory_CacheHitReturnsCopy(t *testing.T) {
	src := &fakeSource{name: "yahoo", hist: sample()}
	svc := NewService(0, src)
	ctx := context.Background()

	first, err := svc.History(ctx, "MSFT", "yahoo", "USD")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	first.Points[0].Close = -1

	second, err := svc.History(ctx, "MSFT", "yahoo", "USD")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if second.Points[0].Close == -1 {
		t.Fatal("cached history was mutated through a returned copy")
	}
}

func TestHistory_ErrorsAreNotCached(t *testing.T) {
	src := &fakeSource{name: "yahoo", err: fmt.Errorf("boom")}
	svc := NewService(0, src)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := svc.History(ctx, "MSFT", "yahoo", "USD"); err == nil {
			t.Fatal("want error")
		}
	}
	if got := src.calls.Load(); got != 2 {
		t.Fatalf("errors must not memoize; got %d calls", got)
	}
}

func TestHistory_UnknownSource(t *testing.T) {
	svc := NewService(0, &fakeSource{name: "yahoo", hist: sample()})
	if _, err := svc.History(context.Background(), "MSFT", "nope", "USD"); err == nil {
		t.Fatal("want error for unknown source")
	}
}

func TestPointHelpers(t *testing.T) {
	svc := NewService(0, &fakeSource{name: "yahoo", hist: sample()})
	ctx := context.Background()

	pp, err := svc.Point(ctx, "MSFT", "yahoo", "USD", day(1))
	if err != nil {
		t.Fatalf("point: %v", err)
	}
	if !pp.When.Equal(day(2)) {
		t.Fatalf("nearest lookup failed: %+v", pp)
	}

	if _, err := svc.PointStrict(ctx, "MSFT", "yahoo", "USD", day(4)); err != ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	pp, err = svc.Latest(ctx, "MSFT", "yahoo", "USD")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if pp.Price != 104 {
		t.Fatalf("unexpected latest: %+v", pp)
	}
}

func TestHistory_TTLExpiry(t *testing.T) {
	src := &fakeSource{name: "yahoo", hist: sample()}
	svc := NewService(time.Nanosecond, src)
	ctx := context.Background()

	if _, err := svc.History(ctx, "MSFT", "yahoo", "USD"); err != nil {
		t.Fatalf("history: %v", err)
	}
	time.Sleep(time.Millisecond)
	if _, err := svc.History(ctx, "MSFT", "yahoo", "USD"); err != nil {
		t.Fatalf("history: %v", err)
	}
	if got := src.calls.Load(); got != 2 {
		t.Fatalf("expired entry should refetch; got %d calls", got)
	}
}

func TestSourceFor(t *testing.T) {
	svc := NewService(0,
		&fakeSource{name: "yahoo"},
		&fakeSource{name: "coingecko"},
		&fakeSource{name: "investing"},
	)

	cases := []struct {
		sym  symbol.Symbol
		want string
	}{
		{symbol.New(symbol.Symbol{Name: "AAPL"}), "yahoo"},
		{symbol.New(symbol.Symbol{Name: "ETH", Type: symbol.TypeCrypto}), "coingecko"},
		{symbol.New(symbol.Symbol{Name: "PINS", SearchObj: map[string]any{"id": 1}}), "investing"},
		{symbol.New(symbol.Symbol{Name: "X", Source: "Coingecko"}), "coingecko"},
		// Unregistered hint falls back by type.
		{symbol.New(symbol.Symbol{Name: "X", Source: "gone"}), "yahoo"},
	}
	for _, c := range cases {
		if got := svc.SourceFor(c.sym); got != c.want {
			t.Fatalf("SourceFor(%+v) = %q, want %q", c.sym, got, c.want)
		}
	}
}

func TestForSymbol_UsesQueryString(t *testing.T) {
	gecko := &fakeSource{name: "coingecko", hist: sample()}
	svc := NewService(0, gecko)

	sym := symbol.New(symbol.Symbol{Name: "ETH", Type: symbol.TypeCrypto, Query: "ethereum"})
	h, err := svc.ForSymbol(context.Background(), sym, "USD")
	if err != nil {
		t.Fatalf("for symbol: %v", err)
	}
	if len(h.Points) != 3 {
		t.Fatalf("unexpected history: %+v", h)
	}
}
