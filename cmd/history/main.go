// Command history fetches the price history for one lookup key, prints a
// summary, and optionally persists the series to the local snapshot store.
// With -offline it reads from the store instead of the upstream APIs.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"symbolsearch/internal/config"
	"symbolsearch/internal/fx"
	"symbolsearch/internal/httpx"
	"symbolsearch/internal/price"
	"symbolsearch/internal/source"
	"symbolsearch/internal/source/coingecko"
	"symbolsearch/internal/source/investing"
	"symbolsearch/internal/source/yahoo"
	"symbolsearch/internal/store"
)

func main() {
	var query string
	var src string
	var currency string
	var date string
	var strict bool
	var offline bool
	var full bool
	var storePath string
	var timeout int
	var configPath string

	flag.StringVar(&query, "query", "", "lookup key (ticker, coin id, or instrument id)")
	flag.StringVar(&src, "source", "yahoo", "source to fetch from (investing, coingecko, yahoo)")
	flag.StringVar(&currency, "currency", "", "preferred currency (3-letter code, best effort)")
	flag.StringVar(&date, "date", "", "print the price at this date (YYYY-MM-DD) instead of the latest")
	flag.BoolVar(&strict, "strict", false, "with -date, require a point on exactly that date")
	flag.BoolVar(&offline, "offline", false, "read from the snapshot store, do not hit the network")
	flag.BoolVar(&full, "full", false, "print the full series as JSON instead of a summary")
	flag.StringVar(&storePath, "store", getenv("STORE_PATH", ""), "path to the snapshot database (optional)")
	flag.IntVar(&timeout, "timeout", getenvInt("REQUEST_TIMEOUT_SEC", 30), "request timeout seconds")
	flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config.json (optional)")
	flag.Parse()

	if query == "" {
		log.Fatal("missing -query")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if storePath == "" {
		storePath = cfg.Store.Path
	}

	var h price.History
	if offline {
		if storePath == "" {
			log.Fatal("-offline needs -store or store.path in config")
		}
		snapshots, err := store.Open(storePath)
		if err != nil {
			log.Fatalf("store: %v", err)
		}
		defer snapshots.Close()

		h, err = loadSnapshot(snapshots, src, query, currency)
		if err != nil {
			log.Fatalf("load: %v", err)
		}
	} else {
		if timeout != 0 {
			cfg.Server.RequestTimeoutSec = timeout
		}
		sources, err := buildSources(cfg, time.Duration(cfg.Server.RequestTimeoutSec)*time.Second)
		if err != nil {
			log.Fatalf("sources: %v", err)
		}
		historians := make([]price.Historian, 0, len(sources))
		for _, s := range sources {
			historians = append(historians, s)
		}
		prices := price.NewService(0, historians...)

		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.RequestTimeoutSec)*time.Second)
		defer cancel()

		h, err = prices.History(ctx, query, src, currency)
		if err != nil {
			log.Fatalf("history: %v", err)
		}

		if storePath != "" {
			snapshots, err := store.Open(storePath)
			if err != nil {
				log.Fatalf("store: %v", err)
			}
			defer snapshots.Close()
			if err := snapshots.SaveHistory(src, query, h); err != nil {
				log.Printf("snapshot save failed: %v", err)
			}
		}
	}

	if full {
		b, _ := json.MarshalIndent(h, "", "  ")
		fmt.Println(string(b))
		return
	}

	if len(h.Points) == 0 {
		log.Fatal("empty history")
	}
	first := h.Points[0]
	last := h.Points[len(h.Points)-1]
	fmt.Printf("%s/%s: %d points, %s .. %s, currency %s\n",
		src, query, len(h.Points),
		first.When.Format("2006-01-02"), last.When.Format("2006-01-02"), h.Currency)

	if date != "" {
		when, err := time.Parse("2006-01-02", date)
		if err != nil {
			log.Fatalf("invalid date %q, want YYYY-MM-DD", date)
		}
		var p price.PricePoint
		if strict {
			p, err = h.AtStrict(when)
		} else {
			p, err = h.At(when)
		}
		if err != nil {
			log.Fatalf("point: %v", err)
		}
		fmt.Printf("%s: %g %s\n", p.When.Format("2006-01-02"), p.Price, p.Currency)
		return
	}
	fmt.Printf("latest %s: %g %s\n", last.When.Format("2006-01-02"), last.Close, h.Currency)
}

// loadSnapshot reads a stored history. Snapshots are keyed by the effective
// currency, so the preference is normalized first; empty falls back to the
// first currency stored for the key.
func loadSnapshot(snapshots *store.Store, src, query, currency string) (price.History, error) {
	cur := fx.Normalize(currency)
	if cur == "" {
		currencies, err := snapshots.Currencies(src, query)
		if err != nil {
			return price.History{}, err
		}
		if len(currencies) == 0 {
			return price.History{}, fmt.Errorf("no stored history for %s/%s", src, query)
		}
		cur = currencies[0]
	}
	return snapshots.LoadHistory(src, query, cur)
}

func buildSources(cfg config.Config, timeout time.Duration) ([]source.Source, error) {
	var sources []source.Source

	if cfg.Investing.Enabled {
		hc := limited(httpx.New(timeout), cfg.Investing.MaxRequestsPerMinute, cfg.Investing.MinRequestIntervalSec, cfg.Investing.Burst)
		header := http.Header{"User-Agent": []string{hc.UserAgent}}
		if cfg.Investing.APIKey != "" {
			header.Set("Authorization", "Bearer "+cfg.Investing.APIKey)
		}
		client, err := investing.NewInvestingAPIClient(
			investing.WithBaseURL(cfg.Investing.Endpoint),
			investing.WithHTTPClient(httpx.Std{C: hc}),
			investing.WithHeader(header),
		)
		if err != nil {
			return nil, err
		}
		sources = append(sources, investing.New(investing.Config{
			MaxConcurrency: cfg.Investing.MaxConcurrency,
		}, client))
	}
	if cfg.Coingecko.Enabled {
		hc := limited(httpx.New(timeout), cfg.Coingecko.MaxRequestsPerMinute, cfg.Coingecko.MinRequestIntervalSec, cfg.Coingecko.Burst)
		if cfg.Coingecko.APIKey != "" {
			hc.Headers = map[string]string{"x-cg-demo-api-key": cfg.Coingecko.APIKey}
		}
		sources = append(sources, coingecko.New(coingecko.Config{
			URL:               cfg.Coingecko.Endpoint,
			VsCacheTTLSeconds: cfg.Coingecko.VsCacheTTLSeconds,
		}, hc))
	}
	if cfg.Yahoo.Enabled {
		hc := limited(httpx.New(timeout), cfg.Yahoo.MaxRequestsPerMinute, cfg.Yahoo.MinRequestIntervalSec, cfg.Yahoo.Burst)
		sources = append(sources, yahoo.New(yahoo.Config{
			URL:      cfg.Yahoo.Endpoint,
			Range:    cfg.Yahoo.Range,
			Interval: cfg.Yahoo.Interval,
		}, hc))
	}
	return sources, nil
}

// limited prefers a token bucket with burst when RPM is set and falls back to
// a min-interval policy.
func limited(hc *httpx.Client, rpm, minIntervalSec, burst int) *httpx.Client {
	if rpm > 0 {
		return hc.WithLimiter(float64(rpm)/60.0, burst)
	}
	if minIntervalSec > 0 {
		return hc.WithLimiter(1.0/float64(minIntervalSec), 1)
	}
	return hc
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var x int
		_, _ = fmt.Sscanf(v, "%d", &x)
		if x != 0 {
			return x
		}
	}
	return def
}
