// Command search looks a query up across all enabled sources and prints the
// labeled result buckets as JSON. With -collection it first consults a local
// symbol collection file and prints the stored symbol on a unique match.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"symbolsearch/internal/config"
	"symbolsearch/internal/httpx"
	"symbolsearch/internal/search"
	"symbolsearch/internal/source"
	"symbolsearch/internal/source/coingecko"
	"symbolsearch/internal/source/investing"
	"symbolsearch/internal/source/yahoo"
	"symbolsearch/internal/symbol"
)

func main() {
	var query string
	var productsCSV string
	var countriesCSV string
	var collectionPath string
	var timeout int
	var configPath string

	flag.StringVar(&query, "q", "", "search text (falls back to positional args)")
	flag.StringVar(&productsCSV, "products", "", "comma-separated product types (e.g., stocks,etfs,cryptos)")
	flag.StringVar(&countriesCSV, "countries", "", "comma-separated country filter (e.g., united states,germany)")
	flag.StringVar(&collectionPath, "collection", getenv("COLLECTION_FILE", ""), "path to a symbol collection YAML; checked before the live search")
	flag.IntVar(&timeout, "timeout", getenvInt("REQUEST_TIMEOUT_SEC", 30), "request timeout seconds")
	flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config.json (optional)")
	flag.Parse()

	if query == "" {
		query = strings.Join(flag.Args(), " ")
	}
	if strings.TrimSpace(query) == "" {
		log.Fatal("no search text provided")
	}

	if collectionPath != "" {
		coll, err := symbol.LoadCollection(collectionPath)
		if err != nil {
			log.Fatalf("collection: %v", err)
		}
		if s, err := coll.FindOne(query); err == nil {
			printJSON(s)
			return
		} else if errors.Is(err, symbol.ErrAmbiguous) {
			log.Printf("%v; falling through to live search", err)
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if timeout != 0 {
		cfg.Server.RequestTimeoutSec = timeout
	}

	sources, err := buildSources(cfg, time.Duration(cfg.Server.RequestTimeoutSec)*time.Second)
	if err != nil {
		log.Fatalf("sources: %v", err)
	}
	if len(sources) == 0 {
		log.Fatal("no sources enabled; check config.json or env overrides")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.RequestTimeoutSec)*time.Second)
	defer cancel()

	svc := search.NewService(sources...)
	res, err := svc.Search(ctx, source.Query{
		Text:      query,
		Countries: splitCSV(countriesCSV),
		Products:  splitCSV(productsCSV),
	})
	if err != nil {
		log.Fatalf("search: %v", err)
	}
	if len(res.Buckets) == 0 {
		log.Fatal("no results")
	}
	printJSON(res)
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

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
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
