package main

import (
	"compress/gzip"
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"symbolsearch/internal/config"
	"symbolsearch/internal/httpx"
	"symbolsearch/internal/price"
	"symbolsearch/internal/search"
	"symbolsearch/internal/source"
	"symbolsearch/internal/source/coingecko"
	"symbolsearch/internal/source/investing"
	"symbolsearch/internal/source/yahoo"
	"symbolsearch/internal/store"
)

func main() {
	cfgPath := os.Getenv("CONFIG_FILE")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	timeout := time.Duration(cfg.Server.RequestTimeoutSec) * time.Second

	sources, err := buildSources(cfg, timeout)
	if err != nil {
		log.Fatalf("sources: %v", err)
	}
	if len(sources) == 0 {
		log.Println("warning: no sources enabled")
	}

	var snapshots *store.Store
	if cfg.Store.Path != "" {
		snapshots, err = store.Open(cfg.Store.Path)
		if err != nil {
			log.Fatalf("store: %v", err)
		}
		defer snapshots.Close()
	}

	searcher := search.NewMemo(
		search.NewService(sources...),
		time.Duration(cfg.Cache.SearchTTLSeconds)*time.Second,
	)
	historians := make([]price.Historian, 0, len(sources))
	for _, s := range sources {
		historians = append(historians, s)
	}
	prices := price.NewService(time.Duration(cfg.Cache.HistoryTTLSeconds)*time.Second, historians...)

	a := &app{searcher: searcher, prices: prices, snapshots: snapshots}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/api/search", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			a.handleGetSearch(w, r)
		case http.MethodPost:
			a.handlePostSearch(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/price/history", a.handleHistory)
	mux.HandleFunc("/api/price/latest", a.handleLatest)
	mux.HandleFunc("/api/price/point", a.handlePoint)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           withJSONHeaders(withGzip(recoverPanic(limitBody(mux)))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
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

func withJSONHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withGzip compresses the response when the client supports gzip.
func withGzip(next http.Handler) http.Handler {
	var gzPool = sync.Pool{New: func() any {
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
		return w
	}}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		gz := gzPool.Get().(*gzip.Writer)
		gz.Reset(w)
		defer func() {
			_ = gz.Close()
			gz.Reset(io.Discard)
			gzPool.Put(gz)
		}()
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		gw := gzipResponseWriter{ResponseWriter: w, Writer: gz}
		next.ServeHTTP(gw, r)
	})
}

type gzipResponseWriter struct {
	http.ResponseWriter
	Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
	return g.Writer.Write(b)
}

// limitBody caps request body size to avoid memory abuse.
func limitBody(next http.Handler) http.Handler {
	const maxBody = 1 << 20 // 1MB
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		}
		next.ServeHTTP(w, r)
	})
}

// recoverPanic protects handlers from panics.
func recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
