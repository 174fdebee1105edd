// Command lookupd serves cached, coalesced user lookups over HTTP and exposes
// Prometheus metrics at /metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/lookupcache/cache"
	"github.com/IvanBrykalov/lookupcache/internal/logx"
	"github.com/IvanBrykalov/lookupcache/internal/server"
	"github.com/IvanBrykalov/lookupcache/internal/userstore"
	pmet "github.com/IvanBrykalov/lookupcache/metrics/prom"
	"github.com/IvanBrykalov/lookupcache/monitoring"
	"github.com/IvanBrykalov/lookupcache/queue"
	"github.com/IvanBrykalov/lookupcache/ratelimit"
)

func main() {
	// ---- Flags ----
	defaultAddr := ":3001"
	if port := os.Getenv("PORT"); port != "" {
		defaultAddr = ":" + port
	}
	var (
		addr     = flag.String("addr", defaultAddr, "HTTP listen address (PORT env sets the default port)")
		logLevel = flag.String("log-level", "info", "log level: debug | info | warn | error")

		cacheSize = flag.Int("cache-size", 1000, "cache capacity (entries)")
		cacheTTL  = flag.Duration("cache-ttl", time.Minute, "cache entry time-to-live")
		cleanup   = flag.Duration("cleanup", cache.DefaultCleanupInterval, "expired entries sweep period (negative = disabled)")

		rateLimit   = flag.Int("rate-limit", 10, "requests per minute per client")
		burst       = flag.Int("burst", 5, "requests per burst window per client")
		burstWindow = flag.Duration("burst-window", 10*time.Second, "burst window")

		fetchDelay = flag.Duration("fetch-delay", userstore.DefaultDelay, "simulated backend latency")
		shutdown   = flag.Duration("shutdown-timeout", 5*time.Second, "graceful shutdown timeout")
	)
	flag.Parse()

	logger := logx.New(os.Stderr, logx.ParseLevel(*logLevel))

	// Signal-aware root context: SIGINT/SIGTERM starts a clean shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Prometheus metrics ----
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	cacheMetrics := pmet.New(reg, "lookup", "cache", nil)
	queueMetrics := pmet.NewQueue(reg, "lookup", "queue", nil)

	// ---- Core ----
	users := cache.New[string, userstore.User](cache.Options[string, userstore.User]{
		Capacity:        *cacheSize,
		DefaultTTL:      *cacheTTL,
		CleanupInterval: *cleanup,
		Metrics:         cacheMetrics,
		Logger:          logger,
	})

	store := userstore.New(*fetchDelay)
	q := queue.New[int, userstore.User](store.Fetch, queue.Options{
		Metrics: queueMetrics,
		Logger:  logger,
	})

	svc := server.New(server.Deps{
		Cache: users,
		Queue: q,
		Store: store,
		Limiter: ratelimit.New(ratelimit.Options{
			Limit:       *rateLimit,
			Burst:       *burst,
			BurstWindow: *burstWindow,
		}),
		Monitor: monitoring.New(monitoring.DefaultMaxRequests),
		Logger:  logger,
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           svc.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Important(gctx, "server is running", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Important(context.Background(), "shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), *shutdown)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	err := g.Wait()

	// Settle lookups that are still queued, then stop the sweeper.
	_ = q.Close()
	_ = users.Close()

	if err != nil {
		logger.Error(context.Background(), "server stopped", "error", err.Error())
		os.Exit(1)
	}
}
