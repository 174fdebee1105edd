// Command bench drives a synthetic lookup workload through the cache and the
// coalescing queue and reports hit-rate and backend load. It optionally
// exposes pprof and Prometheus endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/IvanBrykalov/lookupcache/cache"
	pmet "github.com/IvanBrykalov/lookupcache/metrics/prom"
	"github.com/IvanBrykalov/lookupcache/queue"
)

func main() {
	// ---- Flags ----
	var (
		capacity = flag.Int("cap", 10_000, "cache capacity (entries)")
		ttl      = flag.Duration("ttl", 5*time.Second, "cache entry TTL")

		workers  = flag.Int("workers", 8*runtime.GOMAXPROCS(0), "number of caller goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")
		latency  = flag.Duration("latency", time.Millisecond, "simulated backend latency per fetch")

		keys  = flag.Int("keys", 100_000, "keyspace size")
		zipfS = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		zipfV = flag.Float64("zipf_v", 1.0, "Zipf v")
		seed  = flag.Int64("seed", time.Now().UnixNano(), "random seed")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", "", "serve Prometheus metrics at addr; empty = disabled")
	)
	flag.Parse()

	// ---- pprof / metrics servers (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			log.Printf("pprof: serving at %s", *pprofAddr)
			log.Println(http.ListenAndServe(*pprofAddr, nil))
		}()
	}
	cacheMetrics := cache.Metrics(cache.NoopMetrics{})
	queueMetrics := queue.Metrics(queue.NoopMetrics{})
	if *metricsAddr != "" {
		cacheMetrics = pmet.New(nil, "lookup", "bench_cache", nil)
		queueMetrics = pmet.NewQueue(nil, "lookup", "bench_queue", nil)
		http.Handle("/metrics", promhttp.Handler())
		go func() {
			log.Printf("metrics: serving at %s", *metricsAddr)
			log.Println(http.ListenAndServe(*metricsAddr, nil))
		}()
	}

	// ---- Build cache and queue ----
	c := cache.New[uint64, uint64](cache.Options[uint64, uint64]{
		Capacity:   *capacity,
		DefaultTTL: *ttl,
		Metrics:    cacheMetrics,
	})
	defer func() { _ = c.Close() }()

	var fetches uint64
	delay := *latency
	q := queue.New[uint64, uint64](func(_ context.Context, k uint64) (uint64, error) {
		atomic.AddUint64(&fetches, 1)
		time.Sleep(delay)
		return k * 2, nil
	}, queue.Options{Metrics: queueMetrics})
	defer func() { _ = q.Close() }()

	// ---- Snapshot flags for goroutines ----
	keysMax := uint64(*keys - 1)
	seedBase := *seed
	zipfSVal := *zipfS
	zipfVVal := *zipfV
	workersN := *workers
	if workersN <= 0 {
		workersN = 1
	}

	// ---- Load generation ----
	var lookups, hits, queued uint64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(workersN)
	for w := 0; w < workersN; w++ {
		go func(id int) {
			defer wg.Done()

			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			localR := rand.New(rand.NewSource(seedBase + int64(id)*9973))
			localZipf := rand.NewZipf(localR, zipfSVal, zipfVVal, keysMax)

			for ctx.Err() == nil {
				k := localZipf.Uint64()
				atomic.AddUint64(&lookups, 1)
				if _, ok := c.Get(k); ok {
					atomic.AddUint64(&hits, 1)
					continue
				}
				atomic.AddUint64(&queued, 1)
				v, err := q.Do(ctx, k)
				if err != nil {
					continue // deadline reached while waiting
				}
				if !c.Has(k) {
					c.Set(k, v)
				}
			}
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	// ---- Report ----
	lookupsN := atomic.LoadUint64(&lookups)
	hitsN := atomic.LoadUint64(&hits)
	queuedN := atomic.LoadUint64(&queued)
	fetchesN := atomic.LoadUint64(&fetches)

	hitRate := 0.0
	if lookupsN > 0 {
		hitRate = float64(hitsN) / float64(lookupsN) * 100
	}
	saved := 0.0
	if queuedN > 0 {
		saved = (1 - float64(fetchesN)/float64(queuedN)) * 100
	}
	st := c.Stats()

	fmt.Printf("cap=%d ttl=%v workers=%d keys=%d latency=%v dur=%v seed=%d\n",
		*capacity, *ttl, workersN, *keys, delay, elapsed, seedBase)
	fmt.Printf("lookups=%d (%.0f/s)  hits=%d  hit-rate=%.2f%%\n",
		lookupsN, float64(lookupsN)/elapsed.Seconds(), hitsN, hitRate)
	fmt.Printf("misses=%d  backend fetches=%d  coalesced=%.2f%%\n", queuedN, fetchesN, saved)
	fmt.Printf("cache size=%d evictions=%d expirations=%d\n", st.Size, st.Evictions, st.Expirations)
}
