// Package server exposes the user lookup service over HTTP.
package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/bool64/ctxd"

	"github.com/IvanBrykalov/lookupcache/cache"
	"github.com/IvanBrykalov/lookupcache/internal/userstore"
	"github.com/IvanBrykalov/lookupcache/monitoring"
	"github.com/IvanBrykalov/lookupcache/queue"
	"github.com/IvanBrykalov/lookupcache/ratelimit"
)

// Deps are the collaborators of a Service. Cache, Queue and Store are
// required; the rest may be nil.
type Deps struct {
	Cache   cache.Cache[string, userstore.User]
	Queue   *queue.Queue[int, userstore.User]
	Store   *userstore.Store
	Limiter *ratelimit.Limiter
	Monitor *monitoring.Monitor
	Logger  ctxd.Logger

	// Metrics serves GET /metrics when set (e.g. promhttp.Handler()).
	Metrics http.Handler

	// Now overrides the time source (tests). Nil => time.Now.
	Now func() time.Time
}

// Service owns one cache and one queue and is shared by all requests.
type Service struct {
	cache   cache.Cache[string, userstore.User]
	queue   *queue.Queue[int, userstore.User]
	store   *userstore.Store
	limiter *ratelimit.Limiter
	monitor *monitoring.Monitor
	log     ctxd.Logger
	metrics http.Handler
	now     func() time.Time
}

// New builds a Service from its dependencies.
func New(d Deps) *Service {
	if d.Cache == nil || d.Queue == nil || d.Store == nil {
		panic("server: Cache, Queue and Store are required")
	}
	if d.Monitor == nil {
		d.Monitor = monitoring.New(0)
	}
	if d.Logger == nil {
		d.Logger = ctxd.NoOpLogger{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Service{
		cache:   d.Cache,
		queue:   d.Queue,
		store:   d.Store,
		limiter: d.Limiter,
		monitor: d.Monitor,
		log:     d.Logger,
		metrics: d.Metrics,
		now:     d.Now,
	}
}

// CacheKey returns the cache key of a user id.
func CacheKey(id int) string { return "user:" + strconv.Itoa(id) }

// Lookup returns the user with the given id, from the cache when fresh,
// otherwise through the coalescing queue. A fetched user is cached only if
// no other path cached it in the meantime.
func (s *Service) Lookup(ctx context.Context, id int) (userstore.User, error) {
	key := CacheKey(id)
	if u, ok := s.cache.Get(key); ok {
		return u, nil
	}

	u, err := s.queue.Do(ctx, id)
	if err != nil {
		return userstore.User{}, err
	}
	if !s.cache.Has(key) {
		s.cache.Set(key, u)
	}
	return u, nil
}

// Create stores a user and caches it right away.
func (s *Service) Create(name, email string) userstore.User {
	u := s.store.Create(name, email)
	s.cache.Set(CacheKey(u.ID), u)
	return u
}

// Status is the operator view served by GET /cache-status.
type Status struct {
	CacheSize           int     `json:"cacheSize"`
	CacheHits           uint64  `json:"cacheHits"`
	CacheMisses         uint64  `json:"cacheMisses"`
	HitRate             float64 `json:"hitRate"`
	AverageResponseTime float64 `json:"averageResponseTime"` // milliseconds
	QueueSize           int     `json:"queueSize"`
}

// Status returns the current cache, queue and latency figures.
func (s *Service) Status() Status {
	st := s.cache.Stats()
	avg := s.monitor.AverageResponseTime("")
	return Status{
		CacheSize:           st.Size,
		CacheHits:           st.Hits,
		CacheMisses:         st.Misses,
		HitRate:             st.HitRate(),
		AverageResponseTime: float64(avg) / float64(time.Millisecond),
		QueueSize:           s.queue.Len(),
	}
}

// Handler returns the HTTP API wrapped in monitoring and rate limiting.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/{id}", s.getUser)
	mux.HandleFunc("POST /users", s.createUser)
	mux.HandleFunc("DELETE /cache", s.clearCache)
	mux.HandleFunc("GET /cache-status", s.cacheStatus)
	mux.HandleFunc("GET /health", s.health)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	var h http.Handler = mux
	if s.limiter != nil {
		h = s.rateLimit(h)
	}
	return s.observe(h)
}
