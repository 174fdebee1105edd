package server

import (
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/bool64/ctxd"

	"github.com/IvanBrykalov/lookupcache/monitoring"
)

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// observe records every request in the monitor and logs it at debug level.
func (s *Service) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.now()
		ctx := ctxd.AddFields(r.Context(), "method", r.Method, "path", r.URL.Path)
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r.WithContext(ctx))

		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		elapsed := s.now().Sub(start)
		s.monitor.Record(monitoring.Request{
			Start:    start,
			Duration: elapsed,
			Endpoint: r.URL.Path,
			Status:   rec.status,
		})
		s.log.Debug(ctx, "request served", "status", rec.status, "elapsed", elapsed.String())
	})
}

// rateLimit rejects clients that exceeded the limiter with 429.
func (s *Service) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := s.limiter.Allow(clientIP(r))
		if !d.Allowed {
			retry := int(math.Ceil(d.RetryAfter(s.now()).Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			s.writeJSON(w, r, http.StatusTooManyRequests, errorBody{
				Error:      "Rate limit exceeded",
				Message:    "Too many requests. Please try again later.",
				RetryAfter: &retry,
			})
			return
		}

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.UnixMilli(), 10))
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the host part of the remote address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		if r.RemoteAddr == "" {
			return "unknown"
		}
		return r.RemoteAddr
	}
	return host
}
