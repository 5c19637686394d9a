package middleware

import (
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/time/rate"

	apiContext "leadflow/internal/api/context"
	"leadflow/internal/pkg/errors"
	"leadflow/internal/platform/config"
)

type limiterEntry struct {
	limiter *rate.Limiter
	// unix seconds, written by request goroutines and read by cleanupLoop
	lastAccess atomic.Int64
}

// RateLimiter keeps one token bucket per caller key. Idle buckets are
// dropped after ten minutes so the map does not grow with one-off callers.
type RateLimiter struct {
	cfg   config.RateLimitConfig
	store sync.Map // map[string]*limiterEntry
	mu    sync.Mutex
}

func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{cfg: cfg}
	go rl.cleanupLoop()
	return rl
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-10 * time.Minute).Unix()
		rl.store.Range(func(key, value interface{}) bool {
			if value.(*limiterEntry).lastAccess.Load() < cutoff {
				rl.store.Delete(key)
			}
			return true
		})
	}
}

func (rl *RateLimiter) allow(key string, perMinute int) bool {
	if perMinute <= 0 {
		return true
	}

	val, ok := rl.store.Load(key)
	if !ok {
		rl.mu.Lock()
		val, ok = rl.store.Load(key)
		if !ok {
			val = &limiterEntry{
				limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
			}
			rl.store.Store(key, val)
		}
		rl.mu.Unlock()
	}

	entry := val.(*limiterEntry)
	entry.lastAccess.Store(time.Now().Unix())
	return entry.limiter.Allow()
}

// Ingest limits the public receiver per endpoint key, so one noisy
// integration cannot starve the others.
func (rl *RateLimiter) Ingest(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := "ingest:"
		if ps, ok := r.Context().Value(apiContext.Params).(httprouter.Params); ok {
			key += ps.ByName("key")
		}
		if !rl.allow(key, rl.cfg.IngestPerMinute) {
			tooManyRequests(w)
			return
		}
		next(w, r)
	}
}

// API limits management calls per client IP, split by read/write budgets.
func (rl *RateLimiter) API(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			ip = host
		}

		perMinute := rl.cfg.APIWritePerMinute
		kind := "write"
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			perMinute = rl.cfg.APIReadPerMinute
			kind = "read"
		}

		if !rl.allow("api:"+kind+":"+ip, perMinute) {
			tooManyRequests(w)
			return
		}
		next(w, r)
	}
}

func tooManyRequests(w http.ResponseWriter) {
	w.Header().Set("Retry-After", "60")
	errors.WriteError(w, http.StatusTooManyRequests, errors.ErrCodeRateLimitExceeded, "Rate limit exceeded", nil)
}
