package api

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mev-engine/tx-simulator/pkg/metrics"
)

// RateLimit bounds one client's request rate via a token bucket.
type RateLimit struct {
	RequestsPerMinute int
	BurstSize         int
	WindowSize        time.Duration
}

// RateLimiter implements per-client token-bucket rate limiting.
type RateLimiter struct {
	clients map[string]*clientBucket
	mutex   sync.RWMutex

	defaultLimit *RateLimit
	collector    *metrics.Collector
}

type clientBucket struct {
	tokens     int
	lastRefill time.Time
	limit      *RateLimit
}

// NewRateLimiter creates a rate limiter with the given default limit.
// collector may be nil, in which case rejections simply aren't counted.
func NewRateLimiter(requestsPerMinute, burstSize int, windowSize time.Duration, collector *metrics.Collector) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*clientBucket),
		defaultLimit: &RateLimit{
			RequestsPerMinute: requestsPerMinute,
			BurstSize:         burstSize,
			WindowSize:        windowSize,
		},
		collector: collector,
	}
}

// Allow checks whether a request should be allowed for clientID,
// consuming a token if so.
func (rl *RateLimiter) Allow(clientID string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	bucket, exists := rl.clients[clientID]
	if !exists {
		bucket = &clientBucket{
			tokens:     rl.defaultLimit.BurstSize,
			lastRefill: time.Now(),
			limit:      rl.defaultLimit,
		}
		rl.clients[clientID] = bucket
	}

	now := time.Now()
	elapsed := now.Sub(bucket.lastRefill)

	if elapsed >= bucket.limit.WindowSize {
		bucket.tokens = bucket.limit.BurstSize
		bucket.lastRefill = now
	} else {
		tokensToAdd := int(elapsed.Seconds() * float64(bucket.limit.RequestsPerMinute) / 60.0)
		bucket.tokens += tokensToAdd
		if bucket.tokens > bucket.limit.BurstSize {
			bucket.tokens = bucket.limit.BurstSize
		}
		bucket.lastRefill = now
	}

	if bucket.tokens > 0 {
		bucket.tokens--
		return true
	}

	return false
}

// RateLimitMiddleware rate-limits requests by client IP.
func (rl *RateLimiter) RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := getClientID(r)

		if !rl.Allow(clientID) {
			if rl.collector != nil {
				rl.collector.RecordRateLimited()
			}
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(rl.defaultLimit.WindowSize.Seconds())))
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// CleanupExpiredClients removes buckets idle for over an hour.
func (rl *RateLimiter) CleanupExpiredClients() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	for clientID, bucket := range rl.clients {
		if now.Sub(bucket.lastRefill) > time.Hour {
			delete(rl.clients, clientID)
		}
	}
}

func getClientID(r *http.Request) string {
	clientIP := r.Header.Get("X-Forwarded-For")
	if clientIP == "" {
		clientIP = r.Header.Get("X-Real-IP")
	}
	if clientIP == "" {
		clientIP = r.RemoteAddr
	}
	if idx := strings.LastIndex(clientIP, ":"); idx != -1 {
		clientIP = clientIP[:idx]
	}
	return clientIP
}
