// Package server implements token bucket rate limiting, per WebSocket
// connection and per client IP for plain HTTP requests.
package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type rateLimiter struct {
	limiter *rate.Limiter
}

func newRateLimiter(capacity int, interval time.Duration) *rateLimiter {
	if capacity <= 0 {
		capacity = 1
	}
	if interval <= 0 {
		interval = time.Second
	}

	every := rate.Every(interval / time.Duration(capacity))
	return &rateLimiter{limiter: rate.NewLimiter(every, capacity)}
}

func (rl *rateLimiter) allow() bool {
	return rl.limiter.Allow()
}

// ipLimiter keeps one bucket per client IP. Buckets idle for longer than
// idleTimeout are dropped on the next request.
type ipLimiter struct {
	mu          sync.Mutex
	buckets     map[string]*ipBucket
	cfg         RateLimitConfig
	idleTimeout time.Duration
	lastSweep   time.Time
}

type ipBucket struct {
	limiter  *rateLimiter
	lastSeen time.Time
}

func newIPLimiter(cfg RateLimitConfig) *ipLimiter {
	return &ipLimiter{
		buckets:     make(map[string]*ipBucket),
		cfg:         cfg,
		idleTimeout: 10 * time.Minute,
		lastSweep:   time.Now(),
	}
}

func (l *ipLimiter) allow(ip string) bool {
	now := time.Now()

	l.mu.Lock()
	if now.Sub(l.lastSweep) > l.idleTimeout {
		for key, b := range l.buckets {
			if now.Sub(b.lastSeen) > l.idleTimeout {
				delete(l.buckets, key)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[ip]
	if !ok {
		b = &ipBucket{limiter: newRateLimiter(l.cfg.Burst, l.cfg.RefillInterval)}
		l.buckets[ip] = b
	}
	b.lastSeen = now
	l.mu.Unlock()

	return b.limiter.allow()
}

// Middleware rejects requests over the limit with 429 before calling next.
func (l *ipLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !l.allow(ip) {
			log.WithField("ip", ip).Debug("HTTP rate limit exceeded")
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the host part of the request's remote address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
