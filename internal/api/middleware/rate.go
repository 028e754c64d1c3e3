package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
	// IdleTTL evicts per-IP limiters not seen for this long.
	IdleTTL time.Duration
	// Exempt path prefixes are never limited.
	Exempt []string
}

// DefaultRateLimitConfig returns the standard limits. Probes, metrics
// and the long-lived push channel are exempt.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		Burst:             200,
		IdleTTL:           10 * time.Minute,
		Exempt:            []string{"/health", "/metrics", "/stream"},
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type visitors struct {
	mu      sync.Mutex
	cfg     RateLimitConfig
	byIP    map[string]*visitor
	lastGC  time.Time
	nowFunc func() time.Time
}

func (v *visitors) get(ip string) *rate.Limiter {
	now := v.nowFunc()

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.cfg.IdleTTL > 0 && now.Sub(v.lastGC) > v.cfg.IdleTTL {
		for k, vis := range v.byIP {
			if now.Sub(vis.lastSeen) > v.cfg.IdleTTL {
				delete(v.byIP, k)
			}
		}
		v.lastGC = now
	}

	vis, ok := v.byIP[ip]
	if !ok {
		vis = &visitor{limiter: rate.NewLimiter(rate.Limit(v.cfg.RequestsPerSecond), v.cfg.Burst)}
		v.byIP[ip] = vis
	}
	vis.lastSeen = now
	return vis.limiter
}

func (v *visitors) size() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.byIP)
}

// RateLimit creates a per-IP rate limiting middleware.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	v := &visitors{
		cfg:     cfg,
		byIP:    make(map[string]*visitor),
		lastGC:  time.Now(),
		nowFunc: time.Now,
	}
	return rateLimit(cfg, v)
}

func rateLimit(cfg RateLimitConfig, v *visitors) gin.HandlerFunc {
	return func(c *gin.Context) {
		if exempt(cfg.Exempt, c.Request.URL.Path) {
			c.Next()
			return
		}

		if !v.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

func exempt(prefixes []string, path string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
