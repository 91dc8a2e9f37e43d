package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/slidrapp/slidr/internal/metrics"
)

const (
	autoBlockAfter    = 10
	autoBlockDuration = 24 * time.Hour
	violationWindow   = time.Hour
)

// Limit caps the requests one key may make in a fixed window.
type Limit struct {
	Requests int
	Window   time.Duration
	Key      func(r *http.Request) string
}

type routeLimit struct {
	method string
	prefix string
	Limit
}

func (rt routeLimit) pattern() string { return rt.method + " " + rt.prefix }

// RateLimiterConfig holds configuration for the rate limiter.
type RateLimiterConfig struct {
	Whitelist        []string // IPs or CIDRs exempt from rate limiting
	AutoBlockEnabled bool
}

// RateLimiter counts requests per client in Redis. Viewer traffic (bot
// previews, websocket upgrades) gets generous limits, writes get tight ones.
type RateLimiter struct {
	client    *redis.Client
	routes    []routeLimit
	allow     allowList
	blocks    blocklist
	logger    zerolog.Logger
	autoBlock bool
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(client *redis.Client, logger zerolog.Logger, cfg RateLimiterConfig) *RateLimiter {
	routes := []routeLimit{
		{http.MethodPost, "/users", Limit{10, time.Hour, ipKey}},
		{http.MethodGet, "/users/", Limit{100, time.Minute, ipKey}},
		{http.MethodPost, "/presentations", Limit{20, time.Hour, userKey}},
		{http.MethodPut, "/presentations/", Limit{60, time.Minute, userKey}},
		{http.MethodGet, "/presentations", Limit{120, time.Minute, ipKey}},
		{http.MethodGet, "/ws/", Limit{60, time.Minute, ipKey}},
	}
	for _, prefix := range []string{"/p/", "/f/", "/i/", "/s/"} {
		routes = append(routes, routeLimit{http.MethodGet, prefix, Limit{300, time.Minute, ipKey}})
	}
	// Longest prefix first so findLimit can stop at the first match.
	sort.SliceStable(routes, func(i, j int) bool {
		return len(routes[i].prefix) > len(routes[j].prefix)
	})

	rl := &RateLimiter{
		client:    client,
		routes:    routes,
		allow:     parseAllowList(cfg.Whitelist, logger),
		blocks:    blocklist{client: client},
		logger:    logger,
		autoBlock: cfg.AutoBlockEnabled,
	}

	if !rl.allow.empty() {
		logger.Info().
			Int("ips", len(rl.allow.ips)).
			Int("cidrs", len(rl.allow.nets)).
			Msg("rate limit whitelist configured")
	}
	return rl
}

// Middleware returns the rate limiting middleware.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if rl.allow.contains(ip) {
			next.ServeHTTP(w, r)
			return
		}

		if rl.blocks.blocked(r.Context(), ip) {
			rl.logger.Warn().
				Str("type", "security").
				Str("event", "blocked_request").
				Str("ip", ip).
				Str("endpoint", r.URL.Path).
				Msg("blocked IP attempted request")
			metrics.BlockedRequests.WithLabelValues("ip_blocked").Inc()
			writeJSONError(w, http.StatusForbidden, "temporarily blocked")
			return
		}

		pattern, limit := rl.findLimit(r)
		if limit == nil {
			next.ServeHTTP(w, r)
			return
		}

		key := limit.Key(r)
		d := rl.take(r.Context(), key, *limit)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit.Requests))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.resetAt.Unix(), 10))

		if !d.allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(time.Until(d.resetAt)/time.Second)+1))
			metrics.RateLimitHits.WithLabelValues(pattern).Inc()
			rl.logger.Warn().
				Str("type", "security").
				Str("event", "rate_limit_exceeded").
				Str("ip", ip).
				Str("endpoint", r.URL.Path).
				Str("key", key).
				Msg("rate limit exceeded")
			rl.recordViolation(r.Context(), ip)
			writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// findLimit returns the limit of the longest matching route prefix.
func (rl *RateLimiter) findLimit(r *http.Request) (string, *Limit) {
	for i := range rl.routes {
		rt := &rl.routes[i]
		if rt.method == r.Method && strings.HasPrefix(r.URL.Path, rt.prefix) {
			return rt.pattern(), &rt.Limit
		}
	}
	return "", nil
}

type decision struct {
	allowed   bool
	remaining int
	resetAt   time.Time
}

// take counts one request against key in the current fixed window.
// Redis errors let the request through.
func (rl *RateLimiter) take(ctx context.Context, key string, l Limit) decision {
	bucket := time.Now().UnixNano() / int64(l.Window)
	resetAt := time.Unix(0, (bucket+1)*int64(l.Window))
	windowKey := fmt.Sprintf("%s:%d", key, bucket)

	pipe := rl.client.TxPipeline()
	count := pipe.Incr(ctx, windowKey)
	pipe.PExpireAt(ctx, windowKey, resetAt)
	if _, err := pipe.Exec(ctx); err != nil {
		rl.logger.Warn().Err(err).Str("key", key).Msg("rate limit check failed")
		return decision{allowed: true, remaining: l.Requests, resetAt: resetAt}
	}

	n := int(count.Val())
	return decision{
		allowed:   n <= l.Requests,
		remaining: max(l.Requests-n, 0),
		resetAt:   resetAt,
	}
}

func (rl *RateLimiter) recordViolation(ctx context.Context, ip string) {
	if !rl.autoBlock {
		return
	}

	key := "slidr:violations:" + ip
	pipe := rl.client.TxPipeline()
	count := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, violationWindow)
	if _, err := pipe.Exec(ctx); err != nil || count.Val() < autoBlockAfter {
		return
	}

	rl.blocks.block(ctx, ip, autoBlockDuration, "repeated rate limit violations")
	rl.logger.Warn().
		Str("type", "security").
		Str("event", "ip_auto_blocked").
		Str("ip", ip).
		Int64("violations", count.Val()).
		Msg("IP auto-blocked for repeated violations")
}

func ipKey(r *http.Request) string {
	return "slidr:rl:ip:" + clientIP(r)
}

// userKey keys uploads and edits by the claimed user so a shared NAT does not
// starve presenters. Unauthenticated requests fall back to the IP.
func userKey(r *http.Request) string {
	if userID := r.Header.Get(HeaderUser); userID != "" {
		return "slidr:rl:user:" + userID
	}
	return ipKey(r)
}

// clientIP prefers proxy headers over the connection address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":%q}`, msg)
}

// allowList holds IPs and CIDR ranges exempt from limiting.
type allowList struct {
	ips  map[string]struct{}
	nets []*net.IPNet
}

func parseAllowList(entries []string, logger zerolog.Logger) allowList {
	a := allowList{ips: make(map[string]struct{})}
	for _, entry := range entries {
		if !strings.Contains(entry, "/") {
			a.ips[entry] = struct{}{}
			continue
		}
		_, ipNet, err := net.ParseCIDR(entry)
		if err != nil {
			logger.Warn().Str("entry", entry).Err(err).Msg("invalid CIDR in whitelist")
			continue
		}
		a.nets = append(a.nets, ipNet)
	}
	return a
}

func (a allowList) empty() bool { return len(a.ips) == 0 && len(a.nets) == 0 }

func (a allowList) contains(ipStr string) bool {
	if _, ok := a.ips[ipStr]; ok {
		return true
	}
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, n := range a.nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// blocklist stores temporary IP blocks as expiring Redis keys.
type blocklist struct {
	client *redis.Client
}

func blockKey(ip string) string { return "slidr:blocked:" + ip }

func (b blocklist) blocked(ctx context.Context, ip string) bool {
	n, err := b.client.Exists(ctx, blockKey(ip)).Result()
	return err == nil && n > 0
}

func (b blocklist) block(ctx context.Context, ip string, d time.Duration, reason string) {
	b.client.Set(ctx, blockKey(ip), reason, d)
}

func (b blocklist) unblock(ctx context.Context, ip string) {
	b.client.Del(ctx, blockKey(ip))
}
