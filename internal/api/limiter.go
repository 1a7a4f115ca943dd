package api

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"consultdesk/internal/config"
	"consultdesk/internal/domain"

	"golang.org/x/time/rate"
)

const (
	limiterSweepInterval = time.Minute
	limiterIdleTTL       = 10 * time.Minute
)

// rateLimiter combines an in-process token bucket per client with an
// optional shared fixed-window counter.
type rateLimiter struct {
	limiters sync.Map // map[string]*limiterEntry
	cfg      config.APIRateLimitConfig
	shared   domain.RateLimitRepository
	proxies  []netip.Prefix
	now      func() time.Time

	sweepMu   sync.Mutex
	lastSweep time.Time
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen atomic.Int64
}

func newRateLimiter(cfg config.APIRateLimitConfig, shared domain.RateLimitRepository) *rateLimiter {
	return &rateLimiter{
		cfg:     cfg,
		shared:  shared,
		proxies: parseProxies(cfg.TrustedProxies),
		now:     time.Now,
	}
}

// parseProxies accepts bare addresses and CIDRs; unparsable entries are skipped.
func parseProxies(raw []string) []netip.Prefix {
	var out []netip.Prefix
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if p, err := netip.ParsePrefix(s); err == nil {
			out = append(out, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(s); err == nil {
			a = a.Unmap()
			out = append(out, netip.PrefixFrom(a, a.BitLen()))
		}
	}
	return out
}

// allow reports whether the client may proceed. A failing shared counter
// never blocks traffic; the error is returned for logging.
func (l *rateLimiter) allow(ctx context.Context, key string) (bool, error) {
	if l.cfg.RPS > 0 {
		now := l.now()
		l.maybeSweep(now)
		if !l.getLimiter(key, now).AllowN(now, 1) {
			return false, nil
		}
	}
	if l.shared == nil || l.cfg.Requests <= 0 || l.cfg.WindowSeconds <= 0 {
		return true, nil
	}
	ok, err := l.shared.CheckRateLimit(ctx, "http:"+key, l.cfg.Requests, time.Duration(l.cfg.WindowSeconds)*time.Second)
	if err != nil {
		return true, err
	}
	return ok, nil
}

func (l *rateLimiter) getLimiter(key string, now time.Time) *rate.Limiter {
	if v, ok := l.limiters.Load(key); ok {
		if e, ok := v.(*limiterEntry); ok {
			e.lastSeen.Store(now.UnixNano())
			return e.lim
		}
	}

	burst := l.cfg.Burst
	if burst <= 0 {
		burst = 5
	}

	e := &limiterEntry{lim: rate.NewLimiter(rate.Limit(l.cfg.RPS), burst)}
	e.lastSeen.Store(now.UnixNano())
	actual, loaded := l.limiters.LoadOrStore(key, e)
	if loaded {
		if actualEntry, ok := actual.(*limiterEntry); ok {
			actualEntry.lastSeen.Store(now.UnixNano())
			return actualEntry.lim
		}
	}
	return e.lim
}

// idleTTL is how long an unused bucket is kept. It is never shorter than
// the refill time of a drained bucket.
func (l *rateLimiter) idleTTL() time.Duration {
	ttl := limiterIdleTTL
	if l.cfg.RPS > 0 {
		burst := l.cfg.Burst
		if burst <= 0 {
			burst = 5
		}
		refill := time.Duration(float64(burst) / l.cfg.RPS * float64(time.Second))
		if refill > ttl {
			ttl = refill
		}
	}
	return ttl
}

func (l *rateLimiter) maybeSweep(now time.Time) {
	l.sweepMu.Lock()
	if now.Sub(l.lastSweep) < limiterSweepInterval {
		l.sweepMu.Unlock()
		return
	}
	l.lastSweep = now
	l.sweepMu.Unlock()
	l.sweep(now)
}

// sweep drops buckets idle for longer than idleTTL and returns how many
// were removed.
func (l *rateLimiter) sweep(now time.Time) int {
	cutoff := now.Add(-l.idleTTL()).UnixNano()
	removed := 0
	l.limiters.Range(func(k, v any) bool {
		if e, ok := v.(*limiterEntry); ok && e.lastSeen.Load() < cutoff {
			l.limiters.CompareAndDelete(k, v)
			removed++
		}
		return true
	})
	return removed
}

// clientKey identifies the caller by the connecting peer. X-Forwarded-For
// is only consulted when the peer is a trusted proxy, and then the rightmost
// hop that is not itself a trusted proxy wins.
func (l *rateLimiter) clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		host = r.RemoteAddr
	}
	if host == "" {
		return "unknown"
	}
	if len(l.proxies) == 0 || !l.trusted(host) {
		return host
	}

	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if _, err := netip.ParseAddr(hop); err != nil {
			break
		}
		if !l.trusted(hop) {
			return hop
		}
	}
	return host
}

func (l *rateLimiter) trusted(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range l.proxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
