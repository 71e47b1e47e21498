package httpcache

import (
	"context"
	"sync"
	"time"

	"github.com/mensylisir/xmrecipe/cache"
)

// hostIdleTTL is how long a host stays tracked after its last reserved slot.
const hostIdleTTL = 5 * time.Minute

type hostSlot struct {
	next time.Time
}

// RateLimiter spaces network requests to the same host by at least interval.
// Each caller reserves its slot under the limiter lock and sleeps outside it.
// Hosts idle for longer than the idle TTL are forgotten.
type RateLimiter struct {
	interval time.Duration
	idle     time.Duration
	mu       sync.Mutex
	hosts    *cache.Cache[string, *hostSlot]
}

// NewRateLimiter returns a limiter. interval <= 0 disables limiting.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return newRateLimiter(interval, hostIdleTTL)
}

func newRateLimiter(interval, idle time.Duration) *RateLimiter {
	return &RateLimiter{
		interval: interval,
		idle:     idle,
		hosts:    cache.NewCache(cache.WithJanitorInterval[string, *hostSlot](idle)),
	}
}

// Wait blocks until host may be contacted again or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context, host string) error {
	if r == nil || r.interval <= 0 {
		return nil
	}

	r.mu.Lock()
	slot, ok := r.hosts.Get(host)
	if !ok {
		slot = &hostSlot{}
	}
	now := time.Now()
	start := slot.next
	if start.Before(now) {
		start = now
	}
	slot.next = start.Add(r.interval)
	// The entry outlives its reservation, so an evicted host never had a
	// pending slot.
	r.hosts.SetWithTTL(host, slot, slot.next.Sub(now)+r.idle)
	r.mu.Unlock()

	wait := start.Sub(now)
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// TrackedHosts is the number of hosts seen within the idle TTL. Expired
// hosts not yet swept by the janitor are still counted.
func (r *RateLimiter) TrackedHosts() int {
	return int(r.hosts.Len())
}

// Close stops the idle sweep.
func (r *RateLimiter) Close() {
	if r != nil {
		r.hosts.Close()
	}
}
