package signal

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterMaxEntries = 4096

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

// JoinLimiter throttles join-session attempts per client token, which keeps
// PIN guessing slow.
type JoinLimiter struct {
	mu      sync.Mutex
	clients map[string]*limiterEntry
	limit   rate.Limit
	burst   int
	idle    time.Duration
	now     func() time.Time
}

// NewJoinLimiter allows perSecond attempts with the given burst. A
// non-positive perSecond disables limiting.
func NewJoinLimiter(perSecond float64, burst int) *JoinLimiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &JoinLimiter{
		clients: make(map[string]*limiterEntry),
		limit:   limit,
		burst:   burst,
		idle:    10 * time.Minute,
		now:     time.Now,
	}
}

func (jl *JoinLimiter) Allow(key string) bool {
	jl.mu.Lock()
	defer jl.mu.Unlock()

	now := jl.now()
	e, ok := jl.clients[key]
	if !ok {
		if len(jl.clients) >= limiterMaxEntries {
			jl.pruneLocked(now)
		}
		e = &limiterEntry{lim: rate.NewLimiter(jl.limit, jl.burst)}
		jl.clients[key] = e
	}
	e.seen = now
	return e.lim.AllowN(now, 1)
}

func (jl *JoinLimiter) pruneLocked(now time.Time) {
	for k, e := range jl.clients {
		if now.Sub(e.seen) > jl.idle {
			delete(jl.clients, k)
		}
	}
}

func (jl *JoinLimiter) Len() int {
	jl.mu.Lock()
	defer jl.mu.Unlock()
	return len(jl.clients)
}
