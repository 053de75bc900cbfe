package chi

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/rfprag/internal/domain"
	"github.com/kailas-cloud/rfprag/internal/metrics"
)

// TenantLimiter holds one token bucket per tenant. Buckets of the least
// recently seen tenants are evicted once maxTenants is reached.
type TenantLimiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu      sync.Mutex
	buckets *lru.Cache[string, *rate.Limiter]
}

// NewTenantLimiter creates a limiter allowing rps requests per second per
// tenant with the given burst.
func NewTenantLimiter(rps float64, burst, maxTenants int) (*TenantLimiter, error) {
	if rps <= 0 || burst <= 0 {
		return nil, fmt.Errorf("rate limit: rps and burst must be positive")
	}
	cache, err := lru.New[string, *rate.Limiter](maxTenants)
	if err != nil {
		return nil, fmt.Errorf("rate limit cache: %w", err)
	}
	return &TenantLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
		buckets: cache,
	}, nil
}

// Allow takes a token from tenant's bucket. When the bucket is empty it
// returns false and the wait until the next token.
func (l *TenantLimiter) Allow(tenant string) (bool, time.Duration) {
	now := l.now()

	l.mu.Lock()
	b, ok := l.buckets.Get(tenant)
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		l.buckets.Add(tenant, b)
	}
	l.mu.Unlock()

	res := b.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Second
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Middleware rejects requests over the tenant's budget with 429.
func (l *TenantLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant := tenantParam(r)
		if ok, wait := l.Allow(tenant); !ok {
			metrics.RateLimitedTotal.Inc()
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			writeError(w, http.StatusTooManyRequests, ErrorCodeRateLimited, domain.ErrRateLimited.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}
