package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GoSim-25-26J-441/garden-backend/internal/auth"
)

// Rule allows Requests per Window for one caller and action.
type Rule struct {
	Requests int
	Window   time.Duration
}

func (r Rule) limiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(r.Window/time.Duration(r.Requests)), r.Requests)
}

// DefaultRules are the per-wallet limits for mutating operations.
func DefaultRules() map[auth.Action]Rule {
	return map[auth.Action]Rule{
		auth.ActionCreateProject: {Requests: 5, Window: time.Minute},
		auth.ActionUpdateTasks:   {Requests: 10, Window: time.Minute},
		auth.ActionFundTreasury:  {Requests: 10, Window: time.Minute},
		auth.ActionWithdrawFunds: {Requests: 5, Window: time.Minute},
	}
}

const (
	limiterIdleTTL   = time.Hour
	limiterSweepSpec = "@every 1m"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles authenticated callers per action. Limiters idle for
// more than an hour are dropped by a cron sweep.
type RateLimiter struct {
	mu      sync.Mutex
	rules   map[auth.Action]Rule
	entries map[string]*limiterEntry
	now     func() time.Time
	log     *zap.Logger
	cron    *cron.Cron
}

func NewRateLimiter(rules map[auth.Action]Rule, log *zap.Logger) *RateLimiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &RateLimiter{
		rules:   rules,
		entries: make(map[string]*limiterEntry),
		now:     time.Now,
		log:     log,
	}
}

// Allow reports whether caller may perform action now and consumes a token if so.
// Actions without a rule are unlimited.
func (l *RateLimiter) Allow(caller string, action auth.Action) bool {
	rule, ok := l.rules[action]
	if !ok || rule.Requests <= 0 {
		return true
	}

	key := string(action) + ":" + caller
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rule.limiter()}
		l.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// Sweep drops limiters idle for longer than the TTL and returns how many were dropped.
func (l *RateLimiter) Sweep() int {
	cutoff := l.now().Add(-limiterIdleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for key, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, key)
			n++
		}
	}
	return n
}

// Start schedules the idle sweep.
func (l *RateLimiter) Start() error {
	c := cron.New()
	if _, err := c.AddFunc(limiterSweepSpec, func() {
		if n := l.Sweep(); n > 0 {
			l.log.Debug("rate limiters swept", zap.Int("dropped", n))
		}
	}); err != nil {
		return err
	}
	l.cron = c
	c.Start()
	return nil
}

// Stop halts the sweep and waits for a running one to finish.
func (l *RateLimiter) Stop() {
	if l.cron != nil {
		<-l.cron.Stop().Done()
	}
}

// Limit rejects requests over the action's limit with 429. It must run after
// auth.Verifier.Require. A nil RateLimiter passes everything through.
func (l *RateLimiter) Limit(action auth.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}
		caller, ok := auth.Caller(c)
		if !ok {
			c.Next()
			return
		}
		if !l.Allow(caller.String(), action) {
			l.log.Warn("rate limit exceeded",
				zap.String("caller", caller.String()), zap.String("action", string(action)))
			c.JSON(http.StatusTooManyRequests, gin.H{"ok": false, "error": "rate limit exceeded, try again later"})
			c.Abort()
			return
		}
		c.Next()
	}
}
