package checker

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/khanhnv2901/phishcheck/internal/domain/evaluation"
)

// AuditFunc is a callback invoked once per evaluated URL
type AuditFunc func(rawURL string, result evaluation.Result, duration float64) error

// Runner orchestrates batch evaluations with concurrency and rate limiting
type Runner struct {
	Concurrency int           // Maximum number of concurrent evaluations
	RateLimit   int           // Evaluations started per second (0 = unlimited)
	Timeout     time.Duration // Upper bound for one evaluation (0 = evaluator defaults only)
}

// Run evaluates every URL using a worker pool. Results keep the input order.
// Once ctx ends no new evaluation starts; those URLs and any evaluation the
// cancellation interrupted come back with Cancelled set.
func (r *Runner) Run(ctx context.Context, urls []string, chk Checker, auditFn AuditFunc) []evaluation.Result {
	limit := rate.Inf
	burst := 1
	if r.RateLimit > 0 {
		limit = rate.Limit(r.RateLimit)
		burst = r.RateLimit
	}
	limiter := rate.NewLimiter(limit, burst)

	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	results := make([]evaluation.Result, len(urls))

	for i, rawURL := range urls {
		wg.Add(1)
		go func(idx int, u string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[idx] = CancelledResult(u)
				return
			}
			defer func() { <-sem }()

			if err := limiter.Wait(ctx); err != nil {
				results[idx] = CancelledResult(u)
				return
			}

			start := time.Now()

			evalCtx := ctx
			if r.Timeout > 0 {
				var cancel context.CancelFunc
				evalCtx, cancel = context.WithTimeout(ctx, r.Timeout)
				defer cancel()
			}

			result := chk.Evaluate(evalCtx, u)
			duration := time.Since(start).Seconds()
			if ctx.Err() != nil {
				result.Cancelled = true
			}

			if auditFn != nil {
				_ = auditFn(u, result, duration)
			}

			// Each goroutine owns its slot.
			results[idx] = result
		}(i, rawURL)
	}

	wg.Wait()
	return results
}

// CancelledResult is the placeholder for a URL that was never evaluated.
func CancelledResult(rawURL string) evaluation.Result {
	res := evaluation.NewAccumulator().Result()
	res.URL = rawURL
	res.Domain = DomainOf(rawURL)
	res.Cancelled = true
	return res
}
