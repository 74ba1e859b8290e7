package scraper

import (
	"errors"

	"steamrevs/pkg/cache"
	"steamrevs/pkg/config"
	"steamrevs/pkg/logger"
	"steamrevs/pkg/retry"
	"steamrevs/pkg/steam"
)

// Runner drives the scrape loop: pull a batch, insert it into the cache,
// repeat until the poller is exhausted or a stop condition is met.
// Single-threaded and blocking throughout; the only suspension point is
// the rate limiter inside the poller.
type Runner struct {
	poller *Poller
	cache  *cache.Cache
	logger logger.Logger

	// maxBatches stops the run after that many non-empty batches;
	// 0 means unlimited.
	maxBatches int

	// endAfterNoNewData turns an all-duplicate batch into a clean stop
	// instead of an empty success.
	endAfterNoNewData bool

	retryCfg *retry.Config
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	MaxBatches        int
	EndAfterNoNewData bool
	Retry             config.RetryConfig
}

// NewRunner creates a runner over a poller and a cache.
func NewRunner(poller *Poller, c *cache.Cache, opts RunnerOptions, log logger.Logger) *Runner {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Runner{
		poller:            poller,
		cache:             c,
		logger:            log,
		maxBatches:        opts.MaxBatches,
		endAfterNoNewData: opts.EndAfterNoNewData,
		retryCfg: &retry.Config{
			MaxAttempts: opts.Retry.MaxAttempts,
			Backoff: &retry.ExponentialBackoff{
				BaseDelay:    opts.Retry.BaseDelay,
				MaxDelay:     opts.Retry.MaxDelay,
				Multiplier:   2.0,
				JitterFactor: 0.1,
			},
			RetryIf: steam.IsRetryable,
			Logger:  log,
		},
	}
}

// Run executes the scrape loop until the sequence ends, a stop condition
// is reached, or an unrecoverable error occurs. The caller owns the
// cache and must Close it regardless of the outcome, so rows staged at
// the moment of an error are still force-flushed.
func (r *Runner) Run() error {
	batches := 0

	for {
		if r.maxBatches > 0 && batches >= r.maxBatches {
			r.logger.InfoWithFields("batch limit reached", map[string]interface{}{
				"batches": batches,
			})
			return nil
		}

		result, err := r.pullWithRetry()
		if err != nil {
			return err
		}

		if result.State == PullDone {
			r.logger.Info("no further reviews available")
			return nil
		}

		batches++

		if err := r.insertWithRetry(result); err != nil {
			if errors.Is(err, cache.ErrNoNewData) {
				if r.endAfterNoNewData {
					r.logger.Info("batch contained only duplicates, stopping")
					return nil
				}
				// Downgrade to an empty success and keep polling.
				continue
			}
			return err
		}

		r.logger.InfoWithFields("batch persisted", map[string]interface{}{
			"batch":      batches,
			"batch_size": len(result.Batch),
			"seen_total": r.cache.SeenCount(),
		})
	}
}

// pullWithRetry retries transient transport errors with backoff. Every
// attempt still goes through the poller's rate limiter. Configuration
// and paging errors are not retried.
func (r *Runner) pullWithRetry() (PullResult, error) {
	return retry.DoWithResult(func() (PullResult, error) {
		result := r.poller.Pull()
		if result.State == PullFailed {
			return result, result.Err
		}
		return result, nil
	}, r.retryCfg)
}

// insertWithRetry inserts the batch, retrying persistence failures.
// Insert re-filters on every attempt and the flush write cursor resumes
// where it stopped, so a retry neither duplicates nor skips rows.
func (r *Runner) insertWithRetry(result PullResult) error {
	err := r.cache.Insert(result.Batch)
	if err == nil || errors.Is(err, cache.ErrNoNewData) {
		return err
	}

	r.logger.WithError(err).Warn("persistence failure, retrying insert")
	return retry.Do(func() error {
		return r.cache.Insert(result.Batch)
	}, &retry.Config{
		MaxAttempts: r.retryCfg.MaxAttempts,
		Backoff:     r.retryCfg.Backoff,
		RetryIf: func(err error) bool {
			return !errors.Is(err, cache.ErrNoNewData)
		},
		Logger: r.logger,
	})
}
