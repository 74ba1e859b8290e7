package cache

import (
	"errors"
	"fmt"

	"steamrevs/pkg/logger"
	"steamrevs/pkg/models"
)

var (
	// ErrNoNewData signals that an entire batch was filtered out as
	// duplicates. Not a failure: callers that want to keep polling
	// treat it as an empty success.
	ErrNoNewData = errors.New("no new data after filtering duplicates")

	// ErrMultipleAppIDs means a resume source mixes reviews from more
	// than one appid. Resuming such a file is unsupported; the records
	// must not be silently merged.
	ErrMultipleAppIDs = errors.New("scraping multiple appids is unsupported")
)

// Cache deduplicates incoming reviews and stages the novel ones for
// writing to the sink.
//
// Identity is a 64-bit hash per review; only hashes are remembered, so
// memory use is independent of review body size at the cost of a small,
// documented collision risk (see models.Review.Hash). The staging buffer
// holds at most capacity reviews and is flushed when full, on demand,
// and on Close.
type Cache struct {
	// seen holds the hash of every review already staged or written,
	// including those replayed from a previous run's file.
	seen map[uint64]struct{}

	// staged reviews await flushing, in arrival order. Flush order is
	// staging order is page order; nothing reorders.
	staged []models.Review

	// writeIndex is the number of staged rows already durably written
	// in the current flush attempt. Nonzero only after a failed flush.
	writeIndex int

	capacity int
	sink     RowSink
	logger   logger.Logger
}

// New creates a cache for a fresh scrape, writing to a newly created
// file at path. Fails if the path already exists.
func New(capacity int, path string) (*Cache, error) {
	sink, err := NewCSVSink(path)
	if err != nil {
		return nil, err
	}
	return NewWithSink(capacity, sink, nil), nil
}

// NewWithSink creates a cache over an arbitrary sink.
func NewWithSink(capacity int, sink RowSink, log logger.Logger) *Cache {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Cache{
		seen:     make(map[uint64]struct{}, capacity),
		staged:   make([]models.Review, 0, capacity),
		capacity: capacity,
		sink:     sink,
		logger:   log,
	}
}

// Insert filters the batch against the seen set and stages the novel
// reviews, flushing whenever the staging buffer is full.
//
// Returns ErrNoNewData when every review in the batch was already seen.
// A write error from an intermediate flush is returned as-is; the rows
// staged before the failure remain staged and a later Flush resumes.
func (c *Cache) Insert(batch []models.Review) error {
	type hashed struct {
		review models.Review
		hash   uint64
	}

	// Partition without touching the seen set: a review only becomes
	// "seen" once it is actually staged, so a failed flush mid-insert
	// leaves the unstaged remainder novel and the whole Insert safely
	// retryable.
	inBatch := make(map[uint64]struct{}, len(batch))
	novel := make([]hashed, 0, len(batch))
	for _, review := range batch {
		h := review.Hash()
		if _, ok := c.seen[h]; ok {
			continue
		}
		if _, ok := inBatch[h]; ok {
			continue
		}
		inBatch[h] = struct{}{}
		novel = append(novel, hashed{review: review, hash: h})
	}

	if len(novel) == 0 {
		return ErrNoNewData
	}

	for _, item := range novel {
		if c.Full() {
			if err := c.Flush(); err != nil {
				return err
			}
		}
		c.seen[item.hash] = struct{}{}
		c.staged = append(c.staged, item.review)
	}

	return nil
}

// Flush writes staged reviews to the sink in staging order, resuming
// from the write cursor left by a previously failed attempt. On a row
// failure the cursor stays at that row and the error propagates; a
// retried Flush neither re-writes nor skips anything.
func (c *Cache) Flush() error {
	for c.writeIndex < len(c.staged) {
		if err := c.sink.WriteRow(c.staged[c.writeIndex].CSVRow()); err != nil {
			return fmt.Errorf("flush failed at staged row %d: %w", c.writeIndex, err)
		}
		c.writeIndex++
	}

	c.staged = c.staged[:0]
	c.writeIndex = 0
	return nil
}

// Full reports whether the staging buffer is at capacity.
func (c *Cache) Full() bool {
	return len(c.staged) >= c.capacity
}

// FreeSpace returns the remaining staging capacity.
func (c *Cache) FreeSpace() int {
	return c.capacity - len(c.staged)
}

// SeenCount returns the number of distinct review hashes observed.
func (c *Cache) SeenCount() int {
	return len(c.seen)
}

// StagedCount returns the number of reviews awaiting a flush.
func (c *Cache) StagedCount() int {
	return len(c.staged)
}

// Close force-flushes the staging buffer and closes the sink. A failed
// final flush is the one place rows can be lost, so the loss is reported
// loudly instead of being swallowed.
func (c *Cache) Close() error {
	flushErr := c.Flush()
	if flushErr != nil {
		c.logger.ErrorWithFields("failed to flush remaining rows on shutdown", map[string]interface{}{
			"rows_lost": len(c.staged) - c.writeIndex,
			"error":     flushErr.Error(),
		})
	}

	if err := c.sink.Close(); err != nil {
		if flushErr == nil {
			return err
		}
		c.logger.WithError(err).Error("failed to close sink")
	}
	return flushErr
}
