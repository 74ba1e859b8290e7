package cache

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"steamrevs/pkg/logger"
	"steamrevs/pkg/models"
)

// ErrFutureTimestamp means the oldest record in the resume source is
// newer than the current time, so no day window can be derived from it.
var ErrFutureTimestamp = errors.New("oldest persisted review is in the future")

// ResumeInfo is the minimum state needed to resume a scrape: which appid
// the file belongs to and how far back its oldest review reaches.
type ResumeInfo struct {
	// AppID is empty until the first replayed review adopts it.
	AppID string

	// OldestTimestamp starts at the maximum representable value so any
	// real review lowers it.
	OldestTimestamp int64
}

// NewResumeInfo returns a ResumeInfo ready to fold reviews into.
func NewResumeInfo() ResumeInfo {
	return ResumeInfo{OldestTimestamp: math.MaxInt64}
}

// Update folds one replayed review into the resume state. The first
// review's appid is adopted; a differing appid on any later review is
// ErrMultipleAppIDs.
func (ri *ResumeInfo) Update(review *models.Review) error {
	if review.TimestampCreated < ri.OldestTimestamp {
		ri.OldestTimestamp = review.TimestampCreated
	}

	switch {
	case ri.AppID == "":
		ri.AppID = review.AppID
	case ri.AppID != review.AppID:
		return ErrMultipleAppIDs
	}
	return nil
}

// DayRange derives the day window to rescan: the number of days between
// now and the oldest persisted review, rounded up so a same-day resume
// still covers a full day. Fails if the oldest review is in the future.
func (ri *ResumeInfo) DayRange(now time.Time) (uint32, error) {
	elapsed := now.Sub(time.Unix(ri.OldestTimestamp, 0))
	if elapsed < 0 {
		return 0, fmt.Errorf("%w: oldest=%d now=%d", ErrFutureTimestamp, ri.OldestTimestamp, now.Unix())
	}

	days := uint32(elapsed.Hours() / 24)
	if days == 0 {
		days = 1
	}
	return days, nil
}

// Resume reconstructs dedup and resumption state by replaying a
// previously written scrape file.
//
// Every row is hashed into a fresh seen set and folded into a
// ResumeInfo. A row that fails to parse is fatal when failOnParse is
// set, otherwise skipped with a warning. On success the file is reopened
// append-only and returned wrapped in a Cache with an empty staging
// buffer.
func Resume(capacity int, path string, failOnParse bool, log logger.Logger) (*Cache, ResumeInfo, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	info := NewResumeInfo()

	file, err := os.Open(path)
	if err != nil {
		return nil, info, fmt.Errorf("failed to open resume source: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	// Column count is validated per row so a bad row can be skipped
	// instead of poisoning the reader.
	reader.FieldsPerRecord = -1

	// Header row.
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return nil, info, fmt.Errorf("resume source %s is empty", path)
		}
		return nil, info, fmt.Errorf("failed to read header: %w", err)
	}

	seen := make(map[uint64]struct{}, capacity)
	row := 1
	for {
		row++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) && !failOnParse {
				log.WarnWithFields("skipping malformed row in resume source", map[string]interface{}{
					"row":   row,
					"error": err.Error(),
				})
				continue
			}
			return nil, info, fmt.Errorf("failed to read row %d: %w", row, err)
		}

		review, err := models.ReviewFromCSVRow(record)
		if err != nil {
			if !failOnParse {
				log.WarnWithFields("skipping unparsable row in resume source", map[string]interface{}{
					"row":   row,
					"error": err.Error(),
				})
				continue
			}
			return nil, info, fmt.Errorf("failed to parse row %d: %w", row, err)
		}

		seen[review.Hash()] = struct{}{}
		if err := info.Update(&review); err != nil {
			return nil, info, err
		}
	}

	sink, err := OpenCSVSink(path)
	if err != nil {
		return nil, info, err
	}

	cache := NewWithSink(capacity, sink, log)
	cache.seen = seen

	log.InfoWithFields("resume state reconstructed", map[string]interface{}{
		"appid":            info.AppID,
		"reviews_replayed": len(seen),
		"oldest_timestamp": info.OldestTimestamp,
	})

	return cache, info, nil
}
