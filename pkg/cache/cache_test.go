package cache

import (
	"errors"
	"fmt"
	"strconv"
	"testing"

	"steamrevs/pkg/logger"
	"steamrevs/pkg/models"
)

// recordingSink captures written rows and can be told to fail after a
// given number of successful writes.
type recordingSink struct {
	rows      [][]string
	failAfter int // -1 means never fail
	closed    bool
}

func newRecordingSink() *recordingSink {
	return &recordingSink{failAfter: -1}
}

func (s *recordingSink) WriteRow(row []string) error {
	if s.failAfter >= 0 && len(s.rows) >= s.failAfter {
		return errors.New("disk full")
	}
	copied := make([]string, len(row))
	copy(copied, row)
	s.rows = append(s.rows, copied)
	return nil
}

func (s *recordingSink) Close() error {
	s.closed = true
	return nil
}

func makeReviews(n int, offset uint64) []models.Review {
	reviews := make([]models.Review, n)
	for i := range reviews {
		reviews[i] = models.Review{
			Title:            "ICO",
			AppID:            "1274570",
			RecommendationID: offset + uint64(i),
			SteamID:          900000 + offset + uint64(i),
			Language:         "english",
			Text:             "review " + strconv.FormatUint(offset+uint64(i), 10),
			TimestampCreated: 1600000000 + int64(i),
			VotedUp:          true,
		}
	}
	return reviews
}

func TestInsertStagesNovelReviews(t *testing.T) {
	sink := newRecordingSink()
	c := NewWithSink(10, sink, logger.NewTestLogger())

	if err := c.Insert(makeReviews(3, 0)); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if c.StagedCount() != 3 {
		t.Errorf("expected 3 staged, got %d", c.StagedCount())
	}
	if c.SeenCount() != 3 {
		t.Errorf("expected 3 seen, got %d", c.SeenCount())
	}
	if len(sink.rows) != 0 {
		t.Errorf("nothing should be written before a flush, got %d rows", len(sink.rows))
	}
}

func TestInsertIsIdempotent(t *testing.T) {
	sink := newRecordingSink()
	c := NewWithSink(10, sink, logger.NewTestLogger())
	batch := makeReviews(3, 0)

	if err := c.Insert(batch); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	err := c.Insert(batch)
	if !errors.Is(err, ErrNoNewData) {
		t.Fatalf("expected ErrNoNewData on a repeated batch, got %v", err)
	}
	if c.StagedCount() != 3 || c.SeenCount() != 3 {
		t.Errorf("repeated insert changed state: staged=%d seen=%d", c.StagedCount(), c.SeenCount())
	}
}

func TestInsertCollapsesIntraBatchDuplicates(t *testing.T) {
	sink := newRecordingSink()
	c := NewWithSink(10, sink, logger.NewTestLogger())

	batch := makeReviews(2, 0)
	batch = append(batch, batch[0]) // same review twice in one batch

	if err := c.Insert(batch); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if c.StagedCount() != 2 {
		t.Errorf("expected duplicate within the batch collapsed, staged=%d", c.StagedCount())
	}
}

func TestInsertMixedBatchStagesOnlyNovel(t *testing.T) {
	sink := newRecordingSink()
	c := NewWithSink(10, sink, logger.NewTestLogger())

	if err := c.Insert(makeReviews(2, 0)); err != nil {
		t.Fatalf("seed insert failed: %v", err)
	}

	mixed := append(makeReviews(2, 0), makeReviews(2, 100)...)
	if err := c.Insert(mixed); err != nil {
		t.Fatalf("mixed insert failed: %v", err)
	}
	if c.StagedCount() != 4 {
		t.Errorf("expected 4 staged (2 old + 2 new), got %d", c.StagedCount())
	}
}

func TestInsertFlushesWhenFull(t *testing.T) {
	sink := newRecordingSink()
	c := NewWithSink(2, sink, logger.NewTestLogger())

	if err := c.Insert(makeReviews(5, 0)); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	// Capacity 2 with 5 reviews: two full flushes, one review left staged.
	if len(sink.rows) != 4 {
		t.Errorf("expected 4 rows flushed, got %d", len(sink.rows))
	}
	if c.StagedCount() != 1 {
		t.Errorf("expected 1 review still staged, got %d", c.StagedCount())
	}
}

func TestFlushWritesInStagingOrder(t *testing.T) {
	sink := newRecordingSink()
	c := NewWithSink(10, sink, logger.NewTestLogger())
	batch := makeReviews(3, 0)

	if err := c.Insert(batch); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := c.Flush(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	if len(sink.rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(sink.rows))
	}
	for i, review := range batch {
		want := review.CSVRow()
		got := sink.rows[i]
		if fmt.Sprint(got) != fmt.Sprint(want) {
			t.Errorf("row %d out of order:\n got  %v\n want %v", i, got, want)
		}
	}
	if c.StagedCount() != 0 {
		t.Errorf("expected staging cleared after flush, got %d", c.StagedCount())
	}
}

func TestFlushResumesAfterPartialFailure(t *testing.T) {
	sink := newRecordingSink()
	c := NewWithSink(10, sink, logger.NewTestLogger())

	if err := c.Insert(makeReviews(5, 0)); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	// First flush writes 2 rows, then the sink starts failing.
	sink.failAfter = 2
	if err := c.Flush(); err == nil {
		t.Fatal("expected the flush to fail")
	}
	if len(sink.rows) != 2 {
		t.Fatalf("expected 2 rows written before the failure, got %d", len(sink.rows))
	}
	if c.StagedCount() != 5 {
		t.Errorf("staged rows must survive a failed flush, got %d", c.StagedCount())
	}

	// Recovery: the retried flush writes exactly the remaining 3 rows.
	sink.failAfter = -1
	if err := c.Flush(); err != nil {
		t.Fatalf("retried flush failed: %v", err)
	}
	if len(sink.rows) != 5 {
		t.Errorf("expected exactly 5 rows total, got %d", len(sink.rows))
	}
	seen := make(map[string]int)
	for _, row := range sink.rows {
		seen[row[2]]++
	}
	for id, count := range seen {
		if count != 1 {
			t.Errorf("row %s written %d times", id, count)
		}
	}
}

func TestInsertRetryableAfterMidInsertFlushFailure(t *testing.T) {
	sink := newRecordingSink()
	c := NewWithSink(2, sink, logger.NewTestLogger())
	batch := makeReviews(5, 0)

	// The first intermediate flush fails outright.
	sink.failAfter = 0
	if err := c.Insert(batch); err == nil {
		t.Fatal("expected insert to surface the flush failure")
	}

	// Retrying the identical batch must still see the unstaged remainder
	// as novel and finish the job once the sink recovers.
	sink.failAfter = -1
	if err := c.Insert(batch); err != nil {
		t.Fatalf("retried insert failed: %v", err)
	}
	if err := c.Flush(); err != nil {
		t.Fatalf("final flush failed: %v", err)
	}
	if len(sink.rows) != 5 {
		t.Errorf("expected all 5 rows durably written, got %d", len(sink.rows))
	}
	seen := make(map[string]int)
	for _, row := range sink.rows {
		seen[row[2]]++
	}
	for id, count := range seen {
		if count != 1 {
			t.Errorf("row %s written %d times", id, count)
		}
	}
}

func TestFullAndFreeSpace(t *testing.T) {
	c := NewWithSink(3, newRecordingSink(), logger.NewTestLogger())

	if c.Full() {
		t.Error("a fresh cache must not be full")
	}
	if c.FreeSpace() != 3 {
		t.Errorf("expected 3 free, got %d", c.FreeSpace())
	}

	if err := c.Insert(makeReviews(3, 0)); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if !c.Full() {
		t.Error("expected the cache to be full")
	}
	if c.FreeSpace() != 0 {
		t.Errorf("expected 0 free, got %d", c.FreeSpace())
	}
}

func TestCloseForceFlushes(t *testing.T) {
	sink := newRecordingSink()
	c := NewWithSink(10, sink, logger.NewTestLogger())

	if err := c.Insert(makeReviews(3, 0)); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if len(sink.rows) != 3 {
		t.Errorf("expected 3 rows flushed on close, got %d", len(sink.rows))
	}
	if !sink.closed {
		t.Error("expected the sink closed")
	}
}

func TestCloseReportsLostRows(t *testing.T) {
	sink := newRecordingSink()
	log := logger.NewTestLogger()
	c := NewWithSink(10, sink, log)

	if err := c.Insert(makeReviews(3, 0)); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	sink.failAfter = 1
	if err := c.Close(); err == nil {
		t.Fatal("expected close to surface the flush failure")
	}

	if !log.HasMessage("ERROR", "failed to flush remaining rows on shutdown") {
		t.Error("expected the loss to be logged")
	}
	var lost interface{}
	for _, m := range log.Messages() {
		if m.Message == "failed to flush remaining rows on shutdown" {
			lost = m.Fields["rows_lost"]
		}
	}
	if lost != 2 {
		t.Errorf("expected 2 rows reported lost, got %v", lost)
	}
}
