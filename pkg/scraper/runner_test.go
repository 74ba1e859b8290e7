package scraper

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steamrevs/pkg/cache"
	"steamrevs/pkg/config"
	"steamrevs/pkg/logger"
	"steamrevs/pkg/steam"
)

// memorySink collects flushed rows in memory.
type memorySink struct {
	rows   [][]string
	closed bool
}

func (s *memorySink) WriteRow(row []string) error {
	copied := make([]string, len(row))
	copy(copied, row)
	s.rows = append(s.rows, copied)
	return nil
}

func (s *memorySink) Close() error {
	s.closed = true
	return nil
}

func fastRetry() config.RetryConfig {
	return config.RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}
}

func newTestRunner(t *testing.T, fetcher *scriptedFetcher, opts RunnerOptions) (*Runner, *cache.Cache, *memorySink) {
	t.Helper()

	sink := &memorySink{}
	log := logger.NewTestLogger()
	c := cache.NewWithSink(500, sink, log)

	q := steam.NewQuery(9160).SetPageSize(100)
	poller, err := NewPoller(q, fetcher, &countingLimiter{}, "ICO", log)
	require.NoError(t, err)

	return NewRunner(poller, c, opts, log), c, sink
}

func TestRunnerDrainsSequence(t *testing.T) {
	fetcher := &scriptedFetcher{responses: []scriptedResponse{
		{page: pageOf(wireReviews(100, 0), "c1")},
		{page: pageOf(wireReviews(50, 100), "c2")},
		{page: pageOf(nil, "c3")},
	}}

	runner, c, sink := newTestRunner(t, fetcher, RunnerOptions{Retry: fastRetry()})
	require.NoError(t, runner.Run())
	require.NoError(t, c.Close())

	assert.Equal(t, 150, c.SeenCount())
	assert.Len(t, sink.rows, 150)
	assert.Equal(t, 3, fetcher.calls)
}

func TestRunnerHonorsBatchLimit(t *testing.T) {
	fetcher := &scriptedFetcher{responses: []scriptedResponse{
		{page: pageOf(wireReviews(100, 0), "c1")},
		{page: pageOf(wireReviews(100, 100), "c2")},
		{page: pageOf(wireReviews(100, 200), "c3")},
	}}

	runner, c, _ := newTestRunner(t, fetcher, RunnerOptions{MaxBatches: 2, Retry: fastRetry()})
	require.NoError(t, runner.Run())

	assert.Equal(t, 200, c.SeenCount())
	assert.Equal(t, 2, fetcher.calls)
}

func TestRunnerStopsOnAllDuplicateBatch(t *testing.T) {
	// The same page twice: the second insert yields nothing new.
	page := wireReviews(10, 0)
	fetcher := &scriptedFetcher{responses: []scriptedResponse{
		{page: pageOf(page, "c1")},
		{page: pageOf(page, "c2")},
		{page: pageOf(wireReviews(10, 100), "c3")},
	}}

	runner, c, _ := newTestRunner(t, fetcher, RunnerOptions{EndAfterNoNewData: true, Retry: fastRetry()})
	require.NoError(t, runner.Run())

	// Stopped at the duplicate batch, never reaching the third page.
	assert.Equal(t, 10, c.SeenCount())
	assert.Equal(t, 2, fetcher.calls)
}

func TestRunnerSkipsDuplicateBatchByDefault(t *testing.T) {
	page := wireReviews(10, 0)
	fetcher := &scriptedFetcher{responses: []scriptedResponse{
		{page: pageOf(page, "c1")},
		{page: pageOf(page, "c2")},
		{page: pageOf(wireReviews(10, 100), "c3")},
		{page: pageOf(nil, "c4")},
	}}

	runner, c, _ := newTestRunner(t, fetcher, RunnerOptions{Retry: fastRetry()})
	require.NoError(t, runner.Run())

	// The duplicate batch was an empty success; polling continued.
	assert.Equal(t, 20, c.SeenCount())
	assert.Equal(t, 4, fetcher.calls)
}

func TestRunnerRetriesTransientFetchErrors(t *testing.T) {
	boom := &steam.Error{Type: steam.ErrorTypeServerError, Message: "boom", Code: 500}
	fetcher := &scriptedFetcher{responses: []scriptedResponse{
		{err: boom},
		{page: pageOf(wireReviews(5, 0), "c1")},
		{page: pageOf(nil, "c2")},
	}}

	runner, c, _ := newTestRunner(t, fetcher, RunnerOptions{Retry: fastRetry()})
	require.NoError(t, runner.Run())

	assert.Equal(t, 5, c.SeenCount())
	assert.Equal(t, 3, fetcher.calls)
}

func TestRunnerGivesUpOnPersistentFetchErrors(t *testing.T) {
	boom := &steam.Error{Type: steam.ErrorTypeServerError, Message: "boom", Code: 500}
	fetcher := &scriptedFetcher{responses: []scriptedResponse{
		{err: boom},
	}}

	runner, _, _ := newTestRunner(t, fetcher, RunnerOptions{Retry: fastRetry()})
	err := runner.Run()
	require.Error(t, err)
	assert.ErrorIs(t, err, error(boom))
	assert.Equal(t, 3, fetcher.calls, "one attempt per configured retry")
}

func TestRunnerDoesNotRetryProtocolErrors(t *testing.T) {
	refusal := &steam.Error{Type: steam.ErrorTypeProtocol, Message: "success flag down", Code: 200}
	fetcher := &scriptedFetcher{responses: []scriptedResponse{
		{err: refusal},
	}}

	runner, _, _ := newTestRunner(t, fetcher, RunnerOptions{Retry: fastRetry()})
	err := runner.Run()
	require.Error(t, err)
	assert.Equal(t, 1, fetcher.calls)
}

func TestRunnerStopsCleanlyOnEmptyFirstPage(t *testing.T) {
	fetcher := &scriptedFetcher{responses: []scriptedResponse{
		{page: pageOf(nil, "c1")},
	}}

	runner, c, sink := newTestRunner(t, fetcher, RunnerOptions{Retry: fastRetry()})
	require.NoError(t, runner.Run())
	require.NoError(t, c.Close())

	assert.Zero(t, c.SeenCount())
	assert.Empty(t, sink.rows)
}

// flakySink fails a set number of writes before recovering.
type flakySink struct {
	memorySink
	failures int
}

func (s *flakySink) WriteRow(row []string) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("disk full")
	}
	return s.memorySink.WriteRow(row)
}

func TestRunnerRetriesPersistenceFailures(t *testing.T) {
	fetcher := &scriptedFetcher{responses: []scriptedResponse{
		{page: pageOf(wireReviews(100, 0), "c1")},
		{page: pageOf(nil, "c2")},
	}}

	// Capacity below the page size forces a flush mid-insert; the sink
	// rejects the first write, so the insert fails once and is retried.
	sink := &flakySink{failures: 1}
	log := logger.NewTestLogger()
	c := cache.NewWithSink(50, sink, log)

	q := steam.NewQuery(9160).SetPageSize(100)
	poller, err := NewPoller(q, fetcher, &countingLimiter{}, "ICO", log)
	require.NoError(t, err)

	runner := NewRunner(poller, c, RunnerOptions{Retry: fastRetry()}, log)
	require.NoError(t, runner.Run())
	require.NoError(t, c.Close())

	assert.Equal(t, 100, c.SeenCount())
	assert.Len(t, sink.rows, 100)
	seen := make(map[string]int)
	for _, row := range sink.rows {
		seen[row[2]]++
	}
	for id, count := range seen {
		assert.Equalf(t, 1, count, "row %s written more than once", id)
	}
}
