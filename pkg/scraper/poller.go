package scraper

import (
	"fmt"
	"strconv"

	"steamrevs/pkg/logger"
	"steamrevs/pkg/models"
	"steamrevs/pkg/ratelimit"
	"steamrevs/pkg/steam"
)

// PullState says what one Pull produced.
type PullState int

const (
	// PullMore carries a non-empty batch; keep pulling.
	PullMore PullState = iota
	// PullDone means the server returned an empty page; the sequence
	// has ended and every later Pull returns PullDone again.
	PullDone
	// PullFailed carries an error. The sequence has not ended; the
	// caller decides whether to pull again.
	PullFailed
)

// PullResult is the explicit three-way outcome of a Pull, keeping
// "empty page", "exhausted", and "broke" unambiguous.
type PullResult struct {
	State PullState
	Batch []models.Review
	Err   error
}

// Poller pulls review pages one at a time, pacing requests through the
// rate limiter and advancing the query's cursor from each response. It
// is a forward-only sequence: the first empty page ends it for good.
type Poller struct {
	query   *steam.Query
	fetcher PageFetcher
	limiter ratelimit.Limiter
	logger  logger.Logger

	appid string
	title string

	exhausted bool
	firstPage bool
}

// NewPoller validates that the query can be paginated and builds a
// poller over it. The title is attached to every produced review.
func NewPoller(query *steam.Query, fetcher PageFetcher, limiter ratelimit.Limiter, title string, log logger.Logger) (*Poller, error) {
	if !query.PagingOK() {
		return nil, steam.ErrInvalidFilterCursor
	}
	if log == nil {
		log = logger.GetLogger()
	}

	return &Poller{
		query:     query,
		fetcher:   fetcher,
		limiter:   limiter,
		logger:    log,
		appid:     strconv.FormatUint(uint64(query.AppID()), 10),
		title:     title,
		firstPage: true,
	}, nil
}

// Pull blocks on the rate limiter, issues one request, and returns the
// page as a batch of records. The limiter's clock restarts after every
// attempt, success or failure.
func (p *Poller) Pull() PullResult {
	if p.exhausted {
		return PullResult{State: PullDone}
	}

	p.limiter.Wait()
	page, err := p.fetcher.FetchReviews(p.query)
	p.limiter.Mark()

	if err != nil {
		return PullResult{State: PullFailed, Err: err}
	}

	if err := p.query.AdvanceCursor(page.Cursor); err != nil {
		// Construction verified paging legality, so hitting this is a
		// logic error, not a runtime condition.
		return PullResult{State: PullFailed, Err: fmt.Errorf("illegal paging state: %w", err)}
	}

	if p.firstPage {
		p.firstPage = false
		p.logSummary(&page.QuerySummary)
	}

	if len(page.Reviews) == 0 {
		p.logger.DebugWithFields("empty page, ending sequence", map[string]interface{}{
			"appid": p.appid,
		})
		p.exhausted = true
		return PullResult{State: PullDone}
	}

	return PullResult{State: PullMore, Batch: page.Flatten(p.appid, p.title)}
}

// Exhausted reports whether the sequence has ended.
func (p *Poller) Exhausted() bool {
	return p.exhausted
}

// logSummary reports the whole-query totals, which the server only
// populates on the first page.
func (p *Poller) logSummary(summary *steam.QuerySummary) {
	if summary.TotalReviews == 0 && summary.ReviewScoreDesc == "" {
		return
	}
	p.logger.InfoWithFields("query summary", map[string]interface{}{
		"appid":          p.appid,
		"title":          p.title,
		"total_reviews":  summary.TotalReviews,
		"total_positive": summary.TotalPositive,
		"total_negative": summary.TotalNegative,
		"score":          summary.ReviewScoreDesc,
	})
}
