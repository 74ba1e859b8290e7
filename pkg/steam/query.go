package steam

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

// Filter is the server-side ordering of the review stream. It decides
// whether pagination cursors or day windows are legal.
type Filter int

const (
	// FilterRecent orders by creation time. Paginable.
	FilterRecent Filter = iota
	// FilterUpdated orders by last-update time. Paginable.
	FilterUpdated
	// FilterAll is the unordered complete sweep. It takes a day window
	// instead of a cursor.
	FilterAll
)

func (f Filter) String() string {
	switch f {
	case FilterRecent:
		return "recent"
	case FilterUpdated:
		return "updated"
	case FilterAll:
		return "all"
	default:
		return "unknown"
	}
}

// ReviewType restricts results to positive or negative reviews.
type ReviewType string

const (
	ReviewTypeAll      ReviewType = "all"
	ReviewTypePositive ReviewType = "positive"
	ReviewTypeNegative ReviewType = "negative"
)

// ParseReviewType maps a user-supplied string onto a ReviewType,
// defaulting to all.
func ParseReviewType(s string) ReviewType {
	switch ReviewType(s) {
	case ReviewTypePositive, ReviewTypeNegative:
		return ReviewType(s)
	default:
		return ReviewTypeAll
	}
}

// PurchaseType restricts results by how the product was obtained.
type PurchaseType string

const (
	PurchaseTypeAll      PurchaseType = "all"
	PurchaseTypeSteam    PurchaseType = "steam"
	PurchaseTypeNonSteam PurchaseType = "non_steam_purchase"
)

// ParsePurchaseType maps a user-supplied string onto a PurchaseType,
// defaulting to all.
func ParsePurchaseType(s string) PurchaseType {
	switch PurchaseType(s) {
	case PurchaseTypeSteam, PurchaseTypeNonSteam:
		return PurchaseType(s)
	default:
		return PurchaseTypeAll
	}
}

const (
	// CursorStart is the sentinel cursor for the first page.
	CursorStart = "*"

	// DefaultPageSize is the server's default page size.
	DefaultPageSize = 20

	// MaxPageSize is the server's practical maximum page size.
	MaxPageSize = 100

	// QueryLanguage is the fixed language selector sent with every request.
	QueryLanguage = "english"
)

var (
	// ErrInvalidFilterCursor is returned when a cursor is used with an
	// ordering that does not paginate.
	ErrInvalidFilterCursor = errors.New("pagination cursors require the recent or updated ordering")

	// ErrInvalidFilterDayRange is returned when a day window is combined
	// with an ordering other than the complete sweep.
	ErrInvalidFilterDayRange = errors.New("day ranges are only allowed for the complete (all) ordering")
)

// Query holds the state of one review query: target appid, ordering,
// optional day window, pagination cursor, and page size. The zero value is
// not usable; construct with NewQuery.
//
// The combinations are guarded: a cursor is only meaningful while paging
// is legal, and a day window only with the complete sweep. Mutators return
// ErrInvalidFilterCursor / ErrInvalidFilterDayRange for illegal moves.
type Query struct {
	appid        uint32
	filter       Filter
	dayRange     uint32 // 0 means unset
	cursor       string
	pageSize     int
	reviewType   ReviewType
	purchaseType PurchaseType
}

// NewQuery constructs a query for one appid. The server defaults the
// ordering to the complete sweep; we override it to recent so pagination
// is legal out of the box.
//
// The appid is not validated here. A nonexistent appid only fails once
// the URL is requested.
func NewQuery(appid uint32) *Query {
	return &Query{
		appid:        appid,
		filter:       FilterRecent,
		cursor:       CursorStart,
		pageSize:     DefaultPageSize,
		reviewType:   ReviewTypeAll,
		purchaseType: PurchaseTypeAll,
	}
}

// AppID returns the target appid.
func (q *Query) AppID() uint32 {
	return q.appid
}

// SetAppID switches the query to a different appid and resets the cursor
// to the start sentinel. Always succeeds.
func (q *Query) SetAppID(appid uint32) *Query {
	q.appid = appid
	q.cursor = CursorStart
	return q
}

// Filter returns the current ordering.
func (q *Query) Filter() Filter {
	return q.filter
}

// SetFilter changes the ordering.
//
// Switching to the complete sweep fails while a pagination is in flight
// (cursor advanced past the sentinel), and switching to a paginable
// ordering fails while a day window is set.
func (q *Query) SetFilter(f Filter) error {
	switch f {
	case FilterAll:
		if q.cursor != CursorStart {
			return ErrInvalidFilterCursor
		}
	case FilterRecent, FilterUpdated:
		if q.dayRange != 0 {
			return ErrInvalidFilterDayRange
		}
	default:
		return fmt.Errorf("unknown filter %d", f)
	}
	q.filter = f
	return nil
}

// DayRange returns the day window, 0 when unset.
func (q *Query) DayRange() uint32 {
	return q.dayRange
}

// SetDayRange restricts the complete sweep to reviews from the last n
// days. Fails unless the ordering is the complete sweep.
func (q *Query) SetDayRange(days uint32) error {
	if q.filter != FilterAll {
		return ErrInvalidFilterDayRange
	}
	q.dayRange = days
	return nil
}

// Cursor returns the current pagination cursor.
func (q *Query) Cursor() string {
	return q.cursor
}

// AdvanceCursor replaces the cursor with the one the server returned.
// Fails with ErrInvalidFilterCursor when paging is not legal.
func (q *Query) AdvanceCursor(cursor string) error {
	if !q.PagingOK() {
		return ErrInvalidFilterCursor
	}
	q.cursor = cursor
	return nil
}

// PagingOK reports whether the query may be paginated: always for the
// recent and updated orderings, and for the complete sweep only when a
// day window bounds it. An unbounded complete sweep has no cursor.
func (q *Query) PagingOK() bool {
	switch q.filter {
	case FilterRecent, FilterUpdated:
		return true
	case FilterAll:
		return q.dayRange != 0
	default:
		return false
	}
}

// PageSize returns the requested page size.
func (q *Query) PageSize() int {
	return q.pageSize
}

// SetPageSize sets the number of reviews per page, clamped to the
// server's practical bounds.
func (q *Query) SetPageSize(n int) *Query {
	if n <= 0 {
		n = DefaultPageSize
	} else if n > MaxPageSize {
		n = MaxPageSize
	}
	q.pageSize = n
	return q
}

// SetReviewType restricts results to positive or negative reviews.
func (q *Query) SetReviewType(t ReviewType) *Query {
	q.reviewType = t
	return q
}

// SetPurchaseType restricts results by purchase provenance.
func (q *Query) SetPurchaseType(t PurchaseType) *Query {
	q.purchaseType = t
	return q
}

// URL renders the GET request for the query's current state.
func (q *Query) URL() string {
	params := url.Values{}
	params.Set("json", "1")
	params.Set("language", QueryLanguage)
	params.Set("filter", q.filter.String())
	params.Set("cursor", q.cursor)
	params.Set("num_per_page", strconv.Itoa(q.pageSize))
	params.Set("review_type", string(q.reviewType))
	params.Set("purchase_type", string(q.purchaseType))
	if q.dayRange != 0 {
		params.Set("day_range", strconv.FormatUint(uint64(q.dayRange), 10))
	}

	return fmt.Sprintf("%s%d?%s", ReviewsBaseURL, q.appid, params.Encode())
}
