package scraper

import "steamrevs/pkg/steam"

// PageFetcher fetches one page of reviews for a query's current state.
// *steam.Client implements it; tests substitute mocks.
type PageFetcher interface {
	FetchReviews(q *steam.Query) (*steam.ReviewPage, error)
}

// TitleFetcher performs the best-effort display-name lookup. It never
// fails: a lookup problem degrades to the unavailable sentinel.
type TitleFetcher interface {
	AppTitle(appid uint32) string
}
