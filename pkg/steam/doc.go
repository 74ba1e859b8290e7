// Package steam provides a client for the Steam storefront review API.
//
// This package includes:
//   - Query, a validating builder for review listing requests whose
//     ordering, cursor, and day-window combinations are guarded
//   - Type-safe models for the review listing response, with defensive
//     decoding of fields the API is known to report unreliably
//   - An HTTP client with typed errors and a best-effort title lookup
//
// Example usage:
//
//	q := steam.NewQuery(413410)
//	q.SetPageSize(100).SetReviewType(steam.ReviewTypePositive)
//
//	client := steam.NewClient(30*time.Second, nil)
//	page, err := client.FetchReviews(q)
package steam
