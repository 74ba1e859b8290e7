package steam

import (
	"fmt"
	"net/url"
)

const (
	// ReviewsBaseURL is the review listing endpoint; the appid is appended
	// as a path segment.
	ReviewsBaseURL = "https://store.steampowered.com/appreviews/"

	// AppDetailsURL is the storefront metadata endpoint used for the
	// best-effort title lookup.
	AppDetailsURL = "https://store.steampowered.com/api/appdetails"
)

// GetAppDetailsURL constructs the URL for looking up a product's
// storefront details.
func GetAppDetailsURL(appid uint32) string {
	params := url.Values{}
	params.Set("appids", fmt.Sprintf("%d", appid))
	params.Set("filters", "basic")

	return fmt.Sprintf("%s?%s", AppDetailsURL, params.Encode())
}
