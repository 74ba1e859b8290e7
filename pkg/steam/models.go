package steam

import (
	"bytes"
	"encoding/json"
	"strconv"

	"steamrevs/pkg/models"
)

// SuccessFlag decodes the response's success field.
//
// Steam documents 1 as success and 0 as failure, but the field is
// unreliable: queries known to be broken have been observed returning 1.
// Decoding is therefore deliberately distrustful: only a literal 1
// counts as success, and anything unparsable counts as failure instead
// of erroring out. Do not "fix" this to trust the flag.
type SuccessFlag bool

func (s *SuccessFlag) UnmarshalJSON(data []byte) error {
	*s = SuccessFlag(bytes.Equal(bytes.TrimSpace(data), []byte("1")))
	return nil
}

// WeightedScore decodes weighted_vote_score, which the API returns either
// as a float inside a string or as the bare integer 0. Unparsable values
// decode to 0, consistent with the API's own zero case.
type WeightedScore float64

func (w *WeightedScore) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*w = 0
			return nil
		}
		*w = WeightedScore(f)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*w = WeightedScore(f)
		return nil
	}

	*w = 0
	return nil
}

// QuerySummary describes the query as a whole. The totals are only
// populated on the first page of a scrape.
type QuerySummary struct {
	NumReviews      int    `json:"num_reviews"`
	ReviewScore     int    `json:"review_score"`
	ReviewScoreDesc string `json:"review_score_desc"`
	TotalPositive   int    `json:"total_positive"`
	TotalNegative   int    `json:"total_negative"`
	TotalReviews    int    `json:"total_reviews"`
}

// Author is the reviewer block of a wire review.
type Author struct {
	SteamID              string `json:"steamid"`
	NumGamesOwned        uint32 `json:"num_games_owned"`
	NumReviews           uint32 `json:"num_reviews"`
	PlaytimeForever      uint32 `json:"playtime_forever"`
	PlaytimeLastTwoWeeks uint32 `json:"playtime_last_two_weeks"`
	PlaytimeAtReview     uint32 `json:"playtime_at_review"`
	LastPlayed           int64  `json:"last_played"`
}

// Review is one review as it appears on the wire.
type Review struct {
	RecommendationID         string        `json:"recommendationid"`
	Author                   Author        `json:"author"`
	Language                 string        `json:"language"`
	Review                   string        `json:"review"`
	TimestampCreated         int64         `json:"timestamp_created"`
	TimestampUpdated         int64         `json:"timestamp_updated"`
	VotedUp                  bool          `json:"voted_up"`
	VotesUp                  uint32        `json:"votes_up"`
	VotesFunny               uint32        `json:"votes_funny"`
	WeightedVoteScore        WeightedScore `json:"weighted_vote_score"`
	CommentCount             uint32        `json:"comment_count"`
	SteamPurchase            bool          `json:"steam_purchase"`
	ReceivedForFree          bool          `json:"received_for_free"`
	WrittenDuringEarlyAccess bool          `json:"written_during_early_access"`
	DeveloperResponse        string        `json:"developer_response"`
	TimestampDevResponded    int64         `json:"timestamp_dev_responded"`
}

// ReviewPage is the top-level response for one pull: a batch of reviews,
// a result count inside the summary, and the opaque next-page cursor.
type ReviewPage struct {
	Success      SuccessFlag  `json:"success"`
	QuerySummary QuerySummary `json:"query_summary"`
	Cursor       string       `json:"cursor"`
	Reviews      []Review     `json:"reviews"`
}

// Flatten converts the page's wire reviews into records, attaching the
// appid and the display title supplied by the title lookup.
func (p *ReviewPage) Flatten(appid, title string) []models.Review {
	out := make([]models.Review, 0, len(p.Reviews))
	for _, wire := range p.Reviews {
		out = append(out, models.Review{
			Title:                    title,
			AppID:                    appid,
			RecommendationID:         parseID(wire.RecommendationID),
			SteamID:                  parseID(wire.Author.SteamID),
			NumGamesOwned:            wire.Author.NumGamesOwned,
			NumReviews:               wire.Author.NumReviews,
			PlaytimeForever:          wire.Author.PlaytimeForever,
			Language:                 wire.Language,
			Text:                     wire.Review,
			TimestampCreated:         wire.TimestampCreated,
			VotedUp:                  wire.VotedUp,
			VotesUp:                  wire.VotesUp,
			VotesFunny:               wire.VotesFunny,
			CommentCount:             wire.CommentCount,
			SteamPurchase:            wire.SteamPurchase,
			ReceivedForFree:          wire.ReceivedForFree,
			WrittenDuringEarlyAccess: wire.WrittenDuringEarlyAccess,
			DeveloperResponse:        wire.DeveloperResponse,
			TimestampDevResponded:    wire.TimestampDevResponded,
		})
	}
	return out
}

// parseID tolerates malformed numeric ids rather than dropping the whole
// review; a zero id still dedupes correctly on the remaining fields.
func parseID(s string) uint64 {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// appDetailsEntry is one product's entry in the appdetails response.
type appDetailsEntry struct {
	Success bool `json:"success"`
	Data    struct {
		Name string `json:"name"`
	} `json:"data"`
}
