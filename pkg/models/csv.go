package models

import (
	"fmt"
	"strconv"
)

// csvColumns is the on-disk column order. Resume replays rows positionally,
// so this order is part of the file format and must not change.
var csvColumns = []string{
	"title",
	"appid",
	"recommendationid",
	"steamid",
	"num_games_owned",
	"num_reviews",
	"playtime_forever",
	"language",
	"review",
	"timestamp_created",
	"voted_up",
	"votes_up",
	"votes_funny",
	"comment_count",
	"steam_purchase",
	"received_for_free",
	"written_during_early_access",
	"developer_response",
	"timestamp_dev_responded",
}

// CSVHeader returns the header row for the output file.
func CSVHeader() []string {
	header := make([]string, len(csvColumns))
	copy(header, csvColumns)
	return header
}

// CSVRow serializes the review in csvColumns order.
func (r *Review) CSVRow() []string {
	return []string{
		r.Title,
		r.AppID,
		strconv.FormatUint(r.RecommendationID, 10),
		strconv.FormatUint(r.SteamID, 10),
		strconv.FormatUint(uint64(r.NumGamesOwned), 10),
		strconv.FormatUint(uint64(r.NumReviews), 10),
		strconv.FormatUint(uint64(r.PlaytimeForever), 10),
		r.Language,
		r.Text,
		strconv.FormatInt(r.TimestampCreated, 10),
		strconv.FormatBool(r.VotedUp),
		strconv.FormatUint(uint64(r.VotesUp), 10),
		strconv.FormatUint(uint64(r.VotesFunny), 10),
		strconv.FormatUint(uint64(r.CommentCount), 10),
		strconv.FormatBool(r.SteamPurchase),
		strconv.FormatBool(r.ReceivedForFree),
		strconv.FormatBool(r.WrittenDuringEarlyAccess),
		r.DeveloperResponse,
		strconv.FormatInt(r.TimestampDevResponded, 10),
	}
}

// ReviewFromCSVRow parses a row previously written by CSVRow.
func ReviewFromCSVRow(row []string) (Review, error) {
	if len(row) != len(csvColumns) {
		return Review{}, fmt.Errorf("expected %d columns, got %d", len(csvColumns), len(row))
	}

	var (
		r   Review
		err error
	)

	r.Title = row[0]
	r.AppID = row[1]

	if r.RecommendationID, err = strconv.ParseUint(row[2], 10, 64); err != nil {
		return Review{}, fmt.Errorf("recommendationid: %w", err)
	}
	if r.SteamID, err = strconv.ParseUint(row[3], 10, 64); err != nil {
		return Review{}, fmt.Errorf("steamid: %w", err)
	}
	if r.NumGamesOwned, err = parseUint32(row[4]); err != nil {
		return Review{}, fmt.Errorf("num_games_owned: %w", err)
	}
	if r.NumReviews, err = parseUint32(row[5]); err != nil {
		return Review{}, fmt.Errorf("num_reviews: %w", err)
	}
	if r.PlaytimeForever, err = parseUint32(row[6]); err != nil {
		return Review{}, fmt.Errorf("playtime_forever: %w", err)
	}

	r.Language = row[7]
	r.Text = row[8]

	if r.TimestampCreated, err = strconv.ParseInt(row[9], 10, 64); err != nil {
		return Review{}, fmt.Errorf("timestamp_created: %w", err)
	}
	if r.VotedUp, err = strconv.ParseBool(row[10]); err != nil {
		return Review{}, fmt.Errorf("voted_up: %w", err)
	}
	if r.VotesUp, err = parseUint32(row[11]); err != nil {
		return Review{}, fmt.Errorf("votes_up: %w", err)
	}
	if r.VotesFunny, err = parseUint32(row[12]); err != nil {
		return Review{}, fmt.Errorf("votes_funny: %w", err)
	}
	if r.CommentCount, err = parseUint32(row[13]); err != nil {
		return Review{}, fmt.Errorf("comment_count: %w", err)
	}
	if r.SteamPurchase, err = strconv.ParseBool(row[14]); err != nil {
		return Review{}, fmt.Errorf("steam_purchase: %w", err)
	}
	if r.ReceivedForFree, err = strconv.ParseBool(row[15]); err != nil {
		return Review{}, fmt.Errorf("received_for_free: %w", err)
	}
	if r.WrittenDuringEarlyAccess, err = strconv.ParseBool(row[16]); err != nil {
		return Review{}, fmt.Errorf("written_during_early_access: %w", err)
	}

	r.DeveloperResponse = row[17]

	if r.TimestampDevResponded, err = strconv.ParseInt(row[18], 10, 64); err != nil {
		return Review{}, fmt.Errorf("timestamp_dev_responded: %w", err)
	}

	return r, nil
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	return uint32(v), err
}
