package models

import "testing"

func sampleReview() Review {
	return Review{
		Title:                    "ICO",
		AppID:                    "1274570",
		RecommendationID:         123456789,
		SteamID:                  76561198000000000,
		NumGamesOwned:            42,
		NumReviews:               7,
		PlaytimeForever:          1200,
		Language:                 "english",
		Text:                     "masterpiece, play it",
		TimestampCreated:         1600000000,
		VotedUp:                  true,
		VotesUp:                  12,
		VotesFunny:               3,
		CommentCount:             1,
		SteamPurchase:            true,
		ReceivedForFree:          false,
		WrittenDuringEarlyAccess: false,
		DeveloperResponse:        "thanks!",
		TimestampDevResponded:    1600001000,
	}
}

func TestHashIsDeterministic(t *testing.T) {
	a := sampleReview()
	b := sampleReview()
	if a.Hash() != b.Hash() {
		t.Error("identical reviews must hash identically")
	}
}

func TestHashIgnoresTitle(t *testing.T) {
	a := sampleReview()
	b := sampleReview()
	b.Title = TitleUnavailable

	if a.Hash() != b.Hash() {
		t.Error("the title is display-only and must not change the hash")
	}
}

func TestHashCoversIdentityFields(t *testing.T) {
	base := sampleReview()

	mutations := map[string]func(r *Review){
		"appid":             func(r *Review) { r.AppID = "9160" },
		"recommendation id": func(r *Review) { r.RecommendationID++ },
		"steam id":          func(r *Review) { r.SteamID++ },
		"text":              func(r *Review) { r.Text += "!" },
		"timestamp":         func(r *Review) { r.TimestampCreated++ },
		"voted up":          func(r *Review) { r.VotedUp = !r.VotedUp },
		"votes up":          func(r *Review) { r.VotesUp++ },
		"playtime":          func(r *Review) { r.PlaytimeForever++ },
		"language":          func(r *Review) { r.Language = "german" },
		"dev response":      func(r *Review) { r.DeveloperResponse = "" },
	}

	for name, mutate := range mutations {
		r := sampleReview()
		mutate(&r)
		if r.Hash() == base.Hash() {
			t.Errorf("changing %s must change the hash", name)
		}
	}
}

func TestHashSeparatesAdjacentFields(t *testing.T) {
	a := sampleReview()
	a.Language = "english"
	a.Text = "x good"

	b := sampleReview()
	b.Language = "englishx"
	b.Text = " good"

	if a.Hash() == b.Hash() {
		t.Error("field boundaries must not shift between adjacent strings")
	}
}
