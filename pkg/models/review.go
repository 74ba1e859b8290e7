package models

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Review is one user review, flattened from the API response. Reviews are
// immutable once constructed; Title is the only exception, supplied by the
// best-effort title lookup after construction and excluded from identity.
type Review struct {
	// Title is the display name of the product. Display-only: it is not
	// part of the review's identity and does not survive into Hash.
	Title string

	// AppID is the product the review belongs to.
	AppID string

	// RecommendationID is Steam's unique id for the review.
	RecommendationID uint64

	// SteamID identifies the author.
	SteamID uint64

	NumGamesOwned   uint32
	NumReviews      uint32
	PlaytimeForever uint32 // minutes

	Language string

	// Text is the review body.
	Text string

	// TimestampCreated is seconds since the Unix epoch.
	TimestampCreated int64

	VotedUp      bool
	VotesUp      uint32
	VotesFunny   uint32
	CommentCount uint32

	SteamPurchase            bool
	ReceivedForFree          bool
	WrittenDuringEarlyAccess bool

	// DeveloperResponse is empty when the developer never replied;
	// TimestampDevResponded is 0 in that case.
	DeveloperResponse     string
	TimestampDevResponded int64
}

// TitleUnavailable is the sentinel display name used when the title
// lookup fails or has not run.
const TitleUnavailable = "NA"

// fieldSep keeps adjacent variable-length fields from colliding in the
// hash input ("ab","c" vs "a","bc").
const fieldSep = 0x1f

// Hash returns a 64-bit identity hash over every field except Title.
//
// The seen-set stores only these hashes, so two distinct reviews colliding
// in 64 bits would be spuriously deduplicated. xxhash is well distributed;
// for n records the odds of any collision are about n^2/2^65, under 10^-9
// for a million reviews. That risk is accepted rather than engineered away.
func (r *Review) Hash() uint64 {
	d := xxhash.New()
	var buf [20]byte

	writeString(d, r.AppID)
	writeUint(d, r.RecommendationID, buf[:0])
	writeUint(d, r.SteamID, buf[:0])
	writeUint(d, uint64(r.NumGamesOwned), buf[:0])
	writeUint(d, uint64(r.NumReviews), buf[:0])
	writeUint(d, uint64(r.PlaytimeForever), buf[:0])
	writeString(d, r.Language)
	writeString(d, r.Text)
	writeInt(d, r.TimestampCreated, buf[:0])
	writeBool(d, r.VotedUp)
	writeUint(d, uint64(r.VotesUp), buf[:0])
	writeUint(d, uint64(r.VotesFunny), buf[:0])
	writeUint(d, uint64(r.CommentCount), buf[:0])
	writeBool(d, r.SteamPurchase)
	writeBool(d, r.ReceivedForFree)
	writeBool(d, r.WrittenDuringEarlyAccess)
	writeString(d, r.DeveloperResponse)
	writeInt(d, r.TimestampDevResponded, buf[:0])

	return d.Sum64()
}

func writeString(d *xxhash.Digest, s string) {
	_, _ = d.WriteString(s)
	_, _ = d.Write([]byte{fieldSep})
}

func writeUint(d *xxhash.Digest, v uint64, buf []byte) {
	_, _ = d.Write(strconv.AppendUint(buf, v, 10))
	_, _ = d.Write([]byte{fieldSep})
}

func writeInt(d *xxhash.Digest, v int64, buf []byte) {
	_, _ = d.Write(strconv.AppendInt(buf, v, 10))
	_, _ = d.Write([]byte{fieldSep})
}

func writeBool(d *xxhash.Digest, v bool) {
	b := byte(0)
	if v {
		b = 1
	}
	_, _ = d.Write([]byte{b, fieldSep})
}
