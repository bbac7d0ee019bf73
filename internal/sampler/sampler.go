// Package sampler implements the rating-and-recency-weighted random song
// selection described in, grounded on
// original_source/Database.cpp's getSongWeight/getRandomSong.
package sampler

import (
	"math/rand/v2"
	"time"

	"github.com/madmaxoft/skautan-go/internal/filter"
	"github.com/madmaxoft/skautan-go/internal/library"
)

// initialWeight is the starting weight before any adjustment, per
//.
const initialWeight = 10000

// Weight computes a song's sampling weight. now is injected for testability.
// refPlaylist, if non-nil, is an ordered slice of songs (most recent last)
// used for the "occurrence in playlist" penalty; distanceFromEnd counts
// positions back from the end of refPlaylist.
func Weight(song *library.Song, now time.Time, refPlaylist []*library.Song) int32 {
	w := float64(initialWeight)

	var lastPlayed int64
	var hasLastPlayed bool
	if song.SharedData != nil {
		lastPlayed, hasLastPlayed = song.SharedData.Data.LastPlayed.Get()
	}
	var daysSince float64
	if hasLastPlayed {
		daysSince = now.Sub(time.Unix(lastPlayed, 0)).Hours() / 24
		if daysSince < 0 {
			daysSince = 0
		}
	} else {
		daysSince = 1e9 // never played: treat as infinitely long ago
	}
	w *= (daysSince + 1) / (daysSince + 2)

	for i, s := range refPlaylist {
		if sameContent(s, song) {
			distanceFromEnd := len(refPlaylist) - 1 - i
			w *= (float64(distanceFromEnd) + 100) / (float64(distanceFromEnd) + 200)
		}
	}

	for _, get := range []func(*library.SharedData) (float64, bool){
		func(sd *library.SharedData) (float64, bool) { return sd.Rating.GenreTypicality.Get() },
		func(sd *library.SharedData) (float64, bool) { return sd.Rating.Popularity.Get() },
		func(sd *library.SharedData) (float64, bool) { return sd.Rating.RhythmClarity.Get() },
	} {
		if song.SharedData == nil {
			w *= 3.5 / 5
			continue
		}
		if rating, ok := get(song.SharedData.Data); ok {
			w *= (rating + 1) / 5
		} else {
			w *= 3.5 / 5
		}
	}

	if w > float64(int32(^uint32(0)>>1)) {
		return int32(^uint32(0) >> 1)
	}
	if w < 0 {
		return 0
	}
	return int32(w)
}

// sameContent reports whether a and b share a SharedData row (i.e. are
// duplicates of the same audio content).
func sameContent(a, b *library.Song) bool {
	if a == b {
		return true
	}
	if a.SharedData == nil || b.SharedData == nil {
		return false
	}
	return a.SharedData.Data == b.SharedData.Data
}

// PickSong selects a song matching f from candidates using the weighted
// random process in : iterate all songs, skip duplicates of
// an already-seen content hash, keep only filter matches, sum weights,
// draw uniformly in [0, total], and walk until the cumulative weight
// crosses the draw. If nothing matches but avoid is non-nil, avoid is
// returned. draw, if non-negative, overrides the random draw (used by
// tests to exercise the concrete scenario in ).
func PickSong(candidates []*library.Song, f *filter.Filter, now time.Time,
	refPlaylist []*library.Song, avoid *library.Song, draw int64) (*library.Song, bool) {

	type weighted struct {
		song *library.Song
		weight int64
	}
	var matches []weighted
	seenContent := make(map[*library.SharedData]bool)

	for _, s := range candidates {
		if s.SharedData != nil {
			if seenContent[s.SharedData.Data] {
				continue
			}
		}
		if f != nil && !f.IsSatisfiedBy(s) {
			continue
		}
		if s.SharedData != nil {
			seenContent[s.SharedData.Data] = true
		}
		matches = append(matches, weighted{s, int64(Weight(s, now, refPlaylist))})
	}

	if len(matches) == 0 {
		if avoid != nil {
			return avoid, true
		}
		return nil, false
	}

	var total int64
	for _, m := range matches {
		total += m.weight
	}
	if total <= 0 {
		return matches[0].song, true
	}

	d := draw
	if d < 0 {
		d = rand.Int64N(total + 1)
	}
	var cumulative int64
	for _, m := range matches {
		cumulative += m.weight
		if d <= cumulative {
			return m.song, true
		}
	}
	return matches[len(matches)-1].song, true
}
