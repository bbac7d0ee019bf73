package sampler

import (
	"testing"
	"time"

	"github.com/madmaxoft/skautan-go/internal/filter"
	"github.com/madmaxoft/skautan-go/internal/library"
)

func ratedSong(hash byte, rating float64, lastPlayed time.Time) *library.Song {
	s := &library.Song{FileName: "song.mp3"}
	s.SetHash(library.Hash{hash})
	sd := library.NewSharedData(library.Hash{hash})
	sd.Rating.Local.Set(rating)
	sd.Rating.GenreTypicality.Set(rating)
	sd.Rating.Popularity.Set(rating)
	sd.Rating.RhythmClarity.Set(rating)
	if !lastPlayed.IsZero() {
		sd.LastPlayed.Set(lastPlayed.Unix())
	}
	s.AttachSharedData(sd)
	return s
}

// TestPickSongWalksCumulativeWeights exercises the concrete draw-threshold
// scenario in : three candidate songs, each with a distinct
// weight, and a draw landing in the third song's cumulative segment.
func TestPickSongWalksCumulativeWeights(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	longAgo := now.Add(-365 * 24 * time.Hour)

	// Low rating and recently played: small weight.
	s1 := ratedSong(1, 0, now.Add(-time.Hour))
	// Middling rating, played a while ago: medium weight.
	s2 := ratedSong(2, 2.5, longAgo)
	// High rating, never played: large weight.
	s3 := ratedSong(3, 5, time.Time{})

	candidates := []*library.Song{s1, s2, s3}
	w1 := int64(Weight(s1, now, nil))
	w2 := int64(Weight(s2, now, nil))
	w3 := int64(Weight(s3, now, nil))
	if !(w1 < w2 && w2 < w3) {
		t.Fatalf("expected w1 < w2 < w3, got %d, %d, %d", w1, w2, w3)
	}
	total := w1 + w2 + w3

	for _, tc := range []struct {
		name string
		draw int64
		want *library.Song
	}{
		{"draw into first segment", 1, s1},
		{"draw at first boundary", w1, s1},
		{"draw just past first boundary", w1 + 1, s2},
		{"draw at second boundary", w1 + w2, s2},
		{"draw just past second boundary", w1 + w2 + 1, s3},
		{"draw at total", total, s3},
	} {
		got, ok := PickSong(candidates, nil, now, nil, nil, tc.draw)
		if !ok || got != tc.want {
			t.Errorf("%s: PickSong(draw=%d) = %v; want %v", tc.name, tc.draw, got, tc.want)
		}
	}
}

func TestPickSongSkipsDuplicateContent(t *testing.T) {
	now := time.Now()
	sd := library.NewSharedData(library.Hash{9})
	sd.Rating.Local.Set(5)

	dupA := &library.Song{FileName: "a.mp3"}
	dupA.SetHash(library.Hash{9})
	dupA.AttachSharedData(sd)

	dupB := &library.Song{FileName: "b.mp3"}
	dupB.SetHash(library.Hash{9})
	dupB.AttachSharedData(sd)

	got, ok := PickSong([]*library.Song{dupA, dupB}, nil, now, nil, nil, 1)
	if !ok || got != dupA {
		t.Errorf("PickSong with two duplicates of the same content: got %v, %v; want the first, true", got, ok)
	}
}

func TestPickSongFiltersOutNonMatches(t *testing.T) {
	now := time.Now()
	waltz := ratedSong(1, 3, time.Time{})
	waltz.TagID3.Genre.Set("Waltz")
	tango := ratedSong(2, 3, time.Time{})
	tango.TagID3.Genre.Set("Tango")

	tree := filter.NewComparisonTree(filter.PropGenreID3, filter.CmpEqual, "Waltz")
	f := &filter.Filter{Tree: tree}

	got, ok := PickSong([]*library.Song{waltz, tango}, f, now, nil, nil, 0)
	if !ok || got != waltz {
		t.Errorf("PickSong with a genre filter: got %v, %v; want waltz, true", got, ok)
	}
}

func TestPickSongReturnsAvoidWhenNothingMatches(t *testing.T) {
	now := time.Now()
	avoid := &library.Song{FileName: "avoid.mp3"}
	tree := filter.NewComparisonTree(filter.PropGenreID3, filter.CmpEqual, "Waltz")
	f := &filter.Filter{Tree: tree}

	got, ok := PickSong(nil, f, now, nil, avoid, -1)
	if !ok || got != avoid {
		t.Errorf("PickSong with no candidates: got %v, %v; want avoid, true", got, ok)
	}
}
