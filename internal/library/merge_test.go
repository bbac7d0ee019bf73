package library

import (
	"testing"
	"time"

	"github.com/madmaxoft/skautan-go/internal/dated"
)

func TestMergeTagNewerFieldWins(t *testing.T) {
	base := time.Unix(1000, 0)
	dst := Tag{Author: dated.NewAt("Old Author", base)}
	src := Tag{Author: dated.NewAt("New Author", base.Add(time.Hour))}

	MergeTag(&dst, src)

	if got, _ := dst.Author.Get(); got != "New Author" {
		t.Errorf("Author after merge = %q; want %q", got, "New Author")
	}
}

func TestMergeTagStaleFieldLoses(t *testing.T) {
	base := time.Unix(1000, 0)
	dst := Tag{Title: dated.NewAt("Kept Title", base)}
	src := Tag{Title: dated.NewAt("Stale Title", base.Add(-time.Hour))}

	MergeTag(&dst, src)

	if got, _ := dst.Title.Get(); got != "Kept Title" {
		t.Errorf("Title after merge with an older src = %q; want %q (unchanged)", got, "Kept Title")
	}
}

func TestMergeSongKeepsFileSizeAndHighestRescanAttempts(t *testing.T) {
	dst := &Song{FileName: "a.mp3", FileSize: 100, NumTagRescanAttempts: 3}
	src := &Song{FileName: "a.mp3", FileSize: 150, NumTagRescanAttempts: 1}

	MergeSong(dst, src)

	if dst.FileSize != 150 {
		t.Errorf("FileSize after merge = %d; want 150 (always takes the freshly-scanned size)", dst.FileSize)
	}
	if dst.NumTagRescanAttempts != 3 {
		t.Errorf("NumTagRescanAttempts after merge = %d; want 3 (the higher of the two)", dst.NumTagRescanAttempts)
	}
}

func TestMergeSongKeepsStoredTagOverOlderScan(t *testing.T) {
	base := time.Unix(1000, 0)
	dst := &Song{FileName: "a.mp3"}
	dst.TagID3.Author = dated.NewAt("Manually Fixed", base)

	src := &Song{FileName: "a.mp3"}
	src.TagID3.Author = dated.NewAt("Rescanned Garbage", base.Add(-time.Minute))

	MergeSong(dst, src)

	if got, _ := dst.TagID3.Author.Get(); got != "Manually Fixed" {
		t.Errorf("TagID3.Author after merge = %q; want %q (src is older, shouldn't win)", got, "Manually Fixed")
	}
}

func TestMergeSharedDataMergesRatingsFieldByField(t *testing.T) {
	base := time.Unix(1000, 0)
	dst := NewSharedData(Hash{1})
	dst.Rating.Local = dated.NewAt(3.0, base)
	dst.Rating.Popularity = dated.NewAt(2.0, base)

	src := NewSharedData(Hash{1})
	src.Rating.Local = dated.NewAt(5.0, base.Add(-time.Hour)) // older: must not win
	src.Rating.Popularity = dated.NewAt(4.0, base.Add(time.Hour)) // newer: must win

	MergeSharedData(dst, src)

	if v, _ := dst.Rating.Local.Get(); v != 3.0 {
		t.Errorf("Rating.Local after merge = %v; want 3 (src is older)", v)
	}
	if v, _ := dst.Rating.Popularity.Get(); v != 4.0 {
		t.Errorf("Rating.Popularity after merge = %v; want 4 (src is newer)", v)
	}
}

func TestMergeSharedDataFillsAbsentDetectedTempo(t *testing.T) {
	dst := NewSharedData(Hash{2})
	src := NewSharedData(Hash{2})
	src.DetectedTempo.Set(128)

	MergeSharedData(dst, src)

	if v, ok := dst.DetectedTempo.Get(); !ok || v != 128 {
		t.Errorf("DetectedTempo after merge = %v, %v; want 128, true", v, ok)
	}
}
