package library

import (
	"fmt"
	"strings"

	"github.com/madmaxoft/skautan-go/internal/dated"
)

// Song represents an audio file, keyed by file path.
//
// When adding fields here, update Clone and the store's songs table
// (internal/store/store.go and songs.go) together, mirroring the comment convention in
// derat-nup's server/db/song.go ("when adding fields, update Update").
type Song struct {
	FileName string
	FileSize int64

	// Hash is unset until the async hash job (internal/hashcalc) completes;
	// until then the Song is in the "new files" state.
	Hash Hash
	hasHash bool

	TagFileName Tag
	TagID3 Tag

	LastTagRescanned dated.Optional[int64] // unix seconds
	NumTagRescanAttempts int

	// SharedData is nil until Hash is set and the row has been attached by
	// the store.
	SharedData *SongSharedDataRef
}

// SongSharedDataRef is a strong reference from a Song to its SharedData
// row, mirroring : "the Song carries references to a
// SharedData record by strong reference; the SharedData's duplicates set
// owns weak references back."
type SongSharedDataRef struct {
	Data *SharedData
}

// HasHash reports whether s has progressed past the "new files" state.
func (s *Song) HasHash() bool { return s.hasHash }

// SetHash records s's content hash, moving it out of the "new files" state.
func (s *Song) SetHash(h Hash) {
	s.Hash = h
	s.hasHash = true
}

// AttachSharedData links s to sd, registering s in sd's duplicate set. This
// maintains the invariant in #4: after this call, sd's
// duplicates set contains s and s.SharedData references sd.
func (s *Song) AttachSharedData(sd *SharedData) {
	if s.SharedData != nil && s.SharedData.Data != sd {
		s.SharedData.Data.removeDuplicate(s)
	}
	s.SharedData = &SongSharedDataRef{Data: sd}
	sd.addDuplicate(s)
}

// DetachSharedData removes s from its SharedData's duplicate set, e.g.
// before the Song itself is removed from the store. The SharedData row
// itself is left untouched (: "SharedData rows are never
// deleted automatically").
func (s *Song) DetachSharedData() {
	if s.SharedData != nil {
		s.SharedData.Data.removeDuplicate(s)
		s.SharedData = nil
	}
}

// PrimaryAuthor returns the first non-empty of manual, id3, file-name.
func (s *Song) PrimaryAuthor() string {
	manual := dated.Optional[string]{}
	if s.SharedData != nil {
		manual = s.SharedData.Data.TagManual.Author
	}
	return firstNonEmptyString(manual, s.TagID3.Author, s.TagFileName.Author)
}

// PrimaryTitle returns the first non-empty of manual, id3, file-name.
func (s *Song) PrimaryTitle() string {
	manual := dated.Optional[string]{}
	if s.SharedData != nil {
		manual = s.SharedData.Data.TagManual.Title
	}
	return firstNonEmptyString(manual, s.TagID3.Title, s.TagFileName.Title)
}

// PrimaryGenre returns the first non-empty of manual, id3, file-name.
func (s *Song) PrimaryGenre() string {
	manual := dated.Optional[string]{}
	if s.SharedData != nil {
		manual = s.SharedData.Data.TagManual.Genre
	}
	return firstNonEmptyString(manual, s.TagID3.Genre, s.TagFileName.Genre)
}

// PrimaryMPM returns the first present of manual, id3, file-name measures
// per minute.
func (s *Song) PrimaryMPM() float64 {
	manual := dated.Optional[float64]{}
	if s.SharedData != nil {
		manual = s.SharedData.Data.TagManual.MeasuresPerMinute
	}
	return firstPresentFloat(manual, s.TagID3.MeasuresPerMinute, s.TagFileName.MeasuresPerMinute)
}

// HasManualOverride reports whether the named tag field has been set
// manually, which suppresses certain warnings below ('s
// "without manual override" language).
func (s *Song) HasManualOverride(field string) bool {
	if s.SharedData == nil {
		return false
	}
	m := s.SharedData.Data.TagManual
	switch field {
	case "author":
		return m.Author.Present()
	case "title":
		return m.Title.Present()
	case "genre":
		return m.Genre.Present()
	case "mpm":
		return m.MeasuresPerMinute.Present()
	}
	return false
}

// NeedsTagRescan reports whether either the id3 or file-name author tag
// has never been set.
func (s *Song) NeedsTagRescan() bool {
	return !s.TagID3.Author.Present() || !s.TagFileName.Author.Present()
}

// GetWarnings returns human-readable warning strings about s, per
//.
func (s *Song) GetWarnings() []string {
	var warnings []string

	id3Genre, _ := s.TagID3.Genre.Get()
	fileGenre, _ := s.TagFileName.Genre.Get()
	if id3Genre != "" && fileGenre != "" &&
		!strings.EqualFold(id3Genre, fileGenre) && !s.HasManualOverride("genre") {
		warnings = append(warnings, fmt.Sprintf(
			"ID3 genre %q disagrees with filename genre %q", id3Genre, fileGenre))
	}

	mpm := s.PrimaryMPM()
	genre := s.PrimaryGenre()
	if mpm > 0 && genre != "" && !s.HasManualOverride("mpm") {
		r := CompetitionTempoRangeForGenre(genre)
		lo, hi := 0.7*r.Low, 1.05*r.High
		if mpm < lo || mpm > hi {
			warnings = append(warnings, fmt.Sprintf(
				"tempo %.1f MPM is outside the %s competition range [%.1f, %.1f]",
				mpm, genre, lo, hi))
		}
	}

	if s.SharedData != nil {
		sd := s.SharedData.Data
		if rating, ok := sd.Rating.Local.Get(); ok && rating > 0 && !sd.LastPlayed.Present() {
			warnings = append(warnings, "song has a rating but has never been played")
		}
	}

	return warnings
}

// Clone returns a deep-enough copy of s for use while iterating the
// store's in-memory index (the DetachSharedData/AttachSharedData pointer
// semantics are not copied; callers needing a detached copy should treat
// the returned Song as read-only metadata).
func (s *Song) Clone() *Song {
	c := *s
	return &c
}
