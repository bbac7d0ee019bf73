// Package filter implements the recursive boolean/comparison predicate
// tree over song properties described in and §4.7.
package filter

import (
	"strconv"
	"time"

	"github.com/madmaxoft/skautan-go/internal/library"
)

// SongProperty enumerates every directly queryable field on a song, per
//. Numeric encodings are fixed since they're persisted.
type SongProperty int

const (
	PropAuthorManual SongProperty = iota
	PropAuthorID3
	PropAuthorFileName
	PropAuthorPrimary

	PropTitleManual
	PropTitleID3
	PropTitleFileName
	PropTitlePrimary

	PropGenreManual
	PropGenreID3
	PropGenreFileName
	PropGenrePrimary

	PropMPMManual
	PropMPMID3
	PropMPMFileName
	PropMPMPrimary

	PropLength
	PropLastPlayed
	PropSkipStart
	PropNotes
	PropDetectedTempo
	PropNumWarnings

	PropRatingLocal
	PropRatingRhythmClarity
	PropRatingGenreTypicality
	PropRatingPopularity

	PropFileName
)

// Kind describes the value domain a property takes, which drives which
// comparator semantics apply.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindDate
)

func (p SongProperty) Kind() Kind {
	switch p {
	case PropAuthorManual, PropAuthorID3, PropAuthorFileName, PropAuthorPrimary,
		PropTitleManual, PropTitleID3, PropTitleFileName, PropTitlePrimary,
		PropGenreManual, PropGenreID3, PropGenreFileName, PropGenrePrimary,
		PropNotes, PropFileName:
		return KindString
	case PropLastPlayed:
		return KindDate
	default:
		return KindNumber
	}
}

// Value extracts p's value from s. ok is false if the property is absent
// (e.g. an unset DatedOptional number), which matters for Comparator
// semantics on numeric properties.
func Value(s *library.Song, p SongProperty) (v interface{}, ok bool) {
	sd := (*library.SharedData)(nil)
	if s.SharedData != nil {
		sd = s.SharedData.Data
	}
	switch p {
	case PropAuthorManual:
		if sd == nil {
			return "", false
		}
		return sd.TagManual.Author.Get()
	case PropAuthorID3:
		return s.TagID3.Author.Get()
	case PropAuthorFileName:
		return s.TagFileName.Author.Get()
	case PropAuthorPrimary:
		return s.PrimaryAuthor(), true

	case PropTitleManual:
		if sd == nil {
			return "", false
		}
		return sd.TagManual.Title.Get()
	case PropTitleID3:
		return s.TagID3.Title.Get()
	case PropTitleFileName:
		return s.TagFileName.Title.Get()
	case PropTitlePrimary:
		return s.PrimaryTitle(), true

	case PropGenreManual:
		if sd == nil {
			return "", false
		}
		return sd.TagManual.Genre.Get()
	case PropGenreID3:
		return s.TagID3.Genre.Get()
	case PropGenreFileName:
		return s.TagFileName.Genre.Get()
	case PropGenrePrimary:
		return s.PrimaryGenre(), true

	case PropMPMManual:
		if sd == nil {
			return 0.0, false
		}
		return sd.TagManual.MeasuresPerMinute.Get()
	case PropMPMID3:
		return s.TagID3.MeasuresPerMinute.Get()
	case PropMPMFileName:
		return s.TagFileName.MeasuresPerMinute.Get()
	case PropMPMPrimary:
		return s.PrimaryMPM(), true

	case PropLength:
		if sd == nil {
			return 0.0, false
		}
		return sd.Length.Get()
	case PropLastPlayed:
		if sd == nil {
			return time.Time{}, false
		}
		sec, ok := sd.LastPlayed.Get()
		if !ok {
			return time.Time{}, false
		}
		return time.Unix(sec, 0), true
	case PropSkipStart:
		if sd == nil {
			return 0.0, false
		}
		return sd.SkipStart.Get()
	case PropNotes:
		if sd == nil {
			return "", false
		}
		return sd.Notes.Get()
	case PropDetectedTempo:
		if sd == nil {
			return 0.0, false
		}
		return sd.DetectedTempo.Get()
	case PropNumWarnings:
		return float64(len(s.GetWarnings())), true

	case PropRatingLocal:
		if sd == nil {
			return 0.0, false
		}
		return sd.Rating.Local.Get()
	case PropRatingRhythmClarity:
		if sd == nil {
			return 0.0, false
		}
		return sd.Rating.RhythmClarity.Get()
	case PropRatingGenreTypicality:
		if sd == nil {
			return 0.0, false
		}
		return sd.Rating.GenreTypicality.Get()
	case PropRatingPopularity:
		if sd == nil {
			return 0.0, false
		}
		return sd.Rating.Popularity.Get()

	case PropFileName:
		return s.FileName, true
	}
	return nil, false
}

// stringify renders v (as returned by Value) as a string, used by the
// contains/not-contains comparators and by Kind==KindDate's
// contains/not-contains fallback.
func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return ""
	}
}
