package library

import (
	"fmt"

	"github.com/madmaxoft/skautan-go/internal/dated"
)

// Hash is the 20-byte SHA-1 of a song's decoded PCM, used as the key for
// SongSharedData. See internal/hashcalc for how it's computed.
type Hash [20]byte

// String returns the lowercase hex encoding of h.
func (h Hash) String() string { return fmt.Sprintf("%x", [20]byte(h)) }

// IsZero reports whether h is the zero hash (i.e. unset).
func (h Hash) IsZero() bool { return h == Hash{} }

// Ratings bundles the four dated rating components named in.
// Values are always in [0,5] when present.
type Ratings struct {
	Local dated.Optional[float64]
	RhythmClarity dated.Optional[float64]
	GenreTypicality dated.Optional[float64]
	Popularity dated.Optional[float64]
}

// RGB is a background color.
type RGB struct{ R, G, B uint8 }

// SharedData is the per-content metadata record shared across all file
// duplicates of the same audio content, keyed by Hash. Per, it
// is never deleted automatically and its Duplicates set is a weak
// back-reference whose lifetime matches the enclosing Store.
type SharedData struct {
	Hash Hash // immutable once set

	Length dated.Optional[float64] // seconds
	LastPlayed dated.Optional[int64] // unix seconds
	Rating Ratings
	TagManual Tag // user-authoritative
	SkipStart dated.Optional[float64] // seconds
	Notes dated.Optional[string]
	BGColor dated.Optional[RGB]
	DetectedTempo dated.Optional[float64]

	// duplicates holds the Songs currently pointing at this record. It is a
	// weak back-reference: SharedData doesn't keep Songs alive, and Songs
	// are removed from this set (not the reverse) when they stop pointing
	// here.
	duplicates map[*Song]struct{}
}

// NewSharedData returns an empty SharedData keyed by hash.
func NewSharedData(hash Hash) *SharedData {
	return &SharedData{Hash: hash, duplicates: make(map[*Song]struct{})}
}

// Duplicates returns the set of Songs currently pointing at sd.
func (sd *SharedData) Duplicates() []*Song {
	out := make([]*Song, 0, len(sd.duplicates))
	for s := range sd.duplicates {
		out = append(out, s)
	}
	return out
}

// NumDuplicates returns len(Duplicates) without allocating.
func (sd *SharedData) NumDuplicates() int { return len(sd.duplicates) }

// addDuplicate registers s as pointing at sd. Invariant ( #4):
// after this call, sd.duplicates contains s.
func (sd *SharedData) addDuplicate(s *Song) { sd.duplicates[s] = struct{}{} }

// removeDuplicate unregisters s. It does not delete sd even if the set
// becomes empty: SharedData rows are never deleted automatically.
func (sd *SharedData) removeDuplicate(s *Song) { delete(sd.duplicates, s) }

// AggregateRating returns the arithmetic mean of all votes recorded so far
// for the given rating kind, or (0, false) if none have been recorded.
// Store.AddVote* calls this after appending a vote to recompute it.
func AggregateRating(votes []int) (mean float64, ok bool) {
	if len(votes) == 0 {
		return 0, false
	}
	var sum int
	for _, v := range votes {
		sum += v
	}
	return float64(sum) / float64(len(votes)), true
}
