package filter

import "github.com/madmaxoft/skautan-go/internal/library"

// Filter is a FilterNode tree plus display attributes.
type Filter struct {
	Tree *Tree

	ID int64 // DB row id; 0 means not yet saved
	Position int // ordering among sibling filters in the store

	Name string
	Notes string
	Favorite bool
	BGColor library.RGB
	HasDuration bool
	DurationSec float64
}

// IsSatisfiedBy reports whether song matches f's predicate tree.
func (f *Filter) IsSatisfiedBy(song *library.Song) bool {
	return f.Tree.IsSatisfiedBy(song)
}

// Hash returns the identity hash of f's tree, used to match filters across
// import boundaries.
func (f *Filter) Hash() [20]byte { return f.Tree.Hash() }

// Clone returns a deep copy of f, including a fresh arena for its tree.
func (f *Filter) Clone() *Filter {
	c := *f
	c.Tree = f.Tree.Clone()
	return &c
}
