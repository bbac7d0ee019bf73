package filter

import (
	"testing"

	"github.com/madmaxoft/skautan-go/internal/library"
)

func makeSong(genre string, mpm float64, rating float64) *library.Song {
	s := &library.Song{FileName: "song.mp3"}
	s.TagID3.Genre.Set(genre)
	s.TagID3.MeasuresPerMinute.Set(mpm)
	sd := library.NewSharedData(library.Hash{1})
	sd.Rating.Local.Set(rating)
	s.SetHash(library.Hash{1})
	s.AttachSharedData(sd)
	return s
}

// TestAndOrSatisfaction exercises the boolean tree evaluation scenario:
// an And node requiring a genre match and a minimum rating.
func TestAndOrSatisfaction(t *testing.T) {
	tree := NewBoolTree(NodeAnd)
	tree.AddComparisonChild(tree.Root(), PropGenreID3, CmpEqual, "Waltz")
	tree.AddComparisonChild(tree.Root(), PropRatingLocal, CmpGreaterOrEqual, "3")

	match := makeSong("Waltz", 90, 4)
	if !tree.IsSatisfiedBy(match) {
		t.Error("And(genre=Waltz, rating>=3) rejected a matching song")
	}

	wrongGenre := makeSong("Tango", 90, 4)
	if tree.IsSatisfiedBy(wrongGenre) {
		t.Error("And(genre=Waltz, rating>=3) accepted a song with the wrong genre")
	}

	lowRating := makeSong("Waltz", 90, 2)
	if tree.IsSatisfiedBy(lowRating) {
		t.Error("And(genre=Waltz, rating>=3) accepted a song with too low a rating")
	}
}

func TestOrSatisfaction(t *testing.T) {
	tree := NewBoolTree(NodeOr)
	tree.AddComparisonChild(tree.Root(), PropGenreID3, CmpEqual, "Waltz")
	tree.AddComparisonChild(tree.Root(), PropGenreID3, CmpEqual, "Tango")

	for _, genre := range []string{"Waltz", "Tango"} {
		if !tree.IsSatisfiedBy(makeSong(genre, 0, 0)) {
			t.Errorf("Or(genre=Waltz, genre=Tango) rejected genre %q", genre)
		}
	}
	if tree.IsSatisfiedBy(makeSong("Samba", 0, 0)) {
		t.Error("Or(genre=Waltz, genre=Tango) accepted genre Samba")
	}
}

// TestCheckConsistency verifies the parent back-pointer invariant
// ( #3) holds after a sequence of structural mutations.
func TestCheckConsistency(t *testing.T) {
	tree := NewBoolTree(NodeAnd)
	a := tree.AddComparisonChild(tree.Root(), PropGenreID3, CmpEqual, "Waltz")
	b := tree.AddOrChild(tree.Root())
	tree.AddComparisonChild(b, PropMPMID3, CmpGreater, "80")
	if err := tree.CheckConsistency(); err != nil {
		t.Fatalf("CheckConsistency after building = %v; want nil", err)
	}

	tree.RemoveChild(tree.Root(), a)
	if err := tree.CheckConsistency(); err != nil {
		t.Errorf("CheckConsistency after RemoveChild = %v; want nil", err)
	}

	tree.ReplaceChild(b, PropGenreID3, CmpNotEqual, "Samba")
	if err := tree.CheckConsistency(); err != nil {
		t.Errorf("CheckConsistency after ReplaceChild = %v; want nil", err)
	}
}

// TestHashStableAcrossClone verifies that cloning a tree (a fresh arena,
// design note) doesn't change its identity hash.
func TestHashStableAcrossClone(t *testing.T) {
	tree := NewBoolTree(NodeAnd)
	tree.AddComparisonChild(tree.Root(), PropGenreID3, CmpEqual, "Waltz")

	clone := (&Filter{Tree: tree}).Clone()
	if tree.Hash() != clone.Tree.Hash() {
		t.Error("Hash differs between a tree and its clone")
	}

	other := NewBoolTree(NodeAnd)
	other.AddComparisonChild(other.Root(), PropGenreID3, CmpEqual, "Tango")
	if tree.Hash() == other.Hash() {
		t.Error("Hash collided for trees with different predicates")
	}
}

func TestCompareStringCaseInsensitive(t *testing.T) {
	if !CompareString(CmpEqual, "Café Waltz", "cafe waltz") {
		t.Error("CompareString(Equal) should fold case and accents")
	}
	if CompareString(CmpEqual, "", "x") {
		t.Error("CompareString(Equal) with an empty actual value should never match")
	}
	if !CompareString(CmpNotContains, "", "x") {
		t.Error("CompareString(NotContains) with an empty actual value should match")
	}
}

func TestCompareNumberAbsent(t *testing.T) {
	if CompareNumber(CmpGreater, 0, false, "5") {
		t.Error("CompareNumber(Greater) on an absent value should be false")
	}
	if !CompareNumber(CmpEqual, 90, true, "90.0000001") {
		t.Error("CompareNumber(Equal) should tolerate float noise within numberTolerance")
	}
}
