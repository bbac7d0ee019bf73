package playlist

import (
	"testing"
	"time"

	"github.com/madmaxoft/skautan-go/internal/library"
)

func songItem(name string) Item {
	return Item{Song: &library.Song{FileName: name}}
}

func TestAppendAndAdvance(t *testing.T) {
	p := New()
	if _, ok := p.Current(); ok {
		t.Error("Current on an empty playlist reports ok = true")
	}
	p.Append(songItem("a"))
	p.Append(songItem("b"))

	item, ok := p.Advance()
	if !ok || item.Song.FileName != "a" {
		t.Fatalf("first Advance = %+v, %v; want song a, true", item, ok)
	}
	item, ok = p.Advance()
	if !ok || item.Song.FileName != "b" {
		t.Fatalf("second Advance = %+v, %v; want song b, true", item, ok)
	}
	// Advancing past the end reports false, i.e. "auto-advance stops at
	// the end of the playlist".
	if _, ok := p.Advance(); ok {
		t.Error("Advance past the end of the playlist reports ok = true")
	}
}

func TestDeleteAtAdjustsCurrentIndex(t *testing.T) {
	p := New()
	p.Append(songItem("a"))
	p.Append(songItem("b"))
	p.Append(songItem("c"))
	p.CurrentIndex = 1 // "b"

	p.DeleteAt(0) // delete "a", before current
	if p.CurrentIndex != 0 {
		t.Fatalf("CurrentIndex after deleting an earlier item = %d; want 0", p.CurrentIndex)
	}
	if cur, _ := p.Current(); cur.Song.FileName != "b" {
		t.Errorf("Current after deletion = %q; want %q", cur.Song.FileName, "b")
	}

	p.DeleteAt(0) // delete the current item itself
	if p.CurrentIndex != -1 {
		t.Errorf("CurrentIndex after deleting the current item = %d; want -1", p.CurrentIndex)
	}
}

func TestMovePreservesCurrentItem(t *testing.T) {
	p := New()
	p.Append(songItem("a"))
	p.Append(songItem("b"))
	p.Append(songItem("c"))
	p.CurrentIndex = 2 // "c"

	p.Move(0, 2) // move "a" to just before "c"'s original slot
	if cur, _ := p.Current(); cur.Song.FileName != "c" {
		t.Fatalf("Current after Move = %q; want %q (still c)", cur.Song.FileName, "c")
	}
}

func TestUpdateTrackTimesFromCurrent(t *testing.T) {
	p := New()
	p.Append(songItem("a"))
	p.Append(songItem("b"))
	p.CurrentIndex = 0
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	p.UpdateTrackTimesFromCurrent(t0)
	if p.Items[0].StartedAt != t0 {
		t.Errorf("Items[0].StartedAt = %v; want %v", p.Items[0].StartedAt, t0)
	}

	p.CurrentIndex = 1
	t1 := t0.Add(3 * time.Minute)
	p.UpdateTrackTimesFromCurrent(t1)
	if p.Items[0].EndedAt != t1 {
		t.Errorf("Items[0].EndedAt = %v; want %v", p.Items[0].EndedAt, t1)
	}
	if p.Items[1].StartedAt != t1 {
		t.Errorf("Items[1].StartedAt = %v; want %v", p.Items[1].StartedAt, t1)
	}
}

func TestReferenceWindow(t *testing.T) {
	p := New()
	for _, name := range []string{"a", "b", "c", "d"} {
		p.Append(songItem(name))
	}
	p.CurrentIndex = 2 // "c"

	got := p.ReferenceWindow(2)
	if len(got) != 2 || got[0].FileName != "b" || got[1].FileName != "c" {
		t.Errorf("ReferenceWindow(2) = %v; want [b, c]", namesOf(got))
	}

	if got := p.ReferenceWindow(1); len(got) != 1 || got[0].FileName != "c" {
		t.Errorf("ReferenceWindow(1) = %v; want [c]", namesOf(got))
	}
}

func namesOf(songs []*library.Song) []string {
	out := make([]string, len(songs))
	for i, s := range songs {
		out[i] = s.FileName
	}
	return out
}
