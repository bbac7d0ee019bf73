package template

import (
	"testing"

	"github.com/madmaxoft/skautan-go/internal/filter"
	"github.com/madmaxoft/skautan-go/internal/library"
)

func TestInsertAtAndDeleteAt(t *testing.T) {
	var tmpl Template
	f1 := &filter.Filter{Name: "f1"}
	f2 := &filter.Filter{Name: "f2"}
	f3 := &filter.Filter{Name: "f3"}
	tmpl.Append(Item{Filter: f1})
	tmpl.Append(Item{Filter: f3})
	tmpl.InsertAt(1, Item{Filter: f2})

	got := tmpl.Filters()
	if len(got) != 3 || got[0] != f1 || got[1] != f2 || got[2] != f3 {
		t.Fatalf("after InsertAt: Filters = %v; want [f1, f2, f3]", got)
	}

	tmpl.DeleteAt(1)
	got = tmpl.Filters()
	if len(got) != 2 || got[0] != f1 || got[1] != f3 {
		t.Fatalf("after DeleteAt: Filters = %v; want [f1, f3]", got)
	}
}

func TestSwapPositions(t *testing.T) {
	var tmpl Template
	f1 := &filter.Filter{Name: "f1"}
	f2 := &filter.Filter{Name: "f2"}
	tmpl.Append(Item{Filter: f1})
	tmpl.Append(Item{Filter: f2})
	tmpl.SwapPositions(0, 1)
	if tmpl.Items[0].Filter != f2 || tmpl.Items[1].Filter != f1 {
		t.Errorf("SwapPositions(0,1) did not swap: %v, %v", tmpl.Items[0].Filter, tmpl.Items[1].Filter)
	}
}

func TestRemoveAllFilterRefs(t *testing.T) {
	var tmpl Template
	f1 := &filter.Filter{Name: "f1"}
	f2 := &filter.Filter{Name: "f2"}
	tmpl.Append(Item{Filter: f1})
	tmpl.Append(Item{Filter: f2})
	tmpl.Append(Item{Filter: f1})

	if !tmpl.ReferencesFilter(f1) {
		t.Fatal("ReferencesFilter(f1) = false before removal")
	}
	tmpl.RemoveAllFilterRefs(f1)
	if tmpl.ReferencesFilter(f1) {
		t.Error("ReferencesFilter(f1) = true after RemoveAllFilterRefs(f1)")
	}
	if len(tmpl.Items) != 1 || tmpl.Items[0].Filter != f2 {
		t.Errorf("Items after RemoveAllFilterRefs(f1) = %v; want only f2", tmpl.Items)
	}
}

func TestPickSongsSkipsUnmatchedFilters(t *testing.T) {
	var tmpl Template
	matching := &filter.Filter{Name: "matching"}
	unmatched := &filter.Filter{Name: "unmatched"}
	tmpl.Append(Item{Filter: matching})
	tmpl.Append(Item{Filter: unmatched})

	song := &library.Song{FileName: "song.mp3"}
	picked := tmpl.PickSongs(func(f *filter.Filter, hasDuration bool, durationSec float64) (*library.Song, bool) {
		if f == matching {
			return song, true
		}
		return nil, false
	})
	if len(picked) != 1 || picked[0].Song != song || picked[0].Filter != matching {
		t.Errorf("PickSongs = %v; want one match from the matching filter", picked)
	}
}
