// Package template implements Template, an ordered sequence of Filters
// used to assemble a multi-song playlist and §4.8.
package template

import (
	"github.com/madmaxoft/skautan-go/internal/filter"
	"github.com/madmaxoft/skautan-go/internal/library"
)

// Item is one entry in a Template: a reference to a Filter plus a
// duration-limit override that is stored with the template. Picking
// (store.PickSongsForTemplate) does not read the override, and
// playlist.AddFromTemplate gives each added item its Filter's own
// duration limit instead.
type Item struct {
	Filter *filter.Filter
	HasDuration bool
	DurationSec float64
}

// Template is an ordered list of Filter references plus display
// attributes. An Item's Filter may be the same instance
// referenced by multiple templates.
type Template struct {
	ID int64
	Position int

	Name string
	Notes string

	Items []Item
}

// Append adds item to the end of t.
func (t *Template) Append(item Item) { t.Items = append(t.Items, item) }

// InsertAt inserts item at idx, shifting later items right. idx may equal
// len(t.Items) to append.
func (t *Template) InsertAt(idx int, item Item) {
	t.Items = append(t.Items, Item{})
	copy(t.Items[idx+1:], t.Items[idx:])
	t.Items[idx] = item
}

// DeleteAt removes the item at idx.
func (t *Template) DeleteAt(idx int) {
	t.Items = append(t.Items[:idx], t.Items[idx+1:]...)
}

// SwapPositions swaps the items at indices i and j, used for reordering by
// adjacent-position swap.
func (t *Template) SwapPositions(i, j int) {
	if i < 0 || j < 0 || i >= len(t.Items) || j >= len(t.Items) || i == j {
		return
	}
	t.Items[i], t.Items[j] = t.Items[j], t.Items[i]
}

// RemoveAllFilterRefs strips every occurrence of f from t, per
// §4.8's remove_all_filter_refs. Used when a filter is deleted so the
// template cascade in the store stays consistent.
func (t *Template) RemoveAllFilterRefs(f *filter.Filter) {
	out := t.Items[:0]
	for _, it := range t.Items {
		if it.Filter != f {
			out = append(out, it)
		}
	}
	t.Items = out
}

// ReferencesFilter reports whether t references f anywhere.
func (t *Template) ReferencesFilter(f *filter.Filter) bool {
	for _, it := range t.Items {
		if it.Filter == f {
			return true
		}
	}
	return false
}

// Filters returns the distinct filters t references, in item order.
func (t *Template) Filters() []*filter.Filter {
	out := make([]*filter.Filter, 0, len(t.Items))
	seen := make(map[*filter.Filter]bool)
	for _, it := range t.Items {
		if !seen[it.Filter] {
			seen[it.Filter] = true
			out = append(out, it.Filter)
		}
	}
	return out
}

// matchFunc abstracts the store's song-picking operation so this package
// doesn't need to import internal/store (which itself depends on
// template), avoiding an import cycle. internal/store.PickSongsForTemplate
// supplies the concrete implementation described in.
type matchFunc func(f *filter.Filter, hasDuration bool, durationSec float64) (*library.Song, bool)

// PickSongs runs pick for every filter in t and returns the matched
// (song, filter) pairs, skipping filters for which nothing matched. This
// is the shape of 's pick_songs_for_template; the actual
// weighted sampling lives in internal/sampler and is injected via pick so
// this package stays free of store/sampler dependencies.
func (t *Template) PickSongs(pick matchFunc) []struct {
	Song *library.Song
	Filter *filter.Filter
} {
	var out []struct {
		Song *library.Song
		Filter *filter.Filter
	}
	for _, it := range t.Items {
		if song, ok := pick(it.Filter, it.HasDuration, it.DurationSec); ok {
			out = append(out, struct {
				Song *library.Song
				Filter *filter.Filter
			}{song, it.Filter})
		}
	}
	return out
}
