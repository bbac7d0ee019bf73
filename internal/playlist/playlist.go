// Package playlist implements Playlist, the ordered queue of songs the
// player advances through.
package playlist

import (
	"time"

	"github.com/madmaxoft/skautan-go/internal/filter"
	"github.com/madmaxoft/skautan-go/internal/library"
	"github.com/madmaxoft/skautan-go/internal/store"
	"github.com/madmaxoft/skautan-go/internal/template"
)

// Item is one playlist entry: the song to play plus the provenance and
// duration-limit it was picked under, and the times it started/ended
// playing (zero until the player reaches it).
type Item struct {
	Song *library.Song
	Filter *filter.Filter // nil for manually-added items

	HasDuration bool
	DurationSec float64

	StartedAt time.Time
	EndedAt time.Time
}

// Playlist is an ordered list of Items plus a current-position cursor.
// CurrentIndex is -1 before playback has started.
type Playlist struct {
	Items []Item
	CurrentIndex int
}

// New returns an empty Playlist with no current item.
func New() *Playlist {
	return &Playlist{CurrentIndex: -1}
}

// Current returns the item at CurrentIndex, or (Item{}, false) if there is
// none (empty playlist, or CurrentIndex out of range).
func (p *Playlist) Current() (Item, bool) {
	if p.CurrentIndex < 0 || p.CurrentIndex >= len(p.Items) {
		return Item{}, false
	}
	return p.Items[p.CurrentIndex], true
}

// Append adds item to the end of the playlist.
func (p *Playlist) Append(item Item) { p.Items = append(p.Items, item) }

// InsertAt inserts item at idx, shifting later items right and adjusting
// CurrentIndex if the insertion point is at or before it.
func (p *Playlist) InsertAt(idx int, item Item) {
	p.Items = append(p.Items, Item{})
	copy(p.Items[idx+1:], p.Items[idx:])
	p.Items[idx] = item
	if idx <= p.CurrentIndex {
		p.CurrentIndex++
	}
}

// DeleteAt removes the item at idx, adjusting CurrentIndex so it continues
// to point at the same logical item (or becomes -1 if the current item
// itself was deleted).
func (p *Playlist) DeleteAt(idx int) {
	p.Items = append(p.Items[:idx], p.Items[idx+1:]...)
	switch {
	case idx < p.CurrentIndex:
		p.CurrentIndex--
	case idx == p.CurrentIndex:
		p.CurrentIndex = -1
	}
}

// Move relocates the item at from to before the item currently at to,
// adjusting CurrentIndex to continue pointing at the same logical item.
func (p *Playlist) Move(from, to int) {
	if from == to || from < 0 || from >= len(p.Items) || to < 0 || to >= len(p.Items) {
		return
	}
	item := p.Items[from]
	p.Items = append(p.Items[:from], p.Items[from+1:]...)
	if to > from {
		to--
	}
	p.Items = append(p.Items, Item{})
	copy(p.Items[to+1:], p.Items[to:])
	p.Items[to] = item

	switch {
	case p.CurrentIndex == from:
		p.CurrentIndex = to
	case from < p.CurrentIndex && to >= p.CurrentIndex:
		p.CurrentIndex--
	case from > p.CurrentIndex && to <= p.CurrentIndex:
		p.CurrentIndex++
	}
}

// Replace swaps the item at idx for a newly picked one, used when a user
// rejects a previously auto-picked track.
func (p *Playlist) Replace(idx int, item Item) {
	if idx < 0 || idx >= len(p.Items) {
		return
	}
	p.Items[idx] = item
}

// Advance moves CurrentIndex forward by one, returning the new current
// item and whether one exists (false at the end of the playlist).
func (p *Playlist) Advance() (Item, bool) {
	p.CurrentIndex++
	return p.Current()
}

// AddFromFilter appends one song picked by f from candidates, using the
// weighted sampler via store.PickSongsForTemplate on a one-item template
// built from f. now, refPlaylist and avoid are forwarded for testability and
// anti-repetition.
func (p *Playlist) AddFromFilter(f *filter.Filter, candidates []*library.Song,
	now time.Time, refPlaylist []*library.Song, avoid *library.Song) bool {
	picked := store.PickSongsForTemplate(singleFilterTemplate(f), candidates, now, refPlaylist, avoid)
	if len(picked) == 0 {
		return false
	}
	p.Append(Item{Song: picked[0].Song, Filter: picked[0].Filter, HasDuration: f.HasDuration, DurationSec: f.DurationSec})
	return true
}

// AddFromTemplate appends one song per template item, skipping items for
// which nothing matched.
func (p *Playlist) AddFromTemplate(t *template.Template, candidates []*library.Song,
	now time.Time, refPlaylist []*library.Song, avoid *library.Song) int {
	picked := store.PickSongsForTemplate(t, candidates, now, refPlaylist, avoid)
	for _, pk := range picked {
		p.Append(Item{Song: pk.Song, Filter: pk.Filter, HasDuration: pk.Filter.HasDuration, DurationSec: pk.Filter.DurationSec})
	}
	return len(picked)
}

func singleFilterTemplate(f *filter.Filter) *template.Template {
	t := &template.Template{}
	t.Append(template.Item{Filter: f, HasDuration: f.HasDuration, DurationSec: f.DurationSec})
	return t
}

// UpdateTrackTimesFromCurrent stamps the current item's StartedAt (if
// unset) and the previous item's EndedAt's
// "update_track_times_from_current" operation, called whenever playback
// transitions to a new track.
func (p *Playlist) UpdateTrackTimesFromCurrent(now time.Time) {
	if p.CurrentIndex > 0 && p.Items[p.CurrentIndex-1].EndedAt.IsZero() {
		p.Items[p.CurrentIndex-1].EndedAt = now
	}
	if cur, ok := p.Current(); ok && cur.StartedAt.IsZero() {
		p.Items[p.CurrentIndex].StartedAt = now
	}
}

// ReferenceWindow returns the songs of the most recent n played/playing
// items (including the current one), most recent last, for use as the
// sampler's refPlaylist anti-repetition window.
func (p *Playlist) ReferenceWindow(n int) []*library.Song {
	end := p.CurrentIndex + 1
	if end > len(p.Items) {
		end = len(p.Items)
	}
	if end <= 0 {
		return nil
	}
	start := end - n
	if start < 0 {
		start = 0
	}
	out := make([]*library.Song, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, p.Items[i].Song)
	}
	return out
}
