package store

import (
	"time"

	"github.com/madmaxoft/skautan-go/internal/filter"
	"github.com/madmaxoft/skautan-go/internal/library"
	"github.com/madmaxoft/skautan-go/internal/sampler"
	"github.com/madmaxoft/skautan-go/internal/template"
)

// PickSongsForTemplate runs every item in t through the weighted sampler
// against candidates, in the shape template.Template.PickSongs expects.
// refPlaylist and avoid are forwarded to sampler.PickSong unchanged; now is
// injected for testability. This is the concrete implementation
// 's template/store split calls for: internal/template stays
// free of internal/store and internal/sampler imports, and this function
// supplies the matchFunc closure at the call site.
func PickSongsForTemplate(t *template.Template, candidates []*library.Song,
	now time.Time, refPlaylist []*library.Song, avoid *library.Song) []struct {
	Song *library.Song
	Filter *filter.Filter
} {
	return t.PickSongs(func(f *filter.Filter, hasDuration bool, durationSec float64) (*library.Song, bool) {
		return sampler.PickSong(candidates, f, now, refPlaylist, avoid, -1)
	})
}
