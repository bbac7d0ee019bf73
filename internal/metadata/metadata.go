// Package metadata extracts embedded tags and filename-encoded metadata
// into library.Tag values, grounded on
// moshee-sound's registry-dispatch style for format probing and on
// dhowden/tag for the actual embedded-tag parse.
package metadata

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dhowden/tag"

	"github.com/madmaxoft/skautan-go/internal/dated"
	"github.com/madmaxoft/skautan-go/internal/library"
)

// bpmRawKeys lists the Raw map keys dhowden/tag surfaces tempo under,
// across the container formats it understands (ID3v2's TBPM frame, MP4's
// tmpo atom, and Vorbis comments' informal BPM field).
var bpmRawKeys = []string{"TBPM", "tmpo", "BPM", "bpm"}

// ReadEmbedded opens path and extracts whatever title/artist/genre/tempo
// tags the container carries, stamped with now as the DatedOptional
// timestamp. Files with no recognized tag container (e.g. bare WAV) return
// a zero Tag and a nil error: absence of embedded tags isn't a failure.
func ReadEmbedded(path string, now time.Time) (library.Tag, error) {
	f, err := os.Open(path)
	if err != nil {
		return library.Tag{}, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		if err == tag.ErrNoTagsFound {
			return library.Tag{}, nil
		}
		return library.Tag{}, err
	}

	var out library.Tag
	if a := strings.TrimSpace(m.Artist); a != "" {
		out.Author = dated.NewAt(a, now)
	}
	if t := strings.TrimSpace(m.Title); t != "" {
		out.Title = dated.NewAt(t, now)
	}
	if g := strings.TrimSpace(m.Genre); g != "" {
		out.Genre = dated.NewAt(g, now)
	}
	if mpm, ok := rawBPM(m.Raw); ok {
		out.MeasuresPerMinute = dated.NewAt(mpm, now)
	}
	return out, nil
}

func rawBPM(raw map[string]interface{}) (float64, bool) {
	for _, key := range bpmRawKeys {
		v, ok := raw[key]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case int:
			return float64(n), true
		case int32:
			return float64(n), true
		case uint32:
			return float64(n), true
		case float64:
			return n, true
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// fileNamePattern matches the "<Genre> <MPM> - <Author> - <Title>.<ext>"
// convention used by the ballroom-dance practice libraries this scanner
// targets, e.g. "SW 29 - Frank Sinatra - Fly Me To The Moon.mp3".
var fileNamePattern = regexp.MustCompile(
	`^([A-Za-z]{2,3})\s*([0-9]{1,3}(?:\.[0-9]+)?)\s*-\s*(.+?)\s*-\s*(.+)$`)

// fallbackPattern matches the simpler "<Author> - <Title>.<ext>" form when
// no genre/tempo prefix is present.
var fallbackPattern = regexp.MustCompile(`^(.+?)\s*-\s*(.+)$`)

// ParseFileName derives a best-effort Tag from a song's base file name
// (without directory or extension), filename-heuristic
// fallback used when embedded tags are absent or incomplete. now stamps
// whatever fields are recognized.
func ParseFileName(path string, now time.Time) library.Tag {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	var out library.Tag
	if m := fileNamePattern.FindStringSubmatch(base); m != nil {
		genre, mpmStr, author, title := m[1], m[2], m[3], m[4]
		out.Genre = dated.NewAt(strings.ToUpper(genre), now)
		if mpm, err := strconv.ParseFloat(mpmStr, 64); err == nil {
			out.MeasuresPerMinute = dated.NewAt(mpm, now)
		}
		out.Author = dated.NewAt(author, now)
		out.Title = dated.NewAt(title, now)
		return out
	}
	if m := fallbackPattern.FindStringSubmatch(base); m != nil {
		out.Author = dated.NewAt(m[1], now)
		out.Title = dated.NewAt(m[2], now)
		return out
	}
	out.Title = dated.NewAt(base, now)
	return out
}
