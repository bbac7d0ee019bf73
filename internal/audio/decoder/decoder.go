// Package decoder drives a song's FormatAdapter through the Resampler into
// a PlaybackBuffer on a dedicated goroutine.
package decoder

import (
	"sync/atomic"

	"github.com/madmaxoft/skautan-go/internal/audio/format"
	"github.com/madmaxoft/skautan-go/internal/audio/playback"
	"github.com/madmaxoft/skautan-go/internal/audio/resample"
)

// Decoder owns the goroutine that decodes one song into a playback.Buffer.
// It's a one-shot object: start it with Start, stop it with Abort, and
// discard it once the song finishes or is abandoned.
type Decoder struct {
	path string
	dstFmt format.PCMFormat

	buffer *playback.Buffer

	abort atomic.Bool
	done chan struct{}

	lengthSeconds atomic.Value // float64
	err atomic.Value // error

	onFirstFrame func(srcFormat format.PCMFormat)
}

// New prepares a Decoder for path, resampling to dstFmt. onFirstFrame, if
// non-nil, is called once with the source file's native PCM format as soon
// as it's known.
func New(path string, dstFmt format.PCMFormat, onFirstFrame func(format.PCMFormat)) *Decoder {
	return &Decoder{
		path: path,
		dstFmt: dstFmt,
		buffer: playback.New(dstFmt),
		done: make(chan struct{}),
		onFirstFrame: onFirstFrame,
	}
}

// Buffer returns the PlaybackBuffer the decoder is filling. It may be read
// concurrently with decoding.
func (d *Decoder) Buffer() *playback.Buffer { return d.buffer }

// LengthSeconds returns the decoded stream's duration. It is stored only
// after the container's Decode call has returned, so ok is false while
// decoding is still in progress.
func (d *Decoder) LengthSeconds() (float64, bool) {
	v := d.lengthSeconds.Load()
	if v == nil {
		return 0, false
	}
	return v.(float64), true
}

// Err returns the error the decode goroutine terminated with, if any. Only
// valid after Done is closed.
func (d *Decoder) Err() error {
	v := d.err.Load()
	if v == nil {
		return nil
	}
	return v.(error)
}

// Done returns a channel closed when the decode goroutine has exited,
// either at end of stream, on error, or after Abort.
func (d *Decoder) Done() <-chan struct{} { return d.done }

// Start launches the decode goroutine.
func (d *Decoder) Start() {
	go d.run()
}

// Abort requests the decode goroutine stop as soon as possible. It does
// not block; wait on Done to observe completion.
func (d *Decoder) Abort() { d.abort.Store(true) }

func (d *Decoder) run() {
	defer close(d.done)
	defer d.buffer.MarkEOF()

	ctx, err := format.Open(d.path)
	if err != nil {
		d.err.Store(err)
		return
	}
	defer ctx.Close()

	var resampler *resample.Resampler
	firstFrame := true

	_, lengthSeconds, decodeErr := ctx.Decode(func(fr format.Frame) bool {
		if d.abort.Load() {
			return false
		}
		if firstFrame {
			firstFrame = false
			if d.onFirstFrame != nil {
				d.onFirstFrame(fr.Format)
			}
			resampler = resample.New(fr.Format, d.dstFmt)
		}
		out := resampler.Process(fr.PCM)
		if len(out) > 0 {
			// Copy out of the resampler's scratch buffer before handing it
			// to the playback buffer, which retains it indefinitely.
			cp := make([]byte, len(out))
			copy(cp, out)
			d.buffer.Append(cp)
		}
		return true
	}, &d.abort)

	d.lengthSeconds.Store(lengthSeconds)
	if decodeErr != nil {
		d.err.Store(decodeErr)
	}
}
