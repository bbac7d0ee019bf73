// Package playback implements PlaybackBuffer, the sample-addressable
// buffer sitting between a decoded song and the output pull thread, per
//.
package playback

import (
	"math"
	"sync"

	"github.com/madmaxoft/skautan-go/internal/audio/format"
)

// Buffer accumulates already-resampled PCM (in the output's destination
// format) and lets a single reader pull fixed-size chunks, optionally
// applying a linear fade-out that starts at the read position current when
// StartFadeOut is called.
type Buffer struct {
	mu sync.Mutex
	format format.PCMFormat
	data []byte
	read int // byte offset of the next unread sample

	fadeStart int // byte offset where the fade-out begins; -1 if none
	fadeLength int // bytes over which the fade ramps from 1.0 to 0.0

	eof bool
}

// New creates an empty Buffer for PCM in f.
func New(f format.PCMFormat) *Buffer {
	return &Buffer{format: f, fadeStart: -1}
}

// Append adds decoded PCM to the end of the buffer. Safe to call
// concurrently with Read/Seek from a different goroutine (the decoder
// writes, the output thread reads).
func (b *Buffer) Append(pcm []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = append(b.data, pcm...)
}

// MarkEOF records that no further Append calls will occur.
func (b *Buffer) MarkEOF() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.eof = true
}

// AtEOF reports whether the buffer has been fully written and fully read.
func (b *Buffer) AtEOF() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.eof && b.read >= len(b.data)
}

// Available returns the number of unread bytes currently buffered.
func (b *Buffer) Available() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data) - b.read
}

// Read copies up to len(dst) unread bytes into dst, applying any active
// fade-out, and returns the number of bytes copied. It never blocks: if
// fewer bytes are currently buffered than requested, it returns what's
// available (0 if none, even if not yet at EOF).
func (b *Buffer) Read(dst []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	avail := len(b.data) - b.read
	if avail <= 0 {
		return 0
	}
	n := len(dst)
	if n > avail {
		n = avail
	}
	copy(dst[:n], b.data[b.read:b.read+n])

	if b.fadeStart >= 0 {
		applyFade(dst[:n], b.read, b.fadeStart, b.fadeLength, b.format)
	}

	b.read += n
	return n
}

// Seek repositions the read cursor to the given sample-frame index,
// clamped to the buffered range. It cancels any in-progress fade, per
// (a seek elsewhere in the song should not carry a
// stale fade into the new position).
func (b *Buffer) Seek(frame int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	byteOffset := int(frame) * b.format.BytesPerFrame()
	if byteOffset < 0 {
		byteOffset = 0
	}
	if byteOffset > len(b.data) {
		byteOffset = len(b.data)
	}
	b.read = byteOffset
	b.fadeStart = -1
}

// StartFadeOut begins a linear fade-out of the given duration (in sample
// frames) starting at the current read position, ramping from full volume
// to silence over fadeFrames frames. The fade does not end the buffer:
// reads past the ramp return silent samples until the buffered data runs
// out, and AtEOF does not take the fade into account. Seek cancels it.
func (b *Buffer) StartFadeOut(fadeFrames int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fadeStart = b.read
	b.fadeLength = fadeFrames * b.format.BytesPerFrame()
	if b.fadeLength <= 0 {
		b.fadeLength = b.format.BytesPerFrame()
	}
}

// applyFade scales dst's samples in place by the per-sample-frame linear
// ramp, based on each byte's distance from fadeStart. Only int16 and
// float32 PCM (the two formats this module understands) are supported.
func applyFade(dst []byte, readPos, fadeStart, fadeLength int, f format.PCMFormat) {
	frameSize := f.BytesPerFrame()
	if frameSize == 0 || fadeLength <= 0 {
		return
	}
	for off := 0; off+frameSize <= len(dst); off += frameSize {
		absPos := readPos + off
		distance := absPos + frameSize - fadeStart
		gain := 1.0 - float64(distance)/float64(fadeLength)
		if gain < 0 {
			gain = 0
		}
		if gain > 1 {
			gain = 1
		}
		scaleFrame(dst[off:off+frameSize], gain, f.Sample)
	}
}

func scaleFrame(frame []byte, gain float64, sf format.SampleFormat) {
	switch sf {
	case format.SampleInt16:
		for i := 0; i+1 < len(frame); i += 2 {
			v := int16(uint16(frame[i]) | uint16(frame[i+1])<<8)
			v = int16(float64(v) * gain)
			frame[i] = byte(v)
			frame[i+1] = byte(v >> 8)
		}
	case format.SampleFloat32:
		for i := 0; i+3 < len(frame); i += 4 {
			bits := uint32(frame[i]) | uint32(frame[i+1])<<8 | uint32(frame[i+2])<<16 | uint32(frame[i+3])<<24
			v := math.Float32frombits(bits) * float32(gain)
			bits = math.Float32bits(v)
			frame[i] = byte(bits)
			frame[i+1] = byte(bits >> 8)
			frame[i+2] = byte(bits >> 16)
			frame[i+3] = byte(bits >> 24)
		}
	}
}
