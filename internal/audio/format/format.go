// Package format opens audio files, probes their container, and produces
// decoded PCM frames.
package format

import "errors"

// SampleFormat is the on-the-wire representation of a decoded sample.
// Only the two formats permitted downstream by are modeled.
type SampleFormat int

const (
	SampleInt16 SampleFormat = iota
	SampleFloat32
)

// BytesPerSample returns the size in bytes of one sample in f.
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case SampleInt16:
		return 2
	case SampleFloat32:
		return 4
	}
	return 0
}

// PCMFormat fully describes a PCM stream's shape.
type PCMFormat struct {
	Channels int
	SampleRate int
	Sample SampleFormat
}

// BytesPerFrame returns the number of bytes in one multi-channel sample
// frame.
func (f PCMFormat) BytesPerFrame() int {
	return f.Channels * f.Sample.BytesPerSample()
}

// validChannelCounts are the channel layouts the resampler knows how to
// target.
var validChannelCounts = map[int]bool{1: true, 2: true, 4: true, 5: true, 6: true}

// ValidChannelCount reports whether n is one of the supported output
// channel layouts.
func ValidChannelCount(n int) bool { return validChannelCounts[n] }

// Errors named by 's failure modes. All are reported as
// errors; no partial initialization is ever left behind (callers that get
// an error from Open should not use the returned Context).
var (
	ErrFileNotFound = errors.New("format: file not found")
	ErrUnsupportedCodec = errors.New("format: unsupported codec")
	ErrUnsupportedChannels = errors.New("format: unsupported output channel count")
	ErrUnsupportedSample = errors.New("format: unsupported sample type")
	ErrNoAudioStream = errors.New("format: no audio stream found")
)

// Sink receives resampled PCM bytes from a Context's decode loop. Push
// returns false when the sink refuses further data, signaling the decoder
// to terminate.
type Sink interface {
	Push(pcm []byte) bool
	// DestFormat returns the format samples should be resampled to before
	// being pushed. It's read once, lazily, on the first decoded frame.
	DestFormat() PCMFormat
}

// Frame is one chunk of raw decoded PCM in its native (source) format,
// passed to a Sink's underlying resampler.
type Frame struct {
	Format PCMFormat
	PCM []byte
}
