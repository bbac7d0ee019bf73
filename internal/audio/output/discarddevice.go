package output

import "github.com/madmaxoft/skautan-go/internal/audio/format"

// DiscardDevice is a Device that accepts and drops every PCM chunk,
// standing in for a real soundcard binding on platforms/builds that don't
// wire one up (this corpus carries no concrete soundcard API; see
// PCMFileDevice for the one real sink). It lets Player drive a full
// playback pipeline -- decode, resample, tempo/volume, pull thread -- with
// nowhere for the audio to actually go, e.g. under test or when running
// headless.
type DiscardDevice struct {
	fmt format.PCMFormat
}

// NewDiscardDevice returns a Device in format f that discards every Write.
func NewDiscardDevice(f format.PCMFormat) (*DiscardDevice, error) {
	return &DiscardDevice{fmt: f}, nil
}

func (d *DiscardDevice) Format() format.PCMFormat { return d.fmt }
func (d *DiscardDevice) Write(pcm []byte) error { return nil }
func (d *DiscardDevice) Close() error { return nil }
