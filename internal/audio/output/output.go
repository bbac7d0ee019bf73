// Package output drives a playback.Buffer through a sound Device, applying
// live tempo and volume adjustment and tracking playback position, per
//.
package output

import (
	"encoding/binary"
	"math"
	"sync/atomic"
	"time"

	"github.com/madmaxoft/skautan-go/internal/audio/format"
	"github.com/madmaxoft/skautan-go/internal/audio/playback"
)

// Device abstracts the concrete soundcard binding so the pull thread never
// depends on a specific OS audio API. Write should block until pcm has been
// accepted (or the device decides to drop it), matching the blocking
// write semantics of real soundcard APIs this is modeled on.
type Device interface {
	Format() format.PCMFormat
	Write(pcm []byte) error
	Close() error
}

// pullChunkFrames is the number of destination sample-frames requested from
// the buffer per pull-thread iteration.
const pullChunkFrames = 1024

// Output pulls PCM from a playback.Buffer, applies tempo (playback-rate)
// and volume scaling, and writes it to a Device on a dedicated goroutine.
type Output struct {
	device Device
	buffer *playback.Buffer
	format format.PCMFormat

	tempoCoeff atomic.Value // float64, 1.0 == unchanged
	volumeCoeff atomic.Value // float64, 1.0 == unchanged

	framesWritten atomic.Int64
	stop chan struct{}
	done chan struct{}

	onPosition func(seconds float64)
}

// New creates an Output pulling from buffer and writing to device, which
// must already be opened in buffer's format.
func New(device Device, buffer *playback.Buffer, onPosition func(float64)) *Output {
	o := &Output{
		device: device,
		buffer: buffer,
		format: device.Format(),
		stop: make(chan struct{}),
		done: make(chan struct{}),
		onPosition: onPosition,
	}
	o.tempoCoeff.Store(1.0)
	o.volumeCoeff.Store(1.0)
	return o
}

// SetTempoCoeff adjusts playback rate; 1.0 is unchanged, >1.0 plays faster.
// Applied by linear resampling within the pull thread.
func (o *Output) SetTempoCoeff(c float64) {
	if c <= 0 {
		c = 1.0
	}
	o.tempoCoeff.Store(c)
}

// SetVolumeCoeff adjusts output gain; 1.0 is unchanged.
func (o *Output) SetVolumeCoeff(c float64) {
	if c < 0 {
		c = 0
	}
	o.volumeCoeff.Store(c)
}

// PositionSeconds returns the stream position implied by frames written so
// far, "position tracking via frame counter" note. This
// tracks device-write progress, not the listener's audible position (which
// lags by the device's own internal buffering).
func (o *Output) PositionSeconds() float64 {
	if o.format.SampleRate == 0 {
		return 0
	}
	return float64(o.framesWritten.Load()) / float64(o.format.SampleRate)
}

// Start launches the pull thread.
func (o *Output) Start() { go o.run() }

// Stop requests the pull thread exit and blocks until it has.
func (o *Output) Stop() {
	close(o.stop)
	<-o.done
}

func (o *Output) run() {
	defer close(o.done)
	frameSize := o.format.BytesPerFrame()
	if frameSize == 0 {
		return
	}
	chunk := make([]byte, pullChunkFrames*frameSize)

	for {
		select {
		case <-o.stop:
			return
		default:
		}

		n := o.buffer.Read(chunk)
		if n == 0 {
			if o.buffer.AtEOF() {
				return
			}
			// Starved but not finished: back off briefly rather than
			// busy-spin waiting for the decoder to catch up.
			time.Sleep(5 * time.Millisecond)
			continue
		}

		pcm := chunk[:n]
		if v := o.volumeCoeff.Load(); v != nil && v.(float64) != 1.0 {
			pcm = applyVolume(pcm, v.(float64), o.format.Sample)
		}
		if t := o.tempoCoeff.Load(); t != nil && t.(float64) != 1.0 {
			pcm = applyTempo(pcm, t.(float64), o.format)
		}

		if err := o.device.Write(pcm); err != nil {
			return
		}
		o.framesWritten.Add(int64(len(pcm) / frameSize))
		if o.onPosition != nil {
			o.onPosition(o.PositionSeconds())
		}
	}
}

func applyVolume(pcm []byte, gain float64, sf format.SampleFormat) []byte {
	out := make([]byte, len(pcm))
	copy(out, pcm)
	switch sf {
	case format.SampleInt16:
		for i := 0; i+1 < len(out); i += 2 {
			v := int16(binary.LittleEndian.Uint16(out[i : i+2]))
			scaled := float64(v) * gain
			if scaled > 32767 {
				scaled = 32767
			} else if scaled < -32768 {
				scaled = -32768
			}
			binary.LittleEndian.PutUint16(out[i:i+2], uint16(int16(scaled)))
		}
	case format.SampleFloat32:
		for i := 0; i+3 < len(out); i += 4 {
			bits := binary.LittleEndian.Uint32(out[i : i+4])
			v := math.Float32frombits(bits) * float32(gain)
			binary.LittleEndian.PutUint32(out[i:i+4], math.Float32bits(v))
		}
	}
	return out
}

// applyTempo returns a copy of pcm resampled on the time axis only (no
// pitch correction; pcm itself is not modified, and is returned as is when
// coeff is 1.0) by the given coefficient: >1.0 consumes source frames faster, producing
// a shorter, faster-sounding chunk.
func applyTempo(pcm []byte, coeff float64, f format.PCMFormat) []byte {
	frameSize := f.BytesPerFrame()
	if frameSize == 0 || coeff == 1.0 {
		return pcm
	}
	srcFrames := len(pcm) / frameSize
	dstFrames := int(float64(srcFrames) / coeff)
	out := make([]byte, dstFrames*frameSize)
	for i := 0; i < dstFrames; i++ {
		srcIdx := int(float64(i) * coeff)
		if srcIdx >= srcFrames {
			srcIdx = srcFrames - 1
		}
		copy(out[i*frameSize:(i+1)*frameSize], pcm[srcIdx*frameSize:(srcIdx+1)*frameSize])
	}
	return out
}
