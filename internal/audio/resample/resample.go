// Package resample converts decoded PCM between sample formats, channel
// layouts, and sample rates.
package resample

import (
	"encoding/binary"
	"math"

	"github.com/madmaxoft/skautan-go/internal/audio/format"
)

// Resampler converts PCM frames from a fixed source format to a fixed
// destination format. It owns a reusable scratch buffer so steady-state
// playback performs no per-chunk allocation once warmed up.
type Resampler struct {
	src, dst format.PCMFormat
	scratch []byte

	// carry holds source-format leftover bytes that didn't form a whole
	// frame in the previous call, prepended to the next input.
	carry []byte
}

// New builds a Resampler converting src to dst. dst.Channels must be one of
// format.ValidChannelCount's supported layouts.
func New(src, dst format.PCMFormat) *Resampler {
	return &Resampler{src: src, dst: dst}
}

// ensureCap grows r.scratch to at least n bytes. Per 's resolved
// Open Question, growth triggers when the required size is >= the current
// capacity (not only when it strictly exceeds it), so a request that
// exactly fills the buffer still reallocates with slack rather than
// leaving zero headroom for the next call.
func (r *Resampler) ensureCap(n int) []byte {
	if n >= cap(r.scratch) {
		newCap := n + n/2 + 64
		r.scratch = make([]byte, n, newCap)
	} else {
		r.scratch = r.scratch[:n]
	}
	return r.scratch
}

// Process converts one chunk of source-format PCM into the destination
// format. The returned slice aliases the Resampler's internal scratch
// buffer and is only valid until the next call to Process.
func (r *Resampler) Process(src []byte) []byte {
	srcFrameSize := r.src.BytesPerFrame()
	if srcFrameSize == 0 {
		return nil
	}
	buf := src
	if len(r.carry) > 0 {
		buf = append(append([]byte(nil), r.carry...), src...)
	}
	wholeFrames := len(buf) / srcFrameSize
	usable := wholeFrames * srcFrameSize
	leftover := buf[usable:]
	r.carry = append(r.carry[:0], leftover...)
	buf = buf[:usable]

	samples := decodeSamples(buf, r.src)
	samples = remixChannels(samples, r.src.Channels, r.dst.Channels)
	samples = resampleRate(samples, r.dst.Channels, r.src.SampleRate, r.dst.SampleRate)

	out := r.ensureCap(len(samples) * r.dst.Sample.BytesPerSample())
	encodeSamples(out, samples, r.dst.Sample)
	return out
}

// decodeSamples converts raw bytes in f's sample format to float64 in
// [-1, 1], interleaved by channel.
func decodeSamples(buf []byte, f format.PCMFormat) []float64 {
	n := len(buf) / f.Sample.BytesPerSample()
	out := make([]float64, n)
	switch f.Sample {
	case format.SampleInt16:
		for i := 0; i < n; i++ {
			v := int16(binary.LittleEndian.Uint16(buf[i*2 : i*2+2]))
			out[i] = float64(v) / 32768.0
		}
	case format.SampleFloat32:
		for i := 0; i < n; i++ {
			bits := binary.LittleEndian.Uint32(buf[i*4 : i*4+4])
			out[i] = float64(math.Float32frombits(bits))
		}
	}
	return out
}

func encodeSamples(dst []byte, samples []float64, sf format.SampleFormat) {
	switch sf {
	case format.SampleInt16:
		for i, s := range samples {
			v := s * 32768.0
			if v > 32767 {
				v = 32767
			} else if v < -32768 {
				v = -32768
			}
			binary.LittleEndian.PutUint16(dst[i*2:i*2+2], uint16(int16(v)))
		}
	case format.SampleFloat32:
		for i, s := range samples {
			binary.LittleEndian.PutUint32(dst[i*4:i*4+4], math.Float32bits(float32(s)))
		}
	}
}

// remixChannels upmixes or downmixes interleaved samples from srcCh to
// dstCh channels. Downmix to mono averages all source channels; upmix to
// stereo or more duplicates channel 0/1 across the extra channels (the
// common "center + surround silence" convention).
func remixChannels(samples []float64, srcCh, dstCh int) []float64 {
	if srcCh == dstCh || srcCh == 0 {
		return samples
	}
	frames := len(samples) / srcCh
	out := make([]float64, frames*dstCh)
	for i := 0; i < frames; i++ {
		in := samples[i*srcCh : i*srcCh+srcCh]
		outFrame := out[i*dstCh : i*dstCh+dstCh]
		switch {
		case dstCh == 1:
			var sum float64
			for _, v := range in {
				sum += v
			}
			outFrame[0] = sum / float64(srcCh)
		case srcCh == 1:
			for c := range outFrame {
				outFrame[c] = in[0]
			}
		default:
			for c := range outFrame {
				if c < len(in) {
					outFrame[c] = in[c]
				}
				// extra destination channels (e.g. surround from stereo)
				// are left silent.
			}
		}
	}
	return out
}

// resampleRate converts interleaved multi-channel samples from srcRate to
// dstRate using linear interpolation between adjacent source frames.
func resampleRate(samples []float64, channels, srcRate, dstRate int) []float64 {
	if srcRate == dstRate || srcRate == 0 || channels == 0 {
		return samples
	}
	srcFrames := len(samples) / channels
	if srcFrames == 0 {
		return samples
	}
	dstFrames := int(float64(srcFrames) * float64(dstRate) / float64(srcRate))
	out := make([]float64, dstFrames*channels)
	ratio := float64(srcRate) / float64(dstRate)
	for i := 0; i < dstFrames; i++ {
		srcPos := float64(i) * ratio
		i0 := int(srcPos)
		i1 := i0 + 1
		if i1 >= srcFrames {
			i1 = srcFrames - 1
		}
		if i0 >= srcFrames {
			i0 = srcFrames - 1
		}
		frac := srcPos - float64(i0)
		for c := 0; c < channels; c++ {
			a := samples[i0*channels+c]
			b := samples[i1*channels+c]
			out[i*channels+c] = a + (b-a)*frac
		}
	}
	return out
}
