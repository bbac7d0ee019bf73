package format

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync/atomic"
)

func init() {
	RegisterFormat("wav", []byte("RIFF"), decodeWAV)
}

// riffChunkHeader mirrors the 8-byte chunk header shared by every RIFF
// sub-chunk: a 4-byte ASCII ID followed by a little-endian length.
type riffChunkHeader struct {
	ID [4]byte
	Length uint32
}

// decodeWAV implements a minimal PCM WAVE reader: it walks RIFF chunks
// looking for "fmt " and "data", verifies the format is uncompressed PCM
// in a supported bit depth, then streams "data" in fixed-size chunks
// through push. Only PCM (tag 1) 16-bit and IEEE-float (tag 3) 32-bit are
// supported; anything else surfaces as ErrUnsupportedSample.
func decodeWAV(f *os.File, push func(Frame) bool, shouldAbort *atomic.Bool) (PCMFormat, float64, error) {
	var riffHeader riffChunkHeader
	if err := binary.Read(f, binary.LittleEndian, &riffHeader); err != nil {
		return PCMFormat{}, 0, fmt.Errorf("format: wav: read RIFF header: %w", err)
	}
	var wave [4]byte
	if _, err := io.ReadFull(f, wave[:]); err != nil {
		return PCMFormat{}, 0, fmt.Errorf("format: wav: read WAVE tag: %w", err)
	}
	if string(wave[:]) != "WAVE" {
		return PCMFormat{}, 0, fmt.Errorf("format: wav: not a WAVE file: %w", ErrUnsupportedCodec)
	}

	var (
		audioFormat uint16
		numChannels uint16
		sampleRate uint32
		bitsPerSample uint16
		haveFmt bool
	)

	for {
		var ch riffChunkHeader
		if err := binary.Read(f, binary.LittleEndian, &ch); err != nil {
			if err == io.EOF {
				break
			}
			return PCMFormat{}, 0, fmt.Errorf("format: wav: read chunk header: %w", err)
		}
		id := string(ch.ID[:])
		switch id {
		case "fmt ":
			body := make([]byte, ch.Length)
			if _, err := io.ReadFull(f, body); err != nil {
				return PCMFormat{}, 0, fmt.Errorf("format: wav: read fmt chunk: %w", err)
			}
			if len(body) < 16 {
				return PCMFormat{}, 0, fmt.Errorf("format: wav: fmt chunk too short: %w", ErrUnsupportedCodec)
			}
			audioFormat = binary.LittleEndian.Uint16(body[0:2])
			numChannels = binary.LittleEndian.Uint16(body[2:4])
			sampleRate = binary.LittleEndian.Uint32(body[4:8])
			bitsPerSample = binary.LittleEndian.Uint16(body[14:16])
			haveFmt = true

		case "data":
			if !haveFmt {
				return PCMFormat{}, 0, fmt.Errorf("format: wav: data chunk before fmt chunk: %w", ErrUnsupportedCodec)
			}
			var sample SampleFormat
			switch {
			case audioFormat == 1 && bitsPerSample == 16:
				sample = SampleInt16
			case audioFormat == 3 && bitsPerSample == 32:
				sample = SampleFloat32
			default:
				return PCMFormat{}, 0, fmt.Errorf("format: wav: tag=%d bits=%d: %w", audioFormat, bitsPerSample, ErrUnsupportedSample)
			}
			pcmFormat := PCMFormat{Channels: int(numChannels), SampleRate: int(sampleRate), Sample: sample}
			bytesPerFrame := pcmFormat.BytesPerFrame()
			if bytesPerFrame == 0 {
				return PCMFormat{}, 0, fmt.Errorf("format: wav: zero-size frame: %w", ErrUnsupportedCodec)
			}
			totalFrames := int64(ch.Length) / int64(bytesPerFrame)
			lengthSeconds := 0.0
			if sampleRate > 0 {
				lengthSeconds = float64(totalFrames) / float64(sampleRate)
			}

			const chunkFrames = 4096
			buf := make([]byte, chunkFrames*bytesPerFrame)
			remaining := int64(ch.Length)
			for remaining > 0 {
				if shouldAbort != nil && shouldAbort.Load() {
					return pcmFormat, lengthSeconds, nil
				}
				want := int64(len(buf))
				if remaining < want {
					want = remaining
				}
				n, err := io.ReadFull(f, buf[:want])
				if err != nil && err != io.ErrUnexpectedEOF {
					return pcmFormat, lengthSeconds, fmt.Errorf("format: wav: read data: %w", err)
				}
				remaining -= int64(n)
				if n == 0 {
					break
				}
				if !push(Frame{Format: pcmFormat, PCM: buf[:n]}) {
					return pcmFormat, lengthSeconds, nil
				}
			}
			return pcmFormat, lengthSeconds, nil

		default:
			// Skip unknown chunks (e.g. "LIST", "fact"). RIFF chunks are
			// word-aligned: a byte of padding follows odd-length chunks.
			skip := int64(ch.Length)
			if skip%2 != 0 {
				skip++
			}
			if _, err := f.Seek(skip, io.SeekCurrent); err != nil {
				return PCMFormat{}, 0, fmt.Errorf("format: wav: skip chunk %q: %w", id, err)
			}
		}
	}
	return PCMFormat{}, 0, fmt.Errorf("format: wav: no data chunk: %w", ErrNoAudioStream)
}
