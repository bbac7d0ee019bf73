package output

import (
	"bufio"
	"os"

	"github.com/madmaxoft/skautan-go/internal/audio/format"
)

// PCMFileDevice is a Device that writes raw PCM to a file instead of a
// soundcard, used by cmd/skautan's -render-to flag for headless rendering
// and for tests that need a deterministic, inspectable sink.
type PCMFileDevice struct {
	f *os.File
	w *bufio.Writer
	fmt format.PCMFormat
}

// NewPCMFileDevice creates a file-backed Device at path, truncating any
// existing contents. The file holds headerless interleaved PCM in f.
func NewPCMFileDevice(path string, f format.PCMFormat) (*PCMFileDevice, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &PCMFileDevice{f: file, w: bufio.NewWriter(file), fmt: f}, nil
}

func (d *PCMFileDevice) Format() format.PCMFormat { return d.fmt }

func (d *PCMFileDevice) Write(pcm []byte) error {
	_, err := d.w.Write(pcm)
	return err
}

func (d *PCMFileDevice) Close() error {
	if err := d.w.Flush(); err != nil {
		d.f.Close()
		return err
	}
	return d.f.Close()
}
