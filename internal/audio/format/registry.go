package format

import (
	"fmt"
	"os"
	"sync/atomic"
)

// decodeFunc decodes the opened file's PCM payload, pushing Frames through
// push until EOF or push returns false. shouldAbort is polled between
// chunks so a caller can cancel a long decode.
type decodeFunc func(f *os.File, push func(Frame) bool, shouldAbort *atomic.Bool) (pcmFormat PCMFormat, lengthSeconds float64, err error)

type registration struct {
	name string
	magic []byte
	decode decodeFunc
}

var registry []registration

// RegisterFormat adds a container format to the registry, matched by a
// byte-for-byte magic prefix. Modeled on moshee-sound's sound.RegisterFormat,
// itself modeled on image.RegisterFormat: later registrations are preferred
// on magic conflicts, so the common formats are registered last.
func RegisterFormat(name string, magic []byte, decode decodeFunc) {
	registry = append([]registration{{name, magic, decode}}, registry...)
}

func sniff(header []byte) *registration {
	for i := range registry {
		r := &registry[i]
		if len(header) >= len(r.magic) && string(header[:len(r.magic)]) == string(r.magic) {
			return r
		}
	}
	return nil
}

// Context is an opened, identified audio file ready to decode.
type Context struct {
	path string
	file *os.File
	reg *registration
	format PCMFormat // populated after Decode's header parse
}

// Open identifies path's container format by magic sniff and prepares it for
// decoding. The caller must call Close when done.
func Open(path string) (*Context, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("format: open %s: %w", path, ErrFileNotFound)
		}
		return nil, fmt.Errorf("format: open %s: %w", path, err)
	}
	header := make([]byte, 16)
	n, _ := f.Read(header)
	reg := sniff(header[:n])
	if reg == nil {
		f.Close()
		return nil, fmt.Errorf("format: %s: %w", path, ErrUnsupportedCodec)
	}
	if _, err := f.Seek(0, os.SEEK_SET); err != nil {
		f.Close()
		return nil, err
	}
	return &Context{path: path, file: f, reg: reg}, nil
}

func (c *Context) Close() error { return c.file.Close() }

// FormatName returns the sniffed container's registered name (e.g. "wav").
func (c *Context) FormatName() string { return c.reg.name }

// Decode drives the container-specific decodeFunc, pushing Frames to push
// until end of stream, push refuses more data, or shouldAbort is set. It
// returns the source PCM format and the stream's total length in seconds.
func (c *Context) Decode(push func(Frame) bool, shouldAbort *atomic.Bool) (PCMFormat, float64, error) {
	format, lengthSeconds, err := c.reg.decode(c.file, push, shouldAbort)
	c.format = format
	return format, lengthSeconds, err
}
