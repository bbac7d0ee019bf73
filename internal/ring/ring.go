// Package ring implements a bounded single-producer/single-consumer byte
// queue with blocking read/write, EOF, and cooperative abort. No other
// package in this module imports it.
package ring

import (
	"errors"
	"sync"
)

// ErrAborted is the error Write returns when the buffer is aborted before
// all of p was queued (n then counts the bytes that were). Read does not
// return it: an abort ends a Read early with a short count and a nil error.
var ErrAborted = errors.New("ring: aborted")

// Buffer is a fixed-size byte ring. One reserved slot keeps "full" and
// "empty" distinguishable, so it holds at most size-1 bytes at a time.
type Buffer struct {
	mu sync.Mutex
	readable *sync.Cond // signaled when data becomes available (or abort/eof)
	writable *sync.Cond // signaled when space becomes available (or abort)

	buf []byte
	readPos int
	writePos int
	count int // bytes currently queued
	eof bool
	aborted bool
}

// New returns a Buffer that holds at most size-1 bytes. 512 KiB is a
// typical size for this buffer in front of an audio decoder.
func New(size int) *Buffer {
	if size < 2 {
		size = 2
	}
	b := &Buffer{buf: make([]byte, size)}
	b.readable = sync.NewCond(&b.mu)
	b.writable = sync.NewCond(&b.mu)
	return b
}

// Size returns the reserved capacity (size-1 usable bytes).
func (b *Buffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

// AvailableRead returns the number of bytes currently queued for reading.
func (b *Buffer) AvailableRead() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// AvailableWrite returns the number of bytes that can be written without
// blocking. AvailableWrite + AvailableRead == len(buf)-1 always holds.
func (b *Buffer) AvailableWrite() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.availableWriteLocked()
}

func (b *Buffer) availableWriteLocked() int {
	return len(b.buf) - 1 - b.count
}

// Write blocks until all of p has been queued, the buffer is aborted, or
// write_eof has already been called (a programming error, reported as an
// error). On abort it returns having written a short prefix of p; n is the
// number of bytes actually queued.
func (b *Buffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for len(p) > 0 {
		if b.aborted {
			return n, ErrAborted
		}
		if b.eof {
			return n, errors.New("ring: write after write_eof")
		}
		avail := b.availableWriteLocked()
		if avail == 0 {
			b.writable.Wait()
			continue
		}
		chunk := avail
		if chunk > len(p) {
			chunk = len(p)
		}
		b.writeChunkLocked(p[:chunk])
		p = p[chunk:]
		n += chunk
		b.readable.Signal()
	}
	return n, nil
}

// writeChunkLocked copies chunk into the ring, wrapping as needed. Caller
// holds b.mu and has verified there's enough room.
func (b *Buffer) writeChunkLocked(chunk []byte) {
	tail := len(b.buf) - b.writePos
	if tail >= len(chunk) {
		copy(b.buf[b.writePos:], chunk)
	} else {
		copy(b.buf[b.writePos:], chunk[:tail])
		copy(b.buf, chunk[tail:])
	}
	b.writePos = (b.writePos + len(chunk)) % len(b.buf)
	b.count += len(chunk)
}

// Read blocks until dst is filled, EOF is reached, or the buffer is
// aborted, returning the number of bytes actually copied. A return of
// n < len(dst) with a nil error means end-of-stream (EOF after drain, or
// abort); callers distinguish the two via Aborted.
func (b *Buffer) Read(dst []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for len(dst) > 0 {
		if b.count == 0 {
			if b.aborted {
				return n, nil
			}
			if b.eof {
				return n, nil
			}
			b.readable.Wait()
			continue
		}
		chunk := b.count
		if chunk > len(dst) {
			chunk = len(dst)
		}
		b.readChunkLocked(dst[:chunk])
		dst = dst[chunk:]
		n += chunk
		b.writable.Signal()
	}
	return n, nil
}

func (b *Buffer) readChunkLocked(dst []byte) {
	tail := len(b.buf) - b.readPos
	if tail >= len(dst) {
		copy(dst, b.buf[b.readPos:])
	} else {
		copy(dst, b.buf[b.readPos:])
		copy(dst[tail:], b.buf[:len(dst)-tail])
	}
	b.readPos = (b.readPos + len(dst)) % len(b.buf)
	b.count -= len(dst)
}

// WriteEOF signals that no more data will be written. Subsequent reads
// drain any remaining queued bytes and then report end-of-stream.
func (b *Buffer) WriteEOF() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.eof = true
	b.readable.Broadcast()
}

// Abort causes all pending and future reads/writes to return immediately.
// The flag is sticky: once set it can never be cleared.
func (b *Buffer) Abort() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.aborted = true
	b.readable.Broadcast()
	b.writable.Broadcast()
}

// Aborted reports whether Abort has been called.
func (b *Buffer) Aborted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.aborted
}

// WaitForData blocks until bytes are available to read, EOF has been
// signaled, or the buffer is aborted.
func (b *Buffer) WaitForData() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.count == 0 && !b.eof && !b.aborted {
		b.readable.Wait()
	}
}
