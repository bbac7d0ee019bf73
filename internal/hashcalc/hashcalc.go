// Package hashcalc computes the content hash and exact duration used to
// detect duplicate songs, grounded on
// update_music/scan.go's computeAudioSha1.
package hashcalc

import (
	"crypto/sha1"
	"fmt"
	"sync/atomic"

	"github.com/madmaxoft/skautan-go/internal/audio/format"
	"github.com/madmaxoft/skautan-go/internal/library"
)

// Result is the outcome of hashing one file.
type Result struct {
	Hash library.Hash
	LengthSeconds float64
}

// Compute decodes path's full audio payload, hashing the decoded PCM bytes
// (not the container bytes, so two files with identical audio but
// different tags or container framing still hash equal, per
// §4.11's duplicate-detection requirement) and accumulating the precise
// duration reported by the decoder.
//
// shouldAbort, if non-nil, is polled between decode chunks so this can run
// as a cancelable taskpool.Task.
func Compute(path string, shouldAbort *atomic.Bool) (Result, error) {
	ctx, err := format.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("hashcalc: %w", err)
	}
	defer ctx.Close()

	h := sha1.New()
	_, lengthSeconds, err := ctx.Decode(func(fr format.Frame) bool {
		h.Write(fr.PCM)
		return true
	}, shouldAbort)
	if err != nil {
		return Result{}, fmt.Errorf("hashcalc: %s: %w", path, err)
	}

	var hash library.Hash
	copy(hash[:], h.Sum(nil))
	return Result{Hash: hash, LengthSeconds: lengthSeconds}, nil
}
