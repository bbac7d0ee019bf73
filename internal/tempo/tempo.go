// Package tempo implements the beats-per-minute detector described in
//, grounded on original_source/TempoDetector.cpp. Detect runs four stages:
// level extraction, beat picking, histogram folding, and genre-aware MPM
// adjustment. The confidence is the winning histogram bin's share of the
// votes; tempos are not grouped into compatibility classes.
package tempo

import (
	"math"
	"sort"

	"github.com/madmaxoft/skautan-go/internal/audio/format"
	"github.com/madmaxoft/skautan-go/internal/library"
)

// LevelAlgorithm selects one of the four level-extraction strategies
// TempoDetector.cpp offers.
type LevelAlgorithm int

const (
	// SumDist sums the absolute sample-to-sample difference within each
	// window, cheaply tracking how "busy" a window is.
	SumDist LevelAlgorithm = iota
	// MinMax uses the peak-to-peak amplitude within each window.
	MinMax
	// DiscreetSineTransform projects each window onto a single reference
	// sine at the window's center frequency (a cheap single-bin DFT).
	DiscreetSineTransform
	// SumDistMinMax multiplies SumDist and MinMax, emphasizing windows
	// that are both busy and loud (percussive transients).
	SumDistMinMax
)

// windowMS and stepMS define the sliding analysis window, matched to
// TempoDetector.cpp's default 10ms hop over a 100ms window.
const (
	windowMS = 100
	stepMS = 10
)

// Options tunes the detector's genre-aware MPM adjustment.
type Options struct {
	Algorithm LevelAlgorithm
	Genre string // empty disables genre-aware octave correction
}

// Result is the detector's output for one song.
type Result struct {
	MeasuresPerMinute float64
	Confidence float64 // fraction of beat-interval votes in the winning histogram bin
}

// Detect runs the four-stage pipeline over mono-summed PCM samples
// (already decoded to float64 in [-1,1] at sampleRate) and returns the
// estimated tempo.
func Detect(samples []float64, sampleRate int, opts Options) Result {
	levels := extractLevels(samples, sampleRate, opts.Algorithm)
	beatIntervalsMS := pickBeats(levels, stepMS)
	if len(beatIntervalsMS) == 0 {
		return Result{}
	}
	mpm, confidence := foldHistogram(beatIntervalsMS)
	if opts.Genre != "" {
		mpm = adjustToGenre(mpm, opts.Genre)
	}
	return Result{MeasuresPerMinute: mpm, Confidence: confidence}
}

// DetectFromFormat is a convenience wrapper decoding PCM bytes in f's
// layout into mono float64 samples before calling Detect.
func DetectFromFormat(pcm []byte, f format.PCMFormat, opts Options) Result {
	samples := toMono(pcm, f)
	return Detect(samples, f.SampleRate, opts)
}

func toMono(pcm []byte, f format.PCMFormat) []float64 {
	frameSize := f.BytesPerFrame()
	if frameSize == 0 {
		return nil
	}
	n := len(pcm) / frameSize
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		frame := pcm[i*frameSize : (i+1)*frameSize]
		var sum float64
		for c := 0; c < f.Channels; c++ {
			off := c * f.Sample.BytesPerSample()
			sum += sampleAt(frame[off:], f.Sample)
		}
		out[i] = sum / float64(f.Channels)
	}
	return out
}

func sampleAt(b []byte, sf format.SampleFormat) float64 {
	switch sf {
	case format.SampleInt16:
		if len(b) < 2 {
			return 0
		}
		v := int16(uint16(b[0]) | uint16(b[1])<<8)
		return float64(v) / 32768.0
	case format.SampleFloat32:
		if len(b) < 4 {
			return 0
		}
		bits := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
		return float64(math.Float32frombits(bits))
	}
	return 0
}

// extractLevels slides a windowMS window over samples in stepMS hops,
// producing one "loudness" value per hop according to algo.
func extractLevels(samples []float64, sampleRate int, algo LevelAlgorithm) []float64 {
	if sampleRate <= 0 || len(samples) == 0 {
		return nil
	}
	windowLen := sampleRate * windowMS / 1000
	stepLen := sampleRate * stepMS / 1000
	if windowLen < 1 {
		windowLen = 1
	}
	if stepLen < 1 {
		stepLen = 1
	}

	var levels []float64
	for start := 0; start+windowLen <= len(samples); start += stepLen {
		window := samples[start : start+windowLen]
		levels = append(levels, levelOf(window, algo, sampleRate))
	}
	return levels
}

func levelOf(window []float64, algo LevelAlgorithm, sampleRate int) float64 {
	switch algo {
	case MinMax:
		return minMaxLevel(window)
	case DiscreetSineTransform:
		return dstLevel(window, sampleRate)
	case SumDistMinMax:
		return sumDistLevel(window) * minMaxLevel(window)
	default:
		return sumDistLevel(window)
	}
}

func sumDistLevel(window []float64) float64 {
	var sum float64
	for i := 1; i < len(window); i++ {
		sum += math.Abs(window[i] - window[i-1])
	}
	return sum
}

func minMaxLevel(window []float64) float64 {
	if len(window) == 0 {
		return 0
	}
	lo, hi := window[0], window[0]
	for _, v := range window {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return hi - lo
}

// dstLevel correlates window against a single reference sine whose
// frequency is tuned to the window's duration, a cheap single-bin DFT
// magnitude rather than a full FFT.
func dstLevel(window []float64, sampleRate int) float64 {
	if len(window) == 0 {
		return 0
	}
	freq := float64(sampleRate) / float64(len(window))
	var re, im float64
	for i, v := range window {
		phase := 2 * math.Pi * freq * float64(i) / float64(sampleRate)
		re += v * math.Cos(phase)
		im += v * math.Sin(phase)
	}
	return math.Hypot(re, im)
}

// pickBeats finds local maxima in levels that exceed 1.2 times the mean
// level (on a flat-topped peak only its first window counts), then returns
// the millisecond gaps between consecutive picked beats.
func pickBeats(levels []float64, stepMS int) []float64 {
	if len(levels) < 3 {
		return nil
	}
	var mean float64
	for _, l := range levels {
		mean += l
	}
	mean /= float64(len(levels))
	threshold := mean * 1.2

	var beatIndices []int
	for i := 1; i < len(levels)-1; i++ {
		if levels[i] > threshold && levels[i] > levels[i-1] && levels[i] >= levels[i+1] {
			beatIndices = append(beatIndices, i)
		}
	}
	if len(beatIndices) < 2 {
		return nil
	}

	intervals := make([]float64, 0, len(beatIndices)-1)
	for i := 1; i < len(beatIndices); i++ {
		intervals = append(intervals, float64((beatIndices[i]-beatIndices[i-1])*stepMS))
	}
	return intervals
}

// histogramBinMS is the bucket width used when folding beat intervals into
// a tempo histogram.
const histogramBinMS = 4

// foldHistogram buckets inter-beat intervals (folded into the plausible
// 20-300 MPM range by repeated halving/doubling) and returns the MPM of
// the most-voted bucket plus its share of the total votes as a confidence
// measure.
func foldHistogram(intervalsMS []float64) (mpm float64, confidence float64) {
	const minMPM, maxMPM = 20.0, 300.0
	bins := make(map[int]int)
	total := 0
	for _, ms := range intervalsMS {
		if ms <= 0 {
			continue
		}
		bpm := 60000.0 / ms
		for bpm < minMPM {
			bpm *= 2
		}
		for bpm > maxMPM {
			bpm /= 2
		}
		bin := int(bpm*10) / histogramBinMS
		bins[bin]++
		total++
	}
	if total == 0 {
		return 0, 0
	}

	var bestBin, bestCount int
	for bin, count := range bins {
		if count > bestCount || (count == bestCount && bin < bestBin) {
			bestBin, bestCount = bin, count
		}
	}
	mpm = float64(bestBin*histogramBinMS) / 10.0
	confidence = float64(bestCount) / float64(total)
	return mpm, confidence
}

// divideBy3Factors are the divisors adjustToGenre adds as extra candidates
// for slow genres (library.IsSlowGenre): beat-picking on slow ballroom tracks tends to lock onto a triplet
// subdivision of the true beat rather than an octave of it.
var divideBy3Factors = []float64{3, 6, 12, 24, 48}

// adjustToGenre nudges mpm toward the genre's competition tempo range. It
// collects the raw value, its halvings and doublings around the range and,
// for slow genres, mpm divided by 3*{1,2,4,8,16}, then returns the
// candidate nearest the range's midpoint. The divide-by-3 candidates get no
// priority over the others. For slow genres a tie goes to the lower value,
// since beat-picking on slow ballroom tracks also tends to double-detect
// the off-beat.
func adjustToGenre(mpm float64, genre string) float64 {
	if mpm <= 0 {
		return mpm
	}
	r := library.CompetitionTempoRangeForGenre(genre)
	if r == library.UnknownRange {
		return mpm
	}
	mid := (r.Low + r.High) / 2

	candidates := []float64{mpm}
	if library.IsSlowGenre(genre) {
		for _, f := range divideBy3Factors {
			candidates = append(candidates, mpm/f)
		}
	}
	for v := mpm; v > r.Low/2; v /= 2 {
		candidates = append(candidates, v/2)
	}
	for v := mpm; v < r.High*2; v *= 2 {
		candidates = append(candidates, v*2)
	}

	sort.Slice(candidates, func(i, j int) bool {
		di := math.Abs(candidates[i] - mid)
		dj := math.Abs(candidates[j] - mid)
		if di == dj && library.IsSlowGenre(genre) {
			return candidates[i] < candidates[j]
		}
		return di < dj
	})
	return candidates[0]
}
