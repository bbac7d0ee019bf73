package tempo

import (
	"math"
	"testing"
)

func TestFoldHistogramPicksMajorityInterval(t *testing.T) {
	// 500ms gaps (120 BPM) dominate, with one outlier.
	intervals := []float64{500, 500, 500, 500, 500, 500, 750}
	mpm, confidence := foldHistogram(intervals)
	if math.Abs(mpm-120) > 0.5 {
		t.Errorf("foldHistogram mpm = %v; want ~120", mpm)
	}
	if confidence < 0.8 {
		t.Errorf("foldHistogram confidence = %v; want >= 0.8 given a 6/7 majority", confidence)
	}
}

func TestFoldHistogramFoldsOutOfRangeIntervals(t *testing.T) {
	// 1500ms gaps fold to 40 BPM (60000/1500), doubled repeatedly into
	// [20,300]: 40 is already in range, so it should stay at 40.
	mpm, _ := foldHistogram([]float64{1500, 1500, 1500})
	if math.Abs(mpm-40) > 0.5 {
		t.Errorf("foldHistogram mpm = %v; want ~40", mpm)
	}
}

func TestFoldHistogramEmpty(t *testing.T) {
	mpm, confidence := foldHistogram(nil)
	if mpm != 0 || confidence != 0 {
		t.Errorf("foldHistogram(nil) = %v, %v; want 0, 0", mpm, confidence)
	}
}

func TestAdjustToGenrePrefersNearestOctave(t *testing.T) {
	// Quickstep's competition range is [50,52]; a raw 100 MPM reading
	// (exactly double) should fold down to the 50-52 octave.
	got := adjustToGenre(100, "QS")
	if got < 25 || got > 52 {
		t.Fatalf("adjustToGenre(100, QS) = %v; want within an octave of [50,52]", got)
	}
	if math.Abs(got-50) > 1 {
		t.Errorf("adjustToGenre(100, QS) = %v; want ~50", got)
	}
}

func TestAdjustToGenreUnknownGenreIsNoop(t *testing.T) {
	if got := adjustToGenre(123, "ZZ"); got != 123 {
		t.Errorf("adjustToGenre(123, unknown genre) = %v; want 123 unchanged", got)
	}
}

func TestAdjustToGenreSlowGenreInRangeValueUnchanged(t *testing.T) {
	// Slow Waltz's range is [27,30], midpoint 28.5. A raw 28.5 MPM is
	// already the candidate nearest the midpoint, so it comes back
	// unchanged.
	got := adjustToGenre(28.5, "SW")
	if math.Abs(got-28.5) > 1e-9 {
		t.Errorf("adjustToGenre(28.5, SW) = %v; want 28.5 unchanged (already nearest candidate)", got)
	}
}

func TestDetectEmptySamples(t *testing.T) {
	if r := Detect(nil, 44100, Options{}); r.MeasuresPerMinute != 0 {
		t.Errorf("Detect(nil) = %+v; want zero Result", r)
	}
}

// TestDetectFindsPeriodicBeat builds a synthetic signal with sharp
// transients every 500ms (120 BPM) at a 1kHz sample rate and checks that
// Detect recovers a tempo in that neighborhood.
func TestDetectFindsPeriodicBeat(t *testing.T) {
	const sampleRate = 1000
	const periodSamples = 500 // 500ms => 120 BPM
	const numSeconds = 6
	samples := make([]float64, sampleRate*numSeconds)
	for i := range samples {
		if i%periodSamples < 5 {
			samples[i] = 1.0
		}
	}

	result := Detect(samples, sampleRate, Options{Algorithm: SumDist})
	if result.MeasuresPerMinute == 0 {
		t.Fatal("Detect found no beat in a clearly periodic signal")
	}
	// Octave errors are an accepted failure mode of beat detection, so
	// accept any power-of-two multiple/fraction of 120 within tolerance.
	ratio := result.MeasuresPerMinute / 120
	nearestOctave := math.Round(math.Log2(ratio))
	folded := result.MeasuresPerMinute / math.Pow(2, nearestOctave)
	if math.Abs(folded-120) > 5 {
		t.Errorf("Detect mpm = %v (folded %v); want within 5 of 120", result.MeasuresPerMinute, folded)
	}
}
