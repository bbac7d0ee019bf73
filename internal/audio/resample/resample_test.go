package resample

import (
	"encoding/binary"
	"testing"

	"github.com/madmaxoft/skautan-go/internal/audio/format"
)

func int16PCM(samples...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func decodeInt16PCM(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return out
}

func TestPassThroughSameFormat(t *testing.T) {
	f := format.PCMFormat{Channels: 2, SampleRate: 44100, Sample: format.SampleInt16}
	r := New(f, f)
	in := int16PCM(100, -100, 200, -200)
	out := decodeInt16PCM(r.Process(in))
	want := []int16{100, -100, 200, -200}
	if len(out) != len(want) {
		t.Fatalf("Process returned %d samples; want %d", len(out), len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("sample %d = %d; want %d", i, out[i], want[i])
		}
	}
}

func TestMonoToStereoDuplicatesChannel(t *testing.T) {
	src := format.PCMFormat{Channels: 1, SampleRate: 44100, Sample: format.SampleInt16}
	dst := format.PCMFormat{Channels: 2, SampleRate: 44100, Sample: format.SampleInt16}
	r := New(src, dst)
	out := decodeInt16PCM(r.Process(int16PCM(1000, 2000)))
	want := []int16{1000, 1000, 2000, 2000}
	if len(out) != len(want) {
		t.Fatalf("Process returned %d samples; want %d", len(out), len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("sample %d = %d; want %d", i, out[i], want[i])
		}
	}
}

func TestStereoToMonoAverages(t *testing.T) {
	src := format.PCMFormat{Channels: 2, SampleRate: 44100, Sample: format.SampleInt16}
	dst := format.PCMFormat{Channels: 1, SampleRate: 44100, Sample: format.SampleInt16}
	r := New(src, dst)
	out := decodeInt16PCM(r.Process(int16PCM(1000, 3000)))
	if len(out) != 1 {
		t.Fatalf("Process returned %d samples; want 1", len(out))
	}
	// (1000+3000)/2 = 2000, modulo int16 rounding through the float
	// normalize/denormalize round trip.
	if diff := int(out[0]) - 2000; diff < -2 || diff > 2 {
		t.Errorf("downmixed sample = %d; want ~2000", out[0])
	}
}

func TestCarryBuffersPartialFrames(t *testing.T) {
	f := format.PCMFormat{Channels: 1, SampleRate: 44100, Sample: format.SampleInt16}
	r := New(f, f)

	full := int16PCM(111, 222)
	// Split the second sample's bytes across two Process calls.
	first := append(append([]byte(nil), full[:2]...), full[2:3]...)
	second := full[3:]

	out1 := decodeInt16PCM(r.Process(first))
	if len(out1) != 1 || out1[0] != 111 {
		t.Fatalf("first Process = %v; want [111]", out1)
	}
	out2 := decodeInt16PCM(r.Process(second))
	if len(out2) != 1 || out2[0] != 222 {
		t.Fatalf("second Process (after carrying the split frame) = %v; want [222]", out2)
	}
}

func TestResampleUpsampleDoublesRate(t *testing.T) {
	samples := []float64{0, 1, 0, -1}
	out := resampleRate(samples, 1, 2, 4)
	if len(out) != 8 {
		t.Fatalf("resampleRate produced %d samples; want 8 for a 2x rate increase", len(out))
	}
}

func TestRemixChannelsPassThroughWhenEqual(t *testing.T) {
	samples := []float64{1, 2, 3, 4}
	out := remixChannels(samples, 2, 2)
	for i := range samples {
		if out[i] != samples[i] {
			t.Errorf("remixChannels with equal channel counts changed sample %d: %v != %v", i, out[i], samples[i])
		}
	}
}
