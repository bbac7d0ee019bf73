package playback

import (
	"encoding/binary"
	"testing"

	"github.com/madmaxoft/skautan-go/internal/audio/format"
)

func mono16Format() format.PCMFormat {
	return format.PCMFormat{Channels: 1, SampleRate: 1000, Sample: format.SampleInt16}
}

func int16PCM(samples...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func decodeInt16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return out
}

func TestReadReturnsWhatsAvailable(t *testing.T) {
	b := New(mono16Format())
	b.Append(int16PCM(1, 2, 3))

	dst := make([]byte, 100)
	n := b.Read(dst)
	if n != 6 {
		t.Fatalf("Read = %d; want 6 (3 int16 samples)", n)
	}
	if !decodeEqual(dst[:n], []int16{1, 2, 3}) {
		t.Errorf("Read content = %v; want [1 2 3]", decodeInt16(dst[:n]))
	}

	// Nothing more buffered and not at EOF: Read should return 0, not block.
	if n := b.Read(dst); n != 0 {
		t.Errorf("Read with nothing buffered = %d; want 0", n)
	}
}

func decodeEqual(b []byte, want []int16) bool {
	got := decodeInt16(b)
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestAtEOFRequiresFullDrain(t *testing.T) {
	b := New(mono16Format())
	b.Append(int16PCM(1, 2))
	b.MarkEOF()
	if b.AtEOF() {
		t.Fatal("AtEOF = true before the buffered data has been read")
	}
	dst := make([]byte, 4)
	b.Read(dst)
	if !b.AtEOF() {
		t.Error("AtEOF = false after draining all buffered data past MarkEOF")
	}
}

func TestSeekClampsAndCancelsFade(t *testing.T) {
	b := New(mono16Format())
	b.Append(int16PCM(1, 2, 3, 4, 5))
	b.StartFadeOut(1)

	b.Seek(2)
	if b.fadeStart != -1 {
		t.Error("Seek did not cancel an in-progress fade")
	}
	dst := make([]byte, 2)
	b.Read(dst)
	if got := decodeInt16(dst); got[0] != 3 {
		t.Errorf("after Seek(2), Read = %v; want frame 3", got)
	}

	b.Seek(100) // past the end
	if b.read != len(b.data) {
		t.Errorf("Seek past the end left read = %d; want %d (clamped)", b.read, len(b.data))
	}

	b.Seek(-5) // before the start
	if b.read != 0 {
		t.Errorf("Seek before the start left read = %d; want 0 (clamped)", b.read)
	}
}

func TestStartFadeOutRampsToSilence(t *testing.T) {
	b := New(mono16Format())
	const n = 10
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = 10000
	}
	b.Append(int16PCM(samples...))
	b.StartFadeOut(n)

	dst := make([]byte, n*2)
	got := decodeInt16(dst[:b.Read(dst)])
	if got[0] >= 10000 {
		t.Errorf("first faded sample = %d; want < 10000 (ramp already started)", got[0])
	}
	if got[len(got)-1] > 500 {
		t.Errorf("last faded sample = %d; want close to 0 at the end of the ramp", got[len(got)-1])
	}
	for i := 1; i < len(got); i++ {
		if got[i] > got[i-1] {
			t.Fatalf("fade is not monotonically non-increasing at index %d: %v", i, got)
		}
	}
}

func TestAvailable(t *testing.T) {
	b := New(mono16Format())
	b.Append(int16PCM(1, 2, 3))
	if got := b.Available(); got != 6 {
		t.Fatalf("Available = %d; want 6", got)
	}
	b.Read(make([]byte, 2))
	if got := b.Available(); got != 4 {
		t.Errorf("Available after reading one sample = %d; want 4", got)
	}
}
