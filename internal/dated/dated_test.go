package dated

import (
	"testing"
	"time"
)

func TestZeroValueIsAbsent(t *testing.T) {
	var o Optional[string]
	if o.Present() {
		t.Error("zero Optional reports Present = true")
	}
	if got := o.Value(); got != "" {
		t.Errorf("zero Optional Value = %q; want \"\"", got)
	}
}

func TestNewIsPresent(t *testing.T) {
	o := New(42)
	v, ok := o.Get()
	if !ok || v != 42 {
		t.Fatalf("New(42).Get = %d, %v; want 42, true", v, ok)
	}
}

func TestSetAndClear(t *testing.T) {
	var o Optional[int]
	o.Set(7)
	if v, ok := o.Get(); !ok || v != 7 {
		t.Fatalf("after Set(7): Get = %d, %v; want 7, true", v, ok)
	}
	o.Clear()
	if o.Present() {
		t.Error("after Clear: Present = true")
	}
	if o.Value() != 0 {
		t.Errorf("after Clear: Value = %d; want 0", o.Value())
	}
}

func TestUpdateIfNewerNewerWins(t *testing.T) {
	base := time.Unix(1000, 0)
	o := NewAt("old", base)
	o.UpdateIfNewer(NewAt("new", base.Add(time.Second)))
	if v, _ := o.Get(); v != "new" {
		t.Errorf("UpdateIfNewer with a later timestamp: got %q; want %q", v, "new")
	}
}

func TestUpdateIfNewerOlderLoses(t *testing.T) {
	base := time.Unix(1000, 0)
	o := NewAt("current", base)
	o.UpdateIfNewer(NewAt("stale", base.Add(-time.Second)))
	if v, _ := o.Get(); v != "current" {
		t.Errorf("UpdateIfNewer with an earlier timestamp: got %q; want %q", v, "current")
	}
}

func TestUpdateIfNewerEqualTimestampLoses(t *testing.T) {
	base := time.Unix(1000, 0)
	o := NewAt("current", base)
	o.UpdateIfNewer(NewAt("tied", base))
	if v, _ := o.Get(); v != "current" {
		t.Errorf("UpdateIfNewer with an equal timestamp: got %q; want %q (strictly-newer wins)", v, "current")
	}
}

func TestUpdateIfNewerAbsentOtherIsNoop(t *testing.T) {
	base := time.Unix(1000, 0)
	o := NewAt("current", base)
	var absent Optional[string]
	o.UpdateIfNewer(absent)
	if v, _ := o.Get(); v != "current" {
		t.Errorf("UpdateIfNewer(absent): got %q; want %q", v, "current")
	}
}

func TestUpdateIfNewerFillsAbsentReceiver(t *testing.T) {
	var o Optional[string]
	o.UpdateIfNewer(NewAt("value", time.Unix(1, 0)))
	v, ok := o.Get()
	if !ok || v != "value" {
		t.Fatalf("UpdateIfNewer into an absent receiver: got %q, %v; want %q, true", v, ok, "value")
	}
}

func TestIsEmpty(t *testing.T) {
	for _, tc := range []struct {
		name string
		o Optional[string]
		want bool
	}{
		{"absent", Optional[string]{}, true},
		{"present empty string", New(""), true},
		{"present non-empty string", New("x"), false},
	} {
		if got := IsEmpty(tc.o); got != tc.want {
			t.Errorf("%s: IsEmpty = %v; want %v", tc.name, got, tc.want)
		}
	}
}
