package config

import (
	"path/filepath"
	"testing"

	"github.com/loopstream/pedal/engine"
	"github.com/loopstream/pedal/looper"
)

func newTestController(t *testing.T) *looper.Controller {
	t.Helper()
	l := engine.New(engine.NewMemStorage(), 512)
	r := engine.New(engine.NewMemStorage(), 512)
	c := looper.New(l, r, 48000, t.TempDir())
	if err := c.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return c
}

func TestSaveLoadRoundTrip(t *testing.T) {
	c := newTestController(t)
	c.SetParameter(looper.InGain, 512)
	c.SetParameter(looper.Bpm, 900)

	path := filepath.Join(t.TempDir(), "settings.bin")
	want := FromController(c)
	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Errorf("round trip mismatch: got %+v want %+v", got, want)
	}
}

func TestLoadMissingFileReturnsZeroValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.bin")
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	var zero Settings
	if s != zero {
		t.Errorf("Load of missing file = %+v, want zero value", s)
	}
}

func TestApplyToAndFromControllerRoundTrip(t *testing.T) {
	src := newTestController(t)
	src.SetParameter(looper.OutGain, 300)
	src.SetParameter(looper.SetLengthMode, 1023)

	s := FromController(src)

	dst := newTestController(t)
	s.ApplyTo(dst)

	if dst.Parameter(looper.OutGain) != 300 {
		t.Errorf("OutGain = %d, want 300", dst.Parameter(looper.OutGain))
	}
	if dst.Parameter(looper.SetLengthMode) != 1023 {
		t.Errorf("SetLengthMode = %d, want 1023", dst.Parameter(looper.SetLengthMode))
	}
}
