package monitoring

import (
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("Custom logger was not called")
	}

	called = false
	SetLogger(nil)
	Logf("test message")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestSilence(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var lines int
	SetLogger(func(string, ...interface{}) { lines++ })

	restore := Silence()
	Logf("muted")
	if lines != 0 {
		t.Errorf("Silence() should mute Logf, got %d lines", lines)
	}

	restore()
	Logf("audible")
	if lines != 1 {
		t.Errorf("restore() should bring the previous logger back, got %d lines", lines)
	}
}

func TestLogf_Default(t *testing.T) {
	if Logf == nil {
		t.Error("Logf should not be nil by default")
	}
}
