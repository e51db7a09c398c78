package iofilter

import (
	"strings"
	"testing"
	"time"
)

func TestTimestampAbsOnlyAnnotatesLineStart(t *testing.T) {
	ts := NewTimestamp(true, false)
	fixed := time.Date(2026, 1, 1, 12, 30, 0, 0, time.UTC)
	ts.now = func() time.Time { return fixed }

	got := string(ts.Apply([]byte("hello\nworld")))

	if !strings.HasPrefix(got, "12:30:00.000 hello\n") {
		t.Fatalf("got %q, want prefix %q", got, "12:30:00.000 hello\\n")
	}
	if !strings.Contains(got, "12:30:00.000 world") {
		t.Errorf("got %q, want a second marker before %q", got, "world")
	}
}

func TestTimestampDisabledIsIdentity(t *testing.T) {
	ts := NewTimestamp(true, true)
	ts.Toggle()
	if ts.Enabled() {
		t.Fatal("Toggle() should have disabled the timestamp filter")
	}
	data := []byte("hello\nworld")
	got := ts.Apply(data)
	if string(got) != string(data) {
		t.Errorf("got %q, want identity %q", got, data)
	}
}

func TestTimestampOnlyMarksOncePerLineAcrossCalls(t *testing.T) {
	ts := NewTimestamp(true, false)
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ts.now = func() time.Time { return fixed }

	first := string(ts.Apply([]byte("he")))
	second := string(ts.Apply([]byte("llo\n")))

	combined := first + second
	if strings.Count(combined, "00:00:00.000") != 1 {
		t.Errorf("expected exactly one marker for one line split across calls, got %q", combined)
	}
	if combined != "00:00:00.000 hello\n" {
		t.Errorf("got %q", combined)
	}
}

func TestTimestampCRDoesNotResetLineStart(t *testing.T) {
	ts := NewTimestamp(true, false)
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ts.now = func() time.Time { return fixed }

	got := string(ts.Apply([]byte("\rhello")))
	if got != "\r00:00:00.000 hello" {
		t.Errorf("got %q, want %q", got, "\\r00:00:00.000 hello")
	}
}
