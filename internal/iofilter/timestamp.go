package iofilter

import (
	"fmt"
	"time"
)

// Timestamp annotates the start of each line with an absolute and/or
// relative time marker (spec §4.3.3). It tracks at_line_start across calls
// so a marker is only ever inserted once per line, even when a line spans
// multiple Apply calls.
type Timestamp struct {
	enabled bool
	abs     bool
	rel     bool

	atLineStart bool
	first       bool
	last        time.Time

	now func() time.Time
}

// NewTimestamp builds a Timestamp filter with the given abs/rel settings
// (spec §6 defaults: abs on, rel off), enabled by default.
func NewTimestamp(abs, rel bool) *Timestamp {
	return &Timestamp{
		enabled:     true,
		abs:         abs,
		rel:         rel,
		atLineStart: true,
		first:       true,
		now:         time.Now,
	}
}

// Enabled reports the current toggle state.
func (t *Timestamp) Enabled() bool { return t.enabled }

// Toggle flips the enabled flag.
func (t *Timestamp) Toggle() { t.enabled = !t.enabled }

// Apply annotates line starts per spec §4.3.3: \n is emitted and sets
// at_line_start; \r is emitted unchanged; any other byte at line start is
// preceded by the configured marker(s) before being emitted itself.
func (t *Timestamp) Apply(data []byte) []byte {
	if !t.enabled {
		return data
	}

	out := make([]byte, 0, len(data))
	for _, b := range data {
		switch b {
		case '\n':
			out = append(out, b)
			t.atLineStart = true
			continue
		case '\r':
			out = append(out, b)
			continue
		}

		if t.atLineStart {
			now := t.now()
			if t.abs {
				out = append(out, []byte(now.Format("15:04:05.000")+" ")...)
			}
			if t.rel {
				var elapsed time.Duration
				if !t.first {
					elapsed = now.Sub(t.last)
				}
				out = append(out, []byte(fmt.Sprintf("+%08.3f ", elapsed.Seconds()))...)
			}
			t.atLineStart = false
		}

		t.last = t.now()
		t.first = false
		out = append(out, b)
	}
	return out
}
