package keybind

import (
	"bytes"
	"testing"

	"github.com/ardnew/termbridge/internal/keyevent"
)

func TestParseNextBasicKeys(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want keyevent.Event
		n    int
	}{
		{"tab", []byte{0x09}, keyevent.Event{Key: keyevent.Key{Kind: keyevent.KindTab}}, 1},
		{"enter", []byte{0x0D}, keyevent.Event{Key: keyevent.Key{Kind: keyevent.KindEnter}}, 1},
		{"backspace", []byte{0x7F}, keyevent.Event{Key: keyevent.Key{Kind: keyevent.KindBackspace}}, 1},
		{"ctrl-a", []byte{0x01}, keyevent.Event{Key: keyevent.Char('a'), Mods: keyevent.ModCtrl}, 1},
		{"ctrl-z", []byte{0x1A}, keyevent.Event{Key: keyevent.Char('z'), Mods: keyevent.ModCtrl}, 1},
		{"plain-x", []byte{'x'}, keyevent.Event{Key: keyevent.Char('x')}, 1},
		{"arrow-up", []byte{0x1B, '[', 'A'}, keyevent.Event{Key: keyevent.Key{Kind: keyevent.KindUp}}, 3},
		{"home-ss3", []byte{0x1B, 'O', 'H'}, keyevent.Event{Key: keyevent.Key{Kind: keyevent.KindHome}}, 3},
		{"f1", []byte{0x1B, 'O', 'P'}, keyevent.Event{Key: keyevent.F(1)}, 3},
		{"f5-tilde", []byte{0x1B, '[', '1', '5', '~'}, keyevent.Event{Key: keyevent.F(5)}, 5},
		{"delete-tilde", []byte{0x1B, '[', '3', '~'}, keyevent.Event{Key: keyevent.Key{Kind: keyevent.KindDelete}}, 5},
		{"alt-x", []byte{0x1B, 'x'}, keyevent.Event{Key: keyevent.Char('x'), Mods: keyevent.ModAlt}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, n := ParseNext(tt.in, false)
			if res.Kind != ParseKey {
				t.Fatalf("Kind = %v, want ParseKey", res.Kind)
			}
			if res.Event != tt.want {
				t.Errorf("Event = %+v, want %+v", res.Event, tt.want)
			}
			if n != tt.n {
				t.Errorf("consumed = %d, want %d", n, tt.n)
			}
		})
	}
}

func TestParseNextNeedMore(t *testing.T) {
	tests := [][]byte{
		{0x1B},
		{0x1B, '['},
		{0x1B, '[', '1'},
		{0x1B, 'O'},
	}
	for _, in := range tests {
		res, n := ParseNext(in, false)
		if res.Kind != ParseNeedMore {
			t.Errorf("ParseNext(%v, false).Kind = %v, want ParseNeedMore", in, res.Kind)
		}
		if n != 0 {
			t.Errorf("ParseNext(%v, false) consumed = %d, want 0", in, n)
		}
	}
}

func TestParseNextForceFirstResolvesStandaloneEscape(t *testing.T) {
	res, n := ParseNext([]byte{0x1B}, true)
	if res.Kind != ParseKey || res.Event.Key.Kind != keyevent.KindEscape {
		t.Fatalf("got %+v, want standalone Escape", res)
	}
	if n != 1 {
		t.Errorf("consumed = %d, want 1", n)
	}
}

func TestParseNextPassthroughForUnknownControlByte(t *testing.T) {
	res, n := ParseNext([]byte{0x00}, false)
	if res.Kind != ParsePassthrough {
		t.Fatalf("Kind = %v, want ParsePassthrough", res.Kind)
	}
	if res.Passthrough != 0x00 || n != 1 {
		t.Errorf("got byte=%#x n=%d, want byte=0x00 n=1", res.Passthrough, n)
	}
}

// TestEncodeRoundTrip checks spec's testable property 3: encode(parse(bytes))
// reproduces the original bytes for every sequence the parser can fully
// resolve in one step.
func TestEncodeRoundTrip(t *testing.T) {
	sequences := [][]byte{
		{0x09},
		{0x0D},
		{0x7F},
		{0x01},
		{0x1A},
		{'x'},
		{'Q'},
		{0x1B, '[', 'A'},
		{0x1B, '[', 'B'},
		{0x1B, '[', 'C'},
		{0x1B, '[', 'D'},
		{0x1B, 'O', 'H'},
		{0x1B, 'O', 'F'},
		{0x1B, 'O', 'P'},
		{0x1B, 'O', 'Q'},
		{0x1B, 'O', 'R'},
		{0x1B, 'O', 'S'},
		{0x1B, '[', '1', '5', '~'},
		{0x1B, '[', '2', '4', '~'},
		{0x1B, '[', '2', '~'},
		{0x1B, '[', '3', '~'},
		{0x1B, '[', '5', '~'},
		{0x1B, '[', '6', '~'},
		{0x1B, 'x'},
		{0x1B, 0x01},
	}

	for _, seq := range sequences {
		res, n := ParseNext(seq, false)
		if res.Kind != ParseKey {
			t.Fatalf("ParseNext(%v) did not resolve to a key: %+v", seq, res)
		}
		if n != len(seq) {
			t.Fatalf("ParseNext(%v) consumed %d bytes, want %d", seq, n, len(seq))
		}
		got := Encode(res.Event)
		if !bytes.Equal(got, seq) {
			t.Errorf("Encode(parse(%v)) = %v, want %v", seq, got, seq)
		}
	}
}
