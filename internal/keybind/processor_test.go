package keybind

import (
	"bytes"
	"testing"
	"time"

	"github.com/ardnew/termbridge/internal/action"
	"github.com/ardnew/termbridge/internal/keyevent"
)

var ctrlB = keyevent.Event{Key: keyevent.Char('b'), Mods: keyevent.ModCtrl}

func newTestProcessor() *Processor {
	bindings := map[keyevent.Event]action.Action{
		{Key: keyevent.Char('q'), Mods: keyevent.ModCtrl}: action.Quit(),
	}
	prefixBindings := map[keyevent.Event]action.Action{
		{Key: keyevent.Char('x')}: action.Quit(),
	}
	return NewProcessor(ctrlB, bindings, prefixBindings)
}

func flattenBytes(outs []Output) []byte {
	var buf bytes.Buffer
	for _, o := range outs {
		if o.Kind == OutputPassthrough {
			buf.Write(o.Bytes)
		}
	}
	return buf.Bytes()
}

// TestProcessorDirectBinding covers a Ctrl-Q direct binding resolving to a
// Quit action with no prefix involved (scenario S5).
func TestProcessorDirectBinding(t *testing.T) {
	p := newTestProcessor()
	now := time.Now()

	outs := p.Feed([]byte{0x11}, now) // Ctrl-Q
	if len(outs) != 1 || outs[0].Kind != OutputAction || outs[0].Action.Kind != action.KindQuit {
		t.Fatalf("got %+v, want a single Quit action", outs)
	}
}

// TestProcessorPrefixBoundCommand covers scenario S6: Ctrl-B then 'x' must
// resolve to the prefix-scoped binding, not be forwarded to the device.
func TestProcessorPrefixBoundCommand(t *testing.T) {
	p := newTestProcessor()
	now := time.Now()

	outs := p.Feed([]byte{0x02}, now) // Ctrl-B: prefix key
	if len(outs) != 0 {
		t.Fatalf("prefix key alone should produce no output, got %+v", outs)
	}
	if p.state != StateAwaitingPrefixCommand {
		t.Fatalf("state = %v, want StateAwaitingPrefixCommand", p.state)
	}

	outs = p.Feed([]byte{'x'}, now)
	if len(outs) != 1 || outs[0].Kind != OutputAction || outs[0].Action.Kind != action.KindQuit {
		t.Fatalf("got %+v, want a single Quit action", outs)
	}
	if p.state != StateNormal {
		t.Fatalf("state = %v, want StateNormal after prefix command resolves", p.state)
	}
}

// TestProcessorPrefixUnboundKeyPassesThroughEncoded mirrors spec example S6's
// byte-exactness requirement but for an unbound command key: Ctrl-B followed
// by a key with no prefix binding must pass both encoded on the device,
// exactly as if the user had typed the prefix key and the command key with
// no binding layer at all.
func TestProcessorPrefixUnboundKeyPassesThroughEncoded(t *testing.T) {
	p := newTestProcessor()
	now := time.Now()

	_ = p.Feed([]byte{0x02}, now) // Ctrl-B
	outs := p.Feed([]byte{'y'}, now)

	if len(outs) != 1 || outs[0].Kind != OutputPassthrough {
		t.Fatalf("got %+v, want a single passthrough", outs)
	}
	want := append(Encode(ctrlB), Encode(keyevent.Event{Key: keyevent.Char('y')})...)
	if !bytes.Equal(outs[0].Bytes, want) {
		t.Errorf("passthrough = %v, want %v", outs[0].Bytes, want)
	}
}

// TestProcessorNormalUnboundCharPassesThroughEncoded checks that an ordinary
// key with no binding in Normal state is forwarded via Encode(), not the raw
// captured byte — the property exercised by spec example S6's literal byte
// check (writing 0x01 then 'x' produces exactly 0x01 0x78 on the device).
func TestProcessorNormalUnboundCharPassesThroughEncoded(t *testing.T) {
	p := newTestProcessor()
	now := time.Now()

	outs := p.Feed([]byte{0x01, 'x'}, now) // Ctrl-A (unbound), then 'x'
	got := flattenBytes(outs)
	want := []byte{0x01, 'x'}
	if !bytes.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

// TestProcessorPrefixTimeoutReplaysPrefix covers the PrefixTimeout branch:
// after entering AwaitingPrefixCommand, if no command key arrives within
// PrefixTimeout, Tick must replay the encoded prefix key as passthrough and
// revert to Normal.
func TestProcessorPrefixTimeoutReplaysPrefix(t *testing.T) {
	p := newTestProcessor()
	start := time.Now()

	outs := p.Feed([]byte{0x02}, start)
	if len(outs) != 0 {
		t.Fatalf("unexpected output entering prefix mode: %+v", outs)
	}

	outs = p.Tick(start.Add(PrefixTimeout - time.Millisecond))
	if len(outs) != 0 {
		t.Fatalf("Tick before PrefixTimeout elapsed should be a no-op, got %+v", outs)
	}
	if p.state != StateAwaitingPrefixCommand {
		t.Fatalf("state = %v, want still StateAwaitingPrefixCommand", p.state)
	}

	outs = p.Tick(start.Add(PrefixTimeout))
	if len(outs) != 1 || outs[0].Kind != OutputPassthrough {
		t.Fatalf("got %+v, want a single passthrough of the prefix key", outs)
	}
	if !bytes.Equal(outs[0].Bytes, Encode(ctrlB)) {
		t.Errorf("passthrough = %v, want %v", outs[0].Bytes, Encode(ctrlB))
	}
	if p.state != StateNormal {
		t.Fatalf("state = %v, want StateNormal after PrefixTimeout", p.state)
	}
}

// TestProcessorEscapeTimeoutForcesStandaloneEscape covers a lone ESC byte
// that never gets a second byte: Tick after EscapeTimeout must force it to
// resolve as a standalone Escape key passthrough.
func TestProcessorEscapeTimeoutForcesStandaloneEscape(t *testing.T) {
	p := newTestProcessor()
	start := time.Now()

	outs := p.Feed([]byte{0x1B}, start)
	if len(outs) != 0 {
		t.Fatalf("a lone ESC must be held back pending timeout, got %+v", outs)
	}

	outs = p.Tick(start.Add(EscapeTimeout - time.Millisecond))
	if len(outs) != 0 {
		t.Fatalf("Tick before EscapeTimeout elapsed should be a no-op, got %+v", outs)
	}

	outs = p.Tick(start.Add(EscapeTimeout))
	if len(outs) != 1 || outs[0].Kind != OutputPassthrough {
		t.Fatalf("got %+v, want a single standalone Escape passthrough", outs)
	}
	want := Encode(keyevent.Event{Key: keyevent.Key{Kind: keyevent.KindEscape}})
	if !bytes.Equal(outs[0].Bytes, want) {
		t.Errorf("passthrough = %v, want %v", outs[0].Bytes, want)
	}
}

// TestProcessorEscapeSequenceArrivingBeforeTimeoutIsNotForced checks that a
// complete escape sequence delivered in one Feed resolves immediately,
// without waiting on EscapeTimeout.
func TestProcessorEscapeSequenceArrivingBeforeTimeoutIsNotForced(t *testing.T) {
	p := newTestProcessor()
	now := time.Now()

	outs := p.Feed([]byte{0x1B, '[', 'A'}, now) // Up arrow
	if len(outs) != 1 || outs[0].Kind != OutputPassthrough {
		t.Fatalf("got %+v, want a single passthrough", outs)
	}
	want := Encode(keyevent.Event{Key: keyevent.Key{Kind: keyevent.KindUp}})
	if !bytes.Equal(outs[0].Bytes, want) {
		t.Errorf("passthrough = %v, want %v", outs[0].Bytes, want)
	}
}
