package keybind

import (
	"time"

	"github.com/ardnew/termbridge/internal/action"
	"github.com/ardnew/termbridge/internal/keyevent"
)

// Timeouts governing the prefix-key state machine (spec §4.3.2).
const (
	EscapeTimeout = 50 * time.Millisecond
	PrefixTimeout = 2000 * time.Millisecond
)

// State is one of the two prefix-key states.
type State uint8

// States.
const (
	StateNormal State = iota
	StateAwaitingPrefixCommand
)

// OutputKind discriminates a Processor output.
type OutputKind uint8

// Output kinds.
const (
	OutputPassthrough OutputKind = iota
	OutputAction
)

// Output is one unit of work the processor hands to its caller: either raw
// bytes to forward to the device unchanged, or a local action to execute.
type Output struct {
	Kind   OutputKind
	Bytes  []byte
	Action action.Action
}

func passthroughOutput(b []byte) Output { return Output{Kind: OutputPassthrough, Bytes: b} }
func actionOutput(a action.Action) Output {
	return Output{Kind: OutputAction, Action: a}
}

// Processor implements the prefix-key binding state machine (spec §4.3.2):
// Normal mode passes bytes through the device unless they match a direct
// binding or the configured prefix key; AwaitingPrefixCommand mode resolves
// the next key against the prefix-scoped bindings and always reverts to
// Normal afterward, regardless of whether it matched.
type Processor struct {
	prefix         keyevent.Event
	bindings       map[keyevent.Event]action.Action
	prefixBindings map[keyevent.Event]action.Action

	state State

	pending      []byte
	lastByteAt   time.Time
	prefixSeenAt time.Time
}

// NewProcessor builds a Processor from a loaded key-binding configuration.
func NewProcessor(prefix keyevent.Event, bindings, prefixBindings map[keyevent.Event]action.Action) *Processor {
	if bindings == nil {
		bindings = map[keyevent.Event]action.Action{}
	}
	if prefixBindings == nil {
		prefixBindings = map[keyevent.Event]action.Action{}
	}
	return &Processor{
		prefix:         prefix,
		bindings:       bindings,
		prefixBindings: prefixBindings,
		state:          StateNormal,
	}
}

// Feed appends newly read bytes and resolves every complete key or
// passthrough sequence currently buffered, returning the outputs produced in
// order. Bytes that might still be the prefix of a longer escape sequence
// are held back until a later Feed or Tick resolves them.
func (p *Processor) Feed(data []byte, now time.Time) []Output {
	p.pending = append(p.pending, data...)
	if len(p.pending) > 0 {
		p.lastByteAt = now
	}
	return p.drain(now, false)
}

// Tick lets the processor act on elapsed time without new bytes arriving: a
// buffered lone ESC or incomplete escape sequence older than EscapeTimeout is
// forced to resolve, and an AwaitingPrefixCommand state older than
// PrefixTimeout reverts to Normal, replaying the prefix key as passthrough.
func (p *Processor) Tick(now time.Time) []Output {
	var out []Output

	if p.state == StateAwaitingPrefixCommand && now.Sub(p.prefixSeenAt) >= PrefixTimeout {
		out = append(out, passthroughOutput(Encode(p.prefix)))
		p.state = StateNormal
	}

	if len(p.pending) > 0 && now.Sub(p.lastByteAt) >= EscapeTimeout {
		out = append(out, p.drain(now, true)...)
	}

	return out
}

// drain resolves as many complete ParseNext steps as are currently buffered.
// forceFirst is passed through to the first step only; once a step
// successfully parses, every following step in the same drain has a fresh
// chance to parse normally (data that arrived earlier may now be complete).
func (p *Processor) drain(now time.Time, forceFirst bool) []Output {
	var out []Output

	for len(p.pending) > 0 {
		res, n := ParseNext(p.pending, forceFirst)
		if res.Kind == ParseNeedMore {
			break
		}
		forceFirst = false

		raw := append([]byte(nil), p.pending[:n]...)
		p.pending = p.pending[n:]

		out = append(out, p.handle(res, raw, now)...)
	}

	return out
}

// handle implements the transitions of spec §4.3.2. raw is unused for Key
// results (passthrough re-encodes the event per the spec's encode(k), not
// the literal bytes that produced it) but is forwarded unchanged for
// ParsePassthrough results, which carry no key event to encode.
func (p *Processor) handle(res ParseResult, raw []byte, now time.Time) []Output {
	switch p.state {
	case StateAwaitingPrefixCommand:
		p.state = StateNormal

		if res.Kind == ParsePassthrough {
			return []Output{passthroughOutput(append(Encode(p.prefix), raw...))}
		}
		if a, ok := p.prefixBindings[res.Event]; ok {
			return []Output{actionOutput(a)}
		}
		return []Output{passthroughOutput(append(Encode(p.prefix), Encode(res.Event)...))}

	default: // StateNormal
		if res.Kind == ParsePassthrough {
			return []Output{passthroughOutput(raw)}
		}

		if a, ok := p.bindings[res.Event]; ok {
			return []Output{actionOutput(a)}
		}

		if res.Event == p.prefix {
			p.state = StateAwaitingPrefixCommand
			p.prefixSeenAt = now
			return nil
		}

		return []Output{passthroughOutput(Encode(res.Event))}
	}
}
