package iofilter

import (
	"bytes"
	"testing"
)

func TestChainFilterOutAppliesTimestampThenCharmap(t *testing.T) {
	ts := NewTimestamp(false, false) // no marker, isolates the charmap effect
	imap := NewCharmap([]Atom{AtomCRLF})
	omap := NewCharmap(nil)
	chain := NewChain(ts, imap, omap)

	got := chain.FilterOut([]byte("a\rb"))
	want := []byte("a\nb")
	if !bytes.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestChainFilterInAppliesOnlyCharmapOut(t *testing.T) {
	ts := NewTimestamp(true, false)
	imap := NewCharmap(nil)
	omap := NewCharmap([]Atom{AtomIgnCR})
	chain := NewChain(ts, imap, omap)

	got := chain.FilterIn([]byte("a\rb"))
	want := []byte("ab")
	if !bytes.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestChainToggleByName(t *testing.T) {
	ts := NewTimestamp(true, false)
	imap := NewCharmap(nil)
	omap := NewCharmap(nil)
	chain := NewChain(ts, imap, omap)

	if !chain.Toggle("timestamp") || ts.Enabled() {
		t.Error("Toggle(timestamp) should disable it and report recognized")
	}
	if !chain.Toggle("charmap-imap") || imap.Enabled() {
		t.Error("Toggle(charmap-imap) should disable it and report recognized")
	}
	if !chain.Toggle("charmap-omap") || omap.Enabled() {
		t.Error("Toggle(charmap-omap) should disable it and report recognized")
	}
	if chain.Toggle("nonsense") {
		t.Error("Toggle(nonsense) should report unrecognized")
	}
}
