package iofilter

// Chain composes the console's filters in the fixed order spec §4.3.3
// requires: device→console (FilterOut) applies timestamp then charmap-in;
// console→device (FilterIn) applies charmap-out only.
type Chain struct {
	Timestamp  *Timestamp
	CharmapIn  *Charmap // imap: device -> console
	CharmapOut *Charmap // omap: console -> device
}

// NewChain builds a Chain from its three component filters.
func NewChain(ts *Timestamp, imap, omap *Charmap) *Chain {
	return &Chain{Timestamp: ts, CharmapIn: imap, CharmapOut: omap}
}

// FilterOut applies the device->console direction: timestamp, then charmap.
func (c *Chain) FilterOut(data []byte) []byte {
	return c.CharmapIn.Apply(c.Timestamp.Apply(data))
}

// FilterIn applies the console->device direction: charmap only.
func (c *Chain) FilterIn(data []byte) []byte {
	return c.CharmapOut.Apply(data)
}

// Toggle flips the named filter's enabled flag, reporting whether the name
// was recognized. The console consumes FilterToggle actions entirely
// locally (spec §4.4.8) — the hub never sees a filter name.
func (c *Chain) Toggle(name string) bool {
	switch name {
	case "timestamp":
		c.Timestamp.Toggle()
	case "charmap-in", "charmap-imap":
		c.CharmapIn.Toggle()
	case "charmap-out", "charmap-omap":
		c.CharmapOut.Toggle()
	default:
		return false
	}
	return true
}
