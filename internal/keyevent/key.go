// Package keyevent defines the terminal key events produced by the console
// input parser (spec §3, §4.3.1).
package keyevent

// Kind enumerates the named key categories. Char and F carry an additional
// payload (Rune / FNum); all others are fully described by Kind alone.
type Kind uint8

// Key kinds.
const (
	KindChar Kind = iota
	KindF
	KindEscape
	KindEnter
	KindTab
	KindBackspace
	KindUp
	KindDown
	KindLeft
	KindRight
	KindHome
	KindEnd
	KindPageUp
	KindPageDown
	KindInsert
	KindDelete
)

// Key is one element of the Key enum from spec §3.
type Key struct {
	Kind Kind
	Rune rune // valid when Kind == KindChar
	FNum uint8 // valid when Kind == KindF; 1..=12
}

// Char constructs a Char(c) key.
func Char(c rune) Key { return Key{Kind: KindChar, Rune: c} }

// F constructs an F(n) key, 1..=12.
func F(n uint8) Key { return Key{Kind: KindF, FNum: n} }

// Modifiers is the {ctrl, alt, shift} bitset from spec §3.
type Modifiers uint8

// Modifier bits.
const (
	ModCtrl Modifiers = 1 << iota
	ModAlt
	ModShift
)

// Event is a (Key, Modifiers) pair, spec §3.
type Event struct {
	Key  Key
	Mods Modifiers
}

// Ctrl reports whether the ctrl modifier is set.
func (m Modifiers) Ctrl() bool { return m&ModCtrl != 0 }

// Alt reports whether the alt modifier is set.
func (m Modifiers) Alt() bool { return m&ModAlt != 0 }

// Shift reports whether the shift modifier is set.
func (m Modifiers) Shift() bool { return m&ModShift != 0 }
