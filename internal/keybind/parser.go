package keybind

import (
	"strconv"
	"strings"

	"github.com/ardnew/termbridge/internal/keyevent"
)

// ParseKind discriminates a parse step's outcome.
type ParseKind uint8

// Parse outcomes (spec §4.3.1).
const (
	ParseNeedMore ParseKind = iota
	ParseKey
	ParsePassthrough
)

// ParseResult is one step of [ParseNext].
type ParseResult struct {
	Kind        ParseKind
	Event       keyevent.Event
	Passthrough byte
}

// csiFinal maps a CSI final byte with no parameter to a named key.
var csiFinal = map[byte]keyevent.Key{
	'A': {Kind: keyevent.KindUp},
	'B': {Kind: keyevent.KindDown},
	'C': {Kind: keyevent.KindRight},
	'D': {Kind: keyevent.KindLeft},
	'H': {Kind: keyevent.KindHome},
	'F': {Kind: keyevent.KindEnd},
}

// csiTilde maps the first numeric CSI parameter of a tilde-terminated
// sequence to a named key.
var csiTilde = map[int]keyevent.Key{
	1:  {Kind: keyevent.KindHome},
	2:  {Kind: keyevent.KindInsert},
	3:  {Kind: keyevent.KindDelete},
	4:  {Kind: keyevent.KindEnd},
	5:  {Kind: keyevent.KindPageUp},
	6:  {Kind: keyevent.KindPageDown},
	15: keyevent.F(5),
	17: keyevent.F(6),
	18: keyevent.F(7),
	19: keyevent.F(8),
	20: keyevent.F(9),
	21: keyevent.F(10),
	23: keyevent.F(11),
	24: keyevent.F(12),
}

// ss3Final maps an SS3 final byte to a named key.
var ss3Final = map[byte]keyevent.Key{
	'P': keyevent.F(1),
	'Q': keyevent.F(2),
	'R': keyevent.F(3),
	'S': keyevent.F(4),
	'H': {Kind: keyevent.KindHome},
	'F': {Kind: keyevent.KindEnd},
}

func isCSIFinal(b byte) bool { return b >= 0x40 && b <= 0x7E }
func isPrintable(b byte) bool { return b >= 0x20 && b <= 0x7E }

func isCtrlByte(b byte) bool {
	return b >= 0x01 && b <= 0x1A && b != 0x09 && b != 0x0D
}

func ctrlKey(b byte) keyevent.Key {
	return keyevent.Char(rune('a' + b - 1))
}

// ParseNext parses the leading bytes of buf. forceFirst implements the
// processor's force_parse_first mode (spec §4.3.1): when the buffer cannot
// yet be resolved because more bytes might still arrive (a lone ESC, or an
// escape sequence without its final byte), forceFirst decides it now rather
// than returning NeedMore, consuming only the leading ESC.
func ParseNext(buf []byte, forceFirst bool) (ParseResult, int) {
	if len(buf) == 0 {
		return ParseResult{Kind: ParseNeedMore}, 0
	}

	b := buf[0]

	switch {
	case b == 0x1B:
		return parseEscape(buf, forceFirst)
	case b == 0x09:
		return keyResult(keyevent.Event{Key: keyevent.Key{Kind: keyevent.KindTab}}), 1
	case b == 0x0D:
		return keyResult(keyevent.Event{Key: keyevent.Key{Kind: keyevent.KindEnter}}), 1
	case isCtrlByte(b):
		return keyResult(keyevent.Event{Key: ctrlKey(b), Mods: keyevent.ModCtrl}), 1
	case b == 0x7F:
		return keyResult(keyevent.Event{Key: keyevent.Key{Kind: keyevent.KindBackspace}}), 1
	case isPrintable(b):
		return keyResult(keyevent.Event{Key: keyevent.Char(rune(b))}), 1
	default:
		return ParseResult{Kind: ParsePassthrough, Passthrough: b}, 1
	}
}

func keyResult(ev keyevent.Event) ParseResult {
	return ParseResult{Kind: ParseKey, Event: ev}
}

func standaloneEscape() (ParseResult, int) {
	return keyResult(keyevent.Event{Key: keyevent.Key{Kind: keyevent.KindEscape}}), 1
}

func parseEscape(buf []byte, forceFirst bool) (ParseResult, int) {
	if len(buf) == 1 {
		if forceFirst {
			return standaloneEscape()
		}
		return ParseResult{Kind: ParseNeedMore}, 0
	}

	switch buf[1] {
	case '[':
		return parseCSI(buf, forceFirst)
	case 'O':
		if len(buf) < 3 {
			if forceFirst {
				return standaloneEscape()
			}
			return ParseResult{Kind: ParseNeedMore}, 0
		}
		if key, ok := ss3Final[buf[2]]; ok {
			return keyResult(keyevent.Event{Key: key}), 3
		}
		return standaloneEscape()
	default:
		c := buf[1]
		if isPrintable(c) {
			return keyResult(keyevent.Event{Key: keyevent.Char(rune(c)), Mods: keyevent.ModAlt}), 2
		}
		if isCtrlByte(c) {
			return keyResult(keyevent.Event{Key: ctrlKey(c), Mods: keyevent.ModAlt | keyevent.ModCtrl}), 2
		}
		return standaloneEscape()
	}
}

// parseCSI parses "ESC [ params final" starting at buf[0]=='\x1B'.
func parseCSI(buf []byte, forceFirst bool) (ParseResult, int) {
	i := 2
	for i < len(buf) && !isCSIFinal(buf[i]) {
		i++
	}
	if i >= len(buf) {
		if forceFirst {
			return standaloneEscape()
		}
		return ParseResult{Kind: ParseNeedMore}, 0
	}

	final := buf[i]
	paramStr := string(buf[2:i])
	consumed := i + 1

	params := splitParams(paramStr)

	if final == '~' {
		if len(params) == 0 {
			return standaloneEscape()
		}
		key, ok := csiTilde[params[0]]
		if !ok {
			return standaloneEscape()
		}
		mods := modifiersFromParam(params, 1)
		return keyResult(keyevent.Event{Key: key, Mods: mods}), consumed
	}

	key, ok := csiFinal[final]
	if !ok {
		return standaloneEscape()
	}
	mods := modifiersFromParam(params, 1)
	return keyResult(keyevent.Event{Key: key, Mods: mods}), consumed
}

func splitParams(s string) []int {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// modifiersFromParam decodes the modifier bits from params[idx] if present:
// bits = n-1, shift = bits&1, alt = bits&2, ctrl = bits&4 (spec §4.3.1).
func modifiersFromParam(params []int, idx int) keyevent.Modifiers {
	if idx >= len(params) {
		return 0
	}
	bits := params[idx] - 1
	var mods keyevent.Modifiers
	if bits&1 != 0 {
		mods |= keyevent.ModShift
	}
	if bits&2 != 0 {
		mods |= keyevent.ModAlt
	}
	if bits&4 != 0 {
		mods |= keyevent.ModCtrl
	}
	return mods
}
