package keybind

import (
	"unicode"

	"github.com/ardnew/termbridge/internal/keyevent"
)

// ss3ByKey inverts ss3Final for F1..F4/Home/End encoding.
var ss3ByKey = map[keyevent.Kind]byte{
	keyevent.KindHome: 'H',
	keyevent.KindEnd:  'F',
}

// csiByKey inverts csiFinal for the arrow/Home/End letter-final sequences.
var csiByKey = map[keyevent.Kind]byte{
	keyevent.KindUp:    'A',
	keyevent.KindDown:  'B',
	keyevent.KindRight: 'C',
	keyevent.KindLeft:  'D',
}

// csiTildeByNumber inverts csiTilde.
var csiTildeByNumber = map[keyevent.Kind]byte{
	keyevent.KindInsert:   '2',
	keyevent.KindDelete:   '3',
	keyevent.KindPageUp:   '5',
	keyevent.KindPageDown: '6',
}

var fTilde = map[uint8]string{
	5: "15", 6: "17", 7: "18", 8: "19", 9: "20", 10: "21", 11: "23", 12: "24",
}

// Encode inverts ParseNext for any event the parser can produce, per spec
// §4.3.2: Ctrl+letter → 0x01..=0x1A, Alt prepends 0x1B, named keys map to
// their standard byte sequences.
func Encode(ev keyevent.Event) []byte {
	body := encodeBody(ev)
	if ev.Mods.Alt() {
		return append([]byte{0x1B}, body...)
	}
	return body
}

func encodeBody(ev keyevent.Event) []byte {
	k := ev.Key
	switch k.Kind {
	case keyevent.KindChar:
		if ev.Mods.Ctrl() {
			c := unicode.ToLower(k.Rune)
			return []byte{byte(c - 'a' + 1)}
		}
		return []byte{byte(k.Rune)}
	case keyevent.KindTab:
		return []byte{0x09}
	case keyevent.KindEnter:
		return []byte{0x0D}
	case keyevent.KindBackspace:
		return []byte{0x7F}
	case keyevent.KindEscape:
		return []byte{0x1B}
	case keyevent.KindF:
		if k.FNum >= 1 && k.FNum <= 4 {
			return []byte{0x1B, 'O', ss3Final1to4(k.FNum)}
		}
		if n, ok := fTilde[k.FNum]; ok {
			return append([]byte{0x1B, '['}, append([]byte(n), '~')...)
		}
		return nil
	case keyevent.KindUp, keyevent.KindDown, keyevent.KindLeft, keyevent.KindRight:
		return []byte{0x1B, '[', csiByKey[k.Kind]}
	case keyevent.KindHome:
		return []byte{0x1B, 'O', ss3ByKey[k.Kind]}
	case keyevent.KindEnd:
		return []byte{0x1B, 'O', ss3ByKey[k.Kind]}
	case keyevent.KindInsert, keyevent.KindDelete, keyevent.KindPageUp, keyevent.KindPageDown:
		return []byte{0x1B, '[', csiTildeByNumber[k.Kind], '~'}
	default:
		return nil
	}
}

func ss3Final1to4(n uint8) byte {
	return "PQRS"[n-1]
}
