package keybind

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/ardnew/termbridge/internal/action"
	"github.com/ardnew/termbridge/internal/ioerr"
	"github.com/ardnew/termbridge/internal/keyevent"
)

// Config is a fully loaded key-binding configuration (spec §6): the prefix
// key, the two binding tables consumed by [Processor], and the named filter
// settings applied at startup.
type Config struct {
	Prefix         keyevent.Event
	Bindings       map[keyevent.Event]action.Action
	PrefixBindings map[keyevent.Event]action.Action
	Settings       map[string]string
}

// defaultPrefix is Ctrl+B, chosen the way most terminal multiplexers default
// their prefix, used when a config omits a "prefix" directive entirely.
var defaultPrefix = keyevent.Event{Key: keyevent.Char('b'), Mods: keyevent.ModCtrl}

// NewConfig returns an empty configuration with the default prefix.
func NewConfig() *Config {
	return &Config{
		Prefix:         defaultPrefix,
		Bindings:       map[keyevent.Event]action.Action{},
		PrefixBindings: map[keyevent.Event]action.Action{},
		Settings:       map[string]string{},
	}
}

// LoadConfig parses the key-binding configuration grammar from spec §6:
//
//	prefix <key>
//	map <key> <action>
//	map-prefix <key> <action>
//	set <name> <value>
//
// Blank lines and lines starting with # are ignored. Unrecognized keywords
// or malformed lines produce an [ioerr.ErrConfigParse] naming the line.
func LoadConfig(r io.Reader) (*Config, error) {
	cfg := NewConfig()

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields, err := tokenizeLine(line)
		if err != nil || len(fields) == 0 {
			return nil, fmt.Errorf("line %d: %w: %v", lineNo, ioerr.ErrConfigParse, err)
		}

		if err := cfg.applyDirective(fields); err != nil {
			return nil, fmt.Errorf("line %d: %w: %v", lineNo, ioerr.ErrConfigParse, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ioerr.ErrConfigParse, err)
	}
	return cfg, nil
}

func (cfg *Config) applyDirective(fields []string) error {
	switch fields[0] {
	case "prefix":
		if len(fields) != 2 {
			return fmt.Errorf("prefix takes exactly one key")
		}
		ev, err := parseKeySpec(fields[1])
		if err != nil {
			return err
		}
		cfg.Prefix = ev
		return nil

	case "map", "map-prefix":
		if len(fields) < 3 {
			return fmt.Errorf("%s takes a key and an action", fields[0])
		}
		ev, err := parseKeySpec(fields[1])
		if err != nil {
			return err
		}
		act, err := parseAction(fields[2:])
		if err != nil {
			return err
		}
		if fields[0] == "map" {
			cfg.Bindings[ev] = act
		} else {
			cfg.PrefixBindings[ev] = act
		}
		return nil

	case "set":
		if len(fields) != 3 {
			return fmt.Errorf("set takes a name and a value")
		}
		cfg.Settings[fields[1]] = fields[2]
		return nil

	default:
		return fmt.Errorf("unknown directive %q", fields[0])
	}
}

// SettingBool parses one of the boolean spellings spec §6 accepts:
// on/off, true/false, yes/no, 1/0.
func SettingBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	default:
		return false, fmt.Errorf("not a boolean: %q", v)
	}
}

// tokenizeLine splits a line on whitespace, treating a double-quoted span as
// a single field (spec §6's "send \"<string>\"" form may contain spaces).
func tokenizeLine(line string) ([]string, error) {
	var fields []string
	var cur strings.Builder
	inQuotes := false
	escaped := false
	started := false

	flush := func() {
		if started {
			fields = append(fields, cur.String())
			cur.Reset()
			started = false
		}
	}

	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune('\\')
			cur.WriteRune(r)
			escaped = false
			started = true
		case inQuotes && r == '\\':
			escaped = true
		case r == '"':
			inQuotes = !inQuotes
			started = true
		case !inQuotes && (r == ' ' || r == '\t'):
			flush()
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if inQuotes {
		return nil, fmt.Errorf("unterminated quoted string")
	}
	flush()
	return fields, nil
}

// parseAction decodes the action grammar from spec §6: quit | send "<str>" |
// send-bytes b1 b2 ... | filter-toggle <name>.
func parseAction(fields []string) (action.Action, error) {
	switch fields[0] {
	case "quit":
		return action.Quit(), nil

	case "send":
		if len(fields) != 2 {
			return action.Action{}, fmt.Errorf("send takes exactly one quoted string")
		}
		b, err := unescapeString(fields[1])
		if err != nil {
			return action.Action{}, err
		}
		return action.Send(b), nil

	case "send-bytes":
		if len(fields) < 2 {
			return action.Action{}, fmt.Errorf("send-bytes takes at least one byte")
		}
		b := make([]byte, 0, len(fields)-1)
		for _, f := range fields[1:] {
			n, err := parseByteLiteral(f)
			if err != nil {
				return action.Action{}, err
			}
			b = append(b, n)
		}
		return action.Send(b), nil

	case "filter-toggle":
		if len(fields) != 2 {
			return action.Action{}, fmt.Errorf("filter-toggle takes exactly one name")
		}
		return action.FilterToggle(fields[1]), nil

	default:
		return action.Action{}, fmt.Errorf("unknown action %q", fields[0])
	}
}

func parseByteLiteral(s string) (byte, error) {
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		s = s[2:]
	}
	n, err := strconv.ParseUint(s, base, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid byte literal: %v", err)
	}
	return byte(n), nil
}

// unescapeString decodes the C-style escapes spec §6 allows inside a
// "send" string: \n \r \t \\ \" \xHH.
func unescapeString(s string) ([]byte, error) {
	var out []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			out = append(out, c)
			continue
		}
		i++
		if i >= len(s) {
			return nil, fmt.Errorf("trailing backslash in string")
		}
		switch s[i] {
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case '\\':
			out = append(out, '\\')
		case '"':
			out = append(out, '"')
		case 'x':
			if i+2 >= len(s) {
				return nil, fmt.Errorf("incomplete \\x escape")
			}
			n, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
			if err != nil {
				return nil, fmt.Errorf("invalid \\x escape: %v", err)
			}
			out = append(out, byte(n))
			i += 2
		default:
			return nil, fmt.Errorf("unknown escape \\%c", s[i])
		}
	}
	return out, nil
}

// namedKeys maps the spec §6 Name spellings that are not single printable
// characters to their Key value.
var namedKeys = map[string]keyevent.Key{
	"Up":        {Kind: keyevent.KindUp},
	"Down":      {Kind: keyevent.KindDown},
	"Left":      {Kind: keyevent.KindLeft},
	"Right":     {Kind: keyevent.KindRight},
	"Home":      {Kind: keyevent.KindHome},
	"End":       {Kind: keyevent.KindEnd},
	"PageUp":    {Kind: keyevent.KindPageUp},
	"PageDown":  {Kind: keyevent.KindPageDown},
	"Insert":    {Kind: keyevent.KindInsert},
	"Delete":    {Kind: keyevent.KindDelete},
	"Tab":       {Kind: keyevent.KindTab},
	"Enter":     {Kind: keyevent.KindEnter},
	"Backspace": {Kind: keyevent.KindBackspace},
	"Escape":    {Kind: keyevent.KindEscape},
	"Space":     keyevent.Char(' '),
	"F1":        keyevent.F(1),
	"F2":        keyevent.F(2),
	"F3":        keyevent.F(3),
	"F4":        keyevent.F(4),
	"F5":        keyevent.F(5),
	"F6":        keyevent.F(6),
	"F7":        keyevent.F(7),
	"F8":        keyevent.F(8),
	"F9":        keyevent.F(9),
	"F10":       keyevent.F(10),
	"F11":       keyevent.F(11),
	"F12":       keyevent.F(12),
}

// parseKeySpec decodes the "[Mod+]...Name" key syntax from spec §6.
func parseKeySpec(s string) (keyevent.Event, error) {
	parts := strings.Split(s, "+")
	name := parts[len(parts)-1]
	mods := parts[:len(parts)-1]

	var ev keyevent.Event
	for _, m := range mods {
		switch strings.ToLower(m) {
		case "ctrl":
			ev.Mods |= keyevent.ModCtrl
		case "alt":
			ev.Mods |= keyevent.ModAlt
		case "shift":
			ev.Mods |= keyevent.ModShift
		default:
			return keyevent.Event{}, fmt.Errorf("unknown modifier %q", m)
		}
	}

	if key, ok := namedKeys[name]; ok {
		ev.Key = key
		return ev, nil
	}
	if len([]rune(name)) == 1 {
		// The parser always emits ctrl letters lowercase (byte 0x01 ->
		// Char('a', Ctrl)), so a config name must be folded the same way or
		// a binding like "Ctrl+A" would never match a parsed event.
		ev.Key = keyevent.Char(unicode.ToLower([]rune(name)[0]))
		return ev, nil
	}
	return keyevent.Event{}, fmt.Errorf("unknown key name %q", name)
}
