package keybind

import (
	"errors"
	"strings"
	"testing"

	"github.com/ardnew/termbridge/internal/action"
	"github.com/ardnew/termbridge/internal/ioerr"
	"github.com/ardnew/termbridge/internal/keyevent"
)

func TestLoadConfigFullGrammar(t *testing.T) {
	src := `
# comment and blank lines are ignored

prefix Ctrl+A
map Ctrl+Q quit
map-prefix x quit
map-prefix s send "hi\n"
map F5 send-bytes 0x41 66 0x43
set timestamp-abs on
set charmap-imap crlf
`
	cfg, err := LoadConfig(strings.NewReader(src))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	wantPrefix := keyevent.Event{Key: keyevent.Char('a'), Mods: keyevent.ModCtrl}
	if cfg.Prefix != wantPrefix {
		t.Errorf("Prefix = %+v, want %+v", cfg.Prefix, wantPrefix)
	}

	quitKey := keyevent.Event{Key: keyevent.Char('q'), Mods: keyevent.ModCtrl}
	if a, ok := cfg.Bindings[quitKey]; !ok || a.Kind != action.KindQuit {
		t.Errorf("Bindings[Ctrl+Q] = %+v, ok=%v, want Quit", a, ok)
	}

	xKey := keyevent.Event{Key: keyevent.Char('x')}
	if a, ok := cfg.PrefixBindings[xKey]; !ok || a.Kind != action.KindQuit {
		t.Errorf("PrefixBindings[x] = %+v, ok=%v, want Quit", a, ok)
	}

	sKey := keyevent.Event{Key: keyevent.Char('s')}
	if a, ok := cfg.PrefixBindings[sKey]; !ok || string(a.Send) != "hi\n" {
		t.Errorf("PrefixBindings[s] = %+v, ok=%v, want Send(\"hi\\n\")", a, ok)
	}

	f5Key := keyevent.Event{Key: keyevent.F(5)}
	if a, ok := cfg.Bindings[f5Key]; !ok || string(a.Send) != "ABC" {
		t.Errorf("Bindings[F5] = %+v, ok=%v, want Send(\"ABC\")", a, ok)
	}

	if cfg.Settings["timestamp-abs"] != "on" {
		t.Errorf("Settings[timestamp-abs] = %q, want on", cfg.Settings["timestamp-abs"])
	}
	if cfg.Settings["charmap-imap"] != "crlf" {
		t.Errorf("Settings[charmap-imap] = %q, want crlf", cfg.Settings["charmap-imap"])
	}
}

func TestLoadConfigUnknownDirectiveIsConfigParseError(t *testing.T) {
	_, err := LoadConfig(strings.NewReader("bogus foo bar\n"))
	if !errors.Is(err, ioerr.ErrConfigParse) {
		t.Fatalf("err = %v, want wrapping ErrConfigParse", err)
	}
}

func TestLoadConfigUnterminatedQuoteIsConfigParseError(t *testing.T) {
	_, err := LoadConfig(strings.NewReader(`map-prefix s send "unterminated`))
	if !errors.Is(err, ioerr.ErrConfigParse) {
		t.Fatalf("err = %v, want wrapping ErrConfigParse", err)
	}
}

func TestSettingBool(t *testing.T) {
	truthy := []string{"on", "true", "yes", "1", "ON", "TRUE"}
	falsy := []string{"off", "false", "no", "0", "OFF"}

	for _, v := range truthy {
		b, err := SettingBool(v)
		if err != nil || !b {
			t.Errorf("SettingBool(%q) = %v, %v; want true, nil", v, b, err)
		}
	}
	for _, v := range falsy {
		b, err := SettingBool(v)
		if err != nil || b {
			t.Errorf("SettingBool(%q) = %v, %v; want false, nil", v, b, err)
		}
	}
	if _, err := SettingBool("maybe"); err == nil {
		t.Error("SettingBool(\"maybe\") should error")
	}
}

func TestParseKeySpecNamedAndSingleRune(t *testing.T) {
	ev, err := parseKeySpec("Ctrl+Alt+Delete")
	if err != nil {
		t.Fatalf("parseKeySpec: %v", err)
	}
	want := keyevent.Event{Key: keyevent.Key{Kind: keyevent.KindDelete}, Mods: keyevent.ModCtrl | keyevent.ModAlt}
	if ev != want {
		t.Errorf("got %+v, want %+v", ev, want)
	}

	ev, err = parseKeySpec("q")
	if err != nil {
		t.Fatalf("parseKeySpec: %v", err)
	}
	if ev != (keyevent.Event{Key: keyevent.Char('q')}) {
		t.Errorf("got %+v, want Char('q')", ev)
	}

	if _, err := parseKeySpec("Bogus+Ctrl"); err == nil {
		t.Error("parseKeySpec with unknown modifier should error")
	}
}

func TestNewConfigDefaultPrefix(t *testing.T) {
	cfg := NewConfig()
	want := keyevent.Event{Key: keyevent.Char('b'), Mods: keyevent.ModCtrl}
	if cfg.Prefix != want {
		t.Errorf("default Prefix = %+v, want %+v", cfg.Prefix, want)
	}
}
