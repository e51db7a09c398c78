// Package term wraps the terminal raw-mode save/restore primitive
// (golang.org/x/term) and the process-wide panic hook that must undo it
// before the process exits (spec §5, §7): "Terminal attributes are acquired
// once... and released on every exit path including panic."
package term

import (
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"golang.org/x/term"
)

// RawMode holds the terminal state needed to restore a file descriptor from
// raw mode back to its original cooked-mode attributes.
type RawMode struct {
	fd    int
	state *term.State
}

// EnableRaw puts fd into raw mode, returning a handle that can restore it.
// fd is typically os.Stdin.Fd(); a no-op RawMode (Restore does nothing) is
// returned when fd is not a terminal, so headless/non-interactive runs can
// call EnableRaw unconditionally.
func EnableRaw(fd int) (*RawMode, error) {
	if !term.IsTerminal(fd) {
		return &RawMode{fd: fd}, nil
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return &RawMode{fd: fd, state: state}, nil
}

// Restore returns the descriptor to its pre-raw-mode attributes. Safe to
// call multiple times and on a nil *RawMode.
func (r *RawMode) Restore() {
	if r == nil || r.state == nil {
		return
	}
	_ = term.Restore(r.fd, r.state)
	r.state = nil
}

// Recover is deferred once in main. It restores the terminal's cooked mode
// before letting a panic reach the runtime's default handler, and reformats
// the panic trace with \r\n line endings so it reads correctly on a
// terminal that would otherwise still be left in raw mode.
func Recover(raw *RawMode) {
	r := recover()
	if r == nil {
		return
	}
	raw.Restore()

	trace := strings.ReplaceAll(string(debug.Stack()), "\n", "\r\n")
	fmt.Fprintf(os.Stderr, "panic: %v\r\n%s", r, trace)
	os.Exit(2)
}
