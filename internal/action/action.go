// Package action defines the local control actions a console's key-binding
// layer can emit in place of passthrough bytes (spec §3).
package action

// Kind discriminates an Action's payload.
type Kind uint8

// Action kinds.
const (
	KindQuit Kind = iota
	KindSend
	KindFilterToggle
)

// Action is a tagged union: Quit | Send([]byte) | FilterToggle(name).
type Action struct {
	Kind       Kind
	Send       []byte
	FilterName string
}

// Quit returns a Quit action.
func Quit() Action { return Action{Kind: KindQuit} }

// Send returns a Send action carrying bytes to write to the device.
func Send(b []byte) Action { return Action{Kind: KindSend, Send: b} }

// FilterToggle returns a FilterToggle action naming a filter to flip.
func FilterToggle(name string) Action { return Action{Kind: KindFilterToggle, FilterName: name} }
