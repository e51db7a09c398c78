// Package keybind implements the console input pipeline: a stateful byte
// parser that turns raw stdin bytes into [keyevent.Event] values (spec
// §4.3.1), a prefix-key state machine that maps events to actions or
// passthrough bytes (spec §4.3.2), and a loader for the key-binding
// configuration file grammar (spec §6).
//
// Neither stage has a direct counterpart in the teacher repo (a USB device
// stack has no terminal key parsing); both are built in the teacher's
// general idiom — small stateful structs, pure helper functions, one
// doc.go per package, table-driven tests — applied to new domain logic.
package keybind
