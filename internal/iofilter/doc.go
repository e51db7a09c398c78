// Package iofilter implements the console's toggleable byte transformers
// (spec §4.3.3): line-start timestamp annotation and character-map
// substitution, composed into a fixed-order chain. Like [keybind], it has no
// direct teacher analogue and is built in the teacher's idiom — small
// structs each owning one concern, an explicit enabled flag, table-driven
// tests.
package iofilter
