// Package ioresult defines the tagged-struct sum type every endpoint's
// Read returns (spec §3): Data([]byte) | Action(a) | None. A tagged struct
// is used instead of an interface because a Result is produced on every
// poll tick of every endpoint and must not allocate for the common (Data or
// None) cases, matching the teacher's zero-allocation transfer-status
// convention (device/transfer.go, host/transfer.go).
package ioresult

import "github.com/ardnew/termbridge/internal/action"

// Kind discriminates a Result's payload.
type Kind uint8

// Result kinds.
const (
	KindNone Kind = iota
	KindData
	KindAction
)

// Result is returned by Endpoint.Read. Callers must keep calling Read until
// it returns KindNone ("would block" under edge-triggered readiness).
type Result struct {
	Kind   Kind
	Data   []byte
	Action action.Action
}

// None is the sentinel "would block" result.
var None = Result{Kind: KindNone}

// Data wraps a byte slice as a Data result.
func Data(b []byte) Result { return Result{Kind: KindData, Data: b} }

// OfAction wraps an action as an Action result.
func OfAction(a action.Action) Result { return Result{Kind: KindAction, Action: a} }
