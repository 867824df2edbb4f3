// Package perrors collects the error taxonomy from §7: which failures are
// fatal to the process (BindFailed, MalformedInventory) and which are
// recovered at the component boundary that owns them.
package perrors

import "fmt"

// Kind identifies one row of the §7 taxonomy table.
type Kind string

const (
	BindFailed           Kind = "BindFailed"
	MalformedInventory    Kind = "MalformedInventory"
	TlsHandshakeFailed    Kind = "TlsHandshakeFailed"
	UpstreamNetworkError  Kind = "UpstreamNetworkError"
	BodyReadFailed        Kind = "BodyReadFailed"
	NormalisationFailed   Kind = "NormalisationFailed"
	MatchNotFound         Kind = "MatchNotFound"
	TimingDeadlineMissed  Kind = "TimingDeadlineMissed"
	ClientDisconnected    Kind = "ClientDisconnected"
	PersistenceFailed     Kind = "PersistenceFailed"
)

// Fatal reports whether errors of this kind are allowed to terminate the
// process (the propagation rule in §7: only these two may).
func (k Kind) Fatal() bool {
	return k == BindFailed || k == MalformedInventory
}

// Error wraps an underlying cause with its taxonomy Kind, so callers
// upstream can branch on Kind without string-matching messages.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a taxonomy error. op is the component-local operation name
// (e.g. "inventory.Save", "mitm.handshake").
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err's Unwrap chain holds a taxonomy Error of the
// given Kind. It is a helper in its own right rather than an errors.Is
// target, since Kind values are plain string constants rather than
// sentinel error values.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// KindOf walks err's Unwrap chain looking for a taxonomy Error and returns
// its Kind. The process entry point uses this to decide whether an error
// returned from a command is allowed to exit non-zero.
func KindOf(err error) (Kind, bool) {
	var pe *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			pe = e
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if pe == nil {
		return "", false
	}
	return pe.Kind, true
}
