// Package ipcerr defines the closed failure taxonomy shared across the IPC
// transport and session core. Every error that crosses a package boundary in
// this module is either one of these kinds or wrapped around one with %w, so
// callers can branch with errors.As instead of string matching.
package ipcerr

import "fmt"

// Kind identifies a class of failure in the IPC client core. Kinds are not
// Go types; they are a flat enumeration callers switch on.
type Kind int

const (
	// Unknown is the zero value; it should never appear in a returned error.
	Unknown Kind = iota

	ConnectTimeout
	ConnectFailed
	HandshakeTimeout
	Unauthenticated
	SchemaMismatch
	VersionMismatch
	ProjectRootMismatch
	EditorBusy
	ProtocolViolation
	DecodeError
	FrameTooLarge
	UnexpectedEOF
	FeatureUnavailable
	CallTimeout
	SessionClosed
	IO
	Internal
)

var kindNames = map[Kind]string{
	Unknown:             "Unknown",
	ConnectTimeout:       "ConnectTimeout",
	ConnectFailed:        "ConnectFailed",
	HandshakeTimeout:     "HandshakeTimeout",
	Unauthenticated:      "Unauthenticated",
	SchemaMismatch:       "SchemaMismatch",
	VersionMismatch:      "VersionMismatch",
	ProjectRootMismatch:  "ProjectRootMismatch",
	EditorBusy:           "EditorBusy",
	ProtocolViolation:    "ProtocolViolation",
	DecodeError:          "DecodeError",
	FrameTooLarge:        "FrameTooLarge",
	UnexpectedEOF:        "UnexpectedEOF",
	FeatureUnavailable:   "FeatureUnavailable",
	CallTimeout:          "CallTimeout",
	SessionClosed:        "SessionClosed",
	IO:                   "IO",
	Internal:             "Internal",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// retriable reports the kind's default retriability per the taxonomy table.
// CallTimeout and SessionClosed are "caller's choice" and are not covered
// here; Retriable always reports false for them so a naive supervisor never
// auto-retries a call-scoped failure it wasn't designed to see.
var retriable = map[Kind]bool{
	ConnectTimeout:   true,
	ConnectFailed:    true,
	HandshakeTimeout: true,
	EditorBusy:       true,
	IO:               true,
}

// Error is the concrete error type returned across this module's API
// boundary. It carries a Kind, a human-readable message, and an optional
// underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ipc: %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("ipc: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Retriable reports whether the supervisor should treat this error as
// transient and re-enter the backoff loop rather than surfacing it as fatal.
func (e *Error) Retriable() bool {
	return retriable[e.Kind]
}

// Fatal is the complement of Retriable, spelled out at call sites that read
// better asking "is this fatal" than "is this not retriable".
func (e *Error) Fatal() bool {
	return !e.Retriable()
}

// Hint returns a concise, actionable remediation message for the kinds the
// spec calls out explicitly. It returns "" for kinds with no canned hint.
func (e *Error) Hint() string {
	switch e.Kind {
	case SchemaMismatch:
		return "regenerate bindings from the shared schema"
	case Unauthenticated:
		return "set the IPC token (MCP_IPC_TOKEN)"
	case ProjectRootMismatch:
		return "check MCP_PROJECT_ROOT matches the project open in the Editor"
	case VersionMismatch:
		return "update the client or the Bridge so their ipc_version majors match"
	default:
		return ""
	}
}
