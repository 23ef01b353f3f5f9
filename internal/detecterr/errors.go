// Package detecterr defines the closed failure taxonomy of the detection core.
package detecterr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	// KindFormat marks text rejected by a validator. Validators report it via
	// their outcome; the kind exists so audit records can name it.
	KindFormat Kind = "format"

	// KindPassExecution marks a pass that returned an error or panicked.
	KindPassExecution Kind = "pass_execution"

	// KindRegistry marks validator registry misuse (frozen, priority conflict).
	KindRegistry Kind = "registry"

	// KindResourceLimit marks input rejected by a length cap.
	KindResourceLimit Kind = "resource_limit"

	// KindModel marks an unavailable or failing external entity source.
	KindModel Kind = "model"

	// KindConfig marks invalid configuration.
	KindConfig Kind = "config"

	// KindInternal is the fallback for untyped errors.
	KindInternal Kind = "internal"
)

// Sentinel errors.
var (
	ErrRegistryFrozen   = errors.New("validator registry is frozen")
	ErrPriorityConflict = errors.New("validator priority conflict")
	ErrInputTooLong     = errors.New("input exceeds length cap")
	ErrPassPanicked     = errors.New("pass panicked")
	ErrModelUnavailable = errors.New("entity source unavailable")
)

// Error carries structured context for a failure.
type Error struct {
	Kind       Kind
	Op         string
	Pass       string
	EntityType string
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Op)
	if e.Pass != "" {
		msg += " pass=" + e.Pass
	}
	if e.EntityType != "" {
		msg += " type=" + e.EntityType
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Registry is a shorthand for registry misuse on a specific entity type.
func Registry(op, entityType string, err error) *Error {
	return &Error{Kind: KindRegistry, Op: op, EntityType: entityType, Err: err}
}

// PassFailure records a failed pass.
func PassFailure(pass string, err error) *Error {
	return &Error{Kind: KindPassExecution, Op: "execute", Pass: pass, Err: err}
}

// KindOf extracts the kind from err, KindInternal when untyped.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
