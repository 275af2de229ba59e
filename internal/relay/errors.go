// ABOUTME: Failure taxonomy for relay operations.
// ABOUTME: Every rejection carries a machine-readable kind plus a human reason.

package relay

import (
	"errors"

	"github.com/2389/wallboard-relay/internal/registry"
)

// Kind classifies why a relay operation was rejected.
type Kind string

const (
	KindMissingField       Kind = "missing_field"
	KindInvalidStatus      Kind = "invalid_status"
	KindInvalidMessage     Kind = "invalid_message"
	KindDuplicateIdentity  Kind = "duplicate_identity"
	KindPersistenceFailure Kind = "persistence_failure"
)

// Error is a classified relay rejection. The Kind is stable for clients;
// the Message is for humans.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Classify extracts the rejection kind from an error chain. The second
// return is false for errors that did not originate as a relay rejection.
func Classify(err error) (Kind, bool) {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind, true
	}
	if errors.Is(err, registry.ErrDuplicateIdentity) {
		return KindDuplicateIdentity, true
	}
	return "", false
}
