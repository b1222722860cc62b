package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrNotFound = errors.New("requested item not found")
var ErrConflict = errors.New("item already exists or conflict")
var ErrUnauthenticated = errors.New("authentication required or invalid credentials")
var ErrForbidden = errors.New("action forbidden")

// Lifecycle invariant violations. These are returned by the account service
// and must never be coerced into a generic failure: callers map each to a
// distinct machine-readable code.
var ErrLastAdmin = errors.New("operation would leave the platform without an administrator")
var ErrCannotBlockAdmin = errors.New("administrator accounts cannot be blocked")
var ErrCannotSelfBlock = errors.New("administrators cannot block their own account")
var ErrAccountBlocked = errors.New("account is blocked")
var ErrDeletionPending = errors.New("account has a pending deletion request")
var ErrNotBlocked = errors.New("account is not blocked")
var ErrNoDeletionPending = errors.New("account has no pending deletion request")

// ValidationError reports field-level input problems before any state change.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func NewValidationError(fields map[string]string) error {
	return &ValidationError{Fields: fields}
}
