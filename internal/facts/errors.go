package facts

import (
	"errors"
	"fmt"
)

// Error categories. The concrete error types below unwrap to one of these.
var (
	// ErrInvalidPattern categorizes all validation-time failures.
	ErrInvalidPattern = errors.New("invalid pattern")
	// ErrBackend categorizes backend fetch failures.
	ErrBackend = errors.New("backend failure")
)

// MissingConstantError reports an absent required constant key.
// The message matches what rule-engine callers have historically seen.
type MissingConstantError struct {
	Key  string
	Kind Kind
}

func (e *MissingConstantError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("Need %s (constant: %s).", e.Key, e.Kind)
	}
	return fmt.Sprintf("Need %s.", e.Key)
}

func (e *MissingConstantError) Unwrap() error { return ErrInvalidPattern }

// ConstantKindError reports a constant whose value has the wrong JSON type.
type ConstantKindError struct {
	Key  string
	Kind Kind
}

func (e *ConstantKindError) Error() string {
	return fmt.Sprintf("Need %s (constant: %s).", e.Key, e.Kind)
}

func (e *ConstantKindError) Unwrap() error { return ErrInvalidPattern }

// IllegalPropertyError reports a key outside the schema's legal-property set.
type IllegalPropertyError struct {
	Key string
}

func (e *IllegalPropertyError) Error() string {
	return fmt.Sprintf("Illegal property %s.", e.Key)
}

func (e *IllegalPropertyError) Unwrap() error { return ErrInvalidPattern }

// NotAVariableError reports a property value that is not a ?-variable.
type NotAVariableError struct {
	Key   string
	Value any
}

func (e *NotAVariableError) Error() string {
	return fmt.Sprintf("Value %v must be a variable.", e.Value)
}

func (e *NotAVariableError) Unwrap() error { return ErrInvalidPattern }

// EmptyVariableNameError reports a bare sigil with no variable name.
type EmptyVariableNameError struct {
	Key string
}

func (e *EmptyVariableNameError) Error() string {
	return fmt.Sprintf("Need a named variable for %s.", e.Key)
}

func (e *EmptyVariableNameError) Unwrap() error { return ErrInvalidPattern }

// BackendError wraps a failed backend fetch: network failure, malformed
// upstream payload, or an upstream-reported error.
type BackendError struct {
	Detail string
	Err    error
}

func (e *BackendError) Error() string {
	if e.Err != nil {
		return e.Detail + ": " + e.Err.Error()
	}
	return e.Detail
}

func (e *BackendError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrBackend, e.Err}
	}
	return []error{ErrBackend}
}
