package dispatch

import "fmt"

// NoMatchError indicates that no candidate both validated against the call
// and invoked cleanly. It carries no per-candidate detail: rejection reasons
// are deliberately discarded, the caller sees one uniform failure however
// many candidates were tried.
type NoMatchError struct {
	Key string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("%s: invalid call argument(s)", e.Key)
}

func NewNoMatchError(key string) *NoMatchError {
	return &NoMatchError{Key: key}
}

// MalformedTargetError indicates a registration-time problem with an
// overload target, such as a constructor target without a usable
// initializer. It is fatal to that registration only; candidates registered
// earlier are untouched.
type MalformedTargetError struct {
	Reason string
}

func (e *MalformedTargetError) Error() string {
	return fmt.Sprintf("malformed overload target: %s", e.Reason)
}

func NewMalformedTargetError(reason string) *MalformedTargetError {
	return &MalformedTargetError{Reason: reason}
}

// UnknownGroupError indicates a finalize (or lookup) against a symbolic key
// with no prior registrations.
type UnknownGroupError struct {
	Key string
}

func (e *UnknownGroupError) Error() string {
	return fmt.Sprintf("no overloads registered under %q", e.Key)
}

func NewUnknownGroupError(key string) *UnknownGroupError {
	return &UnknownGroupError{Key: key}
}

// ArgumentError is the one error class the dispatch loop treats as "this
// candidate was a poor fit after all": when a validating candidate's
// invocation returns or wraps an ArgumentError, the scan moves on to the
// next candidate instead of propagating. Implementations use it for value
// errors; argument conversion uses it for type errors. Every other error
// kind aborts dispatch immediately.
type ArgumentError struct {
	Reason string
	Err    error
}

func (e *ArgumentError) Error() string {
	if e.Err != nil {
		if e.Reason != "" {
			return fmt.Sprintf("%s: %v", e.Reason, e.Err)
		}
		return e.Err.Error()
	}
	return e.Reason
}

func (e *ArgumentError) Unwrap() error { return e.Err }

// NewArgumentError builds an ArgumentError with a formatted reason.
func NewArgumentError(format string, args ...any) *ArgumentError {
	return &ArgumentError{Reason: fmt.Sprintf(format, args...)}
}

// WrapArgumentError marks an existing error as argument-class.
func WrapArgumentError(err error) *ArgumentError {
	return &ArgumentError{Err: err}
}
