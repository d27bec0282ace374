package scan

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable discriminant carried by every fatal scan
// error, so callers can render precise messages without string matching.
type ErrorKind string

const (
	ErrLaunch            ErrorKind = "launch"
	ErrNavigation        ErrorKind = "navigation"
	ErrChecker           ErrorKind = "checker"
	ErrFrameworkRequired ErrorKind = "framework-required"
	ErrCancelled         ErrorKind = "cancelled"
)

// ScanError is a fatal, non-retryable fault with enough context for a
// user-facing message.
type ScanError struct {
	Kind   ErrorKind
	URL    string
	Engine string
	Err    error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("%s error scanning %s (%s): %v", e.Kind, e.URL, e.Engine, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// IsKind reports whether err is a ScanError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var se *ScanError
	return errors.As(err, &se) && se.Kind == kind
}
