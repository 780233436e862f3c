package schema

import (
	"errors"
	"fmt"
)

// Error codes reported by the engine.
const (
	ErrCodeStructural        = "STRUCTURAL"
	ErrCodeUnknownIdentifier = "UNKNOWN_IDENTIFIER"
	ErrCodeUninitialized     = "UNINITIALIZED"
	ErrCodeReentrant         = "REENTRANT_CALL"
	ErrCodeModuleUnmet       = "MODULE_DEPENDENCIES_UNMET"
)

// ErrStructural matches every structural error kind via errors.Is:
// malformed expressions, unknown identifiers, unusable or re-entered engines.
var ErrStructural = errors.New("structural error")

// Error is the coded error returned by schema, eval, and engine operations.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("[%s] %s at %s", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is makes structural codes match ErrStructural.
func (e *Error) Is(target error) bool {
	if target != ErrStructural {
		return false
	}
	return e.Code != ErrCodeModuleUnmet
}

// NewErrorf creates an Error with a formatted message.
func NewErrorf(code, path, format string, args ...any) *Error {
	return &Error{Code: code, Path: path, Message: fmt.Sprintf(format, args...)}
}

// Structuralf creates a STRUCTURAL error.
func Structuralf(path, format string, args ...any) *Error {
	return NewErrorf(ErrCodeStructural, path, format, args...)
}

// HasCode reports whether err wraps an *Error with the given code.
func HasCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
