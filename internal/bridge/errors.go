package bridge

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes bind errors.
type ErrorCode string

const (
	// ErrCodeNoScope indicates Bind found neither WithScope nor an
	// ambient scope.
	ErrCodeNoScope ErrorCode = "NO_SCOPE"

	// ErrCodeRuntimeMismatch indicates the scope and the source belong
	// to different runtimes.
	ErrCodeRuntimeMismatch ErrorCode = "RUNTIME_MISMATCH"

	// ErrCodeNilSource indicates Bind was called with a nil source.
	ErrCodeNilSource ErrorCode = "NIL_SOURCE"
)

// Error is returned by Bind and BindDeep.
type Error struct {
	Code    ErrorCode
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrNoScope is returned when no scope is available for a bind.
var ErrNoScope = &Error{
	Code:    ErrCodeNoScope,
	Message: "bind needs a scope: pass WithScope or call inside Scope.Run",
}

// IsNoScope reports whether err is a missing-scope error.
func IsNoScope(err error) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.Code == ErrCodeNoScope
	}
	return false
}
