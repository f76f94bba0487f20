package reactive

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes runtime errors.
type ErrorCode string

const (
	// ErrCodeCycleDetected indicates a computed was read while computing.
	ErrCodeCycleDetected ErrorCode = "CYCLE_DETECTED"

	// ErrCodeFlushLimit indicates effects kept re-queueing each other past
	// the configured number of flush passes.
	ErrCodeFlushLimit ErrorCode = "FLUSH_LIMIT"

	// ErrCodeInputUnset indicates an Input was read before it was set.
	ErrCodeInputUnset ErrorCode = "INPUT_UNSET"
)

// Error is a reactive runtime error.
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrInputUnset is returned by Input.Lookup before the first Set.
var ErrInputUnset = &Error{Code: ErrCodeInputUnset, Message: "input read before it was set"}

// IsCycleError reports whether err is a cycle detection error.
func IsCycleError(err error) bool {
	return hasCode(err, ErrCodeCycleDetected)
}

// IsFlushLimitError reports whether err is a flush limit error.
func IsFlushLimitError(err error) bool {
	return hasCode(err, ErrCodeFlushLimit)
}

// IsInputUnset reports whether err is a premature Input read.
func IsInputUnset(err error) bool {
	return hasCode(err, ErrCodeInputUnset)
}

func hasCode(err error, code ErrorCode) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}
