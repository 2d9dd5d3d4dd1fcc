package hardware

import (
	"errors"
)

// ErrorCode classifies a hardware-transient failure for programmatic
// handling. Every facade method is infallible from the caller's
// perspective (spec.md §4.1): these codes exist so the Bootstrap and FSM
// layers can log a meaningful cause, never so they can branch on it to
// change FSM behavior.
type ErrorCode int

const (
	// ErrCodeReadFailed covers RFID/keypad read failures.
	ErrCodeReadFailed ErrorCode = iota + 1
	// ErrCodeWriteFailed covers LCD/LED/buzzer/relay write failures.
	ErrCodeWriteFailed
	// ErrCodeNotConnected covers a peripheral that failed to initialize.
	ErrCodeNotConnected
)

// Error provides structured error information for a hardware driver
// failure. It is never returned to FSM code directly — the facade
// catches it, logs it, and returns a safe default (spec.md §4.1, §7).
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func newReadError(op string, cause error) *Error {
	return &Error{Code: ErrCodeReadFailed, Op: op, Message: "read failed", Cause: cause}
}

func newWriteError(op string, cause error) *Error {
	return &Error{Code: ErrCodeWriteFailed, Op: op, Message: "write failed", Cause: cause}
}

func newNotConnectedError(op string, cause error) *Error {
	return &Error{Code: ErrCodeNotConnected, Op: op, Message: "device not connected", Cause: cause}
}
