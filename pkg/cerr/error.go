package cerr

import (
	"errors"
	"fmt"
	"runtime"
)

// Error carries a Code returned to the caller together with the underlying
// error kept for logging. Reason optionally names the domain-level failure
// so clients can branch without parsing messages.
type Error struct {
	Code   Code
	Reason string
	Msg    string
	Err    error
	Stack  string
}

func NewError(code Code, msg string, underlying error) *Error {
	err := &Error{
		Code: code,
		Msg:  msg,
		Err:  underlying,
	}
	if code.HTTPCode() >= 500 {
		stackTrace := make([]byte, 2048)
		n := runtime.Stack(stackTrace, false)
		err.Stack = string(stackTrace[0:n])
	}
	return err
}

func NewErrorWithReason(code Code, reason, msg string, underlying error) *Error {
	err := NewError(code, msg, underlying)
	err.Reason = reason
	return err
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%s] %s", e.Code.String(), e.Msg)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code.String(), e.Msg, e.Err.Error())
}

func (e *Error) Unwrap() error {
	return e.Err
}

func IsCode(err error, code Code) bool {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Code == code
	}
	return false
}

func ReasonOf(err error) string {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Reason
	}
	return ""
}
