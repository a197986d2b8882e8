package errors

import (
	pkgerrors "github.com/pkg/errors"
)

// ExitCodeError carries the exit code that should be reported for a failure.
type ExitCodeError struct {
	code ExitCode
	error
}

func NewError(err error, exitCode ExitCode) *ExitCodeError {
	if err == nil {
		return nil
	}
	return &ExitCodeError{exitCode, err}
}

func (e *ExitCodeError) GetExitCode() ExitCode {
	if e == nil {
		return 0
	}
	return e.code
}

func (e *ExitCodeError) Cause() error {
	if e == nil {
		return nil
	}
	return e.error
}

// ExitCodeOf walks the wrap chain of err looking for an ExitCodeError and
// returns its code, or def if none is found.
func ExitCodeOf(err error, def ExitCode) ExitCode {
	for err != nil {
		if ece, ok := err.(*ExitCodeError); ok {
			return ece.code
		}
		c, ok := err.(interface{ Cause() error })
		if !ok {
			break
		}
		next := c.Cause()
		if next == err {
			break
		}
		err = next
	}
	return def
}

// Wrap attaches an exit code to err, annotated with msg.
func Wrap(err error, exitCode ExitCode, msg string) error {
	if err == nil {
		return nil
	}
	return NewError(pkgerrors.Wrap(err, msg), exitCode)
}
