// Package errors defines the pipeline's error taxonomy. Every fatal failure
// wraps one of the sentinels below so callers can classify it with errors.Is
// and map it to a process exit code.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrCorruptIndex  = errors.New("corrupt index")
	ErrFormat        = errors.New("format error")
	ErrInternal      = errors.New("internal error")
)

type AppError struct {
	Err     error
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, message string) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: message,
	}
}

func Newf(sentinel error, format string, args ...any) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
	}
}

// ExitCode maps an error to the exit status used by the irbench binary.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrConfiguration):
		return 2
	case errors.Is(err, ErrNotFound):
		return 3
	case errors.Is(err, ErrCorruptIndex):
		return 4
	case errors.Is(err, ErrFormat):
		return 5
	case errors.Is(err, ErrAlreadyExists):
		return 6
	default:
		return 1
	}
}
