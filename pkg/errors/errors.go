// Package errors defines the sentinel errors shared by the indexing and
// retrieval layers, plus AppError for attaching context to a sentinel while
// keeping it matchable with errors.Is.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrCorruptIndex  = errors.New("corrupt index")
	ErrDecode        = errors.New("postings decode failed")
	ErrOutOfOrder    = errors.New("term appended out of order")
	ErrEmptyPostings = errors.New("empty postings list")
	ErrNoInput       = errors.New("no input to index or merge")
	ErrMergeOrder    = errors.New("merge input not in ascending term order")
	ErrMergeInput    = errors.New("merge inputs overlap")
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

// IsFatal reports whether err aborts an indexing run or a read: corruption,
// decode failures and construction-order violations. Unknown terms at query
// time never surface as errors, so they have no sentinel here.
func IsFatal(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrCorruptIndex),
		errors.Is(err, ErrDecode),
		errors.Is(err, ErrOutOfOrder),
		errors.Is(err, ErrEmptyPostings),
		errors.Is(err, ErrNoInput),
		errors.Is(err, ErrMergeOrder),
		errors.Is(err, ErrMergeInput):
		return true
	default:
		return false
	}
}

// Is, As and Join re-export the standard library helpers so callers can
// import a single errors package.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

func Join(errs ...error) error { return errors.Join(errs...) }
