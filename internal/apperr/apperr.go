package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error so handlers can pick a status code and the
// scheduler can tell recoverable generation failures from everything else.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindConflict
	KindNotFound
	KindGeneration
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) error { return &Error{Kind: KindValidation, Msg: msg} }

func Conflict(msg string) error { return &Error{Kind: KindConflict, Msg: msg} }

func NotFound(msg string) error { return &Error{Kind: KindNotFound, Msg: msg} }

func Generation(msg string, err error) error {
	return &Error{Kind: KindGeneration, Msg: msg, Err: err}
}

func Generationf(format string, args ...any) error {
	return &Error{Kind: KindGeneration, Msg: fmt.Sprintf(format, args...)}
}

func is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func IsValidation(err error) bool { return is(err, KindValidation) }
func IsConflict(err error) bool   { return is(err, KindConflict) }
func IsNotFound(err error) bool   { return is(err, KindNotFound) }
func IsGeneration(err error) bool { return is(err, KindGeneration) }
