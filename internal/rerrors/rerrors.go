// Package rerrors defines the error kinds produced by the frame/register/
// reel engine. Every operation that can fail returns one of these wrapped in
// a *Error so callers can inspect the Kind with errors.Is/errors.As instead
// of matching on message text.
package rerrors

import (
	"errors"
	"fmt"
)

// Kind identifies a category of engine failure.
type Kind string

const (
	FrameParse                 Kind = "FrameParse"
	ReelParse                  Kind = "ReelParse"
	CutParse                   Kind = "CutParse"
	InvalidVariableName        Kind = "InvalidVariableName"
	DuplicateReference         Kind = "DuplicateReference"
	UnknownSetVariable         Kind = "UnknownSetVariable"
	UnknownVariable            Kind = "UnknownVariable"
	MissingClosingBrace        Kind = "MissingClosingBrace"
	NonStringSubstitution      Kind = "NonStringSubstitution"
	NonStringKey               Kind = "NonStringKey"
	DuplicateKeyAfterHydration Kind = "DuplicateKeyAfterHydration"
	SelectorParse              Kind = "SelectorParse"
	BadValidationTarget        Kind = "BadValidationTarget"
	MissingSelection           Kind = "MissingSelection"
	WriteTemplateMismatch      Kind = "WriteTemplateMismatch"
	ValueMismatch              Kind = "ValueMismatch"
	Transport                  Kind = "Transport"
	DuplicateSequence          Kind = "DuplicateSequence"
)

// Error is the concrete error type returned by this module's packages.
type Error struct {
	Kind    Kind
	Message string
	Item    string // offending item, if any
	Err     error  // wrapped cause, if any
}

func (e *Error) Error() string {
	if e.Item != "" {
		return fmt.Sprintf("%s: %s => %q", e.Kind, e.Message, e.Item)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, rerrors.New(rerrors.ValueMismatch, "", "")).
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// New builds an *Error for the given kind.
func New(kind Kind, message, item string) *Error {
	return &Error{Kind: kind, Message: message, Item: item}
}

// Wrap builds an *Error that carries an underlying cause.
func Wrap(kind Kind, message, item string, err error) *Error {
	return &Error{Kind: kind, Message: message, Item: item, Err: err}
}

// Sentinel returns a zero-item *Error of the given kind, useful as an
// errors.Is() comparison target.
func Sentinel(kind Kind) *Error {
	return &Error{Kind: kind}
}
