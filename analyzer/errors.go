// Copyright © 2024 The ELPS authors

package analyzer

import (
	"fmt"
	"strings"

	"github.com/luthersystems/lispc/form"
	"github.com/luthersystems/lispc/parser/token"
)

// ErrorKind classifies analysis failures.  An ErrorKind is itself an error
// so callers can test the kind of a failure with errors.Is.
type ErrorKind int

const (
	errUnknown ErrorKind = iota
	// ErrUnresolvedSymbol means a symbol named neither a local binding nor a
	// var.
	ErrUnresolvedSymbol
	// ErrMalformedForm means a special form had the wrong shape or arity.
	ErrMalformedForm
	// ErrIllegalRecur means recur appeared outside the tail of a loop or
	// function, crossed a try, or passed the wrong number of arguments.
	ErrIllegalRecur
	// ErrDuplicateBinding means a name was bound twice where that is not
	// permitted.
	ErrDuplicateBinding
	// ErrUnsupportedLiteral means a literal value could not be lifted into
	// the constant table.
	ErrUnsupportedLiteral
)

var errorKindStrings = []string{
	errUnknown:            "unknown-error",
	ErrUnresolvedSymbol:   "unresolved-symbol",
	ErrMalformedForm:      "malformed-form",
	ErrIllegalRecur:       "illegal-recur",
	ErrDuplicateBinding:   "duplicate-binding",
	ErrUnsupportedLiteral: "unsupported-literal",
}

func (k ErrorKind) String() string {
	if k < 0 || int(k) >= len(errorKindStrings) {
		return errorKindStrings[errUnknown]
	}
	return errorKindStrings[k]
}

func (k ErrorKind) Error() string {
	return k.String()
}

// Note is a secondary location attached to an Error.
type Note struct {
	Message string
	Source  *token.Location
}

// Error is a structured analysis failure.  It aborts analysis of the
// top-level form being analyzed.
type Error struct {
	Kind    ErrorKind
	Message string
	Source  *token.Location
	// Form is the offending form.
	Form  *form.Form
	Notes []Note
}

func (e *Error) Error() string {
	var buf strings.Builder
	if e.Source.Known() {
		buf.WriteString(e.Source.String())
		buf.WriteString(": ")
	}
	buf.WriteString(e.Kind.String())
	buf.WriteString(": ")
	buf.WriteString(e.Message)
	return buf.String()
}

// Unwrap returns the error's kind.
func (e *Error) Unwrap() error {
	return e.Kind
}

// WithNote appends a secondary location to e and returns it.
func (e *Error) WithNote(src *token.Location, format string, v ...interface{}) *Error {
	e.Notes = append(e.Notes, Note{
		Message: fmt.Sprintf(format, v...),
		Source:  src,
	})
	return e
}

func errorf(kind ErrorKind, f *form.Form, format string, v ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, v...),
		Source:  form.SourceOf(f),
		Form:    f,
	}
}

func malformed(f *form.Form, format string, v ...interface{}) *Error {
	return errorf(ErrMalformedForm, f, format, v...)
}
