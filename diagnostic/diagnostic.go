// Copyright © 2024 The ELPS authors

// Package diagnostic renders annotated source snippets for lispc CLI
// output.  It does not depend on the analyzer so that any command can use
// it; conversion from analysis errors lives with the commands.
package diagnostic

// Severity indicates the severity level of a diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityNote
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityNote:
		return "note"
	default:
		return "unknown"
	}
}

// Span identifies a region of source code to highlight in the diagnostic.
type Span struct {
	File   string // path for reading source; display name if unreadable
	Line   int    // 1-based line number
	Col    int    // 1-based start column
	EndCol int    // 1-based end column (0 = auto-detect from source)
	Label  string // text shown under the underline
	// Secondary spans are underlined with '-' instead of '^'.
	Secondary bool
}

// Diagnostic represents a single error, warning, or note with optional
// source annotations and trailing notes.
type Diagnostic struct {
	Severity Severity
	// Code is an optional short classifier shown after the severity, as in
	// "error[unresolved-symbol]".
	Code    string
	Message string
	Spans   []Span
	Notes   []string // "= note:" lines
}
