// Copyright © 2024 The ELPS authors

package cmd

import (
	"errors"
	"io"

	"github.com/luthersystems/lispc/analyzer"
	"github.com/luthersystems/lispc/diagnostic"
	"github.com/luthersystems/lispc/parser/token"
)

const noteWidth = 100

func newRenderer() *diagnostic.Renderer {
	return &diagnostic.Renderer{
		Color: diagnostic.ParseColorMode(colorFlag),
		Width: noteWidth,
	}
}

// renderErrors writes err to w as one or more diagnostics.
func renderErrors(w io.Writer, err error) {
	_ = newRenderer().RenderAll(w, errorDiagnostics(err)) //nolint:errcheck // best-effort error display
}

// errorDiagnostics converts err to diagnostics.  Joined errors produce one
// diagnostic each.
func errorDiagnostics(err error) []diagnostic.Diagnostic {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var diags []diagnostic.Diagnostic
		for _, e := range joined.Unwrap() {
			diags = append(diags, errorDiagnostics(e)...)
		}
		return diags
	}
	var aerr *analyzer.Error
	if errors.As(err, &aerr) {
		return []diagnostic.Diagnostic{analysisDiagnostic(aerr)}
	}
	var lerr *token.LocationError
	if errors.As(err, &lerr) {
		d := diagnostic.Diagnostic{
			Severity: diagnostic.SeverityError,
			Code:     "read-error",
			Message:  lerr.Err.Error(),
		}
		if span, ok := locationSpan(lerr.Source, "", false); ok {
			d.Spans = append(d.Spans, span)
		}
		return []diagnostic.Diagnostic{d}
	}
	return []diagnostic.Diagnostic{{
		Severity: diagnostic.SeverityError,
		Message:  err.Error(),
	}}
}

// analysisDiagnostic converts an analysis error.  Notes with a known
// location become secondary spans.
func analysisDiagnostic(aerr *analyzer.Error) diagnostic.Diagnostic {
	d := diagnostic.Diagnostic{
		Severity: diagnostic.SeverityError,
		Code:     aerr.Kind.String(),
		Message:  aerr.Message,
	}
	if span, ok := locationSpan(aerr.Source, "", false); ok {
		d.Spans = append(d.Spans, span)
	}
	for _, note := range aerr.Notes {
		if span, ok := locationSpan(note.Source, note.Message, true); ok {
			d.Spans = append(d.Spans, span)
			continue
		}
		d.Notes = append(d.Notes, note.Message)
	}
	return d
}

func locationSpan(loc *token.Location, label string, secondary bool) (diagnostic.Span, bool) {
	if !loc.Known() {
		return diagnostic.Span{}, false
	}
	span := diagnostic.Span{
		File:      loc.File,
		Line:      loc.Line,
		Col:       loc.Col,
		Label:     label,
		Secondary: secondary,
	}
	// Prefer physical path for reading source
	if loc.Path != "" {
		span.File = loc.Path
	}
	if loc.Col > 0 && loc.End > loc.Pos {
		span.EndCol = loc.Col + loc.End - loc.Pos - 1
	}
	return span, true
}
