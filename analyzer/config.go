// Copyright © 2024 The ELPS authors

package analyzer

import (
	"context"
	"fmt"

	"github.com/luthersystems/lispc/form"
	"github.com/luthersystems/lispc/namespace"
	"github.com/luthersystems/lispc/parser/token"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// Environment is the global symbol table consulted by the analyzer.
// Implementations must be safe for concurrent use; the analyzer performs no
// locking of its own.  *namespace.Registry implements Environment.
type Environment interface {
	ResolveVar(sym *form.Form) (*namespace.Var, bool)
	InternVar(name string, source *token.Location) *namespace.Var
	CurrentNamespace() string
}

var _ Environment = (*namespace.Registry)(nil)

// TypeHandle identifies a host type named in a native interop form.
type TypeHandle struct {
	Name string
	// Value is an optional resolver-specific representation.
	Value interface{}
}

// TypeResolver maps type symbols in native interop forms to handles.
type TypeResolver interface {
	ResolveType(sym *form.Form) (TypeHandle, error)
}

// TypeResolverFunc adapts a function to a TypeResolver.
type TypeResolverFunc func(sym *form.Form) (TypeHandle, error)

// ResolveType calls fn.
func (fn TypeResolverFunc) ResolveType(sym *form.Form) (TypeHandle, error) {
	return fn(sym)
}

// anyType accepts every symbol as a type name.
func anyType(sym *form.Form) (TypeHandle, error) {
	if sym.Type != form.FSymbol {
		return TypeHandle{}, fmt.Errorf("type name is not a symbol: %v", sym)
	}
	return TypeHandle{Name: sym.Str}, nil
}

// MacroExpander expands a form whose head names a macro var.
type MacroExpander interface {
	Expand(ctx context.Context, macro *namespace.Var, f *form.Form) (*form.Form, error)
}

// MacroExpanderFunc adapts a function to a MacroExpander.
type MacroExpanderFunc func(ctx context.Context, macro *namespace.Var, f *form.Form) (*form.Form, error)

// Expand calls fn.
func (fn MacroExpanderFunc) Expand(ctx context.Context, macro *namespace.Var, f *form.Form) (*form.Form, error) {
	return fn(ctx, macro, f)
}

// Config is a function that configures an Analyzer.
type Config func(*Analyzer)

// WithLogger sets the logger used for debug output.  Internal invariant
// violations are reported through the logger's Panic level.
func WithLogger(log logrus.FieldLogger) Config {
	return func(a *Analyzer) {
		a.log = log.WithFields(logrus.Fields{})
	}
}

// WithTracer sets the tracer used to create a span for each top-level form.
// By default the global otel tracer provider is used.
func WithTracer(tracer trace.Tracer) Config {
	return func(a *Analyzer) {
		a.tracer = tracer
	}
}

// WithTypeResolver sets the service resolving native type names.  By
// default any symbol names a type.
func WithTypeResolver(r TypeResolver) Config {
	return func(a *Analyzer) {
		a.types = r
	}
}

// WithMacroExpander enables macro expansion of calls to vars flagged as
// macros.
func WithMacroExpander(m MacroExpander) Config {
	return func(a *Analyzer) {
		a.macros = m
	}
}

// WithCaseOptions tunes the case* compiler.
func WithCaseOptions(opts CaseOptions) Config {
	return func(a *Analyzer) {
		a.caseOpts = opts
	}
}

// WithFile names the source file being analyzed in logs and spans.
func WithFile(name string) Config {
	return func(a *Analyzer) {
		a.file = name
	}
}

// WithInvariantChecks verifies internal invariants of every result before
// it is returned.  Violations panic.
func WithInvariantChecks(enabled bool) Config {
	return func(a *Analyzer) {
		a.checks = enabled
	}
}
