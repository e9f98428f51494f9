// Copyright © 2024 The ELPS authors

// Package analyzer converts forms into the expression IR consumed by code
// generation.
//
// Each top-level form is analyzed independently.  Analysis resolves every
// symbol against a chain of lexical frames, registering captured bindings in
// each function frame crossed on the way, lifts constants and vars into
// deduplicated tables, records the evaluation position of each expression
// and marks the tail spine of every function body as boxed.  A failure
// anywhere aborts analysis of the top-level form and is reported as an
// *Error.
package analyzer

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/luthersystems/lispc/form"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the instrumentation name used for analysis spans.
	TracerName = "github.com/luthersystems/lispc/analyzer"
	// SpanName is the name of the span covering one top-level form.
	SpanName = "lispc.analyze"

	maxMacroDepth = 256
)

// Analyzer analyzes top-level forms against a global environment.  An
// Analyzer holds no per-form state and may be used from multiple goroutines.
type Analyzer struct {
	env      Environment
	log      *logrus.Entry
	tracer   trace.Tracer
	types    TypeResolver
	macros   MacroExpander
	caseOpts CaseOptions
	file     string
	checks   bool
}

// New returns an Analyzer resolving globals in env.
func New(env Environment, opts ...Config) *Analyzer {
	a := &Analyzer{
		env:      env,
		log:      logrus.NewEntry(logrus.StandardLogger()),
		types:    TypeResolverFunc(anyType),
		caseOpts: DefaultCaseOptions(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Result is the analysis of one top-level form.
type Result struct {
	// ID identifies the analysis in logs and traces.
	ID   string
	Root Expr
	// Frames holds every frame created for the form.
	Frames *Frames
	// Constants and Vars are the lift tables in insertion order.
	Constants []*LiftedConstant
	Vars      []*LiftedVar
}

// Analyze converts one top-level form into an expression tree.
func (a *Analyzer) Analyze(ctx context.Context, f *form.Form) (*Result, error) {
	id := uuid.NewString()
	ctx, span := a.startSpan(ctx, f, id)
	defer span.End()

	log := a.log.WithField("analysis", id)
	if a.file != "" {
		log = log.WithField("file", a.file)
	}
	an := &analysis{
		Analyzer: a,
		ctx:      ctx,
		log:      log,
		frames:   NewFrames(log),
		lifts:    NewLiftTables(),
	}
	root := &scope{
		frame:   RootFrame,
		pos:     PosReturn,
		fnFrame: NoFrame,
	}
	expr, err := an.analyze(f, root)
	if err != nil {
		kind := errUnknown
		var aerr *Error
		if errors.As(err, &aerr) {
			kind = aerr.Kind
		}
		log.WithField("kind", kind).Debugf("analysis failed: %v", err)
		span.SetAttributes(attribute.String("lispc.error.kind", kind.String()))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	MarkBoxed(expr)
	if a.checks {
		an.verify(expr)
	}
	span.SetAttributes(
		attribute.Int("lispc.frames", an.frames.Len()),
		attribute.Int("lispc.constants", len(an.lifts.Constants)),
		attribute.Int("lispc.vars", len(an.lifts.Vars)),
	)
	log.WithFields(logrus.Fields{
		"kind":      expr.Kind(),
		"frames":    an.frames.Len(),
		"constants": len(an.lifts.Constants),
		"vars":      len(an.lifts.Vars),
	}).Debug("analyzed form")
	return &Result{
		ID:        id,
		Root:      expr,
		Frames:    an.frames,
		Constants: an.lifts.Constants,
		Vars:      an.lifts.Vars,
	}, nil
}

// AnalyzeAll analyzes forms in order.  A failing form does not prevent
// analysis of the forms after it; its entry in the returned slice is nil and
// its error is included in the joined error.
func (a *Analyzer) AnalyzeAll(ctx context.Context, forms []*form.Form) ([]*Result, error) {
	results := make([]*Result, len(forms))
	var errs []error
	for i, f := range forms {
		res, err := a.Analyze(ctx, f)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results[i] = res
	}
	return results, errors.Join(errs...)
}

func (a *Analyzer) startSpan(ctx context.Context, f *form.Form, id string) (context.Context, trace.Span) {
	tracer := a.tracer
	if tracer == nil {
		tracer = otel.GetTracerProvider().Tracer(TracerName)
	}
	ctx, span := tracer.Start(ctx, SpanName)
	attrs := []attribute.KeyValue{
		attribute.String("lispc.analysis.id", id),
	}
	if head := f.HeadSymbol(); head != "" {
		attrs = append(attrs, attribute.String("lispc.form.head", head))
	}
	if loc := form.SourceOf(f); loc.Known() {
		attrs = append(attrs,
			semconv.CodeFilepath(loc.File),
			semconv.CodeLineNumber(loc.Line),
			semconv.CodeColumn(loc.Col),
		)
	} else if a.file != "" {
		attrs = append(attrs, semconv.CodeFilepath(a.file))
	}
	span.SetAttributes(attrs...)
	return ctx, span
}

// analysis is the mutable state of one call to Analyze.
type analysis struct {
	*Analyzer
	ctx    context.Context
	log    *logrus.Entry
	frames *Frames
	lifts  *LiftTables
	depth  int
}

// recurTarget is a fn* arity or loop* that recur may jump to.
type recurTarget struct {
	frame FrameID
	arity int
	loop  bool
	form  *form.Form
}

// scope is the lexical context an expression is analyzed in.
type scope struct {
	frame FrameID
	pos   Position
	// fnFrame is the innermost enclosing function frame.
	fnFrame FrameID
	recur   *recurTarget
	// recurOK is set while in tail position relative to recur.
	recurOK bool
	inTry   bool
}

func (s *scope) value() *scope {
	c := *s
	c.pos = PosValue
	c.recurOK = false
	return &c
}

func (s *scope) statement() *scope {
	c := *s
	c.pos = PosStatement
	c.recurOK = false
	return &c
}

func (s *scope) in(frame FrameID) *scope {
	c := *s
	c.frame = frame
	return &c
}

func (s *scope) target(t *recurTarget) *scope {
	c := *s
	c.recur = t
	c.recurOK = true
	c.inTry = false
	return &c
}

func (s *scope) try() *scope {
	c := *s
	c.recurOK = false
	c.inTry = true
	return &c
}

func (an *analysis) analyze(f *form.Form, s *scope) (Expr, error) {
	if f == nil {
		f = form.Nil()
	}
	switch f.Type {
	case form.FSymbol:
		return an.analyzeSymbol(f, s)
	case form.FList:
		if len(f.Cells) == 0 {
			return an.analyzeConstant(f, s)
		}
		return an.analyzeSeq(f, s)
	case form.FVector:
		return an.analyzeVector(f, s)
	case form.FMap:
		return an.analyzeMap(f, s)
	case form.FSet:
		return an.analyzeSet(f, s)
	case form.FInvalid, form.FTypeMax:
		return nil, errorf(ErrUnsupportedLiteral, f, "invalid form")
	default:
		return an.analyzeConstant(f, s)
	}
}

func (an *analysis) analyzeSeq(f *form.Form, s *scope) (Expr, error) {
	head := f.Cells[0]
	if head.Type == form.FSymbol {
		if head.Namespace() == "native" {
			return an.analyzeNative(f, s)
		}
		switch head.Str {
		case "def":
			return an.analyzeDef(f, s)
		case "fn*":
			return an.analyzeFn(f, s)
		case "let*":
			return an.analyzeLet(f, s, false)
		case "loop*":
			return an.analyzeLet(f, s, true)
		case "letfn*":
			return an.analyzeLetFn(f, s)
		case "if":
			return an.analyzeIf(f, s)
		case "do":
			return an.analyzeDo(f, s)
		case "case*":
			return an.analyzeCase(f, s)
		case "recur":
			return an.analyzeRecur(f, s)
		case "try":
			return an.analyzeTry(f, s)
		case "throw":
			return an.analyzeThrow(f, s)
		case "quote":
			return an.analyzeQuote(f, s)
		case "var":
			return an.analyzeVar(f, s)
		}
		expanded, ok, err := an.macroexpand(f, s)
		if err != nil {
			return nil, err
		}
		if ok {
			an.depth++
			defer func() { an.depth-- }()
			if an.depth > maxMacroDepth {
				return nil, malformed(f, "macro expansion of %s exceeded %d levels", head.Str, maxMacroDepth)
			}
			return an.analyze(expanded, s)
		}
	}
	return an.analyzeCall(f, s)
}

func (an *analysis) macroexpand(f *form.Form, s *scope) (*form.Form, bool, error) {
	if an.macros == nil {
		return nil, false, nil
	}
	head := f.Cells[0]
	if !head.Qualified() {
		if _, local := an.frames.Resolve(s.frame, head.Str); local {
			return nil, false, nil
		}
	}
	v, ok := an.env.ResolveVar(head)
	if !ok || !v.IsMacro() {
		return nil, false, nil
	}
	an.log.WithField("macro", v.Qualified()).Debug("expanding macro")
	out, err := an.macros.Expand(an.ctx, v, f)
	if err != nil {
		var aerr *Error
		if errors.As(err, &aerr) {
			return nil, false, aerr
		}
		return nil, false, malformed(f, "expanding macro %s: %v", v.Qualified(), err)
	}
	if out == nil {
		out = form.Nil()
	}
	if !out.Source.Known() {
		out = out.WithSource(f.Source)
	}
	return out, true, nil
}

func (an *analysis) analyzeSymbol(sym *form.Form, s *scope) (Expr, error) {
	if !sym.Qualified() {
		if r, ok := an.frames.Resolve(s.frame, sym.Str); ok {
			return an.localReference(sym, r, s), nil
		}
	}
	v, ok := an.env.ResolveVar(sym)
	if !ok {
		return nil, an.unresolved(sym)
	}
	return &VarDeref{
		exprHeader: newHeader(KVarDeref, s, sym),
		Symbol:     sym,
		Var:        v,
		Lifted:     an.lifts.LiftVar(v),
	}, nil
}

func (an *analysis) localReference(sym *form.Form, r FindResult, s *scope) Expr {
	an.frames.RegisterCaptures(r)
	captured := len(r.Crossed) > 0
	if r.Binding.Kind == BindSelf {
		return &RecursionReference{
			exprHeader: newHeader(KRecursionReference, s, sym),
			Symbol:     sym,
			Binding:    r.Binding,
			Fn:         r.Binding.Ref.Frame,
			Captured:   captured,
		}
	}
	return &LocalReference{
		exprHeader: newHeader(KLocalReference, s, sym),
		Symbol:     sym,
		Binding:    r.Binding,
		Captured:   captured,
	}
}

func (an *analysis) unresolved(sym *form.Form) *Error {
	if sym.Qualified() {
		return errorf(ErrUnresolvedSymbol, sym, "unable to resolve %s in namespace %s", sym.Name(), sym.Namespace())
	}
	return errorf(ErrUnresolvedSymbol, sym, "unable to resolve symbol %s in this context", sym.Str)
}

func (an *analysis) analyzeConstant(f *form.Form, s *scope) (Expr, error) {
	name, _, err := an.lifts.LiftConstant(f)
	if err != nil {
		return nil, err
	}
	return &PrimitiveLiteral{
		exprHeader: newHeader(KPrimitiveLiteral, s, f),
		Value:      f,
		Const:      name,
	}, nil
}

// isConstant reports whether f evaluates to itself.
func isConstant(f *form.Form) bool {
	switch f.Type {
	case form.FSymbol, form.FNative:
		return false
	case form.FList:
		return len(f.Cells) == 0
	case form.FVector, form.FMap, form.FSet:
		for _, c := range f.Cells {
			if !isConstant(c) {
				return false
			}
		}
	}
	return true
}

func (an *analysis) analyzeArgs(forms []*form.Form, s *scope) ([]Expr, error) {
	vs := s.value()
	args := make([]Expr, 0, len(forms))
	for _, f := range forms {
		e, err := an.analyze(f, vs)
		if err != nil {
			return nil, err
		}
		args = append(args, e)
	}
	return args, nil
}

func (an *analysis) analyzeVector(f *form.Form, s *scope) (Expr, error) {
	if isConstant(f) {
		return an.analyzeConstant(f, s)
	}
	items, err := an.analyzeArgs(f.Cells, s)
	if err != nil {
		return nil, err
	}
	return &Vector{exprHeader: newHeader(KVector, s, f), Items: items}, nil
}

func (an *analysis) analyzeSet(f *form.Form, s *scope) (Expr, error) {
	if isConstant(f) {
		return an.analyzeConstant(f, s)
	}
	items, err := an.analyzeArgs(f.Cells, s)
	if err != nil {
		return nil, err
	}
	return &Set{exprHeader: newHeader(KSet, s, f), Items: items}, nil
}

func (an *analysis) analyzeMap(f *form.Form, s *scope) (Expr, error) {
	if len(f.Cells)%2 != 0 {
		return nil, malformed(f, "map literal must contain an even number of forms")
	}
	if isConstant(f) {
		return an.analyzeConstant(f, s)
	}
	cells, err := an.analyzeArgs(f.Cells, s)
	if err != nil {
		return nil, err
	}
	m := &Map{exprHeader: newHeader(KMap, s, f)}
	for i := 0; i < len(cells); i += 2 {
		m.Keys = append(m.Keys, cells[i])
		m.Vals = append(m.Vals, cells[i+1])
	}
	return m, nil
}

func (an *analysis) analyzeCall(f *form.Form, s *scope) (Expr, error) {
	head := f.Cells[0]
	if head.Type == form.FSymbol && !head.Qualified() {
		r, ok := an.frames.Resolve(s.frame, head.Str)
		if ok && r.Binding.Kind == BindSelf && r.Binding.Ref.Frame == s.fnFrame {
			args, err := an.analyzeArgs(f.Cells[1:], s)
			if err != nil {
				return nil, err
			}
			return &NamedRecursion{
				exprHeader: newHeader(KNamedRecursion, s, f),
				Symbol:     head,
				Binding:    r.Binding,
				Fn:         s.fnFrame,
				Args:       args,
			}, nil
		}
	}
	callee, err := an.analyze(head, s.value())
	if err != nil {
		return nil, err
	}
	args, err := an.analyzeArgs(f.Cells[1:], s)
	if err != nil {
		return nil, err
	}
	_, recursive := callee.(*RecursionReference)
	return &Call{
		exprHeader: newHeader(KCall, s, f),
		Callee:     callee,
		Args:       args,
		Recursive:  recursive,
	}, nil
}

// analyzeBody analyzes forms as the body of parent.  All but the last form
// are in statement position.  An empty body evaluates to nil.
func (an *analysis) analyzeBody(parent *form.Form, body []*form.Form, s *scope) (*Do, error) {
	d := &Do{exprHeader: newHeader(KDo, s, parent)}
	if len(body) == 0 {
		body = []*form.Form{{Type: form.FNil, Source: form.SourceOf(parent)}}
	}
	for i, f := range body {
		bs := s
		if i < len(body)-1 {
			bs = s.statement()
		}
		e, err := an.analyze(f, bs)
		if err != nil {
			return nil, err
		}
		d.Body = append(d.Body, e)
	}
	return d, nil
}

// verify checks that every local reference is reachable from its frame
// and that each function frame crossed on the way captures the binding.
func (an *analysis) verify(root Expr) {
	Walk(root, func(e Expr) bool {
		switch e := e.(type) {
		case *LocalReference:
			an.verifyReachable(e.Frame(), e.Binding)
		case *RecursionReference:
			an.verifyReachable(e.Frame(), e.Binding)
		case *NamedRecursion:
			an.verifyReachable(e.Frame(), e.Binding)
		}
		return true
	})
	for _, frame := range an.frames.All() {
		if frame.Kind != FrameRoot && an.frames.Get(frame.Parent) == nil {
			an.log.Panicf("frame %d has no parent", frame.ID)
		}
	}
}

func (an *analysis) verifyReachable(from FrameID, b *LocalBinding) {
	for id := from; id != b.Ref.Frame; {
		frame := an.frames.Get(id)
		if frame == nil {
			an.log.Panicf("binding %s (%+v) is not in scope at frame %d", b.Name, b.Ref, from)
		}
		if frame.Kind == FrameFunction {
			if c, ok := frame.Captured(b.Name); !ok || c != b {
				an.log.Panicf("frame %d does not capture %s (%+v)", id, b.Name, b.Ref)
			}
		}
		id = frame.Parent
	}
}
