// Copyright © 2024 The ELPS authors

package analyzer

import (
	"github.com/luthersystems/lispc/form"
	"github.com/luthersystems/lispc/namespace"
)

// checkBindingName validates a symbol introduced by op.
func checkBindingName(sym *form.Form, op string) error {
	if sym.Type != form.FSymbol || sym.Qualified() || sym.Str == "&" {
		return malformed(sym, "%s binding name must be an unqualified symbol: %v", op, sym)
	}
	return nil
}

// Declare interns the var named by a top-level def form without analyzing
// it, so that forms analyzed concurrently can refer to the var.  It reports
// false when f is not a def naming a var in the current namespace.
func Declare(env Environment, f *form.Form) (*namespace.Var, bool) {
	if f.HeadSymbol() != "def" || f.ArgCount() < 1 || f.ArgCount() > 3 {
		return nil, false
	}
	sym := f.Cells[1]
	if sym.Type != form.FSymbol {
		return nil, false
	}
	name := sym.Str
	if sym.Qualified() {
		if sym.Namespace() != env.CurrentNamespace() {
			return nil, false
		}
		name = sym.Name()
	}
	return env.InternVar(name, form.SourceOf(sym)), true
}

func (an *analysis) analyzeDef(f *form.Form, s *scope) (Expr, error) {
	n := f.ArgCount()
	if n < 1 || n > 3 {
		return nil, malformed(f, "def expects a name, an optional docstring and an optional value")
	}
	sym := f.Cells[1]
	if sym.Type != form.FSymbol {
		return nil, malformed(sym, "def name is not a symbol: %v", sym)
	}
	name := sym.Str
	if sym.Qualified() {
		if ns := an.env.CurrentNamespace(); sym.Namespace() != ns {
			return nil, malformed(sym, "cannot def %s outside of the current namespace %s", sym.Str, ns)
		}
		name = sym.Name()
	}
	var doc string
	var initForm *form.Form
	switch n {
	case 2:
		initForm = f.Cells[2]
	case 3:
		if f.Cells[2].Type != form.FString {
			return nil, malformed(f.Cells[2], "def docstring is not a string: %v", f.Cells[2])
		}
		doc = f.Cells[2].Str
		initForm = f.Cells[3]
	}
	// The var is interned first so that the value may refer to it.
	v := an.env.InternVar(name, form.SourceOf(sym))
	if doc != "" {
		v.SetDoc(doc)
	}
	d := &Def{
		exprHeader: newHeader(KDef, s, f),
		Var:        v,
		Lifted:     an.lifts.LiftVar(v),
		Doc:        doc,
	}
	an.log.WithField("var", v.Qualified()).Debug("def")
	if initForm != nil {
		val, err := an.analyze(initForm, s.value())
		if err != nil {
			return nil, err
		}
		d.Init = val
	}
	return d, nil
}

func (an *analysis) analyzeIf(f *form.Form, s *scope) (Expr, error) {
	n := f.ArgCount()
	if n < 2 || n > 3 {
		return nil, malformed(f, "if expects a test, a then branch and an optional else branch; got %d arguments", n)
	}
	test, err := an.analyze(f.Cells[1], s.value())
	if err != nil {
		return nil, err
	}
	then, err := an.analyze(f.Cells[2], s)
	if err != nil {
		return nil, err
	}
	e := &If{
		exprHeader: newHeader(KIf, s, f),
		Test:       test,
		Then:       then,
	}
	if n == 3 {
		els, err := an.analyze(f.Cells[3], s)
		if err != nil {
			return nil, err
		}
		e.Else = els
	}
	return e, nil
}

func (an *analysis) analyzeDo(f *form.Form, s *scope) (Expr, error) {
	d, err := an.analyzeBody(f, f.Cells[1:], s)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// bindingVector returns the binding vector of a let-style form.
func bindingVector(f *form.Form) (*form.Form, error) {
	op := f.HeadSymbol()
	if f.ArgCount() < 1 || f.Cells[1].Type != form.FVector {
		return nil, malformed(f, "%s expects a binding vector", op)
	}
	bv := f.Cells[1]
	if len(bv.Cells)%2 != 0 {
		return nil, malformed(bv, "%s binding vector requires an even number of forms", op)
	}
	return bv, nil
}

func (an *analysis) analyzeLet(f *form.Form, s *scope, loop bool) (Expr, error) {
	op := f.HeadSymbol()
	bv, err := bindingVector(f)
	if err != nil {
		return nil, err
	}
	frame := an.frames.New(FrameLet, s.frame, f)
	inner := s.in(frame.ID)
	kind := BindLet
	if loop {
		kind = BindLoop
	}
	e := &Let{
		exprHeader: newHeader(KLet, s, f),
		Scope:      frame.ID,
		Loop:       loop,
	}
	for i := 0; i < len(bv.Cells); i += 2 {
		sym := bv.Cells[i]
		if err := checkBindingName(sym, op); err != nil {
			return nil, err
		}
		// Each initializer sees only the bindings before it.
		val, err := an.analyze(bv.Cells[i+1], inner.value())
		if err != nil {
			return nil, err
		}
		b := frame.Define(sym, kind)
		b.Value = val
		e.Bindings = append(e.Bindings, Binding{Local: b, Init: val})
	}
	bodyScope := inner
	if loop {
		bodyScope = inner.target(&recurTarget{
			frame: frame.ID,
			arity: len(e.Bindings),
			loop:  true,
			form:  f,
		})
	}
	body, err := an.analyzeBody(f, f.Cells[2:], bodyScope)
	if err != nil {
		return nil, err
	}
	e.Body = body
	return e, nil
}

// analyzeLetFn declares every name before analyzing any initializer.
// Initializers must be fn* forms, so every reference to a letfn* binding
// from an initializer is deferred until the function is called.
func (an *analysis) analyzeLetFn(f *form.Form, s *scope) (Expr, error) {
	bv, err := bindingVector(f)
	if err != nil {
		return nil, err
	}
	frame := an.frames.New(FrameLet, s.frame, f)
	inner := s.in(frame.ID)
	e := &LetFn{
		exprHeader: newHeader(KLetFn, s, f),
		Scope:      frame.ID,
	}
	for i := 0; i < len(bv.Cells); i += 2 {
		sym := bv.Cells[i]
		if err := checkBindingName(sym, "letfn*"); err != nil {
			return nil, err
		}
		if prev, dup := frame.Local(sym.Str); dup {
			return nil, errorf(ErrDuplicateBinding, sym, "letfn* binds %s more than once", sym.Str).
				WithNote(form.SourceOf(prev.Symbol), "%s first bound here", sym.Str)
		}
		if val := bv.Cells[i+1]; val.HeadSymbol() != "fn*" {
			return nil, malformed(val, "letfn* binding %s must be initialized with a fn* form", sym.Str)
		}
		e.Bindings = append(e.Bindings, Binding{Local: frame.Define(sym, BindLetFn)})
	}
	for i := range e.Bindings {
		val, err := an.analyze(bv.Cells[2*i+1], inner.value())
		if err != nil {
			return nil, err
		}
		e.Bindings[i].Init = val
		e.Bindings[i].Local.Value = val
	}
	body, err := an.analyzeBody(f, f.Cells[2:], inner)
	if err != nil {
		return nil, err
	}
	e.Body = body
	return e, nil
}

func (an *analysis) analyzeRecur(f *form.Form, s *scope) (Expr, error) {
	t := s.recur
	if t == nil {
		return nil, errorf(ErrIllegalRecur, f, "recur outside of a loop or function")
	}
	if !s.recurOK {
		msg := "recur must be in tail position of its loop or function"
		if s.inTry {
			msg = "cannot recur across try"
		}
		return nil, errorf(ErrIllegalRecur, f, "%s", msg).
			WithNote(form.SourceOf(t.form), "recur target")
	}
	if n := f.ArgCount(); n != t.arity {
		return nil, errorf(ErrIllegalRecur, f, "recur expects %d arguments but got %d", t.arity, n).
			WithNote(form.SourceOf(t.form), "recur target")
	}
	args, err := an.analyzeArgs(f.Cells[1:], s)
	if err != nil {
		return nil, err
	}
	return &Recur{
		exprHeader: newHeader(KRecur, s, f),
		Target:     t.frame,
		Loop:       t.loop,
		Args:       args,
	}, nil
}

func (an *analysis) analyzeTry(f *form.Form, s *scope) (Expr, error) {
	var body, catches []*form.Form
	var finally *form.Form
	for _, c := range f.Cells[1:] {
		switch c.HeadSymbol() {
		case "catch":
			if finally != nil {
				return nil, malformed(c, "catch clause follows finally")
			}
			catches = append(catches, c)
		case "finally":
			if finally != nil {
				return nil, malformed(c, "try has more than one finally clause").
					WithNote(form.SourceOf(finally), "first finally clause")
			}
			finally = c
		default:
			if len(catches) > 0 || finally != nil {
				return nil, malformed(c, "try body form follows a catch or finally clause")
			}
			body = append(body, c)
		}
	}
	ts := s.try()
	b, err := an.analyzeBody(f, body, ts)
	if err != nil {
		return nil, err
	}
	e := &Try{
		exprHeader: newHeader(KTry, s, f),
		Body:       b,
	}
	for _, c := range catches {
		catch, err := an.analyzeCatch(c, ts)
		if err != nil {
			return nil, err
		}
		e.Catches = append(e.Catches, catch)
	}
	if finally != nil {
		fb, err := an.analyzeBody(finally, finally.Cells[1:], ts.statement())
		if err != nil {
			return nil, err
		}
		e.Finally = fb
	}
	return e, nil
}

func (an *analysis) analyzeCatch(c *form.Form, s *scope) (*Catch, error) {
	if c.ArgCount() < 2 {
		return nil, malformed(c, "catch expects an exception type and a binding symbol")
	}
	typ, err := an.resolveType(c.Cells[1])
	if err != nil {
		return nil, err
	}
	if err := checkBindingName(c.Cells[2], "catch"); err != nil {
		return nil, err
	}
	frame := an.frames.New(FrameLet, s.frame, c)
	b := frame.Define(c.Cells[2], BindCatch)
	body, err := an.analyzeBody(c, c.Cells[3:], s.in(frame.ID))
	if err != nil {
		return nil, err
	}
	return &Catch{
		Type:    typ,
		Scope:   frame.ID,
		Binding: b,
		Body:    body,
	}, nil
}

func (an *analysis) analyzeThrow(f *form.Form, s *scope) (Expr, error) {
	if f.ArgCount() != 1 {
		return nil, malformed(f, "throw expects exactly one argument")
	}
	ex, err := an.analyze(f.Cells[1], s.value())
	if err != nil {
		return nil, err
	}
	return &Throw{
		exprHeader: newHeader(KThrow, s, f),
		Exception:  ex,
	}, nil
}

func (an *analysis) analyzeQuote(f *form.Form, s *scope) (Expr, error) {
	if f.ArgCount() != 1 {
		return nil, malformed(f, "quote expects exactly one argument")
	}
	return an.analyzeConstant(f.Cells[1], s)
}

func (an *analysis) analyzeVar(f *form.Form, s *scope) (Expr, error) {
	if f.ArgCount() != 1 || f.Cells[1].Type != form.FSymbol {
		return nil, malformed(f, "var expects exactly one symbol")
	}
	sym := f.Cells[1]
	v, ok := an.env.ResolveVar(sym)
	if !ok {
		err := an.unresolved(sym)
		if !sym.Qualified() {
			if r, local := an.frames.Resolve(s.frame, sym.Str); local {
				err.Message = "var cannot refer to local " + sym.Str
				err.WithNote(form.SourceOf(r.Binding.Symbol), "%s bound here", sym.Str)
			}
		}
		return nil, err
	}
	return &VarReference{
		exprHeader: newHeader(KVarReference, s, f),
		Symbol:     sym,
		Var:        v,
		Lifted:     an.lifts.LiftVar(v),
	}, nil
}
