// Copyright © 2024 The ELPS authors

package analyzer

import (
	"github.com/luthersystems/lispc/form"
)

// analyzeFn analyzes (fn* name? [params*] body*) and
// (fn* name? ([params*] body*)+).  Each arity gets its own function frame in
// which the name, when present, is bound before the parameters.
func (an *analysis) analyzeFn(f *form.Form, s *scope) (Expr, error) {
	rest := f.Cells[1:]
	var name *form.Form
	if len(rest) > 0 && rest[0].Type == form.FSymbol {
		name = rest[0]
		if err := checkBindingName(name, "fn*"); err != nil {
			return nil, err
		}
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return nil, malformed(f, "fn* expects a parameter vector or a list of arities")
	}
	var arityForms []*form.Form
	if rest[0].Type == form.FVector {
		arityForms = []*form.Form{{Type: form.FList, Cells: rest, Source: f.Source}}
	} else {
		for _, af := range rest {
			if af.Type != form.FList || len(af.Cells) == 0 || af.Cells[0].Type != form.FVector {
				return nil, malformed(af, "fn* arity must be a list starting with a parameter vector")
			}
		}
		arityForms = rest
	}
	fn := &Fn{exprHeader: newHeader(KFn, s, f)}
	if name != nil {
		fn.Name = name.Str
	}
	fixed := make(map[int]*form.Form)
	var variadic *form.Form
	for _, af := range arityForms {
		arity, err := an.analyzeArity(af, name, s)
		if err != nil {
			return nil, err
		}
		if arity.Variadic {
			if variadic != nil {
				return nil, malformed(af, "fn* can have at most one variadic arity").
					WithNote(form.SourceOf(variadic), "variadic arity")
			}
			variadic = af
		} else {
			n := arity.FixedCount()
			if prev, dup := fixed[n]; dup {
				return nil, malformed(af, "fn* has more than one arity taking %d arguments", n).
					WithNote(form.SourceOf(prev), "conflicting arity")
			}
			fixed[n] = af
		}
		fn.Arities = append(fn.Arities, arity)
	}
	if va := fn.Variadic(); va != nil {
		for _, arity := range fn.Arities {
			if !arity.Variadic && arity.FixedCount() > va.FixedCount() {
				return nil, malformed(fixed[arity.FixedCount()],
					"fn* fixed arity taking %d arguments exceeds the %d required arguments of its variadic arity",
					arity.FixedCount(), va.FixedCount()).
					WithNote(form.SourceOf(variadic), "variadic arity")
			}
		}
	}
	an.log.WithField("fn", fn.Name).WithField("arities", len(fn.Arities)).Debug("fn*")
	return fn, nil
}

func (an *analysis) analyzeArity(af *form.Form, name *form.Form, s *scope) (*FnArity, error) {
	params := af.Cells[0]
	frame := an.frames.New(FrameFunction, s.frame, af)
	arity := &FnArity{Scope: frame.ID}
	if name != nil {
		arity.Self = frame.Define(name, BindSelf)
	}
	for i := 0; i < len(params.Cells); i++ {
		p := params.Cells[i]
		if p.IsSymbol("&") {
			if i != len(params.Cells)-2 {
				return nil, malformed(params, "& must be followed by exactly one parameter")
			}
			rest := params.Cells[i+1]
			if err := checkBindingName(rest, "fn*"); err != nil {
				return nil, err
			}
			arity.Params = append(arity.Params, frame.Define(rest, BindVariadic))
			arity.Variadic = true
			break
		}
		if err := checkBindingName(p, "fn*"); err != nil {
			return nil, err
		}
		arity.Params = append(arity.Params, frame.Define(p, BindParam))
	}
	bs := &scope{
		frame:   frame.ID,
		pos:     PosReturn,
		fnFrame: frame.ID,
		recur: &recurTarget{
			frame: frame.ID,
			arity: len(arity.Params),
			form:  af,
		},
		recurOK: true,
	}
	body, err := an.analyzeBody(af, af.Cells[1:], bs)
	if err != nil {
		return nil, err
	}
	MarkBoxed(body)
	arity.Body = body
	return arity, nil
}
