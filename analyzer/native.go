// Copyright © 2024 The ELPS authors

package analyzer

import (
	"strings"

	"github.com/luthersystems/lispc/form"
)

// nativeOperators maps host operators to their argument count.  Zero means
// one or two arguments.
var nativeOperators = map[string]int{
	"+":  2,
	"-":  0,
	"*":  2,
	"/":  2,
	"%":  2,
	"==": 2,
	"!=": 2,
	"<":  2,
	">":  2,
	"<=": 2,
	">=": 2,
	"&&": 2,
	"||": 2,
	"!":  1,
	"&":  2,
	"|":  2,
	"^":  2,
	"<<": 2,
	">>": 2,
}

func (an *analysis) resolveType(sym *form.Form) (TypeHandle, error) {
	th, err := an.types.ResolveType(sym)
	if err != nil {
		return TypeHandle{}, malformed(sym, "unable to resolve type %v: %v", sym, err)
	}
	return th, nil
}

// analyzeNative analyzes the interop forms
//
//	(native/new Type args*)
//	(native/cast Type expr)
//	(native/.method target args*)
//	(native/.-field target)
//	(native/<op> args*)
func (an *analysis) analyzeNative(f *form.Form, s *scope) (Expr, error) {
	head := f.Cells[0]
	member := head.Name()
	n := f.ArgCount()
	switch {
	case member == "new":
		if n < 1 {
			return nil, malformed(f, "native/new expects a type")
		}
		typ, err := an.resolveType(f.Cells[1])
		if err != nil {
			return nil, err
		}
		args, err := an.analyzeArgs(f.Cells[2:], s)
		if err != nil {
			return nil, err
		}
		return &NativeNew{
			exprHeader: newHeader(KNativeNew, s, f),
			Type:       typ,
			Args:       args,
		}, nil
	case member == "cast":
		if n != 2 {
			return nil, malformed(f, "native/cast expects a type and a value")
		}
		typ, err := an.resolveType(f.Cells[1])
		if err != nil {
			return nil, err
		}
		v, err := an.analyze(f.Cells[2], s.value())
		if err != nil {
			return nil, err
		}
		return &NativeCast{
			exprHeader: newHeader(KNativeCast, s, f),
			Type:       typ,
			Value:      v,
		}, nil
	case strings.HasPrefix(member, ".-"):
		field := strings.TrimPrefix(member, ".-")
		if field == "" || n != 1 {
			return nil, malformed(f, "%s expects exactly one target", head.Str)
		}
		target, err := an.analyze(f.Cells[1], s.value())
		if err != nil {
			return nil, err
		}
		return &NativeMemberAccess{
			exprHeader: newHeader(KNativeMemberAccess, s, f),
			Field:      field,
			Target:     target,
		}, nil
	case strings.HasPrefix(member, "."):
		method := strings.TrimPrefix(member, ".")
		if method == "" || n < 1 {
			return nil, malformed(f, "%s expects a target", head.Str)
		}
		args, err := an.analyzeArgs(f.Cells[1:], s)
		if err != nil {
			return nil, err
		}
		return &NativeMemberCall{
			exprHeader: newHeader(KNativeMemberCall, s, f),
			Member:     method,
			Target:     args[0],
			Args:       args[1:],
		}, nil
	}
	want, ok := nativeOperators[member]
	if !ok {
		return nil, malformed(head, "unknown native form %s", head.Str)
	}
	if (want == 0 && (n < 1 || n > 2)) || (want != 0 && n != want) {
		return nil, malformed(f, "native operator %s cannot take %d arguments", member, n)
	}
	args, err := an.analyzeArgs(f.Cells[1:], s)
	if err != nil {
		return nil, err
	}
	return &NativeOperatorCall{
		exprHeader: newHeader(KNativeOperatorCall, s, f),
		Op:         member,
		Args:       args,
	}, nil
}
