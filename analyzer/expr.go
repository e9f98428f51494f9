// Copyright © 2024 The ELPS authors

package analyzer

import (
	"github.com/luthersystems/lispc/form"
	"github.com/luthersystems/lispc/namespace"
)

// Kind is the variant tag of an Expr.
type Kind int

const (
	KInvalid Kind = iota
	KPrimitiveLiteral
	KLocalReference
	KRecursionReference
	KVarReference
	KVarDeref
	KDef
	KCall
	KNamedRecursion
	KIf
	KDo
	KLet
	KLetFn
	KCase
	KRecur
	KTry
	KThrow
	KVector
	KMap
	KSet
	KFn
	KNativeNew
	KNativeCast
	KNativeMemberCall
	KNativeMemberAccess
	KNativeOperatorCall
	KKindMax
)

var kindStrings = []string{
	KInvalid:            "invalid",
	KPrimitiveLiteral:   "primitive-literal",
	KLocalReference:     "local-reference",
	KRecursionReference: "recursion-reference",
	KVarReference:       "var-reference",
	KVarDeref:           "var-deref",
	KDef:                "def",
	KCall:               "call",
	KNamedRecursion:     "named-recursion",
	KIf:                 "if",
	KDo:                 "do",
	KLet:                "let",
	KLetFn:              "letfn",
	KCase:               "case",
	KRecur:              "recur",
	KTry:                "try",
	KThrow:              "throw",
	KVector:             "vector",
	KMap:                "map",
	KSet:                "set",
	KFn:                 "fn",
	KNativeNew:          "native-new",
	KNativeCast:         "native-cast",
	KNativeMemberCall:   "native-member-call",
	KNativeMemberAccess: "native-member-access",
	KNativeOperatorCall: "native-operator-call",
}

func (k Kind) String() string {
	if k < 0 || k >= KKindMax {
		return kindStrings[KInvalid]
	}
	return kindStrings[k]
}

// Position is the evaluation context of an expression.
type Position int

const (
	// PosValue expressions produce a value consumed by their parent.
	PosValue Position = iota
	// PosStatement expressions are evaluated only for effect.
	PosStatement
	// PosReturn expressions produce the return value of the enclosing
	// function (or top-level form).
	PosReturn
)

func (p Position) String() string {
	switch p {
	case PosValue:
		return "value"
	case PosStatement:
		return "statement"
	case PosReturn:
		return "return"
	default:
		return "unknown"
	}
}

// Expr is a node of the expression IR.  The set of implementations is
// closed; use a type switch over the pointer types in this file.
type Expr interface {
	Kind() Kind
	Position() Position
	// Frame is the frame in which the expression is evaluated.
	Frame() FrameID
	// NeedsBox reports whether the expression must produce the uniform
	// boxed representation.
	NeedsBox() bool
	// Form is the form the expression was analyzed from.
	Form() *form.Form

	header() *exprHeader
}

type exprHeader struct {
	kind  Kind
	pos   Position
	frame FrameID
	box   bool
	form  *form.Form
}

func (h *exprHeader) Kind() Kind { return h.kind }
func (h *exprHeader) Position() Position { return h.pos }
func (h *exprHeader) Frame() FrameID { return h.frame }
func (h *exprHeader) NeedsBox() bool { return h.box }
func (h *exprHeader) Form() *form.Form { return h.form }
func (h *exprHeader) header() *exprHeader { return h }

func newHeader(kind Kind, s *scope, f *form.Form) exprHeader {
	return exprHeader{kind: kind, pos: s.pos, frame: s.frame, form: f}
}

// PrimitiveLiteral is a constant.  Const names its entry in the constant
// table and is empty for values embedded directly.
type PrimitiveLiteral struct {
	exprHeader
	Value *form.Form
	Const string
}

// LocalReference reads a local binding.
type LocalReference struct {
	exprHeader
	Symbol  *form.Form
	Binding *LocalBinding
	// Captured is true when the binding is owned outside the enclosing
	// function.
	Captured bool
}

// RecursionReference reads the function object of an enclosing named fn*.
type RecursionReference struct {
	exprHeader
	Symbol  *form.Form
	Binding *LocalBinding
	// Fn is the function frame that binds the name.
	Fn       FrameID
	Captured bool
}

// VarReference yields a var itself, (var sym).
type VarReference struct {
	exprHeader
	Symbol *form.Form
	Var    *namespace.Var
	Lifted string
}

// VarDeref yields the current value of a var.
type VarDeref struct {
	exprHeader
	Symbol *form.Form
	Var    *namespace.Var
	Lifted string
}

// Def interns a var and optionally sets its root value.
type Def struct {
	exprHeader
	Var    *namespace.Var
	Lifted string
	Doc    string
	// Init is nil for declarations without a value.
	Init Expr
}

// Call applies a function to arguments.  Recursive is set when the callee
// is the function object of an enclosing named fn* reached through a
// capture.
type Call struct {
	exprHeader
	Callee    Expr
	Args      []Expr
	Recursive bool
}

// NamedRecursion is a call of the innermost enclosing fn* by its own name.
type NamedRecursion struct {
	exprHeader
	Symbol  *form.Form
	Binding *LocalBinding
	Fn      FrameID
	Args    []Expr
}

// If is a two-way branch.  Else is nil when absent.
type If struct {
	exprHeader
	Test Expr
	Then Expr
	Else Expr
}

// Do evaluates its body in order.  Body always has at least one element.
type Do struct {
	exprHeader
	Body []Expr
}

// Last returns the expression whose value the Do produces.
func (d *Do) Last() Expr {
	return d.Body[len(d.Body)-1]
}

// Binding pairs a local binding with its initializer.
type Binding struct {
	Local *LocalBinding
	Init  Expr
}

// Let binds locals sequentially.  A Let with Loop set is a recur target.
type Let struct {
	exprHeader
	Scope    FrameID
	Bindings []Binding
	Body     *Do
	Loop     bool
}

// LetFn binds mutually recursive functions.
type LetFn struct {
	exprHeader
	Scope    FrameID
	Bindings []Binding
	Body     *Do
}

// CaseEntry is one key of a Case after the shift/mask transform.
type CaseEntry struct {
	Key *form.Form
	// Const names the lifted key; it is empty for embedded keys.
	Const string
	Hash  uint32
	Slot  int
	// Branch indexes Case.Branches.
	Branch int
	// Collided is set when another key shares the slot.
	Collided bool
}

// Case dispatches on the value of Test.
type Case struct {
	exprHeader
	Test     Expr
	Shift    uint
	Mask     uint32
	Entries  []CaseEntry
	Branches []Expr
	// Default is nil when the form has no default branch.
	Default      Expr
	CollidedKeys []*form.Form
}

// Recur rebinds the parameters of its target and jumps to its start.
type Recur struct {
	exprHeader
	Target FrameID
	Loop   bool
	Args   []Expr
}

// Catch is one handler of a Try.
type Catch struct {
	Type    TypeHandle
	Scope   FrameID
	Binding *LocalBinding
	Body    *Do
}

// Try evaluates Body with handlers and an optional Finally.
type Try struct {
	exprHeader
	Body    *Do
	Catches []*Catch
	Finally *Do
}

// Throw raises an exception.
type Throw struct {
	exprHeader
	Exception Expr
}

// Vector constructs a vector from non-constant elements.
type Vector struct {
	exprHeader
	Items []Expr
}

// Map constructs a map from non-constant entries.
type Map struct {
	exprHeader
	Keys []Expr
	Vals []Expr
}

// Set constructs a set from non-constant members.
type Set struct {
	exprHeader
	Items []Expr
}

// FnArity is one arity of a function literal.
type FnArity struct {
	Scope    FrameID
	Self     *LocalBinding
	Params   []*LocalBinding
	Variadic bool
	Body     *Do
}

// FixedCount returns the number of required parameters.
func (a *FnArity) FixedCount() int {
	if a.Variadic {
		return len(a.Params) - 1
	}
	return len(a.Params)
}

// Fn is a function literal.
type Fn struct {
	exprHeader
	Name    string
	Arities []*FnArity
}

// Variadic returns the variadic arity, if any.
func (fn *Fn) Variadic() *FnArity {
	for _, a := range fn.Arities {
		if a.Variadic {
			return a
		}
	}
	return nil
}

// NativeNew constructs a host value.
type NativeNew struct {
	exprHeader
	Type TypeHandle
	Args []Expr
}

// NativeCast converts Value to a host type.
type NativeCast struct {
	exprHeader
	Type  TypeHandle
	Value Expr
}

// NativeMemberCall calls a method of a host value.
type NativeMemberCall struct {
	exprHeader
	Member string
	Target Expr
	Args   []Expr
}

// NativeMemberAccess reads a field of a host value.
type NativeMemberAccess struct {
	exprHeader
	Field  string
	Target Expr
}

// NativeOperatorCall applies a host operator.
type NativeOperatorCall struct {
	exprHeader
	Op   string
	Args []Expr
}

// Children returns the immediate child expressions of e in evaluation
// order.
func Children(e Expr) []Expr {
	var out []Expr
	add := func(es ...Expr) {
		for _, c := range es {
			if c != nil {
				out = append(out, c)
			}
		}
	}
	switch e := e.(type) {
	case *PrimitiveLiteral, *LocalReference, *RecursionReference, *VarReference, *VarDeref:
	case *Def:
		add(e.Init)
	case *Call:
		add(e.Callee)
		add(e.Args...)
	case *NamedRecursion:
		add(e.Args...)
	case *If:
		add(e.Test, e.Then, e.Else)
	case *Do:
		add(e.Body...)
	case *Let:
		for _, b := range e.Bindings {
			add(b.Init)
		}
		add(e.Body)
	case *LetFn:
		for _, b := range e.Bindings {
			add(b.Init)
		}
		add(e.Body)
	case *Case:
		add(e.Test)
		add(e.Branches...)
		add(e.Default)
	case *Recur:
		add(e.Args...)
	case *Try:
		add(e.Body)
		for _, c := range e.Catches {
			add(c.Body)
		}
		if e.Finally != nil {
			add(e.Finally)
		}
	case *Throw:
		add(e.Exception)
	case *Vector:
		add(e.Items...)
	case *Map:
		for i := range e.Keys {
			add(e.Keys[i], e.Vals[i])
		}
	case *Set:
		add(e.Items...)
	case *Fn:
		for _, a := range e.Arities {
			add(a.Body)
		}
	case *NativeNew:
		add(e.Args...)
	case *NativeCast:
		add(e.Value)
	case *NativeMemberCall:
		add(e.Target)
		add(e.Args...)
	case *NativeMemberAccess:
		add(e.Target)
	case *NativeOperatorCall:
		add(e.Args...)
	}
	return out
}

// Walk traverses the tree rooted at e in depth-first order, calling visit
// for each expression.  Children of an expression are skipped when visit
// returns false.
func Walk(e Expr, visit func(Expr) bool) {
	if e == nil || !visit(e) {
		return
	}
	for _, c := range Children(e) {
		Walk(c, visit)
	}
}
