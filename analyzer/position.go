// Copyright © 2024 The ELPS authors

package analyzer

// tailChildren returns the children of e that produce e's value without
// further computation.  The bodies of a Fn are not included; they belong to
// the function being defined.
func tailChildren(e Expr) []Expr {
	switch e := e.(type) {
	case *If:
		if e.Else == nil {
			return []Expr{e.Then}
		}
		return []Expr{e.Then, e.Else}
	case *Do:
		return []Expr{e.Last()}
	case *Let:
		return []Expr{e.Body}
	case *LetFn:
		return []Expr{e.Body}
	case *Case:
		tails := append([]Expr(nil), e.Branches...)
		if e.Default != nil {
			tails = append(tails, e.Default)
		}
		return tails
	case *Try:
		tails := []Expr{e.Body}
		for _, c := range e.Catches {
			tails = append(tails, c.Body)
		}
		return tails
	}
	return nil
}

// PropagatePosition sets the position of e and of the expressions on its
// tail spine to pos.  Conditions, initializers, arguments, non-final body
// expressions and finally clauses keep their own positions.
func PropagatePosition(e Expr, pos Position) {
	e.header().pos = pos
	for _, c := range tailChildren(e) {
		PropagatePosition(c, pos)
	}
}

// MarkBoxed marks e and every expression on its tail spine as requiring
// the boxed representation.  Marking an already marked spine is a no-op.
func MarkBoxed(e Expr) {
	h := e.header()
	if h.box {
		return
	}
	h.box = true
	for _, c := range tailChildren(e) {
		MarkBoxed(c)
	}
}

// TailSpine returns e followed by every expression on its tail spine in
// depth-first order.
func TailSpine(e Expr) []Expr {
	spine := []Expr{e}
	for _, c := range tailChildren(e) {
		spine = append(spine, TailSpine(c)...)
	}
	return spine
}
