// Copyright © 2024 The ELPS authors

package analyzer

import (
	"github.com/luthersystems/lispc/form"
	"github.com/sirupsen/logrus"
)

// analyzeCase analyzes (case* test key body key body ... default?).  A key
// that is a list matches any of its elements.
func (an *analysis) analyzeCase(f *form.Form, s *scope) (Expr, error) {
	if f.ArgCount() < 1 {
		return nil, malformed(f, "case* expects a test expression")
	}
	test, err := an.analyze(f.Cells[1], s.value())
	if err != nil {
		return nil, err
	}
	clauses := f.Cells[2:]
	var defaultForm *form.Form
	if len(clauses)%2 == 1 {
		defaultForm = clauses[len(clauses)-1]
		clauses = clauses[:len(clauses)-1]
	}
	e := &Case{
		exprHeader: newHeader(KCase, s, f),
		Test:       test,
	}
	var keys []*form.Form
	var branchOf []int
	for i := 0; i < len(clauses); i += 2 {
		group := []*form.Form{clauses[i]}
		if clauses[i].Type == form.FList {
			if len(clauses[i].Cells) == 0 {
				return nil, malformed(clauses[i], "case* key list is empty")
			}
			group = clauses[i].Cells
		}
		for _, k := range group {
			if err := an.checkCaseKey(k, keys); err != nil {
				return nil, err
			}
			keys = append(keys, k)
			branchOf = append(branchOf, len(e.Branches))
		}
		branch, err := an.analyze(clauses[i+1], s)
		if err != nil {
			return nil, err
		}
		e.Branches = append(e.Branches, branch)
	}
	if defaultForm != nil {
		dflt, err := an.analyze(defaultForm, s)
		if err != nil {
			return nil, err
		}
		e.Default = dflt
	}

	m := CompileCase(keys, an.caseOpts)
	e.Shift = m.Shift
	e.Mask = m.Mask
	for i, k := range keys {
		name, _, err := an.lifts.LiftConstant(k)
		if err != nil {
			return nil, err
		}
		e.Entries = append(e.Entries, CaseEntry{
			Key:      k,
			Const:    name,
			Hash:     k.Hash(),
			Slot:     m.Slots[i],
			Branch:   branchOf[i],
			Collided: m.Collided[i],
		})
		if m.Collided[i] {
			e.CollidedKeys = append(e.CollidedKeys, k)
		}
	}
	an.log.WithFields(logrus.Fields{
		"keys":       len(keys),
		"shift":      m.Shift,
		"mask":       m.Mask,
		"collisions": len(e.CollidedKeys),
	}).Debug("case*")
	return e, nil
}

func (an *analysis) checkCaseKey(k *form.Form, seen []*form.Form) error {
	if !k.Liftable() {
		return errorf(ErrUnsupportedLiteral, k, "case* key must be a literal: %v", k)
	}
	for _, prev := range seen {
		if form.Equal(prev, k) {
			return malformed(k, "duplicate case* key %v", k).
				WithNote(form.SourceOf(prev), "%v first used here", prev)
		}
	}
	return nil
}
