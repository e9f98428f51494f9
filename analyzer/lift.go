// Copyright © 2024 The ELPS authors

package analyzer

import (
	"strconv"
	"strings"

	"github.com/luthersystems/lispc/form"
	"github.com/luthersystems/lispc/namespace"
)

// LiftedConstant is an entry of the constant table.
type LiftedConstant struct {
	Name  string
	Value *form.Form
}

// LiftedVar is an entry of the var table.
type LiftedVar struct {
	Name string
	Var  *namespace.Var
}

// LiftTables hold the constants and vars referenced by one top-level form
// under stable synthetic names.  Entries are deduplicated: constants by
// form.Equal and vars by qualified name.
type LiftTables struct {
	Constants []*LiftedConstant
	Vars      []*LiftedVar

	constants map[uint32][]int
	vars      map[string]int
	seq       int
}

// NewLiftTables returns empty tables.
func NewLiftTables() *LiftTables {
	return &LiftTables{
		constants: make(map[uint32][]int),
		vars:      make(map[string]int),
	}
}

// LiftConstant returns the synthetic name of the constant v, adding it to
// the table if no equal constant is present.  Values that are embedded
// directly (nil, booleans, native values) are not lifted and ok is false.
// A collection holding a native value cannot be lifted at all.
func (t *LiftTables) LiftConstant(v *form.Form) (name string, ok bool, err error) {
	if v.Embeddable() || v.Type == form.FNative {
		return "", false, nil
	}
	if !v.Liftable() {
		return "", false, errorf(ErrUnsupportedLiteral, v, "%s literal cannot be lifted into the constant table", v.Type)
	}
	h := v.Hash()
	for _, i := range t.constants[h] {
		if c := t.Constants[i]; sameConstant(c.Value, v) {
			return c.Name, true, nil
		}
	}
	c := &LiftedConstant{
		Name:  "const_" + strconv.Itoa(t.next()),
		Value: v,
	}
	t.constants[h] = append(t.constants[h], len(t.Constants))
	t.Constants = append(t.Constants, c)
	return c.Name, true, nil
}

// LiftVar returns the synthetic name of v, adding it to the table if
// necessary.
func (t *LiftTables) LiftVar(v *namespace.Var) string {
	key := v.Qualified()
	if i, ok := t.vars[key]; ok {
		return t.Vars[i].Name
	}
	lv := &LiftedVar{
		Name: "var_" + mungeName(key) + "_" + strconv.Itoa(t.next()),
		Var:  v,
	}
	t.vars[key] = len(t.Vars)
	t.Vars = append(t.Vars, lv)
	return lv.Name
}

// sameConstant is form.Equal restricted to values of identical collection
// types, so that a lifted list is never materialized as a vector.
func sameConstant(a, b *form.Form) bool {
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case form.FList, form.FVector:
		if len(a.Cells) != len(b.Cells) {
			return false
		}
		for i := range a.Cells {
			if !sameConstant(a.Cells[i], b.Cells[i]) {
				return false
			}
		}
		return true
	case form.FMap:
		if a.Len() != b.Len() {
			return false
		}
		for i := 0; i+1 < len(a.Cells); i += 2 {
			if !hasSameEntry(b, a.Cells[i], a.Cells[i+1]) {
				return false
			}
		}
		return true
	case form.FSet:
		if len(a.Cells) != len(b.Cells) {
			return false
		}
		for _, m := range a.Cells {
			if !hasSameMember(b, m) {
				return false
			}
		}
		return true
	}
	return form.Equal(a, b)
}

func hasSameEntry(m, k, v *form.Form) bool {
	for i := 0; i+1 < len(m.Cells); i += 2 {
		if sameConstant(m.Cells[i], k) && sameConstant(m.Cells[i+1], v) {
			return true
		}
	}
	return false
}

func hasSameMember(s, m *form.Form) bool {
	for _, c := range s.Cells {
		if sameConstant(c, m) {
			return true
		}
	}
	return false
}

// Constant returns the table entry named name.
func (t *LiftTables) Constant(name string) (*LiftedConstant, bool) {
	for _, c := range t.Constants {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

func (t *LiftTables) next() int {
	n := t.seq
	t.seq++
	return n
}

// mungeName maps a qualified symbol to an identifier usable in generated
// code.
func mungeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, s)
}
