// Copyright © 2024 The ELPS authors

// Package form is the object model consumed by the analyzer.  A Form is an
// immutable value produced by the reader (or by macro expansion) and is
// compared structurally with Equal.
package form

import (
	"strings"

	"github.com/luthersystems/lispc/parser/token"
)

// Type is the type of a Form.
type Type uint

// Possible Type values
const (
	// FInvalid (0) is not a valid form type.
	FInvalid Type = iota
	FNil
	// FBool values store their value in Form.Bool.
	FBool
	// FInt values store an int in the Form.Int field.
	FInt
	// FFloat values store a float64 in the Form.Float field.
	FFloat
	// FChar values store a rune in the Form.Int field.
	FChar
	// FString values store their contents in Form.Str.
	FString
	// FSymbol values store their text, possibly qualified as "ns/name", in
	// Form.Str.
	FSymbol
	// FKeyword values store their text without the leading colon in
	// Form.Str.
	FKeyword
	// FList values store their elements in Form.Cells.
	FList
	// FVector values store their elements in Form.Cells.
	FVector
	// FMap values store alternating keys and values in Form.Cells.
	FMap
	// FSet values store their members in Form.Cells.
	FSet
	// FNative values hold an opaque host value in Form.Native.  They can be
	// produced by macro expansion but never by the reader.
	FNative
	// FTypeMax is not a real type but represents a value numerically greater
	// than all valid Type values.
	FTypeMax
)

var typeStrings = []string{
	FInvalid: "INVALID",
	FNil:     "nil",
	FBool:    "boolean",
	FInt:     "int",
	FFloat:   "float",
	FChar:    "char",
	FString:  "string",
	FSymbol:  "symbol",
	FKeyword: "keyword",
	FList:    "list",
	FVector:  "vector",
	FMap:     "map",
	FSet:     "set",
	FNative:  "native",
}

func (t Type) String() string {
	if t >= FTypeMax {
		return typeStrings[FInvalid]
	}
	return typeStrings[t]
}

// Form is a value of the object model.
type Form struct {
	// Native holds the host value of an FNative form.
	Native interface{}

	// Source is the form's originating location in source code.  Programs
	// should not modify the contents of Source as the reference may be shared
	// by multiple forms.
	Source *token.Location

	// Str used by FSymbol, FKeyword and FString values
	Str string

	// Cells used by collection values.
	Cells []*Form

	// Type is the type of the form.
	Type Type

	// Fields used for scalar types.
	Int   int
	Float float64
	Bool  bool
}

// Nil returns a form representing nil.
func Nil() *Form {
	return &Form{Source: token.Native, Type: FNil}
}

// Bool returns a boolean form.
func Bool(b bool) *Form {
	return &Form{Source: token.Native, Type: FBool, Bool: b}
}

// Int returns a form representing the number x.
func Int(x int) *Form {
	return &Form{Source: token.Native, Type: FInt, Int: x}
}

// Float returns a form representing the number x.
func Float(x float64) *Form {
	return &Form{Source: token.Native, Type: FFloat, Float: x}
}

// Char returns a form representing the character c.
func Char(c rune) *Form {
	return &Form{Source: token.Native, Type: FChar, Int: int(c)}
}

// String returns a form representing the string s.
func String(s string) *Form {
	return &Form{Source: token.Native, Type: FString, Str: s}
}

// Symbol returns a form representing the symbol s.  The symbol may be
// qualified, "ns/name".
func Symbol(s string) *Form {
	return &Form{Source: token.Native, Type: FSymbol, Str: s}
}

// Keyword returns a keyword form.  The leading colon must not be included
// in s.
func Keyword(s string) *Form {
	return &Form{Source: token.Native, Type: FKeyword, Str: s}
}

// List returns a list form.  Provided cells are used as backing storage and
// are not copied.
func List(cells ...*Form) *Form {
	return &Form{Source: token.Native, Type: FList, Cells: cells}
}

// Vector returns a vector form.  Provided cells are used as backing storage
// and are not copied.
func Vector(cells ...*Form) *Form {
	return &Form{Source: token.Native, Type: FVector, Cells: cells}
}

// Map returns a map form from alternating keys and values.
func Map(kvs ...*Form) *Form {
	return &Form{Source: token.Native, Type: FMap, Cells: kvs}
}

// Set returns a set form.
func Set(members ...*Form) *Form {
	return &Form{Source: token.Native, Type: FSet, Cells: members}
}

// Native returns a form wrapping a host value.
func Native(v interface{}) *Form {
	return &Form{Source: token.Native, Type: FNative, Native: v}
}

// WithSource returns a shallow copy of f located at loc.
func (f *Form) WithSource(loc *token.Location) *Form {
	cp := *f
	cp.Source = loc
	return &cp
}

// IsNil returns true if f represents nil.
func (f *Form) IsNil() bool {
	return f == nil || f.Type == FNil
}

// IsSeq returns true for lists and vectors.
func (f *Form) IsSeq() bool {
	return f.Type == FList || f.Type == FVector
}

// IsCollection returns true for lists, vectors, maps and sets.
func (f *Form) IsCollection() bool {
	switch f.Type {
	case FList, FVector, FMap, FSet:
		return true
	}
	return false
}

// Len returns the number of elements in a collection.  Maps report their
// number of entries.
func (f *Form) Len() int {
	if f.Type == FMap {
		return len(f.Cells) / 2
	}
	return len(f.Cells)
}

// IsSymbol reports whether f is the unqualified symbol name.
func (f *Form) IsSymbol(name string) bool {
	return f != nil && f.Type == FSymbol && f.Str == name
}

// Namespace returns the namespace part of a qualified symbol or keyword, or
// the empty string.
func (f *Form) Namespace() string {
	ns, _ := splitQualified(f.Str)
	return ns
}

// Name returns the unqualified part of a symbol or keyword.
func (f *Form) Name() string {
	_, name := splitQualified(f.Str)
	return name
}

// Qualified reports whether a symbol or keyword carries a namespace.
func (f *Form) Qualified() bool {
	return f.Namespace() != ""
}

func splitQualified(s string) (string, string) {
	if s == "/" {
		return "", s
	}
	i := strings.IndexByte(s, '/')
	if i <= 0 || i == len(s)-1 {
		return "", s
	}
	return s[:i], s[i+1:]
}

// HeadSymbol returns the symbol text at the head of a list, or "".
func (f *Form) HeadSymbol() string {
	if f.Type != FList || len(f.Cells) == 0 {
		return ""
	}
	if head := f.Cells[0]; head.Type == FSymbol {
		return head.Str
	}
	return ""
}

// ArgCount returns the number of elements in a list excluding the head.
func (f *Form) ArgCount() int {
	if len(f.Cells) <= 1 {
		return 0
	}
	return len(f.Cells) - 1
}

// Pairs calls fn for each key/value entry of a map form in source order.
func (f *Form) Pairs(fn func(k, v *Form)) {
	for i := 0; i+1 < len(f.Cells); i += 2 {
		fn(f.Cells[i], f.Cells[i+1])
	}
}

// Embeddable reports whether f is represented directly in generated code
// without lifting (nil and booleans).
func (f *Form) Embeddable() bool {
	return f.Type == FNil || f.Type == FBool
}

// Liftable reports whether f may be stored in a constant table.  Native
// values and collections containing them have no portable representation.
func (f *Form) Liftable() bool {
	switch f.Type {
	case FNative, FInvalid:
		return false
	case FList, FVector, FMap, FSet:
		for _, c := range f.Cells {
			if !c.Liftable() {
				return false
			}
		}
	}
	return true
}

// SourceOf returns the best source location for f, falling back to its
// first element when f itself was constructed natively.
func SourceOf(f *Form) *token.Location {
	if f == nil {
		return token.Native
	}
	if f.Source.Known() {
		return f.Source
	}
	for _, c := range f.Cells {
		if c.Source.Known() {
			return c.Source
		}
	}
	if f.Source == nil {
		return token.Native
	}
	return f.Source
}
