// Copyright © 2024 The ELPS authors

package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/luthersystems/lispc/form"
	"github.com/luthersystems/lispc/parser/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readOne(t *testing.T, src string) *form.Form {
	t.Helper()
	forms, err := ReadString("test", src)
	require.NoError(t, err)
	require.Len(t, forms, 1)
	return forms[0]
}

func TestNewReader_Standard(t *testing.T) {
	r := NewReader()
	forms, err := r.Read("test", strings.NewReader("(+ 1 2)"))
	require.NoError(t, err)
	require.Len(t, forms, 1)
	assert.Equal(t, form.FList, forms[0].Type)
	assert.True(t, form.Equal(form.List(form.Symbol("+"), form.Int(1), form.Int(2)), forms[0]))
}

func TestReadTerms(t *testing.T) {
	tests := []struct {
		src  string
		want *form.Form
	}{
		{"42", form.Int(42)},
		{"-7", form.Int(-7)},
		{"2.5", form.Float(2.5)},
		{"1e3", form.Float(1000)},
		{`"a\nb"`, form.String("a\nb")},
		{":key", form.Keyword("key")},
		{":ns/key", form.Keyword("ns/key")},
		{`\a`, form.Char('a')},
		{`\newline`, form.Char('\n')},
		{"nil", form.Nil()},
		{"true", form.Bool(true)},
		{"false", form.Bool(false)},
		{"foo", form.Symbol("foo")},
		{"core/inc", form.Symbol("core/inc")},
		{"-", form.Symbol("-")},
		{"native/.-field", form.Symbol("native/.-field")},
		{"a->b?", form.Symbol("a->b?")},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			f := readOne(t, tt.src)
			assert.Equal(t, tt.want.Type, f.Type)
			assert.True(t, form.Equal(tt.want, f), "got %v", f)
		})
	}
}

func TestReadCollections(t *testing.T) {
	f := readOne(t, "[1 {:a 2, :b 3} #{x} ()]")
	require.Equal(t, form.FVector, f.Type)
	require.Len(t, f.Cells, 4)
	assert.Equal(t, form.FInt, f.Cells[0].Type)
	assert.Equal(t, form.FMap, f.Cells[1].Type)
	assert.Equal(t, 2, f.Cells[1].Len())
	assert.Equal(t, form.FSet, f.Cells[2].Type)
	assert.Equal(t, form.FList, f.Cells[3].Type)
	assert.Empty(t, f.Cells[3].Cells)
}

func TestReadQuote(t *testing.T) {
	f := readOne(t, "'(a b)")
	assert.Equal(t, "quote", f.HeadSymbol())
	require.Len(t, f.Cells, 2)
	assert.Equal(t, "(a b)", f.Cells[1].String())

	f = readOne(t, "#'core/inc")
	assert.Equal(t, "var", f.HeadSymbol())
	assert.True(t, f.Cells[1].IsSymbol("core/inc"))
}

func TestReadComments(t *testing.T) {
	forms, err := ReadString("test", "; leading\n(a ; inner\n b) ; trailing\n,,c")
	require.NoError(t, err)
	require.Len(t, forms, 2)
	assert.Equal(t, "(a b)", forms[0].String())
	assert.True(t, forms[1].IsSymbol("c"))
}

func TestReadLocations(t *testing.T) {
	r := NewReader(WithPath("/src/test.lisp"))
	forms, err := r.ReadBytes("test.lisp", []byte("(foo\n  bar)"))
	require.NoError(t, err)
	require.Len(t, forms, 1)
	list := forms[0]
	assert.Equal(t, "test.lisp:1:1", list.Source.String())
	assert.Equal(t, "/src/test.lisp", list.Source.Path)
	assert.Equal(t, 0, list.Source.Pos)
	assert.Equal(t, 11, list.Source.End)
	bar := list.Cells[1]
	assert.Equal(t, 7, bar.Source.Pos)
	assert.Equal(t, 2, bar.Source.Line)
	assert.Equal(t, 3, bar.Source.Col)
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"unmatched paren", "(a (b c)", "unmatched"},
		{"unmatched bracket", "[a", "unmatched"},
		{"stray close", "a )", "unexpected source text"},
		{"odd map", "{:a}", "even number"},
		{"overflow", "99999999999999999999999", "overflows"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadString("test", tt.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
			var locErr *token.LocationError
			require.True(t, errors.As(err, &locErr))
			assert.True(t, locErr.Source.Known())
		})
	}
}

func TestReadNested(t *testing.T) {
	forms, err := ReadString("test", "42 (fn* [a] a) '#'x")
	require.NoError(t, err)
	require.Len(t, forms, 3)
	assert.True(t, form.Equal(form.Int(42), forms[0]))
	assert.Equal(t, "fn*", forms[1].HeadSymbol())
	assert.Equal(t, form.FVector, forms[1].Cells[1].Type)
	assert.Equal(t, "quote", forms[2].HeadSymbol())
	assert.Equal(t, "var", forms[2].Cells[1].HeadSymbol())
}

func TestReadUnbalanced(t *testing.T) {
	for _, src := range []string{"(a (b c)", "(a [b {c", "'(", "#{1 2", "x #'[y"} {
		t.Run(src, func(t *testing.T) {
			var forms []*form.Form
			var err error
			require.NotPanics(t, func() { forms, err = ReadString("test", src) })
			assert.Empty(t, forms)
			var locErr *token.LocationError
			require.True(t, errors.As(err, &locErr), "%v", err)
			assert.Contains(t, err.Error(), "unmatched")
			assert.True(t, locErr.Source.Known())
		})
	}
}
