// Copyright © 2024 The ELPS authors

package form

import (
	"math"
	"testing"

	"github.com/luthersystems/lispc/parser/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b *Form
		want bool
	}{
		{"ints", Int(42), Int(42), true},
		{"int float distinct", Int(1), Float(1), false},
		{"strings", String("a"), String("a"), true},
		{"string symbol distinct", String("a"), Symbol("a"), false},
		{"keywords", Keyword("k"), Keyword("k"), true},
		{"list vector", List(Int(1), Int(2)), Vector(Int(1), Int(2)), true},
		{"list length", List(Int(1)), List(Int(1), Int(2)), false},
		{"nil", Nil(), Nil(), true},
		{"nil pointer", nil, Nil(), true},
		{"bools", Bool(true), Bool(false), false},
		{"maps unordered", Map(Keyword("a"), Int(1), Keyword("b"), Int(2)), Map(Keyword("b"), Int(2), Keyword("a"), Int(1)), true},
		{"maps value differs", Map(Keyword("a"), Int(1)), Map(Keyword("a"), Int(2)), false},
		{"sets unordered", Set(Int(1), Int(2)), Set(Int(2), Int(1)), true},
		{"sets differ", Set(Int(1), Int(3)), Set(Int(2), Int(1)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
			assert.Equal(t, tt.want, Equal(tt.b, tt.a))
			if tt.want && tt.a != nil && tt.b != nil {
				assert.Equal(t, tt.a.Hash(), tt.b.Hash(), "equal forms must hash equally")
			}
		})
	}
}

func TestEqualIgnoresSource(t *testing.T) {
	a := Int(7).WithSource(&token.Location{File: "a", Pos: 1, Line: 1, Col: 2})
	b := Int(7)
	assert.True(t, Equal(a, b))
}

func TestEqualNative(t *testing.T) {
	v := &struct{ x int }{1}
	assert.True(t, Equal(Native(v), Native(v)))
	assert.False(t, Equal(Native(v), Native(&struct{ x int }{1})))
}

func TestHashSmallInts(t *testing.T) {
	for i := 0; i < 64; i++ {
		assert.Equal(t, uint32(i), Int(i).Hash())
	}
}

func TestHashSignedZero(t *testing.T) {
	pos, neg := Float(0), Float(math.Copysign(0, -1))
	require.True(t, math.Signbit(neg.Float))
	assert.True(t, Equal(pos, neg))
	assert.Equal(t, pos.Hash(), neg.Hash())
	assert.Equal(t, Vector(pos).Hash(), Vector(neg).Hash())
	assert.Equal(t, Map(pos, Int(1)).Hash(), Map(neg, Int(1)).Hash())
}

func TestSymbolParts(t *testing.T) {
	tests := []struct {
		sym  string
		ns   string
		name string
	}{
		{"foo", "", "foo"},
		{"core/foo", "core", "foo"},
		{"/", "", "/"},
		{"core//", "core", "/"},
		{"a.b/c", "a.b", "c"},
	}
	for _, tt := range tests {
		s := Symbol(tt.sym)
		assert.Equal(t, tt.ns, s.Namespace(), tt.sym)
		assert.Equal(t, tt.name, s.Name(), tt.sym)
		assert.Equal(t, tt.ns != "", s.Qualified(), tt.sym)
	}
}

func TestLiftable(t *testing.T) {
	assert.True(t, Int(1).Liftable())
	assert.True(t, Vector(Int(1), Keyword("a")).Liftable())
	assert.False(t, Native(1).Liftable())
	assert.False(t, Vector(Int(1), Native(1)).Liftable())
	assert.True(t, Nil().Embeddable())
	assert.True(t, Bool(false).Embeddable())
	assert.False(t, Int(0).Embeddable())
}

func TestString(t *testing.T) {
	tests := []struct {
		f    *Form
		want string
	}{
		{Nil(), "nil"},
		{Bool(true), "true"},
		{Int(-3), "-3"},
		{Float(2), "2.0"},
		{Float(2.5), "2.5"},
		{Char('a'), `\a`},
		{Char('\n'), `\newline`},
		{String("a\"b"), `"a\"b"`},
		{Keyword("ns/k"), ":ns/k"},
		{List(Symbol("f"), Int(1)), "(f 1)"},
		{Vector(), "[]"},
		{Map(Keyword("a"), Int(1), Keyword("b"), Int(2)), "{:a 1, :b 2}"},
		{Set(Int(1)), "#{1}"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.f.String())
	}
}

func TestSourceOf(t *testing.T) {
	loc := &token.Location{File: "x", Pos: 3, Line: 1, Col: 4}
	inner := Symbol("f").WithSource(loc)
	l := List(inner)
	assert.Same(t, loc, SourceOf(l))
	assert.Same(t, token.Native, SourceOf(nil))
}
