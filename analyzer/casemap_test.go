// Copyright © 2024 The ELPS authors

package analyzer

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/luthersystems/lispc/form"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildCase assembles a Case dispatching each key to its own branch.
func buildCase(keys []*form.Form, opts CaseOptions) *Case {
	m := CompileCase(keys, opts)
	c := &Case{
		Shift:   m.Shift,
		Mask:    m.Mask,
		Default: &PrimitiveLiteral{Value: form.Keyword("default")},
	}
	for i, k := range keys {
		c.Branches = append(c.Branches, &PrimitiveLiteral{Value: form.Int(i)})
		c.Entries = append(c.Entries, CaseEntry{
			Key:      k,
			Hash:     k.Hash(),
			Slot:     m.Slots[i],
			Branch:   i,
			Collided: m.Collided[i],
		})
	}
	return c
}

func randomKeys(r *rand.Rand, n int) []*form.Form {
	seen := make(map[string]bool)
	var keys []*form.Form
	for len(keys) < n {
		var k *form.Form
		switch r.Intn(4) {
		case 0:
			k = form.Int(r.Intn(1 << 20))
		case 1:
			k = form.String(fmt.Sprintf("s%d", r.Intn(1<<20)))
		case 2:
			k = form.Keyword(fmt.Sprintf("k%d", r.Intn(1<<20)))
		default:
			k = form.Char(rune('a' + r.Intn(26)))
		}
		if id := k.String(); !seen[id] {
			seen[id] = true
			keys = append(keys, k)
		}
	}
	return keys
}

func TestCompileCaseDenseInts(t *testing.T) {
	var keys []*form.Form
	for i := 0; i < 8; i++ {
		keys = append(keys, form.Int(i))
	}
	m := CompileCase(keys, DefaultCaseOptions())
	assert.Equal(t, uint(0), m.Shift)
	assert.Equal(t, uint32(7), m.Mask)
	assert.Equal(t, 0, m.Collisions)
	for i := range keys {
		assert.Equal(t, i, m.Slots[i])
		assert.False(t, m.Collided[i])
	}
}

func TestCompileCaseShift(t *testing.T) {
	// Keys differing only above bit 4 are separated by shifting.
	keys := []*form.Form{form.Int(0), form.Int(16), form.Int(32), form.Int(48)}
	m := CompileCase(keys, DefaultCaseOptions())
	assert.Equal(t, uint(4), m.Shift)
	assert.Equal(t, uint32(3), m.Mask)
	assert.Equal(t, 0, m.Collisions)
}

func TestCompileCaseSingleKey(t *testing.T) {
	m := CompileCase([]*form.Form{form.Keyword("only")}, DefaultCaseOptions())
	assert.Equal(t, uint32(0), m.Mask)
	assert.Equal(t, []int{0}, m.Slots)
	assert.Equal(t, []bool{false}, m.Collided)
}

func TestCompileCaseIdenticalHashes(t *testing.T) {
	// An integer and a character with the same code point share a hash
	// but are not equal.
	keys := []*form.Form{form.Int(1), form.Char(1)}
	require.Equal(t, keys[0].Hash(), keys[1].Hash())
	m := CompileCase(keys, DefaultCaseOptions())
	assert.Equal(t, 0, m.Collisions)
	assert.Equal(t, []bool{true, true}, m.Collided)

	c := buildCase(keys, DefaultCaseOptions())
	assert.Same(t, c.Branches[0], c.Select(form.Int(1)))
	assert.Same(t, c.Branches[1], c.Select(form.Char(1)))
	assert.Same(t, c.Default, c.Select(form.Int(2)))
}

func TestCaseSelectSignedZero(t *testing.T) {
	keys := []*form.Form{form.Float(0), form.Float(1.5), form.Float(-2)}
	c := buildCase(keys, DefaultCaseOptions())
	assert.Same(t, c.Branches[0], c.Select(form.Float(math.Copysign(0, -1))))
}

func TestCompileCaseThreshold(t *testing.T) {
	keys := []*form.Form{form.Int(0), form.Int(1), form.Int(2), form.Int(3)}
	m := CompileCase(keys, CaseOptions{CollisionThreshold: 2, MaxMaskBits: 13})
	assert.Equal(t, uint32(1), m.Mask)
	assert.Equal(t, 2, m.Collisions)

	m = CompileCase(keys, CaseOptions{CollisionThreshold: 0, MaxMaskBits: 1})
	assert.Equal(t, uint32(1), m.Mask)
	assert.Equal(t, 2, m.Collisions)
	assert.Equal(t, []bool{true, true, true, true}, m.Collided)
}

func TestCaseSelect(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	options := map[string]CaseOptions{
		"default":   DefaultCaseOptions(),
		"no mask":   {MaxMaskBits: 0},
		"narrow":    {MaxMaskBits: 3},
		"tolerant":  {CollisionThreshold: 5, MaxMaskBits: 6},
		"wide mask": {MaxMaskBits: 20},
	}
	for name, opts := range options {
		opts := opts
		t.Run(name, func(t *testing.T) {
			keys := randomKeys(r, 200)
			c := buildCase(keys, opts)
			for i, k := range keys {
				assert.Same(t, c.Branches[i], c.Select(k), "key %v", k)
			}
			assert.Same(t, c.Default, c.Select(form.String("absent")))

			bySlot := make(map[int]int)
			for _, e := range c.Entries {
				bySlot[e.Slot]++
			}
			for _, e := range c.Entries {
				assert.Equal(t, bySlot[e.Slot] > 1, e.Collided, "key %v", e.Key)
			}
		})
	}
}

func TestAnalyzeCase(t *testing.T) {
	res := parseAndAnalyze(t, `(fn* [x] (case* x 1 :one (2 3) :two-or-three "s" :str :k :kw :default))`)
	c := find[*Case](res.Root)[0]
	assert.Equal(t, PosReturn, c.Position())
	assert.True(t, c.NeedsBox())
	for _, b := range c.Branches {
		assert.True(t, b.NeedsBox())
		assert.Equal(t, PosReturn, b.Position())
	}
	assert.True(t, c.Default.NeedsBox())
	assert.Equal(t, PosValue, c.Test.Position())
	assert.False(t, c.Test.NeedsBox())
	require.Len(t, c.Entries, 5)
	require.Len(t, c.Branches, 4)

	tests := []struct {
		key  *form.Form
		want string
	}{
		{form.Int(1), "one"},
		{form.Int(2), "two-or-three"},
		{form.Int(3), "two-or-three"},
		{form.String("s"), "str"},
		{form.Keyword("k"), "kw"},
		{form.Int(4), "default"},
		{form.Keyword("s"), "default"},
	}
	for _, tt := range tests {
		lit := c.Select(tt.key).(*PrimitiveLiteral)
		assert.Equal(t, tt.want, lit.Value.Str, "key %v", tt.key)
	}
	for _, e := range c.Entries {
		assert.NotEmpty(t, e.Const)
		assert.Equal(t, e.Key.Hash(), e.Hash)
	}
}

func TestAnalyzeCaseQuotedListKey(t *testing.T) {
	// A quoted key is the list (quote sym), matched by either element.
	res := parseAndAnalyze(t, `(fn* [x] (case* x 'sym 1 2))`)
	c := find[*Case](res.Root)[0]
	require.Len(t, c.Entries, 2)
	assert.True(t, c.Entries[0].Key.IsSymbol("quote"))
	assert.True(t, c.Entries[1].Key.IsSymbol("sym"))
}

func TestAnalyzeCaseCollisions(t *testing.T) {
	res := parseAndAnalyze(t, "(fn* [x] (case* x 1 :a 2 :b 3 :c))",
		WithCaseOptions(CaseOptions{MaxMaskBits: 0}))
	c := find[*Case](res.Root)[0]
	assert.Equal(t, uint32(0), c.Mask)
	assert.Len(t, c.CollidedKeys, 3)
	for i, want := range []string{"a", "b", "c"} {
		lit := c.Select(form.Int(i + 1)).(*PrimitiveLiteral)
		assert.Equal(t, want, lit.Value.Str)
	}
	assert.Nil(t, c.Select(form.Int(9)))
}

func TestAnalyzeCaseRecurInBranch(t *testing.T) {
	res := parseAndAnalyze(t, "(loop* [i 0] (case* i 10 :done (recur (inc i))))")
	c := find[*Case](res.Root)[0]
	_, ok := c.Default.(*Recur)
	assert.True(t, ok)
}
