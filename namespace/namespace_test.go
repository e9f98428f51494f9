// Copyright © 2024 The ELPS authors

package namespace

import (
	"fmt"
	"sync"
	"testing"

	"github.com/luthersystems/lispc/form"
	"github.com/luthersystems/lispc/parser/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, User, r.CurrentNamespace())
	assert.Equal(t, []string{Core, User}, r.Names())
}

func TestInternIsIdempotent(t *testing.T) {
	r := NewRegistry()
	loc := &token.Location{File: "a", Line: 1, Col: 1}
	v1 := r.InternVar("x", loc)
	v2 := r.InternVar("x", token.Native)
	assert.Same(t, v1, v2)
	assert.Same(t, loc, v2.Source)
	assert.Equal(t, "user/x", v1.Qualified())
	assert.Equal(t, "#'user/x", v1.String())
}

func TestResolveVar(t *testing.T) {
	r := NewRegistry()
	core, _ := r.Get(Core)
	inc := core.Intern("inc", token.Native)
	shadow := core.Intern("shadowed", token.Native)
	local := r.InternVar("shadowed", token.Native)
	util := r.Define("my.util")
	helper := util.Intern("helper", token.Native)
	r.Current().Alias("u", "my.util")

	tests := []struct {
		sym  string
		want *Var
	}{
		{"inc", inc},
		{"lispc.core/inc", inc},
		{"shadowed", local},
		{"lispc.core/shadowed", shadow},
		{"my.util/helper", helper},
		{"u/helper", helper},
		{"helper", nil},
		{"nope/inc", nil},
	}
	for _, tt := range tests {
		t.Run(tt.sym, func(t *testing.T) {
			v, ok := r.ResolveVar(form.Symbol(tt.sym))
			if tt.want == nil {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Same(t, tt.want, v)
		})
	}
	_, ok := r.ResolveVar(form.Keyword("inc"))
	assert.False(t, ok)
}

func TestSetCurrent(t *testing.T) {
	r := NewRegistry()
	r.InternVar("a", token.Native)
	ns := r.SetCurrent("other")
	assert.Equal(t, "other", ns.Name)
	_, ok := r.ResolveVar(form.Symbol("a"))
	assert.False(t, ok)
	_, ok = r.ResolveVar(form.Symbol("user/a"))
	assert.True(t, ok)
}

func TestVarsOrdered(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"c", "a", "b"} {
		r.InternVar(name, token.Native)
	}
	core, _ := r.Get(Core)
	core.DefineMacro("when")
	var names []string
	for _, v := range r.Vars() {
		names = append(names, v.Qualified())
	}
	assert.Equal(t, []string{"lispc.core/when", "user/a", "user/b", "user/c"}, names)
	v, _ := core.Lookup("when")
	assert.True(t, v.IsMacro())
}

func TestConcurrentIntern(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.InternVar(fmt.Sprintf("v%d", j), token.Native)
				r.ResolveVar(form.Symbol(fmt.Sprintf("v%d", (j+i)%100)))
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 100, r.Current().Len())
}

func TestConcurrentVarAttributes(t *testing.T) {
	r := NewRegistry()
	core, _ := r.Get(Core)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			v := core.DefineMacro(fmt.Sprintf("m%d", i))
			v.SetDoc("expands")
		}(i)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if v, ok := r.ResolveVar(form.Symbol(fmt.Sprintf("m%d", i))); ok {
					_ = v.IsMacro()
					_ = v.Doc()
				}
			}
		}(i)
	}
	wg.Wait()
	for _, v := range core.Vars() {
		assert.True(t, v.IsMacro(), v.Qualified())
		assert.Equal(t, "expands", v.Doc())
	}
}

func TestInternCore(t *testing.T) {
	r := NewRegistry()
	r.InternCore("+", "inc", "+")
	core, _ := r.Get(Core)
	assert.Equal(t, 2, core.Len())
	v, ok := r.ResolveVar(form.Symbol("inc"))
	require.True(t, ok)
	assert.Equal(t, "lispc.core/inc", v.Qualified())
	assert.False(t, v.Source.Known())
}
