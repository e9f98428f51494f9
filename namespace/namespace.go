// Copyright © 2024 The ELPS authors

// Package namespace holds the global environment consulted by the analyzer:
// named namespaces containing vars, and per-namespace aliases.  A Registry
// is safe for concurrent use so that several files may be analyzed against
// the same environment at once.
package namespace

import (
	"sort"
	"sync"

	"github.com/google/btree"
	"github.com/luthersystems/lispc/form"
	"github.com/luthersystems/lispc/parser/token"
)

// Core is the name of the namespace consulted for unqualified symbols that
// are not bound in the current namespace.
const Core = "lispc.core"

// User is the namespace selected by NewRegistry.
const User = "user"

// btreeDegree is the branching factor of each namespace's var index.
const btreeDegree = 16

// Var is a named global binding.  Its identity is fixed when it is
// interned; the macro flag and docstring may change while other goroutines
// analyze against the var, so they are read through accessors.
type Var struct {
	Namespace string
	Name      string
	// Source is the location of the form that interned the var.
	Source *token.Location

	mu    sync.RWMutex
	macro bool
	doc   string
}

// IsMacro reports whether v expands forms before analysis.
func (v *Var) IsMacro() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.macro
}

// Doc returns the docstring of the last def that supplied one.
func (v *Var) Doc() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.doc
}

// SetDoc replaces the docstring of v.
func (v *Var) SetDoc(doc string) {
	v.mu.Lock()
	v.doc = doc
	v.mu.Unlock()
}

// Qualified returns "ns/name".
func (v *Var) Qualified() string {
	return v.Namespace + "/" + v.Name
}

func (v *Var) String() string {
	return "#'" + v.Qualified()
}

func lessVar(a, b *Var) bool {
	return a.Name < b.Name
}

// Namespace is a named set of vars.
type Namespace struct {
	Name string

	mu      sync.RWMutex
	vars    *btree.BTreeG[*Var]
	aliases map[string]string
}

// New returns an empty namespace.
func New(name string) *Namespace {
	return &Namespace{
		Name:    name,
		vars:    btree.NewG[*Var](btreeDegree, lessVar),
		aliases: make(map[string]string),
	}
}

// Lookup returns the var named name in ns.
func (ns *Namespace) Lookup(name string) (*Var, bool) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return ns.vars.Get(&Var{Name: name})
}

// Intern returns the var named name in ns, creating it if necessary.  A var
// that already exists is returned unchanged.
func (ns *Namespace) Intern(name string, source *token.Location) *Var {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if v, ok := ns.vars.Get(&Var{Name: name}); ok {
		return v
	}
	v := &Var{Namespace: ns.Name, Name: name, Source: source}
	ns.vars.ReplaceOrInsert(v)
	return v
}

// DefineMacro interns name and marks it as a macro.
func (ns *Namespace) DefineMacro(name string) *Var {
	v := ns.Intern(name, token.Native)
	v.mu.Lock()
	v.macro = true
	v.mu.Unlock()
	return v
}

// Alias makes alias refer to the namespace named target within ns.
func (ns *Namespace) Alias(alias, target string) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.aliases[alias] = target
}

// AliasTarget returns the namespace name alias refers to within ns.
func (ns *Namespace) AliasTarget(alias string) (string, bool) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	target, ok := ns.aliases[alias]
	return target, ok
}

// Vars returns the vars of ns ordered by name.
func (ns *Namespace) Vars() []*Var {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	vars := make([]*Var, 0, ns.vars.Len())
	ns.vars.Ascend(func(v *Var) bool {
		vars = append(vars, v)
		return true
	})
	return vars
}

// Len returns the number of vars interned in ns.
func (ns *Namespace) Len() int {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return ns.vars.Len()
}

// Registry contains a set of namespaces and tracks the current one.
type Registry struct {
	mu         sync.RWMutex
	namespaces map[string]*Namespace
	current    string
}

// NewRegistry initializes and returns a Registry containing the core and
// user namespaces, with user selected.
func NewRegistry() *Registry {
	r := &Registry{
		namespaces: make(map[string]*Namespace),
		current:    User,
	}
	r.Define(Core)
	r.Define(User)
	return r
}

// Define returns the namespace named name, creating it if necessary.
func (r *Registry) Define(name string) *Namespace {
	r.mu.Lock()
	defer r.mu.Unlock()
	ns, ok := r.namespaces[name]
	if ok {
		return ns
	}
	ns = New(name)
	r.namespaces[name] = ns
	return ns
}

// Get returns the namespace named name.
func (r *Registry) Get(name string) (*Namespace, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ns, ok := r.namespaces[name]
	return ns, ok
}

// SetCurrent selects the namespace named name, defining it if necessary.
func (r *Registry) SetCurrent(name string) *Namespace {
	ns := r.Define(name)
	r.mu.Lock()
	r.current = name
	r.mu.Unlock()
	return ns
}

// CurrentNamespace returns the name of the selected namespace.
func (r *Registry) CurrentNamespace() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Current returns the selected namespace.
func (r *Registry) Current() *Namespace {
	ns, _ := r.Get(r.CurrentNamespace())
	return ns
}

// Names returns the sorted names of all defined namespaces.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.namespaces))
	for name := range r.namespaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveVar finds the var named by symbol sym.  Qualified symbols name a
// namespace directly or through an alias of the current namespace.
// Unqualified symbols are looked up in the current namespace and then in
// the core namespace.
func (r *Registry) ResolveVar(sym *form.Form) (*Var, bool) {
	if sym == nil || sym.Type != form.FSymbol {
		return nil, false
	}
	current := r.Current()
	if sym.Qualified() {
		nsName := sym.Namespace()
		if target, ok := current.AliasTarget(nsName); ok {
			nsName = target
		}
		ns, ok := r.Get(nsName)
		if !ok {
			return nil, false
		}
		return ns.Lookup(sym.Name())
	}
	if v, ok := current.Lookup(sym.Str); ok {
		return v, true
	}
	core, ok := r.Get(Core)
	if !ok {
		return nil, false
	}
	return core.Lookup(sym.Str)
}

// InternCore interns each name in the core namespace.  Core vars are
// provided by the host so they carry no source location.
func (r *Registry) InternCore(names ...string) {
	core := r.Define(Core)
	for _, name := range names {
		core.Intern(name, token.Native)
	}
}

// InternVar interns name in the current namespace.
func (r *Registry) InternVar(name string, source *token.Location) *Var {
	return r.Current().Intern(name, source)
}

// Vars returns every var in every namespace, ordered by namespace and then
// name.
func (r *Registry) Vars() []*Var {
	var vars []*Var
	for _, name := range r.Names() {
		ns, _ := r.Get(name)
		vars = append(vars, ns.Vars()...)
	}
	return vars
}
