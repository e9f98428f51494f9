// Copyright © 2018 The ELPS authors

package repl

import (
	"sort"
	"strings"

	"github.com/luthersystems/lispc/namespace"
)

// specialForms are offered as completions alongside vars.
var specialForms = []string{
	"case*", "catch", "def", "do", "finally", "fn*", "if", "let*", "letfn*",
	"loop*", "quote", "recur", "throw", "try", "var",
}

// symbolCompleter implements readline.AutoCompleter by enumerating vars
// from the namespace registry.
type symbolCompleter struct {
	reg *namespace.Registry
}

func (c *symbolCompleter) Do(line []rune, pos int) ([][]rune, int) {
	// Extract the word being typed (backwards from cursor to whitespace or an opening delimiter).
	start := pos
	for start > 0 {
		ch := line[start-1]
		if ch == ' ' || ch == '\t' || ch == '(' || ch == '[' || ch == '{' || ch == '\n' {
			break
		}
		start--
	}
	prefix := string(line[start:pos])
	if prefix == "" {
		return nil, 0
	}

	candidates := c.collectSymbols(prefix)
	if len(candidates) == 0 {
		return nil, 0
	}

	// Each entry is the suffix to append.
	result := make([][]rune, 0, len(candidates))
	for _, sym := range candidates {
		result = append(result, []rune(sym[len(prefix):]))
	}
	return result, len(prefix)
}

func (c *symbolCompleter) collectSymbols(prefix string) []string {
	seen := make(map[string]bool)
	var result []string
	add := func(name string) {
		if strings.HasPrefix(name, prefix) && !seen[name] {
			seen[name] = true
			result = append(result, name)
		}
	}

	for _, name := range specialForms {
		add(name)
	}

	// Unqualified vars visible from the current namespace.
	if cur := c.reg.Current(); cur != nil {
		for _, v := range cur.Vars() {
			add(v.Name)
		}
	}
	if core, ok := c.reg.Get(namespace.Core); ok {
		for _, v := range core.Vars() {
			add(v.Name)
		}
	}

	for _, nsName := range c.reg.Names() {
		qualPrefix := nsName + "/"
		if strings.HasPrefix(prefix, qualPrefix) {
			ns, _ := c.reg.Get(nsName)
			for _, v := range ns.Vars() {
				add(v.Qualified())
			}
		} else {
			add(qualPrefix)
		}
	}

	sort.Strings(result)
	return result
}
