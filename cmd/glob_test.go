// Copyright © 2024 The ELPS authors

package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterExcludes(t *testing.T) {
	tests := []struct {
		name     string
		paths    []string
		patterns []string
		want     []string
	}{
		{
			name:     "by name",
			paths:    []string{"src/core.lisp", "src/generated.lisp", "lib/seq.lisp"},
			patterns: []string{"generated.lisp"},
			want:     []string{"src/core.lisp", "lib/seq.lisp"},
		},
		{
			name:     "by directory",
			paths:    []string{"src/core.lisp", "target/out.lisp", "target/sub/deep.lisp", "lib/seq.lisp"},
			patterns: []string{"target"},
			want:     []string{"src/core.lisp", "lib/seq.lisp"},
		},
		{
			name:     "glob",
			paths:    []string{"src/core.lisp", "src/gen_a.lisp", "src/gen_b.lisp"},
			patterns: []string{"gen_*"},
			want:     []string{"src/core.lisp"},
		},
		{
			name:     "several patterns",
			paths:    []string{"src/core.lisp", "target/out.lisp", "src/gen_a.lisp", "lib/seq.lisp"},
			patterns: []string{"target", "gen_*"},
			want:     []string{"src/core.lisp", "lib/seq.lisp"},
		},
		{
			name:     "no matches",
			paths:    []string{"src/core.lisp"},
			patterns: []string{"vendor"},
			want:     []string{"src/core.lisp"},
		},
		{
			name:  "no patterns",
			paths: []string{"src/core.lisp"},
			want:  []string{"src/core.lisp"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, filterExcludes(tt.paths, tt.patterns))
		})
	}
}

func TestMatchesAny(t *testing.T) {
	assert.True(t, matchesAny("src/core.lisp", []string{"src/*.lisp"}))
	assert.False(t, matchesAny("lib/core.lisp", []string{"src/*.lisp"}))
	assert.True(t, matchesAny("a/b/core.lisp", []string{"core.lisp"}))
	assert.True(t, matchesAny("project/target/out.lisp", []string{"target"}))
	assert.False(t, matchesAny("project/src/out.lisp", []string{"target"}))
}

func TestSplitPath(t *testing.T) {
	assert.Equal(t, []string{"c.lisp", "b", "a"}, splitPath("a/b/c.lisp"))
	assert.Equal(t, []string{"c.lisp"}, splitPath("c.lisp"))
}

func TestExpandArgs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.lisp", "sub/b.lisp", "sub/notes.txt", "target/c.lisp"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("nil"), 0o600))
	}

	files, err := expandArgs([]string{dir + "/...", "extra.lisp"}, []string{"target"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.lisp"),
		filepath.Join(dir, "sub", "b.lisp"),
		"extra.lisp",
	}, files)

	_, err = expandArgs([]string{filepath.Join(dir, "missing") + "/..."}, nil)
	assert.Error(t, err)
}
