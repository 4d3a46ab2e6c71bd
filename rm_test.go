package main

import (
	"path/filepath"
	"testing"

	"github.com/stealthrocket/capfs/internal/assert"
)

var rmTests = tests{
	"show the rm command help with the short option": func(t *testing.T) {
		stdout, stderr, exitCode := command(t, "rm", "-h")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\tcapfs rm ")
		assert.Equal(t, stderr, "")
	},

	"removing files and directory trees": func(t *testing.T) {
		dir := t.TempDir()
		mkdirAll(t, filepath.Join(dir, "tree", "a", "b"))
		writeFile(t, filepath.Join(dir, "tree", "a", "b", "file"), "")
		writeFile(t, filepath.Join(dir, "file"), "")

		stdout, stderr, exitCode := command(t, "rm", dir, "tree", "file")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, "")
		assert.Equal(t, stderr, "")
		assert.False(t, exists(t, filepath.Join(dir, "tree")))
		assert.False(t, exists(t, filepath.Join(dir, "file")))
	},

	"removing symbolic links leaves their target untouched": func(t *testing.T) {
		dir := t.TempDir()
		mkdirAll(t, filepath.Join(dir, "keep"))
		writeFile(t, filepath.Join(dir, "keep", "file"), "keep")
		symlink(t, "keep", filepath.Join(dir, "link"))

		_, _, exitCode := command(t, "rm", dir, "link")
		assert.Equal(t, exitCode, 0)
		assert.False(t, exists(t, filepath.Join(dir, "link")))
		assert.Equal(t, readFile(t, filepath.Join(dir, "keep", "file")), "keep")
	},

	"removing a missing path causes an error": func(t *testing.T) {
		_, stderr, exitCode := command(t, "rm", t.TempDir(), "nothing")
		assert.Equal(t, exitCode, 1)
		assert.HasPrefix(t, stderr, "ERR: capfs rm: remove ")
	},

	"removing a missing path with --force succeeds": func(t *testing.T) {
		stdout, stderr, exitCode := command(t, "rm", "-f", t.TempDir(), "nothing")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, "")
		assert.Equal(t, stderr, "")
	},

	"removing paths outside of the directory causes an error": func(t *testing.T) {
		parent := t.TempDir()
		dir := filepath.Join(parent, "dir")
		mkdirAll(t, dir)
		writeFile(t, filepath.Join(parent, "file"), "")

		_, stderr, exitCode := command(t, "rm", "--force", dir, "../file")
		assert.Equal(t, exitCode, 1)
		assert.HasPrefix(t, stderr, "ERR: capfs rm: ")
		assert.True(t, exists(t, filepath.Join(parent, "file")))
	},
}
