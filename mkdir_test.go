package main

import (
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stealthrocket/capfs/internal/assert"
)

var mkdirTests = tests{
	"show the mkdir command help with the short option": func(t *testing.T) {
		stdout, stderr, exitCode := command(t, "mkdir", "-h")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\tcapfs mkdir ")
		assert.Equal(t, stderr, "")
	},

	"creating directories": func(t *testing.T) {
		dir := t.TempDir()
		stdout, stderr, exitCode := command(t, "mkdir", dir, "a", "b")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, "")
		assert.Equal(t, stderr, "")
		assert.True(t, exists(t, filepath.Join(dir, "a")))
		assert.True(t, exists(t, filepath.Join(dir, "b")))
	},

	"existing directories are left unchanged": func(t *testing.T) {
		dir := t.TempDir()
		mkdirAll(t, filepath.Join(dir, "a"))
		writeFile(t, filepath.Join(dir, "a", "file"), "keep")

		_, _, exitCode := command(t, "mkdir", dir, "a")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, readFile(t, filepath.Join(dir, "a", "file")), "keep")
	},

	"a file in place of a directory causes an error": func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a"), "")

		_, stderr, exitCode := command(t, "mkdir", dir, "a")
		assert.Equal(t, exitCode, 1)
		assert.HasPrefix(t, stderr, "ERR: capfs mkdir: ")
	},

	"parent directories are only created with --parents": func(t *testing.T) {
		dir := t.TempDir()

		_, _, exitCode := command(t, "mkdir", dir, "a/b/c")
		assert.Equal(t, exitCode, 1)
		assert.False(t, exists(t, filepath.Join(dir, "a")))

		_, _, exitCode = command(t, "mkdir", "--parents", dir, "a/b/c")
		assert.Equal(t, exitCode, 0)
		assert.True(t, exists(t, filepath.Join(dir, "a", "b", "c")))
	},

	"the mode option sets the permissions of new directories": func(t *testing.T) {
		dir := t.TempDir()
		_, _, exitCode := command(t, "mkdir", "-m", "0700", dir, "private")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, perm(t, filepath.Join(dir, "private")), fs.FileMode(0700))
	},

	"creating directories outside of the directory causes an error": func(t *testing.T) {
		parent := t.TempDir()
		dir := filepath.Join(parent, "dir")
		mkdirAll(t, dir)

		_, stderr, exitCode := command(t, "mkdir", dir, "../other")
		assert.Equal(t, exitCode, 1)
		assert.HasPrefix(t, stderr, "ERR: capfs mkdir: ")
		assert.False(t, exists(t, filepath.Join(parent, "other")))
	},
}
