package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stealthrocket/capfs/internal/assert"
)

var touchTests = tests{
	"show the touch command help with the short option": func(t *testing.T) {
		stdout, stderr, exitCode := command(t, "touch", "-h")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\tcapfs touch ")
		assert.Equal(t, stderr, "")
	},

	"touching missing files creates them": func(t *testing.T) {
		dir := t.TempDir()
		stdout, stderr, exitCode := command(t, "touch", dir, "a", "b")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, "")
		assert.Equal(t, stderr, "")
		assert.Equal(t, readFile(t, filepath.Join(dir, "a")), "")
		assert.Equal(t, readFile(t, filepath.Join(dir, "b")), "")
	},

	"touching missing files with --no-create does nothing": func(t *testing.T) {
		dir := t.TempDir()
		_, _, exitCode := command(t, "touch", "--no-create", dir, "a")
		assert.Equal(t, exitCode, 0)
		assert.False(t, exists(t, filepath.Join(dir, "a")))
	},

	"touching existing files updates their timestamps": func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "file")
		writeFile(t, path, "content")

		past := time.Now().Add(-time.Hour)
		assert.OK(t, os.Chtimes(path, past, past))

		_, _, exitCode := command(t, "touch", dir, "file")
		assert.Equal(t, exitCode, 0)

		info, err := os.Stat(path)
		assert.OK(t, err)
		assert.Less(t, past.Unix(), info.ModTime().Unix())
		assert.Equal(t, readFile(t, path), "content")
	},

	"touching dangling symbolic links does not create their target": func(t *testing.T) {
		dir := t.TempDir()
		symlink(t, "nowhere", filepath.Join(dir, "link"))

		_, _, exitCode := command(t, "touch", dir, "link")
		assert.Equal(t, exitCode, 0)
		assert.False(t, exists(t, filepath.Join(dir, "nowhere")))
	},

	"touching files outside of the directory causes an error": func(t *testing.T) {
		parent := t.TempDir()
		dir := filepath.Join(parent, "dir")
		mkdirAll(t, dir)

		_, stderr, exitCode := command(t, "touch", dir, "../file")
		assert.Equal(t, exitCode, 1)
		assert.HasPrefix(t, stderr, "ERR: capfs touch: ")
		assert.False(t, exists(t, filepath.Join(parent, "file")))
	},
}
