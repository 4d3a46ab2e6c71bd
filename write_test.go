package main

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stealthrocket/capfs/internal/assert"
)

var writeTests = tests{
	"show the write command help with the long option": func(t *testing.T) {
		stdout, stderr, exitCode := command(t, "write", "--help")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\tcapfs write ")
		assert.Equal(t, stderr, "")
	},

	"writing a file requires a directory and a path": func(t *testing.T) {
		_, stderr, exitCode := command(t, "write", t.TempDir())
		assert.Equal(t, exitCode, 2)
		assert.Equal(t, stderr, "Usage:\tcapfs write [options] <dir> <path>\n")
	},

	"writing a new file": func(t *testing.T) {
		dir := t.TempDir()
		stdout, stderr, exitCode := commandWithInput(t, "hello world\n", "write", dir, "file")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, "")
		assert.Equal(t, stderr, "")
		assert.Equal(t, readFile(t, filepath.Join(dir, "file")), "hello world\n")
	},

	"replacing a file keeps its permissions": func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "file")
		writeFile(t, path, "previous")
		assert.OK(t, os.Chmod(path, 0640))

		_, _, exitCode := commandWithInput(t, "next", "write", dir, "file")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, readFile(t, path), "next")
		assert.Equal(t, perm(t, path), fs.FileMode(0640))
	},

	"the mode option sets the permissions of the file": func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "file")
		writeFile(t, path, "previous")

		_, _, exitCode := commandWithInput(t, "next", "write", "-m", "0600", dir, "file")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, perm(t, path), fs.FileMode(0600))
	},

	"the configuration sets the default permissions": func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "file")
		setConfig(t, "write:\n  mode: \"0604\"\n")

		_, _, exitCode := commandWithInput(t, "content", "write", dir, "file")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, perm(t, path), fs.FileMode(0604))

		_, _, exitCode = commandWithInput(t, "content", "write", "--mode=0640", dir, "file")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, perm(t, path), fs.FileMode(0640))
	},

	"an invalid mode causes an error": func(t *testing.T) {
		_, stderr, exitCode := commandWithInput(t, "", "write", "-m", "999", t.TempDir(), "file")
		assert.Equal(t, exitCode, 2)
		assert.HasPrefix(t, stderr, "capfs write: invalid value")
	},

	"writing into a sub-directory": func(t *testing.T) {
		dir := t.TempDir()
		mkdirAll(t, filepath.Join(dir, "a", "b"))

		_, _, exitCode := commandWithInput(t, "content", "write", dir, "a/b/file")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, readFile(t, filepath.Join(dir, "a", "b", "file")), "content")
	},

	"writing outside of the directory causes an error": func(t *testing.T) {
		parent := t.TempDir()
		dir := filepath.Join(parent, "dir")
		mkdirAll(t, dir)

		_, stderr, exitCode := commandWithInput(t, "content", "write", dir, "../file")
		assert.Equal(t, exitCode, 1)
		assert.HasPrefix(t, stderr, "ERR: capfs write: ")
		assert.False(t, exists(t, filepath.Join(parent, "file")))
	},

	"writing exclusively fails if the file exists": func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "file")
		writeFile(t, path, "previous")

		_, stderr, exitCode := commandWithInput(t, "next", "write", "--exclusive", dir, "file")
		assert.Equal(t, exitCode, 1)
		assert.HasPrefix(t, stderr, "ERR: capfs write: ")
		assert.Equal(t, readFile(t, path), "previous")

		entries, err := os.ReadDir(dir)
		assert.OK(t, err)
		assert.Equal(t, len(entries), 1)
	},

	"writing exclusively creates private files": func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "file")

		_, _, exitCode := commandWithInput(t, "content", "write", "--exclusive", dir, "file")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, readFile(t, path), "content")
		assert.Equal(t, perm(t, path), fs.FileMode(0600))

		_, _, exitCode = commandWithInput(t, "content", "write", "--exclusive", "-m", "0644", dir, "other")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, perm(t, filepath.Join(dir, "other")), fs.FileMode(0644))
	},

	"writing exclusively into a sub-directory": func(t *testing.T) {
		dir := t.TempDir()
		mkdirAll(t, filepath.Join(dir, "sub"))

		_, _, exitCode := commandWithInput(t, "content", "write", "--exclusive", dir, "sub/file")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, readFile(t, filepath.Join(dir, "sub", "file")), "content")

		entries, err := os.ReadDir(filepath.Join(dir, "sub"))
		assert.OK(t, err)
		assert.Equal(t, len(entries), 1)
	},

	"writing compressed files": func(t *testing.T) {
		dir := t.TempDir()
		data := bytes.Repeat([]byte("hello world\n"), 1000)

		_, _, exitCode := commandWithInput(t, string(data), "write", "--zstd", dir, "file.zst")
		assert.Equal(t, exitCode, 0)

		f, err := os.Open(filepath.Join(dir, "file.zst"))
		assert.OK(t, err)
		defer f.Close()

		info, err := f.Stat()
		assert.OK(t, err)
		assert.Less(t, info.Size(), int64(len(data)))

		z, err := zstd.NewReader(f)
		assert.OK(t, err)
		defer z.Close()

		b, err := io.ReadAll(z)
		assert.OK(t, err)
		assert.True(t, bytes.Equal(b, data))

		stdout, _, exitCode := command(t, "cat", "--zstd", dir, "file.zst")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, string(data))
	},
}
