package main

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stealthrocket/capfs/internal/assert"
	"github.com/stealthrocket/capfs/pkg/capfs"
)

func makeXattrDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "file"), "")

	d, err := capfs.OpenAmbientDir(dir)
	assert.OK(t, err)
	defer d.Close()

	if err := d.Setxattr("file", "user.capfs.check", nil); err != nil {
		if errors.Is(err, capfs.ENOTSUP) || errors.Is(err, fs.ErrPermission) {
			t.Skip("extended attributes are not supported:", err)
		}
		t.Fatal(err)
	}
	return dir
}

// userNames filters names of the user namespace, the file system may attach
// attributes of other namespaces to the test files.
func userNames(names []string) []string {
	var userNames []string
	for _, name := range names {
		if strings.HasPrefix(name, "user.") {
			userNames = append(userNames, name)
		}
	}
	return userNames
}

var xattrTests = tests{
	"show the xattr command help with the short option": func(t *testing.T) {
		stdout, stderr, exitCode := command(t, "xattr", "-h")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\tcapfs xattr ")
		assert.Equal(t, stderr, "")
	},

	"calling xattr with an unknown command causes an error": func(t *testing.T) {
		_, stderr, exitCode := command(t, "xattr", "whatever", t.TempDir(), "file")
		assert.Equal(t, exitCode, 2)
		assert.Equal(t, stderr, "capfs xattr whatever: unknown command\n")
	},

	"calling xattr with missing arguments causes an error": func(t *testing.T) {
		_, stderr, exitCode := command(t, "xattr", "get", t.TempDir(), "file")
		assert.Equal(t, exitCode, 2)
		assert.Equal(t, stderr, "Usage:\tcapfs xattr get <dir> <path> <name>\n")
	},

	"setting and getting attributes": func(t *testing.T) {
		dir := makeXattrDir(t)

		stdout, stderr, exitCode := command(t, "xattr", "set", dir, "file", "user.answer", "42")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, "")
		assert.Equal(t, stderr, "")

		stdout, stderr, exitCode = command(t, "xattr", "get", dir, "file", "user.answer")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, "42\n")
		assert.Equal(t, stderr, "")
	},

	"getting a missing attribute causes an error": func(t *testing.T) {
		dir := makeXattrDir(t)
		_, stderr, exitCode := command(t, "xattr", "get", dir, "file", "user.nothing")
		assert.Equal(t, exitCode, 1)
		assert.HasPrefix(t, stderr, "ERR: capfs xattr: ")
		assert.True(t, strings.Contains(stderr, "attribute not found: user.nothing"))
	},

	"listing attributes": func(t *testing.T) {
		dir := makeXattrDir(t)
		for _, name := range []string{"user.b", "user.a"} {
			_, _, exitCode := command(t, "xattr", "set", dir, "file", name, "value")
			assert.Equal(t, exitCode, 0)
		}

		stdout, stderr, exitCode := command(t, "xattr", "list", dir, "file")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stderr, "")

		lines := strings.Split(strings.TrimSuffix(stdout, "\n"), "\n")
		assert.Equal(t, lines[0], "NAME")
		assert.EqualAll(t, userNames(lines[1:]), []string{"user.a", "user.b", "user.capfs.check"})
	},

	"listing attributes as json": func(t *testing.T) {
		dir := makeXattrDir(t)
		stdout, _, exitCode := command(t, "xattr", "list", "-o", "json", dir, "file")
		assert.Equal(t, exitCode, 0)

		var names []string
		d := json.NewDecoder(strings.NewReader(stdout))
		for {
			var name xattrName
			if err := d.Decode(&name); err != nil {
				if err == io.EOF {
					break
				}
				t.Fatal(err)
			}
			names = append(names, name.Name)
		}
		assert.EqualAll(t, userNames(names), []string{"user.capfs.check"})
	},

	"attributes of files outside of the directory cannot be read": func(t *testing.T) {
		dir := makeXattrDir(t)
		mkdirAll(t, filepath.Join(dir, "sub"))
		_, stderr, exitCode := command(t, "xattr", "list", filepath.Join(dir, "sub"), "../file")
		assert.Equal(t, exitCode, 1)
		assert.HasPrefix(t, stderr, "ERR: capfs xattr: ")
	},
}
