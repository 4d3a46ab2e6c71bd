package main

import (
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stealthrocket/capfs/internal/assert"
	"github.com/stealthrocket/capfs/internal/print/human"
	"gopkg.in/yaml.v3"
)

func makeWalkDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	mkdirAll(t, filepath.Join(dir, "b"))
	writeFile(t, filepath.Join(dir, "a"), "abc")
	writeFile(t, filepath.Join(dir, "b", "c"), "c")
	symlink(t, "a", filepath.Join(dir, "link"))
	return dir
}

func walkJSON(t *testing.T, args ...string) []walkEntry {
	t.Helper()
	stdout, stderr, exitCode := command(t, append([]string{"walk", "-o", "json"}, args...)...)
	assert.Equal(t, stderr, "")
	assert.Equal(t, exitCode, 0)

	var entries []walkEntry
	d := json.NewDecoder(strings.NewReader(stdout))
	for {
		var entry walkEntry
		if err := d.Decode(&entry); err != nil {
			if err == io.EOF {
				return entries
			}
			t.Fatal(err)
		}
		entries = append(entries, entry)
	}
}

func walkPaths(entries []walkEntry) []string {
	paths := make([]string, len(entries))
	for i, entry := range entries {
		paths[i] = entry.Path
	}
	return paths
}

var walkTests = tests{
	"show the walk command help with the short option": func(t *testing.T) {
		stdout, stderr, exitCode := command(t, "walk", "-h")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\tcapfs walk ")
		assert.Equal(t, stderr, "")
	},

	"walking requires a directory": func(t *testing.T) {
		_, stderr, exitCode := command(t, "walk")
		assert.Equal(t, exitCode, 2)
		assert.Equal(t, stderr, "Usage:\tcapfs walk [options] <dir>\n")
	},

	"listing the entries of a directory tree": func(t *testing.T) {
		dir := makeWalkDir(t)
		entries := walkJSON(t, "-s", dir)
		want := []walkEntry{
			{Path: "a", Type: "file", Size: 3},
			{Path: "b", Type: "dir"},
			{Path: "b/c", Type: "file", Size: 1},
			{Path: "link", Type: "symlink", Target: "a"},
		}
		if diff := cmp.Diff(want, entries, cmpopts.IgnoreFields(walkEntry{}, "Mode")); diff != "" {
			t.Fatalf("entries mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, entries[0].Mode, human.ModeOf(perm(t, filepath.Join(dir, "a"))))
	},

	"the configuration enables sorting": func(t *testing.T) {
		setConfig(t, "walk:\n  sort: true\n")
		paths := walkPaths(walkJSON(t, makeWalkDir(t)))
		assert.EqualAll(t, paths, []string{"a", "b", "b/c", "link"})
	},

	"entries are all listed when the walk is not sorted": func(t *testing.T) {
		paths := walkPaths(walkJSON(t, "--sort=false", makeWalkDir(t)))
		assert.Equal(t, len(paths), 4)
	},

	"skipping directories by name": func(t *testing.T) {
		paths := walkPaths(walkJSON(t, "-s", "--skip", "b", makeWalkDir(t)))
		assert.EqualAll(t, paths, []string{"a", "b", "link"})
	},

	"limiting the number of entries": func(t *testing.T) {
		paths := walkPaths(walkJSON(t, "-s", "-n", "2", makeWalkDir(t)))
		assert.EqualAll(t, paths, []string{"a", "b"})
	},

	"prefixing the paths": func(t *testing.T) {
		paths := walkPaths(walkJSON(t, "-s", "--prefix", "root", makeWalkDir(t)))
		assert.EqualAll(t, paths, []string{"root/a", "root/b", "root/b/c", "root/link"})
	},

	"staying on the same file system": func(t *testing.T) {
		paths := walkPaths(walkJSON(t, "-s", "-x", makeWalkDir(t)))
		assert.EqualAll(t, paths, []string{"a", "b", "b/c", "link"})
	},

	"listing entries as a table": func(t *testing.T) {
		stdout, stderr, exitCode := command(t, "walk", "-s", makeWalkDir(t))
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stderr, "")

		lines := strings.Split(strings.TrimSuffix(stdout, "\n"), "\n")
		assert.Equal(t, len(lines), 5)
		assert.EqualAll(t, strings.Fields(lines[0]), []string{"PATH", "TYPE", "MODE", "SIZE", "TARGET"})
		assert.HasPrefix(t, lines[4], "link ")
		assert.True(t, strings.HasSuffix(lines[4], " a"))
	},

	"listing entries as yaml": func(t *testing.T) {
		stdout, _, exitCode := command(t, "walk", "-s", "-o", "yaml", makeWalkDir(t))
		assert.Equal(t, exitCode, 0)

		var paths []string
		d := yaml.NewDecoder(strings.NewReader(stdout))
		for {
			var entry map[string]any
			if err := d.Decode(&entry); err != nil {
				if err == io.EOF {
					break
				}
				t.Fatal(err)
			}
			paths = append(paths, entry["path"].(string))
		}
		assert.EqualAll(t, paths, []string{"a", "b", "b/c", "link"})
	},

	"walking a missing directory causes an error": func(t *testing.T) {
		_, stderr, exitCode := command(t, "walk", filepath.Join(t.TempDir(), "nothing"))
		assert.Equal(t, exitCode, 1)
		assert.HasPrefix(t, stderr, "ERR: capfs walk: ")
	},
}
