package main

import (
	"strings"
	"testing"

	"github.com/stealthrocket/capfs/internal/assert"
)

var versionTests = tests{
	"show the version command help with the short option": func(t *testing.T) {
		stdout, stderr, exitCode := command(t, "version", "-h")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\tcapfs version\n")
		assert.Equal(t, stderr, "")
	},

	"show the version command help with the long option": func(t *testing.T) {
		stdout, stderr, exitCode := command(t, "version", "--help")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\tcapfs version\n")
		assert.Equal(t, stderr, "")
	},

	"the version starts with the prefix capfs": func(t *testing.T) {
		stdout, stderr, exitCode := command(t, "version")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "capfs ")
		assert.Equal(t, stderr, "")
	},

	"the version number is not empty": func(t *testing.T) {
		stdout, stderr, exitCode := command(t, "version")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stderr, "")

		_, version, _ := strings.Cut(strings.TrimSpace(stdout), " ")
		assert.NotEqual(t, version, "")
	},

	"passing an unsupported flag to the command causes an error": func(t *testing.T) {
		_, _, exitCode := command(t, "version", "-_")
		assert.Equal(t, exitCode, 2)
	},

	"passing arguments to the command causes an error": func(t *testing.T) {
		_, stderr, exitCode := command(t, "version", "1.0")
		assert.Equal(t, exitCode, 2)
		assert.Equal(t, stderr, "Usage:\tcapfs version\n")
	},
}
