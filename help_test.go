package main

import (
	"testing"

	"github.com/stealthrocket/capfs/internal/assert"
)

var helpTests = tests{
	"calling help with an unknown command causes an error": func(t *testing.T) {
		stdout, stderr, exitCode := command(t, "help", "whatever")
		assert.Equal(t, exitCode, 2)
		assert.Equal(t, stdout, "")
		assert.Equal(t, stderr, "capfs help whatever: unknown command\n")
	},

	"passing an unsupported flag to the command causes an error": func(t *testing.T) {
		_, _, exitCode := command(t, "help", "-_")
		assert.Equal(t, exitCode, 2)
	},

	"show the help command help with the short option": func(t *testing.T) {
		stdout, stderr, exitCode := command(t, "help", "-h")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\tcapfs <command> ")
		assert.Equal(t, stderr, "")
	},

	"show the help command help with the long option": func(t *testing.T) {
		stdout, stderr, exitCode := command(t, "help", "--help")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\tcapfs <command> ")
		assert.Equal(t, stderr, "")
	},

	"show the help command help after a command name": func(t *testing.T) {
		stdout, stderr, exitCode := command(t, "help", "cat", "--help")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\tcapfs <command> ")
		assert.Equal(t, stderr, "")
	},

	"capfs help cat": func(t *testing.T) {
		stdout, stderr, exitCode := command(t, "help", "cat")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\tcapfs cat ")
		assert.Equal(t, stderr, "")
	},

	"capfs help config": func(t *testing.T) {
		stdout, stderr, exitCode := command(t, "help", "config")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\tcapfs config ")
		assert.Equal(t, stderr, "")
	},

	"capfs help help": func(t *testing.T) {
		stdout, stderr, exitCode := command(t, "help", "help")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\tcapfs <command> ")
		assert.Equal(t, stderr, "")
	},

	"capfs help mkdir": func(t *testing.T) {
		stdout, stderr, exitCode := command(t, "help", "mkdir")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\tcapfs mkdir ")
		assert.Equal(t, stderr, "")
	},

	"capfs help rm": func(t *testing.T) {
		stdout, stderr, exitCode := command(t, "help", "rm")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\tcapfs rm ")
		assert.Equal(t, stderr, "")
	},

	"capfs help touch": func(t *testing.T) {
		stdout, stderr, exitCode := command(t, "help", "touch")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\tcapfs touch ")
		assert.Equal(t, stderr, "")
	},

	"capfs help version": func(t *testing.T) {
		stdout, stderr, exitCode := command(t, "help", "version")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\tcapfs version\n")
		assert.Equal(t, stderr, "")
	},

	"capfs help walk": func(t *testing.T) {
		stdout, stderr, exitCode := command(t, "help", "walk")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\tcapfs walk ")
		assert.Equal(t, stderr, "")
	},

	"capfs help write": func(t *testing.T) {
		stdout, stderr, exitCode := command(t, "help", "write")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\tcapfs write ")
		assert.Equal(t, stderr, "")
	},

	"capfs help xattr": func(t *testing.T) {
		stdout, stderr, exitCode := command(t, "help", "xattr")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\tcapfs xattr ")
		assert.Equal(t, stderr, "")
	},
}
