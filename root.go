package main

// Notes on program structure
// --------------------------
//
// capfs uses subcommands to invoke specific functionalities of the program.
// Each subcommand is implemented by a function named after the command, in a
// file of the same name (e.g. the "help" command is implemented by the help
// function in help.go).
//
// The usage message for each command is declared by a constant starting with
// the command name and followed by the suffix "Usage". For example, the usage
// message for the "help" command is declared by the constant helpUsage.
//
// The usage message contains a "Usage:	capfs <command>" section presenting
// the structure of the command. Note the tabulation separating "Usage:" and
// "capfs".
//
// Commands write to the stdout and stderr variables rather than os.Stdout and
// os.Stderr so they can be invoked in-process by tests.

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/stealthrocket/capfs/internal/settings"
	"github.com/stealthrocket/capfs/pkg/capfs"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

const rootUsage = `capfs - Capability-based filesystem operations

   capfs operates on files through handles to directories. Paths are always
   resolved relative to the directory given on the command line, and never
   allowed to lead outside of it.

Example:

   $ echo hello | capfs write /srv/data config/message
   $ capfs cat /srv/data config/message
   hello

   $ capfs cat --root=false /srv/data ../etc/passwd
   ERR: capfs cat: open /srv/data/../etc/passwd: a path led outside of the filesystem

For a list of commands available, run 'capfs help'.`

var (
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// log is the logger of the program, installed by loadConfig.
var log = zap.NewNop()

// root is the capfs entrypoint.
func root(ctx context.Context, args ...string) int {
	// Only the options preceding the command are parsed here, the rest belong
	// to the command.
	var err error
	flagSet := newFlagSet("capfs", helpUsage)
	if err = flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printUsage(flagSet)
			err = exitCode(0)
		} else {
			err = usageError("capfs: %s", err)
		}
	} else if args = flagSet.Args(); len(args) == 0 {
		fmt.Fprintln(stdout, rootUsage)
		return 0
	}

	var cmd string
	if err == nil {
		cmd, args = args[0], args[1:]

		switch cmd {
		case "cat":
			err = cat(ctx, args)
		case "config":
			err = config(ctx, args)
		case "help":
			err = help(ctx, args)
		case "mkdir":
			err = mkdir(ctx, args)
		case "rm":
			err = rm(ctx, args)
		case "touch":
			err = touch(ctx, args)
		case "version":
			err = version(ctx, args)
		case "walk":
			err = walk(ctx, args)
		case "write":
			err = write(ctx, args)
		case "xattr":
			err = xattr(ctx, args)
		default:
			err = unknown(ctx, cmd)
		}
	}
	_ = log.Sync()

	switch e := err.(type) {
	case nil:
		return 0
	case exitCode:
		return int(e)
	case usage:
		fmt.Fprintf(stderr, "%s\n", e)
		return 2
	default:
		fmt.Fprintf(stderr, "ERR: capfs %s: %s\n", cmd, err)
		return 1
	}
}

// exitCode is an error type returned from command functions to indicate the
// exit code that should be returned by the program.
type exitCode int

func (e exitCode) Error() string {
	return fmt.Sprintf("exit: %d", e)
}

// usage is an error type returned from command functions to indicate a usage
// error.
//
// Usage errors cause the program to exit with status code 2.
type usage string

func usageError(msg string, args ...any) error {
	return usage(fmt.Sprintf(msg, args...))
}

func (e usage) Error() string {
	return string(e)
}

// loadConfig loads the program configuration and installs the logger that it
// configures, both for the program and the capfs package.
func loadConfig() (*settings.Config, error) {
	config, err := settings.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	log = config.NewLogger(stderr)
	capfs.SetLogger(log.Named("capfs"))
	return config, nil
}

func setEnum[T ~string](enum *T, typ string, value string, options ...string) error {
	for _, option := range options {
		if option == value {
			*enum = T(option)
			return nil
		}
	}
	return fmt.Errorf("unsupported %s: %q (not one of %s)", typ, value, strings.Join(options, ", "))
}

type outputFormat string

func (o outputFormat) String() string {
	return string(o)
}

func (o *outputFormat) Set(value string) error {
	return setEnum(o, "output format", value, "text", "json", "yaml")
}

type stringList []string

func (s stringList) String() string {
	return fmt.Sprintf("%v", []string(s))
}

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

// optionalBool is a boolean flag which remembers whether it was set on the
// command line, so it can override a configuration value in both directions.
type optionalBool struct {
	value bool
	set   bool
}

func (b *optionalBool) String() string {
	if b == nil {
		return "false"
	}
	return strconv.FormatBool(b.value)
}

func (b *optionalBool) Set(value string) error {
	v, err := strconv.ParseBool(value)
	if err != nil {
		return err
	}
	b.value, b.set = v, true
	return nil
}

func (b *optionalBool) IsBoolFlag() bool { return true }

// get returns the value of the flag if it was set, or def otherwise.
func (b *optionalBool) get(def bool) bool {
	if b.set {
		return b.value
	}
	return def
}

// trimUsage removes the blank lines surrounding a usage message.
func trimUsage(usage string) string {
	return strings.TrimSpace(usage)
}

// usages holds the usage messages of the flag sets created by newFlagSet. The
// flag package calls Usage on every parse error, so the message is printed by
// printUsage only when it was requested with -h or --help.
var usages = map[*flag.FlagSet]string{}

func newFlagSet(cmd, usage string) *flag.FlagSet {
	flagSet := flag.NewFlagSet(cmd, flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.Usage = func() {}
	usages[flagSet] = trimUsage(usage)
	customVar(flagSet, &settings.ConfigPath, "c", "config")
	return flagSet
}

func printUsage(f *flag.FlagSet) {
	fmt.Fprintln(stdout, usages[f])
}

// parseFlags is a greedy parser which consumes all options known to f and
// returns the remaining arguments.
//
// Requesting the usage message with -h or --help returns exitCode(0) after the
// message was printed, other parsing errors are usage errors.
func parseFlags(f *flag.FlagSet, args []string) ([]string, error) {
	var unknownArgs []string
	for {
		if err := f.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				printUsage(f)
				return nil, exitCode(0)
			}
			return nil, usageError("%s: %s", f.Name(), err)
		}
		n := len(args) - len(f.Args())
		if n > 0 && args[n-1] == "--" {
			return append(unknownArgs, f.Args()...), nil
		}
		if args = f.Args(); len(args) == 0 {
			return unknownArgs, nil
		}
		// The first argument is not an option, consume arguments until the
		// next option.
		i := slices.IndexFunc(args, func(s string) bool {
			return strings.HasPrefix(s, "-") && s != "-"
		})
		if i < 0 {
			i = len(args)
		}
		unknownArgs = append(unknownArgs, args[:i]...)
		args = args[i:]
	}
}

// expectArgs returns a usage error unless args has between min and max
// values. A negative max means no upper bound.
func expectArgs(f *flag.FlagSet, args []string, min, max int, names string) error {
	if len(args) < min || (max >= 0 && len(args) > max) {
		return usageError("%s", strings.TrimSpace("Usage:\t"+f.Name()+" "+names))
	}
	return nil
}

func boolVar(f *flag.FlagSet, dst *bool, name string, alias ...string) {
	f.BoolVar(dst, name, *dst, "")
	for _, name := range alias {
		f.BoolVar(dst, name, *dst, "")
	}
}

func intVar(f *flag.FlagSet, dst *int, name string, alias ...string) {
	f.IntVar(dst, name, *dst, "")
	for _, name := range alias {
		f.IntVar(dst, name, *dst, "")
	}
}

func customVar(f *flag.FlagSet, dst flag.Value, name string, alias ...string) {
	f.Var(dst, name, "")
	for _, name := range alias {
		f.Var(dst, name, "")
	}
}
