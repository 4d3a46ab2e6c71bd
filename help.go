package main

import (
	"context"
	"fmt"
)

const helpUsage = `
Usage:	capfs <command> [options]

File Commands:
   cat      Print the content of files
   write    Atomically replace the content of a file
   rm       Remove files and directory trees
   mkdir    Create directories
   touch    Update file timestamps, creating missing files

Directory Commands:
   walk     List the entries of a directory tree
   xattr    Get, set and list extended attributes

Other Commands:
   config   Show the capfs configuration
   help     Show usage information about capfs commands
   version  Show the capfs version information

Global Options:
   -c, --config path  Path to the capfs configuration file (overrides CAPFSCONFIG)
   -h, --help         Show usage information

For a description of each command, run 'capfs help <command>'.`

func help(ctx context.Context, args []string) error {
	flagSet := newFlagSet("capfs help", helpUsage)
	args, err := parseFlags(flagSet, args)
	if err != nil {
		return err
	}

	var cmd string
	var msg string

	if len(args) > 0 {
		cmd = args[0]
	}

	switch cmd {
	case "cat":
		msg = catUsage
	case "config":
		msg = configUsage
	case "help", "":
		msg = helpUsage
	case "mkdir":
		msg = mkdirUsage
	case "rm":
		msg = rmUsage
	case "touch":
		msg = touchUsage
	case "version":
		msg = versionUsage
	case "walk":
		msg = walkUsage
	case "write":
		msg = writeUsage
	case "xattr":
		msg = xattrUsage
	default:
		return usageError("capfs help %s: unknown command", cmd)
	}

	fmt.Fprintf(stdout, "%s\n", trimUsage(msg))
	return nil
}
