package main

import (
	"context"
	"fmt"

	"github.com/stealthrocket/capfs/internal/print/jsonprint"
	"github.com/stealthrocket/capfs/internal/print/textprint"
	"github.com/stealthrocket/capfs/internal/print/yamlprint"
	"github.com/stealthrocket/capfs/internal/stream"
	"github.com/stealthrocket/capfs/pkg/capfs"
)

const xattrUsage = `
Usage:	capfs xattr <command> [options] <dir> <path> ...

   Manage the extended attributes of files found in a directory.

   Symbolic links are not followed, the attributes of the links themselves
   are read or written.

Commands:
   get <dir> <path> <name>          Print the value of an attribute
   list <dir> <path>                List the names of the attributes of a file
   set <dir> <path> <name> <value>  Set the value of an attribute

Options:
   -c, --config path    Path to the capfs configuration file (overrides CAPFSCONFIG)
   -h, --help           Show this usage information
   -o, --output format  Output format of the list command, one of: text, json, yaml
`

type xattrName struct {
	Name string `json:"name" yaml:"name" text:"NAME"`
}

func xattr(ctx context.Context, args []string) error {
	output := outputFormat("text")

	flagSet := newFlagSet("capfs xattr", xattrUsage)
	customVar(flagSet, &output, "o", "output")

	args, err := parseFlags(flagSet, args)
	if err != nil {
		return err
	}
	if err := expectArgs(flagSet, args, 1, -1, "<command> [options] <dir> <path> ..."); err != nil {
		return err
	}

	switch cmd, args := args[0], args[1:]; cmd {
	case "get":
		if err := expectArgs(flagSet, args, 3, 3, "get <dir> <path> <name>"); err != nil {
			return err
		}
		return xattrGet(args[0], args[1], args[2])
	case "list":
		if err := expectArgs(flagSet, args, 2, 2, "list [options] <dir> <path>"); err != nil {
			return err
		}
		return xattrList(args[0], args[1], output)
	case "set":
		if err := expectArgs(flagSet, args, 4, 4, "set <dir> <path> <name> <value>"); err != nil {
			return err
		}
		return xattrSet(args[0], args[1], args[2], args[3])
	default:
		return usageError("capfs xattr %s: unknown command", cmd)
	}
}

func openXattrDir(path string) (*capfs.Dir, error) {
	if _, err := loadConfig(); err != nil {
		return nil, err
	}
	return capfs.OpenAmbientDir(path)
}

func xattrGet(dir, path, name string) error {
	d, err := openXattrDir(dir)
	if err != nil {
		return err
	}
	defer d.Close()

	value, ok, err := d.Getxattr(path, name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s/%s: attribute not found: %s", d.Name(), path, name)
	}
	_, err = fmt.Fprintf(stdout, "%s\n", value)
	return err
}

func xattrSet(dir, path, name, value string) error {
	d, err := openXattrDir(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Setxattr(path, name, []byte(value))
}

func xattrList(dir, path string, output outputFormat) error {
	d, err := openXattrDir(dir)
	if err != nil {
		return err
	}
	defer d.Close()

	list, err := d.Listxattr(path)
	if err != nil {
		return err
	}

	var writer stream.WriteCloser[xattrName]
	switch output {
	case "json":
		writer = jsonprint.NewWriter[xattrName](stdout)
	case "yaml":
		writer = yamlprint.NewWriter[xattrName](stdout)
	default:
		writer = textprint.NewTableWriter[xattrName](stdout,
			textprint.OrderBy(func(a, b xattrName) bool {
				return a.Name < b.Name
			}),
		)
	}

	names := make([]xattrName, 0, list.Len())
	list.Range(func(name []byte) bool {
		names = append(names, xattrName{Name: string(name)})
		return true
	})

	if _, err := stream.Copy[xattrName](writer, stream.NewReader(names...)); err != nil {
		writer.Close()
		return err
	}
	return writer.Close()
}
