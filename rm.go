package main

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/stealthrocket/capfs/pkg/capfs"
	"go.uber.org/zap"
)

const rmUsage = `
Usage:	capfs rm [options] <dir> <path>...

   Remove files and directory trees found in a directory.

   Symbolic links are removed, the files they point to are left untouched.

Options:
   -c, --config path  Path to the capfs configuration file (overrides CAPFSCONFIG)
   -f, --force        Ignore paths which do not exist
   -h, --help         Show this usage information
`

func rm(ctx context.Context, args []string) error {
	var force bool

	flagSet := newFlagSet("capfs rm", rmUsage)
	boolVar(flagSet, &force, "f", "force")

	args, err := parseFlags(flagSet, args)
	if err != nil {
		return err
	}
	if err := expectArgs(flagSet, args, 2, -1, "[options] <dir> <path>..."); err != nil {
		return err
	}

	if _, err := loadConfig(); err != nil {
		return err
	}

	d, err := capfs.OpenAmbientDir(args[0])
	if err != nil {
		return err
	}
	defer d.Close()

	for _, path := range args[1:] {
		removed, err := d.RemoveAllOptional(path)
		if err != nil {
			return err
		}
		if !removed && !force {
			return &fs.PathError{Op: "remove", Path: fmt.Sprintf("%s/%s", d.Name(), path), Err: capfs.ENOENT}
		}
		log.Debug("path removed", zap.String("path", path), zap.Bool("removed", removed))
	}
	return nil
}
