package main

import (
	"context"

	"github.com/stealthrocket/capfs/internal/print/human"
	"github.com/stealthrocket/capfs/pkg/capfs"
	"go.uber.org/zap"
)

const mkdirUsage = `
Usage:	capfs mkdir [options] <dir> <path>...

   Create directories in a directory.

   Paths which already exist as directories are left unchanged.

Options:
   -c, --config path  Path to the capfs configuration file (overrides CAPFSCONFIG)
   -h, --help         Show this usage information
   -m, --mode mode    Permissions of the directories, in octal (default 0777)
   -p, --parents      Create parent directories as needed
`

func mkdir(ctx context.Context, args []string) error {
	var (
		mode    = human.Mode(0777)
		parents bool
	)

	flagSet := newFlagSet("capfs mkdir", mkdirUsage)
	customVar(flagSet, &mode, "m", "mode")
	boolVar(flagSet, &parents, "p", "parents")

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
		if parents {
			err = d.MkdirAll(path, mode.FileMode())
		} else {
			var created bool
			created, err = d.EnsureDir(path, mode.FileMode())
			log.Debug("directory ensured", zap.String("path", path), zap.Bool("created", created))
		}
		if err != nil {
			return err
		}
	}
	return nil
}
