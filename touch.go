package main

import (
	"context"

	"github.com/stealthrocket/capfs/pkg/capfs"
)

const touchUsage = `
Usage:	capfs touch [options] <dir> <path>...

   Set the access and modification times of files to the current time,
   creating empty files for paths which do not exist.

   Symbolic links are not followed, their own timestamps are updated.

Options:
   -c, --config path  Path to the capfs configuration file (overrides CAPFSCONFIG)
   -h, --help         Show this usage information
       --no-create    Do not create missing files
`

func touch(ctx context.Context, args []string) error {
	var noCreate bool

	flagSet := newFlagSet("capfs touch", touchUsage)
	boolVar(flagSet, &noCreate, "no-create")

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
		info, err := d.LstatOptional(path)
		if err != nil {
			return err
		}
		if info == nil {
			if noCreate {
				continue
			}
			f, err := d.OpenFile(path, capfs.O_WRONLY|capfs.O_CREAT, 0666)
			if err != nil {
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			continue
		}
		if err := d.UpdateTimestamps(path); err != nil {
			return err
		}
	}
	return nil
}
