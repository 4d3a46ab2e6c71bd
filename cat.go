package main

import (
	"context"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/stealthrocket/capfs/pkg/capfs"
)

const catUsage = `
Usage:	capfs cat [options] <dir> <path>...

   Print the content of files found in a directory.

   By default, paths are resolved as if <dir> was the root of the file
   system: absolute paths and symbolic links are interpreted relative to
   <dir>. With --root=false, paths leading outside of <dir> are refused
   instead.

Options:
   -c, --config path  Path to the capfs configuration file (overrides CAPFSCONFIG)
   -h, --help         Show this usage information
       --root         Resolve paths relative to <dir> as a root (default from cat.root)
       --zstd         Decompress the files with zstd
`

func cat(ctx context.Context, args []string) error {
	var (
		root       optionalBool
		decompress bool
	)

	flagSet := newFlagSet("capfs cat", catUsage)
	customVar(flagSet, &root, "root")
	boolVar(flagSet, &decompress, "zstd")

	args, err := parseFlags(flagSet, args)
	if err != nil {
		return err
	}
	if err := expectArgs(flagSet, args, 2, -1, "[options] <dir> <path>..."); err != nil {
		return err
	}

	config, err := loadConfig()
	if err != nil {
		return err
	}

	var open func(string) (*os.File, error)
	if root.get(config.Cat.Root) {
		r, err := capfs.OpenAmbientRoot(args[0])
		if err != nil {
			return err
		}
		defer r.Close()
		open = r.Open
	} else {
		d, err := capfs.OpenAmbientDir(args[0])
		if err != nil {
			return err
		}
		defer d.Close()
		open = d.Open
	}

	for _, path := range args[1:] {
		if err := catFile(open, path, decompress); err != nil {
			return err
		}
	}
	return nil
}

func catFile(open func(string) (*os.File, error), path string, decompress bool) error {
	f, err := open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := io.Reader(f)
	if decompress {
		z, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return err
		}
		defer z.Close()
		r = z
	}
	_, err = io.Copy(stdout, r)
	return err
}
