package main

import (
	"context"
	"flag"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/stealthrocket/capfs/internal/print/human"
	"github.com/stealthrocket/capfs/pkg/capfs"
	"go.uber.org/zap"
)

const writeUsage = `
Usage:	capfs write [options] <dir> <path>

   Replace the content of a file with the data read from the standard input.

   Readers of the file observe either its previous content or the new one,
   never a partially written file. A file replaced keeps its permissions,
   unless a mode is given.

Options:
   -c, --config path  Path to the capfs configuration file (overrides CAPFSCONFIG)
       --exclusive    Fail if the file already exists
   -h, --help         Show this usage information
   -m, --mode mode    Permissions of the file, in octal (default from write.mode)
       --zstd         Compress the data with zstd
`

func write(ctx context.Context, args []string) error {
	var (
		mode      human.Mode
		exclusive bool
		compress  bool
	)

	flagSet := newFlagSet("capfs write", writeUsage)
	customVar(flagSet, &mode, "m", "mode")
	boolVar(flagSet, &exclusive, "exclusive")
	boolVar(flagSet, &compress, "zstd")

	args, err := parseFlags(flagSet, args)
	if err != nil {
		return err
	}
	if err := expectArgs(flagSet, args, 2, 2, "[options] <dir> <path>"); err != nil {
		return err
	}

	config, err := loadConfig()
	if err != nil {
		return err
	}

	perm, hasPerm := config.Write.Mode.Value()
	flagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "m", "mode":
			perm, hasPerm = mode, true
		}
	})

	d, err := capfs.OpenAmbientDir(args[0])
	if err != nil {
		return err
	}
	defer d.Close()

	name := args[1]
	copyContent := func(w io.Writer) (int64, error) {
		if !compress {
			return io.Copy(w, stdin)
		}
		z, err := zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
		if err != nil {
			return 0, err
		}
		n, err := io.Copy(z, stdin)
		if err != nil {
			z.Close()
			return n, err
		}
		return n, z.Close()
	}

	var size int64
	switch {
	case exclusive:
		size, err = writeExclusive(d, name, perm, hasPerm, copyContent)
	case hasPerm:
		size, err = capfs.AtomicReplaceWithPerms(d, name, perm.FileMode(), func(w *capfs.AtomicWriter) (int64, error) {
			return copyContent(w)
		})
	default:
		size, err = capfs.AtomicReplaceWith(d, name, func(w *capfs.AtomicWriter) (int64, error) {
			return copyContent(w)
		})
	}
	if err != nil {
		return err
	}

	log.Debug("file written",
		zap.String("path", name),
		zap.Stringer("size", human.Bytes(size)),
		zap.Bool("exclusive", exclusive),
	)
	return nil
}

// writeExclusive writes a new file, failing if a file already exists at name.
// The file is created with permissions 0600 unless a mode is given.
func writeExclusive(d *capfs.Dir, name string, perm human.Mode, hasPerm bool, copyContent func(io.Writer) (int64, error)) (int64, error) {
	t, err := capfs.NewLinkableTempfile(d, name)
	if err != nil {
		return 0, err
	}
	defer t.Close()

	if hasPerm {
		if err := t.File().Chmod(perm.FileMode()); err != nil {
			return 0, err
		}
	}

	size, err := copyContent(t)
	if err != nil {
		return size, err
	}
	if err := t.Sync(); err != nil {
		return size, err
	}
	if err := t.Emplace(); err != nil {
		return size, err
	}
	return size, t.Dir().Sync()
}
