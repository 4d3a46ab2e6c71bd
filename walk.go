package main

import (
	"context"
	"io/fs"

	"github.com/stealthrocket/capfs/internal/print/human"
	"github.com/stealthrocket/capfs/internal/print/jsonprint"
	"github.com/stealthrocket/capfs/internal/print/textprint"
	"github.com/stealthrocket/capfs/internal/print/yamlprint"
	"github.com/stealthrocket/capfs/internal/stream"
	"github.com/stealthrocket/capfs/pkg/capfs"
	"golang.org/x/exp/slices"
)

const walkUsage = `
Usage:	capfs walk [options] <dir>

   List the entries of a directory tree.

   Symbolic links are listed with their target but never followed.

Options:
   -c, --config path          Path to the capfs configuration file (overrides CAPFSCONFIG)
   -h, --help                 Show this usage information
   -n, --limit count          Stop after listing this number of entries
   -o, --output format        Output format, one of: text, json, yaml
   -x, --one-file-system      Do not descend into other file systems (default from walk.noxdev)
       --prefix path          Prefix prepended to the paths listed
   -s, --sort                 List entries sorted by name (default from walk.sort)
       --skip name            Do not descend into directories with this name (may be repeated)
`

type walkEntry struct {
	Path   string      `json:"path"             yaml:"path"             text:"PATH"`
	Type   string      `json:"type"             yaml:"type"             text:"TYPE"`
	Mode   human.Mode  `json:"mode"             yaml:"mode"             text:"MODE"`
	Size   human.Bytes `json:"size"             yaml:"size"             text:"SIZE"`
	Target string      `json:"target,omitempty" yaml:"target,omitempty" text:"TARGET,omitempty"`
}

func walk(ctx context.Context, args []string) error {
	var (
		sorted optionalBool
		noXDev optionalBool
		prefix string
		skip   stringList
		limit  int
		output = outputFormat("text")
	)

	flagSet := newFlagSet("capfs walk", walkUsage)
	customVar(flagSet, &sorted, "s", "sort")
	customVar(flagSet, &noXDev, "x", "one-file-system")
	flagSet.StringVar(&prefix, "prefix", "", "")
	customVar(flagSet, &skip, "skip")
	intVar(flagSet, &limit, "n", "limit")
	customVar(flagSet, &output, "o", "output")

	args, err := parseFlags(flagSet, args)
	if err != nil {
		return err
	}
	if err := expectArgs(flagSet, args, 1, 1, "[options] <dir>"); err != nil {
		return err
	}

	config, err := loadConfig()
	if err != nil {
		return err
	}

	d, err := capfs.OpenAmbientDir(args[0])
	if err != nil {
		return err
	}
	defer d.Close()

	walkConfig := capfs.WalkConfig{
		NoXDev:     noXDev.get(config.Walk.NoXDev),
		PathPrefix: prefix,
	}
	if sorted.get(config.Walk.Sort) {
		walkConfig.Sort = capfs.SortByName
	}

	var writer stream.WriteCloser[walkEntry]
	switch output {
	case "json":
		writer = jsonprint.NewWriter[walkEntry](stdout)
	case "yaml":
		writer = yamlprint.NewWriter[walkEntry](stdout)
	default:
		writer = textprint.NewTableWriter[walkEntry](stdout)
	}

	entries := stream.ConvertWriter[walkEntry](writer, walkEntryOf)
	visit := []*capfs.WalkEntry{nil}
	count := 0

	err = d.Walk(walkConfig, func(entry *capfs.WalkEntry) (capfs.WalkResult, error) {
		visit[0] = entry
		if _, err := entries.Write(visit); err != nil {
			return capfs.WalkAbort, err
		}
		if count++; limit > 0 && count >= limit {
			return capfs.WalkAbort, nil
		}
		if entry.Type == fs.ModeDir && slices.Contains(skip, entry.Name) {
			return capfs.WalkSkipSubtree, nil
		}
		return capfs.WalkContinue, nil
	})
	if closeErr := writer.Close(); err == nil {
		err = closeErr
	}
	return err
}

func walkEntryOf(entry *capfs.WalkEntry) (walkEntry, error) {
	e := walkEntry{Path: entry.Path, Type: entryType(entry.Type)}

	info, err := entry.Entry.Info()
	if err != nil {
		return e, err
	}
	e.Mode = human.ModeOf(info.Mode())
	if info.Mode().IsRegular() {
		e.Size = human.Bytes(info.Size())
	}

	if entry.Type == fs.ModeSymlink {
		if e.Target, err = entry.Dir.Readlink(entry.Name); err != nil {
			return e, err
		}
	}
	return e, nil
}

func entryType(typ fs.FileMode) string {
	switch typ {
	case 0:
		return "file"
	case fs.ModeDir:
		return "dir"
	case fs.ModeSymlink:
		return "symlink"
	default:
		return "other"
	}
}
