package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/stealthrocket/capfs/internal/settings"
	"github.com/stealthrocket/capfs/pkg/capfs"
	"gopkg.in/yaml.v3"
)

const configUsage = `
Usage:	capfs config [options]

Options:
   -c, --config path    Path to the capfs configuration file (overrides CAPFSCONFIG)
       --edit           Open $EDITOR to edit the configuration
   -h, --help           Show usage information
   -o, --output format  Output format, one of: text, json, yaml
`

func config(ctx context.Context, args []string) error {
	var (
		edit   bool
		output = outputFormat("text")
	)

	flagSet := newFlagSet("capfs config", configUsage)
	boolVar(flagSet, &edit, "edit")
	customVar(flagSet, &output, "o", "output")

	args, err := parseFlags(flagSet, args)
	if err != nil {
		return err
	}
	if err := expectArgs(flagSet, args, 0, 0, "[options]"); err != nil {
		return err
	}

	if edit {
		if err := editConfig(); err != nil {
			return err
		}
	}

	config, err := loadConfig()
	if err != nil {
		return err
	}

	switch output {
	case "json":
		e := json.NewEncoder(stdout)
		e.SetEscapeHTML(false)
		e.SetIndent("", "  ")
		return e.Encode(config)
	case "yaml":
		e := yaml.NewEncoder(stdout)
		e.SetIndent(2)
		if err := e.Encode(config); err != nil {
			return err
		}
		return e.Close()
	default:
		r, _, err := settings.OpenConfig()
		if err != nil {
			return err
		}
		defer r.Close()
		_, err = io.Copy(stdout, r)
		return err
	}
}

// editConfig runs $EDITOR on a copy of the configuration file, and replaces
// the configuration with the result if it is valid.
func editConfig() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		return errors.New(`$EDITOR is not set`)
	}
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}

	r, path, err := settings.OpenConfig()
	if err != nil {
		return err
	}
	defer r.Close()

	dirPath, base := filepath.Split(path)
	if dirPath == "" {
		dirPath = "."
	}
	if err := os.MkdirAll(dirPath, 0777); err != nil {
		if !errors.Is(err, fs.ErrExist) {
			return err
		}
	}
	dir, err := capfs.OpenAmbientDir(dirPath)
	if err != nil {
		return err
	}
	defer dir.Close()

	tmp, err := createTempFile(dirPath, base, r)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	p, err := os.StartProcess(shell, []string{shell, "-c", editor + " " + tmp}, &os.ProcAttr{
		Files: []*os.File{
			0: os.Stdin,
			1: os.Stdout,
			2: os.Stderr,
		},
	})
	if err != nil {
		return err
	}
	state, err := p.Wait()
	if err != nil {
		return err
	}
	if !state.Success() {
		return fmt.Errorf("not applying configuration updates because the editor exited with %s", state)
	}

	b, err := dir.ReadFile(filepath.Base(tmp))
	if err != nil {
		return err
	}
	if _, err := settings.ReadConfig(bytes.NewReader(b)); err != nil {
		return fmt.Errorf("not applying configuration updates because the file has a syntax error: %w", err)
	}
	return dir.AtomicWrite(base, b)
}

func createTempFile(dir, file string, r io.Reader) (string, error) {
	w, err := os.CreateTemp(dir, "."+file+".*")
	if err != nil {
		return "", err
	}
	defer w.Close()
	_, err = io.Copy(w, r)
	return w.Name(), err
}
