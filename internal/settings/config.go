// Package settings loads the configuration of the capfs command.
package settings

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/stealthrocket/capfs/internal/print/human"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "~/.capfs/config.yaml"

// ConfigPath is the path to the capfs configuration. When empty, the path is
// taken from the CAPFSCONFIG environment variable, or defaults to
// ~/.capfs/config.yaml.
var ConfigPath human.Path

// Path returns the resolved path to the configuration file.
func Path() (string, error) {
	path := ConfigPath
	if path == "" {
		path = human.Path(os.Getenv("CAPFSCONFIG"))
	}
	if path == "" {
		path = defaultConfigPath
	}
	return path.Resolve()
}

// LoadConfig opens and reads the configuration file.
func LoadConfig() (*Config, error) {
	r, _, err := OpenConfig()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return ReadConfig(r)
}

// OpenConfig opens the configuration file. When the file does not exist, the
// returned reader produces the default configuration.
func OpenConfig() (io.ReadCloser, string, error) {
	path, err := Path()
	if err != nil {
		return nil, path, err
	}
	f, err := os.Open(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, path, err
		}
		b := new(bytes.Buffer)
		e := yaml.NewEncoder(b)
		e.SetIndent(2)
		if err := e.Encode(DefaultConfig()); err != nil {
			return nil, path, err
		}
		if err := e.Close(); err != nil {
			return nil, path, err
		}
		return io.NopCloser(b), path, nil
	}
	return f, path, nil
}

// ReadConfig reads and parses configuration. Unknown fields are errors.
func ReadConfig(r io.Reader) (*Config, error) {
	c := DefaultConfig()
	d := yaml.NewDecoder(r)
	d.KnownFields(true)
	if err := d.Decode(c); err != nil {
		if err == io.EOF {
			return c, nil
		}
		return nil, err
	}
	return c, nil
}

// DefaultConfig is the default configuration.
func DefaultConfig() *Config {
	c := new(Config)
	c.Log.Level = zapcore.WarnLevel
	c.Cat.Root = true
	return c
}

// Config is capfs configuration.
type Config struct {
	Log struct {
		Level zapcore.Level `json:"level" yaml:"level"`
	} `json:"log" yaml:"log"`
	Write struct {
		Mode Nullable[human.Mode] `json:"mode" yaml:"mode"`
	} `json:"write" yaml:"write"`
	Walk struct {
		Sort   bool `json:"sort" yaml:"sort"`
		NoXDev bool `json:"noxdev" yaml:"noxdev"`
	} `json:"walk" yaml:"walk"`
	Cat struct {
		Root bool `json:"root" yaml:"root"`
	} `json:"cat" yaml:"cat"`
}

// NewLogger constructs a logger writing human readable entries to w at the
// configured level.
func (c *Config) NewLogger(w io.Writer) *zap.Logger {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.TimeKey = ""
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(c.Log.Level),
	)
	return zap.New(core)
}
