package confloader

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/maps"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix prefixes every environment key the loader reads.
const DefaultEnvPrefix = "TUAMAIL_"

// nestSeparator splits nesting levels in environment keys.
const nestSeparator = "__"

var errNoBytes = errors.New("confloader: in-memory source has no raw bytes")

// Loader merges configuration sources into a koanf instance and decodes
// the result into a struct.
type Loader struct {
	k          *koanf.Koanf
	envPrefix  string
	filePath   string
	dotEnvPath string
}

type Option func(*Loader)

// WithConfigFile names a YAML file; a missing file fails Load.
func WithConfigFile(path string) Option {
	return func(l *Loader) { l.filePath = path }
}

// WithDotEnvFile names a .env file; a missing file is skipped.
func WithDotEnvFile(path string) Option {
	return func(l *Loader) { l.dotEnvPath = path }
}

func NewLoader(opts ...Option) *Loader {
	l := &Loader{k: koanf.New("."), envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load applies file, .env and environment in that order, then decodes into
// target. Keys no source mentions keep the value already in target.
func (l *Loader) Load(target any) error {
	steps := []struct {
		name string
		run  func() error
	}{
		{"config file", func() error { return l.LoadFile(l.filePath) }},
		{"dotenv", func() error { return l.LoadDotEnv(l.dotEnvPath) }},
		{"env", l.LoadEnv},
		{"unmarshal", func() error { return l.Unmarshal(target) }},
	}
	for _, s := range steps {
		if err := s.run(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

// LoadFile merges a YAML file. An empty path is a no-op.
func (l *Loader) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// LoadDotEnv merges the prefixed keys of a .env file. An empty path or a
// missing file is a no-op.
func (l *Loader) LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	vars, err := godotenv.Read(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return fmt.Errorf("read %s: %w", path, err)
	}

	flat := make(map[string]any, len(vars))
	for k, v := range vars {
		if strings.HasPrefix(k, l.envPrefix) {
			flat[l.envKey(k)] = v
		}
	}
	return l.LoadMap(maps.Unflatten(flat, "."))
}

// LoadEnv merges the prefixed process environment, for example
// TUAMAIL_SERVER__HTTP__ADDR=0.0.0.0:5090 sets server.http.addr.
func (l *Loader) LoadEnv() error {
	return l.k.Load(env.Provider(l.envPrefix, ".", l.envKey), nil)
}

// envKey maps TUAMAIL_STORAGE__DATA_DIR to storage.data_dir.
func (l *Loader) envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, l.envPrefix))
	return strings.ReplaceAll(s, nestSeparator, ".")
}

// LoadMap merges an already nested map.
func (l *Loader) LoadMap(data map[string]any) error {
	return l.k.Load(nested(data), nil)
}

// Unmarshal decodes everything loaded so far using koanf struct tags.
func (l *Loader) Unmarshal(target any) error {
	return l.k.Unmarshal("", target)
}

// nested is a koanf.Provider over an in-memory map. koanf calls Read when
// Load is given no parser.
type nested map[string]any

func (n nested) ReadBytes() ([]byte, error)    { return nil, errNoBytes }
func (n nested) Read() (map[string]any, error) { return n, nil }
