package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned for config files with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported config format")

type decodeFunc func([]byte, *Config) error

var decoders = map[string]decodeFunc{
	".yaml": decodeYAML,
	".yml":  decodeYAML,
	".json": func(b []byte, c *Config) error { return json.Unmarshal(b, c) },
	".toml": func(b []byte, c *Config) error { return toml.Unmarshal(b, c) },
}

func decodeYAML(b []byte, c *Config) error {
	// An empty document is valid and leaves the defaults alone.
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	return yaml.Unmarshal(b, c)
}

// Load reads the file at path over Defaults(). The format is chosen by
// extension: .yaml/.yml, .json or .toml. Keys absent from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, errors.New("config: empty path")
	}
	ext := strings.ToLower(filepath.Ext(path))
	decode, ok := decoders[ext]
	if !ok {
		return cfg, fmt.Errorf("config %s: %w %q", path, ErrUnsupportedFormat, ext)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := decode(b, &cfg); err != nil {
		return Defaults(), fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOptional is Load, except that a blank path yields Defaults().
func LoadOptional(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		return Defaults(), nil
	}
	return Load(path)
}
