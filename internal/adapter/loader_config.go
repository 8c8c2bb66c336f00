package adapter

import (
	"errors"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"
)

// LoaderConfigFile is the optional per-directory loader configuration.
const LoaderConfigFile = "modloader.yaml"

// LoaderConfig holds overrides read from a plugin directory.
type LoaderConfig struct {
	Ignore []string `yaml:"ignore"`
	Entry  string   `yaml:"entry"`
	Type   string   `yaml:"type"`
}

// ReadLoaderConfig parses modloader.yaml in dir through files. A missing file
// yields an empty config.
func ReadLoaderConfig(files FSAdapter, dir string) (LoaderConfig, error) {
	var cfg LoaderConfig

	data, err := files.ReadFile(files.JoinPath(dir, LoaderConfigFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}

		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", LoaderConfigFile, err)
	}

	return cfg, nil
}
