// Package config loads and validates the import configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/citepipe/pkg/citepipe/internalerr"
	"github.com/cognicore/citepipe/pkg/citepipe/model"
)

// Config is the import configuration
type Config struct {
	// XMLDir is the root directory scanned for article XML files.
	XMLDir string `yaml:"xml_dir"`

	// TxtDir receives a plain-text rendering of each article body,
	// mirroring the layout of XMLDir. Empty disables the rendering.
	TxtDir string `yaml:"txt_dir"`

	// DB is the path of the SQLite database file.
	DB string `yaml:"db"`

	// IndexDB is the path of the full-text index database. Empty
	// disables indexing.
	IndexDB string `yaml:"index_db"`

	// Workers is the number of files parsed concurrently.
	Workers int `yaml:"workers"`

	// CommitEvery flushes the full-text index after this many files.
	CommitEvery int `yaml:"commit_every"`

	// AcceptedTypes overrides the default article-type allow-list.
	AcceptedTypes []string `yaml:"accepted_types"`
}

// Default returns the configuration defaults applied before loading.
func Default() Config {
	return Config{
		Workers:     4,
		CommitEvery: 500,
	}
}

// Load reads and validates a YAML configuration file
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration and fills remaining defaults
func (c *Config) Validate() error {
	if c.XMLDir == "" {
		return fmt.Errorf("%w: xml_dir is required", internalerr.ErrInvalidConfig)
	}
	if c.DB == "" {
		return fmt.Errorf("%w: db is required", internalerr.ErrInvalidConfig)
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.CommitEvery <= 0 {
		c.CommitEvery = 500
	}
	return nil
}

// Accepted returns the configured article-type allow-list, falling back
// to the built-in default when none is configured.
func (c *Config) Accepted() model.TypeSet {
	if len(c.AcceptedTypes) == 0 {
		return model.AcceptedTypes()
	}
	return model.NewTypeSet(c.AcceptedTypes...)
}
