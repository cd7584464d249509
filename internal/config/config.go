// Package config handles loading and parsing application configuration.
// It supports two sources for the file path (in priority order):
//  1. An environment variable:  CONFIG_PATH=/path/to/config.yaml
//  2. A command-line flag:      --config=/path/to/config.yaml
//
// Unlike a server, the tool is useful without any config file at all: when
// neither source names one, every field falls back to its env-default and
// can still be overridden by its environment variable.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root configuration structure.
// Every field maps to a key in the YAML file AND can be overridden
// by the corresponding environment variable (env:"...").
type Config struct {
	// Env controls log format and verbosity.
	// Valid values: "dev", "staging", "prod"
	Env string `yaml:"env" env:"ENV" env-default:"dev"`

	// RosterPath is the flat text file holding one student per line.
	RosterPath string `yaml:"roster_path" env:"ROSTER_PATH" env-default:"Student.txt"`

	// LogStorePath is the SQLite file holding the activity log.
	LogStorePath string `yaml:"log_store_path" env:"LOG_STORE_PATH" env-default:"SMSLogs.db"`

	// SummaryPath is where the summary report is written.
	SummaryPath string `yaml:"summary_path" env:"SUMMARY_PATH" env-default:"summary.txt"`
}

// Load reads the config file at path, or only the environment when path
// is empty.
func Load(path string) (*Config, error) {
	var cfg Config

	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("cannot read config from environment: %w", err)
		}
		return &cfg, nil
	}

	// Verify the file exists before trying to read it, so the user gets a
	// clear message rather than a cryptic "open: no such file" later.
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	// cleanenv.ReadConfig reads the YAML file and populates the struct.
	// It also reads any env:"..." tagged fields from the environment and
	// applies env-default values for keys the file leaves out.
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	return &cfg, nil
}

// Path picks the config file: CONFIG_PATH wins over flagPath, the value
// of the --config flag. Both may be empty.
func Path(flagPath string) string {
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return flagPath
}
