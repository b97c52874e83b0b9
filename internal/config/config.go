// Package config loads runtime settings from YAML. Parsing is strict:
// unknown keys are rejected so a typo like "treshold" fails loudly
// instead of silently keeping the default.
//
// Config carries plain numbers and strings only. Mapping onto domain
// types (guard windows, store options) happens at the assembly point in
// the cli package, which keeps this package free of domain imports.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root of the YAML settings file. Zero values never reach
// the domain: Parse starts from Default and the file overrides.
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Guard   GuardConfig   `yaml:"guard"`
	Persist PersistConfig `yaml:"persist"`
	Logging LoggingConfig `yaml:"logging"`
}

// StoreConfig sizes the in-memory store.
type StoreConfig struct {
	// HistoryLimit caps the undo and redo stacks.
	HistoryLimit int `yaml:"history_limit"`

	// GridSize is the spatial bucket edge length in canvas units.
	GridSize float64 `yaml:"grid_size"`
}

// GuardConfig tunes loop and rate protection.
type GuardConfig struct {
	// WindowMS is the sliding rate window in milliseconds.
	WindowMS int `yaml:"window_ms"`

	// Threshold is the number of mutations allowed per window.
	Threshold int `yaml:"threshold"`

	// CooldownMS is how long mutations stay blocked after a trip.
	CooldownMS int `yaml:"cooldown_ms"`

	// LoopFactor scales the cooldown when a feedback loop is detected.
	LoopFactor float64 `yaml:"loop_factor"`
}

// PersistConfig locates the document database and paces autosave.
type PersistConfig struct {
	// Path is the SQLite database file.
	Path string `yaml:"path"`

	// AutosaveMS is the debounce interval for autosave in milliseconds.
	AutosaveMS int `yaml:"autosave_ms"`
}

// LoggingConfig selects log verbosity and output encoding.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is one of text, json.
	Format string `yaml:"format"`
}

// Default returns the settings used when no file or key is present.
// The numbers mirror the domain defaults.
func Default() Config {
	return Config{
		Store: StoreConfig{
			HistoryLimit: 50,
			GridSize:     100,
		},
		Guard: GuardConfig{
			WindowMS:   100,
			Threshold:  10,
			CooldownMS: 250,
			LoopFactor: 2,
		},
		Persist: PersistConfig{
			Path:       "easel.db",
			AutosaveMS: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Parse decodes YAML over the defaults. Keys absent from the data keep
// their default; unknown keys are an error.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	// An empty file decodes to io.EOF, which just means no overrides.
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Load reads and parses a config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// WriteDefault writes the default settings to path, for first runs.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate checks that every setting is usable. Returns the first
// problem found.
func (c Config) Validate() error {
	if c.Store.HistoryLimit <= 0 {
		return fmt.Errorf("store: history_limit must be positive, got %d", c.Store.HistoryLimit)
	}
	if c.Store.GridSize <= 0 {
		return fmt.Errorf("store: grid_size must be positive, got %v", c.Store.GridSize)
	}
	if c.Guard.WindowMS <= 0 {
		return fmt.Errorf("guard: window_ms must be positive, got %d", c.Guard.WindowMS)
	}
	if c.Guard.Threshold <= 0 {
		return fmt.Errorf("guard: threshold must be positive, got %d", c.Guard.Threshold)
	}
	if c.Guard.CooldownMS <= 0 {
		return fmt.Errorf("guard: cooldown_ms must be positive, got %d", c.Guard.CooldownMS)
	}
	if c.Guard.LoopFactor < 1 {
		return fmt.Errorf("guard: loop_factor must be at least 1, got %v", c.Guard.LoopFactor)
	}
	if c.Persist.Path == "" {
		return fmt.Errorf("persist: path is required")
	}
	if c.Persist.AutosaveMS <= 0 {
		return fmt.Errorf("persist: autosave_ms must be positive, got %d", c.Persist.AutosaveMS)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging: unknown level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging: unknown format %q", c.Logging.Format)
	}

	return nil
}
