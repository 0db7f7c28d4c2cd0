// Package config loads and validates soto's runtime configuration: the
// device, sampling, and display options consumed by cmd/soto.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config mirrors the CLI surface described in spec §6. Flags parsed by
// cmd/soto override whatever was loaded from a config file, the same way
// Crepes' *port flag overrode cfg.Port.
type Config struct {
	Device        string `json:"device"`       // --dev|-d
	RateHz        int    `json:"rateHz"`        // --rate|-r
	MinPriority   int    `json:"minPriority"`   // --minprio|-m
	ShowSpectrum  bool   `json:"showSpectrum"`  // --show-spectrum|-U
	ShowSignal    bool   `json:"showSignal"`    // --show-signal|-u
	BufferScale   int    `json:"bufferScale"`   // --buffer-scale|-s (sampler slot count)
	RunForSeconds int    `json:"runForSeconds"` // --run-for|-t (0 = until signalled)
	LogDir        string `json:"logDir"`
}

// GetDefaultConfig returns the configuration used when no file is loaded,
// matching options.c's compiled-in defaults.
func GetDefaultConfig() *Config {
	return &Config{
		Device:        "default",
		RateHz:        44100,
		MinPriority:   0,
		ShowSpectrum:  true,
		ShowSignal:    true,
		BufferScale:   8,
		RunForSeconds: 0,
		LogDir:        "./logs",
	}
}

// LoadConfig reads a JSON configuration file, falling back to the caller
// on error so they may decide whether to use GetDefaultConfig instead.
func LoadConfig(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := GetDefaultConfig()
	if err := json.Unmarshal(file, cfg); err != nil {
		return nil, err
	}

	cfg.LogDir = sanitizePath(cfg.LogDir)
	return cfg, nil
}

// SaveConfig writes cfg back to path as indented JSON.
func SaveConfig(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects configurations options.c would have refused: a
// non-positive rate or buffer scale.
func (c *Config) Validate() error {
	if c.RateHz <= 0 {
		return fmt.Errorf("config: rate must be positive, got %d", c.RateHz)
	}
	if c.BufferScale <= 0 {
		return fmt.Errorf("config: buffer-scale must be positive, got %d", c.BufferScale)
	}
	if c.RunForSeconds < 0 {
		return fmt.Errorf("config: run-for must be non-negative, got %d", c.RunForSeconds)
	}
	return nil
}

func sanitizePath(path string) string {
	if path == "" {
		return "."
	}
	return filepath.Clean(path)
}
