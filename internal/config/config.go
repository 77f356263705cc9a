// Package config loads the daemon's layered INI configuration and
// exposes the non-mutating accessors the rest of the daemon consumes at
// startup. Configuration is never re-read at runtime; file edits only
// raise a machine.config_changed trigger.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"
)

// Default configuration layers, later files overriding earlier ones.
const (
	DefaultConfPath = "/etc/armazd/default.conf"
	MachineConfPath = "/etc/armazd/machine.conf"
	CustomConfPath  = "/etc/armazd/custom.conf"
)

// Config is the merged view over the configuration layers.
type Config struct {
	file  *ini.File
	paths []string
}

// Load merges the given layers. The first path is the shipped defaults
// and must exist; every other layer is optional. A .env/.env.local pair
// in the working directory is loaded first without overriding existing
// environment variables.
func Load(paths ...string) (*Config, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("config: no layers given")
	}
	// Missing dotenv files are not an error.
	_ = godotenv.Load(".env.local", ".env")

	if _, err := os.Stat(paths[0]); err != nil {
		return nil, fmt.Errorf("config: required defaults %s: %w", paths[0], err)
	}

	others := make([]interface{}, 0, len(paths)-1)
	for _, p := range paths[1:] {
		others = append(others, p)
	}
	f, err := ini.LooseLoad(paths[0], others...)
	if err != nil {
		return nil, fmt.Errorf("config: load layers: %w", err)
	}
	return &Config{file: f, paths: paths}, nil
}

// Paths returns the configured layer paths, for the change watcher.
func (c *Config) Paths() []string {
	out := make([]string, len(c.paths))
	copy(out, c.paths)
	return out
}

// HasSection reports whether a section exists in any layer.
func (c *Config) HasSection(section string) bool {
	_, err := c.file.GetSection(section)
	return err == nil
}

// HasOption reports whether a key exists in the given section.
func (c *Config) HasOption(section, key string) bool {
	sec, err := c.file.GetSection(section)
	if err != nil {
		return false
	}
	return sec.HasKey(key)
}

// Get returns the merged value, or fallback when absent.
func (c *Config) Get(section, key, fallback string) string {
	if !c.HasOption(section, key) {
		return fallback
	}
	return c.file.Section(section).Key(key).String()
}

// GetBool returns the merged boolean value, or fallback when absent or
// unparseable.
func (c *Config) GetBool(section, key string, fallback bool) bool {
	if !c.HasOption(section, key) {
		return fallback
	}
	v, err := c.file.Section(section).Key(key).Bool()
	if err != nil {
		return fallback
	}
	return v
}

// GetInt returns the merged integer value, or fallback when absent or
// unparseable.
func (c *Config) GetInt(section, key string, fallback int) int {
	if !c.HasOption(section, key) {
		return fallback
	}
	v, err := c.file.Section(section).Key(key).Int()
	if err != nil {
		return fallback
	}
	return v
}

// GetFloat returns the merged float value, or fallback when absent or
// unparseable.
func (c *Config) GetFloat(section, key string, fallback float64) float64 {
	if !c.HasOption(section, key) {
		return fallback
	}
	v, err := c.file.Section(section).Key(key).Float64()
	if err != nil {
		return fallback
	}
	return v
}

// LoadVariant overlays variants/<variant>.conf below baseDir when
// [machine] variant is set. Missing overlay files are reported, since a
// named variant that cannot be found is a provisioning bug.
func (c *Config) LoadVariant(baseDir string) error {
	variant := c.Get("machine", "variant", "")
	if variant == "" {
		return nil
	}
	return c.overlay(filepath.Join(baseDir, "variants", variant+".conf"))
}

// LoadProfile overlays profiles/<profile>.conf below baseDir when
// [machine] profile is set.
func (c *Config) LoadProfile(baseDir string) error {
	profile := c.Get("machine", "profile", "")
	if profile == "" {
		return nil
	}
	return c.overlay(filepath.Join(baseDir, "profiles", profile+".conf"))
}

func (c *Config) overlay(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("config: overlay %s: %w", path, err)
	}
	if err := c.file.Append(path); err != nil {
		return fmt.Errorf("config: append overlay %s: %w", path, err)
	}
	c.paths = append(c.paths, path)
	return nil
}
