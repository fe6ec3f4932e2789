// Package config handles the wallpaper configuration table using Viper
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// DefaultSection is the section every output without an explicit entry
// inherits from.
const DefaultSection = "default"

// Entry is one wallpaper source: a file or directory path, and an
// optional rotation interval. A zero Duration means no rotation.
type Entry struct {
	Path     string        `mapstructure:"path"`
	Duration time.Duration `mapstructure:"duration"`
}

// Equal reports whether two entries resolve to the same source and schedule.
func (e Entry) Equal(other Entry) bool {
	return e.Path == other.Path && e.Duration == other.Duration
}

// Table is the parsed configuration: one Entry per section name, keyed
// by the normalized output name plus the "default" section. A Table is
// immutable once published; reload replaces the whole table.
type Table map[string]Entry

// Normalize maps an output name to its table key. Viper lowercases TOML
// section names, so lookups are case-insensitive.
func Normalize(name string) string {
	return strings.ToLower(name)
}

// Resolve returns the effective entry for an output: the explicit
// section if present, otherwise the default section.
func (t Table) Resolve(name string) (Entry, bool) {
	if e, ok := t[Normalize(name)]; ok {
		return e, true
	}
	e, ok := t[DefaultSection]
	return e, ok
}

// Changed reports whether the resolved entry for an output differs
// between two tables. This covers an explicit section appearing,
// disappearing (falling back to default), or changing in place.
func Changed(old, new Table, name string) bool {
	oldEntry, oldOK := old.Resolve(name)
	newEntry, newOK := new.Resolve(name)
	if oldOK != newOK {
		return true
	}
	return oldOK && !oldEntry.Equal(newEntry)
}

// Load parses the configuration file at path. Sections are named
// either "default" or an output name; recognized keys are "path"
// (required) and "duration" (optional, Go duration string). Unknown
// keys are ignored. A section for an output that is not connected is
// accepted and simply unused until that output appears.
func Load(path string) (Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	table := make(Table)
	for key, raw := range v.AllSettings() {
		section, ok := raw.(map[string]interface{})
		if !ok {
			// Top-level scalar, not a section. Ignored like unknown keys.
			continue
		}

		var entry Entry
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
			Result:     &entry,
		})
		if err != nil {
			return nil, fmt.Errorf("unable to build decoder: %w", err)
		}
		if err := decoder.Decode(section); err != nil {
			return nil, fmt.Errorf("section [%s]: %w", key, err)
		}
		if entry.Path == "" {
			return nil, fmt.Errorf("section [%s]: missing required key \"path\"", key)
		}
		table[Normalize(key)] = entry
	}

	return table, nil
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "wallmon", "wallmon.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "/etc/wallmon/wallmon.toml"
	}
	return filepath.Join(home, ".config", "wallmon", "wallmon.toml")
}
