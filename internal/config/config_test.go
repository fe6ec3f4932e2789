package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wallmon.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Run("parses default and per-output sections", func(t *testing.T) {
		path := writeConfig(t, `
[default]
path = "/pics"
duration = "30m"

[eDP-1]
path = "/pics/fixed.png"
`)
		table, err := Load(path)
		if err != nil {
			t.Fatalf("Load() failed: %v", err)
		}
		if len(table) != 2 {
			t.Fatalf("expected 2 sections, got %d", len(table))
		}

		def := table[DefaultSection]
		if def.Path != "/pics" {
			t.Errorf("default path = %q, want /pics", def.Path)
		}
		if def.Duration != 30*time.Minute {
			t.Errorf("default duration = %v, want 30m", def.Duration)
		}

		edp, ok := table.Resolve("eDP-1")
		if !ok {
			t.Fatal("eDP-1 did not resolve")
		}
		if edp.Path != "/pics/fixed.png" {
			t.Errorf("eDP-1 path = %q, want /pics/fixed.png", edp.Path)
		}
		if edp.Duration != 0 {
			t.Errorf("eDP-1 duration = %v, want 0", edp.Duration)
		}
	})

	t.Run("resolve is case-insensitive", func(t *testing.T) {
		path := writeConfig(t, `
[HDMI-A-1]
path = "/pics"
`)
		table, err := Load(path)
		if err != nil {
			t.Fatalf("Load() failed: %v", err)
		}
		if _, ok := table.Resolve("HDMI-A-1"); !ok {
			t.Error("exact name did not resolve")
		}
		if _, ok := table.Resolve("hdmi-a-1"); !ok {
			t.Error("lowercased name did not resolve")
		}
	})

	t.Run("unknown keys are ignored", func(t *testing.T) {
		path := writeConfig(t, `
[default]
path = "/pics"
mode = "fill"
`)
		if _, err := Load(path); err != nil {
			t.Errorf("Load() failed on unknown key: %v", err)
		}
	})

	t.Run("missing path key is an error", func(t *testing.T) {
		path := writeConfig(t, `
[default]
duration = "30m"
`)
		if _, err := Load(path); err == nil {
			t.Error("Load() accepted a section without path")
		}
	})

	t.Run("malformed duration is an error", func(t *testing.T) {
		path := writeConfig(t, `
[default]
path = "/pics"
duration = "half an hour"
`)
		if _, err := Load(path); err == nil {
			t.Error("Load() accepted a malformed duration")
		}
	})

	t.Run("missing file is an error", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("Load() accepted a missing file")
		}
	})
}

func TestResolveFallsBackToDefault(t *testing.T) {
	table := Table{
		DefaultSection: {Path: "/pics", Duration: time.Hour},
		"edp-1":        {Path: "/fixed.png"},
	}

	entry, ok := table.Resolve("eDP-1")
	if !ok || entry.Path != "/fixed.png" {
		t.Errorf("explicit entry not preferred: %+v ok=%v", entry, ok)
	}

	entry, ok = table.Resolve("HDMI-1")
	if !ok || entry.Path != "/pics" {
		t.Errorf("default fallback failed: %+v ok=%v", entry, ok)
	}

	if _, ok := (Table{}).Resolve("HDMI-1"); ok {
		t.Error("empty table resolved an entry")
	}
}

func TestChanged(t *testing.T) {
	old := Table{
		DefaultSection: {Path: "/pics", Duration: 30 * time.Minute},
		"edp-1":        {Path: "/fixed.png"},
	}

	t.Run("identical tables report no change", func(t *testing.T) {
		if Changed(old, old, "eDP-1") || Changed(old, old, "HDMI-1") {
			t.Error("unchanged table reported as changed")
		}
	})

	t.Run("duration edit changes default users only", func(t *testing.T) {
		updated := Table{
			DefaultSection: {Path: "/pics", Duration: 5 * time.Minute},
			"edp-1":        {Path: "/fixed.png"},
		}
		if !Changed(old, updated, "HDMI-1") {
			t.Error("default duration edit not reported for inheriting output")
		}
		if Changed(old, updated, "eDP-1") {
			t.Error("explicit entry reported changed by default edit")
		}
	})

	t.Run("removed section falls back to default and reports change", func(t *testing.T) {
		updated := Table{
			DefaultSection: {Path: "/pics", Duration: 30 * time.Minute},
		}
		if !Changed(old, updated, "eDP-1") {
			t.Error("section removal not reported as change")
		}
	})

	t.Run("entry disappearing entirely reports change", func(t *testing.T) {
		if !Changed(old, Table{}, "eDP-1") {
			t.Error("config going empty not reported as change")
		}
	})
}

func TestStoreReload(t *testing.T) {
	path := writeConfig(t, `
[default]
path = "/pics"
duration = "30m"
`)
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}

	t.Run("reload publishes new table and returns previous", func(t *testing.T) {
		if err := os.WriteFile(path, []byte("[default]\npath = \"/other\"\n"), 0644); err != nil {
			t.Fatal(err)
		}
		previous, err := store.Reload()
		if err != nil {
			t.Fatalf("Reload() failed: %v", err)
		}
		if previous[DefaultSection].Path != "/pics" {
			t.Errorf("previous table wrong: %+v", previous)
		}
		if store.Current()[DefaultSection].Path != "/other" {
			t.Errorf("current table not updated: %+v", store.Current())
		}
	})

	t.Run("failed reload keeps previous table", func(t *testing.T) {
		if err := os.WriteFile(path, []byte("[default\npath ="), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := store.Reload(); err == nil {
			t.Fatal("Reload() accepted malformed TOML")
		}
		if store.Current()[DefaultSection].Path != "/other" {
			t.Errorf("previous table lost after failed reload: %+v", store.Current())
		}
	})
}
