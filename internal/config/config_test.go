package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	if cfg.Board.ColumnTitleTemplate != "Column %d" || cfg.Board.CardTitleTemplate != "Task %d" {
		t.Fatalf("unexpected title templates %#v", cfg.Board)
	}
	if !slices.Equal(cfg.Board.SeedColumns, []string{"To Do", "In Progress", "Done"}) {
		t.Fatalf("unexpected seed columns %#v", cfg.Board.SeedColumns)
	}
	if cfg.Drag.DropOnColumn != DropOnColumnBottom {
		t.Fatalf("unexpected drop placement %q", cfg.Drag.DropOnColumn)
	}
	if cfg.Activity.Limit != 200 {
		t.Fatalf("unexpected activity limit %d", cfg.Activity.Limit)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	defaults := Default()
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"), defaults)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Drag.ActivationDistance != defaults.Drag.ActivationDistance {
		t.Fatalf("expected default activation distance, got %d", cfg.Drag.ActivationDistance)
	}
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("  ", Default())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("unexpected level %q", cfg.Logging.Level)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[board]
column_title_template = "Lane %d"
seed_columns = ["Backlog", "Doing"]

[drag]
drop_on_column = "TOP"
activation_distance = 0

[activity]
limit = 10

[logging]
level = "Debug"

[logging.dev_file]
enabled = false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path, Default())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Board.ColumnTitleTemplate != "Lane %d" {
		t.Fatalf("unexpected column template %q", cfg.Board.ColumnTitleTemplate)
	}
	if cfg.Board.CardTitleTemplate != "Task %d" {
		t.Fatalf("expected untouched card template, got %q", cfg.Board.CardTitleTemplate)
	}
	if !slices.Equal(cfg.Board.SeedColumns, []string{"Backlog", "Doing"}) {
		t.Fatalf("unexpected seed columns %#v", cfg.Board.SeedColumns)
	}
	if cfg.Drag.DropOnColumn != DropOnColumnTop || cfg.Drag.ActivationDistance != 0 {
		t.Fatalf("unexpected drag config %#v", cfg.Drag)
	}
	if cfg.Activity.Limit != 10 || cfg.Logging.Level != "debug" || cfg.Logging.DevFile.Enabled {
		t.Fatalf("unexpected overrides %#v %#v", cfg.Activity, cfg.Logging)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{name: "placement", content: "[drag]\ndrop_on_column = \"middle\"\n", want: "drag.drop_on_column"},
		{name: "distance", content: "[drag]\nactivation_distance = -1\n", want: "activation_distance"},
		{name: "template", content: "[board]\ncard_title_template = \"Task\"\n", want: "card_title_template"},
		{name: "template verbs", content: "[board]\ncolumn_title_template = \"%s %d\"\n", want: "column_title_template"},
		{name: "seed duplicate", content: "[board]\nseed_columns = [\"Done\", \"done\"]\n", want: "duplicated"},
		{name: "activity", content: "[activity]\nlimit = 0\n", want: "activity.limit"},
		{name: "level", content: "[logging]\nlevel = \"loud\"\n", want: "logging.level"},
		{name: "dev dir", content: "[logging.dev_file]\nenabled = true\ndir = \" \"\n", want: "dev_file.dir"},
		{name: "syntax", content: "[board\n", want: "decode toml"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
			_, err := Load(path, Default())
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestEnsureConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")
	if err := EnsureConfigDir(path); err != nil {
		t.Fatalf("EnsureConfigDir() error = %v", err)
	}
	info, err := os.Stat(filepath.Join(dir, "nested"))
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if !info.IsDir() {
		t.Fatal("expected nested config directory")
	}
	if err := EnsureConfigDir("config.toml"); err != nil {
		t.Fatalf("EnsureConfigDir() on bare file error = %v", err)
	}
}
