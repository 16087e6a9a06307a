package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	charmLog "github.com/charmbracelet/log"
	toml "github.com/pelletier/go-toml/v2"
)

type DropOnColumn string

const (
	DropOnColumnBottom DropOnColumn = "bottom"
	DropOnColumnTop    DropOnColumn = "top"
)

type Config struct {
	Board    BoardConfig    `toml:"board"`
	Drag     DragConfig     `toml:"drag"`
	Activity ActivityConfig `toml:"activity"`
	Logging  LoggingConfig  `toml:"logging"`
}

type BoardConfig struct {
	ColumnTitleTemplate string   `toml:"column_title_template"`
	CardTitleTemplate   string   `toml:"card_title_template"`
	SeedColumns         []string `toml:"seed_columns"`
}

type DragConfig struct {
	DropOnColumn       DropOnColumn `toml:"drop_on_column"`
	ActivationDistance int          `toml:"activation_distance"`
}

type ActivityConfig struct {
	Limit int `toml:"limit"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

func Default() Config {
	return Config{
		Board: BoardConfig{
			ColumnTitleTemplate: "Column %d",
			CardTitleTemplate:   "Task %d",
			SeedColumns:         []string{"To Do", "In Progress", "Done"},
		},
		Drag: DragConfig{
			DropOnColumn:       DropOnColumnBottom,
			ActivationDistance: 2,
		},
		Activity: ActivityConfig{
			Limit: 200,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".kanboard/log",
			},
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	cfg.Drag.DropOnColumn = DropOnColumn(strings.TrimSpace(strings.ToLower(string(cfg.Drag.DropOnColumn))))
	cfg.Logging.Level = strings.TrimSpace(strings.ToLower(cfg.Logging.Level))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if err := validateTemplate("board.column_title_template", c.Board.ColumnTitleTemplate); err != nil {
		return err
	}
	if err := validateTemplate("board.card_title_template", c.Board.CardTitleTemplate); err != nil {
		return err
	}
	seen := map[string]struct{}{}
	for idx, title := range c.Board.SeedColumns {
		title = strings.TrimSpace(title)
		if title == "" {
			return fmt.Errorf("board.seed_columns[%d] is empty", idx)
		}
		key := strings.ToLower(title)
		if _, ok := seen[key]; ok {
			return fmt.Errorf("board.seed_columns[%d] is duplicated: %s", idx, title)
		}
		seen[key] = struct{}{}
	}

	switch c.Drag.DropOnColumn {
	case DropOnColumnBottom, DropOnColumnTop:
	default:
		return fmt.Errorf("invalid drag.drop_on_column: %q", c.Drag.DropOnColumn)
	}
	if c.Drag.ActivationDistance < 0 {
		return errors.New("drag.activation_distance must be >= 0")
	}

	if c.Activity.Limit <= 0 {
		return errors.New("activity.limit must be > 0")
	}

	if _, err := charmLog.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	if c.Logging.DevFile.Enabled && strings.TrimSpace(c.Logging.DevFile.Dir) == "" {
		return errors.New("logging.dev_file.dir is required when the dev file is enabled")
	}

	return nil
}

func validateTemplate(field, tmpl string) error {
	tmpl = strings.TrimSpace(tmpl)
	if tmpl == "" {
		return fmt.Errorf("%s is required", field)
	}
	if strings.Count(tmpl, "%d") != 1 || strings.Count(tmpl, "%") != 1 {
		return fmt.Errorf("%s must contain exactly one %%d: %q", field, tmpl)
	}
	return nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
