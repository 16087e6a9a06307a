// Package script replays YAML gesture scripts against a board session.
package script

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hylla/kanboard/internal/domain"
	"github.com/hylla/kanboard/internal/reorder"
)

// Op names a script step.
type Op string

// Supported step operations.
const (
	OpStart        Op = "start"
	OpOver         Op = "over"
	OpEnd          Op = "end"
	OpAddColumn    Op = "add_column"
	OpRemoveColumn Op = "remove_column"
	OpRenameColumn Op = "rename_column"
	OpAddCard      Op = "add_card"
	OpRemoveCard   Op = "remove_card"
	OpEditCard     Op = "edit_card"
)

// ErrInvalidScript is returned when a script cannot be decoded or a step is malformed.
var ErrInvalidScript = errors.New("invalid script")

// Script is a starting board plus an ordered list of steps.
type Script struct {
	Name    string       `yaml:"name"`
	Columns []ColumnSeed `yaml:"columns"`
	Cards   []CardSeed   `yaml:"cards"`
	Steps   []Step       `yaml:"steps"`
}

// ColumnSeed declares a column present before the first step.
type ColumnSeed struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
}

// CardSeed declares a card present before the first step.
type CardSeed struct {
	ID      string `yaml:"id"`
	Column  string `yaml:"column"`
	Content string `yaml:"content"`
}

// Step is one gesture event or board edit.
//
//	- {op: start, id: t1, kind: task}
//	- {op: over, id: t1, kind: task, over: t3, over_kind: task}
//	- {op: end, id: t1, over: t3}
//	- {op: rename_column, id: X, title: Backlog}
type Step struct {
	Op       Op     `yaml:"op"`
	ID       string `yaml:"id"`
	Kind     string `yaml:"kind"`
	Over     string `yaml:"over"`
	OverKind string `yaml:"over_kind"`
	Column   string `yaml:"column"`
	Title    string `yaml:"title"`
	Content  string `yaml:"content"`
}

// Load reads and parses a script file.
func Load(path string) (Script, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Script{}, fmt.Errorf("read script: %w", err)
	}
	return Parse(content)
}

// Parse decodes a YAML script and validates every step.
func Parse(content []byte) (Script, error) {
	var sc Script
	if err := yaml.Unmarshal(content, &sc); err != nil {
		return Script{}, fmt.Errorf("%w: decode yaml: %w", ErrInvalidScript, err)
	}
	for idx := range sc.Steps {
		step := sc.Steps[idx]
		step.Op = Op(strings.ToLower(strings.TrimSpace(string(step.Op))))
		step.ID = strings.TrimSpace(step.ID)
		step.Over = strings.TrimSpace(step.Over)
		step.Column = strings.TrimSpace(step.Column)
		if err := step.validate(); err != nil {
			return Script{}, fmt.Errorf("%w: steps[%d]: %w", ErrInvalidScript, idx, err)
		}
		sc.Steps[idx] = step
	}
	return sc, nil
}

func (s Step) validate() error {
	switch s.Op {
	case OpStart:
		if s.ID == "" {
			return errors.New("start requires id")
		}
		if _, err := domain.ParseKind(s.Kind); err != nil {
			return err
		}
	case OpOver:
		if s.ID == "" {
			return errors.New("over requires id")
		}
		if _, err := s.optionalKind(s.Kind); err != nil {
			return err
		}
		if _, err := s.optionalKind(s.OverKind); err != nil {
			return err
		}
	case OpEnd, OpRemoveColumn, OpRemoveCard:
		if s.ID == "" {
			return fmt.Errorf("%s requires id", s.Op)
		}
	case OpAddColumn:
	case OpRenameColumn:
		if s.ID == "" || strings.TrimSpace(s.Title) == "" {
			return errors.New("rename_column requires id and title")
		}
	case OpAddCard:
		if s.Column == "" {
			return errors.New("add_card requires column")
		}
	case OpEditCard:
		if s.ID == "" {
			return errors.New("edit_card requires id")
		}
	default:
		return fmt.Errorf("unknown op %q", s.Op)
	}
	return nil
}

// optionalKind parses raw, treating an empty value as "let the engine resolve it".
func (s Step) optionalKind(raw string) (domain.Kind, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	return domain.ParseKind(raw)
}

// Event converts a gesture step into an engine event.
func (s Step) Event() (reorder.Event, bool) {
	switch s.Op {
	case OpStart:
		kind, _ := domain.ParseKind(s.Kind)
		return reorder.Start(s.ID, kind), true
	case OpOver:
		kind, _ := s.optionalKind(s.Kind)
		overKind, _ := s.optionalKind(s.OverKind)
		return reorder.Over(s.ID, kind, s.Over, overKind), true
	case OpEnd:
		return reorder.End(s.ID, s.Over), true
	}
	return reorder.Event{}, false
}

func (s Step) String() string {
	if ev, ok := s.Event(); ok {
		return ev.String()
	}
	parts := []string{string(s.Op)}
	for _, v := range []string{s.ID, s.Column, s.Title, s.Content} {
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}
