package script

import (
	"fmt"
	"strings"

	"github.com/hylla/kanboard/internal/app"
	"github.com/hylla/kanboard/internal/board"
	"github.com/hylla/kanboard/internal/domain"
	"github.com/hylla/kanboard/internal/reorder"
)

// Session is the board surface a script drives.
type Session interface {
	Snapshot() board.State
	ImportSnapshot(app.Snapshot) error
	ExportSnapshot() app.Snapshot
	Dispatch(reorder.Event) (reorder.Outcome, error)
	CreateColumn(app.CreateColumnInput) (domain.Column, error)
	RenameColumn(id, title string) (domain.Column, error)
	RemoveColumn(id string) error
	CreateCard(app.CreateCardInput) (domain.Card, error)
	EditCard(id, content string) (domain.Card, error)
	RemoveCard(id string) error
}

// StepResult records what one step did.
type StepResult struct {
	Index   int    `json:"index"`
	Step    string `json:"step"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

// Report is the outcome of a full replay.
type Report struct {
	Name  string       `json:"name,omitempty"`
	Steps []StepResult `json:"steps"`
	Board app.Snapshot `json:"board"`
}

// Failed counts steps that were rejected.
func (r Report) Failed() int {
	n := 0
	for _, step := range r.Steps {
		if step.Error != "" {
			n++
		}
	}
	return n
}

// Run seeds the session with the script's board and applies every step in order.
// Rejected steps are recorded and skipped; a board that fails validation after a
// step aborts the run.
func Run(sess Session, sc Script) (Report, error) {
	if len(sc.Columns) > 0 || len(sc.Cards) > 0 {
		if err := sess.ImportSnapshot(seedSnapshot(sc)); err != nil {
			return Report{}, fmt.Errorf("seed board: %w", err)
		}
	}

	report := Report{Name: sc.Name, Steps: make([]StepResult, 0, len(sc.Steps))}
	for idx, step := range sc.Steps {
		outcome, err := apply(sess, step)
		result := StepResult{Index: idx, Step: step.String(), Outcome: outcome}
		if err != nil {
			result.Error = err.Error()
		}
		report.Steps = append(report.Steps, result)
		if err := sess.Snapshot().Validate(); err != nil {
			return report, fmt.Errorf("steps[%d] %s left an invalid board: %w", idx, step, err)
		}
	}
	report.Board = sess.ExportSnapshot()
	return report, nil
}

func apply(sess Session, step Step) (string, error) {
	if ev, ok := step.Event(); ok {
		outcome, err := sess.Dispatch(ev)
		return outcome.String(), err
	}
	var err error
	switch step.Op {
	case OpAddColumn:
		_, err = sess.CreateColumn(app.CreateColumnInput{ID: step.ID, Title: step.Title})
	case OpRemoveColumn:
		err = sess.RemoveColumn(step.ID)
	case OpRenameColumn:
		_, err = sess.RenameColumn(step.ID, step.Title)
	case OpAddCard:
		_, err = sess.CreateCard(app.CreateCardInput{ID: step.ID, ColumnID: step.Column, Content: step.Content})
	case OpRemoveCard:
		err = sess.RemoveCard(step.ID)
	case OpEditCard:
		_, err = sess.EditCard(step.ID, step.Content)
	default:
		err = fmt.Errorf("%w: unknown op %q", ErrInvalidScript, step.Op)
	}
	if err != nil {
		return reorder.OutcomeIgnored.String(), err
	}
	return reorder.OutcomeApplied.String(), nil
}

func seedSnapshot(sc Script) app.Snapshot {
	snap := app.Snapshot{Version: app.SnapshotVersion}
	for _, c := range sc.Columns {
		title := strings.TrimSpace(c.Title)
		if title == "" {
			title = c.ID
		}
		snap.Columns = append(snap.Columns, domain.Column{ID: strings.TrimSpace(c.ID), Title: title})
	}
	for _, c := range sc.Cards {
		content := c.Content
		if strings.TrimSpace(content) == "" {
			content = c.ID
		}
		snap.Cards = append(snap.Cards, domain.Card{ID: strings.TrimSpace(c.ID), ColumnID: strings.TrimSpace(c.Column), Content: content})
	}
	return snap
}
