package script

import (
	"fmt"
	"strings"

	"github.com/hylla/kanboard/internal/app"
)

// Markdown renders the replay report as a markdown document.
func Markdown(r Report) string {
	var b strings.Builder
	title := strings.TrimSpace(r.Name)
	if title == "" {
		title = "Board"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	b.WriteString(BoardMarkdown(r.Board))

	if len(r.Steps) > 0 {
		b.WriteString("\n## Steps\n\n")
		b.WriteString("| # | step | outcome | error |\n")
		b.WriteString("|---|------|---------|-------|\n")
		for _, step := range r.Steps {
			fmt.Fprintf(&b, "| %d | `%s` | %s | %s |\n", step.Index, step.Step, step.Outcome, escapeCell(step.Error))
		}
	}
	return b.String()
}

// BoardMarkdown renders one section per column with its cards in order.
func BoardMarkdown(snap app.Snapshot) string {
	var b strings.Builder
	if len(snap.Columns) == 0 {
		b.WriteString("_no columns_\n")
		return b.String()
	}
	for _, col := range snap.Columns {
		var cards []string
		for _, card := range snap.Cards {
			if card.ColumnID == col.ID {
				cards = append(cards, fmt.Sprintf("- **%s** %s", card.ID, firstLine(card.Content)))
			}
		}
		fmt.Fprintf(&b, "## %s (%d)\n\n", col.Title, len(cards))
		if len(cards) == 0 {
			b.WriteString("_empty_\n\n")
			continue
		}
		b.WriteString(strings.Join(cards, "\n"))
		b.WriteString("\n\n")
	}
	return b.String()
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx] + " …"
	}
	return s
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
