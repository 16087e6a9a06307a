package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/hylla/kanboard/internal/domain"
)

// markdownRenderer renders markdown for terminal views and recreates the renderer when wrap width changes.
type markdownRenderer struct {
	width    int
	renderer *glamour.TermRenderer
}

// render converts markdown input into ANSI-styled terminal text with the requested wrap width.
func (r *markdownRenderer) render(markdown string, width int) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}

	wrapWidth := max(width, 24)
	if r.renderer == nil || r.width != wrapWidth {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(wrapWidth),
		)
		if err != nil {
			return markdown
		}
		r.renderer = renderer
		r.width = wrapWidth
	}

	rendered, err := r.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(rendered, "\n")
}

// cardMarkdown builds the detail document for a card: the first content line
// becomes the heading and the rest is rendered as-is.
func cardMarkdown(card domain.Card, column domain.Column, position, total int) string {
	content := strings.TrimSpace(card.Content)
	heading, body, _ := strings.Cut(content, "\n")
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", strings.TrimSpace(heading))
	if body = strings.TrimSpace(body); body != "" {
		b.WriteString(body)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "- column: **%s**\n", column.Title)
	fmt.Fprintf(&b, "- position: %d of %d\n", position+1, total)
	fmt.Fprintf(&b, "- id: `%s`\n", card.ID)
	return b.String()
}
