package markdown

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
)

// DefaultWidth is the word wrap width for terminal output.
const DefaultWidth = 100

// Renderer styles markdown for the terminal with glamour.
type Renderer struct {
	glamourRenderer *glamour.TermRenderer
	width           int
}

// NewRenderer creates a renderer that wraps at width columns.
func NewRenderer(width int) (*Renderer, error) {
	if width <= 0 {
		width = DefaultWidth
	}
	glamourRenderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create glamour renderer: %w", err)
	}
	return &Renderer{glamourRenderer: glamourRenderer, width: width}, nil
}

// Render renders markdown content to styled terminal output
func (r *Renderer) Render(markdown string) (string, error) {
	if markdown == "" {
		return "", nil
	}
	rendered, err := r.glamourRenderer.Render(trimTrailing(markdown))
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return collapseBlankLines(rendered), nil
}

// RenderOrRaw renders markdown, returning it unstyled if rendering fails.
func RenderOrRaw(markdown string, width int) string {
	r, err := NewRenderer(width)
	if err != nil {
		return markdown
	}
	out, err := r.Render(markdown)
	if err != nil {
		return markdown
	}
	return out
}

// trimTrailing strips trailing whitespace so it is not read as a hard break.
func trimTrailing(markdown string) string {
	lines := strings.Split(markdown, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

// collapseBlankLines keeps at most one blank line between blocks.
func collapseBlankLines(rendered string) string {
	lines := strings.Split(rendered, "\n")
	var result []string
	blankCount := 0

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			blankCount++
			if blankCount <= 1 {
				result = append(result, line)
			}
		} else {
			blankCount = 0
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}
