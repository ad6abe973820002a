package cli

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/custodia-labs/runit-cli/internal/logger"
)

// defaultWrap is used when the terminal width is unknown.
const defaultWrap = 80

// isTerminal returns true if w writes to a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// markdownEnabled reports whether answers written to w should be rendered.
func markdownEnabled(w io.Writer) bool {
	if settingsService == nil || !settingsService.Get().RenderMarkdown {
		return false
	}
	return isTerminal(w)
}

// renderMarkdown renders text for w when it is a terminal and rendering is on.
// On any failure the text is returned unchanged.
func renderMarkdown(w io.Writer, text string) string {
	if !markdownEnabled(w) {
		return text
	}

	width := defaultWrap
	if f, ok := w.(*os.File); ok {
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols > 20 {
			width = cols - 4
		}
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		logger.Debug("markdown renderer: %v", err)
		return text
	}
	out, err := renderer.Render(text)
	if err != nil {
		logger.Debug("render markdown: %v", err)
		return text
	}
	return strings.TrimRight(out, "\n")
}
