package engine

import (
	"fmt"
	"os"
	"strings"
)

// ExportText writes the formatted transcript of the active session to
// path as plain text.
func (e *Engine) ExportText(path string) error {
	e.stMu.Lock()
	text := e.state.Text
	e.stMu.Unlock()

	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("export text: %w", err)
	}
	return nil
}

// ExportMarkdown writes the active session as a markdown document with
// a small metadata header above the transcript.
func (e *Engine) ExportMarkdown(path string) error {
	e.stMu.Lock()
	st := e.state
	e.stMu.Unlock()

	title := st.Title
	if title == "" {
		title = "Dictation Session"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "- Created: %s\n", st.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "- Duration: %s\n", st.Duration.String())
	fmt.Fprintf(&b, "- Words: %d\n", st.WordCount)
	if st.ModelName != "" {
		fmt.Fprintf(&b, "- Model: %s\n", st.ModelName)
	}
	if st.Language != "" {
		fmt.Fprintf(&b, "- Language: %s\n", st.Language)
	}
	b.WriteString("\n")
	b.WriteString(st.Text)
	if st.Text != "" && !strings.HasSuffix(st.Text, "\n") {
		b.WriteString("\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("export markdown: %w", err)
	}
	return nil
}
