// Package textproc contains the pure transcript formatting pipeline.
package textproc

import (
	"regexp"
	"strings"
	"unicode"
)

// Options toggles the individual formatting passes.
type Options struct {
	NormalizeWhitespace bool
	CapitalizeSentences bool
	EnsurePunctuation   bool
}

// DefaultOptions enables every pass.
func DefaultOptions() Options {
	return Options{
		NormalizeWhitespace: true,
		CapitalizeSentences: true,
		EnsurePunctuation:   true,
	}
}

var (
	whitespaceRe  = regexp.MustCompile(`\s+`)
	punctuationRe = regexp.MustCompile(`([,.!?])(\S)`)
)

// Format runs the enabled passes over raw recognizer output. The
// punctuation pass only runs on the final text of a transcription.
// Re-running Format over its own non-final output is a no-op.
func Format(text string, opts Options, final bool) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	processed := text

	if opts.NormalizeWhitespace {
		processed = normalizeWhitespace(processed)
	}

	if opts.CapitalizeSentences {
		processed = capitalizeSentences(processed)
	}

	if opts.EnsurePunctuation && final {
		processed = ensureTermination(processed)
	}

	return strings.TrimSpace(processed)
}

// WordCount counts whitespace-delimited non-empty tokens.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// normalizeWhitespace collapses whitespace runs to single spaces and fixes
// spacing around sentence punctuation: no space before, one space after
// unless at end of text.
func normalizeWhitespace(text string) string {
	collapsed := whitespaceRe.ReplaceAllString(text, " ")
	for _, p := range []string{",", ".", "!", "?"} {
		collapsed = strings.ReplaceAll(collapsed, " "+p, p)
	}
	collapsed = punctuationRe.ReplaceAllString(collapsed, "$1 $2")
	return strings.ReplaceAll(collapsed, "  ", " ")
}

// capitalizeSentences upper-cases the first letter of the text and the
// first letter after terminal punctuation or a line break. The flag is
// consumed by the next letter seen.
func capitalizeSentences(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	capitalizeNext := true
	for _, ch := range text {
		if capitalizeNext && unicode.IsLetter(ch) {
			b.WriteRune(unicode.ToUpper(ch))
			capitalizeNext = false
		} else {
			b.WriteRune(ch)
		}

		switch ch {
		case '.', '!', '?', '\n':
			capitalizeNext = true
		}
	}

	return b.String()
}

// ensureTermination appends a period to every non-blank line that does
// not already end in terminal punctuation.
func ensureTermination(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimRight(line, " \t\r")
		if strings.TrimSpace(trimmed) == "" {
			continue
		}
		if !strings.ContainsRune(".?!", rune(trimmed[len(trimmed)-1])) {
			trimmed += "."
		}
		lines[i] = trimmed
	}
	return strings.Join(lines, "\n")
}
