package ingest

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxChars caps the size of a single chunk.
const DefaultMaxChars = 1500

// Piece is one chunk of a source document before embedding.
type Piece struct {
	Heading string
	Type    string
	Content string
}

// SplitMarkdown cuts a markdown document at headings, then packs each
// section's paragraphs into pieces of at most maxChars runes. Headings
// inside fenced code blocks are ignored.
func SplitMarkdown(text string, maxChars int) []Piece {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	type section struct {
		heading string
		lines   []string
		hasBody bool
	}
	var (
		sections []section
		cur      section
		inFence  bool
	)
	flush := func() {
		// A heading with nothing under it is not worth a chunk.
		if cur.hasBody {
			sections = append(sections, cur)
		}
		cur = section{}
	}

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
		}
		if !inFence && strings.HasPrefix(trimmed, "#") {
			flush()
			cur.heading = strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		} else if trimmed != "" {
			cur.hasBody = true
		}
		cur.lines = append(cur.lines, line)
	}
	flush()

	var out []Piece
	for _, s := range sections {
		typ := classifyHeading(s.heading)
		for _, content := range pack(strings.Join(s.lines, "\n"), maxChars) {
			out = append(out, Piece{Heading: s.heading, Type: typ, Content: content})
		}
	}
	return out
}

// SplitText packs plain text paragraphs into pieces.
func SplitText(text string, maxChars int) []Piece {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	var out []Piece
	for _, content := range pack(strings.ReplaceAll(text, "\r\n", "\n"), maxChars) {
		out = append(out, Piece{Type: "concept", Content: content})
	}
	return out
}

// pack groups blank-line separated paragraphs greedily into blocks of at
// most maxChars runes, hard-splitting paragraphs that are too long alone.
func pack(text string, maxChars int) []string {
	var (
		out []string
		buf strings.Builder
	)
	emit := func() {
		if s := strings.TrimSpace(buf.String()); s != "" {
			out = append(out, s)
		}
		buf.Reset()
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		for _, part := range hardSplit(para, maxChars) {
			size := utf8.RuneCountInString(buf.String())
			if size > 0 && size+2+utf8.RuneCountInString(part) > maxChars {
				emit()
			}
			if buf.Len() > 0 {
				buf.WriteString("\n\n")
			}
			buf.WriteString(part)
		}
	}
	emit()
	return out
}

func hardSplit(s string, maxChars int) []string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return []string{s}
	}
	var out []string
	for len(runes) > maxChars {
		out = append(out, string(runes[:maxChars]))
		runes = runes[maxChars:]
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}

func classifyHeading(h string) string {
	h = strings.ToLower(h)
	switch {
	case strings.Contains(h, "example"):
		return "example"
	case strings.Contains(h, "exercise"), strings.Contains(h, "problem"), strings.Contains(h, "practice"):
		return "problem"
	case strings.Contains(h, "summary"), strings.Contains(h, "key points"), strings.Contains(h, "cheat sheet"):
		return "summary"
	case strings.Contains(h, "interview"):
		return "interview"
	default:
		return "concept"
	}
}
