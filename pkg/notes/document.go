package notes

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is a markdown document with optional YAML frontmatter. Frontmatter
// is preserved verbatim across merges; only the body is rewritten.
type Document struct {
	Frontmatter map[string]interface{}
	Body        string
}

// ParseDocument splits a markdown document into frontmatter and body. A
// document without a leading "---" block has a nil Frontmatter.
func ParseDocument(text string) (*Document, error) {
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || lines[0] != "---" {
		return &Document{Body: text}, nil
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if lines[i] == "---" {
			end = i
			break
		}
	}
	if end < 0 {
		// Unterminated frontmatter is treated as plain body.
		return &Document{Body: text}, nil
	}

	var fm map[string]interface{}
	raw := strings.Join(lines[1:end], "\n")
	if strings.TrimSpace(raw) != "" {
		if err := yaml.Unmarshal([]byte(raw), &fm); err != nil {
			return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
		}
	}

	return &Document{
		Frontmatter: fm,
		Body:        strings.Join(lines[end+1:], "\n"),
	}, nil
}

// String recomposes the document, re-serializing frontmatter when present.
func (d *Document) String() (string, error) {
	if len(d.Frontmatter) == 0 {
		return d.Body, nil
	}
	fmData, err := yaml.Marshal(d.Frontmatter)
	if err != nil {
		return "", fmt.Errorf("failed to marshal frontmatter: %w", err)
	}
	return fmt.Sprintf("---\n%s---\n%s", string(fmData), d.Body), nil
}

// AppendToSection inserts block at the end of the named "## heading" section,
// before the next "## " heading. If the section does not exist it is created
// at the end of the body. The existing body is never modified, only extended.
func AppendToSection(body, heading, block string) string {
	block = strings.TrimRight(block, "\n")
	if block == "" {
		return body
	}
	marker := "## " + heading
	lines := strings.Split(body, "\n")

	start := -1
	for i, line := range lines {
		if strings.TrimSpace(line) == marker {
			start = i
			break
		}
	}
	if start < 0 {
		trimmed := strings.TrimRight(body, "\n")
		if trimmed == "" {
			return marker + "\n\n" + block + "\n"
		}
		return trimmed + "\n\n" + marker + "\n\n" + block + "\n"
	}

	insert := len(lines)
	for i := start + 1; i < len(lines); i++ {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), "## ") {
			insert = i
			break
		}
	}
	// Back up over blank lines so the block lands inside the section.
	for insert > start+1 && strings.TrimSpace(lines[insert-1]) == "" {
		insert--
	}

	out := make([]string, 0, len(lines)+4)
	out = append(out, lines[:insert]...)
	out = append(out, strings.Split(block, "\n")...)
	if insert < len(lines) {
		out = append(out, "")
		out = append(out, lines[insert:]...)
	}
	return strings.Join(out, "\n")
}
