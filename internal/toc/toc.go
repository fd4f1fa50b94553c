// Package toc derives a table of contents from generated guide text.
//
// The parser is a single left-to-right scan over lines with a fixed,
// ordered marker set. Custom block tags take precedence over markdown
// headings: a line that opens a recognized block is a block entry even
// if it also happens to start with '#'. Each line yields at most one
// entry, so markers can never produce conflicting matches.
package toc

import "strings"

// Entry is one table-of-contents item.
type Entry struct {
	Title string `json:"title"`
	Level int    `json:"level"`
	Line  int    `json:"line"`
	Kind  string `json:"kind"` // "block" or "heading"
}

// blockTags is the recognized opening-tag set, checked in order. The
// trailing-underscore form matches a tag family ([EXERCISE_REFLECTION],
// [EXERCISE_JOURNAL], ...).
var blockTags = []string{
	"QUICK_GLANCE",
	"INSIGHT_NOTE",
	"ACTION_BOX",
	"FOUNDATIONAL_NARRATIVE",
	"TAKEAWAYS",
	"EXERCISE_",
	"QUOTE",
	"VISUAL_FLOWCHART",
	"VISUAL_TABLE",
	"STRUCTURE_MAP",
}

// Parse scans content and returns its entries in document order.
func Parse(content string) []Entry {
	var entries []Entry
	for i, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if tag, ok := matchBlockTag(trimmed); ok {
			entries = append(entries, Entry{
				Title: blockTitle(tag),
				Level: 2,
				Line:  i + 1,
				Kind:  "block",
			})
			continue
		}
		if title, level, ok := matchHeading(trimmed); ok {
			entries = append(entries, Entry{
				Title: title,
				Level: level,
				Line:  i + 1,
				Kind:  "heading",
			})
		}
	}
	return entries
}

// matchBlockTag reports whether the line opens a recognized block, and
// returns the tag name. Closing tags ([/TAG]) never match.
func matchBlockTag(line string) (string, bool) {
	if !strings.HasPrefix(line, "[") || strings.HasPrefix(line, "[/") {
		return "", false
	}
	end := strings.IndexByte(line, ']')
	if end < 0 {
		return "", false
	}
	tag := line[1:end]
	for _, known := range blockTags {
		if strings.HasSuffix(known, "_") {
			if strings.HasPrefix(tag, known) {
				return tag, true
			}
			continue
		}
		if tag == known {
			return tag, true
		}
	}
	return "", false
}

func matchHeading(line string) (string, int, bool) {
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level == 0 || level > 6 {
		return "", 0, false
	}
	title := strings.TrimSpace(line[level:])
	if title == "" {
		return "", 0, false
	}
	return title, level, true
}

// blockTitle renders a tag name for display: EXERCISE_REFLECTION
// becomes "Exercise Reflection".
func blockTitle(tag string) string {
	words := strings.Split(strings.ToLower(tag), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
