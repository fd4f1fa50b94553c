// Package quality scores generated guide text against structural
// expectations before it is shown as finished work.
package quality

import (
	"fmt"
	"strings"
)

// PassThreshold is the score a guide must reach to be reported as
// passing.
const PassThreshold = 0.95

const readingWordsPerMinute = 225

// Check is one audited aspect with its fractional score in [0,1].
type Check struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Detail string  `json:"detail,omitempty"`
}

// Report is the audit outcome for one guide.
type Report struct {
	WordCount      int     `json:"word_count"`
	TargetWords    int     `json:"target_words"`
	ReadingMinutes int     `json:"reading_minutes"`
	Checks         []Check `json:"checks"`
	Score          float64 `json:"score"`
	Passed         bool    `json:"passed"`
}

// minWordFraction is how far short of the depth target a guide may fall
// before the length check starts losing score.
const minWordFraction = 0.6

var depthTargets = map[string]int{
	"brief":         800,
	"standard":      1500,
	"comprehensive": 2600,
}

// Audit scores content generated at the given summary depth.
func Audit(content, depth string) *Report {
	target, ok := depthTargets[depth]
	if !ok {
		target = depthTargets["standard"]
	}
	words := len(strings.Fields(content))

	r := &Report{
		WordCount:      words,
		TargetWords:    target,
		ReadingMinutes: (words + readingWordsPerMinute - 1) / readingWordsPerMinute,
	}
	r.add(lengthCheck(words, target))
	r.add(requiredBlocksCheck(content))
	r.add(closedBlocksCheck(content))
	r.add(headingCheck(content))

	var sum float64
	for _, c := range r.Checks {
		sum += c.Score
	}
	r.Score = sum / float64(len(r.Checks))
	r.Passed = r.Score >= PassThreshold
	return r
}

func (r *Report) add(c Check) { r.Checks = append(r.Checks, c) }

func lengthCheck(words, target int) Check {
	c := Check{Name: "length"}
	floor := int(float64(target) * minWordFraction)
	switch {
	case words >= floor:
		c.Score = 1
	case floor == 0:
		c.Score = 1
	default:
		c.Score = float64(words) / float64(floor)
		c.Detail = fmt.Sprintf("%d words, expected at least %d", words, floor)
	}
	return c
}

func requiredBlocksCheck(content string) Check {
	c := Check{Name: "required_blocks", Score: 1}
	var missing []string
	for _, tag := range []string{"QUICK_GLANCE", "TAKEAWAYS"} {
		if !strings.Contains(content, "["+tag+"]") {
			missing = append(missing, tag)
		}
	}
	if len(missing) > 0 {
		c.Score = 1 - float64(len(missing))/2
		c.Detail = "missing blocks: " + strings.Join(missing, ", ")
	}
	return c
}

// closedBlocksCheck verifies every opened block tag is closed by its
// matching [/TAG] line, in order.
func closedBlocksCheck(content string) Check {
	c := Check{Name: "closed_blocks", Score: 1}
	var stack []string
	opened, matched := 0, 0
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "[") {
			continue
		}
		end := strings.IndexByte(trimmed, ']')
		if end < 0 {
			continue
		}
		tag := trimmed[1:end]
		if closing := strings.HasPrefix(tag, "/"); closing {
			tag = tag[1:]
			if len(stack) > 0 && stack[len(stack)-1] == tag {
				stack = stack[:len(stack)-1]
				matched++
			}
			continue
		}
		if isBlockTag(tag) {
			stack = append(stack, tag)
			opened++
		}
	}
	if opened == 0 {
		return c
	}
	c.Score = float64(matched) / float64(opened)
	if len(stack) > 0 {
		c.Detail = "unclosed blocks: " + strings.Join(stack, ", ")
	}
	return c
}

func headingCheck(content string) Check {
	c := Check{Name: "heading_structure", Score: 1}
	headings := 0
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		level := 0
		for level < len(trimmed) && trimmed[level] == '#' {
			level++
		}
		if level >= 1 && level <= 6 && strings.TrimSpace(trimmed[level:]) != "" {
			headings++
		}
	}
	if headings == 0 {
		c.Score = 0
		c.Detail = "no section headings"
	}
	return c
}

var blockTagPrefixes = []string{
	"QUICK_GLANCE", "INSIGHT_NOTE", "ACTION_BOX", "FOUNDATIONAL_NARRATIVE",
	"TAKEAWAYS", "EXERCISE_", "QUOTE", "VISUAL_FLOWCHART", "VISUAL_TABLE",
	"STRUCTURE_MAP",
}

func isBlockTag(tag string) bool {
	for _, known := range blockTagPrefixes {
		if strings.HasSuffix(known, "_") {
			if strings.HasPrefix(tag, known) {
				return true
			}
			continue
		}
		if tag == known {
			return true
		}
	}
	return false
}
