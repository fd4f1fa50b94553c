package generator

import (
	"fmt"
	"strings"

	"github.com/jonathanprocter/insight-atlas-server/internal/models"
	"github.com/jonathanprocter/insight-atlas-server/internal/providers/text"
)

const systemPrompt = `You are Insight Atlas, a writing assistant that turns source
documents into structured long-form guides. Write in markdown. Structure the
guide with '#' and '##' headings and, where they help the reader, the
following block tags on their own lines, each closed with its matching
[/TAG] line: [QUICK_GLANCE], [INSIGHT_NOTE], [ACTION_BOX], [FOUNDATIONAL_NARRATIVE],
[TAKEAWAYS], [EXERCISE_REFLECTION], [QUOTE], [VISUAL_FLOWCHART], [VISUAL_TABLE],
[STRUCTURE_MAP]. Open with a [QUICK_GLANCE] block and end with a [TAKEAWAYS] block.`

// targetWords maps a summary depth to the rough guide length the
// progress estimate is scaled against.
func targetWords(depth string) int {
	switch depth {
	case "brief":
		return 800
	case "comprehensive":
		return 2600
	default: // "standard" and anything unrecognized
		return 1500
	}
}

// BuildPrompt assembles the text-provider request for a generation run.
func BuildPrompt(req models.GenerationRequest, source string) text.Request {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a %s %s of the following document.\n", req.Settings.SummaryDepth, req.Settings.Format)
	fmt.Fprintf(&b, "Mode: %s. Tone: %s. Target length: about %d words.\n",
		req.Settings.Mode, req.Settings.Tone, targetWords(req.Settings.SummaryDepth))
	if req.Title != "" {
		fmt.Fprintf(&b, "Document title: %s\n", req.Title)
	}
	if req.Author != "" {
		fmt.Fprintf(&b, "Document author: %s\n", req.Author)
	}
	b.WriteString("\n--- DOCUMENT ---\n")
	b.WriteString(source)

	return text.Request{
		System: systemPrompt,
		Prompt: b.String(),
	}
}

// NarrationText strips block tag lines from generated content so the
// narration does not read tags like "[QUICK_GLANCE]" aloud. Markdown
// heading markers are dropped as well, keeping the heading text.
func NarrationText(content string) string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			continue
		}
		out = append(out, strings.TrimLeft(trimmed, "# "))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
