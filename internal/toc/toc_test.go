package toc

import "testing"

func TestParseBlocksAndHeadings(t *testing.T) {
	content := "[QUICK_GLANCE]\nOverview text.\n[/QUICK_GLANCE]\n\n# The Big Idea\nBody.\n## A Detail\n[EXERCISE_REFLECTION]\nThink about it.\n[/EXERCISE_REFLECTION]\n[TAKEAWAYS]\nPoints.\n[/TAKEAWAYS]"
	entries := Parse(content)

	want := []Entry{
		{Title: "Quick Glance", Level: 2, Line: 1, Kind: "block"},
		{Title: "The Big Idea", Level: 1, Line: 5, Kind: "heading"},
		{Title: "A Detail", Level: 2, Line: 7, Kind: "heading"},
		{Title: "Exercise Reflection", Level: 2, Line: 8, Kind: "block"},
		{Title: "Takeaways", Level: 2, Line: 11, Kind: "block"},
	}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d: %+v", len(entries), len(want), entries)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, entries[i], want[i])
		}
	}
}

func TestParseTagWinsOverHeading(t *testing.T) {
	// A recognized tag is a block entry even when the rest of the line
	// could read as markdown.
	entries := Parse("[INSIGHT_NOTE] # not a heading")
	if len(entries) != 1 || entries[0].Kind != "block" || entries[0].Title != "Insight Note" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestParseIgnoresNoise(t *testing.T) {
	content := "plain prose\n[/TAKEAWAYS]\n[UNKNOWN_TAG]\n####### too deep\n#\n[broken"
	if entries := Parse(content); len(entries) != 0 {
		t.Fatalf("expected no entries, got %+v", entries)
	}
}

func TestParseEmpty(t *testing.T) {
	if entries := Parse(""); entries != nil {
		t.Fatalf("expected nil, got %+v", entries)
	}
}
