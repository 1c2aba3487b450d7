package notes

import (
	"strings"
	"testing"
)

func TestRenderMarkdownFullLayout(t *testing.T) {
	e := Extraction{
		Tasks: []Task{
			{
				Title:    "Finish report",
				DueDate:  "2025-03-20",
				Priority: PriorityHigh,
				Subtasks: []Subtask{
					{Title: "Draft outline", Completed: true},
					{Title: "Write summary"},
				},
			},
		},
		Events: []Event{
			{Title: "Team sync", Date: "2025-03-21", Time: "09:00", Description: "weekly"},
		},
		Notes: []Note{
			{Content: "Check the new cafe", Category: "personal"},
			{Content: "A plain thought"},
		},
	}

	md := RenderMarkdown(e, "finish the report by friday")

	for _, want := range []string{
		"# My Notes",
		"## Tasks",
		"- [ ] Finish report (due: 2025-03-20) [priority: high]",
		"  - [x] Draft outline",
		"  - [ ] Write summary",
		"## Events",
		"- **Team sync**: 2025-03-21 @ 09:00",
		"  weekly",
		"## Notes",
		"- **[personal]** Check the new cafe",
		"- A plain thought",
		`_Original transcript: "finish the report by friday"_`,
	} {
		if !strings.Contains(md, want) {
			t.Errorf("missing %q in:\n%s", want, md)
		}
	}
}

func TestRenderMarkdownSkipsEmptySections(t *testing.T) {
	e := Extraction{Notes: []Note{{Content: "Only a note"}}}

	md := RenderMarkdown(e, "")

	if strings.Contains(md, "## Tasks") || strings.Contains(md, "## Events") {
		t.Errorf("empty sections rendered:\n%s", md)
	}
	if strings.Contains(md, "Original transcript") {
		t.Errorf("transcript footer rendered without transcript:\n%s", md)
	}
	if !strings.HasSuffix(md, "\n") {
		t.Error("document should end with a newline")
	}
}

func TestRenderEventListDateOnly(t *testing.T) {
	out := RenderEventList([]Event{{Title: "Holiday", Date: "2025-12-25"}})
	if out != "- **Holiday**: 2025-12-25\n" {
		t.Errorf("unexpected rendering: %q", out)
	}
}
