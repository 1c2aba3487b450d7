package notes

import (
	"fmt"
	"strings"
)

// RenderMarkdown renders a structured extraction as a markdown document using
// the same layout the document-mode prompt recommends: checkbox tasks with
// due date and priority annotations, bold event titles with a date/time line,
// plain bullets for notes.
func RenderMarkdown(e Extraction, transcript string) string {
	var b strings.Builder
	b.WriteString("# My Notes\n\n")

	if len(e.Tasks) > 0 {
		b.WriteString("## Tasks\n\n")
		b.WriteString(RenderTaskList(e.Tasks))
		b.WriteString("\n")
	}
	if len(e.Events) > 0 {
		b.WriteString("## Events\n\n")
		b.WriteString(RenderEventList(e.Events))
		b.WriteString("\n")
	}
	if len(e.Notes) > 0 {
		b.WriteString("## Notes\n\n")
		b.WriteString(RenderNoteList(e.Notes))
		b.WriteString("\n")
	}

	if transcript != "" {
		fmt.Fprintf(&b, "---\n\n_Original transcript: %q_\n", transcript)
	}

	return strings.TrimSpace(b.String()) + "\n"
}

// RenderTaskList renders tasks as checkbox bullets with nested subtasks.
func RenderTaskList(tasks []Task) string {
	var b strings.Builder
	for _, t := range tasks {
		line := "- [ ] " + t.Title
		if t.DueDate != "" {
			line += fmt.Sprintf(" (due: %s)", t.DueDate)
		}
		if t.Priority != "" {
			line += fmt.Sprintf(" [priority: %s]", t.Priority)
		}
		b.WriteString(line + "\n")
		if t.Description != "" {
			fmt.Fprintf(&b, "  %s\n", t.Description)
		}
		for _, s := range t.Subtasks {
			mark := " "
			if s.Completed {
				mark = "x"
			}
			fmt.Fprintf(&b, "  - [%s] %s\n", mark, s.Title)
		}
	}
	return b.String()
}

// RenderEventList renders events as bold-title bullets with a date/time line.
func RenderEventList(events []Event) string {
	var b strings.Builder
	for _, ev := range events {
		when := ev.Date
		if ev.Time != "" {
			when += " @ " + ev.Time
		}
		fmt.Fprintf(&b, "- **%s**: %s\n", ev.Title, when)
		if ev.Description != "" {
			fmt.Fprintf(&b, "  %s\n", ev.Description)
		}
	}
	return b.String()
}

// RenderNoteList renders notes as plain bullets; non-default categories are
// shown as a bold tag.
func RenderNoteList(ns []Note) string {
	var b strings.Builder
	for _, n := range ns {
		if n.Category != "" && n.Category != "general" {
			fmt.Fprintf(&b, "- **[%s]** %s\n", n.Category, n.Content)
		} else {
			fmt.Fprintf(&b, "- %s\n", n.Content)
		}
	}
	return b.String()
}
