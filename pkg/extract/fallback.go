package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/gophertribe/voxnote/pkg/notes"
)

// Clause classification cues, checked case-insensitively and in this order:
// task cues always win over event cues.
var (
	taskCues  = []string{"remind", "todo", "need to", "have to", "don't forget", "make sure"}
	eventCues = []string{"schedule", "meeting", "appointment", "call", "sync"}

	clauseSplit = regexp.MustCompile(`[.!?]+`)
)

// Clauses ≤ this many characters that match no cue are dropped.
const minNoteLength = 10

// Fallback is the deterministic extractor used when the generative step is
// unavailable. It seeds its output with the previous state verbatim so nothing
// accumulated is ever lost on the degraded path, then classifies each clause
// of the transcript by keyword. Every call yields at least one item: when the
// combined result would be empty, the whole transcript becomes a single note.
//
// Known limitation, kept on purpose: event dates are always stamped with the
// current date, even when the clause names another day. Only the generative
// path resolves relative dates.
func Fallback(transcript string, prev *notes.Extraction, today time.Time) notes.Extraction {
	out := prev.Clone()
	date := today.Format("2006-01-02")

	for _, clause := range clauseSplit.Split(transcript, -1) {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		lower := strings.ToLower(clause)

		switch {
		case matchesAny(lower, taskCues):
			out.Tasks = append(out.Tasks, notes.Task{
				Title:    clause,
				Priority: notes.PriorityMedium,
			})
		case matchesAny(lower, eventCues):
			out.Events = append(out.Events, notes.Event{
				Title: clause,
				Date:  date,
			})
		case len(clause) > minNoteLength:
			out.Notes = append(out.Notes, notes.Note{
				Content:  clause,
				Category: "general",
			})
		}
	}

	if out.Empty() {
		out.Notes = append(out.Notes, notes.Note{
			Content:  transcript,
			Category: "general",
		})
	}

	return out
}

func matchesAny(s string, cues []string) bool {
	for _, cue := range cues {
		if strings.Contains(s, cue) {
			return true
		}
	}
	return false
}

// fallbackDocument is the degraded document merge: deterministic extraction of
// the new transcript rendered to markdown and appended to the matching
// sections. Frontmatter is split off before appending so metadata survives the
// merge untouched; the existing body text is preserved, only extended.
func fallbackDocument(transcript, current string, today time.Time) string {
	ext := Fallback(transcript, nil, today)
	if strings.TrimSpace(current) == "" {
		return notes.RenderMarkdown(ext, "")
	}

	doc, err := notes.ParseDocument(current)
	if err != nil {
		// Unparseable frontmatter is left alone and treated as body.
		doc = &notes.Document{Body: current}
	}

	body := doc.Body
	if block := notes.RenderTaskList(ext.Tasks); block != "" {
		body = notes.AppendToSection(body, "Tasks", block)
	}
	if block := notes.RenderEventList(ext.Events); block != "" {
		body = notes.AppendToSection(body, "Events", block)
	}
	if block := notes.RenderNoteList(ext.Notes); block != "" {
		body = notes.AppendToSection(body, "Notes", block)
	}
	doc.Body = body

	out, err := doc.String()
	if err != nil {
		return body
	}
	return out
}
