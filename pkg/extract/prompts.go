package extract

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gophertribe/voxnote/pkg/notes"
)

// ExtractionPrompt builds the system prompt for structured extraction. When a
// previous state exists it is serialized in full with merge instructions: the
// model returns the complete next state, never a diff.
func ExtractionPrompt(prev *notes.Extraction, context string, today time.Time) string {
	date := today.Format("2006-01-02")

	stateSection := `
This is the FIRST recording in the session. Extract all tasks, events, and notes from the transcript.
`
	if !prev.Empty() {
		prevJSON, _ := json.MarshalIndent(prev, "", "  ")
		stateSection = fmt.Sprintf(`
**IMPORTANT: Previous State Exists**
You have been provided with the user's previous tasks, events, and notes from earlier recordings.
The user's NEW transcript may:
- Add new tasks, events, or notes
- Update or modify existing items (e.g., "move that deadline to next week", "cancel the meeting")
- Complete or delete tasks (e.g., "I finished the report", "scratch that task")
- Add subtasks to existing tasks
- Reference previous items implicitly or explicitly

Your job is to MERGE the new transcript with the previous state intelligently:
1. If the user mentions updating/modifying an existing item, UPDATE it in your output
2. If the user adds new items, ADD them to the existing ones
3. If the user completes or cancels items, REMOVE them or mark as completed
4. Maintain all items that aren't mentioned in the new transcript
5. Use context clues to match references (e.g., "the meeting" likely refers to a recent event)

PREVIOUS STATE:
%s
`, string(prevJSON))
	}

	contextSection := ""
	if context != "" {
		contextSection = "\nAdditional Context: " + context
	}

	return fmt.Sprintf(`You are an AI assistant that extracts actionable items from voice note transcripts.

This is an ITERATIVE session. The user may record multiple audio segments in sequence.
%s
Analyze the NEW transcript and extract/update:
1. **Tasks**: Action items with optional due dates, priority, and subtasks
2. **Events**: Calendar events with dates and times
3. **Notes**: General information or ideas

Return ONLY valid JSON in this exact format (ALL items, merged with previous state):
{
  "tasks": [
    {
      "title": "string",
      "description": "string",
      "due_date": "YYYY-MM-DD or null",
      "priority": "low|medium|high",
      "subtasks": [
        {
          "title": "string",
          "completed": false
        }
      ]
    }
  ],
  "events": [
    {
      "title": "string",
      "date": "YYYY-MM-DD",
      "time": "HH:MM or null",
      "description": "string"
    }
  ],
  "notes": [
    {
      "content": "string",
      "category": "string or null"
    }
  ]
}

Important:
- Break down complex tasks into subtasks when appropriate
- Subtasks should be specific, actionable steps
- The "subtasks" array can be empty or omitted if not needed
- All subtasks default to completed: false
- When merging, include ALL relevant items (previous + new/updated)
- Use intelligent matching to identify which previous items are being referenced

Today's date is %s.%s`, stateSection, date, contextSection)
}

// DocumentPrompt builds the system prompt for document-mode merging. The model
// returns the complete replacement document as raw markdown, no wrapper.
func DocumentPrompt(currentMarkdown, context string, today time.Time) string {
	date := today.Format("2006-01-02")

	docSection := `
This is the FIRST recording in the session. Create a new Markdown document with all tasks, events, and notes from the transcript.
`
	if currentMarkdown != "" {
		docSection = fmt.Sprintf(`
**IMPORTANT: Existing Document Provided**
You have been given the current state of the user's Markdown document.
The user's NEW transcript may:
- Add new tasks, events, or notes to the document
- Update or modify existing items (e.g., "move that deadline to next week", "cancel the meeting")
- Complete tasks (mark checkboxes as checked)
- Delete or remove items (e.g., "scratch that task", "I finished the report - remove it")
- Add details or context to existing items
- Reference previous items implicitly or explicitly

Your job is to UPDATE the Markdown document intelligently:
1. If the user mentions updating/modifying an existing item, UPDATE it in place
2. If the user adds new items, ADD them to the appropriate section
3. If the user completes tasks, CHECK the checkbox: - [ ] becomes - [x]
4. If the user cancels or removes items, DELETE them from the document along with their sub-bullets
5. Maintain all items that aren't mentioned in the new transcript
6. Use context clues to match references (e.g., "the dentist appointment" matches "Dentist checkup")
7. Preserve the overall structure and formatting of the document

CURRENT MARKDOWN DOCUMENT:
`+"```markdown\n%s\n```\n", currentMarkdown)
	}

	contextSection := ""
	if context != "" {
		contextSection = "\nAdditional Context: " + context
	}

	return fmt.Sprintf(`You are an AI assistant that maintains and updates a Markdown document based on voice note transcripts.

This is an ITERATIVE session. The user may record multiple audio segments in sequence, and you will update the same Markdown document with each new transcript.
%s
## Instructions

Analyze the NEW transcript and update the Markdown document accordingly.

Use this recommended structure (adapt as needed based on content):

`+"```markdown"+`
# My Notes

## Tasks
- [ ] Task title (due: YYYY-MM-DD) [priority: high/medium/low]
  - Additional details or description
  - [ ] Subtask 1

## Events
- **Event title**: YYYY-MM-DD @ HH:MM
  - Event description or details

## Notes
- General note or idea
`+"```"+`

Formatting rules:
- Tasks use checkbox format: "- [ ]" for incomplete, "- [x]" for completed
- Include due dates in parentheses when mentioned: (due: YYYY-MM-DD)
- Add priority tags when clear: [priority: high/medium/low]
- Events use bold titles with "YYYY-MM-DD @ HH:MM" (or just the date when no time is known)
- Use ## for main section headings and ### for subsections
- If the user says "tomorrow", "next week", etc., calculate the actual date based on today (%s)

### Output Format

Return ONLY the updated Markdown document. Do not include:
- JSON formatting
- Code fences around the entire output
- Explanations or commentary
- Metadata or frontmatter (unless already present in the current document)

Just output the raw Markdown text that should replace the current document.

Today's date is %s.%s`, docSection, date, date, contextSection)
}
