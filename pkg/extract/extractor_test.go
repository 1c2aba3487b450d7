package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gophertribe/voxnote/pkg/ai"
	"github.com/gophertribe/voxnote/pkg/notes"
)

type stubGenerator struct {
	response string
	err      error
	system   string
	user     string
}

func (g *stubGenerator) Generate(_ context.Context, system, user string) (string, error) {
	g.system = system
	g.user = user
	return g.response, g.err
}

func (g *stubGenerator) Close() error { return nil }

func TestExtractParsesGenerativeResponse(t *testing.T) {
	gen := &stubGenerator{response: `{
		"tasks": [{"title": "Buy milk", "due_date": "2025-03-15"}],
		"events": [{"title": "Dentist", "date": "2025-03-20", "time": "14:30"}],
		"notes": [{"content": "Garden is blooming", "category": "personal"}]
	}`}
	x := New(gen)

	out, usedFallback, err := x.Extract(context.Background(), "some transcript", nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if usedFallback {
		t.Error("expected generative path")
	}
	if len(out.Tasks) != 1 || out.Tasks[0].Title != "Buy milk" {
		t.Errorf("unexpected tasks: %+v", out.Tasks)
	}
	if out.Tasks[0].Priority != notes.PriorityMedium {
		t.Errorf("expected priority normalized to medium, got %q", out.Tasks[0].Priority)
	}
	if len(out.Events) != 1 || out.Events[0].Time != "14:30" {
		t.Errorf("unexpected events: %+v", out.Events)
	}
	if !strings.Contains(gen.user, "some transcript") {
		t.Error("transcript not passed to the generator")
	}
}

func TestExtractStripsCodeFence(t *testing.T) {
	gen := &stubGenerator{response: "```json\n{\"tasks\": [], \"events\": [], \"notes\": [{\"content\": \"hi there\"}]}\n```"}
	x := New(gen)

	out, _, err := x.Extract(context.Background(), "t", nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Notes) != 1 {
		t.Errorf("unexpected notes: %+v", out.Notes)
	}
}

func TestExtractRejectsMalformedJSON(t *testing.T) {
	gen := &stubGenerator{response: "I could not produce JSON, sorry."}
	x := New(gen)

	_, _, err := x.Extract(context.Background(), "t", nil, "")
	if !errors.Is(err, ErrBadOutput) {
		t.Fatalf("expected ErrBadOutput, got %v", err)
	}
}

func TestExtractRejectsUnknownFields(t *testing.T) {
	gen := &stubGenerator{response: `{"tasks": [], "events": [], "notes": [], "reminders": []}`}
	x := New(gen)

	_, _, err := x.Extract(context.Background(), "t", nil, "")
	if !errors.Is(err, ErrBadOutput) {
		t.Fatalf("expected ErrBadOutput, got %v", err)
	}
}

func TestExtractRejectsInvalidDates(t *testing.T) {
	gen := &stubGenerator{response: `{"tasks": [], "events": [{"title": "X", "date": "tomorrow"}], "notes": []}`}
	x := New(gen)

	_, _, err := x.Extract(context.Background(), "t", nil, "")
	if !errors.Is(err, ErrBadOutput) {
		t.Fatalf("expected ErrBadOutput, got %v", err)
	}
}

func TestExtractFallsBackWhenUnavailable(t *testing.T) {
	gen := &stubGenerator{err: &ai.APIError{Provider: "anthropic", StatusCode: 429, Type: "rate_limit_error"}}
	x := New(gen)

	prev := notes.Extraction{Notes: []notes.Note{{Content: "kept", Category: "general"}}}
	out, usedFallback, err := x.Extract(context.Background(), "Remind me to vote", &prev, "")
	if err != nil {
		t.Fatal(err)
	}
	if !usedFallback {
		t.Error("expected fallback path")
	}
	if len(out.Notes) != 1 || out.Notes[0].Content != "kept" {
		t.Errorf("previous state lost on fallback: %+v", out)
	}
	if len(out.Tasks) != 1 {
		t.Errorf("expected fallback task, got %+v", out.Tasks)
	}
}

func TestExtractPropagatesOtherErrors(t *testing.T) {
	gen := &stubGenerator{err: errors.New("connection reset")}
	x := New(gen)

	_, _, err := x.Extract(context.Background(), "t", nil, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrBadOutput) {
		t.Error("transport errors are not contract violations")
	}
}

func TestExtractNilGeneratorUsesFallback(t *testing.T) {
	x := New(nil)
	if x.Available() {
		t.Error("nil generator should report unavailable")
	}

	out, usedFallback, err := x.Extract(context.Background(), "Remind me to stretch", nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if !usedFallback || len(out.Tasks) != 1 {
		t.Errorf("expected fallback extraction, got %+v (fallback=%v)", out, usedFallback)
	}
}

func TestExtractPreviousStateInPrompt(t *testing.T) {
	gen := &stubGenerator{response: `{"tasks": [], "events": [], "notes": []}`}
	x := New(gen)

	prev := notes.Extraction{Tasks: []notes.Task{{Title: "Carry me over"}}}
	if _, _, err := x.Extract(context.Background(), "t", &prev, ""); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(gen.system, "Carry me over") {
		t.Error("previous state missing from the system prompt")
	}
}

func TestMergeDocumentReturnsCleanedMarkdown(t *testing.T) {
	gen := &stubGenerator{response: "```markdown\n# My Notes\n\n## Tasks\n\n- [ ] New task\n```"}
	x := New(gen)

	doc, usedFallback, err := x.MergeDocument(context.Background(), "t", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if usedFallback {
		t.Error("expected generative path")
	}
	if strings.Contains(doc, "```") {
		t.Errorf("code fence not stripped:\n%s", doc)
	}
	if !strings.Contains(doc, "- [ ] New task") {
		t.Errorf("content lost:\n%s", doc)
	}
}

func TestMergeDocumentRejectsEmptyOutput(t *testing.T) {
	gen := &stubGenerator{response: "   \n"}
	x := New(gen)

	_, _, err := x.MergeDocument(context.Background(), "t", "# My Notes\n", "")
	if !errors.Is(err, ErrBadOutput) {
		t.Fatalf("expected ErrBadOutput, got %v", err)
	}
}

func TestMergeDocumentFallsBackWhenUnavailable(t *testing.T) {
	gen := &stubGenerator{err: &ai.APIError{Provider: "anthropic", StatusCode: 401, Type: "authentication_error"}}
	x := New(gen)

	current := "# My Notes\n\n## Notes\n\n- existing\n"
	doc, usedFallback, err := x.MergeDocument(context.Background(), "Remind me to nap", current, "")
	if err != nil {
		t.Fatal(err)
	}
	if !usedFallback {
		t.Error("expected fallback path")
	}
	if !strings.Contains(doc, "- existing") {
		t.Errorf("existing document text lost:\n%s", doc)
	}
}
