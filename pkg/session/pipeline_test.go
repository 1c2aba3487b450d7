package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gophertribe/voxnote/pkg/extract"
	"github.com/gophertribe/voxnote/pkg/notes"
	"github.com/gophertribe/voxnote/pkg/storage"
	"github.com/gophertribe/voxnote/pkg/transcribe"
)

type fakeTranscriber struct {
	result transcribe.Result
	err    error
	gotURL string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ []byte, _ string) (transcribe.Result, error) {
	return f.result, f.err
}

func (f *fakeTranscriber) TranscribeURL(_ context.Context, url string) (transcribe.Result, error) {
	f.gotURL = url
	return f.result, f.err
}

type fakeSaver struct {
	err    error
	notes  int
	docs   int
	lastMD string
}

func (f *fakeSaver) SaveNote(_ context.Context, _ string, _ notes.Extraction, _ string) (storage.Result, error) {
	if f.err != nil {
		return storage.Result{}, f.err
	}
	f.notes++
	return storage.Result{NoteID: "note_1_abcdefghi", StorageURL: "file:///tmp/note.json", StorageType: storage.TypeLocal}, nil
}

func (f *fakeSaver) SaveMarkdown(_ context.Context, markdown, _, _ string) (storage.Result, error) {
	if f.err != nil {
		return storage.Result{}, f.err
	}
	f.docs++
	f.lastMD = markdown
	return storage.Result{NoteID: "note_1_abcdefghi", StorageURL: "file:///tmp/note.md", StorageType: storage.TypeLocal}, nil
}

type fakeCalendar struct {
	created []string
	err     error
}

func (f *fakeCalendar) CreateEvent(_ context.Context, ev notes.Event) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.created = append(f.created, ev.Title)
	return "evt_" + ev.Title, nil
}

func newTestProcessor(tr *fakeTranscriber, sv *fakeSaver) *Processor {
	// A nil generator makes the extractor fully deterministic.
	return &Processor{
		Transcriber: tr,
		Extractor:   extract.New(nil),
		Store:       sv,
	}
}

func TestProcessStructuredStateless(t *testing.T) {
	tr := &fakeTranscriber{result: transcribe.Result{Transcript: "Remind me to buy milk", Confidence: 0.97}}
	sv := &fakeSaver{}
	p := newTestProcessor(tr, sv)

	out, err := p.ProcessStructured(context.Background(), nil, Audio{Data: []byte{1}}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if !strings.HasPrefix(out.RequestID, "req_") {
		t.Errorf("malformed request ID %q", out.RequestID)
	}
	if len(out.Extraction.Tasks) != 1 {
		t.Errorf("expected fallback task, got %+v", out.Extraction)
	}
	if !out.UsedFallback {
		t.Error("nil generator must report fallback")
	}
	if sv.notes != 1 {
		t.Errorf("expected one saved note, got %d", sv.notes)
	}
}

func TestProcessStructuredMergesPreviousState(t *testing.T) {
	tr := &fakeTranscriber{result: transcribe.Result{Transcript: "Need to call the plumber"}}
	p := newTestProcessor(tr, &fakeSaver{})

	prev := notes.Extraction{Notes: []notes.Note{{Content: "kept note", Category: "general"}}}
	out, err := p.ProcessStructured(context.Background(), nil, Audio{Data: []byte{1}}, &prev)
	if err != nil {
		t.Fatal(err)
	}

	if len(out.Extraction.Notes) != 1 || out.Extraction.Notes[0].Content != "kept note" {
		t.Errorf("previous state lost: %+v", out.Extraction)
	}
	if len(out.Extraction.Tasks) != 1 {
		t.Errorf("new task missing: %+v", out.Extraction)
	}
}

func TestProcessStructuredSessionCommit(t *testing.T) {
	tr := &fakeTranscriber{result: transcribe.Result{Transcript: "Remind me to vote"}}
	p := newTestProcessor(tr, &fakeSaver{})
	sess := NewManager().Create(ModeStructured)

	if _, err := p.ProcessStructured(context.Background(), sess, Audio{Data: []byte{1}}, nil); err != nil {
		t.Fatal(err)
	}

	snap := sess.Snapshot()
	if snap.State != StateComplete || snap.Recordings != 1 {
		t.Errorf("session not committed: %+v", snap)
	}
	if len(snap.Extraction.Tasks) != 1 {
		t.Errorf("merged state not stored: %+v", snap.Extraction)
	}

	// Second recording merges into the committed state.
	tr.result.Transcript = "Don't forget the dry cleaning"
	if _, err := p.ProcessStructured(context.Background(), sess, Audio{Data: []byte{1}}, nil); err != nil {
		t.Fatal(err)
	}
	if got := len(sess.Snapshot().Extraction.Tasks); got != 2 {
		t.Errorf("expected 2 accumulated tasks, got %d", got)
	}
}

func TestProcessStructuredStorageFailureKeepsSession(t *testing.T) {
	tr := &fakeTranscriber{result: transcribe.Result{Transcript: "Remind me to vote"}}
	sv := &fakeSaver{err: &storage.Error{Backend: storage.TypeS3, Err: errors.New("denied")}}
	p := newTestProcessor(tr, sv)

	sess := NewManager().Create(ModeStructured)
	sess.commitStructured(notes.Extraction{Tasks: []notes.Task{{Title: "old"}}}, "first")

	out, err := p.ProcessStructured(context.Background(), sess, Audio{Data: []byte{1}}, nil)
	if err == nil {
		t.Fatal("expected storage error")
	}
	if out == nil || out.RequestID == "" {
		t.Error("error outcome must still carry the request ID")
	}

	snap := sess.Snapshot()
	if snap.State != StateError {
		t.Errorf("expected error state, got %q", snap.State)
	}
	// Nothing is committed when persistence fails.
	if len(snap.Extraction.Tasks) != 1 || snap.Extraction.Tasks[0].Title != "old" {
		t.Errorf("state changed despite failed save: %+v", snap.Extraction)
	}
	if snap.Recordings != 1 {
		t.Errorf("failed recording counted: %d", snap.Recordings)
	}
}

func TestProcessStructuredTranscriptionFailure(t *testing.T) {
	tr := &fakeTranscriber{err: &transcribe.Error{StatusCode: 500, Message: "boom"}}
	p := newTestProcessor(tr, &fakeSaver{})

	_, err := p.ProcessStructured(context.Background(), nil, Audio{Data: []byte{1}}, nil)
	if err == nil {
		t.Fatal("expected transcription error")
	}
	var terr *transcribe.Error
	if !errors.As(err, &terr) {
		t.Errorf("transcription error not preserved in chain: %v", err)
	}
}

func TestProcessRejectsEmptyAudio(t *testing.T) {
	p := newTestProcessor(&fakeTranscriber{}, &fakeSaver{})

	if _, err := p.ProcessStructured(context.Background(), nil, Audio{}, nil); !errors.Is(err, ErrNoAudio) {
		t.Errorf("expected ErrNoAudio, got %v", err)
	}
	if _, err := p.ProcessDocument(context.Background(), nil, Audio{}, ""); !errors.Is(err, ErrNoAudio) {
		t.Errorf("expected ErrNoAudio, got %v", err)
	}
}

func TestProcessUsesURLTranscription(t *testing.T) {
	tr := &fakeTranscriber{result: transcribe.Result{Transcript: "hello from a link"}}
	p := newTestProcessor(tr, &fakeSaver{})

	if _, err := p.ProcessStructured(context.Background(), nil, Audio{URL: "https://cdn.example/voice.ogg"}, nil); err != nil {
		t.Fatal(err)
	}
	if tr.gotURL != "https://cdn.example/voice.ogg" {
		t.Errorf("URL path not taken, got %q", tr.gotURL)
	}
}

func TestCalendarStepIsBestEffort(t *testing.T) {
	cal := &fakeCalendar{err: errors.New("quota")}
	p := &Processor{Calendar: cal}

	events := []notes.Event{
		{Title: "Dentist", Date: "2025-03-20", Time: "14:30"},
		{Title: "Broken", Date: "not-a-date"},
	}
	links := p.calendarStep(context.Background(), "req_test", events, nil)

	// The valid event still gets a deep link even though insertion failed;
	// the invalid one is skipped entirely.
	if len(links) != 1 {
		t.Fatalf("expected one link, got %v", links)
	}
	if !strings.Contains(links[0], "calendar.google.com") {
		t.Errorf("unexpected link %q", links[0])
	}
	if events[0].CalendarLink == "" {
		t.Error("link not written back onto the event")
	}
	if events[1].CalendarLink != "" {
		t.Error("invalid event should have no link")
	}
}

func TestCalendarInsertSkipsCarriedOverEvents(t *testing.T) {
	tr := &fakeTranscriber{result: transcribe.Result{Transcript: "Schedule a meeting with Bob tomorrow"}}
	cal := &fakeCalendar{}
	p := newTestProcessor(tr, &fakeSaver{})
	p.Calendar = cal
	sess := NewManager().Create(ModeStructured)

	// First recording extracts the event and inserts it.
	if _, err := p.ProcessStructured(context.Background(), sess, Audio{Data: []byte{1}}, nil); err != nil {
		t.Fatal(err)
	}
	if len(cal.created) != 1 {
		t.Fatalf("expected one insert after first recording, got %v", cal.created)
	}

	// Second recording adds only a note; the merged state still carries the
	// event, but it must not be inserted again.
	tr.result.Transcript = "The garden looked lovely this morning"
	out, err := p.ProcessStructured(context.Background(), sess, Audio{Data: []byte{1}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(cal.created) != 1 {
		t.Errorf("carried-over event re-inserted: %v", cal.created)
	}
	// The deep link is still regenerated for the carried-over event.
	if len(out.CalendarLinks) != 1 {
		t.Errorf("expected link for the carried-over event, got %v", out.CalendarLinks)
	}

	// A genuinely new event on a later recording is inserted.
	tr.result.Transcript = "Schedule a dentist appointment"
	if _, err := p.ProcessStructured(context.Background(), sess, Audio{Data: []byte{1}}, nil); err != nil {
		t.Fatal(err)
	}
	if len(cal.created) != 2 {
		t.Errorf("new event not inserted: %v", cal.created)
	}
}

func TestProcessDocumentSessionCommit(t *testing.T) {
	tr := &fakeTranscriber{result: transcribe.Result{Transcript: "Remind me to stretch"}}
	sv := &fakeSaver{}
	p := newTestProcessor(tr, sv)
	sess := NewManager().Create(ModeDocument)

	out, err := p.ProcessDocument(context.Background(), sess, Audio{Data: []byte{1}}, "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.Markdown, "- [ ] Remind me to stretch") {
		t.Errorf("document missing task:\n%s", out.Markdown)
	}
	if sv.docs != 1 {
		t.Errorf("expected one saved document, got %d", sv.docs)
	}
	if sv.lastMD != out.Markdown {
		t.Error("persisted document differs from the outcome")
	}
	if sess.Snapshot().Document != out.Markdown {
		t.Error("document not committed to the session")
	}
}
