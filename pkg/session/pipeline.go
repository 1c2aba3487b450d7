package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gophertribe/voxnote/pkg/calendar"
	"github.com/gophertribe/voxnote/pkg/db"
	"github.com/gophertribe/voxnote/pkg/extract"
	"github.com/gophertribe/voxnote/pkg/notes"
	"github.com/gophertribe/voxnote/pkg/storage"
	"github.com/gophertribe/voxnote/pkg/transcribe"
)

// ErrNoAudio rejects a request carrying neither audio bytes nor a URL before
// any processing is attempted.
var ErrNoAudio = errors.New("no audio data provided")

// Upstream transcription and extraction calls can take seconds each; the
// ceiling is deliberately generous.
const defaultTimeout = 5 * time.Minute

// Transcriber is the transcription-service contract used by the pipeline.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (transcribe.Result, error)
	TranscribeURL(ctx context.Context, audioURL string) (transcribe.Result, error)
}

// Saver is the durable-store contract used by the pipeline.
type Saver interface {
	SaveNote(ctx context.Context, transcript string, ext notes.Extraction, audioURL string) (storage.Result, error)
	SaveMarkdown(ctx context.Context, markdown, transcript, audioURL string) (storage.Result, error)
}

// Syncer pushes the local notes directory to a git remote after a save.
type Syncer interface {
	Sync(message string) error
}

// Audio is one recording to process: either raw bytes or a fetchable URL.
type Audio struct {
	Data     []byte
	URL      string
	MimeType string
}

// Outcome is the consolidated result of one processed recording.
type Outcome struct {
	RequestID     string
	Transcript    string
	Confidence    float64
	AudioDuration float64

	Extraction   notes.Extraction // structured mode
	Markdown     string           // document mode
	UsedFallback bool

	Storage       storage.Result
	CalendarLinks []string
}

// Processor runs the per-recording pipeline: transcribe → extract/merge →
// persist → calendar links, strictly in that order. Calendar, Repo and Git
// are optional; everything else is required.
type Processor struct {
	Transcriber Transcriber
	Extractor   *extract.Extractor
	Store       Saver
	Calendar    calendar.API
	Repo        *db.Repository
	Git         Syncer
	Timeout     time.Duration
}

// ProcessStructured runs one recording in structured mode. When sess is nil
// the caller supplies the previous state explicitly (stateless API use);
// otherwise the session's accumulated state feeds the merge and is replaced
// on success only.
func (p *Processor) ProcessStructured(ctx context.Context, sess *Session, audio Audio, prev *notes.Extraction) (*Outcome, error) {
	reqID := newRequestID()
	if err := validateAudio(audio); err != nil {
		return &Outcome{RequestID: reqID}, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()

	prevState := notes.Extraction{}
	if prev != nil {
		prevState = prev.Clone()
	}
	if sess != nil {
		if err := sess.StartCapture(); err != nil {
			return &Outcome{RequestID: reqID}, err
		}
		var err error
		prevState, _, err = sess.beginProcessing()
		if err != nil {
			return &Outcome{RequestID: reqID}, err
		}
	}

	out, err := p.runStructured(ctx, reqID, sessionID(sess), audio, prevState)
	if err != nil {
		if sess != nil {
			sess.fail()
		}
		return &Outcome{RequestID: reqID}, err
	}
	if sess != nil {
		sess.commitStructured(out.Extraction.Clone(), out.Transcript)
	}
	return out, nil
}

// ProcessDocument runs one recording in document mode, merging into the
// session document (or the explicitly supplied current document when sess is
// nil).
func (p *Processor) ProcessDocument(ctx context.Context, sess *Session, audio Audio, current string) (*Outcome, error) {
	reqID := newRequestID()
	if err := validateAudio(audio); err != nil {
		return &Outcome{RequestID: reqID}, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()

	if sess != nil {
		if err := sess.StartCapture(); err != nil {
			return &Outcome{RequestID: reqID}, err
		}
		var err error
		_, current, err = sess.beginProcessing()
		if err != nil {
			return &Outcome{RequestID: reqID}, err
		}
	}

	out, err := p.runDocument(ctx, reqID, sessionID(sess), audio, current)
	if err != nil {
		if sess != nil {
			sess.fail()
		}
		return &Outcome{RequestID: reqID}, err
	}
	if sess != nil {
		sess.commitDocument(out.Markdown, out.Transcript)
	}
	return out, nil
}

func (p *Processor) runStructured(ctx context.Context, reqID, sessID string, audio Audio, prev notes.Extraction) (*Outcome, error) {
	tr, err := p.transcribeStep(ctx, reqID, audio)
	if err != nil {
		return nil, err
	}

	log.Printf("[%s] extracting tasks (previous: %d tasks, %d events, %d notes)",
		reqID, len(prev.Tasks), len(prev.Events), len(prev.Notes))
	start := time.Now()
	ext, usedFallback, err := p.Extractor.Extract(ctx, tr.Transcript, &prev, "")
	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}
	log.Printf("[%s] extraction complete in %s (tasks=%d events=%d notes=%d fallback=%v)",
		reqID, time.Since(start).Round(time.Millisecond), len(ext.Tasks), len(ext.Events), len(ext.Notes), usedFallback)

	res, err := p.Store.SaveNote(ctx, tr.Transcript, ext, audio.URL)
	if err != nil {
		return nil, err
	}
	log.Printf("[%s] saved note %s to %s (%s)", reqID, res.NoteID, res.StorageURL, res.StorageType)

	links := p.calendarStep(ctx, reqID, ext.Events, prev.Events)

	p.finishStep(reqID, db.NoteLog{
		NoteID:       res.NoteID,
		SessionID:    sessID,
		Format:       "json",
		StorageURL:   res.StorageURL,
		StorageType:  res.StorageType,
		Transcript:   tr.Transcript,
		UsedFallback: usedFallback,
	})

	return &Outcome{
		RequestID:     reqID,
		Transcript:    tr.Transcript,
		Confidence:    tr.Confidence,
		AudioDuration: tr.Duration,
		Extraction:    ext,
		UsedFallback:  usedFallback,
		Storage:       res,
		CalendarLinks: links,
	}, nil
}

func (p *Processor) runDocument(ctx context.Context, reqID, sessID string, audio Audio, current string) (*Outcome, error) {
	tr, err := p.transcribeStep(ctx, reqID, audio)
	if err != nil {
		return nil, err
	}

	log.Printf("[%s] updating document (current length %d)", reqID, len(current))
	start := time.Now()
	doc, usedFallback, err := p.Extractor.MergeDocument(ctx, tr.Transcript, current, "")
	if err != nil {
		return nil, fmt.Errorf("document merge failed: %w", err)
	}
	log.Printf("[%s] document update complete in %s (length %d, fallback=%v)",
		reqID, time.Since(start).Round(time.Millisecond), len(doc), usedFallback)

	res, err := p.Store.SaveMarkdown(ctx, doc, tr.Transcript, audio.URL)
	if err != nil {
		return nil, err
	}
	log.Printf("[%s] saved note %s to %s (%s)", reqID, res.NoteID, res.StorageURL, res.StorageType)

	p.finishStep(reqID, db.NoteLog{
		NoteID:       res.NoteID,
		SessionID:    sessID,
		Format:       "markdown",
		StorageURL:   res.StorageURL,
		StorageType:  res.StorageType,
		Transcript:   tr.Transcript,
		UsedFallback: usedFallback,
	})

	return &Outcome{
		RequestID:     reqID,
		Transcript:    tr.Transcript,
		Confidence:    tr.Confidence,
		AudioDuration: tr.Duration,
		Markdown:      doc,
		UsedFallback:  usedFallback,
		Storage:       res,
	}, nil
}

func (p *Processor) transcribeStep(ctx context.Context, reqID string, audio Audio) (transcribe.Result, error) {
	log.Printf("[%s] transcribing audio (bytes=%d url=%q)", reqID, len(audio.Data), audio.URL)
	start := time.Now()

	var tr transcribe.Result
	var err error
	if audio.URL != "" {
		tr, err = p.Transcriber.TranscribeURL(ctx, audio.URL)
	} else {
		tr, err = p.Transcriber.Transcribe(ctx, audio.Data, audio.MimeType)
	}
	if err != nil {
		return transcribe.Result{}, fmt.Errorf("transcription failed: %w", err)
	}
	log.Printf("[%s] transcription complete in %s (confidence=%.2f)", reqID, time.Since(start).Round(time.Millisecond), tr.Confidence)
	return tr, nil
}

// calendarStep builds deep links for every event and, when a calendar service
// is configured, inserts the ones that are new this recording. The merged
// state carries every previous event forward, so events already present in
// prev were inserted when they first appeared; re-inserting them would
// duplicate them in the real calendar. Links are regenerated for all events:
// the builder is a pure string transform. Per-event failures are reported and
// skipped; they never fail the recording.
func (p *Processor) calendarStep(ctx context.Context, reqID string, events, prev []notes.Event) []string {
	inserted := make(map[string]bool, len(prev))
	for _, ev := range prev {
		inserted[eventKey(ev)] = true
	}

	var links []string
	for i := range events {
		ev := &events[i]
		link, err := calendar.BuildLink(ev.Title, ev.Date, ev.Time, ev.Description)
		if err != nil {
			log.Printf("[%s] calendar link for %q failed: %v", reqID, ev.Title, err)
			continue
		}
		ev.CalendarLink = link
		links = append(links, link)

		if p.Calendar == nil || inserted[eventKey(*ev)] {
			continue
		}
		if _, err := p.Calendar.CreateEvent(ctx, *ev); err != nil {
			log.Printf("[%s] calendar insert for %q failed: %v", reqID, ev.Title, err)
		}
	}
	return links
}

// eventKey identifies one event across merges: the title plus start fields the
// calendar entry is built from. A rescheduled event gets a new key and a new
// insertion.
func eventKey(ev notes.Event) string {
	return ev.Title + "|" + ev.Date + "|" + ev.Time
}

// finishStep records the note in the local ledger and kicks off git sync.
// Both are best-effort: the note is already durable.
func (p *Processor) finishStep(reqID string, entry db.NoteLog) {
	if p.Repo != nil {
		if err := p.Repo.LogNote(entry); err != nil {
			log.Printf("[%s] failed to index note %s: %v", reqID, entry.NoteID, err)
		}
	}
	if p.Git != nil {
		go func() {
			if err := p.Git.Sync("Add note " + entry.NoteID); err != nil {
				log.Printf("[%s] git sync failed: %v", reqID, err)
			}
		}()
	}
}

func (p *Processor) timeout() time.Duration {
	if p.Timeout > 0 {
		return p.Timeout
	}
	return defaultTimeout
}

func validateAudio(a Audio) error {
	if len(a.Data) == 0 && a.URL == "" {
		return ErrNoAudio
	}
	return nil
}

func newRequestID() string {
	return "req_" + uuid.NewString()
}

func sessionID(s *Session) string {
	if s == nil {
		return ""
	}
	return s.ID()
}
