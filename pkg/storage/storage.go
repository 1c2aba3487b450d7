package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/gophertribe/voxnote/pkg/notes"
)

// Storage backends.
const (
	TypeS3    = "s3"
	TypeLocal = "local"
)

// Config is the explicit storage policy: prefer-local wins unconditionally,
// otherwise the remote backend is attempted when fully configured, falling
// back to local on failure unless force-remote is set.
type Config struct {
	PreferLocal bool
	ForceRemote bool
	LocalDir    string

	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// RemoteConfigured reports whether credentials and a bucket are present.
func (c Config) RemoteConfigured() bool {
	return c.Bucket != "" && c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// Result describes where a note ended up. StorageType always names the backend
// that actually took the write, never the one that was merely attempted.
type Result struct {
	NoteID      string `json:"note_id"`
	StorageURL  string `json:"storage_url"`
	CreatedAt   string `json:"created_at"`
	StorageType string `json:"storage_type"`
}

// Error is a fatal persistence failure: the note is unsaved.
type Error struct {
	Backend string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s storage error: %v", e.Backend, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ObjectPutter is the narrow remote-backend interface, kept small for
// testability.
type ObjectPutter interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
}

// NoteRecord is the persisted structured-mode document.
type NoteRecord struct {
	ID         string        `json:"id"`
	Timestamp  string        `json:"timestamp"`
	Transcript string        `json:"transcript"`
	Tasks      []notes.Task  `json:"tasks"`
	Events     []notes.Event `json:"events"`
	Notes      []notes.Note  `json:"notes"`
	AudioURL   string        `json:"audio_url,omitempty"`
}

// markdownMeta is the JSON sidecar persisted next to a document-mode note.
type markdownMeta struct {
	ID         string `json:"id"`
	Timestamp  string `json:"timestamp"`
	Transcript string `json:"transcript"`
	AudioURL   string `json:"audio_url,omitempty"`
	Format     string `json:"format"`
}

// Store persists notes to S3 or the local filesystem per Config.
type Store struct {
	cfg    Config
	remote ObjectPutter
	now    func() time.Time
}

// NewStore creates a Store, connecting the S3 backend when the policy allows
// remote writes and credentials are configured.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.LocalDir == "" {
		cfg.LocalDir = filepath.Join("data", "notes")
	}
	s := &Store{cfg: cfg, now: time.Now}
	if !cfg.PreferLocal && cfg.RemoteConfigured() {
		backend, err := newS3Backend(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to init s3 backend: %w", err)
		}
		s.remote = backend
	}
	return s, nil
}

type object struct {
	name        string // file name / key suffix
	body        []byte
	contentType string
}

// SaveNote persists a structured-mode note and returns the storage result.
func (s *Store) SaveNote(ctx context.Context, transcript string, ext notes.Extraction, audioURL string) (Result, error) {
	id := newNoteID()
	ts := s.now().UTC().Format(time.RFC3339)

	rec := NoteRecord{
		ID:         id,
		Timestamp:  ts,
		Transcript: transcript,
		Tasks:      ext.Tasks,
		Events:     ext.Events,
		Notes:      ext.Notes,
		AudioURL:   audioURL,
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal note: %w", err)
	}

	return s.put(ctx, id, ts, []object{
		{name: id + ".json", body: data, contentType: "application/json"},
	})
}

// SaveMarkdown persists a document-mode note: the markdown file plus a JSON
// metadata sidecar. The storage URL points at the markdown file.
func (s *Store) SaveMarkdown(ctx context.Context, markdown, transcript, audioURL string) (Result, error) {
	id := newNoteID()
	ts := s.now().UTC().Format(time.RFC3339)

	meta, err := json.MarshalIndent(markdownMeta{
		ID:         id,
		Timestamp:  ts,
		Transcript: transcript,
		AudioURL:   audioURL,
		Format:     "markdown",
	}, "", "  ")
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	return s.put(ctx, id, ts, []object{
		{name: id + ".md", body: []byte(markdown), contentType: "text/markdown"},
		{name: id + ".meta.json", body: meta, contentType: "application/json"},
	})
}

// put applies the backend selection policy. Objects are written to exactly one
// backend per call; objs[0] is the primary object the result URL points at.
func (s *Store) put(ctx context.Context, id, ts string, objs []object) (Result, error) {
	if !s.cfg.PreferLocal && s.remote != nil {
		url, err := s.putRemote(ctx, objs)
		if err == nil {
			return Result{NoteID: id, StorageURL: url, CreatedAt: ts, StorageType: TypeS3}, nil
		}
		if s.cfg.ForceRemote {
			return Result{}, &Error{Backend: TypeS3, Err: err}
		}
		log.Printf("storage: s3 write failed, falling back to local: %v", err)
	}

	url, err := s.putLocal(objs)
	if err != nil {
		return Result{}, &Error{Backend: TypeLocal, Err: err}
	}
	return Result{NoteID: id, StorageURL: url, CreatedAt: ts, StorageType: TypeLocal}, nil
}

func (s *Store) putRemote(ctx context.Context, objs []object) (string, error) {
	for _, o := range objs {
		if err := s.remote.PutObject(ctx, "notes/"+o.name, o.body, o.contentType); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("s3://%s/notes/%s", s.cfg.Bucket, objs[0].name), nil
}

func (s *Store) putLocal(objs []object) (string, error) {
	if err := os.MkdirAll(s.cfg.LocalDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create notes directory: %w", err)
	}
	var primary string
	for i, o := range objs {
		path := filepath.Join(s.cfg.LocalDir, o.name)
		if err := os.WriteFile(path, o.body, 0644); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", o.name, err)
		}
		if i == 0 {
			abs, err := filepath.Abs(path)
			if err != nil {
				abs = path
			}
			primary = abs
		}
	}
	return "file://" + primary, nil
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// newNoteID builds a note identifier from creation time plus randomness.
// Uniqueness is best-effort, matching the persisted-record contract.
func newNoteID() string {
	suffix := make([]byte, 9)
	for i := range suffix {
		suffix[i] = base36[rand.IntN(len(base36))]
	}
	return fmt.Sprintf("note_%d_%s", time.Now().UnixMilli(), suffix)
}
