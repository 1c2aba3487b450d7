package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/gophertribe/voxnote/pkg/notes"
)

// State is the session lifecycle state.
type State string

const (
	StateIdle       State = "idle"
	StateCapturing  State = "capturing"
	StateProcessing State = "processing"
	StateComplete   State = "complete"
	StateError      State = "error"
)

// Mode selects how accumulated state is represented. It is fixed for the
// lifetime of a session: switching requires a cleared session.
type Mode string

const (
	ModeStructured Mode = "structured"
	ModeDocument   Mode = "document"
)

var (
	// ErrBusy rejects a new recording while one is still being processed.
	ErrBusy = errors.New("session is already processing a recording")
	// ErrModeLocked rejects a mode switch on a session holding state.
	ErrModeLocked = errors.New("session mode can only change on a cleared session")
)

// Session owns the accumulated state for a sequence of recordings. Each merge
// replaces the state wholesale; a failed recording leaves it untouched.
type Session struct {
	mu sync.Mutex

	id         string
	mode       Mode
	state      State
	extraction notes.Extraction // structured mode
	document   string           // document mode

	transcripts []string
	recordings  int
}

// Snapshot is a read-only copy of a session for callers outside the pipeline.
type Snapshot struct {
	ID          string           `json:"id"`
	Mode        Mode             `json:"mode"`
	State       State            `json:"state"`
	Recordings  int              `json:"recordings"`
	Transcripts []string         `json:"transcripts"`
	Extraction  notes.Extraction `json:"extraction"`
	Document    string           `json:"document,omitempty"`
}

func newSession(mode Mode) *Session {
	return &Session{
		id:    uuid.NewString(),
		mode:  mode,
		state: StateIdle,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Mode returns the session's state representation mode.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Snapshot returns a copy of the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:          s.id,
		Mode:        s.mode,
		State:       s.state,
		Recordings:  s.recordings,
		Transcripts: append([]string(nil), s.transcripts...),
		Extraction:  s.extraction.Clone(),
		Document:    s.document,
	}
	return snap
}

// StartCapture begins a new recording. Valid from idle, complete (continue)
// and error (retry after a failed recording); a session mid-processing
// rejects it.
func (s *Session) StartCapture() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateProcessing {
		return ErrBusy
	}
	s.state = StateCapturing
	return nil
}

// Reset clears accumulated state, transcript history and the recording
// counter, returning the session to idle.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateIdle
	s.extraction = notes.Extraction{}
	s.document = ""
	s.transcripts = nil
	s.recordings = 0
}

// SetMode switches the state representation. Only a cleared session may
// switch: accumulated state in one representation cannot carry over.
func (s *Session) SetMode(mode Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recordings > 0 || len(s.transcripts) > 0 || !s.extraction.Empty() || s.document != "" {
		return ErrModeLocked
	}
	s.mode = mode
	return nil
}

// beginProcessing transitions capturing → processing and hands back copies of
// the accumulated state for the merge. Nothing is committed until
// commitStructured/commitDocument.
func (s *Session) beginProcessing() (notes.Extraction, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateProcessing {
		return notes.Extraction{}, "", ErrBusy
	}
	s.state = StateProcessing
	return s.extraction.Clone(), s.document, nil
}

func (s *Session) commitStructured(ext notes.Extraction, transcript string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extraction = ext
	s.transcripts = append(s.transcripts, transcript)
	s.recordings++
	s.state = StateComplete
}

func (s *Session) commitDocument(doc, transcript string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.document = doc
	s.transcripts = append(s.transcripts, transcript)
	s.recordings++
	s.state = StateComplete
}

// fail marks the recording failed. Accumulated state is left exactly as it
// was so the user can retry without data loss.
func (s *Session) fail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateError
}

// Manager tracks live sessions. Sessions share no state with each other and
// may be processed concurrently.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Create registers a new session with the given mode.
func (m *Manager) Create(mode Mode) *Session {
	s := newSession(mode)
	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()
	return s
}

// Get looks up a session by ID.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove drops a session from the manager.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
