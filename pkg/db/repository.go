package db

import (
	"fmt"
	"time"
)

// Repository handles data access
type Repository struct {
	db *DB
}

// NewRepository creates a new Repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// NoteLog is one processed recording in the local ledger. The ledger is an
// index over what was persisted, not the durable store itself.
type NoteLog struct {
	ID           int64
	NoteID       string
	SessionID    string
	Format       string // json or markdown
	StorageURL   string
	StorageType  string // s3 or local
	Transcript   string
	UsedFallback bool
	CreatedAt    time.Time
}

// LogNote records a successfully persisted note.
func (r *Repository) LogNote(n NoteLog) error {
	query := `INSERT INTO notes (note_id, session_id, format, storage_url, storage_type, transcript, used_fallback)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.Exec(query, n.NoteID, n.SessionID, n.Format, n.StorageURL, n.StorageType, n.Transcript, n.UsedFallback)
	if err != nil {
		return fmt.Errorf("failed to log note: %w", err)
	}
	return nil
}

// ListRecentNotes returns up to limit notes, newest first.
func (r *Repository) ListRecentNotes(limit int) ([]NoteLog, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, note_id, session_id, format, storage_url, storage_type, transcript, used_fallback, created_at
		FROM notes ORDER BY created_at DESC, id DESC LIMIT ?`
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	var out []NoteLog
	for rows.Next() {
		var n NoteLog
		if err := rows.Scan(&n.ID, &n.NoteID, &n.SessionID, &n.Format, &n.StorageURL, &n.StorageType, &n.Transcript, &n.UsedFallback, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// CountSessionNotes returns how many recordings a session has persisted.
func (r *Repository) CountSessionNotes(sessionID string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM notes WHERE session_id = ?`, sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count session notes: %w", err)
	}
	return count, nil
}
