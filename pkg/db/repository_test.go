package db

import (
	"testing"
)

func testRepo(t *testing.T) *Repository {
	t.Helper()
	database, err := NewDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })
	if err := database.InitSchema(); err != nil {
		t.Fatal(err)
	}
	return NewRepository(database)
}

func TestLogAndListNotes(t *testing.T) {
	repo := testRepo(t)

	entries := []NoteLog{
		{NoteID: "note_1_aaaaaaaaa", SessionID: "s1", Format: "json", StorageURL: "file:///a.json", StorageType: "local", Transcript: "first"},
		{NoteID: "note_2_bbbbbbbbb", SessionID: "s1", Format: "markdown", StorageURL: "s3://b/notes/n.md", StorageType: "s3", Transcript: "second", UsedFallback: true},
		{NoteID: "note_3_ccccccccc", SessionID: "s2", Format: "json", StorageURL: "file:///c.json", StorageType: "local", Transcript: "third"},
	}
	for _, e := range entries {
		if err := repo.LogNote(e); err != nil {
			t.Fatal(err)
		}
	}

	list, err := repo.ListRecentNotes(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 notes, got %d", len(list))
	}
	// Newest first.
	if list[0].NoteID != "note_3_ccccccccc" {
		t.Errorf("unexpected order: %v", list)
	}
	if !list[1].UsedFallback {
		t.Errorf("fallback flag lost: %+v", list[1])
	}
	if list[0].CreatedAt.IsZero() {
		t.Error("created_at not populated")
	}
}

func TestListRecentNotesLimit(t *testing.T) {
	repo := testRepo(t)
	for _, id := range []string{"note_1_aaaaaaaaa", "note_2_bbbbbbbbb", "note_3_ccccccccc"} {
		if err := repo.LogNote(NoteLog{NoteID: id, Format: "json", StorageURL: "u", StorageType: "local"}); err != nil {
			t.Fatal(err)
		}
	}

	list, err := repo.ListRecentNotes(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Errorf("limit not applied, got %d", len(list))
	}

	// Zero falls back to the default limit.
	list, err = repo.ListRecentNotes(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Errorf("expected all notes with default limit, got %d", len(list))
	}
}

func TestLogNoteDuplicateID(t *testing.T) {
	repo := testRepo(t)
	entry := NoteLog{NoteID: "note_1_aaaaaaaaa", Format: "json", StorageURL: "u", StorageType: "local"}
	if err := repo.LogNote(entry); err != nil {
		t.Fatal(err)
	}
	if err := repo.LogNote(entry); err == nil {
		t.Error("expected unique constraint violation")
	}
}

func TestCountSessionNotes(t *testing.T) {
	repo := testRepo(t)
	for i, id := range []string{"note_1_aaaaaaaaa", "note_2_bbbbbbbbb", "note_3_ccccccccc"} {
		sid := "s1"
		if i == 2 {
			sid = "s2"
		}
		if err := repo.LogNote(NoteLog{NoteID: id, SessionID: sid, Format: "json", StorageURL: "u", StorageType: "local"}); err != nil {
			t.Fatal(err)
		}
	}

	n, err := repo.CountSessionNotes("s1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2, got %d", n)
	}

	n, err = repo.CountSessionNotes("missing")
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expected 0, got %d", n)
	}
}
