package store

import (
	"database/sql"
	"errors"
	"time"
)

// Transcript represents text recognized in a saved drawing.
type Transcript struct {
	ID         string
	SessionID  string
	ImagePath  string
	Text       string
	Confidence float64
	CreatedAt  time.Time
}

// TranscriptRepository provides CRUD operations for transcripts.
type TranscriptRepository struct {
	db *sql.DB
}

// Transcripts returns the transcript repository for this store.
func (s *Store) Transcripts() *TranscriptRepository {
	return &TranscriptRepository{db: s.db}
}

// Create inserts a new transcript into the database.
func (r *TranscriptRepository) Create(t *Transcript) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	var sessionID interface{}
	if t.SessionID != "" {
		sessionID = t.SessionID
	}

	_, err := r.db.Exec(
		`INSERT INTO transcripts (id, session_id, image_path, text, confidence, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, sessionID, t.ImagePath, t.Text, t.Confidence, t.CreatedAt,
	)
	return err
}

// List retrieves all transcripts, newest first.
func (r *TranscriptRepository) List() ([]*Transcript, error) {
	rows, err := r.db.Query(
		`SELECT id, COALESCE(session_id, ''), image_path, text, confidence, created_at
		 FROM transcripts ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transcripts []*Transcript
	for rows.Next() {
		t := &Transcript{}
		if err := rows.Scan(&t.ID, &t.SessionID, &t.ImagePath, &t.Text, &t.Confidence, &t.CreatedAt); err != nil {
			return nil, err
		}
		transcripts = append(transcripts, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return transcripts, nil
}

// BySession retrieves the transcripts for one session, newest first.
func (r *TranscriptRepository) BySession(sessionID string) ([]*Transcript, error) {
	rows, err := r.db.Query(
		`SELECT id, COALESCE(session_id, ''), image_path, text, confidence, created_at
		 FROM transcripts WHERE session_id = ? ORDER BY created_at DESC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transcripts []*Transcript
	for rows.Next() {
		t := &Transcript{}
		if err := rows.Scan(&t.ID, &t.SessionID, &t.ImagePath, &t.Text, &t.Confidence, &t.CreatedAt); err != nil {
			return nil, err
		}
		transcripts = append(transcripts, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return transcripts, nil
}

// Latest retrieves the most recent transcript.
func (r *TranscriptRepository) Latest() (*Transcript, error) {
	t := &Transcript{}

	err := r.db.QueryRow(
		`SELECT id, COALESCE(session_id, ''), image_path, text, confidence, created_at
		 FROM transcripts ORDER BY created_at DESC LIMIT 1`,
	).Scan(&t.ID, &t.SessionID, &t.ImagePath, &t.Text, &t.Confidence, &t.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return t, nil
}
