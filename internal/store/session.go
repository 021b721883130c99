package store

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Session represents a saved drawing session indexed in the database.
type Session struct {
	ID          string
	Name        string
	Path        string
	Autosave    bool
	StrokeCount int
	CreatedAt   time.Time
}

// SessionRepository provides CRUD operations for sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts a new session into the database.
func (r *SessionRepository) Create(s *Session) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, name, path, autosave, stroke_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.Name, s.Path, s.Autosave, s.StrokeCount, s.CreatedAt,
	)
	return err
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	s := &Session{}

	err := r.db.QueryRow(
		`SELECT id, name, path, autosave, stroke_count, created_at
		 FROM sessions WHERE id = ?`,
		id,
	).Scan(&s.ID, &s.Name, &s.Path, &s.Autosave, &s.StrokeCount, &s.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return s, nil
}

// GetByName retrieves a session by its name.
func (r *SessionRepository) GetByName(name string) (*Session, error) {
	s := &Session{}

	err := r.db.QueryRow(
		`SELECT id, name, path, autosave, stroke_count, created_at
		 FROM sessions WHERE name = ?`,
		name,
	).Scan(&s.ID, &s.Name, &s.Path, &s.Autosave, &s.StrokeCount, &s.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return s, nil
}

// List retrieves all sessions, newest first.
func (r *SessionRepository) List() ([]*Session, error) {
	rows, err := r.db.Query(
		`SELECT id, name, path, autosave, stroke_count, created_at
		 FROM sessions ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		s := &Session{}
		if err := rows.Scan(&s.ID, &s.Name, &s.Path, &s.Autosave, &s.StrokeCount, &s.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// Delete removes a session from the database by its ID.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// PruneAutosaves deletes autosave rows beyond the newest keep entries and
// returns the paths of the pruned files so the caller can remove them.
func (r *SessionRepository) PruneAutosaves(keep int) ([]string, error) {
	rows, err := r.db.Query(
		`SELECT id, path FROM sessions WHERE autosave = 1
		 ORDER BY created_at DESC LIMIT -1 OFFSET ?`,
		keep,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids, paths []string
	for rows.Next() {
		var id, path string
		if err := rows.Scan(&id, &path); err != nil {
			return nil, err
		}
		ids = append(ids, id)
		paths = append(paths, path)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range ids {
		if _, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id); err != nil {
			return paths, err
		}
	}
	return paths, nil
}
