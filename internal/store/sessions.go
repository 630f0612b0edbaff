package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/pavelanni/survey/internal/model"
)

// Times are stored as Unix milliseconds so expiry can be compared in SQL.

// CreateSession registers a new session seen at now.
func (s *Store) CreateSession(id string, now time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, created_at, last_seen) VALUES (?, ?, ?)`,
		id, now.UnixMilli(), now.UnixMilli(),
	)
	return err
}

// GetSession returns the session with the given id, or nil if there is none.
func (s *Store) GetSession(id string) (*model.Session, error) {
	var (
		created, lastSeen int64
		adminUntil        sql.NullInt64
	)
	err := s.db.QueryRow(
		`SELECT created_at, last_seen, admin_until FROM sessions WHERE id = ?`, id,
	).Scan(&created, &lastSeen, &adminUntil)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sess := &model.Session{
		ID:        id,
		CreatedAt: time.UnixMilli(created),
		LastSeen:  time.UnixMilli(lastSeen),
	}
	if adminUntil.Valid {
		t := time.UnixMilli(adminUntil.Int64)
		sess.AdminUntil = &t
	}
	return sess, nil
}

// TouchSession records activity on a session.
func (s *Store) TouchSession(id string, now time.Time) error {
	_, err := s.db.Exec(`UPDATE sessions SET last_seen = ? WHERE id = ?`, now.UnixMilli(), id)
	return err
}

// SetAdminUntil grants admin access until the given time; nil revokes it.
func (s *Store) SetAdminUntil(id string, until *time.Time) error {
	var v sql.NullInt64
	if until != nil {
		v = sql.NullInt64{Int64: until.UnixMilli(), Valid: true}
	}
	_, err := s.db.Exec(`UPDATE sessions SET admin_until = ? WHERE id = ?`, v, id)
	return err
}

// DeleteSession removes a session.
func (s *Store) DeleteSession(id string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	return err
}

// DeleteExpiredSessions removes sessions last seen before cutoff and returns
// their ids.
func (s *Store) DeleteExpiredSessions(cutoff time.Time) ([]string, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.Query(`SELECT id FROM sessions WHERE last_seen < ? ORDER BY id`, cutoff.UnixMilli())
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(`DELETE FROM sessions WHERE last_seen < ?`, cutoff.UnixMilli()); err != nil {
		return nil, err
	}
	return ids, tx.Commit()
}

// SessionCount returns the number of registered sessions.
func (s *Store) SessionCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&count)
	return count, err
}
