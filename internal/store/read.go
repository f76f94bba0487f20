package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/formsignal/internal/ir"
)

// ErrNotFound is returned when a requested session does not exist.
var ErrNotFound = errors.New("not found")

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// ReadSession returns the session with the given ID.
func (s *Store) ReadSession(ctx context.Context, id string) (ir.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, scenario, form, form_hash, engine_version, seq
		FROM sessions
		WHERE id = ?
	`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Session{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return ir.Session{}, fmt.Errorf("read session: %w", err)
	}
	return sess, nil
}

// ListSessions returns all sessions, optionally filtered by scenario.
// UUIDv7 IDs make ID order creation order.
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListSessions(ctx context.Context, scenario string) ([]ir.Session, error) {
	query := `
		SELECT id, scenario, form, form_hash, engine_version, seq
		FROM sessions
		ORDER BY id COLLATE BINARY ASC
	`
	args := []any{}
	if scenario != "" {
		query = `
		SELECT id, scenario, form, form_hash, engine_version, seq
		FROM sessions
		WHERE scenario = ?
		ORDER BY id COLLATE BINARY ASC
	`
		args = append(args, scenario)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []ir.Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ReadObservations returns the observations of a session in seq order.
// A non-empty watch restricts the result to that watch.
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) ReadObservations(ctx context.Context, sessionID, watch string) ([]ir.Observation, error) {
	query := `
		SELECT id, session_id, seq, step, watch, path, run, reading, fingerprint
		FROM observations
		WHERE session_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`
	args := []any{sessionID}
	if watch != "" {
		query = `
		SELECT id, session_id, seq, step, watch, path, run, reading, fingerprint
		FROM observations
		WHERE session_id = ? AND watch = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`
		args = append(args, watch)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	observations := []ir.Observation{}
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		observations = append(observations, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observations: %w", err)
	}
	return observations, nil
}

// LastSeq returns the highest seq recorded for a session, or 0.
func (s *Store) LastSeq(ctx context.Context, sessionID string) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(seq) FROM observations WHERE session_id = ?`, sessionID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

func scanSession(row rowScanner) (ir.Session, error) {
	var sess ir.Session
	err := row.Scan(
		&sess.ID,
		&sess.Scenario,
		&sess.Form,
		&sess.FormHash,
		&sess.EngineVersion,
		&sess.Seq,
	)
	return sess, err
}

func scanObservation(row rowScanner) (ir.Observation, error) {
	var obs ir.Observation
	var reading string
	if err := row.Scan(
		&obs.ID,
		&obs.SessionID,
		&obs.Seq,
		&obs.Step,
		&obs.Watch,
		&obs.Path,
		&obs.Run,
		&reading,
		&obs.Fingerprint,
	); err != nil {
		return obs, fmt.Errorf("scan observation: %w", err)
	}

	v, err := unmarshalReading(reading)
	if err != nil {
		return obs, fmt.Errorf("observation %s: %w", obs.ID, err)
	}
	obs.Reading = v
	return obs, nil
}
