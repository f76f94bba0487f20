package store

import (
	"context"
	"fmt"

	"github.com/roach88/formsignal/internal/ir"
)

// WriteSession inserts a session record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) WriteSession(ctx context.Context, sess ir.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions
		(id, scenario, form, form_hash, engine_version, trace_version, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		sess.ID,
		sess.Scenario,
		sess.Form,
		sess.FormHash,
		sess.EngineVersion,
		ir.TraceVersion,
		sess.Seq,
	)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// FinishSession records the last seq used by a session.
func (s *Store) FinishSession(ctx context.Context, sessionID string, seq int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET seq = ? WHERE id = ?`, seq, sessionID)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish session %s: %w", sessionID, ErrNotFound)
	}
	return nil
}

// WriteObservation inserts an observation record.
//
// The reading is serialized to canonical JSON. An empty ID or fingerprint
// is computed from the content, so callers may leave them unset.
// Duplicate IDs are silently ignored; a different observation reusing a
// (session_id, seq) pair is an error.
//
// Note: The session referenced by SessionID must exist (foreign key constraint).
func (s *Store) WriteObservation(ctx context.Context, obs ir.Observation) error {
	return s.writeObservation(ctx, s.db, obs)
}

// WriteObservations inserts a batch of observations in one transaction.
func (s *Store) WriteObservations(ctx context.Context, batch []ir.Observation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write observations: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, obs := range batch {
		if err := s.writeObservation(ctx, tx, obs); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write observations: commit: %w", err)
	}
	return nil
}

func (s *Store) writeObservation(ctx context.Context, db execer, obs ir.Observation) error {
	obs, err := Complete(obs)
	if err != nil {
		return fmt.Errorf("write observation: %w", err)
	}
	reading, err := marshalReading(obs.Reading)
	if err != nil {
		return fmt.Errorf("write observation: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO observations
		(id, session_id, seq, step, watch, path, run, reading, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		obs.ID,
		obs.SessionID,
		obs.Seq,
		obs.Step,
		obs.Watch,
		obs.Path,
		obs.Run,
		reading,
		obs.Fingerprint,
	)
	if err != nil {
		return fmt.Errorf("write observation seq=%d: %w", obs.Seq, err)
	}
	return nil
}

// Complete fills in the fingerprint and ID of obs from its content.
// Readings that are not objects are fingerprinted wrapped as
// {"value": reading}.
func Complete(obs ir.Observation) (ir.Observation, error) {
	if obs.Fingerprint == "" {
		fp, err := ir.Fingerprint(fingerprintInput(obs.Reading))
		if err != nil {
			return obs, err
		}
		obs.Fingerprint = fp
	}
	if obs.ID == "" {
		id, err := ir.ObservationID(obs.SessionID, obs.Seq, obs.Watch, obs.Fingerprint)
		if err != nil {
			return obs, err
		}
		obs.ID = id
	}
	return obs, nil
}

func fingerprintInput(v ir.Value) ir.Object {
	if obj, ok := v.(ir.Object); ok {
		return obj
	}
	if v == nil {
		v = ir.Null{}
	}
	return ir.Object{"value": v}
}
