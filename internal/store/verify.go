package store

import (
	"context"
	"fmt"

	"github.com/roach88/formsignal/internal/ir"
)

// Mismatch describes a stored observation whose content no longer
// matches its recorded fingerprint or ID.
type Mismatch struct {
	Seq    int64
	Watch  string
	Field  string // "fingerprint" or "id"
	Stored string
	Actual string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("seq=%d watch=%s: %s stored %s, computed %s",
		m.Seq, m.Watch, m.Field, short(m.Stored), short(m.Actual))
}

func short(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// Verify recomputes the fingerprint and ID of every observation of a
// session and reports those that differ. Seq gaps are reported too, with
// Field "seq".
func (s *Store) Verify(ctx context.Context, sessionID string) ([]Mismatch, error) {
	if _, err := s.ReadSession(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	observations, err := s.ReadObservations(ctx, sessionID, "")
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}

	var mismatches []Mismatch
	var prev int64
	for _, obs := range observations {
		if obs.Seq != prev+1 {
			mismatches = append(mismatches, Mismatch{
				Seq:    obs.Seq,
				Watch:  obs.Watch,
				Field:  "seq",
				Stored: fmt.Sprint(obs.Seq),
				Actual: fmt.Sprint(prev + 1),
			})
		}
		prev = obs.Seq

		fp, err := ir.Fingerprint(fingerprintInput(obs.Reading))
		if err != nil {
			return nil, fmt.Errorf("verify seq=%d: %w", obs.Seq, err)
		}
		if fp != obs.Fingerprint {
			mismatches = append(mismatches, Mismatch{
				Seq: obs.Seq, Watch: obs.Watch, Field: "fingerprint",
				Stored: obs.Fingerprint, Actual: fp,
			})
		}

		id, err := ir.ObservationID(obs.SessionID, obs.Seq, obs.Watch, obs.Fingerprint)
		if err != nil {
			return nil, fmt.Errorf("verify seq=%d: %w", obs.Seq, err)
		}
		if id != obs.ID {
			mismatches = append(mismatches, Mismatch{
				Seq: obs.Seq, Watch: obs.Watch, Field: "id",
				Stored: obs.ID, Actual: id,
			})
		}
	}
	return mismatches, nil
}
