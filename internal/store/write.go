package store

import (
	"context"
	"fmt"
)

// BeginRun inserts a run record. Rewriting an existing run is a no-op.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("begin run: empty run id")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, name)
		VALUES (?, ?)
		ON CONFLICT(id) DO NOTHING
	`, run.ID, run.Name)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// WriteEmission inserts an emission record.
// Uses ON CONFLICT DO NOTHING for idempotency - duplicate writes are silently ignored.
//
// Note: The run referenced by RunID must exist (foreign key constraint).
func (s *Store) WriteEmission(ctx context.Context, rec EmissionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO emissions
		(id, run_id, seq, source, class, signal, args)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		rec.ID,
		rec.RunID,
		rec.Seq,
		int64(rec.Source),
		rec.Class,
		rec.Signal,
		rec.Args,
	)
	if err != nil {
		return fmt.Errorf("write emission: %w", err)
	}
	return nil
}

// WriteDispatch inserts a dispatch record.
// Uses ON CONFLICT DO NOTHING for idempotency - duplicate writes are silently ignored.
//
// Note: The emission (RunID, EmissionSeq) must exist (foreign key constraint).
func (s *Store) WriteDispatch(ctx context.Context, rec DispatchRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dispatches
		(id, run_id, seq, emission_seq, target, callable, outcome, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		rec.ID,
		rec.RunID,
		rec.Seq,
		rec.EmissionSeq,
		int64(rec.Target),
		rec.Callable,
		rec.Outcome,
		rec.Error,
	)
	if err != nil {
		return fmt.Errorf("write dispatch: %w", err)
	}
	return nil
}
