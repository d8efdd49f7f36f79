package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ReadRuns returns every run, oldest first. Run ids are UUIDv7, so id order
// is creation order.
func (s *Store) ReadRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name FROM runs ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns one run. Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	var r Run
	err := s.db.QueryRowContext(ctx, `SELECT id, name FROM runs WHERE id = ?`, id).Scan(&r.ID, &r.Name)
	if err != nil {
		return Run{}, err
	}
	return r, nil
}

// LatestRun returns the most recent run. Returns sql.ErrNoRows if the
// journal is empty.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	var r Run
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name FROM runs ORDER BY id COLLATE BINARY DESC LIMIT 1
	`).Scan(&r.ID, &r.Name)
	if err != nil {
		return Run{}, err
	}
	return r, nil
}

// ReadEmissions returns a run's emissions ordered by seq. A non-empty
// signal restricts the result to that signal.
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) ReadEmissions(ctx context.Context, runID, signal string) ([]EmissionRecord, error) {
	query := `
		SELECT id, run_id, seq, source, class, signal, args
		FROM emissions
		WHERE run_id = ?`
	args := []any{runID}
	if signal != "" {
		query += ` AND signal = ?`
		args = append(args, signal)
	}
	query += ` ORDER BY seq ASC, id COLLATE BINARY ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query emissions: %w", err)
	}
	defer rows.Close()

	out := []EmissionRecord{}
	for rows.Next() {
		rec, err := scanEmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate emissions: %w", err)
	}
	return out, nil
}

// ReadDispatches returns the dispatches of one emission ordered by seq.
// Deferred calls flushed later appear after the emission's own dispatches.
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) ReadDispatches(ctx context.Context, runID string, emissionSeq int64) ([]DispatchRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, seq, emission_seq, target, callable, outcome, error
		FROM dispatches
		WHERE run_id = ? AND emission_seq = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, runID, emissionSeq)
	if err != nil {
		return nil, fmt.Errorf("query dispatches: %w", err)
	}
	defer rows.Close()

	out := []DispatchRecord{}
	for rows.Next() {
		rec, err := scanDispatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dispatches: %w", err)
	}
	return out, nil
}

// CountDispatches returns how many dispatches of a run had the given
// outcome.
func (s *Store) CountDispatches(ctx context.Context, runID, outcome string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM dispatches WHERE run_id = ? AND outcome = ?
	`, runID, outcome).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count dispatches: %w", err)
	}
	return n, nil
}

// MaxSeq returns the highest seq journaled for a run, or 0 if it has none.
func (s *Store) MaxSeq(ctx context.Context, runID string) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(seq) FROM (
			SELECT seq FROM emissions WHERE run_id = ?
			UNION ALL
			SELECT seq FROM dispatches WHERE run_id = ?
		)
	`, runID, runID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	return seq.Int64, nil
}

func scanEmission(rows *sql.Rows) (EmissionRecord, error) {
	var (
		rec    EmissionRecord
		source int64
	)
	if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Seq, &source, &rec.Class, &rec.Signal, &rec.Args); err != nil {
		return EmissionRecord{}, fmt.Errorf("scan emission: %w", err)
	}
	rec.Source = uint64(source)
	return rec, nil
}

func scanDispatch(rows *sql.Rows) (DispatchRecord, error) {
	var (
		rec    DispatchRecord
		target int64
	)
	if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Seq, &rec.EmissionSeq, &target, &rec.Callable, &rec.Outcome, &rec.Error); err != nil {
		return DispatchRecord{}, fmt.Errorf("scan dispatch: %w", err)
	}
	rec.Target = uint64(target)
	return rec, nil
}
