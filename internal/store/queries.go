package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/blackwell-systems/depaudit/internal/analyzer"
	"github.com/blackwell-systems/depaudit/internal/manifest"
)

// Run operations

// InsertRun records a run and its findings in one transaction. An empty
// run.ID is filled with a new uuid and a zero CreatedAt with the current
// time. The counts on run are recomputed from results.
func (s *Store) InsertRun(run *Run, results []analyzer.ClassificationResult) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	run.CreatedAt = run.CreatedAt.UTC()

	sum := analyzer.Summarize(results)
	run.Declarations = sum.Total
	run.Flagged = sum.Flagged
	run.FlaggedSizeMB = sum.FlaggedSizeMB

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs
		(id, manifest_path, mode, created_at, declaration_count, flagged_count, flagged_size_mb)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.ManifestPath,
		string(run.Mode),
		run.CreatedAt.Format(time.RFC3339Nano),
		run.Declarations,
		run.Flagged,
		run.FlaggedSizeMB,
	)
	if err != nil {
		return wrapErr(err, "failed to insert run %s", run.ID)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO findings
		(run_id, line_number, group_id, artifact, version, config_kind, raw_line,
		 category, confidence, size_mb, flagged, recommendation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return wrapErr(err, "failed to prepare finding insert")
	}
	defer stmt.Close()

	for _, r := range results {
		_, err := stmt.Exec(
			run.ID,
			r.LineNumber,
			r.Group,
			r.Artifact,
			r.Version,
			string(r.ConfigKind),
			r.RawLine,
			string(r.UsageCategory),
			r.Confidence,
			r.EstimatedSizeMB,
			r.IsFlaggedForRemoval,
			string(r.Recommendation),
		)
		if err != nil {
			return fmt.Errorf("failed to insert finding %s: %w", r.Coordinate(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", run.ID, err)
	}
	return nil
}

const runColumns = `id, manifest_path, mode, created_at, declaration_count, flagged_count, flagged_size_mb`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var mode, createdAt string

	if err := row.Scan(
		&run.ID,
		&run.ManifestPath,
		&mode,
		&createdAt,
		&run.Declarations,
		&run.Flagged,
		&run.FlaggedSizeMB,
	); err != nil {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at for run %s: %w", run.ID, err)
	}
	run.CreatedAt = t
	run.Mode = analyzer.Mode(mode)

	return &run, nil
}

// GetRun retrieves a run by its full ID or a unique ID prefix.
func (s *Store) GetRun(id string) (*Run, error) {
	if id == "" {
		return nil, ErrRunNotFound
	}

	rows, err := s.db.Query(
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR id LIKE ? ORDER BY created_at DESC LIMIT 2`,
		id, id+"%",
	)
	if err != nil {
		return nil, wrapErr(err, "failed to get run %s", id)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		if run.ID == id {
			return run, nil
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	switch len(runs) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return runs[0], nil
	default:
		return nil, fmt.Errorf("run ID prefix %q is ambiguous", id)
	}
}

// ListRuns returns runs newest first. An empty manifestPath lists runs for
// every manifest; limit <= 0 means no limit.
func (s *Store) ListRuns(manifestPath string, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if manifestPath != "" {
		query += ` WHERE manifest_path = ?`
		args = append(args, manifestPath)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, wrapErr(err, "failed to list runs")
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// DeleteRun removes a run and, by cascade, its findings.
func (s *Store) DeleteRun(id string) error {
	result, err := s.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return wrapErr(err, "failed to delete run %s", id)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// PruneRuns keeps the newest keep runs per manifest and deletes the rest,
// returning the number of runs removed.
func (s *Store) PruneRuns(keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}

	result, err := s.db.Exec(`
		DELETE FROM runs WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY manifest_path ORDER BY created_at DESC, rowid DESC
				) AS rn
				FROM runs
			) WHERE rn > ?
		)
	`, keep)
	if err != nil {
		return 0, wrapErr(err, "failed to prune runs")
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// Finding operations

// GetFindings returns the stored results of a run in manifest order.
func (s *Store) GetFindings(runID string) ([]analyzer.ClassificationResult, error) {
	var mode string
	err := s.db.QueryRow(`SELECT mode FROM runs WHERE id = ?`, runID).Scan(&mode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, wrapErr(err, "failed to get run %s", runID)
	}

	rows, err := s.db.Query(`
		SELECT line_number, group_id, artifact, version, config_kind, raw_line,
		       category, confidence, size_mb, flagged, recommendation
		FROM findings
		WHERE run_id = ?
		ORDER BY line_number, rowid
	`, runID)
	if err != nil {
		return nil, wrapErr(err, "failed to get findings for run %s", runID)
	}
	defer rows.Close()

	results := []analyzer.ClassificationResult{}
	for rows.Next() {
		var r analyzer.ClassificationResult
		var kind, category, rec string
		var raw sql.NullString

		err := rows.Scan(
			&r.LineNumber,
			&r.Group,
			&r.Artifact,
			&r.Version,
			&kind,
			&raw,
			&category,
			&r.Confidence,
			&r.EstimatedSizeMB,
			&r.IsFlaggedForRemoval,
			&rec,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan finding row: %w", err)
		}

		r.ConfigKind = manifest.ConfigKind(kind)
		r.RawLine = raw.String
		r.UsageCategory = analyzer.UsageCategory(category)
		r.Recommendation = analyzer.Recommendation(rec)
		r.Mode = analyzer.Mode(mode)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating findings: %w", err)
	}

	return results, nil
}
