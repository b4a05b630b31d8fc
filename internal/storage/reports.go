package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Veraticus/taxtab/internal/model"
)

// DefaultHistoryLimit caps ListReportRuns when no limit is given.
const DefaultHistoryLimit = 20

// SaveReportRun records a rendered tabulation.
func (s *SQLiteStorage) SaveReportRun(ctx context.Context, run *model.ReportRun) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(run); err != nil {
		return err
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	reformID := sql.NullInt64{Int64: run.ReformDatasetID, Valid: run.ReformDatasetID > 0}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO report_runs (recipe, scheme, title, baseline_dataset_id, reform_dataset_id, rendered, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.Recipe, run.Scheme, run.Title, run.BaselineDatasetID, reformID, run.Rendered, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save report run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get report run id: %w", err)
	}
	run.ID = id
	return nil
}

// ListReportRuns returns the most recent report runs, newest first.
func (s *SQLiteStorage) ListReportRuns(ctx context.Context, limit int) ([]model.ReportRun, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recipe, scheme, title, baseline_dataset_id, reform_dataset_id, rendered, created_at
		FROM report_runs
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list report runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []model.ReportRun
	for rows.Next() {
		var (
			run      model.ReportRun
			title    sql.NullString
			reformID sql.NullInt64
		)
		if err := rows.Scan(&run.ID, &run.Recipe, &run.Scheme, &title,
			&run.BaselineDatasetID, &reformID, &run.Rendered, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report run: %w", err)
		}
		run.Title = title.String
		run.ReformDatasetID = reformID.Int64
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
