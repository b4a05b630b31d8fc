package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/taxtab/internal/common"
	"github.com/Veraticus/taxtab/internal/model"
	"github.com/Veraticus/taxtab/internal/service"
)

// queryable is satisfied by both *sql.DB and *sql.Tx.
type queryable interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const datasetColumns = `id, name, year, scenario, source, weight_column, variables,
	record_count, reform_name, created_at`

// SaveDataset stores dataset metadata and its records in a single transaction.
// On success dataset.ID, RecordCount, Variables and CreatedAt are populated.
func (s *SQLiteStorage) SaveDataset(ctx context.Context, dataset *model.Dataset, records []model.Record) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateDataset(dataset); err != nil {
		return err
	}
	if err := validateRecords(records); err != nil {
		return err
	}

	if len(dataset.Variables) == 0 {
		dataset.Variables = model.VariableNames(records)
	}
	variables, err := json.Marshal(dataset.Variables)
	if err != nil {
		return fmt.Errorf("failed to encode variables: %w", err)
	}
	if dataset.CreatedAt.IsZero() {
		dataset.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO datasets (name, year, scenario, source, weight_column, variables,
			record_count, reform_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, dataset.Name, dataset.Year, string(dataset.Scenario), dataset.Source,
		dataset.WeightColumn, string(variables), len(records),
		nullString(dataset.ReformName), dataset.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("dataset %q: %w", dataset.Name, common.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to insert dataset: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get dataset id: %w", err)
	}

	if err := insertRecords(ctx, tx, id, records); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dataset: %w", err)
	}

	dataset.ID = id
	dataset.RecordCount = len(records)
	return nil
}

func insertRecords(ctx context.Context, tx *sql.Tx, datasetID int64, records []model.Record) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (dataset_id, record_id, weight, vals)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, record := range records {
		vals, err := json.Marshal(record.Values)
		if err != nil {
			return fmt.Errorf("failed to encode record %d: %w", record.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, datasetID, record.ID, record.Weight, string(vals)); err != nil {
			return fmt.Errorf("failed to insert record %d (index %d): %w", record.ID, i, err)
		}
	}
	return nil
}

// GetDataset retrieves dataset metadata by id.
func (s *SQLiteStorage) GetDataset(ctx context.Context, id int64) (*model.Dataset, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+datasetColumns+` FROM datasets WHERE id = ?`, id)
	dataset, err := scanDataset(row)
	if err != nil {
		return nil, notFound(err, "dataset", id)
	}
	return dataset, nil
}

// GetDatasetByName retrieves dataset metadata by its unique name.
func (s *SQLiteStorage) GetDatasetByName(ctx context.Context, name string) (*model.Dataset, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+datasetColumns+` FROM datasets WHERE name = ?`, name)
	dataset, err := scanDataset(row)
	if err != nil {
		return nil, notFound(err, "dataset", name)
	}
	return dataset, nil
}

// ListDatasets returns datasets ordered by year, scenario and name.
func (s *SQLiteStorage) ListDatasets(ctx context.Context, filter service.DatasetFilter) ([]model.Dataset, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if filter.Scenario != "" {
		where = append(where, "scenario = ?")
		args = append(args, string(filter.Scenario))
	}
	if filter.Year != 0 {
		where = append(where, "year = ?")
		args = append(args, filter.Year)
	}

	query := `SELECT ` + datasetColumns + ` FROM datasets`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY year, scenario, name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var datasets []model.Dataset
	for rows.Next() {
		dataset, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		datasets = append(datasets, *dataset)
	}
	return datasets, rows.Err()
}

// DeleteDataset removes a dataset and, by cascade, its records.
func (s *SQLiteStorage) DeleteDataset(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM datasets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("dataset %d: %w", id, common.ErrNotFound)
	}
	return nil
}

// GetRecords returns a dataset's records in the order they were imported.
func (s *SQLiteStorage) GetRecords(ctx context.Context, datasetID int64) ([]model.Record, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT record_count FROM datasets WHERE id = ?`, datasetID).Scan(&count)
	if err != nil {
		return nil, notFound(err, "dataset", datasetID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT record_id, weight, vals
		FROM records
		WHERE dataset_id = ?
		ORDER BY rowid
	`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]model.Record, 0, count)
	for rows.Next() {
		var (
			record model.Record
			vals   string
		)
		if err := rows.Scan(&record.ID, &record.Weight, &vals); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		if err := json.Unmarshal([]byte(vals), &record.Values); err != nil {
			return nil, fmt.Errorf("record %d: %w: %w", record.ID, common.ErrDatabaseCorrupted, err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDataset(row scanner) (*model.Dataset, error) {
	var (
		dataset      model.Dataset
		scenario     string
		source       sql.NullString
		weightColumn sql.NullString
		variables    string
		reformName   sql.NullString
	)
	err := row.Scan(
		&dataset.ID,
		&dataset.Name,
		&dataset.Year,
		&scenario,
		&source,
		&weightColumn,
		&variables,
		&dataset.RecordCount,
		&reformName,
		&dataset.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	dataset.Scenario = model.Scenario(scenario)
	dataset.Source = source.String
	dataset.WeightColumn = weightColumn.String
	dataset.ReformName = reformName.String
	if err := json.Unmarshal([]byte(variables), &dataset.Variables); err != nil {
		return nil, fmt.Errorf("dataset %d variables: %w: %w", dataset.ID, common.ErrDatabaseCorrupted, err)
	}
	return &dataset, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
