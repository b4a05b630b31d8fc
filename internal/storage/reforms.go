package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Veraticus/taxtab/internal/common"
	"github.com/Veraticus/taxtab/internal/model"
)

// SaveReform stores a reform, replacing any reform with the same name.
func (s *SQLiteStorage) SaveReform(ctx context.Context, reform *model.Reform) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateReform(reform); err != nil {
		return err
	}

	params, err := json.Marshal(reform.Parameters)
	if err != nil {
		return fmt.Errorf("failed to encode reform parameters: %w", err)
	}
	if reform.CreatedAt.IsZero() {
		reform.CreatedAt = time.Now().UTC()
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO reforms (name, source, parameters, raw, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			source = excluded.source,
			parameters = excluded.parameters,
			raw = excluded.raw,
			created_at = excluded.created_at
		RETURNING id
	`, reform.Name, reform.Source, string(params), reform.Raw, reform.CreatedAt).Scan(&reform.ID)
	if err != nil {
		return fmt.Errorf("failed to save reform %q: %w", reform.Name, err)
	}
	return nil
}

// GetReform retrieves a reform by name.
func (s *SQLiteStorage) GetReform(ctx context.Context, name string) (*model.Reform, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, source, parameters, raw, created_at
		FROM reforms
		WHERE name = ?
	`, name)
	reform, err := scanReform(row)
	if err != nil {
		return nil, notFound(err, "reform", name)
	}
	return reform, nil
}

// ListReforms returns all stored reforms ordered by name.
func (s *SQLiteStorage) ListReforms(ctx context.Context) ([]model.Reform, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, source, parameters, raw, created_at
		FROM reforms
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list reforms: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var reforms []model.Reform
	for rows.Next() {
		reform, err := scanReform(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reform: %w", err)
		}
		reforms = append(reforms, *reform)
	}
	return reforms, rows.Err()
}

func scanReform(row scanner) (*model.Reform, error) {
	var (
		reform model.Reform
		params string
	)
	if err := row.Scan(&reform.ID, &reform.Name, &reform.Source, &params, &reform.Raw, &reform.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(params), &reform.Parameters); err != nil {
		return nil, fmt.Errorf("reform %q parameters: %w: %w", reform.Name, common.ErrDatabaseCorrupted, err)
	}
	return &reform, nil
}
