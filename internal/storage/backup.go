package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// ErrBackupExists is returned when the backup destination is already present.
var ErrBackupExists = errors.New("backup destination already exists")

// BackupInfo describes a completed database backup.
type BackupInfo struct {
	CreatedAt time.Time
	RowCounts map[string]int
	Path      string
	Size      int64
}

// Backup writes a consistent copy of the database to destPath.
func (s *SQLiteStorage) Backup(ctx context.Context, destPath string) (*BackupInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(destPath, "destPath"); err != nil {
		return nil, err
	}

	destPath, err := filepath.Abs(destPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve backup path: %w", err)
	}
	if _, statErr := os.Stat(destPath); statErr == nil {
		return nil, fmt.Errorf("%w: %s", ErrBackupExists, destPath)
	}
	if mkErr := os.MkdirAll(filepath.Dir(destPath), 0750); mkErr != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", mkErr)
	}

	counts, err := s.rowCounts(ctx)
	if err != nil {
		return nil, err
	}

	if s.dbPath != ":memory:" {
		if _, walErr := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); walErr != nil {
			return nil, fmt.Errorf("failed to checkpoint WAL: %w", walErr)
		}
	}

	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", destPath); err != nil {
		return nil, fmt.Errorf("failed to backup database: %w", err)
	}

	info, err := os.Stat(destPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat backup: %w", err)
	}

	slog.Info("Database backed up", "path", destPath, "size", info.Size())

	return &BackupInfo{
		Path:      destPath,
		Size:      info.Size(),
		CreatedAt: time.Now(),
		RowCounts: counts,
	}, nil
}

func (s *SQLiteStorage) rowCounts(ctx context.Context) (map[string]int, error) {
	// Explicit queries per table; table names are never interpolated.
	tableQueries := map[string]string{
		"datasets":    "SELECT COUNT(*) FROM datasets",
		"records":     "SELECT COUNT(*) FROM records",
		"reforms":     "SELECT COUNT(*) FROM reforms",
		"report_runs": "SELECT COUNT(*) FROM report_runs",
	}

	counts := make(map[string]int, len(tableQueries))
	for table, query := range tableQueries {
		var count int
		if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = count
	}
	return counts, nil
}
