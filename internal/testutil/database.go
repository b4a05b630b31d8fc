// Package testutil provides shared helpers for tests that need a populated database.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/taxtab/internal/model"
	"github.com/Veraticus/taxtab/internal/storage"
)

// TestDB represents a migrated in-memory database.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database.
// It automatically handles migrations and cleanup.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// MustSaveDataset stores records under a new dataset and returns it.
//
// Example:
//
//	base := db.MustSaveDataset("base-2023", 2023, model.ScenarioBaseline, records)
func (db *TestDB) MustSaveDataset(name string, year int, scenario model.Scenario, records []model.Record) *model.Dataset {
	db.t.Helper()

	dataset := &model.Dataset{
		Name:         name,
		Year:         year,
		Scenario:     scenario,
		Source:       name + ".csv",
		WeightColumn: "s006",
	}
	if err := db.Storage.SaveDataset(context.Background(), dataset, records); err != nil {
		db.t.Fatalf("failed to seed dataset %q: %v", name, err)
	}
	return dataset
}

// Record builds a record from alternating name/value pairs.
func Record(id int64, weight float64, pairs ...any) model.Record {
	values := make(map[string]float64, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		name, _ := pairs[i].(string)
		switch v := pairs[i+1].(type) {
		case float64:
			values[name] = v
		case int:
			values[name] = float64(v)
		}
	}
	return model.Record{ID: id, Weight: weight, Values: values}
}
