package sheets

import (
	"context"
	"sync"

	"github.com/Veraticus/taxtab/internal/aggregate"
)

// MockWriter is a TableWriter for tests.
type MockWriter struct {
	writeErr error
	url      string
	calls    [][]*aggregate.Table
	mu       sync.Mutex
}

// NewMockWriter creates a mock that reports url on success.
func NewMockWriter(url string) *MockWriter {
	return &MockWriter{url: url}
}

// Write records the call.
func (m *MockWriter) Write(_ context.Context, tables ...*aggregate.Table) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writeErr != nil {
		return "", m.writeErr
	}
	m.calls = append(m.calls, tables)
	return m.url, nil
}

// SetWriteError makes subsequent writes fail.
func (m *MockWriter) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// Calls returns the tables passed to each Write.
func (m *MockWriter) Calls() [][]*aggregate.Table {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]*aggregate.Table, len(m.calls))
	copy(out, m.calls)
	return out
}
