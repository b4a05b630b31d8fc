package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/taxtab/internal/service"
)

var fastRetry = service.RetryOptions{
	MaxAttempts:  3,
	InitialDelay: time.Millisecond,
	MaxDelay:     5 * time.Millisecond,
	Multiplier:   2,
}

func TestWithRetry(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		attempts := 0
		err := WithRetry(context.Background(), func() error {
			attempts++
			if attempts < 3 {
				return errors.New("transient")
			}
			return nil
		}, fastRetry)
		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		attempts := 0
		cause := errors.New("down")
		err := WithRetry(context.Background(), func() error {
			attempts++
			return cause
		}, fastRetry)
		assert.ErrorIs(t, err, ErrMaxRetries)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, 3, attempts)
	})

	t.Run("permanent errors stop immediately", func(t *testing.T) {
		attempts := 0
		err := WithRetry(context.Background(), func() error {
			attempts++
			return Permanent(ErrNotFound)
		}, fastRetry)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NotErrorIs(t, err, ErrMaxRetries)
		assert.Equal(t, 1, attempts)
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := WithRetry(ctx, func() error { return nil }, fastRetry)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestUserError(t *testing.T) {
	err := NewUserError("--year is required", ErrMissingConfig)
	assert.Equal(t, "--year is required: missing configuration", err.Error())
	assert.ErrorIs(t, err, ErrMissingConfig)

	var userErr *UserError
	require.ErrorAs(t, fmt.Errorf("import: %w", err), &userErr)
	assert.Equal(t, "--year is required", userErr.UserMessage)

	assert.Equal(t, "plain", NewUserError("plain", nil).Error())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetupLogger(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	require.NoError(t, SetupLogger(slog.LevelWarn, "json"))
	assert.False(t, slog.Default().Enabled(context.Background(), slog.LevelInfo))
	require.NoError(t, SetupLogger(slog.LevelDebug, "console"))
	assert.True(t, slog.Default().Enabled(context.Background(), slog.LevelDebug))

	assert.ErrorIs(t, SetupLogger(slog.LevelInfo, "xml"), ErrInvalidConfig)
}
