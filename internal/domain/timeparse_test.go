package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	want := time.Date(2025, 10, 1, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		raw  string
		want time.Time
	}{
		{"2025-10-01T12:30:00Z", want},
		{"2025-10-01T09:30:00-03:00", want},
		{"2025-10-01T12:30:00", want},
		{"2025-10-01 12:30:00", want},
		{"2025-10-01T12:30", want},
		{"2025-10-01", time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)},
		{" 2025-10-01T12:30:00.000Z ", want},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseTime(tt.raw)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	_, err := ParseTime("mañana")
	assert.ErrorIs(t, err, ErrInvalidTime)
}
