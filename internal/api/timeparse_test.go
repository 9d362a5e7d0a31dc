package api

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPITimeJSON(t *testing.T) {
	var body struct {
		Inicio apiTime `json:"inicio"`
		Fin    apiTime `json:"fin"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"inicio":"2025-10-01T00:00:00","fin":null}`), &body))
	assert.Equal(t, time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), body.Inicio.Time)
	assert.True(t, body.Fin.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"inicio":12}`), &body))
	assert.Error(t, json.Unmarshal([]byte(`{"inicio":"ayer"}`), &body))
}
