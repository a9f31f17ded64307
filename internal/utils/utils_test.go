package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-events/internal/store"
	"ms-events/internal/validation"
)

func TestParseTimestamp(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)

	ts, ok := ParseTimestamp("2025-05-10T09:30:00Z", loc)
	require.True(t, ok)
	assert.True(t, ts.Equal(time.Date(2025, 5, 10, 9, 30, 0, 0, time.UTC)))

	ts, ok = ParseTimestamp("2025-05-10T09:30", loc)
	require.True(t, ok)
	assert.Equal(t, loc, ts.Location())
	assert.Equal(t, 9, ts.Hour())

	ts, ok = ParseTimestamp(" 2025-05-10 ", loc)
	require.True(t, ok)
	assert.Equal(t, 10, ts.Day())

	_, ok = ParseTimestamp("next tuesday", loc)
	assert.False(t, ok)
	_, ok = ParseTimestamp("", loc)
	assert.False(t, ok)
}

func TestGenerateID(t *testing.T) {
	id := GenerateID()
	assert.True(t, ValidID(id))
	assert.NotEqual(t, id, GenerateID())
	assert.False(t, ValidID("681e52223ab5f5946dcacec8"))
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusNotFound, "Event not found", errors.New("no rows"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "Event not found", body.Message)
	assert.Equal(t, "no rows", body.Error)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{store.ErrInvalidID, http.StatusBadRequest},
		{&validation.Error{Fields: map[string]string{"title": "is required"}}, http.StatusBadRequest},
		{fmt.Errorf("get event: %w", store.ErrNotFound), http.StatusNotFound},
		{store.ErrAlreadyCheckedIn, http.StatusConflict},
		{store.ErrSoldOut, http.StatusConflict},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func TestWriteServiceErrorHidesInternals(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteServiceError(rec, "Failed to load events", errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
}
