package registration_api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-events/internal/auth"
	"ms-events/internal/clock"
	"ms-events/internal/config"
	"ms-events/internal/kafka"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/qr"
	"ms-events/internal/registrations"
	"ms-events/internal/registrations/registration_api"
	"ms-events/internal/sse"
	"ms-events/internal/store/bunstore"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// asStaff marks every protected request as coming from one organizer account.
func asStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), "staff-1")))
	})
}

func setupRouter(t *testing.T) (http.Handler, *sse.CheckInHub) {
	t.Helper()
	ctx := context.Background()
	db, err := bunstore.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	require.NoError(t, db.CreateEvent(ctx, &models.Event{ID: "evt-1", Title: "Expo", CreatedAt: now, UpdatedAt: now}))

	qrGen, err := qr.NewGenerator("handler-secret", 128)
	require.NoError(t, err)

	clk := clock.NewFixed(now)
	hub := sse.NewCheckInHub()
	svc := registrations.NewService(db, qrGen, hub, kafka.NopPublisher{}, config.Load().Kafka.Topics, clk, logger.Discard())

	r := chi.NewRouter()
	registration_api.NewHandler(svc, hub, logger.Discard()).RegisterRoutes(r, asStaff)
	return r, hub
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func register(t *testing.T, h http.Handler) registrations.Registered {
	t.Helper()
	rec, env := do(t, h, http.MethodPost, "/api/registrations", map[string]interface{}{
		"eventId": "evt-1",
		"customFields": map[string]string{
			"firstName": "Grace", "lastName": "Hopper", "email": "grace@example.com",
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, env.Error)

	var out registrations.Registered
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func TestRegisterUsesCallerAsUser(t *testing.T) {
	router, _ := setupRouter(t)

	out := register(t, router)
	assert.Equal(t, "staff-1", out.Registration.UserID)
	assert.Contains(t, out.QRPayload, "Token: ")

	rec, env := do(t, router, http.MethodGet, "/api/registrations?eventId=evt-1&q=hopper", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.Registration
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 1)
}

func TestRegisterForAnotherUserIsForbidden(t *testing.T) {
	router, _ := setupRouter(t)

	rec, env := do(t, router, http.MethodPost, "/api/registrations", map[string]interface{}{
		"eventId":      "evt-1",
		"userId":       "someone-else",
		"customFields": map[string]string{"firstName": "G", "lastName": "H", "email": "g@h.io"},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, env.Success)

	rec, env = do(t, router, http.MethodPost, "/api/registrations", map[string]interface{}{
		"eventId":      "evt-1",
		"userId":       "staff-1",
		"customFields": map[string]string{"firstName": "G", "lastName": "H", "email": "g@h.io"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, env.Error)

	rec, env = do(t, router, http.MethodGet, "/api/registrations?userId=someone-else", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.Registration
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Empty(t, list)
}

func TestRegisterRejectsBadInput(t *testing.T) {
	router, _ := setupRouter(t)

	rec, env := do(t, router, http.MethodPost, "/api/registrations", map[string]interface{}{
		"eventId":      "evt-1",
		"customFields": map[string]string{"firstName": "Grace"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error, "customFields.email")

	rec, _ = do(t, router, http.MethodPost, "/api/registrations", map[string]interface{}{
		"eventId":      "nope",
		"customFields": map[string]string{"firstName": "G", "lastName": "H", "email": "g@h.io"},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckInFlow(t *testing.T) {
	router, hub := setupRouter(t)
	out := register(t, router)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates := hub.Subscribe(ctx, "evt-1")

	rec, env := do(t, router, http.MethodPost, "/api/check-ins", map[string]string{"token": out.QRPayload, "eventId": "evt-1"})
	require.Equal(t, http.StatusOK, rec.Code, env.Error)

	var checkIn models.CheckIn
	require.NoError(t, json.Unmarshal(env.Data, &checkIn))
	assert.Equal(t, "staff-1", checkIn.CheckedInBy)
	assert.Equal(t, models.CheckInQR, checkIn.Method)

	select {
	case got := <-updates:
		assert.Equal(t, out.Registration.ID, got.RegistrationID)
	case <-time.After(time.Second):
		t.Fatal("no check-in broadcast")
	}

	rec, _ = do(t, router, http.MethodPost, "/api/check-ins", map[string]string{"registrationId": out.Registration.ID})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, env = do(t, router, http.MethodGet, "/api/check-ins?eventId=evt-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var report registrations.CheckInReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, 1, report.CheckedIn)
	assert.Equal(t, 100.0, report.Percentage)

	rec, _ = do(t, router, http.MethodGet, "/api/check-ins", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTicketDownloads(t *testing.T) {
	router, _ := setupRouter(t)
	out := register(t, router)

	req := httptest.NewRequest(http.MethodGet, "/api/registrations/"+out.Registration.ID+"/qrcode", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	req = httptest.NewRequest(http.MethodGet, "/api/registrations/"+out.Registration.ID+"/ticket.pdf", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec, _ = do(t, router, http.MethodGet, "/api/registrations/missing/ticket.pdf", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
