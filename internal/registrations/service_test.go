package registrations_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-events/internal/clock"
	"ms-events/internal/config"
	"ms-events/internal/kafka"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/qr"
	"ms-events/internal/registrations"
	"ms-events/internal/store"
	"ms-events/internal/store/bunstore"
	"ms-events/internal/validation"
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type recordingBroadcaster struct {
	mu  sync.Mutex
	got []models.CheckIn
}

func (b *recordingBroadcaster) Broadcast(c models.CheckIn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.got = append(b.got, c)
}

type recordingInvalidator struct {
	mu   sync.Mutex
	keys []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
}

// failingInsertDB behaves like the real store except that registering fails.
type failingInsertDB struct {
	*bunstore.DB
}

func (failingInsertDB) RegisterAttendee(context.Context, *models.Registration) error {
	return errors.New("insert failed")
}

type fixture struct {
	svc         *registrations.Service
	db          *bunstore.DB
	broadcaster *recordingBroadcaster
	dashboard   *recordingInvalidator
	qr          *qr.Generator
}

func setup(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	db, err := bunstore.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.CreateEvent(ctx, &models.Event{ID: "evt-1", Title: "Expo", OrganizerID: "org-1", MaxAttendees: 3, CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, db.CreateEvent(ctx, &models.Event{ID: "evt-2", Title: "Other", CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, db.CreateTicketType(ctx, &models.TicketType{ID: "tt-1", EventID: "evt-1", Title: "VIP", Price: 60, Quantity: 1, CreatedAt: now}))

	qrGen, err := qr.NewGenerator("test-secret", 128)
	require.NoError(t, err)

	clk := clock.NewFixed(now)
	b := &recordingBroadcaster{}
	svc := registrations.NewService(db, qrGen, b, kafka.NopPublisher{}, config.Load().Kafka.Topics, clk, logger.Discard())
	inv := &recordingInvalidator{}
	svc.Dashboard = inv
	return fixture{svc: svc, db: db, broadcaster: b, dashboard: inv, qr: qrGen}
}

func attendee(first, last, email string) map[string]string {
	return map[string]string{"firstName": first, "lastName": last, "email": email}
}

func TestRegisterSellsTicketAndBuildsQR(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.svc.Register(ctx, registrations.RegisterRequest{
		EventID: "evt-1", UserID: "uid-1", TicketID: "tt-1",
		CustomFields: attendee("Ada", "Lovelace", "ada@example.com"),
	})
	require.NoError(t, err)
	assert.Contains(t, res.QRPayload, "First Name: Ada\nLast Name: Lovelace\nEmail: ada@example.com")

	claims, err := f.qr.Decode(res.QRPayload)
	require.NoError(t, err)
	assert.Equal(t, res.Registration.ID, claims.RegistrationID)

	ticket, err := f.db.GetTicketType(ctx, "tt-1")
	require.NoError(t, err)
	assert.Equal(t, 1, ticket.Sold)

	_, err = f.svc.Register(ctx, registrations.RegisterRequest{
		EventID: "evt-1", TicketID: "tt-1", CustomFields: attendee("Bo", "B", "bo@example.com"),
	})
	assert.ErrorIs(t, err, store.ErrSoldOut)
}

func TestRegisterInvalidatesOrganizerDashboard(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, registrations.RegisterRequest{EventID: "evt-1", CustomFields: attendee("Ada", "L", "ada@example.com")})
	require.NoError(t, err)
	assert.Equal(t, []string{"org-1"}, f.dashboard.keys)

	_, err = f.svc.Register(ctx, registrations.RegisterRequest{EventID: "missing", CustomFields: attendee("A", "B", "a@b.co")})
	require.Error(t, err)
	assert.Len(t, f.dashboard.keys, 1)
}

func TestRegisterFailureKeepsTicketUnsold(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.svc.DB = failingInsertDB{f.db}

	_, err := f.svc.Register(ctx, registrations.RegisterRequest{
		EventID: "evt-1", TicketID: "tt-1", CustomFields: attendee("Ada", "L", "ada@example.com"),
	})
	require.Error(t, err)

	ticket, err := f.db.GetTicketType(ctx, "tt-1")
	require.NoError(t, err)
	assert.Equal(t, 0, ticket.Sold)
	regs, err := f.db.ListRegistrations(ctx, store.RegistrationFilter{EventIDs: []string{"evt-1"}})
	require.NoError(t, err)
	assert.Empty(t, regs)
	assert.Empty(t, f.dashboard.keys)
}

func TestRegisterValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, registrations.RegisterRequest{EventID: "evt-1", CustomFields: attendee("Ada", "", "not-an-email")})
	require.True(t, validation.IsValidation(err))
	assert.Contains(t, err.Error(), "customFields.lastName: is required")
	assert.Contains(t, err.Error(), "customFields.email: must be a valid email")

	_, err = f.svc.Register(ctx, registrations.RegisterRequest{EventID: "missing", CustomFields: attendee("A", "B", "a@b.co")})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = f.svc.Register(ctx, registrations.RegisterRequest{EventID: "evt-2", TicketID: "tt-1", CustomFields: attendee("A", "B", "a@b.co")})
	assert.True(t, validation.IsValidation(err))
}

func TestRegisterStopsAtCapacity(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.Register(ctx, registrations.RegisterRequest{EventID: "evt-1", CustomFields: attendee("A", "B", "a@b.co")})
		require.NoError(t, err)
	}
	_, err := f.svc.Register(ctx, registrations.RegisterRequest{EventID: "evt-1", CustomFields: attendee("A", "B", "a@b.co")})
	assert.ErrorIs(t, err, registrations.ErrEventFull)
	assert.ErrorIs(t, err, store.ErrSoldOut)
}

func TestCheckInManualAndQR(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, err := f.svc.Register(ctx, registrations.RegisterRequest{EventID: "evt-1", CustomFields: attendee("Ada", "Lovelace", "ada@example.com")})
	require.NoError(t, err)
	second, err := f.svc.Register(ctx, registrations.RegisterRequest{EventID: "evt-1", CustomFields: attendee("Alan", "Turing", "alan@example.com")})
	require.NoError(t, err)

	checkIn, err := f.svc.CheckIn(ctx, registrations.CheckInRequest{RegistrationID: first.Registration.ID, CheckedInBy: "staff-1"})
	require.NoError(t, err)
	assert.Equal(t, models.CheckInManual, checkIn.Method)
	assert.Equal(t, "staff-1", checkIn.CheckedInBy)
	assert.True(t, checkIn.Timestamp.Equal(now))

	_, err = f.svc.CheckIn(ctx, registrations.CheckInRequest{RegistrationID: first.Registration.ID})
	assert.ErrorIs(t, err, store.ErrAlreadyCheckedIn)

	checkIn, err = f.svc.CheckIn(ctx, registrations.CheckInRequest{Token: second.QRPayload, EventID: "evt-1"})
	require.NoError(t, err)
	assert.Equal(t, models.CheckInQR, checkIn.Method)
	assert.Equal(t, "Alan Turing", checkIn.Name)

	require.Len(t, f.broadcaster.got, 2)
	assert.Equal(t, first.Registration.ID, f.broadcaster.got[0].RegistrationID)

	report, err := f.svc.CheckIns(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.CheckedIn)
	assert.Equal(t, 100.0, report.Percentage)
}

func TestCheckInRejects(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	reg, err := f.svc.Register(ctx, registrations.RegisterRequest{EventID: "evt-1", CustomFields: attendee("Ada", "L", "ada@example.com")})
	require.NoError(t, err)

	_, err = f.svc.CheckIn(ctx, registrations.CheckInRequest{})
	assert.True(t, validation.IsValidation(err))

	_, err = f.svc.CheckIn(ctx, registrations.CheckInRequest{Token: "forged"})
	assert.True(t, validation.IsValidation(err))

	_, err = f.svc.CheckIn(ctx, registrations.CheckInRequest{RegistrationID: reg.Registration.ID, EventID: "evt-2"})
	assert.True(t, validation.IsValidation(err))

	_, err = f.svc.CheckIn(ctx, registrations.CheckInRequest{RegistrationID: "missing"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	report, err := f.svc.CheckIns(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, 0, report.CheckedIn)
	assert.Equal(t, 0.0, report.Percentage)
}

func TestQRCodeAndTicketPDF(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	reg, err := f.svc.Register(ctx, registrations.RegisterRequest{EventID: "evt-1", TicketID: "tt-1", CustomFields: attendee("Ada", "L", "ada@example.com")})
	require.NoError(t, err)

	png, err := f.svc.QRCode(ctx, reg.Registration.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	out, err := f.svc.TicketPDF(ctx, reg.Registration.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	_, err = f.svc.TicketPDF(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListFiltersAttendees(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, registrations.RegisterRequest{EventID: "evt-1", UserID: "u1", CustomFields: attendee("Ada", "Lovelace", "ada@example.com")})
	require.NoError(t, err)
	_, err = f.svc.Register(ctx, registrations.RegisterRequest{EventID: "evt-1", UserID: "u2", CustomFields: attendee("Alan", "Turing", "alan@example.com")})
	require.NoError(t, err)

	list, err := f.svc.List(ctx, "evt-1", "", "turing")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "u2", list[0].UserID)

	list, err = f.svc.List(ctx, "", "u1", "")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
