package mongostore_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"ms-events/internal/config"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/store"
	"ms-events/internal/store/mongostore"
)

func startMongo(t *testing.T) *mongostore.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping MongoDB integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:6",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForLog("Waiting for connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("MongoDB container unavailable: %v", err)
	}
	t.Cleanup(func() { container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017")
	require.NoError(t, err)

	s, err := mongostore.Connect(ctx, config.MongoConfig{
		URI:      fmt.Sprintf("mongodb://%s:%s", host, port.Port()),
		Database: "events_test",
	}, logger.Discard())
	require.NoError(t, err)
	require.NoError(t, s.EnsureIndexes(ctx))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMongoStoreIntegration(t *testing.T) {
	s := startMongo(t)
	ctx := context.Background()

	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	created := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

	event := &models.Event{
		ID:          "evt-1",
		Title:       "Go Conference",
		EventType:   "conference",
		StartTime:   &start,
		EndTime:     &end,
		Location:    models.Location{Address: "1 Main St", City: "Colombo"},
		OrganizerID: "org-1",
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	require.NoError(t, s.CreateEvent(ctx, event))
	assert.ErrorIs(t, s.CreateEvent(ctx, event), store.ErrDuplicate)

	got, err := s.GetEvent(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, "Go Conference", got.Title)
	assert.True(t, start.Equal(*got.StartTime))
	assert.True(t, end.Equal(*got.EndTime))
	assert.Equal(t, event.Location, got.Location)

	_, err = s.GetEvent(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	t.Run("pricing", func(t *testing.T) {
		update := models.PricingUpdate{StandardPrice: 25, VIPPrice: 60, MaxAttendees: 100,
			DiscountCodes: []models.DiscountCode{{Code: "EARLY", Percentage: 10}}}
		require.NoError(t, s.UpdateEventPricing(ctx, "evt-1", update, created.Add(time.Hour)))
		got, err := s.GetEvent(ctx, "evt-1")
		require.NoError(t, err)
		assert.Equal(t, 60.0, got.VIPPrice)
		assert.Equal(t, update.DiscountCodes, got.DiscountCodes)
		assert.ErrorIs(t, s.UpdateEventPricing(ctx, "missing", update, created), store.ErrNotFound)
	})

	t.Run("tickets sell out", func(t *testing.T) {
		require.NoError(t, s.CreateTicketType(ctx, &models.TicketType{ID: "tt-1", EventID: "evt-1", Title: "General", Price: 10, Quantity: 1, CreatedAt: created}))
		require.NoError(t, s.IncrementSold(ctx, "tt-1"))
		assert.ErrorIs(t, s.IncrementSold(ctx, "tt-1"), store.ErrSoldOut)
		assert.ErrorIs(t, s.IncrementSold(ctx, "missing"), store.ErrNotFound)
	})

	t.Run("check in once", func(t *testing.T) {
		require.NoError(t, s.CreateRegistration(ctx, &models.Registration{ID: "reg-1", EventID: "evt-1", UserID: "u-1", CreatedAt: created}))
		require.NoError(t, s.MarkCheckedIn(ctx, "reg-1", created, "staff", models.CheckInManual))
		assert.ErrorIs(t, s.MarkCheckedIn(ctx, "reg-1", created, "staff", models.CheckInManual), store.ErrAlreadyCheckedIn)

		regs, err := s.ListRegistrations(ctx, store.RegistrationFilter{EventIDs: []string{"evt-1"}})
		require.NoError(t, err)
		require.Len(t, regs, 1)
		assert.True(t, regs[0].IsCheckedIn())
	})

	t.Run("register attendee respects capacity", func(t *testing.T) {
		require.NoError(t, s.CreateEvent(ctx, &models.Event{ID: "evt-cap", Title: "Small room", MaxAttendees: 1, OrganizerID: "org-1", CreatedAt: created, UpdatedAt: created}))
		require.NoError(t, s.CreateTicketType(ctx, &models.TicketType{ID: "tt-cap", EventID: "evt-cap", Title: "General", Price: 10, Quantity: 5, CreatedAt: created}))

		require.NoError(t, s.RegisterAttendee(ctx, &models.Registration{ID: "reg-cap-1", EventID: "evt-cap", UserID: "u-1", TicketID: "tt-cap", CreatedAt: created}))
		assert.ErrorIs(t, s.RegisterAttendee(ctx, &models.Registration{ID: "reg-cap-2", EventID: "evt-cap", UserID: "u-2", TicketID: "tt-cap", CreatedAt: created}), store.ErrEventFull)
		assert.ErrorIs(t, s.RegisterAttendee(ctx, &models.Registration{ID: "reg-x", EventID: "missing", CreatedAt: created}), store.ErrNotFound)

		ticket, err := s.GetTicketType(ctx, "tt-cap")
		require.NoError(t, err)
		assert.Equal(t, 1, ticket.Sold)
	})

	t.Run("register attendee undoes sale on duplicate", func(t *testing.T) {
		require.NoError(t, s.CreateTicketType(ctx, &models.TicketType{ID: "tt-dup", EventID: "evt-1", Title: "Day pass", Price: 5, Quantity: 5, CreatedAt: created}))
		reg := &models.Registration{ID: "reg-dup", EventID: "evt-1", UserID: "u-3", TicketID: "tt-dup", CreatedAt: created}
		require.NoError(t, s.RegisterAttendee(ctx, reg))
		assert.ErrorIs(t, s.RegisterAttendee(ctx, reg), store.ErrDuplicate)

		ticket, err := s.GetTicketType(ctx, "tt-dup")
		require.NoError(t, err)
		assert.Equal(t, 1, ticket.Sold)
	})

	t.Run("save user keeps created at", func(t *testing.T) {
		first := &models.User{UID: "uid-1", Name: "Ann", Email: "ann@example.com", CreatedAt: created, UpdatedAt: created}
		require.NoError(t, s.SaveUser(ctx, first))
		later := created.Add(24 * time.Hour)
		require.NoError(t, s.SaveUser(ctx, &models.User{UID: "uid-1", Name: "Ann B", Email: "ann@example.com", CreatedAt: later, UpdatedAt: later}))

		got, err := s.GetUser(ctx, "uid-1")
		require.NoError(t, err)
		assert.Equal(t, "Ann B", got.Name)
		assert.True(t, created.Equal(got.CreatedAt))
	})
}
