package events_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-events/internal/clock"
	"ms-events/internal/config"
	"ms-events/internal/events"
	"ms-events/internal/filter"
	"ms-events/internal/kafka"
	"ms-events/internal/lifecycle"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/store"
	"ms-events/internal/validation"
)

type MockEventRepo struct {
	mock.Mock
}

func (m *MockEventRepo) CreateEvent(ctx context.Context, event *models.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventRepo) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *MockEventRepo) ListEvents(ctx context.Context, f store.EventFilter) ([]models.Event, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Event), args.Error(1)
}

func (m *MockEventRepo) UpdateEventPricing(ctx context.Context, id string, update models.PricingUpdate, at time.Time) error {
	args := m.Called(ctx, id, update, at)
	return args.Error(0)
}

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newService(repo store.EventRepository) *events.Service {
	cfg := config.Load()
	cfg.Events.MaxImageChars = 100
	return events.NewService(repo, clock.NewFixed(now), lifecycle.NewClassifier(time.UTC), kafka.NopPublisher{}, cfg, logger.Discard())
}

func tp(t time.Time) *time.Time { return &t }

type recordingInvalidator struct {
	keys []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, key string) {
	r.keys = append(r.keys, key)
}

func TestCreateEvent(t *testing.T) {
	repo := new(MockEventRepo)
	svc := newService(repo)

	repo.On("CreateEvent", mock.Anything, mock.MatchedBy(func(e *models.Event) bool {
		return e.Title == "Go Meetup" && e.ID != "" && e.CreatedAt.Equal(now) && e.UpdatedAt.Equal(now)
	})).Return(nil)

	event, err := svc.CreateEvent(context.Background(), events.CreateEventRequest{
		Title:     "Go Meetup",
		StartTime: "2025-06-20T18:00:00Z",
		EndTime:   "2025-06-20T21:00:00Z",
		Location:  models.Location{Address: "1 Main St", City: "Colombo"},
	})
	require.NoError(t, err)
	assert.Equal(t, string(lifecycle.Upcoming), event.Status)
	assert.True(t, event.StartTime.Equal(time.Date(2025, 6, 20, 18, 0, 0, 0, time.UTC)))
	repo.AssertExpectations(t)
}

func TestCreateEventRejectsUnparseableTimes(t *testing.T) {
	repo := new(MockEventRepo)
	svc := newService(repo)

	_, err := svc.CreateEvent(context.Background(), events.CreateEventRequest{
		Title:     "Go Meetup",
		StartTime: "12/09/2025 09:00",
		EndTime:   "tomorrow",
	})
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "must be a valid timestamp", verr.Fields["startTime"])
	assert.Equal(t, "must be a valid timestamp", verr.Fields["endTime"])
	repo.AssertNotCalled(t, "CreateEvent", mock.Anything, mock.Anything)
}

func TestCreateEventWithoutTimes(t *testing.T) {
	repo := new(MockEventRepo)
	svc := newService(repo)
	repo.On("CreateEvent", mock.Anything, mock.MatchedBy(func(e *models.Event) bool {
		return e.StartTime == nil && e.EndTime == nil
	})).Return(nil)

	event, err := svc.CreateEvent(context.Background(), events.CreateEventRequest{Title: "TBA", StartTime: "  "})
	require.NoError(t, err)
	assert.Equal(t, string(lifecycle.Upcoming), event.Status)
	repo.AssertExpectations(t)
}

func TestWritesInvalidateOrganizerDashboard(t *testing.T) {
	repo := new(MockEventRepo)
	svc := newService(repo)
	inv := &recordingInvalidator{}
	svc.Dashboard = inv
	id := "6c1d3f0e-8f7a-4b8e-9d3c-2a1b0c9d8e7f"
	update := models.PricingUpdate{StandardPrice: 10}

	repo.On("CreateEvent", mock.Anything, mock.Anything).Return(nil)
	repo.On("UpdateEventPricing", mock.Anything, id, update, now).Return(nil)
	repo.On("GetEvent", mock.Anything, id).Return(&models.Event{ID: id, OrganizerID: "org-2"}, nil)

	_, err := svc.CreateEvent(context.Background(), events.CreateEventRequest{Title: "Fair", OrganizerID: "org-1"})
	require.NoError(t, err)
	_, err = svc.UpdatePricing(context.Background(), id, update)
	require.NoError(t, err)

	assert.Equal(t, []string{"org-1", "org-2"}, inv.keys)
}

func TestCreateEventRejectsLargeImages(t *testing.T) {
	repo := new(MockEventRepo)
	svc := newService(repo)

	_, err := svc.CreateEvent(context.Background(), events.CreateEventRequest{
		Title:         "Gala",
		Customization: models.Customization{BannerURL: "data:image/png;base64," + strings.Repeat("A", 200)},
	})
	assert.ErrorIs(t, err, events.ErrImageTooLarge)
	repo.AssertNotCalled(t, "CreateEvent", mock.Anything, mock.Anything)
}

func TestCreateEventValidation(t *testing.T) {
	repo := new(MockEventRepo)
	svc := newService(repo)

	_, err := svc.CreateEvent(context.Background(), events.CreateEventRequest{StandardPrice: -5})
	assert.True(t, validation.IsValidation(err))
}

func TestGetEventRecomputesStatus(t *testing.T) {
	repo := new(MockEventRepo)
	svc := newService(repo)
	id := "6c1d3f0e-8f7a-4b8e-9d3c-2a1b0c9d8e7f"

	repo.On("GetEvent", mock.Anything, id).Return(&models.Event{
		ID:        id,
		Status:    string(lifecycle.Upcoming),
		StartTime: tp(now.Add(-time.Hour)),
		EndTime:   tp(now.Add(time.Hour)),
	}, nil)

	event, err := svc.GetEvent(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, string(lifecycle.Live), event.Status)
}

func TestGetEventErrors(t *testing.T) {
	repo := new(MockEventRepo)
	svc := newService(repo)

	_, err := svc.GetEvent(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, store.ErrInvalidID)

	id := "6c1d3f0e-8f7a-4b8e-9d3c-2a1b0c9d8e7f"
	repo.On("GetEvent", mock.Anything, id).Return(nil, store.ErrNotFound)
	_, err = svc.GetEvent(context.Background(), id)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListEventsFiltersOnComputedStatus(t *testing.T) {
	repo := new(MockEventRepo)
	svc := newService(repo)

	repo.On("ListEvents", mock.Anything, store.EventFilter{OrganizerID: "org-1"}).Return([]models.Event{
		{ID: "a", Title: "Past Conf", Status: "upcoming", StartTime: tp(now.AddDate(0, 0, -10)), EndTime: tp(now.AddDate(0, 0, -9))},
		{ID: "b", Title: "Future Conf", Status: "upcoming", StartTime: tp(now.AddDate(0, 0, 3))},
		{ID: "c", Title: "Workshop", Status: "upcoming", StartTime: tp(now.AddDate(0, 0, 5))},
	}, nil)

	list, err := svc.ListEvents(context.Background(), events.ListQuery{
		Query:       filter.Query{Text: "conf", Status: "completed"},
		OrganizerID: "org-1",
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a", list[0].ID)
}

func TestListEventsError(t *testing.T) {
	repo := new(MockEventRepo)
	svc := newService(repo)

	repo.On("ListEvents", mock.Anything, store.EventFilter{}).Return(nil, errors.New("db down"))
	_, err := svc.ListEvents(context.Background(), events.ListQuery{})
	assert.ErrorContains(t, err, "db down")
}

func TestUpdatePricing(t *testing.T) {
	repo := new(MockEventRepo)
	svc := newService(repo)
	id := "6c1d3f0e-8f7a-4b8e-9d3c-2a1b0c9d8e7f"
	update := models.PricingUpdate{StandardPrice: 20, VIPPrice: 50, MaxAttendees: 80}

	repo.On("UpdateEventPricing", mock.Anything, id, update, now).Return(nil)
	repo.On("GetEvent", mock.Anything, id).Return(&models.Event{ID: id, StandardPrice: 20, VIPPrice: 50, MaxAttendees: 80}, nil)

	event, err := svc.UpdatePricing(context.Background(), id, update)
	require.NoError(t, err)
	assert.Equal(t, 50.0, event.VIPPrice)

	_, err = svc.UpdatePricing(context.Background(), id, models.PricingUpdate{MaxAttendees: -1})
	assert.True(t, validation.IsValidation(err))
	repo.AssertExpectations(t)
}
