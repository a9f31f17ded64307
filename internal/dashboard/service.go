package dashboard

import (
	"context"
	"fmt"

	"ms-events/internal/cache"
	"ms-events/internal/clock"
	"ms-events/internal/lifecycle"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/store"
)

type DBLayer interface {
	ListEvents(ctx context.Context, filter store.EventFilter) ([]models.Event, error)
	ListTicketTypes(ctx context.Context, eventIDs []string) ([]models.TicketType, error)
	ListRegistrations(ctx context.Context, filter store.RegistrationFilter) ([]models.Registration, error)
	ListLiveStreams(ctx context.Context, eventIDs []string) ([]models.LiveStream, error)
}

type Service struct {
	DB         DBLayer
	Cache      *cache.JSONCache
	Classifier lifecycle.Classifier
	Clock      clock.Clock
	Logger     *logger.Logger
}

// NewService builds the dashboard service. A nil cache disables caching.
func NewService(db DBLayer, c *cache.JSONCache, classifier lifecycle.Classifier, clk clock.Clock, log *logger.Logger) *Service {
	return &Service{DB: db, Cache: c, Classifier: classifier, Clock: clk, Logger: log}
}

func (s *Service) load(ctx context.Context, organizerID string) (Input, error) {
	events, err := s.DB.ListEvents(ctx, store.EventFilter{OrganizerID: organizerID})
	if err != nil {
		return Input{}, fmt.Errorf("failed to list events: %w", err)
	}
	in := Input{Events: events}
	if len(events) == 0 {
		return in, nil
	}

	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	if in.Tickets, err = s.DB.ListTicketTypes(ctx, ids); err != nil {
		return Input{}, fmt.Errorf("failed to list ticket types: %w", err)
	}
	if in.Registrations, err = s.DB.ListRegistrations(ctx, store.RegistrationFilter{EventIDs: ids}); err != nil {
		return Input{}, fmt.Errorf("failed to list registrations: %w", err)
	}
	if in.LiveStreams, err = s.DB.ListLiveStreams(ctx, ids); err != nil {
		return Input{}, fmt.Errorf("failed to list live streams: %w", err)
	}
	return in, nil
}

// Summary returns the organizer's dashboard, served from redis while fresh.
// Cache failures are logged and fall through to the store.
func (s *Service) Summary(ctx context.Context, organizerID string) (*Summary, error) {
	if s.Cache != nil {
		var cached Summary
		hit, err := s.Cache.Get(ctx, organizerID, &cached)
		if err != nil {
			s.Logger.Warn("REDIS", fmt.Sprintf("Dashboard cache read for %s: %v", organizerID, err))
		}
		if hit {
			return &cached, nil
		}
	}

	in, err := s.load(ctx, organizerID)
	if err != nil {
		return nil, err
	}
	summary := Aggregate(in, s.Classifier, s.Clock.Now())

	if s.Cache != nil {
		if err := s.Cache.Set(ctx, organizerID, summary); err != nil {
			s.Logger.Warn("REDIS", fmt.Sprintf("Dashboard cache write for %s: %v", organizerID, err))
		}
	}
	return &summary, nil
}

// Invalidate drops the organizer's cached summary so the next read rebuilds it.
func (s *Service) Invalidate(ctx context.Context, organizerID string) {
	if s.Cache == nil || organizerID == "" {
		return
	}
	if err := s.Cache.Delete(ctx, organizerID); err != nil {
		s.Logger.Warn("REDIS", fmt.Sprintf("Dashboard cache invalidation for %s: %v", organizerID, err))
	}
}
