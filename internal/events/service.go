package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-events/internal/cache"
	"ms-events/internal/clock"
	"ms-events/internal/config"
	"ms-events/internal/filter"
	"ms-events/internal/kafka"
	"ms-events/internal/lifecycle"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/store"
	"ms-events/internal/utils"
	"ms-events/internal/validation"
)

var ErrImageTooLarge = errors.New("image too large")

// CreateEventRequest is the organizer's submission. Times arrive as text and
// are parsed in the configured location when they carry no offset.
type CreateEventRequest struct {
	Title         string                `json:"title" validate:"required"`
	Description   string                `json:"description"`
	EventType     string                `json:"eventType"`
	StartTime     string                `json:"startTime"`
	EndTime       string                `json:"endTime"`
	Location      models.Location       `json:"location"`
	Customization models.Customization  `json:"customization"`
	OrganizerID   string                `json:"organizerId"`
	StandardPrice float64               `json:"standardPrice" validate:"gte=0"`
	VIPPrice      float64               `json:"vipPrice" validate:"gte=0"`
	MaxAttendees  int                   `json:"maxAttendees" validate:"gte=0"`
	DiscountCodes []models.DiscountCode `json:"discountCodes" validate:"dive"`
}

type ListQuery struct {
	filter.Query
	OrganizerID string
}

type Service struct {
	Repo          store.EventRepository
	Clock         clock.Clock
	Classifier    lifecycle.Classifier
	Publisher     kafka.Publisher
	Topic         string
	Logger        *logger.Logger
	MaxImageChars int
	// Dashboard, when set, drops the organizer's cached summary after writes.
	Dashboard cache.Invalidator
	validator *validation.StructValidator
}

func NewService(repo store.EventRepository, clk clock.Clock, classifier lifecycle.Classifier, publisher kafka.Publisher, cfg *config.Config, log *logger.Logger) *Service {
	return &Service{
		Repo:          repo,
		Clock:         clk,
		Classifier:    classifier,
		Publisher:     publisher,
		Topic:         cfg.Kafka.Topics.EventCreated,
		Logger:        log,
		MaxImageChars: cfg.Events.MaxImageChars,
		validator:     validation.NewStructValidator(),
	}
}

// parseTimes reads the submitted schedule. Blank fields stay unset; anything
// else must parse, so a typo never silently drops the time.
func (s *Service) parseTimes(req CreateEventRequest) (start, end *time.Time, err error) {
	fields := map[string]string{}
	parse := func(name, raw string) *time.Time {
		if strings.TrimSpace(raw) == "" {
			return nil
		}
		t, ok := utils.ParseTimestamp(raw, s.Classifier.Location)
		if !ok {
			fields[name] = "must be a valid timestamp"
			return nil
		}
		return &t
	}
	start = parse("startTime", req.StartTime)
	end = parse("endTime", req.EndTime)
	if len(fields) > 0 {
		return nil, nil, &validation.Error{Fields: fields}
	}
	return start, end, nil
}

func (s *Service) invalidate(ctx context.Context, organizerID string) {
	if s.Dashboard != nil {
		s.Dashboard.Invalidate(ctx, organizerID)
	}
}

// refresh overwrites the persisted status with the one derived from the schedule.
func (s *Service) refresh(e *models.Event, now time.Time) {
	e.Status = string(s.Classifier.Classify(e.StartTime, e.EndTime, now))
}

func (s *Service) CreateEvent(ctx context.Context, req CreateEventRequest) (*models.Event, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	if s.MaxImageChars > 0 && (len(req.Customization.LogoURL) > s.MaxImageChars || len(req.Customization.BannerURL) > s.MaxImageChars) {
		return nil, ErrImageTooLarge
	}
	start, end, err := s.parseTimes(req)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	event := &models.Event{
		ID:            utils.GenerateID(),
		Title:         req.Title,
		Description:   req.Description,
		EventType:     req.EventType,
		StartTime:     start,
		EndTime:       end,
		Location:      req.Location,
		Customization: req.Customization,
		OrganizerID:   req.OrganizerID,
		StandardPrice: req.StandardPrice,
		VIPPrice:      req.VIPPrice,
		MaxAttendees:  req.MaxAttendees,
		DiscountCodes: req.DiscountCodes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.refresh(event, now)

	if err := s.Repo.CreateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	s.Logger.Info("EVENTS", fmt.Sprintf("Created event %s (%s) for organizer %s", event.ID, event.Title, event.OrganizerID))
	s.invalidate(ctx, event.OrganizerID)

	kafka.PublishAsync(s.Publisher, s.Logger, s.Topic, event.ID, event)
	return event, nil
}

func (s *Service) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	if !utils.ValidID(id) {
		return nil, store.ErrInvalidID
	}
	event, err := s.Repo.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	s.refresh(event, s.Clock.Now())
	return event, nil
}

// ListEvents returns events newest first with statuses recomputed before filtering.
func (s *Service) ListEvents(ctx context.Context, q ListQuery) ([]models.Event, error) {
	events, err := s.Repo.ListEvents(ctx, store.EventFilter{OrganizerID: q.OrganizerID})
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	now := s.Clock.Now()
	for i := range events {
		s.refresh(&events[i], now)
	}
	return filter.Events(events, q.Query), nil
}

func (s *Service) UpdatePricing(ctx context.Context, id string, update models.PricingUpdate) (*models.Event, error) {
	if !utils.ValidID(id) {
		return nil, store.ErrInvalidID
	}
	if err := s.validator.ValidateStruct(update); err != nil {
		return nil, err
	}
	if err := s.Repo.UpdateEventPricing(ctx, id, update, s.Clock.Now()); err != nil {
		return nil, err
	}
	s.Logger.Info("EVENTS", fmt.Sprintf("Updated pricing for event %s", id))
	event, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, event.OrganizerID)
	return event, nil
}
