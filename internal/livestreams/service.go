package livestreams

import (
	"context"
	"fmt"

	"ms-events/internal/cache"
	"ms-events/internal/clock"
	"ms-events/internal/kafka"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/store"
	"ms-events/internal/utils"
	"ms-events/internal/validation"
)

type DBLayer interface {
	store.LiveStreamRepository
	GetEvent(ctx context.Context, id string) (*models.Event, error)
}

type CreateLiveStreamRequest struct {
	EventID   string `json:"eventId" validate:"required"`
	Title     string `json:"title" validate:"required"`
	StreamURL string `json:"streamUrl" validate:"omitempty,url"`
}

type LiveStreamService struct {
	DB        DBLayer
	Publisher kafka.Publisher
	Topic     string
	Clock     clock.Clock
	Logger    *logger.Logger
	// Dashboard, when set, drops the organizer's cached summary after writes.
	Dashboard cache.Invalidator
	validator *validation.StructValidator
}

func NewLiveStreamService(db DBLayer, publisher kafka.Publisher, topic string, clk clock.Clock, log *logger.Logger) *LiveStreamService {
	return &LiveStreamService{
		DB:        db,
		Publisher: publisher,
		Topic:     topic,
		Clock:     clk,
		Logger:    log,
		validator: validation.NewStructValidator(),
	}
}

func (s *LiveStreamService) Create(ctx context.Context, req CreateLiveStreamRequest) (*models.LiveStream, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	event, err := s.DB.GetEvent(ctx, req.EventID)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", req.EventID, err)
	}

	stream := &models.LiveStream{
		ID:        utils.GenerateID(),
		EventID:   req.EventID,
		Title:     req.Title,
		StreamURL: req.StreamURL,
		CreatedAt: s.Clock.Now(),
	}
	if err := s.DB.CreateLiveStream(ctx, stream); err != nil {
		return nil, fmt.Errorf("failed to create live stream: %w", err)
	}
	s.Logger.Info("LIVESTREAMS", fmt.Sprintf("Created live stream %s for event %s", stream.ID, stream.EventID))
	if s.Dashboard != nil {
		s.Dashboard.Invalidate(ctx, event.OrganizerID)
	}
	return stream, nil
}

// invalidateEvent looks up the stream's organizer to drop their dashboard.
func (s *LiveStreamService) invalidateEvent(ctx context.Context, eventID string) {
	if s.Dashboard == nil {
		return
	}
	event, err := s.DB.GetEvent(ctx, eventID)
	if err != nil {
		s.Logger.Warn("LIVESTREAMS", fmt.Sprintf("Dashboard not invalidated for event %s: %v", eventID, err))
		return
	}
	s.Dashboard.Invalidate(ctx, event.OrganizerID)
}

func (s *LiveStreamService) List(ctx context.Context, eventID string) ([]models.LiveStream, error) {
	var ids []string
	if eventID != "" {
		ids = []string{eventID}
	}
	return s.DB.ListLiveStreams(ctx, ids)
}

// Update applies the non-nil fields. Going live stamps startedAt once; going
// offline stamps endedAt and resets the audience.
func (s *LiveStreamService) Update(ctx context.Context, id string, update models.LiveStreamUpdate) (*models.LiveStream, error) {
	if err := s.validator.ValidateStruct(update); err != nil {
		return nil, err
	}
	stream, err := s.DB.GetLiveStream(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	if update.IsLive != nil && *update.IsLive != stream.IsLive {
		stream.IsLive = *update.IsLive
		if stream.IsLive {
			if stream.StartedAt == nil {
				stream.StartedAt = &now
			}
			stream.EndedAt = nil
		} else {
			stream.EndedAt = &now
			stream.Watching = 0
		}
	}
	if update.Watching != nil && stream.IsLive {
		stream.Watching = *update.Watching
	}

	if err := s.DB.UpdateLiveStream(ctx, stream); err != nil {
		return nil, err
	}
	s.invalidateEvent(ctx, stream.EventID)
	snapshot := *stream
	kafka.PublishAsync(s.Publisher, s.Logger, s.Topic, stream.EventID, snapshot)
	return stream, nil
}
