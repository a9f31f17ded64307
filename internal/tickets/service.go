package tickets

import (
	"context"
	"fmt"

	"ms-events/internal/cache"
	"ms-events/internal/clock"
	"ms-events/internal/filter"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/store"
	"ms-events/internal/utils"
	"ms-events/internal/validation"
)

type DBLayer interface {
	store.TicketRepository
	GetEvent(ctx context.Context, id string) (*models.Event, error)
}

type CreateTicketTypeRequest struct {
	EventID      string  `json:"eventId" validate:"required"`
	Title        string  `json:"title" validate:"required"`
	Price        float64 `json:"price" validate:"gte=0"`
	Quantity     int     `json:"quantity" validate:"gte=0"`
	DiscountCode string  `json:"discountCode"`
}

type TicketService struct {
	DB     DBLayer
	Clock  clock.Clock
	Logger *logger.Logger
	// Dashboard, when set, drops the organizer's cached summary after writes.
	Dashboard cache.Invalidator
	validator *validation.StructValidator
}

func NewTicketService(db DBLayer, clk clock.Clock, log *logger.Logger) *TicketService {
	return &TicketService{DB: db, Clock: clk, Logger: log, validator: validation.NewStructValidator()}
}

func (s *TicketService) CreateTicketType(ctx context.Context, req CreateTicketTypeRequest) (*models.TicketType, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	event, err := s.DB.GetEvent(ctx, req.EventID)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", req.EventID, err)
	}

	ticket := &models.TicketType{
		ID:           utils.GenerateID(),
		EventID:      req.EventID,
		Title:        req.Title,
		Price:        req.Price,
		Quantity:     req.Quantity,
		DiscountCode: req.DiscountCode,
		CreatedAt:    s.Clock.Now(),
	}
	if err := s.DB.CreateTicketType(ctx, ticket); err != nil {
		return nil, fmt.Errorf("failed to create ticket type: %w", err)
	}
	s.Logger.Info("TICKETS", fmt.Sprintf("Created ticket type %s (%s, qty %d) for event %s", ticket.ID, ticket.Title, ticket.Quantity, ticket.EventID))
	if s.Dashboard != nil {
		s.Dashboard.Invalidate(ctx, event.OrganizerID)
	}
	return ticket, nil
}

// ListTicketTypes lists an event's ticket types, or every ticket type when
// eventID is empty, narrowed by a title search.
func (s *TicketService) ListTicketTypes(ctx context.Context, eventID, text string) ([]models.TicketType, error) {
	var eventIDs []string
	if eventID != "" {
		eventIDs = []string{eventID}
	}
	list, err := s.DB.ListTicketTypes(ctx, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list ticket types: %w", err)
	}
	return filter.TicketTypes(list, text), nil
}
