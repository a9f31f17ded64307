// Package store defines the persistence contract shared by the relational
// (bunstore) and document (mongostore) backends.
package store

import (
	"context"
	"errors"
	"time"

	"ms-events/internal/models"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidID        = errors.New("invalid id")
	ErrAlreadyCheckedIn = errors.New("registration already checked in")
	ErrSoldOut          = errors.New("ticket type sold out")
	ErrDuplicate        = errors.New("duplicate record")
	ErrEventFull        = errors.New("event is full")
)

type EventFilter struct {
	OrganizerID string
}

type RegistrationFilter struct {
	EventIDs []string
	UserID   string
}

type EventRepository interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	// ListEvents returns events newest first.
	ListEvents(ctx context.Context, filter EventFilter) ([]models.Event, error)
	UpdateEventPricing(ctx context.Context, id string, update models.PricingUpdate, at time.Time) error
}

type TicketRepository interface {
	CreateTicketType(ctx context.Context, ticket *models.TicketType) error
	GetTicketType(ctx context.Context, id string) (*models.TicketType, error)
	ListTicketTypes(ctx context.Context, eventIDs []string) ([]models.TicketType, error)
	// IncrementSold adds one sale, failing with ErrSoldOut when none remain.
	IncrementSold(ctx context.Context, id string) error
}

type RegistrationRepository interface {
	CreateRegistration(ctx context.Context, reg *models.Registration) error
	GetRegistration(ctx context.Context, id string) (*models.Registration, error)
	ListRegistrations(ctx context.Context, filter RegistrationFilter) ([]models.Registration, error)
	// RegisterAttendee stores reg and sells one unit of reg.TicketID, if any, as a
	// single step. It fails with ErrEventFull when the event's maxAttendees is
	// reached and ErrSoldOut when the ticket type has none left; on any failure
	// nothing is recorded.
	RegisterAttendee(ctx context.Context, reg *models.Registration) error
	// MarkCheckedIn fails with ErrAlreadyCheckedIn if a timestamp is already set.
	MarkCheckedIn(ctx context.Context, id string, at time.Time, by, method string) error
}

type UserRepository interface {
	// SaveUser inserts or replaces the profile keyed by UID, keeping CreatedAt.
	SaveUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, uid string) (*models.User, error)
}

type LiveStreamRepository interface {
	CreateLiveStream(ctx context.Context, stream *models.LiveStream) error
	GetLiveStream(ctx context.Context, id string) (*models.LiveStream, error)
	ListLiveStreams(ctx context.Context, eventIDs []string) ([]models.LiveStream, error)
	UpdateLiveStream(ctx context.Context, stream *models.LiveStream) error
}

// Store bundles every repository; both backends satisfy it.
type Store interface {
	EventRepository
	TicketRepository
	RegistrationRepository
	UserRepository
	LiveStreamRepository
	Ping(ctx context.Context) error
	Close() error
}
