package models

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

const (
	CheckInManual = "manual"
	CheckInQR     = "qr"
)

type Registration struct {
	bun.BaseModel `bun:"table:registrations" bson:"-" json:"-"`

	ID            string            `bun:"id,pk" bson:"_id" json:"id"`
	EventID       string            `bun:"event_id,notnull" bson:"eventId" json:"eventId"`
	UserID        string            `bun:"user_id" bson:"userId" json:"userId"`
	TicketID      string            `bun:"ticket_id" bson:"ticketId,omitempty" json:"ticketId,omitempty"`
	CustomFields  map[string]string `bun:"custom_fields" bson:"customFields" json:"customFields"`
	CheckedInAt   *time.Time        `bun:"checked_in_at,nullzero" bson:"checkedInAt,omitempty" json:"checkedInAt"`
	CheckedInBy   string            `bun:"checked_in_by" bson:"checkedInBy,omitempty" json:"checkedInBy,omitempty"`
	CheckInMethod string            `bun:"check_in_method" bson:"checkInMethod,omitempty" json:"checkInMethod,omitempty"`
	CreatedAt     time.Time         `bun:"created_at,notnull" bson:"createdAt" json:"createdAt"`
}

func (r Registration) IsCheckedIn() bool {
	return r.CheckedInAt != nil
}

func (r Registration) Field(name string) string {
	return r.CustomFields[name]
}

// AttendeeName joins the first and last name fields captured at sign-up.
func (r Registration) AttendeeName() string {
	return strings.TrimSpace(r.Field("firstName") + " " + r.Field("lastName"))
}

// CheckIn is the attendance view of a checked-in registration.
type CheckIn struct {
	RegistrationID string    `json:"registrationId"`
	EventID        string    `json:"eventId"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	CheckedInBy    string    `json:"checkedInBy"`
	Method         string    `json:"method"`
	Timestamp      time.Time `json:"timestamp"`
}

func NewCheckIn(r Registration) CheckIn {
	c := CheckIn{
		RegistrationID: r.ID,
		EventID:        r.EventID,
		Name:           r.AttendeeName(),
		Email:          r.Field("email"),
		CheckedInBy:    r.CheckedInBy,
		Method:         r.CheckInMethod,
	}
	if r.CheckedInAt != nil {
		c.Timestamp = *r.CheckedInAt
	}
	return c
}
