package models

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

// TicketType is a priced inventory line for an event, e.g. "Standard" or "VIP".
type TicketType struct {
	bun.BaseModel `bun:"table:ticket_types" bson:"-" json:"-"`

	ID           string    `bun:"id,pk" bson:"_id" json:"id"`
	EventID      string    `bun:"event_id,notnull" bson:"eventId" json:"eventId"`
	Title        string    `bun:"title,notnull" bson:"title" json:"title"`
	Price        float64   `bun:"price" bson:"price" json:"price"`
	Quantity     int       `bun:"quantity" bson:"quantity" json:"quantity"`
	Sold         int       `bun:"sold" bson:"sold" json:"sold"`
	DiscountCode string    `bun:"discount_code" bson:"discountCode,omitempty" json:"discountCode,omitempty"`
	CreatedAt    time.Time `bun:"created_at,notnull" bson:"createdAt" json:"createdAt"`
}

// Available is quantity minus sold; it is never persisted.
func (t TicketType) Available() int {
	return t.Quantity - t.Sold
}

func (t TicketType) MarshalJSON() ([]byte, error) {
	type alias TicketType
	return json.Marshal(struct {
		alias
		Available int `json:"available"`
	}{alias(t), t.Available()})
}
