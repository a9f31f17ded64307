package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	LocationPhysical = "physical"
	LocationVirtual  = "virtual"
)

type Event struct {
	bun.BaseModel `bun:"table:events" bson:"-" json:"-"`

	ID            string         `bun:"id,pk" bson:"_id" json:"id"`
	Title         string         `bun:"title,notnull" bson:"title" json:"title"`
	Description   string         `bun:"description" bson:"description" json:"description"`
	EventType     string         `bun:"event_type" bson:"eventType" json:"eventType"`
	Status        string         `bun:"status" bson:"status" json:"status"`
	StartTime     *time.Time     `bun:"start_time,nullzero" bson:"startTime,omitempty" json:"startTime,omitempty"`
	EndTime       *time.Time     `bun:"end_time,nullzero" bson:"endTime,omitempty" json:"endTime,omitempty"`
	Location      Location       `bun:"embed:location_" bson:"location" json:"location"`
	Customization Customization  `bun:"embed:customization_" bson:"customization" json:"customization"`
	OrganizerID   string         `bun:"organizer_id" bson:"organizerId" json:"organizerId"`
	StandardPrice float64        `bun:"standard_price" bson:"standardPrice" json:"standardPrice"`
	VIPPrice      float64        `bun:"vip_price" bson:"vipPrice" json:"vipPrice"`
	MaxAttendees  int            `bun:"max_attendees" bson:"maxAttendees" json:"maxAttendees"`
	DiscountCodes []DiscountCode `bun:"discount_codes" bson:"discountCodes" json:"discountCodes"`
	CreatedAt     time.Time      `bun:"created_at,notnull" bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time      `bun:"updated_at,notnull" bson:"updatedAt" json:"updatedAt"`
}

type Location struct {
	Address     string `bun:"address" bson:"address" json:"address"`
	City        string `bun:"city" bson:"city" json:"city"`
	State       string `bun:"state" bson:"state" json:"state"`
	Country     string `bun:"country" bson:"country" json:"country"`
	VirtualLink string `bun:"virtual_link" bson:"virtualLink" json:"virtualLink"`
}

// Kind reports whether the location is a venue or an online link.
func (l Location) Kind() string {
	if l.VirtualLink != "" && l.Address == "" {
		return LocationVirtual
	}
	return LocationPhysical
}

type Customization struct {
	Colors    string `bun:"colors" bson:"colors" json:"colors"`
	LogoURL   string `bun:"logo_url" bson:"logoUrl" json:"logoUrl"`
	BannerURL string `bun:"banner_url" bson:"bannerUrl" json:"bannerUrl"`
}

type DiscountCode struct {
	Code       string  `bson:"code" json:"code"`
	Percentage float64 `bson:"percentage" json:"percentage"`
}

// PricingUpdate is the only mutable part of an event after creation.
type PricingUpdate struct {
	StandardPrice float64        `json:"standardPrice" validate:"gte=0"`
	VIPPrice      float64        `json:"vipPrice" validate:"gte=0"`
	MaxAttendees  int            `json:"maxAttendees" validate:"gte=0"`
	DiscountCodes []DiscountCode `json:"discountCodes" validate:"dive"`
}
