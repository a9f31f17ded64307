package models

import (
	"time"

	"github.com/uptrace/bun"
)

// LiveStream is an organizer's broadcast attached to an event.
type LiveStream struct {
	bun.BaseModel `bun:"table:live_streams" bson:"-" json:"-"`

	ID        string     `bun:"id,pk" bson:"_id" json:"id"`
	EventID   string     `bun:"event_id,notnull" bson:"eventId" json:"eventId"`
	Title     string     `bun:"title" bson:"title" json:"title"`
	StreamURL string     `bun:"stream_url" bson:"streamUrl" json:"streamUrl"`
	IsLive    bool       `bun:"is_live" bson:"isLive" json:"isLive"`
	Watching  int        `bun:"watching" bson:"watching" json:"watching"`
	StartedAt *time.Time `bun:"started_at,nullzero" bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	EndedAt   *time.Time `bun:"ended_at,nullzero" bson:"endedAt,omitempty" json:"endedAt,omitempty"`
	CreatedAt time.Time  `bun:"created_at,notnull" bson:"createdAt" json:"createdAt"`
}

// LiveStreamUpdate carries the mutable broadcast fields; nil means unchanged.
type LiveStreamUpdate struct {
	IsLive   *bool `json:"isLive"`
	Watching *int  `json:"watching" validate:"omitempty,gte=0"`
}
