// Package lifecycle derives an event's status from its schedule.
package lifecycle

import (
	"time"

	"ms-events/internal/utils"
)

type Status string

const (
	Upcoming  Status = "upcoming"
	Live      Status = "live"
	Completed Status = "completed"
)

// Valid reports whether s is one of the three lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case Upcoming, Live, Completed:
		return true
	}
	return false
}

// Classifier maps start/end timestamps to a Status. Events without an end time
// are single-day events whose day boundaries are taken in Location.
type Classifier struct {
	Location *time.Location
}

func NewClassifier(loc *time.Location) Classifier {
	if loc == nil {
		loc = time.Local
	}
	return Classifier{Location: loc}
}

func (c Classifier) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// Classify returns upcoming when start is nil.
func (c Classifier) Classify(start, end *time.Time, now time.Time) Status {
	if start == nil || start.IsZero() {
		return Upcoming
	}

	if end != nil && !end.IsZero() {
		if now.After(*end) {
			return Completed
		}
		if !now.Before(*start) {
			return Live
		}
		return Upcoming
	}

	local := start.In(c.location())
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.location())
	nextDay := dayStart.AddDate(0, 0, 1)

	if !now.Before(nextDay) {
		return Completed
	}
	if !now.Before(dayStart) {
		return Live
	}
	return Upcoming
}

// ClassifyRaw parses textual timestamps first. An unparseable start yields
// upcoming; an unparseable end is treated as absent.
func (c Classifier) ClassifyRaw(startRaw, endRaw string, now time.Time) Status {
	start, ok := utils.ParseTimestamp(startRaw, c.location())
	if !ok {
		return Upcoming
	}
	var endPtr *time.Time
	if end, ok := utils.ParseTimestamp(endRaw, c.location()); ok {
		endPtr = &end
	}
	return c.Classify(&start, endPtr, now)
}

// DaysUntil is the ceiling of whole days between now and t.
func DaysUntil(t, now time.Time) int {
	d := t.Sub(now)
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) > 0 {
		days++
	}
	return days
}
