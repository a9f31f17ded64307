// Package filter narrows in-memory lists by free-text search and exact-match facets.
package filter

import (
	"strings"

	"ms-events/internal/models"
)

// AllStatuses disables the status facet, as does an empty value.
const AllStatuses = "all"

type Query struct {
	Text     string
	Status   string
	Category string
}

func (q Query) statusActive() bool {
	return q.Status != "" && !strings.EqualFold(q.Status, AllStatuses)
}

// Apply keeps the items for which keep returns true, preserving order.
func Apply[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

// MatchText reports whether query is a case-insensitive substring of any field.
// An empty query matches everything.
func MatchText(query string, fields ...string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}
	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}

// Events matches title, address, city and event type, ANDed with the status and
// category facets. Status is compared against event.Status as given, so callers
// wanting computed statuses must refresh them first.
func Events(events []models.Event, q Query) []models.Event {
	return Apply(events, func(e models.Event) bool {
		if !MatchText(q.Text, e.Title, e.Location.Address, e.Location.City, e.EventType) {
			return false
		}
		if q.statusActive() && e.Status != q.Status {
			return false
		}
		if q.Category != "" && !strings.EqualFold(e.EventType, q.Category) {
			return false
		}
		return true
	})
}

func TicketTypes(tickets []models.TicketType, text string) []models.TicketType {
	return Apply(tickets, func(t models.TicketType) bool {
		return MatchText(text, t.Title)
	})
}

// Attendees matches registrations by attendee name or email.
func Attendees(regs []models.Registration, text string) []models.Registration {
	return Apply(regs, func(r models.Registration) bool {
		return MatchText(text, r.AttendeeName(), r.Field("email"))
	})
}
