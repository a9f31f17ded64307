// Package dashboard summarises an organizer's events for the overview page.
package dashboard

import (
	"time"

	"ms-events/internal/lifecycle"
	"ms-events/internal/models"
)

type EventRow struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Date      *time.Time `json:"date"`
	Type      string     `json:"type"`
	Status    string     `json:"status"`
	Attendees int        `json:"attendees"`
	Revenue   float64    `json:"revenue"`
	Watching  int        `json:"watching"`
}

type Summary struct {
	TotalEvents    int        `json:"totalEvents"`
	UpcomingEvents int        `json:"upcomingEvents"`
	TotalAttendees int        `json:"totalAttendees"`
	TicketsSold    int        `json:"ticketsSold"`
	Revenue        float64    `json:"revenue"`
	NextEventDays  int        `json:"nextEventDays"`
	Events         []EventRow `json:"events"`
}

// Input is whatever was fetched for one organizer. The slices need not be
// consistent with each other: records pointing at unknown events only count
// towards the totals.
type Input struct {
	Events        []models.Event
	Tickets       []models.TicketType
	Registrations []models.Registration
	LiveStreams   []models.LiveStream
}

// Aggregate is pure. Attendees are registrations; revenue is price times sold
// per ticket type.
func Aggregate(in Input, classifier lifecycle.Classifier, now time.Time) Summary {
	attendees := make(map[string]int)
	for _, r := range in.Registrations {
		attendees[r.EventID]++
	}

	revenue := make(map[string]float64)
	summary := Summary{Events: make([]EventRow, 0, len(in.Events))}
	for _, t := range in.Tickets {
		amount := t.Price * float64(t.Sold)
		revenue[t.EventID] += amount
		summary.Revenue += amount
		summary.TicketsSold += t.Sold
	}

	watching := make(map[string]int)
	for _, s := range in.LiveStreams {
		if s.IsLive {
			watching[s.EventID] += s.Watching
		}
	}

	next := 0
	for _, e := range in.Events {
		status := classifier.Classify(e.StartTime, e.EndTime, now)
		if status == lifecycle.Upcoming {
			summary.UpcomingEvents++
			if e.StartTime != nil {
				if days := lifecycle.DaysUntil(*e.StartTime, now); days > 0 && (next == 0 || days < next) {
					next = days
				}
			}
		}

		eventType := e.EventType
		if eventType == "" {
			eventType = "Event"
		}
		summary.Events = append(summary.Events, EventRow{
			ID:        e.ID,
			Title:     e.Title,
			Date:      e.StartTime,
			Type:      eventType,
			Status:    string(status),
			Attendees: attendees[e.ID],
			Revenue:   revenue[e.ID],
			Watching:  watching[e.ID],
		})
	}

	summary.TotalEvents = len(in.Events)
	summary.TotalAttendees = len(in.Registrations)
	summary.NextEventDays = next
	return summary
}
