package tickets

import (
	"context"
	"fmt"
	"math"
	"strings"

	"ms-events/internal/models"
)

// Quote is the price of one ticket after an optional discount code.
type Quote struct {
	TicketID       string  `json:"ticketId"`
	Code           string  `json:"code,omitempty"`
	IsValid        bool    `json:"isValid"`
	Reason         string  `json:"reason,omitempty"`
	Price          float64 `json:"price"`
	DiscountAmount float64 `json:"discountAmount"`
	Total          float64 `json:"total"`
}

// ApplyDiscount checks code against the event's codes. A ticket type that
// names its own discount code only accepts that code. Invalid codes are not an
// error: the quote carries the reason and the full price.
func ApplyDiscount(event models.Event, ticket models.TicketType, code string) Quote {
	q := Quote{TicketID: ticket.ID, Price: ticket.Price, Total: ticket.Price}
	code = strings.TrimSpace(code)
	if code == "" {
		return q
	}
	q.Code = code

	if ticket.DiscountCode != "" && !strings.EqualFold(ticket.DiscountCode, code) {
		q.Reason = "Discount code does not apply to this ticket"
		return q
	}

	var match *models.DiscountCode
	for i := range event.DiscountCodes {
		if strings.EqualFold(event.DiscountCodes[i].Code, code) {
			match = &event.DiscountCodes[i]
			break
		}
	}
	if match == nil {
		q.Reason = "Unknown discount code"
		return q
	}
	if match.Percentage <= 0 {
		q.Reason = "Discount code has no value"
		return q
	}

	pct := math.Min(match.Percentage, 100)
	q.DiscountAmount = math.Round(ticket.Price*pct) / 100
	q.Total = ticket.Price - q.DiscountAmount
	q.IsValid = true
	return q
}

func (s *TicketService) Quote(ctx context.Context, ticketID, code string) (*Quote, error) {
	ticket, err := s.DB.GetTicketType(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	event, err := s.DB.GetEvent(ctx, ticket.EventID)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", ticket.EventID, err)
	}
	q := ApplyDiscount(*event, *ticket, code)
	return &q, nil
}
