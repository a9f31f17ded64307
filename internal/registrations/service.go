package registrations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ms-events/internal/cache"
	"ms-events/internal/clock"
	"ms-events/internal/config"
	"ms-events/internal/filter"
	"ms-events/internal/kafka"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/pdf"
	"ms-events/internal/qr"
	"ms-events/internal/store"
	"ms-events/internal/utils"
	"ms-events/internal/validation"
)

var ErrEventFull = store.ErrEventFull

var requiredFields = []string{"firstName", "lastName", "email"}

type DBLayer interface {
	store.RegistrationRepository
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	GetTicketType(ctx context.Context, id string) (*models.TicketType, error)
}

// Broadcaster pushes check-ins to live attendance views.
type Broadcaster interface {
	Broadcast(checkIn models.CheckIn)
}

type RegisterRequest struct {
	EventID      string            `json:"eventId" validate:"required"`
	UserID       string            `json:"userId"`
	TicketID     string            `json:"ticketId"`
	CustomFields map[string]string `json:"customFields"`
}

type Registered struct {
	Registration *models.Registration `json:"registration"`
	QRPayload    string               `json:"qrPayload"`
}

// CheckInRequest names the attendee either directly or by a scanned QR code.
type CheckInRequest struct {
	RegistrationID string `json:"registrationId"`
	Token          string `json:"token"`
	CheckedInBy    string `json:"checkedInBy"`
	// EventID, when set, rejects attendees registered for another event.
	EventID string `json:"eventId"`
}

type CheckInReport struct {
	CheckIns   []models.CheckIn `json:"checkIns"`
	CheckedIn  int              `json:"checkedIn"`
	Total      int              `json:"total"`
	Percentage float64          `json:"percentage"`
}

type Service struct {
	DB          DBLayer
	QR          *qr.Generator
	Broadcaster Broadcaster
	Publisher   kafka.Publisher
	Topics      config.TopicConfig
	Clock       clock.Clock
	Logger      *logger.Logger
	// Dashboard, when set, is told about every new registration.
	Dashboard cache.Invalidator
	validator *validation.StructValidator
}

func NewService(db DBLayer, qrGen *qr.Generator, broadcaster Broadcaster, publisher kafka.Publisher, topics config.TopicConfig, clk clock.Clock, log *logger.Logger) *Service {
	return &Service{
		DB:          db,
		QR:          qrGen,
		Broadcaster: broadcaster,
		Publisher:   publisher,
		Topics:      topics,
		Clock:       clk,
		Logger:      log,
		validator:   validation.NewStructValidator(),
	}
}

func (s *Service) validateRegistration(req RegisterRequest) error {
	if err := s.validator.ValidateStruct(req); err != nil {
		return err
	}
	fields := map[string]string{}
	for _, name := range requiredFields {
		if strings.TrimSpace(req.CustomFields[name]) == "" {
			fields["customFields."+name] = "is required"
		}
	}
	if email := req.CustomFields["email"]; email != "" && s.validator.Validator.Var(email, "email") != nil {
		fields["customFields.email"] = "must be a valid email"
	}
	if len(fields) > 0 {
		return &validation.Error{Fields: fields}
	}
	return nil
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Registered, error) {
	if err := s.validateRegistration(req); err != nil {
		return nil, err
	}

	event, err := s.DB.GetEvent(ctx, req.EventID)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", req.EventID, err)
	}

	if req.TicketID != "" {
		ticket, err := s.DB.GetTicketType(ctx, req.TicketID)
		if err != nil {
			return nil, fmt.Errorf("ticket type %s: %w", req.TicketID, err)
		}
		if ticket.EventID != event.ID {
			return nil, &validation.Error{Fields: map[string]string{"ticketId": "does not belong to this event"}}
		}
	}

	reg := &models.Registration{
		ID:           utils.GenerateID(),
		EventID:      event.ID,
		UserID:       req.UserID,
		TicketID:     req.TicketID,
		CustomFields: req.CustomFields,
		CreatedAt:    s.Clock.Now(),
	}
	// capacity, ticket sale and insert succeed or fail together
	if err := s.DB.RegisterAttendee(ctx, reg); err != nil {
		if errors.Is(err, store.ErrSoldOut) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create registration: %w", err)
	}
	if s.Dashboard != nil {
		s.Dashboard.Invalidate(ctx, event.OrganizerID)
	}

	payload, err := s.QR.Payload(*reg)
	if err != nil {
		return nil, fmt.Errorf("failed to build QR payload: %w", err)
	}

	s.Logger.Info("REGISTRATIONS", fmt.Sprintf("Registered %s for event %s (%s)", reg.AttendeeName(), event.ID, reg.ID))
	kafka.PublishAsync(s.Publisher, s.Logger, s.Topics.RegistrationCreated, reg.ID, reg)
	return &Registered{Registration: reg, QRPayload: payload}, nil
}

func (s *Service) List(ctx context.Context, eventID, userID, text string) ([]models.Registration, error) {
	f := store.RegistrationFilter{UserID: userID}
	if eventID != "" {
		f.EventIDs = []string{eventID}
	}
	regs, err := s.DB.ListRegistrations(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	return filter.Attendees(regs, text), nil
}

func (s *Service) QRCode(ctx context.Context, id string) ([]byte, error) {
	reg, err := s.DB.GetRegistration(ctx, id)
	if err != nil {
		return nil, err
	}
	payload, err := s.QR.Payload(*reg)
	if err != nil {
		return nil, err
	}
	return s.QR.PNG(payload)
}

func (s *Service) TicketPDF(ctx context.Context, id string) ([]byte, error) {
	reg, err := s.DB.GetRegistration(ctx, id)
	if err != nil {
		return nil, err
	}
	event, err := s.DB.GetEvent(ctx, reg.EventID)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", reg.EventID, err)
	}

	qrPNG, err := s.QRCode(ctx, id)
	if err != nil {
		return nil, err
	}

	data := pdf.TicketData{
		RegistrationID: reg.ID,
		EventTitle:     event.Title,
		StartTime:      event.StartTime,
		EndTime:        event.EndTime,
		Location:       formatLocation(event.Location),
		AttendeeName:   reg.AttendeeName(),
		AttendeeEmail:  reg.Field("email"),
		QRCodePNG:      qrPNG,
	}
	if reg.TicketID != "" {
		if ticket, err := s.DB.GetTicketType(ctx, reg.TicketID); err == nil {
			data.TicketType = ticket.Title
			data.Price = ticket.Price
		}
	}
	return pdf.GenerateTicketPDF(data)
}

func formatLocation(l models.Location) string {
	if l.Kind() == models.LocationVirtual {
		return l.VirtualLink
	}
	parts := make([]string, 0, 3)
	for _, p := range []string{l.Address, l.City, l.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func (s *Service) CheckIn(ctx context.Context, req CheckInRequest) (*models.CheckIn, error) {
	id := strings.TrimSpace(req.RegistrationID)
	method := models.CheckInManual

	if req.Token != "" {
		claims, err := s.QR.Decode(req.Token)
		if errors.Is(err, qr.ErrInvalidToken) {
			return nil, &validation.Error{Fields: map[string]string{"token": "is not a valid check-in code"}}
		}
		if err != nil {
			return nil, err
		}
		id = claims.RegistrationID
		method = models.CheckInQR
	}
	if id == "" {
		return nil, &validation.Error{Fields: map[string]string{"registrationId": "is required"}}
	}

	reg, err := s.DB.GetRegistration(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.EventID != "" && reg.EventID != req.EventID {
		return nil, &validation.Error{Fields: map[string]string{"eventId": "registration belongs to another event"}}
	}

	at := s.Clock.Now()
	if err := s.DB.MarkCheckedIn(ctx, id, at, req.CheckedInBy, method); err != nil {
		return nil, err
	}
	reg.CheckedInAt = &at
	reg.CheckedInBy = req.CheckedInBy
	reg.CheckInMethod = method

	checkIn := models.NewCheckIn(*reg)
	s.Logger.Info("CHECKIN", fmt.Sprintf("Checked in %s for event %s via %s", reg.ID, reg.EventID, method))
	if s.Broadcaster != nil {
		s.Broadcaster.Broadcast(checkIn)
	}
	kafka.PublishAsync(s.Publisher, s.Logger, s.Topics.CheckedIn, reg.EventID, checkIn)
	return &checkIn, nil
}

// CheckIns reports the attendance of one event.
func (s *Service) CheckIns(ctx context.Context, eventID string) (*CheckInReport, error) {
	regs, err := s.DB.ListRegistrations(ctx, store.RegistrationFilter{EventIDs: []string{eventID}})
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}

	report := &CheckInReport{CheckIns: []models.CheckIn{}, Total: len(regs)}
	for _, reg := range regs {
		if reg.IsCheckedIn() {
			report.CheckIns = append(report.CheckIns, models.NewCheckIn(reg))
		}
	}
	report.CheckedIn = len(report.CheckIns)
	if report.Total > 0 {
		report.Percentage = float64(report.CheckedIn) / float64(report.Total) * 100
	}
	return report, nil
}
