// Package bunstore implements store.Store on top of uptrace/bun. Production runs
// on PostgreSQL; tests run the same code against in-memory SQLite.
package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"ms-events/internal/models"
	"ms-events/internal/store"
)

type DB struct {
	Bun *bun.DB
}

var _ store.Store = (*DB)(nil)

func New(db *bun.DB) *DB {
	return &DB{Bun: db}
}

var schemaModels = []interface{}{
	(*models.User)(nil),
	(*models.Event)(nil),
	(*models.TicketType)(nil),
	(*models.Registration)(nil),
	(*models.LiveStream)(nil),
}

// CreateSchema creates any missing tables straight from the models. PostgreSQL
// deployments use the SQL migrations instead.
func (d *DB) CreateSchema(ctx context.Context) error {
	for _, m := range schemaModels {
		if _, err := d.Bun.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", m, err)
		}
	}
	return nil
}

func (d *DB) Ping(ctx context.Context) error {
	return d.Bun.PingContext(ctx)
}

func (d *DB) Close() error {
	return d.Bun.Close()
}

func (d *DB) insert(ctx context.Context, model interface{}) error {
	_, err := d.Bun.NewInsert().Model(model).Exec(ctx)
	if isUniqueViolation(err) {
		return store.ErrDuplicate
	}
	return err
}

// isUniqueViolation recognises duplicate keys from postgres (23505) and sqlite.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// --- events ---

func (d *DB) CreateEvent(ctx context.Context, event *models.Event) error {
	return d.insert(ctx, event)
}

func (d *DB) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return &event, nil
}

func (d *DB) ListEvents(ctx context.Context, filter store.EventFilter) ([]models.Event, error) {
	events := []models.Event{}
	q := d.Bun.NewSelect().Model(&events).Order("created_at DESC")
	if filter.OrganizerID != "" {
		q = q.Where("organizer_id = ?", filter.OrganizerID)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return events, nil
}

func (d *DB) UpdateEventPricing(ctx context.Context, id string, update models.PricingUpdate, at time.Time) error {
	event := &models.Event{
		ID:            id,
		StandardPrice: update.StandardPrice,
		VIPPrice:      update.VIPPrice,
		MaxAttendees:  update.MaxAttendees,
		DiscountCodes: update.DiscountCodes,
		UpdatedAt:     at,
	}
	res, err := d.Bun.NewUpdate().
		Model(event).
		Column("standard_price", "vip_price", "max_attendees", "discount_codes", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// --- ticket types ---

func (d *DB) CreateTicketType(ctx context.Context, ticket *models.TicketType) error {
	return d.insert(ctx, ticket)
}

func (d *DB) GetTicketType(ctx context.Context, id string) (*models.TicketType, error) {
	var ticket models.TicketType
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return &ticket, nil
}

func (d *DB) ListTicketTypes(ctx context.Context, eventIDs []string) ([]models.TicketType, error) {
	tickets := []models.TicketType{}
	q := d.Bun.NewSelect().Model(&tickets).Order("created_at ASC")
	if len(eventIDs) > 0 {
		q = q.Where("event_id IN (?)", bun.In(eventIDs))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (d *DB) IncrementSold(ctx context.Context, id string) error {
	return incrementSold(ctx, d.Bun, id)
}

func incrementSold(ctx context.Context, db bun.IDB, id string) error {
	res, err := db.NewUpdate().
		Model((*models.TicketType)(nil)).
		Set("sold = sold + 1").
		Where("id = ?", id).
		Where("sold < quantity").
		Exec(ctx)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	exists, err := db.NewSelect().Model((*models.TicketType)(nil)).Where("id = ?", id).Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return store.ErrNotFound
	}
	return store.ErrSoldOut
}

// --- registrations ---

func (d *DB) CreateRegistration(ctx context.Context, reg *models.Registration) error {
	return d.insert(ctx, reg)
}

// RegisterAttendee runs the capacity check, the ticket sale and the insert in
// one transaction. On PostgreSQL the event row is locked for the duration so
// concurrent sign-ups for the same event queue up behind each other.
func (d *DB) RegisterAttendee(ctx context.Context, reg *models.Registration) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var event models.Event
		q := tx.NewSelect().
			Model(&event).
			Column("id", "max_attendees").
			Where("id = ?", reg.EventID)
		if d.Bun.Dialect().Name() == dialect.PG {
			q = q.For("UPDATE")
		}
		if err := q.Scan(ctx); err != nil {
			return notFound(err)
		}

		if event.MaxAttendees > 0 {
			n, err := tx.NewSelect().
				Model((*models.Registration)(nil)).
				Where("event_id = ?", reg.EventID).
				Count(ctx)
			if err != nil {
				return err
			}
			if n >= event.MaxAttendees {
				return store.ErrEventFull
			}
		}

		if reg.TicketID != "" {
			if err := incrementSold(ctx, tx, reg.TicketID); err != nil {
				return err
			}
		}

		_, err := tx.NewInsert().Model(reg).Exec(ctx)
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return err
	})
}

func (d *DB) GetRegistration(ctx context.Context, id string) (*models.Registration, error) {
	var reg models.Registration
	err := d.Bun.NewSelect().
		Model(&reg).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return &reg, nil
}

func (d *DB) ListRegistrations(ctx context.Context, filter store.RegistrationFilter) ([]models.Registration, error) {
	regs := []models.Registration{}
	q := d.Bun.NewSelect().Model(&regs).Order("created_at ASC")
	if len(filter.EventIDs) > 0 {
		q = q.Where("event_id IN (?)", bun.In(filter.EventIDs))
	}
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return regs, nil
}

func (d *DB) MarkCheckedIn(ctx context.Context, id string, at time.Time, by, method string) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Registration)(nil)).
		Set("checked_in_at = ?", at).
		Set("checked_in_by = ?", by).
		Set("check_in_method = ?", method).
		Where("id = ?", id).
		Where("checked_in_at IS NULL").
		Exec(ctx)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := d.GetRegistration(ctx, id); err != nil {
		return err
	}
	return store.ErrAlreadyCheckedIn
}

// --- users ---

func (d *DB) SaveUser(ctx context.Context, user *models.User) error {
	_, err := d.Bun.NewInsert().
		Model(user).
		On("CONFLICT (uid) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("email = EXCLUDED.email").
		Set("account_type = EXCLUDED.account_type").
		Set("phone = EXCLUDED.phone").
		Set("organization = EXCLUDED.organization").
		Set("interests = EXCLUDED.interests").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (d *DB) GetUser(ctx context.Context, uid string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("uid = ?", uid).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// --- live streams ---

func (d *DB) CreateLiveStream(ctx context.Context, stream *models.LiveStream) error {
	return d.insert(ctx, stream)
}

func (d *DB) GetLiveStream(ctx context.Context, id string) (*models.LiveStream, error) {
	var stream models.LiveStream
	err := d.Bun.NewSelect().
		Model(&stream).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return &stream, nil
}

func (d *DB) ListLiveStreams(ctx context.Context, eventIDs []string) ([]models.LiveStream, error) {
	streams := []models.LiveStream{}
	q := d.Bun.NewSelect().Model(&streams).Order("created_at DESC")
	if len(eventIDs) > 0 {
		q = q.Where("event_id IN (?)", bun.In(eventIDs))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return streams, nil
}

func (d *DB) UpdateLiveStream(ctx context.Context, stream *models.LiveStream) error {
	res, err := d.Bun.NewUpdate().
		Model(stream).
		Column("is_live", "watching", "started_at", "ended_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
