// Package mongostore implements store.Store on MongoDB, one collection per model.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"ms-events/internal/config"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/store"
)

const (
	eventsCollection        = "events"
	ticketsCollection       = "tickets"
	registrationsCollection = "registrations"
	usersCollection         = "users"
	liveStreamsCollection   = "live_streams"
)

type Store struct {
	db *mongo.Database
}

var _ store.Store = (*Store)(nil)

// Connect opens a single client for the process lifetime and verifies it with a ping.
func Connect(ctx context.Context, cfg config.MongoConfig, log *logger.Logger) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	log.Info("DATABASE", fmt.Sprintf("✅ MongoDB connection successful (database: %s)", cfg.Database))
	return New(client.Database(cfg.Database)), nil
}

func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

// EnsureIndexes creates the secondary indexes the list queries rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		eventsCollection: {
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "organizerId", Value: 1}}},
		},
		ticketsCollection:       {{Keys: bson.D{{Key: "eventId", Value: 1}}}},
		registrationsCollection: {{Keys: bson.D{{Key: "eventId", Value: 1}}}, {Keys: bson.D{{Key: "userId", Value: 1}}}},
		liveStreamsCollection:   {{Keys: bson.D{{Key: "eventId", Value: 1}}}},
	}
	for coll, models := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, readpref.Primary())
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.db.Client().Disconnect(ctx)
}

func (s *Store) findOne(ctx context.Context, coll, id string, out interface{}) error {
	err := s.db.Collection(coll).FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return err
}

func (s *Store) insert(ctx context.Context, coll string, doc interface{}) error {
	_, err := s.db.Collection(coll).InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicate
	}
	return err
}

func (s *Store) findAll(ctx context.Context, coll string, filter bson.M, sort bson.D, out interface{}) error {
	cursor, err := s.db.Collection(coll).Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return err
	}
	return cursor.All(ctx, out)
}

func inFilter(field string, values []string) bson.M {
	if len(values) == 0 {
		return bson.M{}
	}
	return bson.M{field: bson.M{"$in": values}}
}

// --- events ---

func (s *Store) CreateEvent(ctx context.Context, event *models.Event) error {
	return s.insert(ctx, eventsCollection, event)
}

func (s *Store) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	if err := s.findOne(ctx, eventsCollection, id, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *Store) ListEvents(ctx context.Context, filter store.EventFilter) ([]models.Event, error) {
	query := bson.M{}
	if filter.OrganizerID != "" {
		query["organizerId"] = filter.OrganizerID
	}
	events := []models.Event{}
	if err := s.findAll(ctx, eventsCollection, query, bson.D{{Key: "createdAt", Value: -1}}, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Store) UpdateEventPricing(ctx context.Context, id string, update models.PricingUpdate, at time.Time) error {
	res, err := s.db.Collection(eventsCollection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"standardPrice": update.StandardPrice,
		"vipPrice":      update.VIPPrice,
		"maxAttendees":  update.MaxAttendees,
		"discountCodes": update.DiscountCodes,
		"updatedAt":     at,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// --- ticket types ---

func (s *Store) CreateTicketType(ctx context.Context, ticket *models.TicketType) error {
	return s.insert(ctx, ticketsCollection, ticket)
}

func (s *Store) GetTicketType(ctx context.Context, id string) (*models.TicketType, error) {
	var ticket models.TicketType
	if err := s.findOne(ctx, ticketsCollection, id, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (s *Store) ListTicketTypes(ctx context.Context, eventIDs []string) ([]models.TicketType, error) {
	tickets := []models.TicketType{}
	if err := s.findAll(ctx, ticketsCollection, inFilter("eventId", eventIDs), bson.D{{Key: "createdAt", Value: 1}}, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *Store) IncrementSold(ctx context.Context, id string) error {
	res, err := s.db.Collection(ticketsCollection).UpdateOne(ctx,
		bson.M{"_id": id, "$expr": bson.M{"$lt": bson.A{"$sold", "$quantity"}}},
		bson.M{"$inc": bson.M{"sold": 1}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	if _, err := s.GetTicketType(ctx, id); err != nil {
		return err
	}
	return store.ErrSoldOut
}

// --- registrations ---

// registeredField counts registrations on the event document so the capacity
// check and the reservation happen in one conditional update.
const registeredField = "registeredCount"

// RegisterAttendee reserves a seat on the event, sells the ticket and inserts
// the registration, undoing the earlier steps when a later one fails.
func (s *Store) RegisterAttendee(ctx context.Context, reg *models.Registration) error {
	events := s.db.Collection(eventsCollection)
	res, err := events.UpdateOne(ctx,
		bson.M{"_id": reg.EventID, "$expr": bson.M{"$or": bson.A{
			bson.M{"$lte": bson.A{bson.M{"$ifNull": bson.A{"$maxAttendees", 0}}, 0}},
			bson.M{"$lt": bson.A{bson.M{"$ifNull": bson.A{"$" + registeredField, 0}}, "$maxAttendees"}},
		}}},
		bson.M{"$inc": bson.M{registeredField: 1}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, err := s.GetEvent(ctx, reg.EventID); err != nil {
			return err
		}
		return store.ErrEventFull
	}

	// Compensation must run even when the caller has gone away.
	undo := context.WithoutCancel(ctx)
	releaseSeat := func() {
		events.UpdateOne(undo, bson.M{"_id": reg.EventID}, bson.M{"$inc": bson.M{registeredField: -1}})
	}

	if reg.TicketID != "" {
		if err := s.IncrementSold(ctx, reg.TicketID); err != nil {
			releaseSeat()
			return err
		}
	}
	if err := s.insert(ctx, registrationsCollection, reg); err != nil {
		releaseSeat()
		if reg.TicketID != "" {
			s.db.Collection(ticketsCollection).UpdateOne(undo, bson.M{"_id": reg.TicketID}, bson.M{"$inc": bson.M{"sold": -1}})
		}
		return err
	}
	return nil
}

func (s *Store) CreateRegistration(ctx context.Context, reg *models.Registration) error {
	return s.insert(ctx, registrationsCollection, reg)
}

func (s *Store) GetRegistration(ctx context.Context, id string) (*models.Registration, error) {
	var reg models.Registration
	if err := s.findOne(ctx, registrationsCollection, id, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

func (s *Store) ListRegistrations(ctx context.Context, filter store.RegistrationFilter) ([]models.Registration, error) {
	query := inFilter("eventId", filter.EventIDs)
	if filter.UserID != "" {
		query["userId"] = filter.UserID
	}
	regs := []models.Registration{}
	if err := s.findAll(ctx, registrationsCollection, query, bson.D{{Key: "createdAt", Value: 1}}, &regs); err != nil {
		return nil, err
	}
	return regs, nil
}

func (s *Store) MarkCheckedIn(ctx context.Context, id string, at time.Time, by, method string) error {
	res, err := s.db.Collection(registrationsCollection).UpdateOne(ctx,
		bson.M{"_id": id, "checkedInAt": nil},
		bson.M{"$set": bson.M{"checkedInAt": at, "checkedInBy": by, "checkInMethod": method}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	if _, err := s.GetRegistration(ctx, id); err != nil {
		return err
	}
	return store.ErrAlreadyCheckedIn
}

// --- users ---

func (s *Store) SaveUser(ctx context.Context, user *models.User) error {
	_, err := s.db.Collection(usersCollection).UpdateOne(ctx,
		bson.M{"_id": user.UID},
		bson.M{
			"$set": bson.M{
				"name":         user.Name,
				"email":        user.Email,
				"accountType":  user.AccountType,
				"phone":        user.Phone,
				"organization": user.Organization,
				"interests":    user.Interests,
				"updatedAt":    user.UpdatedAt,
			},
			"$setOnInsert": bson.M{"createdAt": user.CreatedAt},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *Store) GetUser(ctx context.Context, uid string) (*models.User, error) {
	var user models.User
	if err := s.findOne(ctx, usersCollection, uid, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// --- live streams ---

func (s *Store) CreateLiveStream(ctx context.Context, stream *models.LiveStream) error {
	return s.insert(ctx, liveStreamsCollection, stream)
}

func (s *Store) GetLiveStream(ctx context.Context, id string) (*models.LiveStream, error) {
	var stream models.LiveStream
	if err := s.findOne(ctx, liveStreamsCollection, id, &stream); err != nil {
		return nil, err
	}
	return &stream, nil
}

func (s *Store) ListLiveStreams(ctx context.Context, eventIDs []string) ([]models.LiveStream, error) {
	streams := []models.LiveStream{}
	if err := s.findAll(ctx, liveStreamsCollection, inFilter("eventId", eventIDs), bson.D{{Key: "createdAt", Value: -1}}, &streams); err != nil {
		return nil, err
	}
	return streams, nil
}

func (s *Store) UpdateLiveStream(ctx context.Context, stream *models.LiveStream) error {
	res, err := s.db.Collection(liveStreamsCollection).UpdateOne(ctx, bson.M{"_id": stream.ID}, bson.M{"$set": bson.M{
		"isLive":    stream.IsLive,
		"watching":  stream.Watching,
		"startedAt": stream.StartedAt,
		"endedAt":   stream.EndedAt,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
