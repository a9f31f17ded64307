package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/joho/godotenv"

	"ms-events/internal/config"
	"ms-events/internal/database/migrations"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/store"
	"ms-events/internal/store/bunstore"
)

func main() {
	down := flag.Bool("down", false, "roll back every migration")
	seed := flag.Bool("seed", false, "insert sample data after migrating")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Close()

	runner := migrations.NewRunner(cfg.Database.DSN, log)
	defer runner.Close()

	if *down {
		if err := runner.Down(); err != nil {
			log.Fatal("DATABASE", err.Error())
		}
		log.Info("DATABASE", "✅ Migrations rolled back")
		return
	}

	if err := runner.Up(); err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	log.Info("DATABASE", "✅ Migrations applied")

	if !*seed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := bunstore.OpenPostgres(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	s := bunstore.New(db)
	defer s.Close()

	if err := seedData(ctx, s, time.Now()); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Seeding failed: %v", err))
	}
	log.Info("DATABASE", "✅ Sample data seeded")
}

func seedData(ctx context.Context, s store.Store, now time.Time) error {
	organizer := &models.User{
		UID:          "seed-organizer",
		Name:         "Summer Fest Org",
		Email:        "organizer@example.com",
		AccountType:  models.AccountOrganization,
		Organization: "Summer Fest Ltd",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.SaveUser(ctx, organizer); err != nil {
		return fmt.Errorf("seed user: %w", err)
	}

	start := now.AddDate(0, 1, 0)
	end := start.AddDate(0, 0, 3)
	event := &models.Event{
		ID:            "00000000-0000-4000-8000-000000000001",
		Title:         "Summer Fest 2025",
		Description:   "Annual summer music festival.",
		EventType:     "festival",
		StartTime:     &start,
		EndTime:       &end,
		Location:      models.Location{Address: "Galle Face Green", City: "Colombo", Country: "Sri Lanka"},
		OrganizerID:   organizer.UID,
		StandardPrice: 40,
		VIPPrice:      120,
		MaxAttendees:  500,
		DiscountCodes: []models.DiscountCode{{Code: "SUMMER20", Percentage: 20}},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.CreateEvent(ctx, event); err != nil && !errors.Is(err, store.ErrDuplicate) {
		return fmt.Errorf("seed event: %w", err)
	}

	tickets := []*models.TicketType{
		{ID: "00000000-0000-4000-8000-000000000011", EventID: event.ID, Title: "General", Price: 40, Quantity: 450, CreatedAt: now},
		{ID: "00000000-0000-4000-8000-000000000012", EventID: event.ID, Title: "VIP", Price: 120, Quantity: 50, CreatedAt: now},
	}
	for _, ticket := range tickets {
		if err := s.CreateTicketType(ctx, ticket); err != nil && !errors.Is(err, store.ErrDuplicate) {
			return fmt.Errorf("seed ticket type %s: %w", ticket.Title, err)
		}
	}

	stream := &models.LiveStream{
		ID:        "00000000-0000-4000-8000-000000000021",
		EventID:   event.ID,
		Title:     "Main stage",
		StreamURL: "https://stream.example.com/summer-fest",
		CreatedAt: now,
	}
	if err := s.CreateLiveStream(ctx, stream); err != nil && !errors.Is(err, store.ErrDuplicate) {
		return fmt.Errorf("seed live stream: %w", err)
	}
	return nil
}
