package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	kafkago "github.com/segmentio/kafka-go"

	"ms-events/internal/auth"
	"ms-events/internal/cache"
	"ms-events/internal/clock"
	"ms-events/internal/config"
	"ms-events/internal/dashboard"
	"ms-events/internal/dashboard/dashboard_api"
	"ms-events/internal/database/migrations"
	"ms-events/internal/events"
	"ms-events/internal/events/event_api"
	"ms-events/internal/kafka"
	"ms-events/internal/lifecycle"
	"ms-events/internal/livestreams"
	"ms-events/internal/livestreams/livestream_api"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/qr"
	"ms-events/internal/registrations"
	"ms-events/internal/registrations/registration_api"
	"ms-events/internal/sse"
	"ms-events/internal/store"
	"ms-events/internal/store/bunstore"
	"ms-events/internal/store/mongostore"
	"ms-events/internal/tickets"
	"ms-events/internal/tickets/ticket_api"
	"ms-events/internal/users"
	"ms-events/internal/users/user_api"
	"ms-events/internal/utils"
)

func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (store.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverMongo:
		s, err := mongostore.Connect(ctx, cfg.Mongo, log)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureIndexes(ctx); err != nil {
			log.Warn("DATABASE", fmt.Sprintf("Failed to ensure MongoDB indexes: %v", err))
		}
		return s, nil

	case config.DriverSQLite:
		s, err := bunstore.OpenSQLite(ctx, cfg.Database.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info("DATABASE", fmt.Sprintf("✅ SQLite database ready at %s", cfg.Database.SQLitePath))
		return s, nil

	case config.DriverPostgres:
		if cfg.Database.MigrationsRun {
			runner := migrations.NewRunner(cfg.Database.DSN, log)
			err := runner.Up()
			runner.Close()
			if err != nil {
				return nil, err
			}
		}
		db, err := bunstore.OpenPostgres(ctx, cfg.Database, log)
		if err != nil {
			return nil, err
		}
		return bunstore.New(db), nil

	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.Database.Driver)
	}
}

// connectRedis returns nil when redis is unreachable; the dashboard then skips
// its cache and saved events answer 503.
func connectRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) *redis.Client {
	if cfg.Addr == "" {
		log.Warn("REDIS", "REDIS_ADDR not set, running without cache")
		return nil
	}
	client, err := cache.Connect(ctx, cfg.Addr, log)
	if err != nil {
		log.Warn("REDIS", fmt.Sprintf("Redis unavailable, running without cache: %v", err))
		return nil
	}
	return client
}

// feedHub relays check-ins published by any instance into the local SSE hub.
func feedHub(ctx context.Context, consumer *kafka.Consumer, hub *sse.CheckInHub, log *logger.Logger) {
	consumer.Run(ctx, func(msg kafkago.Message) {
		var checkIn models.CheckIn
		if err := json.Unmarshal(msg.Value, &checkIn); err != nil {
			log.Error("KAFKA", fmt.Sprintf("Failed to decode check-in: %v", err))
			return
		}
		hub.Broadcast(checkIn)
	})
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Close()
	log.Info("APP", "Starting events platform")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer st.Close()

	redisClient := connectRedis(ctx, cfg.Redis, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	hub := sse.NewCheckInHub()
	var broadcaster registrations.Broadcaster = hub

	var publisher kafka.Publisher = kafka.NopPublisher{}
	if cfg.Kafka.Enabled {
		if err := kafka.EnsureTopicsExist(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topics.All(), log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers, log)
		defer producer.Close()
		publisher = producer
		log.Info("KAFKA", "Kafka producer initialized successfully")

		consumer, err := kafka.NewTailConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.CheckedIn, log)
		if err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Check-in feed falls back to local broadcasts: %v", err))
		} else {
			defer consumer.Close()
			broadcaster = nil
			go feedHub(ctx, consumer, hub, log)
		}
	} else {
		log.Info("KAFKA", "Kafka disabled, notifications are not published")
	}

	verifier, err := auth.NewVerifier(ctx, cfg.Auth)
	if err != nil {
		log.Fatal("AUTH", fmt.Sprintf("Failed to initialize token verifier: %v", err))
	}
	if verifier == nil {
		log.Warn("AUTH", "No OIDC issuer configured, write routes are open")
	}
	protect := auth.Middleware(verifier, log)

	if cfg.QR.SecretKey == "" {
		log.Warn("CONFIG", "QR_SECRET_KEY not set, check-in tokens use an empty key")
	}
	qrGen, err := qr.NewGenerator(cfg.QR.SecretKey, cfg.QR.Size)
	if err != nil {
		log.Fatal("CONFIG", fmt.Sprintf("Failed to initialize QR generator: %v", err))
	}

	clk := clock.NewSystem()
	classifier := lifecycle.NewClassifier(cfg.Events.Location())

	var dashboardCache *cache.JSONCache
	if redisClient != nil {
		dashboardCache = cache.NewJSONCache(redisClient, "dashboard", cfg.Redis.DashboardTTL)
	}

	dashboardService := dashboard.NewService(st, dashboardCache, classifier, clk, log)
	eventService := events.NewService(st, clk, classifier, publisher, cfg, log)
	ticketService := tickets.NewTicketService(st, clk, log)
	registrationService := registrations.NewService(st, qrGen, broadcaster, publisher, cfg.Kafka.Topics, clk, log)
	userService := users.NewUserService(st, redisClient, clk, log)
	liveStreamService := livestreams.NewLiveStreamService(st, publisher, cfg.Kafka.Topics.LiveStreamUpdated, clk, log)

	eventService.Dashboard = dashboardService
	ticketService.Dashboard = dashboardService
	registrationService.Dashboard = dashboardService
	liveStreamService.Dashboard = dashboardService

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(log.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			utils.WriteError(w, http.StatusServiceUnavailable, "Store unavailable", err)
			return
		}
		utils.WriteSuccess(w, http.StatusOK, "ok", nil)
	})

	event_api.NewHandler(eventService, log).RegisterRoutes(r, protect)
	ticket_api.NewHandler(ticketService, log).RegisterRoutes(r, protect)
	registration_api.NewHandler(registrationService, hub, log).RegisterRoutes(r, protect)
	user_api.NewHandler(userService, log).RegisterRoutes(r, protect)
	livestream_api.NewHandler(liveStreamService, log).RegisterRoutes(r, protect)
	dashboard_api.NewHandler(dashboardService, log).RegisterRoutes(r)
	log.Info("ROUTER", "API routes registered under /api")

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Events platform running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	cancel()
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server shutdown failed: %v", err))
	} else {
		log.Info("HTTP", "✅ Events platform shutdown complete")
	}
}
