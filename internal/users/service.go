package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"

	"ms-events/internal/clock"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/store"
	"ms-events/internal/validation"
)

// ErrSavedUnavailable is returned by the saved-events calls when no redis
// client is configured.
var ErrSavedUnavailable = errors.New("saved events store unavailable")

type DBLayer interface {
	store.UserRepository
	GetEvent(ctx context.Context, id string) (*models.Event, error)
}

type SaveUserRequest struct {
	UID          string   `json:"firebaseUid" validate:"required"`
	Name         string   `json:"name"`
	Email        string   `json:"email" validate:"required,email"`
	AccountType  string   `json:"accountType" validate:"omitempty,oneof=personal organization"`
	Phone        string   `json:"phone"`
	Organization string   `json:"organization"`
	Interests    []string `json:"interests"`
}

type UserService struct {
	DB        DBLayer
	Redis     *redis.Client
	Clock     clock.Clock
	Logger    *logger.Logger
	validator *validation.StructValidator
}

func NewUserService(db DBLayer, rdb *redis.Client, clk clock.Clock, log *logger.Logger) *UserService {
	return &UserService{
		DB:        db,
		Redis:     rdb,
		Clock:     clk,
		Logger:    log,
		validator: validation.NewStructValidator(),
	}
}

// SaveUser creates the profile or refreshes it, keeping the first createdAt.
func (s *UserService) SaveUser(ctx context.Context, req SaveUserRequest) (*models.User, error) {
	req.UID = strings.TrimSpace(req.UID)
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	if req.AccountType == "" {
		req.AccountType = models.AccountPersonal
	}

	now := s.Clock.Now()
	user := &models.User{
		UID:          req.UID,
		Name:         req.Name,
		Email:        req.Email,
		AccountType:  req.AccountType,
		Phone:        req.Phone,
		Organization: req.Organization,
		Interests:    req.Interests,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.DB.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user %s: %w", req.UID, err)
	}

	s.Logger.Info("USERS", fmt.Sprintf("Saved user %s (%s)", user.UID, user.AccountType))
	return s.DB.GetUser(ctx, user.UID)
}

func (s *UserService) GetUser(ctx context.Context, uid string) (*models.User, error) {
	return s.DB.GetUser(ctx, uid)
}

func savedKey(uid string) string {
	return "saved:" + uid
}

func (s *UserService) SaveEvent(ctx context.Context, uid, eventID string) error {
	if s.Redis == nil {
		return ErrSavedUnavailable
	}
	if _, err := s.DB.GetEvent(ctx, eventID); err != nil {
		return err
	}
	if err := s.Redis.SAdd(ctx, savedKey(uid), eventID).Err(); err != nil {
		return fmt.Errorf("failed to save event %s for %s: %w", eventID, uid, err)
	}
	return nil
}

func (s *UserService) UnsaveEvent(ctx context.Context, uid, eventID string) error {
	if s.Redis == nil {
		return ErrSavedUnavailable
	}
	if err := s.Redis.SRem(ctx, savedKey(uid), eventID).Err(); err != nil {
		return fmt.Errorf("failed to remove saved event %s for %s: %w", eventID, uid, err)
	}
	return nil
}

// SavedEvents resolves the user's saved ids, dropping events deleted since.
func (s *UserService) SavedEvents(ctx context.Context, uid string) ([]models.Event, error) {
	if s.Redis == nil {
		return nil, ErrSavedUnavailable
	}
	ids, err := s.Redis.SMembers(ctx, savedKey(uid)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read saved events for %s: %w", uid, err)
	}

	out := make([]models.Event, 0, len(ids))
	for _, id := range ids {
		event, err := s.DB.GetEvent(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			s.Redis.SRem(ctx, savedKey(uid), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *event)
	}
	return out, nil
}
