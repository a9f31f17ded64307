package user_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-events/internal/auth"
	"ms-events/internal/logger"
	"ms-events/internal/users"
	"ms-events/internal/utils"
)

type Handler struct {
	UserService *users.UserService
	Logger      *logger.Logger
}

func NewHandler(userService *users.UserService, log *logger.Logger) *Handler {
	return &Handler{UserService: userService, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router, protect func(http.Handler) http.Handler) {
	r.With(protect).Post("/api/saveUser", h.SaveUser)
	r.Route("/api/users/{uid}", func(r chi.Router) {
		r.Get("/", h.GetUser)
		r.Get("/saved", h.ListSaved)
		r.With(protect).Put("/saved/{eventId}", h.SaveEvent)
		r.With(protect).Delete("/saved/{eventId}", h.UnsaveEvent)
	})
}

func (h *Handler) writeError(w http.ResponseWriter, message string, err error) {
	if errors.Is(err, users.ErrSavedUnavailable) {
		utils.WriteError(w, http.StatusServiceUnavailable, message, err)
		return
	}
	utils.WriteServiceError(w, message, err)
}

// actingAs resolves the user a write targets, answering 403 when the caller
// is signed in as someone else.
func (h *Handler) actingAs(w http.ResponseWriter, r *http.Request, claimed string) (string, bool) {
	uid, err := auth.ActingAs(r.Context(), claimed)
	if err != nil {
		h.Logger.LogSecurity("AUTH_FORBIDDEN", fmt.Sprintf("%s %s as %s by %s", r.Method, r.URL.Path, claimed, auth.UserID(r.Context())))
		utils.WriteError(w, http.StatusForbidden, "Forbidden", err)
		return "", false
	}
	return uid, true
}

func (h *Handler) SaveUser(w http.ResponseWriter, r *http.Request) {
	var req users.SaveUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	uid, ok := h.actingAs(w, r, req.UID)
	if !ok {
		return
	}
	req.UID = uid

	user, err := h.UserService.SaveUser(r.Context(), req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("SaveUser: %v", err))
		h.writeError(w, "Failed to save user", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "User saved successfully", user)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.UserService.GetUser(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		h.writeError(w, "User not found", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "User fetched successfully", user)
}

func (h *Handler) ListSaved(w http.ResponseWriter, r *http.Request) {
	list, err := h.UserService.SavedEvents(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListSaved: %v", err))
		h.writeError(w, "Failed to fetch saved events", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Saved events fetched successfully", list)
}

func (h *Handler) SaveEvent(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.actingAs(w, r, chi.URLParam(r, "uid"))
	if !ok {
		return
	}
	if err := h.UserService.SaveEvent(r.Context(), uid, chi.URLParam(r, "eventId")); err != nil {
		h.writeError(w, "Failed to save event", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Event saved", nil)
}

func (h *Handler) UnsaveEvent(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.actingAs(w, r, chi.URLParam(r, "uid"))
	if !ok {
		return
	}
	if err := h.UserService.UnsaveEvent(r.Context(), uid, chi.URLParam(r, "eventId")); err != nil {
		h.writeError(w, "Failed to remove saved event", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Event removed from saved", nil)
}
