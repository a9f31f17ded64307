package event_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-events/internal/events"
	"ms-events/internal/filter"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/utils"
)

type Handler struct {
	Service *events.Service
	Logger  *logger.Logger
}

func NewHandler(service *events.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

// RegisterRoutes mounts the event endpoints. Writes go through protect.
func (h *Handler) RegisterRoutes(r chi.Router, protect func(http.Handler) http.Handler) {
	r.Route("/api/events", func(r chi.Router) {
		r.Get("/", h.ListEvents)
		r.With(protect).Post("/", h.CreateEvent)
		r.Get("/{id}", h.GetEvent)
		r.With(protect).Patch("/{id}", h.UpdatePricing)
	})
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := events.ListQuery{
		Query: filter.Query{
			Text:     q.Get("q"),
			Status:   q.Get("status"),
			Category: q.Get("category"),
		},
		OrganizerID: q.Get("organizerId"),
	}

	list, err := h.Service.ListEvents(r.Context(), query)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListEvents: %v", err))
		utils.WriteServiceError(w, "Failed to fetch events", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Events fetched successfully", list)
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req events.CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Warn("API", fmt.Sprintf("CreateEvent: failed to decode request body: %v", err))
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	event, err := h.Service.CreateEvent(r.Context(), req)
	if errors.Is(err, events.ErrImageTooLarge) {
		utils.WriteError(w, http.StatusBadRequest, "Image too large", err)
		return
	}
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateEvent: %v", err))
		utils.WriteServiceError(w, "Failed to create event", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Event created successfully", event)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	event, err := h.Service.GetEvent(r.Context(), id)
	if err != nil {
		h.Logger.Debug("API", fmt.Sprintf("GetEvent %s: %v", id, err))
		utils.WriteServiceError(w, "Failed to fetch event", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Event fetched successfully", event)
}

func (h *Handler) UpdatePricing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var update models.PricingUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	event, err := h.Service.UpdatePricing(r.Context(), id, update)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpdatePricing %s: %v", id, err))
		utils.WriteServiceError(w, "Failed to update event", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Event updated successfully", event)
}
