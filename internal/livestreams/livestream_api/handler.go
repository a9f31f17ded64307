package livestream_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-events/internal/livestreams"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/utils"
)

type Handler struct {
	LiveStreamService *livestreams.LiveStreamService
	Logger            *logger.Logger
}

func NewHandler(service *livestreams.LiveStreamService, log *logger.Logger) *Handler {
	return &Handler{LiveStreamService: service, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router, protect func(http.Handler) http.Handler) {
	r.Route("/api/live-streams", func(r chi.Router) {
		r.Get("/", h.List)
		r.With(protect).Post("/", h.Create)
		r.With(protect).Patch("/{id}", h.Update)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.LiveStreamService.List(r.Context(), r.URL.Query().Get("eventId"))
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListLiveStreams: %v", err))
		utils.WriteServiceError(w, "Failed to fetch live streams", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Live streams fetched successfully", list)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req livestreams.CreateLiveStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	stream, err := h.LiveStreamService.Create(r.Context(), req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateLiveStream: %v", err))
		utils.WriteServiceError(w, "Failed to create live stream", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Live stream created successfully", stream)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var update models.LiveStreamUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	stream, err := h.LiveStreamService.Update(r.Context(), chi.URLParam(r, "id"), update)
	if err != nil {
		utils.WriteServiceError(w, "Failed to update live stream", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Live stream updated successfully", stream)
}
