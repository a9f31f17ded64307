package dashboard_api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-events/internal/dashboard"
	"ms-events/internal/logger"
	"ms-events/internal/utils"
)

type Handler struct {
	Service *dashboard.Service
	Logger  *logger.Logger
}

func NewHandler(service *dashboard.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/dashboard", h.GetDashboard)
}

func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		utils.WriteError(w, http.StatusBadRequest, "User ID is required", nil)
		return
	}

	summary, err := h.Service.Summary(r.Context(), userID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Dashboard for %s: %v", userID, err))
		utils.WriteServiceError(w, "Failed to fetch dashboard data", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Dashboard fetched successfully", summary)
}
