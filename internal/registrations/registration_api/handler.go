package registration_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-events/internal/auth"
	"ms-events/internal/logger"
	"ms-events/internal/registrations"
	"ms-events/internal/sse"
	"ms-events/internal/utils"
)

type Handler struct {
	Service *registrations.Service
	Hub     *sse.CheckInHub
	Logger  *logger.Logger
}

func NewHandler(service *registrations.Service, hub *sse.CheckInHub, log *logger.Logger) *Handler {
	return &Handler{Service: service, Hub: hub, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router, protect func(http.Handler) http.Handler) {
	r.Route("/api/registrations", func(r chi.Router) {
		r.Get("/", h.ListRegistrations)
		r.With(protect).Post("/", h.Register)
		r.Get("/{id}/qrcode", h.QRCode)
		r.Get("/{id}/ticket.pdf", h.TicketPDF)
	})
	r.Route("/api/check-ins", func(r chi.Router) {
		r.Get("/", h.ListCheckIns)
		r.With(protect).Post("/", h.CheckIn)
		r.Get("/stream", h.Stream)
	})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registrations.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	uid, err := auth.ActingAs(r.Context(), req.UserID)
	if err != nil {
		h.Logger.LogSecurity("AUTH_FORBIDDEN", fmt.Sprintf("Register as %s by %s", req.UserID, auth.UserID(r.Context())))
		utils.WriteError(w, http.StatusForbidden, "Cannot register another user", err)
		return
	}
	req.UserID = uid

	result, err := h.Service.Register(r.Context(), req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Register: %v", err))
		utils.WriteServiceError(w, "Registration failed", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Registered successfully", result)
}

func (h *Handler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.Service.List(r.Context(), q.Get("eventId"), q.Get("userId"), q.Get("q"))
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListRegistrations: %v", err))
		utils.WriteServiceError(w, "Failed to fetch registrations", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Registrations fetched successfully", list)
}

func (h *Handler) QRCode(w http.ResponseWriter, r *http.Request) {
	png, err := h.Service.QRCode(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteServiceError(w, "Failed to generate QR code", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}

func (h *Handler) TicketPDF(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	out, err := h.Service.TicketPDF(r.Context(), id)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("TicketPDF %s: %v", id, err))
		utils.WriteServiceError(w, "Failed to generate ticket", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=\"ticket-%s.pdf\"", id))
	w.Write(out)
}

func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req registrations.CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if uid := auth.UserID(r.Context()); uid != "" {
		req.CheckedInBy = uid
	}

	checkIn, err := h.Service.CheckIn(r.Context(), req)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("CheckIn: %v", err))
		utils.WriteServiceError(w, "Check-in failed", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Checked in successfully", checkIn)
}

func (h *Handler) ListCheckIns(w http.ResponseWriter, r *http.Request) {
	eventID := r.URL.Query().Get("eventId")
	if eventID == "" {
		utils.WriteError(w, http.StatusBadRequest, "eventId is required", nil)
		return
	}
	report, err := h.Service.CheckIns(r.Context(), eventID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListCheckIns: %v", err))
		utils.WriteServiceError(w, "Failed to fetch check-ins", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Check-ins fetched successfully", report)
}

func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	eventID := r.URL.Query().Get("eventId")
	if eventID == "" {
		utils.WriteError(w, http.StatusBadRequest, "eventId is required", nil)
		return
	}
	sse.ServeCheckIns(w, r, h.Hub, eventID, h.Logger)
}
