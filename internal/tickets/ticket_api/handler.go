package ticket_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-events/internal/logger"
	"ms-events/internal/tickets"
	"ms-events/internal/utils"
)

type Handler struct {
	TicketService *tickets.TicketService
	Logger        *logger.Logger
}

func NewHandler(ticketService *tickets.TicketService, log *logger.Logger) *Handler {
	return &Handler{TicketService: ticketService, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router, protect func(http.Handler) http.Handler) {
	r.Route("/api/tickets", func(r chi.Router) {
		r.Get("/", h.ListTicketTypes)
		r.With(protect).Post("/", h.CreateTicketType)
		r.Get("/{id}/quote", h.QuoteTicket)
	})
}

func (h *Handler) ListTicketTypes(w http.ResponseWriter, r *http.Request) {
	list, err := h.TicketService.ListTicketTypes(r.Context(), r.URL.Query().Get("eventId"), r.URL.Query().Get("q"))
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListTicketTypes: %v", err))
		utils.WriteServiceError(w, "Failed to fetch tickets", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Tickets fetched successfully", list)
}

func (h *Handler) CreateTicketType(w http.ResponseWriter, r *http.Request) {
	var req tickets.CreateTicketTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ticket, err := h.TicketService.CreateTicketType(r.Context(), req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateTicketType: %v", err))
		utils.WriteServiceError(w, "Failed to create ticket", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Ticket created successfully", ticket)
}

func (h *Handler) QuoteTicket(w http.ResponseWriter, r *http.Request) {
	quote, err := h.TicketService.Quote(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("code"))
	if err != nil {
		utils.WriteServiceError(w, "Failed to quote ticket", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Ticket quoted successfully", quote)
}
