package http

import (
	"log/slog"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lorrc/service-desk-sla/internal/core/domain"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
)

// AnalyticsHandler serves agent and ticket-queue reports.
type AnalyticsHandler struct {
	analytics    ports.AnalyticsService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

func NewAnalyticsHandler(analytics ports.AnalyticsService, errorHandler *ErrorHandler, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analytics:    analytics,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "analytics"),
	}
}

// RegisterRoutes mounts the handler under /analytics.
func (h *AnalyticsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/agents/performance", h.HandlePerformance)
	r.Get("/agents/workload", h.HandleWorkload)
	r.Get("/tickets/status-counts", h.HandleStatusCounts)
	r.Get("/tickets/unassigned", h.HandleUnassigned)
	r.Get("/tickets/aging", h.HandleAging)
}

type AgentPerformanceDTO struct {
	AgentID            string  `json:"agentId"`
	FullName           string  `json:"fullName"`
	TicketsClosed      int64   `json:"ticketsClosed"`
	SLAViolations      int64   `json:"slaViolations"`
	AvgHandleTimeHours float64 `json:"avgHandleTimeHours"`
	Rating             string  `json:"rating"`
}

type AgentWorkloadDTO struct {
	AgentID       string `json:"agentId"`
	FullName      string `json:"fullName"`
	Email         string `json:"email"`
	TotalTickets  int64  `json:"totalTickets"`
	ActiveTickets int64  `json:"activeTickets"`
}

type StatusCountsDTO struct {
	New     int64 `json:"new"`
	Open    int64 `json:"open"`
	Pending int64 `json:"pending"`
	Closed  int64 `json:"closed"`
}

type UnassignedTicketDTO struct {
	TicketID  int64   `json:"ticketId"`
	Title     string  `json:"title"`
	Priority  string  `json:"priority"`
	CreatedAt string  `json:"createdAt"`
	HoursOpen float64 `json:"hoursOpen"`
}

type AgingBucketDTO struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

type TicketAgingDTO struct {
	Buckets         []AgingBucketDTO `json:"buckets"`
	TotalOpen       int64            `json:"totalOpen"`
	AverageAgeHours float64          `json:"averageAgeHours"`
}

// HandlePerformance handles GET /analytics/agents/performance
func (h *AnalyticsHandler) HandlePerformance(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	perf, err := h.analytics.AgentPerformance(r.Context(), claims.UserID)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	out := make([]AgentPerformanceDTO, 0, len(perf))
	for _, p := range perf {
		out = append(out, AgentPerformanceDTO{
			AgentID:            p.AgentID.String(),
			FullName:           p.FullName,
			TicketsClosed:      p.TicketsClosed,
			SLAViolations:      p.SLAViolations,
			AvgHandleTimeHours: p.AvgHandleTimeHours,
			Rating:             string(p.Rating),
		})
	}
	WriteList(w, out)
}

// HandleWorkload handles GET /analytics/agents/workload
func (h *AnalyticsHandler) HandleWorkload(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	workload, err := h.analytics.AgentWorkload(r.Context(), claims.UserID)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	out := make([]AgentWorkloadDTO, 0, len(workload))
	for _, wl := range workload {
		out = append(out, AgentWorkloadDTO{
			AgentID:       wl.AgentID.String(),
			FullName:      wl.FullName,
			Email:         wl.Email,
			TotalTickets:  wl.TotalTickets,
			ActiveTickets: wl.ActiveTickets,
		})
	}
	WriteList(w, out)
}

// HandleStatusCounts handles GET /analytics/tickets/status-counts
func (h *AnalyticsHandler) HandleStatusCounts(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	buckets, err := h.analytics.StatusCounts(r.Context(), claims.UserID)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteJSON(w, http.StatusOK, StatusCountsDTO{
		New:     buckets.New,
		Open:    buckets.Open,
		Pending: buckets.Pending,
		Closed:  buckets.Closed,
	})
}

// HandleUnassigned handles GET /analytics/tickets/unassigned
func (h *AnalyticsHandler) HandleUnassigned(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	tickets, err := h.analytics.UnassignedTickets(r.Context(), claims.UserID)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	out := make([]UnassignedTicketDTO, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, UnassignedTicketDTO{
			TicketID:  t.TicketID,
			Title:     t.Title,
			Priority:  t.Priority.String(),
			CreatedAt: formatTime(t.CreatedAt),
			HoursOpen: math.Round(t.HoursOpen*100) / 100,
		})
	}
	WriteList(w, out)
}

// HandleAging handles GET /analytics/tickets/aging
func (h *AnalyticsHandler) HandleAging(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	aging, err := h.analytics.TicketAging(r.Context(), claims.UserID)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteJSON(w, http.StatusOK, toTicketAgingDTO(aging))
}

func toTicketAgingDTO(aging *domain.TicketAging) TicketAgingDTO {
	buckets := make([]AgingBucketDTO, 0, len(aging.Buckets))
	for _, b := range aging.Buckets {
		buckets = append(buckets, AgingBucketDTO{Label: b.Label, Count: b.Count})
	}
	return TicketAgingDTO{
		Buckets:         buckets,
		TotalOpen:       aging.TotalOpen,
		AverageAgeHours: math.Round(aging.AverageAgeHours*100) / 100,
	}
}
