package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	mw "github.com/lorrc/service-desk-sla/internal/adapters/primary/http/middleware"
	"github.com/lorrc/service-desk-sla/internal/adapters/primary/validation"
	"github.com/lorrc/service-desk-sla/internal/auth"
	"github.com/lorrc/service-desk-sla/internal/core/domain"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
)

const (
	maxForecastHours = 24 * 30
	maxTrendDays     = 365
)

// SLAHandler serves the compliance reporting endpoints.
type SLAHandler struct {
	slaService   ports.SLAService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewSLAHandler creates a new SLA handler
func NewSLAHandler(slaService ports.SLAService, errorHandler *ErrorHandler, logger *slog.Logger) *SLAHandler {
	return &SLAHandler{
		slaService:   slaService,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "sla"),
	}
}

// RegisterRoutes mounts the handler under /sla.
func (h *SLAHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard", h.HandleDashboard)
	r.Get("/violations", h.HandleViolations)
	r.Get("/forecast", h.HandleForecast)
	r.Get("/trends", h.HandleTrends)
	r.Get("/targets", h.HandleTargets)
}

// --- Response DTOs ---

type ComplianceSummaryDTO struct {
	Total          int     `json:"total"`
	Evaluated      int     `json:"evaluated"`
	Violations     int     `json:"violations"`
	ComplianceRate float64 `json:"complianceRate"`
	Anomalous      int     `json:"anomalous"`
	Rejected       []int64 `json:"rejected"`
}

type PriorityComplianceDTO struct {
	Priority       string  `json:"priority"`
	TargetHours    float64 `json:"targetHours"`
	Total          int     `json:"total"`
	Violations     int     `json:"violations"`
	ComplianceRate float64 `json:"complianceRate"`
}

type DashboardDTO struct {
	Summary      ComplianceSummaryDTO    `json:"summary"`
	ByPriority   []PriorityComplianceDTO `json:"byPriority"`
	AtRisk       int                     `json:"atRisk"`
	HorizonHours float64                 `json:"horizonHours"`
	GeneratedAt  string                  `json:"generatedAt"`
}

type ViolationDTO struct {
	TicketID     int64   `json:"ticketId"`
	Title        string  `json:"title"`
	Priority     string  `json:"priority"`
	Status       string  `json:"status"`
	AssigneeID   *string `json:"assigneeId"`
	HoursElapsed float64 `json:"hoursElapsed"`
	TargetHours  float64 `json:"targetHours"`
	CreatedAt    string  `json:"createdAt"`
}

type ForecastDTO struct {
	TicketID       int64   `json:"ticketId"`
	Title          string  `json:"title"`
	Priority       string  `json:"priority"`
	AssigneeID     *string `json:"assigneeId"`
	Deadline       string  `json:"deadline"`
	RemainingHours float64 `json:"remainingHours"`
	Overdue        bool    `json:"overdue"`
	Risk           string  `json:"risk"`
}

type TrendPointDTO struct {
	Date           string  `json:"date"`
	ComplianceRate float64 `json:"complianceRate"`
	Count          int     `json:"count"`
	Violations     int     `json:"violations"`
}

type TargetDTO struct {
	Priority    string  `json:"priority"`
	TargetHours float64 `json:"targetHours"`
}

func toDashboardDTO(d *domain.SLADashboard) DashboardDTO {
	rejected := make([]int64, 0, len(d.Summary.Rejected))
	for _, r := range d.Summary.Rejected {
		rejected = append(rejected, r.TicketID)
	}

	byPriority := make([]PriorityComplianceDTO, 0, len(d.ByPriority))
	for _, p := range d.ByPriority {
		byPriority = append(byPriority, PriorityComplianceDTO{
			Priority:       p.Priority.String(),
			TargetHours:    hours(p.Threshold),
			Total:          p.Total,
			Violations:     p.Violations,
			ComplianceRate: p.ComplianceRate,
		})
	}

	return DashboardDTO{
		Summary: ComplianceSummaryDTO{
			Total:          d.Summary.Total,
			Evaluated:      d.Summary.Evaluated,
			Violations:     d.Summary.Violations,
			ComplianceRate: d.Summary.ComplianceRate,
			Anomalous:      len(d.Summary.Anomalous),
			Rejected:       rejected,
		},
		ByPriority:   byPriority,
		AtRisk:       d.AtRisk,
		HorizonHours: d.HorizonHrs,
		GeneratedAt:  formatTime(d.GeneratedAt),
	}
}

func toViolationDTOs(violations []domain.SLAViolation) []ViolationDTO {
	out := make([]ViolationDTO, 0, len(violations))
	for _, v := range violations {
		out = append(out, ViolationDTO{
			TicketID:     v.TicketID,
			Title:        v.Title,
			Priority:     v.Priority.String(),
			Status:       v.Status.String(),
			AssigneeID:   optionalUUID(v.AssigneeID),
			HoursElapsed: v.HoursElapsed,
			TargetHours:  v.TargetHours,
			CreatedAt:    formatTime(v.CreatedAt),
		})
	}
	return out
}

func toForecastDTOs(entries []domain.ForecastEntry) []ForecastDTO {
	out := make([]ForecastDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, ForecastDTO{
			TicketID:       e.TicketID,
			Title:          e.Title,
			Priority:       e.Priority.String(),
			AssigneeID:     optionalUUID(e.AssigneeID),
			Deadline:       formatTime(e.Deadline),
			RemainingHours: hours(e.Remaining),
			Overdue:        e.Overdue,
			Risk:           string(e.Risk),
		})
	}
	return out
}

func toTrendDTOs(points []domain.DailyCompliance) []TrendPointDTO {
	out := make([]TrendPointDTO, 0, len(points))
	for _, p := range points {
		out = append(out, TrendPointDTO{
			Date:           p.Date.UTC().Format(time.DateOnly),
			ComplianceRate: p.ComplianceRate,
			Count:          p.Count,
			Violations:     p.Violations,
		})
	}
	return out
}

// --- Handlers ---

// HandleDashboard handles GET /sla/dashboard
func (h *SLAHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	dashboard, err := h.slaService.GetDashboard(r.Context(), claims.UserID)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteJSON(w, http.StatusOK, toDashboardDTO(dashboard))
}

// HandleViolations handles GET /sla/violations
func (h *SLAHandler) HandleViolations(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	violations, err := h.slaService.ListViolations(r.Context(), claims.UserID)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteList(w, toViolationDTOs(violations))
}

// HandleForecast handles GET /sla/forecast?hours=N
func (h *SLAHandler) HandleForecast(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	v := validation.NewValidator()
	horizonHours := v.IntQuery(r, "hours", 0, 1, maxForecastHours)
	if HandleError(w, r, v.Err(), h.errorHandler) {
		return
	}

	entries, err := h.slaService.Forecast(r.Context(), ports.ForecastParams{
		ActorID: claims.UserID,
		Horizon: time.Duration(horizonHours) * time.Hour,
	})
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteList(w, toForecastDTOs(entries))
}

// HandleTrends handles GET /sla/trends?days=N
func (h *SLAHandler) HandleTrends(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	v := validation.NewValidator()
	days := v.IntQuery(r, "days", 0, 1, maxTrendDays)
	if HandleError(w, r, v.Err(), h.errorHandler) {
		return
	}

	points, err := h.slaService.Trends(r.Context(), ports.TrendParams{
		ActorID:    claims.UserID,
		PeriodDays: days,
	})
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteList(w, toTrendDTOs(points))
}

// HandleTargets handles GET /sla/targets
func (h *SLAHandler) HandleTargets(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	targets, err := h.slaService.Targets(r.Context(), claims.UserID)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	out := make([]TargetDTO, 0, len(targets))
	for _, t := range targets {
		out = append(out, TargetDTO{Priority: t.Priority.String(), TargetHours: t.TargetHours})
	}
	WriteList(w, out)
}

// getClaims extracts user claims from the request context, writing 401 when absent.
func getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "Not authorized",
			Code:  "UNAUTHORIZED",
		})
		return nil, false
	}
	return claims, true
}
