package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lorrc/service-desk-sla/internal/adapters/primary/validation"
	"github.com/lorrc/service-desk-sla/internal/core/domain"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
)

// AssignmentHandler exposes the workload balancer.
type AssignmentHandler struct {
	assignments  ports.AssignmentService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

func NewAssignmentHandler(assignments ports.AssignmentService, errorHandler *ErrorHandler, logger *slog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		assignments:  assignments,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "assignment"),
	}
}

// RegisterRoutes mounts POST /tickets/{ticketID}/assign and POST /assignments/sweep.
func (h *AssignmentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/tickets/{ticketID}/assign", h.HandleAutoAssign)
	r.Post("/assignments/sweep", h.HandleSweep)
}

type AssignmentDecisionDTO struct {
	TicketID int64   `json:"ticketId"`
	AgentID  *string `json:"agentId"`
	Outcome  string  `json:"outcome"`
}

type SweepResultDTO struct {
	Decisions       []AssignmentDecisionDTO `json:"decisions"`
	Assigned        int                     `json:"assigned"`
	AlreadyAssigned int                     `json:"alreadyAssigned"`
	NoEligibleAgent int                     `json:"noEligibleAgent"`
	Closed          int                     `json:"closed"`
}

func toDecisionDTO(d domain.AssignmentDecision) AssignmentDecisionDTO {
	return AssignmentDecisionDTO{
		TicketID: d.TicketID,
		AgentID:  optionalUUID(d.AgentID),
		Outcome:  string(d.Outcome),
	}
}

// HandleAutoAssign handles POST /tickets/{ticketID}/assign
func (h *AssignmentHandler) HandleAutoAssign(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	v := validation.NewValidator()
	ticketID := v.PositiveID("ticketID", chi.URLParam(r, "ticketID"))
	if HandleError(w, r, v.Err(), h.errorHandler) {
		return
	}

	decision, err := h.assignments.AutoAssign(r.Context(), ports.AutoAssignParams{
		TicketID: ticketID,
		ActorID:  claims.UserID,
	})
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteJSON(w, http.StatusOK, toDecisionDTO(decision))
}

// HandleSweep handles POST /assignments/sweep
func (h *AssignmentHandler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	decisions, err := h.assignments.AutoAssignAll(r.Context(), claims.UserID)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	result := SweepResultDTO{Decisions: make([]AssignmentDecisionDTO, 0, len(decisions))}
	for _, d := range decisions {
		result.Decisions = append(result.Decisions, toDecisionDTO(d))
		switch d.Outcome {
		case domain.OutcomeAssigned:
			result.Assigned++
		case domain.OutcomeAlreadyAssigned:
			result.AlreadyAssigned++
		case domain.OutcomeNoEligibleAgent:
			result.NoEligibleAgent++
		case domain.OutcomeTicketClosed:
			result.Closed++
		}
	}

	h.logger.InfoContext(r.Context(), "assignment sweep completed",
		"tickets", len(decisions),
		"assigned", result.Assigned,
	)
	WriteJSON(w, http.StatusOK, result)
}
