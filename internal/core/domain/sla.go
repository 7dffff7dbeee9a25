package domain

import (
	"time"

	"github.com/google/uuid"
)

// SLAStatus is the verdict label for a single ticket.
type SLAStatus string

const (
	SLAWithin   SLAStatus = "within_sla"
	SLAViolated SLAStatus = "violated"
)

// Anomaly flags data problems found while evaluating a ticket. Anomalies never
// abort evaluation; they travel with the verdict.
type Anomaly string

const (
	AnomalyMissingPriority   Anomaly = "MISSING_PRIORITY"
	AnomalyUnknownPriority   Anomaly = "UNKNOWN_PRIORITY"
	AnomalyNegativeDuration  Anomaly = "NEGATIVE_DURATION"
	AnomalyMissingResolvedAt Anomaly = "MISSING_RESOLVED_AT"
	AnomalyUnmeasurable      Anomaly = "UNMEASURABLE"
)

// AffectsMeasurement reports whether the anomaly makes the measured duration
// untrustworthy. Such verdicts are kept out of compliance rates.
func (a Anomaly) AffectsMeasurement() bool {
	return a == AnomalyNegativeDuration || a == AnomalyUnmeasurable
}

// SLAVerdict is the result of evaluating one ticket at one instant. For open
// tickets it is only valid at EvaluatedAt and must not be persisted as fact.
type SLAVerdict struct {
	TicketID          int64
	Priority          TicketPriority
	AssigneeID        *uuid.UUID
	Threshold         time.Duration
	Measured          time.Duration
	IsViolated        bool
	Status            SLAStatus
	Resolved          bool
	Anomalies         []Anomaly
	EvaluatedAt       time.Time
	EffectivePriority TicketPriority
}

// ThresholdSeconds returns the threshold in whole seconds.
func (v SLAVerdict) ThresholdSeconds() int64 {
	return int64(v.Threshold / time.Second)
}

// MeasuredSeconds returns the elapsed or resolution time in whole seconds.
func (v SLAVerdict) MeasuredSeconds() int64 {
	return int64(v.Measured / time.Second)
}

// HasAnomaly reports whether the verdict carries the given flag.
func (v SLAVerdict) HasAnomaly(a Anomaly) bool {
	for _, got := range v.Anomalies {
		if got == a {
			return true
		}
	}
	return false
}

// Trustworthy reports whether the measured duration can be used for rates.
func (v SLAVerdict) Trustworthy() bool {
	for _, a := range v.Anomalies {
		if a.AffectsMeasurement() {
			return false
		}
	}
	return true
}

// RejectedTicket records a snapshot the engine refused to evaluate.
type RejectedTicket struct {
	TicketID int64
	Reason   string
}

// ComplianceSummary aggregates verdicts over a set of tickets.
type ComplianceSummary struct {
	Total          int
	Evaluated      int
	Violations     int
	ComplianceRate float64
	Violating      []SLAVerdict
	Anomalous      []SLAVerdict
	Rejected       []RejectedTicket
}

// PriorityCompliance is a per-priority slice of a compliance summary.
type PriorityCompliance struct {
	Priority       TicketPriority
	Threshold      time.Duration
	Total          int
	Violations     int
	ComplianceRate float64
}

// RiskLevel ranks forecast entries.
type RiskLevel string

const (
	RiskHigh   RiskLevel = "high"
	RiskMedium RiskLevel = "medium"
)

// ForecastEntry describes one open ticket that will breach within the horizon.
// Remaining is clamped to zero for display; Overdue marks tickets already past
// their deadline.
type ForecastEntry struct {
	TicketID   int64
	Title      string
	Priority   TicketPriority
	AssigneeID *uuid.UUID
	Deadline   time.Time
	Remaining  time.Duration
	Overdue    bool
	Risk       RiskLevel
}

// DailyCompliance is one point of the compliance time series.
type DailyCompliance struct {
	Date           time.Time
	ComplianceRate float64
	Count          int
	Violations     int
}
