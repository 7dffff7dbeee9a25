package domain

import (
	"time"

	"github.com/google/uuid"
)

// GoodRatingThreshold is the closed-ticket count an agent must exceed to be rated Good.
const GoodRatingThreshold = 5

type PerformanceRating string

const (
	RatingGood    PerformanceRating = "Good"
	RatingAverage PerformanceRating = "Average"
)

// RatingFor derives the performance rating from the number of closed tickets.
func RatingFor(closed int64) PerformanceRating {
	if closed > GoodRatingThreshold {
		return RatingGood
	}
	return RatingAverage
}

// AgentPerformance summarizes an agent's resolved work and SLA record.
type AgentPerformance struct {
	AgentID            uuid.UUID
	FullName           string
	TicketsClosed      int64
	SLAViolations      int64
	AvgHandleTimeHours float64
	Rating             PerformanceRating
}

// AgentWorkload is the assigned and active ticket count per agent.
type AgentWorkload struct {
	AgentID       uuid.UUID
	FullName      string
	Email         string
	TotalTickets  int64
	ActiveTickets int64
}

type StatusCount struct {
	Status TicketStatus
	Count  int64
}

// StatusBuckets folds raw status counts into the reporting buckets.
type StatusBuckets struct {
	New     int64
	Open    int64
	Pending int64
	Closed  int64
}

// BucketStatusCounts maps OPEN and IN_PROGRESS to open, RESOLVED and CLOSED to closed.
func BucketStatusCounts(counts []StatusCount) StatusBuckets {
	var b StatusBuckets
	for _, c := range counts {
		switch c.Status {
		case StatusNew:
			b.New += c.Count
		case StatusOpen, StatusInProgress:
			b.Open += c.Count
		case StatusPending:
			b.Pending += c.Count
		case StatusResolved, StatusClosed:
			b.Closed += c.Count
		}
	}
	return b
}

// UnassignedTicket is an open ticket waiting for an agent.
type UnassignedTicket struct {
	TicketID  int64
	Title     string
	Priority  TicketPriority
	CreatedAt time.Time
	HoursOpen float64
}

// AgingBucket labels, in ascending age order.
const (
	AgingUnder24h = "0-24h"
	Aging24To48h  = "24-48h"
	Aging48To72h  = "48-72h"
	AgingOver72h  = "72h+"
)

var AgingBucketLabels = []string{AgingUnder24h, Aging24To48h, Aging48To72h, AgingOver72h}

// AgingBucketFor returns the bucket label for an open ticket of the given age.
func AgingBucketFor(age time.Duration) string {
	switch {
	case age < 24*time.Hour:
		return AgingUnder24h
	case age < 48*time.Hour:
		return Aging24To48h
	case age < 72*time.Hour:
		return Aging48To72h
	default:
		return AgingOver72h
	}
}

type AgingBucket struct {
	Label string
	Count int64
}

// TicketAging distributes open tickets over age buckets.
type TicketAging struct {
	Buckets         []AgingBucket
	TotalOpen       int64
	AverageAgeHours float64
}

// SLAViolation is a row of the violations report.
type SLAViolation struct {
	TicketID     int64
	Title        string
	Priority     TicketPriority
	Status       TicketStatus
	AssigneeID   *uuid.UUID
	HoursElapsed float64
	TargetHours  float64
	CreatedAt    time.Time
}

// SLATarget is the configured threshold for one priority.
type SLATarget struct {
	Priority    TicketPriority
	TargetHours float64
}

// SLADashboard is the overall compliance picture at one instant.
type SLADashboard struct {
	Summary     ComplianceSummary
	ByPriority  []PriorityCompliance
	AtRisk      int
	HorizonHrs  float64
	GeneratedAt time.Time
}
