package models

// GrievanceStatus captures lifecycle states of a grievance.
type GrievanceStatus string

const (
	GrievanceStatusPending     GrievanceStatus = "PENDING"
	GrievanceStatusAssigned    GrievanceStatus = "ASSIGNED"
	GrievanceStatusInProgress  GrievanceStatus = "IN_PROGRESS"
	GrievanceStatusUnderReview GrievanceStatus = "UNDER_REVIEW"
	GrievanceStatusResolved    GrievanceStatus = "RESOLVED"
	GrievanceStatusClosed      GrievanceStatus = "CLOSED"
	GrievanceStatusRejected    GrievanceStatus = "REJECTED"
)

// GrievanceStatuses lists every status in lifecycle order.
var GrievanceStatuses = []GrievanceStatus{
	GrievanceStatusPending,
	GrievanceStatusAssigned,
	GrievanceStatusInProgress,
	GrievanceStatusUnderReview,
	GrievanceStatusResolved,
	GrievanceStatusClosed,
	GrievanceStatusRejected,
}

// grievanceTransitions is the adjacency map of the lifecycle. Every status has an entry;
// CLOSED is terminal.
var grievanceTransitions = map[GrievanceStatus][]GrievanceStatus{
	GrievanceStatusPending:     {GrievanceStatusAssigned, GrievanceStatusRejected},
	GrievanceStatusAssigned:    {GrievanceStatusInProgress, GrievanceStatusRejected},
	GrievanceStatusInProgress:  {GrievanceStatusUnderReview, GrievanceStatusRejected},
	GrievanceStatusUnderReview: {GrievanceStatusResolved, GrievanceStatusInProgress, GrievanceStatusRejected},
	GrievanceStatusResolved:    {GrievanceStatusClosed, GrievanceStatusInProgress},
	GrievanceStatusClosed:      {},
	GrievanceStatusRejected:    {GrievanceStatusPending},
}

// IsValid reports whether s is a known lifecycle status.
func (s GrievanceStatus) IsValid() bool {
	_, ok := grievanceTransitions[s]
	return ok
}

// IsTerminal reports whether no transition leaves s.
func (s GrievanceStatus) IsTerminal() bool {
	return s.IsValid() && len(grievanceTransitions[s]) == 0
}

// IsResolved reports whether the grievance has reached a resolved outcome.
func (s GrievanceStatus) IsResolved() bool {
	return s == GrievanceStatusResolved || s == GrievanceStatusClosed
}

// AllowedTransitions returns the statuses reachable from s in one step.
func (s GrievanceStatus) AllowedTransitions() []GrievanceStatus {
	next := grievanceTransitions[s]
	out := make([]GrievanceStatus, len(next))
	copy(out, next)
	return out
}

// CanTransitionTo reports whether target is an allowed next state of s.
func (s GrievanceStatus) CanTransitionTo(target GrievanceStatus) bool {
	for _, candidate := range grievanceTransitions[s] {
		if candidate == target {
			return true
		}
	}
	return false
}

// Priority ranks grievance urgency.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Priorities lists priorities from least to most urgent.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// Rank orders priorities; unknown values rank lowest.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// IsValid reports whether p is a known priority.
func (p Priority) IsValid() bool {
	return p.Rank() > 0
}
