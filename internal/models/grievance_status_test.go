package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionTableIsExhaustive(t *testing.T) {
	require.Len(t, grievanceTransitions, len(GrievanceStatuses))
	for _, status := range GrievanceStatuses {
		_, ok := grievanceTransitions[status]
		assert.True(t, ok, "missing transition entry for %s", status)
		for _, target := range status.AllowedTransitions() {
			assert.True(t, target.IsValid(), "%s -> %s targets unknown status", status, target)
			assert.NotEqual(t, status, target, "self transition on %s", status)
		}
	}
}

func TestEveryStatusReachableFromPending(t *testing.T) {
	seen := map[GrievanceStatus]bool{GrievanceStatusPending: true}
	queue := []GrievanceStatus{GrievanceStatusPending}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range current.AllowedTransitions() {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	for _, status := range GrievanceStatuses {
		assert.True(t, seen[status], "%s unreachable from PENDING", status)
	}
}

func TestTransitionEdges(t *testing.T) {
	cases := []struct {
		from    GrievanceStatus
		to      GrievanceStatus
		allowed bool
	}{
		{GrievanceStatusPending, GrievanceStatusAssigned, true},
		{GrievanceStatusPending, GrievanceStatusInProgress, false},
		{GrievanceStatusAssigned, GrievanceStatusResolved, false},
		{GrievanceStatusAssigned, GrievanceStatusInProgress, true},
		{GrievanceStatusUnderReview, GrievanceStatusInProgress, true},
		{GrievanceStatusResolved, GrievanceStatusClosed, true},
		{GrievanceStatusResolved, GrievanceStatusPending, false},
		{GrievanceStatusClosed, GrievanceStatusPending, false},
		{GrievanceStatusRejected, GrievanceStatusPending, true},
		{GrievanceStatusRejected, GrievanceStatusAssigned, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
	assert.True(t, GrievanceStatusClosed.IsTerminal())
	assert.False(t, GrievanceStatusRejected.IsTerminal())
	assert.False(t, GrievanceStatus("ARCHIVED").IsValid())
}

func TestAllowedTransitionsReturnsCopy(t *testing.T) {
	allowed := GrievanceStatusPending.AllowedTransitions()
	allowed[0] = GrievanceStatusClosed
	assert.Equal(t, GrievanceStatusAssigned, GrievanceStatusPending.AllowedTransitions()[0])
}

func TestPriorityRank(t *testing.T) {
	assert.Greater(t, PriorityUrgent.Rank(), PriorityHigh.Rank())
	assert.Greater(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	assert.Greater(t, PriorityMedium.Rank(), PriorityLow.Rank())
	assert.False(t, Priority("CRITICAL").IsValid())
}
