package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNextOrderStatus(t *testing.T) {
	cases := []struct {
		from string
		want string
		ok   bool
	}{
		{OrderStatusPending, OrderStatusAccepted, true},
		{OrderStatusAccepted, OrderStatusInProgress, true},
		{OrderStatusInProgress, OrderStatusDone, true},
		{OrderStatusDone, OrderStatusDelivered, true},
		{OrderStatusDelivered, "", false},
		{OrderStatusCancelled, "", false},
		{"bogus", "", false},
	}
	for _, tc := range cases {
		got, ok := NextOrderStatus(tc.from)
		require.Equal(t, tc.ok, ok, tc.from)
		require.Equal(t, tc.want, got, tc.from)
	}
}

func TestOrderIsOverdue(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	o := Order{Status: OrderStatusInProgress, Deadline: now.Add(-time.Hour)}
	require.True(t, o.IsOverdue(now))

	o.Status = OrderStatusDelivered
	require.False(t, o.IsOverdue(now))

	o.Status = OrderStatusCancelled
	require.False(t, o.IsOverdue(now))

	o.Status = OrderStatusPending
	o.Deadline = now.Add(time.Hour)
	require.False(t, o.IsOverdue(now))
}

func TestOrderIsDueOn(t *testing.T) {
	ref := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)
	o := Order{Deadline: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)}
	require.True(t, o.IsDueOn(ref))

	o.Deadline = time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	require.False(t, o.IsDueOn(ref))

	o.Deadline = time.Date(2026, 3, 9, 23, 59, 59, 0, time.UTC)
	require.False(t, o.IsDueOn(ref))
}

func TestProductAllStagesIn(t *testing.T) {
	s1, s2 := uuid.New(), uuid.New()
	p := Product{Stages: []ProductionStage{{ID: s2, Sequence: 2}, {ID: s1, Sequence: 1}}}

	p.SortStages()
	require.Equal(t, s1, p.Stages[0].ID)

	require.False(t, p.AllStagesIn(map[uuid.UUID]bool{s1: true}))
	require.True(t, p.AllStagesIn(map[uuid.UUID]bool{s1: true, s2: true}))
	require.False(t, (&Product{}).AllStagesIn(map[uuid.UUID]bool{s1: true}))

	_, ok := p.Stage(uuid.New())
	require.False(t, ok)
}
