package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"inspection-platform/internal/inspection"
)

func seededRepo() *inspection.MemoryRepo {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	started := day.Add(9 * time.Hour)
	done := day.Add(10 * time.Hour)
	return &inspection.MemoryRepo{
		Inspectors: []inspection.Inspector{
			{ID: "insp-1", AgencyID: "ag-1", Name: "Mei Ling", Phone: "+6591234567"},
		},
		WorkOrders: []inspection.WorkOrder{
			{ID: "wo-1", AgencyID: "ag-1", ContractRef: "CT-100", Address: "12 Marina View", Status: inspection.WorkOrderStarted, InspectorID: "insp-1", ScheduledStart: day.Add(9 * time.Hour), ScheduledEnd: day.Add(11 * time.Hour), ActualStart: &started},
			{ID: "wo-2", AgencyID: "ag-1", ContractRef: "CT-101", Address: "8 Duxton Hill", Status: inspection.WorkOrderCompleted, InspectorID: "insp-1", ScheduledStart: day.Add(13 * time.Hour), ScheduledEnd: day.Add(15 * time.Hour)},
		},
		Locations: []inspection.Location{
			{ID: "loc-1", WorkOrderID: "wo-1", Name: "Kitchen", Position: 1},
			{ID: "loc-2", WorkOrderID: "wo-1", Name: "Bedroom", Position: 2},
			{ID: "loc-3", WorkOrderID: "wo-1", Name: "Balcony", Position: 3},
		},
		Tasks: []inspection.Task{
			{ID: "t-1", WorkOrderID: "wo-1", Location: "Kitchen", Name: "Check stove", Status: inspection.TaskCompleted, Position: 1, CompletedAt: &done},
			{ID: "t-2", WorkOrderID: "wo-1", Location: "Kitchen", Name: "Check sink", Status: inspection.TaskPending, Position: 2},
			{ID: "t-3", WorkOrderID: "wo-1", Location: "Bedroom", Name: "Check windows", Status: inspection.TaskCompleted, Position: 1, CompletedAt: &done},
		},
	}
}

func TestWorkOrderProgress_DerivesPerLocationCompletion(t *testing.T) {
	svc := NewService(seededRepo())

	p, err := svc.WorkOrderProgress(context.Background(), "wo-1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if p.TaskCount != 3 || p.CompletedTasks != 2 {
		t.Fatalf("unexpected totals: %+v", p)
	}
	if p.PercentDone < 66 || p.PercentDone > 67 {
		t.Fatalf("unexpected percent: %f", p.PercentDone)
	}
	if len(p.Locations) != 3 {
		t.Fatalf("expected 3 locations, got %d", len(p.Locations))
	}

	byName := map[string]LocationProgress{}
	for _, l := range p.Locations {
		byName[l.Name] = l
	}
	if byName["Kitchen"].Completed {
		t.Fatalf("kitchen has a pending task, must not be complete")
	}
	if !byName["Bedroom"].Completed {
		t.Fatalf("bedroom tasks are all done, must be complete")
	}
	if byName["Balcony"].Completed {
		t.Fatalf("empty location must never be complete")
	}
}

func TestWorkOrderProgress_LocationsOrderedByPosition(t *testing.T) {
	svc := NewService(seededRepo())

	p, err := svc.WorkOrderProgress(context.Background(), "wo-1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	for i := 1; i < len(p.Locations); i++ {
		if p.Locations[i-1].Position > p.Locations[i].Position {
			t.Fatalf("locations out of order: %+v", p.Locations)
		}
	}
}

func TestWorkOrderProgress_UnknownOrder(t *testing.T) {
	svc := NewService(seededRepo())
	if _, err := svc.WorkOrderProgress(context.Background(), "wo-999"); !errors.Is(err, inspection.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDailySummary_CountsJobsAndTasks(t *testing.T) {
	svc := NewService(seededRepo())

	day := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	sum, err := svc.DailySummary(context.Background(), DailySummaryRequest{InspectorID: "insp-1", Day: day})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if sum.JobsScheduled != 2 || sum.JobsStarted != 1 || sum.JobsCompleted != 1 {
		t.Fatalf("unexpected job counts: %+v", sum)
	}
	if sum.TasksCompleted != 2 || sum.TasksRemaining != 1 {
		t.Fatalf("unexpected task counts: %+v", sum)
	}
}

func TestDailySummary_RejectsMissingInspector(t *testing.T) {
	svc := NewService(seededRepo())
	if _, err := svc.DailySummary(context.Background(), DailySummaryRequest{Day: time.Now()}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}
