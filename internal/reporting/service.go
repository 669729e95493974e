package reporting

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"inspection-platform/internal/inspection"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Service derives read-only progress views from the inspection repository.
//
// IMPORTANT:
// - Reporting never mutates checklist state.
// - Completion is always derived from task rows, never stored separately.
type Service struct {
	repo inspection.Repository
}

func NewService(repo inspection.Repository) *Service { return &Service{repo: repo} }

// WorkOrderProgress returns per-location and overall completion for one visit.
func (s *Service) WorkOrderProgress(ctx context.Context, workOrderID string) (WorkOrderProgress, error) {
	if workOrderID == "" {
		return WorkOrderProgress{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return WorkOrderProgress{}, errors.New("reporting: repository not configured")
	}

	wo, ok, err := s.repo.GetWorkOrder(ctx, workOrderID)
	if err != nil {
		return WorkOrderProgress{}, err
	}
	if !ok {
		return WorkOrderProgress{}, inspection.ErrNotFound
	}

	locations, err := s.repo.ListLocations(ctx, workOrderID)
	if err != nil {
		return WorkOrderProgress{}, err
	}
	tasks, err := s.repo.ListAllTasks(ctx, workOrderID)
	if err != nil {
		return WorkOrderProgress{}, err
	}

	out := WorkOrderProgress{
		WorkOrderID: wo.ID,
		ContractRef: wo.ContractRef,
		Address:     wo.Address,
		Status:      wo.Status,
	}

	type counts struct {
		total int
		done  int
	}
	byLocation := make(map[string]counts)
	for _, t := range tasks {
		c := byLocation[locationKey(t.Location)]
		c.total++
		if t.Status == inspection.TaskCompleted {
			c.done++
		}
		byLocation[locationKey(t.Location)] = c
		out.TaskCount++
		if t.Status == inspection.TaskCompleted {
			out.CompletedTasks++
		}
	}

	for _, loc := range locations {
		c := byLocation[locationKey(loc.Name)]
		out.Locations = append(out.Locations, LocationProgress{
			Name:           loc.Name,
			Position:       loc.Position,
			TaskCount:      c.total,
			CompletedCount: c.done,
			Completed:      c.total > 0 && c.done == c.total,
		})
	}
	sort.Slice(out.Locations, func(i, j int) bool {
		return out.Locations[i].Position < out.Locations[j].Position
	})

	if out.TaskCount > 0 {
		out.PercentDone = float64(out.CompletedTasks) / float64(out.TaskCount) * 100
	}
	return out, nil
}

// DailySummary aggregates one inspector's schedule for a single UTC day.
func (s *Service) DailySummary(ctx context.Context, req DailySummaryRequest) (DailySummary, error) {
	if req.InspectorID == "" || req.Day.IsZero() {
		return DailySummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return DailySummary{}, errors.New("reporting: repository not configured")
	}

	day := req.Day.UTC()
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	jobs, err := s.repo.ListJobsForDay(ctx, req.InspectorID, dayStart, dayEnd)
	if err != nil {
		return DailySummary{}, err
	}

	out := DailySummary{InspectorID: req.InspectorID, Day: dayStart}
	for _, wo := range jobs {
		out.JobsScheduled++
		switch wo.Status {
		case inspection.WorkOrderStarted:
			out.JobsStarted++
		case inspection.WorkOrderCompleted:
			out.JobsCompleted++
		case inspection.WorkOrderCancelled:
			out.JobsCancelled++
		case inspection.WorkOrderScheduled:
			// counted in JobsScheduled only
		}

		tasks, err := s.repo.ListAllTasks(ctx, wo.ID)
		if err != nil {
			return DailySummary{}, err
		}
		for _, t := range tasks {
			if t.Status == inspection.TaskCompleted {
				out.TasksCompleted++
			} else {
				out.TasksRemaining++
			}
		}
	}
	return out, nil
}

func locationKey(name string) string { return strings.ToLower(strings.TrimSpace(name)) }
