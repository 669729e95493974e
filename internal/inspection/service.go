package inspection

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
)

// Repository is the persistence contract for the inspection domain.
//
// Rules:
// - All reads return (value, found, error); absence is not an error here.
// - CompleteLocationTasks must be atomic: either every task under the
//   location is completed with the same timestamp, or none are.
type Repository interface {
	GetInspector(ctx context.Context, id string) (Inspector, bool, error)
	FindInspectorByPhone(ctx context.Context, phone string) (Inspector, bool, error)

	ListJobsForDay(ctx context.Context, inspectorID string, dayStart, dayEnd time.Time) ([]WorkOrder, error)
	GetWorkOrder(ctx context.Context, id string) (WorkOrder, bool, error)
	MarkWorkOrderStarted(ctx context.Context, id string, at time.Time) error
	MarkWorkOrderCompleted(ctx context.Context, id string, at time.Time) error

	ListLocations(ctx context.Context, workOrderID string) ([]Location, error)
	ListTasks(ctx context.Context, workOrderID, location string) ([]Task, error)
	ListAllTasks(ctx context.Context, workOrderID string) ([]Task, error)

	GetTask(ctx context.Context, taskID string) (Task, bool, error)
	CompleteTask(ctx context.Context, taskID, notes string, at time.Time) error
	CompleteLocationTasks(ctx context.Context, workOrderID, location, notes string, at time.Time) (int, error)
}

// Service exposes the inspection operations consumed by the tool dispatcher
// and the ops API.
//
// Invariants:
// - A task is COMPLETED only through CompleteTask/CompleteAllTasks.
// - Bulk completion stamps one shared completion time for the location.
// - A work order must be STARTED before any task completion inside it.
type Service struct {
	repo Repository
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidArgument   = errors.New("invalid argument")
)

// ListTodayJobs returns the inspector's jobs scheduled for today,
// ordered by scheduled start ascending.
func (s *Service) ListTodayJobs(ctx context.Context, inspectorID string) ([]JobSummary, error) {
	if inspectorID == "" {
		return nil, ErrInvalidArgument
	}
	if _, ok, err := s.repo.GetInspector(ctx, inspectorID); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrNotFound
	}
	return s.listJobs(ctx, inspectorID)
}

// ListTodayJobsByPhone resolves the inspector by normalized phone first.
// This is the entry used by the conversation tool getTodayJobs.
func (s *Service) ListTodayJobsByPhone(ctx context.Context, phone string) ([]JobSummary, error) {
	if phone == "" {
		return nil, ErrInvalidArgument
	}
	insp, ok, err := s.repo.FindInspectorByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return s.listJobs(ctx, insp.ID)
}

func (s *Service) listJobs(ctx context.Context, inspectorID string) ([]JobSummary, error) {
	now := s.clock().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	orders, err := s.repo.ListJobsForDay(ctx, inspectorID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].ScheduledStart.Before(orders[j].ScheduledStart)
	})
	out := make([]JobSummary, 0, len(orders))
	for _, wo := range orders {
		out = append(out, wo.summary())
	}
	return out, nil
}

func (s *Service) GetWorkOrder(ctx context.Context, id string) (WorkOrderDetail, error) {
	if id == "" {
		return WorkOrderDetail{}, ErrInvalidArgument
	}
	wo, ok, err := s.repo.GetWorkOrder(ctx, id)
	if err != nil {
		return WorkOrderDetail{}, err
	}
	if !ok {
		return WorkOrderDetail{}, ErrNotFound
	}
	return wo.detail(), nil
}

// StartJob transitions SCHEDULED -> STARTED.
// Idempotent when the order is already STARTED.
func (s *Service) StartJob(ctx context.Context, id string) (WorkOrderDetail, error) {
	if id == "" {
		return WorkOrderDetail{}, ErrInvalidArgument
	}
	wo, ok, err := s.repo.GetWorkOrder(ctx, id)
	if err != nil {
		return WorkOrderDetail{}, err
	}
	if !ok {
		return WorkOrderDetail{}, ErrNotFound
	}

	switch wo.Status {
	case WorkOrderStarted:
		return wo.detail(), nil
	case WorkOrderScheduled:
		now := s.clock().UTC()
		if err := s.repo.MarkWorkOrderStarted(ctx, id, now); err != nil {
			return WorkOrderDetail{}, err
		}
		wo.Status = WorkOrderStarted
		wo.ActualStart = &now
		return wo.detail(), nil
	default:
		return WorkOrderDetail{}, ErrInvalidTransition
	}
}

// CompleteWorkOrder transitions STARTED -> COMPLETED.
// Idempotent when the order is already COMPLETED.
func (s *Service) CompleteWorkOrder(ctx context.Context, id string) (WorkOrderDetail, error) {
	if id == "" {
		return WorkOrderDetail{}, ErrInvalidArgument
	}
	wo, ok, err := s.repo.GetWorkOrder(ctx, id)
	if err != nil {
		return WorkOrderDetail{}, err
	}
	if !ok {
		return WorkOrderDetail{}, ErrNotFound
	}

	switch wo.Status {
	case WorkOrderCompleted:
		return wo.detail(), nil
	case WorkOrderStarted:
		now := s.clock().UTC()
		if err := s.repo.MarkWorkOrderCompleted(ctx, id, now); err != nil {
			return WorkOrderDetail{}, err
		}
		wo.Status = WorkOrderCompleted
		wo.ActualEnd = &now
		return wo.detail(), nil
	default:
		return WorkOrderDetail{}, ErrInvalidTransition
	}
}

// ListLocations returns the work order's locations with derived completion.
func (s *Service) ListLocations(ctx context.Context, workOrderID string) ([]LocationSummary, error) {
	if workOrderID == "" {
		return nil, ErrInvalidArgument
	}
	if _, ok, err := s.repo.GetWorkOrder(ctx, workOrderID); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrNotFound
	}

	locs, err := s.repo.ListLocations(ctx, workOrderID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.repo.ListAllTasks(ctx, workOrderID)
	if err != nil {
		return nil, err
	}

	total := make(map[string]int)
	done := make(map[string]int)
	for _, t := range tasks {
		key := locationKey(t.Location)
		total[key]++
		if t.Status == TaskCompleted {
			done[key]++
		}
	}

	sort.Slice(locs, func(i, j int) bool { return locs[i].Position < locs[j].Position })
	out := make([]LocationSummary, 0, len(locs))
	for _, l := range locs {
		key := locationKey(l.Name)
		n := total[key]
		out = append(out, LocationSummary{
			Name:           l.Name,
			Position:       l.Position,
			TaskCount:      n,
			CompletedCount: done[key],
			// zero-task locations are never complete
			IsCompleted: n > 0 && done[key] == n,
		})
	}
	return out, nil
}

// ListTasks returns the tasks under a location in creation order, each
// annotated with a 1-based display index. Indices are recomputed per call
// and are only stable within one listing response.
func (s *Service) ListTasks(ctx context.Context, workOrderID, location string) ([]TaskSummary, error) {
	if workOrderID == "" || strings.TrimSpace(location) == "" {
		return nil, ErrInvalidArgument
	}
	tasks, err := s.repo.ListTasks(ctx, workOrderID, location)
	if err != nil {
		return nil, err
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Position < tasks[j].Position })

	out := make([]TaskSummary, 0, len(tasks))
	for i, t := range tasks {
		out = append(out, TaskSummary{
			DisplayIndex: i + 1,
			ID:           t.ID,
			Name:         t.Name,
			Status:       t.Status,
			Condition:    t.Condition,
			Notes:        t.Notes,
		})
	}
	return out, nil
}

// CompleteTask marks one task COMPLETED and stores notes if present.
func (s *Service) CompleteTask(ctx context.Context, taskID, notes string) error {
	if taskID == "" {
		return ErrInvalidArgument
	}
	task, ok, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if err := s.requireStarted(ctx, task.WorkOrderID); err != nil {
		return err
	}
	return s.repo.CompleteTask(ctx, taskID, notes, s.clock().UTC())
}

// CompleteAllTasks completes every task under the named location as a single
// logical unit with one shared completion timestamp. Returns the number of
// tasks completed; a location that resolves to zero tasks is ErrNotFound.
func (s *Service) CompleteAllTasks(ctx context.Context, workOrderID, location, notes string) (int, error) {
	if workOrderID == "" || strings.TrimSpace(location) == "" {
		return 0, ErrInvalidArgument
	}
	if err := s.requireStarted(ctx, workOrderID); err != nil {
		return 0, err
	}
	n, err := s.repo.CompleteLocationTasks(ctx, workOrderID, location, notes, s.clock().UTC())
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrNotFound
	}
	return n, nil
}

func (s *Service) requireStarted(ctx context.Context, workOrderID string) error {
	wo, ok, err := s.repo.GetWorkOrder(ctx, workOrderID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if wo.Status != WorkOrderStarted {
		return ErrInvalidTransition
	}
	return nil
}

func locationKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
