package inspection

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryRepo is a simple in-memory repository useful for tests and early
// development.
//
// NOTE: This is not intended for production; the Postgres repository is the
// production implementation.
type MemoryRepo struct {
	mu         sync.Mutex
	Inspectors []Inspector
	WorkOrders []WorkOrder
	Locations  []Location
	Tasks      []Task
}

func (r *MemoryRepo) GetInspector(ctx context.Context, id string) (Inspector, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, in := range r.Inspectors {
		if in.ID == id {
			return in, true, nil
		}
	}
	return Inspector{}, false, nil
}

func (r *MemoryRepo) FindInspectorByPhone(ctx context.Context, phone string) (Inspector, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, in := range r.Inspectors {
		if in.Phone == phone {
			return in, true, nil
		}
	}
	return Inspector{}, false, nil
}

func (r *MemoryRepo) ListJobsForDay(ctx context.Context, inspectorID string, dayStart, dayEnd time.Time) ([]WorkOrder, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []WorkOrder
	for _, wo := range r.WorkOrders {
		if wo.InspectorID != inspectorID {
			continue
		}
		if wo.ScheduledStart.Before(dayStart) || !wo.ScheduledStart.Before(dayEnd) {
			continue
		}
		out = append(out, wo)
	}
	return out, nil
}

func (r *MemoryRepo) GetWorkOrder(ctx context.Context, id string) (WorkOrder, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, wo := range r.WorkOrders {
		if wo.ID == id {
			return wo, true, nil
		}
	}
	return WorkOrder{}, false, nil
}

func (r *MemoryRepo) MarkWorkOrderStarted(ctx context.Context, id string, at time.Time) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.WorkOrders {
		if r.WorkOrders[i].ID == id {
			// status guard mirrors the SQL repo: a lost race is an error,
			// not a silent no-op
			if r.WorkOrders[i].Status != WorkOrderScheduled {
				return ErrInvalidTransition
			}
			r.WorkOrders[i].Status = WorkOrderStarted
			t := at
			r.WorkOrders[i].ActualStart = &t
			return nil
		}
	}
	return ErrNotFound
}

func (r *MemoryRepo) MarkWorkOrderCompleted(ctx context.Context, id string, at time.Time) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.WorkOrders {
		if r.WorkOrders[i].ID == id {
			if r.WorkOrders[i].Status != WorkOrderStarted {
				return ErrInvalidTransition
			}
			r.WorkOrders[i].Status = WorkOrderCompleted
			t := at
			r.WorkOrders[i].ActualEnd = &t
			return nil
		}
	}
	return ErrNotFound
}

func (r *MemoryRepo) ListLocations(ctx context.Context, workOrderID string) ([]Location, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Location
	for _, l := range r.Locations {
		if l.WorkOrderID == workOrderID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *MemoryRepo) ListTasks(ctx context.Context, workOrderID, location string) ([]Task, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Task
	for _, t := range r.Tasks {
		if t.WorkOrderID == workOrderID && strings.EqualFold(t.Location, location) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *MemoryRepo) ListAllTasks(ctx context.Context, workOrderID string) ([]Task, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Task
	for _, t := range r.Tasks {
		if t.WorkOrderID == workOrderID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *MemoryRepo) GetTask(ctx context.Context, taskID string) (Task, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.Tasks {
		if t.ID == taskID {
			return t, true, nil
		}
	}
	return Task{}, false, nil
}

func (r *MemoryRepo) CompleteTask(ctx context.Context, taskID, notes string, at time.Time) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.Tasks {
		if r.Tasks[i].ID == taskID {
			r.Tasks[i].Status = TaskCompleted
			t := at
			r.Tasks[i].CompletedAt = &t
			if notes != "" {
				r.Tasks[i].Notes = notes
			}
			return nil
		}
	}
	return ErrNotFound
}

func (r *MemoryRepo) CompleteLocationTasks(ctx context.Context, workOrderID, location, notes string, at time.Time) (int, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for i := range r.Tasks {
		if r.Tasks[i].WorkOrderID != workOrderID {
			continue
		}
		if !strings.EqualFold(r.Tasks[i].Location, location) {
			continue
		}
		r.Tasks[i].Status = TaskCompleted
		t := at
		r.Tasks[i].CompletedAt = &t
		if notes != "" {
			r.Tasks[i].Notes = notes
		}
		n++
	}
	return n, nil
}
