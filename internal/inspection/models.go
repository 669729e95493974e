package inspection

import "time"

// WorkOrderStatus is the lifecycle state of one inspection visit.
type WorkOrderStatus string

const (
	WorkOrderScheduled WorkOrderStatus = "SCHEDULED"
	WorkOrderStarted   WorkOrderStatus = "STARTED"
	WorkOrderCompleted WorkOrderStatus = "COMPLETED"
	WorkOrderCancelled WorkOrderStatus = "CANCELLED"
)

// TaskStatus is the state of one inspectable unit.
type TaskStatus string

const (
	TaskPending   TaskStatus = "PENDING"
	TaskCompleted TaskStatus = "COMPLETED"
)

// Inspector is a field inspector reachable over the messaging channel.
// Phone is stored normalized (E.164).
type Inspector struct {
	ID       string `json:"id" db:"id"`
	AgencyID string `json:"agency_id" db:"agency_id"`
	Name     string `json:"name" db:"name"`
	Phone    string `json:"phone" db:"phone"`
}

// WorkOrder is one scheduled inspection visit.
//
// Lifecycle invariant:
// - SCHEDULED -> STARTED -> COMPLETED, or SCHEDULED -> CANCELLED.
// - Task completion is only valid while the order is STARTED.
type WorkOrder struct {
	ID          string          `json:"id" db:"id"`
	AgencyID    string          `json:"agency_id" db:"agency_id"`
	ContractRef string          `json:"contract_ref" db:"contract_ref"`
	Address     string          `json:"address" db:"address"`
	Status      WorkOrderStatus `json:"status" db:"status"`

	InspectorID string `json:"inspector_id" db:"inspector_id"`

	ScheduledStart time.Time  `json:"scheduled_start" db:"scheduled_start"`
	ScheduledEnd   time.Time  `json:"scheduled_end" db:"scheduled_end"`
	ActualStart    *time.Time `json:"actual_start,omitempty" db:"actual_start"`
	ActualEnd      *time.Time `json:"actual_end,omitempty" db:"actual_end"`
}

// Location is a named sub-area of the property under inspection.
// Position orders locations within their checklist.
type Location struct {
	ID          string `json:"id" db:"id"`
	WorkOrderID string `json:"work_order_id" db:"work_order_id"`
	Name        string `json:"name" db:"name"`
	Position    int    `json:"position" db:"position"`
}

// Task is one inspectable unit within a location.
// Tasks are never deleted by this engine, only completed.
type Task struct {
	ID          string     `json:"id" db:"id"`
	WorkOrderID string     `json:"work_order_id" db:"work_order_id"`
	Location    string     `json:"location" db:"location"`
	Name        string     `json:"name" db:"name"`
	Status      TaskStatus `json:"status" db:"status"`
	Condition   string     `json:"condition,omitempty" db:"condition"`
	Notes       string     `json:"notes,omitempty" db:"notes"`
	Position    int        `json:"position" db:"position"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// JobSummary is the listing shape returned to the conversation layer.
// Plain data only; no framework types.
type JobSummary struct {
	ID             string          `json:"id"`
	ContractRef    string          `json:"contract_ref"`
	Address        string          `json:"address"`
	Status         WorkOrderStatus `json:"status"`
	ScheduledStart time.Time       `json:"scheduled_start"`
	ScheduledEnd   time.Time       `json:"scheduled_end"`
}

// WorkOrderDetail is the full view of one visit.
type WorkOrderDetail struct {
	ID             string          `json:"id"`
	ContractRef    string          `json:"contract_ref"`
	Address        string          `json:"address"`
	Status         WorkOrderStatus `json:"status"`
	InspectorID    string          `json:"inspector_id"`
	ScheduledStart time.Time       `json:"scheduled_start"`
	ScheduledEnd   time.Time       `json:"scheduled_end"`
	ActualStart    *time.Time      `json:"actual_start,omitempty"`
	ActualEnd      *time.Time      `json:"actual_end,omitempty"`
}

// LocationSummary annotates a location with derived completion.
// A location with zero tasks is never reported complete.
type LocationSummary struct {
	Name           string `json:"name"`
	Position       int    `json:"position"`
	TaskCount      int    `json:"task_count"`
	CompletedCount int    `json:"completed_count"`
	IsCompleted    bool   `json:"is_completed"`
}

// TaskSummary annotates a task with its 1-based display index.
// Display indices are presentation-time only and recomputed per listing.
type TaskSummary struct {
	DisplayIndex int        `json:"display_index"`
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Status       TaskStatus `json:"status"`
	Condition    string     `json:"condition,omitempty"`
	Notes        string     `json:"notes,omitempty"`
}

func (w WorkOrder) detail() WorkOrderDetail {
	return WorkOrderDetail{
		ID:             w.ID,
		ContractRef:    w.ContractRef,
		Address:        w.Address,
		Status:         w.Status,
		InspectorID:    w.InspectorID,
		ScheduledStart: w.ScheduledStart,
		ScheduledEnd:   w.ScheduledEnd,
		ActualStart:    w.ActualStart,
		ActualEnd:      w.ActualEnd,
	}
}

func (w WorkOrder) summary() JobSummary {
	return JobSummary{
		ID:             w.ID,
		ContractRef:    w.ContractRef,
		Address:        w.Address,
		Status:         w.Status,
		ScheduledStart: w.ScheduledStart,
		ScheduledEnd:   w.ScheduledEnd,
	}
}
