package reporting

import (
	"time"

	"inspection-platform/internal/inspection"
)

// LocationProgress is the derived completion state of one checklist location.
// A location with zero tasks is never reported complete.
type LocationProgress struct {
	Name           string `json:"name"`
	Position       int    `json:"position"`
	TaskCount      int    `json:"task_count"`
	CompletedCount int    `json:"completed_count"`
	Completed      bool   `json:"completed"`
}

// WorkOrderProgress aggregates checklist completion for one visit.
type WorkOrderProgress struct {
	WorkOrderID string                     `json:"work_order_id"`
	ContractRef string                     `json:"contract_ref"`
	Address     string                     `json:"address"`
	Status      inspection.WorkOrderStatus `json:"status"`

	TaskCount      int     `json:"task_count"`
	CompletedTasks int     `json:"completed_tasks"`
	PercentDone    float64 `json:"percent_done"`

	Locations []LocationProgress `json:"locations"`
}

// DailySummaryRequest requests one inspector's activity for a single day.
// Day is interpreted in UTC; callers pass any instant inside the day.
type DailySummaryRequest struct {
	InspectorID string    `json:"inspector_id"`
	Day         time.Time `json:"day"`
}

type DailySummary struct {
	InspectorID string    `json:"inspector_id"`
	Day         time.Time `json:"day"`

	JobsScheduled int `json:"jobs_scheduled"`
	JobsStarted   int `json:"jobs_started"`
	JobsCompleted int `json:"jobs_completed"`
	JobsCancelled int `json:"jobs_cancelled"`

	TasksCompleted int `json:"tasks_completed"`
	TasksRemaining int `json:"tasks_remaining"`
}
