package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"inspection-platform/internal/inspection"
)

// Dispatcher maps a named tool invocation with JSON arguments onto an
// inspection domain call and serializes the result back to JSON.
//
// Dispatch never fails past this boundary: every domain or validation error
// becomes a {"success":false,"error":...} envelope so the conversation can
// react and continue.
type Dispatcher struct {
	svc *inspection.Service
}

func NewDispatcher(svc *inspection.Service) *Dispatcher {
	return &Dispatcher{svc: svc}
}

type toolArgs struct {
	InspectorPhone string `json:"inspectorPhone"`
	JobID          string `json:"jobId"`
	WorkOrderID    string `json:"workOrderId"`
	Location       string `json:"location"`
	TaskID         string `json:"taskId"`
	Notes          string `json:"notes"`
}

// Dispatch executes one tool call and returns the JSON payload to hand back
// to the assistant.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, rawArgs string) string {
	var args toolArgs
	if rawArgs != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return errorEnvelope(fmt.Sprintf("invalid arguments: %v", err))
		}
	}

	switch name {
	case ToolGetTodayJobs:
		if args.InspectorPhone == "" {
			return errorEnvelope("inspectorPhone is required")
		}
		jobs, err := d.svc.ListTodayJobsByPhone(ctx, args.InspectorPhone)
		if err != nil {
			return domainError(err, "no inspector registered for this phone number")
		}
		return successEnvelope(map[string]any{"jobs": jobs})

	case ToolSelectJob:
		if args.JobID == "" {
			return errorEnvelope("jobId is required")
		}
		detail, err := d.svc.StartJob(ctx, args.JobID)
		if err != nil {
			return domainError(err, "job not found")
		}
		return successEnvelope(map[string]any{"job": detail})

	case ToolGetJobLocations:
		if args.JobID == "" {
			return errorEnvelope("jobId is required")
		}
		locs, err := d.svc.ListLocations(ctx, args.JobID)
		if err != nil {
			return domainError(err, "job not found")
		}
		return successEnvelope(map[string]any{"locations": locs})

	case ToolGetTasksForLocation:
		if args.WorkOrderID == "" || args.Location == "" {
			return errorEnvelope("workOrderId and location are required")
		}
		tasks, err := d.svc.ListTasks(ctx, args.WorkOrderID, args.Location)
		if err != nil {
			return domainError(err, "location not found")
		}
		return successEnvelope(map[string]any{"tasks": tasks})

	case ToolCompleteTask:
		return d.dispatchCompleteTask(ctx, args)

	default:
		return errorEnvelope("Unknown tool: " + name)
	}
}

// dispatchCompleteTask owns the sentinel routing: the bulk/individual
// decision is made here, never inferred from argument shape by callers.
func (d *Dispatcher) dispatchCompleteTask(ctx context.Context, args toolArgs) string {
	if args.TaskID == "" || args.WorkOrderID == "" {
		return errorEnvelope("taskId and workOrderId are required")
	}

	if strings.EqualFold(args.TaskID, CompleteAllSentinel) {
		if args.Location == "" {
			return errorEnvelope("location is required when completing all tasks")
		}
		n, err := d.svc.CompleteAllTasks(ctx, args.WorkOrderID, args.Location, args.Notes)
		if err != nil {
			return domainError(err, "no tasks found for this location")
		}
		return successEnvelope(map[string]any{"completed": n, "location": args.Location})
	}

	if err := d.svc.CompleteTask(ctx, args.TaskID, args.Notes); err != nil {
		return domainError(err, "task not found")
	}
	return successEnvelope(map[string]any{"completed": 1, "taskId": args.TaskID})
}

func domainError(err error, notFoundMsg string) string {
	switch {
	case errors.Is(err, inspection.ErrNotFound):
		return errorEnvelope(notFoundMsg)
	case errors.Is(err, inspection.ErrInvalidTransition):
		return errorEnvelope("this job is not in a state that allows that action; it may be finished or cancelled, or not started yet")
	case errors.Is(err, inspection.ErrInvalidArgument):
		return errorEnvelope("missing or invalid arguments")
	default:
		// Internal details stay server-side; the conversation only needs to
		// know the call did not go through.
		return errorEnvelope("temporary problem executing this action, please retry")
	}
}

func successEnvelope(data map[string]any) string {
	payload := map[string]any{"success": true}
	for k, v := range data {
		payload[k] = v
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return errorEnvelope("failed to serialize result")
	}
	return string(b)
}

func errorEnvelope(msg string) string {
	b, _ := json.Marshal(map[string]any{"success": false, "error": msg})
	return string(b)
}
