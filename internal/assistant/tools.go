package assistant

import (
	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// Tool names exposed to the assistant. These are part of the conversation
// contract; renaming one requires re-provisioning the assistant.
const (
	ToolGetTodayJobs        = "getTodayJobs"
	ToolSelectJob           = "selectJob"
	ToolGetJobLocations     = "getJobLocations"
	ToolGetTasksForLocation = "getTasksForLocation"
	ToolCompleteTask        = "completeTask"
)

// CompleteAllSentinel in the taskId field of completeTask means
// "bulk-complete every task in the given location". Inherited from the
// conversation contract; the dispatcher branches on it explicitly.
const CompleteAllSentinel = "complete_all_tasks"

// ToolDefinitions returns the function schema registered on the assistant.
func ToolDefinitions() []openai.AssistantTool {
	return []openai.AssistantTool{
		functionTool(
			ToolGetTodayJobs,
			"List the jobs scheduled today for the inspector with the given phone number.",
			map[string]jsonschema.Definition{
				"inspectorPhone": {Type: jsonschema.String, Description: "Inspector phone number in E.164 format."},
			},
			[]string{"inspectorPhone"},
		),
		functionTool(
			ToolSelectJob,
			"Select a job and start the inspection visit. Call this before completing any task.",
			map[string]jsonschema.Definition{
				"jobId": {Type: jsonschema.String, Description: "Work order id, e.g. wo-42."},
			},
			[]string{"jobId"},
		),
		functionTool(
			ToolGetJobLocations,
			"List the checklist locations of a job with their completion status.",
			map[string]jsonschema.Definition{
				"jobId": {Type: jsonschema.String, Description: "Work order id."},
			},
			[]string{"jobId"},
		),
		functionTool(
			ToolGetTasksForLocation,
			"List the tasks of one location with their display numbers.",
			map[string]jsonschema.Definition{
				"workOrderId": {Type: jsonschema.String, Description: "Work order id."},
				"location":    {Type: jsonschema.String, Description: "Location name, e.g. Kitchen."},
			},
			[]string{"workOrderId", "location"},
		),
		functionTool(
			ToolCompleteTask,
			"Complete one task, or every task in a location when taskId is the literal complete_all_tasks.",
			map[string]jsonschema.Definition{
				"taskId":      {Type: jsonschema.String, Description: "Task id, or complete_all_tasks for the whole location."},
				"workOrderId": {Type: jsonschema.String, Description: "Work order id."},
				"location":    {Type: jsonschema.String, Description: "Location name; required when taskId is complete_all_tasks."},
				"notes":       {Type: jsonschema.String, Description: "Optional free-text inspection notes."},
			},
			[]string{"taskId", "workOrderId"},
		),
	}
}

func functionTool(name, description string, props map[string]jsonschema.Definition, required []string) openai.AssistantTool {
	return openai.AssistantTool{
		Type: openai.AssistantToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters: jsonschema.Definition{
				Type:       jsonschema.Object,
				Properties: props,
				Required:   required,
			},
		},
	}
}
