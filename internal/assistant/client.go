package assistant

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Client is the narrow surface of the AI tool-calling service consumed by
// the run controller. It exists so the controller and webhook pipeline can
// be tested against a fake.
type Client interface {
	// CreateThread opens a fresh conversation thread and returns its id.
	CreateThread(ctx context.Context) (string, error)
	// AddUserMessage appends inbound inspector text to the thread.
	AddUserMessage(ctx context.Context, threadID, text string) error
	// CreateRun asks the service to advance the thread by one assistant turn.
	CreateRun(ctx context.Context, threadID string) (openai.Run, error)
	// RetrieveRun polls the current run state.
	RetrieveRun(ctx context.Context, threadID, runID string) (openai.Run, error)
	// SubmitToolOutputs resumes a run waiting on tool results. The batch must
	// be complete: partial submissions are a protocol violation.
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []openai.ToolOutput) (openai.Run, error)
	// LatestAssistantText returns the most recent assistant-authored text in
	// the thread.
	LatestAssistantText(ctx context.Context, threadID string) (string, error)
}

// OpenAIClient implements Client against the OpenAI Assistants API.
type OpenAIClient struct {
	api         *openai.Client
	assistantID string
}

func NewOpenAIClient(apiKey, assistantID string) *OpenAIClient {
	return &OpenAIClient{
		api:         openai.NewClient(apiKey),
		assistantID: assistantID,
	}
}

func (c *OpenAIClient) CreateThread(ctx context.Context) (string, error) {
	thread, err := c.api.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	return thread.ID, nil
}

func (c *OpenAIClient) AddUserMessage(ctx context.Context, threadID, text string) error {
	_, err := c.api.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: text,
	})
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (c *OpenAIClient) CreateRun(ctx context.Context, threadID string) (openai.Run, error) {
	run, err := c.api.CreateRun(ctx, threadID, openai.RunRequest{
		AssistantID: c.assistantID,
	})
	if err != nil {
		return openai.Run{}, fmt.Errorf("create run: %w", err)
	}
	return run, nil
}

func (c *OpenAIClient) RetrieveRun(ctx context.Context, threadID, runID string) (openai.Run, error) {
	return c.api.RetrieveRun(ctx, threadID, runID)
}

func (c *OpenAIClient) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []openai.ToolOutput) (openai.Run, error) {
	run, err := c.api.SubmitToolOutputs(ctx, threadID, runID, openai.SubmitToolOutputsRequest{
		ToolOutputs: outputs,
	})
	if err != nil {
		return openai.Run{}, fmt.Errorf("submit tool outputs: %w", err)
	}
	return run, nil
}

func (c *OpenAIClient) LatestAssistantText(ctx context.Context, threadID string) (string, error) {
	limit := 10
	order := "desc"
	msgs, err := c.api.ListMessage(ctx, threadID, &limit, &order, nil, nil, nil)
	if err != nil {
		return "", fmt.Errorf("list messages: %w", err)
	}
	for _, m := range msgs.Messages {
		if m.Role != openai.ChatMessageRoleAssistant {
			continue
		}
		for _, part := range m.Content {
			if part.Text != nil && part.Text.Value != "" {
				return part.Text.Value, nil
			}
		}
	}
	return "", errors.New("no assistant text in thread")
}

// SyncTools pushes the current tool schema to the assistant. Called at
// startup when enabled so the deployed schema cannot drift from the code.
func (c *OpenAIClient) SyncTools(ctx context.Context) error {
	tools := ToolDefinitions()
	_, err := c.api.ModifyAssistant(ctx, c.assistantID, openai.AssistantRequest{
		Tools: tools,
	})
	if err != nil {
		return fmt.Errorf("sync assistant tools: %w", err)
	}
	return nil
}
