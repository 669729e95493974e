package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// fakeClient scripts the AI service: every CreateRun/RetrieveRun/
// SubmitToolOutputs pops the next run state from the queue, holding the last
// state once the queue drains.
type fakeClient struct {
	queue []openai.Run
	idx   int

	finalText string
	addErr    error
	submitErr error

	appended  []string
	submitted [][]openai.ToolOutput
}

func (f *fakeClient) next() openai.Run {
	if f.idx < len(f.queue) {
		run := f.queue[f.idx]
		f.idx++
		return run
	}
	return f.queue[len(f.queue)-1]
}

func (f *fakeClient) CreateThread(ctx context.Context) (string, error) {
	return "th_test", nil
}

func (f *fakeClient) AddUserMessage(ctx context.Context, threadID, text string) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.appended = append(f.appended, text)
	return nil
}

func (f *fakeClient) CreateRun(ctx context.Context, threadID string) (openai.Run, error) {
	return f.next(), nil
}

func (f *fakeClient) RetrieveRun(ctx context.Context, threadID, runID string) (openai.Run, error) {
	return f.next(), nil
}

func (f *fakeClient) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []openai.ToolOutput) (openai.Run, error) {
	if f.submitErr != nil {
		return openai.Run{}, f.submitErr
	}
	f.submitted = append(f.submitted, outputs)
	return f.next(), nil
}

func (f *fakeClient) LatestAssistantText(ctx context.Context, threadID string) (string, error) {
	return f.finalText, nil
}

func run(status openai.RunStatus) openai.Run {
	return openai.Run{ID: "run_1", ThreadID: "th_test", Status: status}
}

func newTestRunner(t *testing.T, client Client, maxAttempts int) *Runner {
	t.Helper()
	d, _ := dispatcherFixture(t)
	return NewRunner(client, d, time.Millisecond, maxAttempts, nil)
}

func TestRespond_CompletedRunReturnsAssistantText(t *testing.T) {
	client := &fakeClient{
		queue: []openai.Run{
			run(openai.RunStatusQueued),
			run(openai.RunStatusInProgress),
			run(openai.RunStatusCompleted),
		},
		finalText: "Here are your jobs for today.",
	}
	r := newTestRunner(t, client, 10)

	reply, err := r.Respond(context.Background(), "th_test", "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "Here are your jobs for today." {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if len(client.appended) != 1 || client.appended[0] != "hi" {
		t.Fatalf("inbound text not appended: %v", client.appended)
	}
}

func TestRespond_RequiresActionDispatchesFullBatch(t *testing.T) {
	requires := run(openai.RunStatusRequiresAction)
	requires.RequiredAction = &openai.RunRequiredAction{
		Type: openai.RequiredActionTypeSubmitToolOutputs,
		SubmitToolOutputs: &openai.SubmitToolOutputs{
			ToolCalls: []openai.ToolCall{
				{
					ID:   "call_a",
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      ToolGetTodayJobs,
						Arguments: `{"inspectorPhone":"+6591234567"}`,
					},
				},
				{
					ID:   "call_b",
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      "deleteEverything",
						Arguments: `{}`,
					},
				},
			},
		},
	}

	client := &fakeClient{
		queue: []openai.Run{
			requires,
			run(openai.RunStatusInProgress),
			run(openai.RunStatusCompleted),
		},
		finalText: "Done.",
	}
	r := newTestRunner(t, client, 10)

	reply, err := r.Respond(context.Background(), "th_test", "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "Done." {
		t.Fatalf("unexpected reply: %q", reply)
	}

	if len(client.submitted) != 1 {
		t.Fatalf("expected exactly one batch submission, got %d", len(client.submitted))
	}
	batch := client.submitted[0]
	if len(batch) != 2 {
		t.Fatalf("expected both tool results in one batch, got %d", len(batch))
	}
	if batch[0].ToolCallID != "call_a" || batch[1].ToolCallID != "call_b" {
		t.Fatalf("results not keyed by their call ids: %+v", batch)
	}
	// the unknown tool produced an error envelope, not a crash
	out, ok := batch[1].Output.(string)
	if !ok || !strings.Contains(out, "Unknown tool: deleteEverything") {
		t.Fatalf("expected error envelope for unknown tool, got %v", batch[1].Output)
	}
}

func TestRespond_TimeoutTerminatesWithinBudget(t *testing.T) {
	client := &fakeClient{
		queue: []openai.Run{run(openai.RunStatusInProgress)},
	}
	r := newTestRunner(t, client, 5)

	done := make(chan struct{})
	var reply string
	var err error
	go func() {
		reply, err = r.Respond(context.Background(), "th_test", "hello")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("runner did not terminate within its attempt budget")
	}
	if reply != TimeoutReply {
		t.Fatalf("expected timeout fallback, got %q", reply)
	}
	if err == nil {
		t.Fatalf("expected budget-exhausted error for logging")
	}
}

func TestRespond_FailedRunUsesGenericFallback(t *testing.T) {
	failed := run(openai.RunStatusFailed)
	failed.LastError = &openai.RunLastError{Code: "server_error", Message: "internal broker exploded"}

	client := &fakeClient{queue: []openai.Run{failed}}
	r := newTestRunner(t, client, 5)

	reply, err := r.Respond(context.Background(), "th_test", "hello")
	if err == nil {
		t.Fatalf("expected error for logging")
	}
	if reply != FallbackReply {
		t.Fatalf("expected generic fallback, got %q", reply)
	}
	// provider error text must never leak into the reply
	if strings.Contains(reply, "exploded") {
		t.Fatalf("internal error text leaked to inspector: %q", reply)
	}
}

func TestRespond_FailedSubmissionFailsTheTurn(t *testing.T) {
	requires := run(openai.RunStatusRequiresAction)
	requires.RequiredAction = &openai.RunRequiredAction{
		Type: openai.RequiredActionTypeSubmitToolOutputs,
		SubmitToolOutputs: &openai.SubmitToolOutputs{
			ToolCalls: []openai.ToolCall{{
				ID:       "call_a",
				Type:     openai.ToolTypeFunction,
				Function: openai.FunctionCall{Name: ToolGetTodayJobs, Arguments: `{"inspectorPhone":"+6591234567"}`},
			}},
		},
	}
	client := &fakeClient{
		queue:     []openai.Run{requires},
		submitErr: errors.New("network blip"),
	}
	r := newTestRunner(t, client, 5)

	reply, err := r.Respond(context.Background(), "th_test", "hello")
	if err == nil {
		t.Fatalf("expected submission error")
	}
	if reply != FallbackReply {
		t.Fatalf("expected fallback after failed submission, got %q", reply)
	}
}

func TestRespond_AppendFailureFallsBack(t *testing.T) {
	client := &fakeClient{
		queue:  []openai.Run{run(openai.RunStatusCompleted)},
		addErr: errors.New("thread gone"),
	}
	r := newTestRunner(t, client, 5)

	reply, err := r.Respond(context.Background(), "th_test", "hello")
	if err == nil || reply != FallbackReply {
		t.Fatalf("expected fallback on append failure, got %q err=%v", reply, err)
	}
}
