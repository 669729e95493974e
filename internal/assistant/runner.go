package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Runner drives one inbound-message-to-reply cycle against the AI service.
//
// State machine per message:
//
//	created -> queued/in_progress -> {requires_action -> tool dispatch ->
//	queued/in_progress}* -> completed | failed | expired
//
// The status wait is a bounded blocking poll scoped to this one message:
// pollInterval * maxAttempts is the hard ceiling for the turn. A run that is
// still pending past the budget is treated as expired and answered with a
// generic fallback instead of holding the webhook open.
type Runner struct {
	client       Client
	tools        *Dispatcher
	pollInterval time.Duration
	maxAttempts  int
	log          *slog.Logger
}

// Fallback replies. The AI service's internal error text is never forwarded
// to the inspector verbatim.
const (
	FallbackReply = "Sorry, something went wrong on our side. Please send that again."
	TimeoutReply  = "This is taking longer than expected. Please try again in a moment."
)

func NewRunner(client Client, tools *Dispatcher, pollInterval time.Duration, maxAttempts int, log *slog.Logger) *Runner {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 60
	}
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		client:       client,
		tools:        tools,
		pollInterval: pollInterval,
		maxAttempts:  maxAttempts,
		log:          log,
	}
}

// Respond appends the inbound text to the thread, runs the assistant to
// completion or fallback, and returns the reply to deliver. The returned
// reply is always usable; err reports why a fallback was chosen, for logging
// and audit.
func (r *Runner) Respond(ctx context.Context, threadID, text string) (string, error) {
	if err := r.client.AddUserMessage(ctx, threadID, text); err != nil {
		return FallbackReply, err
	}

	run, err := r.client.CreateRun(ctx, threadID)
	if err != nil {
		return FallbackReply, err
	}

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		switch run.Status {
		case openai.RunStatusCompleted:
			reply, err := r.client.LatestAssistantText(ctx, threadID)
			if err != nil {
				return FallbackReply, err
			}
			return reply, nil

		case openai.RunStatusRequiresAction:
			run, err = r.executeToolCalls(ctx, run)
			if err != nil {
				// A failed batch submission fails the turn outright; the
				// inspector re-sends if needed.
				return FallbackReply, err
			}
			continue

		case openai.RunStatusQueued, openai.RunStatusInProgress:
			if err := sleepCtx(ctx, r.pollInterval); err != nil {
				return FallbackReply, err
			}
			next, err := r.client.RetrieveRun(ctx, run.ThreadID, run.ID)
			if err != nil {
				// Transient retrieve failures burn an attempt instead of
				// aborting the turn.
				r.log.Warn("run status retrieve failed", "run_id", run.ID, "err", err)
				continue
			}
			run = next

		case openai.RunStatusFailed:
			return FallbackReply, runError(run)

		case openai.RunStatusExpired:
			return TimeoutReply, runError(run)

		default:
			// cancelling/cancelled or an unknown future status: nothing
			// useful can come out of this run anymore.
			return FallbackReply, fmt.Errorf("run %s ended in status %s", run.ID, run.Status)
		}
	}

	return TimeoutReply, fmt.Errorf("run %s still %s after %d attempts", run.ID, run.Status, r.maxAttempts)
}

// executeToolCalls dispatches every requested call and submits the results
// as one batch keyed by tool-call id. Submitting a partial batch or a wrong
// association is a correctness bug, so results are collected first and
// submitted together.
func (r *Runner) executeToolCalls(ctx context.Context, run openai.Run) (openai.Run, error) {
	if run.RequiredAction == nil || run.RequiredAction.SubmitToolOutputs == nil {
		return openai.Run{}, fmt.Errorf("run %s requires action but carries no tool calls", run.ID)
	}

	calls := run.RequiredAction.SubmitToolOutputs.ToolCalls
	outputs := make([]openai.ToolOutput, 0, len(calls))
	for _, call := range calls {
		result := r.tools.Dispatch(ctx, call.Function.Name, call.Function.Arguments)
		r.log.Debug("tool dispatched",
			"run_id", run.ID,
			"tool", call.Function.Name,
			"tool_call_id", call.ID,
		)
		outputs = append(outputs, openai.ToolOutput{
			ToolCallID: call.ID,
			Output:     result,
		})
	}

	return r.client.SubmitToolOutputs(ctx, run.ThreadID, run.ID, outputs)
}

func runError(run openai.Run) error {
	if run.LastError != nil {
		return fmt.Errorf("run %s %s: %s (%s)", run.ID, run.Status, run.LastError.Message, run.LastError.Code)
	}
	return errors.New("run " + run.ID + " ended in status " + string(run.Status))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
