package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"inspection-platform/internal/assistant"
	"inspection-platform/internal/audit"

	"github.com/gin-gonic/gin"
)

const testSecret = "shh"

type fakeDedup struct {
	seen map[string]bool
	err  error
}

func (f *fakeDedup) MarkIfNew(ctx context.Context, id string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[id] {
		return false, nil
	}
	f.seen[id] = true
	return true, nil
}

type fakeSessions struct {
	threads    map[string]string
	resolveErr error
}

func (f *fakeSessions) Resolve(ctx context.Context, phone string) (string, bool, error) {
	if f.resolveErr != nil {
		return "", false, f.resolveErr
	}
	id, ok := f.threads[phone]
	return id, ok, nil
}

func (f *fakeSessions) Claim(ctx context.Context, phone, threadID string) (string, error) {
	if f.threads == nil {
		f.threads = map[string]string{}
	}
	if existing, ok := f.threads[phone]; ok {
		return existing, nil
	}
	f.threads[phone] = threadID
	return threadID, nil
}

type fakeThreads struct {
	created int
	err     error
}

func (f *fakeThreads) CreateThread(ctx context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.created++
	return "th_new", nil
}

type fakeRunner struct {
	replies  []string
	err      error
	panicMsg string
	received []string
	threads  []string
}

func (f *fakeRunner) Respond(ctx context.Context, threadID, text string) (string, error) {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	f.received = append(f.received, text)
	f.threads = append(f.threads, threadID)
	reply := "done"
	if len(f.replies) > 0 {
		reply = f.replies[0]
		f.replies = f.replies[1:]
	}
	return reply, f.err
}

type fakeSender struct {
	sent []string
	to   []string
	err  error
}

func (f *fakeSender) Send(ctx context.Context, phone, text, messageID string) error {
	if f.err != nil {
		return f.err
	}
	f.to = append(f.to, phone)
	f.sent = append(f.sent, text)
	return nil
}

type fixture struct {
	handler  *Handler
	dedup    *fakeDedup
	sessions *fakeSessions
	threads  *fakeThreads
	runner   *fakeRunner
	sender   *fakeSender
	auditLog *audit.MemoryRepo
	router   *gin.Engine
}

func newFixture() *fixture {
	gin.SetMode(gin.TestMode)
	f := &fixture{
		dedup:    &fakeDedup{},
		sessions: &fakeSessions{},
		threads:  &fakeThreads{},
		runner:   &fakeRunner{},
		sender:   &fakeSender{},
		auditLog: audit.NewMemoryRepo(),
	}
	f.handler = NewHandler(testSecret, f.dedup, f.sessions, f.threads, f.runner, f.sender, audit.NewService(f.auditLog), nil)
	f.router = gin.New()
	f.router.GET("/webhooks/messaging", f.handler.Verify)
	f.router.POST("/webhooks/messaging", f.handler.Receive)
	return f
}

func (f *fixture) post(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/messaging?secret="+testSecret, strings.NewReader(body))
	f.router.ServeHTTP(w, req)
	return w
}

func inbound(id, from, body string) string {
	b, _ := json.Marshal(map[string]any{
		"event": "message",
		"payload": map[string]string{
			"id":   id,
			"from": from,
			"body": body,
		},
	})
	return string(b)
}

func TestVerify_Handshake(t *testing.T) {
	f := newFixture()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/webhooks/messaging?secret="+testSecret, nil)
	f.router.ServeHTTP(w, req)
	if w.Code != 200 || w.Body.String() != "OK" {
		t.Fatalf("expected 200 OK, got %d %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/webhooks/messaging?secret=wrong", nil)
	f.router.ServeHTTP(w, req)
	if w.Code != 403 {
		t.Fatalf("expected 403 for bad secret, got %d", w.Code)
	}
}

func TestReceive_RejectsMissingSecret(t *testing.T) {
	f := newFixture()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/messaging", strings.NewReader(inbound("m1", "whatsapp:+6591234567", "hi")))
	f.router.ServeHTTP(w, req)
	if w.Code != 403 {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if len(f.runner.received) != 0 {
		t.Fatalf("pipeline must not run without the secret")
	}
}

func TestReceive_HappyPath(t *testing.T) {
	f := newFixture()
	f.runner.replies = []string{"You have 2 jobs today."}

	w := f.post(t, inbound("m1", "whatsapp:+6591234567", "what's on today?"))
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	if f.threads.created != 1 {
		t.Fatalf("expected one thread created, got %d", f.threads.created)
	}
	if got := f.sessions.threads["+6591234567"]; got != "th_new" {
		t.Fatalf("session not bound: %q", got)
	}
	if len(f.runner.received) != 1 || f.runner.received[0] != "what's on today?" {
		t.Fatalf("runner got %v", f.runner.received)
	}
	if len(f.sender.sent) != 1 || f.sender.sent[0] != "You have 2 jobs today." {
		t.Fatalf("sender got %v", f.sender.sent)
	}
	if f.sender.to[0] != "+6591234567" {
		t.Fatalf("reply went to %q", f.sender.to[0])
	}

	events := f.auditLog.Events()
	if len(events) != 1 || events[0].Type != audit.EventTypeTurnProcessed {
		t.Fatalf("unexpected audit trail: %+v", events)
	}
}

func TestReceive_DuplicateDeliveryShortCircuits(t *testing.T) {
	f := newFixture()

	f.post(t, inbound("m1", "whatsapp:+6591234567", "hi"))
	w := f.post(t, inbound("m1", "whatsapp:+6591234567", "hi"))
	if w.Code != 200 {
		t.Fatalf("duplicates must still be acked, got %d", w.Code)
	}
	if len(f.runner.received) != 1 {
		t.Fatalf("duplicate must not reach the assistant, runs=%d", len(f.runner.received))
	}
	if len(f.sender.sent) != 1 {
		t.Fatalf("duplicate must not send, sends=%d", len(f.sender.sent))
	}
}

func TestReceive_SessionContinuity(t *testing.T) {
	f := newFixture()
	f.sessions.threads = map[string]string{"+6591234567": "th_existing"}

	f.post(t, inbound("m1", "whatsapp:+6591234567", "first"))
	f.post(t, inbound("m2", "whatsapp:+6591234567", "second"))

	if f.threads.created != 0 {
		t.Fatalf("existing session must be reused, created=%d", f.threads.created)
	}
	for _, th := range f.runner.threads {
		if th != "th_existing" {
			t.Fatalf("turn ran on wrong thread %q", th)
		}
	}
}

func TestReceive_NonMessageEventAcked(t *testing.T) {
	f := newFixture()

	w := f.post(t, `{"event":"status","payload":{"id":"s1"}}`)
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(f.runner.received) != 0 || f.threads.created != 0 {
		t.Fatalf("non-message events must be dropped")
	}
}

func TestReceive_EmptyBodyIgnored(t *testing.T) {
	f := newFixture()

	w := f.post(t, inbound("m1", "whatsapp:+6591234567", "   "))
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(f.runner.received) != 0 {
		t.Fatalf("blank messages must not start a turn")
	}
}

func TestReceive_DegradedTurnStillDelivers(t *testing.T) {
	f := newFixture()
	f.runner.replies = []string{"Sorry, something went wrong on our side. Please send that again."}
	f.runner.err = errors.New("run failed: model exploded")

	w := f.post(t, inbound("m1", "whatsapp:+6591234567", "hi"))
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(f.sender.sent) != 1 || strings.Contains(f.sender.sent[0], "exploded") {
		t.Fatalf("generic reply expected, got %v", f.sender.sent)
	}

	events := f.auditLog.Events()
	if len(events) != 1 || events[0].Type != audit.EventTypeTurnFailed {
		t.Fatalf("expected turn_failed audit event: %+v", events)
	}
}

func TestReceive_SendFailureStillAcks(t *testing.T) {
	f := newFixture()
	f.sender.err = errors.New("gateway down")

	w := f.post(t, inbound("m1", "whatsapp:+6591234567", "hi"))
	if w.Code != 200 {
		t.Fatalf("provider must be acked even when delivery fails, got %d", w.Code)
	}

	events := f.auditLog.Events()
	if len(events) != 1 || events[0].Type != audit.EventTypeTurnFailed {
		t.Fatalf("expected turn_failed audit event: %+v", events)
	}
}

func TestReceive_SessionFailureSendsApology(t *testing.T) {
	f := newFixture()
	f.sessions.resolveErr = errors.New("redis down")

	w := f.post(t, inbound("m1", "whatsapp:+6591234567", "hi"))
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(f.runner.received) != 0 {
		t.Fatalf("turn must not run without a session")
	}
	if len(f.sender.sent) != 1 || f.sender.sent[0] != assistant.FallbackReply {
		t.Fatalf("expected one apology reply, got %v", f.sender.sent)
	}
	if f.sender.to[0] != "+6591234567" {
		t.Fatalf("apology went to %q", f.sender.to[0])
	}

	events := f.auditLog.Events()
	if len(events) != 1 || events[0].Type != audit.EventTypeTurnFailed {
		t.Fatalf("expected turn_failed audit event: %+v", events)
	}
}

func TestReceive_PanicAcksAndApologizes(t *testing.T) {
	f := newFixture()
	f.runner.panicMsg = "nil map write"

	w := f.post(t, inbound("m1", "whatsapp:+6591234567", "hi"))
	if w.Code != 200 {
		t.Fatalf("panic must still be acked with 200, got %d", w.Code)
	}
	if len(f.sender.sent) != 1 || f.sender.sent[0] != assistant.FallbackReply {
		t.Fatalf("expected one apology reply after panic, got %v", f.sender.sent)
	}
}

func TestReceive_DedupOutageProcessesAnyway(t *testing.T) {
	f := newFixture()
	f.dedup.err = errors.New("redis down")

	w := f.post(t, inbound("m1", "whatsapp:+6591234567", "hi"))
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(f.runner.received) != 1 {
		t.Fatalf("dedup outage must not drop the message")
	}
}

func TestReceive_MalformedPayloadStillAcked(t *testing.T) {
	f := newFixture()

	w := f.post(t, "{not json")
	if w.Code != http.StatusOK {
		t.Fatalf("unreadable payloads must still be acked, got %d", w.Code)
	}
	if len(f.runner.received) != 0 {
		t.Fatalf("unreadable payload must not start a turn")
	}
}
