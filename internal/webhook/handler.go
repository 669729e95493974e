package webhook

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"inspection-platform/internal/assistant"
	"inspection-platform/internal/audit"
	"inspection-platform/internal/gateway"
	"inspection-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Narrow contracts over the pipeline dependencies so handler tests can run
// against in-memory fakes.

type Deduper interface {
	MarkIfNew(ctx context.Context, messageID string) (bool, error)
}

type SessionStore interface {
	Resolve(ctx context.Context, phone string) (string, bool, error)
	Claim(ctx context.Context, phone, threadID string) (string, error)
}

type ThreadCreator interface {
	CreateThread(ctx context.Context) (string, error)
}

type Responder interface {
	Respond(ctx context.Context, threadID, text string) (string, error)
}

type ReplySender interface {
	Send(ctx context.Context, phone, text, messageID string) error
}

// Handler is the public messaging webhook.
//
// Contract with the provider:
// - GET is a verification handshake on the shared secret.
// - POST always returns 200 once the payload is readable, even when the
//   turn fails downstream. Non-200 would trigger provider retries and
//   duplicate conversations.
type Handler struct {
	secret string

	dedup    Deduper
	sessions SessionStore
	threads  ThreadCreator
	runner   Responder
	sender   ReplySender
	audit    *audit.Service
	log      *slog.Logger
}

func NewHandler(secret string, dedup Deduper, sessions SessionStore, threads ThreadCreator, runner Responder, sender ReplySender, auditSvc *audit.Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		secret:   secret,
		dedup:    dedup,
		sessions: sessions,
		threads:  threads,
		runner:   runner,
		sender:   sender,
		audit:    auditSvc,
		log:      log,
	}
}

// Verify answers the provider's GET handshake.
func (h *Handler) Verify(c *gin.Context) {
	if !h.secretOK(c) {
		c.String(http.StatusForbidden, "forbidden")
		return
	}
	c.String(http.StatusOK, "OK")
}

// Receive processes one inbound message end to end:
// parse -> dedup -> session -> assistant turn -> chunked reply.
func (h *Handler) Receive(c *gin.Context) {
	if !h.secretOK(c) {
		c.String(http.StatusForbidden, "forbidden")
		return
	}

	// Apology destination, known once message extraction succeeds. A fatal
	// failure after that point still owes the inspector a reply.
	var inspectorPhone, inboundID string

	// The provider is acked no matter what happens downstream.
	defer func() {
		if rec := recover(); rec != nil {
			h.log.Error("webhook panic recovered", "panic", rec)
			if inspectorPhone != "" {
				h.apologize(c.Request.Context(), inspectorPhone, inboundID)
			}
			c.JSON(http.StatusOK, gin.H{"success": true})
		}
	}()

	msg, ok, err := gateway.ParseInbound(c.Request.Body)
	if err != nil {
		// Once the secret checks out the provider is always acked, even for
		// bodies we cannot read, to avoid redelivery storms.
		h.log.Warn("unreadable webhook payload", "error", err)
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}
	if !ok {
		// Status callbacks, read receipts and other non-message events.
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	log := logger.FromGin(c).With("message_id", msg.MessageID, "phone", msg.From)

	if strings.TrimSpace(msg.Body) == "" {
		log.Info("ignoring empty message body")
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}
	inspectorPhone, inboundID = msg.From, msg.MessageID

	fresh, err := h.dedup.MarkIfNew(c.Request.Context(), msg.MessageID)
	if err != nil {
		// Treat an unreachable dedup store as first delivery. A duplicate
		// conversation beats a silently dropped inspector message.
		log.Warn("dedup check failed, processing anyway", "error", err)
		fresh = true
	}
	if !fresh {
		log.Info("duplicate delivery ignored")
		c.JSON(http.StatusOK, gin.H{"success": true, "duplicate": true})
		return
	}

	threadID, err := h.resolveThread(c.Request.Context(), msg.From)
	if err != nil {
		log.Error("session resolution failed", "error", err)
		h.failTurn(c, msg, "", err)
		return
	}
	log = log.With("thread_id", threadID)

	reply, runErr := h.runner.Respond(c.Request.Context(), threadID, msg.Body)
	if runErr != nil {
		// Respond already degraded reply to a generic message; deliver it.
		log.Warn("assistant turn degraded", "error", runErr)
	}

	if err := h.sender.Send(c.Request.Context(), msg.From, reply, msg.MessageID); err != nil {
		log.Error("reply delivery failed", "error", err)
		h.failTurn(c, msg, threadID, err)
		return
	}

	if h.audit != nil {
		if err := h.audit.LogTurn(c.Request.Context(), msg.From, msg.MessageID, threadID, runErr); err != nil {
			log.Warn("audit append failed", "error", err)
		}
	}

	log.Info("turn processed")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// resolveThread returns the thread bound to the phone, creating and claiming
// a new one when no session exists. Racing claims converge on one winner.
func (h *Handler) resolveThread(ctx context.Context, phone string) (string, error) {
	threadID, found, err := h.sessions.Resolve(ctx, phone)
	if err != nil {
		return "", err
	}
	if found {
		return threadID, nil
	}

	candidate, err := h.threads.CreateThread(ctx)
	if err != nil {
		return "", err
	}
	return h.sessions.Claim(ctx, phone, candidate)
}

// failTurn sends a best-effort apology to the inspector, records the
// failure and still acks the provider with 200.
func (h *Handler) failTurn(c *gin.Context, msg gateway.InboundMessage, threadID string, cause error) {
	h.apologize(c.Request.Context(), msg.From, msg.MessageID)
	if h.audit != nil {
		_ = h.audit.LogTurn(c.Request.Context(), msg.From, msg.MessageID, threadID, cause)
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// apologize delivers a generic apology after a fatal failure. Best-effort:
// a second failure here is only logged, never surfaced to the provider.
func (h *Handler) apologize(ctx context.Context, phone, messageID string) {
	if err := h.sender.Send(ctx, phone, assistant.FallbackReply, messageID); err != nil {
		h.log.Warn("apology delivery failed", "to", phone, "message_id", messageID, "error", err)
	}
}

func (h *Handler) secretOK(c *gin.Context) bool {
	if h.secret == "" {
		return false
	}
	candidates := []string{
		c.Query("secret"),
		c.GetHeader("X-Webhook-Secret"),
	}
	if authz := c.GetHeader("Authorization"); strings.HasPrefix(authz, "Bearer ") {
		candidates = append(candidates, strings.TrimPrefix(authz, "Bearer "))
	}
	for _, cand := range candidates {
		if cand == "" {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(cand), []byte(h.secret)) == 1 {
			return true
		}
	}
	return false
}
