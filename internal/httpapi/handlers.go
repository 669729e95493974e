package httpapi

import (
	"errors"
	"net/http"
	"time"

	"inspection-platform/internal/audit"
	"inspection-platform/internal/auth"
	"inspection-platform/internal/gateway"
	"inspection-platform/internal/inspection"
	"inspection-platform/internal/rbac"
	"inspection-platform/internal/reporting"
	"inspection-platform/internal/session"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth       *auth.Manager
	Inspection *inspection.Service
	Reporting  *reporting.Service
	Sessions   *session.Store
	Audit      *audit.Service
}

// --- Auth ---

type loginRequest struct {
	UserID   string `json:"user_id"`
	AgencyID string `json:"agency_id"`
	Role     string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.AgencyID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, agency_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.AgencyID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Work orders ---

func (h Handlers) GetWorkOrder(c *gin.Context) {
	if h.Inspection == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "inspection not configured"})
		return
	}
	id := c.Param("id")
	if id == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "id required"})
		return
	}
	detail, err := h.Inspection.GetWorkOrder(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, inspection.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "work order not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, detail)
}

// GetWorkOrderProgress returns derived checklist completion for one visit.
func (h Handlers) GetWorkOrderProgress(c *gin.Context) {
	if h.Reporting == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	id := c.Param("id")
	if id == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "id required"})
		return
	}
	progress, err := h.Reporting.WorkOrderProgress(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, inspection.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "work order not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "progress lookup failed"})
		return
	}
	c.JSON(http.StatusOK, progress)
}

// --- Inspectors ---

// ListInspectorJobs returns today's schedule for the inspector behind a phone number.
func (h Handlers) ListInspectorJobs(c *gin.Context) {
	if h.Inspection == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "inspection not configured"})
		return
	}
	phone := gateway.NormalizePhone(c.Param("phone"))
	if phone == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "phone required"})
		return
	}
	jobs, err := h.Inspection.ListTodayJobsByPhone(c.Request.Context(), phone)
	if err != nil {
		if errors.Is(err, inspection.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "inspector not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// --- Sessions ---

// DeleteSession force-expires the conversation session for one phone number.
// RBAC: admin or super_admin. The next inbound message starts a fresh thread.
func (h Handlers) DeleteSession(c *gin.Context) {
	if h.Sessions == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "sessions not configured"})
		return
	}
	phone := gateway.NormalizePhone(c.Param("phone"))
	if phone == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "phone required"})
		return
	}
	if err := h.Sessions.Delete(c.Request.Context(), phone); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session delete failed"})
		return
	}

	if h.Audit != nil {
		actorID, _ := auth.UserID(c.Request.Context())
		actorRole, _ := auth.Role(c.Request.Context())
		_ = h.Audit.LogSessionDropped(c.Request.Context(), phone, actorID, actorRole)
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Convenience middleware bundles.

func RequireAgencyAndAnyRole(roles ...string) []gin.HandlerFunc {
	return []gin.HandlerFunc{rbac.RequireAgency(), rbac.RequireAnyRole(roles...)}
}
