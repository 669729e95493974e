package main

import (
	"database/sql"
	"time"

	"inspection-platform/internal/auth"
	"inspection-platform/internal/gateway"
	"inspection-platform/internal/httpapi"
	"inspection-platform/internal/rbac"
	"inspection-platform/internal/webhook"
	"inspection-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, hook *webhook.Handler, h httpapi.Handlers, authMW gin.HandlerFunc, db *sql.DB, rdb *redis.Client, provider gateway.Provider) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		checks := gin.H{"postgres": "ok", "redis": "ok"}
		status := 200
		if err := utils.HealthCheck(c.Request.Context(), db, 2*time.Second); err != nil {
			checks["postgres"] = "down"
			status = 503
		}
		if err := rdb.Ping(c.Request.Context()).Err(); err != nil {
			checks["redis"] = "down"
			status = 503
		}
		c.JSON(status, checks)
	})

	// Messaging provider webhook (public, guarded by shared secret).
	r.GET("/webhooks/messaging", hook.Verify)
	r.POST("/webhooks/messaging", hook.Receive)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		// Identity probe for debugging auth issues.
		v1.GET("/me", func(c *gin.Context) {
			uid, _ := auth.UserID(c.Request.Context())
			aid, _ := auth.AgencyID(c.Request.Context())
			role, _ := auth.Role(c.Request.Context())
			c.JSON(200, gin.H{"user_id": uid, "agency_id": aid, "role": role})
		})

		// WORK ORDER routes
		orders := v1.Group("/workorders")
		orders.Use(httpapi.RequireAgencyAndAnyRole(rbac.RoleAdmin, rbac.RoleCoordinator, rbac.RoleSuperAdmin)...)
		{
			orders.GET("/:id", h.GetWorkOrder)
			orders.GET("/:id/progress", h.GetWorkOrderProgress)
		}

		// INSPECTOR routes
		inspectors := v1.Group("/inspectors")
		inspectors.Use(httpapi.RequireAgencyAndAnyRole(rbac.RoleAdmin, rbac.RoleCoordinator, rbac.RoleSuperAdmin)...)
		{
			inspectors.GET("/:phone/jobs", h.ListInspectorJobs)
		}

		// SESSION routes (admin only): force-expire a conversation session so
		// the next inbound message starts a fresh thread.
		sessions := v1.Group("/sessions")
		sessions.Use(httpapi.RequireAgencyAndAnyRole(rbac.RoleAdmin, rbac.RoleSuperAdmin)...)
		{
			sessions.DELETE("/:phone", h.DeleteSession)
		}

		// ADMIN routes
		// Only admin/super_admin can access admin endpoints by default.
		// Hidden support role is intentionally NOT included unless explicitly desired.
		admin := v1.Group("/admin")
		admin.Use(httpapi.RequireAgencyAndAnyRole(rbac.RoleAdmin, rbac.RoleSuperAdmin)...)
		{
			admin.GET("/ping", func(c *gin.Context) {
				c.JSON(200, gin.H{"status": "ok"})
			})
			admin.GET("/gateway/health", func(c *gin.Context) {
				if err := provider.HealthCheck(c.Request.Context()); err != nil {
					c.JSON(503, gin.H{"gateway": "down"})
					return
				}
				c.JSON(200, gin.H{"gateway": "ok"})
			})
		}
	}

	// Token issuance is public; credentials are validated inside the handler.
	r.POST("/v1/auth/login", h.Login)
}
