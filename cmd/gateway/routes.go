package main

import (
	"net/http"
	"net/url"

	"pos-admin/internal/config"
	"pos-admin/internal/guard"
	"pos-admin/internal/httpapi"
	"pos-admin/internal/rbac"
	"pos-admin/internal/session"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to the
// session manager.
func registerRoutes(r *gin.Engine, sm *session.Manager, cfg config.Config) {
	// Already validated by config.Load.
	backend, _ := url.Parse(cfg.API.BaseURL)
	h := httpapi.NewHandlers(sm, backend)

	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET(guard.LoginPath, h.LoginForm)
	r.POST(guard.LoginPath, h.Login)
	r.POST("/logout", h.Logout)
	r.GET(guard.DeniedPath, h.Denied)
	r.GET("/session", h.SessionState)

	// guarded screens: any authenticated operator
	r.GET("/", guard.Require(sm), h.Home)

	// guarded backend proxy: the gateway injects the bearer token
	apiGroup := r.Group("/api")
	apiGroup.Use(guard.Require(sm))
	apiGroup.Any("/*path", h.APIProxy)

	// admin screens require elevated permissions
	admin := r.Group("/admin")
	admin.Use(guard.Require(sm, rbac.PermissionFullAccess, rbac.PermissionAdministratorAccess))
	{
		admin.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
	}
}
