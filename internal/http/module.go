// Package http holds the contract between the router and the FDDHub modules.
package http

import (
	"fddhub/internal/events"
	"fddhub/platform/config"
	"fddhub/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Module is one bounded context with HTTP routes.
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// EventSubscriber is implemented by modules that react to domain events.
// The router subscribes them on the app's bus before mounting routes.
type EventSubscriber interface {
	RegisterHandlers(bus events.Bus)
}

// RouterContext carries the shared groups and middleware a module mounts on.
type RouterContext struct {
	Engine *gin.Engine
	// V1 is /api/v1 without authentication; public invitation, webhook and
	// tracking routes live here.
	V1        *gin.RouterGroup
	Protected *gin.RouterGroup
	// Franchisor requires a resolved franchisor membership (owner or active
	// team member) on top of authentication.
	Franchisor *gin.RouterGroup
	// Admin is /api/v1/admin, restricted to the admin role.
	Admin           *gin.RouterGroup
	Config          config.JWTConfig
	AuthMiddleware  gin.HandlerFunc
	AuthRateLimiter *httpkit.AuthRateLimiter
}
