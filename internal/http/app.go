// Package http holds the pieces shared by the API router and the modules
// mounted on it.
package http

import (
	"context"

	"fddhub/internal/events"
	"fddhub/platform/config"
	"fddhub/platform/logger"

	"github.com/gin-gonic/gin"
)

// RouterConfig is the slice of configuration the router reads.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is assembled in cmd/api and handed to router.New.
type App struct {
	Config RouterConfig
	Logger *logger.Logger
	// Health backs the database check of /api/ready.
	Health HealthChecker
	// Cache is optional; nil skips the redis check.
	Cache    HealthChecker
	EventBus events.Bus
	// FranchisorMembership is mounted on the Franchisor group when set.
	FranchisorMembership gin.HandlerFunc
	Modules              []Module
}
