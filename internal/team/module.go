// Package team manages the staff seats of a franchisor: invitations,
// roles, deactivation and the public token accept flow.
package team

import (
	"fddhub/internal/auth"
	"fddhub/internal/events"
	apphttp "fddhub/internal/http"
	"fddhub/internal/team/handler"
	"fddhub/internal/team/repository"
	"fddhub/internal/team/service"
	"fddhub/platform/config"
	"fddhub/platform/logger"
	"fddhub/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
}

func NewModule(pool *pgxpool.Pool, accounts auth.Accounts, cfg config.HubConfig, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), accounts, cfg, eventBus, log)
	return &Module{handler: handler.New(svc, val)}
}

func (m *Module) Name() string {
	return "team"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	accept := ctx.V1.Group("/team/accept")
	accept.Use(ctx.AuthRateLimiter.RateLimit())
	accept.GET("", m.handler.Resolve)
	accept.POST("", m.handler.Accept)

	team := ctx.Franchisor.Group("/team")
	team.GET("", m.handler.List)
	team.POST("", m.handler.Invite)
	team.PUT("/:id", m.handler.Update)
	team.DELETE("/:id", m.handler.Deactivate)
	team.POST("/:id/resend", m.handler.Resend)
}

var _ apphttp.Module = (*Module)(nil)
