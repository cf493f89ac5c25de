// Package invitations sends lead invitations, resolves the public links and
// runs the buyer signup that consumes them.
package invitations

import (
	"fddhub/internal/auth"
	"fddhub/internal/events"
	apphttp "fddhub/internal/http"
	"fddhub/internal/invitations/handler"
	"fddhub/internal/invitations/repository"
	"fddhub/internal/invitations/service"
	"fddhub/platform/config"
	"fddhub/platform/httpkit"
	"fddhub/platform/logger"
	"fddhub/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

const msgInviteSenders = "Viewers cannot send invitations"

type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(
	pool *pgxpool.Pool,
	franchises service.Franchises,
	stages service.StageDefaults,
	accounts auth.Accounts,
	cfg config.HubConfig,
	eventBus events.Bus,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	svc := service.New(repository.New(pool), franchises, stages, accounts, cfg, eventBus, log)
	return &Module{handler: handler.New(svc, val), service: svc}
}

func (m *Module) Name() string {
	return "invitations"
}

// Service is used by the scheduler's expiry sweep.
func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	hub := ctx.Franchisor.Group("/hub/invitations")
	hub.GET("", m.handler.List)
	hub.GET("/:id/qr", m.handler.QRCode)
	hub.POST("", httpkit.RequireMemberRole(msgInviteSenders, "owner", "admin", "recruiter"), m.handler.Create)

	invite := ctx.V1.Group("/hub/invite")
	invite.Use(ctx.AuthRateLimiter.RateLimit())
	invite.GET("/:token", m.handler.Resolve)
	invite.POST("/:token/accept", m.handler.Accept)
}

var _ apphttp.Module = (*Module)(nil)
