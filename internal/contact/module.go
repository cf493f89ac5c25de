// Package contact lets a franchisor's team email a lead directly and keeps
// a log of those messages on the lead.
package contact

import (
	"fddhub/internal/email"
	apphttp "fddhub/internal/http"
	"fddhub/platform/logger"
	"fddhub/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *Handler
}

func NewModule(pool *pgxpool.Pool, sender email.Sender, val *validator.Validator, log *logger.Logger) *Module {
	svc := NewService(NewRepository(pool), sender, log)
	return &Module{handler: NewHandler(svc, val)}
}

func (m *Module) Name() string {
	return "contact"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Franchisor.POST("/hub/contact", ctx.AuthRateLimiter.RateLimit(), m.handler.Send)
}

var _ apphttp.Module = (*Module)(nil)
