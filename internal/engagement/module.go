// Package engagement aggregates buyers' FDD viewing activity into one
// record per buyer and franchise.
package engagement

import (
	"fddhub/internal/engagement/handler"
	"fddhub/internal/engagement/repository"
	"fddhub/internal/engagement/service"
	"fddhub/internal/events"
	apphttp "fddhub/internal/http"
	"fddhub/platform/httpkit"
	"fddhub/platform/logger"
	"fddhub/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), eventBus, log)
	return &Module{handler: handler.New(svc, val), service: svc}
}

func (m *Module) Name() string {
	return "engagement"
}

// Service is used by the advisor to record asked questions.
func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/fdd/engagement", httpkit.OptionalAuth(ctx.Config), m.handler.Track)
	ctx.Protected.GET("/fdd/engagement", m.handler.Get)
}

var _ apphttp.Module = (*Module)(nil)
