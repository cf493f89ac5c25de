// Package leads serves the franchisor's lead list and lead detail, each lead
// carrying its quality score.
package leads

import (
	apphttp "fddhub/internal/http"
	"fddhub/internal/leads/handler"
	"fddhub/internal/leads/repository"
	"fddhub/internal/leads/service"
	"fddhub/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
}

func NewModule(pool *pgxpool.Pool, history service.HistoryReader, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), history, log)
	return &Module{handler: handler.New(svc)}
}

func (m *Module) Name() string {
	return "leads"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Franchisor.GET("/leads", m.handler.List)
	ctx.Franchisor.GET("/leads/:id", m.handler.Get)
}

var _ apphttp.Module = (*Module)(nil)
