// Package access owns the buyer's FDD access grant: e-delivery consent, the
// Item 23 signature and the receipt clock that gates sales conversations.
package access

import (
	"fddhub/internal/access/handler"
	"fddhub/internal/access/repository"
	"fddhub/internal/access/service"
	"fddhub/internal/adapters/storage"
	"fddhub/internal/events"
	apphttp "fddhub/internal/http"
	"fddhub/platform/logger"
	"fddhub/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, store storage.ObjectStore, signaturesBucket string, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), store, signaturesBucket, eventBus, log)
	return &Module{handler: handler.New(svc, val), service: svc}
}

func (m *Module) Name() string {
	return "access"
}

// Service records signed receipts for the e-signature webhook.
func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	g := ctx.Protected.Group("/fdd-access")
	g.POST("/consent", m.handler.Consent)
	g.POST("/item23", m.handler.SignItem23)
	g.GET("/compliance", m.handler.Compliance)
}

var _ apphttp.Module = (*Module)(nil)
