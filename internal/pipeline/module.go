// Package pipeline manages franchisor pipeline stages and moves leads
// between them.
package pipeline

import (
	"fddhub/internal/events"
	apphttp "fddhub/internal/http"
	"fddhub/internal/pipeline/handler"
	"fddhub/internal/pipeline/repository"
	"fddhub/internal/pipeline/service"
	"fddhub/platform/httpkit"
	"fddhub/platform/logger"
	"fddhub/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

const msgStageManagers = "Only franchisor owners and admins can manage stages"

type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), eventBus, log)
	return &Module{handler: handler.New(svc, val), service: svc}
}

func (m *Module) Name() string {
	return "pipeline"
}

// Service exposes stage lookups to the invitations context.
func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	stages := ctx.Franchisor.Group("/pipeline-stages")
	stages.GET("", m.handler.ListStages)

	managers := stages.Group("")
	managers.Use(httpkit.RequireMemberRole(msgStageManagers, "owner", "admin"))
	managers.POST("", m.handler.CreateStage)
	managers.POST("/reorder", m.handler.ReorderStages)
	managers.PATCH("/:id", m.handler.UpdateStage)
	managers.DELETE("/:id", m.handler.DeleteStage)

	ctx.Franchisor.PATCH("/leads/:id/stage",
		httpkit.RequireMemberRole("Viewers cannot move leads", "owner", "admin", "recruiter"),
		m.handler.ChangeStage)
	ctx.Franchisor.GET("/leads/:id/history", m.handler.ListHistory)
}

var _ apphttp.Module = (*Module)(nil)
