// Package franchisors owns franchisor profiles, their franchises and the
// membership lookup every franchisor-scoped route depends on.
package franchisors

import (
	"fddhub/internal/franchisors/handler"
	"fddhub/internal/franchisors/repository"
	apphttp "fddhub/internal/http"
	"fddhub/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	repo    *repository.Repository
	log     *logger.Logger
}

func NewModule(pool *pgxpool.Pool, log *logger.Logger) *Module {
	repo := repository.New(pool)
	return &Module{handler: handler.New(repo), repo: repo, log: log}
}

func (m *Module) Name() string {
	return "franchisors"
}

// Repository is shared with contexts that need franchise ownership checks.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// Middleware returns the membership middleware for the router's franchisor group.
func (m *Module) Middleware() gin.HandlerFunc {
	return RequireMembership(m.repo, m.log)
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Franchisor)
}

var _ apphttp.Module = (*Module)(nil)
