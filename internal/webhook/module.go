// Package webhook receives callbacks from the e-signature provider that
// collects the buyer's Item 23 receipt.
package webhook

import (
	"fddhub/internal/adapters/storage"
	apphttp "fddhub/internal/http"
	"fddhub/platform/config"
	"fddhub/platform/logger"
)

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	secret  string
}

// NewModule creates and initializes the webhook module with all its dependencies.
func NewModule(recorder ReceiptRecorder, store storage.ObjectStore, receiptsBucket string, cfg config.ESignConfig, log *logger.Logger) *Module {
	service := NewService(recorder, store, receiptsBucket, NewHTTPFetcher(), log)
	return &Module{
		handler: NewHandler(service),
		secret:  cfg.GetESignWebhookSecret(),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts webhook routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public endpoint, shared-secret auth, no JWT
	ctx.V1.POST("/webhook/esign", SecretAuthMiddleware(m.secret), m.handler.HandleESign)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
