// Package advisor answers buyer questions about an FDD with an LLM,
// grounded on the Items relevant to the question.
package advisor

import (
	"context"
	"fmt"

	"fddhub/internal/advisor/fdd"
	"fddhub/internal/advisor/handler"
	"fddhub/internal/advisor/service"
	apphttp "fddhub/internal/http"
	"fddhub/platform/ai/openaichat"
	"fddhub/platform/config"
	"fddhub/platform/httpkit"
	"fddhub/platform/logger"
	"fddhub/platform/validator"

	"google.golang.org/adk/model"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/genai"
)

const (
	providerGemini = "gemini"
	providerOpenAI = "openai"

	defaultGeminiModel = "gemini-2.5-flash"
	defaultOpenAIModel = "gpt-4o-mini"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule builds the advisor. A missing API key leaves the module
// registered but answering 503.
func NewModule(ctx context.Context, cfg config.AdvisorConfig, recorder service.QuestionRecorder, val *validator.Validator, log *logger.Logger) (*Module, error) {
	topics, err := fdd.LoadTopics()
	if err != nil {
		return nil, err
	}

	var llm model.LLM
	if cfg.IsAdvisorEnabled() {
		llm, err = newLLM(ctx, cfg)
		if err != nil {
			return nil, err
		}
		log.Info("fdd advisor enabled", "provider", cfg.GetAdvisorProvider(), "model", llm.Name())
	} else {
		log.Warn("fdd advisor disabled: no API key configured", "provider", cfg.GetAdvisorProvider())
	}

	svc := service.New(llm, topics, recorder, log)
	return &Module{handler: handler.New(svc, val), service: svc}, nil
}

func newLLM(ctx context.Context, cfg config.AdvisorConfig) (model.LLM, error) {
	name := cfg.GetAdvisorModel()
	switch cfg.GetAdvisorProvider() {
	case providerOpenAI:
		if name == "" {
			name = defaultOpenAIModel
		}
		return openaichat.NewModel(openaichat.Config{
			APIKey:  cfg.GetOpenAIAPIKey(),
			BaseURL: cfg.GetOpenAIBaseURL(),
			Model:   name,
		}), nil
	case providerGemini, "":
		if name == "" {
			name = defaultGeminiModel
		}
		llm, err := gemini.NewModel(ctx, name, &genai.ClientConfig{
			APIKey:  cfg.GetGeminiAPIKey(),
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("advisor: create gemini model: %w", err)
		}
		return llm, nil
	default:
		return nil, fmt.Errorf("advisor: unsupported provider %q", cfg.GetAdvisorProvider())
	}
}

func (m *Module) Name() string {
	return "advisor"
}

func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/fdd/chat", ctx.AuthRateLimiter.RateLimit(), httpkit.OptionalAuth(ctx.Config), m.handler.Chat)
}

var _ apphttp.Module = (*Module)(nil)
