package handler

import (
	"net/http"

	"fddhub/internal/franchisors/repository"
	"fddhub/internal/franchisors/transport"
	"fddhub/platform/httpkit"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	repo *repository.Repository
}

const msgTenantNotSet = "tenant not set"

func New(repo *repository.Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/franchisor/me", h.GetMe)
}

// GetMe returns the caller's franchisor with its franchises.
// GET /api/v1/franchisor/me
func (h *Handler) GetMe(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID := identity.TenantID()
	if tenantID == nil {
		httpkit.Error(c, http.StatusBadRequest, msgTenantNotSet, nil)
		return
	}

	profile, err := h.repo.GetProfile(c.Request.Context(), *tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	franchises, err := h.repo.ListFranchises(c.Request.Context(), *tenantID)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.ProfileResponse{
		ID:          profile.ID.String(),
		CompanyName: profile.CompanyName,
		LogoURL:     profile.LogoURL,
		Role:        identity.MemberRole(),
		Franchises:  make([]transport.FranchiseResponse, 0, len(franchises)),
	}
	for _, f := range franchises {
		resp.Franchises = append(resp.Franchises, transport.FranchiseResponse{
			ID:      f.ID.String(),
			Name:    f.Name,
			Slug:    f.Slug,
			LogoURL: f.LogoURL,
		})
	}
	httpkit.OK(c, resp)
}
