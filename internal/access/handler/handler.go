package handler

import (
	"net/http"

	"fddhub/internal/access/repository"
	"fddhub/internal/access/service"
	"fddhub/internal/access/transport"
	"fddhub/platform/httpkit"
	"fddhub/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgFranchiseID      = "franchiseId or franchiseSlug is required"
)

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// POST /api/v1/fdd-access/consent
func (h *Handler) Consent(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.ConsentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	grant, err := h.svc.GiveConsent(c.Request.Context(), identity.UserID(), franchiseRef(req.FranchiseID, req.FranchiseSlug), clientOf(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ConsentResponse{Success: true, Access: toAccessResponse(grant)})
}

// POST /api/v1/fdd-access/item23
func (h *Handler) SignItem23(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.Item23Request
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	ctx := c.Request.Context()
	grant, key, err := h.svc.SignItem23(ctx, identity.UserID(), franchiseRef(req.FranchiseID, req.FranchiseSlug), req.SignatureDataURL, clientOf(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.Item23Response{
		Success:      true,
		SignatureURL: h.svc.SignatureURL(ctx, key),
		Access:       toAccessResponse(grant),
	})
}

// GET /api/v1/fdd-access/compliance?franchiseId=&franchiseSlug=
func (h *Handler) Compliance(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	rawID, slug := c.Query("franchiseId"), c.Query("franchiseSlug")
	if rawID == "" && slug == "" {
		httpkit.Error(c, http.StatusBadRequest, msgFranchiseID, nil)
		return
	}
	if rawID != "" {
		if _, err := uuid.Parse(rawID); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgFranchiseID, nil)
			return
		}
	}

	status, err := h.svc.Compliance(c.Request.Context(), identity.UserID(), franchiseRef(rawID, slug))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ComplianceResponse{
		ReceiptSignedAt: status.ReceiptSignedAt,
		EligibleAt:      status.EligibleAt,
		DaysRemaining:   status.DaysRemaining,
		SalesEligible:   status.SalesEligible,
	})
}

func franchiseRef(rawID, slug string) service.FranchiseRef {
	ref := service.FranchiseRef{Slug: slug}
	if id, err := uuid.Parse(rawID); err == nil {
		ref.ID = &id
	}
	return ref
}

func clientOf(c *gin.Context) service.Client {
	return service.Client{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

func toAccessResponse(g repository.Grant) transport.AccessResponse {
	return transport.AccessResponse{
		ID:              g.ID.String(),
		BuyerID:         g.BuyerID.String(),
		FranchiseID:     g.FranchiseID.String(),
		Status:          g.Status,
		GrantedVia:      g.GrantedVia,
		ConsentGivenAt:  g.ConsentGivenAt,
		Item23SignedAt:  g.Item23SignedAt,
		ReceiptSignedAt: g.ReceiptSignedAt,
	}
}
