package handler

import (
	"errors"
	"net/http"

	"fddhub/internal/invitations/repository"
	"fddhub/internal/invitations/service"
	"fddhub/internal/invitations/transport"
	"fddhub/platform/apperr"
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
	msgInvalidRequest      = "invalid request"
	msgValidationFailed    = "validation failed"
	msgTenantNotSet        = "tenant not set"
	msgInvalidInvitationID = "invalid invitation id"
	msgInvalidFranchiseID  = "invalid franchise id"
	msgUnexpected          = "Unexpected error occurred"
)

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// POST /api/v1/hub/invitations
func (h *Handler) Create(c *gin.Context) {
	tenantID, ok := mustGetTenantID(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)

	var req transport.CreateInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	franchiseID, err := uuid.Parse(req.FranchiseID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidFranchiseID, nil)
		return
	}

	created, err := h.svc.Create(c.Request.Context(), service.CreateParams{
		FranchisorID:   tenantID,
		ActorID:        identity.UserID(),
		FranchiseID:    franchiseID,
		LeadEmail:      req.LeadEmail,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		LeadPhone:      req.LeadPhone,
		Message:        req.InvitationMessage,
		Source:         req.Source,
		City:           req.City,
		State:          req.State,
		Timeline:       req.Timeline,
		TargetLocation: req.TargetLocation,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, transport.CreateInvitationResponse{
		Invitation:     toInvitationResponse(created.Invitation),
		InvitationLink: created.Link,
	})
}

// GET /api/v1/hub/invitations
func (h *Handler) List(c *gin.Context) {
	tenantID, ok := mustGetTenantID(c)
	if !ok {
		return
	}

	items, err := h.svc.List(c.Request.Context(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := make([]transport.InvitationResponse, 0, len(items))
	for _, inv := range items {
		resp = append(resp, toInvitationResponse(inv))
	}
	httpkit.OK(c, gin.H{"invitations": resp})
}

// GET /api/v1/hub/invitations/:id/qr
func (h *Handler) QRCode(c *gin.Context) {
	tenantID, ok := mustGetTenantID(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidInvitationID, nil)
		return
	}

	png, err := h.svc.QRCode(c.Request.Context(), tenantID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// GET /api/v1/hub/invite/:token
func (h *Handler) Resolve(c *gin.Context) {
	view, err := h.svc.Resolve(c.Request.Context(), c.Param("token"))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.PublicInvitationResponse{Invitation: transport.PublicInvitation{
		ID:                view.ID.String(),
		LeadEmail:         view.LeadEmail,
		LeadName:          view.LeadName,
		InvitationMessage: view.Message,
		Status:            view.Status,
		ExpiresAt:         view.ExpiresAt,
		Franchise: transport.FranchiseSummary{
			ID:      view.FranchiseID.String(),
			Name:    view.FranchiseName,
			Slug:    view.FranchiseSlug,
			LogoURL: view.FranchiseLogoURL,
		},
		Franchisor: transport.FranchisorSummary{
			CompanyName: view.CompanyName,
			LogoURL:     view.FranchisorLogoURL,
		},
	}})
}

// POST /api/v1/hub/invite/:token/accept
func (h *Handler) Accept(c *gin.Context) {
	var req transport.AcceptInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Accept(c.Request.Context(), c.Param("token"), service.AcceptParams{
		Password: req.Password,
		FullName: req.FullName,
		Phone:    req.Phone,
	})
	if err != nil {
		writeAcceptFailure(c, err)
		return
	}

	httpkit.OK(c, transport.AcceptInvitationResponse{
		Success:     true,
		BuyerID:     result.BuyerID.String(),
		FranchiseID: result.FranchiseID.String(),
	})
}

// writeAcceptFailure renders {success:false, error, step}. Typed failures keep
// their message and status; anything else is reported generically.
func writeAcceptFailure(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := msgUnexpected

	var domainErr *apperr.Error
	if errors.As(err, &domainErr) {
		status = domainErr.HTTPStatus()
		if domainErr.Kind != apperr.KindInternal {
			message = domainErr.Message
		}
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}

	c.JSON(status, transport.AcceptInvitationResponse{
		Success: false,
		Error:   message,
		Step:    service.StepOf(err),
	})
}

func mustGetTenantID(c *gin.Context) (uuid.UUID, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return uuid.UUID{}, false
	}
	tenantID := identity.TenantID()
	if tenantID == nil {
		httpkit.Error(c, http.StatusBadRequest, msgTenantNotSet, nil)
		return uuid.UUID{}, false
	}
	return *tenantID, true
}

func toInvitationResponse(inv repository.Invitation) transport.InvitationResponse {
	return transport.InvitationResponse{
		ID:                inv.ID.String(),
		FranchisorID:      inv.FranchisorID.String(),
		FranchiseID:       inv.FranchiseID.String(),
		LeadEmail:         inv.LeadEmail,
		LeadName:          inv.LeadName,
		LeadPhone:         inv.LeadPhone,
		InvitationToken:   inv.Token,
		InvitationMessage: inv.Message,
		Source:            inv.Source,
		City:              inv.City,
		State:             inv.State,
		Timeline:          inv.Timeline,
		TargetLocation:    inv.TargetLocation,
		Status:            inv.Status,
		SentAt:            inv.SentAt,
		ViewedAt:          inv.ViewedAt,
		SignedUpAt:        inv.SignedUpAt,
		ExpiresAt:         inv.ExpiresAt,
		BuyerID:           uuidString(inv.BuyerID),
		StageID:           uuidString(inv.StageID),
		StageChangedAt:    inv.StageChangedAt,
		CreatedAt:         inv.CreatedAt,
	}
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
