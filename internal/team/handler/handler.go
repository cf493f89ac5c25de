package handler

import (
	"fmt"
	"net/http"

	"fddhub/internal/team/repository"
	"fddhub/internal/team/service"
	"fddhub/internal/team/transport"
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
	msgTenantNotSet     = "tenant not set"
	msgInvalidMemberID  = "invalid team member id"
	defaultProductName  = "FDDHub"
	acceptRedirect      = "/dashboard"
)

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// GET /api/v1/team
func (h *Handler) List(c *gin.Context) {
	caller, ok := mustGetCaller(c)
	if !ok {
		return
	}

	members, err := h.svc.List(c.Request.Context(), caller)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.ListResponse{
		TeamMembers:  make([]transport.MemberResponse, 0, len(members)),
		FranchisorID: caller.FranchisorID.String(),
	}
	for _, m := range members {
		resp.TeamMembers = append(resp.TeamMembers, toMemberResponse(m))
	}
	httpkit.OK(c, resp)
}

// POST /api/v1/team
func (h *Handler) Invite(c *gin.Context) {
	caller, ok := mustGetCaller(c)
	if !ok {
		return
	}

	var req transport.InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	invited, err := h.svc.Invite(c.Request.Context(), caller, service.InviteParams{
		Email:    req.Email,
		FullName: req.FullName,
		Role:     req.Role,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	message := "Invitation sent to " + invited.Member.Email
	if invited.Reactivated {
		message = "Team member reactivated and invitation sent"
	}
	httpkit.Created(c, transport.InviteResponse{
		Success:        true,
		TeamMember:     toMemberResponse(invited.Member),
		Message:        message,
		InvitationSent: true,
	})
}

// PUT /api/v1/team/:id
func (h *Handler) Update(c *gin.Context) {
	caller, ok := mustGetCaller(c)
	if !ok {
		return
	}
	id, ok := memberID(c)
	if !ok {
		return
	}

	var req transport.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	member, err := h.svc.Update(c.Request.Context(), caller, id, repository.UpdateParams{
		Role:                  req.Role,
		IsActive:              req.IsActive,
		ReceivesNotifications: req.ReceivesNotifications,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.MemberUpdatedResponse{Success: true, TeamMember: toMemberResponse(member)})
}

// DELETE /api/v1/team/:id
func (h *Handler) Deactivate(c *gin.Context) {
	caller, ok := mustGetCaller(c)
	if !ok {
		return
	}
	id, ok := memberID(c)
	if !ok {
		return
	}

	member, err := h.svc.Deactivate(c.Request.Context(), caller, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.MessageResponse{
		Success: true,
		Message: member.FullName + " has been removed from the team",
	})
}

// POST /api/v1/team/:id/resend
func (h *Handler) Resend(c *gin.Context) {
	caller, ok := mustGetCaller(c)
	if !ok {
		return
	}
	id, ok := memberID(c)
	if !ok {
		return
	}

	member, err := h.svc.Resend(c.Request.Context(), caller, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.MessageResponse{
		Success:        true,
		Message:        "Invitation resent to " + member.Email,
		InvitationSent: true,
	})
}

// GET /api/v1/team/accept?token=
func (h *Handler) Resolve(c *gin.Context) {
	res, err := h.svc.Resolve(c.Request.Context(), c.Query("token"))
	if httpkit.HandleError(c, err) {
		return
	}
	if !res.Valid {
		httpkit.OK(c, transport.ResolveResponse{
			Valid:           false,
			Error:           res.Reason,
			AlreadyAccepted: res.AlreadyAccepted,
		})
		return
	}

	inv := res.Invite
	httpkit.OK(c, transport.ResolveResponse{
		Valid: true,
		Invitation: &transport.InvitationSummary{
			Email:     inv.Email,
			FullName:  inv.FullName,
			Role:      inv.Role,
			InvitedAt: inv.InvitedAt,
		},
		Franchisor: &transport.FranchisorSummary{
			CompanyName: inv.CompanyName,
			LogoURL:     inv.LogoURL,
		},
		InvitedBy: inv.InvitedByName,
	})
}

// POST /api/v1/team/accept
func (h *Handler) Accept(c *gin.Context) {
	var req transport.AcceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	accepted, err := h.svc.Accept(c.Request.Context(), req.Token, req.Password)
	if httpkit.HandleError(c, err) {
		return
	}

	welcome := accepted.CompanyName
	if welcome == "" {
		welcome = defaultProductName
	}
	m := accepted.Member
	httpkit.OK(c, transport.AcceptResponse{
		Success:  true,
		Message:  fmt.Sprintf("Welcome to %s!", welcome),
		Redirect: acceptRedirect,
		User: transport.AcceptedUser{
			Email:    m.Email,
			FullName: m.FullName,
			Role:     m.Role,
		},
		Franchisor: transport.FranchisorSummary{
			ID:          m.FranchisorID.String(),
			CompanyName: accepted.CompanyName,
		},
	})
}

func mustGetCaller(c *gin.Context) (service.Caller, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return service.Caller{}, false
	}
	tenantID := identity.TenantID()
	if tenantID == nil {
		httpkit.Error(c, http.StatusBadRequest, msgTenantNotSet, nil)
		return service.Caller{}, false
	}
	return service.Caller{
		UserID:       identity.UserID(),
		FranchisorID: *tenantID,
		Role:         identity.MemberRole(),
	}, true
}

func memberID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidMemberID, nil)
		return uuid.UUID{}, false
	}
	return id, true
}

func toMemberResponse(m repository.Member) transport.MemberResponse {
	return transport.MemberResponse{
		ID:                    m.ID.String(),
		Email:                 m.Email,
		FullName:              m.FullName,
		Role:                  m.Role,
		IsActive:              m.IsActive,
		Status:                m.Status(),
		InvitedAt:             m.InvitedAt,
		AcceptedAt:            m.AcceptedAt,
		ReceivesNotifications: m.ReceivesNotifications,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
}
