package contact

import (
	"net/http"

	"fddhub/platform/httpkit"
	"fddhub/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SendRequest mirrors the contact form. Required fields are checked by the
// service so every omission gets the same message.
type SendRequest struct {
	LeadID   string `json:"leadId" validate:"omitempty,uuid"`
	To       string `json:"to" validate:"omitempty,email"`
	LeadName string `json:"leadName" validate:"max=200"`
	Subject  string `json:"subject" validate:"max=300"`
	Message  string `json:"message" validate:"max=10000"`
}

type SendResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type Handler struct {
	svc *Service
	val *validator.Validator
}

func NewHandler(svc *Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// POST /api/v1/hub/contact
func (h *Handler) Send(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID := identity.TenantID()
	if tenantID == nil {
		httpkit.Error(c, http.StatusForbidden, "No franchisor profile found", nil)
		return
	}

	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	msg := Message{To: req.To, LeadName: req.LeadName, Subject: req.Subject, Body: req.Message}
	if req.LeadID != "" {
		id, err := uuid.Parse(req.LeadID)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid lead id", nil)
			return
		}
		msg.LeadID = &id
	}

	err := h.svc.Send(c.Request.Context(), Caller{UserID: identity.UserID(), FranchisorID: *tenantID}, msg)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, SendResponse{Success: true, Message: "Email sent to " + msg.LeadName})
}
