package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"fddhub/internal/advisor/service"
	"fddhub/internal/advisor/transport"
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
	msgNotConfigured    = "AI advisor is not configured"
)

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Chat answers a question about a loaded FDD. Authentication is optional;
// signed-in buyers get the question added to their engagement record.
// POST /api/v1/fdd/chat
func (h *Handler) Chat(c *gin.Context) {
	if !h.svc.Enabled() {
		httpkit.Error(c, http.StatusServiceUnavailable, msgNotConfigured, nil)
		return
	}

	var req transport.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	q := service.Question{
		FranchiseName:    req.FranchiseName,
		Question:         req.Question,
		FDDText:          req.FDDTextContent,
		FranchiseContext: req.FranchiseContext,
		PageMapping:      parsePageMapping(req.FDDPageMapping),
	}
	if identity := httpkit.GetIdentity(c); identity != nil && identity.IsAuthenticated() {
		userID := identity.UserID()
		q.UserID = &userID
	}
	if id, err := uuid.Parse(req.FranchiseID); err == nil {
		q.FranchiseID = &id
	}

	answer, err := h.svc.Ask(c.Request.Context(), q)
	if errors.Is(err, service.ErrDisabled) {
		httpkit.Error(c, http.StatusServiceUnavailable, msgNotConfigured, nil)
		return
	}
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.ChatResponse{Answer: answer.Answer, RelevantItems: answer.RelevantItems}
	if answer.Source != nil {
		resp.Source = &transport.SourceResponse{Item: answer.Source.Item, Page: answer.Source.Page}
	}
	httpkit.OK(c, resp)
}

// parsePageMapping accepts keys like "Item 6" or "6".
func parsePageMapping(raw map[string]int) map[int]int {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[int]int, len(raw))
	for key, page := range raw {
		key = strings.TrimSpace(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(key)), "item"))
		item, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		out[item] = page
	}
	return out
}
