package webhook

import (
	"net/http"

	"fddhub/platform/httpkit"

	"github.com/gin-gonic/gin"
)

const errInvalidRequest = "invalid request body"

// Handler handles webhook HTTP requests.
type Handler struct {
	service *Service
}

// NewHandler creates a new webhook handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleESign processes e-signature provider events.
// POST /api/v1/webhook/esign
// Authenticated via X-Webhook-Secret header (set by middleware).
func (h *Handler) HandleESign(c *gin.Context) {
	var payload ESignPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, nil)
		return
	}

	result, err := h.service.ProcessESign(c.Request.Context(), payload)
	if httpkit.HandleError(c, err) {
		return
	}

	if !result.Success {
		httpkit.OK(c, gin.H{"received": true})
		return
	}
	httpkit.OK(c, gin.H{"success": true, "accessId": result.AccessID})
}
