package handler

import (
	"context"
	"net/http"
	"strconv"

	"fddhub/internal/notification/eligibility"
	"fddhub/internal/notification/inapp"
	"fddhub/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidID           = "invalid id"
	msgInvalidFranchisorID = "invalid franchisor_id"
	msgTenantNotSet        = "tenant not set"
)

// Scanner runs the sales-eligibility check.
type Scanner interface {
	Scan(ctx context.Context, franchisorID *uuid.UUID) (eligibility.Result, error)
}

type HTTPHandler struct {
	svc     *inapp.Service
	scanner Scanner
}

func NewHTTPHandler(svc *inapp.Service, scanner Scanner) *HTTPHandler {
	return &HTTPHandler{svc: svc, scanner: scanner}
}

func (h *HTTPHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/unread", h.CountUnread)
	rg.POST("/:id/read", h.MarkRead)
	rg.POST("/read-all", h.MarkAllRead)
	rg.DELETE("/:id", h.Delete)
}

type checkResponse struct {
	Success  bool     `json:"success"`
	Message  string   `json:"message"`
	Checked  int      `json:"checked"`
	Notified int      `json:"notified"`
	Errors   []string `json:"errors,omitempty"`
}

type checkRequest struct {
	FranchisorID string `json:"franchisor_id"`
}

// GET /api/v1/notifications
func (h *HTTPHandler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	items, total, err := h.svc.List(c.Request.Context(), identity.UserID(), page, limit)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{
		"items": items,
		"total": total,
		"page":  page,
	})
}

// GET /api/v1/notifications/unread
func (h *HTTPHandler) CountUnread(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	count, err := h.svc.CountUnread(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"count": count})
}

// POST /api/v1/notifications/:id/read
func (h *HTTPHandler) MarkRead(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	if err := h.svc.MarkRead(c.Request.Context(), identity.UserID(), id); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"success": true})
}

// POST /api/v1/notifications/read-all
func (h *HTTPHandler) MarkAllRead(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	updated, err := h.svc.MarkAllRead(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"success": true, "updated": updated})
}

// DELETE /api/v1/notifications/:id
func (h *HTTPHandler) Delete(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	if err := h.svc.Delete(c.Request.Context(), identity.UserID(), id); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"success": true})
}

// CheckSalesEligible scans the caller's own franchisor.
// GET|POST /api/v1/notifications/check-sales-eligible
func (h *HTTPHandler) CheckSalesEligible(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID := identity.TenantID()
	if tenantID == nil {
		httpkit.Error(c, http.StatusBadRequest, msgTenantNotSet, nil)
		return
	}

	h.runScan(c, tenantID)
}

// AdminCheckSalesEligible scans every franchisor, or the one named by
// franchisor_id in the query string or JSON body.
// GET|POST /api/v1/admin/notifications/check-sales-eligible
func (h *HTTPHandler) AdminCheckSalesEligible(c *gin.Context) {
	raw := c.Query("franchisor_id")
	if raw == "" && c.Request.Method == http.MethodPost {
		var req checkRequest
		if err := c.ShouldBindJSON(&req); err == nil {
			raw = req.FranchisorID
		}
	}

	var franchisorID *uuid.UUID
	if raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidFranchisorID, nil)
			return
		}
		franchisorID = &id
	}

	h.runScan(c, franchisorID)
}

func (h *HTTPHandler) runScan(c *gin.Context, franchisorID *uuid.UUID) {
	result, err := h.scanner.Scan(c.Request.Context(), franchisorID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, checkResponse{
		Success:  true,
		Message:  result.Message(),
		Checked:  result.Checked,
		Notified: result.Notified,
		Errors:   result.Errors,
	})
}
