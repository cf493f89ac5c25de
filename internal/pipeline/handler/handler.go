package handler

import (
	"net/http"

	"fddhub/internal/pipeline/repository"
	"fddhub/internal/pipeline/service"
	"fddhub/internal/pipeline/transport"
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
	msgInvalidStageID   = "invalid stage id"
	msgInvalidLeadID    = "invalid lead id"
)

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// GET /api/v1/pipeline-stages
func (h *Handler) ListStages(c *gin.Context) {
	tenantID, ok := mustGetTenantID(c)
	if !ok {
		return
	}

	stages, err := h.svc.ListStages(c.Request.Context(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := make([]transport.StageResponse, 0, len(stages))
	for _, s := range stages {
		resp = append(resp, toStageResponse(s))
	}
	httpkit.OK(c, resp)
}

// POST /api/v1/pipeline-stages
func (h *Handler) CreateStage(c *gin.Context) {
	tenantID, ok := mustGetTenantID(c)
	if !ok {
		return
	}

	var req transport.CreateStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	stage, err := h.svc.CreateStage(c.Request.Context(), repository.CreateStageParams{
		FranchisorID: tenantID,
		Name:         req.Name,
		Description:  req.Description,
		Color:        req.Color,
		IsDefault:    req.IsDefault,
		IsClosedWon:  req.IsClosedWon,
		IsClosedLost: req.IsClosedLost,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, toStageResponse(stage))
}

// PATCH /api/v1/pipeline-stages/:id
func (h *Handler) UpdateStage(c *gin.Context) {
	tenantID, ok := mustGetTenantID(c)
	if !ok {
		return
	}
	stageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidStageID, nil)
		return
	}

	var req transport.UpdateStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	stage, err := h.svc.UpdateStage(c.Request.Context(), tenantID, stageID, repository.UpdateStageParams{
		Name:         req.Name,
		Description:  req.Description,
		Color:        req.Color,
		IsDefault:    req.IsDefault,
		IsClosedWon:  req.IsClosedWon,
		IsClosedLost: req.IsClosedLost,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toStageResponse(stage))
}

// DELETE /api/v1/pipeline-stages/:id
func (h *Handler) DeleteStage(c *gin.Context) {
	tenantID, ok := mustGetTenantID(c)
	if !ok {
		return
	}
	stageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidStageID, nil)
		return
	}

	if httpkit.HandleError(c, h.svc.DeleteStage(c.Request.Context(), tenantID, stageID)) {
		return
	}
	httpkit.OK(c, transport.SuccessResponse{Success: true})
}

// POST /api/v1/pipeline-stages/reorder
func (h *Handler) ReorderStages(c *gin.Context) {
	tenantID, ok := mustGetTenantID(c)
	if !ok {
		return
	}

	var req transport.ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	ids := make([]uuid.UUID, 0, len(req.StageIDs))
	for _, raw := range req.StageIDs {
		ids = append(ids, uuid.MustParse(raw))
	}

	stages, err := h.svc.ReorderStages(c.Request.Context(), tenantID, ids)
	if httpkit.HandleError(c, err) {
		return
	}
	resp := make([]transport.StageResponse, 0, len(stages))
	for _, s := range stages {
		resp = append(resp, toStageResponse(s))
	}
	httpkit.OK(c, resp)
}

// ChangeStage moves a lead through the pipeline.
// PATCH /api/v1/leads/:id/stage
func (h *Handler) ChangeStage(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := mustGetTenantID(c)
	if !ok {
		return
	}
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	var req transport.ChangeStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	res, err := h.svc.ChangeStage(c.Request.Context(), tenantID, identity.UserID(), leadID, uuid.MustParse(req.StageID), req.Notes)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ChangeStageResponse{
		Lead:    toLeadResponse(res.Lead),
		Stage:   toStageResponse(res.Stage),
		Message: res.Message,
	})
}

// GET /api/v1/leads/:id/history
func (h *Handler) ListHistory(c *gin.Context) {
	tenantID, ok := mustGetTenantID(c)
	if !ok {
		return
	}
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	entries, err := h.svc.ListHistory(c.Request.Context(), tenantID, leadID)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := make([]transport.HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, transport.HistoryEntryResponse{
			ID:                  e.ID.String(),
			FromStageID:         uuidString(e.FromStageID),
			FromStageName:       e.FromStageName,
			ToStageID:           uuidString(e.ToStageID),
			ToStageName:         e.ToStageName,
			ChangedBy:           uuidString(e.ChangedBy),
			Notes:               e.Notes,
			TimeInPreviousStage: e.TimeInPreviousStage,
			CreatedAt:           e.CreatedAt,
		})
	}
	httpkit.OK(c, resp)
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

func toStageResponse(s repository.Stage) transport.StageResponse {
	return transport.StageResponse{
		ID:           s.ID.String(),
		FranchisorID: s.FranchisorID.String(),
		Name:         s.Name,
		Description:  s.Description,
		Color:        s.Color,
		Position:     s.Position,
		IsDefault:    s.IsDefault,
		IsClosedWon:  s.IsClosedWon,
		IsClosedLost: s.IsClosedLost,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

func toLeadResponse(l repository.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:             l.ID.String(),
		FranchiseID:    l.FranchiseID.String(),
		LeadName:       l.LeadName,
		LeadEmail:      l.LeadEmail,
		Status:         l.Status,
		StageID:        uuidString(l.StageID),
		StageChangedAt: l.StageChangedAt,
	}
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
