package handler

import (
	"net/http"

	"fddhub/internal/engagement/repository"
	"fddhub/internal/engagement/service"
	"fddhub/internal/engagement/transport"
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
	msgFranchiseID      = "franchiseId is required"
)

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Track merges a tracking report. Anonymous callers and unknown franchises
// get a successful response with a null engagement.
// POST /api/v1/fdd/engagement
func (h *Handler) Track(c *gin.Context) {
	var req transport.TrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.GetIdentity(c)
	franchiseID, err := uuid.Parse(req.FranchiseID)
	if !identity.IsAuthenticated() || err != nil {
		httpkit.OK(c, transport.TrackResponse{Success: true})
		return
	}

	record := h.svc.Track(c.Request.Context(), identity.UserID(), service.Report{
		FranchiseID: franchiseID,
		NewSession:  req.NewSession,
		Update: repository.Update{
			TimeSpent:      req.TimeSpent,
			ViewedItems:    service.ParseViewedItems(req.ViewedItems),
			Questions:      service.CleanStrings(req.QuestionsAsked),
			SectionsViewed: service.CleanStrings(req.SectionsViewed),
		},
	})
	httpkit.OK(c, transport.TrackResponse{Success: true, Engagement: toResponse(record)})
}

// GET /api/v1/fdd/engagement?franchiseId=
func (h *Handler) Get(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	raw := c.Query("franchiseId")
	if err := h.val.Var(raw, "required,uuid"); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgFranchiseID, nil)
		return
	}
	franchiseID := uuid.MustParse(raw)

	record, err := h.svc.Get(c.Request.Context(), identity.UserID(), franchiseID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.GetResponse{Engagement: toResponse(record)})
}

func toResponse(e *repository.Engagement) *transport.EngagementResponse {
	if e == nil {
		return nil
	}
	return &transport.EngagementResponse{
		ID:                   e.ID.String(),
		BuyerID:              e.BuyerID.String(),
		FranchiseID:          e.FranchiseID.String(),
		TimeSpent:            e.TimeSpent,
		ViewedItems:          e.ViewedItems,
		QuestionsList:        e.QuestionsList,
		SectionsViewed:       e.SectionsViewed,
		ViewedItem19:         e.ViewedItem19,
		ViewedItem7:          e.ViewedItem7,
		SpentSignificantTime: e.SpentSignificantTime,
		LastActivity:         e.LastActivity,
	}
}
