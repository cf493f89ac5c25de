package handler

import (
	"net/http"
	"strings"
	"time"

	"fddhub/internal/leads/repository"
	"fddhub/internal/leads/service"
	"fddhub/internal/leads/transport"
	pipelinerepo "fddhub/internal/pipeline/repository"
	"fddhub/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *service.Service
	now func() time.Time
}

const (
	msgTenantNotSet       = "tenant not set"
	msgInvalidLeadID      = "invalid lead id"
	msgInvalidFranchiseID = "invalid franchiseId"
	msgInvalidStageID     = "invalid stageId"
)

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

// GET /api/v1/leads?franchiseId=&stageId=
func (h *Handler) List(c *gin.Context) {
	tenantID, ok := mustGetTenantID(c)
	if !ok {
		return
	}

	params := repository.ListParams{FranchisorID: tenantID}
	if raw := c.Query("franchiseId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidFranchiseID, nil)
			return
		}
		params.FranchiseID = &id
	}
	if raw := c.Query("stageId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidStageID, nil)
			return
		}
		params.StageID = &id
	}

	leads, err := h.svc.List(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}

	now := h.now()
	resp := make([]transport.LeadResponse, 0, len(leads))
	for _, l := range leads {
		resp = append(resp, toLeadResponse(l, now))
	}
	httpkit.OK(c, resp)
}

// GET /api/v1/leads/:id
func (h *Handler) Get(c *gin.Context) {
	tenantID, ok := mustGetTenantID(c)
	if !ok {
		return
	}
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	detail, err := h.svc.Get(c.Request.Context(), tenantID, leadID)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.LeadDetailResponse{
		Lead:           toLeadResponse(detail.ScoredLead, h.now()),
		ScoreBreakdown: detail.Score.Breakdown,
		Engagements:    make([]transport.EngagementResponse, 0, len(detail.Engagements)),
		History:        make([]transport.HistoryResponse, 0, len(detail.History)),
	}
	for _, e := range detail.Engagements {
		resp.Engagements = append(resp.Engagements, toEngagementResponse(e))
	}
	for _, e := range detail.History {
		resp.History = append(resp.History, toHistoryResponse(e))
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

func toLeadResponse(l service.ScoredLead, now time.Time) transport.LeadResponse {
	resp := transport.LeadResponse{
		ID:               l.ID.String(),
		Name:             l.LeadName,
		Email:            l.LeadEmail,
		Phone:            deref(l.LeadPhone),
		Brand:            l.FranchiseName,
		FranchiseID:      l.FranchiseID.String(),
		FranchiseSlug:    l.FranchiseSlug,
		InvitationStatus: l.Status,
		InvitationSentAt: l.SentAt,
		ExpiresAt:        l.ExpiresAt,
		Source:           l.Source,
		Timeline:         l.Timeline,
		City:             deref(l.City),
		State:            deref(l.State),
		TargetLocation:   l.TargetLocation,
		StageID:          uuidString(l.StageID),
		StageName:        l.StageName,
		StageColor:       l.StageColor,
		StageChangedAt:   l.StageChangedAt,
		SectionsViewed:   []string{},
		LastActivity:     l.SentAt,
		QualityScore:     l.Score.Score,
		Intent:           l.Score.Intent,
		IsNew:            l.Buyer == nil && l.Status == "sent",
	}

	if b := l.Buyer; b != nil {
		if name := strings.TrimSpace(deref(b.FirstName) + " " + deref(b.LastName)); name != "" {
			resp.Name = name
		}
		if b.Email != "" {
			resp.Email = b.Email
		}
		if b.Phone != nil && *b.Phone != "" {
			resp.Phone = *b.Phone
		}
		if b.City != nil {
			resp.City = *b.City
		}
		if b.State != nil {
			resp.State = *b.State
		}
		id := b.ID.String()
		resp.BuyerID = &id
	}
	resp.Location = joinLocation(resp.City, resp.State)

	if a := l.Access; a != nil {
		created := a.CreatedAt
		resp.FDDAccessAt = &created
		resp.ConsentGivenAt = a.ConsentGivenAt
		resp.Item23SignedAt = a.Item23SignedAt
		resp.ReceiptSignedAt = a.ReceiptSignedAt
		resp.TotalViews = a.TotalViews
		resp.TotalTimeSpentSeconds = a.TotalTimeSpentSeconds
		if a.ReceiptSignedAt != nil {
			resp.InvitationStatus = "signed"
		}
		if a.LastViewedAt != nil {
			resp.LastActivity = *a.LastViewedAt
		}
	}
	if e := l.Engagement; e != nil {
		resp.SectionsViewed = e.SectionsViewed
		resp.QuestionsAsked = len(e.QuestionsList)
		resp.LastActivity = e.LastActivity
	}
	if l.StageChangedAt != nil {
		resp.DaysInStage = int(now.Sub(*l.StageChangedAt) / (24 * time.Hour))
	}
	return resp
}

func toEngagementResponse(e repository.Engagement) transport.EngagementResponse {
	return transport.EngagementResponse{
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

func toHistoryResponse(e pipelinerepo.HistoryEntry) transport.HistoryResponse {
	return transport.HistoryResponse{
		ID:                  e.ID.String(),
		FromStageID:         uuidString(e.FromStageID),
		FromStageName:       e.FromStageName,
		ToStageID:           uuidString(e.ToStageID),
		ToStageName:         e.ToStageName,
		ChangedBy:           uuidString(e.ChangedBy),
		Notes:               e.Notes,
		TimeInPreviousStage: e.TimeInPreviousStage,
		CreatedAt:           e.CreatedAt,
	}
}

func joinLocation(city, state string) string {
	switch {
	case city != "" && state != "":
		return city + ", " + state
	case city != "":
		return city
	default:
		return state
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
