package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fddhub/internal/engagement/repository"
	"fddhub/internal/engagement/service"
	"fddhub/platform/apperr"
	"fddhub/platform/events"
	"fddhub/platform/httpkit"
	"fddhub/platform/logger"
	"fddhub/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	buyer   repository.Buyer
	last    repository.Update
	stored  *repository.Engagement
	upserts int
}

func (s *stubRepo) GetBuyerByUserID(context.Context, uuid.UUID) (repository.Buyer, error) {
	if s.buyer.ID == uuid.Nil {
		return repository.Buyer{}, apperr.NotFound("buyer profile not found")
	}
	return s.buyer, nil
}

func (s *stubRepo) Get(context.Context, uuid.UUID, uuid.UUID) (repository.Engagement, error) {
	if s.stored == nil {
		return repository.Engagement{}, apperr.NotFound("engagement not found")
	}
	return *s.stored, nil
}

func (s *stubRepo) Upsert(_ context.Context, buyerID, franchiseID uuid.UUID, in repository.Update) (repository.Engagement, error) {
	s.upserts++
	s.last = in
	merged := service.Merge(s.stored, in, time.Now())
	merged.BuyerID, merged.FranchiseID = buyerID, franchiseID
	s.stored = &merged
	return merged, nil
}

func (s *stubRepo) RecordAccessView(context.Context, uuid.UUID, uuid.UUID, int, bool) error {
	return nil
}

func newTestEngine(repo *stubRepo, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()
	h := New(service.New(repo, events.NewInMemoryBus(log), log), validator.New())

	engine := gin.New()
	if userID != uuid.Nil {
		engine.Use(func(c *gin.Context) {
			c.Set(httpkit.ContextUserIDKey, userID)
			c.Next()
		})
	}
	engine.POST("/fdd/engagement", h.Track)
	engine.GET("/fdd/engagement", h.Get)
	return engine
}

func TestTrackAnonymousReturnsNullEngagement(t *testing.T) {
	repo := &stubRepo{}
	engine := newTestEngine(repo, uuid.Nil)

	body := `{"franchiseId":"` + uuid.NewString() + `","timeSpent":30}`
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/fdd/engagement", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"engagement":null}`, rec.Body.String())
	assert.Zero(t, repo.upserts)
}

func TestTrackParsesItemLabels(t *testing.T) {
	repo := &stubRepo{buyer: repository.Buyer{ID: uuid.New()}}
	engine := newTestEngine(repo, uuid.New())

	body := `{"franchiseId":"` + uuid.NewString() + `","timeSpent":42,"viewedItems":["item19",7,"x"],"questionsAsked":["fees?",""]}`
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/fdd/engagement", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{19, 7}, repo.last.ViewedItems)
	assert.Equal(t, []string{"fees?"}, repo.last.Questions)

	var resp struct {
		Success    bool `json:"success"`
		Engagement struct {
			TimeSpent    int  `json:"timeSpent"`
			ViewedItem19 bool `json:"viewedItem19"`
		} `json:"engagement"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 42, resp.Engagement.TimeSpent)
	assert.True(t, resp.Engagement.ViewedItem19)
}

func TestTrackRejectsNegativeTime(t *testing.T) {
	engine := newTestEngine(&stubRepo{}, uuid.New())

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/fdd/engagement", strings.NewReader(`{"timeSpent":-1}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRequiresFranchiseID(t *testing.T) {
	engine := newTestEngine(&stubRepo{}, uuid.New())

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fdd/engagement", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fdd/engagement?franchiseId="+uuid.NewString(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"engagement":null}`, rec.Body.String())
}
