package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	accessrepo "fddhub/internal/access/repository"
	"fddhub/internal/adapters/storage"
	"fddhub/platform/apperr"
	"fddhub/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "s3cret"

type stubRecorder struct {
	receipts []accessrepo.Receipt
	grants   map[string]*accessrepo.Grant
	noGrant  bool
}

func grantKey(buyerID, franchiseID uuid.UUID) string {
	return buyerID.String() + "/" + franchiseID.String()
}

func (s *stubRecorder) GetGrant(_ context.Context, buyerID, franchiseID uuid.UUID) (accessrepo.Grant, error) {
	if s.noGrant {
		return accessrepo.Grant{}, apperr.NotFound("FDD access not found")
	}
	g, ok := s.grants[grantKey(buyerID, franchiseID)]
	if !ok {
		g = &accessrepo.Grant{ID: uuid.New(), BuyerID: buyerID, FranchiseID: franchiseID}
		s.grants[grantKey(buyerID, franchiseID)] = g
	}
	return *g, nil
}

func (s *stubRecorder) RecordReceipt(ctx context.Context, r accessrepo.Receipt) (accessrepo.Grant, error) {
	s.receipts = append(s.receipts, r)
	g, err := s.GetGrant(ctx, r.BuyerID, r.FranchiseID)
	if err != nil {
		return accessrepo.Grant{}, err
	}
	stored := s.grants[grantKey(r.BuyerID, r.FranchiseID)]
	if stored.ReceiptSignedAt == nil {
		at := r.SignedAt
		stored.ReceiptSignedAt = &at
		stored.ReceiptPDFKey = r.PDFKey
		g = *stored
	}
	return g, nil
}

type stubStore struct {
	objects map[string][]byte
}

func (s *stubStore) PutObject(_ context.Context, bucket, key, _ string, data []byte) error {
	s.objects[bucket+"/"+key] = data
	return nil
}

func (s *stubStore) GenerateDownloadURL(context.Context, string, string) (*storage.PresignedURL, error) {
	return nil, errors.New("not used")
}

type stubFetcher struct {
	urls   []string
	bodies []string
	err    error
}

func (f *stubFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.urls = append(f.urls, url)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.bodies) > 0 {
		body := f.bodies[0]
		f.bodies = f.bodies[1:]
		return []byte(body), nil
	}
	return []byte("%PDF-1.7"), nil
}

type fixture struct {
	router   *gin.Engine
	recorder *stubRecorder
	store    *stubStore
	fetcher  *stubFetcher
}

func newFixture() *fixture {
	gin.SetMode(gin.TestMode)
	f := &fixture{
		recorder: &stubRecorder{grants: map[string]*accessrepo.Grant{}},
		store:    &stubStore{objects: map[string][]byte{}},
		fetcher:  &stubFetcher{},
	}
	h := NewHandler(NewService(f.recorder, f.store, "fdd-receipts", f.fetcher, logger.NewNop()))
	f.router = gin.New()
	f.router.POST("/webhook/esign", SecretAuthMiddleware(testSecret), h.HandleESign)
	return f
}

func (f *fixture) post(t *testing.T, secret string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/webhook/esign", strings.NewReader(string(raw)))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(SecretHeader, secret)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func completed(buyerID, franchiseID string, auditURL string, docs ...map[string]any) map[string]any {
	return map[string]any{
		"event_type": "submission.completed",
		"data": map[string]any{
			"id":            4821,
			"audit_log_url": auditURL,
			"completed_at":  "2026-03-01T10:00:00Z",
			"submitters": []any{map[string]any{
				"metadata":  map[string]any{"buyer_id": buyerID, "franchise_id": franchiseID},
				"documents": docs,
			}},
		},
	}
}

func TestESignRejectsBadSecret(t *testing.T) {
	f := newFixture()

	assert.Equal(t, http.StatusUnauthorized, f.post(t, "", completed("a", "b", "x")).Code)
	assert.Equal(t, http.StatusUnauthorized, f.post(t, "wrong", completed("a", "b", "x")).Code)
	assert.Empty(t, f.recorder.receipts)
}

func TestESignIgnoresOtherEvents(t *testing.T) {
	f := newFixture()

	w := f.post(t, testSecret, map[string]any{"event_type": "form.viewed", "data": map[string]any{}})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received":true}`, w.Body.String())
	assert.Empty(t, f.fetcher.urls)
}

func TestESignStoresReceipt(t *testing.T) {
	f := newFixture()
	buyerID, franchiseID := uuid.New(), uuid.New()

	w := f.post(t, testSecret, completed(buyerID.String(), franchiseID.String(), "",
		map[string]any{"name": "receipt", "url": "https://sign.test/doc.pdf"}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	key := "receipts/" + buyerID.String() + "-" + franchiseID.String() + ".pdf"
	assert.Equal(t, []string{"https://sign.test/doc.pdf"}, f.fetcher.urls)
	assert.Equal(t, []byte("%PDF-1.7"), f.store.objects["fdd-receipts/"+key])

	require.Len(t, f.recorder.receipts, 1)
	r := f.recorder.receipts[0]
	assert.Equal(t, buyerID, r.BuyerID)
	assert.Equal(t, franchiseID, r.FranchiseID)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), r.SignedAt.UTC())
	require.NotNil(t, r.SubmissionID)
	assert.Equal(t, "4821", *r.SubmissionID)
	assert.Equal(t, key, *r.PDFKey)
}

func TestESignPrefersAuditLog(t *testing.T) {
	f := newFixture()

	w := f.post(t, testSecret, completed(uuid.NewString(), uuid.NewString(), "https://sign.test/audit.pdf",
		map[string]any{"url": "https://sign.test/doc.pdf"}))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"https://sign.test/audit.pdf"}, f.fetcher.urls)
}

func TestESignValidation(t *testing.T) {
	tests := []struct {
		name    string
		body    map[string]any
		wantErr string
	}{
		{name: "missing metadata", body: completed("", uuid.NewString(), "https://sign.test/a.pdf"), wantErr: "Missing metadata"},
		{name: "bad metadata", body: completed("buyer-1", uuid.NewString(), "https://sign.test/a.pdf"), wantErr: "Invalid metadata"},
		{name: "no pdf", body: completed(uuid.NewString(), uuid.NewString(), ""), wantErr: "No PDF URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			w := f.post(t, testSecret, tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantErr)
			assert.Empty(t, f.recorder.receipts)
		})
	}
}

func TestESignFetchFailure(t *testing.T) {
	f := newFixture()
	f.fetcher.err = errors.New("connection reset")

	w := f.post(t, testSecret, completed(uuid.NewString(), uuid.NewString(), "https://sign.test/a.pdf"))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Empty(t, f.recorder.receipts)
}

func TestESignRedeliveryKeepsFirstReceipt(t *testing.T) {
	f := newFixture()
	f.fetcher.bodies = []string{"%PDF first", "%PDF second"}
	buyerID, franchiseID := uuid.New(), uuid.New()
	body := completed(buyerID.String(), franchiseID.String(), "https://sign.test/audit.pdf")

	require.Equal(t, http.StatusOK, f.post(t, testSecret, body).Code)
	w := f.post(t, testSecret, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	key := "fdd-receipts/" + storage.ReceiptKey(buyerID.String(), franchiseID.String())
	assert.Equal(t, []byte("%PDF first"), f.store.objects[key])
	assert.Len(t, f.fetcher.urls, 1)
	assert.Len(t, f.recorder.receipts, 1)
}

func TestESignWithoutGrantStoresNothing(t *testing.T) {
	f := newFixture()
	f.recorder.noGrant = true

	w := f.post(t, testSecret, completed(uuid.NewString(), uuid.NewString(), "https://sign.test/a.pdf"))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, f.fetcher.urls)
	assert.Empty(t, f.store.objects)
}

func TestSubmissionIDAcceptsStrings(t *testing.T) {
	var s Submission
	require.NoError(t, json.Unmarshal([]byte(`{"id":"sub_9"}`), &s))
	assert.Equal(t, SubmissionID("sub_9"), s.ID)
}
