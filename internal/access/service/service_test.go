package service

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"fddhub/internal/access/repository"
	"fddhub/internal/adapters/storage"
	"fddhub/internal/events"
	"fddhub/platform/apperr"
	"fddhub/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	buyers     map[uuid.UUID]uuid.UUID
	slugs      map[string]uuid.UUID
	grants     map[uuid.UUID]*repository.Grant
	consentIP  string
	consentUA  string
	signatures map[uuid.UUID]string
}

func newMemRepo() *memRepo {
	return &memRepo{
		buyers:     map[uuid.UUID]uuid.UUID{},
		slugs:      map[string]uuid.UUID{},
		grants:     map[uuid.UUID]*repository.Grant{},
		signatures: map[uuid.UUID]string{},
	}
}

func (m *memRepo) GetBuyerIDByUserID(_ context.Context, userID uuid.UUID) (uuid.UUID, error) {
	id, ok := m.buyers[userID]
	if !ok {
		return uuid.Nil, apperr.NotFound("Buyer profile not found")
	}
	return id, nil
}

func (m *memRepo) GetFranchiseIDBySlug(_ context.Context, slug string) (uuid.UUID, error) {
	id, ok := m.slugs[slug]
	if !ok {
		return uuid.Nil, apperr.NotFound("Franchise not found")
	}
	return id, nil
}

func (m *memRepo) find(buyerID, franchiseID uuid.UUID) *repository.Grant {
	for _, g := range m.grants {
		if g.BuyerID == buyerID && g.FranchiseID == franchiseID {
			return g
		}
	}
	return nil
}

func (m *memRepo) Get(_ context.Context, buyerID, franchiseID uuid.UUID) (repository.Grant, error) {
	g := m.find(buyerID, franchiseID)
	if g == nil {
		return repository.Grant{}, apperr.NotFound("FDD access not found")
	}
	return *g, nil
}

func (m *memRepo) RecordConsent(_ context.Context, id uuid.UUID, at time.Time, ip, userAgent string) (repository.Grant, error) {
	g := m.grants[id]
	g.ConsentGivenAt = &at
	g.Status = repository.StatusConsentGiven
	m.consentIP, m.consentUA = ip, userAgent
	return *g, nil
}

func (m *memRepo) RecordItem23(_ context.Context, id uuid.UUID, at time.Time, key, _ string) (repository.Grant, error) {
	g := m.grants[id]
	g.Item23SignedAt = &at
	g.Item23SignatureKey = &key
	g.Status = repository.StatusActive
	m.signatures[id] = key
	return *g, nil
}

func (m *memRepo) RecordReceipt(_ context.Context, r repository.Receipt) (repository.Grant, bool, error) {
	g := m.find(r.BuyerID, r.FranchiseID)
	if g == nil {
		return repository.Grant{}, false, apperr.NotFound("FDD access not found")
	}
	if g.ReceiptSignedAt != nil {
		return *g, false, nil
	}
	at := r.SignedAt
	g.ReceiptSignedAt = &at
	g.ReceiptPDFKey = r.PDFKey
	g.ESignSubmissionID = r.SubmissionID
	return *g, true, nil
}

type memStore struct {
	objects map[string][]byte
	err     error
}

func (s *memStore) PutObject(_ context.Context, bucket, key, _ string, data []byte) error {
	if s.err != nil {
		return s.err
	}
	s.objects[bucket+"/"+key] = data
	return nil
}

func (s *memStore) GenerateDownloadURL(_ context.Context, bucket, key string) (*storage.PresignedURL, error) {
	return &storage.PresignedURL{URL: "https://files.test/" + bucket + "/" + key, FileKey: key}, nil
}

type recordingBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

type fixture struct {
	svc         *Service
	repo        *memRepo
	store       *memStore
	bus         *recordingBus
	userID      uuid.UUID
	buyerID     uuid.UUID
	franchiseID uuid.UUID
	grantID     uuid.UUID
	now         time.Time
}

func newFixture() *fixture {
	f := &fixture{
		repo:        newMemRepo(),
		store:       &memStore{objects: map[string][]byte{}},
		bus:         &recordingBus{},
		userID:      uuid.New(),
		buyerID:     uuid.New(),
		franchiseID: uuid.New(),
		grantID:     uuid.New(),
		now:         time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.repo.buyers[f.userID] = f.buyerID
	f.repo.slugs["sunny-tacos"] = f.franchiseID
	f.repo.grants[f.grantID] = &repository.Grant{
		ID:           f.grantID,
		BuyerID:      f.buyerID,
		FranchiseID:  f.franchiseID,
		FranchisorID: uuid.New(),
		GrantedVia:   "invitation",
		Status:       repository.StatusGranted,
	}
	f.svc = New(f.repo, f.store, "fdd-signatures", f.bus, logger.NewNop())
	f.svc.now = func() time.Time { return f.now }
	return f
}

func pngDataURL(payload string) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte(payload))
}

func TestGiveConsent(t *testing.T) {
	f := newFixture()

	grant, err := f.svc.GiveConsent(context.Background(), f.userID, FranchiseRef{Slug: "sunny-tacos"}, Client{IP: "203.0.113.7"})
	require.NoError(t, err)

	assert.Equal(t, repository.StatusConsentGiven, grant.Status)
	require.NotNil(t, grant.ConsentGivenAt)
	assert.Equal(t, f.now, *grant.ConsentGivenAt)
	assert.Equal(t, "203.0.113.7", f.repo.consentIP)
	assert.Equal(t, "unknown", f.repo.consentUA)
}

func TestGiveConsentErrors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.GiveConsent(ctx, f.userID, FranchiseRef{}, Client{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.GiveConsent(ctx, f.userID, FranchiseRef{Slug: "unknown-brand"}, Client{})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.svc.GiveConsent(ctx, uuid.New(), FranchiseRef{ID: &f.franchiseID}, Client{})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	other := uuid.New()
	_, err = f.svc.GiveConsent(ctx, f.userID, FranchiseRef{ID: &other}, Client{})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestSignItem23(t *testing.T) {
	f := newFixture()

	grant, key, err := f.svc.SignItem23(context.Background(), f.userID, FranchiseRef{ID: &f.franchiseID},
		pngDataURL("\x89PNG signature"), Client{IP: "203.0.113.7"})
	require.NoError(t, err)

	wantKey := "item23-signatures/" + f.buyerID.String() + "-" + f.franchiseID.String() + ".png"
	assert.Equal(t, wantKey, key)
	assert.Equal(t, repository.StatusActive, grant.Status)
	assert.Equal(t, []byte("\x89PNG signature"), f.store.objects["fdd-signatures/"+wantKey])
	assert.Equal(t, "https://files.test/fdd-signatures/"+wantKey, f.svc.SignatureURL(context.Background(), key))
}

func TestSignItem23RejectsBadImage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ref := FranchiseRef{ID: &f.franchiseID}

	for _, dataURL := range []string{"", "data:image/jpeg;base64,AAAA", "data:image/png;base64,!!!"} {
		_, _, err := f.svc.SignItem23(ctx, f.userID, ref, dataURL, Client{})
		assert.True(t, apperr.Is(err, apperr.KindValidation), dataURL)
	}
	assert.Empty(t, f.store.objects)
}

func TestSignItem23StorageFailure(t *testing.T) {
	f := newFixture()
	f.store.err = errors.New("bucket unavailable")

	_, _, err := f.svc.SignItem23(context.Background(), f.userID, FranchiseRef{ID: &f.franchiseID}, pngDataURL("sig"), Client{})
	assert.True(t, apperr.Is(err, apperr.KindUpstream))
	assert.Nil(t, f.repo.grants[f.grantID].Item23SignedAt)
}

func TestRecordReceiptIsWriteOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	first := f.now.Add(-time.Hour)
	key := "receipts/x.pdf"

	grant, err := f.svc.RecordReceipt(ctx, repository.Receipt{BuyerID: f.buyerID, FranchiseID: f.franchiseID, SignedAt: first, PDFKey: &key})
	require.NoError(t, err)
	assert.Equal(t, first, *grant.ReceiptSignedAt)

	grant, err = f.svc.RecordReceipt(ctx, repository.Receipt{BuyerID: f.buyerID, FranchiseID: f.franchiseID, SignedAt: f.now})
	require.NoError(t, err)
	assert.Equal(t, first, *grant.ReceiptSignedAt)

	require.Len(t, f.bus.published, 1)
	signed, ok := f.bus.published[0].(events.ReceiptSigned)
	require.True(t, ok)
	assert.Equal(t, f.grantID, signed.AccessID)
	assert.Equal(t, first, signed.SignedAt)
}

func TestCompliance(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ref := FranchiseRef{ID: &f.franchiseID}

	status, err := f.svc.Compliance(ctx, f.userID, ref)
	require.NoError(t, err)
	assert.Equal(t, -1, status.DaysRemaining)
	assert.Nil(t, status.EligibleAt)
	assert.False(t, status.SalesEligible)

	signed := f.now.Add(-10 * 24 * time.Hour)
	f.repo.grants[f.grantID].ReceiptSignedAt = &signed

	status, err = f.svc.Compliance(ctx, f.userID, ref)
	require.NoError(t, err)
	assert.Equal(t, 4, status.DaysRemaining)
	require.NotNil(t, status.EligibleAt)
	assert.Equal(t, signed.Add(WaitingPeriod), *status.EligibleAt)
	assert.False(t, status.SalesEligible)
}
