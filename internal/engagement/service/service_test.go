package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fddhub/internal/engagement/repository"
	"fddhub/internal/events"
	"fddhub/platform/apperr"
	"fddhub/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pairKey struct{ buyer, franchise uuid.UUID }

type fakeRepo struct {
	mu        sync.Mutex
	buyers    map[uuid.UUID]repository.Buyer
	rows      map[pairKey]repository.Engagement
	views     map[pairKey]int
	upsertErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		buyers: map[uuid.UUID]repository.Buyer{},
		rows:   map[pairKey]repository.Engagement{},
		views:  map[pairKey]int{},
	}
}

func (f *fakeRepo) GetBuyerByUserID(_ context.Context, userID uuid.UUID) (repository.Buyer, error) {
	b, ok := f.buyers[userID]
	if !ok {
		return repository.Buyer{}, apperr.NotFound("buyer profile not found")
	}
	return b, nil
}

func (f *fakeRepo) Get(_ context.Context, buyerID, franchiseID uuid.UUID) (repository.Engagement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.rows[pairKey{buyerID, franchiseID}]
	if !ok {
		return repository.Engagement{}, apperr.NotFound("engagement not found")
	}
	return e, nil
}

func (f *fakeRepo) Upsert(_ context.Context, buyerID, franchiseID uuid.UUID, in repository.Update) (repository.Engagement, error) {
	if f.upsertErr != nil {
		return repository.Engagement{}, f.upsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pairKey{buyerID, franchiseID}
	var existing *repository.Engagement
	if e, ok := f.rows[key]; ok {
		existing = &e
	}
	merged := Merge(existing, in, time.Now())
	merged.BuyerID, merged.FranchiseID = buyerID, franchiseID
	f.rows[key] = merged
	return merged, nil
}

func (f *fakeRepo) RecordAccessView(_ context.Context, buyerID, franchiseID uuid.UUID, _ int, newSession bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if newSession {
		f.views[pairKey{buyerID, franchiseID}]++
	}
	return nil
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

func newTestService() (*Service, *fakeRepo, *recordingBus, uuid.UUID, uuid.UUID) {
	repo := newFakeRepo()
	bus := &recordingBus{}
	userID, buyerID := uuid.New(), uuid.New()
	repo.buyers[userID] = repository.Buyer{ID: buyerID, Email: "lead@example.com"}
	return New(repo, bus, logger.NewNop()), repo, bus, userID, buyerID
}

func TestTrackWithoutIdentityIsNoop(t *testing.T) {
	svc, repo, _, _, _ := newTestService()

	assert.Nil(t, svc.Track(context.Background(), uuid.Nil, Report{FranchiseID: uuid.New()}))
	assert.Nil(t, svc.Track(context.Background(), uuid.New(), Report{FranchiseID: uuid.New()}))
	assert.Empty(t, repo.rows)
}

func TestTrackSwallowsStoreErrors(t *testing.T) {
	svc, repo, bus, userID, _ := newTestService()
	repo.upsertErr = errors.New("deadlock detected")

	got := svc.Track(context.Background(), userID, Report{
		FranchiseID: uuid.New(),
		Update:      repository.Update{TimeSpent: 900},
	})

	assert.Nil(t, got)
	assert.Empty(t, bus.published)
}

func TestTrackPublishesOnceWhenCrossingThreshold(t *testing.T) {
	svc, repo, bus, userID, buyerID := newTestService()
	franchiseID := uuid.New()
	ctx := context.Background()

	first := svc.Track(ctx, userID, Report{FranchiseID: franchiseID, NewSession: true, Update: repository.Update{
		TimeSpent: 120, Questions: []string{"What are the fees?"},
	}})
	require.NotNil(t, first)
	assert.Empty(t, bus.published)

	second := svc.Track(ctx, userID, Report{FranchiseID: franchiseID, Update: repository.Update{
		TimeSpent: 650,
	}})
	require.NotNil(t, second)
	require.Len(t, bus.published, 1)

	evt, ok := bus.published[0].(events.HighEngagementReached)
	require.True(t, ok)
	assert.Equal(t, buyerID, evt.BuyerID)
	assert.Equal(t, franchiseID, evt.FranchiseID)
	assert.Equal(t, 650, evt.TimeSpent)
	assert.Equal(t, 1, evt.QuestionCount)

	svc.Track(ctx, userID, Report{FranchiseID: franchiseID, Update: repository.Update{TimeSpent: 800}})
	assert.Len(t, bus.published, 1)
	assert.Equal(t, 1, repo.views[pairKey{buyerID, franchiseID}])
}

func TestRecordQuestionMergesIntoRecord(t *testing.T) {
	svc, _, _, userID, _ := newTestService()
	franchiseID := uuid.New()
	ctx := context.Background()

	svc.RecordQuestion(ctx, userID, franchiseID, "  What is the royalty?  ")
	svc.RecordQuestion(ctx, userID, franchiseID, "What is the royalty?")
	svc.RecordQuestion(ctx, userID, franchiseID, "   ")

	got, err := svc.Get(ctx, userID, franchiseID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"What is the royalty?"}, got.QuestionsList)
}

func TestGetReturnsNilWithoutRecord(t *testing.T) {
	svc, _, _, userID, _ := newTestService()

	got, err := svc.Get(context.Background(), userID, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = svc.Get(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}
