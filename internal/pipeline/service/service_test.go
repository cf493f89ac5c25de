package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"fddhub/internal/pipeline/repository"
	"fddhub/platform/apperr"
	"fddhub/platform/events"
	"fddhub/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRepo keeps the stage invariants the SQL repository enforces.
type memRepo struct {
	stages  map[uuid.UUID]*repository.Stage
	leads   map[uuid.UUID]*repository.Lead
	history []repository.MoveLeadParams
}

func newMemRepo() *memRepo {
	return &memRepo{stages: map[uuid.UUID]*repository.Stage{}, leads: map[uuid.UUID]*repository.Lead{}}
}

func (m *memRepo) sorted(franchisorID uuid.UUID) []repository.Stage {
	out := make([]repository.Stage, 0)
	for _, s := range m.stages {
		if s.FranchisorID == franchisorID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (m *memRepo) ListStages(_ context.Context, franchisorID uuid.UUID) ([]repository.Stage, error) {
	return m.sorted(franchisorID), nil
}

func (m *memRepo) GetStage(_ context.Context, stageID uuid.UUID) (repository.Stage, error) {
	s, ok := m.stages[stageID]
	if !ok {
		return repository.Stage{}, apperr.NotFound("Stage not found")
	}
	return *s, nil
}

func (m *memRepo) release(franchisorID, keep uuid.UUID, def, won, lost bool) {
	for _, s := range m.stages {
		if s.FranchisorID != franchisorID || s.ID == keep {
			continue
		}
		if def {
			s.IsDefault = false
		}
		if won {
			s.IsClosedWon = false
		}
		if lost {
			s.IsClosedLost = false
		}
	}
}

func (m *memRepo) CreateStage(_ context.Context, p repository.CreateStageParams) (repository.Stage, error) {
	existing := m.sorted(p.FranchisorID)
	for _, s := range existing {
		if s.Name == p.Name {
			return repository.Stage{}, apperr.Conflict("A stage with this name already exists")
		}
	}
	m.release(p.FranchisorID, uuid.Nil, p.IsDefault, p.IsClosedWon, p.IsClosedLost)
	s := &repository.Stage{
		ID: uuid.New(), FranchisorID: p.FranchisorID, Name: p.Name, Description: p.Description, Color: p.Color,
		Position: len(existing), IsDefault: p.IsDefault, IsClosedWon: p.IsClosedWon, IsClosedLost: p.IsClosedLost,
	}
	m.stages[s.ID] = s
	return *s, nil
}

func (m *memRepo) UpdateStage(_ context.Context, stageID uuid.UUID, p repository.UpdateStageParams) (repository.Stage, error) {
	s := m.stages[stageID]
	m.release(s.FranchisorID, stageID, flagOn(p.IsDefault), flagOn(p.IsClosedWon), flagOn(p.IsClosedLost))
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.ClearDesc {
		s.Description = nil
	} else if p.Description != nil {
		s.Description = p.Description
	}
	if p.Color != nil {
		s.Color = *p.Color
	}
	if p.IsDefault != nil {
		s.IsDefault = *p.IsDefault
	}
	if p.IsClosedWon != nil {
		s.IsClosedWon = *p.IsClosedWon
	}
	if p.IsClosedLost != nil {
		s.IsClosedLost = *p.IsClosedLost
	}
	return *s, nil
}

func (m *memRepo) CountLeadsInStage(_ context.Context, stageID uuid.UUID) (int, error) {
	n := 0
	for _, l := range m.leads {
		if l.StageID != nil && *l.StageID == stageID {
			n++
		}
	}
	return n, nil
}

func (m *memRepo) DeleteStage(_ context.Context, franchisorID, stageID uuid.UUID) error {
	delete(m.stages, stageID)
	for i, s := range m.sorted(franchisorID) {
		m.stages[s.ID].Position = i
	}
	return nil
}

func (m *memRepo) ReorderStages(_ context.Context, franchisorID uuid.UUID, ids []uuid.UUID) ([]repository.Stage, error) {
	for i, id := range ids {
		m.stages[id].Position = i
	}
	return m.sorted(franchisorID), nil
}

func (m *memRepo) SeedStages(ctx context.Context, franchisorID uuid.UUID, seeds []repository.CreateStageParams) ([]repository.Stage, error) {
	for _, seed := range seeds {
		seed.FranchisorID = franchisorID
		if _, err := m.CreateStage(ctx, seed); err != nil {
			return nil, err
		}
	}
	return m.sorted(franchisorID), nil
}

func (m *memRepo) GetLead(_ context.Context, leadID uuid.UUID) (repository.Lead, error) {
	l, ok := m.leads[leadID]
	if !ok {
		return repository.Lead{}, apperr.NotFound("Lead not found")
	}
	return *l, nil
}

func (m *memRepo) MoveLead(_ context.Context, p repository.MoveLeadParams) (repository.Lead, error) {
	m.history = append(m.history, p)
	l := m.leads[p.LeadID]
	to := p.ToStageID
	at := p.ChangedAt
	by := p.ChangedBy
	l.StageID, l.StageChangedAt, l.StageChangedBy = &to, &at, &by
	return *l, nil
}

func (m *memRepo) ListHistory(context.Context, uuid.UUID) ([]repository.HistoryEntry, error) {
	return nil, nil
}

func newTestService(repo *memRepo) *Service {
	log := logger.NewNop()
	return New(repo, events.NewInMemoryBus(log), log)
}

func boolPtr(v bool) *bool { return &v }

func flagHolders(stages []repository.Stage) (def, won, lost []string) {
	for _, s := range stages {
		if s.IsDefault {
			def = append(def, s.Name)
		}
		if s.IsClosedWon {
			won = append(won, s.Name)
		}
		if s.IsClosedLost {
			lost = append(lost, s.Name)
		}
	}
	return def, won, lost
}

func TestListStagesSeedsDefaults(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	franchisorID := uuid.New()

	stages, err := svc.ListStages(context.Background(), franchisorID)
	require.NoError(t, err)
	require.NotEmpty(t, stages)

	def, won, lost := flagHolders(stages)
	assert.Len(t, def, 1)
	assert.Len(t, won, 1)
	assert.Len(t, lost, 1)
	for i, s := range stages {
		assert.Equal(t, i, s.Position)
	}

	again, err := svc.ListStages(context.Background(), franchisorID)
	require.NoError(t, err)
	assert.Len(t, again, len(stages))
}

func TestCreateStageValidatesAndDefaults(t *testing.T) {
	svc := newTestService(newMemRepo())
	franchisorID := uuid.New()

	_, err := svc.CreateStage(context.Background(), repository.CreateStageParams{FranchisorID: franchisorID, Name: "   "})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	stage, err := svc.CreateStage(context.Background(), repository.CreateStageParams{FranchisorID: franchisorID, Name: "  Qualified "})
	require.NoError(t, err)
	assert.Equal(t, "Qualified", stage.Name)
	assert.Equal(t, DefaultColor, stage.Color)
	assert.Equal(t, 0, stage.Position)

	next, err := svc.CreateStage(context.Background(), repository.CreateStageParams{FranchisorID: franchisorID, Name: "Won"})
	require.NoError(t, err)
	assert.Equal(t, 1, next.Position)
}

func TestSettingDefaultHandsOverFlag(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	franchisorID := uuid.New()

	a, err := svc.CreateStage(ctx, repository.CreateStageParams{FranchisorID: franchisorID, Name: "A", IsDefault: true})
	require.NoError(t, err)
	b, err := svc.CreateStage(ctx, repository.CreateStageParams{FranchisorID: franchisorID, Name: "B"})
	require.NoError(t, err)

	_, err = svc.UpdateStage(ctx, franchisorID, b.ID, repository.UpdateStageParams{IsDefault: boolPtr(true)})
	require.NoError(t, err)

	stages, _ := repo.ListStages(ctx, franchisorID)
	def, _, _ := flagHolders(stages)
	assert.Equal(t, []string{"B"}, def)

	stillA, _ := repo.GetStage(ctx, a.ID)
	assert.False(t, stillA.IsDefault)
}

func TestUpdateStageOfOtherFranchisorIsNotFound(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	stage, err := svc.CreateStage(context.Background(), repository.CreateStageParams{FranchisorID: uuid.New(), Name: "A"})
	require.NoError(t, err)

	name := "B"
	_, err = svc.UpdateStage(context.Background(), uuid.New(), stage.ID, repository.UpdateStageParams{Name: &name})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestDeleteStageGuardAndCompaction(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	franchisorID := uuid.New()

	var stages []repository.Stage
	for _, name := range []string{"One", "Two", "Three", "Four"} {
		s, err := svc.CreateStage(ctx, repository.CreateStageParams{FranchisorID: franchisorID, Name: name})
		require.NoError(t, err)
		stages = append(stages, s)
	}

	busy := stages[1].ID
	for i := 0; i < 2; i++ {
		id := uuid.New()
		repo.leads[id] = &repository.Lead{ID: id, FranchisorID: franchisorID, StageID: &busy}
	}

	err := svc.DeleteStage(ctx, franchisorID, busy)
	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindConflict, appErr.Kind)
	assert.Equal(t, "Cannot delete stage with 2 lead(s). Move leads to another stage first.", appErr.Message)
	assert.Equal(t, map[string]int{"leadCount": 2}, appErr.Details)
	assert.Len(t, repo.sorted(franchisorID), 4)

	require.NoError(t, svc.DeleteStage(ctx, franchisorID, stages[2].ID))
	remaining := repo.sorted(franchisorID)
	require.Len(t, remaining, 3)
	for i, s := range remaining {
		assert.Equal(t, i, s.Position)
	}
	assert.Equal(t, []string{"One", "Two", "Four"}, []string{remaining[0].Name, remaining[1].Name, remaining[2].Name})
}

func TestReorderRejectsForeignStages(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	franchisorID := uuid.New()

	a, _ := svc.CreateStage(ctx, repository.CreateStageParams{FranchisorID: franchisorID, Name: "A"})
	b, _ := svc.CreateStage(ctx, repository.CreateStageParams{FranchisorID: franchisorID, Name: "B"})
	other, _ := svc.CreateStage(ctx, repository.CreateStageParams{FranchisorID: uuid.New(), Name: "X"})

	_, err := svc.ReorderStages(ctx, franchisorID, nil)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.ReorderStages(ctx, franchisorID, []uuid.UUID{a.ID, other.ID})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	reordered, err := svc.ReorderStages(ctx, franchisorID, []uuid.UUID{b.ID, a.ID})
	require.NoError(t, err)
	assert.Equal(t, "B", reordered[0].Name)
	assert.Equal(t, "A", reordered[1].Name)
}

func TestReorderPartialListKeepsPositionsDense(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	franchisorID := uuid.New()

	a, _ := svc.CreateStage(ctx, repository.CreateStageParams{FranchisorID: franchisorID, Name: "A"})
	_, _ = svc.CreateStage(ctx, repository.CreateStageParams{FranchisorID: franchisorID, Name: "B"})
	c, _ := svc.CreateStage(ctx, repository.CreateStageParams{FranchisorID: franchisorID, Name: "C"})

	reordered, err := svc.ReorderStages(ctx, franchisorID, []uuid.UUID{c.ID})
	require.NoError(t, err)
	require.Len(t, reordered, 3)

	names := make([]string, 0, len(reordered))
	for i, st := range reordered {
		assert.Equal(t, i, st.Position)
		names = append(names, st.Name)
	}
	assert.Equal(t, []string{"C", "A", "B"}, names)
	assert.Equal(t, 1, repo.stages[a.ID].Position)
}

func TestChangeStage(t *testing.T) {
	ctx := context.Background()
	franchisorID, actorID := uuid.New(), uuid.New()

	setup := func() (*Service, *memRepo, repository.Stage, repository.Stage, uuid.UUID) {
		repo := newMemRepo()
		svc := newTestService(repo)
		from, _ := svc.CreateStage(ctx, repository.CreateStageParams{FranchisorID: franchisorID, Name: "New Lead"})
		to, _ := svc.CreateStage(ctx, repository.CreateStageParams{FranchisorID: franchisorID, Name: "Qualified"})
		leadID := uuid.New()
		repo.leads[leadID] = &repository.Lead{ID: leadID, FranchisorID: franchisorID}
		return svc, repo, from, to, leadID
	}

	t.Run("records dwell time", func(t *testing.T) {
		svc, repo, from, to, leadID := setup()
		now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
		svc.now = func() time.Time { return now }
		changedAt := now.Add(-90*time.Minute - 500*time.Millisecond)
		repo.leads[leadID].StageID = &from.ID
		repo.leads[leadID].StageChangedAt = &changedAt

		notes := "  called them  "
		res, err := svc.ChangeStage(ctx, franchisorID, actorID, leadID, to.ID, &notes)
		require.NoError(t, err)
		assert.Equal(t, "Lead moved to Qualified", res.Message)
		assert.Equal(t, to.ID, *res.Lead.StageID)

		require.Len(t, repo.history, 1)
		h := repo.history[0]
		assert.Equal(t, from.ID, *h.FromStageID)
		assert.Equal(t, int64(5400), *h.TimeInPreviousStage)
		assert.Equal(t, "called them", *h.Notes)
		assert.Equal(t, actorID, h.ChangedBy)
	})

	t.Run("first assignment has no dwell time", func(t *testing.T) {
		svc, repo, _, to, leadID := setup()
		_, err := svc.ChangeStage(ctx, franchisorID, actorID, leadID, to.ID, nil)
		require.NoError(t, err)
		require.Len(t, repo.history, 1)
		assert.Nil(t, repo.history[0].FromStageID)
		assert.Nil(t, repo.history[0].TimeInPreviousStage)
	})

	t.Run("same stage is a no-op", func(t *testing.T) {
		svc, repo, from, _, leadID := setup()
		repo.leads[leadID].StageID = &from.ID
		res, err := svc.ChangeStage(ctx, franchisorID, actorID, leadID, from.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, "Lead moved to New Lead", res.Message)
		assert.Empty(t, repo.history)
	})

	t.Run("cross tenant lead", func(t *testing.T) {
		svc, repo, _, to, leadID := setup()
		repo.leads[leadID].FranchisorID = uuid.New()
		_, err := svc.ChangeStage(ctx, franchisorID, actorID, leadID, to.ID, nil)
		assert.True(t, apperr.Is(err, apperr.KindForbidden))
		assert.Empty(t, repo.history)
	})

	t.Run("cross tenant stage", func(t *testing.T) {
		svc, repo, _, _, leadID := setup()
		foreign, _ := svc.CreateStage(ctx, repository.CreateStageParams{FranchisorID: uuid.New(), Name: "Elsewhere"})
		_, err := svc.ChangeStage(ctx, franchisorID, actorID, leadID, foreign.ID, nil)
		assert.True(t, apperr.Is(err, apperr.KindForbidden))
		assert.Empty(t, repo.history)
	})

	t.Run("unknown lead", func(t *testing.T) {
		svc, _, _, to, _ := setup()
		_, err := svc.ChangeStage(ctx, franchisorID, actorID, uuid.New(), to.ID, nil)
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})
}

func TestDefaultStagesParse(t *testing.T) {
	seeds, err := DefaultStages()
	require.NoError(t, err)
	require.NotEmpty(t, seeds)
	assert.Equal(t, "New Lead", seeds[0].Name)
	assert.True(t, seeds[0].IsDefault)
	for _, s := range seeds {
		assert.NotEmpty(t, s.Color)
	}
}

func flagOn(v *bool) bool { return v != nil && *v }

func TestDefaultStageID(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	franchisorID := uuid.New()

	id, err := svc.DefaultStageID(ctx, franchisorID)
	require.NoError(t, err)
	require.NotNil(t, id)
	stage, err := repo.GetStage(ctx, *id)
	require.NoError(t, err)
	assert.True(t, stage.IsDefault)

	_, err = svc.UpdateStage(ctx, franchisorID, *id, repository.UpdateStageParams{IsDefault: boolPtr(false)})
	require.NoError(t, err)
	id, err = svc.DefaultStageID(ctx, franchisorID)
	require.NoError(t, err)
	assert.Nil(t, id)
}
