package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fddhub/internal/events"
	"fddhub/internal/pipeline/repository"
	"fddhub/platform/apperr"
	"fddhub/platform/logger"

	"github.com/google/uuid"
)

const (
	msgStageNameRequired = "Stage name is required"
	msgStageIDsRequired  = "stageIds array is required"
	msgForeignStages     = "Some stages not found or don't belong to you"
	msgLeadForeign       = "Lead does not belong to your organization"
	msgStageForeign      = "Stage does not belong to your organization"
	msgStageNotFound     = "Stage not found"
)

// MoveResult is returned by ChangeStage.
type MoveResult struct {
	Lead    repository.Lead
	Stage   repository.Stage
	Message string
}

type Service struct {
	repo     repository.StageRepository
	eventBus events.Bus
	log      *logger.Logger
	now      func() time.Time
}

func New(repo repository.StageRepository, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, eventBus: eventBus, log: log, now: time.Now}
}

// ListStages returns the franchisor's stages, creating the default set the
// first time the pipeline is opened.
func (s *Service) ListStages(ctx context.Context, franchisorID uuid.UUID) ([]repository.Stage, error) {
	stages, err := s.repo.ListStages(ctx, franchisorID)
	if err != nil || len(stages) > 0 {
		return stages, err
	}

	seeds, err := DefaultStages()
	if err != nil {
		return nil, err
	}
	stages, err = s.repo.SeedStages(ctx, franchisorID, seeds)
	if err != nil {
		return nil, err
	}
	s.log.Info("default pipeline stages created", "franchisorId", franchisorID, "count", len(stages))
	return stages, nil
}

func (s *Service) CreateStage(ctx context.Context, params repository.CreateStageParams) (repository.Stage, error) {
	params.Name = strings.TrimSpace(params.Name)
	if params.Name == "" {
		return repository.Stage{}, apperr.Validation(msgStageNameRequired)
	}
	params.Description = trimOptional(params.Description)
	if params.Color == "" {
		params.Color = DefaultColor
	}
	return s.repo.CreateStage(ctx, params)
}

func (s *Service) UpdateStage(ctx context.Context, franchisorID, stageID uuid.UUID, params repository.UpdateStageParams) (repository.Stage, error) {
	if _, err := s.ownedStage(ctx, franchisorID, stageID); err != nil {
		return repository.Stage{}, err
	}

	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if name == "" {
			return repository.Stage{}, apperr.Validation(msgStageNameRequired)
		}
		params.Name = &name
	}
	if params.Description != nil {
		params.Description = trimOptional(params.Description)
		params.ClearDesc = params.Description == nil
	}
	return s.repo.UpdateStage(ctx, stageID, params)
}

// DeleteStage refuses while leads still sit in the stage.
func (s *Service) DeleteStage(ctx context.Context, franchisorID, stageID uuid.UUID) error {
	if _, err := s.ownedStage(ctx, franchisorID, stageID); err != nil {
		return err
	}

	count, err := s.repo.CountLeadsInStage(ctx, stageID)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperr.Conflict(fmt.Sprintf("Cannot delete stage with %d lead(s). Move leads to another stage first.", count)).
			WithDetails(map[string]int{"leadCount": count})
	}
	return s.repo.DeleteStage(ctx, franchisorID, stageID)
}

// ReorderStages assigns positions in the given order. Unlisted stages follow
// in their current order so positions stay dense.
func (s *Service) ReorderStages(ctx context.Context, franchisorID uuid.UUID, stageIDs []uuid.UUID) ([]repository.Stage, error) {
	if len(stageIDs) == 0 {
		return nil, apperr.Validation(msgStageIDsRequired)
	}

	stages, err := s.repo.ListStages(ctx, franchisorID)
	if err != nil {
		return nil, err
	}
	owned := make(map[uuid.UUID]struct{}, len(stages))
	for _, st := range stages {
		owned[st.ID] = struct{}{}
	}
	seen := make(map[uuid.UUID]struct{}, len(stageIDs))
	for _, id := range stageIDs {
		if _, ok := owned[id]; !ok {
			return nil, apperr.Validation(msgForeignStages)
		}
		if _, dup := seen[id]; dup {
			return nil, apperr.Validation(msgForeignStages)
		}
		seen[id] = struct{}{}
	}

	// Stages missing from the request keep their relative order after the listed ones.
	order := make([]uuid.UUID, 0, len(stages))
	order = append(order, stageIDs...)
	for _, st := range stages {
		if _, ok := seen[st.ID]; !ok {
			order = append(order, st.ID)
		}
	}
	return s.repo.ReorderStages(ctx, franchisorID, order)
}

// ChangeStage moves a lead to stageID. Moving to the current stage succeeds
// without writing history.
func (s *Service) ChangeStage(ctx context.Context, franchisorID, actorID, leadID, stageID uuid.UUID, notes *string) (MoveResult, error) {
	lead, err := s.repo.GetLead(ctx, leadID)
	if err != nil {
		return MoveResult{}, err
	}
	if lead.FranchisorID != franchisorID {
		return MoveResult{}, apperr.Forbidden(msgLeadForeign)
	}

	stage, err := s.repo.GetStage(ctx, stageID)
	if err != nil {
		return MoveResult{}, err
	}
	if stage.FranchisorID != franchisorID {
		return MoveResult{}, apperr.Forbidden(msgStageForeign)
	}

	result := MoveResult{Lead: lead, Stage: stage, Message: "Lead moved to " + stage.Name}
	if lead.StageID != nil && *lead.StageID == stageID {
		return result, nil
	}

	now := s.now()
	var dwell *int64
	if lead.StageChangedAt != nil {
		seconds := int64(now.Sub(*lead.StageChangedAt) / time.Second)
		dwell = &seconds
	}

	moved, err := s.repo.MoveLead(ctx, repository.MoveLeadParams{
		LeadID:              leadID,
		FromStageID:         lead.StageID,
		ToStageID:           stageID,
		ChangedBy:           actorID,
		Notes:               trimOptional(notes),
		TimeInPreviousStage: dwell,
		ChangedAt:           now,
	})
	if err != nil {
		return MoveResult{}, err
	}
	result.Lead = moved

	s.eventBus.Publish(ctx, events.LeadStageChanged{
		BaseEvent:    events.NewBaseEvent(),
		LeadID:       leadID,
		FranchisorID: franchisorID,
		FromStageID:  lead.StageID,
		ToStageID:    stageID,
		ToStageName:  stage.Name,
		ChangedBy:    actorID,
	})
	s.log.Info("lead stage changed", "leadId", leadID, "stageId", stageID)
	return result, nil
}

func (s *Service) ListHistory(ctx context.Context, franchisorID, leadID uuid.UUID) ([]repository.HistoryEntry, error) {
	lead, err := s.repo.GetLead(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if lead.FranchisorID != franchisorID {
		return nil, apperr.Forbidden(msgLeadForeign)
	}
	return s.repo.ListHistory(ctx, leadID)
}

func (s *Service) ownedStage(ctx context.Context, franchisorID, stageID uuid.UUID) (repository.Stage, error) {
	stage, err := s.repo.GetStage(ctx, stageID)
	if err != nil {
		return repository.Stage{}, err
	}
	if stage.FranchisorID != franchisorID {
		return repository.Stage{}, apperr.NotFound(msgStageNotFound)
	}
	return stage, nil
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// DefaultStageID returns the stage new leads start in, or nil when the
// franchisor has not marked one.
func (s *Service) DefaultStageID(ctx context.Context, franchisorID uuid.UUID) (*uuid.UUID, error) {
	stages, err := s.ListStages(ctx, franchisorID)
	if err != nil {
		return nil, err
	}
	for _, st := range stages {
		if st.IsDefault {
			id := st.ID
			return &id, nil
		}
	}
	return nil, nil
}
