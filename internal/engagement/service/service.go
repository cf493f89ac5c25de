package service

import (
	"context"

	"fddhub/internal/engagement/repository"
	"fddhub/internal/events"
	"fddhub/platform/apperr"
	"fddhub/platform/logger"

	"github.com/google/uuid"
)

// Report is a tracking call as received from a viewer.
type Report struct {
	FranchiseID uuid.UUID
	Update      repository.Update
	NewSession  bool
}

type Service struct {
	repo     repository.EngagementRepository
	eventBus events.Bus
	log      *logger.Logger
}

func New(repo repository.EngagementRepository, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, eventBus: eventBus, log: log}
}

// Track merges a report into the caller's engagement record. Tracking never
// blocks document viewing: when the buyer cannot be resolved or storage
// fails, the failure is logged and nil is returned.
func (s *Service) Track(ctx context.Context, userID uuid.UUID, report Report) *repository.Engagement {
	if userID == uuid.Nil || report.FranchiseID == uuid.Nil {
		return nil
	}

	buyer, err := s.repo.GetBuyerByUserID(ctx, userID)
	if err != nil {
		if !apperr.Is(err, apperr.KindNotFound) {
			s.log.SideEffectFailed("engagement.resolve_buyer", err, "userId", userID)
		}
		return nil
	}

	var prior *repository.Engagement
	if existing, err := s.repo.Get(ctx, buyer.ID, report.FranchiseID); err == nil {
		prior = &existing
	} else if !apperr.Is(err, apperr.KindNotFound) {
		s.log.SideEffectFailed("engagement.load", err, "buyerId", buyer.ID)
	}

	merged, err := s.repo.Upsert(ctx, buyer.ID, report.FranchiseID, report.Update)
	if err != nil {
		s.log.SideEffectFailed("engagement.upsert", err, "buyerId", buyer.ID, "franchiseId", report.FranchiseID)
		return nil
	}

	if err := s.repo.RecordAccessView(ctx, buyer.ID, report.FranchiseID, merged.TimeSpent, report.NewSession); err != nil {
		s.log.SideEffectFailed("engagement.access_counters", err, "buyerId", buyer.ID)
	}

	if IsHot(&merged) && !IsHot(prior) {
		s.eventBus.Publish(ctx, events.HighEngagementReached{
			BaseEvent:     events.NewBaseEvent(),
			BuyerID:       buyer.ID,
			FranchiseID:   report.FranchiseID,
			TimeSpent:     merged.TimeSpent,
			ViewedItems:   len(merged.ViewedItems),
			QuestionCount: len(merged.QuestionsList),
		})
	}

	return &merged
}

// RecordQuestion appends a question the buyer asked about the franchise.
func (s *Service) RecordQuestion(ctx context.Context, userID, franchiseID uuid.UUID, question string) {
	questions := CleanStrings([]string{question})
	if len(questions) == 0 {
		return
	}
	s.Track(ctx, userID, Report{
		FranchiseID: franchiseID,
		Update:      repository.Update{Questions: questions},
	})
}

// Get returns the caller's record, or nil when there is none yet.
func (s *Service) Get(ctx context.Context, userID, franchiseID uuid.UUID) (*repository.Engagement, error) {
	buyer, err := s.repo.GetBuyerByUserID(ctx, userID)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	e, err := s.repo.Get(ctx, buyer.ID, franchiseID)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}
