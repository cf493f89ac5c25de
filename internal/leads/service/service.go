package service

import (
	"context"

	"fddhub/internal/leads/repository"
	"fddhub/internal/leads/scoring"
	pipelinerepo "fddhub/internal/pipeline/repository"
	"fddhub/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// HistoryReader supplies a lead's stage log; the pipeline context owns it.
type HistoryReader interface {
	ListHistory(ctx context.Context, franchisorID, leadID uuid.UUID) ([]pipelinerepo.HistoryEntry, error)
}

// ScoredLead pairs a lead with its quality score.
type ScoredLead struct {
	repository.Lead
	Score scoring.Score
}

// Detail is the single-lead view.
type Detail struct {
	ScoredLead
	Engagements []repository.Engagement
	History     []pipelinerepo.HistoryEntry
}

type Service struct {
	repo    repository.LeadReader
	history HistoryReader
	log     *logger.Logger
}

func New(repo repository.LeadReader, history HistoryReader, log *logger.Logger) *Service {
	return &Service{repo: repo, history: history, log: log}
}

func (s *Service) List(ctx context.Context, params repository.ListParams) ([]ScoredLead, error) {
	leads, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, err
	}
	out := make([]ScoredLead, 0, len(leads))
	for _, l := range leads {
		out = append(out, ScoredLead{Lead: l, Score: scoring.ComputeScore(ScoreInput(l))})
	}
	return out, nil
}

// Get loads one lead, then its engagements and stage history in parallel.
func (s *Service) Get(ctx context.Context, franchisorID, leadID uuid.UUID) (Detail, error) {
	lead, err := s.repo.Get(ctx, franchisorID, leadID)
	if err != nil {
		return Detail{}, err
	}

	detail := Detail{
		ScoredLead:  ScoredLead{Lead: lead, Score: scoring.ComputeScore(ScoreInput(lead))},
		Engagements: []repository.Engagement{},
	}

	g, gctx := errgroup.WithContext(ctx)
	if lead.Buyer != nil {
		buyerID := lead.Buyer.ID
		g.Go(func() error {
			items, err := s.repo.ListBuyerEngagements(gctx, franchisorID, buyerID)
			if err != nil {
				return err
			}
			detail.Engagements = items
			return nil
		})
	}
	g.Go(func() error {
		entries, err := s.history.ListHistory(gctx, franchisorID, leadID)
		if err != nil {
			return err
		}
		detail.History = entries
		return nil
	})
	if err := g.Wait(); err != nil {
		return Detail{}, err
	}
	return detail, nil
}

// ScoreInput builds the scorer input for a lead from its own franchise's
// engagement and access grant, so list and detail always agree.
func ScoreInput(l repository.Lead) scoring.Input {
	in := scoring.Input{Verified: l.Access != nil}
	if l.Access != nil {
		in.SessionCount = l.Access.TotalViews
	}
	if e := l.Engagement; e != nil {
		in.Engagements = []scoring.Engagement{{
			TimeSpentSeconds: e.TimeSpent,
			QuestionCount:    len(e.QuestionsList),
			SectionsViewed:   e.SectionsViewed,
			ViewedItems:      e.ViewedItems,
		}}
	}
	return in
}
