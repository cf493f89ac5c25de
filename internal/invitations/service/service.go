package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"fddhub/internal/auth"
	"fddhub/internal/auth/password"
	authrepo "fddhub/internal/auth/repository"
	"fddhub/internal/auth/token"
	"fddhub/internal/events"
	franchisorsrepo "fddhub/internal/franchisors/repository"
	"fddhub/internal/invitations/repository"
	"fddhub/platform/apperr"
	"fddhub/platform/config"
	"fddhub/platform/db"
	"fddhub/platform/logger"
	"fddhub/platform/phone"
	"fddhub/platform/sanitize"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

// ValidFor is how long an invitation link stays usable.
const ValidFor = 14 * 24 * time.Hour

const (
	tokenBytes    = 32
	defaultSource = "Direct Inquiry"
	qrSize        = 256
)

const (
	msgInvalidToken = "Invalid invitation token"
	msgExpired      = "Invitation expired"
	msgSagaExpired  = "Invitation has expired"
	msgAlreadyUsed  = "Invitation has already been used"
)

// Signup saga steps reported on failure.
const (
	StepValidate     = 1
	StepCreateUser   = 2
	StepBuyerProfile = 3
	StepGrantAccess  = 4
	StepMarkSignedUp = 5
)

// Franchises resolves the franchisor's catalog for invitation checks.
type Franchises interface {
	GetFranchise(ctx context.Context, franchisorID, franchiseID uuid.UUID) (franchisorsrepo.Franchise, error)
	GetProfile(ctx context.Context, franchisorID uuid.UUID) (franchisorsrepo.Profile, error)
}

// StageDefaults supplies the pipeline stage new leads start in.
type StageDefaults interface {
	DefaultStageID(ctx context.Context, franchisorID uuid.UUID) (*uuid.UUID, error)
}

type CreateParams struct {
	FranchisorID   uuid.UUID
	ActorID        uuid.UUID
	FranchiseID    uuid.UUID
	LeadEmail      string
	FirstName      string
	LastName       string
	LeadPhone      *string
	Message        *string
	Source         *string
	City           *string
	State          *string
	Timeline       *string
	TargetLocation *string
}

type Created struct {
	Invitation repository.Invitation
	Link       string
}

type AcceptParams struct {
	Password string
	FullName *string
	Phone    *string
}

type AcceptResult struct {
	BuyerID     uuid.UUID
	FranchiseID uuid.UUID
}

// StepError reports which signup step failed. Nothing from earlier steps is
// persisted when it is returned.
type StepError struct {
	Step int
	Err  error
}

func (e *StepError) Error() string { return e.Err.Error() }
func (e *StepError) Unwrap() error { return e.Err }

type Service struct {
	repo       repository.InvitationRepository
	franchises Franchises
	stages     StageDefaults
	accounts   auth.Accounts
	cfg        config.HubConfig
	eventBus   events.Bus
	log        *logger.Logger
	now        func() time.Time
	newToken   func() (string, error)
}

func New(
	repo repository.InvitationRepository,
	franchises Franchises,
	stages StageDefaults,
	accounts auth.Accounts,
	cfg config.HubConfig,
	eventBus events.Bus,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:       repo,
		franchises: franchises,
		stages:     stages,
		accounts:   accounts,
		cfg:        cfg,
		eventBus:   eventBus,
		log:        log,
		now:        time.Now,
		newToken:   func() (string, error) { return token.GenerateHexToken(tokenBytes) },
	}
}

// Link builds the public URL an invitee opens.
func (s *Service) Link(tok string) string {
	return strings.TrimRight(s.cfg.GetAppBaseURL(), "/") + "/hub/invite/" + tok
}

func (s *Service) Create(ctx context.Context, p CreateParams) (Created, error) {
	email := sanitize.Email(p.LeadEmail)
	name := strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
	if email == "" || name == "" {
		return Created{}, apperr.Validation("Missing required fields")
	}

	franchise, err := s.franchises.GetFranchise(ctx, p.FranchisorID, p.FranchiseID)
	if err != nil {
		return Created{}, err
	}

	tok, err := s.newToken()
	if err != nil {
		return Created{}, apperr.Wrap(apperr.KindInternal, "failed to generate invitation token", err)
	}

	stageID, err := s.stages.DefaultStageID(ctx, p.FranchisorID)
	if err != nil {
		s.log.SideEffectFailed("invitations.default_stage", err, "franchisorId", p.FranchisorID)
		stageID = nil
	}

	source := defaultSource
	if p.Source != nil && strings.TrimSpace(*p.Source) != "" {
		source = sanitize.Text(*p.Source)
	}

	sentAt := s.now()
	inv, err := s.repo.Create(ctx, repository.CreateParams{
		FranchisorID:   p.FranchisorID,
		FranchiseID:    franchise.ID,
		LeadEmail:      email,
		LeadName:       sanitize.Text(name),
		LeadPhone:      normalizePhone(p.LeadPhone),
		Token:          tok,
		Message:        sanitize.Optional(p.Message),
		Source:         source,
		City:           sanitize.Optional(p.City),
		State:          sanitize.Optional(p.State),
		Timeline:       sanitize.Optional(p.Timeline),
		TargetLocation: sanitize.Optional(p.TargetLocation),
		SentAt:         sentAt,
		ExpiresAt:      sentAt.Add(ValidFor),
		StageID:        stageID,
		CreatedBy:      p.ActorID,
	})
	if err != nil {
		return Created{}, err
	}

	link := s.Link(inv.Token)
	event := events.InvitationSent{
		BaseEvent:      events.NewBaseEvent(),
		InvitationID:   inv.ID,
		FranchisorID:   inv.FranchisorID,
		FranchiseID:    inv.FranchiseID,
		FranchiseName:  franchise.Name,
		LeadEmail:      inv.LeadEmail,
		LeadName:       inv.LeadName,
		InvitationLink: link,
		ExpiresAt:      inv.ExpiresAt,
	}
	if inv.Message != nil {
		event.Message = *inv.Message
	}
	if profile, err := s.franchises.GetProfile(ctx, p.FranchisorID); err == nil {
		event.CompanyName = profile.CompanyName
	}
	s.eventBus.Publish(ctx, event)

	s.log.Info("invitation created", "invitationId", inv.ID, "franchiseId", inv.FranchiseID, "stageAssigned", stageID != nil)
	return Created{Invitation: inv, Link: link}, nil
}

func (s *Service) List(ctx context.Context, franchisorID uuid.UUID) ([]repository.Invitation, error) {
	return s.repo.List(ctx, franchisorID)
}

// QRCode renders the invitation link as a PNG.
func (s *Service) QRCode(ctx context.Context, franchisorID, id uuid.UUID) ([]byte, error) {
	inv, err := s.repo.GetByID(ctx, franchisorID, id)
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(s.Link(inv.Token), qrcode.Medium, qrSize)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to render QR code", err)
	}
	return png, nil
}

// Resolve is the public token lookup. An open invitation past its window is
// persisted as expired and reported as Expired; the first view of a sent
// invitation moves it to viewed.
func (s *Service) Resolve(ctx context.Context, tok string) (repository.PublicView, error) {
	view, err := s.repo.GetPublicView(ctx, tok)
	if err != nil {
		return repository.PublicView{}, err
	}

	now := s.now()
	if view.Status == repository.StatusExpired {
		return repository.PublicView{}, apperr.Expired(msgExpired)
	}
	if view.Status != repository.StatusSignedUp && now.After(view.ExpiresAt) {
		if err := s.repo.MarkExpired(ctx, view.ID); err != nil {
			return repository.PublicView{}, err
		}
		s.log.Info("invitation expired on view", "invitationId", view.ID)
		return repository.PublicView{}, apperr.Expired(msgExpired)
	}

	if view.Status == repository.StatusSent {
		if err := s.repo.MarkViewed(ctx, view.ID, now); err != nil {
			return repository.PublicView{}, err
		}
		view.Status = repository.StatusViewed
		view.ViewedAt = &now
	}
	return view, nil
}

// Accept runs the signup saga for tok inside one transaction: validate,
// create the account, create the buyer profile, grant FDD access, mark the
// invitation signed up.
func (s *Service) Accept(ctx context.Context, tok string, p AcceptParams) (AcceptResult, error) {
	now := s.now()
	var (
		inv     repository.Invitation
		buyerID uuid.UUID
		expired bool
	)
	err := s.repo.WithTx(ctx, func(q db.DBTX) error {
		var err error
		inv, err = s.repo.LockByToken(ctx, q, tok)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				err = apperr.NotFound(msgInvalidToken)
			}
			return &StepError{Step: StepValidate, Err: err}
		}
		if inv.Used() {
			return &StepError{Step: StepValidate, Err: apperr.Conflict(msgAlreadyUsed)}
		}
		if inv.Status == repository.StatusExpired || now.After(inv.ExpiresAt) {
			expired = inv.Status != repository.StatusExpired
			return &StepError{Step: StepValidate, Err: apperr.Expired(msgSagaExpired)}
		}
		if len(p.Password) < password.MinLength {
			return &StepError{Step: StepValidate, Err: apperr.Validation("Password must be at least 8 characters")}
		}

		hash, err := password.Hash(p.Password)
		if err != nil {
			return &StepError{Step: StepCreateUser, Err: apperr.Wrap(apperr.KindInternal, "failed to hash password", err)}
		}
		fullName := inv.LeadName
		if p.FullName != nil && strings.TrimSpace(*p.FullName) != "" {
			fullName = sanitize.Text(*p.FullName)
		}
		user, err := s.accounts.CreateUser(ctx, q, inv.LeadEmail, hash, &fullName, authrepo.RoleBuyer)
		if err != nil {
			return &StepError{Step: StepCreateUser, Err: err}
		}
		if err := s.accounts.UpsertRole(ctx, q, user.ID, authrepo.RoleBuyer); err != nil {
			return &StepError{Step: StepCreateUser, Err: err}
		}

		first, last := splitName(fullName)
		phoneNumber := normalizePhone(p.Phone)
		if phoneNumber == nil {
			phoneNumber = inv.LeadPhone
		}
		buyerID, err = s.repo.CreateBuyerProfile(ctx, q, repository.BuyerProfileParams{
			UserID:    user.ID,
			Email:     inv.LeadEmail,
			FirstName: first,
			LastName:  last,
			Phone:     phoneNumber,
			City:      inv.City,
			State:     inv.State,
		})
		if err != nil {
			return &StepError{Step: StepBuyerProfile, Err: err}
		}

		if err := s.repo.GrantAccess(ctx, q, repository.GrantParams{
			BuyerID:      buyerID,
			FranchiseID:  inv.FranchiseID,
			FranchisorID: inv.FranchisorID,
			InvitationID: inv.ID,
		}); err != nil {
			return &StepError{Step: StepGrantAccess, Err: err}
		}

		if err := s.repo.MarkSignedUp(ctx, q, inv.ID, buyerID, now); err != nil {
			return &StepError{Step: StepMarkSignedUp, Err: err}
		}
		return nil
	})
	if err != nil {
		if expired {
			if markErr := s.repo.MarkExpired(ctx, inv.ID); markErr != nil {
				s.log.SideEffectFailed("invitations.mark_expired", markErr, "invitationId", inv.ID)
			}
		}
		s.log.Warn("invitation signup failed", "invitationId", inv.ID, "step", StepOf(err), "error", err)
		return AcceptResult{}, err
	}

	s.eventBus.Publish(ctx, events.InvitationAccepted{
		BaseEvent:    events.NewBaseEvent(),
		InvitationID: inv.ID,
		FranchisorID: inv.FranchisorID,
		FranchiseID:  inv.FranchiseID,
		BuyerID:      buyerID,
		LeadName:     inv.LeadName,
	})
	s.log.Info("invitation accepted", "invitationId", inv.ID, "buyerId", buyerID)
	return AcceptResult{BuyerID: buyerID, FranchiseID: inv.FranchiseID}, nil
}

// ExpireOverdue is run by the scheduler.
func (s *Service) ExpireOverdue(ctx context.Context) (int64, error) {
	n, err := s.repo.ExpireOverdue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("expired overdue invitations", "count", n)
	}
	return n, nil
}

// StepOf returns the saga step carried by err, or -1 when the failure was
// outside any step.
func StepOf(err error) int {
	var se *StepError
	if errors.As(err, &se) {
		return se.Step
	}
	return -1
}

func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func normalizePhone(v *string) *string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	n := phone.NormalizeE164(*v)
	return &n
}
