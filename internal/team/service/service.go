package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	"fddhub/internal/auth"
	"fddhub/internal/auth/password"
	authrepo "fddhub/internal/auth/repository"
	"fddhub/internal/auth/token"
	"fddhub/internal/events"
	"fddhub/internal/team/repository"
	"fddhub/platform/apperr"
	"fddhub/platform/config"
	"fddhub/platform/db"
	"fddhub/platform/logger"
	"fddhub/platform/sanitize"

	"github.com/google/uuid"
)

const (
	tokenBytes         = 32
	defaultCompanyName = "Your organization"
)

const (
	msgOnlyManagers       = "Only owners and admins can invite team members"
	msgInvalidRole        = "Invalid role. Must be: admin, recruiter, or viewer"
	msgOwnerRole          = "Cannot change owner role"
	msgOwnerPromotes      = "Only owner can promote to admin"
	msgAdminOnAdmin       = "Admins cannot change other admin roles"
	msgNoRoleRights       = "Not authorized to change roles"
	msgOwnerDeactivate    = "Cannot deactivate owner"
	msgSelfDeactivate     = "Cannot deactivate yourself"
	msgNoStatusRights     = "Not authorized to change status"
	msgNoSettingsRights   = "Not authorized to change notification settings"
	msgNoFields           = "No fields to update"
	msgRemoveOwner        = "Cannot remove owner from team"
	msgRemoveSelf         = "Cannot remove yourself from team"
	msgAdminRemovesAdmin  = "Admins cannot remove other admins"
	msgNoRemoveRights     = "Not authorized to remove team members"
	msgOnlyManagersResend = "Only owners and admins can resend invitations"
	msgAlreadyAccepted    = "This invitation has already been accepted"
	msgResendAccepted     = "This team member has already accepted their invitation"
	msgResendDeactivated  = "This team member has been deactivated"
	msgNoLongerValid      = "This invitation is no longer valid"
)

var invitableRoles = map[string]bool{
	repository.RoleAdmin:     true,
	repository.RoleRecruiter: true,
	repository.RoleViewer:    true,
}

// Caller is the authenticated franchisor member acting on the team.
type Caller struct {
	UserID       uuid.UUID
	FranchisorID uuid.UUID
	Role         string
}

func (c Caller) isOwner() bool { return c.Role == repository.RoleOwner }
func (c Caller) isAdmin() bool { return c.Role == repository.RoleAdmin }

// CanManage reports whether the caller administers the team.
func (c Caller) CanManage() bool { return c.isOwner() || c.isAdmin() }

type InviteParams struct {
	Email    string
	FullName string
	Role     string
}

type Invited struct {
	Member      repository.Member
	Reactivated bool
}

// Resolution is the outcome of looking up a team invitation token.
type Resolution struct {
	Invite          repository.Invite
	Valid           bool
	Reason          string
	AlreadyAccepted bool
}

type Accepted struct {
	Member      repository.Member
	CompanyName string
}

type Service struct {
	repo     repository.TeamRepository
	accounts auth.Accounts
	cfg      config.HubConfig
	eventBus events.Bus
	log      *logger.Logger
	now      func() time.Time
	newToken func() (string, error)
}

func New(repo repository.TeamRepository, accounts auth.Accounts, cfg config.HubConfig, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		accounts: accounts,
		cfg:      cfg,
		eventBus: eventBus,
		log:      log,
		now:      time.Now,
		newToken: func() (string, error) { return token.GenerateHexToken(tokenBytes) },
	}
}

// AcceptLink is the public signup page URL for a raw token.
func (s *Service) AcceptLink(raw string) string {
	return strings.TrimRight(s.cfg.GetAppBaseURL(), "/") + "/team-signup?token=" + url.QueryEscape(raw)
}

// List returns the whole team to owners and admins, and only their own seat
// to everyone else.
func (s *Service) List(ctx context.Context, caller Caller) ([]repository.Member, error) {
	members, err := s.repo.List(ctx, caller.FranchisorID)
	if err != nil {
		return nil, err
	}
	if caller.CanManage() {
		return members, nil
	}
	own := make([]repository.Member, 0, 1)
	for _, m := range members {
		if m.UserID != nil && *m.UserID == caller.UserID {
			own = append(own, m)
		}
	}
	return own, nil
}

// Invite creates a pending seat, or reactivates a deactivated one with a
// fresh token. An active seat with the same email is a conflict.
func (s *Service) Invite(ctx context.Context, caller Caller, p InviteParams) (Invited, error) {
	if !caller.CanManage() {
		return Invited{}, apperr.Forbidden(msgOnlyManagers)
	}
	email := sanitize.Email(p.Email)
	fullName := sanitize.Text(p.FullName)
	if email == "" || fullName == "" || p.Role == "" {
		return Invited{}, apperr.BadRequest("Missing required fields: email, full_name, role")
	}
	if !invitableRoles[p.Role] {
		return Invited{}, apperr.BadRequest(msgInvalidRole)
	}

	raw, hash, err := s.issueToken()
	if err != nil {
		return Invited{}, err
	}
	params := repository.CreateParams{
		FranchisorID:  caller.FranchisorID,
		Email:         email,
		FullName:      fullName,
		Role:          p.Role,
		TokenHash:     hash,
		InvitedAt:     s.now(),
		InviterUserID: caller.UserID,
	}

	var (
		member      repository.Member
		reactivated bool
	)
	existing, err := s.repo.GetByEmail(ctx, caller.FranchisorID, email)
	switch {
	case err == nil && existing.IsActive:
		return Invited{}, apperr.Conflict("A team member with this email already exists")
	case err == nil:
		member, err = s.repo.Reinvite(ctx, existing.ID, params)
		reactivated = true
	case apperr.Is(err, apperr.KindNotFound):
		member, err = s.repo.Create(ctx, params)
	}
	if err != nil {
		return Invited{}, err
	}

	s.publishInvite(ctx, caller, member, raw)
	s.log.Info("team member invited", "memberId", member.ID, "franchisorId", caller.FranchisorID, "reactivated", reactivated)
	return Invited{Member: member, Reactivated: reactivated}, nil
}

// Resend rotates the token of a pending seat and emails it again.
func (s *Service) Resend(ctx context.Context, caller Caller, id uuid.UUID) (repository.Member, error) {
	member, err := s.repo.GetByID(ctx, caller.FranchisorID, id)
	if err != nil {
		return repository.Member{}, err
	}
	if member.AcceptedAt != nil {
		return repository.Member{}, apperr.BadRequest(msgResendAccepted)
	}
	if !member.IsActive {
		return repository.Member{}, apperr.BadRequest(msgResendDeactivated)
	}
	if !caller.CanManage() {
		return repository.Member{}, apperr.Forbidden(msgOnlyManagersResend)
	}

	raw, hash, err := s.issueToken()
	if err != nil {
		return repository.Member{}, err
	}
	at := s.now()
	if err := s.repo.RefreshToken(ctx, member.ID, hash, at); err != nil {
		return repository.Member{}, err
	}
	member.InvitedAt = at

	s.publishInvite(ctx, caller, member, raw)
	return member, nil
}

// Update changes a seat's role, active flag or notification opt-in.
func (s *Service) Update(ctx context.Context, caller Caller, id uuid.UUID, p repository.UpdateParams) (repository.Member, error) {
	if p.Role == nil && p.IsActive == nil && p.ReceivesNotifications == nil {
		return repository.Member{}, apperr.BadRequest(msgNoFields)
	}
	target, err := s.repo.GetByID(ctx, caller.FranchisorID, id)
	if err != nil {
		return repository.Member{}, err
	}
	isSelf := target.UserID != nil && *target.UserID == caller.UserID

	if p.Role != nil {
		switch {
		case !invitableRoles[*p.Role]:
			return repository.Member{}, apperr.BadRequest(msgInvalidRole)
		case target.Role == repository.RoleOwner:
			return repository.Member{}, apperr.Forbidden(msgOwnerRole)
		case *p.Role == repository.RoleAdmin && !caller.isOwner():
			return repository.Member{}, apperr.Forbidden(msgOwnerPromotes)
		case caller.isAdmin() && target.Role == repository.RoleAdmin:
			return repository.Member{}, apperr.Forbidden(msgAdminOnAdmin)
		case !caller.CanManage():
			return repository.Member{}, apperr.Forbidden(msgNoRoleRights)
		}
	}
	if p.IsActive != nil {
		switch {
		case target.Role == repository.RoleOwner && !*p.IsActive:
			return repository.Member{}, apperr.Forbidden(msgOwnerDeactivate)
		case isSelf && !*p.IsActive:
			return repository.Member{}, apperr.Forbidden(msgSelfDeactivate)
		case !caller.CanManage():
			return repository.Member{}, apperr.Forbidden(msgNoStatusRights)
		}
	}
	if p.ReceivesNotifications != nil && !isSelf && !caller.CanManage() {
		return repository.Member{}, apperr.Forbidden(msgNoSettingsRights)
	}

	return s.repo.Update(ctx, caller.FranchisorID, id, p)
}

// Deactivate removes a seat from the team without deleting its history.
func (s *Service) Deactivate(ctx context.Context, caller Caller, id uuid.UUID) (repository.Member, error) {
	target, err := s.repo.GetByID(ctx, caller.FranchisorID, id)
	if err != nil {
		return repository.Member{}, err
	}
	switch {
	case target.Role == repository.RoleOwner:
		return repository.Member{}, apperr.Forbidden(msgRemoveOwner)
	case target.UserID != nil && *target.UserID == caller.UserID:
		return repository.Member{}, apperr.Forbidden(msgRemoveSelf)
	case caller.isAdmin() && target.Role == repository.RoleAdmin:
		return repository.Member{}, apperr.Forbidden(msgAdminRemovesAdmin)
	case !caller.CanManage():
		return repository.Member{}, apperr.Forbidden(msgNoRemoveRights)
	}

	inactive := false
	member, err := s.repo.Update(ctx, caller.FranchisorID, id, repository.UpdateParams{IsActive: &inactive})
	if err != nil {
		return repository.Member{}, err
	}
	s.log.Info("team member deactivated", "memberId", id, "franchisorId", caller.FranchisorID)
	return member, nil
}

// Resolve looks up a raw token for the public accept page. Used or revoked
// tokens resolve with Valid false rather than an error.
func (s *Service) Resolve(ctx context.Context, raw string) (Resolution, error) {
	if strings.TrimSpace(raw) == "" {
		return Resolution{}, apperr.BadRequest("Missing token")
	}
	inv, err := s.repo.GetInvite(ctx, token.HashSHA256(raw))
	if err != nil {
		return Resolution{}, err
	}
	switch {
	case inv.AcceptedAt != nil:
		return Resolution{Invite: inv, Reason: msgAlreadyAccepted, AlreadyAccepted: true}, nil
	case !inv.IsActive:
		return Resolution{Invite: inv, Reason: msgNoLongerValid}, nil
	}
	if inv.InvitedByName == "" {
		inv.InvitedByName = defaultCompanyName
	}
	return Resolution{Invite: inv, Valid: true}, nil
}

// Accept links the seat to an existing account with the invited email, or
// creates one with pw, then grants the franchisor role. All writes share
// one transaction.
func (s *Service) Accept(ctx context.Context, raw, pw string) (Accepted, error) {
	if strings.TrimSpace(raw) == "" || pw == "" {
		return Accepted{}, apperr.BadRequest("Missing required fields: token, password")
	}
	if len(pw) < password.MinLength {
		return Accepted{}, apperr.BadRequest("Password must be at least 8 characters")
	}

	var member repository.Member
	err := s.repo.WithTx(ctx, func(q db.DBTX) error {
		var err error
		member, err = s.repo.LockByToken(ctx, q, token.HashSHA256(raw))
		if err != nil {
			return err
		}
		if member.Accepted() {
			return apperr.BadRequest(msgAlreadyAccepted)
		}
		if !member.IsActive {
			return apperr.BadRequest(msgNoLongerValid)
		}

		user, err := s.accounts.GetUserByEmail(ctx, q, member.Email)
		if apperr.Is(err, apperr.KindNotFound) {
			hash, hashErr := password.Hash(pw)
			if hashErr != nil {
				return apperr.Wrap(apperr.KindInternal, "failed to hash password", hashErr)
			}
			fullName := member.FullName
			user, err = s.accounts.CreateUser(ctx, q, member.Email, hash, &fullName, authrepo.RoleFranchisor)
		}
		if err != nil {
			return err
		}

		now := s.now()
		if err := s.repo.MarkAccepted(ctx, q, member.ID, user.ID, now); err != nil {
			return err
		}
		member.UserID = &user.ID
		member.AcceptedAt = &now
		return s.accounts.UpsertRole(ctx, q, user.ID, authrepo.RoleFranchisor)
	})
	if err != nil {
		s.log.Warn("team invitation accept failed", "memberId", member.ID, "error", err)
		return Accepted{}, err
	}

	company, err := s.repo.CompanyName(ctx, member.FranchisorID)
	if err != nil {
		s.log.SideEffectFailed("team.company_name", err, "franchisorId", member.FranchisorID)
		company = ""
	}
	s.log.Info("team invitation accepted", "memberId", member.ID, "userId", *member.UserID)
	return Accepted{Member: member, CompanyName: company}, nil
}

func (s *Service) issueToken() (string, string, error) {
	raw, err := s.newToken()
	if err != nil {
		return "", "", apperr.Wrap(apperr.KindInternal, "failed to generate invitation token", err)
	}
	return raw, token.HashSHA256(raw), nil
}

func (s *Service) publishInvite(ctx context.Context, caller Caller, member repository.Member, raw string) {
	company, err := s.repo.CompanyName(ctx, caller.FranchisorID)
	if err != nil {
		s.log.SideEffectFailed("team.company_name", err, "franchisorId", caller.FranchisorID)
		company = defaultCompanyName
	}
	inviter, err := s.repo.DisplayName(ctx, caller.UserID)
	if err != nil {
		inviter = company
	}

	s.eventBus.Publish(ctx, events.TeamMemberInvited{
		BaseEvent:   events.NewBaseEvent(),
		MemberID:    member.ID,
		Email:       member.Email,
		FullName:    member.FullName,
		Role:        member.Role,
		CompanyName: company,
		InvitedBy:   inviter,
		AcceptLink:  s.AcceptLink(raw),
	})
}
