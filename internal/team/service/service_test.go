package service

import (
	"context"
	"strings"
	"testing"
	"time"

	authrepo "fddhub/internal/auth/repository"
	"fddhub/internal/auth/token"
	"fddhub/internal/events"
	"fddhub/internal/team/repository"
	"fddhub/platform/apperr"
	"fddhub/platform/db"
	"fddhub/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore backs the team repository and the account store so a failed
// accept rolls both back.
type memStore struct {
	members map[uuid.UUID]repository.Member
	tokens  map[uuid.UUID]string
	users   map[string]authrepo.User
	company string
	markErr error
}

func newMemStore() *memStore {
	return &memStore{
		members: map[uuid.UUID]repository.Member{},
		tokens:  map[uuid.UUID]string{},
		users:   map[string]authrepo.User{},
		company: "Brew Holdings",
	}
}

func (m *memStore) List(_ context.Context, franchisorID uuid.UUID) ([]repository.Member, error) {
	out := make([]repository.Member, 0)
	for _, mem := range m.members {
		if mem.FranchisorID == franchisorID {
			out = append(out, mem)
		}
	}
	return out, nil
}

func (m *memStore) GetByID(_ context.Context, franchisorID, id uuid.UUID) (repository.Member, error) {
	mem, ok := m.members[id]
	if !ok || mem.FranchisorID != franchisorID {
		return repository.Member{}, apperr.NotFound("Team member not found")
	}
	return mem, nil
}

func (m *memStore) GetByEmail(_ context.Context, franchisorID uuid.UUID, email string) (repository.Member, error) {
	for _, mem := range m.members {
		if mem.FranchisorID == franchisorID && strings.EqualFold(mem.Email, email) {
			return mem, nil
		}
	}
	return repository.Member{}, apperr.NotFound("Team member not found")
}

func (m *memStore) Create(_ context.Context, p repository.CreateParams) (repository.Member, error) {
	mem := repository.Member{
		ID:                    uuid.New(),
		FranchisorID:          p.FranchisorID,
		Email:                 p.Email,
		FullName:              p.FullName,
		Role:                  p.Role,
		IsActive:              true,
		InvitedAt:             p.InvitedAt,
		ReceivesNotifications: true,
	}
	m.members[mem.ID] = mem
	m.tokens[mem.ID] = p.TokenHash
	return mem, nil
}

func (m *memStore) Reinvite(_ context.Context, id uuid.UUID, p repository.CreateParams) (repository.Member, error) {
	mem := m.members[id]
	mem.IsActive = true
	mem.Role = p.Role
	mem.FullName = p.FullName
	mem.InvitedAt = p.InvitedAt
	mem.AcceptedAt = nil
	mem.UserID = nil
	m.members[id] = mem
	m.tokens[id] = p.TokenHash
	return mem, nil
}

func (m *memStore) RefreshToken(_ context.Context, id uuid.UUID, tokenHash string, at time.Time) error {
	mem := m.members[id]
	mem.InvitedAt = at
	m.members[id] = mem
	m.tokens[id] = tokenHash
	return nil
}

func (m *memStore) Update(_ context.Context, franchisorID, id uuid.UUID, p repository.UpdateParams) (repository.Member, error) {
	mem, ok := m.members[id]
	if !ok || mem.FranchisorID != franchisorID {
		return repository.Member{}, apperr.NotFound("Team member not found")
	}
	if p.Role != nil {
		mem.Role = *p.Role
	}
	if p.IsActive != nil {
		mem.IsActive = *p.IsActive
	}
	if p.ReceivesNotifications != nil {
		mem.ReceivesNotifications = *p.ReceivesNotifications
	}
	m.members[id] = mem
	return mem, nil
}

func (m *memStore) CompanyName(context.Context, uuid.UUID) (string, error) {
	return m.company, nil
}

func (m *memStore) DisplayName(context.Context, uuid.UUID) (string, error) {
	return "Olivia Owner", nil
}

func (m *memStore) byHash(hash string) (repository.Member, bool) {
	for id, h := range m.tokens {
		if h == hash {
			return m.members[id], true
		}
	}
	return repository.Member{}, false
}

func (m *memStore) GetInvite(_ context.Context, tokenHash string) (repository.Invite, error) {
	mem, ok := m.byHash(tokenHash)
	if !ok {
		return repository.Invite{}, apperr.NotFound("Invalid or expired invitation token")
	}
	return repository.Invite{Member: mem, CompanyName: m.company, InvitedByName: "Olivia Owner"}, nil
}

func (m *memStore) WithTx(_ context.Context, fn func(q db.DBTX) error) error {
	members := make(map[uuid.UUID]repository.Member, len(m.members))
	for k, v := range m.members {
		members[k] = v
	}
	tokens := make(map[uuid.UUID]string, len(m.tokens))
	for k, v := range m.tokens {
		tokens[k] = v
	}
	users := make(map[string]authrepo.User, len(m.users))
	for k, v := range m.users {
		users[k] = v
	}
	if err := fn(nil); err != nil {
		m.members, m.tokens, m.users = members, tokens, users
		return err
	}
	return nil
}

func (m *memStore) LockByToken(_ context.Context, _ db.DBTX, tokenHash string) (repository.Member, error) {
	mem, ok := m.byHash(tokenHash)
	if !ok {
		return repository.Member{}, apperr.NotFound("Invalid or expired invitation token")
	}
	return mem, nil
}

func (m *memStore) MarkAccepted(_ context.Context, _ db.DBTX, id, userID uuid.UUID, at time.Time) error {
	if m.markErr != nil {
		return m.markErr
	}
	mem := m.members[id]
	mem.UserID = &userID
	mem.AcceptedAt = &at
	m.members[id] = mem
	delete(m.tokens, id)
	return nil
}

func (m *memStore) CreateUser(_ context.Context, _ db.DBTX, email, hash string, fullName *string, role string) (authrepo.User, error) {
	u := authrepo.User{ID: uuid.New(), Email: strings.ToLower(email), PasswordHash: hash, FullName: fullName, Role: role}
	m.users[u.Email] = u
	return u, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, _ db.DBTX, email string) (authrepo.User, error) {
	u, ok := m.users[strings.ToLower(email)]
	if !ok {
		return authrepo.User{}, apperr.NotFound("user not found")
	}
	return u, nil
}

func (m *memStore) UpsertRole(_ context.Context, _ db.DBTX, userID uuid.UUID, role string) error {
	for k, u := range m.users {
		if u.ID == userID {
			if u.Role != authrepo.RoleAdmin {
				u.Role = role
			}
			m.users[k] = u
			return nil
		}
	}
	return apperr.NotFound("user not found")
}

type hubConfig string

func (h hubConfig) GetAppBaseURL() string { return string(h) }

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

type fixture struct {
	svc    *Service
	store  *memStore
	bus    *recordingBus
	owner  Caller
	now    time.Time
	tokens []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: newMemStore(),
		bus:   &recordingBus{},
		owner: Caller{UserID: uuid.New(), FranchisorID: uuid.New(), Role: repository.RoleOwner},
		now:   time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC),
	}
	f.svc = New(f.store, f.store, hubConfig("https://hub.example.com/"), f.bus, logger.NewNop())
	f.svc.now = func() time.Time { return f.now }
	f.svc.newToken = func() (string, error) {
		tok := "tok" + string(rune('a'+len(f.tokens)))
		f.tokens = append(f.tokens, tok)
		return tok, nil
	}
	return f
}

func (f *fixture) invite(t *testing.T, email, role string) repository.Member {
	t.Helper()
	invited, err := f.svc.Invite(context.Background(), f.owner, InviteParams{Email: email, FullName: "Sam Recruiter", Role: role})
	require.NoError(t, err)
	return invited.Member
}

func (f *fixture) lastToken() string {
	return f.tokens[len(f.tokens)-1]
}

func bptr(b bool) *bool { return &b }
func sptr(s string) *string { return &s }

func TestInvitePublishesEventWithHashedToken(t *testing.T) {
	f := newFixture(t)

	member := f.invite(t, " Sam@Example.com ", repository.RoleRecruiter)

	assert.Equal(t, "sam@example.com", member.Email)
	assert.Equal(t, repository.StatusPending, member.Status())
	assert.Equal(t, token.HashSHA256(f.lastToken()), f.store.tokens[member.ID])

	require.Len(t, f.bus.published, 1)
	event, ok := f.bus.published[0].(events.TeamMemberInvited)
	require.True(t, ok)
	assert.Equal(t, "https://hub.example.com/team-signup?token="+f.lastToken(), event.AcceptLink)
	assert.Equal(t, "Brew Holdings", event.CompanyName)
	assert.Equal(t, "Olivia Owner", event.InvitedBy)
	assert.Equal(t, repository.RoleRecruiter, event.Role)
}

func TestInviteRules(t *testing.T) {
	f := newFixture(t)
	f.invite(t, "sam@example.com", repository.RoleViewer)

	tests := []struct {
		name   string
		caller Caller
		params InviteParams
		kind   apperr.Kind
	}{
		{"recruiter cannot invite", Caller{FranchisorID: f.owner.FranchisorID, Role: repository.RoleRecruiter},
			InviteParams{Email: "x@example.com", FullName: "X", Role: repository.RoleViewer}, apperr.KindForbidden},
		{"owner role not invitable", f.owner,
			InviteParams{Email: "x@example.com", FullName: "X", Role: repository.RoleOwner}, apperr.KindBadRequest},
		{"missing name", f.owner,
			InviteParams{Email: "x@example.com", Role: repository.RoleViewer}, apperr.KindBadRequest},
		{"active duplicate", f.owner,
			InviteParams{Email: "SAM@example.com", FullName: "Sam", Role: repository.RoleViewer}, apperr.KindConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Invite(context.Background(), tt.caller, tt.params)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.GetKind(err))
		})
	}
}

func TestInviteReactivatesDeactivatedMember(t *testing.T) {
	f := newFixture(t)
	member := f.invite(t, "sam@example.com", repository.RoleViewer)
	_, err := f.svc.Deactivate(context.Background(), f.owner, member.ID)
	require.NoError(t, err)

	invited, err := f.svc.Invite(context.Background(), f.owner, InviteParams{Email: "sam@example.com", FullName: "Sam", Role: repository.RoleAdmin})
	require.NoError(t, err)

	assert.True(t, invited.Reactivated)
	assert.Equal(t, member.ID, invited.Member.ID)
	assert.True(t, invited.Member.IsActive)
	assert.Equal(t, repository.RoleAdmin, invited.Member.Role)
	assert.Equal(t, token.HashSHA256(f.lastToken()), f.store.tokens[member.ID])
}

func TestListHidesTeamFromNonManagers(t *testing.T) {
	f := newFixture(t)
	member := f.invite(t, "sam@example.com", repository.RoleRecruiter)
	f.invite(t, "other@example.com", repository.RoleViewer)

	_, err := f.svc.Accept(context.Background(), f.tokens[0], "s3cretpass")
	require.NoError(t, err)
	accepted := f.store.members[member.ID]

	all, err := f.svc.List(context.Background(), f.owner)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	own, err := f.svc.List(context.Background(), Caller{UserID: *accepted.UserID, FranchisorID: f.owner.FranchisorID, Role: repository.RoleRecruiter})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, member.ID, own[0].ID)
}

func TestDeactivateRules(t *testing.T) {
	f := newFixture(t)
	admin := f.invite(t, "admin@example.com", repository.RoleAdmin)
	other := f.invite(t, "admin2@example.com", repository.RoleAdmin)
	viewer := f.invite(t, "viewer@example.com", repository.RoleViewer)

	ownerSeat := repository.Member{ID: uuid.New(), FranchisorID: f.owner.FranchisorID, UserID: &f.owner.UserID, Role: repository.RoleOwner, IsActive: true}
	f.store.members[ownerSeat.ID] = ownerSeat

	adminCaller := Caller{UserID: uuid.New(), FranchisorID: f.owner.FranchisorID, Role: repository.RoleAdmin}

	_, err := f.svc.Deactivate(context.Background(), f.owner, ownerSeat.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.GetKind(err))

	_, err = f.svc.Deactivate(context.Background(), adminCaller, other.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.GetKind(err))

	_, err = f.svc.Deactivate(context.Background(), Caller{FranchisorID: f.owner.FranchisorID, Role: repository.RoleViewer}, viewer.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.GetKind(err))

	removed, err := f.svc.Deactivate(context.Background(), adminCaller, viewer.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.StatusDeactivated, removed.Status())

	removed, err = f.svc.Deactivate(context.Background(), f.owner, admin.ID)
	require.NoError(t, err)
	assert.False(t, removed.IsActive)
}

func TestUpdateRules(t *testing.T) {
	f := newFixture(t)
	viewer := f.invite(t, "viewer@example.com", repository.RoleViewer)
	adminCaller := Caller{UserID: uuid.New(), FranchisorID: f.owner.FranchisorID, Role: repository.RoleAdmin}

	_, err := f.svc.Update(context.Background(), f.owner, viewer.ID, repository.UpdateParams{})
	assert.Equal(t, apperr.KindBadRequest, apperr.GetKind(err))

	_, err = f.svc.Update(context.Background(), adminCaller, viewer.ID, repository.UpdateParams{Role: sptr(repository.RoleAdmin)})
	assert.Equal(t, apperr.KindForbidden, apperr.GetKind(err))

	updated, err := f.svc.Update(context.Background(), adminCaller, viewer.ID, repository.UpdateParams{Role: sptr(repository.RoleRecruiter)})
	require.NoError(t, err)
	assert.Equal(t, repository.RoleRecruiter, updated.Role)

	promoted, err := f.svc.Update(context.Background(), f.owner, viewer.ID, repository.UpdateParams{Role: sptr(repository.RoleAdmin)})
	require.NoError(t, err)
	assert.Equal(t, repository.RoleAdmin, promoted.Role)

	_, err = f.svc.Update(context.Background(), Caller{FranchisorID: f.owner.FranchisorID, Role: repository.RoleViewer}, viewer.ID,
		repository.UpdateParams{ReceivesNotifications: bptr(false)})
	assert.Equal(t, apperr.KindForbidden, apperr.GetKind(err))
}

func TestResend(t *testing.T) {
	f := newFixture(t)
	member := f.invite(t, "sam@example.com", repository.RoleViewer)
	firstHash := f.store.tokens[member.ID]
	f.now = f.now.Add(time.Hour)

	resent, err := f.svc.Resend(context.Background(), f.owner, member.ID)
	require.NoError(t, err)

	assert.NotEqual(t, firstHash, f.store.tokens[member.ID])
	assert.Equal(t, f.now, resent.InvitedAt)
	assert.Len(t, f.bus.published, 2)

	_, err = f.svc.Accept(context.Background(), f.lastToken(), "s3cretpass")
	require.NoError(t, err)
	_, err = f.svc.Resend(context.Background(), f.owner, member.ID)
	assert.Equal(t, apperr.KindBadRequest, apperr.GetKind(err))
}

func TestResolve(t *testing.T) {
	f := newFixture(t)
	member := f.invite(t, "sam@example.com", repository.RoleViewer)
	raw := f.lastToken()

	res, err := f.svc.Resolve(context.Background(), raw)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, "Brew Holdings", res.Invite.CompanyName)

	_, err = f.svc.Resolve(context.Background(), "unknown")
	assert.Equal(t, apperr.KindNotFound, apperr.GetKind(err))

	_, err = f.svc.Resolve(context.Background(), "")
	assert.Equal(t, apperr.KindBadRequest, apperr.GetKind(err))

	_, err = f.svc.Deactivate(context.Background(), f.owner, member.ID)
	require.NoError(t, err)
	res, err = f.svc.Resolve(context.Background(), raw)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "This invitation is no longer valid", res.Reason)
}

func TestAcceptCreatesFranchisorAccount(t *testing.T) {
	f := newFixture(t)
	member := f.invite(t, "sam@example.com", repository.RoleRecruiter)

	accepted, err := f.svc.Accept(context.Background(), f.lastToken(), "s3cretpass")
	require.NoError(t, err)

	user := f.store.users["sam@example.com"]
	assert.Equal(t, authrepo.RoleFranchisor, user.Role)
	assert.NotEqual(t, "s3cretpass", user.PasswordHash)
	assert.Equal(t, user.ID, *accepted.Member.UserID)
	assert.Equal(t, "Brew Holdings", accepted.CompanyName)

	stored := f.store.members[member.ID]
	assert.Equal(t, repository.StatusActive, stored.Status())
	assert.Empty(t, f.store.tokens[member.ID])

	_, err = f.svc.Accept(context.Background(), f.lastToken(), "s3cretpass")
	assert.Equal(t, apperr.KindNotFound, apperr.GetKind(err))
}

func TestAcceptLinksExistingAccount(t *testing.T) {
	f := newFixture(t)
	existing := authrepo.User{ID: uuid.New(), Email: "sam@example.com", PasswordHash: "old", Role: authrepo.RoleBuyer}
	f.store.users[existing.Email] = existing
	f.invite(t, "sam@example.com", repository.RoleViewer)

	accepted, err := f.svc.Accept(context.Background(), f.lastToken(), "whatever1")
	require.NoError(t, err)

	assert.Equal(t, existing.ID, *accepted.Member.UserID)
	assert.Equal(t, "old", f.store.users["sam@example.com"].PasswordHash)
	assert.Equal(t, authrepo.RoleFranchisor, f.store.users["sam@example.com"].Role)
}

func TestAcceptRollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	member := f.invite(t, "sam@example.com", repository.RoleViewer)
	f.store.markErr = apperr.Internal("boom")

	_, err := f.svc.Accept(context.Background(), f.lastToken(), "s3cretpass")
	require.Error(t, err)

	assert.Empty(t, f.store.users)
	assert.Nil(t, f.store.members[member.ID].AcceptedAt)
}

func TestAcceptValidation(t *testing.T) {
	f := newFixture(t)
	f.invite(t, "sam@example.com", repository.RoleViewer)

	_, err := f.svc.Accept(context.Background(), f.lastToken(), "short")
	assert.Equal(t, apperr.KindBadRequest, apperr.GetKind(err))

	_, err = f.svc.Accept(context.Background(), "", "s3cretpass")
	assert.Equal(t, apperr.KindBadRequest, apperr.GetKind(err))
}
