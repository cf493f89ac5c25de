package service

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"fddhub/internal/access/repository"
	"fddhub/internal/adapters/storage"
	"fddhub/internal/events"
	"fddhub/platform/apperr"
	"fddhub/platform/logger"

	"github.com/google/uuid"
)

const (
	pngDataURLPrefix = "data:image/png;base64,"
	unknownClient    = "unknown"

	msgFranchiseRequired = "franchiseId or franchiseSlug is required"
	msgInvalidSignature  = "signatureDataUrl must be a base64 PNG data URL"
	msgStorageFailed     = "Failed to store signature"
)

// FranchiseRef names a franchise by id or by its public slug.
type FranchiseRef struct {
	ID   *uuid.UUID
	Slug string
}

// Client is the request origin recorded with consent and signatures.
type Client struct {
	IP        string
	UserAgent string
}

// Compliance is the receipt clock of one access grant.
type Compliance struct {
	Grant           repository.Grant
	ReceiptSignedAt *time.Time
	EligibleAt      *time.Time
	DaysRemaining   int
	SalesEligible   bool
}

type Service struct {
	repo             repository.AccessRepository
	store            storage.ObjectStore
	signaturesBucket string
	eventBus         events.Bus
	log              *logger.Logger
	now              func() time.Time
}

func New(repo repository.AccessRepository, store storage.ObjectStore, signaturesBucket string, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:             repo,
		store:            store,
		signaturesBucket: signaturesBucket,
		eventBus:         eventBus,
		log:              log,
		now:              time.Now,
	}
}

// GiveConsent records the buyer's consent to receive the FDD electronically.
func (s *Service) GiveConsent(ctx context.Context, userID uuid.UUID, ref FranchiseRef, client Client) (repository.Grant, error) {
	grant, err := s.grantFor(ctx, userID, ref)
	if err != nil {
		return repository.Grant{}, err
	}

	return s.repo.RecordConsent(ctx, grant.ID, s.now(), orUnknown(client.IP), orUnknown(client.UserAgent))
}

// SignItem23 stores the drawn signature and activates the grant.
func (s *Service) SignItem23(ctx context.Context, userID uuid.UUID, ref FranchiseRef, signatureDataURL string, client Client) (repository.Grant, string, error) {
	png, err := DecodePNGDataURL(signatureDataURL)
	if err != nil {
		return repository.Grant{}, "", err
	}

	grant, err := s.grantFor(ctx, userID, ref)
	if err != nil {
		return repository.Grant{}, "", err
	}

	key := storage.SignatureKey(grant.BuyerID.String(), grant.FranchiseID.String())
	if err := s.store.PutObject(ctx, s.signaturesBucket, key, "image/png", png); err != nil {
		return repository.Grant{}, "", apperr.Upstream(msgStorageFailed, err)
	}

	updated, err := s.repo.RecordItem23(ctx, grant.ID, s.now(), key, orUnknown(client.IP))
	if err != nil {
		return repository.Grant{}, "", err
	}

	s.log.Info("item 23 signed", "accessId", updated.ID, "buyerId", updated.BuyerID, "franchiseId", updated.FranchiseID)
	return updated, key, nil
}

// SignatureURL returns a short-lived download link for a stored signature.
func (s *Service) SignatureURL(ctx context.Context, key string) string {
	presigned, err := s.store.GenerateDownloadURL(ctx, s.signaturesBucket, key)
	if err != nil {
		s.log.SideEffectFailed("access.signature_url", err, "key", key)
		return ""
	}
	return presigned.URL
}

// Compliance reports the receipt clock for the caller's grant.
func (s *Service) Compliance(ctx context.Context, userID uuid.UUID, ref FranchiseRef) (Compliance, error) {
	grant, err := s.grantFor(ctx, userID, ref)
	if err != nil {
		return Compliance{}, err
	}
	return ComplianceOf(grant, s.now()), nil
}

// ComplianceOf evaluates the receipt clock of grant at now.
func ComplianceOf(grant repository.Grant, now time.Time) Compliance {
	c := Compliance{
		Grant:           grant,
		ReceiptSignedAt: grant.ReceiptSignedAt,
		DaysRemaining:   DaysRemaining(grant.ReceiptSignedAt, now),
		SalesEligible:   IsSalesEligible(grant.ReceiptSignedAt, now),
	}
	if grant.ReceiptSignedAt != nil {
		eligible := EligibleDate(*grant.ReceiptSignedAt)
		c.EligibleAt = &eligible
	}
	return c
}

// GetGrant returns the buyer's grant for a franchise.
func (s *Service) GetGrant(ctx context.Context, buyerID, franchiseID uuid.UUID) (repository.Grant, error) {
	return s.repo.Get(ctx, buyerID, franchiseID)
}

// RecordReceipt stores a signed receipt. Repeated deliveries leave the first
// signing time in place and publish nothing.
func (s *Service) RecordReceipt(ctx context.Context, receipt repository.Receipt) (repository.Grant, error) {
	grant, recorded, err := s.repo.RecordReceipt(ctx, receipt)
	if err != nil {
		return repository.Grant{}, err
	}
	if !recorded {
		s.log.Info("receipt already recorded", "accessId", grant.ID)
		return grant, nil
	}

	s.eventBus.Publish(ctx, events.ReceiptSigned{
		BaseEvent:    events.NewBaseEvent(),
		AccessID:     grant.ID,
		BuyerID:      grant.BuyerID,
		FranchiseID:  grant.FranchiseID,
		FranchisorID: grant.FranchisorID,
		SignedAt:     *grant.ReceiptSignedAt,
	})
	return grant, nil
}

func (s *Service) grantFor(ctx context.Context, userID uuid.UUID, ref FranchiseRef) (repository.Grant, error) {
	franchiseID, err := s.resolveFranchise(ctx, ref)
	if err != nil {
		return repository.Grant{}, err
	}
	buyerID, err := s.repo.GetBuyerIDByUserID(ctx, userID)
	if err != nil {
		return repository.Grant{}, err
	}
	return s.repo.Get(ctx, buyerID, franchiseID)
}

func (s *Service) resolveFranchise(ctx context.Context, ref FranchiseRef) (uuid.UUID, error) {
	if ref.ID != nil {
		return *ref.ID, nil
	}
	slug := strings.TrimSpace(ref.Slug)
	if slug == "" {
		return uuid.Nil, apperr.Validation(msgFranchiseRequired)
	}
	return s.repo.GetFranchiseIDBySlug(ctx, slug)
}

// DecodePNGDataURL returns the image bytes of a data:image/png;base64 URL.
func DecodePNGDataURL(dataURL string) ([]byte, error) {
	if !strings.HasPrefix(dataURL, pngDataURLPrefix) {
		return nil, apperr.Validation(msgInvalidSignature)
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, pngDataURLPrefix))
	if err != nil || len(data) == 0 {
		return nil, apperr.Validation(msgInvalidSignature)
	}
	return data, nil
}

func orUnknown(v string) string {
	if strings.TrimSpace(v) == "" {
		return unknownClient
	}
	return v
}
