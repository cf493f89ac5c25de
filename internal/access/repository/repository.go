package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fddhub/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Access grant lifecycle.
const (
	StatusGranted      = "granted"
	StatusConsentGiven = "consent_given"
	StatusActive       = "active"
)

const (
	msgAccessNotFound    = "FDD access not found"
	msgBuyerNotFound     = "Buyer profile not found"
	msgFranchiseNotFound = "Franchise not found"
)

// Grant is one buyer's access to one franchise's FDD.
type Grant struct {
	ID                 uuid.UUID
	BuyerID            uuid.UUID
	FranchiseID        uuid.UUID
	FranchisorID       uuid.UUID
	InvitationID       *uuid.UUID
	GrantedVia         string
	Status             string
	ConsentGivenAt     *time.Time
	Item23SignedAt     *time.Time
	Item23SignatureKey *string
	ReceiptSignedAt    *time.Time
	ReceiptPDFKey      *string
	ESignSubmissionID  *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Receipt is what the e-signature provider reports once the buyer signed.
type Receipt struct {
	BuyerID      uuid.UUID
	FranchiseID  uuid.UUID
	SignedAt     time.Time
	PDFKey       *string
	SubmissionID *string
}

type AccessRepository interface {
	GetBuyerIDByUserID(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
	GetFranchiseIDBySlug(ctx context.Context, slug string) (uuid.UUID, error)
	Get(ctx context.Context, buyerID, franchiseID uuid.UUID) (Grant, error)
	RecordConsent(ctx context.Context, id uuid.UUID, at time.Time, ip, userAgent string) (Grant, error)
	RecordItem23(ctx context.Context, id uuid.UUID, at time.Time, signatureKey, ip string) (Grant, error)
	// RecordReceipt sets receipt_signed_at once. The returned flag is false
	// when the receipt had already been recorded.
	RecordReceipt(ctx context.Context, r Receipt) (Grant, bool, error)
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ AccessRepository = (*Repository)(nil)

const grantColumns = `
	id, buyer_id, franchise_id, franchisor_id, invitation_id, granted_via, status,
	consent_given_at, item23_signed_at, item23_signature_key,
	receipt_signed_at, receipt_pdf_key, esign_submission_id, created_at, updated_at`

func scanGrant(row pgx.Row) (Grant, error) {
	var g Grant
	err := row.Scan(&g.ID, &g.BuyerID, &g.FranchiseID, &g.FranchisorID, &g.InvitationID, &g.GrantedVia, &g.Status,
		&g.ConsentGivenAt, &g.Item23SignedAt, &g.Item23SignatureKey,
		&g.ReceiptSignedAt, &g.ReceiptPDFKey, &g.ESignSubmissionID, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

func (r *Repository) GetBuyerIDByUserID(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT id FROM buyer_profiles WHERE user_id = $1`, userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, apperr.NotFound(msgBuyerNotFound)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("access.repository.get_buyer: %w", err)
	}
	return id, nil
}

func (r *Repository) GetFranchiseIDBySlug(ctx context.Context, slug string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT id FROM franchises WHERE slug = $1`, slug).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, apperr.NotFound(msgFranchiseNotFound)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("access.repository.get_franchise: %w", err)
	}
	return id, nil
}

func (r *Repository) Get(ctx context.Context, buyerID, franchiseID uuid.UUID) (Grant, error) {
	g, err := scanGrant(r.pool.QueryRow(ctx, `SELECT `+grantColumns+`
		FROM lead_fdd_access WHERE buyer_id = $1 AND franchise_id = $2`, buyerID, franchiseID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Grant{}, apperr.NotFound(msgAccessNotFound)
	}
	if err != nil {
		return Grant{}, fmt.Errorf("access.repository.get: %w", err)
	}
	return g, nil
}

func (r *Repository) RecordConsent(ctx context.Context, id uuid.UUID, at time.Time, ip, userAgent string) (Grant, error) {
	g, err := scanGrant(r.pool.QueryRow(ctx, `
		UPDATE lead_fdd_access
		SET consent_given_at = $2, consent_ip_address = $3, consent_user_agent = $4,
			status = '`+StatusConsentGiven+`', updated_at = $2
		WHERE id = $1
		RETURNING `+grantColumns, id, at, ip, userAgent))
	if errors.Is(err, pgx.ErrNoRows) {
		return Grant{}, apperr.NotFound(msgAccessNotFound)
	}
	if err != nil {
		return Grant{}, fmt.Errorf("access.repository.record_consent: %w", err)
	}
	return g, nil
}

func (r *Repository) RecordItem23(ctx context.Context, id uuid.UUID, at time.Time, signatureKey, ip string) (Grant, error) {
	g, err := scanGrant(r.pool.QueryRow(ctx, `
		UPDATE lead_fdd_access
		SET item23_signed_at = $2, item23_signature_key = $3, item23_signature_ip = $4,
			status = '`+StatusActive+`', updated_at = $2
		WHERE id = $1
		RETURNING `+grantColumns, id, at, signatureKey, ip))
	if errors.Is(err, pgx.ErrNoRows) {
		return Grant{}, apperr.NotFound(msgAccessNotFound)
	}
	if err != nil {
		return Grant{}, fmt.Errorf("access.repository.record_item23: %w", err)
	}
	return g, nil
}

func (r *Repository) RecordReceipt(ctx context.Context, rc Receipt) (Grant, bool, error) {
	g, err := scanGrant(r.pool.QueryRow(ctx, `
		UPDATE lead_fdd_access
		SET receipt_signed_at = $3, receipt_pdf_key = $4, esign_submission_id = $5, updated_at = $3
		WHERE buyer_id = $1 AND franchise_id = $2 AND receipt_signed_at IS NULL
		RETURNING `+grantColumns, rc.BuyerID, rc.FranchiseID, rc.SignedAt, rc.PDFKey, rc.SubmissionID))
	if err == nil {
		return g, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Grant{}, false, fmt.Errorf("access.repository.record_receipt: %w", err)
	}

	existing, err := r.Get(ctx, rc.BuyerID, rc.FranchiseID)
	if err != nil {
		return Grant{}, false, err
	}
	return existing, false, nil
}
