package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fddhub/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const msgLeadNotFound = "Lead not found"

// LeadReader is the read model behind the franchisor lead views.
type LeadReader interface {
	List(ctx context.Context, params ListParams) ([]Lead, error)
	Get(ctx context.Context, franchisorID, leadID uuid.UUID) (Lead, error)
	ListBuyerEngagements(ctx context.Context, franchisorID, buyerID uuid.UUID) ([]Engagement, error)
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ LeadReader = (*Repository)(nil)

// The access grant and engagement are matched on the invitation's buyer and
// franchise; both stay NULL for invitations nobody accepted yet.
const leadSelect = `
	SELECT i.id, i.franchisor_id, i.franchise_id, f.name, f.slug,
		i.lead_name, i.lead_email, i.lead_phone, i.source, i.city, i.state, i.timeline, i.target_location,
		i.status, i.sent_at, i.viewed_at, i.signed_up_at, i.expires_at,
		i.stage_id, s.name, s.color, i.stage_changed_at, i.created_at,
		b.id, b.first_name, b.last_name, b.email, b.phone, b.city, b.state,
		a.id, a.status, a.granted_via, a.total_views, a.total_time_spent_seconds,
		a.first_viewed_at, a.last_viewed_at, a.consent_given_at, a.item23_signed_at, a.receipt_signed_at, a.created_at,
		e.time_spent, e.viewed_items, e.questions_list, e.sections_viewed,
		e.viewed_item19, e.viewed_item7, e.spent_significant_time, e.last_activity
	FROM lead_invitations i
	JOIN franchises f ON f.id = i.franchise_id
	LEFT JOIN pipeline_stages s ON s.id = i.stage_id
	LEFT JOIN buyer_profiles b ON b.id = i.buyer_id
	LEFT JOIN lead_fdd_access a ON a.buyer_id = i.buyer_id AND a.franchise_id = i.franchise_id
	LEFT JOIN fdd_engagements e ON e.buyer_id = i.buyer_id AND e.franchise_id = i.franchise_id`

type nullableJoins struct {
	buyerID       *uuid.UUID
	buyerFirst    *string
	buyerLast     *string
	buyerEmail    *string
	buyerPhone    *string
	buyerCity     *string
	buyerState    *string
	accessID      *uuid.UUID
	accessStatus  *string
	grantedVia    *string
	totalViews    *int
	totalTime     *int
	firstViewedAt *time.Time
	lastViewedAt  *time.Time
	consentAt     *time.Time
	item23At      *time.Time
	receiptAt     *time.Time
	accessCreated *time.Time
	timeSpent     *int
	viewedItems   []int32
	questions     []string
	sections      []string
	viewedItem19  *bool
	viewedItem7   *bool
	significant   *bool
	lastActivity  *time.Time
}

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	var n nullableJoins
	err := row.Scan(
		&l.ID, &l.FranchisorID, &l.FranchiseID, &l.FranchiseName, &l.FranchiseSlug,
		&l.LeadName, &l.LeadEmail, &l.LeadPhone, &l.Source, &l.City, &l.State, &l.Timeline, &l.TargetLocation,
		&l.Status, &l.SentAt, &l.ViewedAt, &l.SignedUpAt, &l.ExpiresAt,
		&l.StageID, &l.StageName, &l.StageColor, &l.StageChangedAt, &l.CreatedAt,
		&n.buyerID, &n.buyerFirst, &n.buyerLast, &n.buyerEmail, &n.buyerPhone, &n.buyerCity, &n.buyerState,
		&n.accessID, &n.accessStatus, &n.grantedVia, &n.totalViews, &n.totalTime,
		&n.firstViewedAt, &n.lastViewedAt, &n.consentAt, &n.item23At, &n.receiptAt, &n.accessCreated,
		&n.timeSpent, &n.viewedItems, &n.questions, &n.sections,
		&n.viewedItem19, &n.viewedItem7, &n.significant, &n.lastActivity,
	)
	if err != nil {
		return Lead{}, err
	}

	if n.buyerID != nil {
		l.Buyer = &Buyer{
			ID:        *n.buyerID,
			FirstName: n.buyerFirst,
			LastName:  n.buyerLast,
			Email:     deref(n.buyerEmail),
			Phone:     n.buyerPhone,
			City:      n.buyerCity,
			State:     n.buyerState,
		}
	}
	if n.accessID != nil {
		l.Access = &Access{
			ID:                    *n.accessID,
			Status:                deref(n.accessStatus),
			GrantedVia:            deref(n.grantedVia),
			TotalViews:            derefInt(n.totalViews),
			TotalTimeSpentSeconds: derefInt(n.totalTime),
			FirstViewedAt:         n.firstViewedAt,
			LastViewedAt:          n.lastViewedAt,
			ConsentGivenAt:        n.consentAt,
			Item23SignedAt:        n.item23At,
			ReceiptSignedAt:       n.receiptAt,
		}
		if n.accessCreated != nil {
			l.Access.CreatedAt = *n.accessCreated
		}
	}
	if n.lastActivity != nil {
		l.Engagement = &Engagement{
			FranchiseID:          l.FranchiseID,
			TimeSpent:            derefInt(n.timeSpent),
			ViewedItems:          toInts(n.viewedItems),
			QuestionsList:        n.questions,
			SectionsViewed:       n.sections,
			ViewedItem19:         n.viewedItem19 != nil && *n.viewedItem19,
			ViewedItem7:          n.viewedItem7 != nil && *n.viewedItem7,
			SpentSignificantTime: n.significant != nil && *n.significant,
			LastActivity:         *n.lastActivity,
		}
	}
	return l, nil
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]Lead, error) {
	where := []string{"i.franchisor_id = $1"}
	args := []any{params.FranchisorID}
	if params.FranchiseID != nil {
		args = append(args, *params.FranchiseID)
		where = append(where, fmt.Sprintf("i.franchise_id = $%d", len(args)))
	}
	if params.StageID != nil {
		args = append(args, *params.StageID)
		where = append(where, fmt.Sprintf("i.stage_id = $%d", len(args)))
	}

	query := leadSelect + `
	WHERE ` + strings.Join(where, " AND ") + `
	ORDER BY i.created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("leads.repository.list: %w", err)
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("leads.repository.list: %w", err)
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

func (r *Repository) Get(ctx context.Context, franchisorID, leadID uuid.UUID) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, leadSelect+`
	WHERE i.id = $1 AND i.franchisor_id = $2`, leadID, franchisorID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, apperr.NotFound(msgLeadNotFound)
	}
	if err != nil {
		return Lead{}, fmt.Errorf("leads.repository.get: %w", err)
	}
	return lead, nil
}

// ListBuyerEngagements returns the buyer's engagement with every franchise of
// the franchisor, most recent first.
func (r *Repository) ListBuyerEngagements(ctx context.Context, franchisorID, buyerID uuid.UUID) ([]Engagement, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT e.franchise_id, e.time_spent, e.viewed_items, e.questions_list, e.sections_viewed,
			e.viewed_item19, e.viewed_item7, e.spent_significant_time, e.last_activity
		FROM fdd_engagements e
		JOIN franchises f ON f.id = e.franchise_id
		WHERE e.buyer_id = $1 AND f.franchisor_id = $2
		ORDER BY e.last_activity DESC
	`, buyerID, franchisorID)
	if err != nil {
		return nil, fmt.Errorf("leads.repository.list_buyer_engagements: %w", err)
	}
	defer rows.Close()

	items := make([]Engagement, 0)
	for rows.Next() {
		var e Engagement
		var viewed []int32
		if err := rows.Scan(&e.FranchiseID, &e.TimeSpent, &viewed, &e.QuestionsList, &e.SectionsViewed,
			&e.ViewedItem19, &e.ViewedItem7, &e.SpentSignificantTime, &e.LastActivity); err != nil {
			return nil, fmt.Errorf("leads.repository.list_buyer_engagements: %w", err)
		}
		e.ViewedItems = toInts(viewed)
		items = append(items, e)
	}
	return items, rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func toInts(in []int32) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}
