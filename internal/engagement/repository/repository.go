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

// SignificantTimeSeconds is the viewing time that sets spent_significant_time.
const SignificantTimeSeconds = 600

// Engagement is the single current-state row per (buyer, franchise).
type Engagement struct {
	ID                   uuid.UUID
	BuyerID              uuid.UUID
	FranchiseID          uuid.UUID
	TimeSpent            int
	ViewedItems          []int
	QuestionsList        []string
	SectionsViewed       []string
	ViewedItem19         bool
	ViewedItem7          bool
	SpentSignificantTime bool
	LastActivity         time.Time
	CreatedAt            time.Time
}

// Update is one incremental tracking report.
type Update struct {
	TimeSpent      int
	ViewedItems    []int
	Questions      []string
	SectionsViewed []string
}

// Buyer identifies the buyer profile behind an authenticated user.
type Buyer struct {
	ID        uuid.UUID
	Email     string
	FirstName *string
	LastName  *string
}

// EngagementRepository is the storage contract of the aggregator.
type EngagementRepository interface {
	GetBuyerByUserID(ctx context.Context, userID uuid.UUID) (Buyer, error)
	Get(ctx context.Context, buyerID, franchiseID uuid.UUID) (Engagement, error)
	Upsert(ctx context.Context, buyerID, franchiseID uuid.UUID, in Update) (Engagement, error)
	RecordAccessView(ctx context.Context, buyerID, franchiseID uuid.UUID, timeSpent int, newSession bool) error
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ EngagementRepository = (*Repository)(nil)

const engagementColumns = `
    id, buyer_id, franchise_id, time_spent, viewed_items, questions_list, sections_viewed,
    viewed_item19, viewed_item7, spent_significant_time, last_activity, created_at`

func scanEngagement(row pgx.Row) (Engagement, error) {
	var e Engagement
	var items []int32
	err := row.Scan(&e.ID, &e.BuyerID, &e.FranchiseID, &e.TimeSpent, &items, &e.QuestionsList, &e.SectionsViewed,
		&e.ViewedItem19, &e.ViewedItem7, &e.SpentSignificantTime, &e.LastActivity, &e.CreatedAt)
	if err != nil {
		return Engagement{}, err
	}
	e.ViewedItems = make([]int, len(items))
	for i, item := range items {
		e.ViewedItems[i] = int(item)
	}
	return e, nil
}

func (r *Repository) GetBuyerByUserID(ctx context.Context, userID uuid.UUID) (Buyer, error) {
	var b Buyer
	err := r.pool.QueryRow(ctx, `
    SELECT id, email, first_name, last_name
    FROM buyer_profiles
    WHERE user_id = $1
  `, userID).Scan(&b.ID, &b.Email, &b.FirstName, &b.LastName)
	if errors.Is(err, pgx.ErrNoRows) {
		return Buyer{}, apperr.NotFound("buyer profile not found")
	}
	if err != nil {
		return Buyer{}, fmt.Errorf("engagement.repository.get_buyer: %w", err)
	}
	return b, nil
}

func (r *Repository) Get(ctx context.Context, buyerID, franchiseID uuid.UUID) (Engagement, error) {
	e, err := scanEngagement(r.pool.QueryRow(ctx, `
    SELECT`+engagementColumns+`
    FROM fdd_engagements
    WHERE buyer_id = $1 AND franchise_id = $2
  `, buyerID, franchiseID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Engagement{}, apperr.NotFound("engagement not found")
	}
	if err != nil {
		return Engagement{}, fmt.Errorf("engagement.repository.get: %w", err)
	}
	return e, nil
}

// Upsert merges in into the stored row in a single statement: max for time,
// first-seen-ordered union for the sets, OR for the milestones. Concurrent
// reports for the same pair serialize on the row lock and never lose data.
func (r *Repository) Upsert(ctx context.Context, buyerID, franchiseID uuid.UUID, in Update) (Engagement, error) {
	items := make([]int32, len(in.ViewedItems))
	for i, item := range in.ViewedItems {
		items[i] = int32(item)
	}
	questions := nonNil(in.Questions)
	sections := nonNil(in.SectionsViewed)

	e, err := scanEngagement(r.pool.QueryRow(ctx, `
    INSERT INTO fdd_engagements (
      buyer_id, franchise_id, time_spent, viewed_items, questions_list, sections_viewed,
      viewed_item19, viewed_item7, spent_significant_time, last_activity
    )
    VALUES (
      $1, $2, $3,
      ARRAY(SELECT v FROM unnest($4::int[]) WITH ORDINALITY AS t(v, n) GROUP BY v ORDER BY min(n)),
      ARRAY(SELECT v FROM unnest($5::text[]) WITH ORDINALITY AS t(v, n) GROUP BY v ORDER BY min(n)),
      ARRAY(SELECT v FROM unnest($6::text[]) WITH ORDINALITY AS t(v, n) GROUP BY v ORDER BY min(n)),
      19 = ANY($4::int[]), 7 = ANY($4::int[]), $3 >= $7, now()
    )
    ON CONFLICT (buyer_id, franchise_id) DO UPDATE SET
      time_spent = GREATEST(fdd_engagements.time_spent, EXCLUDED.time_spent),
      viewed_items = ARRAY(
        SELECT v FROM unnest(fdd_engagements.viewed_items || EXCLUDED.viewed_items) WITH ORDINALITY AS t(v, n)
        GROUP BY v ORDER BY min(n)
      ),
      questions_list = ARRAY(
        SELECT v FROM unnest(fdd_engagements.questions_list || EXCLUDED.questions_list) WITH ORDINALITY AS t(v, n)
        GROUP BY v ORDER BY min(n)
      ),
      sections_viewed = ARRAY(
        SELECT v FROM unnest(fdd_engagements.sections_viewed || EXCLUDED.sections_viewed) WITH ORDINALITY AS t(v, n)
        GROUP BY v ORDER BY min(n)
      ),
      viewed_item19 = fdd_engagements.viewed_item19 OR EXCLUDED.viewed_item19,
      viewed_item7 = fdd_engagements.viewed_item7 OR EXCLUDED.viewed_item7,
      spent_significant_time = fdd_engagements.spent_significant_time OR EXCLUDED.spent_significant_time,
      last_activity = now()
    RETURNING`+engagementColumns,
		buyerID, franchiseID, in.TimeSpent, items, questions, sections, SignificantTimeSeconds))
	if err != nil {
		return Engagement{}, fmt.Errorf("engagement.repository.upsert: %w", err)
	}
	return e, nil
}

// RecordAccessView rolls a report into the access grant's counters.
func (r *Repository) RecordAccessView(ctx context.Context, buyerID, franchiseID uuid.UUID, timeSpent int, newSession bool) error {
	_, err := r.pool.Exec(ctx, `
    UPDATE lead_fdd_access
    SET total_views = total_views + CASE WHEN $3 THEN 1 ELSE 0 END,
        total_time_spent_seconds = GREATEST(total_time_spent_seconds, $4),
        first_viewed_at = COALESCE(first_viewed_at, now()),
        last_viewed_at = now(),
        updated_at = now()
    WHERE buyer_id = $1 AND franchise_id = $2
  `, buyerID, franchiseID, newSession, timeSpent)
	if err != nil {
		return fmt.Errorf("engagement.repository.record_access_view: %w", err)
	}
	return nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
