package repository

import (
	"context"
	"errors"
	"fmt"

	"fddhub/platform/apperr"
	"fddhub/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	msgStageNotFound  = "Stage not found"
	msgLeadNotFound   = "Lead not found"
	msgDuplicateStage = "A stage with this name already exists"
)

// StageRepository is the storage contract of the pipeline tracker.
type StageRepository interface {
	ListStages(ctx context.Context, franchisorID uuid.UUID) ([]Stage, error)
	GetStage(ctx context.Context, stageID uuid.UUID) (Stage, error)
	CreateStage(ctx context.Context, params CreateStageParams) (Stage, error)
	UpdateStage(ctx context.Context, stageID uuid.UUID, params UpdateStageParams) (Stage, error)
	CountLeadsInStage(ctx context.Context, stageID uuid.UUID) (int, error)
	DeleteStage(ctx context.Context, franchisorID, stageID uuid.UUID) error
	ReorderStages(ctx context.Context, franchisorID uuid.UUID, stageIDs []uuid.UUID) ([]Stage, error)
	SeedStages(ctx context.Context, franchisorID uuid.UUID, seeds []CreateStageParams) ([]Stage, error)
	GetLead(ctx context.Context, leadID uuid.UUID) (Lead, error)
	MoveLead(ctx context.Context, params MoveLeadParams) (Lead, error)
	ListHistory(ctx context.Context, leadID uuid.UUID) ([]HistoryEntry, error)
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ StageRepository = (*Repository)(nil)

const stageColumns = `id, franchisor_id, name, description, color, position, is_default, is_closed_won, is_closed_lost, created_at, updated_at`

func scanStage(row pgx.Row) (Stage, error) {
	var s Stage
	err := row.Scan(&s.ID, &s.FranchisorID, &s.Name, &s.Description, &s.Color, &s.Position,
		&s.IsDefault, &s.IsClosedWon, &s.IsClosedLost, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func collectStages(rows pgx.Rows) ([]Stage, error) {
	defer rows.Close()
	stages := make([]Stage, 0)
	for rows.Next() {
		s, err := scanStage(rows)
		if err != nil {
			return nil, err
		}
		stages = append(stages, s)
	}
	return stages, rows.Err()
}

func (r *Repository) ListStages(ctx context.Context, franchisorID uuid.UUID) ([]Stage, error) {
	return listStages(ctx, r.pool, franchisorID)
}

func listStages(ctx context.Context, q db.DBTX, franchisorID uuid.UUID) ([]Stage, error) {
	rows, err := q.Query(ctx, `
    SELECT `+stageColumns+`
    FROM pipeline_stages
    WHERE franchisor_id = $1
    ORDER BY position, created_at
  `, franchisorID)
	if err != nil {
		return nil, fmt.Errorf("pipeline.repository.list_stages: %w", err)
	}
	stages, err := collectStages(rows)
	if err != nil {
		return nil, fmt.Errorf("pipeline.repository.list_stages: %w", err)
	}
	return stages, nil
}

func (r *Repository) GetStage(ctx context.Context, stageID uuid.UUID) (Stage, error) {
	s, err := scanStage(r.pool.QueryRow(ctx, `SELECT `+stageColumns+` FROM pipeline_stages WHERE id = $1`, stageID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Stage{}, apperr.NotFound(msgStageNotFound)
	}
	if err != nil {
		return Stage{}, fmt.Errorf("pipeline.repository.get_stage: %w", err)
	}
	return s, nil
}

// CreateStage appends the stage after the current last one and hands over
// any singleton flag it claims, all in one transaction.
func (r *Repository) CreateStage(ctx context.Context, params CreateStageParams) (Stage, error) {
	var created Stage
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockFranchisorStages(ctx, tx, params.FranchisorID); err != nil {
			return err
		}
		if err := releaseFlags(ctx, tx, params.FranchisorID, uuid.Nil, params.IsDefault, params.IsClosedWon, params.IsClosedLost); err != nil {
			return err
		}

		s, err := insertStage(ctx, tx, params)
		if err != nil {
			return err
		}
		created = s
		return nil
	})
	if err != nil {
		return Stage{}, mapStageWriteErr("pipeline.repository.create_stage", err)
	}
	return created, nil
}

func insertStage(ctx context.Context, q db.DBTX, params CreateStageParams) (Stage, error) {
	return scanStage(q.QueryRow(ctx, `
    INSERT INTO pipeline_stages (franchisor_id, name, description, color, position, is_default, is_closed_won, is_closed_lost)
    VALUES ($1, $2, $3, $4,
      (SELECT COALESCE(MAX(position) + 1, 0) FROM pipeline_stages WHERE franchisor_id = $1),
      $5, $6, $7)
    RETURNING `+stageColumns,
		params.FranchisorID, params.Name, params.Description, params.Color,
		params.IsDefault, params.IsClosedWon, params.IsClosedLost))
}

func (r *Repository) UpdateStage(ctx context.Context, stageID uuid.UUID, params UpdateStageParams) (Stage, error) {
	var updated Stage
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		current, err := scanStage(tx.QueryRow(ctx, `SELECT `+stageColumns+` FROM pipeline_stages WHERE id = $1 FOR UPDATE`, stageID))
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound(msgStageNotFound)
		}
		if err != nil {
			return err
		}

		// A flag is handed over only when it turns on.
		claimDefault := isTrue(params.IsDefault) && !current.IsDefault
		claimWon := isTrue(params.IsClosedWon) && !current.IsClosedWon
		claimLost := isTrue(params.IsClosedLost) && !current.IsClosedLost
		if err := releaseFlags(ctx, tx, current.FranchisorID, stageID, claimDefault, claimWon, claimLost); err != nil {
			return err
		}

		s, err := scanStage(tx.QueryRow(ctx, `
      UPDATE pipeline_stages SET
        name = COALESCE($2, name),
        description = CASE WHEN $3 THEN NULL ELSE COALESCE($4, description) END,
        color = COALESCE($5, color),
        is_default = COALESCE($6, is_default),
        is_closed_won = COALESCE($7, is_closed_won),
        is_closed_lost = COALESCE($8, is_closed_lost),
        updated_at = now()
      WHERE id = $1
      RETURNING `+stageColumns,
			stageID, params.Name, params.ClearDesc, params.Description, params.Color,
			params.IsDefault, params.IsClosedWon, params.IsClosedLost))
		if err != nil {
			return err
		}
		updated = s
		return nil
	})
	if err != nil {
		return Stage{}, mapStageWriteErr("pipeline.repository.update_stage", err)
	}
	return updated, nil
}

func (r *Repository) CountLeadsInStage(ctx context.Context, stageID uuid.UUID) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM lead_invitations WHERE stage_id = $1`, stageID).Scan(&count); err != nil {
		return 0, fmt.Errorf("pipeline.repository.count_leads: %w", err)
	}
	return count, nil
}

// DeleteStage removes the stage and renumbers the rest to 0..N-1. A lead
// assigned concurrently makes the foreign key fail, which surfaces as Conflict.
func (r *Repository) DeleteStage(ctx context.Context, franchisorID, stageID uuid.UUID) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockFranchisorStages(ctx, tx, franchisorID); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM pipeline_stages WHERE id = $1 AND franchisor_id = $2`, stageID, franchisorID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return apperr.NotFound(msgStageNotFound)
		}
		return compactPositions(ctx, tx, franchisorID)
	})
	if err == nil {
		return nil
	}
	if db.IsForeignKeyViolation(err) {
		return apperr.Conflict("Cannot delete stage with assigned leads. Move leads to another stage first.")
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return fmt.Errorf("pipeline.repository.delete_stage: %w", err)
}

func (r *Repository) ReorderStages(ctx context.Context, franchisorID uuid.UUID, stageIDs []uuid.UUID) ([]Stage, error) {
	var stages []Stage
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockFranchisorStages(ctx, tx, franchisorID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
      UPDATE pipeline_stages s
      SET position = o.idx - 1, updated_at = now()
      FROM unnest($2::uuid[]) WITH ORDINALITY AS o(id, idx)
      WHERE s.id = o.id AND s.franchisor_id = $1
    `, franchisorID, stageIDs)
		if err != nil {
			return err
		}
		if err := compactPositions(ctx, tx, franchisorID); err != nil {
			return err
		}
		stages, err = listStages(ctx, tx, franchisorID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline.repository.reorder_stages: %w", err)
	}
	return stages, nil
}

// SeedStages inserts seeds only when the franchisor has no stages yet.
func (r *Repository) SeedStages(ctx context.Context, franchisorID uuid.UUID, seeds []CreateStageParams) ([]Stage, error) {
	var stages []Stage
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockFranchisorStages(ctx, tx, franchisorID); err != nil {
			return err
		}
		existing, err := listStages(ctx, tx, franchisorID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			stages = existing
			return nil
		}
		for _, seed := range seeds {
			seed.FranchisorID = franchisorID
			s, err := insertStage(ctx, tx, seed)
			if err != nil {
				return err
			}
			stages = append(stages, s)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline.repository.seed_stages: %w", err)
	}
	return stages, nil
}

const leadColumns = `id, franchisor_id, franchise_id, lead_name, lead_email, status, stage_id, stage_changed_at, stage_changed_by, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	err := row.Scan(&l.ID, &l.FranchisorID, &l.FranchiseID, &l.LeadName, &l.LeadEmail, &l.Status,
		&l.StageID, &l.StageChangedAt, &l.StageChangedBy, &l.UpdatedAt)
	return l, err
}

func (r *Repository) GetLead(ctx context.Context, leadID uuid.UUID) (Lead, error) {
	l, err := scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM lead_invitations WHERE id = $1`, leadID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, apperr.NotFound(msgLeadNotFound)
	}
	if err != nil {
		return Lead{}, fmt.Errorf("pipeline.repository.get_lead: %w", err)
	}
	return l, nil
}

// MoveLead appends the history entry and updates the lead in one transaction.
func (r *Repository) MoveLead(ctx context.Context, params MoveLeadParams) (Lead, error) {
	var moved Lead
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
      INSERT INTO lead_stage_history (lead_invitation_id, from_stage_id, to_stage_id, changed_by, notes, time_in_previous_stage, created_at)
      VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, params.LeadID, params.FromStageID, params.ToStageID, params.ChangedBy, params.Notes, params.TimeInPreviousStage, params.ChangedAt)
		if err != nil {
			return err
		}

		l, err := scanLead(tx.QueryRow(ctx, `
      UPDATE lead_invitations
      SET stage_id = $2, stage_changed_at = $3, stage_changed_by = $4, updated_at = now()
      WHERE id = $1
      RETURNING `+leadColumns,
			params.LeadID, params.ToStageID, params.ChangedAt, params.ChangedBy))
		if err != nil {
			return err
		}
		moved = l
		return nil
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, apperr.NotFound(msgLeadNotFound)
	}
	if err != nil {
		return Lead{}, fmt.Errorf("pipeline.repository.move_lead: %w", err)
	}
	return moved, nil
}

func (r *Repository) ListHistory(ctx context.Context, leadID uuid.UUID) ([]HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
    SELECT h.id, h.lead_invitation_id, h.from_stage_id, fs.name, h.to_stage_id, ts.name,
           h.changed_by, h.notes, h.time_in_previous_stage, h.created_at
    FROM lead_stage_history h
    LEFT JOIN pipeline_stages fs ON fs.id = h.from_stage_id
    LEFT JOIN pipeline_stages ts ON ts.id = h.to_stage_id
    WHERE h.lead_invitation_id = $1
    ORDER BY h.created_at DESC
  `, leadID)
	if err != nil {
		return nil, fmt.Errorf("pipeline.repository.list_history: %w", err)
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0)
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.LeadID, &e.FromStageID, &e.FromStageName, &e.ToStageID, &e.ToStageName,
			&e.ChangedBy, &e.Notes, &e.TimeInPreviousStage, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("pipeline.repository.list_history: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// lockFranchisorStages serializes structural changes to one franchisor's
// stage list (positions, flags) for the rest of the transaction.
func lockFranchisorStages(ctx context.Context, tx pgx.Tx, franchisorID uuid.UUID) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, franchisorID.String())
	return err
}

// releaseFlags clears the singleton flags the caller is about to claim.
func releaseFlags(ctx context.Context, tx pgx.Tx, franchisorID, keepID uuid.UUID, isDefault, isWon, isLost bool) error {
	if !isDefault && !isWon && !isLost {
		return nil
	}
	_, err := tx.Exec(ctx, `
    UPDATE pipeline_stages SET
      is_default = CASE WHEN $3 THEN false ELSE is_default END,
      is_closed_won = CASE WHEN $4 THEN false ELSE is_closed_won END,
      is_closed_lost = CASE WHEN $5 THEN false ELSE is_closed_lost END,
      updated_at = now()
    WHERE franchisor_id = $1 AND id <> $2
      AND (($3 AND is_default) OR ($4 AND is_closed_won) OR ($5 AND is_closed_lost))
  `, franchisorID, keepID, isDefault, isWon, isLost)
	return err
}

func compactPositions(ctx context.Context, tx pgx.Tx, franchisorID uuid.UUID) error {
	_, err := tx.Exec(ctx, `
    UPDATE pipeline_stages s
    SET position = r.rn - 1
    FROM (
      SELECT id, row_number() OVER (ORDER BY position, created_at) AS rn
      FROM pipeline_stages
      WHERE franchisor_id = $1
    ) r
    WHERE s.id = r.id AND s.position <> r.rn - 1
  `, franchisorID)
	return err
}

func mapStageWriteErr(op string, err error) error {
	if db.IsUniqueViolation(err) {
		return apperr.Conflict(msgDuplicateStage)
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isTrue(v *bool) bool {
	return v != nil && *v
}
