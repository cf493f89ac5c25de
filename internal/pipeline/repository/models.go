package repository

import (
	"time"

	"github.com/google/uuid"
)

// Stage is a franchisor-scoped funnel step.
type Stage struct {
	ID           uuid.UUID
	FranchisorID uuid.UUID
	Name         string
	Description  *string
	Color        string
	Position     int
	IsDefault    bool
	IsClosedWon  bool
	IsClosedLost bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type CreateStageParams struct {
	FranchisorID uuid.UUID
	Name         string
	Description  *string
	Color        string
	IsDefault    bool
	IsClosedWon  bool
	IsClosedLost bool
}

// UpdateStageParams is a partial update; nil fields are left untouched.
type UpdateStageParams struct {
	Name         *string
	Description  *string
	ClearDesc    bool
	Color        *string
	IsDefault    *bool
	IsClosedWon  *bool
	IsClosedLost *bool
}

// Lead is the pipeline view of a lead invitation.
type Lead struct {
	ID             uuid.UUID
	FranchisorID   uuid.UUID
	FranchiseID    uuid.UUID
	LeadName       string
	LeadEmail      string
	Status         string
	StageID        *uuid.UUID
	StageChangedAt *time.Time
	StageChangedBy *uuid.UUID
	UpdatedAt      time.Time
}

// MoveLeadParams carries one stage transition. TimeInPreviousStage is nil
// when the lead had no earlier stage timestamp.
type MoveLeadParams struct {
	LeadID              uuid.UUID
	FromStageID         *uuid.UUID
	ToStageID           uuid.UUID
	ChangedBy           uuid.UUID
	Notes               *string
	TimeInPreviousStage *int64
	ChangedAt           time.Time
}

// HistoryEntry is one row of the append-only stage log.
type HistoryEntry struct {
	ID                  uuid.UUID
	LeadID              uuid.UUID
	FromStageID         *uuid.UUID
	FromStageName       *string
	ToStageID           *uuid.UUID
	ToStageName         *string
	ChangedBy           *uuid.UUID
	Notes               *string
	TimeInPreviousStage *int64
	CreatedAt           time.Time
}
