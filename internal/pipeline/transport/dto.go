package transport

import "time"

type CreateStageRequest struct {
	Name         string  `json:"name" validate:"required,max=100"`
	Description  *string `json:"description" validate:"omitempty,max=500"`
	Color        string  `json:"color" validate:"omitempty,hexcolor"`
	IsDefault    bool    `json:"is_default"`
	IsClosedWon  bool    `json:"is_closed_won"`
	IsClosedLost bool    `json:"is_closed_lost"`
}

type UpdateStageRequest struct {
	Name         *string `json:"name" validate:"omitempty,max=100"`
	Description  *string `json:"description" validate:"omitempty,max=500"`
	Color        *string `json:"color" validate:"omitempty,hexcolor"`
	IsDefault    *bool   `json:"is_default"`
	IsClosedWon  *bool   `json:"is_closed_won"`
	IsClosedLost *bool   `json:"is_closed_lost"`
}

type ReorderRequest struct {
	StageIDs []string `json:"stageIds" validate:"required,min=1,dive,uuid"`
}

type ChangeStageRequest struct {
	StageID string  `json:"stage_id" validate:"required,uuid"`
	Notes   *string `json:"notes" validate:"omitempty,max=2000"`
}

type StageResponse struct {
	ID           string    `json:"id"`
	FranchisorID string    `json:"franchisor_id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description"`
	Color        string    `json:"color"`
	Position     int       `json:"position"`
	IsDefault    bool      `json:"is_default"`
	IsClosedWon  bool      `json:"is_closed_won"`
	IsClosedLost bool      `json:"is_closed_lost"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type LeadResponse struct {
	ID             string     `json:"id"`
	FranchiseID    string     `json:"franchise_id"`
	LeadName       string     `json:"lead_name"`
	LeadEmail      string     `json:"lead_email"`
	Status         string     `json:"status"`
	StageID        *string    `json:"stage_id"`
	StageChangedAt *time.Time `json:"stage_changed_at"`
}

type ChangeStageResponse struct {
	Lead    LeadResponse  `json:"lead"`
	Stage   StageResponse `json:"stage"`
	Message string        `json:"message"`
}

type HistoryEntryResponse struct {
	ID                  string    `json:"id"`
	FromStageID         *string   `json:"from_stage_id"`
	FromStageName       *string   `json:"from_stage_name"`
	ToStageID           *string   `json:"to_stage_id"`
	ToStageName         *string   `json:"to_stage_name"`
	ChangedBy           *string   `json:"changed_by"`
	Notes               *string   `json:"notes"`
	TimeInPreviousStage *int64    `json:"time_in_previous_stage"`
	CreatedAt           time.Time `json:"created_at"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}
