package scheduler

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const TaskSalesEligibleScan = "access.sales_eligible_scan"

const TaskInvitationExpirySweep = "invitations.expire_sweep"

// SalesEligibleScanPayload limits a scan to one franchisor when set.
type SalesEligibleScanPayload struct {
	FranchisorID string `json:"franchisorId,omitempty"`
}

func NewSalesEligibleScanTask(payload SalesEligibleScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSalesEligibleScan, data), nil
}

func ParseSalesEligibleScanPayload(task *asynq.Task) (SalesEligibleScanPayload, error) {
	var payload SalesEligibleScanPayload
	if len(task.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SalesEligibleScanPayload{}, err
	}
	return payload, nil
}

// Franchisor returns the parsed franchisor filter, or nil for a full scan.
func (p SalesEligibleScanPayload) Franchisor() (*uuid.UUID, error) {
	if p.FranchisorID == "" {
		return nil, nil
	}
	id, err := uuid.Parse(p.FranchisorID)
	if err != nil {
		return nil, fmt.Errorf("invalid franchisor id %q: %w", p.FranchisorID, err)
	}
	return &id, nil
}

func NewInvitationExpirySweepTask() *asynq.Task {
	return asynq.NewTask(TaskInvitationExpirySweep, nil)
}
