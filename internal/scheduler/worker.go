package scheduler

import (
	"context"
	"fmt"

	"fddhub/internal/notification/eligibility"
	"fddhub/platform/config"
	"fddhub/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// EligibilityScanner notifies franchisors about leads past the waiting period.
type EligibilityScanner interface {
	Scan(ctx context.Context, franchisorID *uuid.UUID) (eligibility.Result, error)
}

// InvitationExpirer moves overdue invitations to expired.
type InvitationExpirer interface {
	ExpireOverdue(ctx context.Context) (int64, error)
}

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	scanner EligibilityScanner
	expirer InvitationExpirer
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, scanner EligibilityScanner, expirer InvitationExpirer, log *logger.Logger) (*Worker, error) {
	opt, err := redisClientOpt(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := newWorker(scanner, expirer, log)
	w.server = server
	return w, nil
}

func newWorker(scanner EligibilityScanner, expirer InvitationExpirer, log *logger.Logger) *Worker {
	w := &Worker{
		mux:     asynq.NewServeMux(),
		scanner: scanner,
		expirer: expirer,
		log:     log,
	}
	w.mux.HandleFunc(TaskSalesEligibleScan, w.handleSalesEligibleScan)
	w.mux.HandleFunc(TaskInvitationExpirySweep, w.handleInvitationExpirySweep)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// handleSalesEligibleScan succeeds when individual leads fail; those are
// retried by the next scan since nothing was recorded for them.
func (w *Worker) handleSalesEligibleScan(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseSalesEligibleScanPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	franchisorID, err := payload.Franchisor()
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	result, err := w.scanner.Scan(ctx, franchisorID)
	if err != nil {
		return err
	}
	w.log.Info("sales eligible scan finished", "checked", result.Checked, "notified", result.Notified, "errors", len(result.Errors))
	for _, msg := range result.Errors {
		w.log.Warn("sales eligible scan lead failed", "error", msg)
	}
	return nil
}

func (w *Worker) handleInvitationExpirySweep(ctx context.Context, _ *asynq.Task) error {
	n, err := w.expirer.ExpireOverdue(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		w.log.Info("invitations expired", "count", n)
	}
	return nil
}
