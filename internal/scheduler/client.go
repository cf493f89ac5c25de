package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fddhub/platform/cache"
	"fddhub/platform/config"
	"fddhub/platform/logger"

	"github.com/hibiken/asynq"
)

const defaultQueue = "default"

// Periodic enqueues the recurring scans on their cron specs.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
	opt, err := redisClientOpt(cfg)
	if err != nil {
		return nil, err
	}

	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Location: time.UTC,
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err == nil || errors.Is(err, asynq.ErrDuplicateTask) {
				return
			}
			log.Warn("periodic task enqueue failed", "error", err)
		},
	})

	queue := queueName(cfg)
	scan, err := NewSalesEligibleScanTask(SalesEligibleScanPayload{})
	if err != nil {
		return nil, err
	}
	entries := []struct {
		spec string
		task *asynq.Task
	}{
		{cfg.GetSalesEligibleScanSpec(), scan},
		{cfg.GetInvitationExpirySweepSpec(), NewInvitationExpirySweepTask()},
	}
	for _, e := range entries {
		if e.spec == "" {
			log.Info("periodic task disabled", "task", e.task.Type())
			continue
		}
		if _, err := scheduler.Register(e.spec, e.task, asynq.Queue(queue), asynq.MaxRetry(3), asynq.Unique(30*time.Minute)); err != nil {
			return nil, fmt.Errorf("register %s (%s): %w", e.task.Type(), e.spec, err)
		}
		log.Info("periodic task registered", "task", e.task.Type(), "spec", e.spec)
	}

	return &Periodic{scheduler: scheduler, log: log}, nil
}

// Run blocks until ctx is cancelled.
func (p *Periodic) Run(ctx context.Context) error {
	if err := p.scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	<-ctx.Done()
	p.scheduler.Shutdown()
	return nil
}

func queueName(cfg config.SchedulerConfig) string {
	if q := cfg.GetAsynqQueueName(); q != "" {
		return q
	}
	return defaultQueue
}

func redisClientOpt(cfg config.SchedulerConfig) (asynq.RedisClientOpt, error) {
	if cfg.GetRedisURL() == "" {
		return asynq.RedisClientOpt{}, fmt.Errorf("redis url not configured")
	}
	opt, err := cache.ParseURL(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}
