// Package jobs schedules the background work the request path defers:
// draining the email queue and expiring stale IP blocks.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tarqumi/agency-api/pkg/gate"
	"github.com/tarqumi/agency-api/pkg/logger"
	"github.com/tarqumi/agency-api/pkg/mailqueue"
)

// CronManager manages scheduled jobs
type CronManager struct {
	cron   *cron.Cron
	worker *mailqueue.Worker
	gate   *gate.Gate
	log    logger.Logger
}

// NewCronManager creates a new cron manager
func NewCronManager(worker *mailqueue.Worker, g *gate.Gate, log logger.Logger) *CronManager {
	return &CronManager{
		cron:   cron.New(),
		worker: worker,
		gate:   g,
		log:    log,
	}
}

// SetupJobs configures all scheduled jobs
func (cm *CronManager) SetupJobs() error {
	// Every minute: drain ready email queue rows. The worker also gets
	// kicked directly after enqueues; this run catches retries whose
	// backoff delay has elapsed.
	_, err := cm.cron.AddFunc("* * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		n, err := cm.worker.PollOnce(ctx)
		if err != nil {
			cm.log.Error("email queue poll failed", "error", err)
			return
		}
		if n > 0 {
			cm.log.Info("email queue drained", "processed", n)
		}
	})
	if err != nil {
		return err
	}

	// Daily at 3 AM: drop IP blocks whose cool-down window has passed.
	_, err = cm.cron.AddFunc("0 3 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		n, err := cm.gate.PurgeExpired(ctx)
		if err != nil {
			cm.log.Error("blocked ip purge failed", "error", err)
			return
		}
		if n > 0 {
			cm.log.Info("expired ip blocks purged", "count", n)
		}
	})
	if err != nil {
		return err
	}

	return nil
}

// Start begins running scheduled jobs
func (cm *CronManager) Start() {
	cm.cron.Start()
	cm.log.Info("cron jobs started")
}

// Stop gracefully stops scheduled jobs and waits for running ones.
func (cm *CronManager) Stop() {
	ctx := cm.cron.Stop()
	<-ctx.Done()
	cm.log.Info("cron jobs stopped")
}
