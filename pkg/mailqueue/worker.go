// Package mailqueue drains the durable email queue through the external
// mail transport with bounded retries on an explicit backoff schedule.
package mailqueue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"gorm.io/gorm"

	"github.com/tarqumi/agency-api/pkg/domain"
	"github.com/tarqumi/agency-api/pkg/logger"
	"github.com/tarqumi/agency-api/pkg/metrics"
	"github.com/tarqumi/agency-api/pkg/models"
)

const pollBatchSize = 50

// Worker processes ready-to-send queue rows. Multiple workers may poll
// concurrently; the claim step guarantees a row is only ever processed
// by one of them.
type Worker struct {
	db          *gorm.DB
	mailer      domain.Mailer
	clock       domain.Clock
	log         logger.Logger
	metrics     *metrics.Metrics
	sendTimeout time.Duration
	concurrency int

	pollMu sync.Mutex
	wg     sync.WaitGroup
}

// New creates a delivery worker.
func New(db *gorm.DB, mailer domain.Mailer, clock domain.Clock, log logger.Logger, m *metrics.Metrics, sendTimeout time.Duration, concurrency int) *Worker {
	if clock == nil {
		clock = domain.SystemClock()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Worker{
		db:          db,
		mailer:      mailer,
		clock:       clock,
		log:         log,
		metrics:     m,
		sendTimeout: sendTimeout,
		concurrency: concurrency,
	}
}

// PollOnce drains one batch of ready rows. Overlapping polls collapse:
// if a poll is already running, the call returns immediately; the
// running poll or the next scheduled one picks the rows up.
func (w *Worker) PollOnce(ctx context.Context) (int, error) {
	if !w.pollMu.TryLock() {
		return 0, nil
	}
	defer w.pollMu.Unlock()

	now := w.clock.Now()

	var rows []models.EmailQueue
	err := w.db.WithContext(ctx).
		Where("status = ?", models.EmailStatusPending).
		Where("scheduled_at IS NULL OR scheduled_at <= ?", now).
		Where("attempts < max_attempts").
		Order("created_at asc").
		Limit(pollBatchSize).
		Find(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("failed loading ready queue rows: %w", err)
	}

	if len(rows) == 0 {
		return 0, nil
	}

	sem := make(chan struct{}, w.concurrency)
	processed := 0
	for i := range rows {
		row := rows[i]
		if !w.claim(ctx, row.ID) {
			continue
		}
		processed++
		sem <- struct{}{}
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			defer func() { <-sem }()
			w.Process(ctx, &row)
		}()
	}
	w.wg.Wait()

	return processed, nil
}

// Kick triggers an asynchronous poll, used right after new rows are
// enqueued so delivery does not wait for the next scheduled run.
func (w *Worker) Kick() {
	go func() {
		if _, err := w.PollOnce(context.Background()); err != nil {
			w.log.Error("queue poll failed", "error", err)
		}
	}()
}

// Shutdown waits for in-flight delivery attempts to finish.
func (w *Worker) Shutdown() {
	w.wg.Wait()
}

// claim atomically transitions a row pending -> processing. A row whose
// status changed under us (claimed by another worker, or moderated) is
// skipped.
func (w *Worker) claim(ctx context.Context, id uint) bool {
	res := w.db.WithContext(ctx).
		Model(&models.EmailQueue{}).
		Where("id = ? AND status = ?", id, models.EmailStatusPending).
		Update("status", models.EmailStatusProcessing)
	if res.Error != nil {
		w.log.Error("failed claiming queue row", "queue_id", id, "error", res.Error)
		return false
	}
	return res.RowsAffected == 1
}

// Process runs a single delivery attempt for a claimed row.
func (w *Worker) Process(ctx context.Context, row *models.EmailQueue) {
	sendCtx, cancel := context.WithTimeout(ctx, w.sendTimeout)
	defer cancel()

	msg := domain.Message{
		ToEmail: row.ToEmail,
		Subject: row.Subject,
		HTML:    row.BodyHTML,
	}
	if row.ToName != nil {
		msg.ToName = *row.ToName
	}
	if row.FromEmail != nil {
		msg.FromEmail = *row.FromEmail
	}
	if row.FromName != nil {
		msg.FromName = *row.FromName
	}
	if row.BodyText != nil {
		msg.Text = *row.BodyText
	}

	if err := w.mailer.Send(sendCtx, msg); err != nil {
		w.handleFailure(ctx, row, err)
		return
	}

	w.handleSuccess(ctx, row)
}

func (w *Worker) handleSuccess(ctx context.Context, row *models.EmailQueue) {
	now := w.clock.Now()

	err := w.db.WithContext(ctx).Model(row).Updates(map[string]interface{}{
		"status":  models.EmailStatusSent,
		"sent_at": now,
	}).Error
	if err != nil {
		w.log.Error("failed marking queue row sent", "queue_id", row.ID, "error", err)
		return
	}

	w.appendLog(ctx, row, models.EmailStatusSent, nil)

	if w.metrics != nil {
		w.metrics.EmailsSent.Inc()
	}

	w.log.Info("email sent", "queue_id", row.ID, "to", row.ToEmail, "attempts", row.Attempts+1)
}

func (w *Worker) handleFailure(ctx context.Context, row *models.EmailQueue, sendErr error) {
	now := w.clock.Now()
	attempts := row.Attempts + 1
	errMsg := sendErr.Error()

	updates := map[string]interface{}{
		"attempts":      attempts,
		"failed_at":     now,
		"error_message": errMsg,
	}

	exhausted := attempts >= row.MaxAttempts
	if exhausted {
		updates["status"] = models.EmailStatusFailed
	} else {
		// Retryable: the row re-enters the queue at a future slot on
		// the explicit schedule.
		delay := delayFor(scheduleFor(row.MaxAttempts), attempts)
		updates["status"] = models.EmailStatusPending
		updates["scheduled_at"] = now.Add(delay)
	}

	if err := w.db.WithContext(ctx).Model(row).Updates(updates).Error; err != nil {
		w.log.Error("failed recording delivery failure", "queue_id", row.ID, "error", err)
		return
	}
	row.Attempts = attempts

	w.appendLog(ctx, row, models.EmailStatusFailed, &errMsg)

	if w.metrics != nil {
		w.metrics.EmailsFailed.Inc()
	}

	if exhausted {
		// Terminal. The row stays visible in failed state for operator
		// inspection; a human decides whether to resend.
		w.log.Error("email permanently failed after all retries",
			"queue_id", row.ID,
			"to", row.ToEmail,
			"attempts", attempts,
			"error", errMsg)
		sentry.CaptureException(fmt.Errorf("email queue row %d permanently failed after %d attempts: %w", row.ID, attempts, sendErr))
		if w.metrics != nil {
			w.metrics.EmailsPermanentlyFailed.Inc()
		}
		return
	}

	w.log.Error("email delivery attempt failed",
		"queue_id", row.ID,
		"to", row.ToEmail,
		"attempt", attempts,
		"error", errMsg)
}

func (w *Worker) appendLog(ctx context.Context, row *models.EmailQueue, status string, errMsg *string) {
	entry := models.EmailLog{
		ToEmail:      row.ToEmail,
		Subject:      row.Subject,
		Status:       status,
		ErrorMessage: errMsg,
		SentAt:       w.clock.Now(),
		EmailQueueID: &row.ID,
	}
	if err := w.db.WithContext(ctx).Create(&entry).Error; err != nil {
		w.log.Error("failed appending email log", "queue_id", row.ID, "error", err)
	}
}
