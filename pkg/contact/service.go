// Package contact implements the submission intake pipeline and the
// staff moderation surface over contact submissions.
package contact

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tarqumi/agency-api/pkg/domain"
	"github.com/tarqumi/agency-api/pkg/gate"
	"github.com/tarqumi/agency-api/pkg/logger"
	"github.com/tarqumi/agency-api/pkg/metrics"
	"github.com/tarqumi/agency-api/pkg/models"
	"github.com/tarqumi/agency-api/pkg/notify"
	"github.com/tarqumi/agency-api/pkg/phone"
	"github.com/tarqumi/agency-api/pkg/spam"
)

const defaultPerPage = 25

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// QueueKicker triggers an immediate delivery poll after new queue rows
// are committed.
type QueueKicker interface {
	Kick()
}

// Service orchestrates intake and moderation of contact submissions.
type Service struct {
	db         *gorm.DB
	gate       *gate.Gate
	scorer     *spam.Scorer
	dispatcher *notify.Dispatcher
	clock      domain.Clock
	log        logger.Logger
	metrics    *metrics.Metrics
	kicker     QueueKicker
}

// NewService creates a contact service. metrics and kicker may be nil.
func NewService(db *gorm.DB, g *gate.Gate, scorer *spam.Scorer, dispatcher *notify.Dispatcher, clock domain.Clock, log logger.Logger, m *metrics.Metrics, kicker QueueKicker) *Service {
	if clock == nil {
		clock = domain.SystemClock()
	}
	return &Service{
		db:         db,
		gate:       g,
		scorer:     scorer,
		dispatcher: dispatcher,
		clock:      clock,
		log:        log,
		metrics:    m,
		kicker:     kicker,
	}
}

// Submit runs the intake pipeline: gate, score, persist, branch. The
// submission row and its side effects (block bookkeeping or queue rows)
// commit in one transaction. The returned submission carries the real
// classification; callers rendering the public response must not leak it.
func (s *Service) Submit(ctx context.Context, req models.SubmitContactRequest, ip, userAgent string) (*models.ContactSubmission, error) {
	if err := s.gate.Allow(ctx, ip); err != nil {
		if s.metrics != nil {
			switch {
			case domain.IsRateLimited(err):
				s.metrics.GateRejectionsTotal.WithLabelValues("rate_limited").Inc()
			case domain.IsIPBlocked(err):
				s.metrics.GateRejectionsTotal.WithLabelValues("blocked").Inc()
			}
		}
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	message := strings.TrimSpace(htmlTagRegex.ReplaceAllString(req.Message, ""))

	var phoneNum *string
	if req.Phone != nil && strings.TrimSpace(*req.Phone) != "" {
		normalized := phone.Normalize(*req.Phone, req.Language)
		phoneNum = &normalized
	}

	patterns, err := s.activePatterns(ctx)
	if err != nil {
		return nil, domain.NewInternalError(err)
	}

	result := s.scorer.Score(patterns, spam.Input{
		Name:    req.Name,
		Email:   email,
		Message: message,
		IP:      ip,
	})
	decision := Classify(result, s.scorer.Threshold())

	sub := models.ContactSubmission{
		Name:        strings.TrimSpace(req.Name),
		Email:       email,
		Phone:       phoneNum,
		Message:     message,
		Subject:     req.Subject,
		Status:      decision.Status,
		Language:    req.Language,
		IPAddress:   ip,
		UserAgent:   userAgent,
		SubmittedAt: s.clock.Now(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&sub).Error; err != nil {
			return fmt.Errorf("failed persisting submission: %w", err)
		}
		for _, effect := range decision.Effects {
			switch effect {
			case EffectRecordSpamHit:
				if _, err := s.gate.RecordSpamHit(ctx, tx, ip); err != nil {
					return err
				}
			case EffectNotify:
				if _, err := s.dispatcher.Dispatch(ctx, tx, &sub); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, domain.NewInternalError(err)
	}

	if s.metrics != nil {
		s.metrics.SubmissionsTotal.WithLabelValues(decision.Status).Inc()
	}
	if decision.Status == models.StatusNew && s.kicker != nil {
		s.kicker.Kick()
	}

	s.log.Info("contact form submitted",
		"submission_id", sub.ID,
		"email", sub.Email,
		"ip", ip,
		"status", decision.Status,
		"spam_score", result.Score)

	return &sub, nil
}

func (s *Service) activePatterns(ctx context.Context) ([]models.SpamPattern, error) {
	var patterns []models.SpamPattern
	err := s.db.WithContext(ctx).Where("is_active = ?", true).Find(&patterns).Error
	if err != nil {
		return nil, fmt.Errorf("failed loading spam patterns: %w", err)
	}
	return patterns, nil
}

// List returns a filtered, paginated moderation listing. Spam is
// excluded unless asked for explicitly.
func (s *Service) List(ctx context.Context, f models.SubmissionFilters) (*models.SubmissionList, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = defaultPerPage
	}

	query := s.db.WithContext(ctx).Model(&models.ContactSubmission{})

	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	} else if !f.IncludeSpam {
		query = query.Where("status != ?", models.StatusSpam)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		query = query.Where(
			"lower(name) LIKE ? OR lower(email) LIKE ? OR lower(subject) LIKE ? OR lower(message) LIKE ?",
			like, like, like, like)
	}
	if f.DateFrom != "" {
		if from, err := time.Parse("2006-01-02", f.DateFrom); err == nil {
			query = query.Where("submitted_at >= ?", from)
		}
	}
	if f.DateTo != "" {
		if to, err := time.Parse("2006-01-02", f.DateTo); err == nil {
			query = query.Where("submitted_at < ?", to.AddDate(0, 0, 1))
		}
	}
	if f.Language != "" {
		query = query.Where("language = ?", f.Language)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, domain.NewInternalError(err)
	}

	var subs []models.ContactSubmission
	err := query.
		Order("submitted_at desc").
		Offset((f.Page - 1) * f.PerPage).
		Limit(f.PerPage).
		Find(&subs).Error
	if err != nil {
		return nil, domain.NewInternalError(err)
	}

	lastPage := int(math.Ceil(float64(total) / float64(f.PerPage)))
	if lastPage < 1 {
		lastPage = 1
	}

	return &models.SubmissionList{
		Submissions: subs,
		Meta: models.PaginationMeta{
			CurrentPage: f.Page,
			LastPage:    lastPage,
			PerPage:     f.PerPage,
			Total:       total,
		},
	}, nil
}

// Get fetches one submission, transitioning new submissions to read as a
// side effect of being looked at.
func (s *Service) Get(ctx context.Context, id uint, readBy *uint) (*models.ContactSubmission, error) {
	var sub models.ContactSubmission
	if err := s.db.WithContext(ctx).First(&sub, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("submission")
		}
		return nil, domain.NewInternalError(err)
	}

	if sub.Status == models.StatusNew {
		now := s.clock.Now()
		updates := map[string]interface{}{
			"status":  models.StatusRead,
			"read_at": now,
		}
		if readBy != nil {
			updates["read_by"] = *readBy
		}
		if err := s.db.WithContext(ctx).Model(&sub).Updates(updates).Error; err != nil {
			return nil, domain.NewInternalError(err)
		}
		sub.Status = models.StatusRead
		sub.ReadAt = &now
		sub.ReadBy = readBy
	}

	return &sub, nil
}

// UpdateStatus moves a submission along the lifecycle graph.
func (s *Service) UpdateStatus(ctx context.Context, id uint, status string, adminNotes *string) (*models.ContactSubmission, error) {
	var sub models.ContactSubmission
	if err := s.db.WithContext(ctx).First(&sub, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("submission")
		}
		return nil, domain.NewInternalError(err)
	}

	if status != sub.Status && !sub.CanTransitionTo(status) {
		return nil, domain.NewInvalidTransitionError(sub.Status, status)
	}

	updates := map[string]interface{}{"status": status}
	if adminNotes != nil {
		updates["admin_notes"] = *adminNotes
	}
	if err := s.db.WithContext(ctx).Model(&sub).Updates(updates).Error; err != nil {
		return nil, domain.NewInternalError(err)
	}

	s.log.Info("submission status updated",
		"submission_id", sub.ID,
		"old_status", sub.Status,
		"new_status", status)

	sub.Status = status
	if adminNotes != nil {
		sub.AdminNotes = adminNotes
	}
	return &sub, nil
}

// MarkSpam flags a submission as spam and records a spam hit against its
// source IP. Repeating the call keeps incrementing the counter (the
// block bookkeeping is deliberately not idempotent) but the unique
// ip_address constraint guarantees a single BlockedIp row.
func (s *Service) MarkSpam(ctx context.Context, id uint) (*models.ContactSubmission, error) {
	var sub models.ContactSubmission
	if err := s.db.WithContext(ctx).First(&sub, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("submission")
		}
		return nil, domain.NewInternalError(err)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if sub.Status != models.StatusSpam {
			if err := tx.Model(&sub).Update("status", models.StatusSpam).Error; err != nil {
				return err
			}
			sub.Status = models.StatusSpam
		}
		if sub.IPAddress != "" {
			if _, err := s.gate.RecordSpamHit(ctx, tx, sub.IPAddress); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, domain.NewInternalError(err)
	}

	return &sub, nil
}

// Delete soft-deletes a submission.
func (s *Service) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.ContactSubmission{}, id)
	if res.Error != nil {
		return domain.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NewNotFoundError("submission")
	}
	return nil
}

// BulkUpdateStatus applies a status to every submission in ids whose
// current status allows the transition; rows the graph forbids are
// skipped, not failed. Returns the number of rows updated.
func (s *Service) BulkUpdateStatus(ctx context.Context, ids []uint, status string) (int64, error) {
	var subs []models.ContactSubmission
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&subs).Error; err != nil {
		return 0, domain.NewInternalError(err)
	}

	allowed := make([]uint, 0, len(subs))
	for _, sub := range subs {
		if sub.Status == status || sub.CanTransitionTo(status) {
			allowed = append(allowed, sub.ID)
		}
	}
	if len(allowed) == 0 {
		return 0, nil
	}

	res := s.db.WithContext(ctx).
		Model(&models.ContactSubmission{}).
		Where("id IN ?", allowed).
		Update("status", status)
	if res.Error != nil {
		return 0, domain.NewInternalError(res.Error)
	}

	s.log.Info("bulk status update", "count", res.RowsAffected, "status", status)

	return res.RowsAffected, nil
}

// BulkDelete soft-deletes the given submissions. Returns the number deleted.
func (s *Service) BulkDelete(ctx context.Context, ids []uint) (int64, error) {
	res := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.ContactSubmission{})
	if res.Error != nil {
		return 0, domain.NewInternalError(res.Error)
	}

	s.log.Info("bulk delete submissions", "count", res.RowsAffected)

	return res.RowsAffected, nil
}

// Statistics aggregates submission counts for the moderation dashboard.
func (s *Service) Statistics(ctx context.Context) (*models.SubmissionStatistics, error) {
	stats := &models.SubmissionStatistics{
		ByStatus: make(map[string]int64),
	}

	type statusCount struct {
		Status string
		Count  int64
	}
	var counts []statusCount
	err := s.db.WithContext(ctx).
		Model(&models.ContactSubmission{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return nil, domain.NewInternalError(err)
	}
	for _, c := range counts {
		stats.ByStatus[c.Status] = c.Count
		stats.Total += c.Count
	}

	now := s.clock.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	buckets := []struct {
		since time.Time
		dest  *int64
	}{
		{startOfDay, &stats.Today},
		{now.AddDate(0, 0, -7), &stats.ThisWeek},
		{now.AddDate(0, -1, 0), &stats.ThisMonth},
	}
	for _, b := range buckets {
		err := s.db.WithContext(ctx).
			Model(&models.ContactSubmission{}).
			Where("submitted_at >= ?", b.since).
			Count(b.dest).Error
		if err != nil {
			return nil, domain.NewInternalError(err)
		}
	}

	err = s.db.WithContext(ctx).
		Model(&models.EmailQueue{}).
		Where("status = ?", models.EmailStatusPending).
		Count(&stats.PendingEmails).Error
	if err != nil {
		return nil, domain.NewInternalError(err)
	}

	return stats, nil
}
