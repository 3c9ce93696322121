// Package gate guards the public contact endpoint with two independent
// checks: a short-window per-IP rate limit backed by the shared cache,
// and a long-horizon block list of repeat spam offenders.
package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tarqumi/agency-api/pkg/domain"
	"github.com/tarqumi/agency-api/pkg/logger"
	"github.com/tarqumi/agency-api/pkg/models"
)

const rateLimitKeyPrefix = "contact_form_rate_limit:"

// Config holds the gate tunables.
type Config struct {
	RateLimit          int           // submissions per window per IP
	RateLimitWindow    time.Duration // counter TTL
	AutoBlockThreshold int           // spam hits before an IP is actively blocked
	BlockDuration      time.Duration // auto-block cool-down
}

// Gate answers whether a submission attempt from an IP is permitted and
// maintains the BlockedIp bookkeeping for spam-classified submissions.
type Gate struct {
	db    *gorm.DB
	cache domain.CacheRepository
	clock domain.Clock
	log   logger.Logger
	cfg   Config
}

// New creates a gate.
func New(db *gorm.DB, cache domain.CacheRepository, clock domain.Clock, log logger.Logger, cfg Config) *Gate {
	if clock == nil {
		clock = domain.SystemClock()
	}
	return &Gate{db: db, cache: cache, clock: clock, log: log, cfg: cfg}
}

// Allow checks the block list and the rate-limit window for the IP.
// Passing the rate check counts the attempt against the window. The two
// checks are independent: the block list persists until expires_at, the
// counter resets every window.
func (g *Gate) Allow(ctx context.Context, ip string) error {
	blocked, err := g.IsBlocked(ctx, ip)
	if err != nil {
		return domain.NewInternalError(err)
	}
	if blocked {
		return domain.NewIPBlockedError(ip)
	}

	count, err := g.cache.IncrWithTTL(ctx, rateLimitKeyPrefix+ip, g.cfg.RateLimitWindow)
	if err != nil {
		return domain.NewInternalError(err)
	}
	if count > int64(g.cfg.RateLimit) {
		g.log.Warn("contact form rate limit exceeded", "ip", ip, "attempts", count)
		return domain.NewRateLimitedError()
	}

	return nil
}

// IsBlocked reports whether the IP carries an active block.
func (g *Gate) IsBlocked(ctx context.Context, ip string) (bool, error) {
	now := g.clock.Now()

	var count int64
	err := g.db.WithContext(ctx).
		Model(&models.BlockedIp{}).
		Where("ip_address = ?", ip).
		Where("blocked_at IS NOT NULL").
		Where("expires_at IS NULL OR expires_at > ?", now).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed checking block list: %w", err)
	}

	return count > 0, nil
}

// RecordSpamHit increments the spam counter for the IP, creating the row
// on first hit, and promotes the row to an active block once the counter
// reaches the threshold. The increment is an SQL expression so two
// concurrent spam submissions from one IP never undercount. Runs on the
// caller's transaction handle so it commits with the submission.
func (g *Gate) RecordSpamHit(ctx context.Context, tx *gorm.DB, ip string) (*models.BlockedIp, error) {
	var row models.BlockedIp
	err := tx.WithContext(ctx).Where("ip_address = ?", ip).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = models.BlockedIp{IPAddress: ip, Reason: models.BlockReasonSpam}
		if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
			// Unique constraint: another request created the row first.
			if ferr := tx.WithContext(ctx).Where("ip_address = ?", ip).First(&row).Error; ferr != nil {
				return nil, fmt.Errorf("failed creating blocked ip row: %w", err)
			}
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed loading blocked ip row: %w", err)
	}

	err = tx.WithContext(ctx).
		Model(&models.BlockedIp{}).
		Where("ip_address = ?", ip).
		UpdateColumn("spam_count", gorm.Expr("spam_count + 1")).Error
	if err != nil {
		return nil, fmt.Errorf("failed incrementing spam count: %w", err)
	}

	if err := tx.WithContext(ctx).Where("ip_address = ?", ip).First(&row).Error; err != nil {
		return nil, fmt.Errorf("failed reloading blocked ip row: %w", err)
	}

	now := g.clock.Now()
	if row.SpamCount >= g.cfg.AutoBlockThreshold && !row.IsActive(now) {
		expires := now.Add(g.cfg.BlockDuration)
		updates := map[string]interface{}{
			"blocked_at": now,
			"expires_at": expires,
		}
		if err := tx.WithContext(ctx).Model(&row).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed activating block: %w", err)
		}
		row.BlockedAt = &now
		row.ExpiresAt = &expires

		g.log.Warn("ip auto-blocked after repeated spam",
			"ip", ip,
			"spam_count", row.SpamCount,
			"expires_at", expires)
	}

	return &row, nil
}

// PurgeExpired deletes blocks whose cool-down has passed. Run on a
// schedule; keeps the table from accumulating dead rows.
func (g *Gate) PurgeExpired(ctx context.Context) (int64, error) {
	res := g.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", g.clock.Now()).
		Delete(&models.BlockedIp{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed purging expired blocks: %w", res.Error)
	}
	return res.RowsAffected, nil
}
