package contact

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tarqumi/agency-api/pkg/cache"
	"github.com/tarqumi/agency-api/pkg/domain"
	"github.com/tarqumi/agency-api/pkg/gate"
	"github.com/tarqumi/agency-api/pkg/logger"
	"github.com/tarqumi/agency-api/pkg/models"
	"github.com/tarqumi/agency-api/pkg/notify"
	"github.com/tarqumi/agency-api/pkg/spam"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// setupTestService wires a service against in-memory sqlite and redis.
func setupTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.ContactSubmission{},
		&models.SpamPattern{},
		&models.BlockedIp{},
		&models.EmailQueue{},
		&models.EmailLog{},
		&models.EmailRecipient{},
	))

	mr := miniredis.RunT(t)
	redisClient, err := cache.NewClient("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { redisClient.Close() })

	clock := domain.ClockFunc(func() time.Time { return testNow })
	log := logger.Nop()

	g := gate.New(db, redisClient, clock, log, gate.Config{
		RateLimit:          5,
		RateLimitWindow:    time.Minute,
		AutoBlockThreshold: 5,
		BlockDuration:      30 * 24 * time.Hour,
	})
	scorer := spam.NewScorer(5)
	dispatcher := notify.New("noreply@tarqumi.com", "Tarqumi", 5, log)

	svc := NewService(db, g, scorer, dispatcher, clock, log, nil, nil)
	return svc, db
}

func addRecipient(t *testing.T, db *gorm.DB, email string) {
	t.Helper()
	require.NoError(t, db.Create(&models.EmailRecipient{
		Email:                  email,
		Name:                   "Staff",
		IsActive:               true,
		NotificationPreference: models.NotifyImmediate,
	}).Error)
}

func addPattern(t *testing.T, db *gorm.DB, kind, value string, weight int) {
	t.Helper()
	require.NoError(t, db.Create(&models.SpamPattern{
		Pattern:  value,
		Type:     kind,
		Weight:   weight,
		IsActive: true,
	}).Error)
}

func cleanRequest() models.SubmitContactRequest {
	return models.SubmitContactRequest{
		Name:            "Layla Hassan",
		Email:           "Layla@Example.COM",
		Message:         "We are looking for a partner to redesign our corporate website.",
		Language:        models.LanguageEnglish,
		PrivacyAccepted: true,
	}
}

func TestSubmitCleanSubmission(t *testing.T) {
	svc, db := setupTestService(t)
	addRecipient(t, db, "a@tarqumi.com")
	addRecipient(t, db, "b@tarqumi.com")

	sub, err := svc.Submit(context.Background(), cleanRequest(), "198.51.100.1", "test-agent")
	require.NoError(t, err)

	assert.Equal(t, models.StatusNew, sub.Status)
	assert.Equal(t, "layla@example.com", sub.Email)
	assert.Equal(t, "198.51.100.1", sub.IPAddress)
	assert.True(t, sub.SubmittedAt.Equal(testNow))

	// One queue row per recipient committed alongside the submission.
	var rows []models.EmailQueue
	require.NoError(t, db.Find(&rows).Error)
	assert.Len(t, rows, 2)

	// No block list bookkeeping for clean submissions.
	var blocked int64
	require.NoError(t, db.Model(&models.BlockedIp{}).Count(&blocked).Error)
	assert.Equal(t, int64(0), blocked)
}

func TestSubmitStripsHTMLFromMessage(t *testing.T) {
	svc, _ := setupTestService(t)

	req := cleanRequest()
	req.Message = "Hello <script>alert(1)</script> we need <b>help</b> with our branding work"

	sub, err := svc.Submit(context.Background(), req, "198.51.100.1", "")
	require.NoError(t, err)
	assert.Equal(t, "Hello alert(1) we need help with our branding work", sub.Message)
}

func TestSubmitNormalizesPhone(t *testing.T) {
	svc, _ := setupTestService(t)

	phone := "(650) 253-0000"
	req := cleanRequest()
	req.Phone = &phone

	sub, err := svc.Submit(context.Background(), req, "198.51.100.1", "")
	require.NoError(t, err)
	require.NotNil(t, sub.Phone)
	assert.Equal(t, "+16502530000", *sub.Phone)
}

func TestSubmitSpamIsPersistedButNotNotified(t *testing.T) {
	svc, db := setupTestService(t)
	addRecipient(t, db, "a@tarqumi.com")
	addPattern(t, db, models.PatternKeyword, "casino", 5)

	req := cleanRequest()
	req.Message = "visit our casino today for the best games and bonuses online"

	sub, err := svc.Submit(context.Background(), req, "198.51.100.1", "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSpam, sub.Status)

	// Spam never reaches the notification queue.
	var rows int64
	require.NoError(t, db.Model(&models.EmailQueue{}).Count(&rows).Error)
	assert.Equal(t, int64(0), rows)

	// But it does count against the source IP.
	var blocked models.BlockedIp
	require.NoError(t, db.Where("ip_address = ?", "198.51.100.1").First(&blocked).Error)
	assert.Equal(t, 1, blocked.SpamCount)
	assert.Nil(t, blocked.BlockedAt)
}

func TestSubmitFifthSpamHitBlocksTheIP(t *testing.T) {
	svc, db := setupTestService(t)
	addPattern(t, db, models.PatternKeyword, "casino", 5)

	req := cleanRequest()
	req.Message = "visit our casino today for the best games and bonuses online"

	for i := 0; i < 5; i++ {
		_, err := svc.Submit(context.Background(), req, "198.51.100.1", "")
		require.NoError(t, err)
	}

	// The sixth submission is rejected at the gate, spam or not.
	_, err := svc.Submit(context.Background(), req, "198.51.100.1", "")
	assert.True(t, domain.IsIPBlocked(err))

	var count int64
	require.NoError(t, db.Model(&models.ContactSubmission{}).Count(&count).Error)
	assert.Equal(t, int64(5), count)
}

func TestSubmitRateLimitRejectsWithoutPersisting(t *testing.T) {
	svc, db := setupTestService(t)

	for i := 0; i < 5; i++ {
		_, err := svc.Submit(context.Background(), cleanRequest(), "198.51.100.2", "")
		require.NoError(t, err)
	}

	_, err := svc.Submit(context.Background(), cleanRequest(), "198.51.100.2", "")
	assert.True(t, domain.IsRateLimited(err))

	var count int64
	require.NoError(t, db.Model(&models.ContactSubmission{}).Count(&count).Error)
	assert.Equal(t, int64(5), count)
}

func TestGetMarksNewSubmissionRead(t *testing.T) {
	svc, _ := setupTestService(t)

	sub, err := svc.Submit(context.Background(), cleanRequest(), "198.51.100.1", "")
	require.NoError(t, err)

	staffID := uint(42)
	got, err := svc.Get(context.Background(), sub.ID, &staffID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRead, got.Status)
	require.NotNil(t, got.ReadAt)
	require.NotNil(t, got.ReadBy)
	assert.Equal(t, staffID, *got.ReadBy)

	// A second fetch does not touch read_at again.
	again, err := svc.Get(context.Background(), sub.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRead, again.Status)
}

func TestGetUnknownIDReturnsNotFound(t *testing.T) {
	svc, _ := setupTestService(t)

	_, err := svc.Get(context.Background(), 9999, nil)
	assert.True(t, domain.IsNotFound(err))
}

func TestUpdateStatusFollowsLifecycleGraph(t *testing.T) {
	svc, _ := setupTestService(t)

	sub, err := svc.Submit(context.Background(), cleanRequest(), "198.51.100.1", "")
	require.NoError(t, err)

	notes := "quoted 5k, awaiting reply"
	got, err := svc.UpdateStatus(context.Background(), sub.ID, models.StatusReplied, &notes)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReplied, got.Status)
	require.NotNil(t, got.AdminNotes)
	assert.Equal(t, notes, *got.AdminNotes)
}

func TestUpdateStatusRejectsBackwardTransition(t *testing.T) {
	svc, _ := setupTestService(t)

	sub, err := svc.Submit(context.Background(), cleanRequest(), "198.51.100.1", "")
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), sub.ID, models.StatusArchived, nil)
	require.NoError(t, err)

	// Archived never goes back to read.
	_, err = svc.UpdateStatus(context.Background(), sub.ID, models.StatusRead, nil)
	assert.True(t, domain.IsInvalidTransition(err))
}

func TestMarkSpamTransitionsAndCountsHit(t *testing.T) {
	svc, db := setupTestService(t)

	sub, err := svc.Submit(context.Background(), cleanRequest(), "198.51.100.1", "")
	require.NoError(t, err)

	got, err := svc.MarkSpam(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSpam, got.Status)

	var blocked models.BlockedIp
	require.NoError(t, db.Where("ip_address = ?", "198.51.100.1").First(&blocked).Error)
	assert.Equal(t, 1, blocked.SpamCount)
}

func TestMarkSpamOnAlreadySpamStillCountsHit(t *testing.T) {
	svc, db := setupTestService(t)

	sub, err := svc.Submit(context.Background(), cleanRequest(), "198.51.100.1", "")
	require.NoError(t, err)

	_, err = svc.MarkSpam(context.Background(), sub.ID)
	require.NoError(t, err)
	_, err = svc.MarkSpam(context.Background(), sub.ID)
	require.NoError(t, err)

	var blocked []models.BlockedIp
	require.NoError(t, db.Where("ip_address = ?", "198.51.100.1").Find(&blocked).Error)
	require.Len(t, blocked, 1)
	assert.Equal(t, 2, blocked[0].SpamCount)
}

func TestDeleteSoftDeletes(t *testing.T) {
	svc, db := setupTestService(t)

	sub, err := svc.Submit(context.Background(), cleanRequest(), "198.51.100.1", "")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), sub.ID))

	_, err = svc.Get(context.Background(), sub.ID, nil)
	assert.True(t, domain.IsNotFound(err))

	// The row survives with a deletion marker.
	var count int64
	require.NoError(t, db.Unscoped().Model(&models.ContactSubmission{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDeleteUnknownIDReturnsNotFound(t *testing.T) {
	svc, _ := setupTestService(t)

	err := svc.Delete(context.Background(), 9999)
	assert.True(t, domain.IsNotFound(err))
}

func TestListExcludesSpamByDefault(t *testing.T) {
	svc, _ := setupTestService(t)

	clean, err := svc.Submit(context.Background(), cleanRequest(), "198.51.100.1", "")
	require.NoError(t, err)
	spammy, err := svc.Submit(context.Background(), cleanRequest(), "198.51.100.3", "")
	require.NoError(t, err)
	_, err = svc.MarkSpam(context.Background(), spammy.ID)
	require.NoError(t, err)

	list, err := svc.List(context.Background(), models.SubmissionFilters{})
	require.NoError(t, err)
	require.Len(t, list.Submissions, 1)
	assert.Equal(t, clean.ID, list.Submissions[0].ID)

	// Explicit status filter reaches the spam pile.
	list, err = svc.List(context.Background(), models.SubmissionFilters{Status: models.StatusSpam})
	require.NoError(t, err)
	require.Len(t, list.Submissions, 1)
	assert.Equal(t, spammy.ID, list.Submissions[0].ID)
}

func TestListSearchMatchesNameAndEmail(t *testing.T) {
	svc, _ := setupTestService(t)

	_, err := svc.Submit(context.Background(), cleanRequest(), "198.51.100.1", "")
	require.NoError(t, err)

	other := cleanRequest()
	other.Name = "Omar Khalil"
	other.Email = "omar@elsewhere.net"
	_, err = svc.Submit(context.Background(), other, "198.51.100.3", "")
	require.NoError(t, err)

	list, err := svc.List(context.Background(), models.SubmissionFilters{Search: "omar"})
	require.NoError(t, err)
	require.Len(t, list.Submissions, 1)
	assert.Equal(t, "Omar Khalil", list.Submissions[0].Name)
}

func TestListPagination(t *testing.T) {
	svc, db := setupTestService(t)

	for i := 0; i < 7; i++ {
		sub := models.ContactSubmission{
			Name:        "Visitor",
			Email:       "visitor@example.com",
			Message:     "a message body long enough to pass through validation",
			Status:      models.StatusNew,
			Language:    models.LanguageEnglish,
			SubmittedAt: testNow.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(&sub).Error)
	}

	list, err := svc.List(context.Background(), models.SubmissionFilters{Page: 2, PerPage: 3})
	require.NoError(t, err)
	assert.Len(t, list.Submissions, 3)
	assert.Equal(t, int64(7), list.Meta.Total)
	assert.Equal(t, 2, list.Meta.CurrentPage)
	assert.Equal(t, 3, list.Meta.LastPage)

	// Newest first: page 2 of 3-per-page starts at the 4th newest.
	assert.True(t, list.Submissions[0].SubmittedAt.After(list.Submissions[2].SubmittedAt))
}

func TestBulkUpdateStatusSkipsForbiddenRows(t *testing.T) {
	svc, _ := setupTestService(t)

	a, err := svc.Submit(context.Background(), cleanRequest(), "198.51.100.1", "")
	require.NoError(t, err)
	b, err := svc.Submit(context.Background(), cleanRequest(), "198.51.100.3", "")
	require.NoError(t, err)

	// b goes spam: terminal, archive is no longer reachable.
	_, err = svc.MarkSpam(context.Background(), b.ID)
	require.NoError(t, err)

	n, err := svc.BulkUpdateStatus(context.Background(), []uint{a.ID, b.ID}, models.StatusArchived)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := svc.Get(context.Background(), a.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusArchived, got.Status)
}

func TestBulkDelete(t *testing.T) {
	svc, _ := setupTestService(t)

	a, err := svc.Submit(context.Background(), cleanRequest(), "198.51.100.1", "")
	require.NoError(t, err)
	b, err := svc.Submit(context.Background(), cleanRequest(), "198.51.100.3", "")
	require.NoError(t, err)

	n, err := svc.BulkDelete(context.Background(), []uint{a.ID, b.ID, 9999})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestStatistics(t *testing.T) {
	svc, db := setupTestService(t)
	addRecipient(t, db, "a@tarqumi.com")

	_, err := svc.Submit(context.Background(), cleanRequest(), "198.51.100.1", "")
	require.NoError(t, err)
	spammy, err := svc.Submit(context.Background(), cleanRequest(), "198.51.100.3", "")
	require.NoError(t, err)
	_, err = svc.MarkSpam(context.Background(), spammy.ID)
	require.NoError(t, err)

	stats, err := svc.Statistics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.ByStatus[models.StatusNew])
	assert.Equal(t, int64(1), stats.ByStatus[models.StatusSpam])
	assert.Equal(t, int64(2), stats.Today)
	assert.Equal(t, int64(2), stats.ThisWeek)
	// Both submissions produced queue rows before one went spam; the spam
	// one was marked after dispatch so its rows remain pending too.
	assert.Equal(t, int64(2), stats.PendingEmails)
}
