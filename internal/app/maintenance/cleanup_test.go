package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	iauth "github.com/fieldnet/nmsportal/internal/auth"
	"github.com/fieldnet/nmsportal/internal/database/testutil"
	"github.com/fieldnet/nmsportal/internal/models"
	"github.com/fieldnet/nmsportal/internal/services"
)

type fixedClock struct {
	current time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.current
}

func seedCleanupUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	org := &models.Organization{Name: "cleanup-org"}
	require.NoError(t, db.Create(org).Error)

	user := &models.User{
		Email:          "eng@cleanup-org.test",
		Password:       "x",
		OrganizationID: org.ID,
		Role:           models.RoleUser,
		IsActive:       true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestCleanerRunOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	auditSvc, err := services.NewAuditService(db)
	require.NoError(t, err)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "cleanup-secret",
		Issuer:         "nmsportal-test",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	clock := fixedClock{current: time.Date(2026, 5, 20, 9, 0, 0, 0, time.UTC)}

	sessionSvc, err := iauth.NewSessionService(db, jwtSvc, iauth.SessionConfig{
		RefreshTokenTTL: time.Hour,
		Clock:           clock.Now,
	})
	require.NoError(t, err)

	user := seedCleanupUser(t, db)

	_, expiredSession, err := sessionSvc.CreateSession(user, iauth.SessionMetadata{})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Session{}).Where("id = ?", expiredSession.ID).
		Update("expires_at", clock.Now().Add(-2*time.Hour)).Error)

	_, activeSession, err := sessionSvc.CreateSession(user, iauth.SessionMetadata{})
	require.NoError(t, err)

	_, revokedSession, err := sessionSvc.CreateSession(user, iauth.SessionMetadata{})
	require.NoError(t, err)
	require.NoError(t, sessionSvc.RevokeSession(revokedSession.ID))

	// Audit entry older than the retention window.
	require.NoError(t, auditSvc.Log(context.Background(), services.AuditEntry{
		Action: "auth.login",
		Result: "success",
		Email:  "eng@cleanup-org.test",
	}))
	var auditLog models.AuditLog
	require.NoError(t, db.First(&auditLog).Error)
	require.NoError(t, db.Model(&auditLog).
		Update("created_at", clock.Now().AddDate(0, 0, -10)).Error)

	c := NewCleaner(sessionSvc, auditSvc,
		WithNow(clock.Now),
		WithAuditRetentionDays(7),
		WithCron(cron.New(cron.WithLogger(cron.DiscardLogger))),
	)

	require.NoError(t, c.RunOnce(context.Background()))

	var gone models.Session
	require.ErrorIs(t, db.First(&gone, "id = ?", expiredSession.ID).Error, gorm.ErrRecordNotFound)
	require.ErrorIs(t, db.First(&gone, "id = ?", revokedSession.ID).Error, gorm.ErrRecordNotFound)

	var remaining models.Session
	require.NoError(t, db.First(&remaining, "id = ?", activeSession.ID).Error)

	var auditCount int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&auditCount).Error)
	require.Zero(t, auditCount)
}

func TestCleanerStartWithNoDependencies(t *testing.T) {
	c := NewCleaner(nil, nil)
	require.NoError(t, c.Start())
	_ = c.Stop()
	require.NoError(t, c.RunOnce(context.Background()))
}
