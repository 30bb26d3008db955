package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fieldnet/nmsportal/internal/database/testutil"
	"github.com/fieldnet/nmsportal/internal/models"
)

func TestAuditLogAndFilter(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	auditSvc, err := NewAuditService(db)
	require.NoError(t, err)
	ctx := context.Background()

	org := &models.Organization{Name: "audit-acme"}
	require.NoError(t, db.Create(org).Error)

	require.NoError(t, auditSvc.Log(ctx, AuditEntry{
		OrganizationID: &org.ID,
		Email:          "eng@audit-acme.test",
		Action:         "auth.login",
		Result:         "success",
		IPAddress:      "192.0.2.5",
		Metadata:       map[string]any{"method": "password"},
	}))
	require.NoError(t, auditSvc.Log(ctx, AuditEntry{
		OrganizationID: &org.ID,
		Email:          "eng@audit-acme.test",
		Action:         "auth.login",
		Result:         "failure",
	}))
	require.NoError(t, auditSvc.Log(ctx, AuditEntry{
		Action: "org.create",
		Result: "success",
	}))

	logs, total, err := auditSvc.List(ctx, AuditListOptions{
		Filters: AuditFilters{OrganizationID: org.ID, Action: "auth.login"},
	})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, logs, 2)

	logs, total, err = auditSvc.List(ctx, AuditListOptions{
		Filters: AuditFilters{OrganizationID: org.ID, Result: "failure"},
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Empty(t, logs[0].Metadata)
	require.Equal(t, "auth.login", logs[0].Action)
}

func TestAuditLogRequiresActionAndResult(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	auditSvc, err := NewAuditService(db)
	require.NoError(t, err)

	require.Error(t, auditSvc.Log(context.Background(), AuditEntry{Result: "success"}))
	require.Error(t, auditSvc.Log(context.Background(), AuditEntry{Action: "auth.login"}))
}

func TestAuditCleanupOlderThan(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	auditSvc, err := NewAuditService(db)
	require.NoError(t, err)
	ctx := context.Background()

	old := models.AuditLog{Action: "auth.login", Result: "success"}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Model(&models.AuditLog{}).
		Where("id = ?", old.ID).
		Update("created_at", time.Now().AddDate(0, 0, -120)).Error)

	recent := models.AuditLog{Action: "auth.login", Result: "success"}
	require.NoError(t, db.Create(&recent).Error)

	removed, err := auditSvc.CleanupOlderThan(ctx, time.Now().AddDate(0, 0, -90))
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	var count int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}
