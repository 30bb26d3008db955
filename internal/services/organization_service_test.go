package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fieldnet/nmsportal/internal/database/testutil"
	"github.com/fieldnet/nmsportal/internal/features"
	"github.com/fieldnet/nmsportal/internal/models"
)

func newOrgService(t *testing.T) (*OrganizationService, *gorm.DB) {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	auditSvc, err := NewAuditService(db)
	require.NoError(t, err)
	orgSvc, err := NewOrganizationService(db, auditSvc)
	require.NoError(t, err)
	return orgSvc, db
}

func TestOrganizationCreateSeedsFeatureFlags(t *testing.T) {
	orgSvc, db := newOrgService(t)
	ctx := context.Background()

	org, err := orgSvc.Create(ctx, CreateOrganizationInput{
		Name:       "Seeded-Org",
		NetworkIDs: []string{"net-1", "net-1", " net-2 "},
		Tabs:       []string{models.TabNMS},
	})
	require.NoError(t, err)
	require.Equal(t, "seeded-org", org.Name)
	require.Equal(t, []string{"net-1", "net-2"}, []string(org.NetworkIDs))

	var flags []models.FeatureFlag
	require.NoError(t, db.Where("organization_id = ?", org.ID).Find(&flags).Error)
	require.Len(t, flags, len(features.All()))

	byID := make(map[string]bool, len(flags))
	for _, flag := range flags {
		byID[flag.FeatureID] = flag.Enabled
	}
	for _, def := range features.All() {
		enabled, ok := byID[def.ID]
		require.True(t, ok, "flag row missing for %s", def.ID)
		require.Equal(t, def.DefaultEnabled, enabled, "default mismatch for %s", def.ID)
	}
}

func TestOrganizationCreateRejectsDuplicateName(t *testing.T) {
	orgSvc, _ := newOrgService(t)
	ctx := context.Background()

	_, err := orgSvc.Create(ctx, CreateOrganizationInput{Name: "dupe-org"})
	require.NoError(t, err)

	_, err = orgSvc.Create(ctx, CreateOrganizationInput{Name: "Dupe-Org"})
	require.ErrorIs(t, err, ErrOrganizationExists)
}

func TestOrganizationCreateRejectsUnknownTab(t *testing.T) {
	orgSvc, _ := newOrgService(t)

	_, err := orgSvc.Create(context.Background(), CreateOrganizationInput{
		Name: "tab-org",
		Tabs: []string{"dashboard"},
	})
	require.ErrorIs(t, err, ErrInvalidTab)
}

func TestOrganizationUpdateMutableFields(t *testing.T) {
	orgSvc, _ := newOrgService(t)
	ctx := context.Background()

	org, err := orgSvc.Create(ctx, CreateOrganizationInput{Name: "update-org"})
	require.NoError(t, err)

	ssoType := models.SSOSAML
	entrypoint := "https://idp.example.com/sso"
	updated, err := orgSvc.Update(ctx, org.ID, UpdateOrganizationInput{
		NetworkIDs:      []string{"net-9"},
		Tabs:            []string{models.TabAdmin},
		SSOSelectedType: &ssoType,
		SSOEntrypoint:   &entrypoint,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"net-9"}, []string(updated.NetworkIDs))
	require.Equal(t, []string{models.TabAdmin}, []string(updated.Tabs))
	require.Equal(t, models.SSOSAML, updated.SSOSelectedType)
	require.Equal(t, entrypoint, updated.SSOEntrypoint)

	bogus := "kerberos"
	_, err = orgSvc.Update(ctx, org.ID, UpdateOrganizationInput{SSOSelectedType: &bogus})
	require.Error(t, err)
}

func TestOrganizationDeleteBlockedWhileUsersExist(t *testing.T) {
	orgSvc, db := newOrgService(t)
	ctx := context.Background()

	org, err := orgSvc.Create(ctx, CreateOrganizationInput{Name: "occupied-org"})
	require.NoError(t, err)

	user := models.User{
		Email:          "eng@occupied.test",
		Password:       "x",
		OrganizationID: org.ID,
		Role:           models.RoleUser,
		IsActive:       true,
	}
	require.NoError(t, db.Create(&user).Error)

	require.ErrorIs(t, orgSvc.Delete(ctx, org.ID), ErrOrganizationNotEmpty)

	// Removing the last user unblocks deletion, which also drops the flags.
	require.NoError(t, db.Unscoped().Delete(&user).Error)
	require.NoError(t, orgSvc.Delete(ctx, org.ID))

	var flags int64
	require.NoError(t, db.Model(&models.FeatureFlag{}).
		Where("organization_id = ?", org.ID).
		Count(&flags).Error)
	require.Zero(t, flags)

	_, err = orgSvc.GetByID(ctx, org.ID)
	require.ErrorIs(t, err, ErrOrganizationNotFound)
}

func TestOrganizationGetByName(t *testing.T) {
	orgSvc, _ := newOrgService(t)
	ctx := context.Background()

	org, err := orgSvc.Create(ctx, CreateOrganizationInput{Name: "lookup-org"})
	require.NoError(t, err)

	got, err := orgSvc.GetByName(ctx, "Lookup-Org")
	require.NoError(t, err)
	require.Equal(t, org.ID, got.ID)

	_, err = orgSvc.GetByName(ctx, "missing-org")
	require.ErrorIs(t, err, ErrOrganizationNotFound)
}
