package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fieldnet/nmsportal/internal/database/testutil"
	"github.com/fieldnet/nmsportal/internal/models"
	"github.com/fieldnet/nmsportal/pkg/crypto"
)

func newUserService(t *testing.T) (*UserService, *OrganizationService, *gorm.DB) {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	auditSvc, err := NewAuditService(db)
	require.NoError(t, err)
	orgSvc, err := NewOrganizationService(db, auditSvc)
	require.NoError(t, err)
	userSvc, err := NewUserService(db, auditSvc)
	require.NoError(t, err)
	return userSvc, orgSvc, db
}

func TestUserCreateHashesPassword(t *testing.T) {
	userSvc, orgSvc, _ := newUserService(t)
	ctx := context.Background()

	org, err := orgSvc.Create(ctx, CreateOrganizationInput{Name: "usr-hash"})
	require.NoError(t, err)

	user, err := userSvc.Create(ctx, CreateUserInput{
		Email:          "ENG@usr-hash.test",
		Password:       "plaintext-secret",
		OrganizationID: org.ID,
	})
	require.NoError(t, err)
	require.Equal(t, "eng@usr-hash.test", user.Email)
	require.Equal(t, models.RoleUser, user.Role)
	require.True(t, user.IsActive)
	require.NotEqual(t, "plaintext-secret", user.Password)
	require.True(t, crypto.VerifyPassword(user.Password, "plaintext-secret"))
}

func TestUserEmailUniquePerOrganization(t *testing.T) {
	userSvc, orgSvc, _ := newUserService(t)
	ctx := context.Background()

	orgA, err := orgSvc.Create(ctx, CreateOrganizationInput{Name: "usr-org-a"})
	require.NoError(t, err)
	orgB, err := orgSvc.Create(ctx, CreateOrganizationInput{Name: "usr-org-b"})
	require.NoError(t, err)

	_, err = userSvc.Create(ctx, CreateUserInput{
		Email:          "shared@usr.test",
		Password:       "pw12345678",
		OrganizationID: orgA.ID,
	})
	require.NoError(t, err)

	// The same address is free in another tenant.
	_, err = userSvc.Create(ctx, CreateUserInput{
		Email:          "shared@usr.test",
		Password:       "pw12345678",
		OrganizationID: orgB.ID,
	})
	require.NoError(t, err)

	// But taken within the first one.
	_, err = userSvc.Create(ctx, CreateUserInput{
		Email:          "Shared@usr.test",
		Password:       "pw12345678",
		OrganizationID: orgA.ID,
	})
	require.ErrorIs(t, err, ErrUserExists)
}

func TestUserCreateValidatesRoleAndTabs(t *testing.T) {
	userSvc, orgSvc, _ := newUserService(t)
	ctx := context.Background()

	org, err := orgSvc.Create(ctx, CreateOrganizationInput{Name: "usr-valid"})
	require.NoError(t, err)

	_, err = userSvc.Create(ctx, CreateUserInput{
		Email:          "role@usr-valid.test",
		Password:       "pw12345678",
		OrganizationID: org.ID,
		Role:           models.Role("OWNER"),
	})
	require.ErrorIs(t, err, ErrInvalidRole)

	_, err = userSvc.Create(ctx, CreateUserInput{
		Email:          "tab@usr-valid.test",
		Password:       "pw12345678",
		OrganizationID: org.ID,
		Tabs:           []string{"dashboard"},
	})
	require.ErrorIs(t, err, ErrInvalidTab)

	_, err = userSvc.Create(ctx, CreateUserInput{
		Email:          "noorg@usr-valid.test",
		Password:       "pw12345678",
		OrganizationID: "does-not-exist",
	})
	require.ErrorIs(t, err, ErrOrganizationNotFound)
}

func TestUserGetByEmailIsOrgScoped(t *testing.T) {
	userSvc, orgSvc, _ := newUserService(t)
	ctx := context.Background()

	orgA, err := orgSvc.Create(ctx, CreateOrganizationInput{Name: "usr-scope-a"})
	require.NoError(t, err)
	orgB, err := orgSvc.Create(ctx, CreateOrganizationInput{Name: "usr-scope-b"})
	require.NoError(t, err)

	created, err := userSvc.Create(ctx, CreateUserInput{
		Email:          "only-a@usr-scope.test",
		Password:       "pw12345678",
		OrganizationID: orgA.ID,
	})
	require.NoError(t, err)

	found, err := userSvc.GetByEmail(ctx, orgA.ID, "Only-A@usr-scope.test")
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)

	_, err = userSvc.GetByEmail(ctx, orgB.ID, "only-a@usr-scope.test")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserUpdateRehashesPassword(t *testing.T) {
	userSvc, orgSvc, _ := newUserService(t)
	ctx := context.Background()

	org, err := orgSvc.Create(ctx, CreateOrganizationInput{Name: "usr-update"})
	require.NoError(t, err)
	user, err := userSvc.Create(ctx, CreateUserInput{
		Email:          "eng@usr-update.test",
		Password:       "old password",
		OrganizationID: org.ID,
	})
	require.NoError(t, err)

	newPassword := "new password"
	role := models.RoleReadOnlyUser
	inactive := false
	updated, err := userSvc.Update(ctx, user.ID, UpdateUserInput{
		Password:   &newPassword,
		Role:       &role,
		NetworkIDs: []string{"net-7"},
		IsActive:   &inactive,
	})
	require.NoError(t, err)
	require.Equal(t, models.RoleReadOnlyUser, updated.Role)
	require.Equal(t, []string{"net-7"}, []string(updated.NetworkIDs))
	require.False(t, updated.IsActive)
	require.True(t, crypto.VerifyPassword(updated.Password, newPassword))
	require.False(t, crypto.VerifyPassword(updated.Password, "old password"))
}

func TestUserDeleteRevokesSessions(t *testing.T) {
	userSvc, orgSvc, db := newUserService(t)
	ctx := context.Background()

	org, err := orgSvc.Create(ctx, CreateOrganizationInput{Name: "usr-delete"})
	require.NoError(t, err)
	user, err := userSvc.Create(ctx, CreateUserInput{
		Email:          "eng@usr-delete.test",
		Password:       "pw12345678",
		OrganizationID: org.ID,
	})
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.Session{
		UserID:       user.ID,
		RefreshToken: "session-token-usr-delete",
	}).Error)

	require.NoError(t, userSvc.Delete(ctx, user.ID))

	var sessionCount int64
	require.NoError(t, db.Model(&models.Session{}).
		Where("user_id = ?", user.ID).
		Count(&sessionCount).Error)
	require.Zero(t, sessionCount)

	_, err = userSvc.GetByID(ctx, user.ID)
	require.ErrorIs(t, err, ErrUserNotFound)
	require.ErrorIs(t, userSvc.Delete(ctx, user.ID), ErrUserNotFound)
}
