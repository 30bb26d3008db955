package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fieldnet/nmsportal/internal/database/testutil"
	"github.com/fieldnet/nmsportal/internal/models"
	"github.com/fieldnet/nmsportal/pkg/crypto"
)

func newCredentialFixture(t *testing.T) (*CredentialValidator, *gorm.DB) {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	validator, err := NewCredentialValidator(db, CredentialValidatorConfig{})
	require.NoError(t, err)
	return validator, db
}

func seedCredOrg(t *testing.T, db *gorm.DB, name string) *models.Organization {
	t.Helper()
	org := &models.Organization{Name: name}
	require.NoError(t, db.Create(org).Error)
	return org
}

func seedCredUser(t *testing.T, db *gorm.DB, org *models.Organization, email, password string, active bool) *models.User {
	t.Helper()
	hashed, err := crypto.HashPassword(password)
	require.NoError(t, err)
	user := &models.User{
		Email:          email,
		Password:       hashed,
		OrganizationID: org.ID,
		Role:           models.RoleUser,
		IsActive:       active,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestAuthenticateSuccess(t *testing.T) {
	validator, db := newCredentialFixture(t)
	org := seedCredOrg(t, db, "cred-acme")
	seedCredUser(t, db, org, "eng@cred-acme.test", "correct horse", true)

	user, err := validator.Authenticate(context.Background(), org, AuthenticateInput{
		Email:     "ENG@cred-acme.test",
		Password:  "correct horse",
		IPAddress: "192.0.2.10",
	})
	require.NoError(t, err)
	require.Equal(t, "eng@cred-acme.test", user.Email)
	require.NotNil(t, user.LastLoginAt)
	require.Equal(t, "192.0.2.10", user.LastLoginIP)
}

func TestAuthenticateRejectionsAreUniform(t *testing.T) {
	validator, db := newCredentialFixture(t)
	org := seedCredOrg(t, db, "cred-uniform")
	seedCredUser(t, db, org, "known@cred-uniform.test", "right password", true)
	seedCredUser(t, db, org, "inactive@cred-uniform.test", "right password", false)

	cases := []struct {
		name  string
		email string
		pass  string
	}{
		{"unknown email", "nobody@cred-uniform.test", "whatever"},
		{"wrong password", "known@cred-uniform.test", "wrong password"},
		{"inactive account", "inactive@cred-uniform.test", "right password"},
		{"empty password", "known@cred-uniform.test", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := validator.Authenticate(context.Background(), org, AuthenticateInput{
				Email:    tc.email,
				Password: tc.pass,
			})
			require.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestAuthenticateIsOrganizationScoped(t *testing.T) {
	validator, db := newCredentialFixture(t)
	orgA := seedCredOrg(t, db, "cred-org-a")
	orgB := seedCredOrg(t, db, "cred-org-b")

	// The same address exists in both tenants with different passwords.
	seedCredUser(t, db, orgA, "shared@cred.test", "password for a", true)
	seedCredUser(t, db, orgB, "shared@cred.test", "password for b", true)

	userA, err := validator.Authenticate(context.Background(), orgA, AuthenticateInput{
		Email:    "shared@cred.test",
		Password: "password for a",
	})
	require.NoError(t, err)
	require.Equal(t, orgA.ID, userA.OrganizationID)

	// The B-tenant password never works against tenant A.
	_, err = validator.Authenticate(context.Background(), orgA, AuthenticateInput{
		Email:    "shared@cred.test",
		Password: "password for b",
	})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	userB, err := validator.Authenticate(context.Background(), orgB, AuthenticateInput{
		Email:    "shared@cred.test",
		Password: "password for b",
	})
	require.NoError(t, err)
	require.Equal(t, orgB.ID, userB.OrganizationID)
}

func TestAuthenticateUsesInjectedClock(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	validator, err := NewCredentialValidator(db, CredentialValidatorConfig{
		Clock: func() time.Time { return fixed },
	})
	require.NoError(t, err)

	org := seedCredOrg(t, db, "cred-clock")
	seedCredUser(t, db, org, "eng@cred-clock.test", "pw12345678", true)

	user, err := validator.Authenticate(context.Background(), org, AuthenticateInput{
		Email:    "eng@cred-clock.test",
		Password: "pw12345678",
	})
	require.NoError(t, err)
	require.WithinDuration(t, fixed, *user.LastLoginAt, time.Second)
}
