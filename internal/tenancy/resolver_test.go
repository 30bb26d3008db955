package tenancy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fieldnet/nmsportal/internal/database/testutil"
	"github.com/fieldnet/nmsportal/internal/models"
)

func newResolverDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
}

func createOrg(t *testing.T, db *gorm.DB, name string, domains ...string) *models.Organization {
	t.Helper()
	org := &models.Organization{
		Name:          name,
		CustomDomains: datatypes.NewJSONSlice(domains),
	}
	require.NoError(t, db.Create(org).Error)
	return org
}

func TestResolveByCustomDomain(t *testing.T) {
	db := newResolverDB(t)
	resolver, err := NewResolver(db)
	require.NoError(t, err)

	org := createOrg(t, db, "acme-custom", "nms.acme.example")
	createOrg(t, db, "other-custom")

	got, err := resolver.Resolve(context.Background(), "nms.acme.example", "")
	require.NoError(t, err)
	require.Equal(t, org.ID, got.ID)

	// Port and case are irrelevant to the match.
	got, err = resolver.Resolve(context.Background(), "NMS.Acme.Example:8443", "")
	require.NoError(t, err)
	require.Equal(t, org.ID, got.ID)
}

func TestResolveBySubdomain(t *testing.T) {
	db := newResolverDB(t)
	resolver, err := NewResolver(db)
	require.NoError(t, err)

	org := createOrg(t, db, "tenant-sub")

	got, err := resolver.Resolve(context.Background(), "tenant-sub.portal.example.com", "")
	require.NoError(t, err)
	require.Equal(t, org.ID, got.ID)
}

func TestResolveCustomDomainWinsOverSubdomain(t *testing.T) {
	db := newResolverDB(t)
	resolver, err := NewResolver(db)
	require.NoError(t, err)

	// The host is simultaneously another tenant's custom domain and a
	// subdomain spelling this tenant's name; the custom domain wins.
	domainOwner := createOrg(t, db, "owner-org", "clash.portal.example.com")
	createOrg(t, db, "clash")

	got, err := resolver.Resolve(context.Background(), "clash.portal.example.com", "")
	require.NoError(t, err)
	require.Equal(t, domainOwner.ID, got.ID)
}

func TestResolveByExplicitName(t *testing.T) {
	db := newResolverDB(t)
	resolver, err := NewResolver(db)
	require.NoError(t, err)

	org := createOrg(t, db, "explicit-org")

	// Single-label host yields no subdomain; the explicit name applies.
	got, err := resolver.Resolve(context.Background(), "localhost:8080", "explicit-org")
	require.NoError(t, err)
	require.Equal(t, org.ID, got.ID)
}

func TestResolveIPHostHasNoSubdomain(t *testing.T) {
	db := newResolverDB(t)
	resolver, err := NewResolver(db)
	require.NoError(t, err)

	// "10" must not be treated as an organization name.
	createOrg(t, db, "10")

	_, err = resolver.Resolve(context.Background(), "10.0.0.1:8080", "")
	require.ErrorIs(t, err, ErrOrganizationNotFound)
}

func TestResolveMissIsGeneric(t *testing.T) {
	db := newResolverDB(t)
	resolver, err := NewResolver(db)
	require.NoError(t, err)

	_, err = resolver.Resolve(context.Background(), "nobody.portal.example.com", "also-nobody")
	require.ErrorIs(t, err, ErrOrganizationNotFound)
}

func TestResolveByNameDirect(t *testing.T) {
	db := newResolverDB(t)
	resolver, err := NewResolver(db)
	require.NoError(t, err)

	org := createOrg(t, db, "direct-org")

	got, err := resolver.ResolveByName(context.Background(), " direct-org ")
	require.NoError(t, err)
	require.Equal(t, org.ID, got.ID)

	_, err = resolver.ResolveByName(context.Background(), "")
	require.ErrorIs(t, err, ErrOrganizationNotFound)
}
