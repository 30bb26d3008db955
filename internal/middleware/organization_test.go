package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/fieldnet/nmsportal/internal/database/testutil"
	"github.com/fieldnet/nmsportal/internal/models"
	"github.com/fieldnet/nmsportal/internal/tenancy"
)

func newOrganizationRouter(t *testing.T) (*gin.Engine, *models.Organization) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	resolver, err := tenancy.NewResolver(db)
	require.NoError(t, err)

	org := &models.Organization{Name: "mw-org"}
	require.NoError(t, db.Create(org).Error)

	r := gin.New()
	r.GET("/ping", Organization(resolver), func(c *gin.Context) {
		resolved, ok := OrganizationFromContext(c)
		require.True(t, ok)
		c.String(http.StatusOK, resolved.Name)
	})
	return r, org
}

func TestOrganizationMiddlewareResolvesSubdomain(t *testing.T) {
	r, org := newOrganizationRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Host = org.Name + ".portal.example.com"
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, org.Name, w.Body.String())
}

func TestOrganizationMiddlewareHonoursExplicitName(t *testing.T) {
	r, org := newOrganizationRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping?organization="+org.Name, nil)
	req.Host = "localhost:8080"
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Host = "localhost:8080"
	req.Header.Set(OrganizationHeaderName, org.Name)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestOrganizationMiddlewareMissIsGeneric(t *testing.T) {
	r, _ := newOrganizationRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Host = "unknown.portal.example.com"
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "ORGANIZATION_NOT_FOUND")
}
