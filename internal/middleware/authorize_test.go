package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/fieldnet/nmsportal/internal/authz"
	"github.com/fieldnet/nmsportal/internal/models"
	"github.com/fieldnet/nmsportal/internal/principal"
)

func injectPrincipal(prin *principal.Principal) gin.HandlerFunc {
	return func(c *gin.Context) {
		if prin != nil {
			c.Set(CtxPrincipalKey, prin)
		}
		c.Next()
	}
}

func capabilityRequest(t *testing.T, prin *principal.Principal, capability authz.Capability) int {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/gated", injectPrincipal(prin), RequireCapability(capability), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/gated", nil))
	return w.Code
}

func rolePrincipal(role models.Role, master bool) *principal.Principal {
	return &principal.Principal{
		User:         models.User{ID: "user-1", Role: role, OrganizationID: "org-1"},
		Organization: models.Organization{BaseModel: models.BaseModel{ID: "org-1"}, IsMaster: master},
	}
}

func TestRequireCapabilityByRole(t *testing.T) {
	cases := []struct {
		name       string
		role       models.Role
		capability authz.Capability
		want       int
	}{
		{"readonly can read", models.RoleReadOnlyUser, authz.CapabilityRead, http.StatusOK},
		{"readonly cannot write", models.RoleReadOnlyUser, authz.CapabilityWrite, http.StatusForbidden},
		{"user can write", models.RoleUser, authz.CapabilityWrite, http.StatusOK},
		{"user cannot admin", models.RoleUser, authz.CapabilityAdmin, http.StatusForbidden},
		{"superuser can admin", models.RoleSuperUser, authz.CapabilityAdmin, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := capabilityRequest(t, rolePrincipal(tc.role, false), tc.capability)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestRequireCapabilityWithoutPrincipal(t *testing.T) {
	require.Equal(t, http.StatusUnauthorized,
		capabilityRequest(t, nil, authz.CapabilityRead))
}

func TestRequireMasterOrg(t *testing.T) {
	gin.SetMode(gin.TestMode)

	run := func(prin *principal.Principal) int {
		r := gin.New()
		r.GET("/admin", injectPrincipal(prin), RequireMasterOrg(), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
		return w.Code
	}

	require.Equal(t, http.StatusOK, run(rolePrincipal(models.RoleSuperUser, true)))
	require.Equal(t, http.StatusForbidden, run(rolePrincipal(models.RoleSuperUser, false)))
	require.Equal(t, http.StatusUnauthorized, run(nil))
}
