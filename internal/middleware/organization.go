package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/fieldnet/nmsportal/internal/models"
	"github.com/fieldnet/nmsportal/internal/tenancy"
	"github.com/fieldnet/nmsportal/pkg/errors"
	"github.com/fieldnet/nmsportal/pkg/response"
)

const (
	// CtxOrganizationKey holds the *models.Organization resolved for the request.
	CtxOrganizationKey = "organization"
	// OrganizationQueryParam lets API clients name their tenant explicitly when
	// no custom domain or subdomain applies.
	OrganizationQueryParam = "organization"
	// OrganizationHeaderName is the header equivalent of the query parameter.
	OrganizationHeaderName = "X-Organization"
)

// Organization resolves the tenant for every request from the host, falling
// back to an explicit name supplied via query parameter or header. A failed
// resolution yields the generic not-found error so hostnames never leak which
// tenants exist.
func Organization(resolver *tenancy.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		explicit := c.Query(OrganizationQueryParam)
		if explicit == "" {
			explicit = c.GetHeader(OrganizationHeaderName)
		}

		org, err := resolver.Resolve(c.Request.Context(), c.Request.Host, explicit)
		if err != nil {
			response.Error(c, errors.ErrOrganizationNotFound)
			c.Abort()
			return
		}

		c.Set(CtxOrganizationKey, org)
		c.Next()
	}
}

// OrganizationFromContext returns the organization placed by the middleware.
func OrganizationFromContext(c *gin.Context) (*models.Organization, bool) {
	value, ok := c.Get(CtxOrganizationKey)
	if !ok {
		return nil, false
	}
	org, ok := value.(*models.Organization)
	return org, ok && org != nil
}
