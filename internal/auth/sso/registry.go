package sso

import (
	"context"
	"fmt"
	"net/url"

	"github.com/fieldnet/nmsportal/internal/models"
)

// ErrSSONotConfigured indicates the organization has no SSO protocol selected.
var ErrSSONotConfigured = fmt.Errorf("sso: not configured for organization")

// ForOrganization builds the provider matching the organization's selected
// SSO protocol. Providers are constructed per request from the organization
// row; nothing is cached between tenants.
func ForOrganization(ctx context.Context, org *models.Organization, rootURL *url.URL, opts OIDCOptions) (Provider, error) {
	if org == nil {
		return nil, fmt.Errorf("sso: organization is required")
	}

	switch org.SSOSelectedType {
	case models.SSOSAML:
		return NewSAMLProvider(org, rootURL)
	case models.SSOOIDC:
		return NewOIDCProvider(ctx, org, rootURL, opts)
	case models.SSONone, "":
		return nil, ErrSSONotConfigured
	default:
		return nil, fmt.Errorf("sso: unknown protocol %q", org.SSOSelectedType)
	}
}
