package sso

import (
	"context"
	"net/http"
)

// Identity represents the claims asserted by an organization's identity provider.
type Identity struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	DisplayName   string
}

// BeginResponse contains the redirect information required to continue the
// external auth flow.
type BeginResponse struct {
	RedirectURL string
	State       string
	RequestID   string
}

// CallbackRequest captures the raw HTTP details posted back by the provider.
type CallbackRequest struct {
	State          string
	AuthnRequestID string
	RawHTTPRequest *http.Request
}

// Provider is an organization-scoped single sign-on integration.
type Provider interface {
	Type() string
	Begin(ctx context.Context, state string) (*BeginResponse, error)
	Callback(ctx context.Context, req CallbackRequest) (*Identity, error)
}
