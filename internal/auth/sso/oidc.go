package sso

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/fieldnet/nmsportal/internal/models"
)

// OIDCOptions configures construction of the OIDC provider.
type OIDCOptions struct {
	HTTPClient *http.Client
	Timeout    time.Duration
}

type oidcProvider struct {
	orgName     string
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
}

// NewOIDCProvider builds an OIDC provider from the organization's SSO columns,
// running issuer discovery against the configured URL.
func NewOIDCProvider(ctx context.Context, org *models.Organization, rootURL *url.URL, opts OIDCOptions) (Provider, error) {
	if org == nil {
		return nil, errors.New("oidc provider: organization is required")
	}
	if rootURL == nil {
		return nil, errors.New("oidc provider: root url is required")
	}
	if strings.TrimSpace(org.SSOOIDCConfigURL) == "" {
		return nil, errors.New("oidc provider: config url is required")
	}
	if strings.TrimSpace(org.SSOOIDCClientID) == "" {
		return nil, errors.New("oidc provider: client id is required")
	}
	if strings.TrimSpace(org.SSOOIDCClientSecret) == "" {
		return nil, errors.New("oidc provider: client secret is required")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if opts.HTTPClient != nil {
		ctx = oidc.ClientContext(ctx, opts.HTTPClient)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	issuer, err := oidc.NewProvider(ctx, org.SSOOIDCConfigURL)
	if err != nil {
		return nil, fmt.Errorf("oidc provider: discovery failed: %w", err)
	}

	redirectURL := *rootURL
	redirectURL.Path = "/user/login/oidc/callback"
	redirectURL.RawQuery = url.Values{"organization": []string{org.Name}}.Encode()

	oauthConfig := &oauth2.Config{
		ClientID:     org.SSOOIDCClientID,
		ClientSecret: org.SSOOIDCClientSecret,
		Endpoint:     issuer.Endpoint(),
		RedirectURL:  redirectURL.String(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}

	return &oidcProvider{
		orgName:     org.Name,
		oauthConfig: oauthConfig,
		verifier:    issuer.Verifier(&oidc.Config{ClientID: org.SSOOIDCClientID}),
	}, nil
}

func (p *oidcProvider) Type() string { return models.SSOOIDC }

func (p *oidcProvider) Begin(ctx context.Context, state string) (*BeginResponse, error) {
	if strings.TrimSpace(state) == "" {
		return nil, errors.New("oidc provider: state is required")
	}

	return &BeginResponse{
		RedirectURL: p.oauthConfig.AuthCodeURL(state),
		State:       state,
	}, nil
}

func (p *oidcProvider) Callback(ctx context.Context, req CallbackRequest) (*Identity, error) {
	if req.RawHTTPRequest == nil {
		return nil, errors.New("oidc provider: request is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	query := req.RawHTTPRequest.URL.Query()
	if state := query.Get("state"); state == "" || state != req.State {
		return nil, errors.New("oidc provider: state mismatch")
	}

	code := query.Get("code")
	if code == "" {
		return nil, errors.New("oidc provider: missing authorization code")
	}

	token, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("oidc provider: code exchange: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("oidc provider: response carries no id_token")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("oidc provider: verify id_token: %w", err)
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("oidc provider: decode claims: %w", err)
	}

	email := strings.ToLower(strings.TrimSpace(claims.Email))
	if email == "" {
		return nil, errors.New("oidc provider: id_token carries no email")
	}

	return &Identity{
		Provider:      models.SSOOIDC,
		Subject:       idToken.Subject,
		Email:         email,
		EmailVerified: claims.EmailVerified,
		DisplayName:   claims.Name,
	}, nil
}
