package sso

import (
	"context"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"net/url"
	"strings"

	saml "github.com/crewjam/saml"

	"github.com/fieldnet/nmsportal/internal/models"
)

// samlProvider implements the SAML redirect flow against an organization's
// configured identity provider (entrypoint URL, issuer, signing certificate).
type samlProvider struct {
	orgName string
	sp      *saml.ServiceProvider
}

// NewSAMLProvider builds a SAML provider from the organization's SSO columns.
// rootURL is the externally visible base URL of this portal.
func NewSAMLProvider(org *models.Organization, rootURL *url.URL) (Provider, error) {
	if org == nil {
		return nil, errors.New("saml provider: organization is required")
	}
	if rootURL == nil {
		return nil, errors.New("saml provider: root url is required")
	}
	if strings.TrimSpace(org.SSOEntrypoint) == "" {
		return nil, errors.New("saml provider: sso entrypoint is required")
	}
	if strings.TrimSpace(org.SSOIssuer) == "" {
		return nil, errors.New("saml provider: sso issuer is required")
	}

	cert, err := parseSigningCert(org.SSOCert)
	if err != nil {
		return nil, fmt.Errorf("saml provider: parse idp certificate: %w", err)
	}
	certData := base64.StdEncoding.EncodeToString(cert.Raw)

	acsURL := *rootURL
	acsURL.Path = "/user/login/saml/callback"
	acsURL.RawQuery = url.Values{"to": []string{"/"}, "organization": []string{org.Name}}.Encode()

	metadataURL := *rootURL
	metadataURL.Path = "/user/login/saml/metadata"

	sp := &saml.ServiceProvider{
		EntityID:          rootURL.String(),
		AcsURL:            acsURL,
		MetadataURL:       metadataURL,
		AllowIDPInitiated: true,
		IDPMetadata: &saml.EntityDescriptor{
			EntityID: org.SSOIssuer,
			IDPSSODescriptors: []saml.IDPSSODescriptor{{
				SSODescriptor: saml.SSODescriptor{
					RoleDescriptor: saml.RoleDescriptor{
						KeyDescriptors: []saml.KeyDescriptor{{
							Use:     "signing",
							KeyInfo: saml.KeyInfo{X509Data: saml.X509Data{X509Certificates: []saml.X509Certificate{{Data: certData}}}},
						}},
					},
				},
				SingleSignOnServices: []saml.Endpoint{
					{Binding: saml.HTTPRedirectBinding, Location: org.SSOEntrypoint},
					{Binding: saml.HTTPPostBinding, Location: org.SSOEntrypoint},
				},
			}},
		},
	}

	return &samlProvider{orgName: org.Name, sp: sp}, nil
}

func (p *samlProvider) Type() string { return models.SSOSAML }

func (p *samlProvider) Begin(ctx context.Context, state string) (*BeginResponse, error) {
	if strings.TrimSpace(state) == "" {
		return nil, errors.New("saml provider: state is required")
	}

	authnReq, err := p.sp.MakeAuthenticationRequest(p.sp.GetSSOBindingLocation(saml.HTTPRedirectBinding), saml.HTTPRedirectBinding, saml.HTTPPostBinding)
	if err != nil {
		return nil, fmt.Errorf("saml provider: make auth request: %w", err)
	}

	redirectURL, err := authnReq.Redirect(state, p.sp)
	if err != nil {
		return nil, fmt.Errorf("saml provider: build redirect: %w", err)
	}

	return &BeginResponse{
		RedirectURL: redirectURL.String(),
		State:       state,
		RequestID:   authnReq.ID,
	}, nil
}

func (p *samlProvider) Callback(ctx context.Context, req CallbackRequest) (*Identity, error) {
	if req.RawHTTPRequest == nil {
		return nil, errors.New("saml provider: request is required")
	}

	var possibleIDs []string
	if strings.TrimSpace(req.AuthnRequestID) != "" {
		possibleIDs = []string{req.AuthnRequestID}
	}

	assertion, err := p.sp.ParseResponse(req.RawHTTPRequest, possibleIDs)
	if err != nil {
		return nil, fmt.Errorf("saml provider: parse response: %w", err)
	}

	identity := &Identity{
		Provider:      models.SSOSAML,
		Subject:       assertion.Subject.NameID.Value,
		Email:         assertionAttribute(assertion, "email", "mail", "urn:oid:0.9.2342.19200300.100.1.3"),
		EmailVerified: true,
		DisplayName:   assertionAttribute(assertion, "displayName", "cn"),
	}

	if identity.Email == "" {
		// Many IdPs use an email-format NameID instead of an attribute.
		identity.Email = assertion.Subject.NameID.Value
	}
	identity.Email = strings.ToLower(strings.TrimSpace(identity.Email))

	if identity.Email == "" {
		return nil, errors.New("saml provider: assertion carries no email")
	}

	return identity, nil
}

func assertionAttribute(assertion *saml.Assertion, names ...string) string {
	for _, statement := range assertion.AttributeStatements {
		for _, attr := range statement.Attributes {
			for _, name := range names {
				if attr.Name != name && attr.FriendlyName != name {
					continue
				}
				for _, value := range attr.Values {
					if v := strings.TrimSpace(value.Value); v != "" {
						return v
					}
				}
			}
		}
	}
	return ""
}

func parseSigningCert(pemData string) (*x509.Certificate, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, errors.New("invalid certificate pem")
	}
	return x509.ParseCertificate(block.Bytes)
}
