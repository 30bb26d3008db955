package models

import "gorm.io/datatypes"

// SSO protocol selections available per organization.
const (
	SSONone = "none"
	SSOSAML = "saml"
	SSOOIDC = "oidc"
)

// Organization is the tenant boundary: it scopes users, permitted networks,
// visible tabs, and feature flags.
type Organization struct {
	BaseModel

	Name string `gorm:"uniqueIndex;not null" json:"name"`

	// IsMaster marks the distinguished organization whose members may act
	// across all other organizations.
	IsMaster bool `gorm:"default:false" json:"is_master"`

	// NetworkIDs lists the networks this tenant is permitted to manage.
	// IDs may be shared between organizations.
	NetworkIDs datatypes.JSONSlice[string] `json:"network_ids"`

	// Tabs enumerates the UI sections enabled for this tenant.
	Tabs datatypes.JSONSlice[string] `json:"tabs"`

	// CustomDomains are hostnames that resolve directly to this organization,
	// checked before subdomain-derived names.
	CustomDomains datatypes.JSONSlice[string] `json:"custom_domains"`

	CSVCharset string `gorm:"default:''" json:"csv_charset"`

	// Per-organization single sign-on configuration.
	SSOSelectedType     string `gorm:"default:none" json:"sso_selected_type"`
	SSOEntrypoint       string `json:"sso_entrypoint"`
	SSOIssuer           string `json:"sso_issuer"`
	SSOCert             string `json:"-"`
	SSOOIDCClientID     string `json:"sso_oidc_client_id"`
	SSOOIDCClientSecret string `json:"-"`
	SSOOIDCConfigURL    string `json:"sso_oidc_config_url"`

	Users        []User        `gorm:"foreignKey:OrganizationID" json:"users,omitempty"`
	FeatureFlags []FeatureFlag `gorm:"foreignKey:OrganizationID" json:"feature_flags,omitempty"`
}

// PermitsNetwork reports whether the organization itself may access the network.
func (o *Organization) PermitsNetwork(networkID string) bool {
	for _, id := range o.NetworkIDs {
		if id == networkID {
			return true
		}
	}
	return false
}

// HasCustomDomain reports whether the host matches one of the configured domains.
func (o *Organization) HasCustomDomain(host string) bool {
	for _, domain := range o.CustomDomains {
		if domain == host {
			return true
		}
	}
	return false
}
