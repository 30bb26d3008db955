package models

// FeatureFlag toggles an optional feature for one organization. At most one
// row exists per (organization, feature) pair; a missing row means disabled.
type FeatureFlag struct {
	BaseModel

	FeatureID      string        `gorm:"not null;uniqueIndex:idx_flags_org_feature" json:"feature_id"`
	OrganizationID string        `gorm:"type:uuid;not null;uniqueIndex:idx_flags_org_feature;index" json:"organization_id"`
	Organization   *Organization `json:"organization,omitempty"`

	Enabled bool `gorm:"not null" json:"enabled"`
}
