package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User is an operator account owned by exactly one organization. Emails are
// unique per organization only; the same address may exist in other tenants.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Email    string `gorm:"not null;uniqueIndex:idx_users_org_email" json:"email"`
	Password string `gorm:"not null" json:"-"`

	OrganizationID string        `gorm:"type:uuid;not null;uniqueIndex:idx_users_org_email;index" json:"organization_id"`
	Organization   *Organization `json:"organization,omitempty"`

	Role Role `gorm:"not null;default:USER" json:"role"`

	// NetworkIDs are networks explicitly granted to this user. Effective
	// access is the intersection with the organization's permitted set.
	NetworkIDs datatypes.JSONSlice[string] `json:"network_ids"`

	// Tabs the user may see, intersected with the organization's tabs.
	Tabs datatypes.JSONSlice[string] `json:"tabs"`

	IsActive bool `gorm:"default:true" json:"is_active"`

	Sessions []Session `gorm:"foreignKey:UserID" json:"-"`

	LastLoginAt *time.Time `json:"last_login_at"`
	LastLoginIP string     `json:"last_login_ip"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
