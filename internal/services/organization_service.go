package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fieldnet/nmsportal/internal/features"
	"github.com/fieldnet/nmsportal/internal/models"
)

var (
	// ErrOrganizationNotFound indicates the requested organization does not exist.
	ErrOrganizationNotFound = errors.New("organization service: organization not found")
	// ErrOrganizationExists indicates a name collision with an existing organization.
	ErrOrganizationExists = errors.New("organization service: organization already exists")
	// ErrOrganizationNotEmpty blocks deletion while user accounts still reference the tenant.
	ErrOrganizationNotEmpty = errors.New("organization service: organization still has users")
	// ErrInvalidTab indicates a tab name outside the known set.
	ErrInvalidTab = errors.New("organization service: unknown tab")
)

// CreateOrganizationInput captures the attributes required to register an organization.
type CreateOrganizationInput struct {
	Name          string
	NetworkIDs    []string
	Tabs          []string
	CustomDomains []string
	CSVCharset    string
}

// UpdateOrganizationInput represents mutable organization fields. Nil pointers
// and nil slices leave the corresponding column untouched.
type UpdateOrganizationInput struct {
	NetworkIDs    []string
	Tabs          []string
	CustomDomains []string
	CSVCharset    *string

	SSOSelectedType     *string
	SSOEntrypoint       *string
	SSOIssuer           *string
	SSOCert             *string
	SSOOIDCClientID     *string
	SSOOIDCClientSecret *string
	SSOOIDCConfigURL    *string
}

// OrganizationService manages lifecycle operations for tenant organizations.
type OrganizationService struct {
	db           *gorm.DB
	auditService *AuditService
}

// NewOrganizationService constructs an OrganizationService instance.
func NewOrganizationService(db *gorm.DB, auditService *AuditService) (*OrganizationService, error) {
	if db == nil {
		return nil, errors.New("organization service: db is required")
	}
	return &OrganizationService{
		db:           db,
		auditService: auditService,
	}, nil
}

// Create registers a new organization and seeds its feature flag rows from
// the registry defaults so that lookups never fall through to a missing row.
func (s *OrganizationService) Create(ctx context.Context, input CreateOrganizationInput) (*models.Organization, error) {
	ctx = ensureContext(ctx)

	name := strings.ToLower(strings.TrimSpace(input.Name))
	if name == "" {
		return nil, errors.New("organization service: name is required")
	}

	tabs := normaliseIDs(input.Tabs)
	for _, tab := range tabs {
		if !models.ValidTab(tab) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidTab, tab)
		}
	}

	org := &models.Organization{
		Name:          name,
		NetworkIDs:    datatypes.JSONSlice[string](normaliseIDs(input.NetworkIDs)),
		Tabs:          datatypes.JSONSlice[string](tabs),
		CustomDomains: datatypes.JSONSlice[string](normaliseDomains(input.CustomDomains)),
		CSVCharset:    strings.TrimSpace(input.CSVCharset),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(org).Error; err != nil {
			return err
		}
		for _, def := range features.All() {
			flag := models.FeatureFlag{
				FeatureID:      def.ID,
				OrganizationID: org.ID,
				Enabled:        def.DefaultEnabled,
			}
			if err := tx.Create(&flag).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrOrganizationExists
		}
		return nil, fmt.Errorf("organization service: create organization: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		OrganizationID: &org.ID,
		Action:         "org.create",
		Resource:       org.ID,
		Result:         "success",
		Metadata: map[string]any{
			"name": name,
		},
	})

	return org, nil
}

// GetByID loads an organization together with its feature flags.
func (s *OrganizationService) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	ctx = ensureContext(ctx)

	var org models.Organization
	err := s.db.WithContext(ctx).
		Preload("FeatureFlags").
		First(&org, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("organization service: get organization: %w", err)
	}
	return &org, nil
}

// GetByName loads an organization by its unique name.
func (s *OrganizationService) GetByName(ctx context.Context, name string) (*models.Organization, error) {
	ctx = ensureContext(ctx)

	var org models.Organization
	err := s.db.WithContext(ctx).
		First(&org, "name = ?", strings.ToLower(strings.TrimSpace(name))).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("organization service: get organization: %w", err)
	}
	return &org, nil
}

// List returns all organizations ordered by creation date.
func (s *OrganizationService) List(ctx context.Context) ([]models.Organization, error) {
	ctx = ensureContext(ctx)

	var orgs []models.Organization
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&orgs).Error; err != nil {
		return nil, fmt.Errorf("organization service: list organizations: %w", err)
	}
	return orgs, nil
}

// Update modifies mutable fields for an organization. The name and the master
// marker are immutable after creation.
func (s *OrganizationService) Update(ctx context.Context, id string, input UpdateOrganizationInput) (*models.Organization, error) {
	ctx = ensureContext(ctx)

	var org models.Organization
	err := s.db.WithContext(ctx).First(&org, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("organization service: load organization: %w", err)
	}

	updates := map[string]any{}

	if input.NetworkIDs != nil {
		updates["network_ids"] = datatypes.JSONSlice[string](normaliseIDs(input.NetworkIDs))
	}
	if input.Tabs != nil {
		tabs := normaliseIDs(input.Tabs)
		for _, tab := range tabs {
			if !models.ValidTab(tab) {
				return nil, fmt.Errorf("%w: %s", ErrInvalidTab, tab)
			}
		}
		updates["tabs"] = datatypes.JSONSlice[string](tabs)
	}
	if input.CustomDomains != nil {
		updates["custom_domains"] = datatypes.JSONSlice[string](normaliseDomains(input.CustomDomains))
	}
	if input.CSVCharset != nil {
		updates["csv_charset"] = strings.TrimSpace(*input.CSVCharset)
	}
	if input.SSOSelectedType != nil {
		selected := strings.ToLower(strings.TrimSpace(*input.SSOSelectedType))
		switch selected {
		case models.SSONone, models.SSOSAML, models.SSOOIDC:
		default:
			return nil, fmt.Errorf("organization service: unknown sso type %q", selected)
		}
		updates["sso_selected_type"] = selected
	}
	if input.SSOEntrypoint != nil {
		updates["sso_entrypoint"] = strings.TrimSpace(*input.SSOEntrypoint)
	}
	if input.SSOIssuer != nil {
		updates["sso_issuer"] = strings.TrimSpace(*input.SSOIssuer)
	}
	if input.SSOCert != nil {
		updates["sso_cert"] = strings.TrimSpace(*input.SSOCert)
	}
	if input.SSOOIDCClientID != nil {
		updates["ssooidc_client_id"] = strings.TrimSpace(*input.SSOOIDCClientID)
	}
	if input.SSOOIDCClientSecret != nil {
		updates["ssooidc_client_secret"] = strings.TrimSpace(*input.SSOOIDCClientSecret)
	}
	if input.SSOOIDCConfigURL != nil {
		updates["ssooidc_config_url"] = strings.TrimSpace(*input.SSOOIDCConfigURL)
	}

	if len(updates) == 0 {
		return &org, nil
	}

	if err := s.db.WithContext(ctx).Model(&org).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("organization service: update organization: %w", err)
	}

	if err := s.db.WithContext(ctx).First(&org, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("organization service: reload organization: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		OrganizationID: &org.ID,
		Action:         "org.update",
		Resource:       org.ID,
		Result:         "success",
	})

	return &org, nil
}

// Delete removes an organization along with its feature flags. Deletion is
// refused while any user account still belongs to the tenant.
func (s *OrganizationService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	var org models.Organization
	err := s.db.WithContext(ctx).First(&org, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrOrganizationNotFound
	}
	if err != nil {
		return fmt.Errorf("organization service: load organization: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var userCount int64
		if err := tx.Model(&models.User{}).
			Where("organization_id = ?", org.ID).
			Count(&userCount).Error; err != nil {
			return fmt.Errorf("organization service: count users: %w", err)
		}
		if userCount > 0 {
			return ErrOrganizationNotEmpty
		}

		if err := tx.Where("organization_id = ?", org.ID).
			Delete(&models.FeatureFlag{}).Error; err != nil {
			return fmt.Errorf("organization service: delete feature flags: %w", err)
		}
		if err := tx.Delete(&org).Error; err != nil {
			return fmt.Errorf("organization service: delete organization: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "org.delete",
		Resource: org.ID,
		Result:   "success",
		Metadata: map[string]any{
			"name": org.Name,
		},
	})

	return nil
}

func normaliseDomains(values []string) []string {
	var out []string
	for _, value := range normaliseIDs(values) {
		out = append(out, strings.ToLower(value))
	}
	return out
}
