package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fieldnet/nmsportal/internal/features"
	"github.com/fieldnet/nmsportal/internal/models"
)

// ErrUnknownFeature indicates a feature ID outside the registered set.
var ErrUnknownFeature = errors.New("feature service: unknown feature")

// FeatureState pairs a registered feature with its stored state for one
// organization. Features without a stored row report Enabled false.
type FeatureState struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

// FeatureService administers per-organization feature flag rows. Read-path
// evaluation lives in the features package; this service covers the admin
// surface that mutates flags.
type FeatureService struct {
	db           *gorm.DB
	auditService *AuditService
}

// NewFeatureService constructs a FeatureService instance.
func NewFeatureService(db *gorm.DB, auditService *AuditService) (*FeatureService, error) {
	if db == nil {
		return nil, errors.New("feature service: db is required")
	}
	return &FeatureService{
		db:           db,
		auditService: auditService,
	}, nil
}

// List returns the state of every registered feature for the organization.
// Unknown IDs stored in the table are ignored; registered IDs without a row
// appear disabled.
func (s *FeatureService) List(ctx context.Context, organizationID string) ([]FeatureState, error) {
	ctx = ensureContext(ctx)

	orgID := strings.TrimSpace(organizationID)
	if orgID == "" {
		return nil, errors.New("feature service: organization id is required")
	}

	var flags []models.FeatureFlag
	if err := s.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Find(&flags).Error; err != nil {
		return nil, fmt.Errorf("feature service: list flags: %w", err)
	}

	stored := make(map[string]bool, len(flags))
	for _, flag := range flags {
		stored[flag.FeatureID] = flag.Enabled
	}

	defs := features.All()
	states := make([]FeatureState, 0, len(defs))
	for _, def := range defs {
		states = append(states, FeatureState{
			ID:          def.ID,
			Description: def.Description,
			Enabled:     stored[def.ID],
		})
	}
	return states, nil
}

// Set upserts the flag row for one feature and organization.
func (s *FeatureService) Set(ctx context.Context, organizationID, featureID string, enabled bool) (*models.FeatureFlag, error) {
	ctx = ensureContext(ctx)

	orgID := strings.TrimSpace(organizationID)
	if orgID == "" {
		return nil, errors.New("feature service: organization id is required")
	}
	featureID = strings.TrimSpace(featureID)
	if !features.Valid(featureID) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFeature, featureID)
	}

	var org models.Organization
	err := s.db.WithContext(ctx).First(&org, "id = ?", orgID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("feature service: load organization: %w", err)
	}

	flag := models.FeatureFlag{
		FeatureID:      featureID,
		OrganizationID: org.ID,
		Enabled:        enabled,
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "organization_id"}, {Name: "feature_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"enabled", "updated_at"}),
		}).
		Create(&flag).Error
	if err != nil {
		return nil, fmt.Errorf("feature service: upsert flag: %w", err)
	}

	if err := s.db.WithContext(ctx).
		Where("organization_id = ? AND feature_id = ?", org.ID, featureID).
		Take(&flag).Error; err != nil {
		return nil, fmt.Errorf("feature service: reload flag: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		OrganizationID: &org.ID,
		Action:         "feature.set",
		Resource:       featureID,
		Result:         "success",
		Metadata: map[string]any{
			"enabled": enabled,
		},
	})

	return &flag, nil
}
