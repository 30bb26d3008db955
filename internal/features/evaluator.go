package features

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/fieldnet/nmsportal/internal/models"
	"github.com/fieldnet/nmsportal/pkg/metrics"
)

// Evaluator answers per-organization feature questions against the flag store.
type Evaluator struct {
	db *gorm.DB
}

// NewEvaluator constructs an evaluator backed by the provided database.
func NewEvaluator(db *gorm.DB) (*Evaluator, error) {
	if db == nil {
		return nil, errors.New("feature evaluator: db is required")
	}
	return &Evaluator{db: db}, nil
}

// IsEnabled reports whether the feature is enabled for the organization.
// A missing row or an unregistered feature ID evaluates to false.
func (e *Evaluator) IsEnabled(ctx context.Context, organizationID, featureID string) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if !Valid(featureID) {
		metrics.FeatureChecks.WithLabelValues(featureID, "disabled").Inc()
		return false, nil
	}

	var flag models.FeatureFlag
	err := e.db.WithContext(ctx).
		Where("organization_id = ? AND feature_id = ?", organizationID, featureID).
		Take(&flag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.FeatureChecks.WithLabelValues(featureID, "disabled").Inc()
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("feature evaluator: load flag: %w", err)
	}

	result := "disabled"
	if flag.Enabled {
		result = "enabled"
	}
	metrics.FeatureChecks.WithLabelValues(featureID, result).Inc()

	return flag.Enabled, nil
}

// EnabledFeatures returns the sorted feature IDs enabled for the organization.
func (e *Evaluator) EnabledFeatures(ctx context.Context, organizationID string) ([]string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var flags []models.FeatureFlag
	if err := e.db.WithContext(ctx).
		Where("organization_id = ? AND enabled = ?", organizationID, true).
		Find(&flags).Error; err != nil {
		return nil, fmt.Errorf("feature evaluator: list flags: %w", err)
	}

	ids := make([]string, 0, len(flags))
	for _, flag := range flags {
		if Valid(flag.FeatureID) {
			ids = append(ids, flag.FeatureID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// AllFeatureIDs returns every registered feature ID sorted.
func AllFeatureIDs() []string {
	defs := All()
	ids := make([]string, 0, len(defs))
	for _, def := range defs {
		ids = append(ids, def.ID)
	}
	return ids
}

// TestHostOverride reports whether the request hostname designates a
// non-production diagnostic host where every feature is forced on. It is a
// pure function of the hostname and persists nothing.
func TestHostOverride(host string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	switch host {
	case "localhost", "127.0.0.1", "::1":
		return true
	}

	return strings.Contains(host, "-test.")
}
