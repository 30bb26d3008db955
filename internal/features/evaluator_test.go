package features

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fieldnet/nmsportal/internal/database/testutil"
	"github.com/fieldnet/nmsportal/internal/models"
)

func newEvaluator(t *testing.T) (*Evaluator, *gorm.DB) {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	evaluator, err := NewEvaluator(db)
	require.NoError(t, err)
	return evaluator, db
}

func seedFlag(t *testing.T, db *gorm.DB, orgID, featureID string, enabled bool) {
	t.Helper()
	require.NoError(t, db.Create(&models.FeatureFlag{
		FeatureID:      featureID,
		OrganizationID: orgID,
		Enabled:        enabled,
	}).Error)
}

func TestIsEnabledMissingRowIsDisabled(t *testing.T) {
	evaluator, _ := newEvaluator(t)

	enabled, err := evaluator.IsEnabled(context.Background(), "org-eval-1", Alerts)
	require.NoError(t, err)
	require.False(t, enabled)
}

func TestIsEnabledUnknownFeatureIsDisabled(t *testing.T) {
	evaluator, db := newEvaluator(t)

	// Even a stored row for an unregistered ID never evaluates enabled.
	seedFlag(t, db, "org-eval-2", "made_up_feature", true)

	enabled, err := evaluator.IsEnabled(context.Background(), "org-eval-2", "made_up_feature")
	require.NoError(t, err)
	require.False(t, enabled)
}

func TestIsEnabledReadsStoredState(t *testing.T) {
	evaluator, db := newEvaluator(t)

	seedFlag(t, db, "org-eval-3", Alerts, true)
	seedFlag(t, db, "org-eval-3", Logs, false)

	enabled, err := evaluator.IsEnabled(context.Background(), "org-eval-3", Alerts)
	require.NoError(t, err)
	require.True(t, enabled)

	enabled, err = evaluator.IsEnabled(context.Background(), "org-eval-3", Logs)
	require.NoError(t, err)
	require.False(t, enabled)

	// Another organization's flag never bleeds over.
	enabled, err = evaluator.IsEnabled(context.Background(), "org-eval-other", Alerts)
	require.NoError(t, err)
	require.False(t, enabled)
}

func TestEnabledFeaturesSortedAndFiltered(t *testing.T) {
	evaluator, db := newEvaluator(t)

	seedFlag(t, db, "org-eval-4", Logs, true)
	seedFlag(t, db, "org-eval-4", Alerts, true)
	seedFlag(t, db, "org-eval-4", GrafanaMetrics, false)
	seedFlag(t, db, "org-eval-4", "retired_feature", true)

	ids, err := evaluator.EnabledFeatures(context.Background(), "org-eval-4")
	require.NoError(t, err)
	require.Equal(t, []string{Alerts, Logs}, ids)
}

func TestRegistryIsClosed(t *testing.T) {
	require.True(t, Valid(Alerts))
	require.False(t, Valid("made_up_feature"))

	defs := All()
	require.Len(t, defs, 5)
	for i := 1; i < len(defs); i++ {
		require.Less(t, defs[i-1].ID, defs[i].ID)
	}
}

func TestTestHostOverride(t *testing.T) {
	cases := []struct {
		host string
		want bool
	}{
		{"localhost", true},
		{"localhost:8080", true},
		{"127.0.0.1", true},
		{"127.0.0.1:3000", true},
		{"::1", true},
		{"staging-test.portal.example.com", true},
		{"portal.example.com", false},
		{"acme.portal.example.com", false},
		{"", false},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, TestHostOverride(tc.host), "host %q", tc.host)
	}
}
