package principal

import (
	"context"
	"errors"
	"fmt"

	"github.com/fieldnet/nmsportal/internal/features"
	"github.com/fieldnet/nmsportal/internal/models"
)

// Builder assembles immutable principals for authenticated requests.
type Builder struct {
	features *features.Evaluator
}

// NewBuilder constructs a principal builder.
func NewBuilder(evaluator *features.Evaluator) (*Builder, error) {
	if evaluator == nil {
		return nil, errors.New("principal builder: feature evaluator is required")
	}
	return &Builder{features: evaluator}, nil
}

// BuildInput carries the request-scoped inputs for principal construction.
type BuildInput struct {
	User         models.User
	Organization models.Organization
	Host         string
	CSRFToken    string
}

// Build resolves the effective network, tab, and feature sets for the user
// within the organization. Construction is all-or-nothing: on any failure no
// partial principal is returned.
func (b *Builder) Build(ctx context.Context, input BuildInput) (*Principal, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if input.User.ID == "" {
		return nil, errors.New("principal builder: user is required")
	}
	if input.Organization.ID == "" {
		return nil, errors.New("principal builder: organization is required")
	}
	if input.User.OrganizationID != input.Organization.ID {
		return nil, errors.New("principal builder: user does not belong to organization")
	}

	var enabled []string
	if features.TestHostOverride(input.Host) {
		enabled = features.AllFeatureIDs()
	} else {
		var err error
		enabled, err = b.features.EnabledFeatures(ctx, input.Organization.ID)
		if err != nil {
			return nil, fmt.Errorf("principal builder: resolve features: %w", err)
		}
	}

	return &Principal{
		User:         input.User,
		Organization: input.Organization,
		NetworkIDs:   intersect(input.User.NetworkIDs, input.Organization.NetworkIDs),
		Tabs:         intersect(rolePermittedTabs(input.User), input.Organization.Tabs),
		Features:     enabled,
		CSRFToken:    input.CSRFToken,
		APIVersion:   APIVersion,
	}, nil
}

// rolePermittedTabs returns the tabs the user's role allows it to request.
// Superusers may reach every tab; other roles are limited to their grants.
func rolePermittedTabs(user models.User) []string {
	if user.Role.IsSuperUser() {
		return models.KnownTabs
	}
	return user.Tabs
}
