package tenancy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"gorm.io/gorm"

	"github.com/fieldnet/nmsportal/internal/models"
	"github.com/fieldnet/nmsportal/pkg/metrics"
)

// ErrOrganizationNotFound indicates no organization matches the host or name.
// Callers must render it generically and never reveal which tenants exist.
var ErrOrganizationNotFound = errors.New("tenancy: organization not found")

// Resolver maps an inbound request's host or an explicit organization name to
// a persisted organization. Resolution is a pure read and is safe to run on
// every request.
type Resolver struct {
	db *gorm.DB
}

// NewResolver constructs a resolver backed by the provided database.
func NewResolver(db *gorm.DB) (*Resolver, error) {
	if db == nil {
		return nil, errors.New("tenancy resolver: db is required")
	}
	return &Resolver{db: db}, nil
}

// Resolve finds the organization for a request. Order: exact custom-domain
// match, then subdomain-derived name, then the explicit name parameter used
// by API clients.
func (r *Resolver) Resolve(ctx context.Context, host, explicitName string) (*models.Organization, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	host = normalizeHost(host)

	if host != "" {
		if org, err := r.matchCustomDomain(ctx, host); err != nil {
			return nil, err
		} else if org != nil {
			metrics.OrganizationResolutions.WithLabelValues("hit").Inc()
			return org, nil
		}

		if name := subdomainLabel(host); name != "" {
			if org, err := r.byName(ctx, name); err == nil {
				metrics.OrganizationResolutions.WithLabelValues("hit").Inc()
				return org, nil
			} else if !errors.Is(err, ErrOrganizationNotFound) {
				return nil, err
			}
		}
	}

	if name := strings.TrimSpace(explicitName); name != "" {
		if org, err := r.byName(ctx, name); err == nil {
			metrics.OrganizationResolutions.WithLabelValues("hit").Inc()
			return org, nil
		} else if !errors.Is(err, ErrOrganizationNotFound) {
			return nil, err
		}
	}

	metrics.OrganizationResolutions.WithLabelValues("miss").Inc()
	return nil, ErrOrganizationNotFound
}

// ResolveByName looks an organization up by its unique name.
func (r *Resolver) ResolveByName(ctx context.Context, name string) (*models.Organization, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return r.byName(ctx, strings.TrimSpace(name))
}

func (r *Resolver) byName(ctx context.Context, name string) (*models.Organization, error) {
	if name == "" {
		return nil, ErrOrganizationNotFound
	}

	var org models.Organization
	err := r.db.WithContext(ctx).Where("name = ?", name).Take(&org).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("tenancy resolver: query organization: %w", err)
	}
	return &org, nil
}

// matchCustomDomain scans organizations with configured custom domains. The
// organization table is small and read-dominated; the JSON column comparison
// happens in Go to stay portable across sqlite, postgres, and mysql.
func (r *Resolver) matchCustomDomain(ctx context.Context, host string) (*models.Organization, error) {
	var orgs []models.Organization
	err := r.db.WithContext(ctx).
		Where("custom_domains IS NOT NULL AND custom_domains != ''").
		Find(&orgs).Error
	if err != nil {
		return nil, fmt.Errorf("tenancy resolver: query custom domains: %w", err)
	}

	for i := range orgs {
		if orgs[i].HasCustomDomain(host) {
			return &orgs[i], nil
		}
	}
	return nil, nil
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return host
}

// subdomainLabel derives an organization name from the leftmost DNS label of
// a multi-label host ("acme.nms.example.com" -> "acme").
func subdomainLabel(host string) string {
	if net.ParseIP(host) != nil {
		return ""
	}

	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return ""
	}
	return labels[0]
}
