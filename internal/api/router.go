package api

import (
	"fmt"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/fieldnet/nmsportal/internal/app"
	iauth "github.com/fieldnet/nmsportal/internal/auth"
	"github.com/fieldnet/nmsportal/internal/auth/sso"
	"github.com/fieldnet/nmsportal/internal/authz"
	"github.com/fieldnet/nmsportal/internal/features"
	"github.com/fieldnet/nmsportal/internal/handlers"
	"github.com/fieldnet/nmsportal/internal/middleware"
	"github.com/fieldnet/nmsportal/internal/models"
	"github.com/fieldnet/nmsportal/internal/principal"
	"github.com/fieldnet/nmsportal/internal/proxy"
	"github.com/fieldnet/nmsportal/internal/services"
	"github.com/fieldnet/nmsportal/internal/tenancy"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
// Every route except /health and /metrics runs behind organization resolution.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, sessions *iauth.SessionService) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	rootURL, err := url.Parse(cfg.Server.RootURL)
	if err != nil {
		return nil, fmt.Errorf("parse root url: %w", err)
	}

	resolver, err := tenancy.NewResolver(db)
	if err != nil {
		return nil, err
	}
	evaluator, err := features.NewEvaluator(db)
	if err != nil {
		return nil, err
	}
	builder, err := principal.NewBuilder(evaluator)
	if err != nil {
		return nil, err
	}
	credentials, err := iauth.NewCredentialValidator(db, iauth.CredentialValidatorConfig{})
	if err != nil {
		return nil, err
	}

	auditService, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	orgService, err := services.NewOrganizationService(db, auditService)
	if err != nil {
		return nil, err
	}
	userService, err := services.NewUserService(db, auditService)
	if err != nil {
		return nil, err
	}
	featureService, err := services.NewFeatureService(db, auditService)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	if cfg.Server.CSRF.Enabled {
		r.Use(middleware.CSRF())
	}
	// Basic rate limiting: 100 requests/minute per IP+path
	r.Use(middleware.RateLimit(100, time.Minute))

	// Health endpoint (public, no tenant required)
	if cfg.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health(db))
	}

	resolveOrg := middleware.Organization(resolver)
	requireAuth := middleware.Auth(jwt, db, builder)

	authHandler := handlers.NewAuthHandler(db, credentials, sessions, auditService)

	// Public auth routes (tenant-scoped, tighter rate limit on login)
	auth := r.Group("/api/auth", resolveOrg)
	{
		auth.POST("/login", middleware.RateLimit(10, time.Minute), authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
	}

	// SSO flows (public, tenant-scoped)
	ssoHandler := handlers.NewSSOHandler(rootURL, sessions, userService, sso.OIDCOptions{
		Timeout: cfg.Auth.SSO.DiscoveryTimeout,
	})
	login := r.Group("/user/login", resolveOrg)
	{
		login.GET("/saml", ssoHandler.Begin(models.SSOSAML))
		login.GET("/oidc", ssoHandler.Begin(models.SSOOIDC))
		login.GET("/saml/callback", ssoHandler.Callback(models.SSOSAML))
		login.POST("/saml/callback", ssoHandler.Callback(models.SSOSAML))
		login.GET("/oidc/callback", ssoHandler.Callback(models.SSOOIDC))
	}

	// Protected routes
	api := r.Group("/api", resolveOrg, requireAuth)

	// Authenticated auth routes
	api.GET("/auth/me", authHandler.Me)
	api.POST("/auth/logout", authHandler.Logout)

	// Networks
	networkHandler := handlers.NewNetworkHandler()
	networks := api.Group("/networks")
	{
		networks.GET("", middleware.RequireCapability(authz.CapabilityRead), networkHandler.List)
		networks.GET("/:networkID", networkHandler.Get)
	}

	// Users
	userHandler := handlers.NewUserHandler(userService)
	users := api.Group("/users")
	{
		users.GET("", middleware.RequireCapability(authz.CapabilityRead), userHandler.List)
		users.GET("/:id", middleware.RequireCapability(authz.CapabilityRead), userHandler.Get)
		users.POST("", middleware.RequireCapability(authz.CapabilityAdmin), userHandler.Create)
		users.PUT("/:id", middleware.RequireCapability(authz.CapabilityAdmin), userHandler.Update)
		users.DELETE("/:id", middleware.RequireCapability(authz.CapabilityAdmin), userHandler.Delete)
	}

	// Organizations (master tenant only)
	orgHandler := handlers.NewOrganizationHandler(orgService, featureService)
	orgs := api.Group("/organizations",
		middleware.RequireMasterOrg(),
		middleware.RequireCapability(authz.CapabilityAdmin),
	)
	{
		orgs.GET("", orgHandler.List)
		orgs.GET("/:id", orgHandler.Get)
		orgs.POST("", orgHandler.Create)
		orgs.PUT("/:id", orgHandler.Update)
		orgs.DELETE("/:id", orgHandler.Delete)
		orgs.GET("/:id/features", orgHandler.ListFeatures)
		orgs.PUT("/:id/features/:featureID", orgHandler.SetFeature)
	}

	// Audit
	auditHandler := handlers.NewAuditHandler(auditService)
	api.GET("/audit", middleware.RequireCapability(authz.CapabilityAdmin), auditHandler.List)

	// Southbound orchestrator proxy
	if cfg.Proxy.Enabled {
		southbound, err := proxy.NewSouthbound(proxy.Config{
			BaseURL:            cfg.Proxy.BaseURL,
			InsecureSkipVerify: cfg.Proxy.InsecureSkipVerify,
		})
		if err != nil {
			return nil, err
		}
		r.Any("/nms/apicontroller/magma/v1/networks/:networkID/*path",
			resolveOrg, requireAuth, southbound.Handler())
	}

	// Metrics endpoint
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
