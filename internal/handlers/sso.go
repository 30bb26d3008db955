package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/fieldnet/nmsportal/internal/auth"
	"github.com/fieldnet/nmsportal/internal/auth/sso"
	"github.com/fieldnet/nmsportal/internal/middleware"
	"github.com/fieldnet/nmsportal/internal/models"
	"github.com/fieldnet/nmsportal/internal/services"
	"github.com/fieldnet/nmsportal/pkg/crypto"
	appErrors "github.com/fieldnet/nmsportal/pkg/errors"
	"github.com/fieldnet/nmsportal/pkg/metrics"
	"github.com/fieldnet/nmsportal/pkg/response"
)

const (
	ssoStateCookie   = "nmsportal_sso_state"
	ssoRequestCookie = "nmsportal_sso_request"
	ssoCookieMaxAge  = 10 * 60
)

// SSOHandler drives the per-organization SAML and OIDC login flows. Accounts
// asserted by a tenant's identity provider are auto-provisioned as USER in
// that tenant on first login.
type SSOHandler struct {
	rootURL  *url.URL
	sessions *iauth.SessionService
	users    *services.UserService
	oidcOpts sso.OIDCOptions
}

func NewSSOHandler(rootURL *url.URL, sessions *iauth.SessionService, users *services.UserService, oidcOpts sso.OIDCOptions) *SSOHandler {
	return &SSOHandler{rootURL: rootURL, sessions: sessions, users: users, oidcOpts: oidcOpts}
}

// GET /user/login/saml and /user/login/oidc
func (h *SSOHandler) Begin(protocol string) gin.HandlerFunc {
	return func(c *gin.Context) {
		org, ok := middleware.OrganizationFromContext(c)
		if !ok {
			response.Error(c, appErrors.ErrOrganizationNotFound)
			return
		}

		provider, err := h.providerFor(c, org, protocol)
		if err != nil {
			h.renderProviderError(c, err)
			return
		}

		state, err := crypto.GenerateToken(24)
		if err != nil {
			response.Error(c, appErrors.ErrInternalServer)
			return
		}

		begin, err := provider.Begin(requestContext(c), state)
		if err != nil {
			response.Error(c, appErrors.ErrInternalServer)
			return
		}

		h.setFlowCookie(c, ssoStateCookie, begin.State)
		if begin.RequestID != "" {
			h.setFlowCookie(c, ssoRequestCookie, begin.RequestID)
		}

		c.Redirect(http.StatusFound, begin.RedirectURL)
	}
}

// GET|POST /user/login/saml/callback and GET /user/login/oidc/callback
func (h *SSOHandler) Callback(protocol string) gin.HandlerFunc {
	return func(c *gin.Context) {
		org, ok := middleware.OrganizationFromContext(c)
		if !ok {
			response.Error(c, appErrors.ErrOrganizationNotFound)
			return
		}

		provider, err := h.providerFor(c, org, protocol)
		if err != nil {
			h.renderProviderError(c, err)
			return
		}

		state, _ := c.Cookie(ssoStateCookie)
		requestID, _ := c.Cookie(ssoRequestCookie)
		h.clearFlowCookies(c)

		identity, err := provider.Callback(requestContext(c), sso.CallbackRequest{
			State:          state,
			AuthnRequestID: requestID,
			RawHTTPRequest: c.Request,
		})
		if err != nil {
			metrics.AuthAttempts.WithLabelValues("failure").Inc()
			response.Error(c, appErrors.ErrUnauthorized)
			return
		}

		user, err := h.findOrProvision(c, org, identity)
		if err != nil {
			metrics.AuthAttempts.WithLabelValues("failure").Inc()
			response.Error(c, appErrors.ErrInternalServer)
			return
		}
		if !user.IsActive {
			metrics.AuthAttempts.WithLabelValues("failure").Inc()
			response.Error(c, appErrors.ErrUnauthorized)
			return
		}

		pair, _, err := h.sessions.CreateSession(user, iauth.SessionMetadata{
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		if err != nil {
			response.Error(c, appErrors.ErrInternalServer)
			return
		}

		metrics.AuthAttempts.WithLabelValues("success").Inc()

		response.Success(c, http.StatusOK, gin.H{
			"tokens": tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken},
			"user": gin.H{
				"id":    user.ID,
				"email": user.Email,
				"role":  user.Role,
			},
			"organization": org.Name,
			"provider":     identity.Provider,
		})
	}
}

// providerFor checks the requested protocol against the tenant's selection
// before constructing the provider.
func (h *SSOHandler) providerFor(c *gin.Context, org *models.Organization, protocol string) (sso.Provider, error) {
	if strings.ToLower(strings.TrimSpace(protocol)) != org.SSOSelectedType {
		return nil, sso.ErrSSONotConfigured
	}
	return sso.ForOrganization(requestContext(c), org, h.rootURL, h.oidcOpts)
}

// findOrProvision maps the asserted identity onto the tenant's user store.
// Provisioned accounts receive a random unguessable password; they can only
// ever sign in through the identity provider.
func (h *SSOHandler) findOrProvision(c *gin.Context, org *models.Organization, identity *sso.Identity) (*models.User, error) {
	ctx := requestContext(c)

	user, err := h.users.GetByEmail(ctx, org.ID, identity.Email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, services.ErrUserNotFound) {
		return nil, err
	}

	password, err := crypto.GenerateToken(32)
	if err != nil {
		return nil, err
	}

	return h.users.Create(ctx, services.CreateUserInput{
		Email:          identity.Email,
		Password:       password,
		OrganizationID: org.ID,
		Role:           models.RoleUser,
	})
}

func (h *SSOHandler) renderProviderError(c *gin.Context, err error) {
	if errors.Is(err, sso.ErrSSONotConfigured) {
		response.Error(c, appErrors.NewBadRequest("single sign-on is not configured for this organization"))
		return
	}
	response.Error(c, appErrors.ErrInternalServer)
}

func (h *SSOHandler) setFlowCookie(c *gin.Context, name, value string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, ssoCookieMaxAge, "/", "", false, true)
}

func (h *SSOHandler) clearFlowCookies(c *gin.Context) {
	c.SetCookie(ssoStateCookie, "", -1, "/", "", false, true)
	c.SetCookie(ssoRequestCookie, "", -1, "/", "", false, true)
}
