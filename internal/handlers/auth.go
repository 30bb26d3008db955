package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	iauth "github.com/fieldnet/nmsportal/internal/auth"
	"github.com/fieldnet/nmsportal/internal/middleware"
	"github.com/fieldnet/nmsportal/internal/services"
	"github.com/fieldnet/nmsportal/pkg/errors"
	"github.com/fieldnet/nmsportal/pkg/metrics"
	"github.com/fieldnet/nmsportal/pkg/response"
)

// AuthHandler manages authentication flows (login/refresh/logout/me).
type AuthHandler struct {
	db          *gorm.DB
	credentials *iauth.CredentialValidator
	sessions    *iauth.SessionService
	audit       *services.AuditService
}

func NewAuthHandler(db *gorm.DB, credentials *iauth.CredentialValidator, sessions *iauth.SessionService, audit *services.AuditService) *AuthHandler {
	return &AuthHandler{db: db, credentials: credentials, sessions: sessions, audit: audit}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// POST /api/auth/login
//
// Credentials are always checked against the organization resolved from the
// request host. Every rejection renders the same 401 payload.
func (h *AuthHandler) Login(c *gin.Context) {
	org, ok := middleware.OrganizationFromContext(c)
	if !ok {
		response.Error(c, errors.ErrOrganizationNotFound)
		return
	}

	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := h.credentials.Authenticate(requestContext(c), org, iauth.AuthenticateInput{
		Email:     email,
		Password:  req.Password,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		h.logAuthEvent(c, org.ID, email, "auth.login", "failure")
		response.Error(c, errors.ErrInvalidCredentials)
		return
	}

	pair, _, err := h.sessions.CreateSession(user, iauth.SessionMetadata{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, errors.ErrInternalServer)
		return
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	h.logAuthEvent(c, org.ID, email, "auth.login", "success")

	payload := gin.H{
		"tokens": tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken},
		"user": gin.H{
			"id":        user.ID,
			"email":     user.Email,
			"role":      user.Role,
			"is_active": user.IsActive,
		},
		"organization": org.Name,
	}

	response.Success(c, http.StatusOK, payload)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindAndValidate(c, &req) {
		return
	}
	req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	if req.RefreshToken == "" {
		response.Error(c, errors.NewBadRequest("refresh token is required"))
		return
	}

	pair, _, err := h.sessions.RefreshSession(req.RefreshToken)
	if err != nil {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	response.Success(c, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	v, ok := c.Get(middleware.CtxSessionIDKey)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}
	sid, _ := v.(string)
	if sid == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if err := h.sessions.RevokeSession(sid); err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	if prin, ok := middleware.PrincipalFromContext(c); ok {
		h.logAuthEvent(c, prin.Organization.ID, prin.User.Email, "auth.logout", "success")
	}

	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

// GET /api/auth/me
//
// Renders the request principal: identity, effective network and tab sets,
// enabled features, and the CSRF token the client must echo on writes.
func (h *AuthHandler) Me(c *gin.Context) {
	prin, ok := middleware.PrincipalFromContext(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	payload := gin.H{
		"id":           prin.User.ID,
		"email":        prin.User.Email,
		"role":         prin.User.Role,
		"organization": prin.Organization.Name,
		"is_master":    prin.IsMasterOrg(),
		"network_ids":  prin.NetworkIDs,
		"tabs":         prin.Tabs,
		"features":     prin.Features,
		"csrf_token":   prin.CSRFToken,
		"api_version":  prin.APIVersion,
	}

	response.Success(c, http.StatusOK, payload)
}

func (h *AuthHandler) logAuthEvent(c *gin.Context, orgID, email, action, result string) {
	if h.audit == nil {
		return
	}
	entry := services.AuditEntry{
		Email:     email,
		Action:    action,
		Resource:  "session",
		Result:    result,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
	if orgID != "" {
		entry.OrganizationID = &orgID
	}
	_ = h.audit.Log(requestContext(c), entry)
}
