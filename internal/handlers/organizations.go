package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldnet/nmsportal/internal/services"
	appErrors "github.com/fieldnet/nmsportal/pkg/errors"
	"github.com/fieldnet/nmsportal/pkg/response"
)

// OrganizationHandler exposes tenant administration endpoints. The router
// mounts these behind the master-organization and admin-capability gates.
type OrganizationHandler struct {
	orgs     *services.OrganizationService
	features *services.FeatureService
}

func NewOrganizationHandler(orgs *services.OrganizationService, features *services.FeatureService) *OrganizationHandler {
	return &OrganizationHandler{orgs: orgs, features: features}
}

type createOrganizationRequest struct {
	Name          string   `json:"name" validate:"required,min=2,max=63,orgname"`
	NetworkIDs    []string `json:"network_ids"`
	Tabs          []string `json:"tabs"`
	CustomDomains []string `json:"custom_domains"`
	CSVCharset    string   `json:"csv_charset"`
}

type updateOrganizationRequest struct {
	NetworkIDs    []string `json:"network_ids"`
	Tabs          []string `json:"tabs"`
	CustomDomains []string `json:"custom_domains"`
	CSVCharset    *string  `json:"csv_charset"`

	SSOSelectedType     *string `json:"sso_selected_type"`
	SSOEntrypoint       *string `json:"sso_entrypoint"`
	SSOIssuer           *string `json:"sso_issuer"`
	SSOCert             *string `json:"sso_cert"`
	SSOOIDCClientID     *string `json:"sso_oidc_client_id"`
	SSOOIDCClientSecret *string `json:"sso_oidc_client_secret"`
	SSOOIDCConfigURL    *string `json:"sso_oidc_config_url"`
}

// GET /api/organizations
func (h *OrganizationHandler) List(c *gin.Context) {
	orgs, err := h.orgs.List(requestContext(c))
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}
	response.Success(c, http.StatusOK, orgs)
}

// GET /api/organizations/:id
func (h *OrganizationHandler) Get(c *gin.Context) {
	org, err := h.orgs.GetByID(requestContext(c), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, http.StatusOK, org)
}

// POST /api/organizations
func (h *OrganizationHandler) Create(c *gin.Context) {
	var req createOrganizationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	org, err := h.orgs.Create(requestContext(c), services.CreateOrganizationInput{
		Name:          req.Name,
		NetworkIDs:    req.NetworkIDs,
		Tabs:          req.Tabs,
		CustomDomains: req.CustomDomains,
		CSVCharset:    req.CSVCharset,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, org)
}

// PUT /api/organizations/:id
func (h *OrganizationHandler) Update(c *gin.Context) {
	var req updateOrganizationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	org, err := h.orgs.Update(requestContext(c), c.Param("id"), services.UpdateOrganizationInput{
		NetworkIDs:          req.NetworkIDs,
		Tabs:                req.Tabs,
		CustomDomains:       req.CustomDomains,
		CSVCharset:          req.CSVCharset,
		SSOSelectedType:     req.SSOSelectedType,
		SSOEntrypoint:       req.SSOEntrypoint,
		SSOIssuer:           req.SSOIssuer,
		SSOCert:             req.SSOCert,
		SSOOIDCClientID:     req.SSOOIDCClientID,
		SSOOIDCClientSecret: req.SSOOIDCClientSecret,
		SSOOIDCConfigURL:    req.SSOOIDCConfigURL,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, http.StatusOK, org)
}

// DELETE /api/organizations/:id
func (h *OrganizationHandler) Delete(c *gin.Context) {
	if err := h.orgs.Delete(requestContext(c), c.Param("id")); err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GET /api/organizations/:id/features
func (h *OrganizationHandler) ListFeatures(c *gin.Context) {
	if _, err := h.orgs.GetByID(requestContext(c), c.Param("id")); err != nil {
		h.renderError(c, err)
		return
	}

	states, err := h.features.List(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}
	response.Success(c, http.StatusOK, states)
}

type setFeatureRequest struct {
	Enabled bool `json:"enabled"`
}

// PUT /api/organizations/:id/features/:featureID
func (h *OrganizationHandler) SetFeature(c *gin.Context) {
	var req setFeatureRequest
	if !bindAndValidate(c, &req) {
		return
	}

	flag, err := h.features.Set(requestContext(c), c.Param("id"), c.Param("featureID"), req.Enabled)
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, http.StatusOK, flag)
}

func (h *OrganizationHandler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrOrganizationNotFound):
		response.Error(c, appErrors.ErrNotFound)
	case errors.Is(err, services.ErrOrganizationExists):
		response.Error(c, appErrors.New("ORGANIZATION_EXISTS", "Organization name already in use", http.StatusConflict))
	case errors.Is(err, services.ErrOrganizationNotEmpty):
		response.Error(c, appErrors.ErrOrganizationNotEmpty)
	case errors.Is(err, services.ErrInvalidTab), errors.Is(err, services.ErrUnknownFeature):
		response.Error(c, appErrors.NewBadRequest(err.Error()))
	default:
		response.Error(c, appErrors.ErrInternalServer)
	}
}
