package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fieldnet/nmsportal/internal/middleware"
	"github.com/fieldnet/nmsportal/internal/models"
	"github.com/fieldnet/nmsportal/internal/services"
	appErrors "github.com/fieldnet/nmsportal/pkg/errors"
	"github.com/fieldnet/nmsportal/pkg/response"
)

// UserHandler exposes user administration inside one organization. Members of
// the master organization may target another tenant with the org query
// parameter; everyone else is pinned to their own.
type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

type createUserRequest struct {
	Email      string   `json:"email" validate:"required,email"`
	Password   string   `json:"password" validate:"required,min=8"`
	Role       string   `json:"role"`
	NetworkIDs []string `json:"network_ids"`
	Tabs       []string `json:"tabs"`
}

type updateUserRequest struct {
	Password   *string  `json:"password" validate:"omitempty,min=8"`
	Role       *string  `json:"role"`
	NetworkIDs []string `json:"network_ids"`
	Tabs       []string `json:"tabs"`
	IsActive   *bool    `json:"is_active"`
}

// targetOrganizationID decides which tenant the request operates on. A
// cross-tenant target is only honoured for master-organization members.
func (h *UserHandler) targetOrganizationID(c *gin.Context) (string, bool) {
	prin, ok := middleware.PrincipalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return "", false
	}

	target := strings.TrimSpace(c.Query("org"))
	if target == "" || target == prin.Organization.ID {
		return prin.Organization.ID, true
	}

	if !prin.IsMasterOrg() {
		response.Error(c, appErrors.ErrForbidden)
		return "", false
	}
	return target, true
}

// GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	orgID, ok := h.targetOrganizationID(c)
	if !ok {
		return
	}

	page := parseIntQuery(c, "page", 1)
	pageSize := parseIntQuery(c, "page_size", 50)

	users, total, err := h.users.List(requestContext(c), services.ListUsersOptions{
		Page:     page,
		PageSize: pageSize,
		Filters: services.UserFilters{
			OrganizationID: orgID,
			Query:          c.Query("q"),
		},
	})
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	response.SuccessWithMeta(c, http.StatusOK, users, &response.Meta{
		Page:       page,
		PerPage:    pageSize,
		Total:      int(total),
		TotalPages: totalPages,
	})
}

// GET /api/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	orgID, ok := h.targetOrganizationID(c)
	if !ok {
		return
	}

	user, err := h.users.GetByID(requestContext(c), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	if user.OrganizationID != orgID {
		response.Error(c, appErrors.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, user)
}

// POST /api/users
func (h *UserHandler) Create(c *gin.Context) {
	orgID, ok := h.targetOrganizationID(c)
	if !ok {
		return
	}

	var req createUserRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Create(requestContext(c), services.CreateUserInput{
		Email:          req.Email,
		Password:       req.Password,
		OrganizationID: orgID,
		Role:           models.Role(strings.ToUpper(strings.TrimSpace(req.Role))),
		NetworkIDs:     req.NetworkIDs,
		Tabs:           req.Tabs,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, user)
}

// PUT /api/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	orgID, ok := h.targetOrganizationID(c)
	if !ok {
		return
	}

	existing, err := h.users.GetByID(requestContext(c), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	if existing.OrganizationID != orgID {
		response.Error(c, appErrors.ErrNotFound)
		return
	}

	var req updateUserRequest
	if !bindAndValidate(c, &req) {
		return
	}

	input := services.UpdateUserInput{
		Password:   req.Password,
		NetworkIDs: req.NetworkIDs,
		Tabs:       req.Tabs,
		IsActive:   req.IsActive,
	}
	if req.Role != nil {
		role := models.Role(strings.ToUpper(strings.TrimSpace(*req.Role)))
		input.Role = &role
	}

	user, err := h.users.Update(requestContext(c), existing.ID, input)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}

// DELETE /api/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	orgID, ok := h.targetOrganizationID(c)
	if !ok {
		return
	}

	existing, err := h.users.GetByID(requestContext(c), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	if existing.OrganizationID != orgID {
		response.Error(c, appErrors.ErrNotFound)
		return
	}

	if err := h.users.Delete(requestContext(c), existing.ID); err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

func (h *UserHandler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		response.Error(c, appErrors.ErrNotFound)
	case errors.Is(err, services.ErrOrganizationNotFound):
		response.Error(c, appErrors.ErrNotFound)
	case errors.Is(err, services.ErrUserExists):
		response.Error(c, appErrors.New("USER_EXISTS", "Email already in use for this organization", http.StatusConflict))
	case errors.Is(err, services.ErrInvalidRole), errors.Is(err, services.ErrInvalidTab):
		response.Error(c, appErrors.NewBadRequest(err.Error()))
	default:
		response.Error(c, appErrors.ErrInternalServer)
	}
}
