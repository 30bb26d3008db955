package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fieldnet/nmsportal/internal/features"
	"github.com/fieldnet/nmsportal/internal/middleware"
	"github.com/fieldnet/nmsportal/internal/services"
	appErrors "github.com/fieldnet/nmsportal/pkg/errors"
	"github.com/fieldnet/nmsportal/pkg/response"
)

// AuditHandler lists audit log entries for the principal's organization. The
// view sits behind the audit_log_view feature flag, so tenants without the
// flag see a 403 even with an admin role.
type AuditHandler struct {
	audit *services.AuditService
}

func NewAuditHandler(audit *services.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// GET /api/audit
func (h *AuditHandler) List(c *gin.Context) {
	prin, ok := middleware.PrincipalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if !prin.HasFeature(features.AuditLogView) {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	orgID := prin.Organization.ID
	if target := strings.TrimSpace(c.Query("org")); target != "" && target != orgID {
		if !prin.IsMasterOrg() {
			response.Error(c, appErrors.ErrForbidden)
			return
		}
		orgID = target
	}

	page := parseIntQuery(c, "page", 1)
	pageSize := parseIntQuery(c, "page_size", 50)

	logs, total, err := h.audit.List(requestContext(c), services.AuditListOptions{
		Page:     page,
		PageSize: pageSize,
		Filters: services.AuditFilters{
			OrganizationID: orgID,
			Action:         c.Query("action"),
			Result:         c.Query("result"),
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
	response.SuccessWithMeta(c, http.StatusOK, logs, &response.Meta{
		Page:       page,
		PerPage:    pageSize,
		Total:      int(total),
		TotalPages: totalPages,
	})
}
