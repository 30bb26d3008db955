package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldnet/nmsportal/internal/authz"
	"github.com/fieldnet/nmsportal/internal/middleware"
	appErrors "github.com/fieldnet/nmsportal/pkg/errors"
	"github.com/fieldnet/nmsportal/pkg/metrics"
	"github.com/fieldnet/nmsportal/pkg/response"
)

// NetworkHandler answers questions about the networks a principal may reach.
// The effective set was already computed when the principal was built.
type NetworkHandler struct{}

func NewNetworkHandler() *NetworkHandler {
	return &NetworkHandler{}
}

// GET /api/networks
func (h *NetworkHandler) List(c *gin.Context) {
	prin, ok := middleware.PrincipalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"network_ids": prin.NetworkIDs,
	})
}

// GET /api/networks/:networkID
//
// A network outside the effective set renders 403, with the master
// organization exempt from network containment.
func (h *NetworkHandler) Get(c *gin.Context) {
	prin, ok := middleware.PrincipalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	networkID := c.Param("networkID")
	decision := authz.Decide(prin, authz.Request{
		Capability: authz.CapabilityRead,
		NetworkID:  networkID,
	})
	metrics.GateDecisions.WithLabelValues(string(authz.CapabilityRead), decision.String()).Inc()
	if decision != authz.Authorized {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"network_id": networkID,
		"accessible": true,
	})
}
