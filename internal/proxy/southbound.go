package proxy

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fieldnet/nmsportal/internal/authz"
	"github.com/fieldnet/nmsportal/internal/middleware"
	appErrors "github.com/fieldnet/nmsportal/pkg/errors"
	"github.com/fieldnet/nmsportal/pkg/logger"
	"github.com/fieldnet/nmsportal/pkg/metrics"
	"github.com/fieldnet/nmsportal/pkg/response"
)

// Config describes the southbound orchestrator API the portal fronts.
type Config struct {
	// BaseURL is the orchestrator endpoint, e.g. https://orc8r.example.com:9443.
	BaseURL string
	// InsecureSkipVerify disables TLS verification for lab deployments.
	InsecureSkipVerify bool
}

// Southbound forwards network-scoped API calls to the orchestrator after the
// gate has confirmed the principal may touch the named network. The proxied
// path keeps its shape; only authentication is replaced by the portal's.
type Southbound struct {
	target *url.URL
	proxy  *httputil.ReverseProxy
}

// NewSouthbound builds the reverse proxy from configuration.
func NewSouthbound(cfg Config) (*Southbound, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("southbound proxy: base url is required")
	}

	target, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("southbound proxy: parse base url: %w", err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("southbound proxy: base url %q lacks scheme or host", cfg.BaseURL)
	}

	rp := httputil.NewSingleHostReverseProxy(target)

	if cfg.InsecureSkipVerify {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		rp.Transport = transport
	}

	rp.ModifyResponse = func(resp *http.Response) error {
		metrics.ProxyRequests.WithLabelValues(statusClass(resp.StatusCode)).Inc()
		return nil
	}
	rp.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		metrics.ProxyRequests.WithLabelValues("5xx").Inc()
		logger.WithModule("proxy").Error("southbound request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		w.WriteHeader(http.StatusBadGateway)
	}

	return &Southbound{target: target, proxy: rp}, nil
}

// Handler gates and forwards requests mounted under a route carrying a
// :networkID parameter. Read capability suffices for safe methods; mutating
// methods require write.
func (s *Southbound) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		prin, ok := middleware.PrincipalFromContext(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			return
		}

		networkID := c.Param("networkID")
		if networkID == "" {
			response.Error(c, appErrors.NewBadRequest("network id is required"))
			return
		}

		capability := authz.CapabilityRead
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
		default:
			capability = authz.CapabilityWrite
		}

		decision := authz.Decide(prin, authz.Request{
			Capability: capability,
			NetworkID:  networkID,
		})
		metrics.GateDecisions.WithLabelValues(string(capability), decision.String()).Inc()
		if decision != authz.Authorized {
			response.Error(c, appErrors.ErrForbidden)
			return
		}

		// The portal's bearer token must not leak to the orchestrator.
		c.Request.Header.Del("Authorization")
		c.Request.Header.Del("Cookie")
		c.Request.Host = s.target.Host

		s.proxy.ServeHTTP(c.Writer, c.Request)
	}
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
