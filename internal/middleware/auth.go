package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	iauth "github.com/fieldnet/nmsportal/internal/auth"
	"github.com/fieldnet/nmsportal/internal/models"
	"github.com/fieldnet/nmsportal/internal/principal"
	"github.com/fieldnet/nmsportal/pkg/errors"
	"github.com/fieldnet/nmsportal/pkg/response"
)

const (
	CtxClaimsKey    = "authClaims"
	CtxUserIDKey    = "userID"
	CtxSessionIDKey = "sessionID"
	// CtxPrincipalKey holds the *principal.Principal for the request.
	CtxPrincipalKey = "principal"
)

// Auth enforces JWT authentication and assembles the request principal. The
// token's organization claim must match the organization resolved from the
// host; a token minted for one tenant never authenticates against another.
func Auth(jwt *iauth.JWTService, db *gorm.DB, builder *principal.Builder) gin.HandlerFunc {
	return func(c *gin.Context) {
		org, ok := OrganizationFromContext(c)
		if !ok {
			response.Error(c, errors.ErrOrganizationNotFound)
			c.Abort()
			return
		}

		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		token := strings.TrimSpace(authz[7:])
		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		if claims.OrganizationID != org.ID {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		var user models.User
		err = db.WithContext(c.Request.Context()).
			Where("id = ? AND organization_id = ?", claims.UserID, org.ID).
			Take(&user).Error
		if err != nil || !user.IsActive {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		csrfToken, _ := c.Cookie(CSRFCookieName)
		prin, err := builder.Build(c.Request.Context(), principal.BuildInput{
			User:         user,
			Organization: *org,
			Host:         c.Request.Host,
			CSRFToken:    csrfToken,
		})
		if err != nil {
			response.Error(c, errors.ErrInternalServer)
			c.Abort()
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.UserID)
		if claims.SessionID != "" {
			c.Set(CtxSessionIDKey, claims.SessionID)
		}
		c.Set(CtxPrincipalKey, prin)

		c.Next()
	}
}

// PrincipalFromContext returns the principal placed by the Auth middleware.
func PrincipalFromContext(c *gin.Context) (*principal.Principal, bool) {
	value, ok := c.Get(CtxPrincipalKey)
	if !ok {
		return nil, false
	}
	prin, ok := value.(*principal.Principal)
	return prin, ok && prin != nil
}
