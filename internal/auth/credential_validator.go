package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/fieldnet/nmsportal/internal/models"
	"github.com/fieldnet/nmsportal/pkg/crypto"
)

// ErrInvalidCredentials is returned for every rejected login: unknown email,
// wrong password, or a deactivated account. Collapsing the cases keeps the
// login endpoint message- and timing-uniform.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// CredentialValidatorConfig defines tunable behaviour for the validator.
type CredentialValidatorConfig struct {
	Clock func() time.Time
}

// AuthenticateInput contains the presented identity and request metadata.
type AuthenticateInput struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

// CredentialValidator verifies email/password pairs against the user store of
// a single organization.
type CredentialValidator struct {
	db    *gorm.DB
	clock func() time.Time
}

// NewCredentialValidator builds a validator with sane defaults.
func NewCredentialValidator(db *gorm.DB, cfg CredentialValidatorConfig) (*CredentialValidator, error) {
	if db == nil {
		return nil, errors.New("credential validator: db is required")
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &CredentialValidator{db: db, clock: clock}, nil
}

// Authenticate verifies the supplied credentials against the organization's
// user store. The lookup is always organization-scoped: an identical email in
// another tenant can never match. Unknown emails burn a dummy bcrypt
// comparison so rejections share one timing profile.
func (v *CredentialValidator) Authenticate(ctx context.Context, org *models.Organization, input AuthenticateInput) (*models.User, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if org == nil || org.ID == "" {
		return nil, errors.New("credential validator: organization is required")
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		crypto.BurnPasswordCheck(input.Password)
		return nil, ErrInvalidCredentials
	}

	var user models.User
	err := v.db.WithContext(ctx).
		Where("organization_id = ? AND LOWER(email) = ?", org.ID, email).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		crypto.BurnPasswordCheck(input.Password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("credential validator: query user: %w", err)
	}

	if !crypto.VerifyPassword(user.Password, input.Password) {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	now := v.clock()
	user.LastLoginAt = &now
	user.LastLoginIP = strings.TrimSpace(input.IPAddress)

	if err := v.db.WithContext(ctx).Model(&user).Updates(map[string]any{
		"last_login_at": now,
		"last_login_ip": user.LastLoginIP,
	}).Error; err != nil {
		return nil, fmt.Errorf("credential validator: update user: %w", err)
	}

	return &user, nil
}
