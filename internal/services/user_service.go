package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fieldnet/nmsportal/internal/models"
	"github.com/fieldnet/nmsportal/pkg/crypto"
)

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user service: user not found")
	// ErrUserExists indicates an email collision inside the same organization.
	ErrUserExists = errors.New("user service: email already in use for organization")
	// ErrInvalidRole indicates a role outside the known set.
	ErrInvalidRole = errors.New("user service: unknown role")
)

// CreateUserInput describes the fields accepted when creating a user.
// Emails are unique only within the owning organization.
type CreateUserInput struct {
	Email          string
	Password       string
	OrganizationID string
	Role           models.Role
	NetworkIDs     []string
	Tabs           []string
	IsActive       *bool
}

// UpdateUserInput enumerates mutable user attributes. Nil values leave the
// corresponding column untouched.
type UpdateUserInput struct {
	Password   *string
	Role       *models.Role
	NetworkIDs []string
	Tabs       []string
	IsActive   *bool
}

// UserFilters captures listing filters.
type UserFilters struct {
	OrganizationID string
	Role           models.Role
	IsActive       *bool
	Query          string
}

// ListUsersOptions controls pagination for user listing.
type ListUsersOptions struct {
	Page     int
	PageSize int
	Filters  UserFilters
}

// UserService manages CRUD lifecycle for operator accounts.
type UserService struct {
	db           *gorm.DB
	auditService *AuditService
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB, auditService *AuditService) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{
		db:           db,
		auditService: auditService,
	}, nil
}

// Create provisions a new user with a hashed password inside an organization.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, errors.New("user service: email is required")
	}
	if strings.TrimSpace(input.Password) == "" {
		return nil, errors.New("user service: password is required")
	}
	orgID := strings.TrimSpace(input.OrganizationID)
	if orgID == "" {
		return nil, errors.New("user service: organization id is required")
	}

	role := input.Role
	if role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRole, role)
	}

	tabs := normaliseIDs(input.Tabs)
	for _, tab := range tabs {
		if !models.ValidTab(tab) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidTab, tab)
		}
	}

	var org models.Organization
	err := s.db.WithContext(ctx).First(&org, "id = ?", orgID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: load organization: %w", err)
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{
		Email:          email,
		Password:       hashed,
		OrganizationID: org.ID,
		Role:           role,
		NetworkIDs:     datatypes.JSONSlice[string](normaliseIDs(input.NetworkIDs)),
		Tabs:           datatypes.JSONSlice[string](tabs),
		IsActive:       true,
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:         &user.ID,
		OrganizationID: &org.ID,
		Email:          email,
		Action:         "user.create",
		Resource:       user.ID,
		Result:         "success",
		Metadata: map[string]any{
			"role": string(role),
		},
	})

	return user, nil
}

// GetByID loads a user with their owning organization.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Organization").
		First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get user: %w", err)
	}
	return &user, nil
}

// GetByEmail loads a user scoped to one organization. Matching is
// case-insensitive on the email.
func (s *UserService) GetByEmail(ctx context.Context, organizationID, email string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND LOWER(email) = ?",
			strings.TrimSpace(organizationID),
			strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get user by email: %w", err)
	}
	return &user, nil
}

// List returns paginated users, optionally filtered.
func (s *UserService) List(ctx context.Context, opts ListUsersOptions) ([]models.User, int64, error) {
	ctx = ensureContext(ctx)

	page := opts.Page
	if page <= 0 {
		page = 1
	}
	perPage := opts.PageSize
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}

	query := s.db.WithContext(ctx).Model(&models.User{})

	if v := strings.TrimSpace(opts.Filters.OrganizationID); v != "" {
		query = query.Where("organization_id = ?", v)
	}
	if opts.Filters.Role != "" {
		query = query.Where("role = ?", opts.Filters.Role)
	}
	if opts.Filters.IsActive != nil {
		query = query.Where("is_active = ?", *opts.Filters.IsActive)
	}
	if v := strings.ToLower(strings.TrimSpace(opts.Filters.Query)); v != "" {
		query = query.Where("LOWER(email) LIKE ?", "%"+v+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("user service: count users: %w", err)
	}

	var users []models.User
	err := query.
		Order("created_at ASC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("user service: list users: %w", err)
	}

	return users, total, nil
}

// Update modifies mutable user attributes. The email and owning organization
// are immutable after creation.
func (s *UserService) Update(ctx context.Context, id string, input UpdateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: load user: %w", err)
	}

	updates := map[string]any{}

	if input.Password != nil {
		if strings.TrimSpace(*input.Password) == "" {
			return nil, errors.New("user service: password cannot be empty")
		}
		hashed, err := crypto.HashPassword(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("user service: hash password: %w", err)
		}
		updates["password"] = hashed
	}
	if input.Role != nil {
		if !input.Role.Valid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidRole, *input.Role)
		}
		updates["role"] = *input.Role
	}
	if input.NetworkIDs != nil {
		updates["network_ids"] = datatypes.JSONSlice[string](normaliseIDs(input.NetworkIDs))
	}
	if input.Tabs != nil {
		tabs := normaliseIDs(input.Tabs)
		for _, tab := range tabs {
			if !models.ValidTab(tab) {
				return nil, fmt.Errorf("%w: %s", ErrInvalidTab, tab)
			}
		}
		updates["tabs"] = datatypes.JSONSlice[string](tabs)
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}

	if len(updates) == 0 {
		return &user, nil
	}

	if err := s.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("user service: update user: %w", err)
	}

	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("user service: reload user: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:         &user.ID,
		OrganizationID: &user.OrganizationID,
		Email:          user.Email,
		Action:         "user.update",
		Resource:       user.ID,
		Result:         "success",
	})

	return &user, nil
}

// Delete soft-deletes a user and revokes their sessions.
func (s *UserService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("user service: load user: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).
			Delete(&models.Session{}).Error; err != nil {
			return fmt.Errorf("user service: revoke sessions: %w", err)
		}
		if err := tx.Delete(&user).Error; err != nil {
			return fmt.Errorf("user service: delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:         &user.ID,
		OrganizationID: &user.OrganizationID,
		Email:          user.Email,
		Action:         "user.delete",
		Resource:       user.ID,
		Result:         "success",
	})

	return nil
}
