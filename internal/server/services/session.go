// Package services contains server-side business logic. This file implements
// SessionService, which orchestrates the credential hasher, the access-token
// codec, and the refresh-token store against the user/tenant repositories to
// provide login, token refresh, and account management.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cordoeats/backend/internal/common"
	"github.com/cordoeats/backend/internal/logging"
	"github.com/cordoeats/backend/internal/server/auth"
	"github.com/cordoeats/backend/internal/server/models"
	"github.com/cordoeats/backend/internal/server/repositories/tenants"
	"github.com/cordoeats/backend/internal/server/repositories/users"
	"github.com/cordoeats/backend/internal/server/tokenstore"
)

// DefaultRole is assigned to users provisioned without an explicit role.
const DefaultRole = "admin"

// Identity is the caller identity re-derived from the current user record
// during access-token verification. Downstream authorization checks consume
// it, e.g. matching TenantSlug against the requested resource's tenant.
type Identity struct {
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	Role       string `json:"role"`
	TenantSlug string `json:"tenant_slug"`
	TenantID   string `json:"tenant_id,omitempty"`
}

// SessionService implements the authentication flows. All operations are safe
// for concurrent use; the only shared mutable state lives inside the token
// store.
type SessionService struct {
	users   users.Repository
	tenants tenants.Repository
	store   tokenstore.Store
	hasher  *auth.Hasher
	codec   *auth.TokenCodec
	logger  logging.Logger
}

func NewSessionService(
	usersRepo users.Repository,
	tenantsRepo tenants.Repository,
	store tokenstore.Store,
	hasher *auth.Hasher,
	codec *auth.TokenCodec,
	logger logging.Logger,
) *SessionService {
	return &SessionService{
		users:   usersRepo,
		tenants: tenantsRepo,
		store:   store,
		hasher:  hasher,
		codec:   codec,
		logger:  logger.With("module", "sessions"),
	}
}

// Login verifies the credentials for (username, tenantSlug) and issues an
// access/refresh token pair. A missing user and a wrong password both yield
// common.ErrInvalidCredentials so the two cases cannot be told apart. The
// tenant is checked only after the credential match; a valid credential pair
// against a missing or inactive tenant surfaces common.ErrTenantNotFound.
func (s *SessionService) Login(ctx context.Context, username, password, tenantSlug string) (*models.TokenResponse, error) {
	user, err := s.users.FindByUsernameAndTenant(ctx, username, tenantSlug, true)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: searching user: %v", common.ErrorInternal, err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.logger.Warn(ctx, "login failed", "username", username, "tenant", tenantSlug)
		return nil, common.ErrInvalidCredentials
	}

	tenant, err := s.activeTenant(ctx, tenantSlug)
	if err != nil {
		return nil, err
	}

	resp, err := s.issueTokens(ctx, user, tenant)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID.Hex(), time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("%w: updating last login: %v", common.ErrorInternal, err)
	}

	s.logger.Info(ctx, "login succeeded", "username", username, "tenant", tenantSlug)
	return resp, nil
}

// Refresh exchanges a still-valid refresh token for a new access token. The
// refresh token itself is returned unchanged; there is no rotation. Fails
// with common.ErrInvalidToken when the token is unknown or expired,
// common.ErrUserNotFound when its user is gone or inactive, and
// common.ErrTenantNotFound when its tenant is gone or inactive.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*models.TokenResponse, error) {
	rec, err := s.store.Verify(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("%w: verifying refresh token: %v", common.ErrorInternal, err)
	}

	user, err := s.users.FindByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: searching user: %v", common.ErrorInternal, err)
	}
	if !user.IsActive {
		return nil, common.ErrUserNotFound
	}

	tenant, err := s.activeTenant(ctx, rec.TenantSlug)
	if err != nil {
		return nil, err
	}

	access, err := s.codec.Encode(user.ID.Hex(), user.Username, user.Role, tenant.Slug, user.TenantIDHex())
	if err != nil {
		return nil, fmt.Errorf("%w: encoding access token: %v", common.ErrorInternal, err)
	}

	return &models.TokenResponse{
		AccessToken:  access,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.codec.TTL().Seconds()),
		User:         s.userSummary(user, tenant),
	}, nil
}

// VerifyAccessToken decodes an access token and re-derives the caller
// identity from the current user record, so role and active-status changes
// take effect on the next verified request. Failure kinds, in priority order:
// common.ErrTokenExpired, common.ErrInvalidToken, common.ErrUserNotFound,
// common.ErrInactiveUser.
func (s *SessionService) VerifyAccessToken(ctx context.Context, token string) (*Identity, error) {
	claims, err := s.codec.Decode(token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: searching user: %v", common.ErrorInternal, err)
	}
	if !user.IsActive {
		return nil, common.ErrInactiveUser
	}

	return &Identity{
		UserID:     user.ID.Hex(),
		Username:   user.Username,
		Role:       user.Role,
		TenantSlug: user.TenantSlug,
		TenantID:   user.TenantIDHex(),
	}, nil
}

// Logout revokes a refresh token. Revoking an unknown token is a no-op.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.store.Revoke(ctx, refreshToken); err != nil {
		return fmt.Errorf("%w: revoking refresh token: %v", common.ErrorInternal, err)
	}
	return nil
}

// CreateUser provisions an account under an existing tenant. The password is
// hashed before storage; the raw value is neither persisted nor logged. Fails
// with common.ErrTenantNotFound when the tenant is absent and
// common.ErrUserAlreadyExists when (username, tenantSlug) is taken.
func (s *SessionService) CreateUser(ctx context.Context, username, password, tenantSlug, role, email string) (string, error) {
	if role == "" {
		role = DefaultRole
	}

	tenant, err := s.tenants.FindBySlug(ctx, tenantSlug)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrTenantNotFound
		}
		return "", fmt.Errorf("%w: searching tenant: %v", common.ErrorInternal, err)
	}

	_, err = s.users.FindByUsernameAndTenant(ctx, username, tenantSlug, false)
	if err == nil {
		return "", common.ErrUserAlreadyExists
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return "", fmt.Errorf("%w: searching user: %v", common.ErrorInternal, err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("%w: hashing password: %v", common.ErrorInternal, err)
	}

	id, err := s.users.Insert(ctx, &models.User{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		Email:        email,
		TenantID:     tenant.ID,
		TenantSlug:   tenantSlug,
		IsActive:     true,
	})
	if err != nil {
		return "", fmt.Errorf("%w: creating user: %v", common.ErrorInternal, err)
	}

	s.logger.Info(ctx, "user created", "username", username, "tenant", tenantSlug)
	return id, nil
}

// ChangePassword replaces the user's password after verifying the old one.
// Fails with common.ErrUserNotFound or common.ErrPasswordMismatch.
func (s *SessionService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrUserNotFound
		}
		return fmt.Errorf("%w: searching user: %v", common.ErrorInternal, err)
	}

	if !s.hasher.Verify(oldPassword, user.PasswordHash) {
		return common.ErrPasswordMismatch
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%w: hashing password: %v", common.ErrorInternal, err)
	}

	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("%w: updating password: %v", common.ErrorInternal, err)
	}

	s.logger.Info(ctx, "password changed", "user_id", userID)
	return nil
}

// DeactivateUser clears the user's active flag and reports whether a record
// was actually changed. Deactivating an unknown user is not an error.
func (s *SessionService) DeactivateUser(ctx context.Context, userID string) (bool, error) {
	changed, err := s.users.Deactivate(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%w: deactivating user: %v", common.ErrorInternal, err)
	}
	return changed, nil
}

// CleanupExpiredTokens sweeps the refresh-token store. Safe to run on a
// schedule concurrently with logins and refreshes.
func (s *SessionService) CleanupExpiredTokens(ctx context.Context) (int, error) {
	removed, err := s.store.CleanupExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: cleaning up refresh tokens: %v", common.ErrorInternal, err)
	}
	if removed > 0 {
		s.logger.Info(ctx, "expired refresh tokens removed", "count", removed)
	}
	return removed, nil
}

// --- helpers below ---

func (s *SessionService) activeTenant(ctx context.Context, slug string) (*models.Tenant, error) {
	tenant, err := s.tenants.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrTenantNotFound
		}
		return nil, fmt.Errorf("%w: searching tenant: %v", common.ErrorInternal, err)
	}
	if !tenant.IsActive {
		return nil, common.ErrTenantNotFound
	}
	return tenant, nil
}

func (s *SessionService) issueTokens(ctx context.Context, user *models.User, tenant *models.Tenant) (*models.TokenResponse, error) {
	access, err := s.codec.Encode(user.ID.Hex(), user.Username, user.Role, tenant.Slug, user.TenantIDHex())
	if err != nil {
		return nil, fmt.Errorf("%w: encoding access token: %v", common.ErrorInternal, err)
	}

	refresh, err := s.store.Issue(ctx, user.ID.Hex(), tenant.Slug)
	if err != nil {
		return nil, fmt.Errorf("%w: issuing refresh token: %v", common.ErrorInternal, err)
	}

	return &models.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(s.codec.TTL().Seconds()),
		User:         s.userSummary(user, tenant),
	}, nil
}

func (s *SessionService) userSummary(user *models.User, tenant *models.Tenant) models.UserSummary {
	return models.UserSummary{
		ID:         user.ID.Hex(),
		Username:   user.Username,
		Role:       user.Role,
		TenantSlug: tenant.Slug,
		TenantName: tenant.Name,
	}
}
