package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/auth_service/internal/directory"
	"github.com/Skotchmaster/auth_service/internal/events"
	"github.com/Skotchmaster/auth_service/internal/logging"
	"github.com/Skotchmaster/auth_service/internal/models"
	"github.com/Skotchmaster/auth_service/internal/rbac"
	"github.com/Skotchmaster/auth_service/internal/repo"
	"github.com/Skotchmaster/auth_service/internal/tokens"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) (bool, error)
}

// Revocations is a jti blacklist. Consume must be an atomic check-and-set.
type Revocations interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error)
}

type RBACReader interface {
	ListRoles(ctx context.Context) ([]models.Role, error)
	ListPermissions(ctx context.Context) ([]models.Permission, error)
}

type AuthService struct {
	Users        *directory.Directory
	RBAC         RBACReader
	Hasher       PasswordHasher
	Tokens       *tokens.Service
	Revoked      Revocations
	ResetRevoked Revocations
	Events       events.Publisher

	DefaultRole       string
	MinPasswordLength int

	dummyOnce sync.Once
	dummy     string
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
	Permissions  []string
}

func loginResult(p *tokens.Pair, perms []string) *LoginResult {
	return &LoginResult{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		AccessExp:    p.AccessExpiresAt,
		RefreshExp:   p.RefreshExpiresAt,
		Permissions:  perms,
	}
}

type RegisterInput struct {
	Email    string
	Password string
	FullName string
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Profile, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	email, err := normalizeEmail(in.Email)
	if err != nil {
		l.Info("register_error", "status", 400, "reason", "invalid email")
		return nil, err
	}
	fullName, err := normalizeFullName(in.FullName)
	if err != nil {
		l.Info("register_error", "status", 400, "reason", "invalid full name")
		return nil, err
	}
	if err := s.checkPassword(in.Password); err != nil {
		l.Info("register_error", "status", 400, "reason", "weak password")
		return nil, err
	}

	digest, err := s.Hasher.Hash(in.Password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, storeError(err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: digest,
		FullName:     fullName,
		IsActive:     true,
	}
	err = s.Users.Create(ctx, user, s.DefaultRole)
	if errors.Is(err, rbac.ErrUnknownRole) {
		l.Warn("register_default_role_missing", "role", s.DefaultRole)
		err = s.Users.Create(ctx, user, "")
	}
	if err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			l.Info("register_error", "status", 409, "reason", "email already registered")
			return nil, ErrDuplicateEmail
		}
		l.Error("register_error", "status", 500, "error", err)
		return nil, storeError(err)
	}

	l.Info("registered", "user_id", user.ID)
	s.publish(ctx, events.New(events.UserRegistered, user.ID.String(), user.Email))
	return profileOf(user), nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	email = foldEmail(email)
	if email == "" || password == "" {
		return nil, errorf(ErrValidation, "email and password are required")
	}

	user, err := s.Users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			s.burnHash(password)
			l.Warn("login failed", "status", 401, "reason", "invalid email or password")
			s.publish(ctx, events.New(events.LoginFailed, "", email))
			return nil, ErrInvalidCredentials
		}
		l.Error("login failed", "status", 503, "error", err)
		return nil, storeError(err)
	}

	ok, err := s.Hasher.Verify(password, user.PasswordHash)
	if err != nil {
		l.Error("login failed", "status", 500, "user_id", user.ID, "error", err)
		return nil, storeError(err)
	}
	if !ok {
		l.Warn("login failed", "status", 401, "reason", "invalid email or password")
		s.publish(ctx, events.New(events.LoginFailed, user.ID.String(), user.Email))
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		l.Warn("login failed", "status", 403, "user_id", user.ID, "reason", "account inactive")
		return nil, ErrAccountInactive
	}

	res, err := s.issue(user)
	if err != nil {
		l.Error("login failed", "status", 500, "error", err)
		return nil, err
	}

	l.Info("logged in", "user_id", user.ID)
	s.publish(ctx, events.New(events.UserLoggedIn, user.ID.String(), user.Email))
	return res, nil
}

// Logout revokes the access token and, when given, the refresh token of the same subject.
// Revoking a token twice is not an error. An expired access token has nothing left to revoke.
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout")
	now := s.Tokens.Now()

	claims, err := s.Tokens.Parse(accessToken, tokens.Access)
	switch {
	case err == nil:
		if err := s.Revoked.Revoke(ctx, claims.ID, claims.Remaining(now)); err != nil {
			l.Error("logout failed", "status", 503, "error", err)
			return storeError(err)
		}
	case errors.Is(err, tokens.ErrExpiredToken):
		l.Info("logout with expired access token", "user_id", claims.Subject)
	default:
		l.Info("logout failed", "status", 401, "error", err)
		return tokenError(err)
	}

	if refreshToken != "" {
		rc, err := s.Tokens.Parse(refreshToken, tokens.Refresh)
		switch {
		case err != nil:
			l.Info("logout ignores refresh token", "error", err)
		case rc.Subject != claims.Subject:
			l.Warn("logout ignores refresh token", "reason", "subject mismatch", "user_id", claims.Subject)
		default:
			if err := s.Revoked.Revoke(ctx, rc.ID, rc.Remaining(now)); err != nil {
				l.Error("logout failed", "status", 503, "error", err)
				return storeError(err)
			}
		}
	}

	l.Info("logged out", "user_id", claims.Subject)
	s.publish(ctx, events.New(events.UserLoggedOut, claims.Subject, claims.Email))
	return nil
}

// RefreshToken rotates a refresh token. The presented token is consumed atomically, so
// of two concurrent calls with the same token exactly one gets a new pair.
// The new pair carries the user's current permissions.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := s.Tokens.Validate(ctx, refreshToken, tokens.Refresh)
	if err != nil {
		l.Info("refresh failed", "status", 401, "error", err)
		return nil, tokenError(err)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		l.Info("refresh failed", "status", 401, "reason", "bad subject")
		return nil, tokenError(err)
	}
	user, err := s.Users.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			l.Info("refresh failed", "status", 401, "reason", "user gone", "user_id", id)
			return nil, tokenError(err)
		}
		return nil, storeError(err)
	}
	if !user.IsActive {
		l.Warn("refresh failed", "status", 403, "user_id", id, "reason", "account inactive")
		return nil, ErrAccountInactive
	}

	first, err := s.Revoked.Consume(ctx, claims.ID, claims.Remaining(s.Tokens.Now()))
	if err != nil {
		l.Error("refresh failed", "status", 503, "error", err)
		return nil, storeError(err)
	}
	if !first {
		l.Warn("refresh token reuse", "user_id", id, "jti", claims.ID)
		s.publish(ctx, events.New(events.RefreshReuseDetected, user.ID.String(), user.Email).With("jti", claims.ID))
		return nil, tokenError(tokens.ErrRevoked)
	}

	res, err := s.issue(user)
	if err != nil {
		l.Error("refresh failed", "status", 500, "error", err)
		return nil, err
	}
	s.publish(ctx, events.New(events.TokenRefreshed, user.ID.String(), user.Email))
	return res, nil
}

// Authenticate validates an access token including its revocation state.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*tokens.Claims, error) {
	if accessToken == "" {
		return nil, errorf(ErrInvalidToken, "missing token")
	}
	claims, err := s.Tokens.Validate(ctx, accessToken, tokens.Access)
	if err != nil {
		return nil, tokenError(err)
	}
	return claims, nil
}

func (s *AuthService) issue(u *models.User) (*LoginResult, error) {
	perms := []string(u.Permissions)
	if perms == nil {
		perms = []string{}
	}
	pair, err := s.Tokens.IssuePair(tokens.Identity{
		UserID:      u.ID.String(),
		Email:       u.Email,
		Permissions: perms,
	})
	if err != nil {
		return nil, errorf(ErrInternal, "issue tokens: %v", err)
	}
	return loginResult(pair, perms), nil
}

// burnHash spends the same bcrypt work as a real comparison so unknown emails
// cannot be told apart by response time.
func (s *AuthService) burnHash(password string) {
	s.dummyOnce.Do(func() {
		s.dummy, _ = s.Hasher.Hash("timing-equalizer-password")
	})
	if s.dummy != "" {
		_, _ = s.Hasher.Verify(password, s.dummy)
	}
}

func (s *AuthService) publish(ctx context.Context, e events.Event) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, e); err != nil {
		logging.FromContext(ctx).Warn("event publish failed", "type", e.Type, "error", err)
	}
}
