package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/auth_service/internal/events"
	"github.com/Skotchmaster/auth_service/internal/logging"
	"github.com/Skotchmaster/auth_service/internal/repo"
	"github.com/Skotchmaster/auth_service/internal/tokens"
)

// RequestPasswordReset mints a reset token and hands it to the event stream.
// It succeeds for unknown and inactive accounts too, so callers learn nothing about who is registered.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	l := logging.FromContext(ctx).With("svc", "auth.password_reset_request")

	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	user, err := s.Users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			l.Info("password reset for unknown email")
			return nil
		}
		l.Error("password reset request failed", "error", err)
		return storeError(err)
	}
	if !user.IsActive {
		l.Info("password reset for inactive account", "user_id", user.ID)
		return nil
	}

	token, exp, err := s.Tokens.IssueReset(user.ID.String(), user.Email)
	if err != nil {
		l.Error("password reset request failed", "error", err)
		return errorf(ErrInternal, "issue reset token: %v", err)
	}

	e := events.New(events.PasswordResetRequested, user.ID.String(), user.Email).
		With("expires_at", exp.UTC().Format(time.RFC3339))
	e.ResetToken = token
	s.publish(ctx, e)

	l.Info("password reset requested", "user_id", user.ID)
	return nil
}

// ResetPassword sets a new password using a reset token. Each token works once.
func (s *AuthService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	l := logging.FromContext(ctx).With("svc", "auth.password_reset")

	if err := s.checkPassword(newPassword); err != nil {
		return err
	}

	claims, err := s.Tokens.Validate(ctx, resetToken, tokens.Reset)
	if err != nil {
		l.Info("password reset failed", "status", 401, "error", err)
		return tokenError(err)
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return tokenError(err)
	}
	user, err := s.Users.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return tokenError(err)
		}
		return storeError(err)
	}
	if user.Email != claims.Email {
		l.Warn("password reset failed", "status", 401, "reason", "email changed since issue", "user_id", id)
		return errorf(ErrInvalidToken, "token subject changed")
	}
	if !user.IsActive {
		return ErrAccountInactive
	}

	digest, err := s.Hasher.Hash(newPassword)
	if err != nil {
		l.Error("password reset failed", "status", 500, "error", err)
		return storeError(err)
	}

	first, err := s.ResetRevoked.Consume(ctx, claims.ID, claims.Remaining(s.Tokens.Now()))
	if err != nil {
		l.Error("password reset failed", "status", 503, "error", err)
		return storeError(err)
	}
	if !first {
		l.Warn("password reset token reuse", "user_id", id)
		return tokenError(tokens.ErrRevoked)
	}

	if err := s.Users.SetPassword(ctx, user, digest); err != nil {
		l.Error("password reset failed", "status", 500, "user_id", id, "error", err)
		return storeError(err)
	}

	l.Info("password reset", "user_id", id)
	s.publish(ctx, events.New(events.PasswordReset, user.ID.String(), user.Email))
	return nil
}
