package service

import (
	"errors"
	"fmt"

	"github.com/Skotchmaster/auth_service/internal/rbac"
	"github.com/Skotchmaster/auth_service/internal/repo"
	"github.com/Skotchmaster/auth_service/internal/revocation"
	"github.com/Skotchmaster/auth_service/internal/tokens"
)

// Error categories. Every error returned by AuthService matches exactly one of them.
var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrTransient       = errors.New("temporarily unavailable")
	ErrInternal        = errors.New("internal error")
)

var (
	ErrWeakPassword       = fmt.Errorf("%w: weak password", ErrValidation)
	ErrInvalidEmail       = fmt.Errorf("%w: invalid email", ErrValidation)
	ErrDuplicateEmail     = fmt.Errorf("%w: email already registered", ErrConflict)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", ErrUnauthenticated)
	ErrInvalidToken       = fmt.Errorf("%w: invalid or expired token", ErrUnauthenticated)
	ErrAccountInactive    = fmt.Errorf("%w: account inactive", ErrForbidden)
	ErrUserNotFound       = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrUnknownRole        = fmt.Errorf("%w: unknown role", ErrNotFound)
)

func errorf(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// tokenError folds every token failure into ErrInvalidToken and keeps the cause for logs.
// Store outages stay Transient so clients may retry.
func tokenError(err error) error {
	if errors.Is(err, revocation.ErrUnavailable) {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return fmt.Errorf("%w: %w", ErrInvalidToken, err)
}

// storeError translates infrastructure errors that have no domain meaning.
func storeError(err error) error {
	switch {
	case errors.Is(err, repo.ErrUnavailable), errors.Is(err, revocation.ErrUnavailable):
		return fmt.Errorf("%w: %w", ErrTransient, err)
	default:
		return fmt.Errorf("%w: %w", ErrInternal, err)
	}
}

func roleError(err error) error {
	switch {
	case errors.Is(err, rbac.ErrUnknownRole):
		return fmt.Errorf("%w: %w", ErrUnknownRole, err)
	case errors.Is(err, repo.ErrUserNotFound):
		return ErrUserNotFound
	default:
		return storeError(err)
	}
}

// IsTokenFailure reports whether err came from token validation rather than the stores.
func IsTokenFailure(err error) bool {
	return errors.Is(err, tokens.ErrExpiredToken) ||
		errors.Is(err, tokens.ErrInvalidSignature) ||
		errors.Is(err, tokens.ErrWrongTokenType) ||
		errors.Is(err, tokens.ErrRevoked) ||
		errors.Is(err, tokens.ErrMalformedToken)
}
