package service

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/Skotchmaster/auth_service/internal/hash"
)

const (
	defaultMinPasswordLength = 8
	maxFullNameLength        = 200
)

func foldEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// normalizeEmail folds case and rejects anything that is not a bare address.
func normalizeEmail(email string) (string, error) {
	email = foldEmail(email)
	if email == "" {
		return "", errorf(ErrInvalidEmail, "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func normalizeFullName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errorf(ErrValidation, "full name is required")
	}
	if utf8.RuneCountInString(name) > maxFullNameLength {
		return "", errorf(ErrValidation, "full name is longer than %d characters", maxFullNameLength)
	}
	return name, nil
}

func (s *AuthService) checkPassword(password string) error {
	minLen := s.MinPasswordLength
	if minLen <= 0 {
		minLen = defaultMinPasswordLength
	}
	if utf8.RuneCountInString(password) < minLen {
		return errorf(ErrWeakPassword, "must be at least %d characters", minLen)
	}
	if len(password) > hash.MaxPasswordBytes {
		return errorf(ErrWeakPassword, "must be at most %d bytes", hash.MaxPasswordBytes)
	}
	return nil
}
