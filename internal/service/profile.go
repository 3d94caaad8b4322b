package service

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/auth_service/internal/events"
	"github.com/Skotchmaster/auth_service/internal/logging"
	"github.com/Skotchmaster/auth_service/internal/models"
	"github.com/Skotchmaster/auth_service/internal/repo"
)

// Profile is the public view of a user. It never carries the password hash.
type Profile struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	FullName    string    `json:"full_name"`
	IsActive    bool      `json:"is_active"`
	IsVerified  bool      `json:"is_verified"`
	Role        string    `json:"role,omitempty"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func profileOf(u *models.User) *Profile {
	perms := slices.Clone([]string(u.Permissions))
	if perms == nil {
		perms = []string{}
	}
	return &Profile{
		ID:          u.ID.String(),
		Email:       u.Email,
		FullName:    u.FullName,
		IsActive:    u.IsActive,
		IsVerified:  u.IsVerified,
		Role:        u.Role,
		Permissions: perms,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// ProfilePatch lists the fields a user may change on their own profile. Nil means unchanged.
type ProfilePatch struct {
	FullName *string
}

func (s *AuthService) GetUserProfile(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.userByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return profileOf(user), nil
}

func (s *AuthService) UpdateUserProfile(ctx context.Context, userID string, patch ProfilePatch) (*Profile, error) {
	l := logging.FromContext(ctx).With("svc", "auth.update_profile")

	user, err := s.userByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if patch.FullName == nil {
		return profileOf(user), nil
	}

	name, err := normalizeFullName(*patch.FullName)
	if err != nil {
		return nil, err
	}
	if name == user.FullName {
		return profileOf(user), nil
	}
	if err := s.Users.SetFullName(ctx, user, name); err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		l.Error("update profile failed", "user_id", user.ID, "error", err)
		return nil, storeError(err)
	}

	l.Info("profile updated", "user_id", user.ID)
	s.publish(ctx, events.New(events.ProfileUpdated, user.ID.String(), user.Email).With("field", "full_name"))
	return profileOf(user), nil
}

func (s *AuthService) userByID(ctx context.Context, userID string) (*models.User, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, errorf(ErrValidation, "malformed user id")
	}
	user, err := s.Users.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeError(err)
	}
	return user, nil
}
