package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/auth_service/internal/events"
	"github.com/Skotchmaster/auth_service/internal/logging"
	"github.com/Skotchmaster/auth_service/internal/models"
)

// AssignRole replaces the user's role. Permissions of the previous role are dropped,
// and tokens already issued keep their permissions until they expire.
func (s *AuthService) AssignRole(ctx context.Context, userID, role string) (*Profile, error) {
	l := logging.FromContext(ctx).With("svc", "auth.assign_role")

	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, errorf(ErrValidation, "malformed user id")
	}
	role = strings.TrimSpace(role)
	if role == "" {
		return nil, errorf(ErrValidation, "role is required")
	}

	user, err := s.Users.AssignRole(ctx, id, role)
	if err != nil {
		l.Info("assign role failed", "user_id", id, "role", role, "error", err)
		return nil, roleError(err)
	}

	l.Info("role assigned", "user_id", id, "role", role)
	s.publish(ctx, events.New(events.RoleAssigned, user.ID.String(), user.Email).With("role", role))
	return profileOf(user), nil
}

func (s *AuthService) ListRoles(ctx context.Context) ([]models.Role, error) {
	roles, err := s.RBAC.ListRoles(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	return roles, nil
}

func (s *AuthService) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	perms, err := s.RBAC.ListPermissions(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	return perms, nil
}
