// Package seed writes the permission catalog, the system roles and an optional
// bootstrap administrator. Every step is idempotent.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/auth_service/internal/directory"
	"github.com/Skotchmaster/auth_service/internal/logging"
	"github.com/Skotchmaster/auth_service/internal/models"
	"github.com/Skotchmaster/auth_service/internal/rbac"
	"github.com/Skotchmaster/auth_service/internal/repo"
)

type Store interface {
	UpsertPermission(ctx context.Context, perm *models.Permission) error
	UpsertRole(ctx context.Context, role *models.Role) error
}

type Hasher interface {
	Hash(password string) (string, error)
}

// Catalog upserts every permission of catalog and then every role. Roles naming a
// permission outside the catalog are rejected before anything is written.
func Catalog(ctx context.Context, store Store, catalog *rbac.Catalog, roles []rbac.Role) error {
	l := logging.FromContext(ctx).With("svc", "seed.catalog")

	for _, r := range roles {
		if err := catalog.Validate(r.Permissions); err != nil {
			return fmt.Errorf("seed role %q: %w", r.Name, err)
		}
	}

	for _, p := range catalog.All() {
		perm := &models.Permission{
			Name:        p.Name,
			Description: p.Description,
			Resource:    p.Resource,
			Action:      p.Action,
		}
		if err := store.UpsertPermission(ctx, perm); err != nil {
			return fmt.Errorf("seed permission %q: %w", p.Name, err)
		}
	}
	for _, r := range roles {
		role := &models.Role{
			Name:        r.Name,
			Description: r.Description,
			Permissions: models.PermissionSet(r.Permissions),
			IsSystem:    r.IsSystem,
		}
		if err := store.UpsertRole(ctx, role); err != nil {
			return fmt.Errorf("seed role %q: %w", r.Name, err)
		}
	}

	l.Info("catalog seeded", "permissions", len(catalog.All()), "roles", len(roles))
	return nil
}

// Admin creates a super administrator unless the email is already registered.
// It reports whether a user was created.
func Admin(ctx context.Context, users *directory.Directory, hasher Hasher, email, password, fullName string) (bool, error) {
	l := logging.FromContext(ctx).With("svc", "seed.admin")

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return false, errors.New("seed admin: email and password are required")
	}
	if fullName == "" {
		fullName = "Administrator"
	}

	digest, err := hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("seed admin: hash password: %w", err)
	}
	u := &models.User{
		Email:        email,
		PasswordHash: digest,
		FullName:     fullName,
		IsActive:     true,
		IsVerified:   true,
	}
	if err := users.Create(ctx, u, rbac.RoleSuperAdmin); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			l.Info("admin already present", "email", email)
			return false, nil
		}
		return false, fmt.Errorf("seed admin: %w", err)
	}

	l.Info("admin created", "user_id", u.ID, "email", email)
	return true, nil
}
