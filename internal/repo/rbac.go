package repo

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/Skotchmaster/auth_service/internal/models"
	"github.com/Skotchmaster/auth_service/internal/rbac"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoleByName implements rbac.RoleSource.
func (r *GormRepo) RoleByName(ctx context.Context, name string) (*rbac.Role, error) {
	var role models.Role
	if err := r.DB.WithContext(ctx).Where("name = ?", name).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %q", rbac.ErrUnknownRole, name)
		}
		return nil, unavailable("find role", err)
	}
	return &rbac.Role{
		Name:        role.Name,
		Description: role.Description,
		Permissions: slices.Clone([]string(role.Permissions)),
		IsSystem:    role.IsSystem,
	}, nil
}

func (r *GormRepo) ListRoles(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	if err := r.DB.WithContext(ctx).Order("name").Find(&roles).Error; err != nil {
		return nil, unavailable("list roles", err)
	}
	return roles, nil
}

// UpsertRole inserts the role or refreshes description, permissions and the system flag.
func (r *GormRepo) UpsertRole(ctx context.Context, role *models.Role) error {
	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"description", "permissions", "is_system", "updated_at"}),
	}).Create(role).Error
	if err != nil {
		return unavailable("upsert role", err)
	}
	return nil
}

func (r *GormRepo) PermissionByName(ctx context.Context, name string) (*models.Permission, error) {
	var perm models.Permission
	if err := r.DB.WithContext(ctx).Where("name = ?", name).First(&perm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPermissionNotFound
		}
		return nil, unavailable("find permission", err)
	}
	return &perm, nil
}

func (r *GormRepo) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	var perms []models.Permission
	if err := r.DB.WithContext(ctx).Order("resource, name").Find(&perms).Error; err != nil {
		return nil, unavailable("list permissions", err)
	}
	return perms, nil
}

// UpsertPermission keeps the name immutable and only refreshes the description.
func (r *GormRepo) UpsertPermission(ctx context.Context, perm *models.Permission) error {
	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"description"}),
	}).Create(perm).Error
	if err != nil {
		return unavailable("upsert permission", err)
	}
	return nil
}
