package repo

import (
	"context"
	"errors"

	"github.com/Skotchmaster/auth_service/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (r *GormRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, unavailable("find user by email", err)
	}
	return &user, nil
}

func (r *GormRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, unavailable("find user by id", err)
	}
	return &user, nil
}

// Insert creates u unless the email is taken. The unique index covers the race
// between the lookup and the insert.
func (r *GormRepo) Insert(ctx context.Context, u *models.User) error {
	candidate := *u
	tx := r.DB.WithContext(ctx).Where("email = ?", u.Email).FirstOrCreate(&candidate)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrDuplicatedKey) {
			return ErrUserAlreadyExist
		}
		return unavailable("insert user", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrUserAlreadyExist
	}
	*u = candidate
	return nil
}

// updateColumns writes only cols on the user row. Callers own disjoint columns, so
// concurrent writers never restore each other's stale values.
func (r *GormRepo) updateColumns(ctx context.Context, op string, id uuid.UUID, cols map[string]any) error {
	tx := r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(cols)
	if tx.Error != nil {
		return unavailable(op, tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *GormRepo) UpdateFullName(ctx context.Context, id uuid.UUID, fullName string) error {
	return r.updateColumns(ctx, "update full name", id, map[string]any{"full_name": fullName})
}

func (r *GormRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return r.updateColumns(ctx, "update password", id, map[string]any{"password_hash": passwordHash})
}

func (r *GormRepo) UpdateActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.updateColumns(ctx, "update active flag", id, map[string]any{"is_active": active})
}

// UpdateRole replaces the role and its materialized permissions in one statement.
func (r *GormRepo) UpdateRole(ctx context.Context, id uuid.UUID, role string, perms models.PermissionSet) error {
	if perms == nil {
		perms = models.PermissionSet{}
	}
	return r.updateColumns(ctx, "update role", id, map[string]any{"role": role, "permissions": perms})
}

func (r *GormRepo) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&models.User{}).Count(&n).Error; err != nil {
		return 0, unavailable("count users", err)
	}
	return n, nil
}
