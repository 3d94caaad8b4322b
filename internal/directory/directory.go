package directory

import (
	"context"

	"github.com/google/uuid"

	"github.com/Skotchmaster/auth_service/internal/models"
	"github.com/Skotchmaster/auth_service/internal/rbac"
)

// UserStore is the persistence contract for users. Implementations enforce email uniqueness.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Insert(ctx context.Context, u *models.User) error
	UpdateFullName(ctx context.Context, id uuid.UUID, fullName string) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateActive(ctx context.Context, id uuid.UUID, active bool) error
	UpdateRole(ctx context.Context, id uuid.UUID, role string, perms models.PermissionSet) error
}

type Directory struct {
	users UserStore
	roles *rbac.Graph
}

func New(users UserStore, roles *rbac.Graph) *Directory {
	return &Directory{users: users, roles: roles}
}

func (d *Directory) Roles() *rbac.Graph { return d.roles }

func (d *Directory) ByEmail(ctx context.Context, email string) (*models.User, error) {
	return d.users.FindByEmail(ctx, email)
}

func (d *Directory) ByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return d.users.FindByID(ctx, id)
}

// Create persists u, first materializing role's permissions onto it when role is set.
func (d *Directory) Create(ctx context.Context, u *models.User, role string) error {
	if role != "" {
		if err := d.roles.AssignRole(ctx, u, role); err != nil {
			return err
		}
	}
	return d.users.Insert(ctx, u)
}

// SetFullName, SetPassword and SetActive write a single column and leave the rest of
// the row as the store holds it.
func (d *Directory) SetFullName(ctx context.Context, u *models.User, fullName string) error {
	if err := d.users.UpdateFullName(ctx, u.ID, fullName); err != nil {
		return err
	}
	u.FullName = fullName
	return nil
}

func (d *Directory) SetPassword(ctx context.Context, u *models.User, passwordHash string) error {
	if err := d.users.UpdatePassword(ctx, u.ID, passwordHash); err != nil {
		return err
	}
	u.PasswordHash = passwordHash
	return nil
}

func (d *Directory) SetActive(ctx context.Context, u *models.User, active bool) error {
	if err := d.users.UpdateActive(ctx, u.ID, active); err != nil {
		return err
	}
	u.IsActive = active
	return nil
}

// AssignRole loads the user, overwrites its role and permission set and persists both columns.
func (d *Directory) AssignRole(ctx context.Context, id uuid.UUID, role string) (*models.User, error) {
	u, err := d.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := d.roles.AssignRole(ctx, u, role); err != nil {
		return nil, err
	}
	if err := d.users.UpdateRole(ctx, u.ID, u.Role, u.Permissions); err != nil {
		return nil, err
	}
	return u, nil
}
