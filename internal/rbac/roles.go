package rbac

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

var ErrUnknownRole = errors.New("unknown role")

type Role struct {
	Name        string
	Description string
	Permissions []string
	IsSystem    bool
}

// RoleSource looks roles up by name and returns ErrUnknownRole when absent.
type RoleSource interface {
	RoleByName(ctx context.Context, name string) (*Role, error)
}

// Assignable is anything that carries a role and its materialized permissions.
type Assignable interface {
	SetRole(name string, permissions []string)
}

type Graph struct {
	catalog *Catalog
	roles   RoleSource
}

func NewGraph(catalog *Catalog, roles RoleSource) *Graph {
	return &Graph{catalog: catalog, roles: roles}
}

func (g *Graph) Catalog() *Catalog { return g.catalog }

// PermissionsOf resolves a role to its ordered, de-duplicated permission names.
func (g *Graph) PermissionsOf(ctx context.Context, roleName string) ([]string, error) {
	role, err := g.roles.RoleByName(ctx, roleName)
	if err != nil {
		return nil, err
	}
	perms := dedupe(role.Permissions)
	if err := g.catalog.Validate(perms); err != nil {
		return nil, fmt.Errorf("role %q: %w", roleName, err)
	}
	return perms, nil
}

// AssignRole replaces the target's role and permission set. Prior permissions are discarded.
func (g *Graph) AssignRole(ctx context.Context, target Assignable, roleName string) error {
	perms, err := g.PermissionsOf(ctx, roleName)
	if err != nil {
		return err
	}
	target.SetRole(roleName, perms)
	return nil
}

// BuiltinRoles returns the system roles in seeding order.
func BuiltinRoles() []Role {
	user := []string{
		AuthLogin,
		AuthLogout,
		AuthRefresh,
		AuthProfileRead,
		AuthProfileUpdate,
		UsersRead,
	}
	admin := append(slices.Clone(user),
		UsersCreate,
		UsersUpdate,
		UsersDelete,
		UsersList,
		RolesRead,
		RolesList,
		PermissionsRead,
		PermissionsList,
	)
	return []Role{
		{Name: RoleUser, Description: "Regular user", Permissions: user, IsSystem: true},
		{Name: RoleAdmin, Description: "Administrator", Permissions: admin, IsSystem: true},
		{Name: RoleSuperAdmin, Description: "Super administrator with full access", Permissions: []string{Wildcard}, IsSystem: true},
	}
}

// StaticRoles is an in-memory RoleSource.
type StaticRoles map[string]Role

func NewStaticRoles(roles ...Role) StaticRoles {
	s := make(StaticRoles, len(roles))
	for _, r := range roles {
		s[r.Name] = r
	}
	return s
}

func (s StaticRoles) RoleByName(_ context.Context, name string) (*Role, error) {
	r, ok := s[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, name)
	}
	r.Permissions = slices.Clone(r.Permissions)
	return &r, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
