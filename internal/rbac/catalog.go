package rbac

import (
	"errors"
	"fmt"
	"strings"
)

// Wildcard satisfies every authorization check. It is matched explicitly, never by pattern.
const Wildcard = "admin:all"

const (
	UsersCreate = "users:create"
	UsersRead   = "users:read"
	UsersUpdate = "users:update"
	UsersDelete = "users:delete"
	UsersList   = "users:list"

	RolesCreate = "roles:create"
	RolesRead   = "roles:read"
	RolesUpdate = "roles:update"
	RolesDelete = "roles:delete"
	RolesList   = "roles:list"

	PermissionsCreate = "permissions:create"
	PermissionsRead   = "permissions:read"
	PermissionsUpdate = "permissions:update"
	PermissionsDelete = "permissions:delete"
	PermissionsList   = "permissions:list"

	AuthRegister      = "auth:register"
	AuthLogin         = "auth:login"
	AuthLogout        = "auth:logout"
	AuthRefresh       = "auth:refresh"
	AuthProfileRead   = "auth:profile:read"
	AuthProfileUpdate = "auth:profile:update"
)

var (
	ErrUnknownPermission = errors.New("unknown permission")
	ErrInvalidPermission = errors.New("invalid permission name")
)

type Permission struct {
	Name        string
	Description string
	Resource    string
	Action      string
}

// SplitName splits "resource:action". The action keeps any further colons,
// so "auth:profile:read" is resource "auth", action "profile:read".
func SplitName(name string) (resource, action string, err error) {
	resource, action, ok := strings.Cut(name, ":")
	if !ok || resource == "" || action == "" || strings.ContainsAny(name, " \t\n") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPermission, name)
	}
	return resource, action, nil
}

func NewPermission(name, description string) (Permission, error) {
	resource, action, err := SplitName(name)
	if err != nil {
		return Permission{}, err
	}
	return Permission{Name: name, Description: description, Resource: resource, Action: action}, nil
}

// Catalog is an immutable set of known permissions.
type Catalog struct {
	byName map[string]Permission
	order  []string
}

func NewCatalog(perms ...Permission) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]Permission, len(perms))}
	for _, p := range perms {
		if _, _, err := SplitName(p.Name); err != nil {
			return nil, err
		}
		if _, dup := c.byName[p.Name]; dup {
			return nil, fmt.Errorf("duplicate permission %q", p.Name)
		}
		c.byName[p.Name] = p
		c.order = append(c.order, p.Name)
	}
	return c, nil
}

func (c *Catalog) Has(name string) bool {
	_, ok := c.byName[name]
	return ok
}

func (c *Catalog) Get(name string) (Permission, bool) {
	p, ok := c.byName[name]
	return p, ok
}

// All returns the permissions in declaration order.
func (c *Catalog) All() []Permission {
	out := make([]Permission, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.byName[name])
	}
	return out
}

func (c *Catalog) Validate(names []string) error {
	var unknown []string
	for _, n := range names {
		if !c.Has(n) {
			unknown = append(unknown, n)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("%w: %s", ErrUnknownPermission, strings.Join(unknown, ", "))
	}
	return nil
}

var builtinPermissions = []struct {
	name, description string
}{
	{UsersCreate, "Create users"},
	{UsersRead, "Read user details"},
	{UsersUpdate, "Update users"},
	{UsersDelete, "Delete users"},
	{UsersList, "List users"},
	{RolesCreate, "Create roles"},
	{RolesRead, "Read role details"},
	{RolesUpdate, "Update roles and assign them to users"},
	{RolesDelete, "Delete roles"},
	{RolesList, "List roles"},
	{PermissionsCreate, "Create permissions"},
	{PermissionsRead, "Read permission details"},
	{PermissionsUpdate, "Update permissions"},
	{PermissionsDelete, "Delete permissions"},
	{PermissionsList, "List permissions"},
	{AuthRegister, "Register new accounts"},
	{AuthLogin, "Log in"},
	{AuthLogout, "Log out"},
	{AuthRefresh, "Refresh tokens"},
	{AuthProfileRead, "Read own profile"},
	{AuthProfileUpdate, "Update own profile"},
	{Wildcard, "Full administrative access"},
}

// DefaultCatalog returns the built-in permission set.
func DefaultCatalog() *Catalog {
	perms := make([]Permission, 0, len(builtinPermissions))
	for _, b := range builtinPermissions {
		p, err := NewPermission(b.name, b.description)
		if err != nil {
			panic(err)
		}
		perms = append(perms, p)
	}
	c, err := NewCatalog(perms...)
	if err != nil {
		panic(err)
	}
	return c
}
