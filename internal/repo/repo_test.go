package repo_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/auth_service/internal/dbtest"
	"github.com/Skotchmaster/auth_service/internal/models"
	"github.com/Skotchmaster/auth_service/internal/rbac"
	"github.com/Skotchmaster/auth_service/internal/repo"
)

func newTestRepo(t *testing.T) *repo.GormRepo {
	t.Helper()
	return repo.New(dbtest.Open(t))
}

func newUser(email string) *models.User {
	return &models.User{
		Email:        email,
		PasswordHash: "$2a$04$hash",
		FullName:     "Test User",
		IsActive:     true,
		Permissions:  models.PermissionSet{rbac.AuthLogin},
	}
}

func TestGormRepo_InsertAndFind(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()

	u := newUser("a@x.com")
	require.NoError(t, r.Insert(ctx, u))
	require.NotEqual(t, uuid.Nil, u.ID)

	byEmail, err := r.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.Equal(t, models.PermissionSet{rbac.AuthLogin}, byEmail.Permissions)
	assert.True(t, byEmail.IsActive)

	byID, err := r.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", byID.Email)

	n, err := r.CountUsers(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestGormRepo_Insert_DuplicateEmail(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, newUser("a@x.com")))

	dup := newUser("a@x.com")
	dup.FullName = "Other"
	err := r.Insert(ctx, dup)
	assert.ErrorIs(t, err, repo.ErrUserAlreadyExist)

	stored, err := r.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Test User", stored.FullName)
}

func TestGormRepo_Find_NotFound(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()

	_, err := r.FindByEmail(ctx, "missing@x.com")
	assert.ErrorIs(t, err, repo.ErrUserNotFound)

	_, err = r.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repo.ErrUserNotFound)
}

func TestGormRepo_UpdateColumns(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()

	u := newUser("a@x.com")
	require.NoError(t, r.Insert(ctx, u))

	require.NoError(t, r.UpdateFullName(ctx, u.ID, "Renamed"))
	require.NoError(t, r.UpdatePassword(ctx, u.ID, "$2a$04$other"))
	require.NoError(t, r.UpdateActive(ctx, u.ID, false))
	require.NoError(t, r.UpdateRole(ctx, u.ID, rbac.RoleAdmin, models.PermissionSet{rbac.UsersRead, rbac.UsersList}))

	got, err := r.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.FullName)
	assert.Equal(t, "$2a$04$other", got.PasswordHash)
	assert.False(t, got.IsActive)
	assert.Equal(t, rbac.RoleAdmin, got.Role)
	assert.Equal(t, models.PermissionSet{rbac.UsersRead, rbac.UsersList}, got.Permissions)
	assert.Equal(t, "a@x.com", got.Email)

	require.NoError(t, r.UpdateRole(ctx, u.ID, "", nil))
	got, err = r.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Role)
	assert.Empty(t, got.Permissions)
}

func TestGormRepo_UpdateColumns_KeepOtherColumns(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()

	u := newUser("a@x.com")
	require.NoError(t, r.Insert(ctx, u))

	// Both writers read the row before either writes.
	stale, err := r.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.NoError(t, r.UpdateRole(ctx, u.ID, rbac.RoleUser, models.PermissionSet{rbac.AuthLogin}))
	require.NoError(t, r.UpdatePassword(ctx, u.ID, "$2a$04$fresh"))
	require.NoError(t, r.UpdateFullName(ctx, stale.ID, "Renamed"))

	got, err := r.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.FullName)
	assert.Equal(t, rbac.RoleUser, got.Role)
	assert.Equal(t, models.PermissionSet{rbac.AuthLogin}, got.Permissions)
	assert.Equal(t, "$2a$04$fresh", got.PasswordHash)
}

func TestGormRepo_UpdateColumns_MissingUser(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	id := uuid.New()

	tests := []struct {
		name string
		run  func() error
	}{
		{name: "full name", run: func() error { return r.UpdateFullName(ctx, id, "x") }},
		{name: "password", run: func() error { return r.UpdatePassword(ctx, id, "x") }},
		{name: "active", run: func() error { return r.UpdateActive(ctx, id, false) }},
		{name: "role", run: func() error { return r.UpdateRole(ctx, id, rbac.RoleUser, nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), repo.ErrUserNotFound)
		})
	}
}

func TestGormRepo_Roles(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()

	role := &models.Role{
		Name:        rbac.RoleAdmin,
		Description: "Administrator",
		Permissions: models.PermissionSet{rbac.UsersRead},
		IsSystem:    true,
	}
	require.NoError(t, r.UpsertRole(ctx, role))

	role2 := &models.Role{
		Name:        rbac.RoleAdmin,
		Description: "Administrator v2",
		Permissions: models.PermissionSet{rbac.UsersRead, rbac.UsersList},
		IsSystem:    true,
	}
	require.NoError(t, r.UpsertRole(ctx, role2))

	got, err := r.RoleByName(ctx, rbac.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "Administrator v2", got.Description)
	assert.Equal(t, []string{rbac.UsersRead, rbac.UsersList}, got.Permissions)
	assert.True(t, got.IsSystem)

	roles, err := r.ListRoles(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 1)

	_, err = r.RoleByName(ctx, "ghost")
	assert.ErrorIs(t, err, rbac.ErrUnknownRole)
}

func TestGormRepo_Permissions(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()

	for _, p := range rbac.DefaultCatalog().All() {
		require.NoError(t, r.UpsertPermission(ctx, &models.Permission{
			Name: p.Name, Description: p.Description, Resource: p.Resource, Action: p.Action,
		}))
	}
	require.NoError(t, r.UpsertPermission(ctx, &models.Permission{
		Name: rbac.UsersRead, Description: "changed", Resource: "users", Action: "read",
	}))

	got, err := r.PermissionByName(ctx, rbac.UsersRead)
	require.NoError(t, err)
	assert.Equal(t, "changed", got.Description)

	all, err := r.ListPermissions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(rbac.DefaultCatalog().All()))

	_, err = r.PermissionByName(ctx, "orders:read")
	assert.ErrorIs(t, err, repo.ErrPermissionNotFound)
}

func TestGormRepo_ClosedDB_IsUnavailable(t *testing.T) {
	t.Parallel()

	db := dbtest.Open(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = repo.New(db).FindByEmail(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, repo.ErrUnavailable)
}
