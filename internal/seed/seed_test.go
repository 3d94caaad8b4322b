package seed_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Skotchmaster/auth_service/internal/dbtest"
	"github.com/Skotchmaster/auth_service/internal/directory"
	"github.com/Skotchmaster/auth_service/internal/hash"
	"github.com/Skotchmaster/auth_service/internal/models"
	"github.com/Skotchmaster/auth_service/internal/rbac"
	"github.com/Skotchmaster/auth_service/internal/repo"
	"github.com/Skotchmaster/auth_service/internal/seed"
)

func TestCatalog_IsIdempotent(t *testing.T) {
	t.Parallel()

	r := repo.New(dbtest.Open(t))
	ctx := context.Background()
	catalog := rbac.DefaultCatalog()

	require.NoError(t, seed.Catalog(ctx, r, catalog, rbac.BuiltinRoles()))
	require.NoError(t, seed.Catalog(ctx, r, catalog, rbac.BuiltinRoles()))

	perms, err := r.ListPermissions(ctx)
	require.NoError(t, err)
	assert.Len(t, perms, len(catalog.All()))

	roles, err := r.ListRoles(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 3)

	super, err := r.RoleByName(ctx, rbac.RoleSuperAdmin)
	require.NoError(t, err)
	assert.Equal(t, []string{rbac.Wildcard}, super.Permissions)
}

func TestCatalog_RejectsUnknownPermission(t *testing.T) {
	t.Parallel()

	r := repo.New(dbtest.Open(t))
	roles := []rbac.Role{{Name: "broken", Permissions: []string{"nothing:here"}}}

	err := seed.Catalog(context.Background(), r, rbac.DefaultCatalog(), roles)
	require.Error(t, err)
	assert.ErrorIs(t, err, rbac.ErrUnknownPermission)

	perms, err := r.ListPermissions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, perms)
}

func TestAdmin_CreatesOnce(t *testing.T) {
	t.Parallel()

	r := repo.New(dbtest.Open(t))
	ctx := context.Background()
	require.NoError(t, seed.Catalog(ctx, r, rbac.DefaultCatalog(), rbac.BuiltinRoles()))

	users := directory.New(r, rbac.NewGraph(rbac.DefaultCatalog(), r))
	hasher := hash.NewBcrypt(bcrypt.MinCost)

	created, err := seed.Admin(ctx, users, hasher, " Root@Example.com ", "super-secret", "")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = seed.Admin(ctx, users, hasher, "root@example.com", "other-secret", "")
	require.NoError(t, err)
	assert.False(t, created)

	u, err := users.ByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleSuperAdmin, u.Role)
	assert.Equal(t, models.PermissionSet{rbac.Wildcard}, u.Permissions)
	assert.True(t, u.IsVerified)

	ok, err := hasher.Verify("super-secret", u.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAdmin_RequiresCredentials(t *testing.T) {
	t.Parallel()

	r := repo.New(dbtest.Open(t))
	users := directory.New(r, rbac.NewGraph(rbac.DefaultCatalog(), r))

	_, err := seed.Admin(context.Background(), users, hash.NewBcrypt(bcrypt.MinCost), "", "pw", "")
	assert.Error(t, err)
}
