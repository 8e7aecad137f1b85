package service

import (
	"context"
	"testing"
	"time"

	"tenurix/internal/apperror"
	"tenurix/internal/auth"
	"tenurix/internal/model"
	"tenurix/internal/repository"
	"tenurix/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserLogin(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	users := repository.NewUserRepository(db)
	roles := NewRoleService(repository.NewTransactionManager(db), repository.NewRoleRepository(db), users)
	require.NoError(t, roles.SeedDefaultRolesAndPermissions(ctx))

	_, _, err := roles.EnsureUser(ctx, SeedUserRequest{Email: "lead@tenurix.test", Password: "correct horse", FullName: "Team Lead", Role: model.RoleTeamLead})
	require.NoError(t, err)

	now := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	tokens := auth.NewTokenManager([]byte("test-secret"), "tenurix", time.Hour).WithClock(func() time.Time { return now })
	svc := NewUserService(users, tokens)

	t.Run("valid credentials", func(t *testing.T) {
		res, err := svc.Login(ctx, LoginUserRequest{Email: " lead@tenurix.test ", Password: "correct horse"})
		require.NoError(t, err)
		assert.Equal(t, model.RoleTeamLead, res.RoleName)
		assert.Equal(t, now.Add(time.Hour), res.ExpiresAt)
		assert.Contains(t, res.Permissions, auth.PermApproveLeaseAppKey)
		assert.NotContains(t, res.Permissions, auth.PermApprovePropertyKey)

		session, err := tokens.Parse(res.Token)
		require.NoError(t, err)
		id, err := session.UserID()
		require.NoError(t, err)
		assert.Equal(t, res.UserID, id)
		assert.True(t, session.HasPermission(auth.PermReviewPropertyKey))
		assert.False(t, session.HasPermission(auth.PermManageUsersKey))
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginUserRequest{Email: "lead@tenurix.test", Password: "wrong"})
		assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginUserRequest{Email: "nobody@tenurix.test", Password: "correct horse"})
		assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginUserRequest{Password: "x"})
		assert.ErrorIs(t, err, &apperror.Error{Kind: apperror.KindValidation, Field: "email"})
		_, err = svc.Login(ctx, LoginUserRequest{Email: "lead@tenurix.test"})
		assert.ErrorIs(t, err, &apperror.Error{Kind: apperror.KindValidation, Field: "password"})
	})

	t.Run("inactive account", func(t *testing.T) {
		require.NoError(t, db.Model(&model.User{}).Where("email = ?", "lead@tenurix.test").Update("is_active", false).Error)
		_, err := svc.Login(ctx, LoginUserRequest{Email: "lead@tenurix.test", Password: "correct horse"})
		assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
	})
}

func TestUserLogin_NoRole(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	hash, err := HashPassword("pw-123456")
	require.NoError(t, err)
	require.NoError(t, db.Create(&model.User{FullName: "Orphan", Email: "orphan@tenurix.test", IsActive: true, PasswordHash: hash}).Error)

	svc := NewUserService(repository.NewUserRepository(db), auth.NewTokenManager([]byte("k"), "", time.Hour))
	_, err = svc.Login(ctx, LoginUserRequest{Email: "orphan@tenurix.test", Password: "pw-123456"})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestUserMe(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	svc := NewUserService(repository.NewUserRepository(db), auth.NewTokenManager([]byte("k"), "", time.Hour))

	u := testutil.CreateUser(t, db, "Dana")
	me, err := svc.Me(ctx, testutil.Session(u.ID, model.RoleStaff, auth.PermReviewPropertyKey))
	require.NoError(t, err)
	assert.Equal(t, u.ID, me.UserID)
	assert.Equal(t, "Dana", me.FullName)
	assert.Equal(t, model.RoleStaff, me.Role)
	assert.Equal(t, []string{auth.PermReviewPropertyKey}, me.Permissions)

	// A token for a deleted account still describes its snapshot.
	gone, err := svc.Me(ctx, testutil.Session(987654, model.RoleStaff))
	require.NoError(t, err)
	assert.Empty(t, gone.FullName)

	_, err = svc.Me(ctx, auth.NewSession(nil, "", "", nil))
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
}
