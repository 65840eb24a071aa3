package services

import (
	"context"
	"testing"

	"minerfix-backend/apperror"
	"minerfix-backend/audit"
	"minerfix-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userFixture struct {
	svc   *UserService
	users *fakeUsers
	roles *fakeRoles
	aud   *fakeAuditor
}

const userRoleID = uint(4)

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()
	perms := newFakePermissions(
		models.Permission{ID: 1, Name: "customers.view", IsActive: true},
		models.Permission{ID: 2, Name: "invoices.view", IsActive: true},
		models.Permission{ID: 3, Name: "legacy.view", IsActive: false},
	)
	roles := newFakeRoles(perms,
		models.Role{ID: adminRoleID, Name: models.RoleAdmin, IsSystem: true, IsActive: true},
		models.Role{ID: userRoleID, Name: models.RoleUser, IsSystem: true, IsActive: true},
		models.Role{ID: 9, Name: "RETIRED", IsActive: false},
	)
	roles.grant(userRoleID, 1, 2, 3)

	alice := models.User{Id: "alice", Name: "Alice", Email: "alice@minerfix.test", RoleID: adminRoleID, IsActive: true}
	require.NoError(t, alice.SetPassword("correct horse"))
	bob := models.User{Id: "bob", Name: "Bob", Email: "bob@minerfix.test", RoleID: userRoleID, IsActive: false}
	require.NoError(t, bob.SetPassword("correct horse"))

	f := &userFixture{users: newFakeUsers(roles, alice, bob), roles: roles, aud: &fakeAuditor{}}
	f.svc = NewUserService(f.users, roles, f.aud)
	f.svc.now = fixedNow
	return f
}

func TestRegisterAssignsDefaultRole(t *testing.T) {
	f := newUserFixture(t)

	u, err := f.svc.Register(context.Background(), RegisterInput{
		Name: " Carol ", Email: " Carol@MinerFix.test ", Password: "s3cret-pass", PasswordConfirm: "s3cret-pass",
	})
	require.NoError(t, err)
	assert.Equal(t, "Carol", u.Name)
	assert.Equal(t, "carol@minerfix.test", u.Email)
	assert.Equal(t, userRoleID, u.RoleID)
	assert.True(t, u.IsActive)
	assert.NoError(t, u.ComparePassword("s3cret-pass"))
	assert.Equal(t, models.RoleUser, u.Role.Name)

	_, err = f.svc.Register(context.Background(), RegisterInput{
		Name: "Carol", Email: "carol@minerfix.test", Password: "s3cret-pass", PasswordConfirm: "s3cret-pass",
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	_, err = f.svc.Register(context.Background(), RegisterInput{
		Name: "Dan", Email: "dan@minerfix.test", Password: "s3cret-pass", PasswordConfirm: "other",
	})
	assert.ErrorIs(t, err, ErrPasswordMismatch)
}

func TestLogin(t *testing.T) {
	f := newUserFixture(t)

	s, err := f.svc.Login(context.Background(), LoginInput{Email: "ALICE@minerfix.test", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, "alice", s.User.Id)
	assert.NotNil(t, s.Permissions)
	require.NotNil(t, f.users.items["alice"].LastLoginAt)
	assert.True(t, f.users.items["alice"].LastLoginAt.Equal(testNow))

	ev := f.aud.last()
	assert.Equal(t, audit.ActionLogin, ev.Action)
	assert.Equal(t, "alice", ev.Actor.UserID)
	assert.Equal(t, audit.CategoryAuthentication, ev.Category)
}

func TestLoginFailures(t *testing.T) {
	f := newUserFixture(t)

	_, err := f.svc.Login(context.Background(), LoginInput{Email: "alice@minerfix.test", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, apperror.KindUnauthenticated, apperror.KindOf(err))

	_, err = f.svc.Login(context.Background(), LoginInput{Email: "nobody@minerfix.test", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(context.Background(), LoginInput{Email: "bob@minerfix.test", Password: "correct horse"})
	assert.ErrorIs(t, err, ErrUserInactive)

	assert.Equal(t, 3, f.aud.count(audit.ActionLoginFailed, audit.StatusFailed))
	assert.Nil(t, f.users.items["bob"].LastLoginAt)
}

func TestMeFiltersInactivePermissions(t *testing.T) {
	f := newUserFixture(t)
	f.users.items["bob"].IsActive = true

	s, err := f.svc.Me(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"customers.view", "invoices.view"}, s.Permissions)

	f.users.items["bob"].IsActive = false
	_, err = f.svc.Me(context.Background(), "bob")
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestChangeRoleAndStatus(t *testing.T) {
	f := newUserFixture(t)
	ctx := withActor("alice")

	_, err := f.svc.ChangeRole(ctx, "alice", userRoleID)
	assert.ErrorIs(t, err, ErrSelfModification)
	_, err = f.svc.SetActive(ctx, "alice", false)
	assert.ErrorIs(t, err, ErrSelfModification)

	_, err = f.svc.ChangeRole(ctx, "bob", 9)
	assert.ErrorIs(t, err, ErrRoleInactive)

	u, err := f.svc.ChangeRole(ctx, "bob", adminRoleID)
	require.NoError(t, err)
	assert.Equal(t, adminRoleID, u.RoleID)

	u, err = f.svc.SetActive(ctx, "bob", true)
	require.NoError(t, err)
	assert.True(t, u.IsActive)
	assert.Equal(t, 2, f.aud.count(audit.ActionUpdate, audit.StatusSuccess))
}
