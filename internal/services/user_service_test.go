package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/ahmetcoskunkizilkaya/user-admin/internal/dto"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/lang"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/models"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/permissions"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var admin = permissions.Actor{ID: uuid.New(), Roles: []string{"admin"}}

func newTestService(repo *fakeRepo, allow bool) *UserService {
	return NewUserService(repo, staticGate{allow: allow}, lang.Default(), 15, WithHashCost(bcrypt.MinCost))
}

func sortedRoles(u models.User) []string {
	names := u.RoleNames()
	sort.Strings(names)
	return names
}

func TestDeniedOperationsNeverTouchStorage(t *testing.T) {
	repo := newFakeRepo()
	existing := repo.seed("existing", "existing@x.com", "hash")
	svc := newTestService(repo, false)
	ctx := context.Background()
	id := existing.ID.String()
	req := &dto.UserRequest{Username: "validuser", Email: "a@b.com", Password: "secret", PasswordConfirmation: "secret"}

	outcomes := map[string]Outcome{
		"list":            svc.List(ctx, admin, 0, 1),
		"create form":     svc.CreateForm(ctx, admin, nil),
		"store":           svc.Store(ctx, admin, req),
		"show":            svc.Show(ctx, admin, id),
		"edit form":       svc.EditForm(ctx, admin, id, nil),
		"update":          svc.Update(ctx, admin, id, req),
		"change password": svc.ChangePassword(ctx, admin, id, req),
		"destroy":         svc.Destroy(ctx, admin, id),
	}

	for name, out := range outcomes {
		assert.Equal(t, OutcomeUnauthorized, out.Kind, name)
		assert.Equal(t, lang.Default().Get(lang.PermissionDenied), out.Message, name)
	}
	assert.Zero(t, repo.totalCalls())
}

func TestStoreRejectsShortUsername(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, true)

	out := svc.Store(context.Background(), admin, &dto.UserRequest{
		Username: "ab", Email: "a@b.com", Password: "secret", PasswordConfirmation: "secret",
		Roles: []string{"admin"},
	})

	require.Equal(t, OutcomeFailure, out.Kind)
	assert.True(t, out.Errors.Has(FieldUsername))
	assert.Contains(t, out.Reasons(), "The username must be at least 5 characters.")
	assert.Equal(t, OriginCreate, out.Origin)
	assert.Zero(t, repo.callCount("Create"))
	assert.Empty(t, repo.users)

	require.NotNil(t, out.Input)
	assert.Equal(t, "ab", out.Input.Username)
	assert.Equal(t, []string{"admin"}, out.Input.Roles)
	assert.Empty(t, out.Input.Password)
}

func TestStoreCreatesUserWithRoles(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, true)
	ctx := context.Background()

	out := svc.Store(ctx, admin, &dto.UserRequest{
		Username: "validuser", Email: "a@b.com", Password: "secret", PasswordConfirmation: "secret",
		Roles: []string{"admin", "editor"},
	})
	require.Equal(t, OutcomeSuccess, out.Kind)
	assert.Equal(t, lang.Default().Get(lang.StoreSuccess), out.Message)

	created, ok := out.Data.(*models.User)
	require.True(t, ok)

	stored, ok := repo.snapshot(created.ID)
	require.True(t, ok)
	assert.Equal(t, []string{"admin", "editor"}, sortedRoles(stored))
	assert.NotEqual(t, "secret", stored.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("secret")))
}

func TestStoreRejectsTakenValues(t *testing.T) {
	repo := newFakeRepo()
	repo.seed("takenname", "taken@x.com", "hash")
	svc := newTestService(repo, true)

	out := svc.Store(context.Background(), admin, &dto.UserRequest{
		Username: "takenname", Email: "taken@x.com", Password: "secret", PasswordConfirmation: "secret",
	})
	require.Equal(t, OutcomeFailure, out.Kind)
	assert.Equal(t, []string{
		"The username has already been taken.",
		"The email has already been taken.",
	}, out.Reasons())
	assert.Len(t, repo.users, 1)
}

func TestStoreRejectsPasswordMismatch(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, true)

	out := svc.Store(context.Background(), admin, &dto.UserRequest{
		Username: "validuser", Email: "a@b.com", Password: "secret", PasswordConfirmation: "secrets",
	})
	require.Equal(t, OutcomeFailure, out.Kind)
	assert.True(t, out.Errors.Has(FieldPasswordConfirmation))
	assert.False(t, out.Errors.Has(FieldPassword))
}

func TestUpdateUniquenessOnlyOnChangedFields(t *testing.T) {
	repo := newFakeRepo()
	target := repo.seed("samename", "old@x.com", "hash", "admin")
	repo.seed("othername", "new@x.com", "hash")
	svc := newTestService(repo, true)

	out := svc.Update(context.Background(), admin, target.ID.String(), &dto.UserRequest{
		Username: "samename", Email: "new@x.com", Roles: []string{"editor"},
	})

	require.Equal(t, OutcomeFailure, out.Kind)
	assert.Equal(t, []string{"The email has already been taken."}, out.Reasons())
	assert.False(t, out.Errors.Has(FieldUsername))
	assert.Zero(t, repo.callCount("UsernameTaken"))
	assert.Equal(t, OriginEdit, out.Origin)
	assert.Equal(t, target.ID, out.UserID)
}

func TestUpdateWithUnchangedValuesSucceeds(t *testing.T) {
	repo := newFakeRepo()
	target := repo.seed("samename", "same@x.com", "hash", "admin")
	repo.seed("othername", "other@x.com", "hash")
	svc := newTestService(repo, true)

	out := svc.Update(context.Background(), admin, target.ID.String(), &dto.UserRequest{
		Username: "samename", Email: "same@x.com", Roles: []string{"admin"},
	})
	require.Equal(t, OutcomeSuccess, out.Kind)
	assert.Equal(t, lang.Default().Get(lang.UpdateSuccess), out.Message)
}

func TestUpdateReplacesRolesExactly(t *testing.T) {
	repo := newFakeRepo()
	target := repo.seed("someuser", "some@x.com", "hash", "admin", "editor", "viewer")
	svc := newTestService(repo, true)

	out := svc.Update(context.Background(), admin, target.ID.String(), &dto.UserRequest{
		Username: "renamed", Email: "renamed@x.com", Roles: []string{"viewer", " auditor ", "viewer", ""},
	})
	require.Equal(t, OutcomeSuccess, out.Kind)

	stored, ok := repo.snapshot(target.ID)
	require.True(t, ok)
	assert.Equal(t, []string{"auditor", "viewer"}, sortedRoles(stored))
	assert.Equal(t, "renamed", stored.Username)
	assert.Equal(t, "renamed@x.com", stored.Email)
	assert.Equal(t, "hash", stored.Password)
}

func TestFailedUpdateLeavesRecordUntouched(t *testing.T) {
	repo := newFakeRepo()
	target := repo.seed("someuser", "some@x.com", "hash", "admin")
	before, _ := repo.snapshot(target.ID)
	svc := newTestService(repo, true)

	out := svc.Update(context.Background(), admin, target.ID.String(), &dto.UserRequest{
		Username: "abc", Email: "not-an-email", Roles: []string{"viewer"},
	})
	require.Equal(t, OutcomeFailure, out.Kind)
	assert.Len(t, out.Errors, 2)

	after, _ := repo.snapshot(target.ID)
	assert.Equal(t, before, after)
	assert.Zero(t, repo.callCount("UpdateProfile"))
	assert.Zero(t, repo.callCount("DeleteRoles"))
	assert.Zero(t, repo.callCount("AttachRoles"))
}

func TestUpdateMissingUser(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, true)

	out := svc.Update(context.Background(), admin, uuid.NewString(), &dto.UserRequest{Username: "someone", Email: "a@b.com"})
	assert.Equal(t, OutcomeNotFound, out.Kind)
	assert.Equal(t, lang.Default().Get(lang.NotFound), out.Message)
}

func TestChangePasswordMismatch(t *testing.T) {
	repo := newFakeRepo()
	target := repo.seed("someuser", "some@x.com", "hash")
	svc := newTestService(repo, true)

	out := svc.ChangePassword(context.Background(), admin, target.ID.String(), &dto.UserRequest{
		Password: "abc", PasswordConfirmation: "abcd",
	})
	require.Equal(t, OutcomeFailure, out.Kind)
	assert.Equal(t, OriginPassword, out.Origin)
	assert.True(t, out.Errors.Has(FieldPassword))
	assert.True(t, out.Errors.Has(FieldPasswordConfirmation))

	stored, _ := repo.snapshot(target.ID)
	assert.Equal(t, "hash", stored.Password)
	assert.Zero(t, repo.callCount("UpdatePassword"))
}

func TestChangePasswordConfirmationMustMatch(t *testing.T) {
	repo := newFakeRepo()
	target := repo.seed("someuser", "some@x.com", "hash")
	svc := newTestService(repo, true)

	out := svc.ChangePassword(context.Background(), admin, target.ID.String(), &dto.UserRequest{
		Password: "abcdef", PasswordConfirmation: "abcdeg",
	})
	require.Equal(t, OutcomeFailure, out.Kind)
	assert.Equal(t, []string{"The password confirmation and password must match."}, out.Reasons())
}

func TestChangePasswordSuccess(t *testing.T) {
	repo := newFakeRepo()
	target := repo.seed("someuser", "some@x.com", "hash")
	svc := newTestService(repo, true)

	out := svc.ChangePassword(context.Background(), admin, target.ID.String(), &dto.UserRequest{
		Password: "newpassword", PasswordConfirmation: "newpassword",
	})
	require.Equal(t, OutcomeSuccess, out.Kind)
	assert.Equal(t, lang.Default().Get(lang.UpdatePasswordSuccess), out.Message)

	stored, _ := repo.snapshot(target.ID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("newpassword")))
}

func TestDestroyMissingUser(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, true)

	out := svc.Destroy(context.Background(), admin, uuid.NewString())
	assert.Equal(t, OutcomeNotFound, out.Kind)
	assert.Equal(t, lang.Default().Get(lang.DestroyFail), out.Message)
	assert.Zero(t, repo.callCount("Delete"))
	assert.Zero(t, repo.callCount("DeleteRoles"))
}

func TestDestroyMalformedID(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, true)

	out := svc.Destroy(context.Background(), admin, "999")
	assert.Equal(t, OutcomeNotFound, out.Kind)
	assert.Zero(t, repo.callCount("Delete"))
}

func TestDestroyRemovesUserAndRoles(t *testing.T) {
	repo := newFakeRepo()
	target := repo.seed("someuser", "some@x.com", "hash", "admin")
	svc := newTestService(repo, true)

	out := svc.Destroy(context.Background(), admin, target.ID.String())
	require.Equal(t, OutcomeSuccess, out.Kind)
	assert.Equal(t, 1, repo.callCount("DeleteRoles"))
	assert.Equal(t, 1, repo.callCount("Delete"))
	_, ok := repo.snapshot(target.ID)
	assert.False(t, ok)
}

func TestListPaging(t *testing.T) {
	repo := newFakeRepo()
	for _, name := range []string{"user-a", "user-b", "user-c", "user-d", "user-e"} {
		repo.seed(name, name+"@x.com", "hash")
	}
	svc := newTestService(repo, true)
	ctx := context.Background()

	out := svc.List(ctx, admin, 2, 3)
	require.Equal(t, OutcomeSuccess, out.Kind)
	page := out.Data.(*Page)
	assert.Len(t, page.Users, 1)
	assert.EqualValues(t, 5, page.Total)
	assert.Equal(t, 3, page.LastPage)
	assert.True(t, page.HasPrev())
	assert.False(t, page.HasNext())

	out = svc.List(ctx, admin, 0, 0)
	page = out.Data.(*Page)
	assert.Equal(t, 15, page.PerPage)
	assert.Equal(t, 1, page.Page)
	assert.Len(t, page.Users, 5)

	out = svc.List(ctx, admin, 1000, 1)
	assert.Equal(t, maxPageSize, out.Data.(*Page).PerPage)
}

func TestCreateFormRestoresRoles(t *testing.T) {
	svc := newTestService(newFakeRepo(), true)
	ctx := context.Background()

	out := svc.CreateForm(ctx, admin, nil)
	assert.Equal(t, []string{}, out.Data.(*FormState).SelectedRoles)

	out = svc.CreateForm(ctx, admin, &dto.UserRequest{Roles: []string{"editor"}})
	assert.Equal(t, []string{"editor"}, out.Data.(*FormState).SelectedRoles)
}

func TestEditFormSelectsRoles(t *testing.T) {
	repo := newFakeRepo()
	target := repo.seed("someuser", "some@x.com", "hash", "admin")
	svc := newTestService(repo, true)
	ctx := context.Background()

	out := svc.EditForm(ctx, admin, target.ID.String(), nil)
	require.Equal(t, OutcomeSuccess, out.Kind)
	form := out.Data.(*FormState)
	assert.Equal(t, []string{"admin"}, form.SelectedRoles)
	assert.True(t, form.Selected("admin"))

	out = svc.EditForm(ctx, admin, target.ID.String(), &dto.UserRequest{Roles: []string{"viewer"}})
	assert.Equal(t, []string{"viewer"}, out.Data.(*FormState).SelectedRoles)

	out = svc.EditForm(ctx, admin, uuid.NewString(), nil)
	assert.Equal(t, OutcomeNotFound, out.Kind)
}

func TestShow(t *testing.T) {
	repo := newFakeRepo()
	target := repo.seed("someuser", "some@x.com", "hash", "admin")
	svc := newTestService(repo, true)

	out := svc.Show(context.Background(), admin, target.ID.String())
	require.Equal(t, OutcomeSuccess, out.Kind)
	assert.Equal(t, "someuser", out.Data.(*models.User).Username)
}

func TestOverlongRoleIsRejectedBeforeAnyWrite(t *testing.T) {
	longRole := strings.Repeat("r", MaxRoleLength+1)
	ctx := context.Background()

	t.Run("store", func(t *testing.T) {
		repo := newFakeRepo()
		svc := newTestService(repo, true)

		out := svc.Store(ctx, admin, &dto.UserRequest{
			Username: "newuser", Email: "new@x.com", Password: "secret", PasswordConfirmation: "secret",
			Roles: []string{"admin", longRole},
		})

		require.Equal(t, OutcomeFailure, out.Kind)
		assert.True(t, out.Errors.Has(FieldRoles))
		assert.Contains(t, out.Reasons(), "Each of the roles may not be greater than 50 characters.")
		assert.Zero(t, repo.callCount("Create"))
		assert.Empty(t, repo.users)
	})

	t.Run("update", func(t *testing.T) {
		repo := newFakeRepo()
		target := repo.seed("someuser", "some@x.com", "hash", "admin")
		before, _ := repo.snapshot(target.ID)
		svc := newTestService(repo, true)

		out := svc.Update(ctx, admin, target.ID.String(), &dto.UserRequest{
			Username: "renamed", Email: "some@x.com", Roles: []string{longRole},
		})

		require.Equal(t, OutcomeFailure, out.Kind)
		assert.True(t, out.Errors.Has(FieldRoles))
		after, _ := repo.snapshot(target.ID)
		assert.Equal(t, before, after)
		assert.Zero(t, repo.callCount("UpdateProfile"))
		assert.Zero(t, repo.callCount("DeleteRoles"))
	})

	t.Run("exact limit is accepted", func(t *testing.T) {
		repo := newFakeRepo()
		svc := newTestService(repo, true)

		out := svc.Store(ctx, admin, &dto.UserRequest{
			Username: "newuser", Email: "new@x.com", Password: "secret", PasswordConfirmation: "secret",
			Roles: []string{strings.Repeat("r", MaxRoleLength)},
		})
		assert.Equal(t, OutcomeSuccess, out.Kind)
	})
}

func TestStoreRemovesUserWhenRolesCannotBeAttached(t *testing.T) {
	repo := newFakeRepo()
	repo.attachErr = errors.New("value too long for type character varying(50)")
	svc := newTestService(repo, true)

	out := svc.Store(context.Background(), admin, &dto.UserRequest{
		Username: "newuser", Email: "new@x.com", Password: "secret", PasswordConfirmation: "secret",
		Roles: []string{"admin"},
	})

	require.Equal(t, OutcomeFailure, out.Kind)
	assert.Equal(t, []string{lang.Default().Get(lang.PersistenceFailure)}, out.Reasons())
	assert.Equal(t, 1, repo.callCount("Create"))
	assert.Equal(t, 1, repo.callCount("Delete"))
	assert.Empty(t, repo.users)
}
