package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/user-admin/internal/models"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/permissions"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/repository"
	"github.com/google/uuid"
)

// fakeRepo is an in-memory UserRepository that records every call.
type fakeRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]models.User
	calls map[string]int

	// attachErr, when set, is returned by AttachRoles without writing.
	attachErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users: make(map[uuid.UUID]models.User),
		calls: make(map[string]int),
	}
}

func (f *fakeRepo) record(name string) {
	f.calls[name]++
}

func (f *fakeRepo) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeRepo) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

// seed inserts a user directly, bypassing call accounting.
func (f *fakeRepo) seed(username, email, passwordHash string, roles ...string) models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := models.User{
		ID:        uuid.New(),
		Username:  username,
		Email:     email,
		Password:  passwordHash,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	for _, r := range roles {
		u.Roles = append(u.Roles, models.UserRole{ID: uuid.New(), UserID: u.ID, Role: r})
	}
	f.users[u.ID] = u
	return u
}

// snapshot returns a deep copy of the stored user.
func (f *fakeRepo) snapshot(id uuid.UUID) (models.User, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return models.User{}, false
	}
	u.Roles = append([]models.UserRole(nil), u.Roles...)
	return u, true
}

func (f *fakeRepo) List(ctx context.Context, limit, offset int) ([]models.User, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("List")

	all := make([]models.User, 0, len(f.users))
	for _, u := range f.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Username < all[j].Username })

	total := int64(len(all))
	if offset >= len(all) {
		return []models.User{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (f *fakeRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("FindByID")

	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u.Roles = append([]models.UserRole(nil), u.Roles...)
	return &u, nil
}

func (f *fakeRepo) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("FindByLogin")

	for _, u := range f.users {
		if u.Username == login || u.Email == login {
			u.Roles = append([]models.UserRole(nil), u.Roles...)
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeRepo) UsernameTaken(ctx context.Context, username string, exclude uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UsernameTaken")
	for id, u := range f.users {
		if id != exclude && u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) EmailTaken(ctx context.Context, email string, exclude uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("EmailTaken")
	for id, u := range f.users {
		if id != exclude && u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) Create(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Create")
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	stored := *user
	stored.Roles = nil
	f.users[user.ID] = stored
	return nil
}

func (f *fakeRepo) UpdateProfile(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpdateProfile")
	u, ok := f.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	u.Username = user.Username
	u.Email = user.Email
	f.users[user.ID] = u
	return nil
}

func (f *fakeRepo) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpdatePassword")
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Password = hash
	f.users[id] = u
	return nil
}

func (f *fakeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Delete")
	if _, ok := f.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeRepo) AttachRoles(ctx context.Context, userID uuid.UUID, roles []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("AttachRoles")
	if f.attachErr != nil {
		return f.attachErr
	}
	u := f.users[userID]
	for _, r := range roles {
		u.Roles = append(u.Roles, models.UserRole{ID: uuid.New(), UserID: userID, Role: r})
	}
	f.users[userID] = u
	return nil
}

func (f *fakeRepo) DeleteRoles(ctx context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeleteRoles")
	u := f.users[userID]
	u.Roles = nil
	f.users[userID] = u
	return nil
}

type staticGate struct {
	allow bool
}

func (g staticGate) Allowed(permissions.Actor, string, string) bool {
	return g.allow
}
