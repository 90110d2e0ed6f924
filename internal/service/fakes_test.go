package service

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/sakif/sendlinks/internal/apperror"
	"github.com/sakif/sendlinks/internal/auth"
	"github.com/sakif/sendlinks/internal/model"
	"github.com/sakif/sendlinks/internal/repository"
)

var listAll = repository.ListOptions{Limit: 100}

// fakeStore is an in-memory UserRepository + SocialRepository. It keeps
// the contracts the real stores keep: unique emails, one link per
// (user, category), all-or-nothing batches.
type fakeStore struct {
	mu      sync.Mutex
	users   map[int64]*model.User
	socials map[int64]map[model.Category]model.Social
	nextID  int64

	// set to a non-nil error to simulate a database failure
	getErr    error
	upsertErr error

	upsertCalls int

	// runs once at the start of the next CreateUser, outside the lock
	beforeCreate func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   make(map[int64]*model.User),
		socials: make(map[int64]map[model.Category]model.Social),
		nextID:  1,
	}
}

func (f *fakeStore) CreateUser(ctx context.Context, user *model.User) error {
	if hook := f.beforeCreate; hook != nil {
		f.beforeCreate = nil
		hook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return apperror.UserExists(user.Email)
		}
	}
	user.ID = f.nextID
	f.nextID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeStore) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	copied := *u
	return &copied, nil
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeStore) ListUsers(ctx context.Context, opts repository.ListOptions) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := []model.User{}
	for id := int64(1); id < f.nextID; id++ {
		if u, ok := f.users[id]; ok {
			users = append(users, *u)
		}
	}
	if opts.Offset > len(users) {
		return []model.User{}, nil
	}
	users = users[opts.Offset:]
	if opts.Limit > 0 && len(users) > opts.Limit {
		users = users[:opts.Limit]
	}
	return users, nil
}

func (f *fakeStore) ListSocials(ctx context.Context, userID int64) ([]model.Social, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	links := []model.Social{}
	for _, l := range f.socials[userID] {
		links = append(links, l)
	}
	model.SortSocials(links)
	return links, nil
}

func (f *fakeStore) UpsertSocials(ctx context.Context, userID int64, links []model.Social) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if f.socials[userID] == nil {
		f.socials[userID] = make(map[model.Category]model.Social)
	}
	for _, l := range links {
		f.socials[userID][l.Category] = l
	}
	return nil
}

// rowCount is the number of stored links for userID.
func (f *fakeStore) rowCount(userID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.socials[userID])
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSessions(t *testing.T) *auth.SessionManager {
	t.Helper()
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return auth.NewSessionManager(tokens, time.Hour)
}

func newTestAuthService(t *testing.T, store *fakeStore) (*AuthService, *auth.SessionManager) {
	t.Helper()
	sessions := newTestSessions(t)
	return NewAuthService(store, store, auth.NewPasswordService(1, 8), sessions, discardLogger()), sessions
}

func newTestProfileService(store *fakeStore) *ProfileService {
	return NewProfileService(store, store, discardLogger())
}
