package auth_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"authchat/internal/database"
	"authchat/internal/models"
)

// fakeStore is an in-memory UserStore with the same conditional-write
// semantics as the Mongo store.
type fakeStore struct {
	mu      sync.Mutex
	users   map[string]*models.User
	findErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: map[string]*models.User{}}
}

func (f *fakeStore) Create(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.Email]; ok {
		return database.ErrDuplicateEmail
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	cp := *u
	f.users[u.Email] = &cp
	return nil
}

func (f *fakeStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	u, ok := f.users[email]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) FindByResetToken(_ context.Context, email, token string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok || u.ResetToken != token {
		return nil, database.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) SetResetToken(_ context.Context, id primitive.ObjectID, token string, expiry time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byID(id)
	if u == nil {
		return database.ErrNotFound
	}
	u.ResetToken = token
	u.ResetTokenExpiry = &expiry
	return nil
}

func (f *fakeStore) ClearResetToken(_ context.Context, id primitive.ObjectID, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byID(id)
	if u == nil || u.ResetToken != token {
		return database.ErrNotFound
	}
	u.ResetToken = ""
	u.ResetTokenExpiry = nil
	return nil
}

func (f *fakeStore) CompleteReset(_ context.Context, id primitive.ObjectID, token, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byID(id)
	if u == nil || u.ResetToken != token {
		return database.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.ResetToken = ""
	u.ResetTokenExpiry = nil
	return nil
}

// get returns the stored record itself so tests can tamper with it.
func (f *fakeStore) get(email string) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[email]
}

func (f *fakeStore) byID(id primitive.ObjectID) *models.User {
	for _, u := range f.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

type fakeMailer struct {
	mu    sync.Mutex
	to    []string
	links []string
	err   error
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, to, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.to = append(m.to, to)
	m.links = append(m.links, link)
	return nil
}

func (m *fakeMailer) lastLink() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.links) == 0 {
		return ""
	}
	return m.links[len(m.links)-1]
}

// clock is a settable time source shared by the service and the token issuer.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

var errBoom = errors.New("boom")
