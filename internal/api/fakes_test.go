package api_test

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"authchat/internal/database"
	"authchat/internal/models"
)

// memStore is an in-memory auth.UserStore keyed by email.
type memStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemStore() *memStore {
	return &memStore{users: map[string]*models.User{}}
}

func (m *memStore) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Email]; ok {
		return database.ErrDuplicateEmail
	}
	u.ID = primitive.NewObjectID()
	cp := *u
	m.users[u.Email] = &cp
	return nil
}

func (m *memStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) FindByResetToken(_ context.Context, email, token string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok || u.ResetToken != token {
		return nil, database.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) SetResetToken(_ context.Context, id primitive.ObjectID, token string, expiry time.Time) error {
	return m.update(id, "", func(u *models.User) {
		u.ResetToken = token
		u.ResetTokenExpiry = &expiry
	})
}

func (m *memStore) ClearResetToken(_ context.Context, id primitive.ObjectID, token string) error {
	return m.update(id, token, func(u *models.User) {
		u.ResetToken = ""
		u.ResetTokenExpiry = nil
	})
}

func (m *memStore) CompleteReset(_ context.Context, id primitive.ObjectID, token, passwordHash string) error {
	return m.update(id, token, func(u *models.User) {
		u.PasswordHash = passwordHash
		u.ResetToken = ""
		u.ResetTokenExpiry = nil
	})
}

// update applies fn to the user with id. A non-empty token must match the
// pending reset token.
func (m *memStore) update(id primitive.ObjectID, token string, fn func(*models.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID != id {
			continue
		}
		if token != "" && u.ResetToken != token {
			return database.ErrNotFound
		}
		fn(u)
		return nil
	}
	return database.ErrNotFound
}

type captureMailer struct {
	mu    sync.Mutex
	links []string
	err   error
}

func (c *captureMailer) SendPasswordReset(_ context.Context, _, link string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.links = append(c.links, link)
	return nil
}

func (c *captureMailer) last() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.links) == 0 {
		return ""
	}
	return c.links[len(c.links)-1]
}

type stubGenerator struct {
	reply string
	err   error
}

func (g stubGenerator) Generate(context.Context, string) (string, error) {
	return g.reply, g.err
}
