package database

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/circle/internal/models"
)

// Memory keeps users and posts in process memory. Records are copied on the way
// in and out, so callers only ever change state through SaveUsers.
type Memory struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
	posts map[uuid.UUID]*models.Post
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users: make(map[uuid.UUID]*models.User),
		posts: make(map[uuid.UUID]*models.Post),
	}
}

// emailTakenUnsafe assumes the lock is held.
func (m *Memory) emailTakenUnsafe(email string, except uuid.UUID) bool {
	for id, u := range m.users {
		if id != except && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (m *Memory) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if m.emailTakenUnsafe(user.Email, user.ID) {
		return ErrEmailTaken
	}
	m.users[user.ID] = user.Clone()
	return nil
}

func (m *Memory) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u.Clone(), nil
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) GetUsersByIDs(_ context.Context, ids []uuid.UUID) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	users := []*models.User{}
	seen := make(models.IDSet, len(ids))
	for _, id := range ids {
		u, ok := m.users[id]
		if !ok || seen.Has(id) {
			continue
		}
		seen.Add(id)
		users = append(users, u.Clone())
	}
	sortByName(users)
	return users, nil
}

func (m *Memory) SearchUsers(_ context.Context, name string) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	needle := strings.ToLower(name)
	users := []*models.User{}
	for _, u := range m.users {
		if strings.Contains(strings.ToLower(u.Name), needle) {
			users = append(users, u.Clone())
		}
	}
	sortByName(users)
	return users, nil
}

// SaveUsers validates every user before writing any of them.
func (m *Memory) SaveUsers(_ context.Context, users ...*models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range users {
		if _, ok := m.users[u.ID]; !ok {
			return ErrNotFound
		}
		if m.emailTakenUnsafe(u.Email, u.ID) {
			return ErrEmailTaken
		}
	}
	for _, u := range users {
		stored := m.users[u.ID]
		next := u.Clone()
		next.Password = stored.Password
		next.ResetPasswordToken = stored.ResetPasswordToken
		next.ResetPasswordExpire = stored.ResetPasswordExpire
		next.CreatedAt = stored.CreatedAt
		m.users[u.ID] = next
	}
	return nil
}

func (m *Memory) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Password = hash
	u.ResetPasswordToken = ""
	u.ResetPasswordExpire = time.Time{}
	return nil
}

func (m *Memory) SetResetToken(_ context.Context, id uuid.UUID, tokenHash string, expires time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.ResetPasswordToken = tokenHash
	if tokenHash == "" {
		expires = time.Time{}
	}
	u.ResetPasswordExpire = expires
	return nil
}

func (m *Memory) GetUserByResetToken(_ context.Context, tokenHash string, now time.Time) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tokenHash == "" {
		return nil, ErrNotFound
	}
	for _, u := range m.users {
		if u.ResetPasswordToken == tokenHash && u.ResetPasswordExpire.After(now) {
			return u.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) DeleteUser(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)

	for _, u := range m.users {
		u.Friends.Remove(id)
		u.Requests.Remove(id)
	}
	for pid, p := range m.posts {
		if p.OwnerID == id {
			delete(m.posts, pid)
			continue
		}
		p.Likes = slices.DeleteFunc(p.Likes, func(l uuid.UUID) bool { return l == id })
		p.Comments = slices.DeleteFunc(p.Comments, func(c models.Comment) bool { return c.UserID == id })
	}
	return nil
}

func (m *Memory) GetPostsByOwner(_ context.Context, ownerID uuid.UUID) ([]*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	posts := []*models.Post{}
	for _, p := range m.posts {
		if p.OwnerID == ownerID {
			posts = append(posts, clonePost(p))
		}
	}
	slices.SortFunc(posts, func(a, b *models.Post) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return posts, nil
}

// InsertPost is used by seeding and tests; the API only reads posts.
func (m *Memory) InsertPost(_ context.Context, post *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	m.posts[post.ID] = clonePost(post)
	return nil
}

func (m *Memory) Close() {}

func clonePost(p *models.Post) *models.Post {
	c := *p
	c.Likes = slices.Clone(p.Likes)
	c.Comments = slices.Clone(p.Comments)
	return &c
}

func sortByName(users []*models.User) {
	slices.SortFunc(users, func(a, b *models.User) int {
		return strings.Compare(a.Name, b.Name)
	})
}
