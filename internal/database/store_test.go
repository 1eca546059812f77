package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/circle/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postInserter is implemented by the stores that can seed posts.
type postInserter interface {
	InsertPost(ctx context.Context, post *models.Post) error
}

// runStoreSuite exercises the Store contract against s. Emails are randomised so
// the suite can run against a shared database.
func runStoreSuite(t *testing.T, s Store) {
	ctx := context.Background()

	newUser := func(t *testing.T, name string) *models.User {
		u := &models.User{
			Name:     name,
			Email:    name + "-" + uuid.NewString() + "@example.com",
			Password: "hash",
		}
		require.NoError(t, s.CreateUser(ctx, u))
		require.NotEqual(t, uuid.Nil, u.ID)
		return u
	}

	t.Run("create and get", func(t *testing.T) {
		u := newUser(t, "alice")

		got, err := s.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, u.Email, got.Email)
		assert.Equal(t, "hash", got.Password)
		assert.Zero(t, got.Friends.Len())

		got, err = s.GetUserByEmail(ctx, u.Email)
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)

		_, err = s.GetUserByID(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("duplicate email", func(t *testing.T) {
		u := newUser(t, "bob")
		err := s.CreateUser(ctx, &models.User{Name: "bob2", Email: u.Email, Password: "x"})
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("save relationship sets", func(t *testing.T) {
		a, b := newUser(t, "carol"), newUser(t, "dave")
		a.Friends.Add(b.ID)
		b.Friends.Add(a.ID)
		c := newUser(t, "erin")
		b.Requests.Add(c.ID)
		require.NoError(t, s.SaveUsers(ctx, a, b))

		got, err := s.GetUsersByIDs(ctx, []uuid.UUID{a.ID, b.ID, uuid.New()})
		require.NoError(t, err)
		require.Len(t, got, 2)
		byID := map[uuid.UUID]*models.User{got[0].ID: got[0], got[1].ID: got[1]}
		assert.True(t, byID[a.ID].Friends.Has(b.ID))
		assert.True(t, byID[b.ID].Friends.Has(a.ID))
		assert.True(t, byID[b.ID].Requests.Has(c.ID))
		assert.Equal(t, "hash", byID[a.ID].Password, "save must not touch the password")

		ghost := &models.User{ID: uuid.New(), Name: "ghost", Email: uuid.NewString()}
		assert.ErrorIs(t, s.SaveUsers(ctx, ghost), ErrNotFound)
	})

	t.Run("search", func(t *testing.T) {
		marker := uuid.NewString()[:8]
		u := newUser(t, "Zed"+marker)
		got, err := s.SearchUsers(ctx, "zed"+marker)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, u.ID, got[0].ID)
	})

	t.Run("reset token", func(t *testing.T) {
		u := newUser(t, "frank")
		hash := uuid.NewString()
		now := time.Now()
		require.NoError(t, s.SetResetToken(ctx, u.ID, hash, now.Add(time.Minute)))

		got, err := s.GetUserByResetToken(ctx, hash, now)
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)

		_, err = s.GetUserByResetToken(ctx, hash, now.Add(2*time.Minute))
		assert.ErrorIs(t, err, ErrNotFound, "expired token")

		require.NoError(t, s.UpdatePassword(ctx, u.ID, "new-hash"))
		_, err = s.GetUserByResetToken(ctx, hash, now)
		assert.ErrorIs(t, err, ErrNotFound, "password update clears the token")

		got, err = s.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "new-hash", got.Password)
	})

	t.Run("delete cascades", func(t *testing.T) {
		gone, friend, asked := newUser(t, "gone"), newUser(t, "grace"), newUser(t, "heidi")
		gone.Friends.Add(friend.ID)
		friend.Friends.Add(gone.ID)
		asked.Requests.Add(gone.ID)
		require.NoError(t, s.SaveUsers(ctx, gone, friend, asked))

		if pi, ok := s.(postInserter); ok {
			require.NoError(t, pi.InsertPost(ctx, &models.Post{OwnerID: gone.ID, Caption: "bye"}))
			require.NoError(t, pi.InsertPost(ctx, &models.Post{
				OwnerID:  friend.ID,
				Caption:  "hi",
				Likes:    []uuid.UUID{gone.ID, asked.ID},
				Comments: []models.Comment{{UserID: gone.ID, Comment: "x"}, {UserID: asked.ID, Comment: "y"}},
			}))
		}

		require.NoError(t, s.DeleteUser(ctx, gone.ID))

		_, err := s.GetUserByID(ctx, gone.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		got, err := s.GetUserByID(ctx, friend.ID)
		require.NoError(t, err)
		assert.False(t, got.Friends.Has(gone.ID))
		got, err = s.GetUserByID(ctx, asked.ID)
		require.NoError(t, err)
		assert.False(t, got.Requests.Has(gone.ID))

		if _, ok := s.(postInserter); ok {
			posts, err := s.GetPostsByOwner(ctx, gone.ID)
			require.NoError(t, err)
			assert.Empty(t, posts)

			posts, err = s.GetPostsByOwner(ctx, friend.ID)
			require.NoError(t, err)
			require.Len(t, posts, 1)
			assert.Equal(t, []uuid.UUID{asked.ID}, posts[0].Likes)
			assert.Equal(t, []models.Comment{{UserID: asked.ID, Comment: "y"}}, posts[0].Comments)
		}

		assert.ErrorIs(t, s.DeleteUser(ctx, gone.ID), ErrNotFound)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, NewMemory())
}

func TestMemoryStoreCopiesRecords(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	u := &models.User{Name: "ivan", Email: "ivan@example.com"}
	require.NoError(t, m.CreateUser(ctx, u))

	got, err := m.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	got.Friends.Add(uuid.New())

	again, err := m.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, again.Friends.Len(), "unsaved mutation leaked into the store")
}

func TestMemoryPostsNewestFirst(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	owner := uuid.New()
	now := time.Now()
	require.NoError(t, m.InsertPost(ctx, &models.Post{OwnerID: owner, Caption: "old", CreatedAt: now.Add(-time.Hour)}))
	require.NoError(t, m.InsertPost(ctx, &models.Post{OwnerID: owner, Caption: "new", CreatedAt: now}))
	require.NoError(t, m.InsertPost(ctx, &models.Post{OwnerID: uuid.New(), Caption: "other"}))

	posts, err := m.GetPostsByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "new", posts[0].Caption)
	assert.Equal(t, "old", posts[1].Caption)
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("PG_TEST_URL")
	if url == "" {
		t.Skip("PG_TEST_URL not set")
	}
	ctx := context.Background()
	p, err := ConnectPostgres(ctx, url)
	require.NoError(t, err)
	defer p.Close()
	require.NoError(t, p.EnsureSchema(ctx))

	runStoreSuite(t, p)

	rec := models.ActivityRecord{
		ID:        uuid.New(),
		ActorID:   uuid.New(),
		Type:      models.ActivityUserRegistered,
		Timestamp: time.Now().UnixMilli(),
	}
	target := uuid.New()
	targeted := rec
	targeted.ID = uuid.New()
	targeted.TargetID = &target
	require.NoError(t, p.InsertActivities(ctx, []models.ActivityRecord{rec, rec, targeted}))
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	m, err := ConnectMongo(context.Background(), uri, "circle_test")
	require.NoError(t, err)
	defer m.Close()

	runStoreSuite(t, m)
}
