package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jason-s-yu/circle/internal/middleware"
	"github.com/jason-s-yu/circle/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")

	resp := env.do(t, http.MethodPost, "/api/v1/register", "", map[string]string{
		"name": "alice2", "email": "ALICE@example.com", "password": "x",
	})
	assert.Equal(t, http.StatusConflict, resp.code)
	assert.Equal(t, "User already exists", resp.message())

	resp = env.do(t, http.MethodPost, "/api/v1/register", "", map[string]string{"name": "nobody"})
	assert.Equal(t, http.StatusBadRequest, resp.code)

	resp = env.do(t, http.MethodPost, "/api/v1/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.code)

	resp = env.do(t, http.MethodPost, "/api/v1/login", "", map[string]string{
		"email": "alice@example.com", "password": "alice-password",
	})
	require.Equal(t, http.StatusOK, resp.code)
	require.NotEmpty(t, resp.cookies)
	cookie := resp.cookies[0]
	assert.Equal(t, middleware.AuthCookieName, cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite, "cross-site links must not carry the session")

	user := resp.body["user"].(map[string]any)
	assert.Equal(t, alice.id.String(), user["id"])
	assert.NotContains(t, user, "password")

	// the cookie alone authenticates
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	resp = env.do(t, http.MethodGet, "/api/v1/logout", "", nil)
	require.Equal(t, http.StatusOK, resp.code)
	require.NotEmpty(t, resp.cookies)
	assert.Equal(t, -1, resp.cookies[0].MaxAge)

	resp = env.do(t, http.MethodGet, "/api/v1/users?name=ali", alice.token, nil)
	require.Equal(t, http.StatusOK, resp.code)
	assert.Empty(t, resp.ids(t, "users"), "caller is excluded from search")
}

func TestProfileAndPosts(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	require.NoError(t, env.store.InsertPost(t.Context(), &models.Post{OwnerID: alice.id, Caption: "hello"}))

	resp := env.do(t, http.MethodGet, "/api/v1/me", alice.token, nil)
	require.Equal(t, http.StatusOK, resp.code)
	assert.Len(t, resp.body["posts"], 1)

	resp = env.do(t, http.MethodGet, "/api/v1/my/posts", bob.token, nil)
	require.Equal(t, http.StatusOK, resp.code)
	assert.Empty(t, resp.body["posts"])

	resp = env.do(t, http.MethodGet, "/api/v1/userposts/"+alice.id.String(), bob.token, nil)
	require.Equal(t, http.StatusOK, resp.code)
	assert.Len(t, resp.body["posts"], 1)

	resp = env.do(t, http.MethodPut, "/api/v1/update/profile", bob.token, map[string]string{
		"name": "Robert", "avatar": "https://img.example.com/bob.png",
	})
	require.Equal(t, http.StatusOK, resp.code)

	resp = env.do(t, http.MethodGet, "/api/v1/users?name=rob", alice.token, nil)
	assert.Equal(t, []string{bob.id.String()}, resp.ids(t, "users"))

	resp = env.do(t, http.MethodPut, "/api/v1/update/profile", bob.token, map[string]string{
		"email": "alice@example.com",
	})
	assert.Equal(t, http.StatusConflict, resp.code)
}

func TestUpdatePassword(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")

	resp := env.do(t, http.MethodPut, "/api/v1/update/password", alice.token, map[string]string{
		"oldPassword": "nope", "newPassword": "fresh",
	})
	assert.Equal(t, http.StatusBadRequest, resp.code)
	assert.Equal(t, "Incorrect Old password", resp.message())

	resp = env.do(t, http.MethodPut, "/api/v1/update/password", alice.token, map[string]string{
		"oldPassword": "alice-password", "newPassword": "fresh",
	})
	require.Equal(t, http.StatusOK, resp.code)
	assert.Equal(t, "Password Updated", resp.message())

	resp = env.do(t, http.MethodPost, "/api/v1/login", "", map[string]string{
		"email": "alice@example.com", "password": "fresh",
	})
	assert.Equal(t, http.StatusOK, resp.code)
}

func TestDeleteMeCascades(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	carol := env.register(t, "carol")

	env.befriend(t, alice, bob)
	env.do(t, http.MethodPost, "/api/v1/request/"+carol.id.String(), alice.token, nil)

	resp := env.do(t, http.MethodDelete, "/api/v1/delete/me", alice.token, nil)
	require.Equal(t, http.StatusOK, resp.code)
	assert.Equal(t, "Profile Deleted", resp.message())

	resp = env.do(t, http.MethodGet, "/api/v1/friends", bob.token, nil)
	assert.Empty(t, resp.ids(t, "friends"))
	resp = env.do(t, http.MethodGet, "/api/v1/requests", carol.token, nil)
	assert.Empty(t, resp.ids(t, "requests"))

	resp = env.do(t, http.MethodGet, "/api/v1/me", alice.token, nil)
	assert.Equal(t, http.StatusNotFound, resp.code)

	items, err := env.redis.List("circle_activity")
	require.NoError(t, err)
	assert.Contains(t, items[len(items)-1], models.ActivityUserDeleted)
}

func TestLiveness(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/", "/test"} {
		w := httptest.NewRecorder()
		env.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}
