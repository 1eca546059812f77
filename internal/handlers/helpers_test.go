package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jason-s-yu/circle/internal/auth"
	"github.com/jason-s-yu/circle/internal/cache"
	"github.com/jason-s-yu/circle/internal/database"
	"github.com/jason-s-yu/circle/internal/friendship"
	"github.com/jason-s-yu/circle/internal/notify"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	server  *APIServer
	handler http.Handler
	store   *database.Memory
	redis   *miniredis.Miniredis
	hub     *notify.Hub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	require.NoError(t, auth.Init(time.Hour))

	mr := miniredis.RunT(t)
	c, err := cache.Connect(t.Context(), cache.Options{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return buildEnv(t, c, mr)
}

// newTestEnvWithoutRedis runs the server with caching and queues disabled.
func newTestEnvWithoutRedis(t *testing.T) *testEnv {
	t.Helper()
	require.NoError(t, auth.Init(time.Hour))
	return buildEnv(t, nil, nil)
}

func buildEnv(t *testing.T, c *cache.Client, mr *miniredis.Miniredis) *testEnv {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	store := database.NewMemory()
	hub := notify.NewHub(logger)
	friends := friendship.NewService(store, c, hub, logger)
	s := NewAPIServer(store, friends, c, hub, logger, Options{
		PublicURL: "http://circle.test",
		TokenTTL:  time.Hour,
	})
	return &testEnv{server: s, handler: s.Routes(), store: store, redis: mr, hub: hub}
}

type apiResponse struct {
	code    int
	body    map[string]any
	cookies []*http.Cookie
}

func (r apiResponse) message() string {
	msg, _ := r.body["message"].(string)
	return msg
}

// ids extracts the "id" of every object in the array stored under key.
func (r apiResponse) ids(t *testing.T, key string) []string {
	t.Helper()
	raw, ok := r.body[key].([]any)
	require.True(t, ok, "expected array under %q, body=%v", key, r.body)
	ids := make([]string, 0, len(raw))
	for _, item := range raw {
		obj := item.(map[string]any)
		ids = append(ids, obj["id"].(string))
	}
	return ids
}

func (e *testEnv) do(t *testing.T, method, path, token string, payload any) apiResponse {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)

	resp := apiResponse{code: w.Code, cookies: w.Result().Cookies()}
	if w.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp.body), "body=%s", w.Body.String())
	}
	return resp
}

type testUser struct {
	id    uuid.UUID
	token string
}

func (e *testEnv) register(t *testing.T, name string) testUser {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/v1/register", "", map[string]string{
		"name":     name,
		"email":    name + "@example.com",
		"password": name + "-password",
	})
	require.Equal(t, http.StatusCreated, resp.code, "body=%v", resp.body)

	user := resp.body["user"].(map[string]any)
	return testUser{
		id:    uuid.MustParse(user["id"].(string)),
		token: resp.body["token"].(string),
	}
}

// befriend sends a request from a to b and accepts it as b.
func (e *testEnv) befriend(t *testing.T, a, b testUser) {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/v1/request/"+b.id.String(), a.token, nil)
	require.Equal(t, http.StatusOK, resp.code, "body=%v", resp.body)
	resp = e.do(t, http.MethodPost, "/api/v1/request/accept/"+a.id.String(), b.token, nil)
	require.Equal(t, http.StatusOK, resp.code, "body=%v", resp.body)
}
