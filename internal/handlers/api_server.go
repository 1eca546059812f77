// internal/handlers/api_server.go
package handlers

import (
	"net/http"
	"net/url"
	"time"

	"github.com/jason-s-yu/circle/internal/cache"
	"github.com/jason-s-yu/circle/internal/database"
	"github.com/jason-s-yu/circle/internal/friendship"
	"github.com/jason-s-yu/circle/internal/middleware"
	"github.com/jason-s-yu/circle/internal/notify"
	"github.com/sirupsen/logrus"
)

// Options tunes the API server.
type Options struct {
	PublicURL     string        // base of links in outgoing mail
	ResetTokenTTL time.Duration // lifetime of password reset tokens
	TokenTTL      time.Duration // session cookie lifetime, 0 => session cookie
	SecureCookies bool
	CORSOrigins   []string
}

// APIServer holds the collaborators shared by every request handler.
type APIServer struct {
	store   database.Store
	friends *friendship.Service
	cache   *cache.Client
	hub     *notify.Hub
	logger  *logrus.Logger
	opts    Options
}

// NewAPIServer wires the handlers. c and hub may be nil, which disables the
// features depending on them.
func NewAPIServer(store database.Store, friends *friendship.Service, c *cache.Client, hub *notify.Hub, logger *logrus.Logger, opts Options) *APIServer {
	if opts.ResetTokenTTL <= 0 {
		opts.ResetTokenTTL = 10 * time.Minute
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	return &APIServer{
		store:   store,
		friends: friends,
		cache:   c,
		hub:     hub,
		logger:  logger,
		opts:    opts,
	}
}

// Routes returns the full handler tree, wrapped in CORS and request logging.
func (s *APIServer) Routes() http.Handler {
	mux := http.NewServeMux()
	authed := func(h http.HandlerFunc) http.Handler { return middleware.RequireAuth(h) }

	mux.HandleFunc("GET /{$}", s.IndexHandler)
	mux.HandleFunc("GET /test", s.TestHandler)

	const v1 = "/api/v1"

	// accounts
	mux.HandleFunc("POST "+v1+"/register", s.RegisterHandler)
	mux.HandleFunc("POST "+v1+"/login", s.LoginHandler)
	mux.HandleFunc("GET "+v1+"/logout", s.LogoutHandler)
	mux.HandleFunc("POST "+v1+"/forgot/password", s.ForgotPasswordHandler)
	mux.HandleFunc("PUT "+v1+"/password/reset/{token}", s.ResetPasswordHandler)
	mux.Handle("PUT "+v1+"/update/password", authed(s.UpdatePasswordHandler))
	mux.Handle("PUT "+v1+"/update/profile", authed(s.UpdateProfileHandler))
	mux.Handle("DELETE "+v1+"/delete/me", authed(s.DeleteMeHandler))

	// profiles and posts
	mux.Handle("GET "+v1+"/me", authed(s.MeHandler))
	mux.Handle("GET "+v1+"/my/posts", authed(s.MyPostsHandler))
	mux.Handle("GET "+v1+"/userposts/{id}", authed(s.UserPostsHandler))
	mux.Handle("GET "+v1+"/user/{id}", authed(s.UserProfileHandler))
	mux.Handle("GET "+v1+"/users", authed(s.SearchUsersHandler))

	// relationships
	mux.Handle("GET "+v1+"/friends", authed(s.FriendsHandler))
	mux.Handle("GET "+v1+"/friends/others", authed(s.OthersFriendsHandler))
	mux.Handle("GET "+v1+"/mutualFriends", authed(s.MutualFriendsHandler))
	mux.Handle("GET "+v1+"/requests", authed(s.RequestsHandler))
	mux.Handle("GET "+v1+"/suggestions", authed(s.SuggestionsHandler))
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		mux.Handle(method+" "+v1+"/request/{id}", authed(s.ToggleRequestHandler))
		mux.Handle(method+" "+v1+"/request/accept/{id}", authed(s.AcceptRequestHandler))
		mux.Handle(method+" "+v1+"/request/decline/{id}", authed(s.DeclineRequestHandler))
	}

	// authenticates after the upgrade so failures arrive as close codes
	mux.HandleFunc("GET "+v1+"/ws/notifications", s.NotificationsWSHandler)

	var h http.Handler = mux
	h = middleware.CORS(s.opts.CORSOrigins)(h)
	h = middleware.LogMiddleware(s.logger)(h)
	return h
}

func (s *APIServer) IndexHandler(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte("Server is working"))
}

func (s *APIServer) TestHandler(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte("Server is working fine"))
}

// originPatterns converts the CORS origin list into websocket host patterns.
func (s *APIServer) originPatterns() []string {
	patterns := make([]string, 0, len(s.opts.CORSOrigins))
	for _, o := range s.opts.CORSOrigins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, o)
	}
	return patterns
}
