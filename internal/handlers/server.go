// internal/handlers/server.go

// Package handlers is the HTTP/WebSocket surface over the core. All
// dependencies are carried on the Server struct; there is no package
// state, and the authenticated owner id is threaded explicitly into
// every core call.
package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dlevitt/radar/internal/alerts"
	"github.com/dlevitt/radar/internal/auth"
	"github.com/dlevitt/radar/internal/friends"
	"github.com/dlevitt/radar/internal/location"
	"github.com/dlevitt/radar/internal/middleware"
	"github.com/dlevitt/radar/internal/models"
	"github.com/dlevitt/radar/internal/store"
	"github.com/dlevitt/radar/internal/tracker"
)

// AccountService covers sign-up and sign-in; implemented by
// database.DB in production and by a fake in tests.
type AccountService interface {
	CreateAccount(ctx context.Context, acct *models.Account) error
	Authenticate(ctx context.Context, email, password string) (*models.Account, error)
}

// Server holds every collaborator the handlers need.
type Server struct {
	Log        *logrus.Logger
	Sessions   *auth.Sessions
	Accounts   AccountService
	Friends    *friends.Manager
	Thresholds *alerts.Thresholds
	Propagator *location.Propagator
	Store      store.Store
	Tracker    *tracker.SessionStore
	Deps       tracker.Deps
}

// Routes registers every endpoint on a fresh mux, wrapped with
// request logging.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	logged := middleware.LogMiddleware(s.Log)
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, logged(h))
	}

	handle("/account/create", s.CreateAccountHandler)
	handle("/account/login", s.LoginHandler)

	handle("/friends/add", s.AddFriendHandler)
	handle("/friends/list", s.ListFriendsHandler)

	handle("/thresholds/set", s.SetThresholdHandler)
	handle("/thresholds/get", s.GetThresholdHandler)

	handle("/location/report", s.ReportLocationHandler)

	// The websocket upgrade hijacks the connection, so this route
	// skips the status-capturing middleware.
	mux.HandleFunc("/live/ws", s.LiveWSHandler)

	return mux
}

// authenticate resolves the signed-in account from the auth_token
// cookie, or fails with auth.ErrUnauthenticated.
func (s *Server) authenticate(r *http.Request) (uuid.UUID, error) {
	cookie := extractCookieToken(r.Header.Get("Cookie"), "auth_token")
	if cookie == "" {
		return uuid.Nil, auth.ErrUnauthenticated
	}
	return s.Sessions.Verify(cookie)
}
