// internal/handlers/account.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dlevitt/radar/internal/database"
	"github.com/dlevitt/radar/internal/models"
	"github.com/dlevitt/radar/internal/store"
)

// CreateAccountHandler signs up a new account.
//
// Request payload: { "email": "...", "password": "..." }
func (s *Server) CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		http.Error(w, "email and password are required", http.StatusBadRequest)
		return
	}

	acct := models.Account{Email: req.Email, Password: req.Password}
	if err := s.Accounts.CreateAccount(r.Context(), &acct); err != nil {
		if errors.Is(err, database.ErrEmailTaken) {
			http.Error(w, "email already registered", http.StatusConflict)
			return
		}
		writeError(w, err)
		return
	}

	// Seed the account's live record so subscribers can resolve the
	// email before any position is reported.
	if err := s.Store.Merge(r.Context(), store.UserKey(acct.ID), store.Record{store.FieldEmail: acct.Email}); err != nil {
		s.Log.WithError(err).WithField("account", acct.ID).Warn("failed to seed live record")
	}

	writeJSON(w, http.StatusCreated, acct)
}

// LoginHandler signs an account in and sets the auth_token cookie.
//
// Request payload: { "email": "...", "password": "..." }
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	acct, err := s.Accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, database.ErrInvalidCredentials) {
			http.Error(w, "invalid credentials", http.StatusForbidden)
			return
		}
		writeError(w, err)
		return
	}

	token, err := s.Sessions.Issue(acct.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, acct)
}
