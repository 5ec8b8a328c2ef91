// internal/handlers/friend.go
package handlers

import (
	"encoding/json"
	"net/http"
)

// AddFriendHandler links the signed-in user with the account behind
// the given email. The edge is granted immediately and symmetrically.
//
// Request payload: { "email": "friend@example.com" }
func (s *Server) AddFriendHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, err := s.authenticate(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if req.Email == "" {
		http.Error(w, "email is required", http.StatusBadRequest)
		return
	}

	if err := s.Friends.AddFriend(r.Context(), ownerID, req.Email); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	w.Write([]byte("friend added"))
}

// ListFriendsHandler returns the signed-in user's friends as a JSON
// array of {id, email}.
func (s *Server) ListFriendsHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, err := s.authenticate(r)
	if err != nil {
		writeError(w, err)
		return
	}

	refs, err := s.Friends.ListFriends(r.Context(), ownerID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, refs)
}
