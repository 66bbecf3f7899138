package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/relay/internal/httpserver/deps"
	"github.com/MrSnakeDoc/relay/internal/session"
)

type sessionResponse struct {
	State    string `json:"state"`
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
}

// Session shows the current session state. The token is never exposed.
func Session(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := d.Session.State()
		resp := sessionResponse{State: st.Kind().String()}
		switch s := st.(type) {
		case session.Authenticated:
			resp.UserID = s.User.ID
			resp.Username = s.User.Username
		case session.PendingVerification:
			resp.UserID = s.UserID
			resp.Username = s.Context.Username
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
