package facade

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfile_Register(t *testing.T) {
	var got UserProfile
	url := newBackend(t).handle(http.MethodPost, "/profiles/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeJSON(w, http.StatusCreated, RegisterResponse{UserID: "42", Username: got.Username, Email: got.Email, Message: "created"})
	}).start()
	deps, _ := testDeps(t, url)

	in := UserProfile{Username: "alice", Email: "alice@example.com", Password: "s3cret", Gender: "F"}
	resp, err := NewProfile(deps, profileSvc).Register(context.Background(), in)

	require.NoError(t, err)
	assert.Equal(t, in, got)
	assert.Equal(t, "42", resp.UserID)
}

func TestProfile_RegisterValidationError(t *testing.T) {
	url := newBackend(t).on(http.MethodPost, "/profiles/", http.StatusBadRequest, map[string]any{
		"message": "username already taken",
	}).start()
	deps, _ := testDeps(t, url)

	_, err := NewProfile(deps, profileSvc).Register(context.Background(), UserProfile{})
	assert.EqualError(t, err, "request failed (status 400): username already taken")
}

func TestProfile_Paths(t *testing.T) {
	url := newBackend(t).
		on(http.MethodPost, "/verify/42/verify_email/", http.StatusOK, EmailVerificationResponse{Status: "verified"}).
		on(http.MethodGet, "/check-username/alice/", http.StatusOK, Availability{Available: false}).
		on(http.MethodGet, "/check-email/alice@example.com/", http.StatusOK, Availability{Available: true}).
		on(http.MethodPost, "/check-password/", http.StatusOK, PasswordCheckResponse{Valid: true, UserID: "42"}).
		on(http.MethodGet, "/profiles/42/", http.StatusOK, UserProfile{UserID: "42", Username: "alice"}).
		start()
	deps, _ := testDeps(t, url)
	p := NewProfile(deps, profileSvc)
	ctx := context.Background()

	ev, err := p.VerifyEmail(ctx, EmailVerificationRequest{UserID: "42", Email: "alice@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "verified", ev.Status)

	u, err := p.CheckUsername(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, u.Available)

	e, err := p.CheckEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, e.Available)

	pw, err := p.CheckPassword(ctx, PasswordCheckRequest{Username: "alice", Password: "x"})
	require.NoError(t, err)
	assert.True(t, pw.Valid)

	prof, err := p.GetProfile(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "alice", prof.Username)
}

func TestProfile_PathSegmentsAreEscaped(t *testing.T) {
	var rawPath string
	url := newBackend(t).handle(http.MethodGet, "/check-username/a/b/", func(w http.ResponseWriter, r *http.Request) {
		rawPath = r.URL.EscapedPath()
		writeJSON(w, http.StatusOK, Availability{Available: true})
	}).start()
	deps, _ := testDeps(t, url)

	_, err := NewProfile(deps, profileSvc).CheckUsername(context.Background(), "a/b")
	require.NoError(t, err)
	assert.Equal(t, "/check-username/a%2Fb/", rawPath)
}
