package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/relay/internal/catalog"
	"github.com/MrSnakeDoc/relay/internal/discovery"
	"github.com/MrSnakeDoc/relay/internal/executor"
	"github.com/MrSnakeDoc/relay/internal/facade"
	"github.com/MrSnakeDoc/relay/internal/session"
)

const serviceToken = "integration-token"

// platform is a fake registry plus one backend replica serving every app.
type platform struct {
	registry       *httptest.Server
	backend        *httptest.Server
	registryHits   atomic.Int32
	validateStatus atomic.Int32
}

func newPlatform(t *testing.T) *platform {
	t.Helper()
	p := &platform{}
	p.validateStatus.Store(http.StatusOK)

	backend := http.NewServeMux()
	backend.HandleFunc("POST /api/login/", func(w http.ResponseWriter, r *http.Request) {
		var req facade.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"bad credentials"}`))
			return
		}
		writeJSON(w, http.StatusOK, facade.LoginResponse{
			Message: "ok", Token: "user-token", UserID: "42",
			Username: req.Username, ExpiresAt: "2030-01-01T00:00:00Z",
		})
	})
	backend.HandleFunc("POST /api/external/tokens/validate/", func(w http.ResponseWriter, r *http.Request) {
		status := int(p.validateStatus.Load())
		writeJSON(w, status, facade.TokenValidation{
			Token: "user-token", UserID: "42", IsValid: status == http.StatusOK,
		})
	})
	backend.HandleFunc("POST /api/logout/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(facade.HeaderUserToken) != "user-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, facade.LogoutResponse{Message: "Successfully logged out"})
	})
	backend.HandleFunc("GET /courses/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []facade.Course{{ID: 1, ExternalCourseID: "go-101", Title: "Go"}})
	})
	p.backend = httptest.NewServer(requireToken(backend))
	t.Cleanup(p.backend.Close)

	registry := http.NewServeMux()
	registry.HandleFunc("GET /apps/{id}/", func(w http.ResponseWriter, r *http.Request) {
		p.registryHits.Add(1)
		writeJSON(w, http.StatusOK, discovery.Descriptor{
			Name:     "app-" + r.PathValue("id"),
			Replicas: []discovery.ReplicaRecord{{ReplicaURL: p.backend.URL + "/"}},
		})
	})
	p.registry = httptest.NewServer(requireToken(registry))
	t.Cleanup(p.registry.Close)
	return p
}

func requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Token "+serviceToken {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type stack struct {
	resolver *discovery.Resolver
	facades  *facade.Set
	manager  *session.Manager
}

// wire assembles the same graph the app builds, with a dead registry first.
func wire(t *testing.T, p *platform) stack {
	t.Helper()
	exec, err := executor.New(executor.Options{
		Credential: executor.Credential{Token: serviceToken},
		Timeout:    2 * time.Second,
	})
	require.NoError(t, err)

	sources, err := discovery.ParseSources([]string{"http://127.0.0.1:1", p.registry.URL}, exec)
	require.NoError(t, err)

	resolver := discovery.NewResolver(discovery.ResolverOptions{
		Sources: sources,
		Cache:   discovery.NewCache(time.Minute, nil),
		Timeout: time.Second,
	})
	facades := facade.NewSet(facade.Deps{Resolver: resolver, Doer: exec}, catalog.Defaults())
	manager := session.NewManager(session.Options{
		Auth:     facades.Auth,
		Profile:  facades.Profile,
		OTP:      facades.OTP,
		Store:    session.NewMemoryStore(),
		Replicas: resolver,
	})
	return stack{resolver: resolver, facades: facades, manager: manager}
}

func TestCoursesThroughDiscovery(t *testing.T) {
	p := newPlatform(t)
	s := wire(t, p)
	ctx := context.Background()

	page, err := s.facades.Courses.ListCourses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Count)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "go-101", page.Results[0].ExternalCourseID)

	_, err = s.facades.Courses.ListCourses(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), p.registryHits.Load(), "replica set comes from cache")

	entries := s.resolver.Cache().Snapshot()
	require.Len(t, entries, 1)
	assert.Equal(t, []string{p.backend.URL}, entries[0].Replicas, "trailing slash is normalized away")
}

func TestSessionLifecycle(t *testing.T) {
	p := newPlatform(t)
	s := wire(t, p)
	ctx := context.Background()

	_, err := s.manager.Login(ctx, facade.LoginRequest{Username: "alice", Password: "wrong"})
	require.ErrorIs(t, err, facade.ErrInvalidCredentials)
	assert.Equal(t, session.KindAnonymous, s.manager.State().Kind())

	_, err = s.manager.Login(ctx, facade.LoginRequest{Username: "alice", Password: "s3cret"})
	require.NoError(t, err)
	auth, ok := s.manager.State().(session.Authenticated)
	require.True(t, ok)
	assert.Equal(t, "user-token", auth.Token)

	valid, err := s.manager.CheckAuth(ctx)
	require.NoError(t, err)
	assert.True(t, valid)

	msg, err := s.manager.Logout(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Successfully logged out", msg)
	assert.Equal(t, session.KindAnonymous, s.manager.State().Kind())
}

func TestLoginInvalidatesReplicaCache(t *testing.T) {
	p := newPlatform(t)
	s := wire(t, p)
	ctx := context.Background()

	_, err := s.facades.Courses.ListCourses(ctx)
	require.NoError(t, err)
	before := p.registryHits.Load()

	_, err = s.manager.Login(ctx, facade.LoginRequest{Username: "alice", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, before+1, p.registryHits.Load(), "auth is resolved afresh after invalidation")

	_, err = s.facades.Courses.ListCourses(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+2, p.registryHits.Load(), "course set was dropped too")
}

func TestUnavailableWhenRegistriesAreDown(t *testing.T) {
	p := newPlatform(t)
	p.registry.Close()
	s := wire(t, p)

	_, err := s.facades.Courses.ListCourses(context.Background())
	require.ErrorIs(t, err, facade.ErrServiceUnavailable)
	assert.True(t, strings.HasPrefix(err.Error(), "course "), fmt.Sprintf("got %q", err))
}

func TestCheckAuthDropsRejectedToken(t *testing.T) {
	p := newPlatform(t)
	s := wire(t, p)
	ctx := context.Background()

	_, err := s.manager.Login(ctx, facade.LoginRequest{Username: "alice", Password: "s3cret"})
	require.NoError(t, err)

	p.validateStatus.Store(http.StatusUnauthorized)
	valid, err := s.manager.CheckAuth(ctx)
	require.NoError(t, err)
	assert.False(t, valid)
	assert.Equal(t, session.KindAnonymous, s.manager.State().Kind())
}
