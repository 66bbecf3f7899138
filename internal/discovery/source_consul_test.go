package discovery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hashicorp/consul/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConsul(t *testing.T, handler http.HandlerFunc) *ConsulSource {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := api.DefaultConfig()
	cfg.Address = srv.Listener.Addr().String()
	cfg.Scheme = "http"
	cfg.HttpClient = srv.Client()
	client, err := api.NewClient(cfg)
	require.NoError(t, err)
	return NewConsulSource(cfg.Address, client)
}

func TestConsulSource_Fetch(t *testing.T) {
	var gotPath, gotPassing string
	src := newTestConsul(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotPassing = r.URL.Query().Get("passing")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"Node":{"Address":"10.0.0.1"},"Service":{"Service":"auth","Address":"10.0.1.1","Port":8000}},
			{"Node":{"Address":"10.0.0.2"},"Service":{"Service":"auth","Port":8001}},
			{"Node":{"Address":"10.0.0.3"},"Service":{"Service":"auth","Port":8002,"Meta":{"replica_url":"https://auth-3.example.com"}}},
			{"Node":{"Address":"10.0.0.4"},"Service":{"Service":"auth","Address":"10.0.1.4"}}
		]`))
	})

	urls, err := src.Fetch(context.Background(), authService)

	require.NoError(t, err)
	assert.Equal(t, "/v1/health/service/auth", gotPath)
	assert.NotEmpty(t, gotPassing)
	assert.Equal(t, []string{
		"http://10.0.1.1:8000",
		"http://10.0.0.2:8001",
		"https://auth-3.example.com",
	}, urls)
}

func TestConsulSource_Error(t *testing.T) {
	src := newTestConsul(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := src.Fetch(context.Background(), authService)
	assert.Error(t, err)
}

func TestConsulReplicaURL_Nil(t *testing.T) {
	assert.Empty(t, consulReplicaURL(nil))
	assert.Empty(t, consulReplicaURL(&api.ServiceEntry{}))
}
