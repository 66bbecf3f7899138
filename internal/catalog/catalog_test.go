package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := Defaults()

	tests := []struct {
		key   string
		appID int
	}{
		{Auth, 15},
		{UserProfile, 13},
		{OTP, 14},
		{Course, 16},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			s, ok := c.Lookup(tt.key)
			require.True(t, ok)
			assert.Equal(t, tt.appID, s.AppID)
		})
	}
}

func TestSetAppID(t *testing.T) {
	c := Defaults()
	c.SetAppID(Auth, 99)
	c.SetAppID(OTP, 0)

	assert.Equal(t, 99, c.MustLookup(Auth).AppID)
	assert.Equal(t, 14, c.MustLookup(OTP).AppID, "non-positive ids are ignored")
}

func TestMerge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
services:
  - key: auth
    app_id: 21
  - key: billing
    app_id: 30
    name: billing-api
`), 0o600))

	c := Defaults()
	require.NoError(t, c.Merge(path))

	auth := c.MustLookup(Auth)
	assert.Equal(t, 21, auth.AppID)
	assert.Equal(t, "auth", auth.Name)

	billing, ok := c.Lookup("billing")
	require.True(t, ok)
	assert.Equal(t, "billing-api", billing.Label())
	assert.Len(t, c.All(), 5)
}

func TestMergeRejectsInvalidEntries(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "missing key", data: "services:\n  - app_id: 3\n"},
		{name: "zero app id", data: "services:\n  - key: auth\n"},
		{name: "not yaml", data: "services: [oops"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, Defaults().merge([]byte(tt.data)))
		})
	}
}

func TestMustLookupPanicsOnUnknownKey(t *testing.T) {
	assert.Panics(t, func() { Defaults().MustLookup("nope") })
}
