package blocklist_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walportal/gateway/internal/blocklist"
)

func TestNoopCheckerAlwaysFalse(t *testing.T) {
	c := blocklist.NoopChecker{}
	require.NoError(t, c.Init(t.Context()))
	ok, err := c.Contains(t.Context(), "anything")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.Close())
}

func TestManagedCheckerSyncsAndAnswersMembership(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"version": 1,
			"members": []string{"0xblocked", "example.sui"},
		})
	}))
	defer srv.Close()

	c := blocklist.NewManagedChecker(srv.URL, "", 50*time.Millisecond, nil)
	require.NoError(t, c.Init(t.Context()))
	defer c.Close()

	ok, err := c.Contains(t.Context(), "0xblocked")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Contains(t.Context(), "0xallowed")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestManagedCheckerIgnoresStaleVersion(t *testing.T) {
	var version int64 = 2
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"version": version,
			"members": []string{"fresh"},
		})
	}))
	defer srv.Close()

	c := blocklist.NewManagedChecker(srv.URL, "", time.Hour, nil)
	require.NoError(t, c.Init(t.Context()))
	defer c.Close()

	ok, _ := c.Contains(t.Context(), "fresh")
	assert.True(t, ok)

	// A re-fetch advertising an older version must not clobber current data.
	version = 1
	require.NoError(t, c.Ping(t.Context()))
	ok, _ = c.Contains(t.Context(), "fresh")
	assert.True(t, ok, "stale version must not overwrite the current member set")
}

func TestManagedCheckerInitFailsOnUnreachableEndpoint(t *testing.T) {
	c := blocklist.NewManagedChecker("http://127.0.0.1:0", "", time.Second, nil)
	err := c.Init(t.Context())
	assert.Error(t, err)
}
