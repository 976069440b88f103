package nameresolver_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walportal/gateway/internal/chainrpc"
	"github.com/walportal/gateway/internal/nameresolver"
	"github.com/walportal/gateway/internal/objectid"
)

func newSelector(t *testing.T, handle func(method string, params json.RawMessage) (any, *chainrpc.RPCError)) *chainrpc.Selector {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64          `json:"id"`
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		result, rpcErr := handle(req.Method, req.Params)
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)

	sel, err := chainrpc.New([]chainrpc.Endpoint{{URL: srv.URL}}, time.Second)
	require.NoError(t, err)
	return sel
}

func TestResolveHardcodedTable(t *testing.T) {
	var want objectid.ID
	want[0] = 0xaa

	sel := newSelector(t, func(method string, params json.RawMessage) (any, *chainrpc.RPCError) {
		t.Fatal("hardcoded entries must not hit the RPC layer")
		return nil, nil
	})
	r := nameresolver.New(map[string]objectid.ID{"example": want}, false, sel)

	got, err := r.Resolve(t.Context(), "example")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResolveBase36WhenEnabledAndNoDot(t *testing.T) {
	var want objectid.ID
	want[31] = 42

	sel := newSelector(t, func(method string, params json.RawMessage) (any, *chainrpc.RPCError) {
		t.Fatal("a valid base36 label must not fall through to name service")
		return nil, nil
	})
	r := nameresolver.New(nil, true, sel)

	got, err := r.Resolve(t.Context(), want.Base36())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResolveSkipsBase36WhenDisabled(t *testing.T) {
	var siteID objectid.ID
	siteID[0] = 7

	sel := newSelector(t, func(method string, params json.RawMessage) (any, *chainrpc.RPCError) {
		return chainrpc.NameRecord{WalrusSiteID: siteID.Hex()}, nil
	})
	r := nameresolver.New(nil, false, sel)

	got, err := r.Resolve(t.Context(), "1") // "1" is valid base36 but resolution is disabled
	require.NoError(t, err)
	assert.Equal(t, siteID, got)
}

func TestResolveSkipsBase36WhenLabelContainsDot(t *testing.T) {
	var siteID objectid.ID
	siteID[0] = 9

	sel := newSelector(t, func(method string, params json.RawMessage) (any, *chainrpc.RPCError) {
		return chainrpc.NameRecord{WalrusSiteID: siteID.Hex()}, nil
	})
	r := nameresolver.New(nil, true, sel)

	got, err := r.Resolve(t.Context(), "sub.domain")
	require.NoError(t, err)
	assert.Equal(t, siteID, got)
}

func TestResolveViaNameServicePrefersWalrusSiteID(t *testing.T) {
	var siteID, addrID objectid.ID
	siteID[0] = 1
	addrID[0] = 2

	sel := newSelector(t, func(method string, params json.RawMessage) (any, *chainrpc.RPCError) {
		return chainrpc.NameRecord{WalrusSiteID: siteID.Hex(), TargetAddress: addrID.Hex()}, nil
	})
	r := nameresolver.New(nil, false, sel)

	got, err := r.Resolve(t.Context(), "example")
	require.NoError(t, err)
	assert.Equal(t, siteID, got)
}

func TestResolveViaNameServiceFallsBackToTargetAddress(t *testing.T) {
	var addrID objectid.ID
	addrID[0] = 3

	sel := newSelector(t, func(method string, params json.RawMessage) (any, *chainrpc.RPCError) {
		return chainrpc.NameRecord{TargetAddress: addrID.Hex()}, nil
	})
	r := nameresolver.New(nil, false, sel)

	got, err := r.Resolve(t.Context(), "example")
	require.NoError(t, err)
	assert.Equal(t, addrID, got)
}

func TestResolveNoRecordIsNoObjectID(t *testing.T) {
	sel := newSelector(t, func(method string, params json.RawMessage) (any, *chainrpc.RPCError) {
		return nil, nil
	})
	r := nameresolver.New(nil, false, sel)

	_, err := r.Resolve(t.Context(), "missing")
	assert.ErrorIs(t, err, nameresolver.ErrNoObjectID)
}

func TestResolveRPCErrorIsNoObjectID(t *testing.T) {
	sel := newSelector(t, func(method string, params json.RawMessage) (any, *chainrpc.RPCError) {
		return nil, &chainrpc.RPCError{Code: 404, Message: "not registered"}
	})
	r := nameresolver.New(nil, false, sel)

	_, err := r.Resolve(t.Context(), "missing")
	assert.ErrorIs(t, err, nameresolver.ErrNoObjectID)
}

func TestResolveAllEndpointsDownIsUpstreamFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sel, err := chainrpc.New([]chainrpc.Endpoint{{URL: srv.URL}}, 50*time.Millisecond)
	require.NoError(t, err)
	r := nameresolver.New(nil, false, sel)

	_, err = r.Resolve(t.Context(), "example")
	assert.ErrorIs(t, err, nameresolver.ErrUpstreamFailed)
}
