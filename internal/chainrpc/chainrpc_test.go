package chainrpc_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walportal/gateway/internal/chainrpc"
)

func jsonRPCServer(t *testing.T, handle func(method string, params json.RawMessage) (any, *chainrpc.RPCError)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
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
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestCallStickToHealthyEndpoint(t *testing.T) {
	var calls atomic.Int32
	srv := jsonRPCServer(t, func(method string, params json.RawMessage) (any, *chainrpc.RPCError) {
		calls.Add(1)
		return map[string]string{"ok": "yes"}, nil
	})
	defer srv.Close()

	sel, err := chainrpc.New([]chainrpc.Endpoint{{URL: srv.URL}}, time.Second)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		resp, err := sel.Call(t.Context(), "getObject", []any{"0x1"})
		require.NoError(t, err)
		assert.Nil(t, resp.Error)
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestCallCollapsesConcurrentIdenticalCalls(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := jsonRPCServer(t, func(method string, params json.RawMessage) (any, *chainrpc.RPCError) {
		calls.Add(1)
		<-release
		return map[string]string{"ok": "yes"}, nil
	})
	defer srv.Close()

	sel, err := chainrpc.New([]chainrpc.Endpoint{{URL: srv.URL}}, time.Second)
	require.NoError(t, err)

	const n = 5
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			resp, err := sel.Call(t.Context(), "getObject", []any{"0x1"})
			require.NoError(t, err)
			assert.Nil(t, resp.Error)
		}()
	}

	// Give every goroutine a chance to join the in-flight call before the
	// handler unblocks.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestCallFallsOverToSecondEndpoint(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	good := jsonRPCServer(t, func(method string, params json.RawMessage) (any, *chainrpc.RPCError) {
		return map[string]string{"ok": "yes"}, nil
	})
	defer good.Close()

	sel, err := chainrpc.New([]chainrpc.Endpoint{
		{URL: bad.URL},
		{URL: good.URL},
	}, time.Second)
	require.NoError(t, err)

	resp, err := sel.Call(t.Context(), "getObject", []any{"0x1"})
	require.NoError(t, err)
	assert.Nil(t, resp.Error)
	assert.Equal(t, good.URL, sel.Selected(), "the winning endpoint of the race becomes selected")
}

func TestCallReturnsRPCErrorAsValidAnswer(t *testing.T) {
	srv := jsonRPCServer(t, func(method string, params json.RawMessage) (any, *chainrpc.RPCError) {
		return nil, &chainrpc.RPCError{Code: 404, Message: "object not found"}
	})
	defer srv.Close()

	sel, err := chainrpc.New([]chainrpc.Endpoint{{URL: srv.URL}}, time.Second)
	require.NoError(t, err)

	resp, err := sel.Call(t.Context(), "getObject", []any{"0x1"})
	require.NoError(t, err, "a chain-level error is a valid response, not a selector failure")
	require.NotNil(t, resp.Error)
	assert.Equal(t, 404, resp.Error.Code)
}

func TestCallAllEndpointsFail(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	sel, err := chainrpc.New([]chainrpc.Endpoint{{URL: bad.URL}, {URL: bad.URL}}, time.Second)
	require.NoError(t, err)

	_, err = sel.Call(t.Context(), "getObject", []any{"0x1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, chainrpc.ErrAllEndpointsFailed)
}

func TestGetNameRecordPrefersWalrusSiteID(t *testing.T) {
	srv := jsonRPCServer(t, func(method string, params json.RawMessage) (any, *chainrpc.RPCError) {
		assert.Equal(t, "getNameRecord", method)
		return chainrpc.NameRecord{WalrusSiteID: "0xsite", TargetAddress: "0xaddr"}, nil
	})
	defer srv.Close()

	sel, err := chainrpc.New([]chainrpc.Endpoint{{URL: srv.URL}}, time.Second)
	require.NoError(t, err)

	rec, err := sel.GetNameRecord(t.Context(), "example.sui")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "0xsite", rec.WalrusSiteID)
}

func TestMultiGetObjectsPreservesOrder(t *testing.T) {
	srv := jsonRPCServer(t, func(method string, params json.RawMessage) (any, *chainrpc.RPCError) {
		var args []json.RawMessage
		require.NoError(t, json.Unmarshal(params, &args))
		var ids []string
		require.NoError(t, json.Unmarshal(args[0], &ids))

		results := make([]chainrpc.ObjectResult, len(ids))
		for i, id := range ids {
			results[i] = chainrpc.ObjectResult{Data: &chainrpc.ObjectData{ObjectID: id}}
		}
		return results, nil
	})
	defer srv.Close()

	sel, err := chainrpc.New([]chainrpc.Endpoint{{URL: srv.URL}}, time.Second)
	require.NoError(t, err)

	results, err := sel.MultiGetObjects(t.Context(), []string{"0xa", "0xb", "0xc"}, true, false)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "0xa", results[0].Data.ObjectID)
	assert.Equal(t, "0xb", results[1].Data.ObjectID)
	assert.Equal(t, "0xc", results[2].Data.ObjectID)
}

func TestRetriesBeforeFailingOverWithinSingleEndpoint(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": 1, "result": map[string]string{"ok": "yes"}})
	}))
	defer srv.Close()

	sel, err := chainrpc.New([]chainrpc.Endpoint{{URL: srv.URL, Retries: 2}}, time.Second)
	require.NoError(t, err)

	resp, err := sel.Call(t.Context(), "getObject", []any{"0x1"})
	require.NoError(t, err)
	assert.Nil(t, resp.Error)
	assert.Equal(t, int32(2), attempts.Load())
}
