package fetcher_test

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walportal/gateway/internal/bcs"
	"github.com/walportal/gateway/internal/blocklist"
	"github.com/walportal/gateway/internal/chainrpc"
	"github.com/walportal/gateway/internal/fetcher"
	"github.com/walportal/gateway/internal/nameresolver"
	"github.com/walportal/gateway/internal/objectid"
	"github.com/walportal/gateway/internal/resource"
)

type blockingChecker struct{ blocked map[string]bool }

func (c blockingChecker) Init(context.Context) error { return nil }
func (c blockingChecker) Contains(_ context.Context, key string) (bool, error) {
	return c.blocked[key], nil
}
func (c blockingChecker) Ping(context.Context) error { return nil }
func (c blockingChecker) Close() error               { return nil }

func newTestFetcher(t *testing.T, siteID objectid.ID, res resource.Resource, aggregatorBody []byte, aggregatorStatus func(attempt int) int) *fetcher.URLFetcher {
	t.Helper()

	dfID := objectid.DeriveDynamicFieldID(siteID, resource.ResourcePathFieldType, objectid.ResourcePathKey(res.Path))
	envelope := encodeResourceEnvelope(t, siteID, res.Path, res)

	sel := rpcServer(t, func(method string, params json.RawMessage) (any, *chainrpc.RPCError) {
		switch method {
		case "multiGetObjects":
			return []chainrpc.ObjectResult{
				{Data: &chainrpc.ObjectData{ObjectID: siteID.Hex(), Version: "1"}},
				{Data: &chainrpc.ObjectData{ObjectID: dfID.Hex(), Version: "5", Bcs: &struct {
					BcsBytes string `json:"bcsBytes"`
				}{BcsBytes: envelope}}},
			}, nil
		case "getObject":
			var inner []byte
			inner = bcs.EncodeULEB128(inner, 0)
			var routesOuter []byte
			routesOuter = bcs.EncodeULEB128(routesOuter, uint64(len(inner)))
			routesOuter = append(routesOuter, inner...)
			return chainrpc.ObjectResult{Data: &chainrpc.ObjectData{ObjectID: "0x0", Version: "1", Bcs: &struct {
				BcsBytes string `json:"bcsBytes"`
			}{BcsBytes: base64.StdEncoding.EncodeToString(routesOuter)}}}, nil
		case "getNameRecord":
			return nil, nil
		}
		t.Fatalf("unexpected method %s", method)
		return nil, nil
	})

	var attempt atomic.Int32
	aggSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(attempt.Add(1))
		status := http.StatusOK
		if aggregatorStatus != nil {
			status = aggregatorStatus(n)
		}
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write(aggregatorBody)
		}
	}))
	t.Cleanup(aggSrv.Close)

	resolver := nameresolver.New(map[string]objectid.ID{"mysite": siteID}, false, sel)
	rf := fetcher.NewResourceFetcher(sel)
	uf, err := fetcher.New(resolver, rf, []string{aggSrv.URL}, nil)
	require.NoError(t, err)
	return uf
}

func TestResolveAndFetchServesMatchingBlob(t *testing.T) {
	var siteID objectid.ID
	siteID[0] = 0x21

	body := []byte("<html>hello</html>")
	digest := sha256.Sum256(body)
	var blobHash resource.U256
	copy(blobHash[:], digest[:])

	res := resource.Resource{
		Path:     "/index.html",
		Headers:  map[string]string{"content-type": "text/html"},
		BlobHash: blobHash,
	}

	uf := newTestFetcher(t, siteID, res, body, nil)

	resp, err := uf.ResolveAndFetch(t.Context(), fetcher.DomainDetails{Subdomain: "mysite", Path: "/index.html"}, nil, blocklist.NoopChecker{})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, body, resp.Body)
	dfID := objectid.DeriveDynamicFieldID(siteID, resource.ResourcePathFieldType, objectid.ResourcePathKey("/index.html"))
	assert.Equal(t, dfID.Hex(), resp.Headers["x-resource-sui-object-id"])
}

func TestResolveAndFetchReturns422OnHashMismatch(t *testing.T) {
	var siteID objectid.ID
	siteID[0] = 0x22

	res := resource.Resource{Path: "/index.html"} // zero BlobHash, won't match any body
	uf := newTestFetcher(t, siteID, res, []byte("mismatched body"), nil)

	resp, err := uf.ResolveAndFetch(t.Context(), fetcher.DomainDetails{Subdomain: "mysite", Path: "/index.html"}, nil, blocklist.NoopChecker{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Status)
}

func TestResolveAndFetchRetriesOn500ThenSucceeds(t *testing.T) {
	var siteID objectid.ID
	siteID[0] = 0x23

	body := []byte("recovered")
	digest := sha256.Sum256(body)
	var blobHash resource.U256
	copy(blobHash[:], digest[:])

	res := resource.Resource{Path: "/index.html", BlobHash: blobHash}
	uf := newTestFetcher(t, siteID, res, body, func(attempt int) int {
		if attempt < 2 {
			return http.StatusInternalServerError
		}
		return http.StatusOK
	})

	resp, err := uf.ResolveAndFetch(t.Context(), fetcher.DomainDetails{Subdomain: "mysite", Path: "/index.html"}, nil, blocklist.NoopChecker{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, body, resp.Body)
}

func TestResolveAndFetchBlockedSiteIsNotFound(t *testing.T) {
	var siteID objectid.ID
	siteID[0] = 0x24

	res := resource.Resource{Path: "/index.html"}
	uf := newTestFetcher(t, siteID, res, []byte("x"), nil)

	checker := blockingChecker{blocked: map[string]bool{siteID.Hex(): true}}
	resp, err := uf.ResolveAndFetch(t.Context(), fetcher.DomainDetails{Subdomain: "mysite", Path: "/index.html"}, nil, checker)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestResolveAndFetchUnknownSubdomainIsNotFound(t *testing.T) {
	var siteID objectid.ID
	siteID[0] = 0x25
	res := resource.Resource{Path: "/index.html"}
	uf := newTestFetcher(t, siteID, res, []byte("x"), nil)

	resp, err := uf.ResolveAndFetch(t.Context(), fetcher.DomainDetails{Subdomain: "doesnotexist", Path: "/index.html"}, nil, blocklist.NoopChecker{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestResolveAndFetchUsesPreResolvedID(t *testing.T) {
	var siteID objectid.ID
	siteID[0] = 0x26

	body := []byte("preresolved")
	digest := sha256.Sum256(body)
	var blobHash resource.U256
	copy(blobHash[:], digest[:])
	res := resource.Resource{Path: "/index.html", BlobHash: blobHash}

	uf := newTestFetcher(t, siteID, res, body, nil)

	resp, err := uf.ResolveAndFetch(t.Context(), fetcher.DomainDetails{Subdomain: "ignored-because-preresolved", Path: "/index.html"}, &siteID, blocklist.NoopChecker{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, body, resp.Body)
}

func TestNewRejectsEmptyAggregatorList(t *testing.T) {
	_, err := fetcher.New(nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestAggregatorRetryDefaults(t *testing.T) {
	// A smoke test that retryDelay defaults sanely; full timing behavior is
	// exercised indirectly by TestResolveAndFetchRetriesOn500ThenSucceeds.
	assert.Equal(t, time.Second, fetcher.DefaultAggregatorRetryDelay)
	assert.Equal(t, 3, fetcher.DefaultAggregatorAttempts)
}
