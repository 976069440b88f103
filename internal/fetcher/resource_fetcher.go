// Package fetcher implements the Resource Fetcher (C3) and the URL Fetcher
// orchestrator (C5): deriving and batch-fetching a site's Resource object,
// following display-field redirects, applying the routes table on a miss,
// and retrieving + verifying the underlying blob (SPEC_FULL.md §4.3, §4.5).
package fetcher

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/walportal/gateway/internal/chainrpc"
	"github.com/walportal/gateway/internal/objectid"
	"github.com/walportal/gateway/internal/resource"
	"github.com/walportal/gateway/internal/routes"
)

// maxRedirectDepth is the maximum number of "walrus site address" hops a
// single fetch may follow before giving up (SPEC_FULL.md §3 invariant 3).
const maxRedirectDepth = 3

// walrusSiteAddressKey is the display-field key C3 checks for a redirect.
const walrusSiteAddressKey = "walrus site address"

// ErrNotFound means the resource's dynamic-field object carries no data —
// a normal, expected outcome that triggers routes matching.
var ErrNotFound = errors.New("fetcher: resource not found")

// ErrTooManyRedirects means a chain of "walrus site address" redirects
// exceeded maxRedirectDepth.
var ErrTooManyRedirects = errors.New("fetcher: too many redirects")

// ErrLoopDetected means a site object id was visited twice in the same
// redirect chain.
var ErrLoopDetected = errors.New("fetcher: redirect loop detected")

// ResourceFetcher implements C3 and the single-object routes-table load
// C4 depends on.
type ResourceFetcher struct {
	rpc *chainrpc.Selector
}

// NewResourceFetcher builds a ResourceFetcher over rpc.
func NewResourceFetcher(rpc *chainrpc.Selector) *ResourceFetcher {
	return &ResourceFetcher{rpc: rpc}
}

// Fetch resolves path on siteID, following redirects. visited accumulates
// site ids seen in this call chain across recursive invocations and must
// be a fresh map per top-level request.
func (f *ResourceFetcher) Fetch(ctx context.Context, siteID objectid.ID, path string, visited map[objectid.ID]bool, depth int) (resource.VersionedResource, error) {
	if visited[siteID] {
		return resource.VersionedResource{}, ErrLoopDetected
	}
	if depth >= maxRedirectDepth {
		return resource.VersionedResource{}, ErrTooManyRedirects
	}

	dfID := objectid.DeriveDynamicFieldID(siteID, resource.ResourcePathFieldType, objectid.ResourcePathKey(path))

	results, err := f.rpc.MultiGetObjects(ctx, []string{siteID.Hex(), dfID.Hex()}, true, true)
	if err != nil {
		return resource.VersionedResource{}, fmt.Errorf("fetcher: multiGetObjects: %w", err)
	}
	if len(results) != 2 {
		return resource.VersionedResource{}, fmt.Errorf("fetcher: multiGetObjects returned %d results, want 2", len(results))
	}

	visited[siteID] = true

	siteResult, dfResult := results[0], results[1]

	if redirectID, ok := redirectTarget(siteResult); ok {
		return f.Fetch(ctx, redirectID, path, visited, depth+1)
	}

	if dfResult.Data == nil || dfResult.Data.Bcs == nil {
		return resource.VersionedResource{}, ErrNotFound
	}

	raw, err := base64.StdEncoding.DecodeString(dfResult.Data.Bcs.BcsBytes)
	if err != nil {
		return resource.VersionedResource{}, fmt.Errorf("fetcher: decoding bcsBytes: %w", err)
	}

	res, err := resource.DecodeDynamicField(raw, siteID)
	if err != nil {
		return resource.VersionedResource{}, fmt.Errorf("fetcher: decoding resource: %w", err)
	}

	return resource.VersionedResource{
		Resource:      res,
		ObjectVersion: dfResult.Data.Version,
		ObjectID:      dfID,
	}, nil
}

// redirectTarget inspects a site object's display record for the
// "walrus site address" key that signals a redirect.
func redirectTarget(siteResult chainrpc.ObjectResult) (objectid.ID, bool) {
	if siteResult.Data == nil || siteResult.Data.Display == nil {
		return objectid.Zero, false
	}
	addr, ok := siteResult.Data.Display.Data[walrusSiteAddressKey]
	if !ok || addr == "" {
		return objectid.Zero, false
	}
	id, err := objectid.FromHex(addr)
	if err != nil {
		return objectid.Zero, false
	}
	return id, true
}

// CurrentVersion returns the dynamic field id and on-chain version of
// siteID's resource at path, without decoding its BCS payload — the single
// cheap GET the cache layer (C7) needs to validate a hit (SPEC_FULL.md
// §4.7 step 3). It does not follow "walrus site address" redirects: a
// response served through a redirect carries the target site's field id,
// which differs from the id derived here from siteID, so a cached entry of
// a redirecting site never validates and each lookup of it falls back to
// a full Fetch.
func (f *ResourceFetcher) CurrentVersion(ctx context.Context, siteID objectid.ID, path string) (objectid.ID, string, error) {
	dfID := objectid.DeriveDynamicFieldID(siteID, resource.ResourcePathFieldType, objectid.ResourcePathKey(path))
	result, err := f.rpc.GetObject(ctx, dfID.Hex(), false, false)
	if err != nil {
		return objectid.Zero, "", fmt.Errorf("fetcher: fetching current version: %w", err)
	}
	if result.Data == nil {
		return objectid.Zero, "", ErrNotFound
	}
	return dfID, result.Data.Version, nil
}

// FetchRoutes loads and parses siteID's routes table. A routes object with
// no data is a legal "no routes" answer, returned as an empty Table rather
// than an error.
func (f *ResourceFetcher) FetchRoutes(ctx context.Context, siteID objectid.ID) (*routes.Table, error) {
	dfID := objectid.DeriveDynamicFieldID(siteID, resource.RoutesFieldType, resource.RoutesFieldKey)

	result, err := f.rpc.GetObject(ctx, dfID.Hex(), true, false)
	if err != nil {
		return nil, fmt.Errorf("fetcher: fetching routes object: %w", err)
	}
	if result.Data == nil || result.Data.Bcs == nil {
		return routes.New(nil)
	}

	raw, err := base64.StdEncoding.DecodeString(result.Data.Bcs.BcsBytes)
	if err != nil {
		return nil, fmt.Errorf("fetcher: decoding routes bcsBytes: %w", err)
	}

	entries, err := resource.DecodeRoutesFieldOrdered(raw)
	if err != nil {
		return nil, fmt.Errorf("fetcher: decoding routes field: %w", err)
	}
	return routes.New(entries)
}
