// Package nameresolver implements the Name Resolver (C2): mapping a
// request's subdomain label to a chain object id via a hardcoded table,
// base36 self-encoding, or a name-service lookup, in that order
// (SPEC_FULL.md §4.2).
package nameresolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/walportal/gateway/internal/chainrpc"
	"github.com/walportal/gateway/internal/objectid"
)

// ErrNoObjectID means the subdomain is syntactically fine but names nothing:
// no hardcoded entry, not valid base36 (or base36 disabled), and the
// name-service has no record for it.
var ErrNoObjectID = errors.New("nameresolver: no object id for subdomain")

// ErrUpstreamFailed means the name-service lookup could not be completed
// because every chain RPC endpoint failed.
var ErrUpstreamFailed = errors.New("nameresolver: full node lookup failed")

// nameServiceSuffix is appended to a bare subdomain before querying the
// chain name service.
const nameServiceSuffix = ".sui"

// Resolver resolves subdomains to SiteObjectIds.
type Resolver struct {
	hardcoded        map[string]objectid.ID
	b36Enabled       bool
	rpc              *chainrpc.Selector
	nameServiceSuffix string
}

// New builds a Resolver. hardcoded may be nil; b36Enabled gates step 2
// (`b36_domain_resolution` in configuration).
func New(hardcoded map[string]objectid.ID, b36Enabled bool, rpc *chainrpc.Selector) *Resolver {
	return &Resolver{
		hardcoded:         hardcoded,
		b36Enabled:        b36Enabled,
		rpc:               rpc,
		nameServiceSuffix: nameServiceSuffix,
	}
}

// Resolve maps subdomain to a SiteObjectId, trying the hardcoded table,
// then base36 self-encoding, then a name-service lookup.
func (r *Resolver) Resolve(ctx context.Context, subdomain string) (objectid.ID, error) {
	if id, ok := r.hardcoded[subdomain]; ok {
		return id, nil
	}

	// Base36 is only attempted for labels with no dot, so a multi-label
	// name-service name can never be hijacked by an accidental base36
	// collision.
	if r.b36Enabled && !strings.Contains(subdomain, ".") {
		if id, err := objectid.FromBase36(subdomain); err == nil {
			return id, nil
		}
	}

	return r.resolveViaNameService(ctx, subdomain)
}

func (r *Resolver) resolveViaNameService(ctx context.Context, subdomain string) (objectid.ID, error) {
	rec, err := r.rpc.GetNameRecord(ctx, subdomain+r.nameServiceSuffix)
	if err != nil {
		if errors.Is(err, chainrpc.ErrAllEndpointsFailed) {
			return objectid.Zero, ErrUpstreamFailed
		}
		var rpcErr *chainrpc.RPCError
		if errors.As(err, &rpcErr) {
			return objectid.Zero, ErrNoObjectID
		}
		return objectid.Zero, fmt.Errorf("nameresolver: %w", err)
	}
	if rec == nil {
		return objectid.Zero, ErrNoObjectID
	}

	// walrus_site_id takes precedence over target_address.
	hexID := rec.WalrusSiteID
	if hexID == "" {
		hexID = rec.TargetAddress
	}
	if hexID == "" {
		return objectid.Zero, ErrNoObjectID
	}

	id, err := objectid.FromHex(hexID)
	if err != nil {
		return objectid.Zero, fmt.Errorf("nameresolver: name record holds an invalid object id %q: %w", hexID, err)
	}
	return id, nil
}
