// Package resource decodes the on-chain Resource descriptor — the record
// naming one served path's headers, blob id, blob hash, and optional byte
// range — from its BCS dynamic-field envelope, and derives the two Base64
// encodings invariant 1 of SPEC_FULL.md §3 requires from a blob id/hash.
package resource

import (
	"encoding/base64"
	"fmt"

	"github.com/walportal/gateway/internal/bcs"
	"github.com/walportal/gateway/internal/objectid"
)

// U256 is a 256-bit integer exactly as it appears on the wire: 32 bytes,
// big-endian (SPEC_FULL.md §6 — the one field BCS encodes big-endian
// rather than little-endian).
type U256 [32]byte

// reversed returns u's bytes in the opposite order, used to go from the
// wire's big-endian representation to the little-endian one blob-id URLs
// use.
func (u U256) reversed() []byte {
	out := make([]byte, len(u))
	for i, b := range u {
		out[len(u)-1-i] = b
	}
	return out
}

// BlobIDURLForm returns the URL-safe, unpadded Base64 of u's little-endian
// bytes — the form the aggregator URL embeds (invariant 1).
func (u U256) BlobIDURLForm() string {
	return base64.RawURLEncoding.EncodeToString(u.reversed())
}

// StandardBase64 returns the standard (non-URL-safe) Base64 of u's raw
// wire bytes. For blob_hash this must equal Base64(SHA-256(body)) exactly
// (invariant 1); we do not reverse, since a hash digest has no inherent
// endianness and the wire already carries it byte-for-byte.
func (u U256) StandardBase64() string {
	return base64.StdEncoding.EncodeToString(u[:])
}

// Range is an optional byte range request against the aggregator.
type Range struct {
	Start *uint64
	End   *uint64
}

// Resource is the binary record describing one served path.
type Resource struct {
	Path     string
	Headers  map[string]string
	BlobID   U256
	BlobHash U256
	Range    *Range
}

// VersionedResource is a Resource annotated with the on-chain object
// version and id it was fetched as, the two fields the cache layer (C7)
// compares for validity.
type VersionedResource struct {
	Resource
	ObjectVersion string
	ObjectID      objectid.ID
}

// ResourcePathFieldType is the Move type tag dynamic fields keyed by a
// resource path are stored under.
const ResourcePathFieldType objectid.FieldType = "0x0::site::ResourcePath"

// RoutesFieldKey is the fixed byte string under which the site's routes
// table is stored as a dynamic field of type vector<u8> (SPEC_FULL.md §4.4).
var RoutesFieldKey = []byte("routes")

// RoutesFieldType is the Move type tag for the routes dynamic field.
const RoutesFieldType objectid.FieldType = "vector<u8>"

// DecodeDynamicField decodes a DynamicField<ResourcePath, Resource>
// envelope's BCS bytes and returns the inner Resource (SPEC_FULL.md §6
// "Binary format"). expectParent is validated against the envelope's own
// parent_id field to catch a misrouted object.
func DecodeDynamicField(data []byte, expectParent objectid.ID) (Resource, error) {
	r := bcs.NewReader(data)

	parentBytes, err := r.ReadBytes(objectid.Size)
	if err != nil {
		return Resource{}, fmt.Errorf("resource: reading parent_id: %w", err)
	}
	var parent objectid.ID
	copy(parent[:], parentBytes)
	if !parent.Equal(expectParent) {
		return Resource{}, fmt.Errorf("resource: dynamic field parent_id %s does not match expected %s", parent.Hex(), expectParent.Hex())
	}

	// name: ResourcePath { path: string }
	if _, err := r.ReadString(); err != nil {
		return Resource{}, fmt.Errorf("resource: reading ResourcePath.path (name): %w", err)
	}

	return decodeResourceValue(r)
}

// decodeResourceValue decodes the `value: Resource` portion of the
// envelope.
func decodeResourceValue(r *bcs.Reader) (Resource, error) {
	var res Resource
	var err error

	res.Path, err = r.ReadString()
	if err != nil {
		return res, fmt.Errorf("resource: reading path: %w", err)
	}

	res.Headers, err = bcs.ReadMap(r,
		func(rr *bcs.Reader) (string, error) { return rr.ReadString() },
		func(rr *bcs.Reader) (string, error) { return rr.ReadString() },
	)
	if err != nil {
		return res, fmt.Errorf("resource: reading headers: %w", err)
	}

	blobID, err := r.ReadU256()
	if err != nil {
		return res, fmt.Errorf("resource: reading blob_id: %w", err)
	}
	res.BlobID = U256(blobID)

	blobHash, err := r.ReadU256()
	if err != nil {
		return res, fmt.Errorf("resource: reading blob_hash: %w", err)
	}
	res.BlobHash = U256(blobHash)

	hasRange, err := r.ReadBool()
	if err != nil {
		return res, fmt.Errorf("resource: reading range presence: %w", err)
	}
	if hasRange {
		start, err := r.ReadOptionU64()
		if err != nil {
			return res, fmt.Errorf("resource: reading range.start: %w", err)
		}
		end, err := r.ReadOptionU64()
		if err != nil {
			return res, fmt.Errorf("resource: reading range.end: %w", err)
		}
		res.Range = &Range{Start: start, End: end}
	}

	return res, nil
}

// RouteEntry is one `pattern -> target` pair of a site's routes table, kept
// in the order the chain object stored it so the routes engine can use
// insertion order as its tie-break (SPEC_FULL.md §4.4).
type RouteEntry struct {
	Pattern string
	Target  string
}

// DecodeRoutesFieldOrdered decodes the routes dynamic field's `vector<u8>`
// value — itself a BCS-encoded `pattern -> target` map — preserving wire
// order. An empty or truncated payload is an error; a site with no routes
// object at all is handled by the caller without calling this function.
func DecodeRoutesFieldOrdered(valueBytes []byte) ([]RouteEntry, error) {
	r := bcs.NewReader(valueBytes)
	n, err := r.ReadULEB128()
	if err != nil {
		return nil, fmt.Errorf("resource: reading routes vector length: %w", err)
	}
	inner, err := r.ReadBytes(int(n))
	if err != nil {
		return nil, fmt.Errorf("resource: reading routes vector body: %w", err)
	}

	rr := bcs.NewReader(inner)
	count, err := rr.ReadULEB128()
	if err != nil {
		return nil, fmt.Errorf("resource: reading routes map length: %w", err)
	}
	entries := make([]RouteEntry, 0, count)
	for i := uint64(0); i < count; i++ {
		pattern, err := rr.ReadString()
		if err != nil {
			return nil, fmt.Errorf("resource: reading route pattern %d: %w", i, err)
		}
		target, err := rr.ReadString()
		if err != nil {
			return nil, fmt.Errorf("resource: reading route target %d: %w", i, err)
		}
		entries = append(entries, RouteEntry{Pattern: pattern, Target: target})
	}
	return entries, nil
}

// DecodeRoutesField decodes the same payload as DecodeRoutesFieldOrdered
// into a Go map, for callers that don't care about tie-break order.
func DecodeRoutesField(valueBytes []byte) (map[string]string, error) {
	entries, err := DecodeRoutesFieldOrdered(valueBytes)
	if err != nil {
		return nil, err
	}
	routes := make(map[string]string, len(entries))
	for _, e := range entries {
		routes[e.Pattern] = e.Target
	}
	return routes, nil
}
