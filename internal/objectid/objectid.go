// Package objectid implements SiteObjectId — the 32-byte identifier
// addressing a chain object — along with its two derivations: the
// base36 "self-encoding" used by subdomain names, and the deterministic
// dynamic-field id used to locate a resource without an RPC round trip
// (SPEC_FULL.md §3 invariants 1-2).
package objectid

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/walportal/gateway/internal/bcs"
)

// Size is the byte length of a SiteObjectId.
const Size = 32

// ID is a 32-byte chain object identifier.
type ID [Size]byte

// Zero is the all-zero object id, never a valid site.
var Zero ID

// Equal reports whether two ids are the same object.
func (id ID) Equal(other ID) bool {
	return subtle.ConstantTimeCompare(id[:], other[:]) == 1
}

// Hex returns the lowercase "0x"-prefixed hex representation.
func (id ID) Hex() string {
	return "0x" + hex.EncodeToString(id[:])
}

// FromHex parses a "0x"-prefixed (or bare) hex string into an ID.
func FromHex(s string) (ID, error) {
	var out ID
	s = strings.TrimPrefix(s, "0x")
	if len(s) != Size*2 {
		return out, fmt.Errorf("objectid: hex string must encode %d bytes, got %d hex chars", Size, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("objectid: invalid hex: %w", err)
	}
	copy(out[:], b)
	return out, nil
}

// base36Alphabet matches the lowercase-alphanumeric DNS-label convention
// subdomains use; math/big already emits lowercase letters for base 36 so
// this is mostly documentation of intent.
const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Base36 encodes the id as a lowercase base36 string, per invariant 1's
// "base36 self-encoding" of a 32-byte value. Leading zero bytes of id do
// not appear in the output (the numeric value simply has fewer digits);
// FromBase36 always re-pads to 32 bytes, which is what keeps the round
// trip in SPEC_FULL.md §8 ("Base36 ↔ hex round-trip") exact.
func (id ID) Base36() string {
	n := new(big.Int).SetBytes(id[:])
	return n.Text(36)
}

// FromBase36 decodes a lowercase base36 subdomain label into a SiteObjectId.
// It rejects strings that would overflow 32 bytes or that contain
// characters outside the base36 alphabet.
func FromBase36(s string) (ID, error) {
	var out ID
	if s == "" {
		return out, errors.New("objectid: empty base36 string")
	}
	for _, r := range s {
		if strings.IndexRune(base36Alphabet, r) < 0 {
			return out, fmt.Errorf("objectid: %q is not a valid base36 subdomain", s)
		}
	}
	n, ok := new(big.Int).SetString(s, 36)
	if !ok {
		return out, fmt.Errorf("objectid: %q is not valid base36", s)
	}
	b := n.Bytes()
	if len(b) > Size {
		return out, fmt.Errorf("objectid: base36 value %q overflows %d bytes", s, Size)
	}
	copy(out[Size-len(b):], b)
	return out, nil
}

// FieldType identifies the Move type tag under which a dynamic field's key
// is stored; it is part of Derive's input and does not require any RPC.
type FieldType string

// DeriveDynamicFieldID computes the id of the dynamic field named by
// keyBytes (already BCS-encoded by the caller, e.g. via bcs.EncodeString)
// under fieldType, attached to parent. This is a pure function: calling it
// twice with the same inputs yields identical bytes (SPEC_FULL.md §8
// "Dynamic-field id determinism").
//
// The hash primitive is blake2b-256 over parent || bcs(fieldType) || key,
// the concrete derivation scheme real on-chain "derived object id" systems
// use; the abstract spec leaves the primitive unspecified.
func DeriveDynamicFieldID(parent ID, fieldType FieldType, keyBytes []byte) ID {
	h, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256 only errors on a bad key, and we never pass one.
		panic(fmt.Sprintf("objectid: blake2b init: %v", err))
	}
	h.Write(parent[:])
	var typeBuf []byte
	typeBuf = bcs.EncodeString(typeBuf, string(fieldType))
	h.Write(typeBuf)
	h.Write(keyBytes)

	var out ID
	copy(out[:], h.Sum(nil))
	return out
}

// ResourcePathKey BCS-encodes path the way DeriveDynamicFieldID expects for
// the ResourcePath dynamic-field type (SPEC_FULL.md §4.3 step 3).
func ResourcePathKey(path string) []byte {
	var b []byte
	return bcs.EncodeString(b, path)
}
