// Package bcs implements the small slice of Binary Canonical Serialization
// used to decode on-chain dynamic-field envelopes: ULEB128 lengths,
// length-prefixed UTF-8 strings, fixed-width little-endian integers, and
// fixed-width big-endian 256-bit integers (see SPEC_FULL.md §3, §6).
//
// It is not a general-purpose BCS library — only the primitives the
// Resource/ResourcePath/DynamicField envelope needs are implemented.
package bcs

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrTruncated is returned when a decode reads past the end of the buffer.
var ErrTruncated = errors.New("bcs: truncated input")

// Reader decodes BCS primitives from a byte slice, advancing a cursor.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf for sequential decoding.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	return len(r.buf) - r.pos
}

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, ErrTruncated
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadULEB128 reads a ULEB128-encoded unsigned integer (used for BCS
// vector/string length prefixes).
func (r *Reader) ReadULEB128() (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := r.take(1)
		if err != nil {
			return 0, fmt.Errorf("bcs: reading uleb128: %w", err)
		}
		if shift >= 64 {
			return 0, errors.New("bcs: uleb128 overflow")
		}
		result |= uint64(b[0]&0x7f) << shift
		if b[0]&0x80 == 0 {
			break
		}
		shift += 7
	}
	return result, nil
}

// ReadBytes reads n raw bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	b, err := r.take(n)
	if err != nil {
		return nil, fmt.Errorf("bcs: reading %d bytes: %w", n, err)
	}
	return b, nil
}

// ReadString reads a ULEB128 length prefix followed by that many UTF-8 bytes.
func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadULEB128()
	if err != nil {
		return "", fmt.Errorf("bcs: reading string length: %w", err)
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", fmt.Errorf("bcs: reading string body: %w", err)
	}
	return string(b), nil
}

// ReadU8 reads a single byte.
func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadBool reads a single-byte boolean.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadU8()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

// ReadU32 reads a little-endian uint32.
func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadU64 reads a little-endian uint64.
func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadU256 reads a 256-bit integer stored as 32 raw bytes. Per SPEC_FULL.md
// §3/§6 this field is the one on-chain integer encoded big-endian rather
// than little-endian; callers that need the little-endian URL form of a
// blob id must reverse the returned bytes themselves (see resource.U256).
func (r *Reader) ReadU256() ([32]byte, error) {
	var out [32]byte
	b, err := r.take(32)
	if err != nil {
		return out, fmt.Errorf("bcs: reading u256: %w", err)
	}
	copy(out[:], b)
	return out, nil
}

// ReadOptionU64 reads an Option<u64>: one presence byte followed by the
// value if present.
func (r *Reader) ReadOptionU64() (*uint64, error) {
	present, err := r.ReadBool()
	if err != nil {
		return nil, fmt.Errorf("bcs: reading option presence: %w", err)
	}
	if !present {
		return nil, nil
	}
	v, err := r.ReadU64()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ReadMap reads a BCS map encoded as a ULEB128 entry count followed by that
// many (key, value) pairs, decoded by the supplied functions.
func ReadMap[K comparable, V any](r *Reader, readKey func(*Reader) (K, error), readVal func(*Reader) (V, error)) (map[K]V, error) {
	n, err := r.ReadULEB128()
	if err != nil {
		return nil, fmt.Errorf("bcs: reading map length: %w", err)
	}
	out := make(map[K]V, n)
	for i := uint64(0); i < n; i++ {
		k, err := readKey(r)
		if err != nil {
			return nil, fmt.Errorf("bcs: reading map key %d: %w", i, err)
		}
		v, err := readVal(r)
		if err != nil {
			return nil, fmt.Errorf("bcs: reading map value %d: %w", i, err)
		}
		out[k] = v
	}
	return out, nil
}

// EncodeULEB128 appends the ULEB128 encoding of n to dst.
func EncodeULEB128(dst []byte, n uint64) []byte {
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n != 0 {
			b |= 0x80
		}
		dst = append(dst, b)
		if n == 0 {
			return dst
		}
	}
}

// EncodeString appends the BCS encoding (ULEB128 length + UTF-8 bytes) of s
// to dst. Used to build dynamic-field key bytes for object-id derivation.
func EncodeString(dst []byte, s string) []byte {
	dst = EncodeULEB128(dst, uint64(len(s)))
	return append(dst, s...)
}
