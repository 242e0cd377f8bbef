package btree

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"BurrowDB/types"
)

// stringKey is a fixed-width string key. Inputs shorter than StringSize are
// zero-padded; ordering is byte order over the full width.
type stringKey = [types.StringSize]byte

// keyCodec describes one key kind: its on-page width, ordering, and page
// accessors. The tree is generic over K and carries one of these.
type keyCodec[K any] struct {
	width   int
	compare func(a, b K) int
	get     func(b []byte) K
	put     func(b []byte, k K)
}

// keyOps bundles everything kind-specific the engine needs at open time.
type keyOps[K any] struct {
	codec    keyCodec[K]
	fromAny  func(v any) (K, error)
	leafCap  int
	innerCap int
}

func intOps() keyOps[int32] {
	return keyOps[int32]{
		codec: keyCodec[int32]{
			width: 4,
			compare: func(a, b int32) int {
				switch {
				case a < b:
					return -1
				case a > b:
					return 1
				}
				return 0
			},
			get: func(b []byte) int32 { return int32(binary.LittleEndian.Uint32(b)) },
			put: func(b []byte, k int32) { binary.LittleEndian.PutUint32(b, uint32(k)) },
		},
		fromAny:  intFromAny,
		leafCap:  LeafCapacityInt,
		innerCap: InnerCapacityInt,
	}
}

func doubleOps() keyOps[float64] {
	return keyOps[float64]{
		codec: keyCodec[float64]{
			width: 8,
			compare: func(a, b float64) int {
				switch {
				case a < b:
					return -1
				case a > b:
					return 1
				}
				return 0
			},
			get: func(b []byte) float64 { return math.Float64frombits(binary.LittleEndian.Uint64(b)) },
			put: func(b []byte, k float64) { binary.LittleEndian.PutUint64(b, math.Float64bits(k)) },
		},
		fromAny:  doubleFromAny,
		leafCap:  LeafCapacityDouble,
		innerCap: InnerCapacityDouble,
	}
}

func stringOps() keyOps[stringKey] {
	return keyOps[stringKey]{
		codec: keyCodec[stringKey]{
			width:   types.StringSize,
			compare: func(a, b stringKey) int { return bytes.Compare(a[:], b[:]) },
			get: func(b []byte) (k stringKey) {
				copy(k[:], b)
				return k
			},
			put: func(b []byte, k stringKey) { copy(b, k[:]) },
		},
		fromAny:  stringFromAny,
		leafCap:  LeafCapacityString,
		innerCap: InnerCapacityString,
	}
}

func intFromAny(v any) (int32, error) {
	switch k := v.(type) {
	case int32:
		return k, nil
	case int:
		if k < math.MinInt32 || k > math.MaxInt32 {
			return 0, fmt.Errorf("integer key %d out of range", k)
		}
		return int32(k), nil
	}
	return 0, fmt.Errorf("key %T: want int32 for an INTEGER index", v)
}

func doubleFromAny(v any) (float64, error) {
	if k, ok := v.(float64); ok {
		return k, nil
	}
	return 0, fmt.Errorf("key %T: want float64 for a DOUBLE index", v)
}

func stringFromAny(v any) (stringKey, error) {
	var k stringKey
	switch s := v.(type) {
	case string:
		copy(k[:], s)
		return k, nil
	case []byte:
		copy(k[:], s)
		return k, nil
	case stringKey:
		return s, nil
	}
	return k, fmt.Errorf("key %T: want string or []byte for a STRING index", v)
}

// keyFromRecord extracts the key at the attribute byte offset of a raw
// record buffer.
func (t *tree[K]) keyFromRecord(record []byte, offset int) (K, error) {
	var zero K
	if offset < 0 || offset+t.codec.width > len(record) {
		return zero, fmt.Errorf("record of %d bytes has no %d-byte key at offset %d",
			len(record), t.codec.width, offset)
	}
	return t.codec.get(record[offset : offset+t.codec.width]), nil
}
