package btree

import (
	"encoding/binary"

	"BurrowDB/types"
)

// Node pages are overlays on the raw frame bytes handed out by the buffer
// manager; nothing is tagged in the page itself. A leaf starts with its
// right-sibling pointer, then the key array, then the aligned RID array. A
// non-leaf starts with its level, then the key array, then the child array
// (one more child than keys). Occupancy is implicit: a leaf slot is occupied
// iff its RID has a nonzero page number, a non-leaf slot iff the child
// pointer is nonzero, and occupied slots are a left-packed prefix.
const (
	leafHeaderSize  = 4 // rightSib uint32
	innerHeaderSize = 2 // level uint16
)

// Per-kind node capacities: the maximal entry counts that fit a page after
// the header fields.
const (
	LeafCapacityInt    = (types.PageSize - leafHeaderSize) / (4 + types.RecordIDSize)
	LeafCapacityDouble = (types.PageSize - leafHeaderSize) / (8 + types.RecordIDSize)
	LeafCapacityString = (types.PageSize - leafHeaderSize) / (types.StringSize + types.RecordIDSize)

	InnerCapacityInt    = (types.PageSize - innerHeaderSize - 4) / (4 + 4)
	InnerCapacityDouble = (types.PageSize - innerHeaderSize - 4) / (8 + 4)
	InnerCapacityString = (types.PageSize - innerHeaderSize - 4) / (types.StringSize + 4)
)

// ridKeyPair is a leaf-level entry.
type ridKeyPair[K any] struct {
	rid types.RecordID
	key K
}

// pageKeyPair is a separator promoted out of a split.
type pageKeyPair[K any] struct {
	pageNo uint32
	key    K
}

type leafNode[K any] struct {
	data []byte
	c    *keyCodec[K]
	cap  int
}

func (t *tree[K]) leafNode(data []byte) leafNode[K] {
	return leafNode[K]{data: data, c: &t.codec, cap: t.leafCap}
}

func (n leafNode[K]) rightSib() uint32 {
	return binary.LittleEndian.Uint32(n.data[0:4])
}

func (n leafNode[K]) setRightSib(pageNo uint32) {
	binary.LittleEndian.PutUint32(n.data[0:4], pageNo)
}

func (n leafNode[K]) key(i int) K {
	off := leafHeaderSize + i*n.c.width
	return n.c.get(n.data[off : off+n.c.width])
}

func (n leafNode[K]) setKey(i int, k K) {
	off := leafHeaderSize + i*n.c.width
	n.c.put(n.data[off:off+n.c.width], k)
}

func (n leafNode[K]) ridOff(i int) int {
	return leafHeaderSize + n.cap*n.c.width + i*types.RecordIDSize
}

func (n leafNode[K]) rid(i int) types.RecordID {
	off := n.ridOff(i)
	return types.RecordID{
		PageNumber: binary.LittleEndian.Uint32(n.data[off : off+4]),
		SlotNumber: binary.LittleEndian.Uint16(n.data[off+4 : off+6]),
	}
}

func (n leafNode[K]) setRID(i int, r types.RecordID) {
	off := n.ridOff(i)
	binary.LittleEndian.PutUint32(n.data[off:off+4], r.PageNumber)
	binary.LittleEndian.PutUint16(n.data[off+4:off+6], r.SlotNumber)
}

func (n leafNode[K]) occupied(i int) bool {
	return n.rid(i).PageNumber != 0
}

func (n leafNode[K]) full() bool {
	return n.occupied(n.cap - 1)
}

// count returns the number of occupied slots.
func (n leafNode[K]) count() int {
	i := 0
	for i < n.cap && n.occupied(i) {
		i++
	}
	return i
}

type innerNode[K any] struct {
	data []byte
	c    *keyCodec[K]
	cap  int
}

func (t *tree[K]) innerNode(data []byte) innerNode[K] {
	return innerNode[K]{data: data, c: &t.codec, cap: t.innerCap}
}

func (n innerNode[K]) level() uint16 {
	return binary.LittleEndian.Uint16(n.data[0:2])
}

func (n innerNode[K]) setLevel(l uint16) {
	binary.LittleEndian.PutUint16(n.data[0:2], l)
}

func (n innerNode[K]) key(i int) K {
	off := innerHeaderSize + i*n.c.width
	return n.c.get(n.data[off : off+n.c.width])
}

func (n innerNode[K]) setKey(i int, k K) {
	off := innerHeaderSize + i*n.c.width
	n.c.put(n.data[off:off+n.c.width], k)
}

// child i ranges over [0, cap]: one more pointer than keys.
func (n innerNode[K]) child(i int) uint32 {
	off := innerHeaderSize + n.cap*n.c.width + i*4
	return binary.LittleEndian.Uint32(n.data[off : off+4])
}

func (n innerNode[K]) setChild(i int, pageNo uint32) {
	off := innerHeaderSize + n.cap*n.c.width + i*4
	binary.LittleEndian.PutUint32(n.data[off:off+4], pageNo)
}

func (n innerNode[K]) full() bool {
	return n.child(n.cap) != 0
}
