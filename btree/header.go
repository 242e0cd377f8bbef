package btree

import (
	"bytes"
	"encoding/binary"

	"BurrowDB/types"
)

// The index header occupies the file's first page:
//   [0:20)  relation name, zero-padded
//   [20:24) attribute byte offset, int32
//   [24:28) attribute kind, int32
//   [28:32) root page number, uint32
// Trailing bytes are unspecified.
const relationNameSize = 20

type indexMeta struct {
	data []byte
}

func (m indexMeta) relationName() string {
	name := m.data[0:relationNameSize]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	return string(name)
}

func (m indexMeta) setRelationName(name string) {
	field := m.data[0:relationNameSize]
	for i := range field {
		field[i] = 0
	}
	copy(field, name)
}

func (m indexMeta) attrOffset() int32 {
	return int32(binary.LittleEndian.Uint32(m.data[20:24]))
}

func (m indexMeta) setAttrOffset(off int32) {
	binary.LittleEndian.PutUint32(m.data[20:24], uint32(off))
}

func (m indexMeta) attrKind() types.Datatype {
	return types.Datatype(binary.LittleEndian.Uint32(m.data[24:28]))
}

func (m indexMeta) setAttrKind(kind types.Datatype) {
	binary.LittleEndian.PutUint32(m.data[24:28], uint32(kind))
}

func (m indexMeta) rootPage() uint32 {
	return binary.LittleEndian.Uint32(m.data[28:32])
}

func (m indexMeta) setRootPage(pageNo uint32) {
	binary.LittleEndian.PutUint32(m.data[28:32], pageNo)
}
