package heapfile

import (
	"encoding/binary"

	"BurrowDB/types"
)

// Heap page layout:
//   [0:2)  slotCount
//   [2:4)  freePtr, offset of the next record byte
//   [4:8)  reserved
//   [freePtr : freeEnd)           unused space
//   [freeEnd : PageSize)          slot directory, slot 0 at the very end
// Each slot entry is {offset uint16, length uint16}.

func initHeapPage(page []byte) {
	binary.LittleEndian.PutUint16(page[0:2], 0)
	binary.LittleEndian.PutUint16(page[2:4], types.HeapPageHeaderSize)
}

func slotCount(page []byte) uint16 {
	return binary.LittleEndian.Uint16(page[0:2])
}

func freePtr(page []byte) uint16 {
	return binary.LittleEndian.Uint16(page[2:4])
}

func freeSpace(page []byte) int {
	freeEnd := types.PageSize - int(slotCount(page))*types.SlotSize
	return freeEnd - int(freePtr(page))
}

// readSlot returns the record location held by slot i.
func readSlot(page []byte, i uint16) (offset, length uint16, ok bool) {
	if i >= slotCount(page) {
		return 0, 0, false
	}
	slotOffset := types.PageSize - int(i+1)*types.SlotSize
	offset = binary.LittleEndian.Uint16(page[slotOffset : slotOffset+2])
	length = binary.LittleEndian.Uint16(page[slotOffset+2 : slotOffset+4])
	if offset == 0 || length == 0 {
		return 0, 0, false
	}
	return offset, length, true
}

// placeRecord copies the record into the page and appends a slot for it.
// ok is false when the page lacks space.
func placeRecord(page []byte, pageNo uint32, record []byte) (types.RecordID, bool) {
	if freeSpace(page) < len(record)+types.SlotSize {
		return types.RecordID{}, false
	}

	offset := freePtr(page)
	copy(page[offset:int(offset)+len(record)], record)

	slot := slotCount(page)
	slotOffset := types.PageSize - int(slot+1)*types.SlotSize
	binary.LittleEndian.PutUint16(page[slotOffset:slotOffset+2], offset)
	binary.LittleEndian.PutUint16(page[slotOffset+2:slotOffset+4], uint16(len(record)))

	binary.LittleEndian.PutUint16(page[0:2], slot+1)
	binary.LittleEndian.PutUint16(page[2:4], offset+uint16(len(record)))

	return types.RecordID{PageNumber: pageNo, SlotNumber: slot}, true
}
