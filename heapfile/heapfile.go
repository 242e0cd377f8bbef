// Package heapfile stores variable-length records in slotted 4KB pages.
// Records are packed forward from the page header; the slot directory grows
// backward from the end of the page. A record is addressed by its
// types.RecordID: the page number and the slot index.
package heapfile

import (
	"errors"
	"fmt"

	"BurrowDB/bufmgr"
	"BurrowDB/pagefile"
	"BurrowDB/types"
)

var (
	ErrEndOfScan    = errors.New("no more records in heap file")
	ErrRecordTooBig = errors.New("record does not fit in a page")
	ErrBadRecordID  = errors.New("record id does not address a record")
)

// HeapFile is a single heap file on disk. Page I/O goes through the buffer
// manager so heap pages and index pages share one pool.
type HeapFile struct {
	file *pagefile.File
	bm   *bufmgr.Manager
	// lastPage is the page currently receiving appends, 0 when empty.
	lastPage uint32
}

// Open opens the heap file at path, creating it if absent.
func Open(path string, bm *bufmgr.Manager) (*HeapFile, error) {
	file, err := pagefile.Open(path)
	if err != nil {
		return nil, err
	}
	return &HeapFile{
		file:     file,
		bm:       bm,
		lastPage: file.NumPages(),
	}, nil
}

// Path returns the underlying file path.
func (hf *HeapFile) Path() string {
	return hf.file.Path()
}

// File exposes the underlying page file.
func (hf *HeapFile) File() *pagefile.File {
	return hf.file
}

// Close flushes dirty pages and releases the file.
func (hf *HeapFile) Close() error {
	if err := hf.bm.FlushFile(hf.file); err != nil {
		return err
	}
	return hf.file.Close()
}

// Drop closes the heap file and removes it from disk.
func (hf *HeapFile) Drop() error {
	return hf.bm.DisposeFile(hf.file)
}

// Append stores a record and returns its RecordID. Records never move once
// written, so returned ids stay valid for the life of the file.
func (hf *HeapFile) Append(record []byte) (types.RecordID, error) {
	maxRecord := types.PageSize - types.HeapPageHeaderSize - types.SlotSize
	if len(record) == 0 || len(record) > maxRecord {
		return types.RecordID{}, fmt.Errorf("%w: %d bytes (max %d)", ErrRecordTooBig, len(record), maxRecord)
	}

	if hf.lastPage != 0 {
		rid, ok, err := hf.appendTo(hf.lastPage, record)
		if err != nil {
			return types.RecordID{}, err
		}
		if ok {
			return rid, nil
		}
	}

	pageNo, page, err := hf.bm.AllocPage(hf.file)
	if err != nil {
		return types.RecordID{}, err
	}
	initHeapPage(page)
	hf.lastPage = pageNo

	// An empty page always fits a record that passed the size check.
	rid, _ := placeRecord(page, pageNo, record)
	if err := hf.bm.UnpinPage(hf.file, pageNo, true); err != nil {
		return types.RecordID{}, err
	}
	return rid, nil
}

// appendTo tries to place the record in an existing page.
func (hf *HeapFile) appendTo(pageNo uint32, record []byte) (types.RecordID, bool, error) {
	page, err := hf.bm.ReadPage(hf.file, pageNo)
	if err != nil {
		return types.RecordID{}, false, err
	}
	rid, ok := placeRecord(page, pageNo, record)
	if err := hf.bm.UnpinPage(hf.file, pageNo, ok); err != nil {
		return types.RecordID{}, false, err
	}
	return rid, ok, nil
}

// Get returns a copy of the record addressed by rid.
func (hf *HeapFile) Get(rid types.RecordID) ([]byte, error) {
	if rid.IsZero() || rid.PageNumber > hf.file.NumPages() {
		return nil, fmt.Errorf("%w: %+v", ErrBadRecordID, rid)
	}
	page, err := hf.bm.ReadPage(hf.file, rid.PageNumber)
	if err != nil {
		return nil, err
	}
	defer hf.bm.UnpinPage(hf.file, rid.PageNumber, false)

	offset, length, ok := readSlot(page, rid.SlotNumber)
	if !ok {
		return nil, fmt.Errorf("%w: %+v", ErrBadRecordID, rid)
	}
	record := make([]byte, length)
	copy(record, page[offset:offset+length])
	return record, nil
}

// Scanner iterates records in file order. It implements the record stream
// consumed by index bulk build.
type Scanner struct {
	hf     *HeapFile
	pageNo uint32
	slot   uint16
}

// NewScanner positions a scanner before the first record.
func (hf *HeapFile) NewScanner() *Scanner {
	return &Scanner{hf: hf, pageNo: hf.file.FirstPageNo()}
}

// Next returns the next record and its id, or ErrEndOfScan when the file is
// exhausted. The page is pinned only for the duration of the call.
func (s *Scanner) Next() (types.RecordID, []byte, error) {
	for s.pageNo <= s.hf.file.NumPages() {
		page, err := s.hf.bm.ReadPage(s.hf.file, s.pageNo)
		if err != nil {
			return types.RecordID{}, nil, err
		}

		if s.slot < slotCount(page) {
			rid := types.RecordID{PageNumber: s.pageNo, SlotNumber: s.slot}
			offset, length, ok := readSlot(page, s.slot)
			s.slot++
			if !ok {
				// Skip holes; this file never deletes, but stay tolerant.
				s.hf.bm.UnpinPage(s.hf.file, rid.PageNumber, false)
				continue
			}
			record := make([]byte, length)
			copy(record, page[offset:offset+length])
			if err := s.hf.bm.UnpinPage(s.hf.file, rid.PageNumber, false); err != nil {
				return types.RecordID{}, nil, err
			}
			return rid, record, nil
		}

		if err := s.hf.bm.UnpinPage(s.hf.file, s.pageNo, false); err != nil {
			return types.RecordID{}, nil, err
		}
		s.pageNo++
		s.slot = 0
	}
	return types.RecordID{}, nil, ErrEndOfScan
}
