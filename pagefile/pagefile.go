// Package pagefile exposes a named file as a sequence of fixed-size pages.
// Pages are identified by small integers starting at 1; the byte offset of
// page p is p*PageSize. Page 1 is the well-known first page of a file.
package pagefile

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"BurrowDB/types"
)

var (
	ErrClosed      = errors.New("page file is closed")
	ErrLocked      = errors.New("page file is locked by another process")
	ErrOutOfRange  = errors.New("page number out of range")
	ErrBadPageSize = errors.New("data size does not match page size")
)

// File is a disk-backed page store. All methods are safe for use from a
// single goroutine; the embedded lock only guards Close racing a late I/O.
type File struct {
	file     *os.File
	path     string
	nextPage uint32 // next page number to allocate
	mu       sync.RWMutex
}

// Exists reports whether a page file with the given path is on disk.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Remove deletes a page file from disk.
func Remove(path string) error {
	return os.Remove(path)
}

// Open opens the page file at path, creating it if absent. The file is held
// under an exclusive advisory lock until Close.
func Open(path string) (*File, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("open page file %s: %w", path, err)
	}

	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		if err == unix.EWOULDBLOCK {
			return nil, fmt.Errorf("%s: %w", path, ErrLocked)
		}
		return nil, fmt.Errorf("lock page file %s: %w", path, err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat page file %s: %w", path, err)
	}

	// Page numbers start at 1, so a file holding pages 1..k spans k+1 page
	// slots on disk (slot 0 is never written).
	nextPage := uint32(stat.Size() / types.PageSize)
	if nextPage < 1 {
		nextPage = 1
	}

	return &File{
		file:     file,
		path:     path,
		nextPage: nextPage,
	}, nil
}

// Path returns the file path this page file was opened with.
func (p *File) Path() string {
	return p.path
}

// FirstPageNo returns the number of the file's well-known first page.
func (p *File) FirstPageNo() uint32 {
	return 1
}

// NumPages returns the number of allocated pages.
func (p *File) NumPages() uint32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.nextPage - 1
}

// ReadPage reads page pageNo into a fresh PageSize buffer.
func (p *File) ReadPage(pageNo uint32) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.file == nil {
		return nil, ErrClosed
	}
	if pageNo == 0 || pageNo >= p.nextPage {
		return nil, fmt.Errorf("read page %d of %s: %w", pageNo, p.path, ErrOutOfRange)
	}

	page := make([]byte, types.PageSize)
	if _, err := p.file.ReadAt(page, int64(pageNo)*types.PageSize); err != nil {
		return nil, fmt.Errorf("read page %d of %s: %w", pageNo, p.path, err)
	}
	return page, nil
}

// WritePage writes a full page of data at pageNo.
func (p *File) WritePage(pageNo uint32, data []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.file == nil {
		return ErrClosed
	}
	if pageNo == 0 || pageNo >= p.nextPage {
		return fmt.Errorf("write page %d of %s: %w", pageNo, p.path, ErrOutOfRange)
	}
	if len(data) != types.PageSize {
		return fmt.Errorf("write page %d of %s: %w (%d bytes)", pageNo, p.path, ErrBadPageSize, len(data))
	}

	if _, err := p.file.WriteAt(data, int64(pageNo)*types.PageSize); err != nil {
		return fmt.Errorf("write page %d of %s: %w", pageNo, p.path, err)
	}
	return nil
}

// AllocatePage extends the file by one zeroed page and returns its number.
func (p *File) AllocatePage() (uint32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.file == nil {
		return 0, ErrClosed
	}

	pageNo := p.nextPage
	empty := make([]byte, types.PageSize)
	if _, err := p.file.WriteAt(empty, int64(pageNo)*types.PageSize); err != nil {
		return 0, fmt.Errorf("allocate page %d of %s: %w", pageNo, p.path, err)
	}
	p.nextPage++
	return pageNo, nil
}

// Sync flushes pending writes to stable storage.
func (p *File) Sync() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.file == nil {
		return ErrClosed
	}
	return p.file.Sync()
}

// Close syncs and releases the file and its lock. Closing twice is a no-op.
func (p *File) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.file == nil {
		return nil
	}
	if err := p.file.Sync(); err != nil {
		p.file.Close()
		p.file = nil
		return fmt.Errorf("sync before close: %w", err)
	}
	err := p.file.Close()
	p.file = nil
	return err
}
