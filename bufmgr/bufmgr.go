// Package bufmgr caches page-file pages in a fixed pool of frames with pin
// counts and dirty bits. A pinned frame is never evicted; an unpinned dirty
// frame is written back before its slot is reused. Clean victims are demoted
// to a ristretto cache so a re-read can skip the disk.
package bufmgr

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/ristretto/v2"

	"BurrowDB/pagefile"
	"BurrowDB/types"
)

var (
	ErrPageNotPinned   = errors.New("page is not pinned")
	ErrPageNotFound    = errors.New("page is not in the buffer pool")
	ErrBufferExhausted = errors.New("all buffer frames are pinned")
	ErrFilePinned      = errors.New("file still has pinned pages")
)

type frameKey struct {
	file   *pagefile.File
	pageNo uint32
}

type frame struct {
	data  []byte
	pin   int
	dirty bool
}

// Manager is the buffer manager. It is not safe for concurrent use; the
// engine above it is single-threaded cooperative.
type Manager struct {
	frames   map[frameKey]*frame
	capacity int
	// LRU order over frame keys, most recently used at the end.
	accessOrder []frameKey
	// victim holds byte copies of evicted clean pages. Admission is lossy,
	// which is fine: a miss falls through to the page file.
	victim *ristretto.Cache[string, []byte]
}

// New creates a buffer manager with the given frame capacity.
func New(capacity int) (*Manager, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("buffer capacity %d: must be at least 1", capacity)
	}
	victim, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: int64(capacity) * 100,
		MaxCost:     int64(capacity) * 8 * types.PageSize,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("victim cache: %w", err)
	}
	return &Manager{
		frames:      make(map[frameKey]*frame, capacity),
		capacity:    capacity,
		accessOrder: make([]frameKey, 0, capacity),
		victim:      victim,
	}, nil
}

// victimKey is unique per open file handle, so entries from a deleted and
// recreated file can never resurface.
func victimKey(key frameKey) string {
	return fmt.Sprintf("%p:%d", key.file, key.pageNo)
}

// ReadPage pins the page and returns its frame bytes. The slice aliases the
// frame: mutations become durable once the page is unpinned dirty and
// flushed or evicted.
func (m *Manager) ReadPage(f *pagefile.File, pageNo uint32) ([]byte, error) {
	key := frameKey{f, pageNo}
	if fr, ok := m.frames[key]; ok {
		fr.pin++
		m.touch(key)
		return fr.data, nil
	}

	if err := m.ensureCapacity(); err != nil {
		return nil, err
	}

	data, ok := m.victim.Get(victimKey(key))
	if ok {
		// The frame becomes authoritative again; drop the cached copy.
		m.victim.Del(victimKey(key))
	} else {
		var err error
		data, err = f.ReadPage(pageNo)
		if err != nil {
			return nil, err
		}
	}

	fr := &frame{data: data, pin: 1}
	m.frames[key] = fr
	m.touch(key)
	return fr.data, nil
}

// AllocPage allocates a fresh zeroed page in the file and pins it.
func (m *Manager) AllocPage(f *pagefile.File) (uint32, []byte, error) {
	if err := m.ensureCapacity(); err != nil {
		return 0, nil, err
	}

	pageNo, err := f.AllocatePage()
	if err != nil {
		return 0, nil, err
	}

	key := frameKey{f, pageNo}
	fr := &frame{data: make([]byte, types.PageSize), pin: 1}
	m.frames[key] = fr
	m.touch(key)
	return pageNo, fr.data, nil
}

// UnpinPage releases one pin on the page, recording dirty if the caller
// mutated it. Unpinning a page with no pins fails with ErrPageNotPinned.
func (m *Manager) UnpinPage(f *pagefile.File, pageNo uint32, dirty bool) error {
	key := frameKey{f, pageNo}
	fr, ok := m.frames[key]
	if !ok {
		return fmt.Errorf("unpin page %d: %w", pageNo, ErrPageNotFound)
	}
	if fr.pin == 0 {
		return fmt.Errorf("unpin page %d: %w", pageNo, ErrPageNotPinned)
	}
	fr.pin--
	if dirty {
		fr.dirty = true
	}
	return nil
}

// FlushFile writes every dirty frame of the file back and syncs it.
// Frames stay resident and keep their pins.
func (m *Manager) FlushFile(f *pagefile.File) error {
	for key, fr := range m.frames {
		if key.file != f || !fr.dirty {
			continue
		}
		if err := f.WritePage(key.pageNo, fr.data); err != nil {
			return err
		}
		fr.dirty = false
	}
	return f.Sync()
}

// DisposeFile drops the file's frames, closes it and deletes it from disk.
// Fails with ErrFilePinned if any of its pages is still pinned.
func (m *Manager) DisposeFile(f *pagefile.File) error {
	for key, fr := range m.frames {
		if key.file == f && fr.pin > 0 {
			return fmt.Errorf("dispose %s: page %d: %w", f.Path(), key.pageNo, ErrFilePinned)
		}
	}
	for key := range m.frames {
		if key.file == f {
			m.victim.Del(victimKey(key))
			m.dropFrame(key)
		}
	}
	path := f.Path()
	if err := f.Close(); err != nil {
		return err
	}
	return pagefile.Remove(path)
}

// PinnedPages reports how many of the file's pages are currently pinned.
func (m *Manager) PinnedPages(f *pagefile.File) int {
	n := 0
	for key, fr := range m.frames {
		if key.file == f && fr.pin > 0 {
			n++
		}
	}
	return n
}

// PinCount reports the pin count of one page, 0 if it is not resident.
func (m *Manager) PinCount(f *pagefile.File, pageNo uint32) int {
	if fr, ok := m.frames[frameKey{f, pageNo}]; ok {
		return fr.pin
	}
	return 0
}

// ensureCapacity evicts the least recently used unpinned frame when the
// pool is full.
func (m *Manager) ensureCapacity() error {
	if len(m.frames) < m.capacity {
		return nil
	}
	for _, key := range m.accessOrder {
		fr, ok := m.frames[key]
		if !ok || fr.pin > 0 {
			continue
		}
		if fr.dirty {
			if err := key.file.WritePage(key.pageNo, fr.data); err != nil {
				return fmt.Errorf("evict page %d: %w", key.pageNo, err)
			}
		}
		m.victim.Set(victimKey(key), fr.data, types.PageSize)
		m.dropFrame(key)
		return nil
	}
	return ErrBufferExhausted
}

func (m *Manager) dropFrame(key frameKey) {
	delete(m.frames, key)
	for i, k := range m.accessOrder {
		if k == key {
			m.accessOrder = append(m.accessOrder[:i], m.accessOrder[i+1:]...)
			break
		}
	}
}

func (m *Manager) touch(key frameKey) {
	for i, k := range m.accessOrder {
		if k == key {
			m.accessOrder = append(m.accessOrder[:i], m.accessOrder[i+1:]...)
			break
		}
	}
	m.accessOrder = append(m.accessOrder, key)
}
