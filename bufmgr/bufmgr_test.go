package bufmgr

import (
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"BurrowDB/pagefile"
)

func newTestFile(t *testing.T) *pagefile.File {
	t.Helper()
	f, err := pagefile.Open(filepath.Join(t.TempDir(), "bm.pf"))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestAllocPinUnpin(t *testing.T) {
	m, err := New(4)
	require.NoError(t, err)
	f := newTestFile(t)

	pageNo, frame, err := m.AllocPage(f)
	require.NoError(t, err)
	require.Equal(t, uint32(1), pageNo)
	require.Equal(t, 1, m.PinCount(f, pageNo))

	binary.LittleEndian.PutUint64(frame, 0xdeadbeef)
	require.NoError(t, m.UnpinPage(f, pageNo, true))
	require.Equal(t, 0, m.PinCount(f, pageNo))

	// A second read pins the same frame and sees the mutation.
	frame2, err := m.ReadPage(f, pageNo)
	require.NoError(t, err)
	require.Equal(t, uint64(0xdeadbeef), binary.LittleEndian.Uint64(frame2))
	require.NoError(t, m.UnpinPage(f, pageNo, false))
}

func TestUnpinErrors(t *testing.T) {
	m, err := New(4)
	require.NoError(t, err)
	f := newTestFile(t)

	require.ErrorIs(t, m.UnpinPage(f, 99, false), ErrPageNotFound)

	pageNo, _, err := m.AllocPage(f)
	require.NoError(t, err)
	require.NoError(t, m.UnpinPage(f, pageNo, false))
	require.ErrorIs(t, m.UnpinPage(f, pageNo, false), ErrPageNotPinned)
}

func TestEvictionWritesDirtyVictims(t *testing.T) {
	m, err := New(2)
	require.NoError(t, err)
	f := newTestFile(t)

	p1, frame, err := m.AllocPage(f)
	require.NoError(t, err)
	binary.LittleEndian.PutUint64(frame, 11)
	require.NoError(t, m.UnpinPage(f, p1, true))

	p2, frame, err := m.AllocPage(f)
	require.NoError(t, err)
	binary.LittleEndian.PutUint64(frame, 22)
	require.NoError(t, m.UnpinPage(f, p2, true))

	// Filling the pool evicts one of the dirty pages; a later read must see
	// its contents again no matter which path serves it.
	p3, _, err := m.AllocPage(f)
	require.NoError(t, err)
	require.NoError(t, m.UnpinPage(f, p3, false))

	frame, err = m.ReadPage(f, p1)
	require.NoError(t, err)
	require.Equal(t, uint64(11), binary.LittleEndian.Uint64(frame))
	require.NoError(t, m.UnpinPage(f, p1, false))

	frame, err = m.ReadPage(f, p2)
	require.NoError(t, err)
	require.Equal(t, uint64(22), binary.LittleEndian.Uint64(frame))
	require.NoError(t, m.UnpinPage(f, p2, false))
}

func TestBufferExhausted(t *testing.T) {
	m, err := New(2)
	require.NoError(t, err)
	f := newTestFile(t)

	p1, _, err := m.AllocPage(f)
	require.NoError(t, err)
	p2, _, err := m.AllocPage(f)
	require.NoError(t, err)

	// Both frames pinned: nothing can be evicted.
	_, _, err = m.AllocPage(f)
	require.ErrorIs(t, err, ErrBufferExhausted)

	require.NoError(t, m.UnpinPage(f, p1, false))
	p3, _, err := m.AllocPage(f)
	require.NoError(t, err)
	require.NoError(t, m.UnpinPage(f, p2, false))
	require.NoError(t, m.UnpinPage(f, p3, false))
}

func TestFlushFile(t *testing.T) {
	m, err := New(4)
	require.NoError(t, err)
	f := newTestFile(t)

	pageNo, frame, err := m.AllocPage(f)
	require.NoError(t, err)
	binary.LittleEndian.PutUint64(frame, 77)
	require.NoError(t, m.UnpinPage(f, pageNo, true))
	require.NoError(t, m.FlushFile(f))

	// The page file itself must hold the flushed bytes.
	raw, err := f.ReadPage(pageNo)
	require.NoError(t, err)
	require.Equal(t, uint64(77), binary.LittleEndian.Uint64(raw))
}

func TestPinnedPages(t *testing.T) {
	m, err := New(4)
	require.NoError(t, err)
	f := newTestFile(t)

	p1, _, err := m.AllocPage(f)
	require.NoError(t, err)
	p2, _, err := m.AllocPage(f)
	require.NoError(t, err)
	require.Equal(t, 2, m.PinnedPages(f))

	require.NoError(t, m.UnpinPage(f, p1, false))
	require.Equal(t, 1, m.PinnedPages(f))
	require.NoError(t, m.UnpinPage(f, p2, false))
	require.Equal(t, 0, m.PinnedPages(f))
}

func TestDisposeFile(t *testing.T) {
	m, err := New(4)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "dispose.pf")
	f, err := pagefile.Open(path)
	require.NoError(t, err)

	pageNo, _, err := m.AllocPage(f)
	require.NoError(t, err)

	// Disposal refuses while pages are pinned.
	require.ErrorIs(t, m.DisposeFile(f), ErrFilePinned)

	require.NoError(t, m.UnpinPage(f, pageNo, true))
	require.NoError(t, m.DisposeFile(f))
	require.False(t, pagefile.Exists(path))
}
