package heapfile

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/go-faker/faker/v4"
	"github.com/stretchr/testify/require"

	"BurrowDB/bufmgr"
	"BurrowDB/types"
)

func newTestHeap(t *testing.T) *HeapFile {
	t.Helper()
	bm, err := bufmgr.New(32)
	require.NoError(t, err)
	hf, err := Open(filepath.Join(t.TempDir(), "test.rel"), bm)
	require.NoError(t, err)
	t.Cleanup(func() { hf.Close() })
	return hf
}

func TestAppendAndGet(t *testing.T) {
	hf := newTestHeap(t)

	records := make(map[types.RecordID][]byte)
	for i := 0; i < 500; i++ {
		record := []byte(fmt.Sprintf("%04d:%s %s", i, faker.FirstName(), faker.LastName()))
		rid, err := hf.Append(record)
		require.NoError(t, err)
		require.False(t, rid.IsZero(), "record ids never use the sentinel page")
		records[rid] = record
	}

	for rid, want := range records {
		got, err := hf.Get(rid)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestAppendFillsPages(t *testing.T) {
	hf := newTestHeap(t)

	// Large records force page turnover.
	record := make([]byte, 1000)
	var rids []types.RecordID
	for i := 0; i < 20; i++ {
		record[0] = byte(i)
		rid, err := hf.Append(record)
		require.NoError(t, err)
		rids = append(rids, rid)
	}
	require.Greater(t, hf.File().NumPages(), uint32(1), "records must spill over pages")

	// Slot numbers restart on every page.
	seen := make(map[types.RecordID]bool)
	for _, rid := range rids {
		require.False(t, seen[rid])
		seen[rid] = true
	}
}

func TestAppendRejectsOversized(t *testing.T) {
	hf := newTestHeap(t)

	_, err := hf.Append(make([]byte, types.PageSize))
	require.ErrorIs(t, err, ErrRecordTooBig)
	_, err = hf.Append(nil)
	require.ErrorIs(t, err, ErrRecordTooBig)
}

func TestGetBadRecordID(t *testing.T) {
	hf := newTestHeap(t)

	rid, err := hf.Append([]byte("only one"))
	require.NoError(t, err)

	_, err = hf.Get(types.RecordID{})
	require.ErrorIs(t, err, ErrBadRecordID)
	_, err = hf.Get(types.RecordID{PageNumber: rid.PageNumber, SlotNumber: rid.SlotNumber + 1})
	require.ErrorIs(t, err, ErrBadRecordID)
	_, err = hf.Get(types.RecordID{PageNumber: 99, SlotNumber: 0})
	require.ErrorIs(t, err, ErrBadRecordID)
}

func TestScannerVisitsEverythingInOrder(t *testing.T) {
	hf := newTestHeap(t)

	var want [][]byte
	var wantRIDs []types.RecordID
	for i := 0; i < 300; i++ {
		record := []byte(fmt.Sprintf("row-%03d-%s", i, faker.Word()))
		rid, err := hf.Append(record)
		require.NoError(t, err)
		want = append(want, record)
		wantRIDs = append(wantRIDs, rid)
	}

	scanner := hf.NewScanner()
	for i := 0; ; i++ {
		rid, record, err := scanner.Next()
		if err == ErrEndOfScan {
			require.Equal(t, len(want), i, "scan must visit every record")
			break
		}
		require.NoError(t, err)
		require.Equal(t, wantRIDs[i], rid)
		require.Equal(t, want[i], record)
	}
}

func TestScannerEmptyFile(t *testing.T) {
	hf := newTestHeap(t)

	_, _, err := hf.NewScanner().Next()
	require.ErrorIs(t, err, ErrEndOfScan)
}

func TestReopenKeepsRecords(t *testing.T) {
	dir := t.TempDir()
	bm, err := bufmgr.New(32)
	require.NoError(t, err)

	path := filepath.Join(dir, "persist.rel")
	hf, err := Open(path, bm)
	require.NoError(t, err)
	rid, err := hf.Append([]byte("survives reopen"))
	require.NoError(t, err)
	require.NoError(t, hf.Close())

	hf, err = Open(path, bm)
	require.NoError(t, err)
	defer hf.Close()
	got, err := hf.Get(rid)
	require.NoError(t, err)
	require.Equal(t, []byte("survives reopen"), got)

	// Appends continue after the persisted records.
	rid2, err := hf.Append([]byte("second"))
	require.NoError(t, err)
	require.NotEqual(t, rid, rid2)
}
