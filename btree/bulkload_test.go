package btree

import (
	"encoding/binary"
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/go-faker/faker/v4"
	"github.com/stretchr/testify/require"

	"BurrowDB/bufmgr"
	"BurrowDB/heapfile"
	"BurrowDB/types"
)

// Test records mirror the seed tool's layout:
// name [0:10), age int32 [10:14), score float64 [14:22).
const (
	testNameOffset  = 0
	testAgeOffset   = 10
	testScoreOffset = 14
	testRecordSize  = 22
)

func buildRelation(t *testing.T, dir string, bm *bufmgr.Manager, n int) (*heapfile.HeapFile, map[types.RecordID]int32) {
	t.Helper()
	hf, err := heapfile.Open(filepath.Join(dir, "people.rel"), bm)
	require.NoError(t, err)
	t.Cleanup(func() { hf.Close() })

	rng := rand.New(rand.NewSource(3))
	ages := make(map[types.RecordID]int32)
	record := make([]byte, testRecordSize)
	for i := 0; i < n; i++ {
		for j := 0; j < types.StringSize; j++ {
			record[j] = 0
		}
		copy(record[testNameOffset:testNameOffset+types.StringSize], faker.FirstName())
		age := rng.Int31n(100)
		binary.LittleEndian.PutUint32(record[testAgeOffset:], uint32(age))
		binary.LittleEndian.PutUint64(record[testScoreOffset:], math.Float64bits(rng.Float64()*100))

		rid, err := hf.Append(record)
		require.NoError(t, err)
		ages[rid] = age
	}
	return hf, ages
}

func TestBulkLoadFromRelation(t *testing.T) {
	dir := t.TempDir()
	bm, err := bufmgr.New(128)
	require.NoError(t, err)

	const n = 2000
	hf, ages := buildRelation(t, dir, bm, n)

	ix, err := Open(Config{
		RelationName: "people",
		AttrOffset:   testAgeOffset,
		AttrKind:     types.Integer,
		Dir:          dir,
		Buf:          bm,
		Records:      hf.NewScanner(),
	})
	require.NoError(t, err)
	defer ix.Close()
	require.Equal(t, "people.10", ix.Name())

	// Every record must be in the index, in key order, under its heap rid.
	rids := collectScan(t, ix, int32(math.MinInt32), types.GTE, int32(math.MaxInt32), types.LTE)
	require.Len(t, rids, n)
	prev := int32(math.MinInt32)
	for _, rid := range rids {
		age, ok := ages[rid]
		require.True(t, ok, "scan produced an unknown rid %+v", rid)
		require.LessOrEqual(t, prev, age)
		prev = age
	}

	// Point lookups resolve back to heap records with the right key.
	someAge := ages[rids[n/2]]
	hits, err := ix.LookupEqual(someAge)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	for _, rid := range hits {
		record, err := hf.Get(rid)
		require.NoError(t, err)
		got := int32(binary.LittleEndian.Uint32(record[testAgeOffset:]))
		require.Equal(t, someAge, got)
	}
}

func TestBulkLoadSkippedOnReopen(t *testing.T) {
	dir := t.TempDir()
	bm, err := bufmgr.New(128)
	require.NoError(t, err)

	hf, _ := buildRelation(t, dir, bm, 100)

	cfg := Config{
		RelationName: "people",
		AttrOffset:   testAgeOffset,
		AttrKind:     types.Integer,
		Dir:          dir,
		Buf:          bm,
		Records:      hf.NewScanner(),
	}
	ix, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, ix.Close())

	// Reopening an existing index must not re-insert the relation.
	cfg.Records = hf.NewScanner()
	ix, err = Open(cfg)
	require.NoError(t, err)
	defer ix.Close()
	rids := collectScan(t, ix, int32(math.MinInt32), types.GTE, int32(math.MaxInt32), types.LTE)
	require.Len(t, rids, 100)
}

func TestBulkLoadStringAndDouble(t *testing.T) {
	dir := t.TempDir()
	bm, err := bufmgr.New(128)
	require.NoError(t, err)

	const n = 500
	hf, _ := buildRelation(t, dir, bm, n)

	names, err := Open(Config{
		RelationName: "people",
		AttrOffset:   testNameOffset,
		AttrKind:     types.String,
		Dir:          dir,
		Buf:          bm,
		Records:      hf.NewScanner(),
	})
	require.NoError(t, err)
	defer names.Close()

	scores, err := Open(Config{
		RelationName: "people",
		AttrOffset:   testScoreOffset,
		AttrKind:     types.Double,
		Dir:          dir,
		Buf:          bm,
		Records:      hf.NewScanner(),
	})
	require.NoError(t, err)
	defer scores.Close()

	lowName := make([]byte, types.StringSize)
	highName := make([]byte, types.StringSize)
	for i := range highName {
		highName[i] = 0xff
	}
	require.Len(t, collectScan(t, names, lowName, types.GTE, highName, types.LTE), n)
	require.Len(t, collectScan(t, scores, 0.0, types.GTE, 100.0, types.LTE), n)
}
