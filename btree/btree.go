// Package btree implements a disk-resident B+ tree index mapping one fixed
// attribute of a record stream to the record ids holding it. Keys are
// 32-bit integers, doubles, or fixed-width strings; the kind is chosen at
// creation and persisted in the index header. Pages live in an external
// buffer manager and every page touch follows the pin/unpin discipline.
package btree

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"BurrowDB/bufmgr"
	"BurrowDB/heapfile"
	"BurrowDB/pagefile"
	"BurrowDB/types"
)

// RecordStream yields the records of a base relation in file order. Next
// returns heapfile.ErrEndOfScan once the relation is exhausted.
type RecordStream interface {
	Next() (types.RecordID, []byte, error)
}

// Config describes the index to open or create.
type Config struct {
	// RelationName names the indexed relation; together with AttrOffset it
	// forms the index file name "<relation>.<offset>".
	RelationName string
	// AttrOffset is the byte offset of the key inside a record.
	AttrOffset int
	// AttrKind is the key kind. Fixed at creation; reopening with a
	// different kind fails with ErrBadIndexInfo.
	AttrKind types.Datatype
	// Dir is the directory holding the index file. Empty means the
	// working directory.
	Dir string
	// Buf is the buffer manager all page I/O goes through.
	Buf *bufmgr.Manager
	// Records, when set, bulk-loads a newly created index from the
	// relation. Ignored when the index file already exists.
	Records RecordStream
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Index is a single-attribute B+ tree index over one relation.
type Index struct {
	name string
	eng  engine
}

// engine is the kind-erased face of tree[K]; one monomorphization is
// selected at open time from Config.AttrKind, which a reopen then checks
// against the persisted attribute kind.
type engine interface {
	insertKey(key any, rid types.RecordID) error
	insertRecord(record []byte, rid types.RecordID) error
	startScanAny(low any, lowOp types.Operator, high any, highOp types.Operator) error
	nextRID() (types.RecordID, error)
	stopScan() error
	close() error
	drop() error
}

type tree[K any] struct {
	bm    *bufmgr.Manager
	file  *pagefile.File
	codec keyCodec[K]

	fromAny  func(any) (K, error)
	leafCap  int
	innerCap int

	attrOffset int
	headerPage uint32
	rootPage   uint32
	rootIsLeaf bool

	scan scanState[K]
	log  *slog.Logger
}

// Open opens the index for cfg's relation and attribute, creating and bulk
// loading it when no index file exists yet. Reopening validates the
// persisted attribute offset and kind and fails with ErrBadIndexInfo on
// mismatch.
func Open(cfg Config) (*Index, error) {
	if cfg.Buf == nil {
		return nil, errors.New("btree: Config.Buf is required")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	name := fmt.Sprintf("%s.%d", cfg.RelationName, cfg.AttrOffset)
	path := filepath.Join(cfg.Dir, name)

	var eng engine
	var err error
	switch cfg.AttrKind {
	case types.Integer:
		eng, err = openTree(cfg, path, log, intOps())
	case types.Double:
		eng, err = openTree(cfg, path, log, doubleOps())
	case types.String:
		eng, err = openTree(cfg, path, log, stringOps())
	default:
		return nil, fmt.Errorf("btree: unknown attribute kind %d", cfg.AttrKind)
	}
	if err != nil {
		return nil, err
	}
	return &Index{name: name, eng: eng}, nil
}

func openTree[K any](cfg Config, path string, log *slog.Logger, ops keyOps[K]) (*tree[K], error) {
	existed := pagefile.Exists(path)
	file, err := pagefile.Open(path)
	if err != nil {
		return nil, err
	}

	t := &tree[K]{
		bm:         cfg.Buf,
		file:       file,
		codec:      ops.codec,
		fromAny:    ops.fromAny,
		leafCap:    ops.leafCap,
		innerCap:   ops.innerCap,
		attrOffset: cfg.AttrOffset,
		headerPage: file.FirstPageNo(),
		log:        log,
	}

	if existed {
		err = t.openExisting(cfg)
	} else {
		err = t.createFresh(cfg)
	}
	if err != nil {
		file.Close()
		return nil, err
	}
	return t, nil
}

// openExisting validates the persisted header against the caller's
// attribute and adopts its root pointer.
func (t *tree[K]) openExisting(cfg Config) error {
	hp, err := t.readPage(t.headerPage)
	if err != nil {
		return err
	}
	defer hp.release()
	meta := indexMeta{hp.data}

	if int(meta.attrOffset()) != cfg.AttrOffset || meta.attrKind() != cfg.AttrKind {
		return fmt.Errorf("%w: file has (%s, offset %d), caller wants (%s, offset %d)",
			ErrBadIndexInfo, meta.attrKind(), meta.attrOffset(), cfg.AttrKind, cfg.AttrOffset)
	}
	t.rootPage = meta.rootPage()
	t.rootIsLeaf = t.rootPage == t.headerPage+1
	t.log.Debug("opened index", "file", t.file.Path(), "root", t.rootPage)
	return hp.release()
}

// createFresh lays out the header page and an empty leaf root, then bulk
// loads from the record stream when one was supplied.
func (t *tree[K]) createFresh(cfg Config) error {
	hp, err := t.allocPage()
	if err != nil {
		return err
	}
	defer hp.release()
	rp, err := t.allocPage()
	if err != nil {
		return err
	}
	defer rp.release()
	if hp.pageNo != t.headerPage || rp.pageNo != t.headerPage+1 {
		return fmt.Errorf("btree: fresh index file got pages %d,%d", hp.pageNo, rp.pageNo)
	}

	t.rootPage = rp.pageNo
	t.rootIsLeaf = true

	meta := indexMeta{hp.data}
	meta.setRelationName(cfg.RelationName)
	meta.setAttrOffset(int32(cfg.AttrOffset))
	meta.setAttrKind(cfg.AttrKind)
	meta.setRootPage(t.rootPage)

	// A zeroed page already is a valid empty leaf: no sibling, no
	// occupied slots.
	rp.markDirty()
	hp.markDirty()
	if err := rp.release(); err != nil {
		return err
	}
	if err := hp.release(); err != nil {
		return err
	}

	t.log.Info("creating index", "file", t.file.Path(), "kind", cfg.AttrKind.String())

	if cfg.Records != nil {
		n, err := t.bulkLoad(cfg.Records)
		if err != nil {
			return err
		}
		t.log.Info("bulk load finished", "file", t.file.Path(), "records", n)
	}
	return t.bm.FlushFile(t.file)
}

func (t *tree[K]) bulkLoad(records RecordStream) (int, error) {
	n := 0
	for {
		rid, record, err := records.Next()
		if errors.Is(err, heapfile.ErrEndOfScan) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		key, err := t.keyFromRecord(record, t.attrOffset)
		if err != nil {
			return n, err
		}
		if err := t.insert(ridKeyPair[K]{rid: rid, key: key}); err != nil {
			return n, err
		}
		n++
	}
}

func (t *tree[K]) insertKey(key any, rid types.RecordID) error {
	k, err := t.fromAny(key)
	if err != nil {
		return err
	}
	return t.insert(ridKeyPair[K]{rid: rid, key: k})
}

func (t *tree[K]) insertRecord(record []byte, rid types.RecordID) error {
	k, err := t.keyFromRecord(record, t.attrOffset)
	if err != nil {
		return err
	}
	return t.insert(ridKeyPair[K]{rid: rid, key: k})
}

func (t *tree[K]) startScanAny(low any, lowOp types.Operator, high any, highOp types.Operator) error {
	lo, err := t.fromAny(low)
	if err != nil {
		return err
	}
	hi, err := t.fromAny(high)
	if err != nil {
		return err
	}
	return t.startScan(lo, lowOp, hi, highOp)
}

func (t *tree[K]) nextRID() (types.RecordID, error) {
	return t.scanNext()
}

func (t *tree[K]) stopScan() error {
	return t.endScan()
}

func (t *tree[K]) close() error {
	if t.scan.active {
		if err := t.endScan(); err != nil {
			return err
		}
	}
	if err := t.bm.FlushFile(t.file); err != nil {
		return err
	}
	t.log.Debug("closed index", "file", t.file.Path())
	return t.file.Close()
}

func (t *tree[K]) drop() error {
	if t.scan.active {
		if err := t.endScan(); err != nil {
			return err
		}
	}
	return t.bm.DisposeFile(t.file)
}

// Name returns the index file name, "<relation>.<offset>".
func (ix *Index) Name() string {
	return ix.name
}

// Insert adds one (key, rid) entry. The key value must match the index's
// attribute kind. Duplicate keys are allowed.
func (ix *Index) Insert(key any, rid types.RecordID) error {
	return ix.eng.insertKey(key, rid)
}

// InsertRecord extracts the key from a raw record at the index's attribute
// offset and inserts it with the given rid.
func (ix *Index) InsertRecord(record []byte, rid types.RecordID) error {
	return ix.eng.insertRecord(record, rid)
}

// StartScan begins a range scan over [low, high] under the given
// operators: lowOp must be GT or GTE, highOp LT or LTE. An active scan is
// ended first. Fails with ErrBadOpcodes, ErrBadScanRange, or
// ErrIndexScanCompleted when no entry satisfies the lower bound. A range
// that is empty only because of its upper bound starts normally and its
// first ScanNext fails with ErrIndexScanCompleted.
func (ix *Index) StartScan(low any, lowOp types.Operator, high any, highOp types.Operator) error {
	return ix.eng.startScanAny(low, lowOp, high, highOp)
}

// ScanNext emits the next record id of the active scan. Fails with
// ErrScanNotInitialized outside a scan and ErrIndexScanCompleted once the
// upper bound is passed or the leaf chain ends.
func (ix *Index) ScanNext() (types.RecordID, error) {
	return ix.eng.nextRID()
}

// EndScan terminates the active scan and releases its pinned leaf.
func (ix *Index) EndScan() error {
	return ix.eng.stopScan()
}

// LookupEqual returns every rid stored under exactly key, or
// ErrNoSuchKeyFound when there is none.
func (ix *Index) LookupEqual(key any) ([]types.RecordID, error) {
	err := ix.StartScan(key, types.GTE, key, types.LTE)
	if errors.Is(err, ErrIndexScanCompleted) {
		ix.EndScan()
		return nil, ErrNoSuchKeyFound
	}
	if err != nil {
		return nil, err
	}

	var rids []types.RecordID
	for {
		rid, err := ix.ScanNext()
		if errors.Is(err, ErrIndexScanCompleted) {
			break
		}
		if err != nil {
			ix.EndScan()
			return nil, err
		}
		rids = append(rids, rid)
	}
	if err := ix.EndScan(); err != nil {
		return nil, err
	}
	if len(rids) == 0 {
		return nil, ErrNoSuchKeyFound
	}
	return rids, nil
}

// Close flushes the index through the buffer manager and releases its file.
func (ix *Index) Close() error {
	return ix.eng.close()
}

// Drop closes the index and deletes its file.
func (ix *Index) Drop() error {
	return ix.eng.drop()
}
