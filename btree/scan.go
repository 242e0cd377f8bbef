package btree

import (
	"errors"

	"BurrowDB/bufmgr"
	"BurrowDB/types"
)

// scanState is the engine's single range-scan handle. Idle: active false.
// Positioned: leaf holds the pin on the current page and slot is the next
// entry to emit. Exhausted: active with a nil pin; every ScanNext fails
// with ErrIndexScanCompleted until EndScan.
type scanState[K any] struct {
	active bool
	leaf   *pin
	slot   int
	low    K
	lowOp  types.Operator
	high   K
	highOp types.Operator
}

func (t *tree[K]) startScan(low K, lowOp types.Operator, high K, highOp types.Operator) error {
	if lowOp != types.GT && lowOp != types.GTE {
		return ErrBadOpcodes
	}
	if highOp != types.LT && highOp != types.LTE {
		return ErrBadOpcodes
	}
	if t.codec.compare(low, high) > 0 {
		return ErrBadScanRange
	}

	if t.scan.active {
		if err := t.endScan(); err != nil {
			return err
		}
	}

	// Descend to the leaf that covers the lower bound.
	pageNo := t.rootPage
	if !t.rootIsLeaf {
		for {
			p, err := t.readPage(pageNo)
			if err != nil {
				return err
			}
			node := t.innerNode(p.data)
			childNo := node.child(t.findChild(node, low, lowOp == types.GTE))
			level := node.level()
			if err := p.release(); err != nil {
				return err
			}
			pageNo = childNo
			if level == 1 {
				break
			}
		}
	}

	// Position on the first satisfying entry, following the sibling chain
	// past leaves whose every key fails the lower bound.
	for {
		p, err := t.readPage(pageNo)
		if err != nil {
			return err
		}
		leaf := t.leafNode(p.data)
		if slot := t.findFirstMatch(leaf, low, lowOp); slot >= 0 {
			t.scan = scanState[K]{
				active: true,
				leaf:   p,
				slot:   slot,
				low:    low,
				lowOp:  lowOp,
				high:   high,
				highOp: highOp,
			}
			return nil
		}
		sib := leaf.rightSib()
		if err := p.release(); err != nil {
			return err
		}
		if sib == 0 {
			t.scan = scanState[K]{active: true}
			return ErrIndexScanCompleted
		}
		pageNo = sib
	}
}

func (t *tree[K]) scanNext() (types.RecordID, error) {
	var zero types.RecordID
	if !t.scan.active {
		return zero, ErrScanNotInitialized
	}
	if t.scan.leaf == nil {
		return zero, ErrIndexScanCompleted
	}

	leaf := t.leafNode(t.scan.leaf.data)
	c := t.codec.compare(leaf.key(t.scan.slot), t.scan.high)
	if (t.scan.highOp == types.LT && c >= 0) || (t.scan.highOp == types.LTE && c > 0) {
		return zero, ErrIndexScanCompleted
	}

	rid := leaf.rid(t.scan.slot)
	t.scan.slot++

	if t.scan.slot == t.leafCap || !leaf.occupied(t.scan.slot) {
		// Hand the single held pin over to the right sibling, or drop it
		// at the end of the chain.
		sib := leaf.rightSib()
		if err := t.scan.leaf.release(); err != nil {
			return zero, err
		}
		t.scan.leaf = nil
		t.scan.slot = 0
		if sib != 0 {
			p, err := t.readPage(sib)
			if err != nil {
				return zero, err
			}
			t.scan.leaf = p
		}
	}
	return rid, nil
}

func (t *tree[K]) endScan() error {
	if !t.scan.active {
		return ErrScanNotInitialized
	}
	if t.scan.leaf != nil {
		if err := t.scan.leaf.release(); err != nil && !errors.Is(err, bufmgr.ErrPageNotPinned) {
			return err
		}
	}
	t.scan = scanState[K]{}
	return nil
}
