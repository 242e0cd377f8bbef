package btree

// pin is a scoped hold on a buffer frame. Acquire with readPage or
// allocPage, then release exactly once on every exit path; release is
// idempotent so a deferred release can back up an explicit one. The dirty
// flag travels with the pin to the buffer manager.
type pin struct {
	t        treeIO
	pageNo   uint32
	data     []byte
	dirty    bool
	released bool
}

// treeIO is the slice of the engine the pin needs, free of the key type
// parameter.
type treeIO interface {
	unpin(pageNo uint32, dirty bool) error
}

func (p *pin) markDirty() {
	p.dirty = true
}

func (p *pin) release() error {
	if p == nil || p.released {
		return nil
	}
	p.released = true
	return p.t.unpin(p.pageNo, p.dirty)
}

func (t *tree[K]) unpin(pageNo uint32, dirty bool) error {
	return t.bm.UnpinPage(t.file, pageNo, dirty)
}

// readPage pins an existing page.
func (t *tree[K]) readPage(pageNo uint32) (*pin, error) {
	data, err := t.bm.ReadPage(t.file, pageNo)
	if err != nil {
		return nil, err
	}
	return &pin{t: t, pageNo: pageNo, data: data}, nil
}

// allocPage allocates and pins a fresh zeroed page.
func (t *tree[K]) allocPage() (*pin, error) {
	pageNo, data, err := t.bm.AllocPage(t.file)
	if err != nil {
		return nil, err
	}
	return &pin{t: t, pageNo: pageNo, data: data}, nil
}
