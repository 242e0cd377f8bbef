package btree

import (
	"fmt"
	"io"

	"BurrowDB/pagefile"
	"BurrowDB/types"
)

// Inspect walks an index file directly (no buffer manager) and writes a
// human-readable dump: the header, every non-leaf level, and the leaf
// chain. Intended for the inspect command and for debugging.
func Inspect(w io.Writer, path string) error {
	if !pagefile.Exists(path) {
		return fmt.Errorf("inspect %s: no such index file", path)
	}
	file, err := pagefile.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	head, err := file.ReadPage(file.FirstPageNo())
	if err != nil {
		return err
	}
	meta := indexMeta{head}
	fmt.Fprintf(w, "header: relation=%q kind=%s offset=%d root=%d pages=%d\n",
		meta.relationName(), meta.attrKind(), meta.attrOffset(), meta.rootPage(), file.NumPages())

	switch meta.attrKind() {
	case types.Integer:
		return dumpTree(w, file, meta, intOps())
	case types.Double:
		return dumpTree(w, file, meta, doubleOps())
	case types.String:
		return dumpTree(w, file, meta, stringOps())
	}
	return fmt.Errorf("inspect %s: unknown attribute kind %d", path, meta.attrKind())
}

func dumpTree[K any](w io.Writer, file *pagefile.File, meta indexMeta, ops keyOps[K]) error {
	rootIsLeaf := meta.rootPage() == file.FirstPageNo()+1

	leftmost := meta.rootPage()
	if !rootIsLeaf {
		// Print non-leaf levels top-down, then find the leftmost leaf.
		frontier := []uint32{meta.rootPage()}
		for len(frontier) > 0 {
			var next []uint32
			for _, pageNo := range frontier {
				data, err := file.ReadPage(pageNo)
				if err != nil {
					return err
				}
				n := innerNode[K]{data: data, c: &ops.codec, cap: ops.innerCap}
				fmt.Fprintf(w, "inner %d: level=%d", pageNo, n.level())
				for i := 0; i <= ops.innerCap && n.child(i) != 0; i++ {
					if i > 0 {
						fmt.Fprintf(w, " [%v]", n.key(i-1))
					}
					fmt.Fprintf(w, " %d", n.child(i))
					if n.level() == 0 {
						next = append(next, n.child(i))
					}
				}
				fmt.Fprintln(w)
			}
			frontier = next
		}
		for {
			data, err := file.ReadPage(leftmost)
			if err != nil {
				return err
			}
			n := innerNode[K]{data: data, c: &ops.codec, cap: ops.innerCap}
			leftmost = n.child(0)
			if n.level() == 1 {
				break
			}
		}
	}

	entries := 0
	for pageNo := leftmost; pageNo != 0; {
		data, err := file.ReadPage(pageNo)
		if err != nil {
			return err
		}
		n := leafNode[K]{data: data, c: &ops.codec, cap: ops.leafCap}
		count := n.count()
		entries += count
		fmt.Fprintf(w, "leaf %d: entries=%d sib=%d", pageNo, count, n.rightSib())
		if count > 0 {
			fmt.Fprintf(w, " first=%v last=%v", n.key(0), n.key(count-1))
		}
		fmt.Fprintln(w)
		pageNo = n.rightSib()
	}
	fmt.Fprintf(w, "total entries: %d\n", entries)
	return nil
}
