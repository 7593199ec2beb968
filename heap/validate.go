package heap

import (
	cerrors "github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
)

// Validate performs whole-heap consistency checks: sentinel shape, block
// alignment, header/footer agreement, eager-coalescing (no two adjacent free
// blocks), and exact agreement between the free-space index and the block
// headers. These checks are expensive; when the implementation is functioning
// correctly this method cannot return an error, but it assists in diagnosing
// issues with the implementation.
func (h *Heap) Validate() error {
	if h.index == nil {
		return cerrors.New("heap has not been initialized")
	}

	l := &h.l
	high := h.provider.HighAddress()

	if l.blockSize(h.start) != doubleSize || !l.allocated(h.start) {
		return cerrors.New("prologue sentinel is damaged")
	}
	if l.word(l.header(h.start)) != l.word(l.footer(h.start)) {
		return cerrors.New("prologue header and footer disagree")
	}

	freeByScan := swiss.NewMap[int, struct{}](42)
	freeCount := 0
	allocCount := 0
	prevFree := false

	bp := h.firstBlock()
	for ; l.blockSize(bp) > 0; bp = l.nextBlock(bp) {
		size := l.blockSize(bp)

		if size%Alignment != 0 {
			return cerrors.Newf("block at %d has unaligned size %d", bp, size)
		}
		if bp+size > high {
			return cerrors.Newf("block at %d extends past the mapped region", bp)
		}
		if l.word(l.header(bp)) != l.word(l.footer(bp)) {
			return cerrors.Newf("block at %d has disagreeing header and footer", bp)
		}

		if l.allocated(bp) {
			allocCount++
			prevFree = false
			continue
		}

		if prevFree {
			return cerrors.Newf("free block at %d is adjacent to another free block", bp)
		}
		if size < h.index.minBlockSize() {
			return cerrors.Newf("free block at %d is smaller than the policy minimum of %d", bp, h.index.minBlockSize())
		}
		freeByScan.Put(bp, struct{}{})
		freeCount++
		prevFree = true
	}

	if !l.allocated(bp) {
		return cerrors.New("epilogue sentinel is damaged")
	}
	if l.header(bp) != high-wordSize {
		return cerrors.Newf("epilogue header sits at %d instead of the end of the mapped region", l.header(bp))
	}

	if allocCount != h.allocCount {
		return cerrors.Newf("the heap tracks %d allocations but %d blocks are marked allocated", h.allocCount, allocCount)
	}

	// The set of blocks reachable from the index must match the set of blocks
	// whose header marks them free. The visited set also bounds traversal of a
	// corrupted list.
	visited := swiss.NewMap[int, struct{}](42)
	indexCount := 0
	err := h.index.visitFree(func(fb int) error {
		if _, ok := visited.Get(fb); ok {
			return cerrors.Newf("free block at %d is indexed more than once", fb)
		}
		visited.Put(fb, struct{}{})
		indexCount++

		if l.allocated(fb) {
			return cerrors.Newf("block at %d is in the free index but its header marks it allocated", fb)
		}
		if _, ok := freeByScan.Get(fb); !ok {
			return cerrors.Newf("free index references %d, which is not a block in this heap", fb)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if indexCount != freeCount {
		return cerrors.Newf("the free index tracks %d blocks but the heap contains %d free blocks", indexCount, freeCount)
	}

	if seg, ok := h.index.(*segregatedLists); ok {
		for class := range seg.heads {
			for fb := seg.heads[class]; fb != nilRef; fb = l.succ(fb) {
				if classForSize(l.blockSize(fb)) != class {
					return cerrors.Newf("free block at %d with size %d is filed in size class %d", fb, l.blockSize(fb), class)
				}
			}
		}
	}

	return nil
}
