package heap

// implicitScan is the no-index policy: free status lives only in block headers,
// so insert and remove have nothing to do and fit queries walk the whole heap in
// address order, returning the first free block large enough.
type implicitScan struct {
	l *layout
	// start is the prologue payload reference; the scan steps from block to
	// block until it reaches the zero-size epilogue.
	start int
}

var _ freeIndex = &implicitScan{}

func (x *implicitScan) insert(bp int) {}

func (x *implicitScan) remove(bp int) {}

func (x *implicitScan) minBlockSize() int {
	return minScanBlock
}

func (x *implicitScan) findFit(asize int) (int, bool) {
	for bp := x.start; x.l.blockSize(bp) > 0; bp = x.l.nextBlock(bp) {
		if !x.l.allocated(bp) && x.l.blockSize(bp) >= asize {
			return bp, true
		}
	}

	return nilRef, false
}

func (x *implicitScan) visitFree(visit func(bp int) error) error {
	for bp := x.start; x.l.blockSize(bp) > 0; bp = x.l.nextBlock(bp) {
		if !x.l.allocated(bp) {
			if err := visit(bp); err != nil {
				return err
			}
		}
	}

	return nil
}
