package heap

import "math"

// explicitList is a single doubly-linked list of free blocks threaded through
// the blocks' own payloads, most recently freed at the head. Fit queries scan
// the whole list and return the candidate with the least waste, short-circuiting
// on an exact match.
type explicitList struct {
	l    *layout
	head int
}

var _ freeIndex = &explicitList{}

func (x *explicitList) minBlockSize() int {
	return minNodeBlock
}

func (x *explicitList) insert(bp int) {
	x.l.setPred(bp, nilRef)
	x.l.setSucc(bp, x.head)
	if x.head != nilRef {
		x.l.setPred(x.head, bp)
	}
	x.head = bp
}

func (x *explicitList) remove(bp int) {
	pred := x.l.pred(bp)
	succ := x.l.succ(bp)

	if pred != nilRef {
		x.l.setSucc(pred, succ)
	} else {
		if x.head != bp {
			panic("block was not at the head of the free list despite having no predecessor")
		}
		x.head = succ
	}

	if succ != nilRef {
		x.l.setPred(succ, pred)
	}
}

func (x *explicitList) findFit(asize int) (int, bool) {
	best := nilRef
	bestWaste := math.MaxInt

	for bp := x.head; bp != nilRef; bp = x.l.succ(bp) {
		waste := x.l.blockSize(bp) - asize
		if waste < 0 {
			continue
		}
		if waste == 0 {
			return bp, true
		}
		if waste < bestWaste {
			best = bp
			bestWaste = waste
		}
	}

	if best == nilRef {
		return nilRef, false
	}
	return best, true
}

func (x *explicitList) visitFree(visit func(bp int) error) error {
	for bp := x.head; bp != nilRef; bp = x.l.succ(bp) {
		if err := visit(bp); err != nil {
			return err
		}
	}

	return nil
}
