package heap

import "math"

// classBounds are the inclusive upper bounds of the size classes; sizes above
// the last bound fall into the final open-ended class.
var classBounds = [...]int{32, 48, 64, 96, 128, 192, 256, 384, 512, 768, 1024, 1536, 2048, 4096, 8192}

const classCount = len(classBounds) + 1

// classForSize maps a block's total size to the size class whose range
// contains it.
func classForSize(size int) int {
	for class, bound := range classBounds {
		if size <= bound {
			return class
		}
	}

	return classCount - 1
}

// segregatedLists keeps one LIFO doubly-linked free list per size class.
// Membership always follows a block's current size: coalescing or splitting may
// move a block across classes, so insert and remove recompute the class on
// every call.
type segregatedLists struct {
	l     *layout
	heads [classCount]int
}

var _ freeIndex = &segregatedLists{}

func (x *segregatedLists) minBlockSize() int {
	return minNodeBlock
}

func (x *segregatedLists) insert(bp int) {
	class := classForSize(x.l.blockSize(bp))

	x.l.setPred(bp, nilRef)
	x.l.setSucc(bp, x.heads[class])
	if x.heads[class] != nilRef {
		x.l.setPred(x.heads[class], bp)
	}
	x.heads[class] = bp
}

func (x *segregatedLists) remove(bp int) {
	pred := x.l.pred(bp)
	succ := x.l.succ(bp)

	if pred != nilRef {
		x.l.setSucc(pred, succ)
	} else {
		class := classForSize(x.l.blockSize(bp))
		if x.heads[class] != bp {
			panic("block was not at the head of its size class despite having no predecessor")
		}
		x.heads[class] = succ
	}

	if succ != nilRef {
		x.l.setPred(succ, pred)
	}
}

// findFit starts at the class for the requested size and scans upward through
// larger classes only; a smaller class cannot satisfy a larger request. The
// best-fit winner is global across all visited classes.
func (x *segregatedLists) findFit(asize int) (int, bool) {
	best := nilRef
	bestWaste := math.MaxInt

	for class := classForSize(asize); class < classCount; class++ {
		for bp := x.heads[class]; bp != nilRef; bp = x.l.succ(bp) {
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
	}

	if best == nilRef {
		return nilRef, false
	}
	return best, true
}

func (x *segregatedLists) visitFree(visit func(bp int) error) error {
	for class := 0; class < classCount; class++ {
		for bp := x.heads[class]; bp != nilRef; bp = x.l.succ(bp) {
			if err := visit(bp); err != nil {
				return err
			}
		}
	}

	return nil
}
