package heap

// Policy selects the free-space index strategy a Heap uses to track free blocks
// and answer fit queries. The block layout, coalescing, and splitting mechanism
// is identical across policies; only the bookkeeping and search differ.
type Policy uint32

const (
	// PolicyImplicit keeps no index at all. Fits are found by a first-fit linear
	// scan over every block in address order, and free status is inferred from
	// headers alone.
	PolicyImplicit Policy = iota
	// PolicyExplicit keeps a single doubly-linked list of free blocks, most
	// recently freed at the head, searched best-fit.
	PolicyExplicit
	// PolicySegregated keeps one free list per size class and searches best-fit
	// from the request's class upward.
	PolicySegregated
)

var policyMapping = map[Policy]string{
	PolicyImplicit:   "Implicit",
	PolicyExplicit:   "Explicit",
	PolicySegregated: "Segregated",
}

func (p Policy) String() string {
	return policyMapping[p]
}

// freeIndex is the pluggable free-space index behind a Heap. Implementations do
// not own blocks; they are non-owning views over free blocks resident in the
// heap region itself.
type freeIndex interface {
	// insert registers a free block. List policies link the block in LIFO order,
	// dispatching on its current size where classes apply.
	insert(bp int)
	// remove unregisters a free block before it is allocated or merged away.
	remove(bp int)
	// findFit returns a free block whose size covers asize, or reports that no
	// such block exists. Ties on equal waste go to the block encountered first
	// in scan order.
	findFit(asize int) (int, bool)
	// minBlockSize is the smallest block this policy can track once freed.
	minBlockSize() int
	// visitFree calls visit for every indexed free block, stopping on error.
	visitFree(visit func(bp int) error) error
}

// minNodeBlock is the smallest block able to host free-list node references:
// header, footer, and two refs, already a multiple of the alignment unit.
const minNodeBlock = wordSize + wordSize + refSize + refSize

// minScanBlock is the smallest block under the implicit policy, which stores no
// node references: header, footer, and one aligned payload unit.
const minScanBlock = 2 * doubleSize
