package heap

import (
	cerrors "github.com/cockroachdb/errors"
	"github.com/heapforge/mallockit"
	"golang.org/x/exp/slog"
)

// DefaultChunkSize is the minimum growth the implicit and explicit policies
// apply when no fit exists. The segregated policy ignores it and grows by the
// request's shortfall against the free tail block instead.
const DefaultChunkSize = 1 << 12

// NoBlock is the null block reference. It is returned for zero-size requests
// and on allocation failure, and may be passed to Free and Resize.
const NoBlock = nilRef

// Heap manages one growable region obtained from a Provider. Blocks are
// addressed by payload offset into the region. A Heap is not safe for
// concurrent use.
type Heap struct {
	provider Provider
	policy   Policy
	l        layout
	index    freeIndex

	chunkSize  int
	start      int
	allocCount int
}

var _ mallockit.Validatable = &Heap{}

// HeapOption adjusts construction parameters for New.
type HeapOption func(*Heap)

// WithChunkSize overrides DefaultChunkSize. The value must be a power of two
// no smaller than the minimum block size.
func WithChunkSize(bytes int) HeapOption {
	return func(h *Heap) {
		h.chunkSize = bytes
	}
}

// New creates an uninitialized Heap over the provided region with the given
// free-space index policy. Init must be called before any other operation.
func New(provider Provider, policy Policy, options ...HeapOption) (*Heap, error) {
	h := &Heap{
		provider:  provider,
		policy:    policy,
		chunkSize: DefaultChunkSize,
	}
	for _, option := range options {
		option(h)
	}

	switch policy {
	case PolicyImplicit, PolicyExplicit, PolicySegregated:
	default:
		return nil, cerrors.Newf("unknown free-space index policy: %d", policy)
	}

	err := mallockit.CheckPow2(uint(h.chunkSize), "chunk size")
	if err != nil {
		return nil, err
	}
	if h.chunkSize < minNodeBlock {
		return nil, cerrors.Newf("chunk size %d cannot hold even one block", h.chunkSize)
	}

	return h, nil
}

// Init establishes the prologue and epilogue sentinels and performs the initial
// growth of one chunk.
func (h *Heap) Init() error {
	base, err := h.provider.Grow(4 * wordSize)
	if err != nil {
		return cerrors.Wrap(err, "initial heap growth failed")
	}
	h.l.mem = h.provider.Bytes()

	if base%Alignment != 0 {
		return cerrors.Newf("provider region starts at %d, which is not %d-byte aligned", base, Alignment)
	}

	h.l.putWord(base, 0)                                 // alignment padding
	h.l.putWord(base+1*wordSize, pack(doubleSize, true)) // prologue header
	h.l.putWord(base+2*wordSize, pack(doubleSize, true)) // prologue footer
	h.l.putWord(base+3*wordSize, pack(0, true))          // epilogue header
	h.start = base + 2*wordSize

	switch h.policy {
	case PolicyImplicit:
		h.index = &implicitScan{l: &h.l, start: h.start}
	case PolicyExplicit:
		h.index = &explicitList{l: &h.l, head: nilRef}
	case PolicySegregated:
		h.index = &segregatedLists{l: &h.l}
	}

	_, err = h.extend(h.chunkSize / wordSize)
	return err
}

// Policy reports the free-space index policy the heap was built with.
func (h *Heap) Policy() Policy {
	return h.policy
}

// AllocationCount returns the number of live allocations.
func (h *Heap) AllocationCount() int {
	return h.allocCount
}

// IsEmpty returns true when the heap has no live allocations.
func (h *Heap) IsEmpty() bool {
	return h.allocCount == 0
}

// Allocate reserves at least n usable bytes and returns the block reference.
// A zero-size request returns NoBlock with no error. ErrOutOfMemory is
// propagated when the provider cannot grow the region; no heap state changes
// on that path.
func (h *Heap) Allocate(n int) (int, error) {
	mallockit.DebugValidate(h)

	if n <= 0 {
		return NoBlock, nil
	}

	asize := h.adjustSize(n + mallockit.DebugMargin)

	bp, ok := h.index.findFit(asize)
	if !ok {
		var err error
		bp, err = h.extendForRequest(asize)
		if err != nil {
			return NoBlock, err
		}
	}

	h.place(bp, asize)
	h.allocCount++
	h.writeCanary(bp)
	return bp, nil
}

// Free releases an allocated block and merges it with any free neighbor.
// Freeing NoBlock is a no-op. Freeing a reference this heap did not return, or
// freeing twice, is undefined behavior.
func (h *Heap) Free(bp int) {
	mallockit.DebugValidate(h)

	if bp == NoBlock {
		return
	}

	h.l.writeBlock(bp, h.l.blockSize(bp), false)
	h.coalesce(bp)
	h.allocCount--
}

// Resize grows or shrinks an allocation to n usable bytes. Resize(NoBlock, n)
// allocates fresh; Resize(bp, 0) frees the block and returns NoBlock. Growth
// first tries to absorb an immediately-following free block in place, then
// falls back to allocate-copy-free, preserving the old payload prefix.
func (h *Heap) Resize(bp int, n int) (int, error) {
	if bp == NoBlock {
		return h.Allocate(n)
	}
	if n <= 0 {
		h.Free(bp)
		return NoBlock, nil
	}

	mallockit.DebugValidate(h)

	asize := h.adjustSize(n + mallockit.DebugMargin)
	oldSize := h.l.blockSize(bp)

	if asize <= oldSize {
		// Shrink in place, splitting off the remainder when it can stand alone.
		if remainder := oldSize - asize; remainder >= h.index.minBlockSize() {
			h.l.writeBlock(bp, asize, true)
			rem := h.l.nextBlock(bp)
			h.l.writeBlock(rem, remainder, false)
			h.coalesce(rem)
		}
		h.writeCanary(bp)
		return bp, nil
	}

	// Grow in place by absorbing the following block if it is free and the
	// combined size covers the request.
	next := h.l.nextBlock(bp)
	if !h.l.allocated(next) {
		capacity := oldSize + h.l.blockSize(next)
		if capacity >= asize {
			h.index.remove(next)

			if remainder := capacity - asize; remainder >= h.index.minBlockSize() {
				h.l.writeBlock(bp, asize, true)
				rem := h.l.nextBlock(bp)
				h.l.writeBlock(rem, remainder, false)
				h.index.insert(rem)
			} else {
				h.l.writeBlock(bp, capacity, true)
			}

			h.writeCanary(bp)
			return bp, nil
		}
	}

	newBp, err := h.Allocate(n)
	if err != nil {
		return NoBlock, err
	}

	copySize := oldSize - doubleSize - mallockit.DebugMargin
	if n < copySize {
		copySize = n
	}
	copy(h.l.mem[newBp:newBp+copySize], h.l.mem[bp:bp+copySize])

	h.Free(bp)
	return newBp, nil
}

// UsableSize reports the number of payload bytes available in an allocated
// block, which may exceed what was requested.
func (h *Heap) UsableSize(bp int) int {
	return h.l.blockSize(bp) - doubleSize - mallockit.DebugMargin
}

// PayloadBytes returns the usable region of an allocated block as a slice view
// into the heap. The view is invalidated by any subsequent heap growth.
func (h *Heap) PayloadBytes(bp int) []byte {
	return h.l.mem[bp : bp+h.UsableSize(bp)]
}

// adjustSize converts a request for n payload bytes into a block size covering
// metadata overhead, alignment, and the policy's minimum block size. List
// policies floor the result at the node-bearing minimum: any block may later be
// freed and must then hold its list references.
func (h *Heap) adjustSize(n int) int {
	asize := minScanBlock
	if n > doubleSize {
		asize = mallockit.AlignUp(n+doubleSize, Alignment)
	}

	if asize < h.index.minBlockSize() {
		asize = h.index.minBlockSize()
	}
	return asize
}

// place converts a free block into an allocated block of asize bytes, splitting
// off the remainder as a new free block when it can stand on its own.
func (h *Heap) place(bp int, asize int) {
	csize := h.l.blockSize(bp)
	h.index.remove(bp)

	if csize-asize >= h.index.minBlockSize() {
		h.l.writeBlock(bp, asize, true)
		rem := h.l.nextBlock(bp)
		h.l.writeBlock(rem, csize-asize, false)
		h.index.insert(rem)
	} else {
		h.l.writeBlock(bp, csize, true)
	}
}

// coalesce merges a not-yet-indexed free block with any free neighbor on either
// side, removing merged neighbors from the index, then inserts the combined
// block and returns its (possibly shifted) reference. Merges are applied
// eagerly on every free and extension, so at most one level of adjacency can
// exist on each side.
func (h *Heap) coalesce(bp int) int {
	size := h.l.blockSize(bp)
	next := h.l.nextBlock(bp)
	prevFree := !h.l.allocatedAt(bp - doubleSize) // previous block's footer
	nextFree := !h.l.allocated(next)

	if prevFree {
		prev := h.l.prevBlock(bp)
		h.index.remove(prev)
		size += h.l.blockSize(prev)
		bp = prev
	}

	if nextFree {
		h.index.remove(next)
		size += h.l.blockSize(next)
	}

	h.l.writeBlock(bp, size, false)
	h.index.insert(bp)
	return bp
}

// extend grows the heap by the given word count (rounded up to an even count to
// preserve alignment), formats the new space as one free block under a fresh
// epilogue, and coalesces it with a previously-free tail block. On provider
// failure no heap state changes.
func (h *Heap) extend(words int) (int, error) {
	if words%2 != 0 {
		words++
	}
	size := words * wordSize

	base, err := h.provider.Grow(size)
	if err != nil {
		return NoBlock, cerrors.Wrapf(err, "could not extend the heap by %d bytes", size)
	}
	h.l.mem = h.provider.Bytes()

	// The old epilogue header becomes the new block's header.
	bp := base
	h.l.writeBlock(bp, size, false)
	h.l.writeHeader(h.l.nextBlock(bp), 0, true)

	return h.coalesce(bp), nil
}

// extendForRequest grows the heap enough to satisfy a request of asize bytes
// and returns a fitting block. The implicit and explicit policies grow by at
// least one chunk; the segregated policy grows only by the shortfall left after
// counting the current free tail block.
func (h *Heap) extendForRequest(asize int) (int, error) {
	grow := asize
	if h.policy == PolicySegregated {
		grow -= h.tailFreeSize()
		if grow < 0 {
			grow = 0
		}
	} else if grow < h.chunkSize {
		grow = h.chunkSize
	}

	if grow > 0 {
		if _, err := h.extend(grow / wordSize); err != nil {
			return NoBlock, err
		}
	}

	bp, ok := h.index.findFit(asize)
	if !ok {
		panic("heap growth did not produce a block large enough for the request")
	}
	return bp, nil
}

// tailFreeSize reports the size of the free block immediately preceding the
// epilogue, if any.
func (h *Heap) tailFreeSize() int {
	footer := h.provider.HighAddress() - doubleSize // footer of the last real block
	if footer <= h.start || h.l.allocatedAt(footer) {
		return 0
	}
	return h.l.sizeAt(footer)
}

// firstBlock is the first real block after the prologue sentinel.
func (h *Heap) firstBlock() int {
	return h.l.nextBlock(h.start)
}

// writeCanary stamps the debug margin trailing an allocation's payload. No-op
// unless built with the debug_mallockit tag.
func (h *Heap) writeCanary(bp int) {
	if mallockit.DebugMargin > 0 {
		mallockit.WriteMagicValue(h.l.mem, bp+h.UsableSize(bp))
	}
}

// CheckCorruption verifies the debug canary trailing every live allocation.
// It always passes unless built with the debug_mallockit tag.
func (h *Heap) CheckCorruption() error {
	if mallockit.DebugMargin == 0 {
		return nil
	}

	for bp := h.firstBlock(); h.l.blockSize(bp) > 0; bp = h.l.nextBlock(bp) {
		if h.l.allocated(bp) && !mallockit.ValidateMagicValue(h.l.mem, bp+h.UsableSize(bp)) {
			return cerrors.Newf("memory corruption detected after the allocation at %d", bp)
		}
	}

	return nil
}

// SumFreeSize returns the total bytes held in free blocks. It walks the block
// chain, so it can be slow on large heaps.
func (h *Heap) SumFreeSize() int {
	total := 0
	for bp := h.firstBlock(); h.l.blockSize(bp) > 0; bp = h.l.nextBlock(bp) {
		if !h.l.allocated(bp) {
			total += h.l.blockSize(bp)
		}
	}
	return total
}

// VisitAllBlocks calls handleBlock once for every block between the sentinels,
// in address order.
func (h *Heap) VisitAllBlocks(handleBlock func(bp int, size int, allocated bool) error) error {
	for bp := h.firstBlock(); h.l.blockSize(bp) > 0; bp = h.l.nextBlock(bp) {
		err := handleBlock(bp, h.l.blockSize(bp), h.l.allocated(bp))
		if err != nil {
			return err
		}
	}

	return nil
}

// AddStatistics sums this heap's accounting into the provided statistics.
func (h *Heap) AddStatistics(stats *mallockit.Statistics) {
	stats.HeapCount++
	stats.HeapBytes += h.regionSize()
	stats.AllocationCount += h.allocCount
	stats.AllocationBytes += h.regionSize() - h.sentinelOverhead() - h.SumFreeSize()
}

// AddDetailedStatistics sums this heap's per-block statistics into the provided
// detailed statistics.
func (h *Heap) AddDetailedStatistics(stats *mallockit.DetailedStatistics) {
	stats.HeapCount++
	stats.HeapBytes += h.regionSize()

	_ = h.VisitAllBlocks(func(bp int, size int, allocated bool) error {
		if allocated {
			stats.AddAllocation(size)
		} else {
			stats.AddFreeRange(size)
		}
		return nil
	})
}

// DebugLogAllAllocations walks every live allocation and passes it to logFunc
// along with the provided logger.
func (h *Heap) DebugLogAllAllocations(logger *slog.Logger, logFunc func(log *slog.Logger, bp int, size int)) {
	for bp := h.firstBlock(); h.l.blockSize(bp) > 0; bp = h.l.nextBlock(bp) {
		if h.l.allocated(bp) {
			logFunc(logger, bp, h.l.blockSize(bp))
		}
	}
}

func (h *Heap) regionSize() int {
	return h.provider.HighAddress() - h.provider.LowAddress()
}

// sentinelOverhead is the fixed cost of the padding word, prologue pair, and
// epilogue header.
func (h *Heap) sentinelOverhead() int {
	return 4 * wordSize
}
