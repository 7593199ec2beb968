package heap_test

import (
	"math"
	"sort"
	"testing"

	"github.com/heapforge/mallockit"
	"github.com/heapforge/mallockit/heap"
	"github.com/stretchr/testify/require"
)

var policies = []heap.Policy{heap.PolicyImplicit, heap.PolicyExplicit, heap.PolicySegregated}

func newTestHeap(t *testing.T, policy heap.Policy) *heap.Heap {
	t.Helper()

	h, err := heap.New(heap.NewRegion(1<<20), policy)
	require.NoError(t, err)
	require.NoError(t, h.Init())
	return h
}

func forEachPolicy(t *testing.T, run func(t *testing.T, h *heap.Heap)) {
	for _, policy := range policies {
		policy := policy
		t.Run(policy.String(), func(t *testing.T) {
			run(t, newTestHeap(t, policy))
		})
	}
}

// freeRegions returns the offset and size of every free block in address order.
func freeRegions(t *testing.T, h *heap.Heap) map[int]int {
	t.Helper()

	regions := map[int]int{}
	err := h.VisitAllBlocks(func(bp int, size int, allocated bool) error {
		if !allocated {
			regions[bp] = size
		}
		return nil
	})
	require.NoError(t, err)
	return regions
}

func TestNewRejectsBadConfiguration(t *testing.T) {
	region := heap.NewRegion(1 << 20)

	_, err := heap.New(region, heap.Policy(99))
	require.Error(t, err)

	_, err = heap.New(region, heap.PolicyExplicit, heap.WithChunkSize(1000))
	require.ErrorIs(t, err, mallockit.PowerOfTwoError)

	_, err = heap.New(region, heap.PolicyExplicit, heap.WithChunkSize(8))
	require.Error(t, err)

	h, err := heap.New(region, heap.PolicyExplicit, heap.WithChunkSize(1<<13))
	require.NoError(t, err)
	require.NoError(t, h.Init())
	require.NoError(t, h.Validate())
}

func TestAllocateAlignmentAndUsableSize(t *testing.T) {
	forEachPolicy(t, func(t *testing.T, h *heap.Heap) {
		for _, n := range []int{1, 7, 8, 9, 24, 100, 4096, 10000} {
			bp, err := h.Allocate(n)
			require.NoError(t, err)
			require.NotEqual(t, heap.NoBlock, bp)
			require.Zero(t, bp%heap.Alignment, "allocation of %d bytes returned unaligned reference %d", n, bp)
			require.GreaterOrEqual(t, h.UsableSize(bp), n)
			require.NoError(t, h.Validate())
		}
	})
}

func TestZeroSizeRequests(t *testing.T) {
	forEachPolicy(t, func(t *testing.T, h *heap.Heap) {
		bp, err := h.Allocate(0)
		require.NoError(t, err)
		require.Equal(t, heap.NoBlock, bp)
		require.True(t, h.IsEmpty())

		// Freeing the null reference is a no-op.
		h.Free(heap.NoBlock)
		require.NoError(t, h.Validate())

		// Resizing to zero behaves exactly like free.
		bp, err = h.Allocate(100)
		require.NoError(t, err)
		require.Equal(t, 1, h.AllocationCount())

		got, err := h.Resize(bp, 0)
		require.NoError(t, err)
		require.Equal(t, heap.NoBlock, got)
		require.True(t, h.IsEmpty())
		require.NoError(t, h.Validate())
	})
}

func TestAllocatedPayloadsAreDisjoint(t *testing.T) {
	forEachPolicy(t, func(t *testing.T, h *heap.Heap) {
		type span struct{ start, end int }
		var spans []span

		for i := 1; i <= 40; i++ {
			n := i*13%300 + 1
			bp, err := h.Allocate(n)
			require.NoError(t, err)
			spans = append(spans, span{bp, bp + h.UsableSize(bp)})

			// Keep some churn in the middle of the heap.
			if i%5 == 0 {
				h.Free(spans[len(spans)/2].start)
				spans = append(spans[:len(spans)/2], spans[len(spans)/2+1:]...)
			}
			require.NoError(t, h.Validate())
		}

		sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
		for i := 1; i < len(spans); i++ {
			require.LessOrEqual(t, spans[i-1].end, spans[i].start,
				"allocations %d and %d overlap", i-1, i)
		}
	})
}

func TestFreedSpaceIsReused(t *testing.T) {
	forEachPolicy(t, func(t *testing.T, h *heap.Heap) {
		a, err := h.Allocate(100)
		require.NoError(t, err)
		_, err = h.Allocate(200)
		require.NoError(t, err)

		h.Free(a)

		c, err := h.Allocate(90)
		require.NoError(t, err)
		require.Equal(t, a, c, "the 90-byte allocation should reuse the freed 100-byte block")
		require.NoError(t, h.Validate())
	})
}

func TestFullCoalescingAcrossBothNeighbors(t *testing.T) {
	forEachPolicy(t, func(t *testing.T, h *heap.Heap) {
		a, err := h.Allocate(16)
		require.NoError(t, err)
		b, err := h.Allocate(16)
		require.NoError(t, err)
		c, err := h.Allocate(16)
		require.NoError(t, err)

		// All three are carved from the front of the initial chunk.
		require.Greater(t, b, a)
		require.Equal(t, b-a, c-b)

		h.Free(b)
		require.NoError(t, h.Validate())
		h.Free(a)
		require.NoError(t, h.Validate())
		h.Free(c)
		require.NoError(t, h.Validate())

		regions := freeRegions(t, h)
		require.Len(t, regions, 1, "the heap should hold a single coalesced free block")

		size, ok := regions[a]
		require.True(t, ok, "the merged block should start where the first allocation was")
		require.Equal(t, h.SumFreeSize(), size)
		require.True(t, h.IsEmpty())
	})
}

func TestOversizedRequestGrowsEnoughOnOneCall(t *testing.T) {
	forEachPolicy(t, func(t *testing.T, h *heap.Heap) {
		// Larger than both the initial chunk and the default growth amount.
		n := 3 * heap.DefaultChunkSize

		bp, err := h.Allocate(n)
		require.NoError(t, err)
		require.NotEqual(t, heap.NoBlock, bp)
		require.GreaterOrEqual(t, h.UsableSize(bp), n)
		require.NoError(t, h.Validate())
	})
}

func TestEqualWasteTieBreakIsDeterministic(t *testing.T) {
	forEachPolicy(t, func(t *testing.T, h *heap.Heap) {
		a, err := h.Allocate(100)
		require.NoError(t, err)
		_, err = h.Allocate(100)
		require.NoError(t, err)
		c, err := h.Allocate(100)
		require.NoError(t, err)
		_, err = h.Allocate(100)
		require.NoError(t, err)

		// Two identically-sized free blocks, separated by live allocations.
		h.Free(a)
		h.Free(c)
		require.NoError(t, h.Validate())

		got, err := h.Allocate(100)
		require.NoError(t, err)

		if h.Policy() == heap.PolicyImplicit {
			// Address-ordered scan: the lower block wins.
			require.Equal(t, a, got)
		} else {
			// LIFO lists: the most recently freed block is scanned first.
			require.Equal(t, c, got)
		}
	})
}

func TestMixedWorkloadStaysConsistent(t *testing.T) {
	forEachPolicy(t, func(t *testing.T, h *heap.Heap) {
		live := map[int]bool{}

		for i := 1; i <= 200; i++ {
			switch {
			case i%7 == 0 && len(live) > 0:
				for bp := range live {
					h.Free(bp)
					delete(live, bp)
					break
				}
			case i%11 == 0 && len(live) > 0:
				for bp := range live {
					got, err := h.Resize(bp, i*31%700 + 1)
					require.NoError(t, err)
					delete(live, bp)
					live[got] = true
					break
				}
			default:
				bp, err := h.Allocate(i*17%450 + 1)
				require.NoError(t, err)
				live[bp] = true
			}
			require.NoError(t, h.Validate())
			require.NoError(t, h.CheckCorruption())
			require.Equal(t, len(live), h.AllocationCount())
		}

		for bp := range live {
			h.Free(bp)
			require.NoError(t, h.Validate())
		}

		require.True(t, h.IsEmpty())
		require.Len(t, freeRegions(t, h), 1, "a fully freed heap should coalesce into one block")
	})
}

func TestDetailedStatistics(t *testing.T) {
	h := newTestHeap(t, heap.PolicyExplicit)

	var stats mallockit.DetailedStatistics
	stats.Clear()
	h.AddDetailedStatistics(&stats)

	require.Equal(t, mallockit.DetailedStatistics{
		Statistics: mallockit.Statistics{
			HeapCount:       1,
			HeapBytes:       16 + heap.DefaultChunkSize,
			AllocationCount: 0,
			AllocationBytes: 0,
		},
		FreeRangeCount:    1,
		AllocationSizeMin: math.MaxInt,
		AllocationSizeMax: 0,
		FreeRangeSizeMin:  heap.DefaultChunkSize,
		FreeRangeSizeMax:  heap.DefaultChunkSize,
	}, stats)

	bp, err := h.Allocate(100)
	require.NoError(t, err)

	stats.Clear()
	h.AddDetailedStatistics(&stats)

	require.Equal(t, mallockit.DetailedStatistics{
		Statistics: mallockit.Statistics{
			HeapCount:       1,
			HeapBytes:       16 + heap.DefaultChunkSize,
			AllocationCount: 1,
			AllocationBytes: 112,
		},
		FreeRangeCount:    1,
		AllocationSizeMin: 112,
		AllocationSizeMax: 112,
		FreeRangeSizeMin:  heap.DefaultChunkSize - 112,
		FreeRangeSizeMax:  heap.DefaultChunkSize - 112,
	}, stats)

	var plain mallockit.Statistics
	plain.Clear()
	h.AddStatistics(&plain)

	require.Equal(t, mallockit.Statistics{
		HeapCount:       1,
		HeapBytes:       16 + heap.DefaultChunkSize,
		AllocationCount: 1,
		AllocationBytes: 112,
	}, plain)

	h.Free(bp)
}

func TestOutOfMemoryLeavesHeapUntouched(t *testing.T) {
	for _, policy := range policies {
		policy := policy
		t.Run(policy.String(), func(t *testing.T) {
			// A region that can hold the sentinels, the initial chunk, and nothing more.
			h, err := heap.New(heap.NewRegion(16+heap.DefaultChunkSize), policy)
			require.NoError(t, err)
			require.NoError(t, h.Init())

			bp, err := h.Allocate(2 * heap.DefaultChunkSize)
			require.ErrorIs(t, err, heap.ErrOutOfMemory)
			require.Equal(t, heap.NoBlock, bp)

			// Previously committed state survives the failed growth.
			require.NoError(t, h.Validate())
			require.True(t, h.IsEmpty())

			bp, err = h.Allocate(100)
			require.NoError(t, err)
			require.NotEqual(t, heap.NoBlock, bp)
			require.NoError(t, h.Validate())
		})
	}
}
