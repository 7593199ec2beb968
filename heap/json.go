package heap

import (
	"github.com/heapforge/mallockit"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// DetailedMapJSON populates a json object with this heap's totals and a
// per-block map in address order.
func (h *Heap) DetailedMapJSON(json jwriter.ObjectState) {
	var stats mallockit.DetailedStatistics
	stats.Clear()
	h.AddDetailedStatistics(&stats)

	json.Name("Policy").String(h.policy.String())
	json.Name("TotalBytes").Int(h.regionSize())
	json.Name("UnusedBytes").Int(stats.HeapBytes - stats.AllocationBytes)
	json.Name("Allocations").Int(stats.AllocationCount)
	json.Name("FreeRanges").Int(stats.FreeRangeCount)

	arrayState := json.Name("Blocks").Array()
	defer arrayState.End()

	_ = h.VisitAllBlocks(func(bp int, size int, allocated bool) error {
		obj := arrayState.Object()
		defer obj.End()

		obj.Name("Offset").Int(bp)
		obj.Name("Size").Int(size)
		obj.Name("Allocated").Bool(allocated)
		return nil
	})
}

// BuildStatsString renders the detailed heap map as a standalone JSON document.
func (h *Heap) BuildStatsString(writer *jwriter.Writer) {
	objState := writer.Object()
	h.DetailedMapJSON(objState)
	objState.End()
}

// MarshalDetailedMap is a convenience wrapper around BuildStatsString.
func (h *Heap) MarshalDetailedMap() ([]byte, error) {
	writer := jwriter.NewWriter()
	h.BuildStatsString(&writer)

	if err := writer.Error(); err != nil {
		return nil, err
	}
	return writer.Bytes(), nil
}
