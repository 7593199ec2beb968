package heap

import (
	cerrors "github.com/cockroachdb/errors"
)

// Provider is the virtual-memory boundary. It owns the single contiguous region
// a Heap formats, extends it on demand, and reports its bounds. The region is
// never shrunk or returned to the operating system.
type Provider interface {
	// Grow extends the region by exactly increment bytes, contiguous with prior
	// space, and returns the offset of the first new byte. On failure the region
	// is left unchanged.
	Grow(increment int) (int, error)
	// LowAddress reports the offset of the first mapped byte.
	LowAddress() int
	// HighAddress reports the offset one past the last mapped byte.
	HighAddress() int
	// Bytes exposes the mapped region. The slice must be re-fetched after every
	// Grow, since growth may relocate the backing array.
	Bytes() []byte
}

// Region is the default in-memory Provider: a buffer grown by append up to a
// fixed limit, standing in for an sbrk-style operating system boundary.
type Region struct {
	buf   []byte
	limit int
}

var _ Provider = &Region{}

// NewRegion creates a Region that refuses to grow beyond limit bytes.
func NewRegion(limit int) *Region {
	return &Region{limit: limit}
}

func (r *Region) Grow(increment int) (int, error) {
	if increment < 0 {
		return 0, cerrors.Newf("negative region growth: %d", increment)
	}
	if len(r.buf)+increment > r.limit {
		return 0, cerrors.Wrapf(ErrOutOfMemory,
			"growing the region by %d bytes would exceed its %d-byte limit", increment, r.limit)
	}

	base := len(r.buf)
	r.buf = append(r.buf, make([]byte, increment)...)
	return base, nil
}

func (r *Region) LowAddress() int {
	return 0
}

func (r *Region) HighAddress() int {
	return len(r.buf)
}

func (r *Region) Bytes() []byte {
	return r.buf
}
