package heap

import "encoding/binary"

const (
	// wordSize is the width of one packed header/footer word.
	wordSize = 4
	// doubleSize is the combined metadata overhead of a block (header + footer).
	doubleSize = 8
	// refSize is the width of one free-list node reference stored in a free
	// block's payload.
	refSize = 8

	// Alignment is the boundary every payload reference and block size is
	// aligned to. The three low bits of a header word are therefore spare,
	// and the lowest carries the allocated flag.
	Alignment = 8

	// nilRef marks the absence of a block reference. The heap's alignment
	// padding occupies offset 0, so no payload can ever live there.
	nilRef = 0
)

// pack combines a block size and its allocated flag into one header/footer word.
func pack(size int, allocated bool) uint32 {
	v := uint32(size)
	if allocated {
		v |= 1
	}
	return v
}

// layout decodes and encodes block metadata at fixed offsets from a block's
// payload reference. A block reference always points at the first payload byte;
// the header word sits immediately before it and the footer word occupies the
// block's final word. All methods are pure address arithmetic over the mapped
// region and assume the caller supplies valid references.
type layout struct {
	mem []byte
}

func (l *layout) word(addr int) uint32 {
	return binary.LittleEndian.Uint32(l.mem[addr:])
}

func (l *layout) putWord(addr int, v uint32) {
	binary.LittleEndian.PutUint32(l.mem[addr:], v)
}

// sizeAt decodes the size field of the packed word at addr.
func (l *layout) sizeAt(addr int) int {
	return int(l.word(addr) &^ (Alignment - 1))
}

// allocatedAt decodes the status bit of the packed word at addr.
func (l *layout) allocatedAt(addr int) bool {
	return l.word(addr)&1 != 0
}

func (l *layout) header(bp int) int {
	return bp - wordSize
}

func (l *layout) footer(bp int) int {
	return bp + l.blockSize(bp) - doubleSize
}

func (l *layout) blockSize(bp int) int {
	return l.sizeAt(l.header(bp))
}

func (l *layout) allocated(bp int) bool {
	return l.allocatedAt(l.header(bp))
}

func (l *layout) nextBlock(bp int) int {
	return bp + l.blockSize(bp)
}

// prevBlock locates the preceding block through its footer, which sits in the
// word just before this block's header.
func (l *layout) prevBlock(bp int) int {
	return bp - l.sizeAt(bp-doubleSize)
}

// writeBlock stamps a block's header and footer. Footers are maintained for
// allocated blocks too, so prevBlock works without knowing the neighbor's status.
func (l *layout) writeBlock(bp int, size int, allocated bool) {
	v := pack(size, allocated)
	l.putWord(bp-wordSize, v)
	l.putWord(bp+size-doubleSize, v)
}

// writeHeader stamps only the header word. Used for the epilogue sentinel,
// which has no footer.
func (l *layout) writeHeader(bp int, size int, allocated bool) {
	l.putWord(bp-wordSize, pack(size, allocated))
}

// Free-list node references overlay the first two ref-sized words of a free
// block's payload. They are meaningful only while the block is free and
// indexed by a list policy.

func (l *layout) pred(bp int) int {
	return int(binary.LittleEndian.Uint64(l.mem[bp:]))
}

func (l *layout) succ(bp int) int {
	return int(binary.LittleEndian.Uint64(l.mem[bp+refSize:]))
}

func (l *layout) setPred(bp int, ref int) {
	binary.LittleEndian.PutUint64(l.mem[bp:], uint64(ref))
}

func (l *layout) setSucc(bp int, ref int) {
	binary.LittleEndian.PutUint64(l.mem[bp+refSize:], uint64(ref))
}
