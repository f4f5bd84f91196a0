package t2

// Mode-switch bits that change Tier-2 segmentation (subset of the
// code-block style byte of Table A.18; the full set lives with Tier-1).
const (
	StyleLazy    = 0x01
	StyleTermAll = 0x04
)

// maxPassesPerSegment bounds the passes of an unterminated segment:
// 1 cleanup + 36 × (significance + refinement + cleanup).
const maxPassesPerSegment = 109

// Pass is one coding pass of a code block on the encode side.
type Pass struct {
	Rate          int     // cumulative bytes up to and including this pass
	Len           int     // bytes contributed by this pass alone
	DistortionDec float64 // cumulative distortion decrease
	Term          bool    // the arithmetic coder was terminated after it
	Slope         uint16  // convex-hull slope index used by the feasible allocator
}

// Layer is one quality layer's contribution from a code block.
type Layer struct {
	NumPasses int // passes newly included in this layer
	Len       int
	Disto     float64
	Data      []byte // slice into the block's compressed bytes
}

// Segment is a run of passes with no intervening termination, on the
// decode side. Lengths are cumulative across the packets that feed it.
type Segment struct {
	NumPasses         int // passes decoded into this segment so far
	MaxPasses         int
	NumPassesInPacket int // passes contributed by the current packet
	NumBytesInPacket  int // bytes contributed by the current packet
	Len               int // total bytes of the segment
	DataIndex         int // offset of the segment in the block's data
}

// CodeBlock is the atomic Tier-1 unit as seen by Tier-2. Encode-side and
// decode-side fields share the struct; a block is only ever used in one
// direction.
type CodeBlock struct {
	X0, Y0, X1, Y1 int

	Numbps        int // magnitude bit planes actually coded
	NumLenBits    int // current length-indicator width (Lblock)
	ZeroBitPlanes int // missing MSB planes signalled via the imsb tree

	// Encode side.
	Passes            []Pass
	Data              []byte
	Layers            []Layer
	NumPassesIncluded int // passes written in packets of previous layers
	// NumPassesAllocated is the rate allocator's cursor: passes granted
	// to finalized layers so far.
	NumPassesAllocated int

	// Decode side.
	Segments    []Segment
	NumSegments int
	TotalPasses int // passes received across all packets
	Corrupt     bool
}

// Width returns the clipped block width.
func (cb *CodeBlock) Width() int { return cb.X1 - cb.X0 }

// Height returns the clipped block height.
func (cb *CodeBlock) Height() int { return cb.Y1 - cb.Y0 }

// Empty reports whether the block holds any samples at all; fully
// clipped blocks still occupy a grid slot.
func (cb *CodeBlock) Empty() bool { return cb.X1 <= cb.X0 || cb.Y1 <= cb.Y0 }

// segment returns seg index i, growing the slice as needed.
func (cb *CodeBlock) segment(i int) *Segment {
	for len(cb.Segments) <= i {
		cb.Segments = append(cb.Segments, Segment{})
	}
	return &cb.Segments[i]
}

// initSegment prepares segment i with the pass budget implied by the
// mode switches (Annex B.10.7).
func (cb *CodeBlock) initSegment(i int, style uint8, first bool) {
	seg := cb.segment(i)
	*seg = Segment{}
	switch {
	case style&StyleTermAll != 0:
		seg.MaxPasses = 1
	case style&StyleLazy != 0:
		if first {
			seg.MaxPasses = 10
		} else {
			prev := cb.Segments[i-1]
			if prev.MaxPasses == 1 || prev.MaxPasses == 10 {
				seg.MaxPasses = 2
			} else {
				seg.MaxPasses = 1
			}
		}
	default:
		seg.MaxPasses = maxPassesPerSegment
	}
}

// Precinct groups the code blocks of one band that contribute to the
// same packets, with the two tag trees that encode their inclusion and
// zero-bitplane signalling.
type Precinct struct {
	X0, Y0, X1, Y1 int
	CW, CH         int          // code-block grid
	Blocks         []*CodeBlock // raster order, CW × CH entries
	Incl           *TagTree
	Imsb           *TagTree
}

// NewPrecinct builds the precinct with its tag trees; the caller fills
// in the block slots.
func NewPrecinct(x0, y0, x1, y1, cw, ch int) *Precinct {
	return &Precinct{
		X0: x0, Y0: y0, X1: x1, Y1: y1,
		CW: cw, CH: ch,
		Blocks: make([]*CodeBlock, cw*ch),
		Incl:   NewTagTree(cw, ch),
		Imsb:   NewTagTree(cw, ch),
	}
}

// BandView is one band's contribution to a packet: its precinct at the
// packet's precinct index, together with the band's nominal bit depth.
type BandView struct {
	Empty    bool
	Numbps   int
	Precinct *Precinct
}

// PacketStyle carries the coding-style bits Tier-2 needs.
type PacketStyle struct {
	SOP       bool // 0xFF91 + packet counter before each packet
	EPH       bool // 0xFF92 after each packet header
	CblkStyle uint8
}
