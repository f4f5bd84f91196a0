package codestream

// SIZ carries the image and tile geometry on the reference grid.
type SIZ struct {
	Rsiz       uint16
	Xsiz, Ysiz uint32
	XOsiz      uint32
	YOsiz      uint32
	XTsiz      uint32
	YTsiz      uint32
	XTOsiz     uint32
	YTOsiz     uint32
	Components []ComponentSize
}

// ComponentSize is one component's precision and subsampling.
type ComponentSize struct {
	Ssiz  uint8 // precision-1, bit 7 = signed
	XRsiz uint8
	YRsiz uint8
}

// BitDepth returns the component precision in bits.
func (c ComponentSize) BitDepth() int { return int(c.Ssiz&0x7F) + 1 }

// Signed reports whether samples are two's-complement.
func (c ComponentSize) Signed() bool { return c.Ssiz&0x80 != 0 }

// NumTilesX returns the tile grid width.
func (s *SIZ) NumTilesX() int {
	return ceilDiv(int(s.Xsiz-s.XTOsiz), int(s.XTsiz))
}

// NumTilesY returns the tile grid height.
func (s *SIZ) NumTilesY() int {
	return ceilDiv(int(s.Ysiz-s.YTOsiz), int(s.YTsiz))
}

// COD is the default coding style; COC overrides it per component.
type COD struct {
	Scod          uint8
	Progression   uint8
	NumLayers     uint16
	MCT           uint8 // 0 none, 1 component transform on components 0..2
	NumLevels     uint8 // decomposition levels (resolutions - 1)
	CblkExpW      uint8 // log2(width) - 2
	CblkExpH      uint8 // log2(height) - 2
	CblkStyle     uint8
	Transform     uint8 // 0 = 9/7 irreversible, 1 = 5/3 reversible
	PrecinctSizes []uint8 // PPx | PPy<<4 per resolution, when ScodPrecincts
}

// CodeBlockSize returns the nominal code-block dimensions.
func (c *COD) CodeBlockSize() (int, int) {
	return 1 << (c.CblkExpW + 2), 1 << (c.CblkExpH + 2)
}

// PrecinctExp returns the precinct exponents for one resolution; without
// the precinct flag the maximal 2^15 default applies.
func (c *COD) PrecinctExp(res int) (ppx, ppy int) {
	if c.Scod&ScodPrecincts == 0 || res >= len(c.PrecinctSizes) {
		return 15, 15
	}
	v := c.PrecinctSizes[res]
	return int(v & 0x0F), int(v >> 4)
}

// COC is a per-component coding-style override.
type COC struct {
	Component int
	COD       COD // Scod/Progression/NumLayers/MCT unused
}

// QCD is the default quantization; QCC overrides it per component.
type QCD struct {
	Sqcd  uint8   // style | guard bits << 5
	Steps []uint16 // one per subband: expn<<3 (reversible) or expn<<11|mant
}

// Style returns the quantization style bits.
func (q *QCD) Style() int { return int(q.Sqcd & 0x1F) }

// GuardBits returns the number of guard bits.
func (q *QCD) GuardBits() int { return int(q.Sqcd >> 5) }

// QCC is a per-component quantization override.
type QCC struct {
	Component int
	QCD       QCD
}

// RGN signals the implicit ROI upshift of one component.
type RGN struct {
	Component int
	Style     uint8 // 0 = implicit (maxshift)
	Shift     uint8
}

// POCEntry is one progression-order-change record.
type POCEntry struct {
	RSpoc  uint8
	CSpoc  uint16
	LYEpoc uint16
	REpoc  uint8
	CEpoc  uint16
	Ppoc   uint8
}

// COM is a comment segment.
type COM struct {
	Registration uint16 // 0 binary, 1 Latin-1
	Data         []byte
}

// SOT heads one tile-part.
type SOT struct {
	TileIndex int
	Psot      uint32 // length including SOT and SOD through the data end
	TPsot     uint8
	TNsot     uint8
}

// TilePart is a parsed tile-part: its SOT, the tile-scoped marker
// overrides, and the packet bytes between SOD and the next marker.
type TilePart struct {
	SOT  SOT
	COD  *COD
	QCD  *QCD
	COCs []COC
	QCCs []QCC
	RGNs []RGN
	POCs []POCEntry
	PLT  [][]byte // raw PLT payloads (Zplt byte + list)
	Data []byte
}

// Codestream is the parsed main header plus tile-parts in stream order.
type Codestream struct {
	SIZ       SIZ
	COD       COD
	QCD       QCD
	COCs      []COC
	QCCs      []QCC
	RGNs      []RGN
	POCs      []POCEntry
	COMs      []COM
	TileParts []TilePart
}

// TileCOD resolves the coding style for one tile component, applying the
// component override when present.
func (cs *Codestream) TileCOD(tp *TilePart, component int) COD {
	cod := cs.COD
	if tp != nil && tp.COD != nil {
		cod = *tp.COD
	}
	cocs := cs.COCs
	if tp != nil && len(tp.COCs) > 0 {
		cocs = tp.COCs
	}
	for _, coc := range cocs {
		if coc.Component == component {
			cod.NumLevels = coc.COD.NumLevels
			cod.CblkExpW = coc.COD.CblkExpW
			cod.CblkExpH = coc.COD.CblkExpH
			cod.CblkStyle = coc.COD.CblkStyle
			cod.Transform = coc.COD.Transform
			cod.PrecinctSizes = coc.COD.PrecinctSizes
		}
	}
	return cod
}

// TileQCD resolves the quantization for one tile component.
func (cs *Codestream) TileQCD(tp *TilePart, component int) QCD {
	qcd := cs.QCD
	if tp != nil && tp.QCD != nil {
		qcd = *tp.QCD
	}
	qccs := cs.QCCs
	if tp != nil && len(tp.QCCs) > 0 {
		qccs = tp.QCCs
	}
	for _, qcc := range qccs {
		if qcc.Component == component {
			return qcc.QCD
		}
	}
	return qcd
}

// ROIShift returns the RGN upshift for a component, 0 when absent.
func (cs *Codestream) ROIShift(tp *TilePart, component int) int {
	rgns := cs.RGNs
	if tp != nil && len(tp.RGNs) > 0 {
		rgns = tp.RGNs
	}
	for _, r := range rgns {
		if r.Component == component {
			return int(r.Shift)
		}
	}
	return 0
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
