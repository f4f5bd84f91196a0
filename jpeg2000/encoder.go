package jpeg2000

import (
	"fmt"
	"math"

	"github.com/cocosip/go-j2k/jpeg2000/codestream"
	"github.com/cocosip/go-j2k/jpeg2000/t2"
)

// versionComment goes into the COM marker of every stream the encoder
// produces.
const versionComment = "go-j2k codec"

// Encoder compresses one image into a JPEG 2000 code stream.
type Encoder struct {
	params *EncodeParams
	image  *Image

	// RateControlErr carries a best-effort note when a layer target was
	// unreachable; the stream is still complete.
	RateControlErr error
}

// NewEncoder validates parameters against the image and binds them.
func NewEncoder(p *EncodeParams, image *Image) (*Encoder, error) {
	if p == nil {
		p = DefaultEncodeParams()
	}
	if err := image.Validate(); err != nil {
		return nil, err
	}
	if err := p.Validate(len(image.Components)); err != nil {
		return nil, err
	}
	return &Encoder{params: p, image: image}, nil
}

// Encode emits the complete code stream: main header, every tile, EOC.
// Tile parts are buffered first so a TLM directory can precede them when
// requested.
func (e *Encoder) Encode() ([]byte, error) {
	p := e.params
	img := e.image

	w := codestream.NewWriter()
	w.WriteSOC()
	if err := e.writeMainHeader(w); err != nil {
		return nil, err
	}
	// Fixed overhead charged against the rate targets: the main header
	// plus one SOT/SOD pair and the EOC.
	overhead := w.Len() + 14 + 2

	type tilePart struct {
		tileIdx      int
		tpsot, tnsot int
		plt          [][]byte
		data         []byte
	}
	var parts []tilePart

	n := numTiles(img.Rect, p.TileWidth, p.TileHeight)
	for tileIdx := 0; tileIdx < n; tileIdx++ {
		tp, err := NewEncodeTileProcessor(p, img, tileIdx)
		if err != nil {
			return nil, err
		}
		packets, spans, pl, rcErr := tp.EncodeTile(p, overhead)
		if rcErr != nil {
			if !isRateControlInfeasible(rcErr) {
				return nil, rcErr
			}
			if e.RateControlErr == nil {
				e.RateControlErr = rcErr
			}
		}

		var pltPayloads [][]byte
		if pl != nil {
			pltPayloads = pl.Encode()
		}

		splits := layerSplits(spans, p)
		for k := 0; k < len(splits); k++ {
			part := tilePart{
				tileIdx: tileIdx,
				tpsot:   k,
				tnsot:   len(splits),
				data:    packets[splits[k].start:splits[k].end],
			}
			if k == 0 {
				part.plt = pltPayloads
			}
			parts = append(parts, part)
		}
		tp.Release()
	}

	partLen := func(part int) uint32 {
		l := 12 + 2 + len(parts[part].data)
		for _, pp := range parts[part].plt {
			l += len(pp) + 4
		}
		return uint32(l)
	}

	if p.WriteTLM {
		var entries []codestream.TLMEntry
		for i := range parts {
			entries = append(entries, codestream.TLMEntry{
				TileIndex: parts[i].tileIdx,
				Length:    partLen(i),
			})
		}
		w.WriteTLM(0, entries)
	}

	for i := range parts {
		w.WriteSOT(&codestream.SOT{
			TileIndex: parts[i].tileIdx,
			Psot:      partLen(i),
			TPsot:     uint8(parts[i].tpsot),
			TNsot:     uint8(parts[i].tnsot),
		})
		for _, pp := range parts[i].plt {
			w.WritePLT(pp)
		}
		w.WriteSOD()
		w.WriteRaw(parts[i].data)
	}
	w.WriteEOC()
	return w.Bytes(), nil
}

// layerSpan is a [start, end) byte range of one tile part.
type layerSpan struct {
	start, end int
}

// layerSplits cuts the packet stream at quality-layer boundaries when
// tile-part generation is on and the progression keeps layers
// contiguous; otherwise the whole stream is one part.
func layerSplits(spans []packetSpan, p *EncodeParams) []layerSpan {
	total := 0
	if len(spans) > 0 {
		total = spans[len(spans)-1].Offset + spans[len(spans)-1].Len
	}
	whole := []layerSpan{{0, total}}
	if !p.EnableTilePartGeneration || p.NumLayers <= 1 || len(p.POCs) > 0 {
		return whole
	}
	var out []layerSpan
	cur := layerSpan{}
	layer := 0
	for _, sp := range spans {
		if sp.Layer < layer {
			// Layers interleave under this progression; do not split.
			return whole
		}
		if sp.Layer > layer {
			out = append(out, cur)
			cur = layerSpan{start: sp.Offset}
			layer = sp.Layer
		}
		cur.end = sp.Offset + sp.Len
	}
	out = append(out, cur)
	return out
}

func (e *Encoder) writeMainHeader(w *codestream.Writer) error {
	p := e.params
	img := e.image

	siz := &codestream.SIZ{
		Xsiz:   uint32(img.Rect.X1),
		Ysiz:   uint32(img.Rect.Y1),
		XOsiz:  uint32(img.Rect.X0),
		YOsiz:  uint32(img.Rect.Y0),
		XTsiz:  uint32(tileDim(p.TileWidth, img.Rect.Width())),
		YTsiz:  uint32(tileDim(p.TileHeight, img.Rect.Height())),
		XTOsiz: uint32(img.Rect.X0),
		YTOsiz: uint32(img.Rect.Y0),
	}
	for _, c := range img.Components {
		ssiz := uint8(c.Precision - 1)
		if c.Signed {
			ssiz |= 0x80
		}
		siz.Components = append(siz.Components, codestream.ComponentSize{
			Ssiz: ssiz, XRsiz: uint8(c.DX), YRsiz: uint8(c.DY),
		})
	}
	if err := w.WriteSIZ(siz); err != nil {
		return err
	}

	cod := &codestream.COD{
		Progression: uint8(p.Progression),
		NumLayers:   uint16(p.NumLayers),
		NumLevels:   uint8(p.NumResolutions - 1),
		CblkExpW:    uint8(p.CblkW - 2),
		CblkExpH:    uint8(p.CblkH - 2),
		CblkStyle:   p.CblkStyle,
	}
	if p.EnableSOP {
		cod.Scod |= codestream.ScodSOP
	}
	if p.EnableEPH {
		cod.Scod |= codestream.ScodEPH
	}
	if !p.Irreversible {
		cod.Transform = 1
	}
	if p.MCT != MCTNone {
		cod.MCT = 1
	}
	if len(p.PrecinctW) > 0 || len(p.PrecinctH) > 0 {
		cod.Scod |= codestream.ScodPrecincts
		tc := p.tileCoding()
		for r := 0; r < p.NumResolutions; r++ {
			px, py := tc.precinctExp(r)
			cod.PrecinctSizes = append(cod.PrecinctSizes, uint8(px|py<<4))
		}
	}
	w.WriteCOD(cod)

	// QCD from component 0's band lattice; components with a different
	// precision get a QCC override.
	refTC, err := e.referenceComponent(0)
	if err != nil {
		return err
	}
	style := codestream.QuantNone
	if p.Irreversible {
		style = codestream.QuantScalarExpound
	}
	w.WriteQCD(&codestream.QCD{
		Sqcd:  uint8(style | p.GuardBits<<5),
		Steps: refTC.qcdSteps(!p.Irreversible),
	})
	for ci := 1; ci < len(img.Components); ci++ {
		if img.Components[ci].Precision == img.Components[0].Precision &&
			img.Components[ci].Signed == img.Components[0].Signed {
			continue
		}
		tc, err := e.referenceComponent(ci)
		if err != nil {
			return err
		}
		w.WriteQCC(&codestream.QCC{
			Component: ci,
			QCD: codestream.QCD{
				Sqcd:  uint8(style | p.GuardBits<<5),
				Steps: tc.qcdSteps(!p.Irreversible),
			},
		}, len(img.Components))
	}

	if p.ROIShift > 0 {
		w.WriteRGN(&codestream.RGN{
			Component: p.ROIComponent,
			Style:     0,
			Shift:     uint8(p.ROIShift),
		}, len(img.Components))
	}

	if len(p.POCs) > 0 {
		var entries []codestream.POCEntry
		for _, poc := range p.POCs {
			entries = append(entries, codestream.POCEntry{
				RSpoc:  uint8(poc.ResStart),
				CSpoc:  uint16(poc.CompStart),
				LYEpoc: uint16(poc.LayerEnd),
				REpoc:  uint8(poc.ResEnd),
				CEpoc:  uint16(poc.CompEnd),
				Ppoc:   uint8(poc.Progression),
			})
		}
		w.WritePOC(entries, len(img.Components))
	}

	if p.MCT == MCTCustom {
		w.WriteCOM(&codestream.COM{Registration: 0, Data: encodeMCTMatrixCOM(len(img.Components), p.CustomMCTMatrix)})
	}

	w.WriteCOM(&codestream.COM{Registration: 1, Data: []byte(versionComment)})
	return nil
}

// mctComMagic tags the COM payload that carries a custom decorrelation
// matrix across the wire.
const mctComMagic = "GOJ2K-MCT\x00"

func encodeMCTMatrixCOM(n int, matrix []float64) []byte {
	buf := make([]byte, 0, len(mctComMagic)+2+8*len(matrix))
	buf = append(buf, mctComMagic...)
	buf = append(buf, byte(n>>8), byte(n))
	for _, v := range matrix {
		bits := math.Float64bits(v)
		for shift := 56; shift >= 0; shift -= 8 {
			buf = append(buf, byte(bits>>uint(shift)))
		}
	}
	return buf
}

// decodeMCTMatrixCOM reverses encodeMCTMatrixCOM; ok is false when the
// payload is not a matrix COM.
func decodeMCTMatrixCOM(data []byte) (int, []float64, bool) {
	if len(data) < len(mctComMagic)+2 || string(data[:len(mctComMagic)]) != mctComMagic {
		return 0, nil, false
	}
	n := int(data[len(mctComMagic)])<<8 | int(data[len(mctComMagic)+1])
	rest := data[len(mctComMagic)+2:]
	if n <= 0 || len(rest) != 8*n*n {
		return 0, nil, false
	}
	matrix := make([]float64, n*n)
	for i := range matrix {
		var bits uint64
		for j := 0; j < 8; j++ {
			bits = bits<<8 | uint64(rest[8*i+j])
		}
		matrix[i] = math.Float64frombits(bits)
	}
	return n, matrix, true
}

// referenceComponent builds a throwaway lattice for the full-image
// extent of one component, used only to derive quantization words.
func (e *Encoder) referenceComponent(ci int) (*TileComponent, error) {
	c := &e.image.Components[ci]
	shift := 0
	if ci == e.params.ROIComponent {
		shift = e.params.ROIShift
	}
	return newTileComponent(c.Rect, c.Precision, c.Signed, shift, e.params.tileCoding())
}

func tileDim(v, full int) int {
	if v <= 0 {
		return full
	}
	return v
}

// mapPOCEntries converts parsed POC records to iterator bounds.
func mapPOCEntries(entries []codestream.POCEntry) []t2.POC {
	var out []t2.POC
	for _, e := range entries {
		out = append(out, t2.POC{
			Progression: t2.Progression(e.Ppoc),
			ResStart:    int(e.RSpoc),
			CompStart:   int(e.CSpoc),
			LayerEnd:    int(e.LYEpoc),
			ResEnd:      int(e.REpoc),
			CompEnd:     int(e.CEpoc),
		})
	}
	return out
}

// CompressTile encodes a single tile of the image, the tile-by-tile push
// surface, and returns that tile's packet bytes without any marker
// segments.
func CompressTile(p *EncodeParams, image *Image, tileIdx int, overhead int) ([]byte, error) {
	tp, err := NewEncodeTileProcessor(p, image, tileIdx)
	if err != nil {
		return nil, err
	}
	defer tp.Release()
	packets, _, _, rcErr := tp.EncodeTile(p, overhead)
	if rcErr != nil && !isRateControlInfeasible(rcErr) {
		return nil, rcErr
	}
	if len(packets) == 0 {
		return nil, fmt.Errorf("%w: tile %d produced no packets", ErrOutOfBounds, tileIdx)
	}
	return packets, nil
}
