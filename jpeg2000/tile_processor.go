package jpeg2000

import (
	"errors"
	"fmt"
	"math"

	"github.com/cocosip/go-j2k/jpeg2000/t2"
)

// TileProcessor drives the codec pipeline for one tile in either
// direction. It owns the tile lattice — resolutions, bands, precincts,
// code blocks, tag trees and the tile-component buffers — and frees it
// when the tile's last packet has been written or consumed.
type TileProcessor struct {
	Tile    *Tile
	workers int
}

// tileRect returns tile tileIdx's canvas rectangle for a grid of
// tileW×tileH tiles over the image area.
func tileRect(image Rect, tileW, tileH, tileIdx int) Rect {
	if tileW <= 0 {
		tileW = image.Width()
	}
	if tileH <= 0 {
		tileH = image.Height()
	}
	tilesX := ceilDiv(image.Width(), tileW)
	tx := tileIdx % tilesX
	ty := tileIdx / tilesX
	return Rect{
		X0: image.X0 + tx*tileW,
		Y0: image.Y0 + ty*tileH,
		X1: image.X0 + (tx+1)*tileW,
		Y1: image.Y0 + (ty+1)*tileH,
	}.Intersect(image)
}

// numTiles returns the tile count for the grid.
func numTiles(image Rect, tileW, tileH int) int {
	if tileW <= 0 {
		tileW = image.Width()
	}
	if tileH <= 0 {
		tileH = image.Height()
	}
	return ceilDiv(image.Width(), tileW) * ceilDiv(image.Height(), tileH)
}

// newTile builds the lattice for one tile of the image.
func newTile(image *Image, tileIdx int, rect Rect, tp tileCodingParams, roiShift, roiComp int) (*Tile, error) {
	if rect.Empty() {
		return nil, fmt.Errorf("%w: tile %d is empty", ErrOutOfBounds, tileIdx)
	}
	t := &Tile{Index: tileIdx, Rect: rect}
	for ci := range image.Components {
		c := &image.Components[ci]
		compRect := Rect{
			X0: ceilDiv(rect.X0, c.DX), Y0: ceilDiv(rect.Y0, c.DY),
			X1: ceilDiv(rect.X1, c.DX), Y1: ceilDiv(rect.Y1, c.DY),
		}
		shift := 0
		if ci == roiComp {
			shift = roiShift
		}
		tc, err := newTileComponent(compRect, c.Precision, c.Signed, shift, tp)
		if err != nil {
			return nil, err
		}
		tc.DX, tc.DY = c.DX, c.DY
		tc.buf = newTCBuffer(compRect)
		t.Comps = append(t.Comps, tc)
	}
	return t, nil
}

// NewEncodeTileProcessor prepares tile tileIdx for compression: the
// lattice is built and the tile's samples are copied in from the image.
func NewEncodeTileProcessor(p *EncodeParams, image *Image, tileIdx int) (*TileProcessor, error) {
	rect := tileRect(image.Rect, p.TileWidth, p.TileHeight, tileIdx)
	t, err := newTile(image, tileIdx, rect, p.tileCoding(), p.ROIShift, p.ROIComponent)
	if err != nil {
		return nil, err
	}
	tp := &TileProcessor{Tile: t, workers: p.workers()}
	for ci, tc := range t.Comps {
		c := &image.Components[ci]
		copyRegion(tc.buf.data, tc.Rect, c.Data, c.Rect)
	}
	return tp, nil
}

// copyRegion copies the overlap of src into dst, both row-major planes
// addressed by their rectangles.
func copyRegion(dst []int32, dstRect Rect, src []int32, srcRect Rect) {
	ov := dstRect.Intersect(srcRect)
	for y := ov.Y0; y < ov.Y1; y++ {
		srow := (y-srcRect.Y0)*srcRect.Width() + (ov.X0 - srcRect.X0)
		drow := (y-dstRect.Y0)*dstRect.Width() + (ov.X0 - dstRect.X0)
		copy(dst[drow:drow+ov.Width()], src[srow:srow+ov.Width()])
	}
}

// EncodeTile runs DC shift → MCT → DWT → Tier-1 → rate allocation →
// Tier-2 and returns the tile's packet bytes with their per-packet
// spans, plus the packet lengths when PLT output is requested.
func (tp *TileProcessor) EncodeTile(p *EncodeParams, overhead int) ([]byte, []packetSpan, *t2.PacketLengths, error) {
	t := tp.Tile

	// DC level shift, then hand off to the integer or float pipeline.
	// The custom matrix transform works on integer planes, so it runs
	// before the float copy; RCT/ICT run in their own domains after.
	for _, tc := range t.Comps {
		dcShiftForward(tc.buf.data, tc.Precision, tc.Signed)
	}
	if p.MCT == MCTCustom {
		if err := t.forwardMCT(p, tp.workers); err != nil {
			return nil, nil, nil, err
		}
	}
	if p.Irreversible {
		for _, tc := range t.Comps {
			f := tc.buf.float()
			for i, v := range tc.buf.data {
				f[i] = float64(v)
			}
		}
	}
	if p.MCT != MCTCustom {
		if err := t.forwardMCT(p, tp.workers); err != nil {
			return nil, nil, nil, err
		}
	}

	if p.Irreversible {
		for _, tc := range t.Comps {
			tc.forwardDWT97(tp.workers)
		}
		t.quantizeBands()
	} else {
		for _, tc := range t.Comps {
			tc.forwardDWT53(tp.workers)
		}
	}

	if err := t.encodeT1(p.CblkStyle, tp.workers); err != nil {
		return nil, nil, nil, err
	}

	cfg := t.iterConfig(p.NumLayers, p.Progression, p.POCs)
	style := t2.PacketStyle{SOP: p.EnableSOP, EPH: p.EnableEPH, CblkStyle: p.CblkStyle}
	maxSE := t.maxSE()

	simulate := func(maxLayer int) int {
		out, _ := t.encodePackets(cfg, style, maxLayer, nil)
		return len(out)
	}
	rcErr := t.allocateLayers(p, maxSE, simulate, overhead)
	if rcErr != nil && !isRateControlInfeasible(rcErr) {
		return nil, nil, nil, rcErr
	}

	var pl *t2.PacketLengths
	if p.WritePLT {
		pl = &t2.PacketLengths{}
	}
	packets, spans := t.encodePackets(cfg, style, -1, pl)
	return packets, spans, pl, rcErr
}

func isRateControlInfeasible(err error) bool {
	return errors.Is(err, ErrRateControlInfeasible)
}

// quantizeBands converts the float wavelet coefficients to quantization
// indices in the integer plane, band by band.
func (t *Tile) quantizeBands() {
	for _, tc := range t.Comps {
		for _, res := range tc.Resolutions {
			for _, band := range res.Bands {
				if band.Rect.Empty() {
					continue
				}
				offX, offY, stride := tc.bandBufferOffset(band)
				w, h := band.Rect.Width(), band.Rect.Height()
				for y := 0; y < h; y++ {
					base := (offY+y)*stride + offX
					for x := 0; x < w; x++ {
						tc.buf.data[base+x] = quantize(tc.buf.fdata[base+x], band.StepSize)
					}
				}
			}
		}
	}
}

// maxSE is the peak squared error per sample, used by the fixed-quality
// targets.
func (t *Tile) maxSE() float64 {
	var m float64
	for _, tc := range t.Comps {
		v := math.Pow(2, float64(tc.Precision)) - 1
		if v*v > m {
			m = v * v
		}
	}
	return m
}

// DecodeTile runs Tier-2 → Tier-1 → inverse DWT → inverse MCT → inverse
// DC shift for a parsed tile. styleFor resolves the per-component block
// style, mode the MCT mode of the stream.
func (tp *TileProcessor) DecodeTile(data []byte, cfg t2.IteratorConfig, style t2.PacketStyle,
	styleFor func(comp int) uint8, mode MCTMode, irreversible bool, matrix []float64,
	numResolutions int, pltLengths []int) ([]string, error) {

	t := tp.Tile
	warnings, err := t.decodePackets(data, cfg, style, pltLengths)
	if err != nil {
		return warnings, err
	}

	if irreversible {
		// The float plane must exist before Tier-1 workers scatter into
		// it concurrently.
		for _, tc := range t.Comps {
			tc.buf.float()
		}
	}

	if err := t.decodeT1(styleFor, irreversible, numResolutions, tp.workers); err != nil {
		return warnings, err
	}

	if irreversible {
		for _, tc := range t.Comps {
			tc.inverseDWT97Window(tp.workers)
		}
	} else {
		for _, tc := range t.Comps {
			tc.inverseDWT53Window(tp.workers)
		}
	}

	// The custom matrix inverse runs on integer planes, after the float
	// pipeline lands; the fixed transforms invert in their own domains.
	if mode != MCTCustom {
		if err := t.inverseMCT(mode, irreversible, matrix, tp.workers); err != nil {
			return warnings, err
		}
	}
	if irreversible {
		for _, tc := range t.Comps {
			for i, v := range tc.buf.fdata {
				tc.buf.data[i] = int32(math.RoundToEven(v))
			}
		}
	}
	if mode == MCTCustom {
		if err := t.inverseMCT(mode, irreversible, matrix, tp.workers); err != nil {
			return warnings, err
		}
	}
	for _, tc := range t.Comps {
		dcShiftInverse(tc.buf.data, tc.Precision, tc.Signed)
	}
	return warnings, nil
}

// UpdateImage copies the tile's reconstructed samples into the output
// image, restricted to the decode window when one is set.
func (tp *TileProcessor) UpdateImage(image *Image) {
	for ci, tc := range tp.Tile.Comps {
		c := &image.Components[ci]
		srcRect := tc.Rect
		if tc.buf.window != nil {
			srcRect = srcRect.Intersect(*tc.buf.window)
		}
		ov := srcRect.Intersect(c.Rect)
		for y := ov.Y0; y < ov.Y1; y++ {
			srow := (y-tc.Rect.Y0)*tc.Rect.Width() + (ov.X0 - tc.Rect.X0)
			drow := (y-c.Rect.Y0)*c.Rect.Width() + (ov.X0 - c.Rect.X0)
			copy(c.Data[drow:drow+ov.Width()], tc.buf.data[srow:srow+ov.Width()])
		}
	}
}

// Release drops the tile's owned buffers.
func (tp *TileProcessor) Release() {
	for _, tc := range tp.Tile.Comps {
		tc.buf.release()
	}
}

// AttachBuffer lends caller storage to a component's sample buffer; the
// core never frees it.
func (tp *TileProcessor) AttachBuffer(comp int, data []int32) error {
	return tp.Tile.Comps[comp].buf.attach(data)
}

// AcquireBuffer hands caller storage over to the component buffer, which
// owns it from now on.
func (tp *TileProcessor) AcquireBuffer(comp int, data []int32) error {
	return tp.Tile.Comps[comp].buf.acquire(data)
}

// TransferBuffer moves a component's reconstructed samples out to the
// caller; the buffer must not be used afterwards.
func (tp *TileProcessor) TransferBuffer(comp int) []int32 {
	return tp.Tile.Comps[comp].buf.transfer()
}
