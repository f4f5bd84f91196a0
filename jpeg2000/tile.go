package jpeg2000

import (
	"fmt"
	"sync"

	"github.com/cocosip/go-j2k/jpeg2000/t2"
)

// Band is one sub-band of a resolution, in band coordinates.
type Band struct {
	Orient   int // 0 LL, 1 HL, 2 LH, 3 HH
	Level    int // decomposition level the band came from
	Rect     Rect
	Numbps   int
	StepSize float64
	Norm     float64
	Expn     int
	Mant     int

	Precincts []*t2.Precinct
}

// Resolution is one level of the dyadic hierarchy, resolution 0 being
// the deepest LL.
type Resolution struct {
	Rect     Rect // resolution coordinates
	PPx, PPy int  // precinct exponents in resolution space
	PW, PH   int  // precinct grid
	CbW, CbH int  // effective log2 code-block size in band space

	PrecinctRects []Rect // resolution-space precinct bounds, PW×PH
	Bands         []*Band // 1 band at resolution 0, else 3
}

// TileComponent is one component's slice of a tile.
type TileComponent struct {
	Rect        Rect // full-resolution tile-component bounds
	DX, DY      int  // subsampling on the reference grid
	Precision   int
	Signed      bool
	ROIShift    int
	Resolutions []*Resolution

	// Per-level geometry of the Mallat layout: extent and origin after
	// each split. levelW[0] is the full width.
	levelW, levelH   []int
	levelX0, levelY0 []int

	buf *tcBuffer
}

// Tile is one independently coded rectangle of the canvas.
type Tile struct {
	Index int
	Rect  Rect // canvas coordinates
	Comps []*TileComponent

	packno int

	distortion float64
	distMu     sync.Mutex
}

// Numpix returns the sample count of the tile's largest component.
func (t *Tile) Numpix() int {
	n := 0
	for _, tc := range t.Comps {
		if a := tc.Rect.Area(); a > n {
			n = a
		}
	}
	return n
}

// addDistortion accumulates a code block's distortion contribution;
// Tier-1 workers call it concurrently.
func (t *Tile) addDistortion(d float64) {
	t.distMu.Lock()
	t.distortion += d
	t.distMu.Unlock()
}

// bandRect maps tile-component bounds to a band's bounds: the standard
// identity band.xy = ceildivpow2(tilec.xy − x0b·2^(nb−1), nb) for
// decomposition level nb.
func bandRect(tc Rect, nb, xob, yob int) Rect {
	ox := xob << (nb - 1)
	oy := yob << (nb - 1)
	return Rect{
		X0: ceilDivPow2(tc.X0-ox, nb),
		Y0: ceilDivPow2(tc.Y0-oy, nb),
		X1: ceilDivPow2(tc.X1-ox, nb),
		Y1: ceilDivPow2(tc.Y1-oy, nb),
	}
}

// tileCodingParams is everything tile construction needs per component.
type tileCodingParams struct {
	numResolutions int
	cblkW, cblkH   int
	precW, precH   []int
	irreversible   bool
	guardBits      int
}

func (p *EncodeParams) tileCoding() tileCodingParams {
	return tileCodingParams{
		numResolutions: p.NumResolutions,
		cblkW:          p.CblkW,
		cblkH:          p.CblkH,
		precW:          p.PrecinctW,
		precH:          p.PrecinctH,
		irreversible:   p.Irreversible,
		guardBits:      p.GuardBits,
	}
}

func (tp tileCodingParams) precinctExp(res int) (int, int) {
	px, py := 15, 15
	if res < len(tp.precW) {
		px = tp.precW[res]
	}
	if res < len(tp.precH) {
		py = tp.precH[res]
	}
	return px, py
}

// newTileComponent builds the resolution / band / precinct / code-block
// lattice for one component of one tile.
func newTileComponent(rect Rect, precision int, signed bool, roiShift int, tp tileCodingParams) (*TileComponent, error) {
	L := tp.numResolutions - 1
	tc := &TileComponent{
		Rect:      rect,
		Precision: precision,
		Signed:    signed,
		ROIShift:  roiShift,
	}

	// Level geometry for the Mallat layout.
	w, h := rect.Width(), rect.Height()
	x0, y0 := rect.X0, rect.Y0
	tc.levelW = append(tc.levelW, w)
	tc.levelH = append(tc.levelH, h)
	tc.levelX0 = append(tc.levelX0, x0)
	tc.levelY0 = append(tc.levelY0, y0)
	for i := 0; i < L; i++ {
		if x0%2 == 0 {
			w = (w + 1) / 2
		} else {
			w = w / 2
		}
		if y0%2 == 0 {
			h = (h + 1) / 2
		} else {
			h = h / 2
		}
		x0 = (x0 + 1) >> 1
		y0 = (y0 + 1) >> 1
		tc.levelW = append(tc.levelW, w)
		tc.levelH = append(tc.levelH, h)
		tc.levelX0 = append(tc.levelX0, x0)
		tc.levelY0 = append(tc.levelY0, y0)
	}

	for r := 0; r <= L; r++ {
		res := &Resolution{Rect: ceilDivPow2Rect(rect, L-r)}
		res.PPx, res.PPy = tp.precinctExp(r)

		// Effective code-block size never exceeds the precinct in band
		// space.
		res.CbW = tp.cblkW
		res.CbH = tp.cblkH
		bandShift := 0
		if r > 0 {
			bandShift = 1
		}
		if res.PPx-bandShift < res.CbW {
			res.CbW = res.PPx - bandShift
		}
		if res.PPy-bandShift < res.CbH {
			res.CbH = res.PPy - bandShift
		}
		if res.CbW < 0 || res.CbH < 0 {
			return nil, fmt.Errorf("%w: precinct 2^%dx2^%d too small at resolution %d",
				ErrInconsistentParams, res.PPx, res.PPy, r)
		}

		// Precinct grid over the resolution.
		if !res.Rect.Empty() {
			startX := floorDivPow2(res.Rect.X0, res.PPx) << res.PPx
			startY := floorDivPow2(res.Rect.Y0, res.PPy) << res.PPy
			res.PW = ceilDiv(res.Rect.X1-startX, 1<<res.PPx)
			res.PH = ceilDiv(res.Rect.Y1-startY, 1<<res.PPy)
			for py := 0; py < res.PH; py++ {
				for px := 0; px < res.PW; px++ {
					pr := Rect{
						X0: startX + px<<res.PPx,
						Y0: startY + py<<res.PPy,
						X1: startX + (px+1)<<res.PPx,
						Y1: startY + (py+1)<<res.PPy,
					}.Intersect(res.Rect)
					res.PrecinctRects = append(res.PrecinctRects, pr)
				}
			}
		}

		// Bands and their precincts/code blocks.
		if r == 0 {
			band := &Band{Orient: 0, Level: L, Rect: ceilDivPow2Rect(rect, L)}
			buildBandPrecincts(res, band, false)
			res.Bands = []*Band{band}
		} else {
			nb := L - r + 1
			for _, ob := range [3][3]int{{1, 1, 0}, {2, 0, 1}, {3, 1, 1}} {
				band := &Band{Orient: ob[0], Level: nb, Rect: bandRect(rect, nb, ob[1], ob[2])}
				buildBandPrecincts(res, band, true)
				res.Bands = append(res.Bands, band)
			}
		}
		tc.Resolutions = append(tc.Resolutions, res)
	}

	// Quantization parameters per band.
	for _, res := range tc.Resolutions {
		for _, band := range res.Bands {
			gain := bandGain(band.Orient)
			rangeBits := precision + gain
			level := band.Level
			if band.Orient == 0 {
				level = L
			}
			band.Norm = bandNorm(tp.irreversible, band.Orient, level)
			if tp.irreversible {
				step := float64(int(1)<<gain) / band.Norm
				band.Expn, band.Mant = encodeStepSize(step, rangeBits)
				band.StepSize = decodeStepSize(band.Expn, band.Mant, rangeBits)
			} else {
				band.Expn = rangeBits
				band.Mant = 0
				band.StepSize = 1.0
			}
			// The ROI upshift consumes extra magnitude planes.
			band.Numbps = band.Expn + tp.guardBits - 1 + roiShift
		}
	}

	return tc, nil
}

// buildBandPrecincts creates the band-space precincts with their
// code-block grids and tag trees.
func buildBandPrecincts(res *Resolution, band *Band, halve bool) {
	cbw := 1 << res.CbW
	cbh := 1 << res.CbH
	for _, pr := range res.PrecinctRects {
		bp := pr
		if halve {
			bp = ceilDivPow2Rect(pr, 1)
		}
		bp = bp.Intersect(band.Rect)

		if bp.Empty() {
			band.Precincts = append(band.Precincts, t2.NewPrecinct(bp.X0, bp.Y0, bp.X1, bp.Y1, 0, 0))
			continue
		}

		gx0 := floorDivPow2(bp.X0, res.CbW) << res.CbW
		gy0 := floorDivPow2(bp.Y0, res.CbH) << res.CbH
		cw := ceilDiv(bp.X1-gx0, cbw)
		ch := ceilDiv(bp.Y1-gy0, cbh)

		prc := t2.NewPrecinct(bp.X0, bp.Y0, bp.X1, bp.Y1, cw, ch)
		for cy := 0; cy < ch; cy++ {
			for cx := 0; cx < cw; cx++ {
				cell := Rect{
					X0: gx0 + cx*cbw, Y0: gy0 + cy*cbh,
					X1: gx0 + (cx+1)*cbw, Y1: gy0 + (cy+1)*cbh,
				}.Intersect(bp)
				prc.Blocks[cy*cw+cx] = &t2.CodeBlock{
					X0: cell.X0, Y0: cell.Y0, X1: cell.X1, Y1: cell.Y1,
				}
			}
		}
		band.Precincts = append(band.Precincts, prc)
	}
}

// bandBufferOffset returns the Mallat-layout buffer coordinates of a
// band's top-left sample and the buffer stride.
func (tc *TileComponent) bandBufferOffset(band *Band) (offX, offY, stride int) {
	stride = tc.levelW[0]
	d := band.Level
	switch band.Orient {
	case 0:
		return 0, 0, stride
	case 1:
		return tc.levelW[d], 0, stride
	case 2:
		return 0, tc.levelH[d], stride
	case 3:
		return tc.levelW[d], tc.levelH[d], stride
	}
	return 0, 0, stride
}

// blockRowBase returns the buffer index of a code block's top-left sample
// in the tile-component buffer, and the row stride.
func (tc *TileComponent) blockRowBase(band *Band, cb *t2.CodeBlock) (base, stride int) {
	offX, offY, stride := tc.bandBufferOffset(band)
	base = (offY+cb.Y0-band.Rect.Y0)*stride + offX + cb.X0 - band.Rect.X0
	return base, stride
}

// maxBitplanesBound is the BIBO-derived sanity bound on decoded bit
// planes for one tile component.
func maxBitplanesBound(numResolutions int) int {
	return maxPrecision + 5*numResolutions
}

// qcdSteps lists the band quantization words in QCD subband order: the
// deepest LL first, then HL, LH, HH per resolution upward.
func (tc *TileComponent) qcdSteps(reversible bool) []uint16 {
	var steps []uint16
	emit := func(b *Band) uint16 {
		if reversible {
			return uint16(b.Expn << 3)
		}
		return uint16(b.Expn<<11 | b.Mant)
	}
	steps = append(steps, emit(tc.Resolutions[0].Bands[0]))
	for _, res := range tc.Resolutions[1:] {
		for _, b := range res.Bands {
			steps = append(steps, emit(b))
		}
	}
	return steps
}

// applyQuant overrides the band quantization with parsed QCD values so
// the decoder reproduces the encoder's steps bit for bit.
func (tc *TileComponent) applyQuant(steps []uint16, reversible bool, guardBits, roiShift int) {
	idx := 0
	apply := func(b *Band) {
		if idx >= len(steps) {
			return
		}
		v := steps[idx]
		idx++
		gain := bandGain(b.Orient)
		rangeBits := tc.Precision + gain
		if reversible {
			b.Expn = int(v >> 3)
			b.Mant = 0
			b.StepSize = 1.0
		} else {
			b.Expn = int(v >> 11)
			b.Mant = int(v & 0x7FF)
			b.StepSize = decodeStepSize(b.Expn, b.Mant, rangeBits)
		}
		b.Numbps = b.Expn + guardBits - 1 + roiShift
	}
	apply(tc.Resolutions[0].Bands[0])
	for _, res := range tc.Resolutions[1:] {
		for _, b := range res.Bands {
			apply(b)
		}
	}
}
