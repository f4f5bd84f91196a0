package jpeg2000

import (
	"fmt"

	"github.com/cocosip/go-j2k/jpeg2000/codestream"
	"github.com/cocosip/go-j2k/jpeg2000/t2"
	"github.com/cocosip/go-j2k/jpeg2000/wavelet"
)

// ImageInfo summarizes a parsed main header.
type ImageInfo struct {
	Rect           Rect
	NumComponents  int
	Precision      int
	Signed         bool
	NumTiles       int
	NumLayers      int
	NumResolutions int
	Irreversible   bool
	Progression    t2.Progression
}

// Decoder decompresses a JPEG 2000 code stream.
type Decoder struct {
	opts DecodeOptions

	cs     *codestream.Codestream
	image  *Image
	window *Rect

	// tileData concatenates the tile-parts of each tile in stream order;
	// tilePLT collects their packet-length payloads.
	tileData map[int][]byte
	tilePLT  map[int][][]byte

	// cache keeps decoded tiles per the configured strategy.
	cache map[int]*TileProcessor

	// Warnings accumulates recoverable oddities (missing SOP/EPH,
	// suspicious pass counts). They never fail the decode.
	Warnings []string

	// FailedTiles lists tiles whose data could not be fully decoded;
	// their image region is only partially populated.
	FailedTiles map[int]error
}

// NewDecoder returns a decoder with the given options (nil for
// defaults).
func NewDecoder(opts *DecodeOptions) *Decoder {
	d := &Decoder{
		tileData:    make(map[int][]byte),
		tilePLT:     make(map[int][][]byte),
		cache:       make(map[int]*TileProcessor),
		FailedTiles: make(map[int]error),
	}
	if opts != nil {
		d.opts = *opts
		if opts.Window != nil {
			w := *opts.Window
			d.window = &w
		}
	}
	return d
}

// SetWindow restricts decoding to a canvas-coordinate region; only
// samples inside it are reconstructed.
func (d *Decoder) SetWindow(r Rect) { d.window = &r }

// Image returns the output raster; populated regions depend on which
// tiles have been decoded and on the window.
func (d *Decoder) Image() *Image { return d.image }

// ReadHeader parses the code stream headers and prepares the output
// image.
func (d *Decoder) ReadHeader(data []byte) (*ImageInfo, error) {
	cs, err := codestream.NewParser(data).Parse()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptInput, err)
	}
	d.cs = cs

	img := &Image{Rect: Rect{
		X0: int(cs.SIZ.XOsiz), Y0: int(cs.SIZ.YOsiz),
		X1: int(cs.SIZ.Xsiz), Y1: int(cs.SIZ.Ysiz),
	}}
	for _, c := range cs.SIZ.Components {
		compRect := Rect{
			X0: ceilDiv(img.Rect.X0, int(c.XRsiz)), Y0: ceilDiv(img.Rect.Y0, int(c.YRsiz)),
			X1: ceilDiv(img.Rect.X1, int(c.XRsiz)), Y1: ceilDiv(img.Rect.Y1, int(c.YRsiz)),
		}
		img.Components = append(img.Components, Component{
			DX: int(c.XRsiz), DY: int(c.YRsiz),
			Precision: c.BitDepth(), Signed: c.Signed(),
			Rect: compRect,
			Data: make([]int32, compRect.Area()),
		})
	}
	d.image = img

	for i := range cs.TileParts {
		tp := &cs.TileParts[i]
		idx := tp.SOT.TileIndex
		d.tileData[idx] = append(d.tileData[idx], tp.Data...)
		d.tilePLT[idx] = append(d.tilePLT[idx], tp.PLT...)
	}

	return &ImageInfo{
		Rect:           img.Rect,
		NumComponents:  len(img.Components),
		Precision:      img.Components[0].Precision,
		Signed:         img.Components[0].Signed,
		NumTiles:       cs.SIZ.NumTilesX() * cs.SIZ.NumTilesY(),
		NumLayers:      int(cs.COD.NumLayers),
		NumResolutions: int(cs.COD.NumLevels) + 1,
		Irreversible:   cs.COD.Transform == 0,
		Progression:    t2.Progression(cs.COD.Progression),
	}, nil
}

// Decode decompresses every tile (or those touching the window) and
// returns the output image. Tiles that fail are recorded in FailedTiles
// and leave their region partially populated.
func (d *Decoder) Decode(data []byte) (*Image, error) {
	if d.cs == nil {
		if _, err := d.ReadHeader(data); err != nil {
			return nil, err
		}
	}
	n := d.cs.SIZ.NumTilesX() * d.cs.SIZ.NumTilesY()
	for tileIdx := 0; tileIdx < n; tileIdx++ {
		rect := d.tileCanvasRect(tileIdx)
		if d.window != nil && !rect.Intersects(*d.window) {
			continue
		}
		if err := d.DecodeTile(tileIdx); err != nil {
			d.FailedTiles[tileIdx] = err
		}
	}
	if len(d.FailedTiles) == n && n > 0 {
		for _, err := range d.FailedTiles {
			return d.image, err
		}
	}
	return d.image, nil
}

func (d *Decoder) tileCanvasRect(tileIdx int) Rect {
	s := &d.cs.SIZ
	tilesX := s.NumTilesX()
	tx := tileIdx % tilesX
	ty := tileIdx / tilesX
	return Rect{
		X0: int(s.XTOsiz) + tx*int(s.XTsiz),
		Y0: int(s.YTOsiz) + ty*int(s.YTsiz),
		X1: int(s.XTOsiz) + (tx+1)*int(s.XTsiz),
		Y1: int(s.YTOsiz) + (ty+1)*int(s.YTsiz),
	}.Intersect(Rect{
		X0: int(s.XOsiz), Y0: int(s.YOsiz),
		X1: int(s.Xsiz), Y1: int(s.Ysiz),
	})
}

// DecodeTile decompresses one tile by index — the random tile access
// surface. Results land in the output image; with a cache strategy the
// tile processor is retained.
func (d *Decoder) DecodeTile(tileIdx int) error {
	if d.cs == nil {
		return fmt.Errorf("%w: ReadHeader must run first", ErrCorruptInput)
	}
	if tp, ok := d.cache[tileIdx]; ok {
		tp.UpdateImage(d.image)
		return nil
	}

	tp, warnings, err := d.decodeTileProcessor(tileIdx)
	d.Warnings = append(d.Warnings, warnings...)
	if err != nil {
		return err
	}
	tp.UpdateImage(d.image)

	switch d.opts.TileCache {
	case TileCacheAll:
		d.cache[tileIdx] = tp
	case TileCacheTile:
		d.cache = map[int]*TileProcessor{tileIdx: tp}
	default:
		tp.Release()
	}
	return nil
}

func (d *Decoder) decodeTileProcessor(tileIdx int) (*TileProcessor, []string, error) {
	cs := d.cs
	rect := d.tileCanvasRect(tileIdx)
	if rect.Empty() {
		return nil, nil, fmt.Errorf("%w: tile %d outside image", ErrOutOfBounds, tileIdx)
	}

	var tilePart *codestream.TilePart
	for i := range cs.TileParts {
		if cs.TileParts[i].SOT.TileIndex == tileIdx {
			tilePart = &cs.TileParts[i]
			break
		}
	}

	// Resolve per-component coding and quantization, build the lattice.
	tile := &Tile{Index: tileIdx, Rect: rect}
	numComps := len(cs.SIZ.Components)
	styles := make([]uint8, numComps)
	var deepestRes int
	irreversible := cs.TileCOD(tilePart, 0).Transform == 0

	for ci := 0; ci < numComps; ci++ {
		c := cs.SIZ.Components[ci]
		cod := cs.TileCOD(tilePart, ci)
		qcd := cs.TileQCD(tilePart, ci)
		roiShift := cs.ROIShift(tilePart, ci)
		styles[ci] = cod.CblkStyle

		numRes := int(cod.NumLevels) + 1
		if numRes > deepestRes {
			deepestRes = numRes
		}
		tcp := tileCodingParams{
			numResolutions: numRes,
			cblkW:          int(cod.CblkExpW) + 2,
			cblkH:          int(cod.CblkExpH) + 2,
			irreversible:   cod.Transform == 0,
			guardBits:      qcd.GuardBits(),
		}
		for r := 0; r < numRes; r++ {
			px, py := cod.PrecinctExp(r)
			tcp.precW = append(tcp.precW, px)
			tcp.precH = append(tcp.precH, py)
		}

		compRect := Rect{
			X0: ceilDiv(rect.X0, int(c.XRsiz)), Y0: ceilDiv(rect.Y0, int(c.YRsiz)),
			X1: ceilDiv(rect.X1, int(c.XRsiz)), Y1: ceilDiv(rect.Y1, int(c.YRsiz)),
		}
		tc, err := newTileComponent(compRect, int(c.Ssiz&0x7F)+1, c.Ssiz&0x80 != 0, roiShift, tcp)
		if err != nil {
			return nil, nil, err
		}
		tc.applyQuant(qcd.Steps, qcd.Style() == codestream.QuantNone, qcd.GuardBits(), roiShift)
		tc.DX, tc.DY = int(c.XRsiz), int(c.YRsiz)
		tc.buf = newTCBuffer(compRect)

		if d.window != nil {
			win := Rect{
				X0: ceilDiv(d.window.X0, int(c.XRsiz)), Y0: ceilDiv(d.window.Y0, int(c.YRsiz)),
				X1: ceilDiv(d.window.X1, int(c.XRsiz)), Y1: ceilDiv(d.window.Y1, int(c.YRsiz)),
			}
			pad := wavelet.Kernel53.FilterPad()
			if tcp.irreversible {
				pad = wavelet.Kernel97.FilterPad()
			}
			tc.buf.setWindow(win, numRes, pad)
		}
		tile.Comps = append(tile.Comps, tc)
	}

	cod := cs.TileCOD(tilePart, 0)
	pocs := cs.POCs
	if tilePart != nil && len(tilePart.POCs) > 0 {
		pocs = tilePart.POCs
	}
	cfg := tile.iterConfig(int(cod.NumLayers), t2.Progression(cod.Progression), mapPOCEntries(pocs))
	style := t2.PacketStyle{
		SOP:       cod.Scod&codestream.ScodSOP != 0,
		EPH:       cod.Scod&codestream.ScodEPH != 0,
		CblkStyle: cod.CblkStyle,
	}

	var pltLengths []int
	if payloads := d.tilePLT[tileIdx]; len(payloads) > 0 {
		lengths, err := t2.DecodePacketLengths(payloads)
		if err != nil {
			d.Warnings = append(d.Warnings, fmt.Sprintf("tile %d: ignoring PLT: %v", tileIdx, err))
		} else {
			pltLengths = lengths
		}
	}

	mode := MCTNone
	var matrix []float64
	if cod.MCT == 1 {
		mode = MCTEnabled
		for _, com := range cs.COMs {
			if cn, m, ok := decodeMCTMatrixCOM(com.Data); ok && cn == numComps {
				mode = MCTCustom
				matrix = m
				break
			}
		}
	}

	proc := &TileProcessor{Tile: tile, workers: d.opts.workers()}
	warnings, err := proc.DecodeTile(d.tileData[tileIdx], cfg, style,
		func(ci int) uint8 { return styles[ci] },
		mode, irreversible, matrix, deepestRes, pltLengths)
	if err != nil {
		return nil, warnings, err
	}
	return proc, warnings, nil
}
