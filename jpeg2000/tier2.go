package jpeg2000

import (
	"fmt"

	"github.com/cocosip/go-j2k/jpeg2000/t2"
)

// Tier-2 driving: the packet iterator enumerates (layer, resolution,
// component, precinct) in the tile's progression; for each reference the
// band views of that precinct feed the packet codec. Tier-2 is
// sequential per tile part — packet order is the contract.

// iterConfig builds the iterator configuration from the tile lattice.
func (t *Tile) iterConfig(numLayers int, order t2.Progression, pocs []t2.POC) t2.IteratorConfig {
	cfg := t2.IteratorConfig{NumLayers: numLayers, Order: order, POCs: pocs}
	for _, tc := range t.Comps {
		L := len(tc.Resolutions) - 1
		comp := t2.IterComponent{}
		dx, dy := tc.DX, tc.DY
		if dx <= 0 {
			dx = 1
		}
		if dy <= 0 {
			dy = 1
		}
		for r, res := range tc.Resolutions {
			ir := t2.IterResolution{NumPrecincts: res.PW * res.PH}
			scaleX := dx << (L - r)
			scaleY := dy << (L - r)
			for _, pr := range res.PrecinctRects {
				ir.PosX = append(ir.PosX, pr.X0*scaleX)
				ir.PosY = append(ir.PosY, pr.Y0*scaleY)
			}
			comp.Resolutions = append(comp.Resolutions, ir)
		}
		cfg.Components = append(cfg.Components, comp)
	}
	return cfg
}

// bandViews assembles the per-packet band views for one precinct of one
// resolution.
func bandViews(res *Resolution, precinct int) []t2.BandView {
	views := make([]t2.BandView, 0, len(res.Bands))
	for _, band := range res.Bands {
		var prc *t2.Precinct
		if precinct < len(band.Precincts) {
			prc = band.Precincts[precinct]
		}
		views = append(views, t2.BandView{
			Empty:    band.Rect.Empty(),
			Numbps:   band.Numbps,
			Precinct: prc,
		})
	}
	return views
}

// packetSpan locates one packet in the tile's packet byte stream.
type packetSpan struct {
	Layer  int
	Offset int
	Len    int
}

// encodePackets runs the full packet enumeration and returns the
// concatenated packet bytes with one span per packet. Layers above
// maxLayer are left out (the allocator's simulation mode); maxLayer < 0
// means all layers. When pl is non-nil every packet's length is also
// recorded for PLT emission.
func (t *Tile) encodePackets(cfg t2.IteratorConfig, style t2.PacketStyle, maxLayer int, pl *t2.PacketLengths) ([]byte, []packetSpan) {
	it := t2.NewIterator(cfg)
	var out []byte
	var spans []packetSpan
	t.packno = 0
	for {
		ref, ok := it.Next()
		if !ok {
			break
		}
		if maxLayer >= 0 && ref.Layer > maxLayer {
			continue
		}
		res := t.Comps[ref.Component].Resolutions[ref.Resolution]
		before := len(out)
		out = t2.EncodePacket(out, bandViews(res, ref.Precinct), ref.Layer, t.packno, style)
		spans = append(spans, packetSpan{Layer: ref.Layer, Offset: before, Len: len(out) - before})
		if pl != nil {
			pl.Add(len(out) - before)
		}
		t.packno++
	}
	return out, spans
}

// decodePackets parses the tile-part packet bytes in iterator order.
// When packet lengths from a PLT marker are available, packets whose
// precinct misses the decode window are skipped without parsing.
func (t *Tile) decodePackets(data []byte, cfg t2.IteratorConfig, style t2.PacketStyle, pltLengths []int) ([]string, error) {
	it := t2.NewIterator(cfg)
	var warnings []string
	pos := 0
	t.packno = 0
	for {
		ref, ok := it.Next()
		if !ok {
			break
		}
		res := t.Comps[ref.Component].Resolutions[ref.Resolution]

		if pltLengths != nil && t.packno < len(pltLengths) && !t.precinctInWindow(ref) {
			pos += pltLengths[t.packno]
			if pos > len(data) {
				return warnings, fmt.Errorf("%w: PLT length overruns tile data", ErrCorruptInput)
			}
			t.packno++
			continue
		}

		if pos >= len(data) {
			// Truncated tile part: remaining packets simply never
			// arrived (progressive streams end this way).
			break
		}
		resPkt, err := t2.DecodePacket(data[pos:], bandViews(res, ref.Precinct), ref.Layer, t.packno, style)
		warnings = append(warnings, resPkt.Warnings...)
		if err != nil {
			return warnings, fmt.Errorf("%w: packet %d: %v", ErrCorruptInput, t.packno, err)
		}
		pos += resPkt.BytesRead
		t.packno++
	}
	return warnings, nil
}

// precinctInWindow reports whether a packet's precinct can contribute to
// the configured decode window.
func (t *Tile) precinctInWindow(ref t2.PacketRef) bool {
	tc := t.Comps[ref.Component]
	if tc.buf == nil || tc.buf.window == nil {
		return true
	}
	res := tc.Resolutions[ref.Resolution]
	win, _ := tc.buf.resWindow(ref.Resolution, res.Rect)
	if win.Empty() {
		return false
	}
	if ref.Precinct >= len(res.PrecinctRects) {
		return false
	}
	// Pad by the filter footprint so neighboring precincts that feed
	// the window's reconstruction are kept.
	pr := res.PrecinctRects[ref.Precinct]
	padded := Rect{X0: win.X0 - 8, Y0: win.Y0 - 8, X1: win.X1 + 8, Y1: win.Y1 + 8}
	return pr.Intersects(padded)
}
