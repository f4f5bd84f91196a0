package t2

// Packet composition (Annex B.10). A packet carries, for one (layer,
// resolution, component, precinct) tuple, the header signalling which
// code blocks contribute how many passes and bytes, followed by the
// concatenated pass bytes block by block in raster order.

// EncodePacket appends one packet to dst and returns the extended slice.
// Tag trees and per-block inclusion state reset when layer 0 comes
// around, so a full enumeration can run more than once (the rate
// allocator simulates all packets before the real pass writes them).
func EncodePacket(dst []byte, bands []BandView, layer, packno int, style PacketStyle) []byte {
	if style.SOP {
		dst = append(dst,
			0xFF, 0x91, 0x00, 0x04,
			byte(packno>>8), byte(packno))
	}

	if layer == 0 {
		for _, bv := range bands {
			prc := bv.Precinct
			if bv.Empty || prc == nil || len(prc.Blocks) == 0 {
				continue
			}
			prc.Incl.Reset()
			prc.Imsb.Reset()
			for i, cb := range prc.Blocks {
				if cb == nil {
					continue
				}
				cb.NumPassesIncluded = 0
				prc.Imsb.Set(i, bv.Numbps-cb.Numbps)
			}
		}
	}

	w := newBitWriter()
	w.WriteBit(1) // non-empty packet

	for _, bv := range bands {
		prc := bv.Precinct
		if bv.Empty || prc == nil || len(prc.Blocks) == 0 {
			continue
		}

		// First-contribution layers feed the inclusion tree before any
		// bit of this band is written.
		for i, cb := range prc.Blocks {
			if cb == nil || layer >= len(cb.Layers) {
				continue
			}
			if cb.NumPassesIncluded == 0 && cb.Layers[layer].NumPasses > 0 {
				prc.Incl.Set(i, layer)
			}
		}

		for i, cb := range prc.Blocks {
			if cb == nil {
				continue
			}
			var lay Layer
			if layer < len(cb.Layers) {
				lay = cb.Layers[layer]
			}

			if cb.NumPassesIncluded == 0 {
				prc.Incl.Encode(w, i, layer+1)
			} else {
				bit := 0
				if lay.NumPasses > 0 {
					bit = 1
				}
				w.WriteBit(bit)
			}
			if lay.NumPasses == 0 {
				continue
			}

			if cb.NumPassesIncluded == 0 {
				cb.NumLenBits = 3
				prc.Imsb.Encode(w, i, UninitializedValue)
			}

			putNumPasses(w, lay.NumPasses)

			// Work out the length-indicator increase over the terminated
			// segments of this contribution, then write the lengths.
			first := cb.NumPassesIncluded
			last := first + lay.NumPasses
			increment := 0
			nump, length := 0, 0
			for passno := first; passno < last; passno++ {
				p := &cb.Passes[passno]
				nump++
				length += p.Len
				if p.Term || passno == last-1 {
					need := floorLog2(length) + 1 - (cb.NumLenBits + floorLog2(nump))
					if need > increment {
						increment = need
					}
					nump, length = 0, 0
				}
			}
			putCommaCode(w, increment)
			cb.NumLenBits += increment

			nump, length = 0, 0
			for passno := first; passno < last; passno++ {
				p := &cb.Passes[passno]
				nump++
				length += p.Len
				if p.Term || passno == last-1 {
					w.WriteBits(uint32(length), cb.NumLenBits+floorLog2(nump))
					nump, length = 0, 0
				}
			}
		}
	}

	dst = append(dst, w.Flush()...)

	if style.EPH {
		dst = append(dst, 0xFF, 0x92)
	}

	for _, bv := range bands {
		prc := bv.Precinct
		if bv.Empty || prc == nil || len(prc.Blocks) == 0 {
			continue
		}
		for _, cb := range prc.Blocks {
			if cb == nil || layer >= len(cb.Layers) {
				continue
			}
			lay := cb.Layers[layer]
			if lay.NumPasses == 0 {
				continue
			}
			dst = append(dst, lay.Data...)
			cb.NumPassesIncluded += lay.NumPasses
		}
	}
	return dst
}

// EmptyPacketLen is the size of an all-empty packet header: the single
// zero bit rounded up to a byte, plus markers when enabled.
func EmptyPacketLen(style PacketStyle) int {
	n := 1
	if style.SOP {
		n += 6
	}
	if style.EPH {
		n += 2
	}
	return n
}
