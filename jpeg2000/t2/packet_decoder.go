package t2

import (
	"errors"
	"fmt"
)

// ErrCorruptPacket signals a malformed packet header or body; the caller
// abandons the packet and marks the tile failed.
var ErrCorruptPacket = errors.New("t2: corrupt packet")

// PacketResult reports what a parsed packet contributed.
type PacketResult struct {
	BytesRead   int
	DataPresent bool
	Warnings    []string
}

// DecodePacket parses one packet for the given layer from src, appending
// each included block's bytes to its data buffer and extending its
// segment list. It is the exact inverse of EncodePacket.
func DecodePacket(src []byte, bands []BandView, layer, packno int, style PacketStyle) (PacketResult, error) {
	var res PacketResult
	pos := 0

	if layer == 0 {
		for _, bv := range bands {
			prc := bv.Precinct
			if bv.Empty || prc == nil || len(prc.Blocks) == 0 {
				continue
			}
			prc.Incl.Reset()
			prc.Imsb.Reset()
			for _, cb := range prc.Blocks {
				if cb != nil {
					cb.NumSegments = 0
				}
			}
		}
	}

	if style.SOP {
		if len(src) < 6 {
			res.Warnings = append(res.Warnings, "not enough space for expected SOP marker")
		} else if src[0] != 0xFF || src[1] != 0x91 {
			res.Warnings = append(res.Warnings, "expected SOP marker")
		} else {
			got := int(src[4])<<8 | int(src[5])
			if got != packno%0x10000 {
				return res, fmt.Errorf("%w: SOP packet counter %d does not match expected %d", ErrCorruptPacket, got, packno%0x10000)
			}
			pos += 6
		}
	}

	r := newBitReader(src[pos:])
	present, err := r.ReadBit()
	if err != nil {
		return res, fmt.Errorf("%w: missing present bit", ErrCorruptPacket)
	}
	if present == 0 {
		if err := r.Align(); err != nil {
			return res, fmt.Errorf("%w: empty packet not aligned", ErrCorruptPacket)
		}
		pos += r.BytesRead()
		pos = skipEPH(src, pos, style, &res)
		res.BytesRead = pos
		return res, nil
	}

	type contribution struct {
		cb       *CodeBlock
		firstSeg int
	}
	var contribs []contribution

	for _, bv := range bands {
		prc := bv.Precinct
		if bv.Empty || prc == nil || len(prc.Blocks) == 0 {
			continue
		}
		for i, cb := range prc.Blocks {
			if cb == nil {
				continue
			}

			var included bool
			if cb.NumSegments == 0 {
				below, err := prc.Incl.Decode(r, i, layer+1)
				if err != nil {
					return res, fmt.Errorf("%w: inclusion bits truncated", ErrCorruptPacket)
				}
				included = below
			} else {
				bit, err := r.ReadBit()
				if err != nil {
					return res, fmt.Errorf("%w: inclusion bit truncated", ErrCorruptPacket)
				}
				included = bit == 1
			}
			if !included {
				continue
			}

			if cb.NumSegments == 0 {
				missing, err := prc.Imsb.DecodeValue(r, i)
				if err != nil {
					return res, fmt.Errorf("%w: zero-bitplane tree truncated", ErrCorruptPacket)
				}
				if missing > bv.Numbps {
					res.Warnings = append(res.Warnings,
						fmt.Sprintf("more missing bit planes (%d) than band bit planes (%d)", missing, bv.Numbps))
					missing = bv.Numbps
				}
				cb.ZeroBitPlanes = missing
				cb.Numbps = bv.Numbps - missing
				cb.NumLenBits = 3
			}

			numPasses, err := getNumPasses(r)
			if err != nil {
				return res, fmt.Errorf("%w: numpasses truncated", ErrCorruptPacket)
			}
			increment, err := getCommaCode(r)
			if err != nil {
				return res, fmt.Errorf("%w: length indicator truncated", ErrCorruptPacket)
			}
			cb.NumLenBits += increment

			segno := 0
			if cb.NumSegments == 0 {
				cb.initSegment(0, style.CblkStyle, true)
			} else {
				segno = cb.NumSegments - 1
				if cb.Segments[segno].NumPasses == cb.Segments[segno].MaxPasses {
					segno++
					cb.initSegment(segno, style.CblkStyle, false)
				}
			}
			firstSeg := segno

			remaining := numPasses
			for {
				seg := cb.segment(segno)
				if seg.MaxPasses == maxPassesPerSegment && remaining > maxPassesPerSegment {
					res.Warnings = append(res.Warnings,
						fmt.Sprintf("number of code block passes (%d) in packet is suspiciously large", remaining))
					seg.NumPassesInPacket = maxPassesPerSegment
				} else if n := seg.MaxPasses - seg.NumPasses; remaining > n {
					seg.NumPassesInPacket = n
				} else {
					seg.NumPassesInPacket = remaining
				}

				bits := cb.NumLenBits + floorLog2(seg.NumPassesInPacket)
				if bits > 32 {
					return res, fmt.Errorf("%w: too many bits in segment length", ErrCorruptPacket)
				}
				v, err := r.ReadBits(bits)
				if err != nil {
					return res, fmt.Errorf("%w: segment length truncated", ErrCorruptPacket)
				}
				seg.NumBytesInPacket = int(v)

				remaining -= seg.NumPassesInPacket
				if remaining <= 0 {
					break
				}
				segno++
				cb.initSegment(segno, style.CblkStyle, false)
			}

			cb.TotalPasses += numPasses
			contribs = append(contribs, contribution{cb: cb, firstSeg: firstSeg})
		}
	}

	if err := r.Align(); err != nil {
		return res, fmt.Errorf("%w: header not aligned", ErrCorruptPacket)
	}
	pos += r.BytesRead()
	pos = skipEPH(src, pos, style, &res)

	// Packet body: block contributions in the order the header declared.
	for _, c := range contribs {
		cb := c.cb
		for segno := c.firstSeg; segno < len(cb.Segments); segno++ {
			seg := &cb.Segments[segno]
			if seg.NumPassesInPacket == 0 && segno > c.firstSeg {
				break
			}
			n := seg.NumBytesInPacket
			if n < 0 || pos+n > len(src) {
				cb.Corrupt = true
				return res, fmt.Errorf("%w: segment length %d overflows packet body", ErrCorruptPacket, n)
			}
			if seg.NumPasses == 0 {
				seg.DataIndex = len(cb.Data)
			}
			cb.Data = append(cb.Data, src[pos:pos+n]...)
			pos += n

			seg.Len += n
			seg.NumPasses += seg.NumPassesInPacket
			seg.NumPassesInPacket = 0
			seg.NumBytesInPacket = 0
			if segno >= cb.NumSegments {
				cb.NumSegments = segno + 1
			}
		}
	}

	res.DataPresent = true
	res.BytesRead = pos
	return res, nil
}

func skipEPH(src []byte, pos int, style PacketStyle, res *PacketResult) int {
	if !style.EPH {
		return pos
	}
	if len(src)-pos < 2 {
		res.Warnings = append(res.Warnings, "not enough space for expected EPH marker")
		return pos
	}
	if src[pos] != 0xFF || src[pos+1] != 0x92 {
		res.Warnings = append(res.Warnings, "expected EPH marker")
		return pos
	}
	return pos + 2
}
