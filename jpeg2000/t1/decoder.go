package t1

import (
	"fmt"

	"github.com/cocosip/go-j2k/jpeg2000/mqc"
)

// SegmentData is one terminated run of compressed bytes together with
// the number of passes it carries, as recovered by Tier-2.
type SegmentData struct {
	Data      []byte
	NumPasses int
}

// Block describes one code block to decode.
type Block struct {
	Width, Height int
	Orient        int
	Numbps        int // magnitude planes present (band numbps − zero planes)
	Style         uint8
	Segments      []SegmentData
}

// Decoder decodes one code block at a time, reusing its scratch across
// blocks like the encoder does.
type Decoder struct {
	width, height int
	stride        int
	data          []int32 // reconstruction in the doubled domain
	flags         []uint32

	mq    *mqc.Decoder
	raw   *mqc.RawDecoder
	inRaw bool

	orient   int
	style    uint8
	bitplane int

	warnings []string
}

// NewDecoder returns an empty decoder; Decode sizes it per block.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode reconstructs the block and returns the sample values in the
// doubled domain: each value carries one extra fraction bit so the
// half-interval reconstruction points of truncated planes stay integral.
// Lossless output is recovered with a truncating halve; lossy output is
// scaled by stepSize/2.
func (d *Decoder) Decode(blk Block, maxBitplanes int) ([]int32, []string, error) {
	if blk.Numbps > maxBitplanes {
		return nil, nil, fmt.Errorf("t1: %d bit planes is impossibly large (BIBO bound %d)", blk.Numbps, maxBitplanes)
	}
	d.setup(blk)
	if blk.Numbps == 0 {
		return d.data, nil, nil
	}

	var mqContexts []uint8

	passType := 2
	d.bitplane = blk.Numbps - 1
	firstPass := true

	for _, seg := range blk.Segments {
		if d.bitplane < 0 {
			break
		}
		raw := lazyRawPass(blk.Style, d.bitplane, blk.Numbps, passType)
		d.inRaw = raw
		if raw {
			d.raw = mqc.NewRawDecoder(seg.Data)
		} else {
			if mqContexts == nil {
				d.mq = mqc.NewDecoder(seg.Data, NumContexts)
				decoderInitialStates(d.mq)
			} else {
				d.mq = mqc.NewDecoderWithContexts(seg.Data, mqContexts)
			}
		}

		for i := 0; i < seg.NumPasses && d.bitplane >= 0; i++ {
			if passType == 0 || firstPass {
				for j := range d.flags {
					d.flags[j] &^= flagVisit
				}
			}
			firstPass = false

			switch passType {
			case 0:
				d.sigPropPass()
			case 1:
				d.magRefPass()
			case 2:
				d.cleanupPass()
				if blk.Style&StyleSegsym != 0 {
					d.checkSegmark()
				}
			}

			if blk.Style&StyleReset != 0 && !d.inRaw {
				decoderInitialStates(d.mq)
			}

			if passType == 2 {
				passType = 0
				d.bitplane--
			} else {
				passType++
			}
		}

		if !raw && d.mq != nil {
			mqContexts = d.mq.Contexts()
		}
	}

	warnings := d.warnings
	d.warnings = nil
	return d.data, warnings, nil
}

func decoderInitialStates(mq *mqc.Decoder) {
	mq.ResetContexts()
	mq.SetContextState(ctxUni, 46)
	mq.SetContextState(ctxAgg, 3)
	mq.SetContextState(ctxZC, 4)
}

func (d *Decoder) setup(blk Block) {
	d.width, d.height = blk.Width, blk.Height
	d.stride = blk.Width + 2
	d.orient = blk.Orient
	d.style = blk.Style

	n := (blk.Width + 2) * (blk.Height + 2)
	if cap(d.flags) < n {
		d.flags = make([]uint32, n)
	} else {
		d.flags = d.flags[:n]
		clear(d.flags)
	}
	sz := blk.Width * blk.Height
	if cap(d.data) < sz {
		d.data = make([]int32, sz)
	} else {
		d.data = d.data[:sz]
		clear(d.data)
	}
}

func (d *Decoder) at(x, y int) int { return (y+1)*d.stride + (x + 1) }

func (d *Decoder) vscFlags(idx, dy int) uint32 {
	f := d.flags[idx]
	if d.style&StyleVSC != 0 && dy == 3 {
		f &= vscMask
	}
	return f
}

func (d *Decoder) decodeBit(ctx int) int {
	if d.inRaw {
		return d.raw.Decode()
	}
	return d.mq.Decode(ctx)
}

// becomeSignificant records a newly significant sample: reconstruction
// value at the middle of the plane's interval, sign, and neighbor flags.
func (d *Decoder) becomeSignificant(x, y, idx int, negative bool) {
	v := int32(3) << uint(d.bitplane)
	if negative {
		v = -v
		d.flags[idx] |= flagSign
	}
	d.data[y*d.width+x] = v
	d.flags[idx] |= flagSig
	d.markNeighbors(idx)
}

func (d *Decoder) markNeighbors(idx int) {
	negative := d.flags[idx]&flagSign != 0
	n := idx - d.stride
	s := idx + d.stride

	d.flags[n] |= flagSigS
	d.flags[s] |= flagSigN
	d.flags[idx-1] |= flagSigE
	d.flags[idx+1] |= flagSigW
	if negative {
		d.flags[n] |= flagSignS
		d.flags[s] |= flagSignN
		d.flags[idx-1] |= flagSignE
		d.flags[idx+1] |= flagSignW
	}
	d.flags[n-1] |= flagSigSE
	d.flags[n+1] |= flagSigSW
	d.flags[s-1] |= flagSigNE
	d.flags[s+1] |= flagSigNW
}

func (d *Decoder) decodeSign(idx int, flags uint32) bool {
	if d.inRaw {
		return d.raw.Decode() == 1
	}
	ctx, xorbit := signContext(flags)
	return d.mq.Decode(ctx)^xorbit == 1
}

func (d *Decoder) sigPropPass() {
	for k := 0; k < d.height; k += 4 {
		for x := 0; x < d.width; x++ {
			for dy := 0; dy < 4 && k+dy < d.height; dy++ {
				y := k + dy
				idx := d.at(x, y)
				flags := d.vscFlags(idx, dy)

				if flags&flagSig != 0 || flags&flagSigNeighbors == 0 {
					continue
				}

				var sig int
				if d.inRaw {
					sig = d.raw.Decode()
				} else {
					sig = d.mq.Decode(zeroCodingContext(flags, d.orient))
				}
				d.flags[idx] |= flagVisit

				if sig != 0 {
					negative := d.decodeSign(idx, flags)
					d.becomeSignificant(x, y, idx, negative)
				}
			}
		}
	}
}

func (d *Decoder) magRefPass() {
	half := int32(1) << uint(d.bitplane)
	for k := 0; k < d.height; k += 4 {
		for x := 0; x < d.width; x++ {
			for dy := 0; dy < 4 && k+dy < d.height; dy++ {
				y := k + dy
				idx := d.at(x, y)
				flags := d.vscFlags(idx, dy)

				if flags&flagSig == 0 || flags&flagVisit != 0 {
					continue
				}

				var bit int
				if d.inRaw {
					bit = d.raw.Decode()
				} else {
					bit = d.mq.Decode(magContext(flags))
				}

				di := y*d.width + x
				adjust := half
				if bit == 0 {
					adjust = -half
				}
				if d.data[di] < 0 {
					d.data[di] -= adjust
				} else {
					d.data[di] += adjust
				}
				d.flags[idx] |= flagRefine
			}
		}
	}
}

func (d *Decoder) cleanupPass() {
	for k := 0; k < d.height; k += 4 {
		for x := 0; x < d.width; x++ {
			runLen := 0
			implicit := false
			aggregate := k+3 < d.height
			if aggregate {
				for dy := 0; dy < 4; dy++ {
					idx := d.at(x, k+dy)
					f := d.vscFlags(idx, dy)
					if d.flags[idx]&flagVisit != 0 || f&(flagSig|flagSigNeighbors) != 0 {
						aggregate = false
						break
					}
				}
			}

			start := 0
			if aggregate {
				if d.mq.Decode(ctxAgg) == 0 {
					continue
				}
				runLen = d.mq.Decode(ctxUni)<<1 | d.mq.Decode(ctxUni)
				start = runLen
				implicit = true
			}

			for dy := start; dy < 4 && k+dy < d.height; dy++ {
				y := k + dy
				idx := d.at(x, y)
				flags := d.vscFlags(idx, dy)

				if d.flags[idx]&flagVisit != 0 || flags&flagSig != 0 {
					d.flags[idx] &^= flagVisit
					continue
				}

				sig := 1
				if implicit {
					implicit = false
				} else {
					sig = d.mq.Decode(zeroCodingContext(flags, d.orient))
				}

				if sig != 0 {
					negative := d.decodeSign(idx, flags)
					d.becomeSignificant(x, y, idx, negative)
				}
				d.flags[idx] &^= flagVisit
			}
		}
	}
}

// checkSegmark verifies the 0xA segmentation symbol; a mismatch is
// reported but decoding continues with what was recovered.
func (d *Decoder) checkSegmark() {
	v := 0
	for i := 0; i < 4; i++ {
		v = v<<1 | d.mq.Decode(ctxUni)
	}
	if v != 0xA {
		d.warnings = append(d.warnings, "segmentation symbol mismatch in cleanup pass")
	}
}
