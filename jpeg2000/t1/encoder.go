package t1

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/cocosip/go-j2k/jpeg2000/mqc"
)

// Pass records one coding pass's bookkeeping for the rate allocator.
type Pass struct {
	Rate          int     // cumulative bytes needed to decode through this pass
	Len           int     // bytes this pass contributes
	DistortionDec float64 // cumulative distortion decrease
	Term          bool    // coder terminated after this pass
}

// mqFlushMargin bounds the bytes a future flush can add after a pass that
// did not terminate the coder; rates stay decodable prefixes.
const mqFlushMargin = 4

// Encoder codes one code block at a time; the flag and data scratch grow
// to the largest block seen and are reused, so one encoder per worker
// amortizes all allocation.
type Encoder struct {
	width, height int
	stride        int // width + 2, for the padded flags array
	data          []int32
	flags         []uint32

	mq       *mqc.Encoder
	orient   int
	style    uint8
	bitplane int
}

// NewEncoder returns an empty encoder; Encode sizes it per block.
func NewEncoder() *Encoder {
	return &Encoder{}
}

func (e *Encoder) setup(data []int32, width, height, orient int, style uint8) {
	e.width, e.height = width, height
	e.stride = width + 2
	e.orient = orient
	e.style = style

	n := (width + 2) * (height + 2)
	if cap(e.flags) < n {
		e.flags = make([]uint32, n)
	} else {
		e.flags = e.flags[:n]
		clear(e.flags)
	}
	if cap(e.data) < width*height {
		e.data = make([]int32, width*height)
	} else {
		e.data = e.data[:width*height]
	}
	copy(e.data, data)
}

// at returns the flags index of sample (x, y); the +1 offsets skip the
// padding ring.
func (e *Encoder) at(x, y int) int { return (y+1)*e.stride + (x + 1) }

func (e *Encoder) sample(x, y int) int32 { return e.data[y*e.width+x] }

func (e *Encoder) magnitude(x, y int) int32 {
	v := e.sample(x, y)
	if v < 0 {
		return -v
	}
	return v
}

func initialStates(mq *mqc.Encoder) {
	mq.ResetContexts()
	mq.SetContextState(ctxUni, 46)
	mq.SetContextState(ctxAgg, 3)
	mq.SetContextState(ctxZC, 4)
}

// lazyRawPass reports whether a pass runs through the raw coder: with the
// LAZY switch, significance and refinement passes below the fourth most
// significant plane bypass the MQ coder.
func lazyRawPass(style uint8, bitplane, numbps, passType int) bool {
	return style&StyleLazy != 0 && passType < 2 && bitplane < numbps-4
}

// terminatingPass reports whether the coder terminates after this pass:
// always on the final cleanup, on every pass under TERMALL, and at each
// raw/MQ boundary in lazy mode.
func terminatingPass(style uint8, bitplane, numbps, passType int) bool {
	if passType == 2 && bitplane == 0 {
		return true
	}
	if style&StyleTermAll != 0 {
		return true
	}
	if style&StyleLazy != 0 {
		if bitplane == numbps-4 && passType == 2 {
			return true
		}
		if bitplane < numbps-4 && passType > 0 {
			return true
		}
	}
	return false
}

// Encode codes the block's bit planes and returns the compressed bytes,
// the per-pass table and the number of magnitude bit planes. distoWeight
// scales the per-pass normalized MSE decrements into tile distortion
// units: (bandNorm × stepSize)² / 8192.
func (e *Encoder) Encode(data []int32, width, height, orient int, style uint8, distoWeight float64) ([]byte, []Pass, int, error) {
	if len(data) != width*height {
		return nil, nil, 0, fmt.Errorf("t1: block data is %d samples, want %dx%d", len(data), width, height)
	}
	e.setup(data, width, height, orient, style)

	numbps := 0
	for _, v := range e.data {
		if v < 0 {
			v = -v
		}
		if b := bits.Len32(uint32(v)); b > numbps {
			numbps = b
		}
	}
	if numbps == 0 {
		return nil, nil, 0, nil
	}

	e.mq = mqc.NewEncoder(NumContexts)
	initialStates(e.mq)

	totalPasses := 3*numbps - 2
	passes := make([]Pass, 0, totalPasses)
	distoCum := 0.0
	prevTerminated := false

	passType := 2
	for e.bitplane = numbps - 1; e.bitplane >= 0; {
		if passType == 0 || len(passes) == 0 {
			for i := range e.flags {
				e.flags[i] &^= flagVisit
			}
		}

		raw := lazyRawPass(style, e.bitplane, numbps, passType)
		if prevTerminated {
			if raw {
				e.mq.BypassInit()
			} else {
				e.mq.Restart()
			}
			prevTerminated = false
		}

		var nmsedec int32
		switch passType {
		case 0:
			nmsedec = e.sigPropPass(raw)
		case 1:
			nmsedec = e.magRefPass(raw)
		case 2:
			nmsedec = e.cleanupPass()
			if style&StyleSegsym != 0 {
				e.mq.SegmarkEncode(ctxUni)
			}
		}

		term := terminatingPass(style, e.bitplane, numbps, passType)
		if term {
			if raw {
				e.mq.BypassFlush(style&StylePterm != 0)
			} else if style&StylePterm != 0 {
				e.mq.FlushErterm()
			} else {
				e.mq.FlushToOutput()
			}
			prevTerminated = true
		}

		distoCum += float64(nmsedec) * math.Ldexp(1, 2*e.bitplane) * distoWeight
		rate := e.mq.NumBytes()
		if !term {
			if raw {
				rate += e.mq.BypassPending(style&StylePterm != 0)
			} else {
				rate += mqFlushMargin
			}
		}
		passes = append(passes, Pass{Rate: rate, DistortionDec: distoCum, Term: term})

		if style&StyleReset != 0 {
			initialStates(e.mq)
		}

		if passType == 2 {
			passType = 0
			e.bitplane--
		} else {
			passType++
		}
	}

	out := e.mq.Bytes()
	out = append([]byte(nil), out...)

	// Clamp rates to the final length, pin the last pass to it, cap each
	// non-terminated estimate at the rate of the pass after it (terminated
	// rates are exact segment ends), and derive the per-pass deltas.
	if n := len(passes); n > 0 {
		passes[n-1].Rate = len(out)
	}
	for i := len(passes) - 2; i >= 0; i-- {
		if !passes[i].Term && passes[i].Rate > passes[i+1].Rate {
			passes[i].Rate = passes[i+1].Rate
		}
	}
	prev := 0
	for i := range passes {
		if passes[i].Rate > len(out) {
			passes[i].Rate = len(out)
		}
		if passes[i].Rate < prev {
			passes[i].Rate = prev
		}
		passes[i].Len = passes[i].Rate - prev
		prev = passes[i].Rate
	}

	return out, passes, numbps, nil
}

// vscFlags masks the stripe row below when the block is coded in
// vertically-stripe-causal mode.
func (e *Encoder) vscFlags(idx, dy int) uint32 {
	f := e.flags[idx]
	if e.style&StyleVSC != 0 && dy == 3 {
		f &= vscMask
	}
	return f
}

// sigPropPass codes samples that are not yet significant but have a
// significant neighbor.
func (e *Encoder) sigPropPass(raw bool) int32 {
	var nmsedec int32
	one := int32(1) << uint(e.bitplane)
	for k := 0; k < e.height; k += 4 {
		for x := 0; x < e.width; x++ {
			for dy := 0; dy < 4 && k+dy < e.height; dy++ {
				y := k + dy
				idx := e.at(x, y)
				flags := e.vscFlags(idx, dy)

				if flags&flagSig != 0 || flags&flagSigNeighbors == 0 {
					continue
				}

				mag := e.magnitude(x, y)
				sig := 0
				if mag&one != 0 {
					sig = 1
				}

				if raw {
					e.mq.BypassEncode(sig)
				} else {
					e.mq.Encode(sig, zeroCodingContext(flags, e.orient))
				}
				e.flags[idx] |= flagVisit

				if sig != 0 {
					nmsedec += nmsedecSig(mag, e.bitplane)
					e.codeSign(x, y, idx, flags, raw)
					e.flags[idx] |= flagSig
					e.markNeighbors(x, y, idx)
				}
			}
		}
	}
	return nmsedec
}

// magRefPass refines samples already significant and not visited in this
// plane.
func (e *Encoder) magRefPass(raw bool) int32 {
	var nmsedec int32
	one := int32(1) << uint(e.bitplane)
	for k := 0; k < e.height; k += 4 {
		for x := 0; x < e.width; x++ {
			for dy := 0; dy < 4 && k+dy < e.height; dy++ {
				y := k + dy
				idx := e.at(x, y)
				flags := e.vscFlags(idx, dy)

				if flags&flagSig == 0 || flags&flagVisit != 0 {
					continue
				}

				mag := e.magnitude(x, y)
				nmsedec += nmsedecRef(mag, e.bitplane)

				refBit := 0
				if mag&one != 0 {
					refBit = 1
				}
				if raw {
					e.mq.BypassEncode(refBit)
				} else {
					e.mq.Encode(refBit, magContext(flags))
				}
				e.flags[idx] |= flagRefine
			}
		}
	}
	return nmsedec
}

// cleanupPass codes everything the earlier passes skipped, aggregating
// all-insignificant 4-sample columns through the run-length contexts.
func (e *Encoder) cleanupPass() int32 {
	var nmsedec int32
	one := int32(1) << uint(e.bitplane)
	for k := 0; k < e.height; k += 4 {
		for x := 0; x < e.width; x++ {
			runLen := -1
			aggregate := k+3 < e.height
			if aggregate {
				for dy := 0; dy < 4; dy++ {
					idx := e.at(x, k+dy)
					f := e.vscFlags(idx, dy)
					if e.flags[idx]&flagVisit != 0 || f&(flagSig|flagSigNeighbors) != 0 {
						aggregate = false
						break
					}
					if runLen == -1 && e.magnitude(x, k+dy)&one != 0 {
						runLen = dy
					}
				}
			}

			start := 0
			if aggregate {
				if runLen == -1 {
					e.mq.Encode(0, ctxAgg)
					continue
				}
				e.mq.Encode(1, ctxAgg)
				e.mq.Encode(runLen>>1, ctxUni)
				e.mq.Encode(runLen&1, ctxUni)
				start = runLen
			}

			implicit := aggregate
			for dy := start; dy < 4 && k+dy < e.height; dy++ {
				y := k + dy
				idx := e.at(x, y)
				flags := e.vscFlags(idx, dy)

				if e.flags[idx]&flagVisit != 0 || flags&flagSig != 0 {
					e.flags[idx] &^= flagVisit
					continue
				}

				mag := e.magnitude(x, y)
				sig := 0
				if mag&one != 0 {
					sig = 1
				}

				if implicit {
					// The run length already said this sample is the
					// first significant one.
					sig = 1
					implicit = false
				} else {
					e.mq.Encode(sig, zeroCodingContext(flags, e.orient))
				}

				if sig != 0 {
					nmsedec += nmsedecSig(mag, e.bitplane)
					e.codeSign(x, y, idx, flags, false)
					e.flags[idx] |= flagSig
					e.markNeighbors(x, y, idx)
				}
				e.flags[idx] &^= flagVisit
			}
		}
	}
	return nmsedec
}

// codeSign emits the sample's sign, predicted from the neighbor signs in
// MQ mode and raw in the lazy region.
func (e *Encoder) codeSign(x, y, idx int, flags uint32, raw bool) {
	signBit := 0
	if e.sample(x, y) < 0 {
		signBit = 1
		e.flags[idx] |= flagSign
	}
	if raw {
		e.mq.BypassEncode(signBit)
		return
	}
	ctx, xorbit := signContext(flags)
	e.mq.Encode(signBit^xorbit, ctx)
}

// markNeighbors records the new significance (and sign) in the eight
// neighbor cells; the padding ring absorbs writes at the block edge.
func (e *Encoder) markNeighbors(x, y, idx int) {
	negative := e.flags[idx]&flagSign != 0
	n := idx - e.stride
	s := idx + e.stride

	e.flags[n] |= flagSigS
	e.flags[s] |= flagSigN
	e.flags[idx-1] |= flagSigE
	e.flags[idx+1] |= flagSigW
	if negative {
		e.flags[n] |= flagSignS
		e.flags[s] |= flagSignN
		e.flags[idx-1] |= flagSignE
		e.flags[idx+1] |= flagSignW
	}
	e.flags[n-1] |= flagSigSE
	e.flags[n+1] |= flagSigSW
	e.flags[s-1] |= flagSigNE
	e.flags[s+1] |= flagSigNW
}
