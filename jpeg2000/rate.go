package jpeg2000

import (
	"fmt"
	"math"

	"github.com/cocosip/go-j2k/jpeg2000/t2"
)

// Rate-distortion allocation (PCRD): pick, per quality layer, how many
// coding passes of each code block to emit. Both algorithms share the
// make-layer primitive and a bisection driver; the feasible variant
// first reduces each block's pass list to its convex hull and bisects on
// a 16-bit slope index, so layers land exactly on the R-D frontier.

const (
	bisectIterations = 128
	bisectEpsilon    = 1e-9
)

// allocator carries the per-tile allocation state.
type allocator struct {
	tile      *Tile
	blocks    []*t2.CodeBlock
	numLayers int

	// Convex hull per block (feasible variant): hull pass indices and a
	// quantized slope per hull member.
	hull   [][]int
	slopes [][]uint16
}

func newAllocator(t *Tile, numLayers int) *allocator {
	a := &allocator{tile: t, numLayers: numLayers}
	for _, job := range t.collectJobs(false) {
		cb := job.cb
		cb.Layers = make([]t2.Layer, numLayers)
		cb.NumPassesAllocated = 0
		a.blocks = append(a.blocks, cb)
	}
	return a
}

// buildHulls retains per block only the passes on the convex hull of
// (rate, distortion) and quantizes their slopes to 16 bits.
func (a *allocator) buildHulls() {
	a.hull = make([][]int, len(a.blocks))
	a.slopes = make([][]uint16, len(a.blocks))
	for bi, cb := range a.blocks {
		var hull []int
		for i := range cb.Passes {
			hull = append(hull, i)
			for len(hull) >= 2 {
				s1 := a.hullSlope(cb, hull, len(hull)-2)
				s2 := a.hullSlope(cb, hull, len(hull)-1)
				if s2 >= s1 {
					// The middle point is dominated; drop it.
					hull = append(hull[:len(hull)-2], hull[len(hull)-1])
					continue
				}
				break
			}
		}
		slopes := make([]uint16, len(hull))
		for i := range hull {
			slopes[i] = quantizeSlope(a.hullSlope(cb, hull, i))
		}
		a.hull[bi] = hull
		a.slopes[bi] = slopes
	}
}

// hullSlope returns the ΔD/ΔR slope into hull member i.
func (a *allocator) hullSlope(cb *t2.CodeBlock, hull []int, i int) float64 {
	var r0 int
	var d0 float64
	if i > 0 {
		p := cb.Passes[hull[i-1]]
		r0, d0 = p.Rate, p.DistortionDec
	}
	p := cb.Passes[hull[i]]
	dr := p.Rate - r0
	dd := p.DistortionDec - d0
	if dr <= 0 {
		if dd > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return dd / float64(dr)
}

// quantizeSlope maps a positive slope to a monotone 16-bit index.
func quantizeSlope(s float64) uint16 {
	if math.IsInf(s, 1) {
		return math.MaxUint16
	}
	if s <= 0 {
		return 1
	}
	v := int(math.Round(math.Log2(s)*512)) + 32768
	if v < 1 {
		v = 1
	}
	if v > math.MaxUint16 {
		v = math.MaxUint16
	}
	return uint16(v)
}

// makeLayerFeasible fills layer l of every block with the hull passes
// whose slope is at least threshold. With final, the allocation cursor
// advances.
func (a *allocator) makeLayerFeasible(threshold uint16, layer int, final bool) {
	for bi, cb := range a.blocks {
		n := cb.NumPassesAllocated
		for i, h := range a.hull[bi] {
			if h+1 <= cb.NumPassesAllocated {
				continue
			}
			if a.slopes[bi][i] >= threshold {
				n = h + 1
			}
		}
		a.fillLayer(cb, layer, n, final)
	}
}

// makeLayerSimple fills layer l with the longest pass prefix whose
// incremental slope stays at or above the threshold.
func (a *allocator) makeLayerSimple(threshold float64, layer int, final bool) {
	for _, cb := range a.blocks {
		n := cb.NumPassesAllocated
		for p := cb.NumPassesAllocated; p < len(cb.Passes); p++ {
			var r0 int
			var d0 float64
			if n > 0 {
				r0 = cb.Passes[n-1].Rate
				d0 = cb.Passes[n-1].DistortionDec
			}
			dr := cb.Passes[p].Rate - r0
			dd := cb.Passes[p].DistortionDec - d0
			if dr == 0 {
				if dd != 0 {
					n = p + 1
				}
				continue
			}
			if dd/float64(dr) >= threshold-bisectEpsilon {
				n = p + 1
			}
		}
		a.fillLayer(cb, layer, n, final)
	}
}

// includeAllRemaining dumps every not-yet-allocated pass into the layer
// (single-lossless shortcut, and the forced last layer of uncapped
// configurations).
func (a *allocator) includeAllRemaining(layer int, final bool) {
	for _, cb := range a.blocks {
		a.fillLayer(cb, layer, len(cb.Passes), final)
	}
}

// fillLayer materializes layer l of one block as passes [allocated, n).
func (a *allocator) fillLayer(cb *t2.CodeBlock, layer, n int, final bool) {
	var r0 int
	var d0 float64
	if cb.NumPassesAllocated > 0 {
		r0 = cb.Passes[cb.NumPassesAllocated-1].Rate
		d0 = cb.Passes[cb.NumPassesAllocated-1].DistortionDec
	}
	lay := &cb.Layers[layer]
	if n <= cb.NumPassesAllocated {
		*lay = t2.Layer{}
		return
	}
	end := cb.Passes[n-1]
	*lay = t2.Layer{
		NumPasses: n - cb.NumPassesAllocated,
		Len:       end.Rate - r0,
		Disto:     end.DistortionDec - d0,
		Data:      cb.Data[r0:end.Rate],
	}
	if final {
		cb.NumPassesAllocated = n
		a.tile.addDistortion(lay.Disto)
	}
}

// slopeBounds scans all pass deltas for the extreme slopes.
func (a *allocator) slopeBounds() (lo, hi float64) {
	lo, hi = math.Inf(1), 0
	for _, cb := range a.blocks {
		var r0 int
		var d0 float64
		for _, p := range cb.Passes {
			dr := p.Rate - r0
			dd := p.DistortionDec - d0
			r0, d0 = p.Rate, p.DistortionDec
			if dr <= 0 {
				continue
			}
			s := dd / float64(dr)
			if s < lo {
				lo = s
			}
			if s > hi {
				hi = s
			}
		}
	}
	if math.IsInf(lo, 1) {
		lo = 0
	}
	return lo, hi
}

// totalDistortion is the distortion decrement if every pass were kept.
func (a *allocator) totalDistortion() float64 {
	var sum float64
	for _, cb := range a.blocks {
		if n := len(cb.Passes); n > 0 {
			sum += cb.Passes[n-1].DistortionDec
		}
	}
	return sum
}

// allocateLayers runs the configured allocator. simulate reports the
// Tier-2 output size through the given layer; overhead approximates the
// fixed header bytes counted against the rate targets.
func (t *Tile) allocateLayers(p *EncodeParams, maxSE float64, simulate func(maxLayer int) int, overhead int) error {
	a := newAllocator(t, p.NumLayers)
	if len(a.blocks) == 0 {
		return nil
	}

	// Single lossless shortcut: one layer, nothing to optimize.
	if p.NumLayers == 1 && len(p.Rates) == 0 && len(p.Distoratio) == 0 {
		a.includeAllRemaining(0, true)
		return nil
	}

	feasible := p.RateControl == RateControlFeasible
	if feasible {
		a.buildHulls()
	}
	slopeLo, slopeHi := a.slopeBounds()
	distoTotal := a.totalDistortion()
	numpix := t.Numpix()

	var infeasible error
	prevLowerBound := math.Inf(1)

	for layer := 0; layer < p.NumLayers; layer++ {
		var rateTarget int // bytes through this layer, 0 = uncapped
		if layer < len(p.Rates) && p.Rates[layer] > 0 {
			rateTarget = int(p.Rates[layer]*float64(numpix)/8.0) - overhead
			if rateTarget < 1 {
				rateTarget = 1
			}
		}
		var distoTarget float64 // residual distortion ceiling, <0 = none
		distoTarget = -1
		if layer < len(p.Distoratio) && p.Distoratio[layer] > 0 {
			distoTarget = float64(numpix) * maxSE / math.Pow(10, p.Distoratio[layer]/10)
		}

		lastLayer := layer == p.NumLayers-1
		if rateTarget == 0 && distoTarget < 0 {
			// No cap: the final layer takes everything left, earlier
			// uncapped layers take an even share of the slope range.
			if lastLayer {
				a.includeAllRemaining(layer, true)
				continue
			}
			mid := slopeLo + (slopeHi-slopeLo)*float64(p.NumLayers-1-layer)/float64(p.NumLayers)
			if feasible {
				a.makeLayerFeasible(quantizeSlope(mid), layer, true)
			} else {
				a.makeLayerSimple(mid, layer, true)
			}
			continue
		}

		// Bisection on the slope threshold. High threshold = few passes.
		lo, hi := slopeLo, slopeHi
		if !feasible && prevLowerBound < hi {
			// The simple variant seeds the upper bound from the previous
			// layer's lower bound.
			hi = prevLowerBound
		}
		// A fixed-quality target overrides the rate target for the layer
		// (the distortion comparison and the size simulation pull the
		// bisection in opposite directions).
		fixedQuality := distoTarget >= 0
		good := math.Inf(1)
		found := false
		for iter := 0; iter < bisectIterations && hi-lo > bisectEpsilon; iter++ {
			mid := (lo + hi) / 2
			if feasible {
				a.makeLayerFeasible(quantizeSlope(mid), layer, false)
			} else {
				a.makeLayerSimple(mid, layer, false)
			}

			if fixedQuality {
				achieved := distoTotal - a.achievedThrough(layer)
				if achieved <= distoTarget {
					good = mid
					found = true
					lo = mid // target met; try a higher threshold, less data
				} else {
					hi = mid
				}
			} else {
				if simulate(layer) <= rateTarget {
					good = mid
					found = true
					hi = mid // fits; try a lower threshold, more data
				} else {
					lo = mid
				}
			}
		}
		if !found {
			// Nothing met the target; emit the best effort and report
			// infeasibility: everything for a quality target, the
			// smallest layer for a rate target.
			if fixedQuality {
				good = slopeLo
			} else {
				good = slopeHi
			}
			infeasible = fmt.Errorf("%w: layer %d target unreachable", ErrRateControlInfeasible, layer)
		}
		prevLowerBound = good - 1
		if feasible {
			a.makeLayerFeasible(quantizeSlope(good), layer, true)
		} else {
			a.makeLayerSimple(good, layer, true)
		}
	}
	return infeasible
}

// achievedThrough sums the distortion decrements of all finalized layers
// plus the tentative current one.
func (a *allocator) achievedThrough(layer int) float64 {
	var sum float64
	for _, cb := range a.blocks {
		for l := 0; l <= layer && l < len(cb.Layers); l++ {
			sum += cb.Layers[l].Disto
		}
	}
	return sum
}
