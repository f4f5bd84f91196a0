package wavelet

// Region-of-interest support. For a windowed decode only the samples
// inside the requested window (plus the filter footprint) have to be
// lifted. The helpers here compute the per-level ranges and run the
// inverse lift over a gathered sub-line, so work scales with the window
// rather than the tile.

// Range is a half-open index interval [Lo, Hi).
type Range struct {
	Lo, Hi int
}

// Empty reports whether the range contains no indices.
func (r Range) Empty() bool { return r.Hi <= r.Lo }

// Clip intersects r with [0, n).
func (r Range) Clip(n int) Range {
	if r.Lo < 0 {
		r.Lo = 0
	}
	if r.Hi > n {
		r.Hi = n
	}
	if r.Hi < r.Lo {
		r.Hi = r.Lo
	}
	return r
}

// ParentRange returns the range of samples needed at the next lower
// resolution to reconstruct out at this one: halved bounds padded by the
// kernel footprint on each side.
func ParentRange(out Range, k Kernel) Range {
	pad := k.FilterPad()
	return Range{Lo: out.Lo/2 - pad, Hi: (out.Hi+1)/2 + pad}
}

// splitIndex maps an interleaved position to its index within the
// [low | high] halves; which half it belongs to depends on the position
// parity relative to the line origin.
func splitIndex(q int) int { return q >> 1 }

func isLowPosition(q, par int) bool { return (q^par)&1 == 0 }

// Inverse53LineWindow reconstructs interleaved positions [out.Lo, out.Hi)
// of a [low | high] line whose origin coordinate has parity par, lifting
// only over the padded sub-range. Results inside out are bit-identical to
// a full-line inverse.
func Inverse53LineWindow(line []int32, par int, out Range, scratch []int32) {
	n := len(line)
	work := Range{Lo: out.Lo - Kernel53.FilterPad()*2, Hi: out.Hi + Kernel53.FilterPad()*2}.Clip(n)
	if work.Empty() {
		return
	}
	m := work.Hi - work.Lo
	sn := splitLength(n, par == 0)

	buf := scratch[:m]
	evenSub := (par+work.Lo)&1 == 0
	snSub := splitLength(m, evenSub)
	li, hi := 0, 0
	for j := 0; j < m; j++ {
		q := work.Lo + j
		if isLowPosition(q, par) {
			buf[li] = line[splitIndex(q)]
			li++
		} else {
			buf[snSub+hi] = line[sn+splitIndex(q)]
			hi++
		}
	}

	inverse53Line(buf, scratch[m:2*m], evenSub)

	out = out.Clip(n)
	copy(scratchDst53(line, out), buf[out.Lo-work.Lo:out.Hi-work.Lo])
}

// scratchDst53 views the output positions of the line as a writable
// slice; the interleaved result overwrites the band-split layout, so the
// caller must consume outputs before touching the remaining halves.
func scratchDst53(line []int32, out Range) []int32 {
	return line[out.Lo:out.Hi]
}

// Inverse97LineWindow is the 9/7 counterpart of Inverse53LineWindow.
// Outputs inside out match a full-line inverse to within float rounding
// of identical operations ordered identically.
func Inverse97LineWindow(line []float64, par int, out Range, scratch []float64) {
	n := len(line)
	work := Range{Lo: out.Lo - Kernel97.FilterPad()*2, Hi: out.Hi + Kernel97.FilterPad()*2}.Clip(n)
	if work.Empty() {
		return
	}
	m := work.Hi - work.Lo
	sn := splitLength(n, par == 0)

	buf := scratch[:m]
	evenSub := (par+work.Lo)&1 == 0
	snSub := splitLength(m, evenSub)
	li, hi := 0, 0
	for j := 0; j < m; j++ {
		q := work.Lo + j
		if isLowPosition(q, par) {
			buf[li] = line[splitIndex(q)]
			li++
		} else {
			buf[snSub+hi] = line[sn+splitIndex(q)]
			hi++
		}
	}

	Inverse97Line(buf, evenSub)

	out = out.Clip(n)
	copy(line[out.Lo:out.Hi], buf[out.Lo-work.Lo:out.Hi-work.Lo])
}
