// Package wavelet implements the 5/3 reversible and 9/7 irreversible
// discrete wavelet transforms of ISO/IEC 15444-1:2019 Annex F.
//
// All transforms are expressed as lifting on one line at a time with
// symmetric whole-sample extension at the boundaries. 2-D transforms are
// separable: rows first, then columns, per decomposition level. The
// parity of the line origin decides whether the first interleaved sample
// belongs to the low-pass or the high-pass band.
package wavelet

// Kernel selects the lifting filter.
type Kernel int

const (
	// Kernel53 is the reversible integer 5/3 filter.
	Kernel53 Kernel = iota
	// Kernel97 is the irreversible floating-point 9/7 filter.
	Kernel97
)

// FilterPad returns the half-width of the kernel's footprint, the number
// of extra samples needed on each side of a window.
func (k Kernel) FilterPad() int {
	if k == Kernel97 {
		return 4
	}
	return 2
}

// splitLength returns the number of low-pass samples produced from a line
// of n samples whose origin parity is even.
func splitLength(n int, even bool) int {
	if even {
		return (n + 1) / 2
	}
	return n / 2
}

// isEven reports whether a coordinate is even.
func isEven(v int) bool { return v&1 == 0 }

// halveCoord maps a coordinate to the next lower resolution level.
func halveCoord(v int) int { return (v + 1) >> 1 }

// LowpassSize returns the LL band dimensions after levels dyadic
// decompositions of a region anchored at (x0, y0).
func LowpassSize(width, height, levels, x0, y0 int) (int, int) {
	w, h := width, height
	for level := 0; level < levels; level++ {
		if w <= 1 && h <= 1 {
			break
		}
		w = splitLength(w, isEven(x0))
		h = splitLength(h, isEven(y0))
		x0 = halveCoord(x0)
		y0 = halveCoord(y0)
	}
	return w, h
}
