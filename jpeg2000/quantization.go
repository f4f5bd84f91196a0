package jpeg2000

// Quantization and band energy weighting (Annex E). Step sizes are
// carried as (exponent, mantissa) pairs: Δ = 2^(R−ε) · (1 + μ/2^11)
// where R is the band's dynamic range.

// Band L2-norm tables per orientation (LL, HL, LH, HH) and decomposition
// level, for the 5/3 and 9/7 kernels.
var dwtNorms53 = [4][10]float64{
	{1.000, 1.500, 2.750, 5.375, 10.68, 21.34, 42.67, 85.33, 170.7, 341.3},
	{1.038, 1.592, 2.919, 5.703, 11.33, 22.64, 45.25, 90.48, 180.9, 0},
	{1.038, 1.592, 2.919, 5.703, 11.33, 22.64, 45.25, 90.48, 180.9, 0},
	{0.7186, 0.9218, 1.586, 3.043, 6.019, 12.01, 24.00, 47.97, 95.93, 0},
}

var dwtNorms97 = [4][10]float64{
	{1.000, 1.965, 4.177, 8.403, 16.90, 33.84, 67.69, 135.3, 270.6, 540.9},
	{2.022, 3.989, 8.355, 17.04, 34.27, 68.63, 137.3, 274.6, 549.0, 0},
	{2.022, 3.989, 8.355, 17.04, 34.27, 68.63, 137.3, 274.6, 549.0, 0},
	{2.080, 3.865, 8.307, 17.18, 34.71, 69.59, 139.3, 278.6, 557.2, 0},
}

// bandNorm returns the L2 norm of the synthesis basis for a band.
// level counts decompositions (1-based for the detail bands); orient is
// the band index 0..3 with 0 meaning LL.
func bandNorm(irreversible bool, orient, level int) float64 {
	table := &dwtNorms53
	if irreversible {
		table = &dwtNorms97
	}
	idx := level
	if orient == 0 {
		// The LL norm row is indexed by remaining levels directly.
		if idx > 9 {
			idx = 9
		}
		return table[0][idx]
	}
	if idx < 1 {
		idx = 1
	}
	if idx > 9 {
		idx = 9
	}
	v := table[orient][idx-1]
	if v == 0 {
		v = table[orient][8]
	}
	return v
}

// bandGain is the log2 gain of the reversible transform per band.
func bandGain(orient int) int {
	switch orient {
	case 0:
		return 0
	case 3:
		return 2
	}
	return 1
}

// encodeStepSize converts a step size to the (ε, μ) wire form, given the
// band's dynamic range numbps.
func encodeStepSize(step float64, numbps int) (expn, mant int) {
	fixed := int(step * 8192.0)
	if fixed < 1 {
		fixed = 1
	}
	p := floorLog2(fixed) - 13
	n := 11 - floorLog2(fixed)
	if n < 0 {
		mant = (fixed >> uint(-n)) & 0x7FF
	} else {
		mant = (fixed << uint(n)) & 0x7FF
	}
	expn = numbps - p
	return expn, mant
}

// decodeStepSize reverses encodeStepSize.
func decodeStepSize(expn, mant, numbps int) float64 {
	return (1.0 + float64(mant)/2048.0) * pow2(numbps-expn)
}

func pow2(e int) float64 {
	if e >= 0 {
		if e < 63 {
			return float64(uint64(1) << uint(e))
		}
		v := 1.0
		for i := 0; i < e; i++ {
			v *= 2
		}
		return v
	}
	return 1.0 / pow2(-e)
}

// quantize converts one wavelet coefficient to its quantization index
// with deadzone truncation.
func quantize(v float64, step float64) int32 {
	if v >= 0 {
		return int32(v / step)
	}
	return -int32(-v / step)
}

// dequantizeDoubled reconstructs a coefficient from the Tier-1 decoder's
// doubled-domain output: the extra fraction bit carries the half-interval
// reconstruction point.
func dequantizeDoubled(doubled int32, step float64) float64 {
	return float64(doubled) * step / 2.0
}

// dequantizeReversibleDoubled recovers the exact integer coefficient of
// a fully decoded reversible stream (truncating halve toward zero).
func dequantizeReversibleDoubled(doubled int32) int32 {
	if doubled < 0 {
		return -(-doubled >> 1)
	}
	return doubled >> 1
}
