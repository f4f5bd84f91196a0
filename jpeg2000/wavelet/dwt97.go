package wavelet

// 9/7 irreversible transform (Annex F.4.8). Four lifting steps with the
// Cohen-Daubechies-Feauveau coefficients, followed by scaling of the low
// band by 1/K and the high band by K. Lifting runs on the interleaved
// line; deinterleaving happens last (encode) or first (decode).

const (
	alpha97 = -1.586134342
	beta97  = -0.052980118
	gamma97 = 0.882911075
	delta97 = 0.443506852

	scaleK97    = 1.230174105
	invScaleK97 = 0.812893066
)

// Forward97Line transforms one line in place; the result is stored as
// [low | high] with splitLength(len, even) low samples.
func Forward97Line(data []float64, even bool) {
	n := len(data)
	if n <= 1 {
		return
	}
	sn, dn, low, high := layout97(n, even)

	liftStep97(data, low, high+1, dn, min(dn, sn-high), alpha97)
	liftStep97(data, high, low+1, sn, min(sn, dn-low), beta97)
	liftStep97(data, low, high+1, dn, min(dn, sn-high), gamma97)
	liftStep97(data, high, low+1, sn, min(sn, dn-low), delta97)

	if low == 0 {
		scale97(data, sn, dn, invScaleK97, scaleK97)
	} else {
		scale97(data, dn, sn, scaleK97, invScaleK97)
	}

	deinterleave97(data, sn, dn, even)
}

// Inverse97Line reconstructs one line in place from [low | high] halves.
func Inverse97Line(data []float64, even bool) {
	n := len(data)
	if n <= 1 {
		return
	}
	sn, dn, low, high := layout97(n, even)

	interleave97(data, sn, dn, even)

	if low == 0 {
		unscale97(data, sn, dn, invScaleK97, scaleK97)
	} else {
		unscale97(data, dn, sn, scaleK97, invScaleK97)
	}

	liftStep97(data, high, low+1, sn, min(sn, dn-low), -delta97)
	liftStep97(data, low, high+1, dn, min(dn, sn-high), -gamma97)
	liftStep97(data, high, low+1, sn, min(sn, dn-low), -beta97)
	liftStep97(data, low, high+1, dn, min(dn, sn-high), -alpha97)
}

// layout97 returns the band split and the interleaved offsets of the low
// and high samples for a line with the given origin parity.
func layout97(n int, even bool) (sn, dn, low, high int) {
	if even {
		sn = (n + 1) >> 1
		return sn, n - sn, 0, 1
	}
	sn = n >> 1
	return sn, n - sn, 1, 0
}

// liftStep97 adds c times the sum of the two flanking samples to every
// target sample, with symmetric extension past the right edge.
func liftStep97(data []float64, flankStart, targetStart, end, m int, c float64) {
	imax := min(end, m)
	if imax > 0 {
		fw := targetStart
		data[fw-1] += (data[flankStart] + data[fw]) * c
		fw += 2
		for i := 1; i < imax; i++ {
			data[fw-1] += (data[fw-2] + data[fw]) * c
			fw += 2
		}
	}
	if m < end {
		fw := targetStart + 2*m
		data[fw-1] += 2 * data[fw-2] * c
	}
}

func scale97(data []float64, n1, n2 int, c1, c2 float64) {
	common := min(n1, n2)
	fw := 0
	i := 0
	for ; i < common; i++ {
		data[fw] *= c1
		data[fw+1] *= c2
		fw += 2
	}
	if i < n1 {
		data[fw] *= c1
	} else if i < n2 {
		data[fw+1] *= c2
	}
}

func unscale97(data []float64, n1, n2 int, c1, c2 float64) {
	common := min(n1, n2)
	fw := 0
	i := 0
	for ; i < common; i++ {
		data[fw] /= c1
		data[fw+1] /= c2
		fw += 2
	}
	if i < n1 {
		data[fw] /= c1
	} else if i < n2 {
		data[fw+1] /= c2
	}
}

func deinterleave97(data []float64, sn, dn int, even bool) {
	tmp := make([]float64, sn+dn)
	if even {
		for i := 0; i < sn; i++ {
			tmp[i] = data[2*i]
		}
		for i := 0; i < dn; i++ {
			tmp[sn+i] = data[2*i+1]
		}
	} else {
		for i := 0; i < sn; i++ {
			tmp[i] = data[2*i+1]
		}
		for i := 0; i < dn; i++ {
			tmp[sn+i] = data[2*i]
		}
	}
	copy(data, tmp)
}

func interleave97(data []float64, sn, dn int, even bool) {
	tmp := make([]float64, sn+dn)
	if even {
		for i := 0; i < sn; i++ {
			tmp[2*i] = data[i]
		}
		for i := 0; i < dn; i++ {
			tmp[2*i+1] = data[sn+i]
		}
	} else {
		for i := 0; i < sn; i++ {
			tmp[2*i+1] = data[i]
		}
		for i := 0; i < dn; i++ {
			tmp[2*i] = data[sn+i]
		}
	}
	copy(data, tmp)
}
