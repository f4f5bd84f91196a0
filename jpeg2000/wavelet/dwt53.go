package wavelet

// 5/3 reversible transform (Annex F.4). Integer lifting: the predict step
// subtracts the average of the two neighboring low samples, the update
// step adds back a quarter of the neighboring details with rounding. The
// inverse applies the steps in reverse and is bit-exact.

// Forward53Line transforms one line in place. On return the first
// splitLength(len, even) entries hold the low band, the rest the high
// band. even gives the parity of the line's origin coordinate.
func Forward53Line(data []int32, even bool) {
	n := len(data)
	if n == 0 {
		return
	}
	tmp := make([]int32, n)
	forward53Line(data, tmp, even)
}

// Forward53LineInto is Forward53Line with a caller-provided scratch line
// of at least len(data) entries; DWT workers reuse one per worker.
func Forward53LineInto(data, scratch []int32, even bool) {
	if len(data) == 0 {
		return
	}
	forward53Line(data, scratch[:len(data)], even)
}

func forward53Line(data, tmp []int32, even bool) {
	n := len(data)
	if n == 0 {
		return
	}
	if even {
		if n == 1 {
			return
		}
		sn := (n + 1) >> 1
		dn := n - sn

		// Predict: d[i] = x[2i+1] - ((x[2i] + x[2i+2]) >> 1), with
		// symmetric extension past the right edge.
		i := 0
		for ; i < sn-1; i++ {
			tmp[sn+i] = data[2*i+1] - ((data[2*i] + data[2*i+2]) >> 1)
		}
		if n%2 == 0 {
			tmp[sn+i] = data[2*i+1] - data[2*i]
		}

		// Update: s[i] = x[2i] + ((d[i-1] + d[i] + 2) >> 2).
		data[0] += (tmp[sn] + tmp[sn] + 2) >> 2
		for i = 1; i < dn; i++ {
			data[i] = data[2*i] + ((tmp[sn+i-1] + tmp[sn+i] + 2) >> 2)
		}
		if n%2 == 1 {
			data[i] = data[2*i] + ((tmp[sn+i-1] + tmp[sn+i-1] + 2) >> 2)
		}

		copy(data[sn:], tmp[sn:sn+dn])
		return
	}

	// Odd origin: low samples sit at odd indices.
	if n == 1 {
		data[0] *= 2
		return
	}
	sn := n >> 1
	dn := n - sn

	tmp[sn+0] = data[0] - data[1]
	i := 1
	for ; i < sn; i++ {
		tmp[sn+i] = data[2*i] - ((data[2*i+1] + data[2*i-1]) >> 1)
	}
	if n%2 == 1 {
		tmp[sn+i] = data[2*i] - data[2*i-1]
	}

	for i = 0; i < dn-1; i++ {
		data[i] = data[2*i+1] + ((tmp[sn+i] + tmp[sn+i+1] + 2) >> 2)
	}
	if n%2 == 0 {
		data[i] = data[2*i+1] + ((tmp[sn+i] + tmp[sn+i] + 2) >> 2)
	}

	copy(data[sn:], tmp[sn:sn+dn])
}

// Inverse53Line reconstructs one line in place from [low | high] halves.
func Inverse53Line(data []int32, even bool) {
	n := len(data)
	if n == 0 {
		return
	}
	tmp := make([]int32, n)
	inverse53Line(data, tmp, even)
}

// Inverse53LineInto is Inverse53Line with caller-provided scratch.
func Inverse53LineInto(data, scratch []int32, even bool) {
	if len(data) == 0 {
		return
	}
	inverse53Line(data, scratch[:len(data)], even)
}

func inverse53Line(data, tmp []int32, even bool) {
	n := len(data)
	if n == 0 {
		return
	}
	if even {
		if n == 1 {
			return
		}
		sn := (n + 1) >> 1
		dn := n - sn

		// Un-update: s[i] -= (d[i-1] + d[i] + 2) >> 2.
		tmp[0] = data[0] - ((data[sn] + data[sn] + 2) >> 2)
		for i := 1; i < sn; i++ {
			dPrev := data[sn+i-1]
			dCur := dPrev
			if i < dn {
				dCur = data[sn+i]
			}
			tmp[i] = data[i] - ((dPrev + dCur + 2) >> 2)
		}

		// Un-predict: d[i] += (s[i] + s[i+1]) >> 1; interleave.
		for i := 0; i < dn; i++ {
			sCur := tmp[i]
			sNext := sCur
			if i+1 < sn {
				sNext = tmp[i+1]
			}
			data[2*i+1] = data[sn+i] + ((sCur + sNext) >> 1)
		}
		for i := 0; i < sn; i++ {
			data[2*i] = tmp[i]
		}
		return
	}

	if n == 1 {
		data[0] >>= 1
		return
	}
	sn := n >> 1
	dn := n - sn

	// Un-update: s[i] -= (d[i] + d[i+1] + 2) >> 2.
	for i := 0; i < sn; i++ {
		dCur := data[sn+i]
		dNext := dCur
		if i+1 < dn {
			dNext = data[sn+i+1]
		}
		tmp[i] = data[i] - ((dCur + dNext + 2) >> 2)
	}

	// Un-predict: d[0] += s[0]; d[i] += (s[i-1] + s[i]) >> 1.
	data[0] = data[sn] + tmp[0]
	for i := 1; i < dn; i++ {
		sPrev := tmp[i-1]
		sCur := sPrev
		if i < sn {
			sCur = tmp[i]
		}
		data[2*i] = data[sn+i] + ((sPrev + sCur) >> 1)
	}
	for i := 0; i < sn; i++ {
		data[2*i+1] = tmp[i]
	}
}
