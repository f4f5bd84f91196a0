package jpeg2000

// DC level shift (Annex G.1): unsigned components are centered around
// zero before the wavelet transform and shifted back after synthesis,
// with clipping to the nominal range.

// dcShiftForward subtracts the mid-range offset of an unsigned
// component in place.
func dcShiftForward(data []int32, precision int, signed bool) {
	if signed {
		return
	}
	shift := int32(1) << uint(precision-1)
	for i := range data {
		data[i] -= shift
	}
}

// dcShiftInverse adds the offset back and clips to the representable
// range.
func dcShiftInverse(data []int32, precision int, signed bool) {
	var lo, hi, shift int32
	if signed {
		hi = 1<<uint(precision-1) - 1
		lo = -hi - 1
	} else {
		shift = int32(1) << uint(precision-1)
		hi = 1<<uint(precision) - 1
	}
	for i := range data {
		v := data[i] + shift
		if v < lo {
			v = lo
		} else if v > hi {
			v = hi
		}
		data[i] = v
	}
}
