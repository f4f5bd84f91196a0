// Package t1 implements the EBCOT Tier-1 block coder of ISO/IEC
// 15444-1:2019 Annex D: three coding passes per bit plane driving the MQ
// coder, with the raw bypass coder in the lazy region.
package t1

// Context indices. The MQ coder keeps one adaptive state per context:
// nine zero-coding, five sign-coding, three magnitude-refinement, one
// run-length aggregation and one uniform context.
const (
	ctxZC  = 0 // 0..8
	ctxSC  = 9 // 9..13
	ctxMag = 14
	ctxAgg = 17
	ctxUni = 18

	NumContexts = 19
)

// Code-block style bits (Table A.18).
const (
	StyleLazy    = 0x01
	StyleReset   = 0x02
	StyleTermAll = 0x04
	StyleVSC     = 0x08
	StylePterm   = 0x10
	StyleSegsym  = 0x20
)

// Band orientations as used for zero-coding context selection.
const (
	OrientLL = 0
	OrientHL = 1
	OrientLH = 2
	OrientHH = 3
)

// Per-sample state flags. The flags array is padded by one cell on every
// side so neighbor updates need no bounds checks.
const (
	flagSig    uint32 = 1 << 0 // sample is significant
	flagRefine uint32 = 1 << 1 // sample has been refined at least once
	flagVisit  uint32 = 1 << 2 // sample coded in the current plane

	flagSigN  uint32 = 1 << 4
	flagSigS  uint32 = 1 << 5
	flagSigW  uint32 = 1 << 6
	flagSigE  uint32 = 1 << 7
	flagSigNW uint32 = 1 << 8
	flagSigNE uint32 = 1 << 9
	flagSigSW uint32 = 1 << 10
	flagSigSE uint32 = 1 << 11

	flagSign  uint32 = 1 << 12
	flagSignN uint32 = 1 << 13
	flagSignS uint32 = 1 << 14
	flagSignW uint32 = 1 << 15
	flagSignE uint32 = 1 << 16

	flagSigNeighbors = flagSigN | flagSigS | flagSigW | flagSigE |
		flagSigNW | flagSigNE | flagSigSW | flagSigSE

	// vscMask removes everything the vertically-stripe-causal mode must
	// not see across the stripe boundary below.
	vscMask = ^(flagSigS | flagSigSW | flagSigSE | flagSignS)
)

// zeroCodingContext selects the zero-coding context 0..8 from the
// neighbor significance pattern (Table D.1). HL swaps the roles of the
// horizontal and vertical counts; HH keys on the diagonal count.
func zeroCodingContext(flags uint32, orient int) int {
	h := bit(flags&flagSigW) + bit(flags&flagSigE)
	v := bit(flags&flagSigN) + bit(flags&flagSigS)
	d := bit(flags&flagSigNW) + bit(flags&flagSigNE) + bit(flags&flagSigSW) + bit(flags&flagSigSE)

	switch orient {
	case OrientHL:
		h, v = v, h
	case OrientHH:
		hv := h + v
		switch {
		case d >= 3:
			return ctxZC + 8
		case d == 2 && hv >= 1:
			return ctxZC + 7
		case d == 2:
			return ctxZC + 6
		case d == 1 && hv >= 2:
			return ctxZC + 5
		case d == 1 && hv == 1:
			return ctxZC + 4
		case d == 1:
			return ctxZC + 3
		case hv >= 2:
			return ctxZC + 2
		case hv == 1:
			return ctxZC + 1
		}
		return ctxZC
	}

	switch {
	case h == 2:
		return ctxZC + 8
	case h == 1 && v >= 1:
		return ctxZC + 7
	case h == 1 && d >= 1:
		return ctxZC + 6
	case h == 1:
		return ctxZC + 5
	case v == 2:
		return ctxZC + 4
	case v == 1:
		return ctxZC + 3
	case d >= 2:
		return ctxZC + 2
	case d == 1:
		return ctxZC + 1
	}
	return ctxZC
}

// signContext returns the sign-coding context 9..13 and the sign-flip
// bit from the neighbor sign contributions (Table D.2).
func signContext(flags uint32) (ctx, xorbit int) {
	hc := signContribution(flags, flagSigW, flagSignW) + signContribution(flags, flagSigE, flagSignE)
	vc := signContribution(flags, flagSigN, flagSignN) + signContribution(flags, flagSigS, flagSignS)
	hc = clampContribution(hc)
	vc = clampContribution(vc)

	if hc < 0 {
		hc, vc = -hc, -vc
		xorbit = 1
	}
	switch {
	case hc == 1 && vc == 1:
		ctx = ctxSC + 4
	case hc == 1 && vc == 0:
		ctx = ctxSC + 3
	case hc == 1 && vc == -1:
		ctx = ctxSC + 2
	case vc == 1:
		ctx = ctxSC + 1
	case vc == -1:
		ctx = ctxSC + 1
		xorbit = 1
	case vc == 0 && hc == 0:
		ctx = ctxSC
	}
	return ctx, xorbit
}

// signContribution maps one neighbor to +1 (significant positive), −1
// (significant negative) or 0 (insignificant).
func signContribution(flags, sig, sign uint32) int {
	if flags&sig == 0 {
		return 0
	}
	if flags&sign != 0 {
		return -1
	}
	return 1
}

func clampContribution(c int) int {
	if c > 1 {
		return 1
	}
	if c < -1 {
		return -1
	}
	return c
}

// magContext selects the magnitude-refinement context 14..16: first
// refinement without significant neighbors, first refinement with, and
// all later refinements.
func magContext(flags uint32) int {
	if flags&flagRefine != 0 {
		return ctxMag + 2
	}
	if flags&flagSigNeighbors != 0 {
		return ctxMag + 1
	}
	return ctxMag
}

func bit(v uint32) int {
	if v != 0 {
		return 1
	}
	return 0
}
