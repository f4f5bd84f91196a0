// Package colorspace implements the multi-component transforms of
// ISO/IEC 15444-1:2019 Annex G: the reversible color transform (RCT),
// the irreversible color transform (ICT), and arbitrary matrix
// transforms on N components.
package colorspace

// ForwardRCT applies the reversible color transform in place on three
// equally sized component planes.
//
//	Y = (R + 2G + B) >> 2,  U = B − G,  V = R − G
func ForwardRCT(c0, c1, c2 []int32) {
	for i := range c0 {
		r, g, b := c0[i], c1[i], c2[i]
		c0[i] = (r + 2*g + b) >> 2
		c1[i] = b - g
		c2[i] = r - g
	}
}

// InverseRCT reverses ForwardRCT exactly.
//
//	G = Y − (U + V) >> 2,  R = V + G,  B = U + G
func InverseRCT(c0, c1, c2 []int32) {
	for i := range c0 {
		y, u, v := c0[i], c1[i], c2[i]
		g := y - ((u + v) >> 2)
		c0[i] = v + g
		c1[i] = g
		c2[i] = u + g
	}
}

// ForwardRCTRange applies ForwardRCT to the sample run [lo, hi); the MCT
// stage chunks component planes across workers with it.
func ForwardRCTRange(c0, c1, c2 []int32, lo, hi int) {
	ForwardRCT(c0[lo:hi], c1[lo:hi], c2[lo:hi])
}

// InverseRCTRange applies InverseRCT to the sample run [lo, hi).
func InverseRCTRange(c0, c1, c2 []int32, lo, hi int) {
	InverseRCT(c0[lo:hi], c1[lo:hi], c2[lo:hi])
}
