package colorspace

import (
	"math/rand"
	"testing"
)

func TestRCTRoundTripExhaustive(t *testing.T) {
	// Sweep a dense grid of 24-bit RGB values; RCT must be exact.
	for r := int32(0); r < 256; r += 5 {
		for g := int32(0); g < 256; g += 5 {
			for b := int32(0); b < 256; b += 5 {
				c0 := []int32{r}
				c1 := []int32{g}
				c2 := []int32{b}
				ForwardRCT(c0, c1, c2)
				InverseRCT(c0, c1, c2)
				if c0[0] != r || c1[0] != g || c2[0] != b {
					t.Fatalf("RCT(%d,%d,%d) round trip gave (%d,%d,%d)", r, g, b, c0[0], c1[0], c2[0])
				}
			}
		}
	}
}

func TestRCTRoundTripSigned(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	n := 4096
	r := make([]int32, n)
	g := make([]int32, n)
	b := make([]int32, n)
	for i := 0; i < n; i++ {
		r[i] = int32(rng.Intn(65536) - 32768)
		g[i] = int32(rng.Intn(65536) - 32768)
		b[i] = int32(rng.Intn(65536) - 32768)
	}
	wr := append([]int32(nil), r...)
	wg := append([]int32(nil), g...)
	wb := append([]int32(nil), b...)
	ForwardRCT(wr, wg, wb)
	InverseRCT(wr, wg, wb)
	for i := 0; i < n; i++ {
		if wr[i] != r[i] || wg[i] != g[i] || wb[i] != b[i] {
			t.Fatalf("sample %d not recovered", i)
		}
	}
}

func TestICTRoundTripWithinOneLSB(t *testing.T) {
	// Level-shifted 8-bit range.
	for r := int32(-128); r < 128; r += 3 {
		for g := int32(-128); g < 128; g += 3 {
			for b := int32(-128); b < 128; b += 3 {
				c0 := []int32{r}
				c1 := []int32{g}
				c2 := []int32{b}
				ForwardICT(c0, c1, c2)
				InverseICT(c0, c1, c2)
				if d := absDiff(c0[0], r); d > 1 {
					t.Fatalf("ICT R(%d,%d,%d): error %d", r, g, b, d)
				}
				if d := absDiff(c1[0], g); d > 1 {
					t.Fatalf("ICT G(%d,%d,%d): error %d", r, g, b, d)
				}
				if d := absDiff(c2[0], b); d > 1 {
					t.Fatalf("ICT B(%d,%d,%d): error %d", r, g, b, d)
				}
			}
		}
	}
}

func TestICTFloatRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	n := 1024
	r := make([]float64, n)
	g := make([]float64, n)
	b := make([]float64, n)
	for i := 0; i < n; i++ {
		r[i] = rng.Float64()*256 - 128
		g[i] = rng.Float64()*256 - 128
		b[i] = rng.Float64()*256 - 128
	}
	wr := append([]float64(nil), r...)
	wg := append([]float64(nil), g...)
	wb := append([]float64(nil), b...)
	ForwardICTFloat(wr, wg, wb)
	InverseICTFloat(wr, wg, wb)
	for i := 0; i < n; i++ {
		if d := wr[i] - r[i]; d > 0.01 || d < -0.01 {
			t.Fatalf("float ICT sample %d: error %g", i, d)
		}
	}
}

func TestMatrixIdentity(t *testing.T) {
	m, err := NewMatrix(3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	if err != nil {
		t.Fatal(err)
	}
	planes := [][]int32{{1, 2}, {3, 4}, {5, 6}}
	if err := m.Forward(planes); err != nil {
		t.Fatal(err)
	}
	if planes[0][0] != 1 || planes[2][1] != 6 {
		t.Fatalf("identity transform altered samples: %v", planes)
	}
}

func TestMatrixForwardInverse(t *testing.T) {
	m, err := NewMatrix(3, []float64{
		0.5, 0.25, 0.25,
		-0.5, 0.5, 0,
		0, -0.5, 0.5,
	})
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(4))
	n := 512
	planes := make([][]int32, 3)
	orig := make([][]int32, 3)
	for c := range planes {
		planes[c] = make([]int32, n)
		for i := range planes[c] {
			planes[c][i] = int32(rng.Intn(512) - 256)
		}
		orig[c] = append([]int32(nil), planes[c]...)
	}
	if err := m.Forward(planes); err != nil {
		t.Fatal(err)
	}
	if err := m.Inverse(planes); err != nil {
		t.Fatal(err)
	}
	// Forward rounds every output to an integer (error ≤ 0.5 each). The
	// inverse rows are (1,-1,-0.5), (1,1,-0.5) and (1,1,1.5), so after the
	// final rounding components 0 and 1 stay within 1 and component 2
	// within 2.
	for c := range planes {
		tol := int32(1)
		if c == 2 {
			tol = 2
		}
		for i := range planes[c] {
			if d := absDiff(planes[c][i], orig[c][i]); d > tol {
				t.Fatalf("component %d sample %d: error %d", c, i, d)
			}
		}
	}
}

func TestMatrixRejectsSingular(t *testing.T) {
	if _, err := NewMatrix(2, []float64{1, 2, 2, 4}); err == nil {
		t.Fatal("expected error for singular matrix")
	}
}

func absDiff(a, b int32) int32 {
	if a > b {
		return a - b
	}
	return b - a
}
