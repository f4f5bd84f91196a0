package wavelet

import (
	"math"
	"math/rand"
	"testing"
)

func TestForwardInverse53LineAllParities(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for _, n := range []int{1, 2, 3, 4, 5, 7, 8, 15, 16, 17, 64, 255, 1024} {
		for _, even := range []bool{true, false} {
			orig := make([]int32, n)
			for i := range orig {
				orig[i] = int32(rng.Intn(65536) - 32768)
			}
			data := append([]int32(nil), orig...)

			Forward53Line(data, even)
			Inverse53Line(data, even)

			for i := range orig {
				if data[i] != orig[i] {
					t.Fatalf("n=%d even=%v: sample %d = %d, want %d", n, even, i, data[i], orig[i])
				}
			}
		}
	}
}

func TestForwardInverse53MultiLevel(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for _, size := range []struct{ w, h int }{{64, 64}, {65, 63}, {33, 47}, {128, 1}, {1, 128}} {
		for levels := 1; levels <= 8; levels++ {
			for _, origin := range []struct{ x, y int }{{0, 0}, {1, 0}, {0, 1}, {3, 5}} {
				n := size.w * size.h
				orig := make([]int32, n)
				for i := range orig {
					orig[i] = int32(rng.Intn(4096) - 2048)
				}
				data := append([]int32(nil), orig...)

				Forward53(data, size.w, size.h, size.w, levels, origin.x, origin.y)
				Inverse53(data, size.w, size.h, size.w, levels, origin.x, origin.y)

				for i := range orig {
					if data[i] != orig[i] {
						t.Fatalf("%dx%d levels=%d origin=%v: sample %d = %d, want %d",
							size.w, size.h, levels, origin, i, data[i], orig[i])
					}
				}
			}
		}
	}
}

func TestForwardInverse97Precision(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	for _, n := range []int{2, 3, 16, 17, 256, 1023} {
		for _, even := range []bool{true, false} {
			orig := make([]float64, n)
			for i := range orig {
				orig[i] = rng.Float64()*512 - 256
			}
			data := append([]float64(nil), orig...)

			Forward97Line(data, even)
			Inverse97Line(data, even)

			for i := range orig {
				if math.Abs(data[i]-orig[i]) > 1e-9 {
					t.Fatalf("n=%d even=%v: sample %d = %g, want %g", n, even, i, data[i], orig[i])
				}
			}
		}
	}
}

func TestForwardInverse97MultiLevelRMS(t *testing.T) {
	const w, h, levels = 96, 96, 5
	rng := rand.New(rand.NewSource(9))
	orig := make([]float64, w*h)
	for i := range orig {
		orig[i] = rng.Float64()*255 - 128
	}
	data := append([]float64(nil), orig...)

	Forward97(data, w, h, w, levels, 0, 0)
	Inverse97(data, w, h, w, levels, 0, 0)

	var sum float64
	for i := range orig {
		d := data[i] - orig[i]
		sum += d * d
	}
	rms := math.Sqrt(sum / float64(len(orig)))
	if rms > math.Pow(2, -10) {
		t.Fatalf("RMS error %g exceeds 2^-10", rms)
	}
}

func TestWindowedInverse53MatchesFull(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	for _, n := range []int{32, 33, 100} {
		for _, par := range []int{0, 1} {
			orig := make([]int32, n)
			for i := range orig {
				orig[i] = int32(rng.Intn(2048) - 1024)
			}
			full := append([]int32(nil), orig...)
			Forward53Line(full, par == 0)

			windowed := append([]int32(nil), full...)
			reference := append([]int32(nil), full...)
			Inverse53Line(reference, par == 0)

			out := Range{Lo: n / 4, Hi: n / 4 * 3}
			scratch := make([]int32, 2*n)
			Inverse53LineWindow(windowed, par, out, scratch)

			for i := out.Lo; i < out.Hi; i++ {
				if windowed[i] != reference[i] {
					t.Fatalf("n=%d par=%d: window sample %d = %d, want %d", n, par, i, windowed[i], reference[i])
				}
			}
		}
	}
}

func TestLowpassSize(t *testing.T) {
	cases := []struct {
		w, h, levels, x0, y0 int
		wantW, wantH         int
	}{
		{64, 64, 1, 0, 0, 32, 32},
		{64, 64, 3, 0, 0, 8, 8},
		{65, 65, 1, 0, 0, 33, 33},
		{65, 65, 1, 1, 1, 32, 32},
		{1, 1, 5, 0, 0, 1, 1},
	}
	for _, tc := range cases {
		w, h := LowpassSize(tc.w, tc.h, tc.levels, tc.x0, tc.y0)
		if w != tc.wantW || h != tc.wantH {
			t.Errorf("LowpassSize(%d,%d,%d,%d,%d) = %d,%d want %d,%d",
				tc.w, tc.h, tc.levels, tc.x0, tc.y0, w, h, tc.wantW, tc.wantH)
		}
	}
}
