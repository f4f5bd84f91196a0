package jpeg2000

import (
	"math"
	"math/rand"
	"testing"
)

func psnr(want, got []int32, peak float64) float64 {
	var sum float64
	for i := range want {
		d := float64(want[i] - got[i])
		sum += d * d
	}
	if sum == 0 {
		return math.Inf(1)
	}
	mse := sum / float64(len(want))
	return 10 * math.Log10(peak*peak/mse)
}

// S2 shape: solid red RGB through the 9/7 pipeline with rate-capped
// layers decodes to the original within one level.
func TestLossySolidColor(t *testing.T) {
	const n = 256
	img := NewImage(n, n, 3, 8, false)
	for i := 0; i < n*n; i++ {
		img.Components[0].Data[i] = 255
		img.Components[1].Data[i] = 0
		img.Components[2].Data[i] = 0
	}

	p := DefaultEncodeParams()
	p.Irreversible = true
	p.MCT = MCTEnabled
	p.NumResolutions = 6
	p.NumLayers = 3
	p.Rates = []float64{0.5, 1.0, 2.0}

	out := encodeDecode(t, p, img)
	for c := 0; c < 3; c++ {
		want := img.Components[c].Data[0]
		for i, v := range out.Components[c].Data {
			if d := v - want; d > 1 || d < -1 {
				t.Fatalf("component %d sample %d: got %d want %d±1", c, i, v, want)
			}
		}
	}
}

func TestLossyUncappedQuality(t *testing.T) {
	rng := rand.New(rand.NewSource(41))
	const n = 128
	img := NewImage(n, n, 1, 8, false)
	// A smooth field plus mild noise; the 9/7 uncapped path should land
	// well above 38 dB.
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			img.Components[0].Data[y*n+x] = int32((x+y)/2) + rng.Int31n(8)
		}
	}

	p := DefaultEncodeParams()
	p.Irreversible = true
	p.NumResolutions = 5

	out := encodeDecode(t, p, img)
	if got := psnr(img.Components[0].Data, out.Components[0].Data, 255); got < 35 {
		t.Fatalf("uncapped 9/7 PSNR %.2f dB, expected ≥ 35", got)
	}
}

func TestLossyRateCapRespected(t *testing.T) {
	rng := rand.New(rand.NewSource(43))
	const n = 256
	img := randomImage(rng, n, n, 1, 8, false)

	p := DefaultEncodeParams()
	p.Irreversible = true
	p.NumResolutions = 5
	p.NumLayers = 1
	p.Rates = []float64{1.0} // 1 bpp on noise demands real truncation

	enc, err := NewEncoder(p, img)
	if err != nil {
		t.Fatal(err)
	}
	stream, err := enc.Encode()
	if err != nil {
		t.Fatal(err)
	}
	budget := n * n / 8 // 1 bpp in bytes
	// Allow the header slack the allocator charges as overhead.
	if len(stream) > budget+1024 {
		t.Fatalf("stream is %d bytes for a %d-byte budget", len(stream), budget)
	}

	dec := NewDecoder(nil)
	if _, err := dec.Decode(stream); err != nil {
		t.Fatal(err)
	}
}

func TestLossyFixedQualityThreeLayers(t *testing.T) {
	const n = 128
	img := NewImage(n, n, 1, 8, false)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			img.Components[0].Data[y*n+x] = int32((x * y) % 251)
		}
	}

	p := DefaultEncodeParams()
	p.Irreversible = true
	p.NumResolutions = 5
	p.NumLayers = 3
	p.Distoratio = []float64{20, 30, 40}

	enc, err := NewEncoder(p, img)
	if err != nil {
		t.Fatal(err)
	}
	stream, err := enc.Encode()
	if err != nil {
		t.Fatal(err)
	}

	dec := NewDecoder(nil)
	out, err := dec.Decode(stream)
	if err != nil {
		t.Fatal(err)
	}
	// The full three-layer stream must reach the last target minus half a
	// dB.
	if got := psnr(img.Components[0].Data, out.Components[0].Data, 255); got < 39.5 {
		t.Fatalf("three-layer fixed-quality PSNR %.2f dB too low", got)
	}
}

func TestLossyMultiLayerDecodes(t *testing.T) {
	rng := rand.New(rand.NewSource(47))
	img := randomImage(rng, 128, 128, 1, 8, false)

	p := DefaultEncodeParams()
	p.Irreversible = true
	p.NumResolutions = 4
	p.NumLayers = 3
	p.Rates = []float64{0.25, 1.0, 4.0}

	enc, err := NewEncoder(p, img)
	if err != nil {
		t.Fatal(err)
	}
	stream, err := enc.Encode()
	if err != nil {
		t.Fatal(err)
	}
	// A three-layer stream must decode; layered truncation behavior is
	// covered at the t2 level.
	dec := NewDecoder(nil)
	out, err := dec.Decode(stream)
	if err != nil {
		t.Fatal(err)
	}
	if got := psnr(img.Components[0].Data, out.Components[0].Data, 255); got < 20 {
		t.Fatalf("full multi-layer PSNR %.2f dB too low", got)
	}
}

func TestRateControlInfeasibleReported(t *testing.T) {
	rng := rand.New(rand.NewSource(51))
	img := randomImage(rng, 64, 64, 1, 8, false)

	p := DefaultEncodeParams()
	p.Irreversible = true
	p.NumResolutions = 3
	p.NumLayers = 1
	p.Rates = []float64{0.0001} // absurdly small

	enc, err := NewEncoder(p, img)
	if err != nil {
		t.Fatal(err)
	}
	stream, err := enc.Encode()
	if err != nil {
		t.Fatal(err)
	}
	// Best-effort stream still decodes even when the target was missed.
	dec := NewDecoder(nil)
	if _, err := dec.Decode(stream); err != nil {
		t.Fatal(err)
	}
}

func TestSimpleAllocatorRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(53))
	img := randomImage(rng, 96, 96, 1, 8, false)

	p := DefaultEncodeParams()
	p.Irreversible = true
	p.NumResolutions = 4
	p.NumLayers = 2
	p.Rates = []float64{0.5, 2.0}
	p.RateControl = RateControlSimple

	enc, err := NewEncoder(p, img)
	if err != nil {
		t.Fatal(err)
	}
	stream, err := enc.Encode()
	if err != nil {
		t.Fatal(err)
	}
	dec := NewDecoder(nil)
	if _, err := dec.Decode(stream); err != nil {
		t.Fatal(err)
	}
}
