package t1

import (
	"math/rand"
	"testing"
)

// segmentize slices the encoder output at terminated-pass boundaries the
// way Tier-2 reassembles it for the decoder.
func segmentize(data []byte, passes []Pass) []SegmentData {
	var segs []SegmentData
	start := 0
	count := 0
	for i, p := range passes {
		count++
		if p.Term || i == len(passes)-1 {
			segs = append(segs, SegmentData{Data: data[start:p.Rate], NumPasses: count})
			start = p.Rate
			count = 0
		}
	}
	return segs
}

func roundTrip(t *testing.T, samples []int32, w, h, orient int, style uint8) {
	t.Helper()

	enc := NewEncoder()
	data, passes, numbps, err := enc.Encode(samples, w, h, orient, style, 1.0)
	if err != nil {
		t.Fatal(err)
	}

	for i := 1; i < len(passes); i++ {
		if passes[i].Rate < passes[i-1].Rate {
			t.Fatalf("pass %d rate %d < pass %d rate %d", i, passes[i].Rate, i-1, passes[i-1].Rate)
		}
		if passes[i].DistortionDec < passes[i-1].DistortionDec {
			t.Fatalf("pass %d distortion not monotone", i)
		}
	}

	dec := NewDecoder()
	out, warnings, err := dec.Decode(Block{
		Width: w, Height: h, Orient: orient,
		Numbps: numbps, Style: style,
		Segments: segmentize(data, passes),
	}, 64)
	if err != nil {
		t.Fatal(err)
	}
	for _, wmsg := range warnings {
		t.Errorf("unexpected warning: %s", wmsg)
	}

	for i, want := range samples {
		v := out[i]
		got := v
		if v < 0 {
			got = -(-v >> 1)
		} else {
			got = v >> 1
		}
		if got != want {
			t.Fatalf("w=%d h=%d style=%#x: sample %d = %d (doubled %d), want %d", w, h, style, i, got, v, want)
		}
	}
}

func randomBlock(rng *rand.Rand, w, h int, amplitude int32) []int32 {
	out := make([]int32, w*h)
	for i := range out {
		out[i] = rng.Int31n(2*amplitude+1) - amplitude
	}
	return out
}

func TestRoundTripBasic(t *testing.T) {
	rng := rand.New(rand.NewSource(101))
	for _, sz := range []struct{ w, h int }{{4, 4}, {5, 5}, {5, 4}, {4, 5}, {1, 1}, {3, 7}, {32, 32}, {64, 64}, {33, 17}} {
		for orient := 0; orient < 4; orient++ {
			roundTrip(t, randomBlock(rng, sz.w, sz.h, 255), sz.w, sz.h, orient, 0)
		}
	}
}

func TestRoundTripAllZero(t *testing.T) {
	enc := NewEncoder()
	data, passes, numbps, err := enc.Encode(make([]int32, 16*16), 16, 16, 0, 0, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	if numbps != 0 || len(passes) != 0 || len(data) != 0 {
		t.Fatalf("all-zero block should produce nothing, got numbps=%d passes=%d len=%d", numbps, len(passes), len(data))
	}
}

func TestRoundTripModeSwitches(t *testing.T) {
	rng := rand.New(rand.NewSource(55))
	styles := []uint8{
		StyleLazy,
		StyleTermAll,
		StyleReset,
		StyleVSC,
		StyleSegsym,
		StyleTermAll | StyleReset,
		StyleLazy | StyleTermAll,
		StyleVSC | StyleTermAll,
		StyleLazy | StylePterm,
		StyleLazy | StyleReset | StyleTermAll | StyleVSC | StyleSegsym | StylePterm,
	}
	for _, style := range styles {
		for _, sz := range []struct{ w, h int }{{8, 8}, {16, 16}, {13, 9}, {32, 32}} {
			roundTrip(t, randomBlock(rng, sz.w, sz.h, 4095), sz.w, sz.h, rng.Intn(4), style)
		}
	}
}

func TestRoundTripWideDynamicRange(t *testing.T) {
	rng := rand.New(rand.NewSource(77))
	samples := randomBlock(rng, 16, 16, 1<<20)
	roundTrip(t, samples, 16, 16, 3, 0)
	roundTrip(t, samples, 16, 16, 3, StyleLazy)
}

func TestRoundTripSparse(t *testing.T) {
	samples := make([]int32, 32*32)
	samples[0] = 1
	samples[31] = -1
	samples[32*32-1] = 1023
	samples[517] = -512
	roundTrip(t, samples, 32, 32, 0, 0)
	roundTrip(t, samples, 32, 32, 0, StyleSegsym)
}

func TestTruncatedDecodeApproximates(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	samples := randomBlock(rng, 16, 16, 4095)

	enc := NewEncoder()
	data, passes, numbps, err := enc.Encode(samples, 16, 16, 0, 0, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	if len(passes) < 4 {
		t.Skip("not enough passes to truncate")
	}

	// Keep only the first half of the passes; the reconstruction must
	// stay within the magnitude of the dropped planes.
	keep := len(passes) / 2
	segs := []SegmentData{{Data: data[:passes[keep-1].Rate], NumPasses: keep}}

	dec := NewDecoder()
	out, _, err := dec.Decode(Block{
		Width: 16, Height: 16, Numbps: numbps, Segments: segs,
	}, 64)
	if err != nil {
		t.Fatal(err)
	}

	// keep passes span the top ceil((keep+2)/3) planes; the residual
	// error is bounded by the first undecoded plane.
	planesDone := (keep + 2) / 3
	bound := int32(2) << uint(numbps-planesDone)
	for i, want := range samples {
		got := out[i] / 2
		diff := got - want
		if diff < 0 {
			diff = -diff
		}
		if diff > bound {
			t.Fatalf("sample %d: got %d want %d, error %d exceeds bound %d", i, got, want, diff, bound)
		}
	}
}

func TestDecodeRejectsAbsurdBitplanes(t *testing.T) {
	dec := NewDecoder()
	_, _, err := dec.Decode(Block{Width: 4, Height: 4, Numbps: 90}, 57)
	if err == nil {
		t.Fatal("expected BIBO sanity failure")
	}
}

func TestDistortionDecreasesWithMorePasses(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	samples := randomBlock(rng, 32, 32, 2047)
	enc := NewEncoder()
	_, passes, _, err := enc.Encode(samples, 32, 32, 0, 0, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	if len(passes) == 0 {
		t.Fatal("expected passes")
	}
	if passes[len(passes)-1].DistortionDec <= 0 {
		t.Fatal("total distortion decrement should be positive")
	}
}
