package jpeg2000

import (
	"math/rand"
	"testing"
)

// S5 shape: decoding with a window matches sampling the same region
// from a full decode, bit for bit on the reversible path.
func TestWindowedDecodeEquivalence(t *testing.T) {
	rng := rand.New(rand.NewSource(61))
	const n = 512
	img := randomImage(rng, n, n, 1, 8, false)

	p := DefaultEncodeParams()
	p.NumResolutions = 6
	enc, err := NewEncoder(p, img)
	if err != nil {
		t.Fatal(err)
	}
	stream, err := enc.Encode()
	if err != nil {
		t.Fatal(err)
	}

	full := NewDecoder(nil)
	fullImg, err := full.Decode(stream)
	if err != nil {
		t.Fatal(err)
	}

	win := Rect{X0: 128, Y0: 128, X1: 256, Y1: 256}
	windowed := NewDecoder(nil)
	windowed.SetWindow(win)
	winImg, err := windowed.Decode(stream)
	if err != nil {
		t.Fatal(err)
	}

	for y := win.Y0; y < win.Y1; y++ {
		for x := win.X0; x < win.X1; x++ {
			want := fullImg.Components[0].Data[y*n+x]
			got := winImg.Components[0].Data[y*n+x]
			if want != got {
				t.Fatalf("window sample (%d,%d): got %d want %d", x, y, got, want)
			}
		}
	}
	// And the full decode itself is exact.
	if fullImg.Components[0].Data[0] != img.Components[0].Data[0] {
		t.Fatal("full decode drifted from source")
	}
}

func TestWindowedDecodeWithPrecinctsAndPLT(t *testing.T) {
	rng := rand.New(rand.NewSource(63))
	const n = 256
	img := randomImage(rng, n, n, 1, 8, false)

	p := DefaultEncodeParams()
	p.NumResolutions = 4
	p.PrecinctW = []int{6, 6, 6, 6}
	p.PrecinctH = []int{6, 6, 6, 6}
	p.CblkW, p.CblkH = 4, 4
	p.WritePLT = true

	enc, err := NewEncoder(p, img)
	if err != nil {
		t.Fatal(err)
	}
	stream, err := enc.Encode()
	if err != nil {
		t.Fatal(err)
	}

	win := Rect{X0: 64, Y0: 64, X1: 128, Y1: 128}
	windowed := NewDecoder(nil)
	windowed.SetWindow(win)
	winImg, err := windowed.Decode(stream)
	if err != nil {
		t.Fatal(err)
	}

	for y := win.Y0; y < win.Y1; y++ {
		for x := win.X0; x < win.X1; x++ {
			want := img.Components[0].Data[y*n+x]
			got := winImg.Components[0].Data[y*n+x]
			if want != got {
				t.Fatalf("window sample (%d,%d): got %d want %d", x, y, got, want)
			}
		}
	}
}

func TestWindowAcrossTiles(t *testing.T) {
	rng := rand.New(rand.NewSource(65))
	const n = 160
	img := randomImage(rng, n, n, 1, 8, false)

	p := DefaultEncodeParams()
	p.NumResolutions = 3
	p.TileWidth, p.TileHeight = 64, 64

	enc, err := NewEncoder(p, img)
	if err != nil {
		t.Fatal(err)
	}
	stream, err := enc.Encode()
	if err != nil {
		t.Fatal(err)
	}

	// The window straddles four tiles.
	win := Rect{X0: 48, Y0: 48, X1: 90, Y1: 90}
	dec := NewDecoder(nil)
	dec.SetWindow(win)
	out, err := dec.Decode(stream)
	if err != nil {
		t.Fatal(err)
	}
	for y := win.Y0; y < win.Y1; y++ {
		for x := win.X0; x < win.X1; x++ {
			want := img.Components[0].Data[y*n+x]
			got := out.Components[0].Data[y*n+x]
			if want != got {
				t.Fatalf("sample (%d,%d): got %d want %d", x, y, got, want)
			}
		}
	}
}

// Geometry invariant: band bounds follow the standard ceildivpow2
// mapping from the tile-component bounds.
func TestBandBoundsIdentity(t *testing.T) {
	tcRect := Rect{X0: 13, Y0: 7, X1: 200, Y1: 151}
	tcp := tileCodingParams{numResolutions: 4, cblkW: 6, cblkH: 6, guardBits: 2}
	tc, err := newTileComponent(tcRect, 8, false, 0, tcp)
	if err != nil {
		t.Fatal(err)
	}
	for r, res := range tc.Resolutions {
		if r == 0 {
			band := res.Bands[0]
			want := ceilDivPow2Rect(tcRect, 3)
			if band.Rect != want {
				t.Fatalf("LL band %+v want %+v", band.Rect, want)
			}
			continue
		}
		if len(res.Bands) != 3 {
			t.Fatalf("resolution %d has %d bands", r, len(res.Bands))
		}
		nb := 4 - r
		for _, band := range res.Bands {
			var xob, yob int
			switch band.Orient {
			case 1:
				xob = 1
			case 2:
				yob = 1
			case 3:
				xob, yob = 1, 1
			}
			want := bandRect(tcRect, nb, xob, yob)
			if band.Rect != want {
				t.Fatalf("res %d orient %d band %+v want %+v", r, band.Orient, band.Rect, want)
			}
		}
	}

	// Band extents must tile the Mallat layout exactly.
	for d := 1; d < 4; d++ {
		low := tc.levelW[d]
		high := tc.levelW[d-1] - tc.levelW[d]
		hl := bandRect(tcRect, d, 1, 0)
		if hl.Width() != high {
			t.Fatalf("level %d HL width %d, layout high half %d", d, hl.Width(), high)
		}
		ll := Rect{
			X0: ceilDivPow2(tcRect.X0, d), Y0: ceilDivPow2(tcRect.Y0, d),
			X1: ceilDivPow2(tcRect.X1, d), Y1: ceilDivPow2(tcRect.Y1, d),
		}
		if ll.Width() != low {
			t.Fatalf("level %d LL width %d, layout low half %d", d, ll.Width(), low)
		}
	}
}

func TestDCShiftRoundTrip(t *testing.T) {
	data := []int32{0, 1, 127, 128, 255}
	work := append([]int32(nil), data...)
	dcShiftForward(work, 8, false)
	dcShiftInverse(work, 8, false)
	for i := range data {
		if work[i] != data[i] {
			t.Fatalf("sample %d: got %d want %d", i, work[i], data[i])
		}
	}

	// Inverse clips out-of-range reconstructions.
	over := []int32{300}
	dcShiftInverse(over, 8, false)
	if over[0] != 255 {
		t.Fatalf("expected clip to 255, got %d", over[0])
	}
}

func TestStepSizeCodec(t *testing.T) {
	for _, step := range []float64{0.25, 0.5, 1.0, 1.5, 2.0, 7.3} {
		expn, mant := encodeStepSize(step, 10)
		got := decodeStepSize(expn, mant, 10)
		if rel := (got - step) / step; rel > 0.001 || rel < -0.001 {
			t.Fatalf("step %g decoded as %g", step, got)
		}
	}
}
