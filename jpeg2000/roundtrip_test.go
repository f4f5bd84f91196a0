package jpeg2000

import (
	"math/rand"
	"testing"

	"github.com/cocosip/go-j2k/jpeg2000/t1"
	"github.com/cocosip/go-j2k/jpeg2000/t2"
)

func randomImage(rng *rand.Rand, w, h, comps, precision int, signed bool) *Image {
	img := NewImage(w, h, comps, precision, signed)
	for c := range img.Components {
		data := img.Components[c].Data
		if signed {
			half := int32(1) << uint(precision-1)
			for i := range data {
				data[i] = rng.Int31n(2*half) - half
			}
		} else {
			limit := int32(1) << uint(precision)
			for i := range data {
				data[i] = rng.Int31n(limit)
			}
		}
	}
	return img
}

func encodeDecode(t *testing.T, p *EncodeParams, img *Image) *Image {
	t.Helper()
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
	if len(dec.FailedTiles) > 0 {
		t.Fatalf("failed tiles: %v", dec.FailedTiles)
	}
	return out
}

func assertExact(t *testing.T, want, got *Image) {
	t.Helper()
	for c := range want.Components {
		w := want.Components[c].Data
		g := got.Components[c].Data
		if len(w) != len(g) {
			t.Fatalf("component %d: %d samples decoded, want %d", c, len(g), len(w))
		}
		for i := range w {
			if w[i] != g[i] {
				t.Fatalf("component %d sample %d: got %d want %d", c, i, g[i], w[i])
			}
		}
	}
}

// S1: 64×64 unsigned 8-bit single channel, 5/3, 1 layer, 3 resolutions,
// 32×32 blocks — bit-exact recovery.
func TestLosslessRoundTripSmall(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	img := randomImage(rng, 64, 64, 1, 8, false)

	p := DefaultEncodeParams()
	p.NumResolutions = 3
	p.CblkW, p.CblkH = 5, 5

	assertExact(t, img, encodeDecode(t, p, img))
}

// S3: 256×256 16-bit ramp, 4 resolutions, VSC+TERMALL — exact recovery.
func TestLosslessRampVSCTermAll(t *testing.T) {
	img := NewImage(256, 256, 1, 16, false)
	data := img.Components[0].Data
	for y := 0; y < 256; y++ {
		for x := 0; x < 256; x++ {
			data[y*256+x] = int32(x + y)
		}
	}

	p := DefaultEncodeParams()
	p.NumResolutions = 4
	p.CblkStyle = t1.StyleVSC | t1.StyleTermAll

	assertExact(t, img, encodeDecode(t, p, img))
}

func TestLosslessRGBWithRCT(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	img := randomImage(rng, 96, 80, 3, 8, false)

	p := DefaultEncodeParams()
	p.NumResolutions = 4
	p.MCT = MCTEnabled

	assertExact(t, img, encodeDecode(t, p, img))
}

func TestLosslessSigned16(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	img := randomImage(rng, 50, 61, 2, 12, true)

	p := DefaultEncodeParams()
	p.NumResolutions = 3

	assertExact(t, img, encodeDecode(t, p, img))
}

func TestLosslessMultiTile(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	img := randomImage(rng, 150, 130, 1, 8, false)

	p := DefaultEncodeParams()
	p.NumResolutions = 3
	p.TileWidth, p.TileHeight = 64, 64

	assertExact(t, img, encodeDecode(t, p, img))
}

func TestLosslessOddDimensions(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	for _, sz := range []struct{ w, h int }{{1, 1}, {7, 3}, {33, 65}, {129, 31}} {
		img := randomImage(rng, sz.w, sz.h, 1, 8, false)
		p := DefaultEncodeParams()
		p.NumResolutions = 3
		assertExact(t, img, encodeDecode(t, p, img))
	}
}

func TestLosslessModeSwitches(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	styles := []uint8{
		t1.StyleLazy,
		t1.StyleReset,
		t1.StyleSegsym,
		t1.StyleLazy | t1.StylePterm,
		t1.StyleLazy | t1.StyleTermAll | t1.StyleVSC | t1.StyleSegsym,
	}
	for _, style := range styles {
		img := randomImage(rng, 70, 70, 1, 10, false)
		p := DefaultEncodeParams()
		p.NumResolutions = 3
		p.CblkStyle = style
		assertExact(t, img, encodeDecode(t, p, img))
	}
}

// Packet order must be identical on both sides under every progression.
func TestProgressionOrdersRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	for _, prog := range []t2.Progression{t2.LRCP, t2.RLCP, t2.RPCL, t2.PCRL, t2.CPRL} {
		img := randomImage(rng, 80, 64, 3, 8, false)
		p := DefaultEncodeParams()
		p.NumResolutions = 3
		p.NumLayers = 2
		p.Progression = prog
		p.MCT = MCTEnabled
		assertExact(t, img, encodeDecode(t, p, img))
	}
}

func TestPrecinctsAndMarkers(t *testing.T) {
	rng := rand.New(rand.NewSource(15))
	img := randomImage(rng, 128, 128, 1, 8, false)

	p := DefaultEncodeParams()
	p.NumResolutions = 4
	p.PrecinctW = []int{6, 6, 6, 6}
	p.PrecinctH = []int{6, 6, 6, 6}
	p.CblkW, p.CblkH = 4, 4
	p.EnableSOP = true
	p.EnableEPH = true

	assertExact(t, img, encodeDecode(t, p, img))
}

func TestWritePLTRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	img := randomImage(rng, 96, 96, 1, 8, false)

	p := DefaultEncodeParams()
	p.NumResolutions = 3
	p.WritePLT = true

	assertExact(t, img, encodeDecode(t, p, img))
}

func TestROIShiftLossless(t *testing.T) {
	rng := rand.New(rand.NewSource(19))
	img := randomImage(rng, 64, 64, 1, 8, false)

	p := DefaultEncodeParams()
	p.NumResolutions = 3
	p.ROIShift = 4

	assertExact(t, img, encodeDecode(t, p, img))
}

func TestPOCOverrideRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	img := randomImage(rng, 64, 64, 1, 8, false)

	p := DefaultEncodeParams()
	p.NumResolutions = 3
	p.NumLayers = 2
	p.POCs = []t2.POC{
		{Progression: t2.RLCP, ResStart: 0, ResEnd: 2, CompStart: 0, CompEnd: 1, LayerEnd: 2},
		{Progression: t2.LRCP, ResStart: 0, ResEnd: 3, CompStart: 0, CompEnd: 1, LayerEnd: 2},
	}

	assertExact(t, img, encodeDecode(t, p, img))
}

func TestRandomTileAccess(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	img := randomImage(rng, 128, 128, 1, 8, false)

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

	// Decode only tile 3 (bottom right); its quadrant must match.
	dec := NewDecoder(&DecodeOptions{TileCache: TileCacheAll})
	if _, err := dec.ReadHeader(stream); err != nil {
		t.Fatal(err)
	}
	if err := dec.DecodeTile(3); err != nil {
		t.Fatal(err)
	}
	out := dec.Image()
	for y := 64; y < 128; y++ {
		for x := 64; x < 128; x++ {
			want := img.Components[0].Data[y*128+x]
			got := out.Components[0].Data[y*128+x]
			if want != got {
				t.Fatalf("tile 3 sample (%d,%d): got %d want %d", x, y, got, want)
			}
		}
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	dec := NewDecoder(nil)
	if _, err := dec.Decode([]byte{1, 2, 3, 4}); err == nil {
		t.Fatal("expected error for garbage input")
	}
}

func TestPackUnpackSamples(t *testing.T) {
	vals := []int32{0, 1, -1, 127, -128, 255, 32767, -32768}
	for _, bp := range []int{1, 2, 4} {
		for _, signed := range []bool{false, true} {
			packed, err := PackSamples(vals, bp, signed)
			if err != nil {
				t.Fatal(err)
			}
			got, err := UnpackSamples(packed, bp, signed)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(vals) {
				t.Fatalf("bp=%d: length %d want %d", bp, len(got), len(vals))
			}
		}
	}

	// 4-byte packing is exact for the full int32 range.
	packed, _ := PackSamples(vals, 4, true)
	got, _ := UnpackSamples(packed, 4, true)
	for i := range vals {
		if got[i] != vals[i] {
			t.Fatalf("sample %d: got %d want %d", i, got[i], vals[i])
		}
	}
}

func TestTilePartGenerationAndTLM(t *testing.T) {
	rng := rand.New(rand.NewSource(27))
	img := randomImage(rng, 96, 96, 1, 8, false)

	p := DefaultEncodeParams()
	p.NumResolutions = 3
	p.NumLayers = 3
	p.EnableTilePartGeneration = true
	p.WriteTLM = true

	enc, err := NewEncoder(p, img)
	if err != nil {
		t.Fatal(err)
	}
	stream, err := enc.Encode()
	if err != nil {
		t.Fatal(err)
	}

	dec := NewDecoder(nil)
	info, err := dec.ReadHeader(stream)
	if err != nil {
		t.Fatal(err)
	}
	if info.NumLayers != 3 {
		t.Fatalf("layers %d want 3", info.NumLayers)
	}
	out, err := dec.Decode(stream)
	if err != nil {
		t.Fatal(err)
	}
	assertExact(t, img, out)
}

func TestCustomMCTMatrixRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(29))
	img := randomImage(rng, 64, 64, 3, 8, false)

	p := DefaultEncodeParams()
	p.NumResolutions = 3
	p.MCT = MCTCustom
	// Unit lower-triangular matrix: forward and inverse are exact in
	// integers, so the lossless path stays bit-exact end to end.
	p.CustomMCTMatrix = []float64{
		1, 0, 0,
		1, 1, 0,
		0, 0, 1,
	}

	assertExact(t, img, encodeDecode(t, p, img))
}
