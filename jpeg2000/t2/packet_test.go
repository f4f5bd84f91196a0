package t2

import (
	"bytes"
	"math/rand"
	"testing"
)

// buildEncodeBlock fabricates a block with the given per-layer pass
// splits; pass bytes are random and pass lengths sum to the data length.
func buildEncodeBlock(rng *rand.Rand, numbps int, layerPasses []int) *CodeBlock {
	cb := &CodeBlock{X0: 0, Y0: 0, X1: 8, Y1: 8, Numbps: numbps}
	total := 0
	for _, n := range layerPasses {
		total += n
	}
	rate := 0
	for i := 0; i < total; i++ {
		l := 1 + rng.Intn(9)
		rate += l
		cb.Passes = append(cb.Passes, Pass{Rate: rate, Len: l})
	}
	cb.Data = make([]byte, rate)
	for i := range cb.Data {
		cb.Data[i] = byte(rng.Intn(256))
	}
	start := 0
	passIdx := 0
	for _, n := range layerPasses {
		end := start
		for i := 0; i < n; i++ {
			end += cb.Passes[passIdx].Len
			passIdx++
		}
		cb.Layers = append(cb.Layers, Layer{
			NumPasses: n,
			Len:       end - start,
			Data:      cb.Data[start:end],
		})
		start = end
	}
	return cb
}

func testBands(blocks []*CodeBlock, cw, ch, numbps int) ([]BandView, []BandView) {
	enc := NewPrecinct(0, 0, 64, 64, cw, ch)
	dec := NewPrecinct(0, 0, 64, 64, cw, ch)
	for i, cb := range blocks {
		enc.Blocks[i] = cb
		dec.Blocks[i] = &CodeBlock{X0: cb.X0, Y0: cb.Y0, X1: cb.X1, Y1: cb.Y1}
	}
	return []BandView{{Numbps: numbps, Precinct: enc}},
		[]BandView{{Numbps: numbps, Precinct: dec}}
}

func TestPacketRoundTripSingleLayer(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	blocks := []*CodeBlock{
		buildEncodeBlock(rng, 5, []int{4}),
		buildEncodeBlock(rng, 3, []int{7}),
		buildEncodeBlock(rng, 6, []int{1}),
		buildEncodeBlock(rng, 2, []int{0}),
	}
	encBands, decBands := testBands(blocks, 2, 2, 7)

	pkt := EncodePacket(nil, encBands, 0, 0, PacketStyle{})

	res, err := DecodePacket(pkt, decBands, 0, 0, PacketStyle{})
	if err != nil {
		t.Fatal(err)
	}
	if res.BytesRead != len(pkt) {
		t.Fatalf("consumed %d of %d packet bytes", res.BytesRead, len(pkt))
	}

	for i, src := range blocks {
		dst := decBands[0].Precinct.Blocks[i]
		if src.Layers[0].NumPasses == 0 {
			if dst.TotalPasses != 0 {
				t.Fatalf("block %d: expected no contribution", i)
			}
			continue
		}
		if dst.TotalPasses != src.Layers[0].NumPasses {
			t.Fatalf("block %d: passes %d want %d", i, dst.TotalPasses, src.Layers[0].NumPasses)
		}
		if dst.Numbps != src.Numbps {
			t.Fatalf("block %d: numbps %d want %d", i, dst.Numbps, src.Numbps)
		}
		if !bytes.Equal(dst.Data, src.Layers[0].Data) {
			t.Fatalf("block %d: data mismatch", i)
		}
	}
}

func TestPacketRoundTripMultiLayer(t *testing.T) {
	rng := rand.New(rand.NewSource(33))
	for trial := 0; trial < 10; trial++ {
		numLayers := 2 + rng.Intn(3)
		var blocks []*CodeBlock
		for b := 0; b < 6; b++ {
			splits := make([]int, numLayers)
			for l := range splits {
				splits[l] = rng.Intn(4)
			}
			blocks = append(blocks, buildEncodeBlock(rng, 1+rng.Intn(8), splits))
		}
		encBands, decBands := testBands(blocks, 3, 2, 9)

		style := PacketStyle{SOP: trial%2 == 0, EPH: trial%3 == 0}
		var stream []byte
		var offsets []int
		for l := 0; l < numLayers; l++ {
			offsets = append(offsets, len(stream))
			stream = EncodePacket(stream, encBands, l, l, style)
		}

		pos := 0
		for l := 0; l < numLayers; l++ {
			if pos != offsets[l] {
				t.Fatalf("trial %d layer %d: reader at %d, writer wrote at %d", trial, l, pos, offsets[l])
			}
			res, err := DecodePacket(stream[pos:], decBands, l, l, style)
			if err != nil {
				t.Fatalf("trial %d layer %d: %v", trial, l, err)
			}
			pos += res.BytesRead
		}
		if pos != len(stream) {
			t.Fatalf("trial %d: consumed %d of %d", trial, pos, len(stream))
		}

		for i, src := range blocks {
			dst := decBands[0].Precinct.Blocks[i]
			want := 0
			var wantData []byte
			for _, lay := range src.Layers {
				want += lay.NumPasses
				wantData = append(wantData, lay.Data...)
			}
			if dst.TotalPasses != want {
				t.Fatalf("trial %d block %d: passes %d want %d", trial, i, dst.TotalPasses, want)
			}
			if !bytes.Equal(dst.Data, wantData) {
				t.Fatalf("trial %d block %d: reassembled data mismatch", trial, i)
			}
		}
	}
}

func TestPacketRoundTripTermAllSegments(t *testing.T) {
	rng := rand.New(rand.NewSource(44))
	cb := buildEncodeBlock(rng, 4, []int{5})
	for i := range cb.Passes {
		cb.Passes[i].Term = true
	}
	encBands, decBands := testBands([]*CodeBlock{cb}, 1, 1, 6)
	style := PacketStyle{CblkStyle: StyleTermAll}

	pkt := EncodePacket(nil, encBands, 0, 0, style)
	res, err := DecodePacket(pkt, decBands, 0, 0, style)
	if err != nil {
		t.Fatal(err)
	}
	if res.BytesRead != len(pkt) {
		t.Fatalf("consumed %d of %d", res.BytesRead, len(pkt))
	}

	dst := decBands[0].Precinct.Blocks[0]
	if dst.NumSegments != 5 {
		t.Fatalf("segments %d, want one per terminated pass (5)", dst.NumSegments)
	}
	sum := 0
	for i := 0; i < dst.NumSegments; i++ {
		sum += dst.Segments[i].Len
		if dst.Segments[i].Len != cb.Passes[i].Len {
			t.Fatalf("segment %d len %d want %d", i, dst.Segments[i].Len, cb.Passes[i].Len)
		}
	}
	if sum != len(dst.Data) {
		t.Fatalf("segment lengths sum %d != data length %d", sum, len(dst.Data))
	}
}

func TestEmptyPacket(t *testing.T) {
	cb := &CodeBlock{X1: 4, Y1: 4, Numbps: 0}
	cb.Layers = []Layer{{}}
	encBands, decBands := testBands([]*CodeBlock{cb}, 1, 1, 4)

	pkt := EncodePacket(nil, encBands, 0, 0, PacketStyle{})
	res, err := DecodePacket(pkt, decBands, 0, 0, PacketStyle{})
	if err != nil {
		t.Fatal(err)
	}
	if res.BytesRead != len(pkt) {
		t.Fatalf("consumed %d of %d", res.BytesRead, len(pkt))
	}
	if decBands[0].Precinct.Blocks[0].TotalPasses != 0 {
		t.Fatal("no passes expected")
	}
}

func TestPacketTruncatedBodyFails(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	cb := buildEncodeBlock(rng, 4, []int{6})
	encBands, decBands := testBands([]*CodeBlock{cb}, 1, 1, 5)

	pkt := EncodePacket(nil, encBands, 0, 0, PacketStyle{})
	if len(pkt) < 4 {
		t.Skip("packet unexpectedly small")
	}
	_, err := DecodePacket(pkt[:len(pkt)-3], decBands, 0, 0, PacketStyle{})
	if err == nil {
		t.Fatal("expected corrupt-packet error for truncated body")
	}
}

func TestNumPassesCodeRoundTrip(t *testing.T) {
	for n := 1; n <= 164; n++ {
		w := newBitWriter()
		putNumPasses(w, n)
		r := newBitReader(w.Flush())
		got, err := getNumPasses(r)
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if got != n {
			t.Fatalf("n=%d decoded as %d", n, got)
		}
	}
}

func TestBitIOStuffing(t *testing.T) {
	// 16 one-bits force an 0xFF byte; the writer must leave only seven
	// payload bits in the byte that follows.
	w := newBitWriter()
	for i := 0; i < 32; i++ {
		w.WriteBit(1)
	}
	data := w.Flush()
	for i := 0; i+1 < len(data); i++ {
		if data[i] == 0xFF && data[i+1]&0x80 != 0 {
			t.Fatalf("stuffing violated at byte %d", i)
		}
	}

	r := newBitReader(data)
	for i := 0; i < 32; i++ {
		bit, err := r.ReadBit()
		if err != nil {
			t.Fatal(err)
		}
		if bit != 1 {
			t.Fatalf("bit %d: got %d want 1", i, bit)
		}
	}
}

func TestPLTRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	lengths := make([]int, 5000)
	var pl PacketLengths
	for i := range lengths {
		lengths[i] = rng.Intn(1 << 20)
		pl.Add(lengths[i])
	}
	payloads := pl.Encode()
	got, err := DecodePacketLengths(payloads)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(lengths) {
		t.Fatalf("decoded %d lengths, want %d", len(got), len(lengths))
	}
	for i := range lengths {
		if got[i] != lengths[i] {
			t.Fatalf("length %d: got %d want %d", i, got[i], lengths[i])
		}
	}
}
