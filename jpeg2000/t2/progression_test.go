package t2

import "testing"

func uniformConfig(numComps, numRes, numLayers, pw, ph int, order Progression) IteratorConfig {
	comps := make([]IterComponent, numComps)
	for c := range comps {
		ress := make([]IterResolution, numRes)
		for r := range ress {
			n := pw * ph
			posX := make([]int, n)
			posY := make([]int, n)
			// Spread precincts on a grid whose spacing doubles as the
			// resolution drops, the way canvas coordinates behave.
			scale := 1 << (numRes - 1 - r)
			for i := 0; i < n; i++ {
				posX[i] = (i % pw) * 64 * scale
				posY[i] = (i / pw) * 64 * scale
			}
			ress[r] = IterResolution{NumPrecincts: n, PosX: posX, PosY: posY}
		}
		comps[c] = IterComponent{Resolutions: ress}
	}
	return IteratorConfig{NumLayers: numLayers, Components: comps, Order: order}
}

func TestIteratorCompleteness(t *testing.T) {
	const numComps, numRes, numLayers, pw, ph = 3, 4, 2, 2, 2
	for _, order := range []Progression{LRCP, RLCP, RPCL, PCRL, CPRL} {
		cfg := uniformConfig(numComps, numRes, numLayers, pw, ph, order)
		it := NewIterator(cfg)

		want := numLayers * numRes * numComps * pw * ph
		if it.Len() != want {
			t.Fatalf("%v: %d packets, want %d", order, it.Len(), want)
		}

		seen := make(map[PacketRef]bool)
		for {
			ref, ok := it.Next()
			if !ok {
				break
			}
			if seen[ref] {
				t.Fatalf("%v: duplicate packet %+v", order, ref)
			}
			seen[ref] = true
		}
		if len(seen) != want {
			t.Fatalf("%v: emitted %d distinct packets, want %d", order, len(seen), want)
		}
	}
}

func TestIteratorLRCPOrder(t *testing.T) {
	cfg := uniformConfig(2, 3, 2, 1, 1, LRCP)
	it := NewIterator(cfg)

	prev := PacketRef{Layer: -1}
	for {
		ref, ok := it.Next()
		if !ok {
			break
		}
		// Layer must be the slowest axis, then resolution, then component.
		if ref.Layer < prev.Layer {
			t.Fatalf("layer went backwards: %+v after %+v", ref, prev)
		}
		if ref.Layer == prev.Layer && ref.Resolution < prev.Resolution {
			t.Fatalf("resolution went backwards within layer: %+v after %+v", ref, prev)
		}
		prev = ref
	}
}

func TestIteratorRLCPOrder(t *testing.T) {
	cfg := uniformConfig(2, 3, 2, 1, 1, RLCP)
	it := NewIterator(cfg)
	prev := PacketRef{Resolution: -1}
	for {
		ref, ok := it.Next()
		if !ok {
			break
		}
		if ref.Resolution < prev.Resolution {
			t.Fatalf("resolution went backwards: %+v after %+v", ref, prev)
		}
		prev = ref
	}
}

func TestIteratorCPRLComponentOutermost(t *testing.T) {
	cfg := uniformConfig(3, 2, 2, 2, 1, CPRL)
	it := NewIterator(cfg)
	prev := -1
	for {
		ref, ok := it.Next()
		if !ok {
			break
		}
		if ref.Component < prev {
			t.Fatalf("component went backwards: %+v", ref)
		}
		prev = ref.Component
	}
}

func TestIteratorWindowSkip(t *testing.T) {
	cfg := uniformConfig(1, 1, 1, 2, 2, LRCP)
	cfg.Components[0].Resolutions[0].Skip = []bool{false, true, true, false}
	it := NewIterator(cfg)
	if it.Len() != 2 {
		t.Fatalf("window skip left %d packets, want 2", it.Len())
	}
}

func TestIteratorPOCOverride(t *testing.T) {
	cfg := uniformConfig(2, 3, 2, 1, 1, LRCP)
	cfg.POCs = []POC{
		{Progression: RLCP, ResStart: 0, ResEnd: 1, CompStart: 0, CompEnd: 2, LayerEnd: 2},
		{Progression: LRCP, ResStart: 0, ResEnd: 3, CompStart: 0, CompEnd: 2, LayerEnd: 2},
	}
	it := NewIterator(cfg)

	// The POC list still covers every packet exactly once.
	want := 2 * 3 * 2
	if it.Len() != want {
		t.Fatalf("POC iteration emitted %d packets, want %d", it.Len(), want)
	}
	// First segment is resolution 0 only.
	for i := 0; i < 4; i++ {
		ref, _ := it.Next()
		if ref.Resolution != 0 {
			t.Fatalf("packet %d outside first POC segment: %+v", i, ref)
		}
	}
}

func TestIteratorDeterminism(t *testing.T) {
	cfg := uniformConfig(3, 3, 3, 2, 2, PCRL)
	a := NewIterator(cfg)
	b := NewIterator(cfg)
	for {
		ra, oka := a.Next()
		rb, okb := b.Next()
		if oka != okb {
			t.Fatal("iterators disagree on length")
		}
		if !oka {
			break
		}
		if ra != rb {
			t.Fatalf("iterators diverge: %+v vs %+v", ra, rb)
		}
	}
}
