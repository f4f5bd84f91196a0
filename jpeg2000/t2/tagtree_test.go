package t2

import (
	"math/rand"
	"testing"
)

func TestTagTreeSingleLeaf(t *testing.T) {
	tree := NewTagTree(1, 1)
	tree.Set(0, 3)

	w := newBitWriter()
	tree.Encode(w, 0, 5)
	data := w.Flush()

	dec := NewTagTree(1, 1)
	r := newBitReader(data)
	below, err := dec.Decode(r, 0, 5)
	if err != nil {
		t.Fatal(err)
	}
	if !below {
		t.Fatal("leaf value 3 should be below threshold 5")
	}
}

func TestTagTreeRoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	for trial := 0; trial < 30; trial++ {
		wdt := 1 + rng.Intn(8)
		hgt := 1 + rng.Intn(8)
		values := make([]int, wdt*hgt)
		for i := range values {
			values[i] = rng.Intn(10)
		}

		enc := NewTagTree(wdt, hgt)
		for i, v := range values {
			enc.Set(i, v)
		}

		// Query every leaf at an increasing sequence of thresholds, the
		// way successive layers consult the inclusion tree.
		w := newBitWriter()
		var expected []bool
		for threshold := 1; threshold <= 10; threshold++ {
			for leaf := range values {
				enc.Encode(w, leaf, threshold)
				expected = append(expected, values[leaf] < threshold)
			}
		}
		data := w.Flush()

		dec := NewTagTree(wdt, hgt)
		r := newBitReader(data)
		k := 0
		for threshold := 1; threshold <= 10; threshold++ {
			for leaf := range values {
				below, err := dec.Decode(r, leaf, threshold)
				if err != nil {
					t.Fatalf("trial %d: decode error at threshold %d leaf %d: %v", trial, threshold, leaf, err)
				}
				if below != expected[k] {
					t.Fatalf("trial %d: threshold %d leaf %d: got %v want %v", trial, threshold, leaf, below, expected[k])
				}
				k++
			}
		}
	}
}

func TestTagTreeDecodeValue(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	for trial := 0; trial < 20; trial++ {
		wdt := 1 + rng.Intn(6)
		hgt := 1 + rng.Intn(6)
		values := make([]int, wdt*hgt)
		for i := range values {
			values[i] = rng.Intn(16)
		}

		enc := NewTagTree(wdt, hgt)
		for i, v := range values {
			enc.Set(i, v)
		}
		w := newBitWriter()
		for leaf := range values {
			enc.Encode(w, leaf, UninitializedValue)
		}
		data := w.Flush()

		dec := NewTagTree(wdt, hgt)
		r := newBitReader(data)
		for leaf, want := range values {
			got, err := dec.DecodeValue(r, leaf)
			if err != nil {
				t.Fatalf("trial %d leaf %d: %v", trial, leaf, err)
			}
			if got != want {
				t.Fatalf("trial %d leaf %d: got %d want %d", trial, leaf, got, want)
			}
		}
	}
}

func TestTagTreeMinInvariant(t *testing.T) {
	tree := NewTagTree(4, 4)
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 16; i++ {
		tree.Set(i, rng.Intn(20))
	}
	// Every interior node's value must be the minimum of its children.
	w, h := 4, 4
	levelStart := 0
	for w > 1 || h > 1 {
		pw, ph := (w+1)/2, (h+1)/2
		parentStart := levelStart + w*h
		for py := 0; py < ph; py++ {
			for px := 0; px < pw; px++ {
				parent := tree.nodes[parentStart+py*pw+px]
				min := int32(UninitializedValue)
				for dy := 0; dy < 2; dy++ {
					for dx := 0; dx < 2; dx++ {
						cx, cy := px*2+dx, py*2+dy
						if cx < w && cy < h {
							if v := tree.nodes[levelStart+cy*w+cx].value; v < min {
								min = v
							}
						}
					}
				}
				if parent.value != min {
					t.Fatalf("node at level start %d (%d,%d): value %d, children min %d",
						parentStart, px, py, parent.value, min)
				}
			}
		}
		levelStart = parentStart
		w, h = pw, ph
	}
}

func TestTagTreeReset(t *testing.T) {
	tree := NewTagTree(2, 2)
	tree.Set(0, 1)
	tree.Reset()
	for i, n := range tree.nodes {
		if n.value != UninitializedValue || n.low != 0 || n.known {
			t.Fatalf("node %d not reset: %+v", i, n)
		}
	}
}

func TestTagTreeDecodeTruncated(t *testing.T) {
	dec := NewTagTree(4, 4)
	r := newBitReader(nil)
	if _, err := dec.Decode(r, 5, 7); err == nil {
		t.Fatal("expected truncation error on empty input")
	}
}
