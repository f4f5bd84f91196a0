package t2

// TagTree is the 2-D min-tree of Annex B.10.2, used twice per precinct:
// once for first-inclusion layers and once for the count of missing
// most-significant bit planes.
//
// Each level halves the leaf grid in both directions until a single root
// remains. A node's value is the minimum over its children; encoding a
// leaf walks root to leaf emitting the incremental threshold comparisons
// that have not been emitted by earlier calls.

// UninitializedValue marks a node whose leaf value was never set; it is
// larger than any legitimate layer index or zero-bitplane count.
const UninitializedValue = 999

type tagNode struct {
	parent int // index of parent node, -1 at the root
	value  int32
	low    int32 // lower bound already established with the decoder
	known  bool  // value fully communicated
}

// TagTree holds the node array for a leavesX × leavesY grid.
type TagTree struct {
	leavesX, leavesY int
	nodes            []tagNode
	stack            []int // reusable root-to-leaf path
}

// NewTagTree builds a tree over a grid of the given size. A grid with no
// leaves is legal and encodes nothing.
func NewTagTree(leavesX, leavesY int) *TagTree {
	t := &TagTree{leavesX: leavesX, leavesY: leavesY}
	numNodes := 0
	w, h := leavesX, leavesY
	for {
		numNodes += w * h
		if w <= 1 && h <= 1 {
			break
		}
		w = (w + 1) / 2
		h = (h + 1) / 2
	}
	if leavesX == 0 || leavesY == 0 {
		return t
	}
	t.nodes = make([]tagNode, numNodes)

	// Link each level's nodes to the next coarser level.
	levelStart := 0
	w, h = leavesX, leavesY
	for w > 1 || h > 1 {
		pw, ph := (w+1)/2, (h+1)/2
		parentStart := levelStart + w*h
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				t.nodes[levelStart+y*w+x].parent = parentStart + (y/2)*pw + x/2
			}
		}
		levelStart = parentStart
		w, h = pw, ph
	}
	t.nodes[len(t.nodes)-1].parent = -1
	t.Reset()
	return t
}

// Reset restores every node to the uninitialized state; called at the
// start of each packet sequence that re-enters layer 0.
func (t *TagTree) Reset() {
	for i := range t.nodes {
		t.nodes[i].value = UninitializedValue
		t.nodes[i].low = 0
		t.nodes[i].known = false
	}
}

// Set assigns a leaf value and propagates the minimum toward the root.
func (t *TagTree) Set(leaf int, value int) {
	node := leaf
	for node >= 0 && t.nodes[node].value > int32(value) {
		t.nodes[node].value = int32(value)
		node = t.nodes[node].parent
	}
}

// path fills t.stack with the indices from root to leaf.
func (t *TagTree) path(leaf int) []int {
	t.stack = t.stack[:0]
	for node := leaf; node >= 0; node = t.nodes[node].parent {
		t.stack = append(t.stack, node)
	}
	// Reverse to root-first order.
	for i, j := 0, len(t.stack)-1; i < j; i, j = i+1, j-1 {
		t.stack[i], t.stack[j] = t.stack[j], t.stack[i]
	}
	return t.stack
}

// Encode emits the bits that bring the decoder's knowledge of the leaf
// up to the given threshold. Bits already implied by earlier calls are
// not repeated.
func (t *TagTree) Encode(w *bitWriter, leaf, threshold int) {
	low := int32(0)
	for _, idx := range t.path(leaf) {
		node := &t.nodes[idx]
		if low > node.low {
			node.low = low
		} else {
			low = node.low
		}
		for low < int32(threshold) {
			if low >= node.value {
				if !node.known {
					w.WriteBit(1)
					node.known = true
				}
				break
			}
			w.WriteBit(0)
			low++
		}
		node.low = low
	}
}

// Decode reads bits along the leaf's path until it can answer whether
// the leaf value is below the threshold.
func (t *TagTree) Decode(r *bitReader, leaf, threshold int) (bool, error) {
	low := int32(0)
	var node *tagNode
	for _, idx := range t.path(leaf) {
		node = &t.nodes[idx]
		if low > node.low {
			node.low = low
		} else {
			low = node.low
		}
		for low < int32(threshold) && low < node.value {
			bit, err := r.ReadBit()
			if err != nil {
				return false, err
			}
			if bit == 1 {
				node.value = low
			} else {
				low++
			}
		}
		node.low = low
	}
	return node.value < int32(threshold), nil
}

// DecodeValue extracts the exact leaf value by raising the threshold one
// step at a time; used for the zero-bitplane tree where the count itself
// is needed (Taubman & Marcellin §12.5.4).
func (t *TagTree) DecodeValue(r *bitReader, leaf int) (int, error) {
	threshold := 1
	for {
		below, err := t.Decode(r, leaf, threshold)
		if err != nil {
			return 0, err
		}
		if below {
			return threshold - 1, nil
		}
		threshold++
		if threshold > UninitializedValue {
			return 0, ErrTruncated
		}
	}
}
