package t2

import "sort"

// Progression is one of the five packet orderings of Annex B.12.
type Progression int

const (
	LRCP Progression = iota // layer, resolution, component, position
	RLCP                    // resolution, layer, component, position
	RPCL                    // resolution, position, component, layer
	PCRL                    // position, component, resolution, layer
	CPRL                    // component, position, resolution, layer
)

// String returns the marker mnemonic.
func (p Progression) String() string {
	switch p {
	case LRCP:
		return "LRCP"
	case RLCP:
		return "RLCP"
	case RPCL:
		return "RPCL"
	case PCRL:
		return "PCRL"
	case CPRL:
		return "CPRL"
	}
	return "UNKNOWN"
}

// POC is one progression-order-change record: it bounds the iteration
// axes and overrides the progression until exhausted (Annex A.6.6).
type POC struct {
	Progression Progression
	ResStart    int
	CompStart   int
	LayerEnd    int
	ResEnd      int
	CompEnd     int
}

// PacketRef identifies one packet.
type PacketRef struct {
	Layer      int
	Resolution int
	Component  int
	Precinct   int
}

// IterResolution describes one resolution's precinct grid for iteration:
// the grid size and the canvas-coordinate origin of every precinct, used
// by the position-first progressions.
type IterResolution struct {
	NumPrecincts int
	// PosX/PosY give each precinct's origin on the reference grid
	// (resolution coordinates scaled back to canvas coordinates).
	PosX, PosY []int
	// Skip marks precincts outside the decode window.
	Skip []bool
}

// IterComponent describes one component for iteration.
type IterComponent struct {
	Resolutions []IterResolution
}

// IteratorConfig feeds the packet iterator.
type IteratorConfig struct {
	NumLayers  int
	Components []IterComponent
	POCs       []POC // empty means a single run of the tile progression
	Order      Progression
}

// Iterator enumerates (layer, resolution, component, precinct) tuples in
// the configured order. The sequence is precomputed so encoder and
// decoder observe the identical order for identical parameters.
type Iterator struct {
	seq []PacketRef
	pos int
}

// NewIterator builds the packet sequence for the configuration.
func NewIterator(cfg IteratorConfig) *Iterator {
	it := &Iterator{}
	pocs := cfg.POCs
	if len(pocs) == 0 {
		pocs = []POC{{
			Progression: cfg.Order,
			LayerEnd:    cfg.NumLayers,
			ResEnd:      maxResolutions(cfg),
			CompEnd:     len(cfg.Components),
		}}
	}
	seen := make(map[PacketRef]bool)
	for _, poc := range pocs {
		it.appendPOC(cfg, poc, seen)
	}
	return it
}

func maxResolutions(cfg IteratorConfig) int {
	m := 0
	for _, c := range cfg.Components {
		if len(c.Resolutions) > m {
			m = len(c.Resolutions)
		}
	}
	return m
}

// Next returns the next packet reference.
func (it *Iterator) Next() (PacketRef, bool) {
	if it.pos >= len(it.seq) {
		return PacketRef{}, false
	}
	ref := it.seq[it.pos]
	it.pos++
	return ref, true
}

// Reset rewinds the iterator; the allocator's simulated Tier-2 pass and
// the final pass traverse the same sequence.
func (it *Iterator) Reset() { it.pos = 0 }

// Len returns the total number of packets enumerated.
func (it *Iterator) Len() int { return len(it.seq) }

func (it *Iterator) emit(cfg IteratorConfig, ref PacketRef, seen map[PacketRef]bool) {
	comp := cfg.Components[ref.Component]
	if ref.Resolution >= len(comp.Resolutions) {
		return
	}
	res := comp.Resolutions[ref.Resolution]
	if ref.Precinct >= res.NumPrecincts {
		return
	}
	if res.Skip != nil && res.Skip[ref.Precinct] {
		return
	}
	if seen[ref] {
		return
	}
	seen[ref] = true
	it.seq = append(it.seq, ref)
}

type position struct{ x, y int }

// positionOrder returns the distinct precinct origins of the selection in
// raster order, with a lookup from (comp, res, position) to precinct
// index.
func positionOrder(cfg IteratorConfig, poc POC) ([]position, map[[2]int]map[position]int) {
	posSet := make(map[position]bool)
	lookup := make(map[[2]int]map[position]int)
	for c := poc.CompStart; c < poc.CompEnd && c < len(cfg.Components); c++ {
		comp := cfg.Components[c]
		for r := poc.ResStart; r < poc.ResEnd && r < len(comp.Resolutions); r++ {
			res := comp.Resolutions[r]
			m := make(map[position]int, res.NumPrecincts)
			for p := 0; p < res.NumPrecincts; p++ {
				pos := position{res.PosX[p], res.PosY[p]}
				posSet[pos] = true
				m[pos] = p
			}
			lookup[[2]int{c, r}] = m
		}
	}
	out := make([]position, 0, len(posSet))
	for p := range posSet {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].y != out[j].y {
			return out[i].y < out[j].y
		}
		return out[i].x < out[j].x
	})
	return out, lookup
}

func (it *Iterator) appendPOC(cfg IteratorConfig, poc POC, seen map[PacketRef]bool) {
	if poc.CompEnd > len(cfg.Components) {
		poc.CompEnd = len(cfg.Components)
	}
	if poc.LayerEnd > cfg.NumLayers {
		poc.LayerEnd = cfg.NumLayers
	}

	switch poc.Progression {
	case LRCP:
		for l := 0; l < poc.LayerEnd; l++ {
			for r := poc.ResStart; r < poc.ResEnd; r++ {
				for c := poc.CompStart; c < poc.CompEnd; c++ {
					it.emitPrecincts(cfg, l, r, c, seen)
				}
			}
		}
	case RLCP:
		for r := poc.ResStart; r < poc.ResEnd; r++ {
			for l := 0; l < poc.LayerEnd; l++ {
				for c := poc.CompStart; c < poc.CompEnd; c++ {
					it.emitPrecincts(cfg, l, r, c, seen)
				}
			}
		}
	case RPCL:
		positions, lookup := positionOrder(cfg, poc)
		for r := poc.ResStart; r < poc.ResEnd; r++ {
			for _, pos := range positions {
				for c := poc.CompStart; c < poc.CompEnd; c++ {
					if p, ok := lookup[[2]int{c, r}][pos]; ok {
						for l := 0; l < poc.LayerEnd; l++ {
							it.emit(cfg, PacketRef{l, r, c, p}, seen)
						}
					}
				}
			}
		}
	case PCRL:
		positions, lookup := positionOrder(cfg, poc)
		for _, pos := range positions {
			for c := poc.CompStart; c < poc.CompEnd; c++ {
				for r := poc.ResStart; r < poc.ResEnd; r++ {
					if p, ok := lookup[[2]int{c, r}][pos]; ok {
						for l := 0; l < poc.LayerEnd; l++ {
							it.emit(cfg, PacketRef{l, r, c, p}, seen)
						}
					}
				}
			}
		}
	case CPRL:
		positions, lookup := positionOrder(cfg, poc)
		for c := poc.CompStart; c < poc.CompEnd; c++ {
			for _, pos := range positions {
				for r := poc.ResStart; r < poc.ResEnd; r++ {
					if p, ok := lookup[[2]int{c, r}][pos]; ok {
						for l := 0; l < poc.LayerEnd; l++ {
							it.emit(cfg, PacketRef{l, r, c, p}, seen)
						}
					}
				}
			}
		}
	}
}

func (it *Iterator) emitPrecincts(cfg IteratorConfig, l, r, c int, seen map[PacketRef]bool) {
	comp := cfg.Components[c]
	if r >= len(comp.Resolutions) {
		return
	}
	for p := 0; p < comp.Resolutions[r].NumPrecincts; p++ {
		it.emit(cfg, PacketRef{l, r, c, p}, seen)
	}
}
