package jpeg2000

import (
	"fmt"

	"github.com/cocosip/go-j2k/jpeg2000/colorspace"
)

// mctChunk is the minimum samples-per-task granularity for the
// multi-component transform.
const mctChunk = 4096

// forwardMCT applies the configured multi-component transform to the
// tile's component planes, chunked across workers. For the irreversible
// pipeline the transform runs on the float planes.
func (t *Tile) forwardMCT(p *EncodeParams, workers int) error {
	switch p.MCT {
	case MCTNone:
		return nil
	case MCTEnabled:
		if len(t.Comps) < 3 {
			return fmt.Errorf("%w: component transform needs 3 components", ErrInconsistentParams)
		}
		n, err := t.equalPlaneSize(3)
		if err != nil {
			return err
		}
		if p.Irreversible {
			c0, c1, c2 := t.Comps[0].buf.float(), t.Comps[1].buf.float(), t.Comps[2].buf.float()
			parallelChunks(workers, n, mctChunk, func(lo, hi int) {
				colorspace.ForwardICTFloat(c0[lo:hi], c1[lo:hi], c2[lo:hi])
			})
		} else {
			c0, c1, c2 := t.Comps[0].buf.data, t.Comps[1].buf.data, t.Comps[2].buf.data
			parallelChunks(workers, n, mctChunk, func(lo, hi int) {
				colorspace.ForwardRCTRange(c0, c1, c2, lo, hi)
			})
		}
		return nil
	case MCTCustom:
		m, err := colorspace.NewMatrix(len(t.Comps), p.CustomMCTMatrix)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInconsistentParams, err)
		}
		planes, err := t.intPlanes(len(t.Comps))
		if err != nil {
			return err
		}
		return m.Forward(planes)
	}
	return nil
}

// inverseMCT reverses forwardMCT.
func (t *Tile) inverseMCT(mode MCTMode, irreversible bool, matrix []float64, workers int) error {
	switch mode {
	case MCTNone:
		return nil
	case MCTEnabled:
		if len(t.Comps) < 3 {
			return fmt.Errorf("%w: component transform needs 3 components", ErrInconsistentParams)
		}
		n, err := t.equalPlaneSize(3)
		if err != nil {
			return err
		}
		if irreversible {
			c0, c1, c2 := t.Comps[0].buf.float(), t.Comps[1].buf.float(), t.Comps[2].buf.float()
			parallelChunks(workers, n, mctChunk, func(lo, hi int) {
				colorspace.InverseICTFloat(c0[lo:hi], c1[lo:hi], c2[lo:hi])
			})
		} else {
			c0, c1, c2 := t.Comps[0].buf.data, t.Comps[1].buf.data, t.Comps[2].buf.data
			parallelChunks(workers, n, mctChunk, func(lo, hi int) {
				colorspace.InverseRCTRange(c0, c1, c2, lo, hi)
			})
		}
		return nil
	case MCTCustom:
		m, err := colorspace.NewMatrix(len(t.Comps), matrix)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCorruptInput, err)
		}
		planes, err := t.intPlanes(len(t.Comps))
		if err != nil {
			return err
		}
		return m.Inverse(planes)
	}
	return nil
}

func (t *Tile) equalPlaneSize(n int) (int, error) {
	size := t.Comps[0].Rect.Area()
	for _, tc := range t.Comps[:n] {
		if tc.Rect.Area() != size {
			return 0, fmt.Errorf("%w: component transform over unequal planes", ErrInconsistentParams)
		}
	}
	return size, nil
}

func (t *Tile) intPlanes(n int) ([][]int32, error) {
	if _, err := t.equalPlaneSize(n); err != nil {
		return nil, err
	}
	planes := make([][]int32, n)
	for i := range planes {
		planes[i] = t.Comps[i].buf.data
	}
	return planes, nil
}
