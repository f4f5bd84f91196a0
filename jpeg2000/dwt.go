package jpeg2000

import (
	"github.com/cocosip/go-j2k/jpeg2000/wavelet"
)

// DWT drivers. Rows of the current resolution are partitioned across
// workers; the horizontal and vertical passes of one level are separated
// by the barrier parallelChunks provides, and all workers advance to the
// next level together.

// forwardDWT53 decomposes the tile component in place through all its
// levels.
func (tc *TileComponent) forwardDWT53(workers int) {
	stride := tc.levelW[0]
	data := tc.buf.data
	levels := len(tc.Resolutions) - 1
	for i := 0; i < levels; i++ {
		w, h := tc.levelW[i], tc.levelH[i]
		if w <= 1 && h <= 1 {
			break
		}
		evenRow := tc.levelX0[i]%2 == 0
		evenCol := tc.levelY0[i]%2 == 0

		parallelChunks(workers, h, 1, func(lo, hi int) {
			scratch := make([]int32, w)
			for y := lo; y < hi; y++ {
				wavelet.Forward53LineInto(data[y*stride:y*stride+w], scratch, evenRow)
			}
		})
		parallelChunks(workers, w, 1, func(lo, hi int) {
			scratch := make([]int32, h)
			col := make([]int32, h)
			for x := lo; x < hi; x++ {
				for y := 0; y < h; y++ {
					col[y] = data[y*stride+x]
				}
				wavelet.Forward53LineInto(col, scratch, evenCol)
				for y := 0; y < h; y++ {
					data[y*stride+x] = col[y]
				}
			}
		})
	}
}

// inverseDWT53 reconstructs the tile component in place.
func (tc *TileComponent) inverseDWT53(workers int) {
	stride := tc.levelW[0]
	data := tc.buf.data
	levels := len(tc.Resolutions) - 1
	for i := levels - 1; i >= 0; i-- {
		w, h := tc.levelW[i], tc.levelH[i]
		if w <= 1 && h <= 1 {
			continue
		}
		evenRow := tc.levelX0[i]%2 == 0
		evenCol := tc.levelY0[i]%2 == 0

		parallelChunks(workers, w, 1, func(lo, hi int) {
			scratch := make([]int32, h)
			col := make([]int32, h)
			for x := lo; x < hi; x++ {
				for y := 0; y < h; y++ {
					col[y] = data[y*stride+x]
				}
				wavelet.Inverse53LineInto(col, scratch, evenCol)
				for y := 0; y < h; y++ {
					data[y*stride+x] = col[y]
				}
			}
		})
		parallelChunks(workers, h, 1, func(lo, hi int) {
			scratch := make([]int32, w)
			for y := lo; y < hi; y++ {
				wavelet.Inverse53LineInto(data[y*stride:y*stride+w], scratch, evenRow)
			}
		})
	}
}

// forwardDWT97 decomposes the float plane in place.
func (tc *TileComponent) forwardDWT97(workers int) {
	stride := tc.levelW[0]
	data := tc.buf.fdata
	levels := len(tc.Resolutions) - 1
	for i := 0; i < levels; i++ {
		w, h := tc.levelW[i], tc.levelH[i]
		if w <= 1 && h <= 1 {
			break
		}
		evenRow := tc.levelX0[i]%2 == 0
		evenCol := tc.levelY0[i]%2 == 0

		parallelChunks(workers, h, 1, func(lo, hi int) {
			for y := lo; y < hi; y++ {
				wavelet.Forward97Line(data[y*stride:y*stride+w], evenRow)
			}
		})
		parallelChunks(workers, w, 1, func(lo, hi int) {
			col := make([]float64, h)
			for x := lo; x < hi; x++ {
				for y := 0; y < h; y++ {
					col[y] = data[y*stride+x]
				}
				wavelet.Forward97Line(col, evenCol)
				for y := 0; y < h; y++ {
					data[y*stride+x] = col[y]
				}
			}
		})
	}
}

// inverseDWT97 reconstructs the float plane in place.
func (tc *TileComponent) inverseDWT97(workers int) {
	stride := tc.levelW[0]
	data := tc.buf.fdata
	levels := len(tc.Resolutions) - 1
	for i := levels - 1; i >= 0; i-- {
		w, h := tc.levelW[i], tc.levelH[i]
		if w <= 1 && h <= 1 {
			continue
		}
		evenRow := tc.levelX0[i]%2 == 0
		evenCol := tc.levelY0[i]%2 == 0

		parallelChunks(workers, w, 1, func(lo, hi int) {
			col := make([]float64, h)
			for x := lo; x < hi; x++ {
				for y := 0; y < h; y++ {
					col[y] = data[y*stride+x]
				}
				wavelet.Inverse97Line(col, evenCol)
				for y := 0; y < h; y++ {
					data[y*stride+x] = col[y]
				}
			}
		})
		parallelChunks(workers, h, 1, func(lo, hi int) {
			for y := lo; y < hi; y++ {
				wavelet.Inverse97Line(data[y*stride:y*stride+w], evenRow)
			}
		})
	}
}

// inverseDWT53Window reconstructs only the per-resolution windows set on
// the buffer; outputs inside the final window are bit-identical to a
// full inverse.
func (tc *TileComponent) inverseDWT53Window(workers int) {
	if tc.buf.window == nil {
		tc.inverseDWT53(workers)
		return
	}
	stride := tc.levelW[0]
	data := tc.buf.data
	levels := len(tc.Resolutions) - 1
	pad := wavelet.Kernel53.FilterPad()

	for i := levels - 1; i >= 0; i-- {
		w, h := tc.levelW[i], tc.levelH[i]
		if w <= 1 && h <= 1 {
			continue
		}
		r := levels - i // resolution produced by this step
		res := tc.Resolutions[r]
		win, _ := tc.buf.resWindow(r, res.Rect)
		if win.Empty() {
			continue
		}
		outX := wavelet.Range{Lo: win.X0 - res.Rect.X0, Hi: win.X1 - res.Rect.X0}.Clip(w)
		outY := wavelet.Range{Lo: win.Y0 - res.Rect.Y0, Hi: win.Y1 - res.Rect.Y0}.Clip(h)

		evenRow := tc.levelX0[i]%2 == 0
		evenCol := tc.levelY0[i]%2 == 0
		parRow, parCol := 0, 0
		if !evenRow {
			parRow = 1
		}
		if !evenCol {
			parCol = 1
		}

		// The vertical pass runs over the band-split column indices the
		// row gather will consult: the low half around outX/2 and the
		// matching high-half columns.
		cols := windowColumns(outX, w, tc.levelW[i+1], pad)
		parallelChunks(workers, len(cols), 1, func(lo, hi int) {
			scratch := make([]int32, 2*h)
			col := make([]int32, h)
			for xi := lo; xi < hi; xi++ {
				x := cols[xi]
				for y := 0; y < h; y++ {
					col[y] = data[y*stride+x]
				}
				wavelet.Inverse53LineWindow(col, parCol, outY, scratch)
				for y := outY.Lo; y < outY.Hi; y++ {
					data[y*stride+x] = col[y]
				}
			}
		})

		nRows := outY.Hi - outY.Lo
		parallelChunks(workers, nRows, 1, func(lo, hi int) {
			scratch := make([]int32, 2*w)
			row := make([]int32, w)
			for yi := lo; yi < hi; yi++ {
				y := outY.Lo + yi
				copy(row, data[y*stride:y*stride+w])
				wavelet.Inverse53LineWindow(row, parRow, outX, scratch)
				copy(data[y*stride+outX.Lo:y*stride+outX.Hi], row[outX.Lo:outX.Hi])
			}
		})
	}
}

// inverseDWT97Window is the float counterpart of inverseDWT53Window.
func (tc *TileComponent) inverseDWT97Window(workers int) {
	if tc.buf.window == nil {
		tc.inverseDWT97(workers)
		return
	}
	stride := tc.levelW[0]
	data := tc.buf.fdata
	levels := len(tc.Resolutions) - 1
	pad := wavelet.Kernel97.FilterPad()

	for i := levels - 1; i >= 0; i-- {
		w, h := tc.levelW[i], tc.levelH[i]
		if w <= 1 && h <= 1 {
			continue
		}
		r := levels - i
		res := tc.Resolutions[r]
		win, _ := tc.buf.resWindow(r, res.Rect)
		if win.Empty() {
			continue
		}
		outX := wavelet.Range{Lo: win.X0 - res.Rect.X0, Hi: win.X1 - res.Rect.X0}.Clip(w)
		outY := wavelet.Range{Lo: win.Y0 - res.Rect.Y0, Hi: win.Y1 - res.Rect.Y0}.Clip(h)

		parRow, parCol := tc.levelX0[i]%2, tc.levelY0[i]%2

		cols := windowColumns(outX, w, tc.levelW[i+1], pad)
		parallelChunks(workers, len(cols), 1, func(lo, hi int) {
			scratch := make([]float64, h)
			col := make([]float64, h)
			for xi := lo; xi < hi; xi++ {
				x := cols[xi]
				for y := 0; y < h; y++ {
					col[y] = data[y*stride+x]
				}
				wavelet.Inverse97LineWindow(col, parCol, outY, scratch)
				for y := outY.Lo; y < outY.Hi; y++ {
					data[y*stride+x] = col[y]
				}
			}
		})

		nRows := outY.Hi - outY.Lo
		parallelChunks(workers, nRows, 1, func(lo, hi int) {
			scratch := make([]float64, w)
			row := make([]float64, w)
			for yi := lo; yi < hi; yi++ {
				y := outY.Lo + yi
				copy(row, data[y*stride:y*stride+w])
				wavelet.Inverse97LineWindow(row, parRow, outX, scratch)
				copy(data[y*stride+outX.Lo:y*stride+outX.Hi], row[outX.Lo:outX.Hi])
			}
		})
	}
}

// windowColumns lists the band-split column indices the horizontal
// window lift of out will read: low-half columns around out/2 and their
// high-half counterparts offset by the low width sn.
func windowColumns(out wavelet.Range, width, sn, pad int) []int {
	lo := (out.Lo-2*pad)>>1 - 1
	hi := (out.Hi+2*pad+1)>>1 + 1
	if lo < 0 {
		lo = 0
	}
	var cols []int
	for x := lo; x < hi && x < sn; x++ {
		cols = append(cols, x)
	}
	for x := sn + lo; x < sn+hi && x < width; x++ {
		cols = append(cols, x)
	}
	return cols
}
