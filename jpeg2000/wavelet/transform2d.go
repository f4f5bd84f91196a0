package wavelet

// 2-D separable transforms in the Mallat layout: after each forward level
// the LL band occupies the top-left sub-rectangle and is decomposed again.
// Row and column parities come from the region origin so that tiles not
// anchored at even canvas coordinates still reproduce the standard band
// split.

// Forward53 applies levels forward 5/3 decompositions to a width×height
// region anchored at (x0, y0), stored row-major with the given stride.
func Forward53(data []int32, width, height, stride, levels, x0, y0 int) {
	w, h := width, height
	cx, cy := x0, y0
	scratch := make([]int32, max(width, height))
	col := make([]int32, height)
	for level := 0; level < levels; level++ {
		if w <= 1 && h <= 1 {
			break
		}
		evenRow := isEven(cx)
		evenCol := isEven(cy)
		for y := 0; y < h; y++ {
			forward53Line(data[y*stride:y*stride+w], scratch[:w], evenRow)
		}
		for x := 0; x < w; x++ {
			gatherColumn(data, col[:h], x, stride)
			forward53Line(col[:h], scratch[:h], evenCol)
			scatterColumn(data, col[:h], x, stride)
		}
		w = splitLength(w, evenRow)
		h = splitLength(h, evenCol)
		cx = halveCoord(cx)
		cy = halveCoord(cy)
	}
}

// Inverse53 reverses Forward53.
func Inverse53(data []int32, width, height, stride, levels, x0, y0 int) {
	type extent struct {
		w, h   int
		ex, ey bool
	}
	exts := make([]extent, 0, levels)
	w, h := width, height
	cx, cy := x0, y0
	for level := 0; level < levels; level++ {
		if w <= 1 && h <= 1 {
			break
		}
		exts = append(exts, extent{w, h, isEven(cx), isEven(cy)})
		w = splitLength(w, isEven(cx))
		h = splitLength(h, isEven(cy))
		cx = halveCoord(cx)
		cy = halveCoord(cy)
	}
	scratch := make([]int32, max(width, height))
	col := make([]int32, height)
	for i := len(exts) - 1; i >= 0; i-- {
		e := exts[i]
		for x := 0; x < e.w; x++ {
			gatherColumn(data, col[:e.h], x, stride)
			inverse53Line(col[:e.h], scratch[:e.h], e.ey)
			scatterColumn(data, col[:e.h], x, stride)
		}
		for y := 0; y < e.h; y++ {
			inverse53Line(data[y*stride:y*stride+e.w], scratch[:e.w], e.ex)
		}
	}
}

// Forward97 applies levels forward 9/7 decompositions; same layout rules
// as Forward53.
func Forward97(data []float64, width, height, stride, levels, x0, y0 int) {
	w, h := width, height
	cx, cy := x0, y0
	col := make([]float64, height)
	for level := 0; level < levels; level++ {
		if w <= 1 && h <= 1 {
			break
		}
		evenRow := isEven(cx)
		evenCol := isEven(cy)
		for y := 0; y < h; y++ {
			Forward97Line(data[y*stride:y*stride+w], evenRow)
		}
		for x := 0; x < w; x++ {
			gatherColumnF(data, col[:h], x, stride)
			Forward97Line(col[:h], evenCol)
			scatterColumnF(data, col[:h], x, stride)
		}
		w = splitLength(w, evenRow)
		h = splitLength(h, evenCol)
		cx = halveCoord(cx)
		cy = halveCoord(cy)
	}
}

// Inverse97 reverses Forward97.
func Inverse97(data []float64, width, height, stride, levels, x0, y0 int) {
	type extent struct {
		w, h   int
		ex, ey bool
	}
	exts := make([]extent, 0, levels)
	w, h := width, height
	cx, cy := x0, y0
	for level := 0; level < levels; level++ {
		if w <= 1 && h <= 1 {
			break
		}
		exts = append(exts, extent{w, h, isEven(cx), isEven(cy)})
		w = splitLength(w, isEven(cx))
		h = splitLength(h, isEven(cy))
		cx = halveCoord(cx)
		cy = halveCoord(cy)
	}
	col := make([]float64, height)
	for i := len(exts) - 1; i >= 0; i-- {
		e := exts[i]
		for x := 0; x < e.w; x++ {
			gatherColumnF(data, col[:e.h], x, stride)
			Inverse97Line(col[:e.h], e.ey)
			scatterColumnF(data, col[:e.h], x, stride)
		}
		for y := 0; y < e.h; y++ {
			Inverse97Line(data[y*stride:y*stride+e.w], e.ex)
		}
	}
}

func gatherColumn(data, col []int32, x, stride int) {
	for y := range col {
		col[y] = data[y*stride+x]
	}
}

func scatterColumn(data, col []int32, x, stride int) {
	for y := range col {
		data[y*stride+x] = col[y]
	}
}

func gatherColumnF(data, col []float64, x, stride int) {
	for y := range col {
		col[y] = data[y*stride+x]
	}
}

func scatterColumnF(data, col []float64, x, stride int) {
	for y := range col {
		data[y*stride+x] = col[y]
	}
}
