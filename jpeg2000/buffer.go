package jpeg2000

import "fmt"

// attachMode records how a tile-component buffer relates to the memory
// behind it.
type attachMode int

const (
	// bufOwned: the buffer allocated its storage and frees it.
	bufOwned attachMode = iota
	// bufAttached: the storage is borrowed and never freed here.
	bufAttached
	// bufTransferred: ownership was handed out; the buffer is dead.
	bufTransferred
)

// tcBuffer is the per-tile-component sample store. One contiguous
// full-resolution plane holds the Mallat layout during the transform
// stages; for windowed decode it additionally tracks the per-resolution
// windows that bound the work.
type tcBuffer struct {
	rect   Rect // full-resolution tile-component bounds
	data   []int32
	fdata  []float64 // float plane for the 9/7 pipeline
	mode   attachMode

	// Windowed decode state: the requested window in tile-component
	// coordinates and the per-resolution padded windows, index 0 being
	// the deepest LL.
	window     *Rect
	resWindows []Rect
}

// newTCBuffer allocates an owned buffer for the component bounds.
func newTCBuffer(rect Rect) *tcBuffer {
	return &tcBuffer{
		rect: rect,
		data: make([]int32, rect.Area()),
	}
}

// attach borrows caller storage; release leaves it alone.
func (b *tcBuffer) attach(data []int32) error {
	if len(data) < b.rect.Area() {
		return fmt.Errorf("%w: attached buffer holds %d of %d samples", ErrAllocationFailure, len(data), b.rect.Area())
	}
	b.data = data
	b.mode = bufAttached
	return nil
}

// acquire takes ownership of caller storage.
func (b *tcBuffer) acquire(data []int32) error {
	if err := b.attach(data); err != nil {
		return err
	}
	b.mode = bufOwned
	return nil
}

// transfer hands the samples out; the buffer must not be used after.
func (b *tcBuffer) transfer() []int32 {
	d := b.data
	b.data = nil
	b.mode = bufTransferred
	return d
}

// float ensures the float plane exists (9/7 pipeline).
func (b *tcBuffer) float() []float64 {
	if b.fdata == nil {
		b.fdata = make([]float64, b.rect.Area())
	}
	return b.fdata
}

// release drops owned storage; attached storage is left untouched.
func (b *tcBuffer) release() {
	if b.mode == bufOwned {
		b.data = nil
		b.fdata = nil
	}
}

// setWindow installs the decode window (tile-component coordinates) and
// derives the per-resolution windows padded by the kernel footprint.
func (b *tcBuffer) setWindow(win Rect, numResolutions, pad int) {
	w := win.Intersect(b.rect)
	b.window = &w
	b.resWindows = make([]Rect, numResolutions)
	// Each lower resolution keeps twice the kernel footprint so the
	// gather margins of the level above always read exact samples.
	cur := w
	for r := numResolutions - 1; r >= 0; r-- {
		b.resWindows[r] = cur
		cur = Rect{
			X0: cur.X0/2 - 2*pad, Y0: cur.Y0/2 - 2*pad,
			X1: (cur.X1+1)/2 + 2*pad, Y1: (cur.Y1+1)/2 + 2*pad,
		}
	}
}

// resWindow returns the padded window at a resolution, clipped to the
// resolution bounds; when no window is set it returns resRect unchanged
// with ok=false.
func (b *tcBuffer) resWindow(r int, resRect Rect) (Rect, bool) {
	if b.window == nil || r >= len(b.resWindows) {
		return resRect, false
	}
	return b.resWindows[r].Intersect(resRect), true
}

// bandWindow maps a resolution window to the band-space rectangle whose
// code blocks must be decoded, padded by the kernel half-width.
func bandWindow(resWin Rect, orient, pad int) Rect {
	if orient == 0 {
		return Rect{
			X0: resWin.X0 - pad, Y0: resWin.Y0 - pad,
			X1: resWin.X1 + pad, Y1: resWin.Y1 + pad,
		}
	}
	return Rect{
		X0: resWin.X0/2 - pad, Y0: resWin.Y0/2 - pad,
		X1: (resWin.X1+1)/2 + pad, Y1: (resWin.Y1+1)/2 + pad,
	}
}
