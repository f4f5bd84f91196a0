package jpeg2000

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cocosip/go-j2k/jpeg2000/t1"
	"github.com/cocosip/go-j2k/jpeg2000/t2"
)

// Tier-1 scheduling: code blocks are embarrassingly parallel. Workers
// claim blocks through an atomic fetch-and-increment over a shared job
// list; each worker owns one T1 engine whose scratch grows to the
// largest block it sees. A failed block raises a shared flag — the rest
// of the queue is drained without decoding so buffers still settle.

type blockJob struct {
	tc     *TileComponent
	band   *Band
	cb     *t2.CodeBlock
	resIdx int
}

func (t *Tile) collectJobs(skipEmptyDecode bool) []blockJob {
	var jobs []blockJob
	for _, tc := range t.Comps {
		for ri, res := range tc.Resolutions {
			for _, band := range res.Bands {
				for _, prc := range band.Precincts {
					for _, cb := range prc.Blocks {
						if cb == nil || cb.Empty() {
							continue
						}
						if skipEmptyDecode && cb.NumSegments == 0 {
							continue
						}
						jobs = append(jobs, blockJob{tc: tc, band: band, cb: cb, resIdx: ri})
					}
				}
			}
		}
	}
	return jobs
}

// encodeT1 runs the block coder over every code block of the tile.
func (t *Tile) encodeT1(style uint8, workers int) error {
	jobs := t.collectJobs(false)
	if len(jobs) == 0 {
		return nil
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}
	if workers < 1 {
		workers = 1
	}

	var next atomic.Int64
	var failed atomic.Pointer[blockError]
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			enc := t1.NewEncoder()
			var samples []int32
			for {
				i := int(next.Add(1)) - 1
				if i >= len(jobs) {
					return
				}
				if failed.Load() != nil {
					continue
				}
				job := jobs[i]
				if err := encodeBlock(enc, &samples, job, style); err != nil {
					failed.Store(&blockError{err})
				}
			}
		}()
	}
	wg.Wait()

	if be := failed.Load(); be != nil {
		return be.err
	}
	return nil
}

// blockError boxes a worker failure for the shared flag.
type blockError struct {
	err error
}

func encodeBlock(enc *t1.Encoder, scratch *[]int32, job blockJob, style uint8) error {
	cb, band, tc := job.cb, job.band, job.tc
	w, h := cb.Width(), cb.Height()
	if cap(*scratch) < w*h {
		*scratch = make([]int32, w*h)
	}
	samples := (*scratch)[:w*h]

	base, stride := tc.blockRowBase(band, cb)
	roi := uint(tc.ROIShift)
	for y := 0; y < h; y++ {
		row := tc.buf.data[base+y*stride : base+y*stride+w]
		for x, v := range row {
			samples[y*w+x] = v << roi
		}
	}

	distoWeight := band.normStep() * band.normStep() / 8192.0
	data, passes, numbps, err := enc.Encode(samples, w, h, band.Orient, style, distoWeight)
	if err != nil {
		return err
	}
	if numbps > band.Numbps {
		return fmt.Errorf("%w: block magnitude %d planes exceeds band budget %d", ErrOutOfBounds, numbps, band.Numbps)
	}

	cb.Data = data
	cb.Numbps = numbps
	cb.Passes = cb.Passes[:0]
	for _, p := range passes {
		cb.Passes = append(cb.Passes, t2.Pass{
			Rate:          p.Rate,
			Len:           p.Len,
			DistortionDec: p.DistortionDec,
			Term:          p.Term,
		})
	}
	return nil
}

// normStep is the distortion scale of a band: synthesis norm times
// quantizer step.
func (b *Band) normStep() float64 {
	return b.Norm * b.StepSize
}

// decodeT1 runs the block decoder over the tile's contributed blocks and
// scatters dequantized samples into the component buffers.
func (t *Tile) decodeT1(styleFor func(comp int) uint8, irreversible bool, numResolutions, workers int) error {
	jobs := t.collectJobs(true)
	if len(jobs) == 0 {
		return nil
	}

	compIndex := make(map[*TileComponent]int, len(t.Comps))
	for i, tc := range t.Comps {
		compIndex[tc] = i
	}

	if workers > len(jobs) {
		workers = len(jobs)
	}
	if workers < 1 {
		workers = 1
	}

	maxBP := maxBitplanesBound(numResolutions)
	var next atomic.Int64
	var failed atomic.Pointer[blockError]
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			dec := t1.NewDecoder()
			for {
				i := int(next.Add(1)) - 1
				if i >= len(jobs) {
					return
				}
				// Drain remaining blocks once something failed, so the
				// per-block buffers still cycle through cleanup.
				if failed.Load() != nil {
					jobs[i].cb.Corrupt = true
					continue
				}
				job := jobs[i]
				if !blockInWindow(job) {
					continue
				}
				style := styleFor(compIndex[job.tc])
				if err := decodeBlock(dec, job, style, irreversible, maxBP); err != nil {
					job.cb.Corrupt = true
					failed.Store(&blockError{err})
				}
			}
		}()
	}
	wg.Wait()

	if be := failed.Load(); be != nil {
		return be.err
	}
	return nil
}

func decodeBlock(dec *t1.Decoder, job blockJob, style uint8, irreversible bool, maxBP int) error {
	cb, band, tc := job.cb, job.band, job.tc

	blk := t1.Block{
		Width:  cb.Width(),
		Height: cb.Height(),
		Orient: band.Orient,
		Numbps: cb.Numbps,
		Style:  style,
	}
	for i := 0; i < cb.NumSegments; i++ {
		seg := cb.Segments[i]
		end := seg.DataIndex + seg.Len
		if end > len(cb.Data) {
			return fmt.Errorf("%w: segment overruns block data", ErrCorruptInput)
		}
		blk.Segments = append(blk.Segments, t1.SegmentData{
			Data:      cb.Data[seg.DataIndex:end],
			NumPasses: seg.NumPasses,
		})
	}

	doubled, _, err := dec.Decode(blk, maxBP)
	if err != nil {
		return err
	}

	// Post-decode: ROI downshift, dequantization, scatter into the
	// component buffer at the block's band offset.
	base, stride := tc.blockRowBase(band, cb)
	w, h := cb.Width(), cb.Height()

	if roi := tc.ROIShift; roi > 0 {
		thresh := int32(1) << uint(roi+1)
		for i, v := range doubled {
			mag := v
			if mag < 0 {
				mag = -mag
			}
			if mag >= thresh {
				if v < 0 {
					doubled[i] = -(mag >> uint(roi))
				} else {
					doubled[i] = mag >> uint(roi)
				}
			}
		}
	}

	if irreversible {
		out := tc.buf.float()
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out[base+y*stride+x] = dequantizeDoubled(doubled[y*w+x], band.StepSize)
			}
		}
	} else {
		out := tc.buf.data
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out[base+y*stride+x] = dequantizeReversibleDoubled(doubled[y*w+x])
			}
		}
	}
	return nil
}

// blockInWindow reports whether a block can contribute to the decode
// window; without a window every block qualifies.
func blockInWindow(job blockJob) bool {
	buf := job.tc.buf
	if buf == nil || buf.window == nil {
		return true
	}
	res := job.tc.Resolutions[job.resIdx]
	win, _ := buf.resWindow(job.resIdx, res.Rect)
	if win.Empty() {
		return false
	}
	bw := bandWindow(Rect{
		X0: win.X0 - res.Rect.X0, Y0: win.Y0 - res.Rect.Y0,
		X1: win.X1 - res.Rect.X0, Y1: win.Y1 - res.Rect.Y0,
	}, job.band.Orient, 4)
	// Back to band coordinates.
	offX := job.band.Rect.X0
	offY := job.band.Rect.Y0
	bw = Rect{X0: bw.X0 + offX, Y0: bw.Y0 + offY, X1: bw.X1 + offX, Y1: bw.Y1 + offY}
	return bw.Intersects(Rect{X0: job.cb.X0, Y0: job.cb.Y0, X1: job.cb.X1, Y1: job.cb.Y1})
}
