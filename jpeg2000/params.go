package jpeg2000

import (
	"fmt"
	"runtime"

	"github.com/cocosip/go-j2k/jpeg2000/t2"
)

// RateControlAlgorithm selects the layer allocator.
type RateControlAlgorithm int

const (
	// RateControlFeasible bisects on the convex-hull slope index; layers
	// land exactly on the rate-distortion frontier. The default.
	RateControlFeasible RateControlAlgorithm = iota
	// RateControlSimple bisects on the raw distortion/rate slope.
	RateControlSimple
)

// TileCacheStrategy controls how decoded tile buffers are retained.
type TileCacheStrategy int

const (
	// TileCacheNone frees each tile after its samples are copied out.
	TileCacheNone TileCacheStrategy = iota
	// TileCacheTile keeps the most recently decoded tile.
	TileCacheTile
	// TileCacheAll keeps every decoded tile for random re-access.
	TileCacheAll
)

// MCTMode selects the multi-component transform.
type MCTMode int

const (
	MCTNone MCTMode = iota
	MCTEnabled // RCT for reversible coding, ICT for irreversible
	MCTCustom  // arbitrary matrix from CustomMCTMatrix
)

// EncodeParams are the coding options the compressor recognizes.
type EncodeParams struct {
	NumLayers  int
	Rates      []float64 // per layer, bits per pixel; 0 = uncapped
	Distoratio []float64 // per layer, fixed-quality PSNR targets in dB

	NumResolutions int
	CblkW          int // log2 of nominal code-block width, ≤ 6
	CblkH          int // log2 of nominal code-block height, ≤ 6
	PrecinctW      []int // log2 precinct width per resolution, empty = 2^15
	PrecinctH      []int

	Progression t2.Progression
	POCs        []t2.POC

	CblkStyle    uint8 // LAZY | RESET | TERMALL | VSC | SEGSYM | PTERM
	Irreversible bool

	EnableSOP bool // 0xFF91 start-of-packet markers
	EnableEPH bool // 0xFF92 end-of-packet-header markers

	MCT             MCTMode
	CustomMCTMatrix []float64

	ROIShift     int // upshift applied to the ROI component(s)
	ROIComponent int

	TileWidth  int // 0 = single tile covering the image
	TileHeight int

	NumThreads int

	TileCache                TileCacheStrategy
	EnableTilePartGeneration bool
	WritePLT                 bool
	WriteTLM                 bool
	RateControl              RateControlAlgorithm

	GuardBits int
}

// DefaultEncodeParams returns the parameter set the teacher of this
// codec family ships by default: single layer, 6 resolutions, 64×64
// blocks, LRCP, lossless.
func DefaultEncodeParams() *EncodeParams {
	return &EncodeParams{
		NumLayers:      1,
		NumResolutions: 6,
		CblkW:          6,
		CblkH:          6,
		Progression:    t2.LRCP,
		GuardBits:      2,
		NumThreads:     runtime.NumCPU(),
	}
}

// maxResolutions bounds the decomposition depth (GRK_J2K_MAXRLVLS).
const maxResolutions = 33

// maxPrecision bounds component precision.
const maxPrecision = 31

// Validate checks internal consistency.
func (p *EncodeParams) Validate(numComponents int) error {
	if p.NumLayers < 1 || p.NumLayers > 65535 {
		return fmt.Errorf("%w: %d layers", ErrInconsistentParams, p.NumLayers)
	}
	if p.NumResolutions < 1 || p.NumResolutions > maxResolutions {
		return fmt.Errorf("%w: %d resolutions", ErrInconsistentParams, p.NumResolutions)
	}
	if p.CblkW < 2 || p.CblkW > 6 || p.CblkH < 2 || p.CblkH > 6 {
		return fmt.Errorf("%w: code-block exponents %d×%d", ErrInconsistentParams, p.CblkW, p.CblkH)
	}
	if p.CblkW+p.CblkH > 12 {
		return fmt.Errorf("%w: code-block area 2^%d exceeds 4096 samples", ErrInconsistentParams, p.CblkW+p.CblkH)
	}
	if len(p.Rates) > 0 && len(p.Rates) != p.NumLayers {
		return fmt.Errorf("%w: %d rates for %d layers", ErrInconsistentParams, len(p.Rates), p.NumLayers)
	}
	if len(p.Distoratio) > 0 && len(p.Distoratio) != p.NumLayers {
		return fmt.Errorf("%w: %d quality targets for %d layers", ErrInconsistentParams, len(p.Distoratio), p.NumLayers)
	}
	if p.MCT == MCTEnabled && numComponents < 3 {
		return fmt.Errorf("%w: component transform needs 3 components, have %d", ErrInconsistentParams, numComponents)
	}
	if p.MCT == MCTCustom && len(p.CustomMCTMatrix) != numComponents*numComponents {
		return fmt.Errorf("%w: custom MCT matrix needs %d entries, have %d",
			ErrInconsistentParams, numComponents*numComponents, len(p.CustomMCTMatrix))
	}
	if p.ROIShift < 0 || p.ROIShift > 37 {
		return fmt.Errorf("%w: ROI shift %d", ErrInconsistentParams, p.ROIShift)
	}
	if p.ROIComponent < 0 || p.ROIComponent >= numComponents {
		return fmt.Errorf("%w: ROI component %d of %d", ErrInconsistentParams, p.ROIComponent, numComponents)
	}
	if p.TileWidth < 0 || p.TileHeight < 0 {
		return fmt.Errorf("%w: negative tile size", ErrInconsistentParams)
	}
	if p.GuardBits < 1 || p.GuardBits > 7 {
		return fmt.Errorf("%w: %d guard bits", ErrInconsistentParams, p.GuardBits)
	}
	return nil
}

func (p *EncodeParams) workers() int {
	if p.NumThreads > 0 {
		return p.NumThreads
	}
	return runtime.NumCPU()
}

// DecodeOptions steer the decompressor.
type DecodeOptions struct {
	// Window restricts decoding to a region in canvas coordinates; nil
	// decodes everything.
	Window *Rect
	// NumThreads sizes the worker pool; 0 uses all CPUs.
	NumThreads int
	// TileCache keeps decoded tiles for random access.
	TileCache TileCacheStrategy
}

func (o *DecodeOptions) workers() int {
	if o != nil && o.NumThreads > 0 {
		return o.NumThreads
	}
	return runtime.NumCPU()
}
