package lossy

import (
	"fmt"

	dicomcodec "github.com/cocosip/go-dicom/pkg/imaging/codec"

	"github.com/cocosip/go-j2k/jpeg2000"
	"github.com/cocosip/go-j2k/jpeg2000/t2"
)

var _ dicomcodec.Parameters = (*Parameters)(nil)

// Parameters tune the lossy encoder.
type Parameters struct {
	// NumLevels is the wavelet decomposition depth (0-8).
	NumLevels int
	// NumLayers is the quality layer count.
	NumLayers int
	// ProgressionOrder is the packet ordering (0 = LRCP ... 4 = CPRL).
	ProgressionOrder uint8
	// AllowMCT enables the irreversible color transform on RGB input.
	AllowMCT bool
	// Rates lists per-layer bit rates in bits per pixel; empty leaves
	// the layers uncapped.
	Rates []float64
	// Distoratio lists per-layer PSNR targets in dB, the fixed-quality
	// alternative to Rates.
	Distoratio []float64

	extra map[string]interface{}
}

// NewParameters returns the defaults: 5 levels, one uncapped layer.
func NewParameters() *Parameters {
	return &Parameters{
		NumLevels: 5,
		NumLayers: 1,
		AllowMCT:  true,
	}
}

// GetParameter exposes the generic parameter surface.
func (p *Parameters) GetParameter(name string) interface{} {
	switch name {
	case "numLevels":
		return p.NumLevels
	case "numLayers":
		return p.NumLayers
	case "progressionOrder":
		return p.ProgressionOrder
	case "allowMCT":
		return p.AllowMCT
	case "rates":
		return p.Rates
	case "distoratio":
		return p.Distoratio
	}
	if p.extra != nil {
		return p.extra[name]
	}
	return nil
}

// SetParameter stores a generic parameter.
func (p *Parameters) SetParameter(name string, value interface{}) {
	switch name {
	case "numLevels":
		if v, ok := value.(int); ok {
			p.NumLevels = v
		}
	case "numLayers":
		if v, ok := value.(int); ok {
			p.NumLayers = v
		}
	case "progressionOrder":
		switch v := value.(type) {
		case int:
			p.ProgressionOrder = uint8(v)
		case uint8:
			p.ProgressionOrder = v
		}
	case "allowMCT":
		if v, ok := value.(bool); ok {
			p.AllowMCT = v
		}
	case "rates":
		if v, ok := value.([]float64); ok {
			p.Rates = v
		}
	case "distoratio":
		if v, ok := value.([]float64); ok {
			p.Distoratio = v
		}
	default:
		if p.extra == nil {
			p.extra = make(map[string]interface{})
		}
		p.extra[name] = value
	}
}

// Validate checks the parameter ranges.
func (p *Parameters) Validate() error {
	if p.NumLevels < 0 || p.NumLevels > 8 {
		return fmt.Errorf("numLevels %d out of range 0-8", p.NumLevels)
	}
	if p.NumLayers < 1 || p.NumLayers > 65535 {
		return fmt.Errorf("numLayers %d out of range", p.NumLayers)
	}
	if p.ProgressionOrder > 4 {
		return fmt.Errorf("progressionOrder %d out of range 0-4", p.ProgressionOrder)
	}
	if len(p.Rates) > 0 && len(p.Rates) != p.NumLayers {
		return fmt.Errorf("%d rates for %d layers", len(p.Rates), p.NumLayers)
	}
	if len(p.Distoratio) > 0 && len(p.Distoratio) != p.NumLayers {
		return fmt.Errorf("%d quality targets for %d layers", len(p.Distoratio), p.NumLayers)
	}
	return nil
}

func extractParameters(parameters dicomcodec.Parameters) *Parameters {
	if parameters == nil {
		return NewParameters()
	}
	if p, ok := parameters.(*Parameters); ok {
		return p
	}
	p := NewParameters()
	for _, name := range []string{"numLevels", "numLayers", "progressionOrder", "allowMCT", "rates", "distoratio"} {
		if v := parameters.GetParameter(name); v != nil {
			p.SetParameter(name, v)
		}
	}
	return p
}

// encodeParams maps the DICOM-facing knobs onto core coding parameters.
func (p *Parameters) encodeParams() *jpeg2000.EncodeParams {
	ep := jpeg2000.DefaultEncodeParams()
	ep.NumResolutions = p.NumLevels + 1
	ep.NumLayers = p.NumLayers
	ep.Progression = t2.Progression(p.ProgressionOrder)
	ep.Irreversible = true
	ep.Rates = p.Rates
	ep.Distoratio = p.Distoratio
	if p.AllowMCT {
		ep.MCT = jpeg2000.MCTEnabled
	}
	return ep
}
