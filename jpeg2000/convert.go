package jpeg2000

import "fmt"

// Raster conversion between the planar Image the core works on and the
// interleaved byte frames pixel-data pipelines exchange.

// ImageFromInterleaved builds a planar image from an interleaved frame:
// samples are 1 or 2 bytes wide (little-endian), components interleaved
// per pixel.
func ImageFromInterleaved(raw []byte, width, height, components, precision int, signed bool) (*Image, error) {
	bytesPer := 1
	if precision > 8 {
		bytesPer = 2
	}
	need := width * height * components * bytesPer
	if len(raw) < need {
		return nil, fmt.Errorf("%w: frame holds %d bytes, need %d", ErrInconsistentParams, len(raw), need)
	}
	samples, err := UnpackSamples(raw[:need], bytesPer, signed)
	if err != nil {
		return nil, err
	}
	img := NewImage(width, height, components, precision, signed)
	n := width * height
	for c := 0; c < components; c++ {
		plane := img.Components[c].Data
		for i := 0; i < n; i++ {
			plane[i] = samples[i*components+c]
		}
	}
	return img, nil
}

// Interleaved serializes the image back to an interleaved frame with the
// given precision's natural byte width.
func (img *Image) Interleaved() ([]byte, error) {
	if len(img.Components) == 0 {
		return nil, fmt.Errorf("%w: image with no components", ErrInconsistentParams)
	}
	precision := img.Components[0].Precision
	signed := img.Components[0].Signed
	bytesPer := 1
	if precision > 8 {
		bytesPer = 2
	}
	n := img.Rect.Area()
	comps := len(img.Components)
	samples := make([]int32, n*comps)
	for c := 0; c < comps; c++ {
		plane := img.Components[c].Data
		for i := 0; i < n; i++ {
			samples[i*comps+c] = plane[i]
		}
	}
	return PackSamples(samples, bytesPer, signed)
}
