package jpeg2000

import "fmt"

// Component is one channel of an image. Samples are stored in int32
// regardless of precision; Precision and Signed describe the nominal
// range.
type Component struct {
	DX, DY    int // subsampling on the reference grid
	Precision int
	Signed    bool
	Rect      Rect // component coordinates (canvas / (DX,DY))
	Data      []int32
}

// Image is the caller-supplied raster the core borrows. Rect is the
// image area on the reference grid.
type Image struct {
	Rect       Rect
	Components []Component
}

// NewImage builds an image anchored at the canvas origin with identical
// full-resolution components.
func NewImage(width, height, numComponents, precision int, signed bool) *Image {
	img := &Image{Rect: Rect{X1: width, Y1: height}}
	for c := 0; c < numComponents; c++ {
		img.Components = append(img.Components, Component{
			DX: 1, DY: 1,
			Precision: precision,
			Signed:    signed,
			Rect:      Rect{X1: width, Y1: height},
			Data:      make([]int32, width*height),
		})
	}
	return img
}

// Validate checks the raster against the core's limits.
func (img *Image) Validate() error {
	if len(img.Components) == 0 {
		return fmt.Errorf("%w: image with no components", ErrInconsistentParams)
	}
	for i, c := range img.Components {
		if c.DX <= 0 || c.DY <= 0 {
			return fmt.Errorf("%w: component %d subsampling %dx%d", ErrInconsistentParams, i, c.DX, c.DY)
		}
		if c.Precision < 1 || c.Precision > maxPrecision {
			return fmt.Errorf("%w: component %d precision %d", ErrInconsistentParams, i, c.Precision)
		}
		if len(c.Data) < c.Rect.Area() {
			return fmt.Errorf("%w: component %d has %d samples for %d positions",
				ErrInconsistentParams, i, len(c.Data), c.Rect.Area())
		}
	}
	return nil
}

// PackSamples serializes a component plane into bytes with the given
// sample width (1, 2 or 4 bytes, little-endian) and signedness; this is
// the updateTileData surface the surrounding application consumes.
func PackSamples(data []int32, bytesPerSample int, signed bool) ([]byte, error) {
	switch bytesPerSample {
	case 1:
		out := make([]byte, len(data))
		for i, v := range data {
			out[i] = byte(clampToWidth(v, 8, signed))
		}
		return out, nil
	case 2:
		out := make([]byte, 2*len(data))
		for i, v := range data {
			u := uint16(clampToWidth(v, 16, signed))
			out[2*i] = byte(u)
			out[2*i+1] = byte(u >> 8)
		}
		return out, nil
	case 4:
		out := make([]byte, 4*len(data))
		for i, v := range data {
			u := uint32(v)
			out[4*i] = byte(u)
			out[4*i+1] = byte(u >> 8)
			out[4*i+2] = byte(u >> 16)
			out[4*i+3] = byte(u >> 24)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %d bytes per sample", ErrInconsistentParams, bytesPerSample)
}

// UnpackSamples reverses PackSamples; this is the copyTileData surface.
func UnpackSamples(raw []byte, bytesPerSample int, signed bool) ([]int32, error) {
	switch bytesPerSample {
	case 1:
		out := make([]int32, len(raw))
		for i, b := range raw {
			if signed {
				out[i] = int32(int8(b))
			} else {
				out[i] = int32(b)
			}
		}
		return out, nil
	case 2:
		if len(raw)%2 != 0 {
			return nil, fmt.Errorf("%w: odd byte count for 16-bit samples", ErrInconsistentParams)
		}
		out := make([]int32, len(raw)/2)
		for i := range out {
			u := uint16(raw[2*i]) | uint16(raw[2*i+1])<<8
			if signed {
				out[i] = int32(int16(u))
			} else {
				out[i] = int32(u)
			}
		}
		return out, nil
	case 4:
		if len(raw)%4 != 0 {
			return nil, fmt.Errorf("%w: byte count for 32-bit samples", ErrInconsistentParams)
		}
		out := make([]int32, len(raw)/4)
		for i := range out {
			u := uint32(raw[4*i]) | uint32(raw[4*i+1])<<8 | uint32(raw[4*i+2])<<16 | uint32(raw[4*i+3])<<24
			out[i] = int32(u)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %d bytes per sample", ErrInconsistentParams, bytesPerSample)
}

func clampToWidth(v int32, bits int, signed bool) int32 {
	var lo, hi int32
	if signed {
		hi = 1<<(bits-1) - 1
		lo = -hi - 1
	} else {
		hi = int32(1)<<bits - 1
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
