package jpeg2000

import (
	"github.com/cocosip/go-j2k/codec"
)

// Transfer syntax UIDs the core serves through the codec registry.
const (
	UIDJPEG2000Lossless = "1.2.840.10008.1.2.4.90"
	UIDJPEG2000         = "1.2.840.10008.1.2.4.91"
)

// transferCodec adapts the core to the registry's frame-at-a-time
// surface.
type transferCodec struct {
	uid          string
	name         string
	irreversible bool
}

var _ codec.Codec = (*transferCodec)(nil)

func (c *transferCodec) UID() string  { return c.uid }
func (c *transferCodec) Name() string { return c.name }

func (c *transferCodec) Encode(params codec.EncodeParams) ([]byte, error) {
	img, err := ImageFromInterleaved(params.PixelData,
		params.Width, params.Height, params.Components, params.BitDepth, params.Signed)
	if err != nil {
		return nil, err
	}
	p := DefaultEncodeParams()
	p.Irreversible = c.irreversible
	if params.Components >= 3 {
		p.MCT = MCTEnabled
	}
	if params.Options != nil {
		if err := params.Options.Validate(); err != nil {
			return nil, err
		}
	}
	enc, err := NewEncoder(p, img)
	if err != nil {
		return nil, err
	}
	return enc.Encode()
}

func (c *transferCodec) Decode(data []byte) (*codec.DecodeResult, error) {
	dec := NewDecoder(nil)
	img, err := dec.Decode(data)
	if err != nil {
		return nil, err
	}
	out, err := img.Interleaved()
	if err != nil {
		return nil, err
	}
	return &codec.DecodeResult{
		PixelData:  out,
		Width:      img.Rect.Width(),
		Height:     img.Rect.Height(),
		Components: len(img.Components),
		BitDepth:   img.Components[0].Precision,
		Signed:     img.Components[0].Signed,
	}, nil
}

func init() {
	codec.GlobalRegistry().Register(&transferCodec{
		uid: UIDJPEG2000Lossless, name: "JPEG 2000 Lossless",
	})
	codec.GlobalRegistry().Register(&transferCodec{
		uid: UIDJPEG2000, name: "JPEG 2000", irreversible: true,
	})
}
