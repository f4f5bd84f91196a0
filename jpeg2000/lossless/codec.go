// Package lossless provides the JPEG 2000 Lossless DICOM codec
// (transfer syntax 1.2.840.10008.1.2.4.90) on top of the core pipeline.
package lossless

import (
	"fmt"

	"github.com/cocosip/go-dicom/pkg/dicom/transfer"
	dicomcodec "github.com/cocosip/go-dicom/pkg/imaging/codec"
	"github.com/cocosip/go-dicom/pkg/imaging/imagetypes"

	"github.com/cocosip/go-j2k/jpeg2000"
)

var _ dicomcodec.Codec = (*Codec)(nil)

const codecName = "JPEG 2000 Lossless"

// Codec implements the JPEG 2000 Lossless codec against go-dicom's
// pixel-data interfaces.
type Codec struct {
	transferSyntax *transfer.Syntax
}

// NewCodec creates the codec for the standard lossless transfer syntax.
func NewCodec() *Codec {
	return NewCodecWithTransferSyntax(transfer.JPEG2000Lossless)
}

// NewCodecWithTransferSyntax builds the codec for an alternate JPEG 2000
// transfer syntax (e.g. the Part 2 multi-component variant).
func NewCodecWithTransferSyntax(ts *transfer.Syntax) *Codec {
	return &Codec{transferSyntax: ts}
}

// Name returns the codec name.
func (c *Codec) Name() string { return codecName }

// TransferSyntax returns the transfer syntax this codec handles.
func (c *Codec) TransferSyntax() *transfer.Syntax { return c.transferSyntax }

// GetDefaultParameters returns the default codec parameters.
func (c *Codec) GetDefaultParameters() dicomcodec.Parameters {
	return NewParameters()
}

// Encode compresses every frame of the source pixel data losslessly.
func (c *Codec) Encode(oldPixelData, newPixelData imagetypes.PixelData, parameters dicomcodec.Parameters) error {
	if oldPixelData == nil || newPixelData == nil {
		return fmt.Errorf("source and destination PixelData cannot be nil")
	}
	frameInfo := oldPixelData.GetFrameInfo()
	if frameInfo == nil {
		return fmt.Errorf("failed to get frame info from source pixel data")
	}
	params := extractParameters(parameters)
	if err := params.Validate(); err != nil {
		return fmt.Errorf("invalid JPEG 2000 lossless parameters: %w", err)
	}

	encParams := params.encodeParams()
	if frameInfo.SamplesPerPixel < 3 {
		encParams.MCT = jpeg2000.MCTNone
	}
	frameCount := oldPixelData.FrameCount()
	if frameCount == 0 {
		return fmt.Errorf("source pixel data is empty (no frames)")
	}
	for frame := 0; frame < frameCount; frame++ {
		raw, err := oldPixelData.GetFrame(frame)
		if err != nil {
			return fmt.Errorf("failed to get frame %d: %w", frame, err)
		}
		img, err := jpeg2000.ImageFromInterleaved(raw,
			int(frameInfo.Width), int(frameInfo.Height),
			int(frameInfo.SamplesPerPixel), int(frameInfo.BitsStored),
			frameInfo.PixelRepresentation != 0)
		if err != nil {
			return fmt.Errorf("frame %d: %w", frame, err)
		}
		enc, err := jpeg2000.NewEncoder(encParams, img)
		if err != nil {
			return fmt.Errorf("frame %d: %w", frame, err)
		}
		encoded, err := enc.Encode()
		if err != nil {
			return fmt.Errorf("JPEG 2000 encode failed for frame %d: %w", frame, err)
		}
		if err := newPixelData.AddFrame(encoded); err != nil {
			return fmt.Errorf("failed to add encoded frame %d: %w", frame, err)
		}
	}
	return nil
}

// Decode decompresses every frame.
func (c *Codec) Decode(oldPixelData, newPixelData imagetypes.PixelData, _ dicomcodec.Parameters) error {
	if oldPixelData == nil || newPixelData == nil {
		return fmt.Errorf("source and destination PixelData cannot be nil")
	}
	frameCount := oldPixelData.FrameCount()
	if frameCount == 0 {
		return fmt.Errorf("source pixel data is empty (no frames)")
	}
	for frame := 0; frame < frameCount; frame++ {
		raw, err := oldPixelData.GetFrame(frame)
		if err != nil {
			return fmt.Errorf("failed to get frame %d: %w", frame, err)
		}
		dec := jpeg2000.NewDecoder(nil)
		img, err := dec.Decode(raw)
		if err != nil {
			return fmt.Errorf("JPEG 2000 decode failed for frame %d: %w", frame, err)
		}
		out, err := img.Interleaved()
		if err != nil {
			return fmt.Errorf("frame %d: %w", frame, err)
		}
		if err := newPixelData.AddFrame(out); err != nil {
			return fmt.Errorf("failed to add decoded frame %d: %w", frame, err)
		}
	}
	return nil
}

// Register binds the codec into go-dicom's global registry.
func Register() {
	dicomcodec.GetGlobalRegistry().RegisterCodec(transfer.JPEG2000Lossless, NewCodec())
}

func init() {
	Register()
}
