package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cocosip/go-j2k/jpeg2000"
	"github.com/cocosip/go-j2k/jpeg2000/t2"
)

// NewEncodeCmd compresses a raw planar/interleaved sample file into a
// JPEG 2000 code stream.
func NewEncodeCmd(ctx context.Context) *cobra.Command {
	var (
		width, height, comps, precision int
		signed, irreversible, mct       bool
		layers, levels                  int
		rates                           []float64
		distoratio                      []float64
		progression                     string
		roiShift, roiComp               int
		writePLT                        bool
		output                          string
	)
	cmd := &cobra.Command{
		Use:   "encode <raw-file>",
		Short: "compress raw interleaved samples to a .j2k code stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			img, err := jpeg2000.ImageFromInterleaved(raw, width, height, comps, precision, signed)
			if err != nil {
				return err
			}

			p := jpeg2000.DefaultEncodeParams()
			p.NumLayers = layers
			p.NumResolutions = levels + 1
			p.Irreversible = irreversible
			p.Rates = rates
			p.Distoratio = distoratio
			p.ROIShift = roiShift
			p.ROIComponent = roiComp
			p.WritePLT = writePLT
			if mct && comps >= 3 {
				p.MCT = jpeg2000.MCTEnabled
			}
			var ok bool
			if p.Progression, ok = parseProgression(progression); !ok {
				return fmt.Errorf("unknown progression %q", progression)
			}

			enc, err := jpeg2000.NewEncoder(p, img)
			if err != nil {
				return err
			}
			stream, err := enc.Encode()
			if err != nil {
				return err
			}
			if enc.RateControlErr != nil {
				slog.Warn("rate control fell back to best effort", "error", enc.RateControlErr)
			}

			if output == "" {
				output = args[0] + ".j2k"
			}
			if err := os.WriteFile(output, stream, 0o644); err != nil {
				return err
			}
			slog.Info("encoded",
				"trace", uuid.NewString(),
				"input", args[0], "output", output,
				"in_bytes", len(raw), "out_bytes", len(stream))
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&width, "width", 0, "image width")
	f.IntVar(&height, "height", 0, "image height")
	f.IntVar(&comps, "components", 1, "component count")
	f.IntVar(&precision, "precision", 8, "bits per sample")
	f.BoolVar(&signed, "signed", false, "samples are signed")
	f.BoolVar(&irreversible, "irreversible", false, "use the 9/7 lossy transform")
	f.BoolVar(&mct, "mct", true, "apply the component transform to RGB input")
	f.IntVar(&layers, "layers", 1, "quality layers")
	f.IntVar(&levels, "levels", 5, "wavelet decomposition levels")
	f.Float64SliceVar(&rates, "rates", nil, "per-layer rates in bits per pixel")
	f.Float64SliceVar(&distoratio, "distoratio", nil, "per-layer PSNR targets in dB")
	f.StringVar(&progression, "progression", "LRCP", "packet progression (LRCP RLCP RPCL PCRL CPRL)")
	f.IntVar(&roiShift, "roi-shift", 0, "region-of-interest upshift")
	f.IntVar(&roiComp, "roi-component", 0, "component the ROI shift applies to")
	f.BoolVar(&writePLT, "plt", false, "write packet-length markers")
	f.StringVar(&output, "output", "", "output path (default <input>.j2k)")
	_ = cmd.MarkFlagRequired("width")
	_ = cmd.MarkFlagRequired("height")
	_ = ctx
	return cmd
}

func parseProgression(s string) (t2.Progression, bool) {
	switch s {
	case "LRCP":
		return t2.LRCP, true
	case "RLCP":
		return t2.RLCP, true
	case "RPCL":
		return t2.RPCL, true
	case "PCRL":
		return t2.PCRL, true
	case "CPRL":
		return t2.CPRL, true
	}
	return t2.LRCP, false
}
