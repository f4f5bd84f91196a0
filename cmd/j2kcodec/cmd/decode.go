package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cocosip/go-j2k/jpeg2000"
)

// NewDecodeCmd decompresses a code stream back to raw interleaved
// samples.
func NewDecodeCmd(ctx context.Context) *cobra.Command {
	var (
		output string
		window []int
		tile   int
	)
	cmd := &cobra.Command{
		Use:   "decode <j2k-file>",
		Short: "decompress a .j2k code stream to raw interleaved samples",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			dec := jpeg2000.NewDecoder(nil)
			if len(window) == 4 {
				dec.SetWindow(jpeg2000.Rect{X0: window[0], Y0: window[1], X1: window[2], Y1: window[3]})
			}

			var img *jpeg2000.Image
			if tile >= 0 {
				if _, err := dec.ReadHeader(raw); err != nil {
					return err
				}
				if err := dec.DecodeTile(tile); err != nil {
					return err
				}
				img = dec.Image()
			} else {
				img, err = dec.Decode(raw)
				if err != nil {
					return err
				}
			}
			for _, w := range dec.Warnings {
				slog.Warn("decode warning", "message", w)
			}

			out, err := img.Interleaved()
			if err != nil {
				return err
			}
			if output == "" {
				output = args[0] + ".raw"
			}
			if err := os.WriteFile(output, out, 0o644); err != nil {
				return err
			}
			slog.Info("decoded", "input", args[0], "output", output,
				"width", img.Rect.Width(), "height", img.Rect.Height(),
				"components", len(img.Components))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&output, "output", "", "output path (default <input>.raw)")
	f.IntSliceVar(&window, "window", nil, "decode window x0,y0,x1,y1")
	f.IntVar(&tile, "tile", -1, "decode only this tile index")
	_ = ctx
	return cmd
}
