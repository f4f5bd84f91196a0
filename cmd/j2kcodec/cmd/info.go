package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cocosip/go-j2k/jpeg2000"
)

// NewInfoCmd prints the main-header summary of a code stream.
func NewInfoCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <j2k-file>",
		Short: "print code stream geometry and coding parameters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			dec := jpeg2000.NewDecoder(nil)
			info, err := dec.ReadHeader(raw)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "size:        %dx%d\n", info.Rect.Width(), info.Rect.Height())
			fmt.Fprintf(out, "components:  %d (%d bits, signed=%v)\n", info.NumComponents, info.Precision, info.Signed)
			fmt.Fprintf(out, "tiles:       %d\n", info.NumTiles)
			fmt.Fprintf(out, "layers:      %d\n", info.NumLayers)
			fmt.Fprintf(out, "resolutions: %d\n", info.NumResolutions)
			fmt.Fprintf(out, "transform:   %s\n", transformName(info.Irreversible))
			fmt.Fprintf(out, "progression: %s\n", info.Progression)
			return nil
		},
	}
	_ = ctx
	return cmd
}

func transformName(irreversible bool) string {
	if irreversible {
		return "9/7 irreversible"
	}
	return "5/3 reversible"
}
