package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/paazmaya/chinenshichanaka/internal/decode"
)

var identifyCmd = &cobra.Command{
	Use:   "identify [file]",
	Short: "Inspect image format, dimensions and icon directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runIdentify,
}

func init() {
	rootCmd.AddCommand(identifyCmd)
}

func runIdentify(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	info, err := decode.Info(data)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "File:        %s\n", path)
	fmt.Fprintf(out, "Format:      %s\n", info.Format)
	if info.Format == decode.FormatSVG {
		fmt.Fprintln(out, "Dimensions:  scalable")
	} else {
		fmt.Fprintf(out, "Dimensions:  %d x %d\n", info.Width, info.Height)
	}
	fmt.Fprintf(out, "Color model: %s\n", info.ColorModel)
	fmt.Fprintf(out, "File size:   %d bytes (%.1f KB)\n", len(data), float64(len(data))/1024)

	if len(info.Entries) > 0 {
		fmt.Fprintf(out, "Icon entries: %d\n", len(info.Entries))
		for i, e := range info.Entries {
			fmt.Fprintf(out, "  #%d %dx%d, %d-bit %s, %d bytes at offset %d\n",
				i, e.Width, e.Height, e.BitCount, e.Payload, e.Size, e.Offset)
		}
	}
	return nil
}
