package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"github.com/paazmaya/chinenshichanaka/internal/ir"
	"github.com/paazmaya/chinenshichanaka/internal/pipeline"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Write the fitted and quantized bitmap as an image (plus JSON sidecar)",
	RunE:  runPreview,
}

func init() {
	previewCmd.Flags().StringP("input", "i", "", "Input image or SVG file")
	previewCmd.Flags().StringP("output", "o", "", "Output image file (png, bmp, gif, tif, jpg)")
	previewCmd.MarkFlagRequired("input")
	previewCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(previewCmd)
}

type previewMeta struct {
	Width   int      `json:"width"`
	Height  int      `json:"height"`
	Colors  int      `json:"colors"`
	Palette []string `json:"palette"`
}

func runPreview(cmd *cobra.Command, args []string) error {
	inputPath, _ := cmd.Flags().GetString("input")
	outputPath, _ := cmd.Flags().GetString("output")

	opts, err := optionsFromConfig(conf)
	if err != nil {
		return err
	}

	inputData, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	result, err := pipeline.Run(inputData, opts)
	if err != nil {
		return fmt.Errorf("conversion: %w", err)
	}

	if err := imaging.Save(result.Bitmap.Image(), outputPath); err != nil {
		return fmt.Errorf("writing preview: %w", err)
	}

	// Write JSON sidecar
	meta := previewMeta{
		Width:   result.Bitmap.Width,
		Height:  result.Bitmap.Height,
		Colors:  result.Colors,
		Palette: palette(result.Bitmap),
	}
	metaJSON, _ := json.MarshalIndent(meta, "", "  ")
	metaPath := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".json"
	if err := os.WriteFile(metaPath, metaJSON, 0644); err != nil {
		return fmt.Errorf("writing sidecar: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Preview %dx%d, %d colors → %s\n", meta.Width, meta.Height, meta.Colors, outputPath)
	fmt.Fprintf(cmd.OutOrStdout(), "Sidecar: %s\n", metaPath)
	return nil
}

// palette lists the distinct colors of b as sorted #rrggbb strings.
func palette(b *ir.PixelBuffer) []string {
	seen := make(map[string]struct{})
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			c := b.RGBAt(x, y)
			seen[fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
