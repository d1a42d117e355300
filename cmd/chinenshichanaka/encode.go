package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/paazmaya/chinenshichanaka/internal/ico"
	"github.com/paazmaya/chinenshichanaka/internal/ir"
)

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Encode raw 24-bit RGB data to an icon",
	RunE:  runEncode,
}

func init() {
	encodeCmd.Flags().StringP("input", "i", "", "Input raw RGB file")
	encodeCmd.Flags().StringP("output", "o", "", "Output icon file")
	encodeCmd.Flags().Int("width", 0, "Image width")
	encodeCmd.Flags().Int("height", 0, "Image height")
	encodeCmd.MarkFlagRequired("input")
	encodeCmd.MarkFlagRequired("output")
	encodeCmd.MarkFlagRequired("width")
	encodeCmd.MarkFlagRequired("height")
	rootCmd.AddCommand(encodeCmd)
}

func runEncode(cmd *cobra.Command, args []string) error {
	inputPath, _ := cmd.Flags().GetString("input")
	outputPath, _ := cmd.Flags().GetString("output")
	width, _ := cmd.Flags().GetInt("width")
	height, _ := cmd.Flags().GetInt("height")

	payload, err := ico.ParsePayload(conf.GetString("payload"))
	if err != nil {
		return err
	}

	pixels, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	expected := width * height * 3
	if width <= 0 || height <= 0 || len(pixels) != expected {
		return fmt.Errorf("expected %d bytes for %dx%d RGB, got %d", expected, width, height, len(pixels))
	}

	encoded, err := ico.Encode(&ir.PixelBuffer{Width: width, Height: height, Channels: 3, Pixels: pixels}, payload)
	if err != nil {
		return fmt.Errorf("encoding: %w", err)
	}

	if err := os.WriteFile(outputPath, encoded, 0644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Encoded %dx%d RGB → %s (%d bytes)\n", width, height, outputPath, len(encoded))
	return nil
}
