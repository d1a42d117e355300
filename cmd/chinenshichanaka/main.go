package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "chinenshichanaka <input> [output]",
	Short: "Convert an image or SVG document to a 16 color favicon.ico",
	Long: `Converts a raster image (PNG, JPEG, GIF, BMP, TIFF, WebP, ICO) or an SVG
document to a single-image icon file. The picture is fitted into a square,
padded with its top-left pixel color and reduced to a small palette.`,
	Args:              cobra.RangeArgs(1, 2),
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runConvert,
}

func init() {
	addPipelineFlags(rootCmd)
}

// setup configures logging and loads the layered configuration before any
// command runs.
func setup(cmd *cobra.Command, args []string) error {
	log.SetOutput(cmd.ErrOrStderr())
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}

	path, _ := cmd.Flags().GetString("config")
	v, err := loadConfig(cmd.Flags(), path)
	if err != nil {
		return err
	}
	conf = v
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
