package main

import (
	"bytes"
	"encoding/json"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paazmaya/chinenshichanaka/internal/ico"
	"github.com/paazmaya/chinenshichanaka/internal/pipeline"
	"github.com/paazmaya/chinenshichanaka/internal/quant"
)

// writePNG saves a 60x40 two-tone image and returns its path.
func writePNG(t *testing.T, dir string) string {
	t.Helper()
	img := imaging.New(60, 40, color.NRGBA{R: 255, A: 255})
	for y := 0; y < 40; y++ {
		for x := 30; x < 60; x++ {
			img.SetNRGBA(x, y, color.NRGBA{B: 255, A: 255})
		}
	}
	path := filepath.Join(dir, "input.png")
	require.NoError(t, imaging.Save(img, path))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func readIcon(t *testing.T, path string) ico.Entry {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	dir, err := ico.Parse(data)
	require.NoError(t, err)
	require.Len(t, dir.Entries, 1)
	return dir.Entries[0]
}

func TestConvertPaths(t *testing.T) {
	dir := t.TempDir()
	input := writePNG(t, dir)
	output := filepath.Join(dir, "output.ico")

	var out bytes.Buffer
	require.NoError(t, convertPaths(&out, input, output, pipeline.DefaultOptions()))
	assert.Equal(t, "Output saved to '"+output+"'\n", out.String())

	e := readIcon(t, output)
	assert.Equal(t, 32, e.Width)
	assert.Equal(t, 24, e.BitCount)
}

func TestConvertPathsFailuresWriteNothing(t *testing.T) {
	dir := t.TempDir()
	input := writePNG(t, dir)
	garbage := filepath.Join(dir, "garbage.png")
	require.NoError(t, os.WriteFile(garbage, []byte("not really a png"), 0644))

	tests := map[string][2]string{
		"wrong suffix":  {input, filepath.Join(dir, "out.png")},
		"missing input": {filepath.Join(dir, "nope.png"), filepath.Join(dir, "a.ico")},
		"bad input":     {garbage, filepath.Join(dir, "b.ico")},
	}
	for name, paths := range tests {
		t.Run(name, func(t *testing.T) {
			err := convertPaths(&bytes.Buffer{}, paths[0], paths[1], pipeline.DefaultOptions())
			require.Error(t, err)
			_, statErr := os.Stat(paths[1])
			assert.True(t, os.IsNotExist(statErr), "output %s was created", paths[1])
		})
	}

	err := convertPaths(&bytes.Buffer{}, input, filepath.Join(dir, "out.png"), pipeline.DefaultOptions())
	assert.ErrorIs(t, err, errSuffix)
}

func TestRootCommand(t *testing.T) {
	dir := t.TempDir()
	input := writePNG(t, dir)
	output := filepath.Join(dir, "cmd.ico")

	out, err := execute(t, input, output, "--size", "48", "--colors", "4", "--method", "mediancut")
	require.NoError(t, err)
	assert.Contains(t, out, "Output saved to")
	assert.Equal(t, 48, readIcon(t, output).Width)

	_, err = execute(t, input, filepath.Join(dir, "cmd.bmp"), "--size", "48")
	assert.EqualError(t, err, "the output file has to use the 'ico' suffix")

	_, err = execute(t, input, output, "--size", "300")
	assert.ErrorIs(t, err, pipeline.ErrInvalidOptions)
	_, err = execute(t, input, output, "--size", "32", "--method", "octree")
	assert.Error(t, err)
	_, err = execute(t, input, output, "--method", "neuquant")
	require.NoError(t, err)
}

func TestEncodeCommand(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "pixels.rgb")
	require.NoError(t, os.WriteFile(raw, bytes.Repeat([]byte{10, 20, 30}, 8*4), 0644))
	output := filepath.Join(dir, "raw.ico")

	out, err := execute(t, "encode", "-i", raw, "-o", output, "--width", "8", "--height", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "Encoded 8x4 RGB")
	e := readIcon(t, output)
	assert.Equal(t, 8, e.Width)
	assert.Equal(t, 4, e.Height)

	_, err = execute(t, "encode", "-i", raw, "-o", output, "--width", "9", "--height", "4")
	assert.Error(t, err)
}

func TestPreviewCommand(t *testing.T) {
	dir := t.TempDir()
	input := writePNG(t, dir)
	output := filepath.Join(dir, "preview.png")

	out, err := execute(t, "preview", "-i", input, "-o", output, "--size", "16", "--colors", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Sidecar:")

	img, err := imaging.Open(output)
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())

	raw, err := os.ReadFile(filepath.Join(dir, "preview.json"))
	require.NoError(t, err)
	var meta previewMeta
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, 16, meta.Width)
	assert.LessOrEqual(t, meta.Colors, 2)
	assert.Len(t, meta.Palette, meta.Colors)
	for _, c := range meta.Palette {
		assert.True(t, strings.HasPrefix(c, "#") && len(c) == 7, c)
	}
}

func TestIdentifyCommand(t *testing.T) {
	dir := t.TempDir()
	input := writePNG(t, dir)
	output := filepath.Join(dir, "id.ico")
	_, err := execute(t, input, output, "--size", "32")
	require.NoError(t, err)

	out, err := execute(t, "identify", input)
	require.NoError(t, err)
	assert.Contains(t, out, "Format:      png")
	assert.Contains(t, out, "Dimensions:  60 x 40")

	out, err = execute(t, "identify", output)
	require.NoError(t, err)
	assert.Contains(t, out, "Format:      ico")
	assert.Contains(t, out, "Icon entries: 1")
	assert.Contains(t, out, "32x32, 24-bit bmp")
}

func TestLoadConfigLayers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte("SIZE=24\nCOLORS=4\nMETHOD=mediancut\n"), 0644))

	newFlags := func() *cobra.Command {
		cmd := &cobra.Command{}
		addPipelineFlags(cmd)
		return cmd
	}

	v, err := loadConfig(newFlags().PersistentFlags(), path)
	require.NoError(t, err)
	opts, err := optionsFromConfig(v)
	require.NoError(t, err)
	assert.Equal(t, 24, opts.OutputSize)
	assert.Equal(t, 4, opts.MaxColors)
	assert.Equal(t, quant.MethodMedianCut, opts.Method)
	assert.Equal(t, ico.PayloadBMP, opts.Payload)

	t.Setenv("CHINENSHICHANAKA_COLORS", "8")
	v, err = loadConfig(newFlags().PersistentFlags(), path)
	require.NoError(t, err)
	opts, err = optionsFromConfig(v)
	require.NoError(t, err)
	assert.Equal(t, 8, opts.MaxColors)

	cmd := newFlags()
	require.NoError(t, cmd.PersistentFlags().Set("colors", "2"))
	v, err = loadConfig(cmd.PersistentFlags(), path)
	require.NoError(t, err)
	opts, err = optionsFromConfig(v)
	require.NoError(t, err)
	assert.Equal(t, 2, opts.MaxColors)
	assert.Equal(t, 24, opts.OutputSize)

	_, err = loadConfig(newFlags().PersistentFlags(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
