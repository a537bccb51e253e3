package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-lutcam/internal/cube"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute(), out.String())
	return out.String()
}

func TestGenThenInspect(t *testing.T) {
	p := filepath.Join(t.TempDir(), "id.cube")
	run(t, "gen", "-n", "3", "--title", "flat", p)

	c, err := cube.ParseFile(p)
	require.NoError(t, err)
	assert.Equal(t, "flat", c.Name)
	assert.Equal(t, 3, c.Size)

	out := run(t, "inspect", p)
	assert.Contains(t, out, "name    flat")
	assert.Contains(t, out, "size    3 (27 entries)")
	assert.Contains(t, out, "white   1.0000 1.0000 1.0000")
}

func TestGenRejectsSize(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"gen", "-n", "1", filepath.Join(t.TempDir(), "x.cube")})
	assert.Error(t, cmd.Execute())
}

func TestApplyMirrorsPNG(t *testing.T) {
	dir := t.TempDir()
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	src.SetNRGBA(1, 0, color.NRGBA{B: 255, A: 255})
	in := filepath.Join(dir, "in.png")
	fh, err := os.Create(in)
	require.NoError(t, err)
	require.NoError(t, png.Encode(fh, src))
	require.NoError(t, fh.Close())

	lut := filepath.Join(dir, "id.cube")
	run(t, "gen", "-n", "2", lut)
	out := filepath.Join(dir, "out.png")
	run(t, "apply", "--lut", lut, "--mirror", in, out)

	img, err := readImage(out)
	require.NoError(t, err)
	r, _, b, _ := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0), r>>8)
	assert.Equal(t, uint32(255), b>>8)
}

func TestWriteImageFormats(t *testing.T) {
	dir := t.TempDir()
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	for _, ext := range []string{".png", ".jpg", ".bmp", ".tiff"} {
		p := filepath.Join(dir, "x"+ext)
		require.NoError(t, writeImage(p, img, 90), ext)
		_, err := readImage(p)
		assert.NoError(t, err, ext)
	}
	assert.Error(t, writeImage(filepath.Join(dir, "x.webp"), img, 90))
}

func TestConfigInitAndShow(t *testing.T) {
	p := filepath.Join(t.TempDir(), "lutcam.toml")
	run(t, "--config", p, "config", "init")
	out := run(t, "--config", p, "config", "show")
	assert.Contains(t, out, "backend: sim")
	assert.Contains(t, out, "jpeg_quality: 70")
}
