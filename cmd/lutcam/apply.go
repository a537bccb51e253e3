package main

import (
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/coreman2200/funtimes-lutcam/internal/cube"
	"github.com/coreman2200/funtimes-lutcam/internal/grade"
)

func applyCmd() *cobra.Command {
	var (
		lut       string
		mirror    bool
		intensity float64
		quality   int
	)
	c := &cobra.Command{
		Use:   "apply <in> <out>",
		Short: "Grade an image file through a .cube LUT",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			var cb *cube.Cube
			if lut != "" {
				var err error
				if cb, err = cube.ParseFile(lut); err != nil {
					return err
				}
			}
			img, err := readImage(args[0])
			if err != nil {
				return err
			}
			e := &grade.Engine{Intensity: float32(intensity)}
			out := e.Apply(img, cb, mirror)
			if err := writeImage(args[1], out, quality); err != nil {
				return err
			}
			log.Info().Str("in", args[0]).Str("out", args[1]).Str("lut", lut).Bool("mirror", mirror).Msg("graded")
			return nil
		},
	}
	c.Flags().StringVarP(&lut, "lut", "l", "", "path to a .cube file")
	c.Flags().BoolVar(&mirror, "mirror", false, "flip the output horizontally")
	c.Flags().Float64Var(&intensity, "intensity", 1, "blend of graded over original, 0..1")
	c.Flags().IntVar(&quality, "quality", 92, "JPEG quality")
	return c
}

func readImage(path string) (image.Image, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	img, format, err := image.Decode(fh)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	log.Debug().Str("path", path).Str("format", format).Msg("decoded")
	return img, nil
}

// writeImage encodes by the output extension.
func writeImage(path string, img image.Image, quality int) (err error) {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := fh.Close(); err == nil {
			err = cerr
		}
	}()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		return png.Encode(fh, img)
	case ".jpg", ".jpeg":
		return jpeg.Encode(fh, img, &jpeg.Options{Quality: quality})
	case ".bmp":
		return bmp.Encode(fh, img)
	case ".tif", ".tiff":
		return tiff.Encode(fh, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("unsupported output format %q", ext)
	}
}
