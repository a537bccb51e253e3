package grade

import (
	"image"
	"image/color"
	"runtime"
	"sync"

	"github.com/coreman2200/funtimes-lutcam/internal/cube"
)

// Engine applies colour cubes to images. The zero value grades at full
// intensity using GOMAXPROCS workers.
type Engine struct {
	// Intensity blends the graded colour over the input, 0..1. Zero means 1.
	Intensity float32
	// Workers bounds the number of row bands processed concurrently.
	Workers int
}

var defaultEngine Engine

// Apply grades img with the default engine.
func Apply(img image.Image, c *cube.Cube, mirror bool) image.Image {
	return defaultEngine.Apply(img, c, mirror)
}

// Apply returns img graded through c and optionally flipped horizontally.
// With no cube and no mirror the input itself is returned. Otherwise the
// result is a new *image.NRGBA covering the same bounds as img.
func (e *Engine) Apply(img image.Image, c *cube.Cube, mirror bool) image.Image {
	if img == nil || (c == nil && !mirror) {
		return img
	}
	b := img.Bounds()
	out := image.NewNRGBA(b)
	if b.Empty() {
		return out
	}

	var remap *Affine
	if c != nil && !c.DefaultDomain() {
		a := DomainRemap(c)
		remap = &a
	}
	alpha := e.Intensity
	if alpha <= 0 || alpha > 1 {
		alpha = 1
	}

	rows := b.Dy()
	workers := e.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > rows {
		workers = rows
	}
	band := (rows + workers - 1) / workers

	var wg sync.WaitGroup
	for y0 := b.Min.Y; y0 < b.Max.Y; y0 += band {
		y1 := min(y0+band, b.Max.Y)
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			src := make([]Color, b.Dx())
			work := make([]Color, b.Dx())
			graded := make([]Color, b.Dx())
			for y := y0; y < y1; y++ {
				readRow(img, y, src)
				row := src
				if c != nil {
					copy(work, src)
					if remap != nil {
						remap.Apply(work)
					}
					Lookup(c, graded, work)
					if alpha < 1 {
						Mix(graded, src, graded, alpha)
					}
					row = graded
				}
				writeRow(out, y, row, mirror)
			}
		}(y0, y1)
	}
	wg.Wait()
	return out
}

// readRow converts row y of img into straight-alpha floats.
func readRow(img image.Image, y int, dst []Color) {
	b := img.Bounds()
	switch src := img.(type) {
	case *image.NRGBA:
		p := src.Pix[src.PixOffset(b.Min.X, y):]
		for i := range dst {
			dst[i] = Color{
				R: float32(p[i*4+0]) / 255,
				G: float32(p[i*4+1]) / 255,
				B: float32(p[i*4+2]) / 255,
				A: float32(p[i*4+3]) / 255,
			}
		}
	default:
		for i := range dst {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+i, y)).(color.NRGBA)
			dst[i] = Color{
				R: float32(c.R) / 255,
				G: float32(c.G) / 255,
				B: float32(c.B) / 255,
				A: float32(c.A) / 255,
			}
		}
	}
}

// writeRow stores row y, flipping about the vertical centreline if mirror.
func writeRow(out *image.NRGBA, y int, row []Color, mirror bool) {
	b := out.Bounds()
	p := out.Pix[out.PixOffset(b.Min.X, y):]
	w := len(row)
	for i, c := range row {
		x := i
		if mirror {
			x = w - 1 - i
		}
		p[x*4+0] = to8(c.R)
		p[x*4+1] = to8(c.G)
		p[x*4+2] = to8(c.B)
		p[x*4+3] = to8(c.A)
	}
}
