package capture

import (
	"image"
	"image/color"
)

// meanLuma estimates Rec. 601 luma over a sparse grid of samples.
func meanLuma(img image.Image) float64 {
	b := img.Bounds()
	if b.Empty() {
		return 0
	}
	step := max(1, min(b.Dx(), b.Dy())/32)
	var sum float64
	var n int
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			sum += 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
			n++
		}
	}
	return sum / float64(n) / 255
}

// orient rotates landscape frames a quarter turn clockwise for a portrait
// connection.
func orient(img image.Image, c Connection) image.Image {
	b := img.Bounds()
	if c.Orientation != Portrait || b.Dx() <= b.Dy() {
		return img
	}
	w, h := b.Dx(), b.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, h, w))
	if src, ok := img.(*image.NRGBA); ok {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				si := src.PixOffset(b.Min.X+x, b.Min.Y+y)
				di := out.PixOffset(h-1-y, x)
				copy(out.Pix[di:di+4], src.Pix[si:si+4])
			}
		}
		return out
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Set(h-1-y, x, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}
