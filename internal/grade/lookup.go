package grade

import "github.com/coreman2200/funtimes-lutcam/internal/cube"

// Affine is a per-channel diagonal scale plus bias.
type Affine struct {
	Scale [3]float32
	Bias  [3]float32
}

// DomainRemap maps the cube's input domain onto [0,1].
func DomainRemap(c *cube.Cube) Affine {
	var a Affine
	for i := 0; i < 3; i++ {
		s := 1 / (c.DomainMax[i] - c.DomainMin[i])
		a.Scale[i] = s
		a.Bias[i] = -c.DomainMin[i] * s
	}
	return a
}

// Apply remaps px in place and hard clamps to [0,1].
func (a Affine) Apply(px []Color) {
	for i := range px {
		px[i].R = clamp01(px[i].R*a.Scale[0] + a.Bias[0])
		px[i].G = clamp01(px[i].G*a.Scale[1] + a.Bias[1])
		px[i].B = clamp01(px[i].B*a.Scale[2] + a.Bias[2])
	}
}

// Lookup replaces each pixel with the trilinear interpolation of the eight
// lattice points surrounding it. Inputs are expected in [0,1].
func Lookup(c *cube.Cube, dst, src []Color) {
	for i := range src {
		r, g, b := Sample(c, src[i].R, src[i].G, src[i].B)
		dst[i] = Color{R: r, G: g, B: b, A: src[i].A}
	}
}

// Sample interpolates the cube at the continuous coordinate (r,g,b).
func Sample(c *cube.Cube, r, g, b float32) (float32, float32, float32) {
	n := c.Size
	ri, rf := cell(r, n)
	gi, gf := cell(g, n)
	bi, bf := cell(b, n)

	dr := cube.Stride
	dg := n * cube.Stride
	db := n * n * cube.Stride
	i000 := c.Index(ri, gi, bi)
	d := c.Data

	ch := func(off int) float32 {
		p := i000 + off
		c00 := lerp(d[p], d[p+dr], rf)
		c10 := lerp(d[p+dg], d[p+dg+dr], rf)
		c01 := lerp(d[p+db], d[p+db+dr], rf)
		c11 := lerp(d[p+db+dg], d[p+db+dg+dr], rf)
		return lerp(lerp(c00, c10, gf), lerp(c01, c11, gf), bf)
	}
	return ch(cube.OffR), ch(cube.OffG), ch(cube.OffB)
}

// cell returns the lower lattice index and the fraction towards the next one.
// The last cell is closed so v == 1 lands on the top lattice point.
func cell(v float32, n int) (int, float32) {
	x := clamp01(v) * float32(n-1)
	i := int(x)
	if i >= n-1 {
		i = n - 2
	}
	return i, x - float32(i)
}

func lerp(a, b, t float32) float32 { return a + (b-a)*t }
