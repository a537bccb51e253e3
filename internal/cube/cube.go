package cube

import "fmt"

// Channel offsets inside one lattice entry. Entries are stored B,G,R,A so the
// lookup side reads them back with these offsets, never by position.
const (
	OffB = 0
	OffG = 1
	OffR = 2
	OffA = 3

	Stride = 4
)

// MinSize and MaxSize bound LUT_3D_SIZE.
const (
	MinSize = 2
	MaxSize = 256
)

// Cube is an immutable 3D colour lookup table. Entry (r,g,b) lives at
// lattice index r + g*Size + b*Size*Size, red varying fastest like the
// .cube file body.
type Cube struct {
	Name      string
	Size      int
	Data      []float32
	DomainMin [3]float32
	DomainMax [3]float32
}

// DefaultDomain reports whether the cube expects inputs in [0,1]^3.
func (c *Cube) DefaultDomain() bool {
	return c.DomainMin == [3]float32{0, 0, 0} && c.DomainMax == [3]float32{1, 1, 1}
}

// Index returns the offset into Data of lattice point (r,g,b).
func (c *Cube) Index(r, g, b int) int {
	return ((b*c.Size+g)*c.Size + r) * Stride
}

// At returns the output colour stored at lattice point (r,g,b).
func (c *Cube) At(r, g, b int) (float32, float32, float32) {
	i := c.Index(r, g, b)
	return c.Data[i+OffR], c.Data[i+OffG], c.Data[i+OffB]
}

// Validate checks the structural invariants.
func (c *Cube) Validate() error {
	if c.Size < MinSize || c.Size > MaxSize {
		return fmt.Errorf("cube %q: size %d out of range", c.Name, c.Size)
	}
	if want := c.Size * c.Size * c.Size * Stride; len(c.Data) != want {
		return fmt.Errorf("cube %q: %d values, want %d", c.Name, len(c.Data), want)
	}
	for i := 0; i < 3; i++ {
		if c.DomainMax[i] <= c.DomainMin[i] {
			return fmt.Errorf("cube %q: degenerate domain on channel %d", c.Name, i)
		}
	}
	return nil
}

// Identity builds a cube whose every lattice point maps to its own
// coordinate. The lattice is regular over [0,1]^3.
func Identity(name string, n int) *Cube {
	c := &Cube{
		Name:      name,
		Size:      n,
		Data:      make([]float32, n*n*n*Stride),
		DomainMax: [3]float32{1, 1, 1},
	}
	step := float32(1) / float32(max(1, n-1))
	for b := 0; b < n; b++ {
		for g := 0; g < n; g++ {
			for r := 0; r < n; r++ {
				i := c.Index(r, g, b)
				c.Data[i+OffR] = float32(r) * step
				c.Data[i+OffG] = float32(g) * step
				c.Data[i+OffB] = float32(b) * step
				c.Data[i+OffA] = 1
			}
		}
	}
	return c
}
