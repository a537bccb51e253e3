package cube

import (
	"bufio"
	"fmt"
	"io"
)

// Encode writes c as a .cube document that Parse reads back losslessly up to
// the printed precision.
func Encode(w io.Writer, c *Cube) error {
	if err := c.Validate(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "TITLE \"%s\"\n", c.Name)
	fmt.Fprintf(bw, "LUT_3D_SIZE %d\n", c.Size)
	if !c.DefaultDomain() {
		fmt.Fprintf(bw, "DOMAIN_MIN %g %g %g\n", c.DomainMin[0], c.DomainMin[1], c.DomainMin[2])
		fmt.Fprintf(bw, "DOMAIN_MAX %g %g %g\n", c.DomainMax[0], c.DomainMax[1], c.DomainMax[2])
	}
	n := c.Size
	for b := 0; b < n; b++ {
		for g := 0; g < n; g++ {
			for r := 0; r < n; r++ {
				rr, gg, bb := c.At(r, g, b)
				fmt.Fprintf(bw, "%.6f %.6f %.6f\n", rr, gg, bb)
			}
		}
	}
	return bw.Flush()
}
