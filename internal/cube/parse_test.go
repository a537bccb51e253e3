package cube

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lattice2 emits a size-2 body in file order (red fastest) using fn to pick
// the printed values for each lattice point.
func lattice2(fn func(r, g, b int) string) string {
	var sb strings.Builder
	for b := 0; b < 2; b++ {
		for g := 0; g < 2; g++ {
			for r := 0; r < 2; r++ {
				sb.WriteString(fn(r, g, b))
				sb.WriteByte('\n')
			}
		}
	}
	return sb.String()
}

func identity2(r, g, b int) string { return fmt.Sprintf("%d %d %d", r, g, b) }

func TestParseValidCube(t *testing.T) {
	src := "# comment\n\nLUT_3D_SIZE 2\n" + lattice2(identity2)
	c, err := Parse("id", strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Size)
	assert.Len(t, c.Data, 4*2*2*2)
	assert.True(t, c.DefaultDomain())
	require.NoError(t, c.Validate())

	r, g, b := c.At(1, 0, 0)
	assert.Equal(t, [3]float32{1, 0, 0}, [3]float32{r, g, b})
	r, g, b = c.At(0, 1, 1)
	assert.Equal(t, [3]float32{0, 1, 1}, [3]float32{r, g, b})
}

func TestParseStoresBGRA(t *testing.T) {
	src := "LUT_3D_SIZE 2\n" + lattice2(func(r, g, b int) string {
		if r == 0 && g == 0 && b == 0 {
			return "0.25 0.5 0.75"
		}
		return identity2(r, g, b)
	})
	c, err := Parse("order", strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, []float32{0.75, 0.5, 0.25, 1}, c.Data[:4])
}

func TestParseCaseInsensitiveSize(t *testing.T) {
	src := "lut_3d_size 2\n" + lattice2(identity2)
	_, err := Parse("lower", strings.NewReader(src))
	require.NoError(t, err)
}

func TestParseNormalizesByteValues(t *testing.T) {
	src := "LUT_3D_SIZE 2\n" + lattice2(func(r, g, b int) string {
		return fmt.Sprintf("%d %d %d", r*255, g*255, b*51)
	})
	c, err := Parse("bytes", strings.NewReader(src))
	require.NoError(t, err)
	for i, v := range c.Data {
		assert.GreaterOrEqual(t, v, float32(0), "value %d", i)
		assert.LessOrEqual(t, v, float32(1), "value %d", i)
	}
	_, _, b := c.At(1, 1, 1)
	assert.InDelta(t, 51.0/255.0, b, 1e-6)
}

func TestParseNormalizesByObservedMax(t *testing.T) {
	src := "LUT_3D_SIZE 2\n" + lattice2(func(r, g, b int) string {
		return fmt.Sprintf("%d %d %d", r*1023, g*512, b)
	})
	c, err := Parse("tenbit", strings.NewReader(src))
	require.NoError(t, err)
	r, g, _ := c.At(1, 1, 0)
	assert.InDelta(t, 1.0, r, 1e-6)
	assert.InDelta(t, 512.0/1023.0, g, 1e-6)
}

func TestParseClampsNegativeValues(t *testing.T) {
	src := "LUT_3D_SIZE 2\n" + strings.Repeat("-0.5 0 2\n", 8)
	c, err := Parse("neg", strings.NewReader(src))
	require.NoError(t, err)
	for i, v := range c.Data {
		assert.True(t, v >= 0 && v <= 1, "entry %d = %g", i, v)
	}
	r, g, b := c.At(0, 0, 0)
	assert.Zero(t, r)
	assert.Zero(t, g)
	assert.InDelta(t, 2.0/255.0, b, 1e-6)
}

func TestParseDomain(t *testing.T) {
	src := "LUT_3D_SIZE 2\nDOMAIN_MIN 0 0.1 0\nDOMAIN_MAX 1 0.9 2\n" + lattice2(identity2)
	c, err := Parse("domain", strings.NewReader(src))
	require.NoError(t, err)
	assert.False(t, c.DefaultDomain())
	assert.Equal(t, [3]float32{0, 0.1, 0}, c.DomainMin)
	assert.Equal(t, [3]float32{1, 0.9, 2}, c.DomainMax)
}

func TestParseSupplementalDirectives(t *testing.T) {
	src := "TITLE \"Warm Film\"\nLUT_3D_SIZE 2\nLUT_3D_INPUT_RANGE 0 4\n" + lattice2(identity2)
	c, err := Parse("file-name", strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, "Warm Film", c.Name)
	assert.Equal(t, [3]float32{4, 4, 4}, c.DomainMax)
}

func TestParseIgnoresOtherTokenCounts(t *testing.T) {
	src := "LUT_3D_SIZE 2\nSOMETHING 1 2 3 4\n0.5 0.5\n" + lattice2(identity2)
	c, err := Parse("noise", strings.NewReader(src))
	require.NoError(t, err)
	assert.Len(t, c.Data, 32)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want error
	}{
		{"missing size", lattice2(identity2), ErrMissingSize},
		{"size not integer", "LUT_3D_SIZE two\n" + lattice2(identity2), ErrInvalidFormat},
		{"size too small", "LUT_3D_SIZE 1\n0 0 0\n", ErrInvalidFormat},
		{"too few triples", "LUT_3D_SIZE 2\n0 0 0\n1 1 1\n", ErrInvalidDataCount},
		{"too many triples", "LUT_3D_SIZE 2\n" + lattice2(identity2) + "0 0 0\n", ErrInvalidDataCount},
		{"non-numeric triple", "LUT_3D_SIZE 2\n0 x 0\n" + lattice2(identity2), ErrInvalidFormat},
		{"nan triple", "LUT_3D_SIZE 2\nNaN 0 0\n", ErrInvalidFormat},
		{"short domain", "LUT_3D_SIZE 2\nDOMAIN_MIN 0 0\n" + lattice2(identity2), ErrInvalidFormat},
		{"degenerate domain", "LUT_3D_SIZE 2\nDOMAIN_MIN 0 0 1\nDOMAIN_MAX 1 1 1\n" + lattice2(identity2), ErrInvalidDomain},
		{"1d lut", "LUT_1D_SIZE 16\n", ErrInvalidFormat},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := Parse("bad", strings.NewReader(tc.src))
			assert.Nil(t, c)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
			var pe *ParseError
			assert.True(t, errors.As(err, &pe))
		})
	}
}

func TestParseFileNamesCube(t *testing.T) {
	path := filepath.Join(t.TempDir(), "teal-orange.cube")
	require.NoError(t, os.WriteFile(path, []byte("LUT_3D_SIZE 2\n"+lattice2(identity2)), 0o644))
	c, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "teal-orange", c.Name)
}

func TestEncodeRoundTrip(t *testing.T) {
	in := Identity("ident", 5)
	in.DomainMax = [3]float32{2, 2, 2}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, in))

	out, err := Parse("other", &buf)
	require.NoError(t, err)
	assert.Equal(t, "ident", out.Name)
	assert.Equal(t, in.Size, out.Size)
	assert.Equal(t, in.DomainMax, out.DomainMax)
	require.Len(t, out.Data, len(in.Data))
	for i := range in.Data {
		assert.InDelta(t, in.Data[i], out.Data[i], 1e-5)
	}
}
