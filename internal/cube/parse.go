package cube

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Parse failures. Callers classify with errors.Is.
var (
	ErrMissingSize      = errors.New("missing LUT_3D_SIZE")
	ErrInvalidFormat    = errors.New("invalid format")
	ErrInvalidDataCount = errors.New("invalid data count")
	ErrInvalidDomain    = errors.New("invalid domain")
)

// ParseError carries the cube name and, when known, the offending line.
type ParseError struct {
	Name string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse %s: line %d: %v", e.Name, e.Line, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Name, e.Err)
}

func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ParseFile parses the .cube file at path. The cube is named after the file
// unless a TITLE directive says otherwise.
func ParseFile(path string) (*Cube, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Parse(name, f)
}

// Parse reads a .cube document. No partial cube is ever returned.
func Parse(name string, r io.Reader) (*Cube, error) {
	var (
		size      int
		haveSize  bool
		domainMin = [3]float64{0, 0, 0}
		domainMax = [3]float64{1, 1, 1}
		raw       []float64
		maxRaw    float64
		lineNo    int
	)
	fail := func(err error, format string, args ...any) error {
		return &ParseError{Name: name, Line: lineNo, Err: fmt.Errorf("%w: "+format, append([]any{err}, args...)...)}
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		key := strings.ToUpper(fields[0])

		switch {
		case strings.HasPrefix(key, "LUT_3D_SIZE"):
			n, err := strconv.Atoi(fields[len(fields)-1])
			if err != nil {
				return nil, fail(ErrInvalidFormat, "size %q", fields[len(fields)-1])
			}
			if n < MinSize || n > MaxSize {
				return nil, fail(ErrInvalidFormat, "size %d outside [%d,%d]", n, MinSize, MaxSize)
			}
			size, haveSize = n, true

		case strings.HasPrefix(key, "DOMAIN_MIN"), strings.HasPrefix(key, "DOMAIN_MAX"):
			v, err := parseTriple(fields[1:])
			if err != nil {
				return nil, fail(ErrInvalidFormat, "%s: %v", key, err)
			}
			if strings.HasPrefix(key, "DOMAIN_MIN") {
				domainMin = v
			} else {
				domainMax = v
			}

		case key == "TITLE":
			if t := strings.Trim(strings.TrimSpace(line[len(fields[0]):]), `"`); t != "" {
				name = t
			}

		case key == "LUT_3D_INPUT_RANGE":
			if len(fields) != 3 {
				return nil, fail(ErrInvalidFormat, "LUT_3D_INPUT_RANGE wants 2 values")
			}
			lo, err1 := parseNumber(fields[1])
			hi, err2 := parseNumber(fields[2])
			if err1 != nil || err2 != nil {
				return nil, fail(ErrInvalidFormat, "LUT_3D_INPUT_RANGE %q %q", fields[1], fields[2])
			}
			domainMin = [3]float64{lo, lo, lo}
			domainMax = [3]float64{hi, hi, hi}

		case key == "LUT_1D_SIZE":
			return nil, fail(ErrInvalidFormat, "1D LUTs are not supported")

		case len(fields) == 3:
			v, err := parseTriple(fields)
			if err != nil {
				return nil, fail(ErrInvalidFormat, "%v", err)
			}
			for _, x := range v {
				if x > maxRaw {
					maxRaw = x
				}
			}
			raw = append(raw, v[0], v[1], v[2])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &ParseError{Name: name, Err: fmt.Errorf("%w: %v", ErrInvalidFormat, err)}
	}
	lineNo = 0

	if !haveSize {
		return nil, fail(ErrMissingSize, "no size directive")
	}
	entries := size * size * size
	if got := len(raw) / 3; got != entries {
		return nil, fail(ErrInvalidDataCount, "got %d triples, want %d", got, entries)
	}
	for i := 0; i < 3; i++ {
		if domainMax[i] <= domainMin[i] {
			return nil, fail(ErrInvalidDomain, "channel %d: max %g <= min %g", i, domainMax[i], domainMin[i])
		}
	}

	// Integer-style bodies (0..255) and out-of-range float bodies are
	// rescaled into [0,1]. Dividing by the observed maximum is a heuristic.
	// Values still outside [0,1] after scaling are clamped.
	scale := 1.0
	if maxRaw > 1.0 {
		if maxRaw <= 255.0 {
			scale = 1.0 / 255.0
		} else {
			scale = 1.0 / maxRaw
		}
	}

	c := &Cube{
		Name: name,
		Size: size,
		Data: make([]float32, entries*Stride),
	}
	for i := 0; i < 3; i++ {
		c.DomainMin[i] = float32(domainMin[i])
		c.DomainMax[i] = float32(domainMax[i])
	}
	for i := 0; i < entries; i++ {
		o := i * Stride
		c.Data[o+OffR] = unit(raw[i*3+0] * scale)
		c.Data[o+OffG] = unit(raw[i*3+1] * scale)
		c.Data[o+OffB] = unit(raw[i*3+2] * scale)
		c.Data[o+OffA] = 1
	}
	return c, nil
}

func unit(v float64) float32 {
	return float32(min(1, max(0, v)))
}

func parseTriple(tokens []string) ([3]float64, error) {
	var out [3]float64
	if len(tokens) != 3 {
		return out, fmt.Errorf("want 3 values, got %d", len(tokens))
	}
	for i, tok := range tokens {
		v, err := parseNumber(tok)
		if err != nil {
			return out, err
		}
		out[i] = v
	}
	return out, nil
}

func parseNumber(tok string) (float64, error) {
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a number: %q", tok)
	}
	return v, nil
}
