// Package flash drives the light that fires for a still capture. On a board
// with an SPI port that is an addressable LED ring; elsewhere the ring is
// drawn on the console or skipped.
package flash

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/extra/devices/screen"
	"periph.io/x/host/v3"
)

// Light is a flash source. On takes a level in [0,1]. Close turns it off
// and releases the hardware.
type Light interface {
	On(level float64) error
	Off() error
	Close() error
}

// Driver names accepted by Open.
const (
	DriverSPI     = "spi"
	DriverConsole = "console"
	DriverNone    = "none"
)

type Options struct {
	Driver string
	// Port is the SPI port name; empty picks the first one registered.
	Port   string
	Pixels int
}

// Open builds the light for o.Driver. A missing SPI port degrades to the
// console ring rather than failing.
func Open(o Options) (Light, error) {
	if o.Pixels <= 0 {
		o.Pixels = 16
	}
	switch o.Driver {
	case DriverNone, "":
		return Nop{}, nil
	case DriverConsole:
		return NewRing(screen.New(o.Pixels), o.Pixels), nil
	case DriverSPI:
		if _, err := host.Init(); err != nil {
			return nil, fmt.Errorf("host init: %w", err)
		}
		p, err := spireg.Open(o.Port)
		if err != nil {
			log.Warn().Err(err).Str("port", o.Port).Msg("no SPI port, drawing flash ring on the console")
			return NewRing(screen.New(o.Pixels), o.Pixels), nil
		}
		r, err := OpenSPI(p, o.Pixels)
		if err != nil {
			p.Close()
			return nil, err
		}
		r.port = p
		return r, nil
	default:
		return nil, fmt.Errorf("unknown flash driver %q", o.Driver)
	}
}

// OpenSPI drives a WS2812-style ring on p.
func OpenSPI(p spi.Port, pixels int) (*Ring, error) {
	d, err := nrzled.NewSPI(p, &nrzled.Opts{
		NumPixels: pixels,
		Channels:  3,
		Freq:      2500 * physic.KiloHertz,
	})
	if err != nil {
		return nil, fmt.Errorf("nrzled: %w", err)
	}
	if err := d.Halt(); err != nil {
		return nil, err
	}
	return NewRing(d, pixels), nil
}

// Ring paints every pixel of a display the same white.
type Ring struct {
	mu     sync.Mutex
	drawer display.Drawer
	pixels int
	level  float64
	port   io.Closer
	closed bool
}

func NewRing(d display.Drawer, pixels int) *Ring {
	return &Ring{drawer: d, pixels: pixels}
}

func (r *Ring) On(level float64) error {
	level = min(1, max(0, level))
	v := uint8(level*255 + 0.5)
	img := image.NewNRGBA(image.Rect(0, 0, r.pixels, 1))
	for x := 0; x < r.pixels; x++ {
		img.SetNRGBA(x, 0, color.NRGBA{R: v, G: v, B: v, A: 255})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.drawer.Draw(r.drawer.Bounds(), img, image.Point{}); err != nil {
		return fmt.Errorf("flash on: %w", err)
	}
	r.level = level
	return nil
}

func (r *Ring) Off() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.level = 0
	return r.drawer.Halt()
}

// Close turns the ring off and releases its port. Later calls do nothing.
func (r *Ring) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.level = 0
	err := r.drawer.Halt()
	if r.port != nil {
		if cerr := r.port.Close(); err == nil {
			err = cerr
		}
		r.port = nil
	}
	return err
}

// Level is the last level set by On, or zero after Off.
func (r *Ring) Level() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.level
}

// Nop is a light that does nothing.
type Nop struct{}

func (Nop) On(float64) error { return nil }
func (Nop) Off() error       { return nil }
func (Nop) Close() error     { return nil }
