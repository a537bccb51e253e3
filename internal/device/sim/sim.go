// Package sim provides synthetic cameras that render an animated gradient,
// useful for running the capture core without hardware.
package sim

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"sync"
	"time"

	"github.com/coreman2200/funtimes-lutcam/internal/device"
)

// ErrLocked is returned by Lock while another configuration is in progress.
var ErrLocked = errors.New("device already locked for configuration")

// Options describe one synthetic camera.
type Options struct {
	ID       string
	Position device.Position
	Kind     device.Kind
	Format   device.Format
	MinZoom  float64
	MaxZoom  float64
	Caps     device.Capabilities

	// Frame size of delivered preview frames and stills.
	Width, Height int
	FPS           int
	// Speed animates the gradient phase, cycles per second.
	Speed float64
	// Axis picks the gradient direction: 0 horizontal, 1 vertical, 2 diagonal.
	Axis int
}

// Device is a synthetic camera.
type Device struct {
	opts Options

	mu     sync.Mutex
	locked bool
	zoom   float64
	poi    device.Point
	t0     time.Time

	// OpenErr, when set, makes Open fail. Used to simulate attach failures.
	OpenErr error
}

func New(o Options) *Device {
	if o.Kind == "" {
		o.Kind = device.WideAngle
	}
	if o.Width <= 0 || o.Height <= 0 {
		o.Width, o.Height = 180, 320
	}
	if o.FPS <= 0 {
		o.FPS = 30
	}
	if o.MaxZoom < o.MinZoom {
		o.MaxZoom = o.MinZoom
	}
	return &Device{opts: o, zoom: max(1, o.MinZoom), poi: device.Point{X: 0.5, Y: 0.5}, t0: time.Now()}
}

// Pair returns the usual back (flash, focus, zoom) and front (fixed focus,
// no flash) cameras.
func Pair(width, height, fps int) device.List {
	back := New(Options{
		ID: "sim-back", Position: device.Back, Format: device.Format{Width: 4032, Height: 3024},
		MinZoom: 0.5, MaxZoom: 15, Caps: device.CapFocusPOI | device.CapExposurePOI | device.CapZoom | device.CapFlash,
		Width: width, Height: height, FPS: fps, Speed: 0.1, Axis: 1,
	})
	front := New(Options{
		ID: "sim-front", Position: device.Front, Format: device.Format{Width: 1920, Height: 1080},
		MinZoom: 1, MaxZoom: 4, Caps: device.CapExposurePOI | device.CapZoom,
		Width: width, Height: height, FPS: fps, Speed: 0.05, Axis: 2,
	})
	return device.List{back, front}
}

func (d *Device) ID() string                        { return d.opts.ID }
func (d *Device) Kind() device.Kind                 { return d.opts.Kind }
func (d *Device) Position() device.Position         { return d.opts.Position }
func (d *Device) ActiveFormat() device.Format       { return d.opts.Format }
func (d *Device) Capabilities() device.Capabilities { return d.opts.Caps }

func (d *Device) ZoomRange() (float64, float64) { return d.opts.MinZoom, d.opts.MaxZoom }

func (d *Device) Lock() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.locked {
		return ErrLocked
	}
	d.locked = true
	return nil
}

func (d *Device) Unlock() {
	d.mu.Lock()
	d.locked = false
	d.mu.Unlock()
}

func (d *Device) SetZoom(f float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.locked {
		return errors.New("zoom change without configuration lock")
	}
	if f < d.opts.MinZoom || f > d.opts.MaxZoom {
		return errors.New("zoom factor outside device range")
	}
	d.zoom = f
	return nil
}

func (d *Device) SetPointOfInterest(p device.Point) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.locked {
		return errors.New("point of interest change without configuration lock")
	}
	if !d.opts.Caps.Has(device.CapFocusPOI) && !d.opts.Caps.Has(device.CapExposurePOI) {
		return errors.New("point of interest not supported")
	}
	d.poi = p
	return nil
}

// Zoom returns the zoom factor last applied.
func (d *Device) Zoom() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.zoom
}

// PointOfInterest returns the point last applied.
func (d *Device) PointOfInterest() device.Point {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.poi
}

func (d *Device) Open() (device.Stream, error) {
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}
	return &stream{dev: d, tick: time.NewTicker(time.Second / time.Duration(d.opts.FPS))}, nil
}

// Render draws the gradient at time t (seconds).
func (d *Device) Render(t float64, gain float64) *image.NRGBA {
	d.mu.Lock()
	zoom := d.zoom
	d.mu.Unlock()

	w, h := d.opts.Width, d.opts.Height
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// Zoom crops around the centre.
			u := 0.5 + (float64(x)/float64(max(1, w-1))-0.5)/zoom
			v := 0.5 + (float64(y)/float64(max(1, h-1))-0.5)/zoom
			var p float64
			switch d.opts.Axis {
			case 0:
				p = u
			case 1:
				p = v
			default:
				p = (u + v) / 2
			}
			phase := p*2*math.Pi + t*2*math.Pi*d.opts.Speed
			img.SetNRGBA(x, y, color.NRGBA{
				R: channel((0.5 + 0.5*math.Sin(phase)) * gain),
				G: channel((0.5 + 0.5*math.Sin(phase+2*math.Pi/3)) * gain),
				B: channel((0.5 + 0.5*math.Sin(phase+4*math.Pi/3)) * gain),
				A: 255,
			})
		}
	}
	return img
}

func channel(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

type stream struct {
	dev  *Device
	tick *time.Ticker

	mu     sync.Mutex
	closed bool
}

func (s *stream) Next(ctx context.Context) (image.Image, error) {
	if s.isClosed() {
		return nil, errors.New("stream closed")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.tick.C:
	}
	return s.dev.Render(time.Since(s.dev.t0).Seconds(), 1), nil
}

func (s *stream) Capture(ctx context.Context, st device.Still) (image.Image, error) {
	if s.isClosed() {
		return nil, errors.New("stream closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	gain := 1.0
	if st.Flash {
		gain = 1.25
	}
	return s.dev.Render(time.Since(s.dev.t0).Seconds(), gain), nil
}

func (s *stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.tick.Stop()
	}
	return nil
}

func (s *stream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
