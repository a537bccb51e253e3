// Package capture runs one camera device: a frame loop feeding a preview
// handler and one-shot still captures with flash.
package capture

import (
	"context"
	"errors"
	"image"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-lutcam/internal/device"
	"github.com/coreman2200/funtimes-lutcam/internal/flash"
)

var (
	ErrNoInput       = errors.New("capture session has no input")
	ErrNotRunning    = errors.New("capture session is not running")
	ErrNoPhotoOutput = errors.New("capture session has no photo output")
)

// AutoFlashLuma is the mean luma below which auto flash fires.
const AutoFlashLuma = 0.25

type FlashMode int

const (
	FlashAuto FlashMode = iota
	FlashOn
	FlashOff
)

func (m FlashMode) String() string {
	switch m {
	case FlashOn:
		return "on"
	case FlashOff:
		return "off"
	default:
		return "auto"
	}
}

func (m FlashMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *FlashMode) UnmarshalText(b []byte) error {
	*m = ParseFlashMode(string(b))
	return nil
}

// Next cycles auto -> on -> off -> auto.
func (m FlashMode) Next() FlashMode {
	switch m {
	case FlashAuto:
		return FlashOn
	case FlashOn:
		return FlashOff
	default:
		return FlashAuto
	}
}

func ParseFlashMode(s string) FlashMode {
	switch s {
	case "on":
		return FlashOn
	case "off":
		return FlashOff
	default:
		return FlashAuto
	}
}

// FrameHandler receives every preview frame on the frame goroutine.
type FrameHandler func(img image.Image)

type Orientation int

const (
	Portrait Orientation = iota
	Landscape
)

// Connection is how frames leave the device.
type Connection struct {
	Orientation Orientation
}

type PhotoRequest struct {
	Flash FlashMode
}

type PhotoResult struct {
	Image   image.Image
	Flashed bool
	Err     error
}

type Options struct {
	// FlashHold is how long the light is lit before the still is taken.
	FlashHold time.Duration
	// CaptureTimeout bounds a single still capture.
	CaptureTimeout time.Duration
}

// Session binds a device to a frame output and a photo output.
type Session struct {
	light flash.Light
	opts  Options

	mu     sync.Mutex
	input  device.Device
	photo  bool
	frames FrameHandler
	conn   Connection
	stream device.Stream
	cancel context.CancelFunc
	done   chan struct{}

	luma atomic.Uint64 // float64 bits of the latest frame's mean luma
}

func New(light flash.Light, opts Options) *Session {
	if light == nil {
		light = flash.Nop{}
	}
	if opts.CaptureTimeout <= 0 {
		opts.CaptureTimeout = 5 * time.Second
	}
	s := &Session{light: light, opts: opts}
	s.setLuma(1)
	return s
}

func (s *Session) AddInput(d device.Device) error {
	if d == nil {
		return ErrNoInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.input != nil {
		return errors.New("capture session already has an input")
	}
	s.input = d
	return nil
}

// RemoveInput stops streaming and detaches the device.
func (s *Session) RemoveInput() {
	s.Stop()
	s.mu.Lock()
	s.input = nil
	s.mu.Unlock()
}

func (s *Session) AddPhotoOutput() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.input == nil {
		return ErrNoInput
	}
	s.photo = true
	return nil
}

func (s *Session) AddFrameOutput(h FrameHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.input == nil {
		return ErrNoInput
	}
	s.frames = h
	return nil
}

func (s *Session) RemoveOutputs() {
	s.mu.Lock()
	s.photo = false
	s.frames = nil
	s.mu.Unlock()
}

func (s *Session) SetConnection(c Connection) {
	s.mu.Lock()
	s.conn = c
	s.mu.Unlock()
}

func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream != nil
}

// Start opens the device and starts the frame loop. Starting a running
// session is a no-op.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.input == nil {
		return ErrNoInput
	}
	if s.stream != nil {
		return nil
	}
	st, err := s.input.Open()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.stream, s.cancel, s.done = st, cancel, make(chan struct{})
	go s.loop(ctx, st, s.done)
	log.Debug().Str("device", s.input.ID()).Msg("capture session started")
	return nil
}

// Stop halts the frame loop and closes the stream. Safe to call repeatedly.
func (s *Session) Stop() {
	s.mu.Lock()
	st, cancel, done := s.stream, s.cancel, s.done
	s.stream, s.cancel, s.done = nil, nil, nil
	s.mu.Unlock()
	if st == nil {
		return
	}
	cancel()
	<-done
	if err := st.Close(); err != nil {
		log.Warn().Err(err).Msg("closing capture stream")
	}
}

func (s *Session) loop(ctx context.Context, st device.Stream, done chan struct{}) {
	defer close(done)
	for {
		img, err := st.Next(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Warn().Err(err).Msg("capture stream ended")
			}
			return
		}
		s.setLuma(meanLuma(img))

		s.mu.Lock()
		h, conn := s.frames, s.conn
		s.mu.Unlock()
		if h != nil {
			h(orient(img, conn))
		}
	}
}

// CapturePhoto takes one still. The returned channel yields exactly one
// result and is then closed.
func (s *Session) CapturePhoto(req PhotoRequest) <-chan PhotoResult {
	out := make(chan PhotoResult, 1)

	s.mu.Lock()
	photo, st, in, conn := s.photo, s.stream, s.input, s.conn
	s.mu.Unlock()

	switch {
	case !photo:
		out <- PhotoResult{Err: ErrNoPhotoOutput}
		close(out)
		return out
	case st == nil:
		out <- PhotoResult{Err: ErrNotRunning}
		close(out)
		return out
	}

	fire := false
	if in.Capabilities().Has(device.CapFlash) {
		switch req.Flash {
		case FlashOn:
			fire = true
		case FlashAuto:
			fire = s.Luma() < AutoFlashLuma
		}
	}

	go func() {
		defer close(out)
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.CaptureTimeout)
		defer cancel()

		if fire {
			if err := s.light.On(1); err != nil {
				log.Warn().Err(err).Msg("flash did not fire")
				fire = false
			} else {
				defer func() {
					if err := s.light.Off(); err != nil {
						log.Warn().Err(err).Msg("flash did not turn off")
					}
				}()
				if s.opts.FlashHold > 0 {
					time.Sleep(s.opts.FlashHold)
				}
			}
		}
		img, err := st.Capture(ctx, device.Still{Flash: fire})
		if err != nil {
			out <- PhotoResult{Err: err}
			return
		}
		out <- PhotoResult{Image: orient(img, conn), Flashed: fire}
	}()
	return out
}

// Luma is the mean luma of the latest preview frame, 1 before any frame.
func (s *Session) Luma() float64 {
	return math.Float64frombits(s.luma.Load())
}

func (s *Session) setLuma(v float64) { s.luma.Store(math.Float64bits(v)) }
