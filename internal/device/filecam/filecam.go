// Package filecam turns a video file into a camera by decoding it through
// ffmpeg into raw RGB frames.
package filecam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/coreman2200/funtimes-lutcam/internal/device"
)

var errUnsupported = errors.New("not supported by file camera")

type Options struct {
	Path     string
	Position device.Position
	// Width and Height of delivered frames. Zero keeps the probed size.
	Width, Height int
	FPS           int
	Loop          bool
}

// Device plays a video file as if it were a fixed-lens camera.
type Device struct {
	opts   Options
	format device.Format
	mu     sync.Mutex
	locked bool
}

// New probes the file and returns a device for it.
func New(o Options) (*Device, error) {
	f, err := probe(o.Path)
	if err != nil {
		return nil, err
	}
	if o.Width <= 0 || o.Height <= 0 {
		o.Width, o.Height = f.Width, f.Height
	}
	if o.FPS <= 0 {
		o.FPS = 30
	}
	return &Device{opts: o, format: f}, nil
}

type probeResult struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

func probe(path string) (device.Format, error) {
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return device.Format{}, fmt.Errorf("probe %s: %w", path, err)
	}
	return parseProbe(out)
}

func parseProbe(out string) (device.Format, error) {
	var pr probeResult
	if err := json.Unmarshal([]byte(out), &pr); err != nil {
		return device.Format{}, fmt.Errorf("probe output: %w", err)
	}
	for _, s := range pr.Streams {
		if s.CodecType == "video" && s.Width > 0 && s.Height > 0 {
			return device.Format{Width: s.Width, Height: s.Height}, nil
		}
	}
	return device.Format{}, errors.New("no video stream")
}

func (d *Device) ID() string                        { return "file:" + d.opts.Path }
func (d *Device) Kind() device.Kind                 { return device.WideAngle }
func (d *Device) Position() device.Position         { return d.opts.Position }
func (d *Device) ActiveFormat() device.Format       { return d.format }
func (d *Device) ZoomRange() (float64, float64)     { return 1, 1 }
func (d *Device) Capabilities() device.Capabilities { return 0 }

func (d *Device) Lock() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.locked {
		return errors.New("device already locked for configuration")
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
	if f == 1 {
		return nil
	}
	return errUnsupported
}

func (d *Device) SetPointOfInterest(device.Point) error { return errUnsupported }

// Open starts ffmpeg. Frames are pulled at the configured rate; the pipe
// throttles the decoder.
func (d *Device) Open() (device.Stream, error) {
	ctx, cancel := context.WithCancel(context.Background())
	pr, pw := io.Pipe()

	in := ffmpeg.KwArgs{}
	if d.opts.Loop {
		in["stream_loop"] = -1
	}
	cmd := ffmpeg.Input(d.opts.Path, in).
		Output("pipe:1", ffmpeg.KwArgs{
			"format":  "rawvideo",
			"pix_fmt": "rgb24",
			"vf":      fmt.Sprintf("scale=%d:%d", d.opts.Width, d.opts.Height),
		}).
		WithOutput(pw).
		Silent(true)
	cmd.Context = ctx

	s := &stream{
		w:      d.opts.Width,
		h:      d.opts.Height,
		r:      pr,
		cancel: cancel,
		tick:   time.NewTicker(time.Second / time.Duration(d.opts.FPS)),
		done:   make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		err := cmd.Run()
		if err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Str("path", d.opts.Path).Msg("ffmpeg decode ended")
		}
		pw.CloseWithError(io.EOF)
	}()
	return s, nil
}

type stream struct {
	w, h   int
	r      *io.PipeReader
	cancel context.CancelFunc
	tick   *time.Ticker
	done   chan struct{}

	mu   sync.Mutex
	last *image.NRGBA
}

func (s *stream) Next(ctx context.Context) (image.Image, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.tick.C:
	}
	buf := make([]byte, s.w*s.h*3)
	if _, err := io.ReadFull(s.r, buf); err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	img := rgbToNRGBA(buf, s.w, s.h)

	s.mu.Lock()
	s.last = img
	s.mu.Unlock()
	return img, nil
}

// Capture returns a copy of the most recent frame; a file has no flash.
func (s *stream) Capture(ctx context.Context, _ device.Still) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil, errors.New("no frame decoded yet")
	}
	cp := image.NewNRGBA(s.last.Rect)
	copy(cp.Pix, s.last.Pix)
	return cp, nil
}

func (s *stream) Close() error {
	s.cancel()
	s.tick.Stop()
	err := s.r.Close()
	<-s.done
	return err
}

func rgbToNRGBA(rgb []byte, w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i, j := 0, 0; i+2 < len(rgb); i, j = i+3, j+4 {
		img.Pix[j+0] = rgb[i+0]
		img.Pix[j+1] = rgb[i+1]
		img.Pix[j+2] = rgb[i+2]
		img.Pix[j+3] = 255
	}
	return img
}
