// Package session is the capture session controller: a state machine that
// owns one capture session, serializes every configuration change on its own
// queue and publishes immutable snapshots for the UI.
package session

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-lutcam/internal/capture"
	"github.com/coreman2200/funtimes-lutcam/internal/cube"
	"github.com/coreman2200/funtimes-lutcam/internal/device"
	"github.com/coreman2200/funtimes-lutcam/internal/diagnostics"
	"github.com/coreman2200/funtimes-lutcam/internal/dispatch"
	"github.com/coreman2200/funtimes-lutcam/internal/grade"
	"github.com/coreman2200/funtimes-lutcam/internal/library"
	"github.com/coreman2200/funtimes-lutcam/internal/permission"
)

// Session is the capture session the controller drives. *capture.Session
// implements it.
type Session interface {
	AddInput(device.Device) error
	RemoveInput()
	AddPhotoOutput() error
	AddFrameOutput(capture.FrameHandler) error
	RemoveOutputs()
	SetConnection(capture.Connection)
	Start() error
	Stop()
	Running() bool
	CapturePhoto(capture.PhotoRequest) <-chan capture.PhotoResult
}

// Saver persists finished photos. *library.Library implements it.
type Saver interface {
	Save(ctx context.Context, img image.Image, m library.Meta) (string, error)
}

type Deps struct {
	Devices    device.Discovery
	Session    Session
	Authorizer permission.Authorizer
	Cubes      *cube.Registry
	Saver      Saver
	Engine     *grade.Engine
}

type Options struct {
	Position device.Position
	Mode     Mode
	Flash    capture.FlashMode
	// Ceilings caps zoom per mode; missing modes use DefaultCeilings.
	Ceilings map[Mode]float64
	// SelectLUT names the cube selected at startup.
	SelectLUT   string
	SaveTimeout time.Duration
}

type Controller struct {
	sess     Session
	selector *device.Selector
	gate     *permission.Gate
	cubes    *cube.Registry
	saver    Saver
	engine   *grade.Engine
	opts     Options

	queue *dispatch.Queue // session context
	pub   *publisher      // UI context

	// Owned by the session queue.
	phase      Phase
	configured bool
	position   device.Position
	mode       Mode
	flash      capture.FlashMode
	zoom       float64
	profile    device.Profile
	sources    map[string]string // .cube path -> cube name

	// Read from the frame goroutine and photo completions.
	selected atomic.Pointer[cube.Cube]
	mirror   atomic.Bool
	gen      atomic.Uint64

	inflight sync.WaitGroup
}

func New(d Deps, o Options) *Controller {
	if d.Session == nil {
		d.Session = capture.New(nil, capture.Options{})
	}
	if d.Cubes == nil {
		d.Cubes = cube.NewRegistry()
	}
	if d.Engine == nil {
		d.Engine = &grade.Engine{}
	}
	if d.Authorizer == nil {
		d.Authorizer = permission.NewStatic(permission.NotDetermined, permission.NotDetermined, false)
	}
	if o.Mode == "" {
		o.Mode = Photo
	}
	if o.SaveTimeout <= 0 {
		o.SaveTimeout = 10 * time.Second
	}

	c := &Controller{
		sess:     d.Session,
		selector: device.NewSelector(d.Devices),
		cubes:    d.Cubes,
		saver:    d.Saver,
		engine:   d.Engine,
		opts:     o,
		queue:    dispatch.NewQueue("session"),
		phase:    Unconfigured,
		position: o.Position,
		mode:     o.Mode,
		flash:    o.Flash,
		zoom:     device.MinZoomFloor,
		sources:  map[string]string{},
	}
	c.gate = permission.NewGate(d.Authorizer, permission.Hooks{
		OnGranted: c.Start,
		OnRevoked: c.Stop,
		OnChange: func(st permission.Status) {
			c.pub.update(func(s *Snapshot) { s.Authorization = st })
		},
	})
	c.pub = newPublisher(Snapshot{
		Phase:    Unconfigured,
		Position: o.Position,
		Mode:     o.Mode,
		Flash:    o.Flash,
		Zoom:     device.MinZoomFloor,
		MinZoom:  device.MinZoomFloor,
		MaxZoom:  device.MinZoomFloor,
		LUTs:     d.Cubes.List(),
	}, &c.gen)

	if o.SelectLUT != "" {
		c.SelectLUT(o.SelectLUT)
	}
	return c
}

// Snapshot returns the latest published state.
func (c *Controller) Snapshot() Snapshot { return c.pub.load() }

// Subscribe calls fn on the UI context after every publication. The returned
// func cancels the subscription.
func (c *Controller) Subscribe(fn func(Snapshot)) (cancel func()) { return c.pub.subscribe(fn) }

// Flush waits for every operation submitted so far, any photo in flight and
// the publications they caused. Do not call it from a subscriber.
func (c *Controller) Flush() {
	c.queue.Flush()
	c.inflight.Wait()
	c.queue.Flush()
	c.pub.flush()
}

// Close stops the session and shuts down both queues.
func (c *Controller) Close() {
	c.queue.Sync(c.stop)
	c.inflight.Wait()
	c.queue.Close()
	c.pub.close()
}

func (c *Controller) Start()                    { c.queue.Async(c.start) }
func (c *Controller) Stop()                     { c.queue.Async(c.stop) }
func (c *Controller) SwitchCamera()             { c.queue.Async(c.switchCamera) }
func (c *Controller) SetZoom(f float64)         { c.queue.Async(func() { c.setZoom(f, false) }) }
func (c *Controller) SetZoomPreset(f float64)   { c.queue.Async(func() { c.setZoom(f, true) }) }
func (c *Controller) Focus(p device.Point)      { c.queue.Async(func() { c.focus(p) }) }
func (c *Controller) CycleFlash()               { c.queue.Async(c.cycleFlash) }
func (c *Controller) SetMode(m Mode)            { c.queue.Async(func() { c.setMode(m) }) }
func (c *Controller) CapturePhoto()             { c.queue.Async(c.capturePhoto) }
func (c *Controller) SelectLUT(name string)     { c.queue.Async(func() { c.selectLUT(name) }) }
func (c *Controller) ImportLUT(path string)     { c.queue.Async(func() { c.importLUT(path, true) }) }
func (c *Controller) ReloadLUT(path string)     { c.queue.Async(func() { c.importLUT(path, false) }) }
func (c *Controller) RemoveLUT(name string)     { c.queue.Async(func() { c.removeLUT(name) }) }
func (c *Controller) RemoveLUTFile(path string) { c.queue.Async(func() { c.removeLUTFile(path) }) }

// RequestAccess asks for camera access if undetermined. A grant starts the
// session through the gate's hooks.
func (c *Controller) RequestAccess() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		st := c.gate.Request(ctx)
		if st.Camera != permission.Authorized {
			c.status(diagnostics.New(diagnostics.Warn, diagnostics.CodeCameraDenied, "camera access is not granted").
				With("camera", st.Camera.String()))
		}
	}()
}

// CheckAccess re-reads authorization, as after returning from settings.
func (c *Controller) CheckAccess() { go c.gate.Check() }

func (c *Controller) start() {
	st := c.gate.Check()
	if st.Camera != permission.Authorized {
		log.Debug().Str("camera", st.Camera.String()).Msg("start ignored, camera not authorized")
		return
	}
	if c.phase == Running {
		return
	}
	if !c.configured && !c.configure() {
		return
	}
	c.run()
}

// run starts streaming on a configured session.
func (c *Controller) run() {
	if err := c.sess.Start(); err != nil {
		c.configured = false
		c.setPhase(Unconfigured, diagnostics.FromError(diagnostics.CodeAttachFailed, "camera could not start", err))
		return
	}
	c.setPhase(Running, diagnostics.Diagnostic{})
	log.Info().Str("position", c.profile.Position.String()).Str("device", c.profile.Device.ID()).Msg("session running")
}

func (c *Controller) stop() {
	if c.phase != Running {
		return
	}
	c.halt()
	c.setPhase(Stopped, diagnostics.Diagnostic{})
	log.Info().Msg("session stopped")
}

// halt stops streaming and invalidates every frame delivered so far.
func (c *Controller) halt() {
	c.sess.Stop()
	c.gen.Add(1)
	c.pub.clearPreview()
}

// configure selects a device for the current position and binds it. On
// failure the session is left unconfigured with a status.
func (c *Controller) configure() bool {
	c.setPhase(Configuring, diagnostics.Diagnostic{})

	prof, err := c.selector.Select(c.position, c.ceiling())
	if err != nil {
		c.fail(diagnostics.FromError(diagnostics.CodeNoCamera, "no camera available", err))
		return false
	}

	c.sess.RemoveOutputs()
	c.sess.RemoveInput()
	if err := c.sess.AddInput(prof.Device); err != nil {
		c.fail(diagnostics.FromError(diagnostics.CodeAttachFailed, "camera input could not be attached", err).With("device", prof.Device.ID()))
		return false
	}
	if err := c.sess.AddPhotoOutput(); err != nil {
		c.fail(diagnostics.FromError(diagnostics.CodeConfigFailed, "photo output could not be attached", err))
		return false
	}
	if err := c.sess.AddFrameOutput(c.onFrame); err != nil {
		c.fail(diagnostics.FromError(diagnostics.CodeConfigFailed, "frame output could not be attached", err))
		return false
	}
	c.sess.SetConnection(capture.Connection{Orientation: capture.Portrait})

	c.profile = prof
	c.configured = true
	c.mirror.Store(prof.Position == device.Front)
	c.zoom = prof.MinZoom
	c.applyZoom(prof.MinZoom)

	z, p := c.zoom, prof
	c.pub.update(func(s *Snapshot) {
		s.Zoom, s.ZoomPreset = z, z
		s.MinZoom, s.MaxZoom = p.MinZoom, p.MaxZoom
		s.AspectRatio = p.NativeAspectRatio
		s.HasFlash = p.Caps.Has(device.CapFlash)
		s.CanFocus = p.Caps.Has(device.CapFocusPOI) || p.Caps.Has(device.CapExposurePOI)
	})
	log.Debug().
		Str("device", prof.Device.ID()).
		Str("position", prof.Position.String()).
		Float64("min_zoom", prof.MinZoom).
		Float64("max_zoom", prof.MaxZoom).
		Msg("session configured")
	return true
}

func (c *Controller) fail(d diagnostics.Diagnostic) {
	c.configured = false
	c.setPhase(Unconfigured, d)
}

func (c *Controller) ceiling() float64 {
	if f, ok := c.opts.Ceilings[c.mode]; ok {
		return f
	}
	return DefaultCeilings[c.mode]
}

func (c *Controller) switchCamera() {
	wasRunning := c.phase == Running
	c.halt()
	c.sess.RemoveOutputs()
	c.sess.RemoveInput()
	c.configured = false
	c.position = c.position.Flip()
	c.profile = device.Profile{}
	c.zoom = device.MinZoomFloor

	// The old device's limits no longer apply until configure succeeds.
	pos := c.position
	c.pub.update(func(s *Snapshot) {
		s.Position = pos
		s.Zoom, s.ZoomPreset = device.MinZoomFloor, device.MinZoomFloor
		s.MinZoom, s.MaxZoom = device.MinZoomFloor, device.MinZoomFloor
		s.AspectRatio = 0
		s.HasFlash, s.CanFocus = false, false
	})
	c.setPhase(Unconfigured, diagnostics.Diagnostic{})

	if !c.gate.CameraAllowed() {
		return
	}
	if !c.configure() {
		return
	}
	if wasRunning {
		c.run()
	} else {
		c.setPhase(Stopped, diagnostics.Diagnostic{})
	}
}

// setZoom clamps f, pushes it to the device and publishes the clamped value.
func (c *Controller) setZoom(f float64, preset bool) {
	if !c.configured {
		log.Debug().Float64("zoom", f).Msg("zoom ignored, session not configured")
		return
	}
	z := c.profile.Clamp(f)
	if !c.applyZoom(z) {
		return
	}
	c.zoom = z
	c.pub.update(func(s *Snapshot) {
		s.Zoom = z
		if preset {
			s.ZoomPreset = z
		}
	})
}

func (c *Controller) applyZoom(z float64) bool {
	d := c.profile.Device
	if err := d.Lock(); err != nil {
		log.Warn().Err(err).Str("device", d.ID()).Msg("zoom: device lock failed")
		return false
	}
	defer d.Unlock()
	if err := d.SetZoom(z); err != nil {
		log.Warn().Err(err).Float64("zoom", z).Msg("zoom: device rejected factor")
		return false
	}
	return true
}

func (c *Controller) focus(p device.Point) {
	if !c.configured {
		return
	}
	if !c.profile.Caps.Has(device.CapFocusPOI) && !c.profile.Caps.Has(device.CapExposurePOI) {
		log.Debug().Str("device", c.profile.Device.ID()).Msg("focus: point of interest unsupported")
		return
	}
	p.X = min(1, max(0, p.X))
	p.Y = min(1, max(0, p.Y))
	d := c.profile.Device
	if err := d.Lock(); err != nil {
		log.Warn().Err(err).Msg("focus: device lock failed")
		return
	}
	defer d.Unlock()
	if err := d.SetPointOfInterest(p); err != nil {
		log.Warn().Err(err).Float64("x", p.X).Float64("y", p.Y).Msg("focus failed")
	}
}

func (c *Controller) cycleFlash() {
	c.flash = c.flash.Next()
	f := c.flash
	c.pub.update(func(s *Snapshot) { s.Flash = f })
}

func (c *Controller) setMode(m Mode) {
	c.mode = m
	c.pub.update(func(s *Snapshot) { s.Mode = m })
}

// onFrame runs on the frame goroutine.
func (c *Controller) onFrame(img image.Image) {
	tag := c.gen.Load()
	out := c.engine.Apply(img, c.selected.Load(), c.mirror.Load())
	c.pub.offerPreview(out, tag)
}

func (c *Controller) status(d diagnostics.Diagnostic) {
	switch d.Severity {
	case diagnostics.Err:
		log.Error().Str("code", d.Code).Str("detail", d.Detail).Msg(d.Summary)
	case diagnostics.Warn:
		log.Warn().Str("code", d.Code).Str("detail", d.Detail).Msg(d.Summary)
	default:
		log.Info().Str("code", d.Code).Msg(d.Summary)
	}
	c.pub.update(func(s *Snapshot) { s.Status = d })
}

// setPhase publishes p, and d when it is set.
func (c *Controller) setPhase(p Phase, d diagnostics.Diagnostic) {
	c.phase = p
	if !d.IsZero() {
		c.status(d)
	}
	c.pub.update(func(s *Snapshot) { s.Phase = p })
}

// DroppedFrames counts preview frames replaced before the UI consumed them.
func (c *Controller) DroppedFrames() uint64 { return c.pub.dropped() }
