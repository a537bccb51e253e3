package session

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-lutcam/internal/capture"
	"github.com/coreman2200/funtimes-lutcam/internal/device"
	"github.com/coreman2200/funtimes-lutcam/internal/diagnostics"
	"github.com/coreman2200/funtimes-lutcam/internal/library"
)

func (c *Controller) capturePhoto() {
	if c.mode != Photo {
		log.Debug().Str("mode", string(c.mode)).Msg("capture ignored outside photo mode")
		return
	}
	if c.phase != Running || !c.gate.CameraAllowed() {
		log.Debug().Str("phase", string(c.phase)).Msg("capture ignored, session not running")
		return
	}

	fm := c.flash
	if !c.profile.Caps.Has(device.CapFlash) {
		fm = capture.FlashOff
	}
	meta := library.Meta{
		Position: c.profile.Position.String(),
		Mode:     string(c.mode),
		Zoom:     c.zoom,
		TakenAt:  time.Now(),
	}
	done := c.sess.CapturePhoto(capture.PhotoRequest{Flash: fm})

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		c.completePhoto(<-done, meta)
	}()
}

// completePhoto grades with the cube and mirror flag current now, not at
// request time, then saves.
func (c *Controller) completePhoto(res capture.PhotoResult, meta library.Meta) {
	if res.Err != nil || res.Image == nil {
		c.status(diagnostics.FromError(diagnostics.CodeCaptureFailed, "photo capture failed", res.Err))
		return
	}
	cb := c.selected.Load()
	img := c.engine.Apply(res.Image, cb, c.mirror.Load())
	c.pub.update(func(s *Snapshot) { s.LastCaptured = img })

	if !c.gate.LibraryAllowed() {
		c.status(diagnostics.New(diagnostics.Warn, diagnostics.CodeLibraryDenied, "photo library access is not granted"))
		return
	}
	if c.saver == nil {
		return
	}
	if cb != nil {
		meta.LUT = cb.Name
	}
	meta.Flash = res.Flashed

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.SaveTimeout)
	defer cancel()
	id, err := c.saver.Save(ctx, img, meta)
	if err != nil {
		c.status(diagnostics.FromError(diagnostics.CodeSaveFailed, "photo could not be saved", err))
		return
	}
	log.Info().Str("id", id).Str("lut", meta.LUT).Bool("flash", meta.Flash).Msg("photo saved")
	d := diagnostics.New(diagnostics.Info, diagnostics.CodeSaved, "photo saved").With("id", id)
	c.pub.update(func(s *Snapshot) {
		s.LastSavedID = id
		s.Status = d
	})
}
