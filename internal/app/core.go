package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-lutcam/internal/capture"
	"github.com/coreman2200/funtimes-lutcam/internal/config"
	"github.com/coreman2200/funtimes-lutcam/internal/cube"
	"github.com/coreman2200/funtimes-lutcam/internal/device"
	"github.com/coreman2200/funtimes-lutcam/internal/device/filecam"
	"github.com/coreman2200/funtimes-lutcam/internal/device/sim"
	"github.com/coreman2200/funtimes-lutcam/internal/flash"
	"github.com/coreman2200/funtimes-lutcam/internal/grade"
	"github.com/coreman2200/funtimes-lutcam/internal/library"
	"github.com/coreman2200/funtimes-lutcam/internal/lutwatch"
	"github.com/coreman2200/funtimes-lutcam/internal/permission"
	"github.com/coreman2200/funtimes-lutcam/internal/session"
)

// Core is the running capture core built from a config.
type Core struct {
	Ctl   *session.Controller
	Cubes *cube.Registry
	Lib   *library.Library
	Light flash.Light
	Watch *lutwatch.Watcher
}

// Devices builds the camera list for the configured backend.
func Devices(c config.Camera) (device.List, error) {
	switch c.Backend {
	case "sim", "":
		return sim.Pair(c.Width, c.Height, c.FPS), nil
	case "file":
		d, err := filecam.New(filecam.Options{
			Path:     c.File,
			Position: device.ParsePosition(c.Position),
			FPS:      c.FPS,
			Loop:     c.Loop,
		})
		if err != nil {
			return nil, err
		}
		return device.List{d}, nil
	default:
		return nil, fmt.Errorf("unknown camera backend %q", c.Backend)
	}
}

func InitCore(cfg *config.Config) (*Core, error) {
	// 1) Cameras
	devs, err := Devices(cfg.Camera)
	if err != nil {
		return nil, fmt.Errorf("cameras: %w", err)
	}

	// 2) Flash and capture session
	light, err := flash.Open(flash.Options{Driver: cfg.Flash.Driver, Port: cfg.Flash.SPIPort, Pixels: cfg.Flash.Pixels})
	if err != nil {
		return nil, fmt.Errorf("flash: %w", err)
	}
	sess := capture.New(light, capture.Options{FlashHold: time.Duration(cfg.Flash.HoldMs) * time.Millisecond})

	// 3) Photo library
	lib, err := library.Open(cfg.Library.Dir)
	if err != nil {
		light.Close()
		return nil, fmt.Errorf("library: %w", err)
	}
	if cfg.Library.Quality > 0 {
		lib.Quality = cfg.Library.Quality
	}

	// 4) Controller
	ceilings := map[session.Mode]float64{}
	for k, v := range cfg.Zoom.Ceilings {
		ceilings[session.ParseMode(k)] = v
	}
	cubes := cube.NewRegistry()
	ctl := session.New(session.Deps{
		Devices: devs,
		Session: sess,
		Authorizer: permission.NewStatic(
			permission.ParseAuthorization(cfg.Permission.Camera),
			permission.ParseAuthorization(cfg.Permission.Library),
			cfg.Permission.GrantOnRequest,
		),
		Cubes:  cubes,
		Saver:  lib,
		Engine: &grade.Engine{Intensity: float32(cfg.LUT.Intensity)},
	}, session.Options{
		Position: device.ParsePosition(cfg.Camera.Position),
		Mode:     session.ParseMode(cfg.Camera.Mode),
		Flash:    capture.ParseFlashMode(cfg.Camera.Flash),
		Ceilings: ceilings,
	})
	core := &Core{Ctl: ctl, Cubes: cubes, Lib: lib, Light: light}

	// 5) LUTs: imports are queued before the selection so it can resolve.
	if cfg.LUT.Dir != "" {
		w := lutwatch.New(cfg.LUT.Dir, ctl)
		if cfg.LUT.Watch {
			if err = w.Start(); err == nil {
				core.Watch = w
			}
		} else {
			err = w.Scan()
		}
		if err != nil {
			log.Warn().Err(err).Str("dir", cfg.LUT.Dir).Msg("LUT directory unavailable")
		}
	}
	if cfg.LUT.Select != "" {
		ctl.SelectLUT(cfg.LUT.Select)
	}

	// 6) Ask for camera access; a grant starts the session.
	ctl.RequestAccess()
	return core, nil
}

// Close stops the session and releases every resource.
func (c *Core) Close() error {
	var errs []error
	if c.Watch != nil {
		errs = append(errs, c.Watch.Close())
	}
	c.Ctl.Close()
	if c.Light != nil {
		errs = append(errs, c.Light.Close())
	}
	errs = append(errs, c.Lib.Close())
	return errors.Join(errs...)
}
