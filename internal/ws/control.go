package ws

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/coreman2200/funtimes-lutcam/internal/device"
	"github.com/coreman2200/funtimes-lutcam/internal/session"
)

// Command is one control message, e.g. {"action":"zoom","value":2.5}.
type Command struct {
	Action string          `json:"action"`
	Value  json.RawMessage `json:"value,omitempty"`
}

func (h *Hub) apply(c Command) error {
	switch c.Action {
	case "start":
		h.ctl.Start()
	case "stop":
		h.ctl.Stop()
	case "switch_camera":
		h.ctl.SwitchCamera()
	case "cycle_flash":
		h.ctl.CycleFlash()
	case "capture":
		h.ctl.CapturePhoto()
	case "request_access":
		h.ctl.RequestAccess()
	case "zoom", "zoom_preset":
		var f float64
		if err := json.Unmarshal(c.Value, &f); err != nil {
			return fmt.Errorf("%s wants a number", c.Action)
		}
		if c.Action == "zoom" {
			h.ctl.SetZoom(f)
		} else {
			h.ctl.SetZoomPreset(f)
		}
	case "focus":
		var p struct{ X, Y float64 }
		if err := json.Unmarshal(c.Value, &p); err != nil {
			return errors.New(`focus wants {"x":..,"y":..}`)
		}
		h.ctl.Focus(device.Point{X: p.X, Y: p.Y})
	case "mode":
		var s string
		if err := json.Unmarshal(c.Value, &s); err != nil {
			return errors.New("mode wants a string")
		}
		h.ctl.SetMode(session.ParseMode(s))
	case "select_lut":
		var s string
		if len(c.Value) > 0 && string(c.Value) != "null" {
			if err := json.Unmarshal(c.Value, &s); err != nil {
				return errors.New("select_lut wants a name")
			}
		}
		h.ctl.SelectLUT(s)
	default:
		return fmt.Errorf("unknown action %q", c.Action)
	}
	return nil
}
