package session

import (
	"image"
	"strings"

	"github.com/coreman2200/funtimes-lutcam/internal/capture"
	"github.com/coreman2200/funtimes-lutcam/internal/device"
	"github.com/coreman2200/funtimes-lutcam/internal/diagnostics"
	"github.com/coreman2200/funtimes-lutcam/internal/permission"
)

// Phase enumerates session lifecycle states.
type Phase string

const (
	Unconfigured Phase = "unconfigured"
	Configuring  Phase = "configuring"
	Running      Phase = "running"
	Stopped      Phase = "stopped"
)

// Mode is the capture mode picked in the UI.
type Mode string

const (
	Photo    Mode = "photo"
	Video    Mode = "video"
	Portrait Mode = "portrait"
)

// ParseMode accepts the mode names; anything else is Photo.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case Video:
		return Video
	case Portrait:
		return Portrait
	default:
		return Photo
	}
}

// DefaultCeilings caps zoom per mode.
var DefaultCeilings = map[Mode]float64{
	Photo:    6,
	Video:    4,
	Portrait: 3,
}

// Snapshot is the complete UI-facing state. A published Snapshot is never
// modified; every change publishes a new one.
type Snapshot struct {
	Authorization permission.Status `json:"authorization"`

	Phase    Phase             `json:"phase"`
	Position device.Position   `json:"position"`
	Mode     Mode              `json:"mode"`
	Flash    capture.FlashMode `json:"flash"`
	HasFlash bool              `json:"has_flash"`
	CanFocus bool              `json:"can_focus"`

	Zoom        float64 `json:"zoom"`
	ZoomPreset  float64 `json:"zoom_preset"`
	MinZoom     float64 `json:"min_zoom"`
	MaxZoom     float64 `json:"max_zoom"`
	AspectRatio float64 `json:"aspect_ratio"`

	Preview      image.Image `json:"-"`
	LastCaptured image.Image `json:"-"`
	LastSavedID  string      `json:"last_saved_id,omitempty"`

	LUTs        []string `json:"luts"`
	SelectedLUT string   `json:"selected_lut,omitempty"`

	Status     diagnostics.Diagnostic `json:"status"`
	Generation uint64                 `json:"generation"`
}

func (s Snapshot) Configured() bool { return s.Phase == Running || s.Phase == Stopped }
func (s Snapshot) Running() bool    { return s.Phase == Running }
