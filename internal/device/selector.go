package device

import "errors"

// ErrNoDeviceAvailable is returned when no wide-angle device exists at all.
var ErrNoDeviceAvailable = errors.New("no capture device available")

// MinZoomFloor is the lowest zoom factor ever exposed.
const MinZoomFloor = 1.0

// Profile is what the session needs to know about the selected device.
type Profile struct {
	Device            Device
	Position          Position
	MinZoom           float64
	MaxZoom           float64
	NativeAspectRatio float64
	Caps              Capabilities
}

// Clamp limits f to [MinZoom, MaxZoom].
func (p Profile) Clamp(f float64) float64 {
	if f < p.MinZoom {
		return p.MinZoom
	}
	if f > p.MaxZoom {
		return p.MaxZoom
	}
	return f
}

type Selector struct {
	src Discovery
}

func NewSelector(src Discovery) *Selector { return &Selector{src: src} }

// Select picks a wide-angle device facing pos, falling back to any
// wide-angle device. ceiling caps the zoom range; values below the floor are
// ignored.
func (s *Selector) Select(pos Position, ceiling float64) (Profile, error) {
	if s == nil || s.src == nil {
		return Profile{}, ErrNoDeviceAvailable
	}
	var fallback Device
	var chosen Device
	for _, d := range s.src.Devices() {
		if d == nil || d.Kind() != WideAngle {
			continue
		}
		if d.Position() == pos {
			chosen = d
			break
		}
		if fallback == nil {
			fallback = d
		}
	}
	if chosen == nil {
		chosen = fallback
	}
	if chosen == nil {
		return Profile{}, ErrNoDeviceAvailable
	}
	return profileFor(chosen, ceiling), nil
}

func profileFor(d Device, ceiling float64) Profile {
	lo, hi := d.ZoomRange()
	minZoom := max(MinZoomFloor, lo)
	maxZoom := hi
	if ceiling >= MinZoomFloor && ceiling < maxZoom {
		maxZoom = ceiling
	}
	if maxZoom < minZoom {
		maxZoom = minZoom
	}

	// Portrait lock: the sensor's long side becomes the height.
	f := d.ActiveFormat()
	aspect := 0.0
	if f.Width > 0 && f.Height > 0 {
		aspect = float64(f.Width) / float64(f.Height)
	}

	return Profile{
		Device:            d,
		Position:          d.Position(),
		MinZoom:           minZoom,
		MaxZoom:           maxZoom,
		NativeAspectRatio: aspect,
		Caps:              d.Capabilities(),
	}
}
