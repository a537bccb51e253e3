// Package device describes physical cameras and picks one for a facing
// direction.
package device

import (
	"context"
	"image"
	"strings"
)

type Position int

const (
	Back Position = iota
	Front
)

func (p Position) String() string {
	if p == Front {
		return "front"
	}
	return "back"
}

func (p Position) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Position) UnmarshalText(b []byte) error {
	*p = ParsePosition(string(b))
	return nil
}

// Flip returns the opposite facing direction.
func (p Position) Flip() Position {
	if p == Front {
		return Back
	}
	return Front
}

// ParsePosition accepts "front" or "back"; anything else is Back.
func ParsePosition(s string) Position {
	if strings.EqualFold(strings.TrimSpace(s), "front") {
		return Front
	}
	return Back
}

type Kind string

const (
	WideAngle Kind = "wide"
	UltraWide Kind = "ultrawide"
	Telephoto Kind = "telephoto"
)

// Capabilities is the feature set of a device, read once per selection.
type Capabilities uint8

const (
	CapFocusPOI Capabilities = 1 << iota
	CapExposurePOI
	CapZoom
	CapFlash
)

func (c Capabilities) Has(f Capabilities) bool { return c&f == f }

// Format is the active sensor format, in sensor (landscape) orientation.
type Format struct {
	Width, Height int
}

// Point is a normalized point of interest; (0,0) top-left, (1,1) bottom-right.
type Point struct{ X, Y float64 }

// Still is the per-shot setup handed to a stream.
type Still struct {
	Flash bool
}

// Stream delivers frames from an opened device.
type Stream interface {
	// Next blocks until the next preview frame is available.
	Next(ctx context.Context) (image.Image, error)
	// Capture takes one full-resolution still.
	Capture(ctx context.Context, s Still) (image.Image, error)
	Close() error
}

// Device is one physical camera. Configuration changes (zoom, point of
// interest) must happen between Lock and Unlock.
type Device interface {
	ID() string
	Kind() Kind
	Position() Position
	ActiveFormat() Format
	// ZoomRange is the range the hardware reports.
	ZoomRange() (min, max float64)
	Capabilities() Capabilities

	Lock() error
	Unlock()
	SetZoom(factor float64) error
	SetPointOfInterest(p Point) error

	Open() (Stream, error)
}

// Discovery enumerates the devices attached to the host.
type Discovery interface {
	Devices() []Device
}

// List is a fixed Discovery.
type List []Device

func (l List) Devices() []Device { return l }
