package device

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDevice reports fixed properties and records nothing.
type fakeDevice struct {
	id     string
	kind   Kind
	pos    Position
	format Format
	lo, hi float64
	caps   Capabilities
}

func (f *fakeDevice) ID() string                    { return f.id }
func (f *fakeDevice) Kind() Kind                    { return f.kind }
func (f *fakeDevice) Position() Position            { return f.pos }
func (f *fakeDevice) ActiveFormat() Format          { return f.format }
func (f *fakeDevice) ZoomRange() (float64, float64) { return f.lo, f.hi }
func (f *fakeDevice) Capabilities() Capabilities    { return f.caps }
func (f *fakeDevice) Lock() error                   { return nil }
func (f *fakeDevice) Unlock()                       {}
func (f *fakeDevice) SetZoom(float64) error         { return nil }
func (f *fakeDevice) SetPointOfInterest(Point) error {
	return nil
}
func (f *fakeDevice) Open() (Stream, error) { return nil, errors.New("not streamable") }

func TestSelectPrefersRequestedPosition(t *testing.T) {
	back := &fakeDevice{id: "back", kind: WideAngle, pos: Back, format: Format{4032, 3024}, lo: 0.5, hi: 10}
	tele := &fakeDevice{id: "tele", kind: Telephoto, pos: Front, lo: 1, hi: 20}
	front := &fakeDevice{id: "front", kind: WideAngle, pos: Front, format: Format{1920, 1080}, lo: 1, hi: 4, caps: CapFocusPOI}
	sel := NewSelector(List{back, tele, front})

	p, err := sel.Select(Front, 6)
	require.NoError(t, err)
	assert.Equal(t, "front", p.Device.ID())
	assert.Equal(t, 1.0, p.MinZoom)
	assert.Equal(t, 4.0, p.MaxZoom)
	assert.InDelta(t, 1920.0/1080.0, p.NativeAspectRatio, 1e-9)
	assert.True(t, p.Caps.Has(CapFocusPOI))
	assert.False(t, p.Caps.Has(CapFlash))

	p, err = sel.Select(Back, 6)
	require.NoError(t, err)
	assert.Equal(t, "back", p.Device.ID())
	assert.Equal(t, 1.0, p.MinZoom, "hardware min below the floor is raised")
	assert.Equal(t, 6.0, p.MaxZoom, "ceiling caps hardware max")
	assert.InDelta(t, 4.0/3.0, p.NativeAspectRatio, 1e-9)
}

func TestSelectFallsBackToAnyWideAngle(t *testing.T) {
	back := &fakeDevice{id: "back", kind: WideAngle, pos: Back, lo: 1, hi: 3}
	sel := NewSelector(List{back})

	p, err := sel.Select(Front, 6)
	require.NoError(t, err)
	assert.Equal(t, "back", p.Device.ID())
	assert.Equal(t, Back, p.Position)
}

func TestSelectNoDevice(t *testing.T) {
	sel := NewSelector(List{&fakeDevice{kind: Telephoto}})
	_, err := sel.Select(Back, 6)
	assert.ErrorIs(t, err, ErrNoDeviceAvailable)

	var nilSel *Selector
	_, err = nilSel.Select(Back, 6)
	assert.ErrorIs(t, err, ErrNoDeviceAvailable)
}

func TestProfileClamp(t *testing.T) {
	p := Profile{MinZoom: 1, MaxZoom: 3}
	assert.Equal(t, 3.0, p.Clamp(10))
	assert.Equal(t, 1.0, p.Clamp(0.2))
	assert.Equal(t, 2.5, p.Clamp(2.5))
}

func TestPositionHelpers(t *testing.T) {
	assert.Equal(t, Front, Back.Flip())
	assert.Equal(t, Back, Front.Flip())
	assert.Equal(t, Front, ParsePosition(" Front "))
	assert.Equal(t, Back, ParsePosition("rear"))
	assert.Equal(t, "front", Front.String())
}
