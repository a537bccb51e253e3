package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-lutcam/internal/device"
)

func TestPairSelectsBothPositions(t *testing.T) {
	sel := device.NewSelector(Pair(16, 24, 60))

	back, err := sel.Select(device.Back, 6)
	require.NoError(t, err)
	assert.Equal(t, "sim-back", back.Device.ID())
	assert.Equal(t, 1.0, back.MinZoom)
	assert.Equal(t, 6.0, back.MaxZoom)
	assert.True(t, back.Caps.Has(device.CapFlash))

	front, err := sel.Select(device.Front, 6)
	require.NoError(t, err)
	assert.Equal(t, "sim-front", front.Device.ID())
	assert.Equal(t, 4.0, front.MaxZoom)
	assert.False(t, front.Caps.Has(device.CapFlash))
}

func TestZoomRequiresLock(t *testing.T) {
	d := New(Options{ID: "d", MinZoom: 1, MaxZoom: 5, Caps: device.CapZoom})
	assert.Error(t, d.SetZoom(2))

	require.NoError(t, d.Lock())
	assert.ErrorIs(t, d.Lock(), ErrLocked)
	require.NoError(t, d.SetZoom(2))
	assert.Error(t, d.SetZoom(9))
	d.Unlock()
	assert.Equal(t, 2.0, d.Zoom())
}

func TestPointOfInterestCapability(t *testing.T) {
	d := New(Options{ID: "d", MinZoom: 1, MaxZoom: 1})
	require.NoError(t, d.Lock())
	defer d.Unlock()
	assert.Error(t, d.SetPointOfInterest(device.Point{X: 0.2, Y: 0.2}))
}

func TestStreamDeliversFrames(t *testing.T) {
	d := New(Options{ID: "d", MinZoom: 1, MaxZoom: 1, Width: 8, Height: 4, FPS: 200})
	s, err := d.Open()
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	img, err := s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
	assert.Equal(t, 4, img.Bounds().Dy())

	still, err := s.Capture(ctx, device.Still{Flash: true})
	require.NoError(t, err)
	assert.NotNil(t, still)

	require.NoError(t, s.Close())
	_, err = s.Next(ctx)
	assert.Error(t, err)
}

func TestOpenErr(t *testing.T) {
	d := New(Options{ID: "d"})
	d.OpenErr = errors.New("busy")
	_, err := d.Open()
	assert.EqualError(t, err, "busy")
}
