package filecam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-lutcam/internal/device"
)

func TestParseProbePicksVideoStream(t *testing.T) {
	out := `{"streams":[
		{"index":0,"codec_type":"audio","sample_rate":"48000"},
		{"index":1,"codec_type":"video","width":1280,"height":720}
	],"format":{"duration":"3.2"}}`
	f, err := parseProbe(out)
	require.NoError(t, err)
	assert.Equal(t, device.Format{Width: 1280, Height: 720}, f)
}

func TestParseProbeErrors(t *testing.T) {
	_, err := parseProbe(`{"streams":[{"codec_type":"audio"}]}`)
	assert.Error(t, err)

	_, err = parseProbe(`not json`)
	assert.Error(t, err)
}

func TestRGBToNRGBA(t *testing.T) {
	img := rgbToNRGBA([]byte{10, 20, 30, 40, 50, 60}, 2, 1)
	assert.Equal(t, []uint8{10, 20, 30, 255, 40, 50, 60, 255}, img.Pix)
}

func TestFixedLens(t *testing.T) {
	d := &Device{opts: Options{Path: "clip.mp4", Position: device.Front}, format: device.Format{Width: 640, Height: 480}}
	assert.Equal(t, "file:clip.mp4", d.ID())
	lo, hi := d.ZoomRange()
	assert.Equal(t, 1.0, lo)
	assert.Equal(t, 1.0, hi)
	assert.NoError(t, d.SetZoom(1))
	assert.Error(t, d.SetZoom(2))
	assert.Error(t, d.SetPointOfInterest(device.Point{}))

	p, err := device.NewSelector(device.List{d}).Select(device.Back, 6)
	require.NoError(t, err)
	assert.Equal(t, device.Front, p.Position)
	assert.Equal(t, 1.0, p.MaxZoom)
}
