package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-lutcam/internal/capture"
	"github.com/coreman2200/funtimes-lutcam/internal/device"
	"github.com/coreman2200/funtimes-lutcam/internal/diagnostics"
	"github.com/coreman2200/funtimes-lutcam/internal/permission"
)

func TestSnapshotJSONRoundTrip(t *testing.T) {
	in := Snapshot{
		Authorization: permission.Status{Camera: permission.Denied, Library: permission.Restricted},
		Phase:         Stopped,
		Position:      device.Front,
		Mode:          Portrait,
		Flash:         capture.FlashOff,
		HasFlash:      true,
		CanFocus:      true,
		Zoom:          2.5,
		ZoomPreset:    2,
		MinZoom:       1,
		MaxZoom:       3,
		AspectRatio:   16.0 / 9.0,
		LastSavedID:   "20260101T000000-ab12",
		LUTs:          []string{"invert", "warm"},
		SelectedLUT:   "warm",
		Status: diagnostics.New(diagnostics.Warn, diagnostics.CodeSaveFailed, "save failed").
			With("path", "photos"),
		Generation: 7,
	}
	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"position":"front"`)
	assert.Contains(t, string(b), `"camera":"denied"`)
	assert.Contains(t, string(b), `"flash":"off"`)

	var out Snapshot
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in, out)
}
