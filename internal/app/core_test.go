package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-lutcam/internal/config"
	"github.com/coreman2200/funtimes-lutcam/internal/cube"
	"github.com/coreman2200/funtimes-lutcam/internal/session"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Camera.Width, cfg.Camera.Height, cfg.Camera.FPS = 6, 8, 120
	cfg.LUT.Dir = filepath.Join(dir, "luts")
	cfg.LUT.Watch = false
	cfg.Library.Dir = filepath.Join(dir, "photos")
	cfg.Permission.Camera = "authorized"
	return cfg
}

func TestInitCoreRunsAndCaptures(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.LUT.Dir, 0o755))
	f, err := os.Create(filepath.Join(cfg.LUT.Dir, "neutral.cube"))
	require.NoError(t, err)
	require.NoError(t, cube.Encode(f, cube.Identity("neutral", 5)))
	require.NoError(t, f.Close())
	cfg.LUT.Select = "neutral"

	core, err := InitCore(cfg)
	require.NoError(t, err)
	defer core.Close()

	require.Eventually(t, func() bool {
		core.Ctl.Flush()
		s := core.Ctl.Snapshot()
		return s.Phase == session.Running && s.Preview != nil
	}, 3*time.Second, 20*time.Millisecond)

	s := core.Ctl.Snapshot()
	assert.Equal(t, "neutral", s.SelectedLUT)
	assert.Equal(t, []string{"neutral"}, s.LUTs)

	core.Ctl.CapturePhoto()
	core.Ctl.Flush()
	s = core.Ctl.Snapshot()
	require.NotEmpty(t, s.LastSavedID, "status: %s", s.Status)

	recs, err := core.Lib.List(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "neutral", recs[0].LUT)
}

func TestInitCoreWithoutAccessStaysIdle(t *testing.T) {
	cfg := testConfig(t)
	cfg.Permission.Camera = "not_determined"
	cfg.Permission.GrantOnRequest = false

	core, err := InitCore(cfg)
	require.NoError(t, err)
	defer core.Close()

	require.Eventually(t, func() bool {
		core.Ctl.Flush()
		return core.Ctl.Snapshot().Authorization.Camera.String() == "denied"
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, session.Unconfigured, core.Ctl.Snapshot().Phase)
}

func TestDevicesRejectsUnknownBackend(t *testing.T) {
	_, err := Devices(config.Camera{Backend: "usb"})
	assert.Error(t, err)

	devs, err := Devices(config.Camera{Backend: "sim", Width: 2, Height: 2, FPS: 10})
	require.NoError(t, err)
	assert.Len(t, devs, 2)
}

func TestInitCoreSurvivesUnwatchableLUTDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.LUT.Watch = true
	require.NoError(t, os.WriteFile(cfg.LUT.Dir, nil, 0o644))

	core, err := InitCore(cfg)
	require.NoError(t, err)
	assert.Nil(t, core.Watch)

	closed := make(chan error, 1)
	go func() { closed <- core.Close() }()
	select {
	case err := <-closed:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Close blocked")
	}
}

func TestInitCoreLibraryFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Flash.Driver = "console"
	require.NoError(t, os.WriteFile(cfg.Library.Dir, nil, 0o644))

	_, err := InitCore(cfg)
	assert.ErrorContains(t, err, "library")
}
