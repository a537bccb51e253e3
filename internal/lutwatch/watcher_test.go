package lutwatch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu       sync.Mutex
	imported []string
	removed  []string
}

func (r *recorder) ReloadLUT(p string) {
	r.mu.Lock()
	r.imported = append(r.imported, filepath.Base(p))
	r.mu.Unlock()
}

func (r *recorder) RemoveLUTFile(p string) {
	r.mu.Lock()
	r.removed = append(r.removed, filepath.Base(p))
	r.mu.Unlock()
}

func (r *recorder) has(list *[]string, name string) func() bool {
	return func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		for _, n := range *list {
			if n == name {
				return true
			}
		}
		return false
	}
}

func write(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("LUT_3D_SIZE 2\n"), 0o644))
	return p
}

func TestScanImportsCubesInOrder(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "b.cube")
	write(t, dir, "a.CUBE")
	write(t, dir, "notes.txt")
	write(t, dir, ".hidden.cube")

	var r recorder
	require.NoError(t, New(dir, &r).Scan())
	assert.Equal(t, []string{"a.CUBE", "b.cube"}, r.imported)
}

func TestWatchFollowsChanges(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "base.cube")

	var r recorder
	w := New(dir, &r)
	w.Delay = 10 * time.Millisecond
	require.NoError(t, w.Start())
	defer w.Close()

	assert.True(t, r.has(&r.imported, "base.cube")())

	p := write(t, dir, "new.cube")
	assert.Eventually(t, r.has(&r.imported, "new.cube"), 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(p))
	assert.Eventually(t, r.has(&r.removed, "new.cube"), 2*time.Second, 10*time.Millisecond)

	write(t, dir, "ignored.txt")
	time.Sleep(50 * time.Millisecond)
	assert.False(t, r.has(&r.imported, "ignored.txt")())
}

func TestScanMissingDirectory(t *testing.T) {
	var r recorder
	assert.Error(t, New(filepath.Join(t.TempDir(), "none"), &r).Scan())
}

func TestCloseAfterFailedStart(t *testing.T) {
	file := filepath.Join(t.TempDir(), "luts")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	var r recorder
	w := New(file, &r)
	require.Error(t, w.Start())

	closed := make(chan error, 1)
	go func() { closed <- w.Close() }()
	select {
	case err := <-closed:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Close blocked after a failed Start")
	}
}
