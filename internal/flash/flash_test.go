package flash

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/spi/spitest"
)

func TestRingOverSPI(t *testing.T) {
	var buf bytes.Buffer
	p := spitest.NewRecordRaw(&buf)
	r, err := OpenSPI(p, 4)
	require.NoError(t, err)
	halted := buf.Len()
	assert.NotZero(t, halted, "open clears the ring")

	buf.Reset()
	require.NoError(t, r.On(1))
	lit := append([]byte(nil), buf.Bytes()...)
	assert.NotEmpty(t, lit)
	assert.Equal(t, 1.0, r.Level())

	buf.Reset()
	require.NoError(t, r.Off())
	assert.NotEqual(t, lit, buf.Bytes())
	assert.Zero(t, r.Level())
}

func TestRingClampsLevel(t *testing.T) {
	var buf bytes.Buffer
	r, err := OpenSPI(spitest.NewRecordRaw(&buf), 2)
	require.NoError(t, err)
	require.NoError(t, r.On(3))
	assert.Equal(t, 1.0, r.Level())
	require.NoError(t, r.On(-1))
	assert.Zero(t, r.Level())
}

func TestOpenDrivers(t *testing.T) {
	l, err := Open(Options{Driver: DriverNone})
	require.NoError(t, err)
	assert.IsType(t, Nop{}, l)

	l, err = Open(Options{Driver: DriverConsole, Pixels: 3})
	require.NoError(t, err)
	assert.IsType(t, &Ring{}, l)

	_, err = Open(Options{Driver: "laser"})
	assert.Error(t, err)
}

type countingCloser struct{ n int }

func (c *countingCloser) Close() error {
	c.n++
	return nil
}

func TestRingCloseReleasesPort(t *testing.T) {
	var buf bytes.Buffer
	r, err := OpenSPI(spitest.NewRecordRaw(&buf), 2)
	require.NoError(t, err)
	var port countingCloser
	r.port = &port

	require.NoError(t, r.On(1))
	buf.Reset()
	require.NoError(t, r.Close())
	assert.Equal(t, 1, port.n)
	assert.Zero(t, r.Level())
	assert.NotZero(t, buf.Len(), "close halts the ring")

	require.NoError(t, r.Close())
	assert.Equal(t, 1, port.n)
}
