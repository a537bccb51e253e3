package permission

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type hookCounts struct {
	granted, revoked, changed int
}

func (c *hookCounts) hooks() Hooks {
	return Hooks{
		OnGranted: func() { c.granted++ },
		OnRevoked: func() { c.revoked++ },
		OnChange:  func(Status) { c.changed++ },
	}
}

func TestCheckFiresTransitions(t *testing.T) {
	a := NewStatic(Authorized, Denied, false)
	var c hookCounts
	g := NewGate(a, c.hooks())

	st := g.Check()
	assert.Equal(t, Status{Camera: Authorized, Library: Denied}, st)
	assert.Equal(t, 1, c.granted)
	assert.True(t, g.CameraAllowed())
	assert.False(t, g.LibraryAllowed())

	g.Check()
	assert.Equal(t, 1, c.changed, "no change, no hooks")

	a.SetCamera(Denied)
	g.Check()
	assert.Equal(t, 1, c.revoked)
	assert.False(t, g.CameraAllowed())
}

func TestRequestWhenNotDetermined(t *testing.T) {
	var c hookCounts
	g := NewGate(NewStatic(NotDetermined, NotDetermined, true), c.hooks())
	st := g.Request(context.Background())
	assert.Equal(t, Authorized, st.Camera)
	assert.Equal(t, 1, c.granted)
	assert.True(t, g.LibraryAllowed())

	g = NewGate(NewStatic(NotDetermined, Authorized, false), Hooks{})
	assert.Equal(t, Denied, g.Request(context.Background()).Camera)
}

func TestRequestDoesNotReprompt(t *testing.T) {
	a := NewStatic(Restricted, Authorized, true)
	g := NewGate(a, Hooks{})
	assert.Equal(t, Restricted, g.Request(context.Background()).Camera)
}

func TestParseAuthorization(t *testing.T) {
	cases := map[string]Authorization{
		"authorized": Authorized,
		" Granted ":  Authorized,
		"denied":     Denied,
		"restricted": Restricted,
		"":           NotDetermined,
		"maybe":      NotDetermined,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseAuthorization(in), in)
	}
	assert.Equal(t, "not_determined", NotDetermined.String())
}
