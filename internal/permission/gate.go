// Package permission tracks camera and photo library authorization and
// reports transitions to the session.
package permission

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

type Authorization int

const (
	NotDetermined Authorization = iota
	Authorized
	Denied
	Restricted
)

func (a Authorization) String() string {
	switch a {
	case Authorized:
		return "authorized"
	case Denied:
		return "denied"
	case Restricted:
		return "restricted"
	default:
		return "not_determined"
	}
}

// ParseAuthorization maps config strings; unknown values are NotDetermined.
func ParseAuthorization(s string) Authorization {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "authorized", "granted", "yes", "true":
		return Authorized
	case "denied", "no", "false":
		return Denied
	case "restricted":
		return Restricted
	default:
		return NotDetermined
	}
}

// Authorizer is the platform permission collaborator.
type Authorizer interface {
	CameraAuthorization() Authorization
	LibraryAuthorization() Authorization
	// RequestCameraAccess prompts once; the channel yields the answer.
	RequestCameraAccess(ctx context.Context) <-chan bool
}

type Status struct {
	Camera  Authorization `json:"camera"`
	Library Authorization `json:"library"`
}

// Hooks are called on camera transitions, outside the gate's lock.
type Hooks struct {
	OnGranted func()
	OnRevoked func()
	OnChange  func(Status)
}

type Gate struct {
	auth  Authorizer
	hooks Hooks

	mu   sync.Mutex
	last Status
}

func NewGate(a Authorizer, h Hooks) *Gate {
	return &Gate{auth: a, hooks: h}
}

// Status returns the status seen by the last Check.
func (g *Gate) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

// Check re-reads authorization and fires hooks for any change.
func (g *Gate) Check() Status {
	cur := Status{Camera: g.auth.CameraAuthorization(), Library: g.auth.LibraryAuthorization()}

	g.mu.Lock()
	prev := g.last
	g.last = cur
	g.mu.Unlock()

	if cur == prev {
		return cur
	}
	log.Debug().Str("camera", cur.Camera.String()).Str("library", cur.Library.String()).Msg("authorization changed")
	if g.hooks.OnChange != nil {
		g.hooks.OnChange(cur)
	}
	switch {
	case cur.Camera == Authorized && prev.Camera != Authorized:
		if g.hooks.OnGranted != nil {
			g.hooks.OnGranted()
		}
	case cur.Camera != Authorized && prev.Camera == Authorized:
		if g.hooks.OnRevoked != nil {
			g.hooks.OnRevoked()
		}
	}
	return cur
}

// Request asks for camera access when it has not been determined yet, then
// checks. It blocks until the authorizer answers or ctx ends.
func (g *Gate) Request(ctx context.Context) Status {
	if g.auth.CameraAuthorization() == NotDetermined {
		select {
		case ok := <-g.auth.RequestCameraAccess(ctx):
			log.Info().Bool("granted", ok).Msg("camera access requested")
		case <-ctx.Done():
			log.Warn().Err(ctx.Err()).Msg("camera access request abandoned")
		}
	}
	return g.Check()
}

// CameraAllowed reports whether the last check found camera access.
func (g *Gate) CameraAllowed() bool { return g.Status().Camera == Authorized }

// LibraryAllowed reports whether saving is permitted. NotDetermined counts
// as allowed; the library itself prompts on first save.
func (g *Gate) LibraryAllowed() bool {
	s := g.Status().Library
	return s == Authorized || s == NotDetermined
}

func (a Authorization) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Authorization) UnmarshalText(b []byte) error {
	*a = ParseAuthorization(string(b))
	return nil
}
