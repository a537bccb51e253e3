package permission

import (
	"context"
	"sync"
)

// Static is an Authorizer driven by configuration. A pending camera request
// resolves to GrantOnRequest.
type Static struct {
	mu             sync.Mutex
	camera         Authorization
	library        Authorization
	grantOnRequest bool
}

func NewStatic(camera, library Authorization, grantOnRequest bool) *Static {
	return &Static{camera: camera, library: library, grantOnRequest: grantOnRequest}
}

func (s *Static) CameraAuthorization() Authorization {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.camera
}

func (s *Static) LibraryAuthorization() Authorization {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.library
}

func (s *Static) RequestCameraAccess(ctx context.Context) <-chan bool {
	out := make(chan bool, 1)
	s.mu.Lock()
	if s.camera == NotDetermined {
		if s.grantOnRequest {
			s.camera = Authorized
		} else {
			s.camera = Denied
		}
	}
	out <- s.camera == Authorized
	s.mu.Unlock()
	close(out)
	return out
}

// SetCamera changes camera authorization, as a user would in settings.
func (s *Static) SetCamera(a Authorization) {
	s.mu.Lock()
	s.camera = a
	s.mu.Unlock()
}

func (s *Static) SetLibrary(a Authorization) {
	s.mu.Lock()
	s.library = a
	s.mu.Unlock()
}
