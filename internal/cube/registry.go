package cube

import (
	"errors"
	"sync"
)

// ErrNotFound is returned when a cube name is not registered.
var ErrNotFound = errors.New("cube not found")

// Registry owns every loaded cube. Registration order is kept so the UI list
// is stable; re-registering a name replaces the cube in place.
type Registry struct {
	mu    sync.RWMutex
	order []string
	m     map[string]*Cube
}

func NewRegistry() *Registry { return &Registry{m: map[string]*Cube{}} }

// Register adds or replaces c. Nil cubes are ignored.
func (r *Registry) Register(c *Cube) {
	if c == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[c.Name]; !ok {
		r.order = append(r.order, c.Name)
	}
	r.m[c.Name] = c
}

// Import parses path and registers the result. On failure the registry is
// left untouched.
func (r *Registry) Import(path string) (*Cube, error) {
	c, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	r.Register(c)
	return c, nil
}

// Evict removes name and returns the evicted cube.
func (r *Registry) Evict(name string) (*Cube, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.m[name]
	if !ok {
		return nil, false
	}
	delete(r.m, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return c, true
}

func (r *Registry) Get(name string) (*Cube, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.m[name]
	return c, ok
}

// List returns the registered names in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
