package session

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-lutcam/internal/cube"
	"github.com/coreman2200/funtimes-lutcam/internal/diagnostics"
)

// selectLUT points the session at name; an empty name clears the selection.
func (c *Controller) selectLUT(name string) {
	if name == "" {
		c.selected.Store(nil)
		c.pub.update(func(s *Snapshot) { s.SelectedLUT = "" })
		return
	}
	cb, ok := c.cubes.Get(name)
	if !ok {
		c.status(diagnostics.FromError(diagnostics.CodeLUTNotFound, "LUT not found", cube.ErrNotFound).With("name", name))
		return
	}
	c.selected.Store(cb)
	c.pub.update(func(s *Snapshot) { s.SelectedLUT = cb.Name })
}

// importLUT parses path into the registry. A failed import leaves both the
// registry and the selection untouched. With sel the new cube is selected;
// otherwise the selection only follows a replaced cube of the same name.
func (c *Controller) importLUT(path string, sel bool) {
	cb, err := c.cubes.Import(path)
	if err != nil {
		d := diagnostics.FromError(diagnostics.CodeLUTImport, "LUT could not be imported", err).With("path", path)
		var pe *cube.ParseError
		if errors.As(err, &pe) && pe.Line > 0 {
			d = d.With("line", pe.Line)
		}
		c.status(d)
		return
	}
	if old, ok := c.sources[path]; ok && old != cb.Name {
		c.cubes.Evict(old)
		c.dropSelection(old)
	}
	c.sources[path] = cb.Name

	if cur := c.selected.Load(); sel || (cur != nil && cur.Name == cb.Name) {
		c.selected.Store(cb)
	}
	names := c.cubes.List()
	selected := c.selectedName()
	d := diagnostics.New(diagnostics.Info, diagnostics.CodeLUTImported, "LUT imported").With("name", cb.Name)
	log.Info().Str("name", cb.Name).Int("size", cb.Size).Str("path", path).Msg("LUT imported")
	c.pub.update(func(s *Snapshot) {
		s.LUTs = names
		s.SelectedLUT = selected
		s.Status = d
	})
}

func (c *Controller) removeLUT(name string) {
	if _, ok := c.cubes.Evict(name); !ok {
		return
	}
	for p, n := range c.sources {
		if n == name {
			delete(c.sources, p)
		}
	}
	c.dropSelection(name)
	names := c.cubes.List()
	selected := c.selectedName()
	log.Info().Str("name", name).Msg("LUT removed")
	c.pub.update(func(s *Snapshot) {
		s.LUTs = names
		s.SelectedLUT = selected
	})
}

func (c *Controller) removeLUTFile(path string) {
	name, ok := c.sources[path]
	if !ok {
		return
	}
	c.removeLUT(name)
}

func (c *Controller) dropSelection(name string) {
	if cur := c.selected.Load(); cur != nil && cur.Name == name {
		c.selected.Store(nil)
	}
}

func (c *Controller) selectedName() string {
	if cur := c.selected.Load(); cur != nil {
		return cur.Name
	}
	return ""
}
