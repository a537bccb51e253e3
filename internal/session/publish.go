package session

import (
	"image"
	"sync"
	"sync/atomic"

	"github.com/coreman2200/funtimes-lutcam/internal/dispatch"
)

type taggedFrame struct {
	img image.Image
	gen uint64
}

// publisher owns the UI context. Every mutation of the published snapshot
// runs on its queue; readers load the latest copy atomically.
type publisher struct {
	ui      *dispatch.Queue
	gen     *atomic.Uint64
	current Snapshot // UI queue only
	latest  atomic.Pointer[Snapshot]
	preview dispatch.Slot[taggedFrame]

	mu     sync.Mutex
	subs   map[int]func(Snapshot)
	nextID int
}

func newPublisher(initial Snapshot, gen *atomic.Uint64) *publisher {
	p := &publisher{
		ui:      dispatch.NewQueue("ui"),
		gen:     gen,
		current: initial,
		subs:    map[int]func(Snapshot){},
	}
	p.current.Generation = gen.Load()
	s := p.current
	p.latest.Store(&s)
	return p
}

func (p *publisher) load() Snapshot { return *p.latest.Load() }

// update applies f to the snapshot on the UI queue and publishes the result.
func (p *publisher) update(f func(*Snapshot)) {
	p.ui.Async(func() {
		f(&p.current)
		p.commit()
	})
}

func (p *publisher) commit() {
	p.current.Generation = p.gen.Load()
	s := p.current
	p.latest.Store(&s)

	p.mu.Lock()
	subs := make([]func(Snapshot), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()
	for _, fn := range subs {
		fn(s)
	}
}

// offerPreview stores a graded frame, latest wins. A drain is scheduled
// only when the slot was empty; a pending drain picks up the newer frame.
func (p *publisher) offerPreview(img image.Image, gen uint64) {
	if !p.preview.Put(taggedFrame{img: img, gen: gen}) {
		p.ui.Async(p.drainPreview)
	}
}

func (p *publisher) drainPreview() {
	f, ok := p.preview.Take()
	if !ok {
		return
	}
	if f.gen != p.gen.Load() || p.current.Phase != Running {
		return
	}
	p.current.Preview = f.img
	p.commit()
}

// clearPreview drops any pending frame and the published preview.
func (p *publisher) clearPreview() {
	p.preview.Clear()
	p.update(func(s *Snapshot) { s.Preview = nil })
}

// dropped counts preview frames overwritten before the UI took them.
func (p *publisher) dropped() uint64 { return p.preview.Dropped() }

func (p *publisher) subscribe(fn func(Snapshot)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
		})
	}
}

func (p *publisher) flush() { p.ui.Flush() }
func (p *publisher) close() { p.ui.Close() }
