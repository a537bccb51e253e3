package ws

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/jpeg"
	"sync"
	"time"

	"golang.org/x/image/draw"

	"github.com/coreman2200/funtimes-lutcam/internal/session"
)

type message struct {
	T        int64            `json:"t"`
	State    session.Snapshot `json:"state"`
	Preview  *frame           `json:"preview,omitempty"`
	Captured *frame           `json:"captured,omitempty"`
}

type frame struct {
	W    int    `json:"w"`
	H    int    `json:"h"`
	JPEG string `json:"jpeg"` // base64
}

// previewer turns snapshots into messages. Preview frames are downscaled
// and throttled; a frame is only encoded when it changed.
type previewer struct {
	width    int
	quality  int
	throttle time.Duration

	mu           sync.Mutex
	lastEmit     time.Time
	lastPreview  image.Image
	lastCaptured image.Image
}

func newPreviewer(o Options) *previewer {
	if o.PreviewWidth <= 0 {
		o.PreviewWidth = 240
	}
	if o.PreviewFPS <= 0 {
		o.PreviewFPS = 15
	}
	if o.JPEGQuality <= 0 || o.JPEGQuality > 100 {
		o.JPEGQuality = 70
	}
	return &previewer{
		width:    o.PreviewWidth,
		quality:  o.JPEGQuality,
		throttle: time.Second / time.Duration(o.PreviewFPS),
	}
}

// message encodes s. With full set, frames are included regardless of
// throttling, for a client that just connected. A changed preview held back
// by the throttle reports how long until it may be sent.
func (p *previewer) message(s session.Snapshot, full bool) ([]byte, time.Duration) {
	m := message{T: time.Now().UnixNano(), State: s}
	var wait time.Duration

	p.mu.Lock()
	now := time.Now()
	if s.Preview != nil && (full || s.Preview != p.lastPreview) {
		if next := p.lastEmit.Add(p.throttle); full || !next.After(now) {
			m.Preview = p.encode(s.Preview)
			p.lastPreview, p.lastEmit = s.Preview, now
		} else {
			wait = next.Sub(now)
		}
	}
	if s.LastCaptured != nil && (full || s.LastCaptured != p.lastCaptured) {
		m.Captured = p.encode(s.LastCaptured)
		p.lastCaptured = s.LastCaptured
	}
	p.mu.Unlock()

	b, _ := json.Marshal(m)
	return b, wait
}

func (p *previewer) encode(img image.Image) *frame {
	small := downscale(img, p.width)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, small, &jpeg.Options{Quality: p.quality}); err != nil {
		return nil
	}
	b := small.Bounds()
	return &frame{W: b.Dx(), H: b.Dy(), JPEG: base64.StdEncoding.EncodeToString(buf.Bytes())}
}

// downscale fits img to width, keeping the aspect ratio. Narrower images are
// returned as is.
func downscale(img image.Image, width int) image.Image {
	b := img.Bounds()
	if b.Dx() <= width || b.Dx() == 0 {
		return img
	}
	h := max(1, b.Dy()*width/b.Dx())
	dst := image.NewRGBA(image.Rect(0, 0, width, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
