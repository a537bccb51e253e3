// Package ws bridges the session to browser clients: state snapshots and
// preview frames over a websocket, commands over a second one.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-lutcam/internal/device"
	"github.com/coreman2200/funtimes-lutcam/internal/dispatch"
	"github.com/coreman2200/funtimes-lutcam/internal/session"
)

// Controller is the part of *session.Controller the bridge drives.
type Controller interface {
	Snapshot() session.Snapshot
	Subscribe(func(session.Snapshot)) func()
	DroppedFrames() uint64

	Start()
	Stop()
	SwitchCamera()
	SetZoom(float64)
	SetZoomPreset(float64)
	Focus(device.Point)
	CycleFlash()
	SetMode(session.Mode)
	CapturePhoto()
	SelectLUT(string)
	RequestAccess()
}

type Options struct {
	PreviewWidth int
	PreviewFPS   int
	JPEGQuality  int
}

type Hub struct {
	ctl  Controller
	prev *previewer

	mu        sync.RWMutex
	clients   map[*client]bool
	startTime time.Time
	sent      uint64

	latest dispatch.Slot[session.Snapshot]
	wake   chan struct{}
	quit   chan struct{}
	done   chan struct{}
	unsub  func()
}

func NewHub(ctl Controller, o Options) *Hub {
	h := &Hub{
		ctl:       ctl,
		prev:      newPreviewer(o),
		clients:   map[*client]bool{},
		startTime: time.Now(),
		wake:      make(chan struct{}, 1),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	// The subscriber runs on the session's UI context; it only parks the
	// snapshot for the broadcaster.
	h.unsub = ctl.Subscribe(func(s session.Snapshot) {
		h.latest.Put(s)
		select {
		case h.wake <- struct{}{}:
		default:
		}
	})
	go h.broadcastLoop()
	return h
}

// Routes registers the bridge endpoints on mux.
func (h *Hub) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.HandleStateWS)
	mux.HandleFunc("/control", h.HandleControlWS)
	mux.HandleFunc("/health", h.HandleHealth)
}

func (h *Hub) Close() {
	h.unsub()
	close(h.quit)
	<-h.done
	h.mu.Lock()
	for c := range h.clients {
		c.conn.Close()
		delete(h.clients, c)
	}
	h.mu.Unlock()
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// client serializes writes; a websocket connection allows one writer.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (h *Hub) HandleStateWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{conn: conn}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	b, _ := h.prev.message(h.ctl.Snapshot(), true)
	h.send(c, b)

	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.clients, c)
			h.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) HandleControlWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Command
		reply := map[string]any{"ok": true}
		if err := json.Unmarshal(data, &msg); err != nil {
			reply = map[string]any{"ok": false, "error": "malformed command"}
		} else if err := h.apply(msg); err != nil {
			reply = map[string]any{"ok": false, "action": msg.Action, "error": err.Error()}
		} else {
			reply["action"] = msg.Action
		}
		b, _ := json.Marshal(reply)
		conn.SetWriteDeadline(time.Now().Add(time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			return
		}
	}
}

func (h *Hub) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s := h.ctl.Snapshot()
	h.mu.RLock()
	resp := map[string]any{
		"uptime_s":       time.Since(h.startTime).Seconds(),
		"clients":        len(h.clients),
		"messages":       h.sent,
		"dropped_frames": h.ctl.DroppedFrames(),
		"phase":          s.Phase,
		"generation":     s.Generation,
		"camera":         s.Authorization.Camera,
	}
	h.mu.RUnlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// broadcastLoop sends each parked snapshot. A throttled preview is sent
// again once the window closes, so the last frame is never lost.
func (h *Hub) broadcastLoop() {
	defer close(h.done)
	var (
		s        session.Snapshot
		trailing <-chan time.Time
	)
	for {
		select {
		case <-h.quit:
			return
		case <-h.wake:
			next, ok := h.latest.Take()
			if !ok {
				continue
			}
			s = next
		case <-trailing:
		}
		b, wait := h.prev.message(s, false)
		h.broadcast(b)
		trailing = nil
		if wait > 0 {
			trailing = time.After(wait)
		}
	}
}

func (h *Hub) broadcast(b []byte) {
	h.mu.RLock()
	conns := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	for _, c := range conns {
		h.send(c, b)
	}
}

func (h *Hub) send(c *client, b []byte) {
	c.mu.Lock()
	c.conn.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
	err := c.conn.WriteMessage(websocket.TextMessage, b)
	c.mu.Unlock()
	if err != nil {
		log.Debug().Err(err).Msg("write state")
		return
	}
	h.mu.Lock()
	h.sent++
	h.mu.Unlock()
}
