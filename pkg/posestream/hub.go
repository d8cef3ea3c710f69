package posestream

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub relays the latest pose from the robot to its subscribers.  Each
// subscriber has a capacity-1 slot that Publish replaces when full, so a
// slow or dead viewer only ever loses its own updates.
type Hub struct {
	log *zap.SugaredLogger

	lock       sync.Mutex
	haveLatest bool
	latest     Update
	subs       map[*Subscription]struct{}
}

func NewHub(log *zap.SugaredLogger) *Hub {
	return &Hub{
		log:  log,
		subs: map[*Subscription]struct{}{},
	}
}

type Subscription struct {
	// C delivers updates, most recent wins.
	C chan Update

	hub *Hub
}

func (s *Subscription) Cancel() {
	s.hub.lock.Lock()
	defer s.hub.lock.Unlock()
	delete(s.hub.subs, s)
}

// Subscribe registers a new subscriber.  If the hub already holds an
// update, the subscriber receives it immediately.
func (h *Hub) Subscribe() *Subscription {
	h.lock.Lock()
	defer h.lock.Unlock()
	s := &Subscription{C: make(chan Update, 1), hub: h}
	h.subs[s] = struct{}{}
	if h.haveLatest {
		s.C <- h.latest
	}
	return s
}

// Publish stores u as the latest update and offers it to every subscriber,
// replacing any update still sitting unconsumed in a subscriber's slot.
func (h *Hub) Publish(u Update) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.latest = u
	h.haveLatest = true
	for s := range h.subs {
		select {
		case s.C <- u:
		default:
			// Slot full: drop the stale update and offer the new one.
			select {
			case <-s.C:
			default:
			}
			select {
			case s.C <- u:
			default:
			}
		}
	}
}

// Latest returns the most recent update, if any has arrived yet.
func (h *Hub) Latest() (Update, bool) {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.latest, h.haveLatest
}

var upgrader = websocket.Upgrader{
	// The hub serves LAN viewers; no origin policy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeSource accepts the robot's websocket connection and publishes every
// update it pushes.
func (h *Hub) ServeSource(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnw("source upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	h.log.Infow("source connected", "remote", r.RemoteAddr)
	for {
		var u Update
		if err := conn.ReadJSON(&u); err != nil {
			h.log.Infow("source disconnected", "remote", r.RemoteAddr, "error", err)
			return
		}
		h.Publish(u)
	}
}

// ServeViewer streams updates to a viewer over websocket.  A write failure
// drops only that viewer.
func (h *Hub) ServeViewer(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnw("viewer upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sub := h.Subscribe()
	defer sub.Cancel()

	// Drain the viewer's inbound side so we notice it going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case u := <-sub.C:
			if err := conn.WriteJSON(u); err != nil {
				h.log.Infow("viewer dropped", "remote", r.RemoteAddr, "error", err)
				return
			}
		}
	}
}

// ServeLatest returns the most recent update as a JSON snapshot.
func (h *Hub) ServeLatest(w http.ResponseWriter, r *http.Request) {
	u, ok := h.Latest()
	if !ok {
		http.Error(w, "no pose yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(u)
}
