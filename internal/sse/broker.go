// Package sse implements a Server-Sent Events broker for live dashboard updates.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// DashboardUpdated is emitted, throttled, after any data change. Clients
// re-fetch the dashboard when they see it.
const DashboardUpdated = "dashboard.updated"

// Event represents an SSE event to broadcast.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Change describes one mutation, e.g. {"measurement", "created", id}.
type Change struct {
	Entity string
	Kind   string
	ID     string
}

// Broker manages SSE client connections and broadcasts events.
//
// A single event loop goroutine owns the client set and the throttle
// timestamp. Public methods talk to it over channels.
type Broker struct {
	dashboardMin time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	changeCh      chan Change
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that emits dashboard.updated at most once
// per throttle interval.
func NewBroker(throttle time.Duration) *Broker {
	if throttle <= 0 {
		throttle = 2 * time.Second
	}

	b := &Broker{
		dashboardMin:  throttle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		changeCh:      make(chan Change, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var lastDashboard time.Time

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))

		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Slow client; drop rather than block the loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case c := <-b.changeCh:
			switch c.Kind {
			case "created", "updated", "deleted":
				broadcast(Event{Type: c.Entity + "." + c.Kind, Data: map[string]string{"id": c.ID}})
			default:
				continue
			}

			now := time.Now()
			if now.Sub(lastDashboard) >= b.dashboardMin {
				lastDashboard = now
				broadcast(Event{Type: DashboardUpdated, Data: map[string]string{}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the event loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishChange broadcasts "<entity>.<kind>" followed, unless throttled,
// by dashboard.updated. Unknown kinds are ignored.
func (b *Broker) PublishChange(entity, kind, id string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- Change{Entity: entity, Kind: kind, ID: id}:
	case <-b.stopped:
	}
}

// PublishPlanChange adapts PublishChange to the journal callback shape.
func (b *Broker) PublishPlanChange(kind, path string) {
	b.PublishChange("plan", kind, path)
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
