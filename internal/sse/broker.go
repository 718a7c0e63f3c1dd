// Package sse implements a Server-Sent Events broker for real-time updates.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/starford/cellcheck/internal/index"
)

// Event types published by the broker.
const (
	TypeNoteCreated       = "note.created"
	TypeNoteUpdated       = "note.updated"
	TypeNoteDeleted       = "note.deleted"
	TypeCheckboxesUpdated = "checkboxes.updated"
	TypeSessionUpdated    = "session.updated"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// kindSession marks a change made through a live session.
const kindSession = "session"

type change struct {
	kind    string
	path    string
	session string
}

// Broker manages SSE client connections and broadcasts events.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable
// state (clients and the per-note checkbox throttle). Public methods talk to
// the loop through channels, so no mutexes are required.
//
// checkboxes.updated is throttled per note: the first change of a note is
// announced right away, later changes within the interval are coalesced into
// one trailing event.
type Broker struct {
	boxesMin time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	changeCh      chan change
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker with the given checkbox throttle interval.
func NewBroker(throttle time.Duration) *Broker {
	if throttle <= 0 {
		throttle = 500 * time.Millisecond
	}

	b := &Broker{
		boxesMin:      throttle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		changeCh:      make(chan change, 256),
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
	lastBoxes := make(map[string]time.Time)
	pending := make(map[string]struct{})

	flush := time.NewTicker(b.boxesMin)
	defer flush.Stop()

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
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	announceBoxes := func(path string, now time.Time) {
		lastBoxes[path] = now
		delete(pending, path)
		broadcast(Event{Type: TypeCheckboxesUpdated, Data: map[string]string{"path": path}})
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
			switch c.kind {
			case index.EventCreated:
				broadcast(Event{Type: TypeNoteCreated, Data: map[string]string{"path": c.path}})
			case index.EventUpdated, index.EventRepaired:
				broadcast(Event{Type: TypeNoteUpdated, Data: map[string]string{"path": c.path}})
			case index.EventDeleted:
				broadcast(Event{Type: TypeNoteDeleted, Data: map[string]string{"path": c.path}})
			case kindSession:
				broadcast(Event{Type: TypeSessionUpdated, Data: map[string]string{"id": c.session, "path": c.path}})
			}

			now := time.Now()
			if now.Sub(lastBoxes[c.path]) >= b.boxesMin {
				announceBoxes(c.path, now)
			} else {
				pending[c.path] = struct{}{}
			}

		case now := <-flush.C:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				if now.Sub(lastBoxes[p]) >= b.boxesMin {
					paths = append(paths, p)
				}
			}
			sort.Strings(paths)
			for _, p := range paths {
				announceBoxes(p, now)
			}
			for p, t := range lastBoxes {
				if _, waiting := pending[p]; !waiting && now.Sub(t) >= b.boxesMin {
					delete(lastBoxes, p)
				}
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
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

// PublishNoteEvent publishes a note change (created, updated, repaired or
// deleted) and a throttled checkboxes.updated for the note.
func (b *Broker) PublishNoteEvent(kind, path string) {
	b.send(change{kind: kind, path: path})
}

// PublishSessionEvent publishes session.updated for a live session and a
// throttled checkboxes.updated for its note.
func (b *Broker) PublishSessionEvent(id, path string) {
	b.send(change{kind: kindSession, path: path, session: id})
}

func (b *Broker) send(c change) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- c:
	case <-b.stopped:
	}
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
