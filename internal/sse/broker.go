// Package sse implements the server-sent events broker that streams vault
// change notifications to connected clients.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event is a single server-sent event. Entry events carry the affected
// path; the derived graph.updated and report.stale events do not.
type Event struct {
	Type string `json:"type"`
	Path string `json:"path,omitempty"`
}

// Broker fans out events to subscribed clients. All broker state is owned
// by the run loop; the exported methods talk to it over channels, so there
// are no locks to hold across a slow client.
type Broker struct {
	subscribeCh   chan chan Event
	unsubscribeCh chan chan Event
	publishCh     chan Event
	entryCh       chan Event
	countCh       chan chan int
	closeCh       chan struct{}
	closed        atomic.Bool
	refreshMin    time.Duration
}

// NewBroker starts a broker. refreshMin throttles the graph.updated and
// report.stale events that follow entry changes, so a burst of writes
// yields one refresh hint instead of one per file.
func NewBroker(refreshMin time.Duration) *Broker {
	b := &Broker{
		subscribeCh:   make(chan chan Event),
		unsubscribeCh: make(chan chan Event),
		publishCh:     make(chan Event),
		entryCh:       make(chan Event),
		countCh:       make(chan chan int),
		closeCh:       make(chan struct{}),
		refreshMin:    refreshMin,
	}
	go b.run()
	return b
}

func (b *Broker) run() {
	subs := make(map[chan Event]struct{})
	var (
		lastRefresh   time.Time
		refreshQueued bool
	)
	refreshTimer := time.NewTimer(time.Hour)
	refreshTimer.Stop()
	defer refreshTimer.Stop()

	refresh := func() {
		lastRefresh = time.Now()
		broadcast(subs, Event{Type: "graph.updated"})
		broadcast(subs, Event{Type: "report.stale"})
	}

	for {
		select {
		case ch := <-b.subscribeCh:
			subs[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}

		case ev := <-b.publishCh:
			broadcast(subs, ev)

		case ev := <-b.entryCh:
			broadcast(subs, ev)
			if since := time.Since(lastRefresh); since >= b.refreshMin {
				refresh()
			} else if !refreshQueued {
				refreshQueued = true
				refreshTimer.Reset(b.refreshMin - since)
			}

		case <-refreshTimer.C:
			if refreshQueued {
				refreshQueued = false
				refresh()
			}

		case ch := <-b.countCh:
			ch <- len(subs)

		case <-b.closeCh:
			for ch := range subs {
				close(ch)
			}
			return
		}
	}
}

// broadcast delivers ev to every subscriber, dropping it for clients whose
// buffer is full rather than blocking the loop.
func broadcast(subs map[chan Event]struct{}, ev Event) {
	for ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe registers a new client channel. The channel is closed on
// Unsubscribe or broker shutdown.
func (b *Broker) Subscribe() chan Event {
	ch := make(chan Event, 16)
	select {
	case b.subscribeCh <- ch:
	case <-b.closeCh:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client channel and closes it.
func (b *Broker) Unsubscribe(ch chan Event) {
	select {
	case b.unsubscribeCh <- ch:
	case <-b.closeCh:
	}
}

// Publish sends an arbitrary event to all clients.
func (b *Broker) Publish(ev Event) {
	select {
	case b.publishCh <- ev:
	case <-b.closeCh:
	}
}

// PublishEntryEvent sends an entry.<kind> event and schedules the throttled
// refresh events that follow entry changes.
func (b *Broker) PublishEntryEvent(kind, path string) {
	select {
	case b.entryCh <- Event{Type: "entry." + kind, Path: path}:
	case <-b.closeCh:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	ch := make(chan int)
	select {
	case b.countCh <- ch:
		return <-ch
	case <-b.closeCh:
		return 0
	}
}

// Close shuts the broker down and closes every client channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.closeCh)
	}
}

// ServeHTTP streams events to one client until it disconnects.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}
