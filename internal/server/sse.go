package server

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alfredjeanlab/givecal/internal/events"
)

const (
	// sseRingBufferSize is how many recent events are kept for
	// Last-Event-ID replay.
	sseRingBufferSize = 1000

	// sseKeepaliveInterval is how often an idle stream gets a comment line.
	sseKeepaliveInterval = 15 * time.Second

	// sseClientBuffer is the per-client channel capacity. Events beyond it
	// are dropped for that client.
	sseClientBuffer = 64

	// viewerHeader carries a viewer's client id on stream requests and
	// as gRPC metadata.
	viewerHeader = "x-givecal-client"
)

// sseEvent is one fanned-out event.
type sseEvent struct {
	ID    uint64 // 0 for snapshot events, which are never buffered
	Topic string
	Data  []byte
}

// sseHub fans pledge events out to stream clients and remembers the most
// recent ones for reconnecting clients.
type sseHub struct {
	mu      sync.RWMutex
	clients map[*sseClient]struct{}
	nextID  atomic.Uint64

	ringMu  sync.RWMutex
	ring    [sseRingBufferSize]sseEvent
	ringPos int
	ringLen int
}

type sseClient struct {
	topics []string // empty matches all
	ch     chan *sseEvent
}

func newSSEHub() *sseHub {
	return &sseHub{clients: make(map[*sseClient]struct{})}
}

// broadcast numbers the event, buffers it and hands it to every matching
// client without blocking.
func (h *sseHub) broadcast(topic string, payload []byte) {
	evt := &sseEvent{ID: h.nextID.Add(1), Topic: topic, Data: payload}

	h.ringMu.Lock()
	h.ring[h.ringPos] = *evt
	h.ringPos = (h.ringPos + 1) % sseRingBufferSize
	if h.ringLen < sseRingBufferSize {
		h.ringLen++
	}
	h.ringMu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.matchesTopic(topic) {
			continue
		}
		select {
		case c.ch <- evt:
		default:
		}
	}
}

func (h *sseHub) subscribe(topics []string) *sseClient {
	c := &sseClient{topics: topics, ch: make(chan *sseEvent, sseClientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *sseHub) unsubscribe(c *sseClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// lastID returns the id of the most recent event, 0 if none.
func (h *sseHub) lastID() uint64 {
	return h.nextID.Load()
}

// eventsSince returns buffered events with ID > lastID, oldest first.
func (h *sseHub) eventsSince(lastID uint64) []*sseEvent {
	h.ringMu.RLock()
	defer h.ringMu.RUnlock()

	var result []*sseEvent
	start := h.ringPos - h.ringLen
	if start < 0 {
		start += sseRingBufferSize
	}
	for i := range h.ringLen {
		evt := &h.ring[(start+i)%sseRingBufferSize]
		if evt.ID > lastID {
			result = append(result, evt)
		}
	}
	return result
}

func (c *sseClient) matchesTopic(topic string) bool {
	if len(c.topics) == 0 {
		return true
	}
	for _, pattern := range c.topics {
		if matchTopicPattern(pattern, topic) {
			return true
		}
	}
	return false
}

// matchTopicPattern matches a dot-separated topic against a NATS-style
// pattern: "*" matches one segment, a trailing ">" one or more.
func matchTopicPattern(pattern, topic string) bool {
	if pattern == topic {
		return true
	}
	patParts := strings.Split(pattern, ".")
	topParts := strings.Split(topic, ".")
	for i, pp := range patParts {
		if pp == ">" {
			return i < len(topParts)
		}
		if i >= len(topParts) {
			return false
		}
		if pp != "*" && pp != topParts[i] {
			return false
		}
	}
	return len(patParts) == len(topParts)
}

// handleEventStream handles GET /v1/pledges/stream.
//
// A new connection first receives every current pledge as an unnumbered
// event, then any buffered events after Last-Event-ID, then live events.
// Applying a pledge twice is harmless, so overlap between the three is fine.
func (s *CalendarServer) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	var topics []string
	if q := r.URL.Query().Get("topics"); q != "" {
		for _, t := range strings.Split(q, ",") {
			if t = strings.TrimSpace(t); t != "" {
				topics = append(topics, t)
			}
		}
	}

	client := s.sseHub.subscribe(topics)
	defer s.sseHub.unsubscribe(client)
	defer s.viewers.Join(httpViewer(r), "sse")()

	ctx := r.Context()
	snapshot, err := s.records(ctx)
	if err != nil {
		s.logger.Error("listing pledges for stream", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list pledges")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if client.matchesTopic(events.TopicPledgePut) {
		for _, rec := range snapshot {
			data, err := jsonBytes(events.PledgePut{Pledge: rec})
			if err != nil {
				continue
			}
			writeSSEEvent(w, &sseEvent{Topic: events.TopicPledgePut, Data: data})
		}
	}

	if lastIDStr := r.Header.Get("Last-Event-ID"); lastIDStr != "" {
		if lastID, err := strconv.ParseUint(lastIDStr, 10, 64); err == nil {
			for _, evt := range s.sseHub.eventsSince(lastID) {
				if client.matchesTopic(evt.Topic) {
					writeSSEEvent(w, evt)
				}
			}
		}
	}
	flusher.Flush()

	keepalive := time.NewTicker(sseKeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-client.ch:
			writeSSEEvent(w, evt)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprintf(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}

// writeSSEEvent writes evt in text/event-stream framing. Snapshot events
// carry no id line so they do not move the client's Last-Event-ID.
func writeSSEEvent(w http.ResponseWriter, evt *sseEvent) {
	if evt.ID > 0 {
		fmt.Fprintf(w, "id:%d\n", evt.ID)
	}
	fmt.Fprintf(w, "event:%s\n", evt.Topic)
	fmt.Fprintf(w, "data:%s\n\n", evt.Data)
}

// httpViewer identifies the viewer behind a stream request: the client id it
// sends, else its remote address without the port.
func httpViewer(r *http.Request) string {
	if id := r.Header.Get(viewerHeader); id != "" {
		return id
	}
	if id := r.URL.Query().Get("client"); id != "" {
		return id
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
