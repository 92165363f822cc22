package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/alfredjeanlab/foundry/internal/events"
)

const (
	// sseHistory is how many recent events are kept for Last-Event-ID replay.
	sseHistory = 1000

	sseKeepaliveInterval = 15 * time.Second
	sseClientBuffer      = 64
	sseRetryMillis       = 3000
)

type sseEvent struct {
	ID    uint64
	Topic string
	Data  []byte
}

// sseHub fans record events out to connected stream clients and keeps the
// last sseHistory of them, oldest first, for reconnecting clients.
type sseHub struct {
	mu      sync.Mutex
	clients map[*sseClient]struct{}
	history []*sseEvent
	lastID  uint64
}

type sseClient struct {
	topics []string // patterns; empty means every topic
	ch     chan *sseEvent
}

func newSSEHub() *sseHub {
	return &sseHub{
		clients: make(map[*sseClient]struct{}),
		history: make([]*sseEvent, 0, sseHistory),
	}
}

func (h *sseHub) broadcast(topic string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastID++
	evt := &sseEvent{ID: h.lastID, Topic: topic, Data: payload}
	if len(h.history) == sseHistory {
		copy(h.history, h.history[1:])
		h.history = h.history[:sseHistory-1]
	}
	h.history = append(h.history, evt)

	for c := range h.clients {
		if !c.matchesTopic(topic) {
			continue
		}
		select {
		case c.ch <- evt:
		default:
			// slow client: drop
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

// eventsSince returns the kept events newer than lastID, oldest first.
func (h *sseHub) eventsSince(lastID uint64) []*sseEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	i := sort.Search(len(h.history), func(i int) bool { return h.history[i].ID > lastID })
	if i == len(h.history) {
		return nil
	}
	return slices.Clone(h.history[i:])
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

// matchTopicPattern matches topic with NATS subject rules: "*" is one
// segment, a trailing ">" is one or more.
func matchTopicPattern(pattern, topic string) bool {
	if pattern == topic {
		return true
	}
	patParts := strings.Split(pattern, ".")
	topParts := strings.Split(topic, ".")
	for i, pp := range patParts {
		switch {
		case pp == ">":
			return i < len(topParts)
		case i >= len(topParts):
			return false
		case pp != "*" && pp != topParts[i]:
			return false
		}
	}

	return len(patParts) == len(topParts)
}

// handleEventStream handles GET /api/events/stream. Clients narrow the feed
// with ?topics=<pattern,...> or ?resources=<name,...>.
func (s *FoundryServer) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	topics := splitParam(r.URL.Query().Get("topics"))
	for _, name := range splitParam(r.URL.Query().Get("resources")) {
		res, err := s.resource(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		topics = append(topics, events.ResourcePattern(res))
	}

	client := s.sseHub.subscribe(topics)
	defer s.sseHub.unsubscribe(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "retry:%d\n\n", sseRetryMillis)
	flusher.Flush()

	// sent is the highest replayed event id; the client is subscribed before
	// the replay, so anything the channel repeats from it is skipped. It is
	// never seeded from Last-Event-ID: ids restart at 1 with the process and
	// a stale header would otherwise swallow live events.
	var sent uint64
	if lastID, err := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64); err == nil {
		for _, evt := range s.sseHub.eventsSince(lastID) {
			if client.matchesTopic(evt.Topic) {
				writeSSEEvent(w, evt)
			}
			sent = evt.ID
		}
		flusher.Flush()
	}

	keepalive := time.NewTicker(sseKeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-client.ch:
			if evt.ID <= sent {
				continue
			}
			sent = evt.ID
			writeSSEEvent(w, evt)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}

func splitParam(q string) []string {
	var out []string
	for _, t := range strings.Split(q, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// writeSSEEvent writes a single SSE event to the writer.
func writeSSEEvent(w http.ResponseWriter, evt *sseEvent) {
	fmt.Fprintf(w, "id:%d\n", evt.ID)
	fmt.Fprintf(w, "event:%s\n", evt.Topic)
	fmt.Fprintf(w, "data:%s\n\n", evt.Data)
}

// broadcastEvent is called by recordAndPublish to fan out events to SSE clients.
func (s *FoundryServer) broadcastEvent(topic string, event any) {
	if s.sseHub == nil {
		return
	}
	payload, err := events.Encode(event)
	if err != nil {
		slog.Warn("failed to marshal event for SSE broadcast", "topic", topic, "error", err)
		return
	}
	s.sseHub.broadcast(topic, payload)
}
