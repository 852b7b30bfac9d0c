package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestSSEHub_BroadcastAndReceive(t *testing.T) {
	hub := newSSEHub()

	client := hub.subscribe(nil)
	defer hub.unsubscribe(client)

	hub.broadcast("pledges.pledge.put", []byte(`{"pledge":{"id":"day-1"}}`))

	select {
	case evt := <-client.ch:
		if evt.Topic != "pledges.pledge.put" {
			t.Fatalf("expected topic=%q, got %q", "pledges.pledge.put", evt.Topic)
		}
		if string(evt.Data) != `{"pledge":{"id":"day-1"}}` {
			t.Fatalf("unexpected data %q", string(evt.Data))
		}
		if evt.ID != 1 {
			t.Fatalf("expected id=1, got %d", evt.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	if hub.lastID() != 1 {
		t.Fatalf("expected lastID=1, got %d", hub.lastID())
	}
}

func TestSSEHub_TopicFiltering(t *testing.T) {
	hub := newSSEHub()

	client := hub.subscribe([]string{"pledges.pledge.*"})
	defer hub.unsubscribe(client)

	hub.broadcast("pledges.share.copied", []byte(`{}`))
	hub.broadcast("pledges.pledge.put", []byte(`{}`))

	select {
	case evt := <-client.ch:
		if evt.Topic != "pledges.pledge.put" {
			t.Fatalf("expected topic=%q, got %q", "pledges.pledge.put", evt.Topic)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}

	select {
	case evt := <-client.ch:
		t.Fatalf("unexpected event: topic=%q", evt.Topic)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSSEHub_Unsubscribe(t *testing.T) {
	hub := newSSEHub()

	client := hub.subscribe(nil)
	hub.unsubscribe(client)

	hub.broadcast("pledges.pledge.put", []byte(`{}`))

	select {
	case <-client.ch:
		t.Fatal("should not receive events after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSSEHub_SlowClientDoesNotBlock(t *testing.T) {
	hub := newSSEHub()
	client := hub.subscribe(nil)
	defer hub.unsubscribe(client)

	done := make(chan struct{})
	go func() {
		for range sseClientBuffer * 2 {
			hub.broadcast("pledges.pledge.put", []byte(`{}`))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full client")
	}
	if len(client.ch) != sseClientBuffer {
		t.Fatalf("expected a full buffer of %d, got %d", sseClientBuffer, len(client.ch))
	}
}

func TestSSEHub_EventsSince(t *testing.T) {
	hub := newSSEHub()
	for range 5 {
		hub.broadcast("pledges.pledge.put", []byte(`{}`))
	}

	evts := hub.eventsSince(2)
	if len(evts) != 3 {
		t.Fatalf("expected 3 events, got %d", len(evts))
	}
	if evts[0].ID != 3 || evts[1].ID != 4 || evts[2].ID != 5 {
		t.Fatalf("expected IDs [3,4,5], got [%d,%d,%d]", evts[0].ID, evts[1].ID, evts[2].ID)
	}
	if len(newSSEHub().eventsSince(0)) != 0 {
		t.Fatal("expected no events from an empty hub")
	}
}

func TestSSEHub_RingBufferWrap(t *testing.T) {
	hub := newSSEHub()
	for range sseRingBufferSize + 100 {
		hub.broadcast("pledges.pledge.put", []byte(`{}`))
	}

	evts := hub.eventsSince(0)
	if len(evts) != sseRingBufferSize {
		t.Fatalf("expected %d events, got %d", sseRingBufferSize, len(evts))
	}
	if evts[0].ID != 101 {
		t.Fatalf("expected oldest event ID=101, got %d", evts[0].ID)
	}
}

func TestMatchTopicPattern(t *testing.T) {
	for _, tc := range []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"pledges.pledge.put", "pledges.pledge.put", true},
		{"pledges.pledge.put", "pledges.pledge.del", false},
		{"pledges.pledge.*", "pledges.pledge.put", true},
		{"pledges.pledge.*", "pledges.share.copied", false},
		{"pledges.>", "pledges.pledge.put", true},
		{"pledges.>", "other.topic", false},
		{"*.*.*", "pledges.pledge.put", true},
		{"*.*.*", "pledges.pledge", false},
	} {
		t.Run(tc.pattern+"_"+tc.topic, func(t *testing.T) {
			if got := matchTopicPattern(tc.pattern, tc.topic); got != tc.want {
				t.Fatalf("matchTopicPattern(%q, %q) = %v, want %v", tc.pattern, tc.topic, got, tc.want)
			}
		})
	}
}

// streamFor opens the stream on handler, runs during while it is open and
// returns everything written once the stream is closed.
func streamFor(t *testing.T, handler http.Handler, header http.Header, query string, during func()) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := "/v1/pledges/stream"
	if query != "" {
		path += "?" + query
	}
	req := httptest.NewRequest("GET", path, nil).WithContext(ctx)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		handler.ServeHTTP(rec, req)
	}()

	time.Sleep(50 * time.Millisecond)
	if during != nil {
		during()
		time.Sleep(50 * time.Millisecond)
	}
	cancel()
	<-done

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected Content-Type=text/event-stream, got %q", ct)
	}
	return rec.Body.String()
}

func TestHandleEventStream_LiveBoardChange(t *testing.T) {
	_, h := newTestServer(t)

	body := streamFor(t, h, nil, "", func() {
		postForm(t, h, "/cells/day-2/pledge", url.Values{"amount": {"2"}, "name": {"Sam"}}, desktopUA)
	})

	if !strings.Contains(body, "event:pledges.pledge.put") {
		t.Fatalf("expected pledge event, got:\n%s", body)
	}
	if !strings.Contains(body, `"id":"day-2"`) || !strings.Contains(body, "id:1\n") {
		t.Fatalf("expected numbered day-2 event, got:\n%s", body)
	}
}

func TestHandleEventStream_SnapshotOnConnect(t *testing.T) {
	_, h := newTestServer(t)
	postForm(t, h, "/cells/day-1/pledge", url.Values{"amount": {"1"}}, desktopUA)

	body := streamFor(t, h, nil, "", nil)

	if !strings.Contains(body, `"id":"day-1"`) {
		t.Fatalf("expected day-1 in snapshot, got:\n%s", body)
	}
	if strings.HasPrefix(body, "id:") || strings.Contains(body, "\nid:") {
		t.Fatalf("snapshot events must not carry ids, got:\n%s", body)
	}
}

func TestHandleEventStream_TopicFilter(t *testing.T) {
	cs, h := newTestServer(t)

	body := streamFor(t, h, nil, "topics=pledges.share.*", func() {
		cs.sseHub.broadcast("pledges.pledge.put", []byte(`{"n":1}`))
		cs.sseHub.broadcast("pledges.share.copied", []byte(`{"n":2}`))
	})

	if strings.Contains(body, `data:{"n":1}`) {
		t.Fatalf("expected pledge event to be filtered out, got:\n%s", body)
	}
	if !strings.Contains(body, `data:{"n":2}`) {
		t.Fatalf("expected share event in body, got:\n%s", body)
	}
}

func TestHandleEventStream_LastEventID(t *testing.T) {
	cs, h := newTestServer(t)
	cs.sseHub.broadcast("pledges.pledge.put", []byte(`{"n":1}`))
	cs.sseHub.broadcast("pledges.pledge.put", []byte(`{"n":2}`))
	cs.sseHub.broadcast("pledges.pledge.put", []byte(`{"n":3}`))

	body := streamFor(t, h, http.Header{"Last-Event-Id": {"1"}}, "", nil)

	if strings.Contains(body, `data:{"n":1}`) {
		t.Fatalf("expected event 1 to be skipped, got:\n%s", body)
	}
	if !strings.Contains(body, `data:{"n":2}`) || !strings.Contains(body, `data:{"n":3}`) {
		t.Fatalf("expected events 2 and 3, got:\n%s", body)
	}
}

func TestSSEEventFormat(t *testing.T) {
	cs, h := newTestServer(t)

	body := streamFor(t, h, nil, "", func() {
		cs.sseHub.broadcast("pledges.pledge.put", []byte(`{"pledge":{"id":"any-1"}}`))
	})

	scanner := bufio.NewScanner(strings.NewReader(body))
	var id, event, data string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "id:"):
			id = strings.TrimPrefix(line, "id:")
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimPrefix(line, "data:")
		}
	}

	if id != "1" {
		t.Fatalf("expected id=1, got %q", id)
	}
	if event != "pledges.pledge.put" {
		t.Fatalf("expected event=pledges.pledge.put, got %q", event)
	}
	if !json.Valid([]byte(data)) || data != `{"pledge":{"id":"any-1"}}` {
		t.Fatalf("unexpected data %q", data)
	}
}
