package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)
	return h
}

func receive(t *testing.T, ch <-chan []byte) Event {
	t.Helper()
	select {
	case data, ok := <-ch:
		if !ok {
			t.Fatal("send channel closed")
		}
		var evt Event
		if err := json.Unmarshal(data, &evt); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestHubBroadcastsToAllClients(t *testing.T) {
	h := startHub(t)
	a, b := NewClient(), NewClient()
	if !h.Register(a) || !h.Register(b) {
		t.Fatal("register failed")
	}

	id := uuid.New()
	h.MatchesChanged("created", id)

	for _, c := range []*Client{a, b} {
		evt := receive(t, c.Send)
		if evt.Type != EventMatchesChanged || evt.Reason != "created" {
			t.Fatalf("unexpected event %+v", evt)
		}
		if len(evt.MatchIDs) != 1 || evt.MatchIDs[0] != id {
			t.Fatalf("unexpected ids %v", evt.MatchIDs)
		}
	}
}

func TestHubUnregisterClosesSend(t *testing.T) {
	h := startHub(t)
	c := NewClient()
	h.Register(c)
	h.Unregister(c)

	select {
	case _, ok := <-c.Send:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("send channel was not closed")
	}
}

func TestHubDropsSlowClients(t *testing.T) {
	h := startHub(t)
	slow := &Client{Send: make(chan []byte)} // unbuffered and not being read
	fast := NewClient()
	h.Register(slow)
	h.Register(fast)

	h.MatchesChanged("updated")
	receive(t, fast.Send)
	// Register is handled by the same loop, so once it returns the broadcast is finished.
	h.Register(NewClient())

	select {
	case _, ok := <-slow.Send:
		if ok {
			t.Fatal("slow client should not receive the event")
		}
	default:
		t.Fatal("slow client was not dropped")
	}
}

func TestHubStopsWithContext(t *testing.T) {
	h := NewHub(quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	c := NewClient()
	h.Register(c)
	cancel()

	select {
	case <-h.done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	if _, ok := <-c.Send; ok {
		t.Fatal("expected client channel closed on shutdown")
	}
	if h.Register(NewClient()) {
		t.Fatal("register should fail after stop")
	}
	// Publishing after shutdown is a no-op rather than a block.
	h.MatchesChanged("deleted")
}

func TestNilHubPublishIsNoop(t *testing.T) {
	var h *Hub
	h.MatchesChanged("created")
}

func TestHandlerDeliversOverWebSocket(t *testing.T) {
	h := startHub(t)
	srv := httptest.NewServer(h.Handler("*"))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Registration happens inside the handler; publish until the client is attached.
	deadline := time.Now().Add(2 * time.Second)
	_ = conn.SetReadDeadline(deadline)
	done := make(chan Event, 1)
	go func() {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var evt Event
		if json.Unmarshal(data, &evt) == nil {
			done <- evt
		}
	}()

	for time.Now().Before(deadline) {
		h.MatchesChanged("auto-update")
		select {
		case evt := <-done:
			if evt.Reason != "auto-update" {
				t.Fatalf("unexpected event %+v", evt)
			}
			return
		case <-time.After(20 * time.Millisecond):
		}
	}
	t.Fatal("no event received over websocket")
}

func TestOriginChecker(t *testing.T) {
	check := originChecker("https://club.example, https://admin.example")
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)

	req.Header.Set("Origin", "https://club.example")
	if !check(req) {
		t.Fatal("expected allowed origin")
	}
	req.Header.Set("Origin", "https://evil.example")
	if check(req) {
		t.Fatal("expected rejected origin")
	}
	if !originChecker("*")(req) {
		t.Fatal("wildcard should allow all")
	}
}
