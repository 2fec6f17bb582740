package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mosaicpm/mosaic/internal/ports"
)

func dialHub(t *testing.T, hub *WSHub) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWSHubBroadcast(t *testing.T) {
	hub := NewWSHub()
	conn := dialHub(t, hub)

	waitForClients(t, hub, 1)

	err := hub.Publish(context.Background(), ports.NotifyEvent{
		Type:    ports.EventTicketCompleted,
		Payload: map[string]any{"ticketId": 7},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var envelope Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if envelope.Type != ports.EventTicketCompleted {
		t.Fatalf("type = %q", envelope.Type)
	}
	if envelope.Timestamp == "" {
		t.Fatal("missing timestamp")
	}
}

func TestMultiSwallowsSinkFailures(t *testing.T) {
	failing := notifierFunc(func(context.Context, ports.NotifyEvent) error {
		return errors.New("sink down")
	})
	var delivered int
	counting := notifierFunc(func(context.Context, ports.NotifyEvent) error {
		delivered++
		return nil
	})

	multi := NewMulti(failing, counting, nil)
	if err := multi.Publish(context.Background(), ports.NotifyEvent{Type: "x"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if delivered != 1 {
		t.Fatalf("delivered = %d, want 1", delivered)
	}
}

type notifierFunc func(ctx context.Context, event ports.NotifyEvent) error

func (f notifierFunc) Publish(ctx context.Context, event ports.NotifyEvent) error {
	return f(ctx, event)
}

func waitForClients(t *testing.T, hub *WSHub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", hub.ClientCount(), want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
