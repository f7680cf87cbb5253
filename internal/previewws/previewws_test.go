package previewws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type fakeSource struct {
	ch chan []byte
}

func (f fakeSource) Frames() <-chan []byte { return f.ch }

func TestServerForwardsFramesToClient(t *testing.T) {
	src := fakeSource{ch: make(chan []byte, 1)}
	s := New(src, "127.0.0.1:0")

	ts := httptest.NewServer(s.httpSrv.Handler)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	payload := []byte("frame-bytes")
	src.ch <- payload

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if msgType != websocket.BinaryMessage {
		t.Fatalf("got message type %d, want binary", msgType)
	}
	if string(data) != string(payload) {
		t.Fatalf("got %q, want %q", data, payload)
	}
}

func TestServerClosesConnectionWhenClientDisconnects(t *testing.T) {
	src := fakeSource{ch: make(chan []byte, 1)}
	s := New(src, "127.0.0.1:0")

	ts := httptest.NewServer(s.httpSrv.Handler)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	conn.Close()

	// No assertion beyond "the server doesn't hang or panic" — the
	// write pump should observe the closed connection and return.
	time.Sleep(50 * time.Millisecond)
}
