package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

// mockWSServer creates a test WebSocket server.
func mockWSServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))

	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func testConfig(url string) Config {
	return Config{
		URL:          url,
		PingTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   100,
	}
}

func TestClient_Connect(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	client := NewClient(testConfig(wsURL(server)), nil)

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if !client.IsConnected() {
		t.Error("expected IsConnected to return true")
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	if client.IsConnected() {
		t.Error("expected IsConnected to return false after Close")
	}

	// Drain until the channel closes
	for range client.Messages() {
	}
}

func TestClient_ConnectFailure(t *testing.T) {
	cfg := testConfig("ws://127.0.0.1:1")
	cfg.HandshakeTimeout = 500 * time.Millisecond

	client := NewClient(cfg, nil)
	if err := client.Connect(context.Background()); err == nil {
		t.Fatal("expected Connect to fail against a closed port")
	}
	if client.IsConnected() {
		t.Error("expected IsConnected to return false after failed Connect")
	}
}

func TestClient_ConnectAfterClose(t *testing.T) {
	client := NewClient(testConfig("ws://example.invalid"), nil)
	client.Close()

	if err := client.Connect(context.Background()); err != ErrAlreadyClosed {
		t.Errorf("Connect after Close = %v, want ErrAlreadyClosed", err)
	}
}

func TestClient_Send(t *testing.T) {
	var mu sync.Mutex
	var received []byte

	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			mu.Lock()
			received = msg
			mu.Unlock()
		}
	})
	defer server.Close()

	client := NewClient(testConfig(wsURL(server)), nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer func() {
		client.Close()
		for range client.Messages() {
		}
	}()

	testMsg := []byte(`{"test":"message"}`)
	if err := client.Send(testMsg); err != nil {
		t.Errorf("Send failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		got := string(received)
		mu.Unlock()
		if got == string(testMsg) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("server never received the message")
}

func TestClient_SendNotConnected(t *testing.T) {
	client := NewClient(testConfig("ws://example.invalid"), nil)

	if err := client.Send([]byte("x")); err != ErrNotConnected {
		t.Errorf("Send = %v, want ErrNotConnected", err)
	}
}

func TestClient_Receive(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte("one"))
		conn.WriteMessage(websocket.TextMessage, []byte("two"))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	client := NewClient(testConfig(wsURL(server)), nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	want := []string{"one", "two"}
	for i, w := range want {
		select {
		case msg := <-client.Messages():
			if string(msg) != w {
				t.Errorf("message %d = %q, want %q", i, msg, w)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for message %d", i)
		}
	}

	client.Close()
	for range client.Messages() {
	}
}

func TestClient_ServerDrop(t *testing.T) {
	release := make(chan struct{})
	server := mockWSServer(t, func(conn *websocket.Conn) {
		<-release
		// Handler returns, closing the connection abruptly.
	})
	defer server.Close()

	client := NewClient(testConfig(wsURL(server)), nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	close(release)

	// Messages must close, and a terminal error must be reported.
	select {
	case _, ok := <-client.Messages():
		if ok {
			t.Fatal("expected messages channel to close without a payload")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for messages channel to close")
	}

	select {
	case err := <-client.Errors():
		if err == nil {
			t.Error("expected a non-nil terminal error")
		}
	default:
		t.Error("expected an error after server drop")
	}
}

func TestClient_CloseIsClean(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	client := NewClient(testConfig(wsURL(server)), nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	client.Close()

	select {
	case _, ok := <-client.Messages():
		if ok {
			t.Fatal("expected messages channel to close without a payload")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for messages channel to close")
	}

	select {
	case err := <-client.Errors():
		t.Errorf("unexpected error after deliberate Close: %v", err)
	default:
	}
}
