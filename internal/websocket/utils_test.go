package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

// TestConcurrentWritesSerialized drives one wrapped connection from many
// goroutines at once, the same shape as the event pump and the read
// loop's replies sharing a session stream. gorilla panics on concurrent
// writers, so this fails loudly if the lock in WriteTyped is removed.
func TestConcurrentWritesSerialized(t *testing.T) {
	const (
		writers         = 8
		framesPerWriter = 50
	)

	upgrader := websocket.Upgrader{}
	connected := make(chan *Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		connected <- NewConn(raw)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	conn := <-connected
	defer conn.Close()

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < framesPerWriter; i++ {
				if err := conn.WriteEvent(EventTick, map[string]int{"n": i}); err != nil {
					t.Errorf("write: %v", err)
					return
				}
			}
		}()
	}

	for i := 0; i < writers*framesPerWriter; i++ {
		var msg EventResponse
		if err := client.ReadJSON(&msg); err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if msg.Event != EventTick {
			t.Fatalf("event = %q, want %q", msg.Event, EventTick)
		}
	}
	wg.Wait()
}
