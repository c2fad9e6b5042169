package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialTestHub(t *testing.T, hub *Hub, userID string, staff bool) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, userID, staff)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	wc, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	t.Cleanup(func() { wc.Close() })
	return wc
}

func waitForConns(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ConnCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d connections, got %d", want, hub.ConnCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHubPushUser(t *testing.T) {
	hub := NewHub()
	wc := dialTestHub(t, hub, "user-1", false)
	waitForConns(t, hub, 1)

	hub.PushUser("user-1", Event{Type: EventChatReply, Message: "hello"})

	wc.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event Event
	if err := wc.ReadJSON(&event); err != nil {
		t.Fatalf("read error: %v", err)
	}
	if event.Type != EventChatReply || event.Message != "hello" {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestHubPushStaffSkipsStudents(t *testing.T) {
	hub := NewHub()
	student := dialTestHub(t, hub, "user-1", false)
	staff := dialTestHub(t, hub, "staff-1", true)
	waitForConns(t, hub, 2)

	hub.PushStaff(Event{Type: EventOrderUpdate, Message: "new order"})

	staff.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event Event
	if err := staff.ReadJSON(&event); err != nil {
		t.Fatalf("staff read error: %v", err)
	}
	if event.Type != EventOrderUpdate {
		t.Fatalf("unexpected event: %+v", event)
	}

	student.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if err := student.ReadJSON(&event); err == nil {
		t.Fatalf("student should not receive staff broadcast, got %+v", event)
	}
}

func TestHubDisconnect(t *testing.T) {
	hub := NewHub()
	wc := dialTestHub(t, hub, "user-1", false)
	waitForConns(t, hub, 1)

	wc.Close()
	waitForConns(t, hub, 0)

	// Pushing to a gone user is a no-op.
	hub.PushUser("user-1", Event{Type: EventChatReply, Message: "late"})
}
