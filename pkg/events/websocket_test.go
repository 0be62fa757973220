package events

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/audiolink/audiolinkd/pkg/logging"
)

func dialTestServer(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	return conn
}

func TestWSHandlerStreamsEvents(t *testing.T) {
	bus := NewBus()
	defer bus.Shutdown()

	srv := httptest.NewServer(NewWSHandler(bus, logging.NewNopLogger()))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn := dialTestServer(t, url)
	defer conn.Close()

	// Give the server's subscribe a moment to register.
	deadline := time.Now().Add(time.Second)
	for bus.SubscriberCount("") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Server never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	sent := NewRuleRunEvent("headphones", 0, nil, 2, 0, nil)
	bus.Publish(sent)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got.ID != sent.ID || got.Rule != "headphones" || got.Created != 2 {
		t.Errorf("Unexpected event: %+v", got)
	}
}

func TestWSHandlerTypeFilter(t *testing.T) {
	bus := NewBus()
	defer bus.Shutdown()

	srv := httptest.NewServer(NewWSHandler(bus, logging.NewNopLogger()))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?type=" + TopicRulesReload
	conn := dialTestServer(t, url)
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for bus.SubscriberCount(TopicRulesReload) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Server never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// The filtered-out event must not arrive; the reload event must.
	bus.Publish(NewRuleRunEvent("ignored", 0, nil, 0, 0, nil))
	reload := NewRulesReloadEvent(4)
	bus.Publish(reload)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got.Type != TopicRulesReload || got.RuleCount != 4 {
		t.Errorf("Filter leaked: %+v", got)
	}
}
