package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func drain(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "catalog.loaded", Data: map[string]int{"markers": 28}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: catalog.loaded") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"markers":28`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishChange_DashboardThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishChange("measurement", "created", "m1")
	b.PublishChange("todo", "updated", "t1")
	b.PublishPlanChange("deleted", "plans/old.md")

	time.Sleep(50 * time.Millisecond)
	msgs := drain(ch)

	var dashboard int
	var types []string
	for _, s := range msgs {
		if strings.Contains(s, "event: "+DashboardUpdated) {
			dashboard++
			continue
		}
		types = append(types, strings.TrimPrefix(strings.SplitN(s, "\n", 2)[0], "event: "))
	}
	want := []string{"measurement.created", "todo.updated", "plan.deleted"}
	if strings.Join(types, ",") != strings.Join(want, ",") {
		t.Errorf("change events = %v, want %v", types, want)
	}
	if dashboard != 1 {
		t.Errorf("dashboard events = %d, want 1 (throttled)", dashboard)
	}
	if !strings.Contains(msgs[0], `"id":"m1"`) {
		t.Errorf("first message missing id: %q", msgs[0])
	}
}

func TestPublishChange_ThrottleWindowExpires(t *testing.T) {
	b := NewBroker(50 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishChange("measurement", "created", "a")
	time.Sleep(100 * time.Millisecond)
	b.PublishChange("measurement", "created", "b")
	time.Sleep(50 * time.Millisecond)

	var dashboard int
	for _, s := range drain(ch) {
		if strings.Contains(s, DashboardUpdated) {
			dashboard++
		}
	}
	if dashboard != 2 {
		t.Errorf("dashboard events = %d, want 2", dashboard)
	}
}

func TestPublishChange_IgnoresUnknownKind(t *testing.T) {
	b := NewBroker(time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishChange("measurement", "exploded", "x")
	time.Sleep(50 * time.Millisecond)
	if msgs := drain(ch); len(msgs) != 0 {
		t.Errorf("unexpected messages: %q", msgs)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishChange("measurement", "updated", "m1")
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: measurement.updated") || !strings.Contains(body, "event: dashboard.updated") {
		t.Errorf("handler output missing events: %q", body)
	}
	if w.Header().Get("Content-Type") != "text/event-stream" {
		t.Errorf("content type = %q", w.Header().Get("Content-Type"))
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Buffer holds 64; the rest must be dropped without blocking.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
	time.Sleep(50 * time.Millisecond)
	if n := len(drain(ch)); n != 64 {
		t.Errorf("buffered = %d, want 64", n)
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	b.Publish(Event{Type: "x", Data: map[string]string{}})
	b.PublishChange("measurement", "updated", "m1")
	b.Close()
}
