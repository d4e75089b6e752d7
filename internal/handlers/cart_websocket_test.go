package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"shop_back_end/internal/routes"
)

type chanSubscriber struct {
	ch chan string
}

func (s *chanSubscriber) Subscribe(context.Context, uuid.UUID) (<-chan string, func()) {
	return s.ch, func() {}
}

type feedMessage struct {
	Type  string `json:"type"`
	Event string `json:"event"`
	Count int    `json:"count"`
}

func TestCartFeed(t *testing.T) {
	sub := &chanSubscriber{ch: make(chan string)}
	a := newAPIWith(t, func(d *routes.Deps) { d.Events = sub })
	admin := a.login("admin", "adminpass")
	alice := a.register("alice")
	p := a.createProduct(admin, "Cup", "3")

	srv := httptest.NewServer(a.engine)
	defer srv.Close()

	header := http.Header{"Authorization": {"Bearer " + alice}}
	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/cart/ws", header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer resp.Body.Close()
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg feedMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != "connected" || msg.Count != 0 {
		t.Fatalf("first message = %+v", msg)
	}

	a.expect(a.do(http.MethodPost, "/cart/add", alice, gin.H{"product_id": p, "quantity": 2}), http.StatusOK)
	select {
	case sub.ch <- "updated":
	case <-time.After(5 * time.Second):
		t.Fatal("feed is not listening")
	}

	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != "cart_updated" || msg.Event != "updated" || msg.Count != 1 {
		t.Fatalf("update message = %+v", msg)
	}
}

func TestCartFeedRequiresToken(t *testing.T) {
	a := newAPIWith(t, func(d *routes.Deps) { d.Events = &chanSubscriber{ch: make(chan string)} })
	srv := httptest.NewServer(a.engine)
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/cart/ws", nil)
	if err == nil {
		t.Fatal("dial without token succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("response = %v, want 401", resp)
	}
}
